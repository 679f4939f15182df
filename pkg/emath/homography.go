package emath

import(
	"fmt"
	"math"

	"github.com/golang/geo/r2"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// A Homography is a row-major 3x3 matrix acting on homogeneous
// (x, y, 1) points, x being the column and y the row. The ones we
// estimate map points in the first photo onto the second.
type Homography [9]float64

func IdentityHomography() Homography {
	return Homography{1,0,0,  0,1,0,  0,0,1}
}

// Apply projects p through the homography. Points that land on the
// line at infinity come back with infinite coordinates, which never
// count as being close to anything.
func (h Homography)Apply(p r2.Point) r2.Point {
	x := h[0]*p.X + h[1]*p.Y + h[2]
	y := h[3]*p.X + h[4]*p.Y + h[5]
	w := h[6]*p.X + h[7]*p.Y + h[8]
	if w == 0 {
		return r2.Point{X: math.Inf(1), Y: math.Inf(1)}
	}
	return r2.Point{X: x/w, Y: y/w}
}

func (a Homography)Mult(b Homography) Homography {
	var c Homography
	for r:=0; r<3; r++ {
		for k:=0; k<3; k++ {
			c[3*r+k] = a[3*r+0]*b[3*0+k] + a[3*r+1]*b[3*1+k] + a[3*r+2]*b[3*2+k]
		}
	}
	return c
}

// Normalized rescales so that the bottom right element is 1.
func (h Homography)Normalized() (Homography, error) {
	if math.Abs(h[8]) < 1e-12 {
		return h, errors.Wrap(ErrDegenerate, "homography has h22 == 0")
	}
	for i := range h {
		h[i] /= h[8]
	}
	return h, nil
}

func (h Homography)Inverse() (Homography, error) {
	var inv mat.Dense
	if err := inv.Inverse(mat.NewDense(3, 3, h[:])); err != nil {
		return Homography{}, errors.Wrapf(ErrDegenerate, "inverting homography: %v", err)
	}

	var out Homography
	for r:=0; r<3; r++ {
		for c:=0; c<3; c++ {
			out[3*r+c] = inv.At(r, c)
		}
	}
	return out.Normalized()
}

// IsAffine is true when the perspective row is (0, 0, 1), within eps.
func (h Homography)IsAffine(eps float64) bool {
	n, err := h.Normalized()
	if err != nil {
		return false
	}
	return math.Abs(n[6]) <= eps && math.Abs(n[7]) <= eps
}

// ToAff3 drops the perspective row; only meaningful if IsAffine.
func (h Homography)ToAff3() Aff3 {
	n, _ := h.Normalized()
	return Aff3{n[0], n[1], n[2],  n[3], n[4], n[5]}
}

// IsFinite is false if any element is NaN or Inf.
func (h Homography)IsFinite() bool {
	for _, v := range h {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

func (h Homography)String() string {
	str := fmt.Sprintf("[%10f, %10f, %10f]\n", h[3*0+0], h[3*0+1], h[3*0+2])
	str += fmt.Sprintf("[%10f, %10f, %10f]\n", h[3*1+0], h[3*1+1], h[3*1+2])
	str += fmt.Sprintf("[%10f, %10f, %10f]\n", h[3*2+0], h[3*2+1], h[3*2+2])
	return str
}
