package emath

import(
	"math"

	"github.com/golang/geo/r2"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// ErrDegenerate means the points can't pin down a homography: too few
// of them, three of a minimal sample on a line, or a singular system.
var ErrDegenerate = errors.New("degenerate point configuration")

// collinearEps applies to Hartley-normalized points, whose mean
// distance from the origin is sqrt(2).
const collinearEps = 1e-6

// FitHomography solves for the homography taking src[i] onto dst[i],
// with h22 fixed to 1. Four pairs give the exact solution; more give
// the least-squares one. Points are Hartley-normalized first, so the
// system stays well conditioned for pixel-sized coordinates.
func FitHomography(src, dst []r2.Point) (Homography, error) {
	if len(src) != len(dst) {
		return Homography{}, errors.Errorf("fit homography: %d src points but %d dst points", len(src), len(dst))
	}
	if len(src) < 4 {
		return Homography{}, errors.Wrapf(ErrDegenerate, "fit homography: need 4 point pairs, have %d", len(src))
	}

	srcN, T1, err := normalizePoints(src)
	if err != nil {
		return Homography{}, err
	}
	dstN, T2, err := normalizePoints(dst)
	if err != nil {
		return Homography{}, err
	}

	if len(src) == 4 && (anyThreeCollinear(srcN) || anyThreeCollinear(dstN)) {
		return Homography{}, errors.Wrap(ErrDegenerate, "fit homography: collinear sample")
	}

	n := len(srcN)
	A := mat.NewDense(n*2, 8, nil)
	B := mat.NewVecDense(n*2, nil)

	for i:=0; i<n; i++ {
		x, y := srcN[i].X, srcN[i].Y
		u, v := dstN[i].X, dstN[i].Y

		A.SetRow(i*2,   []float64{x, y, 1, 0, 0, 0, -x*u, -y*u})
		B.SetVec(i*2, u)

		A.SetRow(i*2+1, []float64{0, 0, 0, x, y, 1, -x*v, -y*v})
		B.SetVec(i*2+1, v)
	}

	// Solve using QR decomposition
	var qr mat.QR
	qr.Factorize(A)

	var params mat.VecDense
	if err := qr.SolveVecTo(&params, false, B); err != nil {
		return Homography{}, errors.Wrapf(ErrDegenerate, "fit homography: %v", err)
	}

	Hn := Homography{
		params.AtVec(0), params.AtVec(1), params.AtVec(2),
		params.AtVec(3), params.AtVec(4), params.AtVec(5),
		params.AtVec(6), params.AtVec(7), 1,
	}

	T2inv, err := T2.Inverse()
	if err != nil {
		return Homography{}, err
	}

	H, err := T2inv.Mult(Hn).Mult(T1).Normalized()
	if err != nil {
		return Homography{}, err
	}
	if !H.IsFinite() {
		return Homography{}, errors.Wrap(ErrDegenerate, "fit homography: non-finite solution")
	}

	return H, nil
}

// normalizePoints translates the points so their centroid is at the
// origin, and scales them so their mean distance from it is sqrt(2).
func normalizePoints(pts []r2.Point) ([]r2.Point, Homography, error) {
	nPoints := float64(len(pts))

	mu := r2.Point{}
	for _, pt := range pts {
		mu = mu.Add(pt)
	}
	mu = mu.Mul(1.0 / nPoints)

	d := 0.0
	for _, pt := range pts {
		d += pt.Sub(mu).Norm() / nPoints
	}
	if d == 0 {
		return nil, Homography{}, errors.Wrap(ErrDegenerate, "all points coincide")
	}

	scale := math.Sqrt(2) / d
	T := Homography{
		scale, 0, -scale * mu.X,
		0, scale, -scale * mu.Y,
		0, 0, 1,
	}

	out := make([]r2.Point, len(pts))
	for i := range pts {
		out[i] = pts[i].Sub(mu).Mul(scale)
	}
	return out, T, nil
}

func anyThreeCollinear(pts []r2.Point) bool {
	for i:=0; i<len(pts); i++ {
		for j:=i+1; j<len(pts); j++ {
			for k:=j+1; k<len(pts); k++ {
				if Collinear(pts[i], pts[j], pts[k], collinearEps) {
					return true
				}
			}
		}
	}
	return false
}
