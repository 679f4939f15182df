package emath

import(
	"math"

	"github.com/golang/geo/r2"
)

// Some functions that only operate on basic types, that are useful

// https://www.sjbrown.co.uk/posts/gamma-correct-rendering/ - "linear RGB to sRGB"
// `f` is assumed to be in the range [0,1]
func GammaExpand_F64(f float64) float64 {
	if f <= 0.0031308 {
		return 12.92 * f
	}
	return 1.055 * math.Pow(f, 1.0/2.4) - 0.055
}

// Dist2 is the squared euclidean distance between two points.
func Dist2(a, b r2.Point) float64 {
	d := a.Sub(b)
	return d.Dot(d)
}

// Collinear reports whether three points are (numerically) on a line,
// by looking at twice the area of the triangle they make.
func Collinear(a, b, c r2.Point, eps float64) bool {
	return math.Abs(b.Sub(a).Cross(c.Sub(a))) <= eps
}
