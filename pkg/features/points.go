package features

import(
	"fmt"
	"image"

	"github.com/golang/geo/r2"
)

// A PointSet is an ordered list of pixel locations; X is the column
// and Y the row. Anything indexed "like the points" (descriptors,
// match indices) uses the position in this slice.
type PointSet []image.Point

func (ps PointSet)ToR2() []r2.Point {
	out := make([]r2.Point, len(ps))
	for i, p := range ps {
		out[i] = r2.Point{X: float64(p.X), Y: float64(p.Y)}
	}
	return out
}

// Within is true if every point is inside r.
func (ps PointSet)Within(r image.Rectangle) bool {
	for _, p := range ps {
		if !p.In(r) {
			return false
		}
	}
	return true
}

func (ps PointSet)String() string {
	if len(ps) > 6 {
		return fmt.Sprintf("%v ... (%d points)", []image.Point(ps[:6]), len(ps))
	}
	return fmt.Sprintf("%v", []image.Point(ps))
}
