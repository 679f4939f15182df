package features

import(
	"context"
	"math"
	"sort"

	"github.com/pkg/errors"

	"github.com/abworrall/automosaic/pkg/emath"
)

var(
	ErrInvalidSuppressionRatio = errors.New("suppression ratio must be in (0,1)")
	ErrInvalidMaxPoints        = errors.New("max points must be positive")
)

// SuppressNonMax does adaptive non-maximal suppression (Brown, Szeliski
// & Winder). Each point gets a suppression radius: the squared distance
// to the nearest point that is "clearly stronger", i.e.
// strength(i) < cRobust * strength(j). Points nobody dominates get an
// infinite radius. The maxPts points with the largest radii are
// returned, largest first, ties kept in input order; this spreads the
// survivors evenly over the image, rather than bunching them up
// wherever the contrast is highest.
func SuppressNonMax(strength emath.FloatGrid, pts PointSet, maxPts int, cRobust float64) (PointSet, error) {
	if maxPts <= 0 {
		return nil, errors.Wrapf(ErrInvalidMaxPoints, "got %d", maxPts)
	}

	radii, err := SuppressionRadii(strength, pts, cRobust)
	if err != nil {
		return nil, err
	}

	order := make([]int, len(pts))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool { return radii[order[a]] > radii[order[b]] })

	if len(order) > maxPts {
		order = order[:maxPts]
	}

	out := make(PointSet, len(order))
	for i, idx := range order {
		out[i] = pts[idx]
	}
	return out, nil
}

// SuppressionRadii returns the squared suppression radius of each point.
// Points with equal strength never suppress each other.
func SuppressionRadii(strength emath.FloatGrid, pts PointSet, cRobust float64) ([]float64, error) {
	if !(cRobust > 0 && cRobust < 1) {
		return nil, errors.Wrapf(ErrInvalidSuppressionRatio, "got %f", cRobust)
	}
	if !pts.Within(strength.Bounds()) {
		return nil, errors.New("suppression: points fall outside the strength map")
	}

	s := make([]float64, len(pts))
	for i, p := range pts {
		s[i] = strength.Get(p.X, p.Y)
	}

	// O(n^2); fine for the few thousand corners a photo produces.
	radii := make([]float64, len(pts))
	err := emath.ParallelFor(context.Background(), len(pts), func(i int) error {
		r := math.Inf(1)
		for j, q := range pts {
			if j == i || !(s[i] < cRobust*s[j]) {
				continue
			}
			dx, dy := float64(pts[i].X - q.X), float64(pts[i].Y - q.Y)
			if d := dx*dx + dy*dy; d < r {
				r = d
			}
		}
		radii[i] = r
		return nil
	})

	return radii, err
}
