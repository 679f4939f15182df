package features

import(
	"context"
	"math"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/abworrall/automosaic/pkg/emath"
)

var(
	ErrInvalidRatio      = errors.New("match ratio threshold must be in (0,1)")
	ErrDimensionMismatch = errors.New("descriptor dimensions don't match")
)

// MatchConfig contains the parameters for matching descriptors.
type MatchConfig struct {
	RatioThreshold float64 // Accept if nearest / second nearest is below this
	CrossCheck     bool    // Also require the image 2 point to pick the image 1 point as its nearest
}

// A Match pairs a point in image 1 with a point in image 2. Distances
// are squared euclidean distances between descriptors.
type Match struct {
	Idx1     int
	Idx2     int
	Nearest  float64
	Second   float64
	Ratio    float64
}

// Matches is the output of the matcher, in image 1 index order.
// Points1[i] and Points2[i] are the locations of Pairs[i].
type Matches struct {
	Pairs   []Match
	Points1 PointSet
	Points2 PointSet
}

func (m *Matches)Len() int { return len(m.Pairs) }

// DistanceMatrix returns the squared euclidean distance between every
// descriptor in d1 (rows) and every descriptor in d2 (cols).
func DistanceMatrix(d1, d2 Descriptors) (*mat.Dense, error) {
	if len(d1) == 0 || len(d2) == 0 {
		return nil, nil
	}

	dim := len(d1[0])
	for _, ds := range []Descriptors{d1, d2} {
		for _, d := range ds {
			if len(d) != dim {
				return nil, errors.Wrapf(ErrDimensionMismatch, "lengths %d and %d", dim, len(d))
			}
		}
	}

	dists := mat.NewDense(len(d1), len(d2), nil)
	err := emath.ParallelFor(context.Background(), len(d1), func(i int) error {
		for j := range d2 {
			sum := 0.0
			for k, v := range d1[i] {
				diff := v - d2[j][k]
				sum += diff * diff
			}
			dists.Set(i, j, sum)
		}
		return nil
	})

	return dists, err
}

// MatchFeatures pairs up descriptors with the nearest neighbour ratio
// test. For each image 1 descriptor, the nearest image 2 descriptor is
// accepted when nearest/second nearest < RatioThreshold. A nearest
// distance of exactly zero always passes. When there is only one image
// 2 descriptor there is no runner up, so the second distance counts as
// infinite and the match is accepted. Ties for nearest go to the lowest
// image 2 index.
func MatchFeatures(d1, d2 Descriptors, p1, p2 PointSet, cfg MatchConfig) (*Matches, error) {
	if !(cfg.RatioThreshold > 0 && cfg.RatioThreshold < 1) {
		return nil, errors.Wrapf(ErrInvalidRatio, "got %f", cfg.RatioThreshold)
	}
	if len(d1) != len(p1) || len(d2) != len(p2) {
		return nil, errors.Wrapf(ErrDimensionMismatch, "%d/%d descriptors for %d/%d points", len(d1), len(d2), len(p1), len(p2))
	}

	m := &Matches{}

	dists, err := DistanceMatrix(d1, d2)
	if err != nil || dists == nil {
		return m, err
	}

	rows, cols := dists.Dims()

	// Nearest image 1 descriptor for every image 2 descriptor
	var colBest []int
	if cfg.CrossCheck {
		colBest = make([]int, cols)
		for j:=0; j<cols; j++ {
			colBest[j] = floats.MinIdx(mat.Col(nil, j, dists))
		}
	}

	for i:=0; i<rows; i++ {
		row := dists.RawRowView(i)
		nearestIdx := floats.MinIdx(row) // first minimum, so ties go to the lowest index
		nearest := row[nearestIdx]

		second := math.Inf(1)
		for j, d := range row {
			if j != nearestIdx && d < second {
				second = d
			}
		}

		ratio := 0.0
		if nearest > 0 {
			ratio = nearest / second
			if !(ratio < cfg.RatioThreshold) {
				continue
			}
		}

		if cfg.CrossCheck && colBest[nearestIdx] != i {
			continue
		}

		m.Pairs = append(m.Pairs, Match{Idx1: i, Idx2: nearestIdx, Nearest: nearest, Second: second, Ratio: ratio})
		m.Points1 = append(m.Points1, p1[i])
		m.Points2 = append(m.Points2, p2[nearestIdx])
	}

	return m, nil
}
