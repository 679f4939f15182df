package features

import(
	"image"

	"github.com/pkg/errors"

	"github.com/abworrall/automosaic/pkg/emath"
)

// MinEdgeMargin is the smallest margin that keeps a descriptor patch
// (half of which is 20 pixels, by default) clear of the image edge.
const MinEdgeMargin = 20

// harrisEps stops the det/trace response blowing up in flat areas.
const harrisEps = 1e-6

var ErrInvalidMargin = errors.New("edge margin must be at least 20 pixels")

// DetectorConfig controls the Harris corner detector.
type DetectorConfig struct {
	EdgeMargin    int     // Corners this close to an edge are dropped
	MinSeparation int     // Half-width of the local maximum window
	Sigma         float64 // Gaussian used to build the structure tensor
	ThresholdRel  float64 // Peaks below this fraction of the strongest are dropped
}

func DefaultDetectorConfig() DetectorConfig {
	return DetectorConfig{
		EdgeMargin:    MinEdgeMargin,
		MinSeparation: 1,
		Sigma:         1.0,
	}
}

func (cfg DetectorConfig)Validate() error {
	if cfg.EdgeMargin < MinEdgeMargin {
		return errors.Wrapf(ErrInvalidMargin, "got %d", cfg.EdgeMargin)
	}
	if cfg.MinSeparation < 1 {
		return errors.Errorf("min separation must be at least 1, got %d", cfg.MinSeparation)
	}
	if cfg.Sigma <= 0 {
		return errors.Errorf("harris sigma must be positive, got %f", cfg.Sigma)
	}
	if cfg.ThresholdRel < 0 || cfg.ThresholdRel >= 1 {
		return errors.Errorf("relative corner threshold must be in [0,1), got %f", cfg.ThresholdRel)
	}
	return nil
}

// Corners is what the detector found: the full strength map, and the
// peaks in it that survived the margin.
type Corners struct {
	Strength emath.FloatGrid
	Points   PointSet
}

// DetectCorners finds Harris corners in a grayscale image. Points come
// back in row-major scan order, all strictly more than EdgeMargin
// pixels away from every edge.
func DetectCorners(img emath.FloatGrid, cfg DetectorConfig) (*Corners, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	strength := HarrisResponse(img, cfg.Sigma)
	return &Corners{
		Strength: strength,
		Points:   localMaxima(strength, cfg),
	}, nil
}

// HarrisResponse computes det(A) / (trace(A) + eps) at every pixel,
// where A is the Gaussian-weighted structure tensor of Sobel gradients.
// Off-image pixels count as zero.
func HarrisResponse(img emath.FloatGrid, sigma float64) emath.FloatGrid {
	ix, iy := img.Sobel(emath.BorderZero)

	ixx, ixy, iyy := ix.NewFromThis(), ix.NewFromThis(), ix.NewFromThis()
	for y:=0; y<img.Dy(); y++ {
		for x:=0; x<img.Dx(); x++ {
			gx, gy := ix.Get(x,y), iy.Get(x,y)
			ixx.Set(x, y, gx*gx)
			ixy.Set(x, y, gx*gy)
			iyy.Set(x, y, gy*gy)
		}
	}

	axx := ixx.GaussianBlur(sigma, emath.BorderZero)
	axy := ixy.GaussianBlur(sigma, emath.BorderZero)
	ayy := iyy.GaussianBlur(sigma, emath.BorderZero)

	R := img.NewFromThis()
	emath.ParallelForEachRow(img.Dy(), func(y int) {
		for x:=0; x<img.Dx(); x++ {
			a, b, c := axx.Get(x,y), axy.Get(x,y), ayy.Get(x,y)
			R.Set(x, y, (a*c - b*b) / (a + c + harrisEps))
		}
	})

	return R
}

// localMaxima picks out pixels that are the largest value in their
// (2*MinSeparation+1) square window, are strictly above both zero and
// the smallest value in the whole map, and are inside the margin. Plateaus produce
// one point per tied pixel.
func localMaxima(strength emath.FloatGrid, cfg DetectorConfig) PointSet {
	w, h := strength.Dx(), strength.Dy()
	min, max := strength.MinMax()
	floor := cfg.ThresholdRel * max
	sep := cfg.MinSeparation
	margin := cfg.EdgeMargin

	rows := make([]PointSet, h)
	emath.ParallelForEachRow(h, func(y int) {
		if y <= margin || y >= h-margin {
			return
		}
		for x:=margin+1; x<w-margin; x++ {
			v := strength.Get(x,y)
			if v <= min || v <= 0 || v < floor {
				continue
			}
			if isWindowMax(strength, x, y, sep, v) {
				rows[y] = append(rows[y], image.Point{x, y})
			}
		}
	})

	pts := PointSet{}
	for _, row := range rows {
		pts = append(pts, row...)
	}
	return pts
}

func isWindowMax(strength emath.FloatGrid, x, y, sep int, v float64) bool {
	for dy:=-sep; dy<=sep; dy++ {
		for dx:=-sep; dx<=sep; dx++ {
			if strength.GetBorder(x+dx, y+dy, emath.BorderZero) > v {
				return false
			}
		}
	}
	return true
}
