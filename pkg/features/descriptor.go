package features

import(
	"context"
	"image"

	"github.com/nfnt/resize"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/abworrall/automosaic/pkg/emath"
)

// Patches whose std falls below this are treated as flat, and only get
// their mean subtracted.
const zeroVarianceEpsilon = 1e-12

var ErrInvalidPatch = errors.New("invalid descriptor patch geometry")

// Resampler names a way of shrinking a patch down to a descriptor.
type Resampler string

const(
	ResamplerGaussian Resampler = "gaussian" // blur with sigma (ratio-1)/2, then bilinear
	ResamplerLanczos  Resampler = "lanczos"  // nfnt/resize Lanczos3
)

type DescriptorConfig struct {
	PatchSize       int // Side of the square patch sampled around each point
	DownsampleRatio int // Patch side / descriptor side
	Resampler       Resampler
}

func DefaultDescriptorConfig() DescriptorConfig {
	return DescriptorConfig{
		PatchSize:       40,
		DownsampleRatio: 5,
		Resampler:       ResamplerGaussian,
	}
}

func (cfg DescriptorConfig)Validate() error {
	if cfg.PatchSize <= 0 || cfg.PatchSize%2 != 0 {
		return errors.Wrapf(ErrInvalidPatch, "patch size must be even and positive, got %d", cfg.PatchSize)
	}
	if cfg.DownsampleRatio < 1 || cfg.DownsampleRatio > cfg.PatchSize {
		return errors.Wrapf(ErrInvalidPatch, "downsample ratio %d doesn't fit patch size %d", cfg.DownsampleRatio, cfg.PatchSize)
	}
	switch cfg.Resampler {
	case ResamplerGaussian, ResamplerLanczos, "":
	default:
		return errors.Wrapf(ErrInvalidPatch, "no resampler named '%s'", cfg.Resampler)
	}
	return nil
}

// Side is the width (and height) of the descriptor grid.
func (cfg DescriptorConfig)Side() int { return cfg.PatchSize / cfg.DownsampleRatio }

// Descriptors holds one flattened, normalized descriptor per point, in
// the same order as the points they were extracted from.
type Descriptors [][]float64

// ExtractDescriptors samples a PatchSize square around each point,
// shrinks it by DownsampleRatio with anti-aliasing, and normalizes it
// to zero mean and unit standard deviation. The patch covers rows
// y-P/2 .. y+P/2-1 (and likewise for columns); any part of it off the
// image repeats the edge pixels.
func ExtractDescriptors(img emath.FloatGrid, pts PointSet, cfg DescriptorConfig) (Descriptors, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	out := make(Descriptors, len(pts))
	err := emath.ParallelFor(context.Background(), len(pts), func(i int) error {
		d, err := extractOne(img, pts[i], cfg)
		out[i] = d
		return err
	})
	if err != nil {
		return nil, err
	}

	return out, nil
}

func extractOne(img emath.FloatGrid, p image.Point, cfg DescriptorConfig) ([]float64, error) {
	half := cfg.PatchSize / 2
	patch := img.SubGrid(image.Rect(p.X-half, p.Y-half, p.X+half, p.Y+half), emath.BorderNearest)

	side := cfg.Side()
	var small emath.FloatGrid

	switch cfg.Resampler {
	case ResamplerLanczos:
		shrunk := resize.Resize(uint(side), uint(side), patch.ToGray16(), resize.Lanczos3)
		small = emath.NewFloatGridFromImage(shrunk, emath.ChannelRed)
	default:
		small = patch.AntiAliasedResize(side, side)
	}

	d := make([]float64, side*side)
	copy(d, small.Values())
	normalize(d)

	return d, nil
}

// normalize shifts to zero mean, and scales to unit (population) std
// unless the values are all the same.
func normalize(d []float64) {
	mean, std := stat.PopMeanStdDev(d, nil)
	floats.AddConst(-mean, d)
	if std > zeroVarianceEpsilon {
		floats.Scale(1.0/std, d)
	}
}
