package mosaic

import(
	"context"
	"fmt"
	"time"

	"github.com/edaniels/golog"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"github.com/abworrall/automosaic/pkg/emath"
	"github.com/abworrall/automosaic/pkg/features"
	"github.com/abworrall/automosaic/pkg/ransac"
)

// Features is everything found in one photo, ready for matching.
type Features struct {
	Gray        emath.FloatGrid    // The channel the features were found in
	Corners     *features.Corners  // Every Harris corner, with the strength map
	Points      features.PointSet  // Survivors of non-maximal suppression
	Descriptors features.Descriptors
}

func (f *Features)String() string {
	if f == nil || f.Corners == nil {
		return "Features{}"
	}
	return fmt.Sprintf("Features{%dx%d, %d corners, %d kept}",
		f.Gray.Dx(), f.Gray.Dy(), len(f.Corners.Points), len(f.Points))
}

// ExtractFeatures runs detection, suppression and description over a
// single photo.
func ExtractFeatures(ctx context.Context, cfg Config, p Photo, logger golog.Logger) (*Features, error) {
	tStart := time.Now()
	f := &Features{Gray: emath.NewFloatGridFromImage(p.Image, cfg.Channel)}

	c, err := features.DetectCorners(f.Gray, cfg.DetectorConfig())
	if err != nil {
		return nil, errors.Wrapf(err, "corner detection on %s", p.Filename())
	}
	f.Corners = c

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	f.Points, err = features.SuppressNonMax(c.Strength, c.Points, cfg.MaxPoints, cfg.SuppressionRatio)
	if err != nil {
		return nil, errors.Wrapf(err, "suppression on %s", p.Filename())
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	f.Descriptors, err = features.ExtractDescriptors(f.Gray, f.Points, cfg.DescriptorConfig())
	if err != nil {
		return nil, errors.Wrapf(err, "descriptors on %s", p.Filename())
	}

	logger.Infow("features extracted", "photo", p.Filename(), "corners", len(c.Points),
		"kept", len(f.Points), "elapsed", time.Since(tStart))

	return f, nil
}

// extractPair runs ExtractFeatures on both photos at once.
func extractPair(ctx context.Context, cfg Config, p1, p2 Photo, logger golog.Logger) (*Features, *Features, error) {
	var f1, f2 *Features
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		f1, err = ExtractFeatures(gctx, cfg, p1, logger)
		return err
	})
	g.Go(func() (err error) {
		f2, err = ExtractFeatures(gctx, cfg, p2, logger)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	return f1, f2, nil
}

// MatchPair matches the descriptors of two photos, and insists on
// enough matches for a homography.
func MatchPair(cfg Config, f1, f2 *Features, logger golog.Logger) (*features.Matches, error) {
	m, err := features.MatchFeatures(f1.Descriptors, f2.Descriptors, f1.Points, f2.Points, cfg.MatchConfig())
	if err != nil {
		return nil, errors.Wrap(err, "matching")
	}

	logger.Infow("features matched", "matches", m.Len(), "of", len(f1.Points), "ratio", cfg.MatchRatioThreshold)

	if m.Len() < ransac.MinCorrespondences {
		return m, errors.Wrapf(ransac.ErrInsufficientCorrespondences,
			"matching: fewer than %d reliable matches found (%d); relax the matching ratio threshold",
			ransac.MinCorrespondences, m.Len())
	}
	return m, nil
}

// Stitch runs the whole pipeline over a pair of photos, up to and
// including the operator's review of the homography.
func Stitch(ctx context.Context, cfg Config, p1, p2 Photo, op ransac.Operator, logger golog.Logger) (*Alignment, error) {
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "config")
	}

	a := &Alignment{}

	var err error
	a.Features1, a.Features2, err = extractPair(ctx, cfg, p1, p2, logger)
	if err != nil {
		return nil, err
	}

	a.Matches, err = MatchPair(cfg, a.Features1, a.Features2, logger)
	if err != nil {
		return a, err
	}

	est := ransac.NewEstimator(logger)
	a.Result, err = ransac.Refine(ctx, est, a.Matches.Points1.ToR2(), a.Matches.Points2.ToR2(),
		cfg.RansacConfig(), op, cfg.RansacMaxRetries, logger)
	if err != nil {
		return a, errors.Wrap(err, "homography")
	}

	logger.Infow("homography found", "inliers", a.Result.InlierCount(), "matches", a.Matches.Len(),
		"transform", a.Result.Transform.String())

	return a, nil
}

// Alignment is the output of Stitch: how image 1 maps into image 2,
// and the evidence for it.
type Alignment struct {
	Features1 *Features
	Features2 *Features
	Matches   *features.Matches
	Result    *ransac.Result
}

// InlierMatches returns the subset of matches the homography agrees with.
func (a *Alignment)InlierMatches() []features.Match {
	if a.Result == nil || a.Matches == nil {
		return nil
	}
	out := make([]features.Match, 0, a.Result.InlierCount())
	for _, i := range a.Result.Inliers {
		out = append(out, a.Matches.Pairs[i])
	}
	return out
}
