package ransac

import(
	"context"
	"errors"
	"math/rand"
	"testing"
	"time"

	"github.com/edaniels/golog"
	"github.com/golang/geo/r2"
	"go.viam.com/test"

	"github.com/abworrall/automosaic/pkg/emath"
)

// correspondences returns nGood pairs related by xform (plus a little
// noise), followed by nBad random pairs.
func correspondences(xform emath.Homography, nGood, nBad int, noise float64, seed int64) ([]r2.Point, []r2.Point) {
	rng := rand.New(rand.NewSource(seed))
	src, dst := []r2.Point{}, []r2.Point{}
	for i:=0; i<nGood; i++ {
		p := r2.Point{X: 20 + rng.Float64()*200, Y: 20 + rng.Float64()*150}
		q := xform.Apply(p)
		q.X += rng.NormFloat64() * noise
		q.Y += rng.NormFloat64() * noise
		src, dst = append(src, p), append(dst, q)
	}
	for i:=0; i<nBad; i++ {
		src = append(src, r2.Point{X: rng.Float64()*240, Y: rng.Float64()*190})
		dst = append(dst, r2.Point{X: rng.Float64()*240, Y: rng.Float64()*190})
	}
	return src, dst
}

func TestEstimateTranslationWithOutliers(t *testing.T) {
	logger := golog.NewTestLogger(t)
	xform := emath.Identity().Translate(5, 3).ToHomography()
	src, dst := correspondences(xform, 60, 25, 0.3, 1)

	r, err := NewEstimator(logger).Estimate(context.Background(), src, dst, DefaultConfig())
	test.That(t, err, test.ShouldBeNil)
	test.That(t, r.InlierCount(), test.ShouldBeGreaterThanOrEqualTo, 57)
	test.That(t, r.Iterations, test.ShouldEqual, 500)
	test.That(t, r.Rounds, test.ShouldEqual, 1)

	c := r.Transform.Apply(r2.Point{X: 120, Y: 95})
	test.That(t, c.X, test.ShouldAlmostEqual, 125, 0.5)
	test.That(t, c.Y, test.ShouldAlmostEqual, 98, 0.5)

	// Every reported inlier is within threshold of the reported transform
	for _, i := range r.Inliers {
		test.That(t, emath.Dist2(r.Transform.Apply(src[i]), dst[i]), test.ShouldBeLessThan, 4.0)
	}

	// History is a running maximum
	test.That(t, len(r.History), test.ShouldEqual, 500)
	for i:=1; i<len(r.History); i++ {
		test.That(t, r.History[i], test.ShouldBeGreaterThanOrEqualTo, r.History[i-1])
	}
	test.That(t, r.History[len(r.History)-1], test.ShouldEqual, r.SampleInlierCount)
	test.That(t, r.Residuals.Max, test.ShouldBeLessThan, 2.0)
}

func TestEstimateProjective(t *testing.T) {
	xform := emath.Homography{
		1.02,   0.03,   -40,
		-0.01,  0.98,   6,
		0.0001, 0.00005, 1,
	}
	src, dst := correspondences(xform, 40, 10, 0, 2)

	r, err := NewEstimator(golog.NewTestLogger(t)).Estimate(context.Background(), src, dst, DefaultConfig())
	test.That(t, err, test.ShouldBeNil)
	test.That(t, r.InlierCount(), test.ShouldBeGreaterThanOrEqualTo, 40)
	test.That(t, r.Refined, test.ShouldBeTrue)
	for i:=0; i<40; i++ {
		p := r.Transform.Apply(src[i])
		test.That(t, p.X, test.ShouldAlmostEqual, dst[i].X, 0.1)
		test.That(t, p.Y, test.ShouldAlmostEqual, dst[i].Y, 0.1)
	}
}

func TestEstimateIsDeterministic(t *testing.T) {
	xform := emath.Identity().Translate(-7, 2).ToHomography()
	src, dst := correspondences(xform, 30, 30, 0.5, 3)
	est := NewEstimator(golog.NewTestLogger(t))

	cfg := DefaultConfig()
	cfg.MaxIterations = 200
	cfg.Workers = 1
	r1, err := est.Estimate(context.Background(), src, dst, cfg)
	test.That(t, err, test.ShouldBeNil)

	cfg.Workers = 8
	r2_, err := est.Estimate(context.Background(), src, dst, cfg)
	test.That(t, err, test.ShouldBeNil)

	test.That(t, r2_.Sample, test.ShouldResemble, r1.Sample)
	test.That(t, r2_.Transform, test.ShouldResemble, r1.Transform)
	test.That(t, r2_.History, test.ShouldResemble, r1.History)
}

func TestEstimateErrors(t *testing.T) {
	est := NewEstimator(golog.NewTestLogger(t))
	ctx := context.Background()

	three := []r2.Point{{X: 0, Y: 0}, {X: 1, Y: 0}, {X: 0, Y: 1}}
	_, err := est.Estimate(ctx, three, three, DefaultConfig())
	test.That(t, errors.Is(err, ErrInsufficientCorrespondences), test.ShouldBeTrue)

	_, err = est.Estimate(ctx, append(three, r2.Point{X: 1, Y: 1}), three, DefaultConfig())
	test.That(t, errors.Is(err, ErrMismatchedCorrespondences), test.ShouldBeTrue)

	// Every sample is collinear
	line := []r2.Point{}
	for i:=0; i<10; i++ {
		line = append(line, r2.Point{X: float64(i), Y: float64(2*i)})
	}
	cfg := DefaultConfig()
	cfg.MaxIterations = 20
	_, err = est.Estimate(ctx, line, line, cfg)
	test.That(t, errors.Is(err, ErrNoConsensus), test.ShouldBeTrue)

	cfg = Config{MaxIterations: 0, InlierThreshold: -1}
	_, err = est.Estimate(ctx, line, line, cfg)
	test.That(t, errors.Is(err, ErrInvalidConfig), test.ShouldBeTrue)
}

func TestContinue(t *testing.T) {
	xform := emath.Identity().Translate(5, 3).ToHomography()
	src, dst := correspondences(xform, 40, 40, 1.0, 4)
	est := NewEstimator(golog.NewTestLogger(t))

	cfg := DefaultConfig()
	cfg.MaxIterations = 5
	cfg.InlierThreshold = 1.0
	r1, err := est.Estimate(context.Background(), src, dst, cfg)
	test.That(t, err, test.ShouldBeNil)

	cfg.MaxIterations = 300
	cfg.InlierThreshold = 9.0
	r2_, err := est.Continue(context.Background(), r1, cfg)
	test.That(t, err, test.ShouldBeNil)

	test.That(t, r2_.Rounds, test.ShouldEqual, 2)
	test.That(t, r2_.Iterations, test.ShouldEqual, 305)
	test.That(t, len(r2_.History), test.ShouldEqual, 305)
	test.That(t, r2_.History[:5], test.ShouldResemble, r1.History)
	for i:=1; i<len(r2_.History); i++ {
		test.That(t, r2_.History[i], test.ShouldBeGreaterThanOrEqualTo, r2_.History[i-1])
	}
	test.That(t, r2_.InlierCount(), test.ShouldBeGreaterThanOrEqualTo, r1.InlierCount())
	for _, i := range r2_.Inliers {
		test.That(t, emath.Dist2(r2_.Transform.Apply(src[i]), dst[i]), test.ShouldBeLessThan, 9.0)
	}

	// The first result is untouched
	test.That(t, r1.Rounds, test.ShouldEqual, 1)
	test.That(t, len(r1.History), test.ShouldEqual, 5)
}

func TestEstimateDeadline(t *testing.T) {
	xform := emath.Identity().Translate(1, 1).ToHomography()
	src, dst := correspondences(xform, 50, 0, 0, 5)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	cfg := DefaultConfig()
	cfg.MaxWallTime = time.Minute
	_, err := NewEstimator(golog.NewTestLogger(t)).Estimate(ctx, src, dst, cfg)
	test.That(t, errors.Is(err, ErrNoConsensus), test.ShouldBeTrue)
}

func TestTimedOutOnlyWhenTrialsSkipped(t *testing.T) {
	xform := emath.Identity().Translate(1, 1).ToHomography()
	src, dst := correspondences(xform, 30, 5, 0, 6)
	est := NewEstimator(golog.NewTestLogger(t))

	cfg := DefaultConfig()
	cfg.MaxIterations = 50
	cfg.MaxWallTime = time.Hour
	r1, err := est.Estimate(context.Background(), src, dst, cfg)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, r1.TimedOut, test.ShouldBeFalse)
	test.That(t, r1.Iterations, test.ShouldEqual, 50)

	// Cancelled before any trial runs; the previous best carries the result
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	r2_, err := est.Continue(ctx, r1, cfg)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, r2_.TimedOut, test.ShouldBeTrue)
	test.That(t, r2_.Iterations, test.ShouldEqual, 50)
	test.That(t, r2_.InlierCount(), test.ShouldBeGreaterThanOrEqualTo, 30)
}

func TestSampleIndicesDistinct(t *testing.T) {
	rng := rand.New(rand.NewSource(9))
	for i:=0; i<1000; i++ {
		s := sampleIndices(rng, 5)
		seen := map[int]bool{}
		for _, v := range s {
			test.That(t, v, test.ShouldBeGreaterThanOrEqualTo, 0)
			test.That(t, v, test.ShouldBeLessThan, 5)
			test.That(t, seen[v], test.ShouldBeFalse)
			seen[v] = true
		}
	}
}
