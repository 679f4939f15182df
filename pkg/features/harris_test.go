package features

import(
	"errors"
	"image"
	"testing"

	"go.viam.com/test"

	"github.com/abworrall/automosaic/pkg/emath"
)

func TestDetectCornersRejectsSmallMargin(t *testing.T) {
	cfg := DefaultDetectorConfig()
	cfg.EdgeMargin = 19
	_, err := DetectCorners(emath.NewFloatGrid(100, 100), cfg)
	test.That(t, errors.Is(err, ErrInvalidMargin), test.ShouldBeTrue)

	cfg = DefaultDetectorConfig()
	cfg.MinSeparation = 0
	_, err = DetectCorners(emath.NewFloatGrid(100, 100), cfg)
	test.That(t, err, test.ShouldNotBeNil)
}

func TestDetectCornersFindsSquareCorners(t *testing.T) {
	img := emath.NewFloatGrid(100, 100)
	for y:=35; y<65; y++ {
		for x:=35; x<65; x++ {
			img.Set(x, y, 1.0)
		}
	}

	corners, err := DetectCorners(img, DefaultDetectorConfig())
	test.That(t, err, test.ShouldBeNil)
	test.That(t, corners.Strength.Dx(), test.ShouldEqual, 100)
	test.That(t, len(corners.Points), test.ShouldBeGreaterThanOrEqualTo, 4)

	near := func(p, q image.Point, d int) bool {
		dx, dy := p.X-q.X, p.Y-q.Y
		return dx*dx+dy*dy <= d*d
	}

	expected := []image.Point{{35, 35}, {64, 35}, {35, 64}, {64, 64}}
	for _, c := range expected {
		found := false
		for _, p := range corners.Points {
			if near(p, c, 3) { found = true }
		}
		test.That(t, found, test.ShouldBeTrue)
	}

	// The flat areas and the straight edges have no response at all
	for _, p := range corners.Points {
		close := false
		for _, c := range expected {
			if near(p, c, 8) { close = true }
		}
		test.That(t, close, test.ShouldBeTrue)
	}
}

func TestDetectCornersRespectsMargin(t *testing.T) {
	img := noiseImage(120, 90, 3)

	for _, margin := range []int{20, 25, 40} {
		cfg := DefaultDetectorConfig()
		cfg.EdgeMargin = margin
		corners, err := DetectCorners(img, cfg)
		test.That(t, err, test.ShouldBeNil)
		test.That(t, len(corners.Points), test.ShouldBeGreaterThan, 0)

		for _, p := range corners.Points {
			test.That(t, p.X, test.ShouldBeGreaterThan, margin)
			test.That(t, p.X, test.ShouldBeLessThan, 120-margin)
			test.That(t, p.Y, test.ShouldBeGreaterThan, margin)
			test.That(t, p.Y, test.ShouldBeLessThan, 90-margin)
		}

		// Scan order
		for i:=1; i<len(corners.Points); i++ {
			a, b := corners.Points[i-1], corners.Points[i]
			test.That(t, a.Y < b.Y || (a.Y == b.Y && a.X < b.X), test.ShouldBeTrue)
		}
	}
}

func TestDetectCornersTooSmallImage(t *testing.T) {
	corners, err := DetectCorners(noiseImage(30, 30, 1), DefaultDetectorConfig())
	test.That(t, err, test.ShouldBeNil)
	test.That(t, len(corners.Points), test.ShouldEqual, 0)
}

func TestDetectCornersThresholdRel(t *testing.T) {
	img := blobScene(120, 120, 30, 11)
	all, err := DetectCorners(img, DefaultDetectorConfig())
	test.That(t, err, test.ShouldBeNil)

	cfg := DefaultDetectorConfig()
	cfg.ThresholdRel = 0.1
	strong, err := DetectCorners(img, cfg)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, len(strong.Points), test.ShouldBeLessThanOrEqualTo, len(all.Points))

	_, max := strong.Strength.MinMax()
	for _, p := range strong.Points {
		test.That(t, strong.Strength.Get(p.X, p.Y), test.ShouldBeGreaterThanOrEqualTo, 0.1*max)
	}
}
