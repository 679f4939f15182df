package mosaic

import(
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/disintegration/imaging"
	"github.com/edaniels/golog"
	"go.uber.org/multierr"
	"go.viam.com/test"

	"github.com/abworrall/automosaic/pkg/features"
)

func TestConfigDefaults(t *testing.T) {
	cfg := NewConfig()
	test.That(t, cfg.Validate(), test.ShouldBeNil)
	test.That(t, cfg.EdgeMargin, test.ShouldEqual, 20)
	test.That(t, cfg.MaxPoints, test.ShouldEqual, 500)
	test.That(t, cfg.SuppressionRatio, test.ShouldEqual, 0.9)
	test.That(t, cfg.PatchSize, test.ShouldEqual, 40)
	test.That(t, cfg.DescriptorDownsampleRatio, test.ShouldEqual, 5)
	test.That(t, cfg.MatchRatioThreshold, test.ShouldEqual, 0.27)
	test.That(t, cfg.RansacMaxIterations, test.ShouldEqual, 500)
	test.That(t, cfg.RansacInlierThreshold, test.ShouldEqual, 4.0)
	test.That(t, cfg.RansacMaxRetries, test.ShouldEqual, 3)
	test.That(t, cfg.SeamWidth, test.ShouldEqual, 20)
	test.That(t, cfg.Feather, test.ShouldBeTrue)
	test.That(t, cfg.DescriptorConfig().Side(), test.ShouldEqual, 8)
}

func TestConfigFromYaml(t *testing.T) {
	cfg, err := newConfigFromYaml([]byte(`
maxPoints: 250
matchRatioThreshold: 0.4
descriptorResampler: lanczos
ransacMaxWallTime: 2s
feather: false
`))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, cfg.MaxPoints, test.ShouldEqual, 250)
	test.That(t, cfg.MatchRatioThreshold, test.ShouldEqual, 0.4)
	test.That(t, cfg.DescriptorResampler, test.ShouldEqual, features.ResamplerLanczos)
	test.That(t, cfg.RansacMaxWallTime, test.ShouldEqual, 2*time.Second)
	test.That(t, cfg.Feather, test.ShouldBeFalse)
	test.That(t, cfg.EdgeMargin, test.ShouldEqual, 20)
	test.That(t, cfg.Validate(), test.ShouldBeNil)

	test.That(t, cfg.AsYaml(), test.ShouldContainSubstring, "maxPoints: 250")

	_, err = newConfigFromYaml([]byte("maxPoints: [1, 2"))
	test.That(t, err, test.ShouldNotBeNil)
}

func TestConfigValidateReportsEverything(t *testing.T) {
	cfg := NewConfig()
	cfg.EdgeMargin = 10
	cfg.SuppressionRatio = 1.5
	cfg.PatchSize = 41
	cfg.MatchRatioThreshold = 0
	cfg.RansacMaxIterations = 0
	cfg.Channel = "purple"

	err := cfg.Validate()
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, len(multierr.Errors(err)), test.ShouldBeGreaterThanOrEqualTo, 6)
}

func TestLoadFilesAndDirs(t *testing.T) {
	dir := t.TempDir()
	p1, _ := shiftedPair()
	test.That(t, imaging.Save(p1.Image, filepath.Join(dir, "a.png")), test.ShouldBeNil)
	test.That(t, imaging.Save(p1.Image, filepath.Join(dir, "b.jpg")), test.ShouldBeNil)
	test.That(t, os.WriteFile(filepath.Join(dir, "mosaic.yaml"), []byte("maxPoints: 42\n"), 0644), test.ShouldBeNil)
	test.That(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("hello\n"), 0644), test.ShouldBeNil)

	m := NewMosaic(golog.NewTestLogger(t))
	test.That(t, m.LoadFilesAndDirs(dir), test.ShouldBeNil)
	test.That(t, len(m.Photos), test.ShouldEqual, 2)
	test.That(t, m.Photos[0].Filename(), test.ShouldEqual, "a.png")
	test.That(t, m.Photos[0].Bounds().Dx(), test.ShouldEqual, 100)
	test.That(t, m.Photos[0].Camera, test.ShouldEqual, "")
	test.That(t, m.Config.MaxPoints, test.ShouldEqual, 42)

	test.That(t, m.LoadFilesAndDirs(filepath.Join(dir, "missing.png")), test.ShouldNotBeNil)
}

func TestPanoramaSave(t *testing.T) {
	dir := t.TempDir()
	p := &Panorama{RGBA64: solid(8, 6, red)}

	for _, name := range []string{"pano.png", "pano.jpg", "pano.tif", "pano.hdr"} {
		test.That(t, p.Save(filepath.Join(dir, name)), test.ShouldBeNil)
		_, err := os.Stat(filepath.Join(dir, name))
		test.That(t, err, test.ShouldBeNil)
	}

	r, g, b, _ := p.HDRAt(1, 1).HDRRGBA()
	test.That(t, r, test.ShouldAlmostEqual, 1.0)
	test.That(t, g, test.ShouldAlmostEqual, 0.0)
	test.That(t, b, test.ShouldAlmostEqual, 0.0)
	test.That(t, p.Size(), test.ShouldEqual, 48)

	test.That(t, p.Save(filepath.Join(dir, "nope", "pano.png")), test.ShouldNotBeNil)
}
