package mosaic

import(
	"time"

	"github.com/pkg/errors"
	"go.uber.org/multierr"
	"gopkg.in/yaml.v2"

	"github.com/abworrall/automosaic/pkg/emath"
	"github.com/abworrall/automosaic/pkg/features"
	"github.com/abworrall/automosaic/pkg/ransac"
)

// Config is every tunable in the pipeline, in one place. It can be
// loaded from YAML; fields missing from the file keep their defaults.
type Config struct {
	Verbosity                 int                `yaml:"verbosity"`
	Channel                   emath.Channel      `yaml:"channel"`             // Which part of the photo the features are found in

	// Corner detection
	EdgeMargin                int                `yaml:"edgeMargin"`
	MinSeparation             int                `yaml:"minSeparation"`
	HarrisSigma               float64            `yaml:"harrisSigma"`
	CornerThresholdRel        float64            `yaml:"cornerThresholdRel"`

	// Adaptive non-maximal suppression
	MaxPoints                 int                `yaml:"maxPoints"`
	SuppressionRatio          float64            `yaml:"suppressionRatio"`

	// Descriptors
	PatchSize                 int                `yaml:"patchSize"`
	DescriptorDownsampleRatio int                `yaml:"descriptorDownsampleRatio"`
	DescriptorResampler       features.Resampler `yaml:"descriptorResampler"`

	// Matching
	MatchRatioThreshold       float64            `yaml:"matchRatioThreshold"`
	MatchCrossCheck           bool               `yaml:"matchCrossCheck"`

	// RANSAC
	RansacMaxIterations       int                `yaml:"ransacMaxIterations"`
	RansacInlierThreshold     float64            `yaml:"ransacInlierThreshold"`
	RansacSeed                int64              `yaml:"ransacSeed"`
	RansacWorkers             int                `yaml:"ransacWorkers"`
	RansacMaxWallTime         time.Duration      `yaml:"ransacMaxWallTime"`
	RansacMaxRetries          int                `yaml:"ransacMaxRetries"`

	// Compositing
	SeamWidth                 int                `yaml:"seamWidth"`
	Feather                   bool               `yaml:"feather"`
}

func NewConfig() Config {
	det := features.DefaultDetectorConfig()
	desc := features.DefaultDescriptorConfig()
	rc := ransac.DefaultConfig()

	return Config{
		Channel:                   emath.ChannelLuminance,

		EdgeMargin:                det.EdgeMargin,
		MinSeparation:             det.MinSeparation,
		HarrisSigma:               det.Sigma,

		MaxPoints:                 500,
		SuppressionRatio:          0.9,

		PatchSize:                 desc.PatchSize,
		DescriptorDownsampleRatio: desc.DownsampleRatio,
		DescriptorResampler:       desc.Resampler,

		MatchRatioThreshold:       0.27,

		RansacMaxIterations:       rc.MaxIterations,
		RansacInlierThreshold:     rc.InlierThreshold,
		RansacSeed:                rc.Seed,
		RansacMaxRetries:          ransac.DefaultMaxRetries,

		SeamWidth:                 20,
		Feather:                   true,
	}
}

func newConfigFromYaml(b []byte) (Config, error) {
	c := NewConfig()
	err := yaml.Unmarshal(b, &c)
	return c, err
}

func (c Config)AsYaml() string {
	b, err := yaml.Marshal(c)
	if err != nil {
		return "# can't marshal config: " + err.Error()
	}
	return string(b)
}

func (c Config)DetectorConfig() features.DetectorConfig {
	return features.DetectorConfig{
		EdgeMargin:    c.EdgeMargin,
		MinSeparation: c.MinSeparation,
		Sigma:         c.HarrisSigma,
		ThresholdRel:  c.CornerThresholdRel,
	}
}

func (c Config)DescriptorConfig() features.DescriptorConfig {
	return features.DescriptorConfig{
		PatchSize:       c.PatchSize,
		DownsampleRatio: c.DescriptorDownsampleRatio,
		Resampler:       c.DescriptorResampler,
	}
}

func (c Config)MatchConfig() features.MatchConfig {
	return features.MatchConfig{
		RatioThreshold: c.MatchRatioThreshold,
		CrossCheck:     c.MatchCrossCheck,
	}
}

func (c Config)RansacConfig() ransac.Config {
	return ransac.Config{
		MaxIterations:   c.RansacMaxIterations,
		InlierThreshold: c.RansacInlierThreshold,
		Seed:            c.RansacSeed,
		Workers:         c.RansacWorkers,
		MaxWallTime:     c.RansacMaxWallTime,
	}
}

// Validate checks everything up front, and reports all the problems at
// once, rather than letting the pipeline fail at the first stage that
// trips over one.
func (c Config)Validate() error {
	var err error

	if !c.Channel.Valid() {
		err = multierr.Append(err, errors.Errorf("channel: no channel named '%s'", c.Channel))
	}
	if e := c.DetectorConfig().Validate(); e != nil {
		err = multierr.Append(err, e)
	}
	if c.MaxPoints < 1 {
		err = multierr.Append(err, errors.Wrapf(features.ErrInvalidMaxPoints, "maxPoints %d", c.MaxPoints))
	}
	if !(c.SuppressionRatio > 0 && c.SuppressionRatio < 1) {
		err = multierr.Append(err, errors.Wrapf(features.ErrInvalidSuppressionRatio, "suppressionRatio %f", c.SuppressionRatio))
	}
	if e := c.DescriptorConfig().Validate(); e != nil {
		err = multierr.Append(err, e)
	}
	if !(c.MatchRatioThreshold > 0 && c.MatchRatioThreshold < 1) {
		err = multierr.Append(err, errors.Wrapf(features.ErrInvalidRatio, "matchRatioThreshold %f", c.MatchRatioThreshold))
	}
	if e := c.RansacConfig().Validate(); e != nil {
		err = multierr.Append(err, e)
	}
	if c.RansacMaxRetries < 0 {
		err = multierr.Append(err, errors.Errorf("ransacMaxRetries can't be negative, got %d", c.RansacMaxRetries))
	}
	if c.SeamWidth < 0 {
		err = multierr.Append(err, errors.Errorf("seamWidth can't be negative, got %d", c.SeamWidth))
	}

	return err
}
