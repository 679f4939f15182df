package ransac

import(
	"runtime"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/multierr"
)

var ErrInvalidConfig = errors.New("invalid ransac config")

// Config controls one round of RANSAC. A Continue call takes a fresh
// Config, so the operator can change these between rounds.
type Config struct {
	MaxIterations   int           `yaml:"maxIterations"`   // Trials per round
	InlierThreshold float64       `yaml:"inlierThreshold"` // Squared reprojection error, in pixels^2
	Seed            int64         `yaml:"seed"`
	Workers         int           `yaml:"workers"`         // 0 means GOMAXPROCS
	MaxWallTime     time.Duration `yaml:"maxWallTime"`     // 0 means no deadline
}

func DefaultConfig() Config {
	return Config{
		MaxIterations:   500,
		InlierThreshold: 4.0,
		Seed:            1,
	}
}

func (c Config)Validate() error {
	var err error
	if c.MaxIterations < 1 {
		err = multierr.Append(err, errors.Wrapf(ErrInvalidConfig, "max iterations must be positive, got %d", c.MaxIterations))
	}
	if !(c.InlierThreshold > 0) {
		err = multierr.Append(err, errors.Wrapf(ErrInvalidConfig, "inlier threshold must be positive, got %f", c.InlierThreshold))
	}
	if c.Workers < 0 {
		err = multierr.Append(err, errors.Wrapf(ErrInvalidConfig, "workers can't be negative, got %d", c.Workers))
	}
	if c.MaxWallTime < 0 {
		err = multierr.Append(err, errors.Wrapf(ErrInvalidConfig, "max wall time can't be negative, got %s", c.MaxWallTime))
	}
	return err
}

func (c Config)nWorkers() int {
	n := c.Workers
	if n == 0 { n = runtime.GOMAXPROCS(0) }
	if n > c.MaxIterations { n = c.MaxIterations }
	return n
}
