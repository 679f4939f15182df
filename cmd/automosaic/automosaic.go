// automosaic stitches two overlapping photos into a panorama.
//
//	automosaic [flags] left.jpg right.jpg [config.yaml | dir ...]
package main

import(
	"fmt"
	"log"
	"os"
	"os/signal"

	"github.com/edaniels/golog"
	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	"github.com/abworrall/automosaic/pkg/mosaic"
	"github.com/abworrall/automosaic/pkg/ransac"
)

const(
	flagConfig      = "config"
	flagOut         = "out"
	flagVerbose     = "v"
	flagInteractive = "interactive"
	flagSeed        = "seed"
	flagIterations  = "iterations"
	flagThreshold   = "threshold"
	flagRatio       = "ratio"
	flagMaxPoints   = "maxpoints"
	flagCrossCheck  = "crosscheck"
	flagNoFeather   = "nofeather"
	flagDebugDir    = "debug-dir"
)

func main() {
	app := &cli.App{
		Name:      "automosaic",
		Usage:     "stitch two overlapping photos into one",
		ArgsUsage: "photo1 photo2 [config.yaml] [dir ...]",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: flagConfig, Aliases: []string{"c"}, Usage: "load configuration from `FILE`"},
			&cli.StringFlag{Name: flagOut, Aliases: []string{"o"}, Value: "mosaic.png", Usage: "output `FILE`; .hdr, .tif, .png, .jpg"},
			&cli.BoolFlag{Name: flagVerbose, Usage: "debug logging, and print the final config"},
			&cli.BoolFlag{Name: flagInteractive, Aliases: []string{"i"}, Usage: "review each RANSAC result, and maybe ask for more trials"},
			&cli.Int64Flag{Name: flagSeed, Usage: "RANSAC random seed"},
			&cli.IntFlag{Name: flagIterations, Usage: "RANSAC trials in the first round"},
			&cli.Float64Flag{Name: flagThreshold, Usage: "RANSAC inlier threshold, squared pixels"},
			&cli.Float64Flag{Name: flagRatio, Usage: "accept a match if nearest/second nearest is below this"},
			&cli.IntFlag{Name: flagMaxPoints, Usage: "points to keep after suppression"},
			&cli.BoolFlag{Name: flagCrossCheck, Usage: "only keep matches that are mutual nearest neighbours"},
			&cli.BoolFlag{Name: flagNoFeather, Usage: "paste photo 1 over photo 2, no blending"},
			&cli.StringFlag{Name: flagDebugDir, Usage: "write intermediate images into `DIR`"},
		},
		Action: run,
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func newLogger(debug bool) (golog.Logger, error) {
	cfg := zap.NewDevelopmentConfig()
	if !debug {
		cfg.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
	}
	l, err := cfg.Build()
	if err != nil {
		return nil, err
	}
	return l.Sugar().Named("automosaic"), nil
}

func run(c *cli.Context) error {
	logger, err := newLogger(c.Bool(flagVerbose))
	if err != nil {
		return err
	}
	defer logger.Sync()

	if c.NArg() == 0 {
		return errors.New("no photos given")
	}

	m := mosaic.NewMosaic(logger)
	if f := c.String(flagConfig); f != "" {
		cfg, err := mosaic.LoadConfig(f)
		if err != nil {
			return err
		}
		m.Config = cfg
	}
	if err := m.LoadFilesAndDirs(c.Args().Slice()...); err != nil {
		return err
	}

	// Override the config file with command line args, if relevant
	if c.IsSet(flagSeed) { m.RansacSeed = c.Int64(flagSeed) }
	if c.IsSet(flagIterations) { m.RansacMaxIterations = c.Int(flagIterations) }
	if c.IsSet(flagThreshold) { m.RansacInlierThreshold = c.Float64(flagThreshold) }
	if c.IsSet(flagRatio) { m.MatchRatioThreshold = c.Float64(flagRatio) }
	if c.IsSet(flagMaxPoints) { m.MaxPoints = c.Int(flagMaxPoints) }
	if c.IsSet(flagCrossCheck) { m.MatchCrossCheck = c.Bool(flagCrossCheck) }
	if c.Bool(flagNoFeather) { m.Feather = false }
	if c.Bool(flagVerbose) && m.Verbosity == 0 { m.Verbosity = 1 }

	if m.Verbosity > 0 {
		logger.Infof("Final configuration:-\n\n%s\n", m.Config.AsYaml())
	}

	var op ransac.Operator = ransac.AutoAccept{}
	if c.Bool(flagInteractive) {
		op = ransac.NewConsoleOperator(os.Stdin, os.Stdout)
	}

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt)
	defer stop()

	alignErr := m.Align(ctx, op)
	if dir := c.String(flagDebugDir); dir != "" && m.Alignment != nil {
		if err := m.DumpDebug(dir); err != nil {
			logger.Warnw("debug output failed", "error", err)
		}
	}
	if alignErr != nil {
		return alignErr
	}

	if err := m.Compose(); err != nil {
		return err
	}

	out := c.String(flagOut)
	if err := m.Panorama.Save(out); err != nil {
		return err
	}

	fmt.Fprintf(c.App.Writer, "%d of %d matches agree with\n%s\nwritten to %s\n",
		m.Result.InlierCount(), m.Matches.Len(), m.Result.Transform, out)
	return nil
}
