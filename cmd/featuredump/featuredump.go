// featuredump runs corner detection and suppression over photos, and
// writes out what it found, for tuning the detector settings.
package main

import(
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/edaniels/golog"
	"github.com/urfave/cli/v2"

	"github.com/abworrall/automosaic/pkg/features"
	"github.com/abworrall/automosaic/pkg/mosaic"
)

func main() {
	app := &cli.App{
		Name:      "featuredump",
		Usage:     "plot the corners found in photos",
		ArgsUsage: "photo [photo ...] [config.yaml]",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "dir", Aliases: []string{"o"}, Value: ".", Usage: "write images into `DIR`"},
			&cli.IntFlag{Name: "maxpoints", Usage: "points to keep after suppression"},
			&cli.Float64Flag{Name: "threshold", Usage: "relative corner strength threshold"},
			&cli.BoolFlag{Name: "debug", Usage: "enable debug logging"},
		},
		Action: func(c *cli.Context) error {
			logger := golog.NewDevelopmentLogger("featuredump")
			if c.Bool("debug") {
				logger = golog.NewDebugLogger("featuredump")
			}

			m := mosaic.NewMosaic(logger)
			if err := m.LoadFilesAndDirs(c.Args().Slice()...); err != nil {
				return err
			}
			if c.IsSet("maxpoints") { m.MaxPoints = c.Int("maxpoints") }
			if c.IsSet("threshold") { m.CornerThresholdRel = c.Float64("threshold") }
			if err := m.Config.Validate(); err != nil {
				return err
			}

			dir := c.String("dir")
			if err := os.MkdirAll(dir, 0755); err != nil {
				return err
			}

			for _, p := range m.Photos {
				f, err := mosaic.ExtractFeatures(c.Context, m.Config, p, logger)
				if err != nil {
					return err
				}

				stem := filepath.Join(dir, strings.TrimSuffix(p.Filename(), filepath.Ext(p.Filename())))
				title := fmt.Sprintf("%s: %d corners, %d kept", p.Filename(), len(f.Corners.Points), len(f.Points))
				if err := f.Corners.Strength.ToImg(title, stem+"-strength.png"); err != nil {
					return err
				}
				if err := features.PlotKeypoints(p.Image, f.Points, stem+"-points.png"); err != nil {
					return err
				}
				fmt.Fprintf(c.App.Writer, "%s\n  %s\n  strength %s\n", p, f, f.Corners.Strength.Stats())
			}
			return nil
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}
