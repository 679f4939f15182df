package mosaic

import(
	"context"
	"fmt"
	"image"
	"image/color"

	"github.com/edaniels/golog"
	"github.com/lucasb-eyer/go-colorful"
	"github.com/mdouchement/hdr/hdrcolor"
	"github.com/pkg/errors"

	"github.com/abworrall/automosaic/pkg/ransac"
)

// Mosaic holds the input photos, and stitches the first two together.
type Mosaic struct {
	Photos    []Photo
	Config

	*Alignment           // Set by Align
	Panorama  *Panorama  // Set by Compose

	logger    golog.Logger
}

func NewMosaic(logger golog.Logger) *Mosaic {
	return &Mosaic{
		Photos: []Photo{},
		Config: NewConfig(),
		logger: logger,
	}
}

func (m *Mosaic)String() string {
	str := "Mosaic [\n"
	for _, p := range m.Photos {
		str += fmt.Sprintf("  %s\n", p)
	}
	return str + "]\n"
}

func (m *Mosaic)AddPhoto(p Photo) {
	m.Photos = append(m.Photos, p)
}

// Align finds the homography between the first two photos. The
// operator gets to review it, and can send the search back for more
// trials.
func (m *Mosaic)Align(ctx context.Context, op ransac.Operator) error {
	if len(m.Photos) < 2 {
		return errors.Errorf("need two photos to stitch, have %d", len(m.Photos))
	}
	if len(m.Photos) > 2 {
		m.logger.Warnf("only stitching the first two of %d photos", len(m.Photos))
	}

	a, err := Stitch(ctx, m.Config, m.Photos[0], m.Photos[1], op, m.logger)
	m.Alignment = a
	return err
}

// Compose warps and blends the photos into the final panorama.
func (m *Mosaic)Compose() error {
	if m.Alignment == nil || m.Result == nil {
		return errors.New("compose: photos haven't been aligned")
	}

	img, err := Composite(m.Photos[0], m.Photos[1], m.Result.Transform, m.SeamWidth, m.Feather)
	if err != nil {
		return err
	}
	m.Panorama = &Panorama{RGBA64: img}

	if seamErr, overlap, err := SeamError(m.Photos[0], m.Photos[1], m.Result.Transform, ""); err != nil {
		m.logger.Warnw("can't measure seam", "error", err)
	} else {
		m.logger.Infow("composited", "bounds", img.Bounds(), "seamError", seamErr, "overlap", overlap)
	}

	return nil
}

// Panorama is the stitched output. It implements hdr.Image, so it can
// be written out as Radiance HDR as well as the usual formats; the HDR
// values are the pixels converted back to linear light.
type Panorama struct {
	*image.RGBA64
}

func (p Panorama)ColorModel() color.Model { return hdrcolor.RGBModel }

func (p Panorama)HDRAt(x, y int) hdrcolor.Color {
	c, _ := colorful.MakeColor(p.RGBA64At(x, y))
	r, g, b := c.LinearRgb()
	return hdrcolor.RGB{R: r, G: g, B: b}
}

func (p Panorama)Size() int { return p.Bounds().Dx() * p.Bounds().Dy() }
