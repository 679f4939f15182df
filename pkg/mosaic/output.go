package mosaic

import(
	"image"
	"os"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/mdouchement/hdr/codec/rgbe"
	"github.com/pkg/errors"
	"golang.org/x/image/tiff"

	"github.com/abworrall/automosaic/pkg/features"
	"github.com/abworrall/automosaic/pkg/ransac"
)

// Save writes the panorama; the format follows the file extension.
func (p *Panorama)Save(filename string) error {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".hdr":
		return p.WriteToHDR(filename)
	case ".tif", ".tiff":
		return WriteTIFF(p.RGBA64, filename)
	default:
		if err := imaging.Save(p.RGBA64, filename); err != nil {
			return errors.Wrapf(err, "saving '%s'", filename)
		}
		return nil
	}
}

// WriteToHDR outputs a Radiance HDR image, in linear light.
func (p *Panorama)WriteToHDR(filename string) error {
	writer, err := os.Create(filename)
	if err != nil {
		return errors.Wrapf(err, "Panorama.WriteToHDR, open+w '%s'", filename)
	}
	defer writer.Close()

	if err := rgbe.Encode(writer, p); err != nil {
		return errors.Wrapf(err, "Panorama.WriteToHDR, encoding '%s'", filename)
	}
	return nil
}

// WriteTIFF keeps all 16 bits per channel, which the JPEG and PNG
// paths through imaging don't always do.
func WriteTIFF(img image.Image, filename string) error {
	writer, err := os.Create(filename)
	if err != nil {
		return errors.Wrapf(err, "WriteTIFF, open+w '%s'", filename)
	}
	defer writer.Close()

	if err := tiff.Encode(writer, img, &tiff.Options{Compression: tiff.Deflate}); err != nil {
		return errors.Wrapf(err, "WriteTIFF, encoding '%s'", filename)
	}
	return nil
}

// DumpDebug writes out the intermediate results of an alignment into
// dir: strength maps, keypoints, matches, the RANSAC search history,
// and an image of the seam error.
func (m *Mosaic)DumpDebug(dir string) error {
	if m.Alignment == nil {
		return errors.New("debug: photos haven't been aligned")
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return errors.Wrapf(err, "debug: mkdir %s", dir)
	}
	out := func(name string) string { return filepath.Join(dir, name) }

	for i, f := range []*Features{m.Features1, m.Features2} {
		if f == nil {
			continue
		}
		p := m.Photos[i]
		stem := strings.TrimSuffix(p.Filename(), filepath.Ext(p.Filename()))

		if err := f.Corners.Strength.ToImg("harris: "+p.Filename(), out(stem+"-strength.png")); err != nil {
			return errors.Wrap(err, "debug")
		}
		if err := features.PlotKeypoints(p.Image, f.Corners.Points, out(stem+"-corners.png")); err != nil {
			return errors.Wrap(err, "debug")
		}
		if err := features.PlotKeypoints(p.Image, f.Points, out(stem+"-anms.png")); err != nil {
			return errors.Wrap(err, "debug")
		}
	}

	if m.Matches == nil {
		return nil
	}
	var inliers []int
	if m.Result != nil {
		inliers = m.Result.Inliers
	}
	if err := features.PlotMatches(m.Photos[0], m.Photos[1], m.Matches, inliers, out("matches.png")); err != nil {
		return errors.Wrap(err, "debug")
	}

	if m.Result == nil {
		return nil
	}
	if err := ransac.PlotHistory(m.Result, out("ransac-history.png")); err != nil {
		return errors.Wrap(err, "debug")
	}
	if _, _, err := SeamError(m.Photos[0], m.Photos[1], m.Result.Transform, out("seam-diff.png")); err != nil {
		m.logger.Warnw("no seam diff", "error", err)
	}

	m.logger.Infof("debug images written to %s", dir)
	return nil
}
