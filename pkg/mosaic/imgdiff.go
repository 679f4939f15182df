package mosaic

import(
	"fmt"
	"image"
	"math"

	"github.com/pkg/errors"

	"github.com/abworrall/automosaic/pkg/emath"
)

// SeamError compares image 1 against image 2 warped into image 1's
// frame, over the area where they overlap, and returns the mean
// absolute luminance difference (0 is a perfect fit, 1 is as bad as it
// gets) along with the fraction of image 1 that overlaps.
//
// If diffFilename is set, the per-pixel difference is also saved as an
// image, which makes misalignment easy to spot.
func SeamError(img1, img2 image.Image, xform emath.Homography, diffFilename string) (float64, float64, error) {
	b1 := img1.Bounds()
	canvas := image.Rect(0, 0, b1.Dx(), b1.Dy())

	warped, err := warp(img2, xform, canvas)
	if err != nil {
		return 0, 0, err
	}

	g1 := emath.NewFloatGridFromImage(img1, emath.ChannelLuminance)
	g2 := emath.NewFloatGridFromImage(warped, emath.ChannelLuminance)
	diff := emath.NewFloatGrid(canvas.Dx(), canvas.Dy())

	totErr, nErr := 0.0, 0
	for y:=0; y<canvas.Dy(); y++ {
		for x:=0; x<canvas.Dx(); x++ {
			if warped.RGBA64At(x, y).A != 0xFFFF {
				continue
			}
			pixErr := math.Abs(g1.Get(x, y) - g2.Get(x, y))
			diff.Set(x, y, pixErr)
			totErr += pixErr
			nErr++
		}
	}

	if nErr == 0 {
		return 0, 0, errors.New("seam error: the photos don't overlap")
	}

	errMetric := totErr / float64(nErr)
	overlap := float64(nErr) / float64(canvas.Dx()*canvas.Dy())

	if diffFilename != "" {
		title := fmt.Sprintf("%.1f%% overlap; err=%.4f", 100*overlap, errMetric)
		if err := diff.ToImg(title, diffFilename); err != nil {
			return errMetric, overlap, errors.Wrap(err, "seam error")
		}
	}

	return errMetric, overlap, nil
}
