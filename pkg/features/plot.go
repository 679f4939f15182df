package features

import(
	"image"

	"github.com/fogleman/gg"
	"github.com/lucasb-eyer/go-colorful"
)

// PlotKeypoints draws the points over the image, and saves a PNG.
func PlotKeypoints(img image.Image, pts PointSet, outName string) error {
	b := img.Bounds()
	dc := gg.NewContext(b.Dx(), b.Dy())
	dc.DrawImage(img, -b.Min.X, -b.Min.Y)

	dc.SetRGBA(1, 0, 0, 0.7)
	for _, p := range pts {
		dc.DrawCircle(float64(p.X), float64(p.Y), 3.0)
		dc.Fill()
	}
	return dc.SavePNG(outName)
}

// PlotMatches puts the two images side by side, and joins up each
// matched pair with a line. Lines get a hue each, so crossings are
// easier to follow; pairs listed in `highlight` (typically the RANSAC
// inliers) are drawn opaque, the rest faded.
func PlotMatches(img1, img2 image.Image, m *Matches, highlight []int, outName string) error {
	b1, b2 := img1.Bounds(), img2.Bounds()
	h := b1.Dy()
	if b2.Dy() > h { h = b2.Dy() }

	dc := gg.NewContext(b1.Dx()+b2.Dx(), h)
	dc.DrawImage(img1, -b1.Min.X, -b1.Min.Y)
	dc.DrawImage(img2, b1.Dx()-b2.Min.X, -b2.Min.Y)

	strong := map[int]bool{}
	for _, i := range highlight {
		strong[i] = true
	}

	off := float64(b1.Dx())
	dc.SetLineWidth(1.5)
	for i := range m.Pairs {
		p1, p2 := m.Points1[i], m.Points2[i]
		c := colorful.Hsv(float64((i*47) % 360), 0.9, 1.0)
		alpha := 0.35
		if strong[i] { alpha = 1.0 }

		dc.SetRGBA(c.R, c.G, c.B, alpha)
		dc.DrawLine(float64(p1.X), float64(p1.Y), off+float64(p2.X), float64(p2.Y))
		dc.Stroke()
		dc.DrawCircle(float64(p1.X), float64(p1.Y), 2.5)
		dc.DrawCircle(off+float64(p2.X), float64(p2.Y), 2.5)
		dc.Fill()
	}

	return dc.SavePNG(outName)
}
