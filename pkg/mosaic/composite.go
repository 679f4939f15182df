package mosaic

import(
	"image"
	"image/color"
	"math"

	"github.com/golang/geo/r2"
	"github.com/pkg/errors"
	"golang.org/x/image/draw"
	"golang.org/x/image/math/f64"

	"github.com/abworrall/automosaic/pkg/emath"
)

// affineEps is how small the perspective terms need to be before we
// treat a homography as affine, and let x/image/draw do the warp.
const affineEps = 1e-9

// Composite places both photos on one canvas, in image 1's frame. The
// canvas is as tall as image 1, and wide enough for both photos side by
// side. xform maps image 1 coords to image 2 coords, so it also says
// where to pull each canvas pixel from in image 2.
//
// Image 1 and the warped image 2 are feathered across the seamWidth
// columns that end at image 1's right edge, with image 2's weight
// ramping linearly from 0 to 1. Without feathering, image 1 is pasted
// over the warped image 2.
func Composite(img1, img2 image.Image, xform emath.Homography, seamWidth int, feather bool) (*image.RGBA64, error) {
	if !xform.IsFinite() {
		return nil, errors.Errorf("composite: transform isn't finite\n%s", xform)
	}
	if seamWidth < 0 {
		return nil, errors.Errorf("composite: negative seam width %d", seamWidth)
	}

	b1 := img1.Bounds()
	w1, h1 := b1.Dx(), b1.Dy()
	canvas := image.Rect(0, 0, w1 + img2.Bounds().Dx(), h1)

	warped, err := warp(img2, xform, canvas)
	if err != nil {
		return nil, err
	}

	seamStart := w1 - seamWidth
	if seamStart < 0 { seamStart = 0 }

	out := image.NewRGBA64(canvas)
	emath.ParallelForEachRow(h1, func(y int) {
		for x:=0; x<canvas.Dx(); x++ {
			c2 := warped.RGBA64At(x, y)
			has2 := c2.A > 0

			if x >= w1 {
				if has2 {
					out.SetRGBA64(x, y, unpremultiply(c2))
				}
				continue
			}

			r, g, b, _ := img1.At(b1.Min.X + x, b1.Min.Y + y).RGBA()
			c1 := color.RGBA64{uint16(r), uint16(g), uint16(b), 0xFFFF}

			if !feather || !has2 || x < seamStart {
				out.SetRGBA64(x, y, c1)
				continue
			}

			out.SetRGBA64(x, y, blend(c1, unpremultiply(c2), seamAlpha(x - seamStart, w1 - seamStart)))
		}
	})

	return out, nil
}

// seamAlpha is image 2's weight in column i of an n column seam; it
// runs from 0 at the first column to 1 at the last.
func seamAlpha(i, n int) float64 {
	if n <= 1 {
		return 1
	}
	return float64(i) / float64(n-1)
}

func blend(c1, c2 color.RGBA64, alpha float64) color.RGBA64 {
	mix := func(a, b uint16) uint16 {
		return uint16(math.Round((1-alpha)*float64(a) + alpha*float64(b)))
	}
	return color.RGBA64{mix(c1.R, c2.R), mix(c1.G, c2.G), mix(c1.B, c2.B), 0xFFFF}
}

// unpremultiply turns a partially covered pixel (from the edge of a
// warp) into an opaque one of the same color.
func unpremultiply(c color.RGBA64) color.RGBA64 {
	if c.A == 0xFFFF || c.A == 0 {
		return c
	}
	a := float64(c.A)
	f := func(v uint16) uint16 { return uint16(math.Min(0xFFFF, math.Round(float64(v) * 0xFFFF / a))) }
	return color.RGBA64{f(c.R), f(c.G), f(c.B), 0xFFFF}
}

// warp resamples img into canvas coords, leaving uncovered pixels fully
// transparent.
func warp(img image.Image, xform emath.Homography, canvas image.Rectangle) (*image.RGBA64, error) {
	out := image.NewRGBA64(canvas)

	if xform.IsAffine(affineEps) {
		inv, err := xform.Inverse()
		if err != nil {
			return nil, errors.Wrap(err, "composite")
		}
		// Our transforms map pixel indices; draw maps pixel centers.
		s2d := emath.Identity().Translate(0.5, 0.5).Mult(inv.ToAff3()).Translate(-0.5, -0.5)
		src := asRGBA64(img)
		draw.CatmullRom.Transform(out, f64.Aff3(s2d), src, src.Bounds(), draw.Src, nil)
		return out, nil
	}

	warpProjective(out, img, xform)
	return out, nil
}

// asRGBA64 gives draw a source it can read into an RGBA64 canvas; it
// only handles sources that implement image.RGBA64Image, and a Photo
// hides that behind its embedded image.Image.
func asRGBA64(img image.Image) image.RGBA64Image {
	if p, ok := img.(Photo); ok {
		img = p.Image
	}
	if rgba, ok := img.(image.RGBA64Image); ok {
		return rgba
	}
	out := image.NewRGBA64(img.Bounds())
	draw.Draw(out, out.Bounds(), img, img.Bounds().Min, draw.Src)
	return out
}

// warpProjective pulls every canvas pixel from img through xform, with
// bilinear interpolation.
func warpProjective(out *image.RGBA64, img image.Image, xform emath.Homography) {
	b := img.Bounds()
	w, h := float64(b.Dx()), float64(b.Dy())

	emath.ParallelForEachRow(out.Bounds().Dy(), func(y int) {
		for x:=0; x<out.Bounds().Dx(); x++ {
			p := xform.Apply(r2.Point{X: float64(x), Y: float64(y)})
			if !(p.X > -0.5 && p.Y > -0.5 && p.X < w-0.5 && p.Y < h-0.5) {
				continue
			}
			out.SetRGBA64(x, y, bilinearAt(img, p))
		}
	})
}

func bilinearAt(img image.Image, p r2.Point) color.RGBA64 {
	b := img.Bounds()
	x0, y0 := int(math.Floor(p.X)), int(math.Floor(p.Y))
	fx, fy := p.X - float64(x0), p.Y - float64(y0)

	clampX := func(x int) int { return b.Min.X + int(math.Min(math.Max(float64(x), 0), float64(b.Dx()-1))) }
	clampY := func(y int) int { return b.Min.Y + int(math.Min(math.Max(float64(y), 0), float64(b.Dy()-1))) }

	sum := [3]float64{}
	for _, s := range []struct{ dx, dy int; w float64 }{
		{0, 0, (1-fx)*(1-fy)},
		{1, 0, fx*(1-fy)},
		{0, 1, (1-fx)*fy},
		{1, 1, fx*fy},
	} {
		if s.w == 0 {
			continue
		}
		r, g, bl, _ := img.At(clampX(x0+s.dx), clampY(y0+s.dy)).RGBA()
		sum[0] += s.w * float64(r)
		sum[1] += s.w * float64(g)
		sum[2] += s.w * float64(bl)
	}

	c := func(v float64) uint16 { return uint16(math.Min(0xFFFF, math.Round(v))) }
	return color.RGBA64{c(sum[0]), c(sum[1]), c(sum[2]), 0xFFFF}
}
