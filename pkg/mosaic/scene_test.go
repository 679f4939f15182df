package mosaic

import(
	"image"
	"image/color"
	"math"
	"math/rand"

	"github.com/abworrall/automosaic/pkg/emath"
)

// rectScene scatters overlapping gray rectangles over a gentle ramp,
// then softens it a little. Rectangle corners make good, distinct
// features.
func rectScene(w, h, nRects int, seed int64) emath.FloatGrid {
	rng := rand.New(rand.NewSource(seed))
	fg := emath.NewFloatGrid(w, h)
	for y:=0; y<h; y++ {
		for x:=0; x<w; x++ {
			fg.Set(x, y, 0.2 + 0.1*float64(x+y)/float64(w+h))
		}
	}

	for i:=0; i<nRects; i++ {
		x0, y0 := rng.Intn(w), rng.Intn(h)
		rw, rh := 6 + rng.Intn(20), 6 + rng.Intn(20)
		v := 0.05 + rng.Float64()*0.9
		for y:=y0; y<y0+rh && y<h; y++ {
			for x:=x0; x<x0+rw && x<w; x++ {
				fg.Set(x, y, v)
			}
		}
	}

	return fg.GaussianBlur(0.8, emath.BorderReflect)
}

// crop cuts a w x h window out of the scene at (ox,oy), adds gaussian
// noise, and returns it as a 16 bit gray photo.
func crop(scene emath.FloatGrid, ox, oy, w, h int, noise float64, seed int64) Photo {
	rng := rand.New(rand.NewSource(seed))
	img := image.NewGray16(image.Rect(0, 0, w, h))
	for y:=0; y<h; y++ {
		for x:=0; x<w; x++ {
			v := scene.Get(ox+x, oy+y) + rng.NormFloat64()*noise
			v = math.Min(1, math.Max(0, v))
			img.SetGray16(x, y, color.Gray16{uint16(v*0xFFFF + 0.5)})
		}
	}
	return Photo{LoadFilename: "synthetic.png", Image: img}
}

func solid(w, h int, c color.RGBA64) *image.RGBA64 {
	img := image.NewRGBA64(image.Rect(0, 0, w, h))
	for y:=0; y<h; y++ {
		for x:=0; x<w; x++ {
			img.SetRGBA64(x, y, c)
		}
	}
	return img
}
