package features

import(
	"math"
	"math/rand"

	"github.com/abworrall/automosaic/pkg/emath"
)

// blobScene draws gaussian blobs, centered on whole pixels, over a dim
// background. It gives the detector isolated, well-defined peaks.
func blobScene(w, h, nBlobs int, seed int64) emath.FloatGrid {
	rng := rand.New(rand.NewSource(seed))
	fg := emath.NewFloatGrid(w, h)

	type blob struct{ x, y int; sigma, amp float64 }
	blobs := []blob{}
	for i:=0; i<nBlobs; i++ {
		blobs = append(blobs, blob{rng.Intn(w), rng.Intn(h), 1.5 + rng.Float64()*1.5, 0.3 + rng.Float64()*0.6})
	}

	for y:=0; y<h; y++ {
		for x:=0; x<w; x++ {
			v := 0.1
			for _, b := range blobs {
				dx, dy := float64(x-b.x), float64(y-b.y)
				v += b.amp * math.Exp(-0.5*(dx*dx+dy*dy)/(b.sigma*b.sigma))
			}
			fg.Set(x, y, math.Min(v, 1.0))
		}
	}
	return fg
}

// noiseImage is uniform noise in [0,1).
func noiseImage(w, h int, seed int64) emath.FloatGrid {
	rng := rand.New(rand.NewSource(seed))
	fg := emath.NewFloatGrid(w, h)
	for y:=0; y<h; y++ {
		for x:=0; x<w; x++ {
			fg.Set(x, y, rng.Float64())
		}
	}
	return fg
}
