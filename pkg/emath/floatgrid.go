package emath

import(
	"fmt"
	"image"
	"image/color"
	"math"

	"github.com/fogleman/gg" // Move to https://pkg.go.dev/golang.org/x/image/font#Drawer sometime
	"gonum.org/v1/gonum/floats"
)

// A FloatGrid is a grid of floats, with some operations. Corner
// strength maps, grayscale versions of photos, and descriptor patches
// are all FloatGrids.
type FloatGrid struct {
	stride int
	values []float64
}

// Border says what a grid operation should read when it steps off the
// edge of the grid.
type Border int

const(
	BorderZero    Border = iota // 0 0 0 | a b c d | 0 0 0
	BorderReflect               // c b a | a b c d | d c b
	BorderNearest               // a a a | a b c d | d d d
)

// Channel picks which part of a color ends up in a FloatGrid.
type Channel string

const(
	ChannelLuminance Channel = "luminance"
	ChannelRed       Channel = "red"
	ChannelGreen     Channel = "green"
	ChannelBlue      Channel = "blue"
)

func (c Channel)Valid() bool {
	switch c {
	case ChannelLuminance, ChannelRed, ChannelGreen, ChannelBlue: return true
	}
	return false
}

func NewFloatGrid(w, h int) FloatGrid {
	return FloatGrid{
		stride: w,
		values: make([]float64, w*h),
	}
}

// NewFloatGridFromImage pulls a single channel out of the image, as
// floats in the range [0,1]. The grid is indexed from (0,0), whatever
// the image bounds are. Luminance uses the Rec. 709 weights.
func NewFloatGridFromImage(img image.Image, ch Channel) FloatGrid {
	b := img.Bounds()
	fg := NewFloatGrid(b.Dx(), b.Dy())

	for y:=0; y<b.Dy(); y++ {
		for x:=0; x<b.Dx(); x++ {
			r, g, bl, _ := img.At(x+b.Min.X, y+b.Min.Y).RGBA()
			red, green, blue := float64(r)/0xFFFF, float64(g)/0xFFFF, float64(bl)/0xFFFF

			v := 0.0
			switch ch {
			case ChannelRed:   v = red
			case ChannelGreen: v = green
			case ChannelBlue:  v = blue
			default:           v = 0.2125*red + 0.7154*green + 0.0721*blue
			}
			fg.Set(x, y, v)
		}
	}

	return fg
}

func (g1 *FloatGrid)NewFromThis() FloatGrid  { return NewFloatGrid(g1.Dx(), g1.Dy()) }
func (fg *FloatGrid)Set(x, y int, v float64) { fg.values[fg.stride*y + x] = v }
func (fg *FloatGrid)Get(x, y int) float64    { return fg.values[fg.stride*y + x] }
func (fg *FloatGrid)Dx() int                 { return fg.stride }
func (fg *FloatGrid)Dy() int {
	if fg.stride == 0 { return 0 }
	return len(fg.values) / fg.stride
}
func (fg *FloatGrid)Bounds() image.Rectangle { return image.Rect(0, 0, fg.Dx(), fg.Dy()) }

// Values exposes the row-major backing slice; callers must not resize it.
func (fg *FloatGrid)Values() []float64       { return fg.values }

func (g1 *FloatGrid)Copy() *FloatGrid {
	g2 := FloatGrid{stride: g1.stride, values:make([]float64, len(g1.values))}
	copy(g2.values, g1.values)
	return &g2
}

// GetBorder is Get, but coordinates off the grid are resolved
// according to the border mode.
func (fg *FloatGrid)GetBorder(x, y int, b Border) float64 {
	w, h := fg.Dx(), fg.Dy()
	if x >= 0 && x < w && y >= 0 && y < h {
		return fg.Get(x, y)
	}

	switch b {
	case BorderReflect:
		return fg.Get(reflectIndex(x, w), reflectIndex(y, h))
	case BorderNearest:
		return fg.Get(clampIndex(x, w), clampIndex(y, h))
	default:
		return 0.0
	}
}

func clampIndex(i, n int) int {
	if i < 0  { return 0 }
	if i >= n { return n-1 }
	return i
}

func reflectIndex(i, n int) int {
	if n == 1 { return 0 }
	period := 2*n
	i %= period
	if i < 0  { i += period }
	if i >= n { i = period - i - 1 }
	return i
}

// correlate1D runs the kernel along one axis; the kernel's middle
// element sits over the output pixel.
func (g1 *FloatGrid)correlate1D(kernel []float64, alongX bool, b Border) FloatGrid {
	g2 := g1.NewFromThis()
	half := len(kernel) / 2
	width, height := g1.Dx(), g1.Dy()

	ParallelForEachRow(height, func(y int) {
		for x:=0; x<width; x++ {
			t := 0.0
			for k, wt := range kernel {
				if wt == 0 { continue }
				if alongX {
					t += wt * g1.GetBorder(x+k-half, y, b)
				} else {
					t += wt * g1.GetBorder(x, y+k-half, b)
				}
			}
			g2.Set(x, y, t)
		}
	})

	return g2
}

// GaussianKernel returns a normalized 1D kernel, truncated at 4 sigma.
func GaussianKernel(sigma float64) []float64 {
	radius := int(4.0*sigma + 0.5)
	kernel := make([]float64, 2*radius+1)
	for i := range kernel {
		d := float64(i - radius)
		kernel[i] = math.Exp(-0.5 * d * d / (sigma * sigma))
	}
	floats.Scale(1.0/floats.Sum(kernel), kernel)
	return kernel
}

// GaussianBlur blurs with the same sigma on both axes.
func (g1 FloatGrid)GaussianBlur(sigma float64, b Border) FloatGrid {
	return g1.GaussianBlurXY(sigma, sigma, b)
}

// GaussianBlurXY is a separable blur; a sigma of zero leaves that axis alone.
func (g1 FloatGrid)GaussianBlurXY(sigmaX, sigmaY float64, b Border) FloatGrid {
	T := *g1.Copy()
	if sigmaX > 0 {
		T = T.correlate1D(GaussianKernel(sigmaX), true, b)
	}
	if sigmaY > 0 {
		T = T.correlate1D(GaussianKernel(sigmaY), false, b)
	}
	return T
}

// Sobel returns the horizontal and vertical derivatives, unnormalized
// (a unit ramp gives 8).
func (g1 *FloatGrid)Sobel(b Border) (FloatGrid, FloatGrid) {
	diff   := []float64{-1, 0, 1}
	smooth := []float64{1, 2, 1}

	t := g1.correlate1D(diff, true, b)
	gx := t.correlate1D(smooth, false, b)

	t = g1.correlate1D(diff, false, b)
	gy := t.correlate1D(smooth, true, b)

	return gx, gy
}

// Bilinear samples the grid at a fractional location; the edge pixels
// are repeated for samples outside the grid.
func (fg *FloatGrid)Bilinear(x, y float64) float64 {
	x0, y0 := int(math.Floor(x)), int(math.Floor(y))
	fx, fy := x - float64(x0), y - float64(y0)

	v00 := fg.GetBorder(x0,   y0,   BorderNearest)
	v10 := fg.GetBorder(x0+1, y0,   BorderNearest)
	v01 := fg.GetBorder(x0,   y0+1, BorderNearest)
	v11 := fg.GetBorder(x0+1, y0+1, BorderNearest)

	top := v00*(1-fx) + v10*fx
	bot := v01*(1-fx) + v11*fx
	return top*(1-fy) + bot*fy
}

// Resize does a bilinear resample to w x h, mapping pixel centers onto
// pixel centers. No anti-aliasing; see AntiAliasedResize.
func (g1 *FloatGrid)Resize(w, h int) FloatGrid {
	g2 := NewFloatGrid(w, h)
	sx := float64(g1.Dx()) / float64(w)
	sy := float64(g1.Dy()) / float64(h)

	for y:=0; y<h; y++ {
		for x:=0; x<w; x++ {
			g2.Set(x, y, g1.Bilinear((float64(x)+0.5)*sx - 0.5, (float64(y)+0.5)*sy - 0.5))
		}
	}
	return g2
}

// AntiAliasedResize blurs before shrinking, with sigma = (scale-1)/2
// per axis.
func (g1 *FloatGrid)AntiAliasedResize(w, h int) FloatGrid {
	sigmaX := math.Max(0, (float64(g1.Dx())/float64(w) - 1) / 2)
	sigmaY := math.Max(0, (float64(g1.Dy())/float64(h) - 1) / 2)
	blurred := g1.GaussianBlurXY(sigmaX, sigmaY, BorderReflect)
	return blurred.Resize(w, h)
}

// SubGrid copies out the rectangle r, which may hang off the edges of
// the grid; those pixels are filled in according to the border mode.
func (g1 *FloatGrid)SubGrid(r image.Rectangle, b Border) FloatGrid {
	g2 := NewFloatGrid(r.Dx(), r.Dy())
	for y:=0; y<r.Dy(); y++ {
		for x:=0; x<r.Dx(); x++ {
			g2.Set(x, y, g1.GetBorder(r.Min.X+x, r.Min.Y+y, b))
		}
	}
	return g2
}

// ToGray16 is used to hand a grid to image libraries. Values are
// clamped to [0,1].
func (fg *FloatGrid)ToGray16() *image.Gray16 {
	img := image.NewGray16(fg.Bounds())
	for y:=0; y<fg.Dy(); y++ {
		for x:=0; x<fg.Dx(); x++ {
			v := math.Min(1, math.Max(0, fg.Get(x,y)))
			img.SetGray16(x, y, color.Gray16{uint16(v * 0xFFFF + 0.5)})
		}
	}
	return img
}

// MinMax returns the smallest and largest values in the grid.
func (fg *FloatGrid)MinMax() (float64, float64) {
	if len(fg.values) == 0 { return 0, 0 }
	return floats.Min(fg.values), floats.Max(fg.values)
}

func (fg *FloatGrid)Stats() string {
	min, max := fg.MinMax()
	return fmt.Sprintf("fg[%dx%d, vals{%f,%f}]", fg.Dx(), fg.Dy(), min, max)
}

// ToImg saves a simple grayscale, based on the range of values in the grid, and gamma scaling the
// gray to look normal for human vision
func (fg *FloatGrid)ToImg(title, filename string) error {
	min, max := fg.MinMax()
	span := max - min
	if span == 0 { span = 1 }

	img := image.NewRGBA64(fg.Bounds())
	for x:=0; x<fg.Dx(); x++ {
		for y:=0; y<fg.Dy(); y++ {
			lum := fg.Get(x,y)
			gray := GammaExpand_F64 ((lum - min) / span)
			col := color.RGBA64{uint16(gray * 65535.0), uint16(gray * 65535.0), uint16(gray * 65535.0), 0xFFFF}
			img.Set(x, y, col)
		}
	}

	dc := gg.NewContextForImage(img)
	dc.SetRGB(1,0,0)
	dc.DrawString(title, 10, 20)
	return dc.SavePNG(filename)
}
