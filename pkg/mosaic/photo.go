package mosaic

import(
	"fmt"
	"image"
	"path/filepath"
	"time"
)

// A Photo holds an image.Image loaded from an input file, with what we
// managed to read from its EXIF.
type Photo struct {
	LoadFilename string
	Camera       string    // EXIF model, if any
	Taken        time.Time // EXIF capture time, if any

	image.Image
}

func (p Photo)String() string {
	str := fmt.Sprintf("%s: %dx%d", p.Filename(), p.Bounds().Dx(), p.Bounds().Dy())
	if p.Camera != "" {
		str += fmt.Sprintf(", %s", p.Camera)
	}
	if !p.Taken.IsZero() {
		str += fmt.Sprintf(", taken %s", p.Taken.Format(time.RFC3339))
	}
	return str
}

func (p Photo)Filename() string {
	return filepath.Base(p.LoadFilename)
}
