package mosaic

import(
	"os"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/pkg/errors"
	"github.com/rwcarlsen/goexif/exif"
)

// LoadFilesAndDirs loads photos and config files, recursing into
// directories. Photos are kept in the order they are found; the first
// two form the pair to be stitched.
func (m *Mosaic)LoadFilesAndDirs(args ...string) error {
	for _, arg := range args {
		item, err := os.Stat(arg)

		switch {

		case err != nil:
			return errors.Wrapf(err, "load %s", arg)

		case item.IsDir():
			contents, err := os.ReadDir(arg)
			if err != nil {
				return errors.Wrapf(err, "readdir %s", arg)
			}
			for _, content := range contents {
				if err := m.LoadFilesAndDirs(filepath.Join(arg, content.Name())); err != nil {
					return errors.Wrapf(err, "load %s", arg)
				}
			}

		default:
			if err := m.loadFile(arg); err != nil {
				return errors.Wrapf(err, "loadfile %s", arg)
			}
		}
	}

	return nil
}

func (m *Mosaic)loadFile(filename string) error {
	switch strings.ToLower(filepath.Ext(filename)) {

	case ".jpg", ".jpeg", ".png", ".tif", ".tiff", ".bmp", ".gif":
		p, err := LoadPhoto(filename)
		if err != nil {
			return err
		}
		m.AddPhoto(p)
		m.logger.Infow("loaded photo", "photo", p.String())

	case ".yaml", ".yml":
		cfg, err := LoadConfig(filename)
		if err != nil {
			return errors.Wrapf(err, "loading %s as config YAML", filename)
		}
		m.Config = cfg
		m.logger.Infof("loaded base configuration from %s", filename)

	default:
		m.logger.Debugw("skipping file", "filename", filename)
	}

	return nil
}

func LoadConfig(filename string) (Config, error) {
	contents, err := os.ReadFile(filename)
	if err != nil {
		return Config{}, errors.Wrapf(err, "config read %s", filename)
	}

	return newConfigFromYaml(contents)
}

// LoadPhoto decodes an image file, honoring its EXIF orientation. EXIF
// metadata is informational; photos without it load fine.
func LoadPhoto(filename string) (Photo, error) {
	p := Photo{LoadFilename: filename}

	img, err := imaging.Open(filename, imaging.AutoOrientation(true))
	if err != nil {
		return p, errors.Wrapf(err, "decoding '%s'", filename)
	}
	p.Image = img

	readExif(&p)

	return p, nil
}

func readExif(p *Photo) {
	reader, err := os.Open(p.LoadFilename)
	if err != nil {
		return
	}
	defer reader.Close()

	ex, err := exif.Decode(reader)
	if err != nil {
		return
	}

	if tag, err := ex.Get(exif.Model); err == nil {
		if val, err := tag.StringVal(); err == nil {
			p.Camera = strings.TrimSpace(strings.Trim(val, "\x00"))
		}
	}
	if t, err := ex.DateTime(); err == nil {
		p.Taken = t
	}
}
