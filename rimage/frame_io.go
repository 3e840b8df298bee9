package rimage

import (
	"bufio"
	"image"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/lmittmann/ppm"
	"github.com/pkg/errors"
	"github.com/xfmoulet/qoi"
	"go.uber.org/multierr"
	"golang.org/x/image/tiff"

	"github.com/kinz-go/kinz/utils"
)

// ReadDepthFrame reads a depth frame stored as a 16-bit grayscale PNG or TIFF, one millimeter per
// gray level.
func ReadDepthFrame(path string) (f *DepthFrame, err error) {
	//nolint:gosec
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() {
		err = multierr.Combine(err, file.Close())
	}()

	var img image.Image
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".png":
		img, err = png.Decode(bufio.NewReader(file))
	case ".tif", ".tiff":
		img, err = tiff.Decode(file)
	default:
		return nil, errors.Errorf("unsupported depth frame format %q", ext)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "decoding depth frame %q", path)
	}
	return DepthFrameFromImage(img)
}

// WriteDepthFrame writes a depth frame as a 16-bit grayscale PNG or TIFF depending on the
// extension of path.
func WriteDepthFrame(path string, f *DepthFrame) error {
	if err := f.CheckValid(); err != nil {
		return err
	}
	var encode func(w io.Writer, img image.Image) error
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".png":
		encode = png.Encode
	case ".tif", ".tiff":
		encode = func(w io.Writer, img image.Image) error {
			return tiff.Encode(w, img, &tiff.Options{Compression: tiff.Deflate})
		}
	default:
		return errors.Errorf("unsupported depth frame format %q", ext)
	}
	img := f.ToGray16()
	return utils.WriteFileAtomic(path, func(w io.Writer) error {
		return encode(w, img)
	})
}

// ReadColorFrame reads any image format known to imaging, plus QOI and PPM, into a BGRA frame.
func ReadColorFrame(path string) (*ColorFrame, error) {
	img, err := imaging.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "reading color frame %q", path)
	}
	return ColorFrameFromImage(img), nil
}

// WriteColorFrame writes a color frame in the format given by the extension of path.
func WriteColorFrame(path string, f *ColorFrame) error {
	if err := f.CheckValid(); err != nil {
		return err
	}
	img := f.ToNRGBA()
	var encode func(w io.Writer) error
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".qoi":
		encode = func(w io.Writer) error { return qoi.Encode(w, img) }
	case ".ppm":
		encode = func(w io.Writer) error { return ppm.Encode(w, img) }
	default:
		format, err := imaging.FormatFromFilename(path)
		if err != nil {
			return errors.Wrapf(err, "unsupported color frame format %q", ext)
		}
		encode = func(w io.Writer) error { return imaging.Encode(w, img, format) }
	}
	return utils.WriteFileAtomic(path, encode)
}
