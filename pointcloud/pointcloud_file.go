package pointcloud

import (
	"encoding/binary"
	"fmt"
	"image/color"
	"io"
	"math"
	"path/filepath"
	"strings"

	"github.com/edaniels/lidario"
	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"go.uber.org/multierr"
	goutils "go.viam.com/utils"

	"github.com/kinz-go/kinz/utils"
)

// ErrExport is returned, wrapped, when a cloud cannot be written. No partial file is left behind.
var ErrExport = errors.New("point cloud export failed")

// NewExportError wraps ErrExport with the path being written and the cause.
func NewExportError(path string, cause error) error {
	return errors.Wrapf(ErrExport, "writing %q: %v", path, cause)
}

// PCDType selects the DATA section encoding of a PCD file.
type PCDType int

// PCD data encodings. Only ascii and binary can be written.
const (
	PCDAscii PCDType = iota
	PCDBinary
	PCDCompressed
)

// Export writes the valid points of cloud to path, one record per point, skipping invalid points.
// colors is optional; when given it must hold one entry per grid position of the cloud. The format
// follows the extension:
//
//	.xyz, .txt  "x y z" or "x y z r g b" lines in millimeters
//	.ply        ASCII PLY
//	.pcd        ASCII PCD in meters
//	.las        LAS 1.2 via lidario
func Export(cloud *PointCloud, colors []color.NRGBA, path string) error {
	if colors != nil && len(colors) != cloud.Len() {
		return NewExportError(path, errors.Errorf("got %d colors for a cloud of %d points", len(colors), cloud.Len()))
	}
	var err error
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".xyz", ".txt":
		err = utils.WriteFileAtomic(path, func(w io.Writer) error {
			return WriteXYZ(cloud, colors, w)
		})
	case ".ply":
		err = utils.WriteFileAtomic(path, func(w io.Writer) error {
			return WritePLY(cloud, colors, w)
		})
	case ".pcd":
		err = utils.WriteFileAtomic(path, func(w io.Writer) error {
			return ToPCD(cloud, colors, w, PCDAscii)
		})
	case ".las":
		err = utils.RenameIntoPlace(path, func(tmpPath string) error {
			return WriteToLASFile(cloud, colors, tmpPath)
		})
	default:
		err = errors.Errorf("unsupported point cloud format %q", ext)
	}
	if err != nil {
		return NewExportError(path, err)
	}
	return nil
}

// WriteXYZ writes one "x y z" line per valid point, or "x y z r g b" when colors is set.
func WriteXYZ(cloud *PointCloud, colors []color.NRGBA, out io.Writer) error {
	var err error
	cloud.Iterate(func(i int, p Point3D) bool {
		if colors != nil {
			c := colors[i]
			_, err = fmt.Fprintf(out, "%d %d %d %d %d %d\n", p.X, p.Y, p.Z, c.R, c.G, c.B)
		} else {
			_, err = fmt.Fprintf(out, "%d %d %d\n", p.X, p.Y, p.Z)
		}
		return err == nil
	})
	return err
}

// WritePLY writes the valid points as an ASCII PLY file.
func WritePLY(cloud *PointCloud, colors []color.NRGBA, out io.Writer) error {
	header := "ply\n" +
		"format ascii 1.0\n" +
		"comment units mm\n" +
		fmt.Sprintf("element vertex %d\n", cloud.Size()) +
		"property short x\n" +
		"property short y\n" +
		"property short z\n"
	if colors != nil {
		header += "property uchar red\n" +
			"property uchar green\n" +
			"property uchar blue\n"
	}
	header += "end_header\n"
	if _, err := io.WriteString(out, header); err != nil {
		return err
	}
	return WriteXYZ(cloud, colors, out)
}

// packRGB packs a color the way PCD stores rgb in a single integer field.
func packRGB(c color.NRGBA) uint32 {
	return uint32(c.R)<<16 | uint32(c.G)<<8 | uint32(c.B)
}

// ToPCD writes the valid points as a PCD file. PCD coordinates are in meters.
func ToPCD(cloud *PointCloud, colors []color.NRGBA, out io.Writer, outputType PCDType) error {
	var data string
	switch outputType {
	case PCDAscii:
		data = "ascii"
	case PCDBinary:
		data = "binary"
	case PCDCompressed:
		return errors.New("compressed PCD is not supported")
	default:
		return errors.Errorf("unknown PCD type %d", outputType)
	}

	fields, sizes, types, counts := "x y z", "4 4 4", "F F F", "1 1 1"
	if colors != nil {
		fields, sizes, types, counts = fields+" rgb", sizes+" 4", types+" I", counts+" 1"
	}
	n := cloud.Size()
	header := fmt.Sprintf("VERSION .7\nFIELDS %s\nSIZE %s\nTYPE %s\nCOUNT %s\nWIDTH %d\nHEIGHT 1\n"+
		"VIEWPOINT 0 0 0 1 0 0 0\nPOINTS %d\nDATA %s\n", fields, sizes, types, counts, n, n, data)
	if _, err := io.WriteString(out, header); err != nil {
		return err
	}

	record := make([]byte, 0, 16)
	var err error
	cloud.Iterate(func(i int, p Point3D) bool {
		x, y, z := float32(p.X)/1000, float32(p.Y)/1000, float32(p.Z)/1000
		if outputType == PCDAscii {
			if colors != nil {
				_, err = fmt.Fprintf(out, "%f %f %f %d\n", x, y, z, packRGB(colors[i]))
			} else {
				_, err = fmt.Fprintf(out, "%f %f %f\n", x, y, z)
			}
			return err == nil
		}
		record = binary.LittleEndian.AppendUint32(record[:0], math.Float32bits(x))
		record = binary.LittleEndian.AppendUint32(record, math.Float32bits(y))
		record = binary.LittleEndian.AppendUint32(record, math.Float32bits(z))
		if colors != nil {
			record = binary.LittleEndian.AppendUint32(record, packRGB(colors[i]))
		}
		_, err = out.Write(record)
		return err == nil
	})
	return err
}

// WriteToLASFile writes the valid points to a LAS file in millimeters, as point format 2 when
// colors are given and format 0 otherwise.
func WriteToLASFile(cloud *PointCloud, colors []color.NRGBA, fn string) (err error) {
	lf, err := lidario.NewLasFile(fn, "w")
	if err != nil {
		return err
	}
	defer func() {
		err = multierr.Combine(err, lf.Close())
	}()

	var format byte
	if colors != nil {
		format = 2
	}
	if err := lf.AddHeader(lidario.LasHeader{PointFormatID: format}); err != nil {
		return err
	}

	// return number 1 of 1
	const singleReturn = 1 | 1<<3
	cloud.Iterate(func(i int, p Point3D) bool {
		base := &lidario.PointRecord0{
			X:             float64(p.X),
			Y:             float64(p.Y),
			Z:             float64(p.Z),
			BitField:      lidario.PointBitField{Value: singleReturn},
			PointSourceID: 1,
		}
		var record lidario.LasPointer = base
		if colors != nil {
			c := colors[i]
			record = &lidario.PointRecord2{
				PointRecord0: base,
				RGB:          &lidario.RgbData{Red: uint16(c.R) << 8, Green: uint16(c.G) << 8, Blue: uint16(c.B) << 8},
			}
		}
		err = lf.AddLasPoint(record)
		return err == nil
	})
	return err
}

// ReadLASFile reads the points, and colors when present, of a LAS file.
func ReadLASFile(fn string) ([]r3.Vector, []color.NRGBA, error) {
	lf, err := lidario.NewLasFile(fn, "r")
	if err != nil {
		return nil, nil, err
	}
	defer goutils.UncheckedErrorFunc(lf.Close)

	points := make([]r3.Vector, 0, lf.Header.NumberPoints)
	var colors []color.NRGBA
	for i := 0; i < lf.Header.NumberPoints; i++ {
		p, err := lf.LasPoint(i)
		if err != nil {
			return nil, nil, err
		}
		pd := p.PointData()
		points = append(points, r3.Vector{X: pd.X, Y: pd.Y, Z: pd.Z})
		if rgb := p.RgbData(); lf.Header.PointFormatID == 2 && rgb != nil {
			colors = append(colors, color.NRGBA{R: uint8(rgb.Red >> 8), G: uint8(rgb.Green >> 8), B: uint8(rgb.Blue >> 8), A: 255})
		}
	}
	return points, colors, nil
}
