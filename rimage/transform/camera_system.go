// Package transform converts pixels and depth samples between the depth image, the color image and
// 3D space using a device calibration. It generates point clouds and aligns one sensor's image
// into the other's pixel grid.
//
// Every operation is synchronous and only reads the calibration, so a DepthColorSystem may be used
// from many goroutines at once as long as each call gets its own frames.
package transform

import (
	"image"
	"image/color"

	"github.com/golang/geo/r3"

	"github.com/kinz-go/kinz/calibration"
	"github.com/kinz-go/kinz/pointcloud"
	"github.com/kinz-go/kinz/rimage"
)

const (
	// DefaultMinSearchDepth is the nearest depth in millimeters considered when looking for the depth
	// pixel under a color pixel.
	DefaultMinSearchDepth = 250
	// DefaultMaxSearchDepth is the farthest depth in millimeters considered when looking for the depth
	// pixel under a color pixel.
	DefaultMaxSearchDepth = 10000
)

// UnmappedPixel marks a pixel that has no counterpart in the requested space.
var UnmappedPixel = image.Point{X: -1, Y: -1}

// Aligner resamples one sensor's image into the other's pixel grid.
type Aligner interface {
	AlignDepthToColor(depth *rimage.DepthFrame, outWidth, outHeight int) (*rimage.DepthFrame, error)
	AlignColorToDepth(colorFrame *rimage.ColorFrame, depth *rimage.DepthFrame) (*rimage.ColorFrame, error)
}

// Projector turns a depth frame into a dense point cloud, optionally with a color per point.
type Projector interface {
	GeneratePointCloud(depth *rimage.DepthFrame) (*pointcloud.PointCloud, error)
	GenerateColorPointCloud(depth *rimage.DepthFrame, colorFrame *rimage.ColorFrame) (*pointcloud.PointCloud, []color.NRGBA, error)
}

// Mapper converts batches of coordinates between the depth image, the color image and 3D space.
// Results have the length and order of the input.
type Mapper interface {
	ColorToDepthPixels(colorPixels []image.Point, depth *rimage.DepthFrame) ([]image.Point, error)
	DepthToColorPixels(depthPixels []image.Point, depth *rimage.DepthFrame) ([]image.Point, error)
	PixelTo3D(pixels []image.Point, depth *rimage.DepthFrame, sensor, reference calibration.Sensor) ([]pointcloud.Point3D, error)
	ThreeDToPixel(points []pointcloud.Point3D, sensor, reference calibration.Sensor) ([]image.Point, error)
}

// A CameraSystem stores the calibrated depth and color cameras and the transform that relates
// them. Used for image alignment and 2D<->3D projection.
type CameraSystem interface {
	Aligner
	Projector
	Mapper
	Calibration() *calibration.Calibration
}

// DepthColorSystem implements CameraSystem for a depth camera paired with a color camera.
type DepthColorSystem struct {
	calib        *calibration.Calibration
	depth        calibration.Intrinsics
	color        calibration.Intrinsics
	depthToColor calibration.Extrinsics
	colorToDepth calibration.Extrinsics
	depthTable   *calibration.XYTable

	minSearchDepth float64
	maxSearchDepth float64
}

// Option configures a DepthColorSystem.
type Option func(*DepthColorSystem) error

// WithSearchDepthRange sets the depth range in millimeters walked when mapping color pixels to
// depth pixels.
func WithSearchDepthRange(minDepth, maxDepth uint16) Option {
	return func(s *DepthColorSystem) error {
		if minDepth == 0 || maxDepth <= minDepth {
			return NewInvalidInputErrorf("invalid search depth range [%d, %d]", minDepth, maxDepth)
		}
		s.minSearchDepth = float64(minDepth)
		s.maxSearchDepth = float64(maxDepth)
		return nil
	}
}

// NewDepthColorSystem derives everything the transforms need from c once, including the depth
// sensor's ray table.
func NewDepthColorSystem(c *calibration.Calibration, opts ...Option) (*DepthColorSystem, error) {
	if c == nil {
		return nil, calibration.NewCalibrationError("calibration is nil")
	}
	s := &DepthColorSystem{
		calib:          c,
		depth:          c.Intrinsics(calibration.Depth),
		color:          c.Intrinsics(calibration.Color),
		depthToColor:   c.Extrinsics(calibration.Depth, calibration.Color),
		colorToDepth:   c.Extrinsics(calibration.Color, calibration.Depth),
		minSearchDepth: DefaultMinSearchDepth,
		maxSearchDepth: DefaultMaxSearchDepth,
	}
	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}
	s.depthTable = c.XYTable(calibration.Depth)
	return s, nil
}

// Calibration returns the calibration the system was built from.
func (s *DepthColorSystem) Calibration() *calibration.Calibration {
	return s.calib
}

// SearchDepthRange returns the depth range walked when mapping color pixels to depth pixels.
func (s *DepthColorSystem) SearchDepthRange() (uint16, uint16) {
	return uint16(s.minSearchDepth), uint16(s.maxSearchDepth)
}

func (s *DepthColorSystem) intrinsics(sensor calibration.Sensor) *calibration.Intrinsics {
	if sensor == calibration.Color {
		return &s.color
	}
	return &s.depth
}

func (s *DepthColorSystem) extrinsics(from, to calibration.Sensor) *calibration.Extrinsics {
	switch {
	case from == to:
		return nil
	case from == calibration.Depth:
		return &s.depthToColor
	default:
		return &s.colorToDepth
	}
}

// TransformPoint moves p from the from sensor's frame into the to sensor's frame.
func (s *DepthColorSystem) TransformPoint(p r3.Vector, from, to calibration.Sensor) r3.Vector {
	ext := s.extrinsics(from, to)
	if ext == nil {
		return p
	}
	return ext.TransformPoint(p)
}

// TransformPoint3D is TransformPoint for integer points. The invalid point stays invalid, as does
// any point whose transform no longer fits an int16.
func (s *DepthColorSystem) TransformPoint3D(p pointcloud.Point3D, from, to calibration.Sensor) (pointcloud.Point3D, bool) {
	if !p.IsValid() {
		return pointcloud.InvalidPoint, false
	}
	return pointcloud.NewPoint3D(s.TransformPoint(p.Vector(), from, to))
}

func (s *DepthColorSystem) checkDepthFrame(depth *rimage.DepthFrame) error {
	if err := depth.CheckValid(); err != nil {
		return NewInvalidInputError(err.Error())
	}
	if depth.Width != s.depth.Width || depth.Height != s.depth.Height {
		return NewInvalidInputErrorf("depth frame is %dx%d, calibration expects %dx%d",
			depth.Width, depth.Height, s.depth.Width, s.depth.Height)
	}
	return nil
}

func (s *DepthColorSystem) checkColorFrame(colorFrame *rimage.ColorFrame) error {
	if err := colorFrame.CheckValid(); err != nil {
		return NewInvalidInputError(err.Error())
	}
	if colorFrame.Width != s.color.Width || colorFrame.Height != s.color.Height {
		return NewInvalidInputErrorf("color frame is %dx%d, calibration expects %dx%d",
			colorFrame.Width, colorFrame.Height, s.color.Width, s.color.Height)
	}
	return nil
}
