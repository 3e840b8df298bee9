package transform

import (
	"image"
	"math"

	"github.com/golang/geo/r2"
	"github.com/golang/geo/r3"

	"github.com/kinz-go/kinz/calibration"
	"github.com/kinz-go/kinz/pointcloud"
)

// Unproject back-projects a pixel with a depth in millimeters to a point in the sensor's frame. The
// invalid point is returned for zero depth, for pixels outside the image, when undistortion fails
// or when the pixel lies past the metric radius.
func (s *DepthColorSystem) Unproject(pixel image.Point, depth uint16, sensor calibration.Sensor) (pointcloud.Point3D, bool) {
	in := s.intrinsics(sensor)
	if depth == 0 || !in.InBounds(pixel.X, pixel.Y) {
		return pointcloud.InvalidPoint, false
	}
	v, ok := in.PixelToPoint(float64(pixel.X), float64(pixel.Y), float64(depth))
	if !ok {
		return pointcloud.InvalidPoint, false
	}
	return pointcloud.NewPoint3D(v)
}

// UnprojectFloat is Unproject for sub-pixel coordinates and fractional depths. Image bounds are
// not checked.
func (s *DepthColorSystem) UnprojectFloat(x, y, depth float64, sensor calibration.Sensor) (r3.Vector, bool) {
	if !(depth > 0) {
		return r3.Vector{}, false
	}
	return s.intrinsics(sensor).PixelToPoint(x, y, depth)
}

// Project forward-projects a point in the sensor's frame to the nearest pixel. UnmappedPixel is
// returned for points at or behind the sensor, points past the metric radius and pixels outside
// the image.
func (s *DepthColorSystem) Project(p r3.Vector, sensor calibration.Sensor) (image.Point, bool) {
	in := s.intrinsics(sensor)
	px, ok := in.PointToPixel(p)
	if !ok {
		return UnmappedPixel, false
	}
	pt := roundPixel(px)
	if !in.InBounds(pt.X, pt.Y) {
		return UnmappedPixel, false
	}
	return pt, true
}

// ProjectFloat is Project without rounding or the image bounds check.
func (s *DepthColorSystem) ProjectFloat(p r3.Vector, sensor calibration.Sensor) (r2.Point, bool) {
	return s.intrinsics(sensor).PointToPixel(p)
}

func roundPixel(px r2.Point) image.Point {
	x, y := math.Round(px.X), math.Round(px.Y)
	// keeps the int conversion defined for far out of bounds projections
	if math.Abs(x) > math.MaxInt32 || math.Abs(y) > math.MaxInt32 {
		return UnmappedPixel
	}
	return image.Point{X: int(x), Y: int(y)}
}
