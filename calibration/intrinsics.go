package calibration

import (
	"math"

	"github.com/golang/geo/r2"
	"github.com/golang/geo/r3"
	"gonum.org/v1/gonum/mat"
)

// Intrinsics holds the parameters of a sensor's internal optical projection: image size in pixels,
// focal length, principal point and the lens distortion model. Pixel centers sit at integer
// coordinates.
type Intrinsics struct {
	Width        int           `json:"width_px"`
	Height       int           `json:"height_px"`
	Fx           float64       `json:"fx"`
	Fy           float64       `json:"fy"`
	Ppx          float64       `json:"ppx"`
	Ppy          float64       `json:"ppy"`
	Distortion   *BrownConrady `json:"distortion,omitempty"`
	MetricRadius float64       `json:"metric_radius,omitempty"`
}

// CheckValid checks if the fields for Intrinsics have valid inputs.
func (in *Intrinsics) CheckValid() error {
	if in == nil {
		return NewCalibrationError("pointer to Intrinsics is nil")
	}
	if in.Width <= 0 || in.Height <= 0 {
		return NewCalibrationErrorf("invalid size (%d, %d)", in.Width, in.Height)
	}
	if !(in.Fx > 0) || !(in.Fy > 0) || math.IsInf(in.Fx, 0) || math.IsInf(in.Fy, 0) {
		return NewCalibrationErrorf("invalid focal length (%v, %v)", in.Fx, in.Fy)
	}
	if math.IsNaN(in.Ppx) || math.IsNaN(in.Ppy) || math.IsInf(in.Ppx, 0) || math.IsInf(in.Ppy, 0) {
		return NewCalibrationErrorf("invalid principal point (%v, %v)", in.Ppx, in.Ppy)
	}
	if in.MetricRadius < 0 || math.IsNaN(in.MetricRadius) {
		return NewCalibrationErrorf("invalid metric radius %v", in.MetricRadius)
	}
	if in.Distortion != nil {
		return in.Distortion.CheckValid()
	}
	return nil
}

// InBounds reports whether the integer pixel (x, y) lies in [0, Width) x [0, Height).
func (in *Intrinsics) InBounds(x, y int) bool {
	return x >= 0 && y >= 0 && x < in.Width && y < in.Height
}

// withinMetricRadius reports whether the normalized undistorted point is inside the radius for
// which the distortion model was calibrated.
func (in *Intrinsics) withinMetricRadius(xu, yu float64) bool {
	if in.MetricRadius <= 0 {
		return true
	}
	return xu*xu+yu*yu <= in.MetricRadius*in.MetricRadius
}

// PixelToRay returns the normalized undistorted ray (x, y, 1) through the pixel (px, py). The
// boolean is false when undistortion diverges or the ray leaves the metric radius.
func (in *Intrinsics) PixelToRay(px, py float64) (r2.Point, bool) {
	xd := (px - in.Ppx) / in.Fx
	yd := (py - in.Ppy) / in.Fy
	xu, yu, ok := in.Distortion.Undistort(xd, yd)
	if !ok || !in.withinMetricRadius(xu, yu) {
		return r2.Point{}, false
	}
	return r2.Point{X: xu, Y: yu}, true
}

// PixelToPoint transforms a pixel with depth to a 3D point in the sensor frame, in the depth's
// units.
func (in *Intrinsics) PixelToPoint(x, y, z float64) (r3.Vector, bool) {
	ray, ok := in.PixelToRay(x, y)
	if !ok {
		return r3.Vector{}, false
	}
	return r3.Vector{X: ray.X * z, Y: ray.Y * z, Z: z}, true
}

// PointToPixel projects a 3D point in the sensor frame to sub-pixel image coordinates with the
// full distortion model applied. The boolean is false for points at or behind the sensor and for
// points outside the metric radius. Image bounds are not checked.
func (in *Intrinsics) PointToPixel(p r3.Vector) (r2.Point, bool) {
	if !(p.Z > 0) {
		return r2.Point{}, false
	}
	xu := p.X / p.Z
	yu := p.Y / p.Z
	if !in.withinMetricRadius(xu, yu) {
		return r2.Point{}, false
	}
	xd, yd := in.Distortion.Transform(xu, yu)
	return r2.Point{X: xd*in.Fx + in.Ppx, Y: yd*in.Fy + in.Ppy}, true
}

// CameraMatrix creates a new camera matrix and returns it.
// Camera matrix:
// [[fx 0 ppx],
//
//	[0 fy ppy],
//	[0 0  1]]
//
// When extended is true an all-zero fourth column is appended, giving the 3x4 projection
// matrix K·[I|0].
func (in *Intrinsics) CameraMatrix(extended bool) *mat.Dense {
	cols := 3
	if extended {
		cols = 4
	}
	cameraMatrix := mat.NewDense(3, cols, nil)
	cameraMatrix.Set(0, 0, in.Fx)
	cameraMatrix.Set(1, 1, in.Fy)
	cameraMatrix.Set(0, 2, in.Ppx)
	cameraMatrix.Set(1, 2, in.Ppy)
	cameraMatrix.Set(2, 2, 1)
	return cameraMatrix
}
