// Package calibration holds the factory calibration of a depth camera: the intrinsics and lens
// distortion of the depth and color sensors and the rigid transform between them.
package calibration

import (
	"strings"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// Sensor names one of the two calibrated cameras.
type Sensor int

const (
	// Depth is the depth (and infrared) camera. Its frame is the reference frame of the device.
	Depth Sensor = iota
	// Color is the color camera.
	Color
)

func (s Sensor) String() string {
	switch s {
	case Depth:
		return "depth"
	case Color:
		return "color"
	default:
		return "unknown"
	}
}

// ParseSensor is the inverse of Sensor.String.
func ParseSensor(name string) (Sensor, error) {
	switch strings.ToLower(name) {
	case "depth":
		return Depth, nil
	case "color":
		return Color, nil
	default:
		return Depth, errors.Errorf("unknown sensor %q, expected depth or color", name)
	}
}

// SensorCalibration is the calibration view of a single sensor. Extrinsics take points from the
// depth frame into this sensor's frame, so they are the identity for the depth sensor.
type SensorCalibration struct {
	Intrinsics Intrinsics
	Extrinsics Extrinsics
}

// Size returns the calibrated image size.
func (sc SensorCalibration) Size() (int, int) {
	return sc.Intrinsics.Width, sc.Intrinsics.Height
}

// IntrinsicsMatrix returns the 3x3 camera matrix, or the 3x4 matrix K·[I|0] when extended.
func (sc SensorCalibration) IntrinsicsMatrix(extended bool) *mat.Dense {
	return sc.Intrinsics.CameraMatrix(extended)
}

// DistortionParams returns k1, k2, p1, p2, k3, k4, k5, k6.
func (sc SensorCalibration) DistortionParams() []float64 {
	return sc.Intrinsics.Distortion.Parameters()
}

// RotationMatrix returns the rotation from the depth frame into this sensor's frame.
func (sc SensorCalibration) RotationMatrix() *mat.Dense {
	return sc.Extrinsics.Rotation()
}

// TranslationVector returns the translation in millimeters from the depth frame into this
// sensor's frame as a 3x1 matrix.
func (sc SensorCalibration) TranslationVector() *mat.Dense {
	return sc.Extrinsics.Translation()
}

// CameraPose returns the 4x4 pose [R|T; 0 0 0 1] of the sensor relative to the depth frame.
func (sc SensorCalibration) CameraPose() *mat.Dense {
	return sc.Extrinsics.Pose()
}

func (sc SensorCalibration) clone() SensorCalibration {
	out := sc
	if sc.Intrinsics.Distortion != nil {
		d := *sc.Intrinsics.Distortion
		out.Intrinsics.Distortion = &d
	}
	out.Extrinsics = sc.Extrinsics.clone()
	return out
}

// Calibration is the immutable calibration of a device. Both sensor views and both transform
// directions are derived once when the Calibration is built, and every accessor hands out copies.
type Calibration struct {
	depth        SensorCalibration
	color        SensorCalibration
	depthToColor Extrinsics
	colorToDepth Extrinsics
	raw          []byte
}

// New builds a Calibration from already decoded parameters.
func New(depth, color Intrinsics, depthToColor Extrinsics) (*Calibration, error) {
	if err := depth.CheckValid(); err != nil {
		return nil, errors.Wrap(err, "depth intrinsics")
	}
	if err := color.CheckValid(); err != nil {
		return nil, errors.Wrap(err, "color intrinsics")
	}
	if err := depthToColor.CheckValid(); err != nil {
		return nil, errors.Wrap(err, "depth to color extrinsics")
	}
	d2c := depthToColor.clone()
	c := &Calibration{
		depth: SensorCalibration{Intrinsics: depth, Extrinsics: IdentityExtrinsics()}.clone(),
		color: SensorCalibration{Intrinsics: color, Extrinsics: d2c}.clone(),
	}
	c.depthToColor = d2c
	c.colorToDepth = d2c.Inverse()
	return c, nil
}

func (c *Calibration) sensor(s Sensor) *SensorCalibration {
	if s == Color {
		return &c.color
	}
	return &c.depth
}

// Sensor returns a copy of the calibration view of s.
func (c *Calibration) Sensor(s Sensor) SensorCalibration {
	return c.sensor(s).clone()
}

// Intrinsics returns a copy of the intrinsics of s.
func (c *Calibration) Intrinsics(s Sensor) Intrinsics {
	return c.sensor(s).clone().Intrinsics
}

// Extrinsics returns the transform taking points from the from frame into the to frame. It is the
// identity when from == to.
func (c *Calibration) Extrinsics(from, to Sensor) Extrinsics {
	switch {
	case from == to:
		return IdentityExtrinsics()
	case from == Depth:
		return c.depthToColor.clone()
	default:
		return c.colorToDepth.clone()
	}
}

// RotationMatrix returns the 3x3 rotation from the from frame into the to frame.
func (c *Calibration) RotationMatrix(from, to Sensor) *mat.Dense {
	return c.Extrinsics(from, to).Rotation()
}

// TranslationVector returns the 3x1 translation in millimeters from the from frame into the to
// frame.
func (c *Calibration) TranslationVector(from, to Sensor) *mat.Dense {
	return c.Extrinsics(from, to).Translation()
}

// Raw returns a copy of the blob the calibration was loaded from, or nil when it was built with
// New.
func (c *Calibration) Raw() []byte {
	if c.raw == nil {
		return nil
	}
	return append([]byte{}, c.raw...)
}
