package calibration

import (
	"bytes"
	"encoding/json"
	"io"
	"os"

	"github.com/pkg/errors"
)

// Camera locations and distortion models as they appear in the factory calibration blob.
const (
	DepthCameraLocation = "CALIBRATION_CameraLocationD0"
	ColorCameraLocation = "CALIBRATION_CameraLocationPV0"

	brownConradyModel = "CALIBRATION_LensDistortionModelBrownConrady"
	rational6KTModel  = "CALIBRATION_LensDistortionModelRational6KT"

	// cx, cy, fx, fy, k1..k6, codx, cody, p2, p1
	modelParameterCount = 14
)

type rawCalibration struct {
	CalibrationInformation struct {
		Cameras []rawCamera `json:"Cameras"`
	} `json:"CalibrationInformation"`
}

type rawCamera struct {
	Intrinsics struct {
		ModelParameterCount int       `json:"ModelParameterCount"`
		ModelParameters     []float64 `json:"ModelParameters"`
		ModelType           string    `json:"ModelType"`
	} `json:"Intrinsics"`
	Location     string  `json:"Location"`
	MetricRadius float64 `json:"MetricRadius"`
	Rt           struct {
		Rotation    []float64 `json:"Rotation"`
		Translation []float64 `json:"Translation"`
	} `json:"Rt"`
	SensorHeight int `json:"SensorHeight"`
	SensorWidth  int `json:"SensorWidth"`
}

// Load decodes a factory calibration blob. Intrinsics in the blob are normalized by the sensor
// size with the origin at the image corner; they are converted to pixels with the origin at the
// center of the top left pixel. Each camera's Rt takes depth frame points, in meters, into that
// camera's frame.
func Load(blob []byte) (*Calibration, error) {
	var raw rawCalibration
	dec := json.NewDecoder(bytes.NewReader(bytes.TrimRight(blob, "\x00")))
	if err := dec.Decode(&raw); err != nil {
		return nil, errors.Wrap(NewCalibrationError("malformed calibration blob"), err.Error())
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return nil, NewCalibrationError("malformed calibration blob: trailing data after the calibration document")
	}

	var depthCam, colorCam *rawCamera
	for i := range raw.CalibrationInformation.Cameras {
		cam := &raw.CalibrationInformation.Cameras[i]
		switch cam.Location {
		case DepthCameraLocation:
			depthCam = cam
		case ColorCameraLocation:
			colorCam = cam
		}
	}
	if depthCam == nil {
		return nil, NewCalibrationError("depth camera missing from calibration")
	}
	if colorCam == nil {
		return nil, NewCalibrationError("color camera missing from calibration")
	}

	depth, depthRt, err := depthCam.decode()
	if err != nil {
		return nil, errors.Wrap(err, "depth camera")
	}
	color, colorRt, err := colorCam.decode()
	if err != nil {
		return nil, errors.Wrap(err, "color camera")
	}

	c, err := New(depth, color, colorRt.Compose(depthRt.Inverse()))
	if err != nil {
		return nil, err
	}
	c.raw = append([]byte{}, blob...)
	return c, nil
}

// LoadFile reads a calibration blob from disk and loads it.
func LoadFile(path string) (*Calibration, error) {
	//nolint:gosec
	blob, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "reading calibration %q", path)
	}
	return Load(blob)
}

func (cam *rawCamera) decode() (Intrinsics, Extrinsics, error) {
	switch cam.Intrinsics.ModelType {
	case brownConradyModel, rational6KTModel:
	default:
		return Intrinsics{}, Extrinsics{}, NewCalibrationErrorf("unsupported distortion model %q", cam.Intrinsics.ModelType)
	}
	params := cam.Intrinsics.ModelParameters
	if len(params) < modelParameterCount {
		return Intrinsics{}, Extrinsics{}, NewCalibrationErrorf(
			"expected at least %d model parameters, got %d", modelParameterCount, len(params))
	}
	if cam.Intrinsics.ModelParameterCount != 0 && cam.Intrinsics.ModelParameterCount < modelParameterCount {
		return Intrinsics{}, Extrinsics{}, NewCalibrationErrorf(
			"model parameter count %d is below %d", cam.Intrinsics.ModelParameterCount, modelParameterCount)
	}
	if cam.SensorWidth <= 0 || cam.SensorHeight <= 0 {
		return Intrinsics{}, Extrinsics{}, NewCalibrationErrorf(
			"invalid sensor size (%d, %d)", cam.SensorWidth, cam.SensorHeight)
	}

	w := float64(cam.SensorWidth)
	h := float64(cam.SensorHeight)
	in := Intrinsics{
		Width:  cam.SensorWidth,
		Height: cam.SensorHeight,
		Ppx:    params[0]*w - 0.5,
		Ppy:    params[1]*h - 0.5,
		Fx:     params[2] * w,
		Fy:     params[3] * h,
		Distortion: &BrownConrady{
			RadialK1:     params[4],
			RadialK2:     params[5],
			RadialK3:     params[6],
			RadialK4:     params[7],
			RadialK5:     params[8],
			RadialK6:     params[9],
			TangentialP2: params[12],
			TangentialP1: params[13],
		},
		MetricRadius: cam.MetricRadius,
	}
	if err := in.CheckValid(); err != nil {
		return Intrinsics{}, Extrinsics{}, err
	}

	if len(cam.Rt.Translation) != 3 {
		return Intrinsics{}, Extrinsics{}, NewCalibrationErrorf("translation needs 3 values, got %d", len(cam.Rt.Translation))
	}
	ex := Extrinsics{
		RotationMatrix: append([]float64{}, cam.Rt.Rotation...),
		TranslationVector: []float64{
			cam.Rt.Translation[0] * 1000,
			cam.Rt.Translation[1] * 1000,
			cam.Rt.Translation[2] * 1000,
		},
	}
	if err := ex.CheckValid(); err != nil {
		return Intrinsics{}, Extrinsics{}, err
	}
	return in, ex, nil
}
