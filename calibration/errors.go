package calibration

import "github.com/pkg/errors"

// ErrInvalidCalibration is returned, wrapped with details, whenever calibration data is malformed
// or incomplete. Sessions cannot continue without a valid calibration.
var ErrInvalidCalibration = errors.New("invalid calibration")

// NewCalibrationError wraps ErrInvalidCalibration with a description of what is wrong.
func NewCalibrationError(msg string) error {
	return errors.Wrap(ErrInvalidCalibration, msg)
}

// NewCalibrationErrorf is NewCalibrationError with formatting.
func NewCalibrationErrorf(format string, args ...interface{}) error {
	return errors.Wrapf(ErrInvalidCalibration, format, args...)
}
