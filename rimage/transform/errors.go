package transform

import "github.com/pkg/errors"

// ErrInvalidInput is returned, wrapped, when a coordinate or frame handed to an operation does
// not fit the calibration. Such input is rejected before any projection runs.
var ErrInvalidInput = errors.New("invalid input")

// NewInvalidInputError wraps ErrInvalidInput with a description of the offending input.
func NewInvalidInputError(msg string) error {
	return errors.Wrap(ErrInvalidInput, msg)
}

// NewInvalidInputErrorf is NewInvalidInputError with formatting.
func NewInvalidInputErrorf(format string, args ...interface{}) error {
	return errors.Wrapf(ErrInvalidInput, format, args...)
}
