// Package device defines how frames and the raw calibration are acquired from a depth camera, and
// provides a recorded device that replays frames stored on disk.
//
// A Device owns its resources from the moment it is constructed until Close, which may be called
// any number of times. Captures handed out by a device belong to the caller.
package device

import (
	"context"

	"github.com/pkg/errors"

	"github.com/kinz-go/kinz/rimage"
)

// ErrClosed is returned by operations on a closed device.
var ErrClosed = errors.New("device is closed")

// ErrEndOfStream is returned by Capture once a recorded device has no frames left.
var ErrEndOfStream = errors.New("end of stream")

// Capture is one set of frames taken together. Color is nil for depth only devices.
type Capture struct {
	Depth *rimage.DepthFrame
	Color *rimage.ColorFrame
}

// A Device produces captures and the calibration blob that describes its sensors.
type Device interface {
	// RawCalibration returns the device's calibration blob, as read now.
	RawCalibration(ctx context.Context) ([]byte, error)
	// Capture returns the next capture.
	Capture(ctx context.Context) (*Capture, error)
	// Close releases the device. Closing twice is not an error.
	Close(ctx context.Context) error
}
