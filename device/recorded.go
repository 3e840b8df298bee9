package device

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/pkg/errors"

	"github.com/kinz-go/kinz/config"
	"github.com/kinz-go/kinz/logging"
	"github.com/kinz-go/kinz/rimage"
)

var depthFrameExtensions = map[string]bool{".png": true, ".tif": true, ".tiff": true}

// Recorded replays depth and color frames stored as image files, paired by the sorted order of
// their names. The calibration blob is read from its file on every call, so edits to the file are
// seen by the next reload.
type Recorded struct {
	mu              sync.Mutex
	calibrationFile string
	depthFiles      []string
	colorFiles      []string
	period          time.Duration
	clk             clock.Clock
	start           time.Time
	next            int
	closed          bool
	logger          logging.Logger
}

// NewRecorded opens the recorded device described by cfg. Timestamps are taken from clk.
func NewRecorded(cfg *config.Config, clk clock.Clock, logger logging.Logger) (*Recorded, error) {
	if cfg.Device.DepthDir == "" {
		return nil, errors.New("recorded device needs a depth frame directory")
	}
	depthFiles, err := listFrames(cfg.Device.DepthDir, func(ext string) bool { return depthFrameExtensions[ext] })
	if err != nil {
		return nil, err
	}
	if len(depthFiles) == 0 {
		return nil, errors.Errorf("no depth frames in %q", cfg.Device.DepthDir)
	}
	var colorFiles []string
	if cfg.Device.ColorDir != "" {
		colorFiles, err = listFrames(cfg.Device.ColorDir, func(string) bool { return true })
		if err != nil {
			return nil, err
		}
		if len(colorFiles) != len(depthFiles) {
			return nil, errors.Errorf("%d depth frames but %d color frames", len(depthFiles), len(colorFiles))
		}
	}
	var period time.Duration
	if cfg.Device.FPS > 0 {
		period = time.Duration(float64(time.Second) / cfg.Device.FPS)
	}
	logger.Debugw("opened recorded device", "frames", len(depthFiles), "color", len(colorFiles) > 0)
	return &Recorded{
		calibrationFile: cfg.CalibrationFile,
		depthFiles:      depthFiles,
		colorFiles:      colorFiles,
		period:          period,
		clk:             clk,
		start:           clk.Now(),
		logger:          logger,
	}, nil
}

func listFrames(dir string, keep func(ext string) bool) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var files []string
	for _, e := range entries {
		if e.IsDir() || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		if keep(strings.ToLower(filepath.Ext(e.Name()))) {
			files = append(files, filepath.Join(dir, e.Name()))
		}
	}
	return files, nil
}

// Len returns the number of recorded captures.
func (r *Recorded) Len() int {
	return len(r.depthFiles)
}

// RawCalibration reads the calibration file.
func (r *Recorded) RawCalibration(ctx context.Context) ([]byte, error) {
	r.mu.Lock()
	closed := r.closed
	r.mu.Unlock()
	if closed {
		return nil, ErrClosed
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return os.ReadFile(r.calibrationFile)
}

// Capture reads the next recorded capture. The device timestamp advances by one frame period per
// capture when a frame rate is configured, otherwise it is the time since the device was opened.
func (r *Recorded) Capture(ctx context.Context) (*Capture, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil, ErrClosed
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if r.next >= len(r.depthFiles) {
		return nil, ErrEndOfStream
	}

	ts := rimage.Timestamps{SystemTimestamp: r.clk.Now()}
	if r.period > 0 {
		ts.DeviceTimestamp = time.Duration(r.next) * r.period
	} else {
		ts.DeviceTimestamp = ts.SystemTimestamp.Sub(r.start)
	}

	depth, err := rimage.ReadDepthFrame(r.depthFiles[r.next])
	if err != nil {
		return nil, err
	}
	depth.Timestamps = ts
	capture := &Capture{Depth: depth}
	if r.colorFiles != nil {
		colorFrame, err := rimage.ReadColorFrame(r.colorFiles[r.next])
		if err != nil {
			return nil, err
		}
		colorFrame.Timestamps = ts
		capture.Color = colorFrame
	}
	r.next++
	return capture, nil
}

// Close closes the device.
func (r *Recorded) Close(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.closed {
		r.logger.Debugw("closed recorded device", "captures", r.next)
	}
	r.closed = true
	return nil
}
