// Package session ties a device to the camera system built from its calibration. The calibration
// can be reloaded while the session runs; reloads are serialized against transform calls made
// through the session.
package session

import (
	"context"
	"path/filepath"
	"sync"

	"github.com/benbjohnson/clock"
	"github.com/fsnotify/fsnotify"
	"github.com/pkg/errors"
	"go.uber.org/multierr"
	goutils "go.viam.com/utils"

	"github.com/kinz-go/kinz/calibration"
	"github.com/kinz-go/kinz/config"
	"github.com/kinz-go/kinz/device"
	"github.com/kinz-go/kinz/logging"
	"github.com/kinz-go/kinz/rimage/transform"
)

// A Session owns a device and the camera system for its current calibration.
type Session struct {
	mu     sync.RWMutex
	cfg    *config.Config
	dev    device.Device
	system *transform.DepthColorSystem
	closed bool
	logger logging.Logger

	cancelCtx               context.Context
	cancelFunc              func()
	activeBackgroundWorkers sync.WaitGroup
}

// Open opens the recorded device described by cfg and starts a session on it.
func Open(ctx context.Context, cfg *config.Config, logger logging.Logger) (*Session, error) {
	dev, err := device.NewRecorded(cfg, clock.New(), logger.Sublogger("device"))
	if err != nil {
		return nil, err
	}
	return New(ctx, cfg, dev, logger)
}

// New starts a session on dev, which the session owns from now on: it is closed with the session,
// or right away when New fails.
func New(ctx context.Context, cfg *config.Config, dev device.Device, logger logging.Logger) (sess *Session, err error) {
	defer func() {
		if err != nil {
			err = multierr.Combine(err, dev.Close(ctx))
		}
	}()

	system, err := buildSystem(ctx, cfg, dev)
	if err != nil {
		return nil, err
	}
	cancelCtx, cancelFunc := context.WithCancel(context.Background())
	sess = &Session{
		cfg:        cfg,
		dev:        dev,
		system:     system,
		logger:     logger,
		cancelCtx:  cancelCtx,
		cancelFunc: cancelFunc,
	}
	if cfg.WatchCalibration {
		if err := sess.watchCalibration(); err != nil {
			cancelFunc()
			return nil, err
		}
	}
	logger.Infow("session started", "calibration", cfg.CalibrationFile)
	return sess, nil
}

func buildSystem(ctx context.Context, cfg *config.Config, dev device.Device) (*transform.DepthColorSystem, error) {
	raw, err := dev.RawCalibration(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "reading calibration")
	}
	calib, err := calibration.Load(raw)
	if err != nil {
		return nil, err
	}
	return transform.NewDepthColorSystem(calib, cfg.SystemOptions()...)
}

// CameraSystem returns the camera system for the current calibration. A reload does not change a
// system already returned; use Do to keep the calibration fixed for the duration of a call.
func (s *Session) CameraSystem() transform.CameraSystem {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.system
}

// Do runs f with the current camera system. Reloads wait for f to return.
func (s *Session) Do(f func(transform.CameraSystem) error) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return device.ErrClosed
	}
	return f(s.system)
}

// Reload reads the calibration from the device again and swaps in the camera system built from
// it. On error the previous calibration stays in use.
func (s *Session) Reload(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return device.ErrClosed
	}
	system, err := buildSystem(ctx, s.cfg, s.dev)
	if err != nil {
		return err
	}
	s.system = system
	s.logger.Infow("calibration reloaded", "calibration", s.cfg.CalibrationFile)
	return nil
}

// Capture returns the next capture of the device.
func (s *Session) Capture(ctx context.Context) (*device.Capture, error) {
	return s.dev.Capture(ctx)
}

// watchCalibration reloads the calibration whenever its file is written. The directory is watched
// rather than the file so that editors replacing the file are noticed too.
func (s *Session) watchCalibration() error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	target := filepath.Clean(s.cfg.CalibrationFile)
	if err := watcher.Add(filepath.Dir(target)); err != nil {
		return multierr.Combine(err, watcher.Close())
	}

	s.activeBackgroundWorkers.Add(1)
	goutils.ManagedGo(func() {
		for {
			select {
			case <-s.cancelCtx.Done():
				return
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Clean(event.Name) != target || !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
					continue
				}
				if err := s.Reload(s.cancelCtx); err != nil && !errors.Is(err, device.ErrClosed) {
					s.logger.Errorw("failed to reload calibration", "error", err)
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				s.logger.Warnw("calibration watcher error", "error", err)
			}
		}
	}, func() {
		goutils.UncheckedError(watcher.Close())
		s.activeBackgroundWorkers.Done()
	})
	return nil
}

// Close stops the calibration watcher and closes the device. Closing twice is not an error.
func (s *Session) Close(ctx context.Context) error {
	s.cancelFunc()
	s.activeBackgroundWorkers.Wait()

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	return s.dev.Close(ctx)
}
