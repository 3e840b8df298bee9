package cli

import (
	"fmt"
	"image"
	"io"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"

	"github.com/kinz-go/kinz/calibration"
	"github.com/kinz-go/kinz/config"
	"github.com/kinz-go/kinz/logging"
	"github.com/kinz-go/kinz/pointcloud"
	"github.com/kinz-go/kinz/rimage/transform"
)

// printf prints a message with no prefix.
func printf(w io.Writer, format string, a ...interface{}) {
	//nolint:errcheck // no need to check for error on printing
	fmt.Fprintf(w, format+"\n", a...)
}

// warningf prints a message prefixed with a bold yellow "Warning: ".
func warningf(w io.Writer, format string, a ...interface{}) {
	//nolint:errcheck
	fmt.Fprintf(w, "\x1b[1;33mWarning:\x1b[0m "+format+"\n", a...)
}

// loadConfig reads the --config file if one is given. The --calibration flag overrides the
// calibration the config names, and is all that is needed without a config file.
func loadConfig(c *cli.Context) (*config.Config, error) {
	cfg := &config.Config{}
	if path := c.String(configFlag); path != "" {
		var err error
		if cfg, err = config.Read(path); err != nil {
			return nil, err
		}
	}
	if calib := c.String(calibrationFlag); calib != "" {
		cfg.CalibrationFile = calib
	}
	if err := cfg.Validate("config"); err != nil {
		return nil, err
	}
	return cfg, nil
}

func newLogger(c *cli.Context, cfg *config.Config) logging.Logger {
	logger := cfg.NewLogger("kinz", c.App.ErrWriter)
	if c.Bool(debugFlag) {
		logger.SetLevel(logging.DEBUG)
	}
	return logger
}

func loadSystem(cfg *config.Config) (*transform.DepthColorSystem, error) {
	calib, err := calibration.LoadFile(cfg.CalibrationFile)
	if err != nil {
		return nil, err
	}
	return transform.NewDepthColorSystem(calib, cfg.SystemOptions()...)
}

func parseInts(s string, n int, bitSize int) ([]int64, error) {
	fields := strings.Split(s, ",")
	if len(fields) != n {
		return nil, errors.Errorf("expected %d comma separated values, got %q", n, s)
	}
	vals := make([]int64, n)
	for i, f := range fields {
		v, err := strconv.ParseInt(strings.TrimSpace(f), 10, bitSize)
		if err != nil {
			return nil, errors.Wrapf(err, "parsing %q", s)
		}
		vals[i] = v
	}
	return vals, nil
}

func parsePixels(in []string) ([]image.Point, error) {
	pixels := make([]image.Point, 0, len(in))
	for _, s := range in {
		vals, err := parseInts(s, 2, 0)
		if err != nil {
			return nil, err
		}
		pixels = append(pixels, image.Pt(int(vals[0]), int(vals[1])))
	}
	return pixels, nil
}

func parsePoints(in []string) ([]pointcloud.Point3D, error) {
	points := make([]pointcloud.Point3D, 0, len(in))
	for _, s := range in {
		vals, err := parseInts(s, 3, 16)
		if err != nil {
			return nil, err
		}
		points = append(points, pointcloud.Point3D{X: int16(vals[0]), Y: int16(vals[1]), Z: int16(vals[2])})
	}
	return points, nil
}

func formatPixel(p image.Point) string {
	if p == transform.UnmappedPixel {
		return "unmapped"
	}
	return fmt.Sprintf("%d,%d", p.X, p.Y)
}

func formatPoint(p pointcloud.Point3D) string {
	if !p.IsValid() {
		return "invalid"
	}
	return fmt.Sprintf("%d,%d,%d", p.X, p.Y, p.Z)
}
