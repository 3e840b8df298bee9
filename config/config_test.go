package config

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.viam.com/test"

	"github.com/kinz-go/kinz/logging"
	"github.com/kinz-go/kinz/rimage/transform"
)

const sessionConfig = `{
	// recorded session
	calibration_file: "calib/${KINZ_TEST_DEVICE}.json",
	min_search_depth_mm: 300,
	device: {
		depth_dir: "frames/depth",
		color_dir: "/data/color",
		fps: 30,
	},
	log: {level: "debug", file: "kinz.log"},
}
`

func TestRead(t *testing.T) {
	t.Setenv("KINZ_TEST_DEVICE", "azure")
	dir := t.TempDir()
	path := filepath.Join(dir, "kinz.json5")
	test.That(t, os.WriteFile(path, []byte(sessionConfig), 0o600), test.ShouldBeNil)

	cfg, err := Read(path)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, cfg.ConfigFilePath, test.ShouldEqual, path)
	test.That(t, cfg.CalibrationFile, test.ShouldEqual, filepath.Join(dir, "calib", "azure.json"))
	test.That(t, cfg.Device.DepthDir, test.ShouldEqual, filepath.Join(dir, "frames", "depth"))
	test.That(t, cfg.Device.ColorDir, test.ShouldEqual, "/data/color")
	test.That(t, cfg.Device.FPS, test.ShouldEqual, 30.)
	test.That(t, cfg.Log.File, test.ShouldEqual, filepath.Join(dir, "kinz.log"))
	test.That(t, cfg.LogLevel(), test.ShouldEqual, logging.DEBUG)

	minDepth, maxDepth := cfg.SearchDepthRange()
	test.That(t, minDepth, test.ShouldEqual, uint16(300))
	test.That(t, maxDepth, test.ShouldEqual, uint16(transform.DefaultMaxSearchDepth))
	test.That(t, cfg.SystemOptions(), test.ShouldHaveLength, 1)

	_, err = Read(filepath.Join(dir, "missing.json"))
	test.That(t, err, test.ShouldNotBeNil)
}

func TestFromReaderErrors(t *testing.T) {
	for _, tc := range []struct {
		name string
		in   string
		msg  string
	}{
		{"malformed", `{calibration_file: `, "failed to decode"},
		{"no calibration", `{}`, "calibration_file"},
		{"empty range", `{calibration_file: "c.json", min_search_depth_mm: 5000, max_search_depth_mm: 400}`, "search depth range"},
		{"bad level", `{calibration_file: "c.json", log: {level: "loud"}}`, "unknown log level"},
		{"color without depth", `{calibration_file: "c.json", device: {color_dir: "c"}}`, "depth_dir"},
		{"negative fps", `{calibration_file: "c.json", device: {depth_dir: "d", fps: -1}}`, "fps"},
	} {
		t.Run(tc.name, func(t *testing.T) {
			_, err := FromReader("", strings.NewReader(tc.in))
			test.That(t, err, test.ShouldNotBeNil)
			test.That(t, err.Error(), test.ShouldContainSubstring, tc.msg)
		})
	}
}

func TestFromAttributes(t *testing.T) {
	cfg, err := FromAttributes(map[string]interface{}{
		"calibration_file":    "calib.json",
		"max_search_depth_mm": 4000,
		"watch_calibration":   true,
		"device":              map[string]interface{}{"depth_dir": "depth"},
	})
	test.That(t, err, test.ShouldBeNil)
	test.That(t, cfg.CalibrationFile, test.ShouldEqual, "calib.json")
	test.That(t, cfg.WatchCalibration, test.ShouldBeTrue)
	test.That(t, cfg.Device.DepthDir, test.ShouldEqual, "depth")
	test.That(t, cfg.LogLevel(), test.ShouldEqual, logging.INFO)
	minDepth, maxDepth := cfg.SearchDepthRange()
	test.That(t, minDepth, test.ShouldEqual, uint16(transform.DefaultMinSearchDepth))
	test.That(t, maxDepth, test.ShouldEqual, uint16(4000))

	_, err = FromAttributes(map[string]interface{}{"calibration_file": "c.json", "colour_dir": "x", "bogus": 1})
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "[bogus colour_dir]")

	_, err = FromAttributes(map[string]interface{}{"min_search_depth_mm": 10})
	test.That(t, err, test.ShouldNotBeNil)
}

func TestNewLogger(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.log")
	cfg := &Config{CalibrationFile: "c.json", Log: LogConfig{Level: "warn", File: path}}
	var console bytes.Buffer
	logger := cfg.NewLogger("kinz", &console)
	test.That(t, logger.GetLevel(), test.ShouldEqual, logging.WARN)

	logger.Info("dropped")
	logger.Warn("kept")
	data, err := os.ReadFile(path)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, string(data), test.ShouldContainSubstring, "kept")
	test.That(t, string(data), test.ShouldNotContainSubstring, "dropped")
	test.That(t, console.String(), test.ShouldContainSubstring, "kept")
}
