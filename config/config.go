// Package config defines the configuration of a kinz session: where the calibration and the
// recorded frames live, how the color to depth search runs and where logs go.
package config

import (
	"bytes"
	"io"
	"path/filepath"
	"sort"

	"github.com/a8m/envsubst"
	"github.com/go-viper/mapstructure/v2"
	"github.com/pkg/errors"
	"github.com/yosuke-furukawa/json5/encoding/json5"
	goutils "go.viam.com/utils"

	"github.com/kinz-go/kinz/logging"
	"github.com/kinz-go/kinz/rimage/transform"
)

// DefaultLogMaxSizeMB is the size at which log files are rotated when none is configured.
const DefaultLogMaxSizeMB = 64

// Config describes a session.
type Config struct {
	CalibrationFile  string `json:"calibration_file"`
	WatchCalibration bool   `json:"watch_calibration,omitempty"`
	MinSearchDepthMM uint16 `json:"min_search_depth_mm,omitempty"`
	MaxSearchDepthMM uint16 `json:"max_search_depth_mm,omitempty"`

	Device DeviceConfig `json:"device"`
	Log    LogConfig    `json:"log"`

	// ConfigFilePath is the file the config was read from, if any.
	ConfigFilePath string `json:"-"`
}

// DeviceConfig points a recorded device at its frames. Depth and color frames are paired by the
// sorted order of their file names.
type DeviceConfig struct {
	DepthDir string  `json:"depth_dir"`
	ColorDir string  `json:"color_dir,omitempty"`
	FPS      float64 `json:"fps,omitempty"`
}

// LogConfig configures the session logger.
type LogConfig struct {
	Level     string `json:"level,omitempty"`
	File      string `json:"file,omitempty"`
	MaxSizeMB int    `json:"max_size_mb,omitempty"`
}

// Read reads a config from the given file. Environment variables in the file are expanded and
// relative paths are taken relative to the file's directory.
func Read(filePath string) (*Config, error) {
	buf, err := envsubst.ReadFile(filePath)
	if err != nil {
		return nil, err
	}
	return FromReader(filePath, bytes.NewReader(buf))
}

// FromReader reads a JSON5 config from the given reader and specifies where, if applicable, the
// file the reader originated from.
func FromReader(originalPath string, r io.Reader) (*Config, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	cfg := Config{ConfigFilePath: originalPath}
	if err := json5.Unmarshal(data, &cfg); err != nil {
		return nil, errors.Wrap(err, "failed to decode config")
	}
	if originalPath != "" {
		cfg.resolvePaths(filepath.Dir(originalPath))
	}
	if err := cfg.Validate("config"); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// FromAttributes builds a config from a loosely typed attribute map, as found embedded in a larger
// configuration. Unknown attributes are rejected.
func FromAttributes(attributes map[string]interface{}) (*Config, error) {
	var cfg Config
	var md mapstructure.Metadata
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:  "json",
		Result:   &cfg,
		Metadata: &md,
	})
	if err != nil {
		return nil, err
	}
	if err := decoder.Decode(attributes); err != nil {
		return nil, err
	}
	if len(md.Unused) > 0 {
		sort.Strings(md.Unused)
		return nil, errors.Errorf("unknown attributes %v", md.Unused)
	}
	if err := cfg.Validate("attributes"); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) resolvePaths(dir string) {
	for _, p := range []*string{&c.CalibrationFile, &c.Device.DepthDir, &c.Device.ColorDir, &c.Log.File} {
		if *p != "" && !filepath.IsAbs(*p) {
			*p = filepath.Join(dir, *p)
		}
	}
}

// Validate ensures all parts of the config are valid.
func (c *Config) Validate(path string) error {
	if c.CalibrationFile == "" {
		return goutils.NewConfigValidationFieldRequiredError(path, "calibration_file")
	}
	minDepth, maxDepth := c.SearchDepthRange()
	if minDepth == 0 || maxDepth <= minDepth {
		return goutils.NewConfigValidationError(path,
			errors.Errorf("search depth range [%d, %d] is empty", minDepth, maxDepth))
	}
	if c.Device.FPS < 0 {
		return goutils.NewConfigValidationError(path+".device", errors.Errorf("fps must not be negative, got %v", c.Device.FPS))
	}
	if c.Device.ColorDir != "" && c.Device.DepthDir == "" {
		return goutils.NewConfigValidationFieldRequiredError(path+".device", "depth_dir")
	}
	if c.Log.Level != "" {
		if _, err := logging.LevelFromString(c.Log.Level); err != nil {
			return goutils.NewConfigValidationError(path+".log", err)
		}
	}
	if c.Log.MaxSizeMB < 0 {
		return goutils.NewConfigValidationError(path+".log", errors.Errorf("max_size_mb must not be negative, got %d", c.Log.MaxSizeMB))
	}
	return nil
}

// SearchDepthRange returns the configured color to depth search range, with defaults filled in.
func (c *Config) SearchDepthRange() (uint16, uint16) {
	minDepth, maxDepth := c.MinSearchDepthMM, c.MaxSearchDepthMM
	if minDepth == 0 {
		minDepth = transform.DefaultMinSearchDepth
	}
	if maxDepth == 0 {
		maxDepth = transform.DefaultMaxSearchDepth
	}
	return minDepth, maxDepth
}

// SystemOptions returns the options to build a camera system with.
func (c *Config) SystemOptions() []transform.Option {
	minDepth, maxDepth := c.SearchDepthRange()
	return []transform.Option{transform.WithSearchDepthRange(minDepth, maxDepth)}
}

// LogLevel returns the configured log level, INFO when unset.
func (c *Config) LogLevel() logging.Level {
	level, err := logging.LevelFromString(c.Log.Level)
	if err != nil {
		return logging.INFO
	}
	return level
}

// NewLogger builds the session logger writing to console, plus a rotated log file when one is
// configured.
func (c *Config) NewLogger(name string, console io.Writer) logging.Logger {
	logger := logging.NewBlankLogger(name)
	logger.SetLevel(c.LogLevel())
	logger.AddAppender(logging.NewWriterAppender(console))
	if c.Log.File != "" {
		size := c.Log.MaxSizeMB
		if size == 0 {
			size = DefaultLogMaxSizeMB
		}
		logger.AddAppender(logging.NewFileAppender(c.Log.File, size))
	}
	return logger
}
