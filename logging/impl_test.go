package logging

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"go.viam.com/test"
)

func newBufferLogger(name string, level Level) (*impl, *bytes.Buffer) {
	buf := &bytes.Buffer{}
	logger := newImpl(name, level, true)
	logger.AddAppender(NewWriterAppender(buf))
	return logger, buf
}

func TestConsoleOutputFormat(t *testing.T) {
	logger, buf := newBufferLogger("impl", DEBUG)

	logger.Info("calibration loaded")
	line, err := buf.ReadString('\n')
	test.That(t, err, test.ShouldBeNil)

	parts := strings.Split(strings.TrimSuffix(line, "\n"), "\t")
	test.That(t, parts, test.ShouldHaveLength, 5)
	test.That(t, len(parts[0]), test.ShouldEqual, len("2023-10-30T09:12:09.459Z"))
	test.That(t, parts[1], test.ShouldEqual, "INFO")
	test.That(t, parts[2], test.ShouldEqual, "impl")
	test.That(t, parts[3], test.ShouldStartWith, "logging/impl_test.go:")
	test.That(t, parts[4], test.ShouldEqual, "calibration loaded")

	logger.Debugw("frame", "width", 640, "height", 576)
	line, err = buf.ReadString('\n')
	test.That(t, err, test.ShouldBeNil)
	parts = strings.Split(strings.TrimSuffix(line, "\n"), "\t")
	test.That(t, parts, test.ShouldHaveLength, 6)
	test.That(t, parts[1], test.ShouldEqual, "DEBUG")

	fields := map[string]any{}
	test.That(t, json.Unmarshal([]byte(parts[5]), &fields), test.ShouldBeNil)
	test.That(t, fields, test.ShouldResemble, map[string]any{"width": 640.0, "height": 576.0})
}

func TestLevelFiltering(t *testing.T) {
	logger, buf := newBufferLogger("", WARN)

	logger.Debug("dropped")
	logger.Info("dropped")
	test.That(t, buf.Len(), test.ShouldEqual, 0)

	logger.Warnf("kept %d", 1)
	test.That(t, buf.String(), test.ShouldContainSubstring, "kept 1")

	logger.SetLevel(ERROR)
	buf.Reset()
	logger.Warn("dropped")
	test.That(t, buf.Len(), test.ShouldEqual, 0)
	logger.Errorw("kept", "k")
	test.That(t, buf.String(), test.ShouldContainSubstring, "unpaired log key")
}

func TestSublogger(t *testing.T) {
	logger, buf := newBufferLogger("session", INFO)
	sub := logger.Sublogger("device")
	sub.Info("opened")
	test.That(t, buf.String(), test.ShouldContainSubstring, "session.device")
	test.That(t, sub.GetLevel(), test.ShouldEqual, INFO)
}

func TestWithFields(t *testing.T) {
	logger, buf := newBufferLogger("session", INFO)
	capture := logger.WithFields("capture", 3)
	capture.Infow("exported", "valid", 10)
	test.That(t, buf.String(), test.ShouldContainSubstring, `{"capture":3,"valid":10}`)

	buf.Reset()
	logger.Info("plain")
	test.That(t, buf.String(), test.ShouldNotContainSubstring, "capture")

	// appenders added later reach derived loggers too
	var other bytes.Buffer
	logger.AddAppender(NewWriterAppender(&other))
	capture.Sublogger("align").Warn("late")
	test.That(t, other.String(), test.ShouldContainSubstring, "session.align")
	test.That(t, other.String(), test.ShouldContainSubstring, `{"capture":3}`)
}

func TestObservedTestLogger(t *testing.T) {
	logger, logs := NewObservedTestLogger(t)
	logger.Infow("aligned", "pixels", 12)
	test.That(t, logs.FilterMessage("aligned").Len(), test.ShouldEqual, 1)
	test.That(t, logs.All()[0].ContextMap()["pixels"], test.ShouldEqual, int64(12))
}

func TestLevelFromString(t *testing.T) {
	for _, tc := range []struct {
		in  string
		out Level
	}{
		{"debug", DEBUG},
		{"INFO", INFO},
		{"Warning", WARN},
		{"error", ERROR},
	} {
		level, err := LevelFromString(tc.in)
		test.That(t, err, test.ShouldBeNil)
		test.That(t, level, test.ShouldEqual, tc.out)
	}
	_, err := LevelFromString("loud")
	test.That(t, err, test.ShouldNotBeNil)

	var level Level
	test.That(t, json.Unmarshal([]byte(`"warn"`), &level), test.ShouldBeNil)
	test.That(t, level, test.ShouldEqual, WARN)
}
