package logging

import (
	"fmt"
	"os"
	"runtime"
	"sync"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// appenderSet is shared by a logger and all loggers derived from it, so an appender added to any
// of them reaches all of them.
type appenderSet struct {
	mu        sync.RWMutex
	appenders []Appender
}

func (s *appenderSet) add(appender Appender) {
	s.mu.Lock()
	s.appenders = append(s.appenders, appender)
	s.mu.Unlock()
}

func (s *appenderSet) snapshot() []Appender {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.appenders
}

type impl struct {
	name   string
	level  AtomicLevel
	inUTC  bool
	fields []zapcore.Field
	out    *appenderSet
}

func newImpl(name string, level Level, inUTC bool) *impl {
	return &impl{name: name, level: NewAtomicLevelAt(level), inUTC: inUTC, out: &appenderSet{}}
}

func (imp *impl) AddAppender(appender Appender) {
	imp.out.add(appender)
}

func (imp *impl) SetLevel(level Level) {
	imp.level.Set(level)
}

func (imp *impl) GetLevel() Level {
	return imp.level.Get()
}

func (imp *impl) Sublogger(subname string) Logger {
	name := subname
	if imp.name != "" {
		name = imp.name + "." + subname
	}
	return &impl{
		name:   name,
		level:  NewAtomicLevelAt(imp.level.Get()),
		inUTC:  imp.inUTC,
		fields: imp.fields,
		out:    imp.out,
	}
}

func (imp *impl) WithFields(keysAndValues ...interface{}) Logger {
	fields := make([]zapcore.Field, 0, len(imp.fields)+len(keysAndValues)/2)
	fields = append(fields, imp.fields...)
	return &impl{
		name:   imp.name,
		level:  imp.level,
		inUTC:  imp.inUTC,
		fields: append(fields, toFields(keysAndValues)...),
		out:    imp.out,
	}
}

func (imp *impl) Sync() error {
	var err error
	for _, appender := range imp.out.snapshot() {
		err = multierr.Combine(err, appender.Sync())
	}
	return err
}

// toFields pairs up keys and values. A trailing key without a value is kept with an error value.
func toFields(keysAndValues []interface{}) []zapcore.Field {
	fields := make([]zapcore.Field, 0, (len(keysAndValues)+1)/2)
	for i := 0; i < len(keysAndValues); i += 2 {
		key, ok := keysAndValues[i].(string)
		if !ok {
			key = fmt.Sprint(keysAndValues[i])
		}
		if i+1 == len(keysAndValues) {
			fields = append(fields, zap.Any(key, errors.New("unpaired log key")))
			break
		}
		fields = append(fields, zap.Any(key, keysAndValues[i+1]))
	}
	return fields
}

// write hands one entry to every appender. Appender errors go to stderr; logging never fails the
// caller.
func (imp *impl) write(level Level, msg string, fields []zapcore.Field) {
	entry := zapcore.Entry{
		Level:      level.AsZap(),
		Time:       time.Now(),
		LoggerName: imp.name,
		Message:    msg,
		Caller:     caller(),
	}
	if imp.inUTC {
		entry.Time = entry.Time.UTC()
	}
	if len(imp.fields) > 0 {
		fields = append(append(make([]zapcore.Field, 0, len(imp.fields)+len(fields)), imp.fields...), fields...)
	}
	for _, appender := range imp.out.snapshot() {
		if err := appender.Write(entry, fields); err != nil {
			fmt.Fprintln(os.Stderr, err) //nolint:errcheck
		}
	}
}

func (imp *impl) enabled(level Level) bool {
	return level >= imp.level.Get()
}

func (imp *impl) logArgs(level Level, args []interface{}) {
	if imp.enabled(level) {
		imp.write(level, fmt.Sprint(args...), nil)
	}
}

func (imp *impl) logf(level Level, template string, args []interface{}) {
	if imp.enabled(level) {
		imp.write(level, fmt.Sprintf(template, args...), nil)
	}
}

func (imp *impl) logw(level Level, msg string, keysAndValues []interface{}) {
	if imp.enabled(level) {
		imp.write(level, msg, toFields(keysAndValues))
	}
}

func (imp *impl) Debug(args ...interface{}) { imp.logArgs(DEBUG, args) }
func (imp *impl) Debugf(template string, args ...interface{}) { imp.logf(DEBUG, template, args) }
func (imp *impl) Debugw(msg string, kvs ...interface{}) { imp.logw(DEBUG, msg, kvs) }
func (imp *impl) Info(args ...interface{}) { imp.logArgs(INFO, args) }
func (imp *impl) Infof(template string, args ...interface{}) { imp.logf(INFO, template, args) }
func (imp *impl) Infow(msg string, kvs ...interface{}) { imp.logw(INFO, msg, kvs) }
func (imp *impl) Warn(args ...interface{}) { imp.logArgs(WARN, args) }
func (imp *impl) Warnf(template string, args ...interface{}) { imp.logf(WARN, template, args) }
func (imp *impl) Warnw(msg string, kvs ...interface{}) { imp.logw(WARN, msg, kvs) }
func (imp *impl) Error(args ...interface{}) { imp.logArgs(ERROR, args) }
func (imp *impl) Errorf(template string, args ...interface{}) { imp.logf(ERROR, template, args) }
func (imp *impl) Errorw(msg string, kvs ...interface{}) { imp.logw(ERROR, msg, kvs) }

// The Fatal methods log at ERROR regardless of the level, then exit.

func (imp *impl) Fatal(args ...interface{}) { imp.fatal(fmt.Sprint(args...), nil) }
func (imp *impl) Fatalf(template string, args ...interface{}) {
	imp.fatal(fmt.Sprintf(template, args...), nil)
}
func (imp *impl) Fatalw(msg string, kvs ...interface{}) { imp.fatal(msg, toFields(kvs)) }

func (imp *impl) fatal(msg string, fields []zapcore.Field) {
	imp.write(ERROR, msg, fields)
	os.Exit(1)
}

// caller finds the code that called the public log method: caller, write, the log helper and the
// public method sit between it and runtime.Caller.
func caller() zapcore.EntryCaller {
	const skip = 4
	pc, file, line, ok := runtime.Caller(skip)
	return zapcore.NewEntryCaller(pc, file, line, ok)
}
