package logging

import (
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// FileAppender writes console formatted lines to a size rotated log file.
type FileAppender struct {
	ConsoleAppender
	file *lumberjack.Logger
}

// NewFileAppender creates an appender writing to path. The file is rotated once it reaches
// maxSizeMB megabytes and the rotated files are gzipped; at most three are kept.
func NewFileAppender(path string, maxSizeMB int) *FileAppender {
	file := &lumberjack.Logger{
		Filename:   path,
		MaxSize:    maxSizeMB,
		MaxBackups: 3,
		Compress:   true,
	}
	return &FileAppender{ConsoleAppender: NewWriterAppender(file), file: file}
}

// Write outputs the log entry to the file.
func (appender *FileAppender) Write(entry zapcore.Entry, fields []zapcore.Field) error {
	return appender.ConsoleAppender.Write(entry, fields)
}

// Sync is a no-op, lumberjack does not buffer.
func (appender *FileAppender) Sync() error {
	return nil
}

// Close closes the current log file. A later Write reopens it.
func (appender *FileAppender) Close() error {
	return appender.file.Close()
}
