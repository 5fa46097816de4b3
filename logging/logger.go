// Package logging provides structured logging for the PDF summarizer.
// It wraps zap with console+file output, log rotation and redaction of
// API keys before anything reaches a sink.
package logging

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger wraps zap.Logger and redacts sensitive data from every field.
//
// It composes:
//   - FileWriter (log file rotation via lumberjack)
//   - MultiCore (tee output to console + file)
//   - SensitiveFilter (API key redaction)
//
// Example:
//
//	logger, err := NewLogger(true, "app.log")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer logger.Sync()
//
//	logger.Info("server started", zap.Int("port", 3000))
type Logger struct {
	zap           *zap.Logger
	isDevelopment bool
	logFilePath   string
}

// Options configures NewLoggerWithOptions. Zero values fall back to the
// level implied by the development flag and DefaultFileWriterConfig.
type Options struct {
	// Development selects colored console output and debug level.
	Development bool

	// FilePath is the rotated log file. Required.
	FilePath string

	// Level overrides the environment-derived level when non-nil.
	Level *zapcore.Level

	// File controls rotation of FilePath.
	File FileWriterConfig
}

// NewLogger creates a Logger for the given environment.
//
// Development mode logs at debug level with colored console output;
// production mode logs JSON at info level. Both modes write JSON to a
// rotated file at logFilePath.
func NewLogger(isDevelopment bool, logFilePath string) (*Logger, error) {
	return NewLoggerWithOptions(Options{
		Development: isDevelopment,
		FilePath:    logFilePath,
		File:        DefaultFileWriterConfig(),
	})
}

// NewLoggerWithOptions creates a Logger with explicit level and rotation settings.
func NewLoggerWithOptions(opts Options) (*Logger, error) {
	if opts.FilePath == "" {
		return nil, fmt.Errorf("failed to create log core: empty log file path")
	}

	level := defaultLevel(opts.Development)
	if opts.Level != nil {
		level = *opts.Level
	}

	core, err := NewMultiCore(level, opts.FilePath, opts.File, opts.Development)
	if err != nil {
		return nil, fmt.Errorf("failed to create log core: %w", err)
	}

	return newLogger(zap.New(core, zap.AddCaller(), zap.AddCallerSkip(1)), opts.Development, opts.FilePath), nil
}

// NewNop returns a Logger that discards everything. Useful in tests and
// for components constructed without a logger.
func NewNop() *Logger {
	return newLogger(zap.NewNop(), false, "")
}

// FromZap wraps an existing zap.Logger, e.g. one built on a zaptest observer.
func FromZap(z *zap.Logger) *Logger {
	if z == nil {
		return NewNop()
	}
	return newLogger(z, false, "")
}

func newLogger(z *zap.Logger, isDevelopment bool, path string) *Logger {
	return &Logger{
		zap:           z,
		isDevelopment: isDevelopment,
		logFilePath:   path,
	}
}

func defaultLevel(isDevelopment bool) zapcore.Level {
	if isDevelopment {
		return zapcore.DebugLevel
	}
	return ParseLogLevel(LogLevelEnvVar, zapcore.InfoLevel)
}

// Sync flushes any buffered log entries.
func (l *Logger) Sync() error {
	if l == nil || l.zap == nil {
		return nil
	}
	return l.zap.Sync()
}

// Debug logs a message at DebugLevel.
func (l *Logger) Debug(msg string, fields ...zap.Field) {
	l.zap.Debug(msg, redactFields(fields)...)
}

// Info logs a message at InfoLevel.
func (l *Logger) Info(msg string, fields ...zap.Field) {
	l.zap.Info(msg, redactFields(fields)...)
}

// Warn logs a message at WarnLevel.
func (l *Logger) Warn(msg string, fields ...zap.Field) {
	l.zap.Warn(msg, redactFields(fields)...)
}

// Error logs a message at ErrorLevel.
func (l *Logger) Error(msg string, fields ...zap.Field) {
	l.zap.Error(msg, redactFields(fields)...)
}

// Fatal logs a message at FatalLevel then calls os.Exit(1).
func (l *Logger) Fatal(msg string, fields ...zap.Field) {
	l.zap.Fatal(msg, redactFields(fields)...)
}

// With creates a child logger whose entries all carry fields.
//
// Example:
//
//	reqLogger := logger.With(zap.String("request_id", id))
func (l *Logger) With(fields ...zap.Field) *Logger {
	return newLogger(l.zap.With(redactFields(fields)...), l.isDevelopment, l.logFilePath)
}

// Named adds a sub-logger name such as "processor" or "http".
func (l *Logger) Named(name string) *Logger {
	return newLogger(l.zap.Named(name), l.isDevelopment, l.logFilePath)
}

// Zap returns the underlying zap.Logger for libraries that take one directly.
func (l *Logger) Zap() *zap.Logger {
	return l.zap
}

// IsDevelopment reports whether the logger runs in development mode.
func (l *Logger) IsDevelopment() bool {
	return l.isDevelopment
}

// LogFilePath returns the path to the log file.
func (l *Logger) LogFilePath() string {
	return l.logFilePath
}

// redactFields filters sensitive data from fields before every log call.
func redactFields(fields []zap.Field) []zap.Field {
	if len(fields) == 0 {
		return fields
	}

	result := make([]zap.Field, len(fields))
	for i, field := range fields {
		result[i] = redactField(field)
	}
	return result
}

func redactField(field zap.Field) zap.Field {
	if IsSensitiveField(field.Key) {
		return zap.String(field.Key, RedactedPlaceholder)
	}

	if field.Type == zapcore.StringType {
		if redacted := RedactSensitiveData(field.String); redacted != field.String {
			return zap.String(field.Key, redacted)
		}
	}

	return field
}
