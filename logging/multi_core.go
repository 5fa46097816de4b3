package logging

import (
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap/zapcore"
)

// NewMultiCore creates a core that tees entries to stdout and a rotated file.
//
// The file always receives JSON. The console receives colored
// human-readable output in development mode and JSON otherwise.
//
// The log directory must already exist; a missing directory is reported
// here instead of on the first write.
func NewMultiCore(level zapcore.Level, filePath string, fileConfig FileWriterConfig, isDev bool) (zapcore.Core, error) {
	dir := filepath.Dir(filePath)
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("log directory %s: %w", dir, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("log directory %s is not a directory", dir)
	}

	return NewMultiCoreWithWriters(level, zapcore.Lock(os.Stdout), NewFileWriter(filePath, fileConfig), isDev), nil
}

// NewMultiCoreWithWriters tees entries to the provided writers.
// Tests use this with in-memory buffers.
func NewMultiCoreWithWriters(level zapcore.Level, consoleWriter, fileWriter zapcore.WriteSyncer, isDev bool) zapcore.Core {
	fileCore := zapcore.NewCore(zapcore.NewJSONEncoder(NewEncoderConfig()), fileWriter, level)

	var consoleEncoder zapcore.Encoder
	if isDev {
		consoleEncoder = zapcore.NewConsoleEncoder(NewConsoleEncoderConfig())
	} else {
		consoleEncoder = zapcore.NewJSONEncoder(NewEncoderConfig())
	}
	consoleCore := zapcore.NewCore(consoleEncoder, consoleWriter, level)

	return zapcore.NewTee(consoleCore, fileCore)
}
