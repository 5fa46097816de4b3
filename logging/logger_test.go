package logging

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

// syncLogger ignores the "invalid argument" error from syncing stdout on Linux.
func syncLogger(t testing.TB, logger *Logger) {
	t.Helper()
	if err := logger.Sync(); err != nil && !strings.Contains(err.Error(), "invalid argument") {
		t.Logf("Sync() warning: %v", err)
	}
}

func TestNewLogger(t *testing.T) {
	for _, dev := range []bool{true, false} {
		path := filepath.Join(t.TempDir(), "app.log")

		logger, err := NewLogger(dev, path)
		if err != nil {
			t.Fatalf("NewLogger(%v) error = %v", dev, err)
		}
		if logger.IsDevelopment() != dev {
			t.Errorf("IsDevelopment() = %v, want %v", logger.IsDevelopment(), dev)
		}
		if logger.LogFilePath() != path {
			t.Errorf("LogFilePath() = %q, want %q", logger.LogFilePath(), path)
		}

		logger.Info("started", zap.String("mode", "test"))
		syncLogger(t, logger)

		info, err := os.Stat(path)
		if err != nil {
			t.Fatalf("stat log file: %v", err)
		}
		if info.Size() == 0 {
			t.Error("log file is empty")
		}
	}
}

func TestNewLoggerWithOptions_EmptyPath(t *testing.T) {
	if _, err := NewLoggerWithOptions(Options{}); err == nil {
		t.Error("NewLoggerWithOptions() error = nil, want error")
	}
}

func TestNewLoggerWithOptions_Level(t *testing.T) {
	path := filepath.Join(t.TempDir(), "app.log")
	level := zapcore.ErrorLevel

	logger, err := NewLoggerWithOptions(Options{FilePath: path, Level: &level})
	if err != nil {
		t.Fatalf("NewLoggerWithOptions() error = %v", err)
	}
	logger.Warn("filtered")
	syncLogger(t, logger)

	data, _ := os.ReadFile(path)
	if strings.Contains(string(data), "filtered") {
		t.Error("warn entry written with error level")
	}
}

func TestLogger_Redaction(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	logger := FromZap(zap.New(core))

	logger.Info("calling provider",
		zap.String("anthropic_api_key", "sk-ant-REDACTED"),
		zap.String("detail", "rejected key sk-abcdefghijklmnopqrstuvwxyz123456"),
		zap.String("model", "claude-3-5-haiku-latest"),
	)

	entries := logs.All()
	if len(entries) != 1 {
		t.Fatalf("got %d entries, want 1", len(entries))
	}
	fields := entries[0].ContextMap()
	if fields["anthropic_api_key"] != RedactedPlaceholder {
		t.Errorf("anthropic_api_key = %v, want %q", fields["anthropic_api_key"], RedactedPlaceholder)
	}
	if strings.Contains(fields["detail"].(string), "sk-abc") {
		t.Errorf("detail = %v, still contains key", fields["detail"])
	}
	if fields["model"] != "claude-3-5-haiku-latest" {
		t.Errorf("model = %v, want unchanged", fields["model"])
	}
}

func TestLogger_WithAndNamed(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	logger := FromZap(zap.New(core)).Named("processor").With(zap.String("request_id", "r1"), zap.String("token", "abcdefghijkl"))

	logger.Debug("chunking")

	entry := logs.All()[0]
	if entry.LoggerName != "processor" {
		t.Errorf("LoggerName = %q, want %q", entry.LoggerName, "processor")
	}
	fields := entry.ContextMap()
	if fields["request_id"] != "r1" {
		t.Errorf("request_id = %v, want r1", fields["request_id"])
	}
	if fields["token"] != RedactedPlaceholder {
		t.Errorf("token = %v, want redacted", fields["token"])
	}
}

func TestNewNop(t *testing.T) {
	logger := NewNop()
	logger.Info("discarded")
	if err := logger.Sync(); err != nil {
		t.Errorf("Sync() error = %v", err)
	}
	if FromZap(nil).Zap() == nil {
		t.Error("FromZap(nil) should fall back to a nop logger")
	}
}
