package logging

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestNewMultiCore_MissingDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing", "app.log")

	if _, err := NewMultiCore(zapcore.InfoLevel, path, DefaultFileWriterConfig(), false); err == nil {
		t.Error("NewMultiCore() error = nil, want error for missing directory")
	}
}

func TestNewMultiCoreWithWriters(t *testing.T) {
	tests := []struct {
		name        string
		isDev       bool
		consoleJSON bool
	}{
		{"development console is text", true, false},
		{"production console is json", false, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var console, file bytes.Buffer
			core := NewMultiCoreWithWriters(zapcore.DebugLevel, zapcore.AddSync(&console), zapcore.AddSync(&file), tt.isDev)
			zap.New(core).Info("chunk summarized", zap.Int("index", 1))

			var entry map[string]any
			if err := json.Unmarshal(file.Bytes(), &entry); err != nil {
				t.Fatalf("file output is not JSON: %v (%q)", err, file.String())
			}
			if entry[FieldMessage] != "chunk summarized" {
				t.Errorf("file message = %v, want %q", entry[FieldMessage], "chunk summarized")
			}

			isJSON := json.Valid(bytes.TrimSpace(console.Bytes()))
			if isJSON != tt.consoleJSON {
				t.Errorf("console JSON = %v, want %v (%q)", isJSON, tt.consoleJSON, console.String())
			}
			if !strings.Contains(console.String(), "chunk summarized") {
				t.Errorf("console output missing message: %q", console.String())
			}
		})
	}
}

func TestNewMultiCoreWithWriters_LevelFiltering(t *testing.T) {
	var console, file bytes.Buffer
	core := NewMultiCoreWithWriters(zapcore.WarnLevel, zapcore.AddSync(&console), zapcore.AddSync(&file), false)
	logger := zap.New(core)

	logger.Info("dropped")
	logger.Warn("kept")

	if strings.Contains(file.String(), "dropped") {
		t.Error("info entry written at warn level")
	}
	if !strings.Contains(file.String(), "kept") {
		t.Error("warn entry missing")
	}
}

func TestNewConsoleEncoderConfig(t *testing.T) {
	cfg := NewConsoleEncoderConfig()
	base := NewEncoderConfig()

	if cfg.MessageKey != base.MessageKey || cfg.TimeKey != base.TimeKey {
		t.Errorf("console keys = %q/%q, want %q/%q", cfg.MessageKey, cfg.TimeKey, base.MessageKey, base.TimeKey)
	}
	if cfg.EncodeLevel == nil || cfg.EncodeTime == nil {
		t.Error("console encoders must be set")
	}
}
