package logging

import (
	"testing"

	"go.uber.org/zap/zapcore"
)

func TestParseLogLevelString(t *testing.T) {
	tests := []struct {
		in   string
		def  zapcore.Level
		want zapcore.Level
	}{
		{"debug", zapcore.InfoLevel, zapcore.DebugLevel},
		{"INFO", zapcore.DebugLevel, zapcore.InfoLevel},
		{"Warn", zapcore.InfoLevel, zapcore.WarnLevel},
		{"warning", zapcore.InfoLevel, zapcore.WarnLevel},
		{" error ", zapcore.InfoLevel, zapcore.ErrorLevel},
		{"fatal", zapcore.InfoLevel, zapcore.FatalLevel},
		{"verbose", zapcore.WarnLevel, zapcore.WarnLevel},
		{"", zapcore.InfoLevel, zapcore.InfoLevel},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := ParseLogLevelString(tt.in, tt.def); got != tt.want {
				t.Errorf("ParseLogLevelString(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestParseLogLevel(t *testing.T) {
	const envVar = "TEST_SUMMARIZER_LOG_LEVEL"

	t.Run("reads env", func(t *testing.T) {
		t.Setenv(envVar, "debug")
		if got := ParseLogLevel(envVar, zapcore.InfoLevel); got != zapcore.DebugLevel {
			t.Errorf("ParseLogLevel() = %v, want %v", got, zapcore.DebugLevel)
		}
	})

	t.Run("unset uses default", func(t *testing.T) {
		t.Setenv(envVar, "")
		if got := ParseLogLevel(envVar, zapcore.WarnLevel); got != zapcore.WarnLevel {
			t.Errorf("ParseLogLevel() = %v, want %v", got, zapcore.WarnLevel)
		}
	})

	t.Run("invalid uses default", func(t *testing.T) {
		t.Setenv(envVar, "loud")
		if got := ParseLogLevel(envVar, zapcore.ErrorLevel); got != zapcore.ErrorLevel {
			t.Errorf("ParseLogLevel() = %v, want %v", got, zapcore.ErrorLevel)
		}
	})
}
