package logging

import (
	"testing"

	"go.uber.org/zap/zapcore"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		name     string
		level    string
		expected zapcore.Level
	}{
		{name: "debug", level: "debug", expected: zapcore.DebugLevel},
		{name: "uppercase info", level: "INFO", expected: zapcore.InfoLevel},
		{name: "warn", level: "warn", expected: zapcore.WarnLevel},
		{name: "warning alias", level: "warning", expected: zapcore.WarnLevel},
		{name: "error with padding", level: "  error ", expected: zapcore.ErrorLevel},
		{name: "empty falls back to info", level: "", expected: zapcore.InfoLevel},
		{name: "garbage falls back to info", level: "loud", expected: zapcore.InfoLevel},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := parseLevel(tc.level); got != tc.expected {
				t.Fatalf("expected level %s, got %s", tc.expected, got)
			}
		})
	}
}

func TestNewLoggerHonorsLevel(t *testing.T) {
	logger, err := NewLogger("error")
	if err != nil {
		t.Fatalf("failed to build logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	if logger.Core().Enabled(zapcore.InfoLevel) {
		t.Fatalf("info must be suppressed at error level")
	}
	if !logger.Core().Enabled(zapcore.ErrorLevel) {
		t.Fatalf("error level must be enabled")
	}
}
