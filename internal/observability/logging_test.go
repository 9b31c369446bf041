package observability

import (
	"testing"

	"go.uber.org/zap/zapcore"

	"github.com/rpattn/versionaudit/internal/config"
)

func TestNewLoggerLevels(t *testing.T) {
	logger, err := NewLogger(config.LoggerConfig{Level: "DEBUG"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !logger.Core().Enabled(zapcore.DebugLevel) {
		t.Fatalf("expected debug level to be enabled")
	}

	fallback, err := NewLogger(config.LoggerConfig{Level: "chatty"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if fallback.Core().Enabled(zapcore.DebugLevel) || !fallback.Core().Enabled(zapcore.InfoLevel) {
		t.Fatalf("unknown levels should fall back to info")
	}
}
