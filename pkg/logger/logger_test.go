package logger

import (
	"testing"

	"go.uber.org/zap/zapcore"
)

func TestInitWithValidLevel(t *testing.T) {
	if err := Init("debug"); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if !Logger().Core().Enabled(zapcore.DebugLevel) {
		t.Fatal("expected debug level to be enabled")
	}
}

func TestInitWithInvalidLevelFallsBackToInfo(t *testing.T) {
	if err := Init("not-a-level"); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if Logger().Core().Enabled(zapcore.DebugLevel) {
		t.Fatal("expected debug level to be disabled when falling back to info")
	}
	if !Logger().Core().Enabled(zapcore.InfoLevel) {
		t.Fatal("expected info level to be enabled")
	}
}

func TestWithModuleReturnsLogger(t *testing.T) {
	if err := Init("info"); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if WithModule("alerts") == nil {
		t.Fatal("expected module logger")
	}
}
