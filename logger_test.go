package vram

import (
	"bytes"
	"context"
	"log/slog"
	"testing"
)

func TestLoggerDefaultsSilent(t *testing.T) {
	l := Logger()
	if l == nil {
		t.Fatal("Logger() = nil")
	}
	if l.Enabled(context.Background(), slog.LevelError) {
		t.Error("default logger enabled at error level")
	}
}

func TestSetLoggerPropagates(t *testing.T) {
	var buf bytes.Buffer
	l := slog.New(slog.NewTextHandler(&buf, nil))
	SetLogger(l)
	defer SetLogger(nil)

	if Logger() != l {
		t.Error("Logger() does not return the configured logger")
	}
	Logger().Info("hello")
	if buf.Len() == 0 {
		t.Error("configured logger produced no output")
	}
}

func TestSetLoggerNilRestoresSilence(t *testing.T) {
	SetLogger(slog.Default())
	SetLogger(nil)
	if Logger().Enabled(context.Background(), slog.LevelError) {
		t.Error("nil SetLogger did not restore the silent logger")
	}
}
