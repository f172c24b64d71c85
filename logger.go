package vram

import (
	"context"
	"log/slog"
	"sync/atomic"

	"github.com/gogpu/vram/backend"
	"github.com/gogpu/vram/backend/wgpu"
	"github.com/gogpu/vram/multibuffer"
)

// nopHandler is a slog.Handler that silently discards all log records.
// The Enabled method returns false so the caller skips message formatting
// entirely, making disabled logging effectively zero-cost.
type nopHandler struct{}

func (nopHandler) Enabled(context.Context, slog.Level) bool  { return false }
func (nopHandler) Handle(context.Context, slog.Record) error { return nil }
func (nopHandler) WithAttrs([]slog.Attr) slog.Handler        { return nopHandler{} }
func (nopHandler) WithGroup(string) slog.Handler             { return nopHandler{} }

// newNopLogger creates a logger that silently discards all output.
func newNopLogger() *slog.Logger { return slog.New(nopHandler{}) }

// loggerPtr stores the active logger. Accessed atomically so that
// SetLogger can be called concurrently with logging from any goroutine.
var loggerPtr atomic.Pointer[slog.Logger]

func init() {
	l := newNopLogger()
	loggerPtr.Store(l)
}

// SetLogger configures the logger for vram and all its sub-packages.
// By default, vram produces no log output. Call SetLogger to enable it.
//
// SetLogger is safe for concurrent use: it stores the new logger
// atomically. Pass nil to restore the default silent behavior.
//
// Log levels used by vram:
//   - [slog.LevelDebug]: state transitions (commits, retirements)
//   - [slog.LevelInfo]: lifecycle events (device opened)
//   - [slog.LevelWarn]: stalls, device loss
func SetLogger(l *slog.Logger) {
	if l == nil {
		l = newNopLogger()
	}
	loggerPtr.Store(l)
	backend.SetLogger(l)
	multibuffer.SetLogger(l)
	wgpu.SetLogger(l)
}

// Logger returns the currently configured logger.
// Returns a silent logger if SetLogger was never called.
func Logger() *slog.Logger { return loggerPtr.Load() }
