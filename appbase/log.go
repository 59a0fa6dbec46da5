package appbase

import (
	"context"
	"log/slog"
	"sync/atomic"
)

// nopHandler discards every record. Enabled returns false so callers skip
// formatting entirely.
type nopHandler struct{}

func (nopHandler) Enabled(context.Context, slog.Level) bool  { return false }
func (nopHandler) Handle(context.Context, slog.Record) error { return nil }
func (nopHandler) WithAttrs([]slog.Attr) slog.Handler        { return nopHandler{} }
func (nopHandler) WithGroup(string) slog.Handler             { return nopHandler{} }

var loggerPtr atomic.Pointer[slog.Logger]

func init() {
	loggerPtr.Store(slog.New(nopHandler{}))
}

// SetLogger configures the logger used by appbase. By default nothing is
// logged. Pass nil to restore the silent default.
//
// Log levels used by appbase:
//   - [slog.LevelDebug]: resource creation and release, frame timing
//   - [slog.LevelInfo]: device, swapchain and lifecycle events
//   - [slog.LevelWarn]: validation warnings, queue family fallback, release errors
//   - [slog.LevelError]: validation errors
func SetLogger(l *slog.Logger) {
	if l == nil {
		l = slog.New(nopHandler{})
	}
	loggerPtr.Store(l)
}

// Logger returns the current appbase logger.
func Logger() *slog.Logger {
	return loggerPtr.Load()
}
