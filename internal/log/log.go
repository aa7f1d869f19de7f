package log

import (
	"context"
	"io"
	"log/slog"
	"os"
	"sync/atomic"
)

var (
	logger atomic.Pointer[slog.Logger]
	level  = new(slog.LevelVar)
)

func init() {
	// Warnings only until Init is called.
	level.Set(slog.LevelWarn)
	logger.Store(slog.New(NewHandler(HandlerOptions{Level: level, Format: "text"})))
}

// Init initializes the global logger on stderr.
func Init(v int, format string) {
	InitWithWriter(v, format, os.Stderr)
}

// InitWithWriter initializes the global logger writing to w.
// Commands pass cobra's error stream so tests can capture warnings.
func InitWithWriter(v int, format string, w io.Writer) {
	level.Set(VerbosityToLevel(v))

	l := slog.New(NewHandler(HandlerOptions{
		Level:  level,
		Format: format,
		Output: w,
	}))
	logger.Store(l)
	slog.SetDefault(l)
}

// Debug logs at debug level (v=3).
func Debug(msg string, args ...any) {
	logger.Load().Debug(msg, args...)
}

// Trace logs at trace level (v=4).
func Trace(msg string, args ...any) {
	logger.Load().Log(context.Background(), LevelTrace, msg, args...)
}

// Component returns a logger tagged with component name. It writes to the
// logger installed when it was called, so take it after Init.
func Component(name string) *slog.Logger {
	return logger.Load().With("component", name)
}
