package log

import (
	"io"
	"log/slog"
	"os"
)

// HandlerOptions configures the log handler.
type HandlerOptions struct {
	Level  slog.Leveler
	Format string // "text" or "json"
	Output io.Writer

	// KeepTime keeps the time attribute in text output. Text logs mostly
	// end up in git hook output, where a timestamp on every warning is noise.
	KeepTime bool

	AddSource bool
}

// NewHandler creates the handler for the given format. Output defaults to
// stderr; stdout belongs to dry-run stores and verbose apply reports.
func NewHandler(opts HandlerOptions) slog.Handler {
	if opts.Output == nil {
		opts.Output = os.Stderr
	}

	handlerOpts := &slog.HandlerOptions{
		Level:     opts.Level,
		AddSource: opts.AddSource,
	}

	if opts.Format == "json" {
		handlerOpts.ReplaceAttr = replaceLevelNames
		return slog.NewJSONHandler(opts.Output, handlerOpts)
	}

	dropTime := !opts.KeepTime
	handlerOpts.ReplaceAttr = func(groups []string, a slog.Attr) slog.Attr {
		if dropTime && len(groups) == 0 && a.Key == slog.TimeKey {
			return slog.Attr{}
		}
		return replaceLevelNames(groups, a)
	}
	return slog.NewTextHandler(opts.Output, handlerOpts)
}

// replaceLevelNames prints custom levels (TRACE) by name.
func replaceLevelNames(_ []string, a slog.Attr) slog.Attr {
	if a.Key == slog.LevelKey {
		if level, ok := a.Value.Any().(slog.Level); ok {
			a.Value = slog.StringValue(LevelName(level))
		}
	}
	return a
}
