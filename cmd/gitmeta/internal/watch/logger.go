package watch

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"golang.org/x/term"

	"github.com/albertocavalcante/gitmeta/cmd/gitmeta/internal/metastore"
)

// Logger writes the human or JSON event stream of a watch session.
type Logger struct {
	writer  io.Writer
	isTTY   bool
	verbose bool
	noColor bool
	jsonOut bool

	statsMu sync.Mutex
	stats   Stats
}

// Stats counts what happened during a watch session.
type Stats struct {
	Updates   int
	Errors    int
	StartTime time.Time
}

// LoggerConfig configures the logger.
type LoggerConfig struct {
	Writer  io.Writer
	Verbose bool
	NoColor bool
	JSON    bool
}

const (
	colorGreen = "\033[32m"
	colorRed   = "\033[31m"
	colorDim   = "\033[2m"
	colorReset = "\033[0m"
)

// NewLogger creates a logger. Colors are used only on a terminal.
func NewLogger(cfg LoggerConfig) *Logger {
	writer := cfg.Writer
	if writer == nil {
		writer = os.Stdout
	}

	isTTY := false
	if f, ok := writer.(*os.File); ok {
		isTTY = term.IsTerminal(int(f.Fd()))
	}

	return &Logger{
		writer:  writer,
		isTTY:   isTTY,
		verbose: cfg.Verbose,
		noColor: cfg.NoColor,
		jsonOut: cfg.JSON,
		stats:   Stats{StartTime: time.Now()},
	}
}

// Ready announces that the index is being watched.
func (l *Logger) Ready(indexPath, storePath string) {
	if l.jsonOut {
		l.writeJSON(map[string]any{
			"event": "ready",
			"index": indexPath,
			"store": storePath,
		})
		return
	}
	l.printf("gitmeta: watching %s\n", indexPath)
	l.printf("gitmeta: store %s\n", storePath)
	l.println("gitmeta: ready")
}

// Changed reports a raw index event. Only shown in verbose mode.
func (l *Logger) Changed(name, op string) {
	if l.jsonOut {
		if l.verbose {
			l.writeJSON(map[string]any{
				"event": "changed",
				"name":  name,
				"op":    op,
				"time":  time.Now().Format(time.RFC3339),
			})
		}
		return
	}
	if l.verbose {
		l.printf("[%s] %s %s\n", l.timestamp(), l.colorize(op, colorDim), name)
	}
}

// Updated reports a finished update.
func (l *Logger) Updated(res *metastore.Result) {
	l.statsMu.Lock()
	l.stats.Updates++
	l.statsMu.Unlock()

	if l.jsonOut {
		l.writeJSON(map[string]any{
			"event":   "updated",
			"records": res.Records,
			"changed": res.Changed,
			"time":    time.Now().Format(time.RFC3339),
		})
		return
	}

	if !res.Changed {
		l.printf("[%s] store unchanged (%d records)\n", l.timestamp(), res.Records)
		return
	}
	l.printf("[%s] %s store updated (%d records)\n", l.timestamp(), l.colorize("✓", colorGreen), res.Records)
}

// Error reports a failed update or watcher error.
func (l *Logger) Error(err error) {
	l.statsMu.Lock()
	l.stats.Errors++
	l.statsMu.Unlock()

	if l.jsonOut {
		l.writeJSON(map[string]any{
			"event": "error",
			"error": err.Error(),
			"time":  time.Now().Format(time.RFC3339),
		})
		return
	}
	l.printf("[%s] %s error: %v\n", l.timestamp(), l.colorize("✗", colorRed), err)
}

// Shutdown prints the session summary.
func (l *Logger) Shutdown() {
	stats := l.Stats()

	if l.jsonOut {
		l.writeJSON(map[string]any{
			"event":    "shutdown",
			"updates":  stats.Updates,
			"errors":   stats.Errors,
			"duration": time.Since(stats.StartTime).String(),
		})
		return
	}
	l.println()
	l.printf("gitmeta: shutting down (%d updates, %d errors)\n", stats.Updates, stats.Errors)
}

// Stats returns the session statistics so far.
func (l *Logger) Stats() Stats {
	l.statsMu.Lock()
	defer l.statsMu.Unlock()
	return l.stats
}

func (l *Logger) timestamp() string {
	return time.Now().Format("15:04:05")
}

func (l *Logger) colorize(s, color string) string {
	if l.noColor || !l.isTTY {
		return s
	}
	return color + s + colorReset
}

func (l *Logger) writeJSON(v any) {
	data, err := json.Marshal(v)
	if err != nil {
		l.println(`{"event":"internal_error","error":"json marshal failed"}`)
		return
	}
	l.println(string(data))
}

func (l *Logger) printf(format string, args ...any) {
	_, _ = fmt.Fprintf(l.writer, format, args...)
}

func (l *Logger) println(args ...any) {
	_, _ = fmt.Fprintln(l.writer, args...)
}
