package watch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/albertocavalcante/gitmeta/cmd/gitmeta/internal/metastore"
)

// DefaultDebounce is used when Config.Debounce is not positive.
const DefaultDebounce = 500 * time.Millisecond

// ErrWatchLimitReached is returned when the OS watch limit is exceeded.
var ErrWatchLimitReached = errors.New("filesystem watch limit reached")

// UpdateFunc runs one Update of the store.
type UpdateFunc func(ctx context.Context) (*metastore.Result, error)

// Config configures the watcher.
type Config struct {
	IndexPath string // absolute path of the git index
	StorePath string // shown in the ready message
	Debounce  int    // quiet period in milliseconds
	Update    UpdateFunc
	Writer    io.Writer
	Verbose   bool
	NoColor   bool
	JSON      bool
}

// Watcher re-runs Update after the git index changes.
type Watcher struct {
	config    Config
	fsWatcher *fsnotify.Watcher
	debouncer *Debouncer
	logger    *Logger

	ctx context.Context

	// updateMu serializes Update runs
	updateMu sync.Mutex
}

// New creates a watcher. Call Close when done.
func New(cfg Config) (*Watcher, error) {
	if cfg.Update == nil {
		return nil, errors.New("watch: no update function")
	}
	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}

	return &Watcher{
		config:    cfg,
		fsWatcher: fsWatcher,
		logger: NewLogger(LoggerConfig{
			Writer:  cfg.Writer,
			Verbose: cfg.Verbose,
			NoColor: cfg.NoColor,
			JSON:    cfg.JSON,
		}),
	}, nil
}

// Run watches until ctx is cancelled. The index is replaced by rename on
// every write, so its directory is watched rather than the file.
func (w *Watcher) Run(ctx context.Context) error {
	w.ctx = ctx
	window := time.Duration(w.config.Debounce) * time.Millisecond
	if window <= 0 {
		window = DefaultDebounce
	}
	w.debouncer = NewDebouncer(window, w.handleFlush)
	defer w.debouncer.Stop()

	dir := filepath.Dir(w.config.IndexPath)
	if err := w.fsWatcher.Add(dir); err != nil {
		if isWatchLimitError(err) {
			return fmt.Errorf("%w: %s: %v", ErrWatchLimitReached, dir, err)
		}
		return fmt.Errorf("failed to watch %s: %w", dir, err)
	}

	w.logger.Ready(w.config.IndexPath, w.config.StorePath)

	for {
		select {
		case <-ctx.Done():
			w.logger.Shutdown()
			return nil

		case event, ok := <-w.fsWatcher.Events:
			if !ok {
				return nil
			}
			w.handleEvent(event)

		case err, ok := <-w.fsWatcher.Errors:
			if !ok {
				return nil
			}
			w.logger.Error(err)
		}
	}
}

// handleEvent queues an update for writes to the index itself. Lock files
// and other entries of the git directory are ignored.
func (w *Watcher) handleEvent(event fsnotify.Event) {
	name := filepath.Base(event.Name)
	if name != filepath.Base(w.config.IndexPath) {
		return
	}
	if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) {
		return
	}
	w.logger.Changed(name, event.Op.String())
	w.debouncer.Add(name)
}

// handleFlush runs Update once for a burst of index changes.
func (w *Watcher) handleFlush([]string) {
	if w.ctx != nil && w.ctx.Err() != nil {
		return
	}

	w.updateMu.Lock()
	defer w.updateMu.Unlock()

	ctx := w.ctx
	if ctx == nil {
		ctx = context.Background()
	}
	res, err := w.config.Update(ctx)
	if err != nil {
		w.logger.Error(err)
		return
	}
	w.logger.Updated(res)
}

// isWatchLimitError checks if an error is due to inotify watch limits.
func isWatchLimitError(err error) bool {
	if err == nil {
		return false
	}
	errStr := err.Error()
	return strings.Contains(errStr, "no space left on device") ||
		strings.Contains(errStr, "too many open files")
}

// Close releases the underlying watcher.
func (w *Watcher) Close() error {
	if w.fsWatcher != nil {
		return w.fsWatcher.Close()
	}
	return nil
}
