package watch

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/albertocavalcante/gitmeta/cmd/gitmeta/internal/metastore"
)

// syncBuffer is a bytes.Buffer safe for the watcher and the test to share.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestIsWatchLimitError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected bool
	}{
		{"nil error", nil, false},
		{"no space left on device", errors.New("inotify_add_watch: no space left on device"), true},
		{"too many open files", errors.New("too many open files"), true},
		{"regular error", os.ErrPermission, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := isWatchLimitError(tt.err); got != tt.expected {
				t.Errorf("isWatchLimitError(%v) = %v, want %v", tt.err, got, tt.expected)
			}
		})
	}
}

func TestNew_RequiresUpdate(t *testing.T) {
	if _, err := New(Config{IndexPath: "/x/index"}); err == nil {
		t.Error("expected an error without an update function")
	}
}

func TestHandleEvent_Filters(t *testing.T) {
	w := &Watcher{
		config: Config{IndexPath: "/repo/.git/index"},
		logger: NewLogger(LoggerConfig{Writer: &bytes.Buffer{}}),
	}
	w.debouncer = NewDebouncer(time.Hour, func([]string) {})
	defer w.debouncer.Stop()

	tests := []struct {
		event fsnotify.Event
		queue bool
	}{
		{fsnotify.Event{Name: "/repo/.git/index", Op: fsnotify.Create}, true},
		{fsnotify.Event{Name: "/repo/.git/index", Op: fsnotify.Write}, true},
		{fsnotify.Event{Name: "/repo/.git/index", Op: fsnotify.Chmod}, false},
		{fsnotify.Event{Name: "/repo/.git/index", Op: fsnotify.Remove}, false},
		{fsnotify.Event{Name: "/repo/.git/index.lock", Op: fsnotify.Create}, false},
		{fsnotify.Event{Name: "/repo/.git/HEAD", Op: fsnotify.Write}, false},
	}

	for _, tt := range tests {
		w.debouncer.FlushNow()
		w.handleEvent(tt.event)
		if got := w.debouncer.PendingCount() == 1; got != tt.queue {
			t.Errorf("%s %s: queued = %v, want %v", tt.event.Op, tt.event.Name, got, tt.queue)
		}
	}
}

func TestWatcher_RunsUpdateOnIndexChange(t *testing.T) {
	dir := t.TempDir()
	index := filepath.Join(dir, "index")
	if err := os.WriteFile(index, []byte("v1"), 0o644); err != nil {
		t.Fatal(err)
	}

	updates := make(chan struct{}, 10)
	out := &syncBuffer{}
	w, err := New(Config{
		IndexPath: index,
		StorePath: filepath.Join(dir, "store"),
		Debounce:  50,
		Writer:    out,
		Update: func(context.Context) (*metastore.Result, error) {
			updates <- struct{}{}
			return &metastore.Result{Records: 1, Changed: true}, nil
		},
	})
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = w.Close() }()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	// Wait for the ready line before touching the index.
	deadline := time.Now().Add(5 * time.Second)
	for !bytes.Contains([]byte(out.String()), []byte("ready")) {
		if time.Now().After(deadline) {
			t.Fatal("watcher never became ready")
		}
		time.Sleep(10 * time.Millisecond)
	}

	// Git writes index.lock and renames it over the index.
	lock := filepath.Join(dir, "index.lock")
	if err := os.WriteFile(lock, []byte("v2"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.Rename(lock, index); err != nil {
		t.Fatal(err)
	}

	select {
	case <-updates:
	case <-time.After(5 * time.Second):
		t.Fatal("update was not triggered")
	}

	cancel()
	if err := <-done; err != nil {
		t.Errorf("Run returned %v", err)
	}
	if !bytes.Contains([]byte(out.String()), []byte("store updated")) {
		t.Errorf("expected update line in output: %s", out.String())
	}
}
