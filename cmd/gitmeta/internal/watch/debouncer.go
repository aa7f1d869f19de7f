// Package watch keeps the store in step with the staging area by re-running
// Update whenever the git index changes.
package watch

import (
	"sync"
	"time"

	"github.com/albertocavalcante/gitmeta/pkg/util"
)

// MaxPending is the number of distinct pending names that forces an
// immediate flush instead of waiting for the window to pass.
const MaxPending = 1000

// Debouncer coalesces bursts of change notifications into one flush. Git
// rewrites the index several times during a single add or commit, and every
// rewrite produces a few events.
type Debouncer struct {
	mu      sync.Mutex
	pending map[string]struct{}
	timer   *time.Timer
	window  time.Duration
	onFlush func(names []string)
	stopped bool
	gen     uint64 // identifies the live timer
}

// NewDebouncer creates a debouncer. onFlush receives the sorted names that
// were added since the previous flush once window passes without new events.
func NewDebouncer(window time.Duration, onFlush func(names []string)) *Debouncer {
	return &Debouncer{
		pending: make(map[string]struct{}),
		window:  window,
		onFlush: onFlush,
	}
}

// Add records a change and restarts the window.
func (d *Debouncer) Add(name string) {
	d.mu.Lock()
	if d.stopped {
		d.mu.Unlock()
		return
	}
	d.pending[name] = struct{}{}
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	if len(d.pending) >= MaxPending {
		d.gen++
		names := d.takeLocked()
		d.mu.Unlock()
		d.deliver(names)
		return
	}
	d.gen++
	gen := d.gen
	d.timer = time.AfterFunc(d.window, func() { d.fire(gen) })
	d.mu.Unlock()
}

// fire flushes when the timer that started it is still the live one. A
// timer that fired just as Add replaced it finds a newer generation.
func (d *Debouncer) fire(gen uint64) {
	d.mu.Lock()
	if d.stopped || gen != d.gen {
		d.mu.Unlock()
		return
	}
	d.timer = nil
	names := d.takeLocked()
	d.mu.Unlock()
	d.deliver(names)
}

// FlushNow delivers pending names immediately.
func (d *Debouncer) FlushNow() {
	d.mu.Lock()
	d.gen++
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	if d.stopped {
		d.mu.Unlock()
		return
	}
	names := d.takeLocked()
	d.mu.Unlock()
	d.deliver(names)
}

// Stop flushes what is pending and ignores later calls to Add.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	d.stopped = true
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	names := d.takeLocked()
	d.mu.Unlock()
	d.deliver(names)
}

// PendingCount returns the number of names waiting to be flushed.
func (d *Debouncer) PendingCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.pending)
}

// takeLocked empties the pending set. Caller must hold d.mu.
func (d *Debouncer) takeLocked() []string {
	if len(d.pending) == 0 {
		return nil
	}
	names := util.SortedKeys(d.pending)
	d.pending = make(map[string]struct{})
	return names
}

// deliver calls the handler outside the lock.
func (d *Debouncer) deliver(names []string) {
	if len(names) > 0 && d.onFlush != nil {
		d.onFlush(names)
	}
}
