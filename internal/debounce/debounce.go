// Package debounce coalesces bursts of submissions into a single trailing
// delivery. Submitting restarts a fixed window and replaces any pending
// value; when the window elapses the most recent value is delivered exactly
// once. At most one timer is ever pending.
package debounce

import (
	"sync"
	"time"
)

// Debouncer collapses rapid Submit calls into one delivery per elapsed
// window. The zero value is not usable; use New.
type Debouncer[T any] struct {
	mu      sync.Mutex
	window  time.Duration
	deliver func(T)
	timer   *time.Timer
	pending *T
	gen     uint64
}

// New creates a debouncer that calls deliver with the last submitted value
// once window has elapsed without a newer submission. deliver runs on the
// timer goroutine.
func New[T any](window time.Duration, deliver func(T)) *Debouncer[T] {
	return &Debouncer[T]{
		window:  window,
		deliver: deliver,
	}
}

// Submit replaces any pending value and restarts the window.
func (d *Debouncer[T]) Submit(v T) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.pending = &v
	d.gen++
	gen := d.gen

	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.window, func() {
		d.fire(gen)
	})
}

// fire delivers the pending value if no newer submission or cancellation
// superseded this timer.
func (d *Debouncer[T]) fire(gen uint64) {
	d.mu.Lock()
	if gen != d.gen || d.pending == nil {
		d.mu.Unlock()
		return
	}
	v := *d.pending
	d.pending = nil
	d.timer = nil
	d.mu.Unlock()

	d.deliver(v)
}

// Cancel discards any pending value without delivery and stops the timer.
// A value submitted after Cancel starts a fresh window.
func (d *Debouncer[T]) Cancel() {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.gen++
	d.pending = nil
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
}

// Pending reports whether a value is waiting for its window to elapse.
func (d *Debouncer[T]) Pending() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.pending != nil
}
