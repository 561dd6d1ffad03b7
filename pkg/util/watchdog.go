// Package util holds small concurrency helpers shared by the pipeline.
package util

import (
	"sync"
	"time"
)

// Watchdog fires once when Kick has not been called for the configured
// duration. It is used to expire idle sessions:
//
//	wd := NewWatchdog(2 * time.Minute)
//	defer wd.Stop()
//
//	for {
//	    select {
//	    case f := <-frames:
//	        wd.Kick()
//	        handle(f)
//	    case <-wd.Expired():
//	        return
//	    }
//	}
//
// A zero or negative duration yields a watchdog that never fires.
type Watchdog struct {
	mu       sync.Mutex
	duration time.Duration
	timer    *time.Timer
	deadline time.Time
	now      func() time.Time
	expired  chan struct{}
	once     sync.Once
	stopped  bool
}

// NewWatchdog starts a watchdog armed for d.
func NewWatchdog(d time.Duration) *Watchdog {
	w := &Watchdog{
		duration: d,
		now:      time.Now,
		expired:  make(chan struct{}),
	}
	if d > 0 {
		w.deadline = w.now().Add(d)
		w.timer = time.AfterFunc(d, w.fire)
	}
	return w
}

// fire may run after a Kick that raced with an already expired timer; the
// deadline decides whether the watchdog really expired.
func (w *Watchdog) fire() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.stopped {
		return
	}
	if remaining := w.deadline.Sub(w.now()); remaining > 0 {
		w.timer.Reset(remaining)
		return
	}
	w.once.Do(func() { close(w.expired) })
}

// Kick pushes the deadline out by the full duration. It has no effect after
// the watchdog expired or was stopped.
func (w *Watchdog) Kick() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.stopped || w.timer == nil {
		return
	}
	select {
	case <-w.expired:
		return
	default:
	}
	w.deadline = w.now().Add(w.duration)
	w.timer.Reset(w.duration)
}

// Expired is closed when the watchdog fires.
func (w *Watchdog) Expired() <-chan struct{} {
	return w.expired
}

// Stop disarms the watchdog. Safe to call more than once.
func (w *Watchdog) Stop() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.stopped {
		return
	}
	w.stopped = true
	if w.timer != nil {
		w.timer.Stop()
	}
}
