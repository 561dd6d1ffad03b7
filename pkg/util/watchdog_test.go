package util

import (
	"testing"
	"time"
)

func TestWatchdog(t *testing.T) {
	t.Run("fires after timeout", func(t *testing.T) {
		w := NewWatchdog(30 * time.Millisecond)
		defer w.Stop()

		select {
		case <-w.Expired():
		case <-time.After(500 * time.Millisecond):
			t.Fatal("watchdog did not fire")
		}
	})

	t.Run("kick postpones expiry", func(t *testing.T) {
		w := NewWatchdog(60 * time.Millisecond)
		defer w.Stop()

		deadline := time.After(150 * time.Millisecond)
		ticker := time.NewTicker(15 * time.Millisecond)
		defer ticker.Stop()
	loop:
		for {
			select {
			case <-ticker.C:
				w.Kick()
			case <-w.Expired():
				t.Fatal("watchdog fired while being kicked")
			case <-deadline:
				break loop
			}
		}

		select {
		case <-w.Expired():
		case <-time.After(500 * time.Millisecond):
			t.Fatal("watchdog did not fire after kicks stopped")
		}
	})

	t.Run("stop prevents firing", func(t *testing.T) {
		w := NewWatchdog(20 * time.Millisecond)
		w.Stop()
		w.Stop()
		w.Kick()

		select {
		case <-w.Expired():
			t.Fatal("watchdog fired after stop")
		case <-time.After(80 * time.Millisecond):
		}
	})

	t.Run("zero duration never fires", func(t *testing.T) {
		w := NewWatchdog(0)
		defer w.Stop()
		w.Kick()

		select {
		case <-w.Expired():
			t.Fatal("disabled watchdog fired")
		case <-time.After(50 * time.Millisecond):
		}
	})

	t.Run("kick after expiry is no-op", func(t *testing.T) {
		w := NewWatchdog(10 * time.Millisecond)
		defer w.Stop()
		<-w.Expired()
		w.Kick()

		select {
		case <-w.Expired():
		default:
			t.Fatal("expired channel reopened")
		}
	})

	t.Run("fire racing a kick does not expire", func(t *testing.T) {
		now := time.Now()
		w := NewWatchdog(time.Hour)
		defer w.Stop()
		w.now = func() time.Time { return now }

		// the timer fired at the old deadline, but a kick got the lock first
		now = now.Add(time.Hour)
		w.Kick()
		w.fire()

		select {
		case <-w.Expired():
			t.Fatal("watchdog expired right after a kick")
		default:
		}

		now = now.Add(time.Hour)
		w.fire()
		select {
		case <-w.Expired():
		default:
			t.Fatal("watchdog did not expire at the new deadline")
		}
	})
}
