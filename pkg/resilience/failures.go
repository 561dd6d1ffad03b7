package resilience

import "sync"

// FailureTracker counts consecutive failures and reports when a threshold is
// crossed and when the first success afterwards clears it. It is safe for
// concurrent use.
type FailureTracker struct {
	mu          sync.Mutex
	threshold   int
	consecutive int
	degraded    bool
}

// NewFailureTracker returns a tracker that degrades after threshold
// consecutive failures. Values below 1 are treated as 1.
func NewFailureTracker(threshold int) *FailureTracker {
	return &FailureTracker{threshold: max(1, threshold)}
}

// Failure records a failure. It returns true only for the failure that
// crosses the threshold.
func (t *FailureTracker) Failure() bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.consecutive++
	if !t.degraded && t.consecutive >= t.threshold {
		t.degraded = true
		return true
	}
	return false
}

// Success records a success and returns true if the tracker was degraded.
func (t *FailureTracker) Success() bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	recovered := t.degraded
	t.consecutive = 0
	t.degraded = false
	return recovered
}

// Consecutive returns the current run of failures.
func (t *FailureTracker) Consecutive() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.consecutive
}

// Degraded reports whether the threshold has been reached since the last success.
func (t *FailureTracker) Degraded() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.degraded
}
