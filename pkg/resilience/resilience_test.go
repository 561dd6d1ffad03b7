package resilience_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Raikerian/go-voice-ingest/pkg/resilience"
)

var (
	errTransient = errors.New("transient")
	errFatal     = errors.New("fatal")
)

func TestRetry(t *testing.T) {
	tests := map[string]struct {
		policy    resilience.Policy
		failures  []error
		wantCalls int
		wantErr   error
	}{
		"single_attempt_success": {
			policy:    resilience.SingleAttempt,
			wantCalls: 1,
		},
		"single_attempt_failure_is_not_retried": {
			policy:    resilience.SingleAttempt,
			failures:  []error{errTransient},
			wantCalls: 1,
			wantErr:   errTransient,
		},
		"recovers_on_second_attempt": {
			policy:    resilience.Policy{MaxAttempts: 3, InitialBackoff: time.Millisecond},
			failures:  []error{errTransient},
			wantCalls: 2,
		},
		"exhausts_attempts": {
			policy:    resilience.Policy{MaxAttempts: 3, InitialBackoff: time.Millisecond},
			failures:  []error{errTransient, errTransient, errTransient, errTransient},
			wantCalls: 3,
			wantErr:   errTransient,
		},
		"stops_on_non_retryable": {
			policy: resilience.Policy{
				MaxAttempts:    5,
				InitialBackoff: time.Millisecond,
				Retryable:      func(err error) bool { return errors.Is(err, errTransient) },
			},
			failures:  []error{errTransient, errFatal},
			wantCalls: 2,
			wantErr:   errFatal,
		},
		"zero_attempts_means_one": {
			policy:    resilience.Policy{},
			failures:  []error{errTransient},
			wantCalls: 1,
			wantErr:   errTransient,
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			calls := 0
			got, err := resilience.Retry(context.Background(), tt.policy, func(context.Context) (string, error) {
				calls++
				if calls <= len(tt.failures) {
					return "", tt.failures[calls-1]
				}
				return "ok", nil
			})

			assert.Equal(t, tt.wantCalls, calls)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "ok", got)
		})
	}
}

func TestRetry_ContextCancelledDuringBackoff(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	policy := resilience.Policy{MaxAttempts: 10, InitialBackoff: time.Hour}

	calls := 0
	done := make(chan error, 1)
	go func() {
		_, err := resilience.Retry(ctx, policy, func(context.Context) (int, error) {
			calls++
			return 0, errTransient
		})
		done <- err
	}()

	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, errTransient)
		assert.Equal(t, 1, calls)
	case <-time.After(time.Second):
		t.Fatal("retry did not observe cancellation")
	}
}

func TestFailureTracker(t *testing.T) {
	tracker := resilience.NewFailureTracker(3)

	assert.False(t, tracker.Failure())
	assert.False(t, tracker.Failure())
	assert.False(t, tracker.Degraded())
	assert.True(t, tracker.Failure(), "third failure crosses the threshold")
	assert.True(t, tracker.Degraded())
	assert.False(t, tracker.Failure(), "threshold is reported once")
	assert.Equal(t, 4, tracker.Consecutive())

	assert.True(t, tracker.Success(), "first success clears degraded mode")
	assert.False(t, tracker.Degraded())
	assert.Zero(t, tracker.Consecutive())
	assert.False(t, tracker.Success())

	assert.False(t, tracker.Failure())
	assert.False(t, tracker.Success())
}

func TestFailureTracker_MinimumThreshold(t *testing.T) {
	tracker := resilience.NewFailureTracker(0)
	assert.True(t, tracker.Failure())
}
