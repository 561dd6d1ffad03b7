package transcription

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"

	"github.com/Raikerian/go-voice-ingest/internal/metrics"
	"github.com/Raikerian/go-voice-ingest/pkg/resilience"
)

// Guarded bounds concurrent provider calls across sessions and applies a
// retry policy to each call.
type Guarded struct {
	next    Transcriber
	name    string
	sem     *semaphore.Weighted
	policy  resilience.Policy
	metrics *metrics.Metrics
	logger  *zap.Logger
}

// NewGuarded wraps next. maxConcurrent < 1 means one call at a time. Only
// temporary errors are retried, and only if maxAttempts > 1.
func NewGuarded(next Transcriber, name string, maxConcurrent, maxAttempts int, m *metrics.Metrics, logger *zap.Logger) *Guarded {
	return &Guarded{
		next: next,
		name: name,
		sem:  semaphore.NewWeighted(int64(max(1, maxConcurrent))),
		policy: resilience.Policy{
			MaxAttempts: maxAttempts,
			Retryable:   IsRetryable,
		},
		metrics: m,
		logger:  logger,
	}
}

// Transcribe implements Transcriber.
func (g *Guarded) Transcribe(ctx context.Context, req Request) (Result, error) {
	if err := g.sem.Acquire(ctx, 1); err != nil {
		return Result{}, classify(g.name, 0, err)
	}
	defer g.sem.Release(1)

	start := time.Now()
	attempt := 0
	result, err := resilience.Retry(ctx, g.policy, func(ctx context.Context) (Result, error) {
		attempt++
		if attempt > 1 {
			g.logger.Debug("Retrying transcription", zap.String("provider", g.name), zap.Int("attempt", attempt))
		}
		return g.next.Transcribe(ctx, req)
	})
	err = classify(g.name, 0, err)
	g.metrics.Transcription(outcome(err), time.Since(start))

	return result, err
}

func outcome(err error) string {
	if err == nil {
		return "ok"
	}
	var te *Error
	if errors.As(err, &te) {
		return string(te.Kind)
	}
	return string(KindProvider)
}
