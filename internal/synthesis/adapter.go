package synthesis

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/Raikerian/go-voice-ingest/internal/metrics"
	"github.com/Raikerian/go-voice-ingest/pkg/audio"
)

// ErrEmptyText is wrapped by the Error returned for blank input.
var ErrEmptyText = errors.New("text is empty")

// Adapter is the pipeline's entry point to speech synthesis. Successful
// results are kept in a phrase cache so repeated replies and the fallback
// phrase are served without another provider call.
type Adapter struct {
	provider       Synthesizer
	name           string
	cache          *PhraseCache
	fallbackPhrase string
	metrics        *metrics.Metrics
	logger         *zap.Logger
}

// NewAdapter wraps provider. cache may be nil.
func NewAdapter(provider Synthesizer, name string, cache *PhraseCache, fallbackPhrase string, m *metrics.Metrics, logger *zap.Logger) *Adapter {
	return &Adapter{
		provider:       provider,
		name:           name,
		cache:          cache,
		fallbackPhrase: fallbackPhrase,
		metrics:        m,
		logger:         logger.Named("synthesis"),
	}
}

// Synthesize returns speech for text. Every failure is an *Error.
func (a *Adapter) Synthesize(ctx context.Context, text string) (audio.Speech, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return audio.Speech{}, &Error{Provider: a.name, Err: ErrEmptyText}
	}

	if a.cache != nil {
		if speech, ok := a.cache.Get(text); ok {
			a.metrics.PhraseCacheHit()
			return speech, nil
		}
	}

	start := time.Now()
	speech, err := a.provider.Synthesize(ctx, text)
	if err != nil {
		a.metrics.Synthesis("error", time.Since(start))
		var se *Error
		if !errors.As(err, &se) {
			err = &Error{Provider: a.name, Err: err}
		}
		return audio.Speech{}, err
	}
	a.metrics.Synthesis("ok", time.Since(start))

	if a.cache != nil {
		a.cache.Add(text, speech)
	}

	a.logger.Debug("Speech synthesized",
		zap.Int("text_len", len(text)),
		zap.Int("rate_hz", speech.SampleRate),
		zap.Duration("duration", speech.Duration()))

	return speech, nil
}

// Fallback returns the configured apology phrase, synthesizing it on first use.
func (a *Adapter) Fallback(ctx context.Context) (audio.Speech, error) {
	return a.Synthesize(ctx, a.fallbackPhrase)
}

// Speak synthesizes text, converts it to the sink's rate and writes it to
// the sink.
func (a *Adapter) Speak(ctx context.Context, text string, sink Sink) error {
	speech, err := a.Synthesize(ctx, text)
	if err != nil {
		return err
	}
	return a.Play(ctx, speech, sink)
}

// Play converts speech to the sink's rate and writes it.
func (a *Adapter) Play(ctx context.Context, speech audio.Speech, sink Sink) error {
	samples, err := audio.Convert(speech.Samples, speech.SampleRate, sink.SampleRate())
	if err != nil {
		return fmt.Errorf("convert speech for sink: %w", err)
	}
	return sink.WriteSpeech(ctx, samples)
}
