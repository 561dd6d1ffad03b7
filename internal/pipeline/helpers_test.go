package pipeline

import (
	"context"
	"math"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/Raikerian/go-voice-ingest/internal/config"
	"github.com/Raikerian/go-voice-ingest/internal/synthesis"
	"github.com/Raikerian/go-voice-ingest/internal/transcription"
	"github.com/Raikerian/go-voice-ingest/pkg/audio"
)

const waitTimeout = 5 * time.Second

func testConfig(t *testing.T) config.PipelineConfig {
	t.Helper()
	cfg, err := config.Parse([]byte("pipeline:\n  idle_timeout: 1h\n"))
	require.NoError(t, err)
	return cfg.Pipeline
}

func sine(frequency, amplitude float64, rate int, d time.Duration) []int16 {
	n := int(float64(rate) * d.Seconds())
	out := make([]int16, n)
	for i := range out {
		out[i] = int16(math.Round(amplitude * math.Sin(2*math.Pi*frequency*float64(i)/float64(rate))))
	}
	return out
}

// feed sends samples as 20 ms mono frames.
func feed(t *testing.T, s *Session, samples []int16, rate int) {
	t.Helper()
	per := rate / 50
	var seq uint64
	for start := 0; start < len(samples); start += per {
		end := min(start+per, len(samples))
		seq++
		err := s.OnFrame(context.Background(), audio.Frame{
			Samples:    samples[start:end],
			Channels:   1,
			SampleRate: rate,
			Sequence:   seq,
			Timestamp:  time.Now(),
		})
		require.NoError(t, err)
	}
}

// next returns the next event of kind, skipping others.
func next(t *testing.T, s *Session, kind EventKind) Event {
	t.Helper()
	deadline := time.After(waitTimeout)
	for {
		select {
		case e, ok := <-s.Events():
			require.True(t, ok, "events closed while waiting for %s", kind)
			if e.Kind == kind {
				return e
			}
		case <-deadline:
			t.Fatalf("timed out waiting for %s event", kind)
		}
	}
}

// drain collects the remaining events of a closed session.
func drain(t *testing.T, s *Session) []Event {
	t.Helper()
	var out []Event
	deadline := time.After(waitTimeout)
	for {
		select {
		case e, ok := <-s.Events():
			if !ok {
				return out
			}
			out = append(out, e)
		case <-deadline:
			t.Fatal("events channel not closed")
		}
	}
}

func kinds(events []Event) []EventKind {
	out := make([]EventKind, 0, len(events))
	for _, e := range events {
		out = append(out, e.Kind)
	}
	return out
}

type transcribeFunc func(ctx context.Context, call int, req transcription.Request) (transcription.Result, error)

type fakeTranscriber struct {
	mu       sync.Mutex
	requests []transcription.Request
	fn       transcribeFunc
}

func (f *fakeTranscriber) Transcribe(ctx context.Context, req transcription.Request) (transcription.Result, error) {
	f.mu.Lock()
	f.requests = append(f.requests, req)
	call := len(f.requests)
	f.mu.Unlock()
	return f.fn(ctx, call, req)
}

func (f *fakeTranscriber) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.requests)
}

func (f *fakeTranscriber) request(i int) transcription.Request {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.requests[i]
}

func answer(text string) transcribeFunc {
	return func(context.Context, int, transcription.Request) (transcription.Result, error) {
		return transcription.Result{Text: text, Confidence: 0.9}, nil
	}
}

type fakePeer struct {
	closed atomic.Int32
}

func (p *fakePeer) Close() error {
	p.closed.Add(1)
	return nil
}

type fakeSpeaker struct {
	mu        sync.Mutex
	spoken    []string
	fallbacks int
	err       error // synthesis failure
	playErr   error
	play      func(ctx context.Context) error
}

func (f *fakeSpeaker) Synthesize(_ context.Context, text string) (audio.Speech, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.spoken = append(f.spoken, text)
	if f.err != nil {
		return audio.Speech{}, f.err
	}
	return audio.Speech{Samples: make([]int16, 160), SampleRate: 16000}, nil
}

func (f *fakeSpeaker) Fallback(context.Context) (audio.Speech, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fallbacks++
	return audio.Speech{Samples: make([]int16, 160), SampleRate: 16000}, nil
}

func (f *fakeSpeaker) Play(ctx context.Context, _ audio.Speech, _ synthesis.Sink) error {
	if f.play != nil {
		return f.play(ctx)
	}
	return f.playErr
}

func (f *fakeSpeaker) snapshot() ([]string, int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.spoken...), f.fallbacks
}

type nullSink struct{}

func (nullSink) SampleRate() int { return audio.WebRTCSampleRate }

func (nullSink) WriteSpeech(context.Context, []int16) error { return nil }

type fakeUsage struct {
	mu    sync.Mutex
	audio time.Duration
	chars int
}

func (f *fakeUsage) Transcribed(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.audio += d
}

func (f *fakeUsage) Spoke(chars int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.chars += chars
}

func (f *fakeUsage) snapshot() (time.Duration, int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.audio, f.chars
}
