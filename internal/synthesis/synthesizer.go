// Package synthesis requests spoken audio for reply text and hands it to an
// output sink.
package synthesis

import (
	"context"
	"fmt"

	"github.com/Raikerian/go-voice-ingest/pkg/audio"
)

// Synthesizer is a text-to-speech provider. It returns mono PCM at a
// provider-defined sample rate.
type Synthesizer interface {
	Synthesize(ctx context.Context, text string) (audio.Speech, error)
}

// Sink accepts PCM for playback or transmission.
type Sink interface {
	// SampleRate is the rate WriteSpeech expects.
	SampleRate() int
	WriteSpeech(ctx context.Context, samples []int16) error
}

// Error reports a failed synthesis request.
type Error struct {
	Provider   string
	StatusCode int
	Err        error
}

func (e *Error) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("synthesis: %s failed (HTTP %d): %v", e.Provider, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("synthesis: %s failed: %v", e.Provider, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }
