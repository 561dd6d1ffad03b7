// Package transcription submits encoded speech chunks to a speech-to-text
// provider and classifies provider failures.
package transcription

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"

	"github.com/Raikerian/go-voice-ingest/pkg/audio"
)

// Transcriber turns one encoded audio chunk into text.
type Transcriber interface {
	Transcribe(ctx context.Context, req Request) (Result, error)
}

// Request is a single encoded chunk.
type Request struct {
	Payload  []byte
	MIMEType string
	// Filename is a hint for multipart uploads; the extension selects the
	// decoder on providers that sniff by name.
	Filename string
}

// NewRequest wraps an encoder result.
func NewRequest(enc audio.Encoded) Request {
	return Request{
		Payload:  enc.Payload,
		MIMEType: enc.MIMEType,
		Filename: enc.Filename(),
	}
}

// Result is the provider's answer for one chunk. Confidence is in [0, 1].
type Result struct {
	Text       string
	Confidence float64
}

// NoSpeech reports whether the result must be treated as "nothing was said".
// Such results are never forwarded as a reply.
func (r Result) NoSpeech() bool {
	return strings.TrimSpace(r.Text) == "" || r.Confidence <= 0
}

func normalize(r Result) Result {
	r.Text = strings.TrimSpace(r.Text)
	switch {
	case r.Text == "":
		r.Confidence = 0
	case r.Confidence > 1:
		r.Confidence = 1
	case r.Confidence < 0:
		r.Confidence = 0
	}
	return r
}

// Kind categorizes a transcription failure.
type Kind string

const (
	KindTimeout  Kind = "timeout"
	KindCanceled Kind = "canceled"
	KindNetwork  Kind = "network"
	KindProvider Kind = "provider"
	KindInvalid  Kind = "invalid"
)

// Error is returned by every Transcriber in this package.
type Error struct {
	Provider   string
	Kind       Kind
	StatusCode int // HTTP status when the provider answered, else 0
	Err        error
}

func (e *Error) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("transcription: %s %s error (HTTP %d): %v", e.Provider, e.Kind, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("transcription: %s %s error: %v", e.Provider, e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Temporary reports whether another attempt could succeed.
func (e *Error) Temporary() bool {
	switch e.Kind {
	case KindTimeout, KindNetwork:
		return true
	case KindProvider:
		return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= 500
	default:
		return false
	}
}

// IsRetryable reports whether err is a temporary transcription error.
func IsRetryable(err error) bool {
	var te *Error
	return errors.As(err, &te) && te.Temporary()
}

// classify wraps err into an *Error, inferring the kind from context and
// network errors. Errors that already are *Error pass through unchanged.
func classify(provider string, status int, err error) error {
	if err == nil {
		return nil
	}
	var te *Error
	if errors.As(err, &te) {
		return err
	}

	kind := KindProvider
	var netErr net.Error
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		kind = KindTimeout
	case errors.Is(err, context.Canceled):
		kind = KindCanceled
	case errors.As(err, &netErr):
		kind = KindNetwork
		if netErr.Timeout() {
			kind = KindTimeout
		}
	}
	return &Error{Provider: provider, Kind: kind, StatusCode: status, Err: err}
}
