package pipeline

import (
	"time"

	"github.com/google/uuid"
)

// EventKind identifies what an Event reports.
type EventKind string

const (
	// EventChunk reports the gate decision for a flushed buffer chunk.
	EventChunk EventKind = "chunk"
	// EventTranscript carries an accepted transcript.
	EventTranscript EventKind = "transcript"
	// EventReply carries the reply text generated for a transcript.
	EventReply EventKind = "reply"
	// EventDegraded is raised once when consecutive transcription failures
	// reach the configured limit.
	EventDegraded EventKind = "degraded"
	// EventRecovered follows the first success after EventDegraded.
	EventRecovered EventKind = "recovered"
	// EventClosed is the last event of a session.
	EventClosed EventKind = "closed"
)

// Event is a notification from a session to its owner.
type Event struct {
	Kind      EventKind
	SessionID uuid.UUID
	At        time.Time

	Text       string  // transcript or reply
	Confidence float64 // transcript confidence
	Speech     bool    // gate decision, EventChunk only
	Energy     float64 // mean-square energy, EventChunk only
	Failures   int     // consecutive failures, EventDegraded only
	Err        error   // last failure, EventDegraded only
}
