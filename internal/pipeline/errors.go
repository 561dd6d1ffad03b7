package pipeline

import "errors"

var (
	// ErrSessionClosed is returned by operations on a session after teardown.
	ErrSessionClosed = errors.New("pipeline: session closed")

	// ErrSessionNotFound is returned when no session has the given id.
	ErrSessionNotFound = errors.New("pipeline: session not found")

	// ErrMaxSessionsReached is returned by Open when the table is full.
	ErrMaxSessionsReached = errors.New("pipeline: maximum concurrent sessions reached")

	// ErrInvalidFrame is wrapped by OnFrame for frames that cannot be processed.
	ErrInvalidFrame = errors.New("pipeline: invalid frame")
)
