// Package responder turns an accepted transcript into reply text.
package responder

import "context"

// Responder generates the reply spoken back to the caller.
type Responder interface {
	Respond(ctx context.Context, transcript string) (string, error)
}
