package pipeline

import (
	"context"

	"github.com/looplab/fsm"
	"go.uber.org/zap"
)

// State is the processing state of a session.
type State string

const (
	StateIdle         State = "IDLE"
	StateAccumulating State = "ACCUMULATING"
	StateDeciding     State = "DECIDING"
	StateDispatching  State = "DISPATCHING"
	StateDiscarding   State = "DISCARDING"
	StateClosed       State = "CLOSED"
)

// fsm event names
const (
	evReceive  = "receive"
	evFlush    = "flush"
	evDispatch = "dispatch"
	evDiscard  = "discard"
	evResume   = "resume"
	evClose    = "close"
)

func newStateMachine(logger *zap.Logger) *fsm.FSM {
	open := []string{
		string(StateIdle),
		string(StateAccumulating),
		string(StateDeciding),
		string(StateDispatching),
		string(StateDiscarding),
	}

	return fsm.NewFSM(
		string(StateIdle),
		fsm.Events{
			{Name: evReceive, Src: []string{string(StateIdle)}, Dst: string(StateAccumulating)},
			{Name: evFlush, Src: []string{string(StateAccumulating)}, Dst: string(StateDeciding)},
			{Name: evDispatch, Src: []string{string(StateDeciding)}, Dst: string(StateDispatching)},
			{Name: evDiscard, Src: []string{string(StateDeciding)}, Dst: string(StateDiscarding)},
			{Name: evResume, Src: []string{string(StateDispatching), string(StateDiscarding)}, Dst: string(StateAccumulating)},
			{Name: evClose, Src: open, Dst: string(StateClosed)},
		},
		fsm.Callbacks{
			"enter_state": func(_ context.Context, e *fsm.Event) {
				logger.Debug("State changed", zap.String("from", e.Src), zap.String("to", e.Dst))
			},
		},
	)
}
