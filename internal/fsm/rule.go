package fsm

import (
	"context"

	"github.com/oshokin/keypad-controller/internal/domain/device"
)

// Action is a deferred device operation bound when the table is built and
// invoked only when its rule fires. It may return a follow-up signal, which
// the engine feeds into the next step ahead of any physical input.
type Action func(ctx context.Context) (device.Signal, error)

// Rule is one transition: in state From, a signal from On moves the engine to
// To and runs Action.
type Rule struct {
	// Name labels the action in logs and listings.
	Name string
	// From is the source state.
	From device.State
	// On is the set of triggering signals.
	On device.SignalSet
	// To is the target state.
	To device.State
	// Action runs after the state change.
	Action Action
}

// Matches reports whether the rule applies to the state and signal.
func (r *Rule) Matches(state device.State, sig device.Signal) bool {
	return r.From == state && r.On.Contains(sig)
}
