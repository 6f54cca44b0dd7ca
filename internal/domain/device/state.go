package device

import "time"

// State is one device mode the engine can occupy.
type State string

const (
	// StateInit waits for any key to wake the device.
	StateInit State = "init"
	// StateRead accumulates the login password.
	StateRead State = "read"
	// StateVerify waits for the verification outcome.
	StateVerify State = "verify"
	// StateActive is the logged-in idle state.
	StateActive State = "active"
	// StateReadChange accumulates a new password.
	StateReadChange State = "read-change"
	// StateCacheChange waits for the outcome of storing a new password.
	StateCacheChange State = "cache-change"
	// StateChooseLED has an LED id selected and waits for a duration.
	StateChooseLED State = "choose-led"
	// StateSetDuration accumulates the LED duration in seconds.
	StateSetDuration State = "set-duration"
	// StateConfirmLogout waits for the second `*` of a logout.
	StateConfirmLogout State = "confirm-logout"
	// StateDone is reached after logout; any key returns to StateActive.
	StateDone State = "done"
)

// States lists every state in declaration order.
func States() []State {
	return []State{
		StateInit,
		StateRead,
		StateVerify,
		StateActive,
		StateReadChange,
		StateCacheChange,
		StateChooseLED,
		StateSetDuration,
		StateConfirmLogout,
		StateDone,
	}
}

// IsValid reports whether the state is a member of the fixed set.
func (s State) IsValid() bool {
	for _, known := range States() {
		if s == known {
			return true
		}
	}

	return false
}

// String returns the state name.
func (s State) String() string {
	return string(s)
}

// Status is an observable snapshot of the controller.
type Status struct {
	// UpdatedAt is when the snapshot was last changed.
	UpdatedAt time.Time
	// State is the engine's current state.
	State State
	// LastSignal is the most recent signal fed to the engine.
	LastSignal Signal
	// SessionID identifies the current login session, empty when logged out.
	SessionID string
	// LoggedIn reports whether a password has been accepted since the last logout.
	LoggedIn bool
	// StopRequested reports whether a supervisor asked the controller to stop.
	StopRequested bool
}

// Clone returns a copy of the status.
func (s *Status) Clone() *Status {
	if s == nil {
		return nil
	}

	cloned := *s

	return &cloned
}
