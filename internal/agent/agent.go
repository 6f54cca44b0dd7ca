package agent

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"

	"github.com/oshokin/keypad-controller/internal/config"
	"github.com/oshokin/keypad-controller/internal/domain/device"
	"github.com/oshokin/keypad-controller/internal/fsm"
	"github.com/oshokin/keypad-controller/internal/logger"
	"github.com/oshokin/keypad-controller/internal/repository/credential"
)

// maxEntryDigits caps every digit buffer.
const maxEntryDigits = 32

// Board is the LED output device used by the actions.
type Board interface {
	PowerUp(ctx context.Context) error
	PowerDown(ctx context.Context) error
	Flash(ctx context.Context, d time.Duration) error
	Twinkle(ctx context.Context, d time.Duration) error
	Light(ctx context.Context, id int, d time.Duration) error
}

// Agent is the action catalog bound into the rule table.
// It is driven by a single engine and is not safe for concurrent use.
type Agent struct {
	// source delivers physical keys.
	source fsm.SignalSource
	// board shows feedback.
	board Board
	// store keeps the password.
	store credential.Store
	// timings holds LED sequence durations.
	timings config.LEDTimings
	// minLength is the shortest accepted new password.
	minLength int

	// last is the most recent key received from source.
	last device.Signal
	// entry accumulates the login password.
	entry []byte
	// newPassword accumulates a password change.
	newPassword []byte
	// ledID is the selected LED, -1 when none.
	ledID int
	// duration accumulates the LED duration in seconds.
	duration []byte
	// sessionID identifies the login session, empty when logged out.
	sessionID string
	// exited is set by Exit.
	exited bool
}

var _ fsm.Catalog = (*Agent)(nil)

// Option configures an Agent.
type Option func(*Agent)

// WithTimings sets the LED sequence durations.
func WithTimings(timings config.LEDTimings) Option {
	return func(a *Agent) {
		a.timings = timings
	}
}

// WithMinPasswordLength sets the shortest accepted new password.
func WithMinPasswordLength(n int) Option {
	return func(a *Agent) {
		if n > 0 {
			a.minLength = n
		}
	}
}

// New creates an agent reading keys from source.
func New(source fsm.SignalSource, board Board, store credential.Store, opts ...Option) *Agent {
	a := &Agent{
		source:    source,
		board:     board,
		store:     store,
		timings:   config.DefaultLEDTimings(),
		minLength: config.DefaultMinPasswordLength,
		ledID:     -1,
	}

	for _, opt := range opts {
		opt(a)
	}

	return a
}

// NextSignal relays the next key from the source and remembers it.
func (a *Agent) NextSignal(ctx context.Context) (device.Signal, error) {
	sig, err := a.source.NextSignal(ctx)
	if err != nil {
		return device.SignalNone, err
	}

	a.last = sig

	return sig, nil
}

// Last returns the most recent key.
func (a *Agent) Last() device.Signal {
	return a.last
}

// Entry returns the login password typed so far.
func (a *Agent) Entry() string {
	return string(a.entry)
}

// NewPassword returns the new password typed so far.
func (a *Agent) NewPassword() string {
	return string(a.newPassword)
}

// LEDID returns the selected LED, or -1.
func (a *Agent) LEDID() int {
	return a.ledID
}

// Duration returns the LED duration typed so far.
func (a *Agent) Duration() string {
	return string(a.duration)
}

// LoggedIn reports whether a login session is open.
func (a *Agent) LoggedIn() bool {
	return a.sessionID != ""
}

// SessionID returns the login session id, empty when logged out.
func (a *Agent) SessionID() string {
	return a.sessionID
}

// Exited reports whether Exit has run.
func (a *Agent) Exited() bool {
	return a.exited
}

// WakeUp flashes the board and starts a fresh entry.
func (a *Agent) WakeUp(ctx context.Context) (device.Signal, error) {
	a.clear()

	logger.Debug(ctx, "Waking up")

	return device.SignalNone, a.board.Flash(ctx, a.timings.Wake)
}

// AppendDigit adds the last key to the login entry.
func (a *Agent) AppendDigit(ctx context.Context) (device.Signal, error) {
	a.entry = appendDigit(ctx, a.entry, a.last)

	return device.SignalNone, nil
}

// VerifyPassword compares the login entry with the stored password and
// returns accept or reject. A store failure rejects the entry.
func (a *Agent) VerifyPassword(ctx context.Context) (device.Signal, error) {
	entry := string(a.entry)
	a.entry = a.entry[:0]

	stored, err := a.store.Load(ctx)
	if err != nil {
		return device.SignalReject, multierr.Append(
			fmt.Errorf("load password: %w", err),
			a.board.Flash(ctx, a.timings.Wrong),
		)
	}

	if entry != stored {
		logger.Warn(ctx, "Wrong password")

		return device.SignalReject, a.board.Flash(ctx, a.timings.Wrong)
	}

	logger.Info(ctx, "Password accepted")

	return device.SignalAccept, a.board.Twinkle(ctx, a.timings.Correct)
}

// ResetPasswordEntry clears the entry buffers and shows the power-up sequence.
func (a *Agent) ResetPasswordEntry(ctx context.Context) (device.Signal, error) {
	a.clear()

	return device.SignalNone, a.board.PowerUp(ctx)
}

// ClearBuffer clears the entry buffers without lighting anything.
func (a *Agent) ClearBuffer(context.Context) (device.Signal, error) {
	a.clear()

	return device.SignalNone, nil
}

// FullyActivate opens a login session.
func (a *Agent) FullyActivate(ctx context.Context) (device.Signal, error) {
	a.clear()

	id, err := uuid.NewV7()
	if err != nil {
		return device.SignalNone, fmt.Errorf("new session id: %w", err)
	}

	a.sessionID = id.String()

	logger.InfoKV(ctx, "Session opened", "session_id", a.sessionID)

	return device.SignalNone, a.board.Twinkle(ctx, a.timings.Activate)
}

// StartPasswordChange begins a new password with the last key.
func (a *Agent) StartPasswordChange(ctx context.Context) (device.Signal, error) {
	a.clear()
	a.newPassword = appendDigit(ctx, a.newPassword, a.last)

	return device.SignalNone, nil
}

// AppendNewDigit adds the last key to the new password.
func (a *Agent) AppendNewDigit(ctx context.Context) (device.Signal, error) {
	a.newPassword = appendDigit(ctx, a.newPassword, a.last)

	return device.SignalNone, nil
}

// CachePasswordChange validates and stores the new password. It returns
// accept when the store holds the new password and reject otherwise; a
// rejected change keeps the old password.
func (a *Agent) CachePasswordChange(ctx context.Context) (device.Signal, error) {
	password := string(a.newPassword)
	a.newPassword = a.newPassword[:0]

	if err := ValidateNewPassword(password, a.minLength); err != nil {
		logger.WarnKV(ctx, "New password rejected", "error", err)

		return device.SignalReject, a.board.Flash(ctx, a.timings.Wrong)
	}

	if err := a.store.Save(ctx, password); err != nil {
		return device.SignalReject, multierr.Append(
			fmt.Errorf("save password: %w", err),
			a.board.Flash(ctx, a.timings.Wrong),
		)
	}

	logger.Info(ctx, "Password changed")

	return device.SignalAccept, a.board.Twinkle(ctx, a.timings.Correct)
}

// SetLEDID selects the LED named by the last key.
func (a *Agent) SetLEDID(ctx context.Context) (device.Signal, error) {
	a.clear()
	a.ledID = a.last.Digit()

	logger.DebugKV(ctx, "LED selected", "led", a.ledID)

	return device.SignalNone, nil
}

// AppendDurationDigit adds the last key to the LED duration.
func (a *Agent) AppendDurationDigit(ctx context.Context) (device.Signal, error) {
	a.duration = appendDigit(ctx, a.duration, a.last)

	return device.SignalNone, nil
}

// LightOneLED lights the selected LED for the typed number of seconds.
// Durations above the configured maximum are clamped.
func (a *Agent) LightOneLED(ctx context.Context) (device.Signal, error) {
	id, digits := a.ledID, string(a.duration)
	a.clear()

	d, clamped, err := parseDuration(digits, a.timings.MaxDuration)
	if err != nil {
		return device.SignalNone, fmt.Errorf("parse duration %q: %w", digits, err)
	}

	if clamped {
		logger.WarnKV(ctx, "LED duration clamped", "requested_seconds", digits, "limit", d)
	}

	logger.InfoKV(ctx, "Lighting LED", "led", id, "duration", d)

	return device.SignalNone, a.board.Light(ctx, id, d)
}

// parseDuration reads digits as whole seconds. Values above limit, including
// ones too large for time.Duration, come back as limit. A non-positive limit
// only bounds the result to the largest representable duration.
func parseDuration(digits string, limit time.Duration) (time.Duration, bool, error) {
	if limit <= 0 {
		limit = time.Duration(math.MaxInt64)
	}

	seconds, err := strconv.ParseUint(digits, 10, 64)

	switch {
	case errors.Is(err, strconv.ErrRange):
		return limit, true, nil
	case err != nil:
		return 0, false, err
	case seconds > uint64(limit/time.Second):
		return limit, true, nil
	}

	return time.Duration(seconds) * time.Second, false, nil
}

// Logout closes the login session and shows the power-down sequence.
func (a *Agent) Logout(ctx context.Context) (device.Signal, error) {
	a.clear()

	if a.sessionID != "" {
		logger.InfoKV(ctx, "Session closed", "session_id", a.sessionID)
	}

	a.sessionID = ""

	return device.SignalNone, a.board.PowerDown(ctx)
}

// Exit wipes every buffer and ends the session. The board has already been
// powered down by the engine.
func (a *Agent) Exit(ctx context.Context) error {
	a.clear()
	a.sessionID = ""
	a.exited = true

	logger.Info(ctx, "Keypad controller exited")

	return nil
}

// clear empties every entry buffer.
func (a *Agent) clear() {
	a.entry = a.entry[:0]
	a.newPassword = a.newPassword[:0]
	a.duration = a.duration[:0]
	a.ledID = -1
}

// appendDigit appends sig to buf when it is a digit and buf has room.
func appendDigit(ctx context.Context, buf []byte, sig device.Signal) []byte {
	if !sig.IsDigit() {
		logger.WarnKV(ctx, "Ignoring non-digit key", "key", sig)

		return buf
	}

	if len(buf) >= maxEntryDigits {
		logger.WarnKV(ctx, "Entry is full", "limit", maxEntryDigits)

		return buf
	}

	return append(buf, byte(sig))
}
