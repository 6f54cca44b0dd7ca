package fsm

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"go.uber.org/multierr"

	"github.com/oshokin/keypad-controller/internal/domain/device"
	"github.com/oshokin/keypad-controller/internal/logger"
)

// SignalSource blocks until the next signal is available. It returns io.EOF
// once no more signals will arrive.
type SignalSource interface {
	NextSignal(ctx context.Context) (device.Signal, error)
}

// Device is the part of the output device the engine drives directly.
type Device interface {
	PowerDown(ctx context.Context) error
}

// Exiter performs the catalog's exit sequence.
type Exiter interface {
	Exit(ctx context.Context) error
}

// Observer receives every step result after it has been logged.
type Observer func(ctx context.Context, result MatchResult)

// Outcome classifies a step.
type Outcome int

const (
	// OutcomeNoMatch means no rule covers the state and signal.
	OutcomeNoMatch Outcome = iota
	// OutcomeFired means a rule matched and its action ran.
	OutcomeFired
)

// String returns a label for logs.
func (o Outcome) String() string {
	if o == OutcomeFired {
		return "fired"
	}

	return "no-match"
}

// MatchResult is the explicit result of one step.
type MatchResult struct {
	// Outcome tells whether a rule fired.
	Outcome Outcome
	// Index is the position of the fired rule, -1 otherwise.
	Index int
	// Rule is the fired rule; zero on no match.
	Rule Rule
	// From is the state the signal arrived in.
	From device.State
	// To is the state after the step; equal to From on no match.
	To device.State
	// Signal is the consumed signal.
	Signal device.Signal
	// FollowUp is the signal returned by the action, or device.SignalNone.
	FollowUp device.Signal
	// Err is the action's error, or ErrNotInitialized.
	Err error
}

// Fired reports whether a rule fired.
func (r MatchResult) Fired() bool {
	return r.Outcome == OutcomeFired
}

const defaultShutdownTimeout = 30 * time.Second

var (
	// ErrNotInitialized is returned when the engine is used before Initialize.
	ErrNotInitialized = errors.New("engine is not initialized")
	// ErrAlreadyInitialized is returned by a second Initialize call.
	ErrAlreadyInitialized = errors.New("engine is already initialized")
)

// Engine owns the current state and steps the rule table.
// It is not safe for concurrent use: exactly one goroutine drives it.
type Engine struct {
	table  *Table
	source SignalSource
	device Device
	exiter Exiter

	shouldStop      func() bool
	observers       []Observer
	shutdownTimeout time.Duration

	state       device.State
	pending     device.Signal
	initialized bool
}

// Option configures the engine.
type Option func(*Engine)

// WithStopPolicy sets the external decision consulted at the Active+# checkpoint.
// Without it the engine never stops at the checkpoint.
func WithStopPolicy(shouldStop func() bool) Option {
	return func(e *Engine) {
		if shouldStop != nil {
			e.shouldStop = shouldStop
		}
	}
}

// WithObserver registers a callback for every step result.
func WithObserver(observer Observer) Option {
	return func(e *Engine) {
		if observer != nil {
			e.observers = append(e.observers, observer)
		}
	}
}

// WithShutdownTimeout bounds the power-down and exit sequence.
func WithShutdownTimeout(timeout time.Duration) Option {
	return func(e *Engine) {
		if timeout > 0 {
			e.shutdownTimeout = timeout
		}
	}
}

// NewEngine creates an engine over the table. The source, device and exiter
// are owned by the caller and used only by this engine.
func NewEngine(table *Table, source SignalSource, dev Device, exiter Exiter, opts ...Option) *Engine {
	e := &Engine{
		table:           table,
		source:          source,
		device:          dev,
		exiter:          exiter,
		shouldStop:      func() bool { return false },
		shutdownTimeout: defaultShutdownTimeout,
	}

	for _, opt := range opts {
		opt(e)
	}

	return e
}

// Initialize sets the start state and freezes the table. It may be called once.
func (e *Engine) Initialize(start device.State) error {
	if e.initialized {
		return ErrAlreadyInitialized
	}

	if !start.IsValid() {
		return fmt.Errorf("%w: unknown start state %q", ErrInvalidRule, start)
	}

	e.table.freeze()
	e.state = start
	e.initialized = true

	return nil
}

// State returns the current state.
func (e *Engine) State() device.State {
	return e.state
}

// IsTerminal reports whether the state and signal form the Active+# checkpoint.
// The checkpoint only allows a stop; it is not a halting state.
func (e *Engine) IsTerminal(state device.State, sig device.Signal) bool {
	return state == device.StateActive && sig == device.SignalHash
}

// Step fires the first rule matching the current state and the signal.
// On no match the state is left untouched.
func (e *Engine) Step(ctx context.Context, sig device.Signal) MatchResult {
	result := MatchResult{
		Outcome:  OutcomeNoMatch,
		Index:    -1,
		From:     e.state,
		To:       e.state,
		Signal:   sig,
		FollowUp: device.SignalNone,
	}

	if !e.initialized {
		result.Err = ErrNotInitialized

		return result
	}

	index, ok := e.table.Match(e.state, sig)
	if !ok {
		return result
	}

	rule := e.table.rules[index]
	e.state = rule.To

	result.Outcome = OutcomeFired
	result.Index = index
	result.Rule = rule
	result.To = rule.To
	result.FollowUp, result.Err = rule.Action(ctx)

	return result
}

// Run steps the engine until the source is exhausted, ctx is cancelled, or
// the stop policy agrees to stop at the Active+# checkpoint. Each exit path
// runs the power-down and exit sequence.
func (e *Engine) Run(ctx context.Context) error {
	if !e.initialized {
		return ErrNotInitialized
	}

	ctx = logger.WithName(ctx, "engine")
	logger.InfoKV(ctx, "Engine started", "state", e.state, "rules", e.table.Len())

	for {
		sig, err := e.next(ctx)
		if err != nil {
			return e.finish(ctx, err)
		}

		if e.IsTerminal(e.state, sig) && e.shouldStop() {
			logger.Info(ctx, "Stop requested at checkpoint, shutting down")

			return e.shutdown(ctx)
		}

		result := e.Step(ctx, sig)
		e.pending = result.FollowUp

		e.report(ctx, result)
	}
}

// next returns the pending follow-up signal or blocks on the source.
func (e *Engine) next(ctx context.Context) (device.Signal, error) {
	if e.pending != device.SignalNone {
		sig := e.pending
		e.pending = device.SignalNone

		return sig, nil
	}

	if err := ctx.Err(); err != nil {
		return device.SignalNone, err
	}

	return e.source.NextSignal(ctx)
}

func (e *Engine) report(ctx context.Context, result MatchResult) {
	if !result.Fired() {
		logger.WarnKV(ctx, "No rule matches", "state", result.From, "signal", result.Signal)
	} else {
		logger.DebugKV(ctx, "Rule fired",
			"rule", result.Index,
			"action", result.Rule.Name,
			"from", result.From,
			"to", result.To,
			"signal", result.Signal,
		)
	}

	if result.Err != nil {
		logger.ErrorKV(ctx, "Action failed", "action", result.Rule.Name, "state", result.To, "error", result.Err)
	}

	for _, observer := range e.observers {
		observer(ctx, result)
	}
}

// finish handles a source error: end of input and cancellation are normal exits.
func (e *Engine) finish(ctx context.Context, err error) error {
	if errors.Is(err, io.EOF) || errors.Is(err, context.Canceled) {
		logger.InfoKV(ctx, "Signal source closed, shutting down", "reason", err)

		return e.shutdown(ctx)
	}

	logger.ErrorKV(ctx, "Signal source failed, shutting down", "error", err)

	return multierr.Append(fmt.Errorf("next signal: %w", err), e.shutdown(ctx))
}

// shutdown powers the device down and runs the exit sequence. It survives a
// cancelled ctx so the sequence still completes after SIGINT.
func (e *Engine) shutdown(ctx context.Context) error {
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), e.shutdownTimeout)
	defer cancel()

	var err error

	if e.device != nil {
		err = multierr.Append(err, e.device.PowerDown(shutdownCtx))
	}

	if e.exiter != nil {
		err = multierr.Append(err, e.exiter.Exit(shutdownCtx))
	}

	if err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}

	logger.Info(ctx, "Engine stopped")

	return nil
}
