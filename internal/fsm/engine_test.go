package fsm

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/oshokin/keypad-controller/internal/domain/device"
)

var errSourceBroken = errors.New("source broken")

// brokenSource always fails.
type brokenSource struct{}

func (brokenSource) NextSignal(context.Context) (device.Signal, error) {
	return device.SignalNone, errSourceBroken
}

func newTestEngine(t *testing.T, catalog *recordingCatalog, start device.State, opts ...Option) (*Engine, *countingDevice) {
	t.Helper()

	table, err := Build(catalog)
	require.NoError(t, err)

	dev := new(countingDevice)
	engine := NewEngine(table, newSliceSource(""), dev, catalog, opts...)
	require.NoError(t, engine.Initialize(start))

	return engine, dev
}

// TestEngine_InitializeOnce verifies the start state can be set exactly once.
func TestEngine_InitializeOnce(t *testing.T) {
	t.Parallel()

	table, err := Build(new(recordingCatalog))
	require.NoError(t, err)

	engine := NewEngine(table, newSliceSource(""), nil, nil)

	result := engine.Step(context.Background(), '1')
	require.False(t, result.Fired())
	require.ErrorIs(t, result.Err, ErrNotInitialized)
	require.ErrorIs(t, engine.Run(context.Background()), ErrNotInitialized)

	require.Error(t, engine.Initialize("limbo"))
	require.NoError(t, engine.Initialize(device.StateInit))
	require.ErrorIs(t, engine.Initialize(device.StateActive), ErrAlreadyInitialized)
	require.Equal(t, device.StateInit, engine.State())

	// The table is read-only once the engine owns it.
	require.ErrorIs(t, table.Append(Rule{
		Name: "late", From: device.StateDone, On: device.Physical, To: device.StateInit, Action: noop,
	}), ErrTableFrozen)
}

// TestEngine_NoMatchLeavesStateUnchanged walks every uncovered state and signal pair.
func TestEngine_NoMatchLeavesStateUnchanged(t *testing.T) {
	t.Parallel()

	table, err := Build(new(recordingCatalog))
	require.NoError(t, err)

	uncovered := 0

	for _, state := range device.States() {
		for _, sig := range device.Alphabet.Signals() {
			if _, ok := table.Match(state, sig); ok {
				continue
			}

			uncovered++

			catalog := new(recordingCatalog)
			engine, _ := newTestEngine(t, catalog, state)

			result := engine.Step(context.Background(), sig)
			require.Equal(t, OutcomeNoMatch, result.Outcome, "%s on %s", state, sig)
			require.Equal(t, -1, result.Index)
			require.Equal(t, state, engine.State())
			require.Equal(t, state, result.To)
			require.NoError(t, result.Err)
			require.Empty(t, catalog.calls)
		}
	}

	// Synthetic signals outside Verify and CacheChange are never covered.
	require.Positive(t, uncovered)
}

// TestEngine_FirstMatchWins checks priority for overlapping rules at any table size.
func TestEngine_FirstMatchWins(t *testing.T) {
	t.Parallel()

	for _, filler := range []int{0, 1, 10, 100} {
		t.Run(fmt.Sprintf("filler-%d", filler), func(t *testing.T) {
			t.Parallel()

			var fired []string

			action := func(name string) Action {
				return func(context.Context) (device.Signal, error) {
					fired = append(fired, name)

					return device.SignalNone, nil
				}
			}

			table, err := NewTable()
			require.NoError(t, err)

			for i := range filler {
				require.NoError(t, table.Append(Rule{
					Name: fmt.Sprintf("filler-%d", i), From: device.StateDone,
					On: device.Physical, To: device.StateDone, Action: action("filler"),
				}))
			}

			require.NoError(t, table.Append(Rule{
				Name: "narrow", From: device.StateActive, On: device.Range('0', '5'),
				To: device.StateChooseLED, Action: action("narrow"),
			}))
			require.NoError(t, table.Append(Rule{
				Name: "wide", From: device.StateActive, On: device.Digits,
				To: device.StateReadChange, Action: action("wide"),
			}))

			for _, sig := range []device.Signal{'0', '5', '6', '9'} {
				engine := NewEngine(table, newSliceSource(""), nil, nil)
				require.NoError(t, engine.Initialize(device.StateActive))

				want := filler
				if sig > '5' {
					want++
				}

				result := engine.Step(context.Background(), sig)
				require.True(t, result.Fired())
				require.Equal(t, want, result.Index)
			}

			require.Equal(t, []string{"narrow", "narrow", "wide", "wide"}, fired)
		})
	}
}

// TestEngine_IsTerminal checks the Active+# checkpoint predicate.
func TestEngine_IsTerminal(t *testing.T) {
	t.Parallel()

	engine, _ := newTestEngine(t, new(recordingCatalog), device.StateInit)

	for _, state := range device.States() {
		for _, sig := range device.Alphabet.Signals() {
			want := state == device.StateActive && sig == device.SignalHash
			require.Equal(t, want, engine.IsTerminal(state, sig), "%s on %s", state, sig)
		}
	}
}

// TestEngine_StepFeedsFollowUp verifies the verification outcome comes back as a follow-up signal.
func TestEngine_StepFeedsFollowUp(t *testing.T) {
	t.Parallel()

	catalog := &recordingCatalog{verifyResult: device.SignalAccept}
	engine, _ := newTestEngine(t, catalog, device.StateRead)

	result := engine.Step(context.Background(), device.SignalHash)
	require.True(t, result.Fired())
	require.Equal(t, device.StateVerify, result.To)
	require.Equal(t, device.SignalAccept, result.FollowUp)

	result = engine.Step(context.Background(), result.FollowUp)
	require.True(t, result.Fired())
	require.Equal(t, device.StateActive, engine.State())
	require.Equal(t, []string{"verify-password", "fully-activate"}, catalog.calls)
}

// TestEngine_RunLogin drives a complete login through Run.
func TestEngine_RunLogin(t *testing.T) {
	t.Parallel()

	catalog := &recordingCatalog{verifyResult: device.SignalAccept}

	table, err := Build(catalog)
	require.NoError(t, err)

	var results []MatchResult

	dev := new(countingDevice)
	engine := NewEngine(table, newSliceSource("51234#"), dev, catalog,
		WithObserver(func(_ context.Context, r MatchResult) { results = append(results, r) }))

	require.NoError(t, engine.Initialize(device.StateInit))
	require.NoError(t, engine.Run(context.Background()))

	require.Equal(t, device.StateActive, engine.State())
	require.Equal(t, []string{
		"wake-up", "append-digit", "append-digit", "append-digit", "append-digit",
		"verify-password", "fully-activate",
	}, catalog.calls)

	accepts := 0

	for _, r := range results {
		if r.Signal == device.SignalAccept {
			accepts++
		}
	}

	require.Equal(t, 1, accepts)

	// End of input powers the device down and exits.
	require.Equal(t, 1, dev.powerDowns)
	require.True(t, catalog.exited)
}

// TestEngine_RunStopsAtCheckpoint verifies the stop policy is consulted only at Active+#.
func TestEngine_RunStopsAtCheckpoint(t *testing.T) {
	t.Parallel()

	catalog := new(recordingCatalog)

	table, err := Build(catalog)
	require.NoError(t, err)

	var checks int

	dev := new(countingDevice)
	source := newSliceSource("**1#9")
	engine := NewEngine(table, source, dev, catalog, WithStopPolicy(func() bool {
		checks++

		return true
	}))

	require.NoError(t, engine.Initialize(device.StateActive))
	require.NoError(t, engine.Run(context.Background()))

	// `*` `*` logs out, `1` wakes back to Active, `#` hits the checkpoint.
	require.Equal(t, 1, checks)
	require.Equal(t, []string{"clear-buffer", "logout", "wake-up"}, catalog.calls)
	require.Equal(t, device.StateActive, engine.State())
	require.Equal(t, []device.Signal{'9'}, source.signals)
	require.Equal(t, 1, dev.powerDowns)
	require.True(t, catalog.exited)
}

// TestEngine_RunWithoutStopPolicyPassesCheckpoint ensures the checkpoint is not a halt.
func TestEngine_RunWithoutStopPolicyPassesCheckpoint(t *testing.T) {
	t.Parallel()

	catalog := new(recordingCatalog)

	table, err := Build(catalog)
	require.NoError(t, err)

	engine := NewEngine(table, newSliceSource("#"), new(countingDevice), catalog)
	require.NoError(t, engine.Initialize(device.StateActive))
	require.NoError(t, engine.Run(context.Background()))

	require.Equal(t, device.StateReadChange, engine.State())
}

// TestEngine_RunLogoutCancel ensures a non-star key in ConfirmLogout goes back to Active.
func TestEngine_RunLogoutCancel(t *testing.T) {
	t.Parallel()

	catalog := new(recordingCatalog)

	table, err := Build(catalog)
	require.NoError(t, err)

	var visited []device.State

	engine := NewEngine(table, newSliceSource("*7"), new(countingDevice), catalog,
		WithObserver(func(_ context.Context, r MatchResult) { visited = append(visited, r.To) }))
	require.NoError(t, engine.Initialize(device.StateActive))
	require.NoError(t, engine.Run(context.Background()))

	require.Equal(t, []device.State{device.StateConfirmLogout, device.StateActive}, visited)
	require.Equal(t, []string{"clear-buffer", "clear-buffer"}, catalog.calls)
}

// TestEngine_RunSourceError ensures a failing source still shuts the device down.
func TestEngine_RunSourceError(t *testing.T) {
	t.Parallel()

	catalog := new(recordingCatalog)

	table, err := Build(catalog)
	require.NoError(t, err)

	dev := new(countingDevice)
	engine := NewEngine(table, brokenSource{}, dev, catalog)
	require.NoError(t, engine.Initialize(device.StateInit))

	err = engine.Run(context.Background())
	require.ErrorIs(t, err, errSourceBroken)
	require.Equal(t, 1, dev.powerDowns)
	require.True(t, catalog.exited)
}

// TestEngine_RunCancelled ensures a cancelled context ends the loop cleanly.
func TestEngine_RunCancelled(t *testing.T) {
	t.Parallel()

	catalog := new(recordingCatalog)
	engine, dev := newTestEngine(t, catalog, device.StateInit)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	require.NoError(t, engine.Run(ctx))
	require.Empty(t, catalog.calls)
	require.Equal(t, 1, dev.powerDowns)
}
