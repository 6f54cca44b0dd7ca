package device

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// TestParseSignals verifies the physical alphabet is accepted and everything else rejected.
func TestParseSignals(t *testing.T) {
	t.Parallel()

	got, err := ParseSignals("12 3*#\n0")
	require.NoError(t, err)
	require.Equal(t, []Signal{'1', '2', '3', SignalStar, SignalHash, '0'}, got)

	_, err = ParseSignals("12a")
	require.ErrorIs(t, err, ErrUnknownSignal)

	// Synthetic values cannot be typed.
	_, err = ParseSignal('Y')
	require.ErrorIs(t, err, ErrUnknownSignal)
}

// TestSignalSet checks membership, the any-set boundary and rendering.
func TestSignalSet(t *testing.T) {
	t.Parallel()

	low := Range('0', '5')
	require.True(t, low.Contains('0'))
	require.True(t, low.Contains('5'))
	require.False(t, low.Contains('6'))
	require.False(t, low.Contains(SignalHash))

	// Bounds at the top of the byte range terminate.
	require.Equal(t, Digits, Range('0', 255))
	require.True(t, Range(200, 255).IsEmpty())
	require.True(t, Range('7', '3').IsEmpty())

	require.True(t, Physical.Contains(SignalStar))
	require.True(t, Physical.Contains(SignalHash))
	require.False(t, Physical.Contains(SignalAccept))
	require.False(t, Physical.Contains(SignalReject))
	require.False(t, Physical.Contains(SignalNone))

	require.True(t, low.SubsetOf(Digits))
	require.True(t, Physical.SubsetOf(Alphabet))
	require.False(t, Alphabet.SubsetOf(Physical))
	require.True(t, Digits.Without(low).Intersect(low).IsEmpty())

	require.Equal(t, "0-5", low.String())
	require.Equal(t, "0-9,*,#", Physical.String())
	require.Equal(t, "0-9,*,#,reject", Physical.Union(Of(SignalReject)).String())
	require.Equal(t, "1,3-4,accept", Of('1', '3', '4', SignalAccept).String())
	require.Equal(t, "none", SignalSet(0).String())

	require.Equal(t, []Signal{'7', SignalStar, SignalAccept}, Of(SignalAccept, '7', SignalStar).Signals())
}

// TestSignalDigit covers digit helpers.
func TestSignalDigit(t *testing.T) {
	t.Parallel()

	require.Equal(t, 7, Signal('7').Digit())
	require.Equal(t, -1, SignalHash.Digit())
	require.True(t, SignalAccept.IsSynthetic())
	require.False(t, SignalStar.IsSynthetic())
	require.Equal(t, "reject", SignalReject.String())
}

// TestStatusClone verifies that Clone copies fields and handles nil safely.
func TestStatusClone(t *testing.T) {
	t.Parallel()
	require.Nil(t, (*Status)(nil).Clone())

	s := &Status{
		State:      StateActive,
		LastSignal: SignalHash,
		LoggedIn:   true,
		SessionID:  "session",
	}

	c := s.Clone()
	require.Equal(t, s, c)
	require.NotSame(t, s, c)
	require.True(t, StateDone.IsValid())
	require.False(t, State("bogus").IsValid())
}
