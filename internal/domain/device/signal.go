package device

import (
	"errors"
	"fmt"
	"strings"
)

// Signal is one symbol of the closed keypad alphabet.
type Signal byte

const (
	// SignalNone marks the absence of a signal, e.g. an action without a follow-up.
	SignalNone Signal = 0
	// SignalStar is the `*` key.
	SignalStar Signal = '*'
	// SignalHash is the `#` key.
	SignalHash Signal = '#'
	// SignalAccept is produced by a successful verification, never by the keypad.
	SignalAccept Signal = 'Y'
	// SignalReject is produced by a failed verification, never by the keypad.
	SignalReject Signal = 'N'
)

// ErrUnknownSignal is returned when a symbol is outside the keypad alphabet.
var ErrUnknownSignal = errors.New("unknown signal")

// ParseSignal converts a keypad symbol into a physical Signal.
// Synthetic signals cannot be parsed; only verification produces them.
func ParseSignal(r rune) (Signal, error) {
	switch {
	case r >= '0' && r <= '9', r == '*', r == '#':
		return Signal(r), nil
	default:
		return SignalNone, fmt.Errorf("%q: %w", r, ErrUnknownSignal)
	}
}

// ParseSignals converts a key string such as "1234#" into signals.
// Whitespace is ignored.
func ParseSignals(keys string) ([]Signal, error) {
	result := make([]Signal, 0, len(keys))

	for _, r := range keys {
		if r == ' ' || r == '\t' || r == '\n' || r == '\r' {
			continue
		}

		sig, err := ParseSignal(r)
		if err != nil {
			return nil, err
		}

		result = append(result, sig)
	}

	return result, nil
}

// IsDigit reports whether the signal is one of the keys 0..9.
func (s Signal) IsDigit() bool {
	return s >= '0' && s <= '9'
}

// Digit returns the numeric value of a digit signal, or -1.
func (s Signal) Digit() int {
	if !s.IsDigit() {
		return -1
	}

	return int(s - '0')
}

// IsSynthetic reports whether the signal is a verification outcome.
func (s Signal) IsSynthetic() bool {
	return s == SignalAccept || s == SignalReject
}

// String renders the signal for logs.
func (s Signal) String() string {
	switch s {
	case SignalNone:
		return "none"
	case SignalAccept:
		return "accept"
	case SignalReject:
		return "reject"
	default:
		return string(rune(s))
	}
}

// SignalSet is a set of signals backed by a bitmask.
type SignalSet uint16

const (
	bitStar   = 10
	bitHash   = 11
	bitAccept = 12
	bitReject = 13
)

var (
	// Digits covers the keys 0..9.
	Digits = Range('0', '9')
	// Physical is the full keypad alphabet: digits, `*` and `#`.
	// It never contains the synthetic verification outcomes.
	Physical = Digits.Union(Of(SignalStar, SignalHash))
	// Alphabet is every signal a rule may trigger on.
	Alphabet = Physical.Union(Of(SignalAccept, SignalReject))
)

// Of builds a set from the given signals. Unknown signals are skipped.
func Of(signals ...Signal) SignalSet {
	var set SignalSet

	for _, sig := range signals {
		if bit, ok := sig.bit(); ok {
			set |= 1 << bit
		}
	}

	return set
}

// Range builds the set of digits between low and high inclusive.
func Range(low, high Signal) SignalSet {
	var set SignalSet

	for digit := range 10 {
		if sig := Signal('0' + digit); sig >= low && sig <= high {
			set |= 1 << digit
		}
	}

	return set
}

// Union returns the signals present in either set.
func (s SignalSet) Union(other SignalSet) SignalSet {
	return s | other
}

// Intersect returns the signals present in both sets.
func (s SignalSet) Intersect(other SignalSet) SignalSet {
	return s & other
}

// Without returns the set with the other set's signals removed.
func (s SignalSet) Without(other SignalSet) SignalSet {
	return s &^ other
}

// Contains reports whether the signal is a member of the set.
func (s SignalSet) Contains(sig Signal) bool {
	bit, ok := sig.bit()
	if !ok {
		return false
	}

	return s&(1<<bit) != 0
}

// IsEmpty reports whether the set has no members.
func (s SignalSet) IsEmpty() bool {
	return s == 0
}

// SubsetOf reports whether every member of s is in other.
func (s SignalSet) SubsetOf(other SignalSet) bool {
	return s&^other == 0
}

// Signals lists members in alphabet order: digits, `*`, `#`, accept, reject.
func (s SignalSet) Signals() []Signal {
	result := make([]Signal, 0, bitReject+1)

	for bit := range bitReject + 1 {
		if s&(1<<bit) != 0 {
			result = append(result, signalForBit(bit))
		}
	}

	return result
}

// String renders the set compactly, e.g. "0-5", "0-9,*,#" or "accept".
func (s SignalSet) String() string {
	if s.IsEmpty() {
		return "none"
	}

	parts := make([]string, 0, 4)

	for low := 0; low <= 9; {
		if s&(1<<low) == 0 {
			low++
			continue
		}

		high := low
		for high+1 <= 9 && s&(1<<(high+1)) != 0 {
			high++
		}

		if high == low {
			parts = append(parts, string(rune('0'+low)))
		} else {
			parts = append(parts, fmt.Sprintf("%d-%d", low, high))
		}

		low = high + 1
	}

	for bit := bitStar; bit <= bitReject; bit++ {
		if s&(1<<bit) != 0 {
			parts = append(parts, signalForBit(bit).String())
		}
	}

	return strings.Join(parts, ",")
}

func (s Signal) bit() (int, bool) {
	switch {
	case s.IsDigit():
		return s.Digit(), true
	case s == SignalStar:
		return bitStar, true
	case s == SignalHash:
		return bitHash, true
	case s == SignalAccept:
		return bitAccept, true
	case s == SignalReject:
		return bitReject, true
	default:
		return 0, false
	}
}

func signalForBit(bit int) Signal {
	switch bit {
	case bitStar:
		return SignalStar
	case bitHash:
		return SignalHash
	case bitAccept:
		return SignalAccept
	case bitReject:
		return SignalReject
	default:
		return Signal('0' + bit)
	}
}
