package keypad

import (
	"context"
	"io"

	"github.com/oshokin/keypad-controller/internal/domain/device"
)

// Script replays a fixed sequence of key presses.
type Script struct {
	signals []device.Signal
}

// NewScript parses keys such as "1234#" into a script.
func NewScript(keys string) (*Script, error) {
	signals, err := device.ParseSignals(keys)
	if err != nil {
		return nil, err
	}

	return &Script{signals: signals}, nil
}

// Remaining returns the number of presses not yet delivered.
func (s *Script) Remaining() int {
	return len(s.signals)
}

// NextSignal returns the next press, or io.EOF when the script is exhausted.
func (s *Script) NextSignal(ctx context.Context) (device.Signal, error) {
	if err := ctx.Err(); err != nil {
		return device.SignalNone, err
	}

	if len(s.signals) == 0 {
		return device.SignalNone, io.EOF
	}

	sig := s.signals[0]
	s.signals = s.signals[1:]

	return sig, nil
}
