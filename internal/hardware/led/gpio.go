package led

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/oshokin/keypad-controller/internal/logger"
)

// Level is the output level of a pin.
type Level int

const (
	// Low drives the pin to ground.
	Low Level = iota
	// High drives the pin to supply voltage.
	High
)

// GPIO is the pin-level interface the board needs.
type GPIO interface {
	SetOutput(pin int, level Level) error
	SetInput(pin int) error
	Cleanup() error
}

// PinCount is the number of pins shared by the LEDs.
const PinCount = 3

// LEDCount is the number of addressable LEDs.
const LEDCount = 6

// pinSetting is the tri-state setting of one pin.
type pinSetting int8

const (
	pinInput pinSetting = iota
	pinLow
	pinHigh
)

// charlieplex maps every LED to the pin settings that light it.
//
//nolint:gochecknoglobals // Fixed wiring of the board.
var charlieplex = [LEDCount][PinCount]pinSetting{
	{pinHigh, pinLow, pinInput},
	{pinLow, pinHigh, pinInput},
	{pinInput, pinHigh, pinLow},
	{pinInput, pinLow, pinHigh},
	{pinHigh, pinInput, pinLow},
	{pinLow, pinInput, pinHigh},
}

// Simulator is an in-memory GPIO. It tracks pin settings, logs every LED
// that lights up and keeps the order in which they did.
type Simulator struct {
	log     *zap.SugaredLogger
	pins    [PinCount]pinSetting
	lit     int
	history []int
	mu      sync.Mutex
}

// NewSimulator creates a simulator with every pin as an input.
func NewSimulator(ctx context.Context) *Simulator {
	return &Simulator{
		log: logger.FromContext(ctx).Named("gpio"),
		lit: -1,
	}
}

// SetOutput drives the pin to the level.
func (s *Simulator) SetOutput(pin int, level Level) error {
	setting := pinLow
	if level == High {
		setting = pinHigh
	}

	return s.set(pin, setting)
}

// SetInput switches the pin to high impedance.
func (s *Simulator) SetInput(pin int) error {
	return s.set(pin, pinInput)
}

// Cleanup releases every pin.
func (s *Simulator) Cleanup() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.pins = [PinCount]pinSetting{}
	s.observe()

	return nil
}

// Lit returns the LED currently lit, or -1.
func (s *Simulator) Lit() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.lit
}

// History returns the LEDs in the order they lit up.
func (s *Simulator) History() []int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return append([]int(nil), s.history...)
}

func (s *Simulator) set(pin int, setting pinSetting) error {
	if pin < 0 || pin >= PinCount {
		return ErrUnknownPin
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.pins[pin] = setting
	s.observe()

	return nil
}

// observe records a newly lit LED. Callers hold mu.
func (s *Simulator) observe() {
	lit := -1

	for id, pattern := range charlieplex {
		if pattern == s.pins {
			lit = id

			break
		}
	}

	if lit == s.lit {
		return
	}

	s.lit = lit

	if lit >= 0 {
		s.history = append(s.history, lit)
		s.log.Debugw("LED lit", "led", lit)
	}
}
