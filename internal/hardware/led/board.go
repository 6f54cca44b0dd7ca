package led

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/oshokin/keypad-controller/internal/config"
	"github.com/oshokin/keypad-controller/internal/logger"
)

var (
	// ErrUnknownLED is returned for an LED id outside 0..5.
	ErrUnknownLED = errors.New("unknown led")
	// ErrUnknownPin is returned for a pin outside the board.
	ErrUnknownPin = errors.New("unknown pin")
)

// Board turns lighting requests into pin settings.
// Every method blocks for the nominal duration of its sequence.
type Board struct {
	gpio    GPIO
	timings config.LEDTimings
}

// NewBoard creates a board on top of the GPIO.
func NewBoard(gpio GPIO, timings config.LEDTimings) *Board {
	return &Board{
		gpio:    gpio,
		timings: timings,
	}
}

// LightLED lights one LED until the next pin change.
func (b *Board) LightLED(id int) error {
	if id < 0 || id >= LEDCount {
		return fmt.Errorf("%d: %w", id, ErrUnknownLED)
	}

	for pin, setting := range charlieplex[id] {
		var err error

		switch setting {
		case pinHigh:
			err = b.gpio.SetOutput(pin, High)
		case pinLow:
			err = b.gpio.SetOutput(pin, Low)
		default:
			err = b.gpio.SetInput(pin)
		}

		if err != nil {
			return fmt.Errorf("set pin %d: %w", pin, err)
		}
	}

	return nil
}

// Light keeps one LED lit for the duration, then turns the board off.
func (b *Board) Light(ctx context.Context, id int, d time.Duration) error {
	if err := b.LightLED(id); err != nil {
		return err
	}

	err := wait(ctx, d)

	return errors.Join(err, b.gpio.Cleanup())
}

// Flash lights the LEDs one at a time, in order, until the duration elapses.
func (b *Board) Flash(ctx context.Context, d time.Duration) error {
	deadline := time.Now().Add(d)

	err := b.sequence(ctx, func() (bool, error) {
		for id := range LEDCount {
			if err := b.LightLED(id); err != nil {
				return true, err
			}

			if time.Now().After(deadline) {
				return true, nil
			}

			if err := wait(ctx, b.timings.Step); err != nil {
				return true, err
			}
		}

		return false, nil
	})

	return errors.Join(err, b.gpio.Cleanup())
}

// Twinkle runs full passes over all LEDs until the duration elapses.
func (b *Board) Twinkle(ctx context.Context, d time.Duration) error {
	deadline := time.Now().Add(d)

	err := b.sequence(ctx, func() (bool, error) {
		for id := range LEDCount {
			if err := b.LightLED(id); err != nil {
				return true, err
			}

			if err := wait(ctx, b.timings.Step); err != nil {
				return true, err
			}
		}

		return time.Now().After(deadline), nil
	})

	return errors.Join(err, b.gpio.Cleanup())
}

// PowerUp signals the start of a password entry: LED 0 alone.
func (b *Board) PowerUp(ctx context.Context) error {
	logger.Debug(ctx, "Power-up sequence")

	return b.Light(ctx, 0, b.timings.PowerUp)
}

// PowerDown alternates LEDs 4 and 5.
func (b *Board) PowerDown(ctx context.Context) error {
	logger.Debug(ctx, "Power-down sequence")

	for range b.timings.PowerDownCycles {
		for _, id := range []int{4, 5} {
			if err := b.Light(ctx, id, b.timings.PowerDownPulse); err != nil {
				return err
			}

			if err := wait(ctx, b.timings.PowerDownGap); err != nil {
				return err
			}
		}
	}

	return nil
}

// sequence repeats pass until it reports completion. Without a step delay a
// single pass is made, since time would not advance between passes.
func (b *Board) sequence(ctx context.Context, pass func() (bool, error)) error {
	for {
		done, err := pass()
		if err != nil || done || b.timings.Step <= 0 {
			return err
		}

		if err = ctx.Err(); err != nil {
			return err
		}
	}
}

// wait blocks for d or until ctx is done.
func wait(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
