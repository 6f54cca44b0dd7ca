package fsm

import (
	"context"
	"io"

	"github.com/oshokin/keypad-controller/internal/domain/device"
)

// recordingCatalog implements Catalog and records which actions ran.
type recordingCatalog struct {
	// calls lists invoked action names in order.
	calls []string
	// verifyResult is returned by VerifyPassword.
	verifyResult device.Signal
	// cacheResult is returned by CachePasswordChange.
	cacheResult device.Signal
	// exited is set by Exit.
	exited bool
}

func (c *recordingCatalog) record(name string) (device.Signal, error) {
	c.calls = append(c.calls, name)

	return device.SignalNone, nil
}

func (c *recordingCatalog) WakeUp(context.Context) (device.Signal, error) { return c.record("wake-up") }

func (c *recordingCatalog) AppendDigit(context.Context) (device.Signal, error) {
	return c.record("append-digit")
}

func (c *recordingCatalog) VerifyPassword(context.Context) (device.Signal, error) {
	c.calls = append(c.calls, "verify-password")

	return c.verifyResult, nil
}

func (c *recordingCatalog) ResetPasswordEntry(context.Context) (device.Signal, error) {
	return c.record("reset-password-entry")
}

func (c *recordingCatalog) ClearBuffer(context.Context) (device.Signal, error) {
	return c.record("clear-buffer")
}

func (c *recordingCatalog) FullyActivate(context.Context) (device.Signal, error) {
	return c.record("fully-activate")
}

func (c *recordingCatalog) StartPasswordChange(context.Context) (device.Signal, error) {
	return c.record("start-password-change")
}

func (c *recordingCatalog) AppendNewDigit(context.Context) (device.Signal, error) {
	return c.record("append-new-digit")
}

func (c *recordingCatalog) CachePasswordChange(context.Context) (device.Signal, error) {
	c.calls = append(c.calls, "cache-password-change")

	return c.cacheResult, nil
}

func (c *recordingCatalog) SetLEDID(context.Context) (device.Signal, error) {
	return c.record("set-led-id")
}

func (c *recordingCatalog) AppendDurationDigit(context.Context) (device.Signal, error) {
	return c.record("append-duration-digit")
}

func (c *recordingCatalog) LightOneLED(context.Context) (device.Signal, error) {
	return c.record("light-one-led")
}

func (c *recordingCatalog) Logout(context.Context) (device.Signal, error) { return c.record("logout") }

func (c *recordingCatalog) Exit(context.Context) error {
	c.exited = true

	return nil
}

// sliceSource hands out a fixed list of signals and then io.EOF.
type sliceSource struct {
	signals []device.Signal
}

func newSliceSource(keys string) *sliceSource {
	signals, err := device.ParseSignals(keys)
	if err != nil {
		panic(err)
	}

	return &sliceSource{signals: signals}
}

func (s *sliceSource) NextSignal(context.Context) (device.Signal, error) {
	if len(s.signals) == 0 {
		return device.SignalNone, io.EOF
	}

	sig := s.signals[0]
	s.signals = s.signals[1:]

	return sig, nil
}

// countingDevice counts power-down requests.
type countingDevice struct {
	powerDowns int
}

func (d *countingDevice) PowerDown(context.Context) error {
	d.powerDowns++

	return nil
}
