package fsm

import (
	"context"

	"github.com/oshokin/keypad-controller/internal/domain/device"
)

// Catalog is the set of device operations the canonical table binds to.
// Every method reads what it needs (the last key, buffers) from the catalog
// itself, so the table only stores method values.
type Catalog interface {
	WakeUp(ctx context.Context) (device.Signal, error)
	AppendDigit(ctx context.Context) (device.Signal, error)
	VerifyPassword(ctx context.Context) (device.Signal, error)
	ResetPasswordEntry(ctx context.Context) (device.Signal, error)
	ClearBuffer(ctx context.Context) (device.Signal, error)
	FullyActivate(ctx context.Context) (device.Signal, error)
	StartPasswordChange(ctx context.Context) (device.Signal, error)
	AppendNewDigit(ctx context.Context) (device.Signal, error)
	CachePasswordChange(ctx context.Context) (device.Signal, error)
	SetLEDID(ctx context.Context) (device.Signal, error)
	AppendDurationDigit(ctx context.Context) (device.Signal, error)
	LightOneLED(ctx context.Context) (device.Signal, error)
	Logout(ctx context.Context) (device.Signal, error)
	Exit(ctx context.Context) error
}

// Build returns the canonical rule table of the keypad controller.
//
// Method values are bound here and called only when a rule fires.
func Build(c Catalog) (*Table, error) {
	var (
		anyKey    = device.Physical
		hash      = device.Of(device.SignalHash)
		star      = device.Of(device.SignalStar)
		accept    = device.Of(device.SignalAccept)
		reject    = device.Of(device.SignalReject)
		outcomes  = accept.Union(reject)
		ledDigits = device.Range('0', '5')
	)

	return NewTable(
		// Login.
		Rule{"wake-up", device.StateInit, anyKey, device.StateRead, c.WakeUp},
		Rule{"append-digit", device.StateRead, device.Digits, device.StateRead, c.AppendDigit},
		Rule{"verify-password", device.StateRead, hash, device.StateVerify, c.VerifyPassword},
		Rule{"clear-buffer", device.StateRead, star, device.StateInit, c.ClearBuffer},
		Rule{"reset-password-entry", device.StateVerify, anyKey.Union(reject), device.StateInit, c.ResetPasswordEntry},
		Rule{"fully-activate", device.StateVerify, accept, device.StateActive, c.FullyActivate},

		// Password change is announced with `#`; LED selection takes 0-5.
		Rule{"reset-password-entry", device.StateActive, hash, device.StateReadChange, c.ResetPasswordEntry},
		Rule{"set-led-id", device.StateActive, ledDigits, device.StateChooseLED, c.SetLEDID},
		Rule{"append-duration-digit", device.StateChooseLED, device.Digits, device.StateSetDuration, c.AppendDurationDigit},
		Rule{"clear-buffer", device.StateChooseLED, star.Union(hash), device.StateActive, c.ClearBuffer},
		Rule{"append-duration-digit", device.StateSetDuration, device.Digits, device.StateSetDuration, c.AppendDurationDigit},
		Rule{"light-one-led", device.StateSetDuration, hash, device.StateActive, c.LightOneLED},
		Rule{"clear-buffer", device.StateSetDuration, star, device.StateActive, c.ClearBuffer},

		// New password entry.
		Rule{"append-new-digit", device.StateReadChange, device.Digits, device.StateReadChange, c.AppendNewDigit},
		Rule{"cache-password-change", device.StateReadChange, hash, device.StateCacheChange, c.CachePasswordChange},
		Rule{"reset-password-entry", device.StateReadChange, anyKey, device.StateActive, c.ResetPasswordEntry},
		Rule{"start-password-change", device.StateActive, device.Digits, device.StateReadChange, c.StartPasswordChange},
		Rule{"reset-password-entry", device.StateCacheChange, anyKey.Union(outcomes), device.StateActive, c.ResetPasswordEntry},

		// Two-step logout.
		Rule{"clear-buffer", device.StateActive, star, device.StateConfirmLogout, c.ClearBuffer},
		Rule{"logout", device.StateConfirmLogout, star, device.StateDone, c.Logout},
		Rule{"wake-up", device.StateDone, anyKey, device.StateActive, c.WakeUp},
		Rule{"clear-buffer", device.StateConfirmLogout, anyKey, device.StateActive, c.ClearBuffer},
	)
}
