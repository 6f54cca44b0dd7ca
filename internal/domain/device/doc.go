// Package device contains the core domain types of the keypad controller.
//
// It defines Signal (one keypad symbol or a synthetic verification outcome),
// SignalSet (the trigger set of a transition rule), State (the device mode)
// and Status (an observable snapshot with a Clone helper to avoid leaking
// internal references).
package device
