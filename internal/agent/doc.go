// Package agent implements the keypad controller's action catalog.
//
// Agent owns every mutable buffer of the device (password entry, new
// password, LED id and duration, login session) and drives the LED board and
// the credential store. It also relays signals from the keypad to the engine
// and remembers the last key, so that every action stays argument-free.
package agent
