// Package controller runs the keypad controller.
//
// Run wires the credential and status stores, the LED board, the keypad queue,
// the action catalog and the rule engine, then serves the remote keypad API
// and the terminal keypad until the engine stops.
package controller
