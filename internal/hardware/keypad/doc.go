// Package keypad provides the signal sources of the keypad controller.
//
// Queue is the engine's source: a bounded buffer that the terminal reader and
// the remote keypad service push into. Script replays a fixed key sequence.
// Every source returns io.EOF once it will produce no more signals.
package keypad
