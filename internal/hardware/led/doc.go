// Package led drives the six-LED board of the keypad controller.
//
// The LEDs are charlieplexed over three tri-state pins: every LED is lit by
// driving one pin HIGH, one pin LOW and leaving the third as an input. Board
// turns that into the lighting sequences the agent requests; Simulator is an
// in-memory GPIO that logs which LED is lit.
package led
