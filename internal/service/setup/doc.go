// Package setup prepares a keypad controller installation.
//
// Run writes the settings file and the initial password and prints what to
// do next.
package setup
