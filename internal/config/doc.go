// Package config defines the keypad controller settings and provides helpers
// to load, validate and save them in YAML format.
//
// Validate fills every unset field with its default, so a settings file only
// needs the values that differ from the reference device.
package config
