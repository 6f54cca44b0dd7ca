// Package version exposes build metadata of the kpc binary.
//
// Version, Commit and BuildTime are injected at build time via ldflags, for
// example -X github.com/oshokin/keypad-controller/internal/version.Commit=abc123.
package version
