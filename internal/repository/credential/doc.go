// Package credential persists the controller password.
//
// The store is a plain-text file whose whole content is the password. Writes
// go through a temporary file and a rename, so a failed change never leaves
// the store empty. Every failure wraps ErrUnavailable, which callers treat as
// recoverable.
package credential
