// Package common holds helpers shared by several services.
//
// It provides a lightweight gRPC client for the keypad service with timeouts,
// detection of the current system actor (user@host) sent along with remote
// calls, and a process check that keeps one controller per host.
//
//nolint:revive,nolintlint // Package name "common" is intentional for shared helpers.
package common
