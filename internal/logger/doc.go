// Package logger provides a small wrapper around zap to offer:
//   - a global sugared logger with a sane console encoder,
//   - context helpers (ToContext/FromContext/WithName/WithKV/WithFields),
//   - level configuration and parsing utilities,
//   - convenience functions (Infof, ErrorKV, etc.).
//
// The engine, the agent and the services accept a context and extract the
// logger from it, so a login session or a remote request carries its fields
// into every line it produces.
package logger
