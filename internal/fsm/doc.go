// Package fsm implements the rule-driven state machine at the heart of the
// keypad controller.
//
// A Table is an ordered list of Rules. Order is priority: for a given state
// and signal the earliest matching rule fires and every later rule is ignored.
// Rules carry deferred Actions that run only when they fire. An Engine owns
// the current state, pulls one signal at a time from its source and steps the
// table until a supervisor stops it at the Active+# checkpoint.
package fsm
