// Package keypad implements the gRPC transport for the keypad controller.
//
// The service is described by hand over protobuf well-known types: presses
// travel as a StringValue of keys ("1234#") and the controller status as a
// Struct. The server adapts these messages to a business-service interface
// and rate-limits remote presses.
package keypad
