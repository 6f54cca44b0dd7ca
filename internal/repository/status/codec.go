package status

import (
	"errors"
	"fmt"
	"time"

	"google.golang.org/protobuf/types/known/structpb"

	"github.com/oshokin/keypad-controller/internal/domain/device"
)

// Field names of the encoded snapshot.
const (
	fieldUpdatedAt     = "updated_at"
	fieldState         = "state"
	fieldLastSignal    = "last_signal"
	fieldSessionID     = "session_id"
	fieldLoggedIn      = "logged_in"
	fieldStopRequested = "stop_requested"
)

// ErrMalformed is returned when an encoded snapshot cannot be decoded.
var ErrMalformed = errors.New("malformed status")

// ToStruct converts the domain Status into a protobuf Struct.
func ToStruct(s *device.Status) (*structpb.Struct, error) {
	if s == nil {
		s = new(device.Status)
	}

	var updatedAt string
	if !s.UpdatedAt.IsZero() {
		updatedAt = s.UpdatedAt.UTC().Format(time.RFC3339Nano)
	}

	var lastSignal string
	if s.LastSignal != device.SignalNone {
		lastSignal = string(rune(s.LastSignal))
	}

	encoded, err := structpb.NewStruct(map[string]any{
		fieldUpdatedAt:     updatedAt,
		fieldState:         string(s.State),
		fieldLastSignal:    lastSignal,
		fieldSessionID:     s.SessionID,
		fieldLoggedIn:      s.LoggedIn,
		fieldStopRequested: s.StopRequested,
	})
	if err != nil {
		return nil, fmt.Errorf("encode status: %w", err)
	}

	return encoded, nil
}

// FromStruct converts a protobuf Struct into the domain Status.
// Missing fields keep their zero values.
func FromStruct(encoded *structpb.Struct) (*device.Status, error) {
	fields := encoded.GetFields()
	result := new(device.Status)

	if raw := fields[fieldUpdatedAt].GetStringValue(); raw != "" {
		updatedAt, err := time.Parse(time.RFC3339Nano, raw)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrMalformed, fieldUpdatedAt, err)
		}

		result.UpdatedAt = updatedAt
	}

	if raw := fields[fieldState].GetStringValue(); raw != "" {
		state := device.State(raw)
		if !state.IsValid() {
			return nil, fmt.Errorf("%w: unknown state %q", ErrMalformed, raw)
		}

		result.State = state
	}

	if raw := fields[fieldLastSignal].GetStringValue(); raw != "" {
		if len(raw) != 1 || !device.Alphabet.Contains(device.Signal(raw[0])) {
			return nil, fmt.Errorf("%w: unknown signal %q", ErrMalformed, raw)
		}

		result.LastSignal = device.Signal(raw[0])
	}

	result.SessionID = fields[fieldSessionID].GetStringValue()
	result.LoggedIn = fields[fieldLoggedIn].GetBoolValue()
	result.StopRequested = fields[fieldStopRequested].GetBoolValue()

	return result, nil
}
