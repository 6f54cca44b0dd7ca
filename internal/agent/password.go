package agent

import (
	"errors"
	"fmt"
)

// ErrInvalidNewPassword is returned when a new password breaks the format rule.
var ErrInvalidNewPassword = errors.New("invalid new password")

// ValidateNewPassword checks that a password has at least minLength characters
// and consists of decimal digits only.
func ValidateNewPassword(password string, minLength int) error {
	if len(password) < minLength {
		return fmt.Errorf("%w: at least %d digits required, got %d", ErrInvalidNewPassword, minLength, len(password))
	}

	for _, r := range password {
		if r < '0' || r > '9' {
			return fmt.Errorf("%w: %q is not a digit", ErrInvalidNewPassword, r)
		}
	}

	return nil
}
