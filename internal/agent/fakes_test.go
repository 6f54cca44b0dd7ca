package agent

import (
	"context"
	"fmt"
	"time"

	"github.com/oshokin/keypad-controller/internal/repository/credential"
)

// fakeBoard records LED requests without waiting.
type fakeBoard struct {
	calls []string
}

func (b *fakeBoard) PowerUp(context.Context) error {
	b.calls = append(b.calls, "power-up")

	return nil
}

func (b *fakeBoard) PowerDown(context.Context) error {
	b.calls = append(b.calls, "power-down")

	return nil
}

func (b *fakeBoard) Flash(_ context.Context, d time.Duration) error {
	b.calls = append(b.calls, "flash "+d.String())

	return nil
}

func (b *fakeBoard) Twinkle(_ context.Context, d time.Duration) error {
	b.calls = append(b.calls, "twinkle "+d.String())

	return nil
}

func (b *fakeBoard) Light(_ context.Context, id int, d time.Duration) error {
	b.calls = append(b.calls, fmt.Sprintf("light %d %s", id, d))

	return nil
}

// memoryStore keeps the password in memory; err fails every call.
type memoryStore struct {
	password string
	err      error
	saves    int
}

func (s *memoryStore) Load(context.Context) (string, error) {
	if s.err != nil {
		return "", fmt.Errorf("%w: %w", credential.ErrUnavailable, s.err)
	}

	return s.password, nil
}

func (s *memoryStore) Save(_ context.Context, password string) error {
	if s.err != nil {
		return fmt.Errorf("%w: %w", credential.ErrUnavailable, s.err)
	}

	s.password = password
	s.saves++

	return nil
}
