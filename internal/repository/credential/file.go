package credential

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/renameio/v2"

	"github.com/oshokin/keypad-controller/internal/config"
	"github.com/oshokin/keypad-controller/internal/logger"
)

// Store defines persistence operations for the password.
type Store interface {
	Load(ctx context.Context) (string, error)
	Save(ctx context.Context, password string) error
}

var (
	// ErrUnavailable wraps every store failure.
	ErrUnavailable = errors.New("credential store unavailable")
	// ErrNotFound is returned when the password file does not exist.
	ErrNotFound = errors.New("credential file not found")
	// ErrEmpty is returned when the password file has no content.
	ErrEmpty = errors.New("credential file is empty")
)

// FileStore keeps the password in a plain-text file.
type FileStore struct {
	// path is the filesystem location of the password file.
	path string
	// attempts is how many times an operation is tried.
	attempts int
	// delay is the pause between attempts.
	delay time.Duration
	// mu serializes file access.
	mu sync.Mutex
}

// Option configures a FileStore.
type Option func(*FileStore)

// WithRetry sets how many times an operation is tried and the pause between tries.
func WithRetry(attempts int, delay time.Duration) Option {
	return func(s *FileStore) {
		if attempts > 0 {
			s.attempts = attempts
		}

		if delay >= 0 {
			s.delay = delay
		}
	}
}

// NewFileStore creates a store for the file at path.
func NewFileStore(path string, opts ...Option) *FileStore {
	s := &FileStore{
		path:     filepath.Clean(path),
		attempts: config.DefaultStoreAttempts,
		delay:    config.DefaultStoreRetryDelay,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Path returns the location of the password file.
func (s *FileStore) Path() string {
	return s.path
}

// Load reads the password. A single trailing line break is not part of it.
func (s *FileStore) Load(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var password string

	err := s.retry(ctx, "read", func() error {
		contents, err := os.ReadFile(s.path)
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				return permanent{ErrNotFound}
			}

			return fmt.Errorf("read credential file: %w", err)
		}

		password = strings.TrimSuffix(strings.TrimSuffix(string(contents), "\n"), "\r")
		if password == "" {
			return permanent{ErrEmpty}
		}

		return nil
	})
	if err != nil {
		return "", err
	}

	return password, nil
}

// Save replaces the password atomically.
func (s *FileStore) Save(ctx context.Context, password string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if password == "" {
		return fmt.Errorf("%w: %w", ErrUnavailable, ErrEmpty)
	}

	return s.retry(ctx, "write", func() error {
		return writeAtomic(s.path, []byte(password))
	})
}

// retry runs op until it succeeds, fails permanently, or attempts run out.
func (s *FileStore) retry(ctx context.Context, what string, op func() error) error {
	var err error

	for attempt := 1; attempt <= s.attempts; attempt++ {
		err = op()
		if err == nil {
			return nil
		}

		var p permanent
		if errors.As(err, &p) {
			return fmt.Errorf("%w: %w", ErrUnavailable, p.err)
		}

		if attempt == s.attempts {
			break
		}

		logger.WarnKV(ctx, "Credential store operation failed, retrying",
			"operation", what, "attempt", attempt, "error", err)

		timer := time.NewTimer(s.delay)

		select {
		case <-ctx.Done():
			timer.Stop()

			return fmt.Errorf("%w: %w", ErrUnavailable, ctx.Err())
		case <-timer.C:
		}
	}

	return fmt.Errorf("%w: %w", ErrUnavailable, err)
}

// writeAtomic replaces path with data through a synced temporary file, so a
// reader sees either the old password or the new one.
func writeAtomic(path string, data []byte) error {
	if err := renameio.WriteFile(path, data, config.DefaultFilePermissions); err != nil {
		return fmt.Errorf("replace credential file: %w", err)
	}

	return nil
}

// permanent marks an error that retrying cannot fix.
type permanent struct {
	err error
}

func (p permanent) Error() string {
	return p.err.Error()
}

func (p permanent) Unwrap() error {
	return p.err
}
