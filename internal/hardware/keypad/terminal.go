package keypad

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"golang.org/x/term"

	"github.com/oshokin/keypad-controller/internal/domain/device"
	"github.com/oshokin/keypad-controller/internal/logger"
)

const (
	keyInterrupt = 0x03 // Ctrl+C
	keyEOF       = 0x04 // Ctrl+D
)

// IsTerminal reports whether the file is an interactive terminal.
func IsTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}

// MakeRaw switches an interactive terminal to raw mode so every key arrives
// without Enter. The returned function restores the previous mode. Other
// input such as a pipe is left as is.
func MakeRaw(in *os.File) (restore func(), err error) {
	fd := int(in.Fd())

	if !term.IsTerminal(fd) {
		return func() {}, nil
	}

	state, err := term.MakeRaw(fd)
	if err != nil {
		return nil, fmt.Errorf("enter raw mode: %w", err)
	}

	return func() {
		_ = term.Restore(fd, state)
	}, nil
}

// Feed copies key presses from r into the queue until r ends, Ctrl+C or
// Ctrl+D is read, or ctx is done. It waits while the queue is full and
// closes the queue on return. Bytes outside the keypad alphabet are ignored.
func Feed(ctx context.Context, r io.Reader, q *Queue) error {
	defer q.Close()

	buf := make([]byte, 64)

	for {
		n, err := r.Read(buf)

		for _, b := range buf[:n] {
			if b == keyInterrupt || b == keyEOF {
				logger.Info(ctx, "Keypad input closed")

				return nil
			}

			sig, parseErr := device.ParseSignal(rune(b))
			if parseErr != nil {
				continue
			}

			if pushErr := q.PushWait(ctx, sig); pushErr != nil {
				logger.DebugKV(ctx, "Keypad input stopped", "key", sig, "error", pushErr)

				return nil
			}
		}

		switch {
		case errors.Is(err, io.EOF):
			return nil
		case err != nil:
			return fmt.Errorf("read keys: %w", err)
		case ctx.Err() != nil:
			return nil
		}
	}
}
