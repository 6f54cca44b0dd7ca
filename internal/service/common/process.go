//nolint:revive,nolintlint // Package name "common" is intentional for shared helpers.
package common

import (
	"errors"
	"fmt"
	"path/filepath"

	ps "github.com/mitchellh/go-ps"
	"github.com/nightlyone/lockfile"
)

// ErrAlreadyRunning is returned when another controller owns the device.
var ErrAlreadyRunning = errors.New("keypad controller is already running")

// InstanceLockPath returns the pid lock file guarding the controller that
// writes statusFile.
func InstanceLockPath(statusFile string) string {
	return statusFile + ".lock"
}

// AcquireInstanceLock takes the pid lock file at path. A lock left behind by
// a dead process is taken over. While a live process holds it the call fails
// with ErrAlreadyRunning. The returned func releases the lock.
func AcquireInstanceLock(path string) (release func() error, err error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve lock path %q: %w", path, err)
	}

	lock, err := lockfile.New(absPath)
	if err != nil {
		return nil, fmt.Errorf("create lock %q: %w", absPath, err)
	}

	if err = lock.TryLock(); err != nil {
		if !errors.Is(err, lockfile.ErrBusy) {
			return nil, fmt.Errorf("lock %q: %w", absPath, err)
		}

		owner, ownerErr := lock.GetOwner()
		if ownerErr != nil {
			return nil, fmt.Errorf("%w: lock %q is busy", ErrAlreadyRunning, absPath)
		}

		return nil, fmt.Errorf("%w: %s", ErrAlreadyRunning, describeProcess(owner.Pid))
	}

	return lock.Unlock, nil
}

// describeProcess names the process with the given pid when it can be found.
func describeProcess(pid int) string {
	process, err := ps.FindProcess(pid)
	if err != nil || process == nil {
		return fmt.Sprintf("pid %d", pid)
	}

	return fmt.Sprintf("pid %d (%s)", pid, process.Executable())
}
