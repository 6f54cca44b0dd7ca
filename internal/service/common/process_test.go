//nolint:revive,nolintlint // Package name "common" is intentional for shared helpers.
package common

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// TestAcquireInstanceLock takes and releases the lock.
func TestAcquireInstanceLock(t *testing.T) {
	t.Parallel()

	path := InstanceLockPath(filepath.Join(t.TempDir(), "kpc-status.json"))

	release, err := AcquireInstanceLock(path)
	require.NoError(t, err)

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Contains(t, string(content), fmt.Sprint(os.Getpid()))

	require.NoError(t, release())
	require.NoFileExists(t, path)
}

// TestAcquireInstanceLock_Busy fails while another live process holds it.
func TestAcquireInstanceLock_Busy(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "kpc.lock")
	owner := os.Getppid()
	require.NoError(t, os.WriteFile(path, fmt.Appendf(nil, "%d\n", owner), 0o600))

	release, err := AcquireInstanceLock(path)
	require.ErrorIs(t, err, ErrAlreadyRunning)
	require.ErrorContains(t, err, fmt.Sprintf("pid %d", owner))
	require.Nil(t, release)
}

// TestAcquireInstanceLock_Stale takes over a lock left by a dead process.
func TestAcquireInstanceLock_Stale(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "kpc.lock")
	require.NoError(t, os.WriteFile(path, []byte("1073741824\n"), 0o600))

	release, err := AcquireInstanceLock(path)
	require.NoError(t, err)
	require.NoError(t, release())
}

// TestDescribeProcess names the running test binary.
func TestDescribeProcess(t *testing.T) {
	t.Parallel()

	require.Contains(t, describeProcess(os.Getpid()), fmt.Sprintf("pid %d (", os.Getpid()))
	require.Equal(t, "pid 1073741824", describeProcess(1<<30))
}
