package setup

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/oshokin/keypad-controller/internal/agent"
	"github.com/oshokin/keypad-controller/internal/config"
	"github.com/oshokin/keypad-controller/internal/repository/credential"
)

// TestRun_WritesSettingsAndPassword covers a fresh installation.
func TestRun_WritesSettingsAndPassword(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	opts := &Options{
		ConfigPath:     filepath.Join(dir, "kpc-settings.yaml"),
		CredentialFile: filepath.Join(dir, "kpc-password.txt"),
		Password:       "2468",
		Input:          config.InputRemote,
	}

	require.NoError(t, Run(context.Background(), opts))

	cfg, err := config.Load(opts.ConfigPath)
	require.NoError(t, err)
	require.Equal(t, opts.CredentialFile, cfg.CredentialFile)
	require.Equal(t, config.InputRemote, cfg.Input)
	require.Equal(t, config.DefaultLEDTimings(), cfg.LEDs)

	password, err := credential.NewFileStore(opts.CredentialFile).Load(context.Background())
	require.NoError(t, err)
	require.Equal(t, "2468", password)

	// A second run must not clobber the installation.
	opts.Password = "1357"
	require.ErrorIs(t, Run(context.Background(), opts), errAlreadyInitialized)

	opts.Force = true
	require.NoError(t, Run(context.Background(), opts))

	password, err = credential.NewFileStore(opts.CredentialFile).Load(context.Background())
	require.NoError(t, err)
	require.Equal(t, "1357", password)
}

// TestRun_RejectsWeakPassword applies the new-password rule.
func TestRun_RejectsWeakPassword(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	err := Run(context.Background(), &Options{
		ConfigPath:     filepath.Join(dir, "kpc-settings.yaml"),
		CredentialFile: filepath.Join(dir, "kpc-password.txt"),
		Password:       "123",
	})
	require.ErrorIs(t, err, agent.ErrInvalidNewPassword)
}
