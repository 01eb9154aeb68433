package cli

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetupLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := SetupLogger(&buf, "warn")

	logger.Info("hidden")
	logger.Warn("shown", "k", "v")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "shown")
	assert.Contains(t, out, "component=app")
}

func TestLoadAndValidateConfig(t *testing.T) {
	t.Setenv("PAYMINDER_CONFIG", filepath.Join(t.TempDir(), "absent.toml"))
	t.Setenv("PORT", "not-a-port")

	_, err := LoadAndValidateConfig(SetupLogger(&bytes.Buffer{}, "error"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid port")

	t.Setenv("PORT", "9000")
	cfg, err := LoadAndValidateConfig(SetupLogger(&bytes.Buffer{}, "error"))
	require.NoError(t, err)
	assert.Equal(t, "9000", cfg.Port)
}

func TestInitSQLite(t *testing.T) {
	repo, err := InitSQLite(SetupLogger(&bytes.Buffer{}, "error"), filepath.Join(t.TempDir(), "log.db"))
	require.NoError(t, err)
	require.NoError(t, repo.Close())
}

func TestGracefulShutdown_ParentCancel(t *testing.T) {
	parent, cancel := context.WithCancel(context.Background())
	ctx, stop := GracefulShutdown(parent, SetupLogger(&bytes.Buffer{}, "error"))
	defer stop()

	cancel()
	<-ctx.Done()
	assert.ErrorIs(t, ctx.Err(), context.Canceled)
}
