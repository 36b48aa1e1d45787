package app

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/webshepherd/webshepherd/internal/config"
)

func baseConfig(t *testing.T) config.Config {
	t.Helper()
	cfg, err := config.Load("")
	require.NoError(t, err)
	cfg.Database.Provider = "memory"
	return cfg
}

func TestNewWithMemoryStore(t *testing.T) {
	t.Parallel()

	application, err := New(context.Background(), baseConfig(t), zap.NewNop())
	require.NoError(t, err)
	require.NotNil(t, application.Server())
	require.NotNil(t, application.Engine())
	application.Close()
}

func TestNewWithSQLiteStore(t *testing.T) {
	t.Parallel()

	cfg := baseConfig(t)
	cfg.Database.Provider = "sqlite"
	cfg.Database.Path = filepath.Join(t.TempDir(), "scans.db")

	application, err := New(context.Background(), cfg, zap.NewNop())
	require.NoError(t, err)
	application.Close()
}

func TestNewUnknownProvider(t *testing.T) {
	t.Parallel()

	cfg := baseConfig(t)
	cfg.Database.Provider = "dynamo"

	_, err := New(context.Background(), cfg, zap.NewNop())
	require.Error(t, err)
	require.Contains(t, err.Error(), "unknown database provider")
}
