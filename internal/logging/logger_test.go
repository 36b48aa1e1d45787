package logging

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewProductionLogger(t *testing.T) {
	t.Parallel()

	logger, err := New(false)
	require.NoError(t, err)
	require.NotNil(t, logger)
	logger.Info("production logger works")
}

func TestNewDevelopmentLogger(t *testing.T) {
	t.Parallel()

	logger, err := New(true)
	require.NoError(t, err)
	require.NotNil(t, logger)
	logger.Debug("development logger emits debug")
}

func TestComponent(t *testing.T) {
	t.Parallel()

	logger, err := New(false)
	require.NoError(t, err)

	child := Component(logger, "fetcher")
	require.NotNil(t, child)

	// A nil parent falls back to a no-op logger instead of panicking.
	require.NotNil(t, Component(nil, "fetcher"))
}
