package main

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chico-rentals/rental-cli/internal/config"
)

func TestInitStore_SQLiteMigratesOnOpen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "rental.db")

	st, err := initStore(ctx, config.StoreConfig{Driver: "sqlite", SQLitePath: path})
	require.NoError(t, err)
	defer st.Close() //nolint:errcheck

	n, err := st.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestInitStore_UnsupportedDriver(t *testing.T) {
	_, err := initStore(context.Background(), config.StoreConfig{Driver: "mysql"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported store driver: mysql")
}

func TestInitStore_PostgresRequiresDSN(t *testing.T) {
	_, err := initStore(context.Background(), config.StoreConfig{Driver: "postgres"})
	assert.Error(t, err)
}
