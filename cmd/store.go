package main

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/chico-rentals/rental-cli/internal/config"
	"github.com/chico-rentals/rental-cli/internal/db"
	"github.com/chico-rentals/rental-cli/internal/store"
)

// initStore opens the configured property store. SQLite files are migrated
// on open so a fresh local database is usable immediately.
func initStore(ctx context.Context, sc config.StoreConfig) (store.Store, error) {
	switch sc.Driver {
	case "sqlite":
		st, err := store.NewSQLite(sc.SQLitePath)
		if err != nil {
			return nil, err
		}
		if err := st.Migrate(ctx); err != nil {
			st.Close() //nolint:errcheck
			return nil, err
		}
		return st, nil
	case "postgres":
		return store.NewPostgres(ctx, sc.DatabaseURL, &db.PoolConfig{MaxConns: sc.MaxConns})
	default:
		return nil, eris.Errorf("unsupported store driver: %s", sc.Driver)
	}
}
