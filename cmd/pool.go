package main

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/sells-group/wms-ingest/internal/db"
	"github.com/sells-group/wms-ingest/internal/promote"
)

// openPool validates the config for mode and connects to Postgres.
func openPool(ctx context.Context, mode string) (*pgxpool.Pool, error) {
	if err := cfg.Validate(mode); err != nil {
		return nil, err
	}
	pool, err := db.Open(ctx, cfg.Database.URL, &db.PoolConfig{
		MaxConns: cfg.Database.MaxConns,
		MinConns: cfg.Database.MinConns,
	})
	if err != nil {
		return nil, eris.Wrap(err, mode)
	}
	return pool, nil
}

func newEngine(pool db.Pool) *promote.Engine {
	return promote.NewEngine(pool, promote.Config{Lock: cfg.Promote.Lock})
}
