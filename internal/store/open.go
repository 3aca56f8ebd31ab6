package store

import (
	"context"
	"fmt"
	"io"

	"github.com/Adithya-Monish-Kumar-K/Keyword-Search-Service/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/Keyword-Search-Service/pkg/postgres"
)

// Backend is a concrete posting store opened from configuration.
type Backend interface {
	PostingStore
	PagedRanker
	Pinger
	Seeder
	io.Closer
	ApplySchema(ctx context.Context) error
}

type postgresBackend struct {
	*PostgresStore
}

func (b postgresBackend) Close() error {
	return b.client.Close()
}

// Open connects the backend selected by cfg.Store.Driver. The caller owns the
// returned handle and must Close it.
func Open(ctx context.Context, cfg *config.Config) (Backend, error) {
	switch cfg.Store.Driver {
	case config.DriverPostgres:
		client, err := postgres.New(ctx, cfg.Postgres)
		if err != nil {
			return nil, fmt.Errorf("connecting posting store: %w", err)
		}
		return postgresBackend{NewPostgresStore(client)}, nil
	case config.DriverSQLite:
		s, err := OpenSQLite(ctx, cfg.Store.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("opening posting store: %w", err)
		}
		return s, nil
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.Store.Driver)
	}
}
