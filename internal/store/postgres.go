package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"

	"github.com/Adithya-Monish-Kumar-K/Keyword-Search-Service/internal/index"
	"github.com/Adithya-Monish-Kumar-K/Keyword-Search-Service/pkg/postgres"
)

var postgresDialect = dialect{
	name: "postgres",
	keywordFilter: func(keywords []string, next int) (string, []any) {
		return fmt.Sprintf("ii.keyword = ANY($%d)", next), []any{pq.Array(keywords)}
	},
	placeholder: func(n int) string { return fmt.Sprintf("$%d", n) },
	toReal:      func(expr string) string { return "(" + expr + ")::float8" },
}

// PostgresStore reads the inverted index from PostgreSQL through the shared
// lib/pq pool.
type PostgresStore struct {
	sqlStore
	client *postgres.Client
}

func NewPostgresStore(client *postgres.Client) *PostgresStore {
	return &PostgresStore{
		sqlStore: sqlStore{db: client.DB, d: postgresDialect},
		client:   client,
	}
}

// Seed loads fixture documents and postings in one transaction.
func (s *PostgresStore) Seed(ctx context.Context, docs []index.Document, postings []index.Posting) error {
	return s.client.InTx(ctx, func(tx *sql.Tx) error {
		return s.seed(ctx, tx, docs, postings)
	})
}
