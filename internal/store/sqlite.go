package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "modernc.org/sqlite"

	"github.com/Adithya-Monish-Kumar-K/Keyword-Search-Service/internal/index"
)

var sqliteDialect = dialect{
	name: "sqlite",
	keywordFilter: func(keywords []string, _ int) (string, []any) {
		args := make([]any, len(keywords))
		for i, kw := range keywords {
			args[i] = kw
		}
		return "ii.keyword IN (" + strings.TrimSuffix(strings.Repeat("?, ", len(keywords)), ", ") + ")", args
	},
	placeholder: func(int) string { return "?" },
	toReal:      func(expr string) string { return "CAST(" + expr + " AS REAL)" },
}

// SQLiteStore reads the inverted index from an embedded SQLite database.
type SQLiteStore struct {
	sqlStore
}

// OpenSQLite opens (creating if needed) the database file at path in WAL
// mode and applies the schema.
func OpenSQLite(ctx context.Context, path string) (*SQLiteStore, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return nil, fmt.Errorf("creating data directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)")
	if err != nil {
		return nil, fmt.Errorf("opening sqlite database: %w", err)
	}
	s := &SQLiteStore{sqlStore: sqlStore{db: db, d: sqliteDialect}}
	if err := s.ApplySchema(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Seed loads fixture documents and postings in one transaction.
func (s *SQLiteStore) Seed(ctx context.Context, docs []index.Document, postings []index.Posting) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	if err := s.seed(ctx, tx, docs, postings); err != nil {
		tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
