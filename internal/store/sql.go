package store

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"strings"

	"github.com/Adithya-Monish-Kumar-K/Keyword-Search-Service/internal/index"
)

//go:embed schema/*.sql
var schemaFS embed.FS

// dialect isolates the few places where PostgreSQL and SQLite SQL differ.
type dialect struct {
	name string
	// keywordFilter returns a predicate on ii.keyword and its arguments,
	// numbering placeholders from next.
	keywordFilter func(keywords []string, next int) (string, []any)
	placeholder   func(n int) string
	// toReal casts an integer expression to double precision.
	toReal func(expr string) string
}

// sqlStore implements PostingStore and PagedRanker over database/sql. The
// *sql.DB pool is owned by the caller; each call borrows one connection and
// returns it on every path via rows.Close.
type sqlStore struct {
	db *sql.DB
	d  dialect
}

const fromMatches = `
FROM inverted_index ii
JOIN crawler_queue cq ON ii.page_id = cq.id
WHERE `

func (s *sqlStore) Postings(ctx context.Context, keywords []string) ([]index.Posting, error) {
	if len(keywords) == 0 {
		return []index.Posting{}, nil
	}
	filter, args := s.d.keywordFilter(keywords, 1)
	query := `SELECT ii.keyword, ii.page_id, cq.url, ii.frequency` + fromMatches + filter

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: querying postings: %w", s.d.name, err)
	}
	defer rows.Close()

	postings := make([]index.Posting, 0)
	for rows.Next() {
		var p index.Posting
		if err := rows.Scan(&p.Keyword, &p.DocID, &p.URL, &p.Frequency); err != nil {
			return nil, fmt.Errorf("%s: scanning posting: %w", s.d.name, err)
		}
		postings = append(postings, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: iterating postings: %w", s.d.name, err)
	}
	return postings, nil
}

func (s *sqlStore) CountDocuments(ctx context.Context, keywords []string) (int, error) {
	if len(keywords) == 0 {
		return 0, nil
	}
	filter, args := s.d.keywordFilter(keywords, 1)
	query := `SELECT COUNT(DISTINCT ii.page_id)` + fromMatches + filter

	var total int
	if err := s.db.QueryRowContext(ctx, query, args...).Scan(&total); err != nil {
		return 0, fmt.Errorf("%s: counting documents: %w", s.d.name, err)
	}
	return total, nil
}

func (s *sqlStore) RankPage(ctx context.Context, keywords []string, offset, limit int) ([]index.Candidate, error) {
	if len(keywords) == 0 || limit < 1 {
		return []index.Candidate{}, nil
	}
	filter, args := s.d.keywordFilter(keywords, 2)
	k := s.d.placeholder(1)
	lim := s.d.placeholder(len(args) + 2)
	off := s.d.placeholder(len(args) + 3)

	var b strings.Builder
	b.WriteString(`SELECT ii.page_id, cq.url, SUM(ii.frequency), COUNT(DISTINCT ii.keyword), `)
	b.WriteString(s.d.toReal(`SUM(ii.frequency)`))
	b.WriteString(` * COUNT(DISTINCT ii.keyword) / ` + s.d.toReal(k) + ` AS relevance_score`)
	b.WriteString(fromMatches + filter)
	b.WriteString(`
GROUP BY ii.page_id, cq.url
ORDER BY relevance_score DESC, ii.page_id ASC
LIMIT ` + lim + ` OFFSET ` + off)

	params := make([]any, 0, len(args)+3)
	params = append(params, float64(len(keywords)))
	params = append(params, args...)
	params = append(params, limit, offset)

	rows, err := s.db.QueryContext(ctx, b.String(), params...)
	if err != nil {
		return nil, fmt.Errorf("%s: ranking page: %w", s.d.name, err)
	}
	defer rows.Close()

	candidates := make([]index.Candidate, 0, limit)
	for rows.Next() {
		var c index.Candidate
		if err := rows.Scan(&c.DocID, &c.URL, &c.FreqSum, &c.Matched, &c.Score); err != nil {
			return nil, fmt.Errorf("%s: scanning candidate: %w", s.d.name, err)
		}
		candidates = append(candidates, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: iterating candidates: %w", s.d.name, err)
	}
	return candidates, nil
}

func (s *sqlStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// ApplySchema creates the read-side tables and keyword index if missing.
func (s *sqlStore) ApplySchema(ctx context.Context) error {
	ddl, err := schemaFS.ReadFile("schema/" + s.d.name + ".sql")
	if err != nil {
		return fmt.Errorf("reading %s schema: %w", s.d.name, err)
	}
	for _, stmt := range strings.Split(string(ddl), ";") {
		if strings.TrimSpace(stmt) == "" {
			continue
		}
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("%s: applying schema: %w", s.d.name, err)
		}
	}
	return nil
}

// seed upserts documents and appends postings inside tx. It exists for local
// development and tests; production indexes are written by the indexer.
func (s *sqlStore) seed(ctx context.Context, tx *sql.Tx, docs []index.Document, postings []index.Posting) error {
	upsert := fmt.Sprintf(
		`INSERT INTO crawler_queue (id, url) VALUES (%s, %s) ON CONFLICT (id) DO UPDATE SET url = excluded.url`,
		s.d.placeholder(1), s.d.placeholder(2),
	)
	for _, d := range docs {
		if _, err := tx.ExecContext(ctx, upsert, d.ID, d.URL); err != nil {
			return fmt.Errorf("seeding document %d: %w", d.ID, err)
		}
	}
	insert := fmt.Sprintf(
		`INSERT INTO inverted_index (keyword, page_id, frequency) VALUES (%s, %s, %s)`,
		s.d.placeholder(1), s.d.placeholder(2), s.d.placeholder(3),
	)
	stmt, err := tx.PrepareContext(ctx, insert)
	if err != nil {
		return fmt.Errorf("preparing posting insert: %w", err)
	}
	defer stmt.Close()
	for _, p := range postings {
		if _, err := stmt.ExecContext(ctx, p.Keyword, p.DocID, p.Frequency); err != nil {
			return fmt.Errorf("seeding posting %q/%d: %w", p.Keyword, p.DocID, err)
		}
	}
	return nil
}
