// Package store provides read access to the inverted index (the posting
// store). Backends are PostgreSQL, SQLite and an in-memory map; the engine only
// sees the PostingStore interface and never writes through it.
package store

import (
	"context"

	"github.com/Adithya-Monish-Kumar-K/Keyword-Search-Service/internal/index"
)

// PostingStore is the read contract the ranking engine depends on.
type PostingStore interface {
	// Postings returns every posting whose keyword is in keywords, joined
	// with its document URL, in no particular order.
	Postings(ctx context.Context, keywords []string) ([]index.Posting, error)
	// CountDocuments returns the number of distinct documents having at
	// least one posting for any of keywords.
	CountDocuments(ctx context.Context, keywords []string) (int, error)
}

// PagedRanker is implemented by stores that can aggregate, score, order and
// page candidates themselves. Scores are SUM(frequency)*COUNT(DISTINCT
// keyword)/len(keywords), ordered by score descending then document id.
type PagedRanker interface {
	RankPage(ctx context.Context, keywords []string, offset, limit int) ([]index.Candidate, error)
}

// Pinger is implemented by stores that can report connectivity.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Seeder is implemented by SQL backends that can load fixture data.
type Seeder interface {
	Seed(ctx context.Context, docs []index.Document, postings []index.Posting) error
}
