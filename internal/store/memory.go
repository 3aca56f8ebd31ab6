package store

import (
	"context"
	"sync"

	"github.com/Adithya-Monish-Kumar-K/Keyword-Search-Service/internal/index"
	"github.com/Adithya-Monish-Kumar-K/Keyword-Search-Service/internal/searcher/ranker"
)

// MemoryStore is an in-memory posting store. It is safe for concurrent use;
// Load may run while queries are in flight.
type MemoryStore struct {
	mu        sync.RWMutex
	urls      map[int64]string
	byKeyword map[string][]index.Posting
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		urls:      make(map[int64]string),
		byKeyword: make(map[string][]index.Posting),
	}
}

// Load adds documents and postings. Postings with a frequency below 1 are
// skipped, matching the SQL schema's check. Postings for unknown documents
// are kept but, like the SQL join, never returned.
func (m *MemoryStore) Load(docs []index.Document, postings []index.Posting) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, d := range docs {
		m.urls[d.ID] = d.URL
	}
	for _, p := range postings {
		if p.Frequency < 1 {
			continue
		}
		p.URL = ""
		m.byKeyword[p.Keyword] = append(m.byKeyword[p.Keyword], p)
	}
}

func (m *MemoryStore) Postings(ctx context.Context, keywords []string) ([]index.Posting, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []index.Posting
	for _, kw := range keywords {
		for _, p := range m.byKeyword[kw] {
			url, ok := m.urls[p.DocID]
			if !ok {
				continue
			}
			p.URL = url
			out = append(out, p)
		}
	}
	return out, nil
}

func (m *MemoryStore) CountDocuments(ctx context.Context, keywords []string) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	docs := make(map[int64]struct{})
	for _, kw := range keywords {
		for _, p := range m.byKeyword[kw] {
			if _, ok := m.urls[p.DocID]; ok {
				docs[p.DocID] = struct{}{}
			}
		}
	}
	return len(docs), nil
}

func (m *MemoryStore) RankPage(ctx context.Context, keywords []string, offset, limit int) ([]index.Candidate, error) {
	postings, err := m.Postings(ctx, keywords)
	if err != nil {
		return nil, err
	}
	candidates := ranker.Aggregate(postings, keywords, ranker.QuerySizeScorer{})
	if offset < 0 || limit < 1 || offset >= len(candidates) {
		return []index.Candidate{}, nil
	}
	n := len(candidates)
	if limit < n-offset {
		n = offset + limit
	}
	return ranker.Top(candidates, n)[offset:], nil
}

func (m *MemoryStore) Ping(ctx context.Context) error {
	return ctx.Err()
}
