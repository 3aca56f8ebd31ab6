package store

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/Keyword-Search-Service/internal/index"
	"github.com/Adithya-Monish-Kumar-K/Keyword-Search-Service/internal/searcher/ranker"
	"github.com/Adithya-Monish-Kumar-K/Keyword-Search-Service/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/Keyword-Search-Service/pkg/resilience"
)

func exampleDocs() []index.Document {
	return []index.Document{
		{ID: 1, URL: "https://a.example"},
		{ID: 2, URL: "https://b.example"},
		{ID: 3, URL: "https://c.example"},
	}
}

func examplePostings() []index.Posting {
	return []index.Posting{
		{Keyword: "db", DocID: 1, Frequency: 3},
		{Keyword: "db", DocID: 2, Frequency: 1},
		{Keyword: "engine", DocID: 1, Frequency: 2},
		{Keyword: "cache", DocID: 3, Frequency: 4},
	}
}

// setupSQLite creates a seeded SQLite store in a temp directory.
func setupSQLite(t *testing.T, docs []index.Document, postings []index.Posting) *SQLiteStore {
	t.Helper()
	ctx := context.Background()
	s, err := OpenSQLite(ctx, filepath.Join(t.TempDir(), "index.db"))
	require.NoError(t, err)
	t.Cleanup(func() { assert.NoError(t, s.Close()) })
	require.NoError(t, s.Seed(ctx, docs, postings))
	return s
}

func setupMemory(docs []index.Document, postings []index.Posting) *MemoryStore {
	m := NewMemoryStore()
	m.Load(docs, postings)
	return m
}

type backend interface {
	PostingStore
	PagedRanker
}

func backends(t *testing.T, docs []index.Document, postings []index.Posting) map[string]backend {
	return map[string]backend{
		"sqlite": setupSQLite(t, docs, postings),
		"memory": setupMemory(docs, postings),
	}
}

func sortPostings(ps []index.Posting) {
	sort.Slice(ps, func(i, j int) bool {
		if ps[i].Keyword != ps[j].Keyword {
			return ps[i].Keyword < ps[j].Keyword
		}
		return ps[i].DocID < ps[j].DocID
	})
}

func TestPostingsJoinURL(t *testing.T) {
	for name, s := range backends(t, exampleDocs(), examplePostings()) {
		t.Run(name, func(t *testing.T) {
			got, err := s.Postings(context.Background(), []string{"db", "engine"})
			require.NoError(t, err)
			sortPostings(got)

			want := []index.Posting{
				{Keyword: "db", DocID: 1, URL: "https://a.example", Frequency: 3},
				{Keyword: "db", DocID: 2, URL: "https://b.example", Frequency: 1},
				{Keyword: "engine", DocID: 1, URL: "https://a.example", Frequency: 2},
			}
			assert.Equal(t, want, got)
		})
	}
}

func TestPostingsNoMatch(t *testing.T) {
	for name, s := range backends(t, exampleDocs(), examplePostings()) {
		t.Run(name, func(t *testing.T) {
			got, err := s.Postings(context.Background(), []string{"nothing"})
			require.NoError(t, err)
			assert.Empty(t, got)
		})
	}
}

func TestCountDocuments(t *testing.T) {
	for name, s := range backends(t, exampleDocs(), examplePostings()) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			n, err := s.CountDocuments(ctx, []string{"db", "engine"})
			require.NoError(t, err)
			assert.Equal(t, 2, n)

			n, err = s.CountDocuments(ctx, []string{"db", "engine", "cache"})
			require.NoError(t, err)
			assert.Equal(t, 3, n)

			n, err = s.CountDocuments(ctx, nil)
			require.NoError(t, err)
			assert.Equal(t, 0, n)
		})
	}
}

func TestRankPageWorkedExample(t *testing.T) {
	for name, s := range backends(t, exampleDocs(), examplePostings()) {
		t.Run(name, func(t *testing.T) {
			got, err := s.RankPage(context.Background(), []string{"db", "engine"}, 0, 10)
			require.NoError(t, err)
			require.Len(t, got, 2)

			assert.Equal(t, index.Candidate{DocID: 1, URL: "https://a.example", Matched: 2, FreqSum: 5, Score: 5}, got[0])
			assert.Equal(t, index.Candidate{DocID: 2, URL: "https://b.example", Matched: 1, FreqSum: 1, Score: 0.5}, got[1])
		})
	}
}

func TestRankPageBackendsAgree(t *testing.T) {
	var docs []index.Document
	var postings []index.Posting
	keywords := []string{"alpha", "beta", "gamma"}
	for id := int64(1); id <= 40; id++ {
		docs = append(docs, index.Document{ID: id, URL: fmt.Sprintf("https://site.example/%d", id)})
		for i, kw := range keywords {
			if (id+int64(i))%4 == 0 {
				continue
			}
			// frequencies repeat, producing many score ties
			postings = append(postings, index.Posting{Keyword: kw, DocID: id, Frequency: int(id%3) + 1})
		}
	}
	bs := backends(t, docs, postings)
	ctx := context.Background()

	for _, page := range []struct{ offset, limit int }{{0, 7}, {7, 7}, {35, 7}, {100, 7}} {
		sqlPage, err := bs["sqlite"].RankPage(ctx, keywords, page.offset, page.limit)
		require.NoError(t, err)
		memPage, err := bs["memory"].RankPage(ctx, keywords, page.offset, page.limit)
		require.NoError(t, err)
		assert.Equal(t, memPage, sqlPage, "offset %d", page.offset)
	}
}

func TestSQLiteCancelledContext(t *testing.T) {
	s := setupSQLite(t, exampleDocs(), examplePostings())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := s.Postings(ctx, []string{"db"})
	assert.Error(t, err)
}

func TestSQLiteSeedIsUpsertForDocuments(t *testing.T) {
	s := setupSQLite(t, exampleDocs(), nil)
	ctx := context.Background()
	require.NoError(t, s.Seed(ctx,
		[]index.Document{{ID: 1, URL: "https://a2.example"}},
		[]index.Posting{{Keyword: "db", DocID: 1, Frequency: 1}},
	))

	got, err := s.Postings(ctx, []string{"db"})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "https://a2.example", got[0].URL)
}

func TestSQLiteSeedRejectsZeroFrequency(t *testing.T) {
	s := setupSQLite(t, exampleDocs(), nil)
	err := s.Seed(context.Background(), nil, []index.Posting{{Keyword: "db", DocID: 1, Frequency: 0}})
	assert.Error(t, err)
}

func TestMemoryStoreSkipsUnknownDocuments(t *testing.T) {
	m := setupMemory(exampleDocs()[:1], examplePostings())
	got, err := m.Postings(context.Background(), []string{"db"})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, int64(1), got[0].DocID)
}

func TestMemoryStoreSkipsNonPositiveFrequency(t *testing.T) {
	m := setupMemory(exampleDocs(), []index.Posting{
		{Keyword: "db", DocID: 1, Frequency: 3},
		{Keyword: "db", DocID: 2, Frequency: 0},
		{Keyword: "db", DocID: 3, Frequency: -1},
	})
	ctx := context.Background()
	kws := []string{"db"}

	postings, err := m.Postings(ctx, kws)
	require.NoError(t, err)
	count, err := m.CountDocuments(ctx, kws)
	require.NoError(t, err)
	ranked, err := m.RankPage(ctx, kws, 0, 10)
	require.NoError(t, err)

	aggregated := ranker.Aggregate(postings, kws, ranker.QuerySizeScorer{})
	assert.Equal(t, 1, count)
	assert.Len(t, aggregated, count)
	assert.Len(t, ranked, count)
}

type failingStore struct{ err error }

func (f failingStore) Postings(context.Context, []string) ([]index.Posting, error) {
	return nil, f.err
}

func (f failingStore) CountDocuments(context.Context, []string) (int, error) {
	return 0, f.err
}

func TestGuardPreservesCapabilities(t *testing.T) {
	_, ok := Guard(NewMemoryStore(), nil, nil).(PagedRanker)
	assert.True(t, ok)

	_, ok = Guard(failingStore{}, nil, nil).(PagedRanker)
	assert.False(t, ok)
}

func TestGuardRecordsMetricsAndTripsBreaker(t *testing.T) {
	m := metrics.New(prometheus.NewRegistry())
	boom := errors.New("connection refused")
	breaker := resilience.NewCircuitBreaker("posting-store", resilience.CircuitBreakerConfig{
		FailureThreshold: 2,
		OnStateChange:    BreakerGauge(m),
	})
	g := Guard(failingStore{err: boom}, breaker, m)
	ctx := context.Background()

	_, err := g.Postings(ctx, []string{"db"})
	assert.ErrorIs(t, err, boom)
	_, err = g.CountDocuments(ctx, []string{"db"})
	assert.ErrorIs(t, err, boom)

	_, err = g.Postings(ctx, []string{"db"})
	assert.ErrorIs(t, err, resilience.ErrCircuitOpen)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.StoreErrorsTotal.WithLabelValues(OpPostings)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.StoreErrorsTotal.WithLabelValues(OpCount)))
	assert.Equal(t, float64(resilience.StateOpen), testutil.ToFloat64(m.CircuitBreakerState.WithLabelValues("posting-store")))
}

func TestGuardPassesThroughResults(t *testing.T) {
	g := Guard(setupMemory(exampleDocs(), examplePostings()), nil, nil)
	n, err := g.CountDocuments(context.Background(), []string{"db"})
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	page, err := g.(PagedRanker).RankPage(context.Background(), []string{"db", "engine"}, 0, 1)
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, int64(1), page[0].DocID)
}
