package store

import (
	"context"
	"time"

	"github.com/Adithya-Monish-Kumar-K/Keyword-Search-Service/internal/index"
	"github.com/Adithya-Monish-Kumar-K/Keyword-Search-Service/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/Keyword-Search-Service/pkg/resilience"
	"github.com/Adithya-Monish-Kumar-K/Keyword-Search-Service/pkg/tracing"
)

// Operation labels recorded by Guard.
const (
	OpPostings = "postings"
	OpCount    = "count"
	OpRankPage = "rank_page"
)

type guarded struct {
	inner   PostingStore
	breaker *resilience.CircuitBreaker
	m       *metrics.Metrics
}

type guardedRanker struct {
	*guarded
	ranker PagedRanker
}

// Guard wraps s with an optional circuit breaker, optional latency/error
// metrics and a tracing span per call. The result implements PagedRanker
// exactly when s does.
func Guard(s PostingStore, breaker *resilience.CircuitBreaker, m *metrics.Metrics) PostingStore {
	g := &guarded{inner: s, breaker: breaker, m: m}
	if r, ok := s.(PagedRanker); ok {
		return &guardedRanker{guarded: g, ranker: r}
	}
	return g
}

func (g *guarded) do(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	ctx, span := tracing.StartChild(ctx, "store."+op)
	defer span.End()
	start := time.Now()
	var err error
	if g.breaker != nil {
		err = g.breaker.Execute(ctx, fn)
	} else {
		err = fn(ctx)
	}
	if err != nil {
		span.SetAttr("error", err.Error())
	}
	if g.m != nil {
		g.m.StoreQueryDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
		if err != nil {
			g.m.StoreErrorsTotal.WithLabelValues(op).Inc()
		}
	}
	return err
}

func (g *guarded) Postings(ctx context.Context, keywords []string) ([]index.Posting, error) {
	var out []index.Posting
	err := g.do(ctx, OpPostings, func(ctx context.Context) error {
		var err error
		out, err = g.inner.Postings(ctx, keywords)
		return err
	})
	return out, err
}

func (g *guarded) CountDocuments(ctx context.Context, keywords []string) (int, error) {
	var total int
	err := g.do(ctx, OpCount, func(ctx context.Context) error {
		var err error
		total, err = g.inner.CountDocuments(ctx, keywords)
		return err
	})
	return total, err
}

func (g *guarded) Ping(ctx context.Context) error {
	if p, ok := g.inner.(Pinger); ok {
		return p.Ping(ctx)
	}
	return nil
}

func (g *guardedRanker) RankPage(ctx context.Context, keywords []string, offset, limit int) ([]index.Candidate, error) {
	var out []index.Candidate
	err := g.do(ctx, OpRankPage, func(ctx context.Context) error {
		var err error
		out, err = g.ranker.RankPage(ctx, keywords, offset, limit)
		return err
	})
	return out, err
}

// BreakerGauge returns a resilience state-change hook that mirrors the
// breaker state into m.CircuitBreakerState.
func BreakerGauge(m *metrics.Metrics) func(name string, from, to resilience.State) {
	return func(name string, _, to resilience.State) {
		m.CircuitBreakerState.WithLabelValues(name).Set(float64(to))
	}
}
