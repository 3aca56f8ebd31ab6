// Package engine ranks documents of the inverted index against a keyword
// query and returns one page of results together with the total match count.
package engine

import (
	"context"
	"strconv"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/Adithya-Monish-Kumar-K/Keyword-Search-Service/internal/index"
	"github.com/Adithya-Monish-Kumar-K/Keyword-Search-Service/internal/searcher/parser"
	"github.com/Adithya-Monish-Kumar-K/Keyword-Search-Service/internal/searcher/ranker"
	"github.com/Adithya-Monish-Kumar-K/Keyword-Search-Service/internal/store"
	apperrors "github.com/Adithya-Monish-Kumar-K/Keyword-Search-Service/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/Keyword-Search-Service/pkg/logger"
)

const (
	DefaultPage  = 1
	DefaultLimit = 10
)

// Result is one ranked document.
type Result struct {
	URL   string  `json:"url"`
	Score float64 `json:"score"`
}

// ResultPage is one page of ranked results. Total counts every matching
// document regardless of Page and Limit.
type ResultPage struct {
	Page       int      `json:"page"`
	Limit      int      `json:"limit"`
	Total      int      `json:"total"`
	TotalPages int      `json:"totalPages"`
	Keywords   []string `json:"keywords"`
	Results    []Result `json:"results"`
}

// Query is a normalised ranking request.
type Query struct {
	Keywords []string
	Page     int
	Limit    int
}

// Key identifies the query for caching. Two queries with the same key always
// produce the same page for the same index contents.
func (q Query) Key() string {
	return strings.Join(q.Keywords, parser.Separator) + "|" + strconv.Itoa(q.Page) + "|" + strconv.Itoa(q.Limit)
}

// Options configures an Engine. Zero values fall back to defaults; MaxLimit
// of zero leaves the limit uncapped.
type Options struct {
	DefaultLimit int
	MaxLimit     int
	// Pushdown lets a store that implements store.PagedRanker score, sort and
	// page inside the backend. The page and the total are then read
	// concurrently and may disagree under concurrent index writes.
	Pushdown bool
	Scorer   ranker.Scorer
	// Timeout bounds a single Execute call. Zero means no extra deadline.
	Timeout time.Duration
}

// Engine is stateless apart from its configuration and is safe for
// concurrent use.
type Engine struct {
	store store.PostingStore
	paged store.PagedRanker
	opts  Options
}

func New(s store.PostingStore, opts Options) *Engine {
	if opts.DefaultLimit < 1 {
		opts.DefaultLimit = DefaultLimit
	}
	if opts.MaxLimit > 0 && opts.DefaultLimit > opts.MaxLimit {
		opts.DefaultLimit = opts.MaxLimit
	}
	if opts.Scorer == nil {
		opts.Scorer = ranker.QuerySizeScorer{}
	}
	e := &Engine{store: s, opts: opts}
	// The SQL page query hard-codes the query-size formula, so a custom
	// scorer always ranks in process.
	if _, ok := opts.Scorer.(ranker.QuerySizeScorer); ok && opts.Pushdown {
		if p, ok := s.(store.PagedRanker); ok {
			e.paged = p
		}
	}
	return e
}

// Pushdown reports whether ranking is delegated to the store.
func (e *Engine) Pushdown() bool {
	return e.paged != nil
}

// Normalize applies keyword normalisation and pagination defaults.
func (e *Engine) Normalize(keywords []string, page, limit int) Query {
	if page < 1 {
		page = DefaultPage
	}
	if limit < 1 {
		limit = e.opts.DefaultLimit
	}
	if e.opts.MaxLimit > 0 && limit > e.opts.MaxLimit {
		limit = e.opts.MaxLimit
	}
	return Query{
		Keywords: parser.Normalize(keywords),
		Page:     page,
		Limit:    limit,
	}
}

// Rank normalises the request and executes it.
func (e *Engine) Rank(ctx context.Context, keywords []string, page, limit int) (*ResultPage, error) {
	return e.Execute(ctx, e.Normalize(keywords, page, limit))
}

// Execute runs an already normalised query. An empty keyword set returns an
// empty page without touching the store. Store failures are returned as
// errors matching apperrors.ErrStoreUnavailable; no partial page is returned.
func (e *Engine) Execute(ctx context.Context, q Query) (*ResultPage, error) {
	if len(q.Keywords) == 0 {
		return newPage(q, 0, nil), nil
	}
	if e.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.opts.Timeout)
		defer cancel()
	}

	start := time.Now()
	var (
		candidates []index.Candidate
		total      int
		err        error
	)
	if e.paged != nil {
		candidates, total, err = e.rankInStore(ctx, q)
	} else {
		candidates, total, err = e.rankInProcess(ctx, q)
	}
	if err != nil {
		return nil, err
	}

	logger.FromContext(ctx).Debug("query ranked",
		"component", "ranking-engine",
		"keywords", q.Keywords,
		"page", q.Page,
		"limit", q.Limit,
		"total", total,
		"returned", len(candidates),
		"pushdown", e.paged != nil,
		"duration", time.Since(start),
	)
	return newPage(q, total, candidates), nil
}

func (e *Engine) rankInProcess(ctx context.Context, q Query) ([]index.Candidate, int, error) {
	postings, err := e.store.Postings(ctx, q.Keywords)
	if err != nil {
		return nil, 0, apperrors.StoreUnavailable("fetching postings", err)
	}
	candidates := ranker.Aggregate(postings, q.Keywords, e.opts.Scorer)
	return ranker.Window(candidates, q.Page, q.Limit), len(candidates), nil
}

func (e *Engine) rankInStore(ctx context.Context, q Query) ([]index.Candidate, int, error) {
	var (
		candidates = []index.Candidate{}
		total      int
	)
	g, gctx := errgroup.WithContext(ctx)
	if offset, ok := ranker.Offset(q.Page, q.Limit); ok {
		g.Go(func() error {
			page, err := e.paged.RankPage(gctx, q.Keywords, offset, q.Limit)
			if err != nil {
				return apperrors.StoreUnavailable("ranking page", err)
			}
			candidates = page
			return nil
		})
	}
	g.Go(func() error {
		n, err := e.store.CountDocuments(gctx, q.Keywords)
		if err != nil {
			return apperrors.StoreUnavailable("counting documents", err)
		}
		total = n
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, 0, err
	}
	return candidates, total, nil
}

func newPage(q Query, total int, candidates []index.Candidate) *ResultPage {
	results := make([]Result, len(candidates))
	for i, c := range candidates {
		results[i] = Result{URL: c.URL, Score: c.Score}
	}
	keywords := q.Keywords
	if keywords == nil {
		keywords = []string{}
	}
	return &ResultPage{
		Page:       q.Page,
		Limit:      q.Limit,
		Total:      total,
		TotalPages: ranker.TotalPages(total, q.Limit),
		Keywords:   keywords,
		Results:    results,
	}
}
