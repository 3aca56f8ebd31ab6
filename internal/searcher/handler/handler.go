// Package handler exposes the ranking engine over HTTP.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/Adithya-Monish-Kumar-K/Keyword-Search-Service/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/Keyword-Search-Service/internal/searcher/cache"
	"github.com/Adithya-Monish-Kumar-K/Keyword-Search-Service/internal/searcher/engine"
	"github.com/Adithya-Monish-Kumar-K/Keyword-Search-Service/internal/searcher/parser"
	apperrors "github.com/Adithya-Monish-Kumar-K/Keyword-Search-Service/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/Keyword-Search-Service/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/Keyword-Search-Service/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/Keyword-Search-Service/pkg/middleware"
	"github.com/Adithya-Monish-Kumar-K/Keyword-Search-Service/pkg/tracing"
)

// Ranker is implemented by *engine.Engine.
type Ranker interface {
	Normalize(keywords []string, page, limit int) engine.Query
	Execute(ctx context.Context, q engine.Query) (*engine.ResultPage, error)
}

// EventTracker receives one event per answered search. Both
// *analytics.Collector and *analytics.Aggregator satisfy it.
type EventTracker interface {
	Track(event analytics.SearchEvent)
}

const (
	cacheHit      = "hit"
	cacheMiss     = "miss"
	cacheDisabled = "disabled"
)

type Handler struct {
	ranker  Ranker
	cache   *cache.QueryCache
	tracker EventTracker
	metrics *metrics.Metrics
	logger  *slog.Logger
}

// New creates a Handler. queryCache, tracker and m may be nil.
func New(ranker Ranker, queryCache *cache.QueryCache, tracker EventTracker, m *metrics.Metrics) *Handler {
	return &Handler{
		ranker:  ranker,
		cache:   queryCache,
		tracker: tracker,
		metrics: m,
		logger:  slog.Default().With("component", "search-handler"),
	}
}

// Register mounts the search and cache routes on mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/v1/search", h.Search)
	mux.HandleFunc("GET /api/v1/cache/stats", h.CacheStats)
	mux.HandleFunc("POST /api/v1/cache/invalidate", h.CacheInvalidate)
}

// Search serves GET /api/v1/search?q=db,engine&page=2&limit=5. Missing or
// malformed pagination falls back to the defaults; a missing q yields an
// empty page.
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	ctx, span := tracing.Start(r.Context(), "search", middleware.GetRequestID(r.Context()))
	log := logger.FromContext(ctx)
	defer func() {
		span.End()
		span.Log(ctx, log)
	}()

	params := r.URL.Query()
	q := h.ranker.Normalize(
		parser.Split(params.Get("q")),
		intParam(params.Get("page")),
		intParam(params.Get("limit")),
	)

	var (
		page   *engine.ResultPage
		hit    bool
		err    error
		status = cacheDisabled
	)
	if h.cache != nil && len(q.Keywords) > 0 {
		page, hit, err = h.cache.GetOrCompute(ctx, q, func(ctx context.Context) (*engine.ResultPage, error) {
			return h.ranker.Execute(ctx, q)
		})
		status = cacheMiss
		if hit {
			status = cacheHit
		}
	} else {
		page, err = h.ranker.Execute(ctx, q)
	}
	latency := time.Since(start)
	span.SetAttr("keywords", q.Keywords)
	span.SetAttr("cache", status)

	if err != nil {
		h.observe(metrics.ResultError, status, latency, 0)
		code := apperrors.HTTPStatusCode(err)
		log.Error("search failed",
			"keywords", q.Keywords,
			"page", q.Page,
			"status", code,
			"error", err,
		)
		switch {
		case errors.Is(err, apperrors.ErrStoreUnavailable):
			h.writeError(w, http.StatusServiceUnavailable, "search service unavailable")
		default:
			h.writeError(w, code, "search failed")
		}
		return
	}

	resultType := metrics.ResultHit
	if page.Total == 0 {
		resultType = metrics.ResultZero
	}
	h.observe(resultType, status, latency, len(page.Results))

	log.Info("search completed",
		"keywords", q.Keywords,
		"page", q.Page,
		"limit", q.Limit,
		"total", page.Total,
		"returned", len(page.Results),
		"cache", status,
		"latency_ms", latency.Milliseconds(),
	)
	if h.tracker != nil && len(q.Keywords) > 0 {
		h.tracker.Track(analytics.SearchEvent{
			Keywords:  q.Keywords,
			Page:      q.Page,
			Limit:     q.Limit,
			Total:     page.Total,
			Returned:  len(page.Results),
			LatencyMs: latency.Milliseconds(),
			CacheHit:  hit,
			Timestamp: time.Now().UTC(),
			RequestID: middleware.GetRequestID(ctx),
		})
	}

	h.writeJSON(w, http.StatusOK, page)
}

func (h *Handler) CacheStats(w http.ResponseWriter, r *http.Request) {
	if h.cache == nil {
		h.writeJSON(w, http.StatusOK, map[string]string{"status": cacheDisabled})
		return
	}
	h.writeJSON(w, http.StatusOK, h.cache.Stats())
}

func (h *Handler) CacheInvalidate(w http.ResponseWriter, r *http.Request) {
	if h.cache == nil {
		h.writeError(w, http.StatusServiceUnavailable, "caching is disabled")
		return
	}
	deleted, err := h.cache.Invalidate(r.Context())
	if err != nil {
		logger.FromContext(r.Context()).Error("cache invalidation failed", "error", err)
		h.writeError(w, http.StatusInternalServerError, "cache invalidation failed")
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"status": "invalidated", "deleted": deleted})
}

func (h *Handler) observe(resultType, cacheStatus string, latency time.Duration, returned int) {
	if h.metrics == nil {
		return
	}
	h.metrics.SearchQueriesTotal.WithLabelValues(resultType).Inc()
	h.metrics.SearchLatency.WithLabelValues(cacheStatus).Observe(latency.Seconds())
	if resultType != metrics.ResultError {
		h.metrics.SearchResultsCount.Observe(float64(returned))
	}
}

// intParam parses a query parameter, returning 0 (meaning "use the default")
// when it is absent or not an integer.
func intParam(raw string) int {
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0
	}
	return n
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to write response", "error", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}
