// Package cache stores ranked result pages in Redis so repeated queries skip
// the posting store.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/Adithya-Monish-Kumar-K/Keyword-Search-Service/internal/searcher/engine"
	"github.com/Adithya-Monish-Kumar-K/Keyword-Search-Service/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/Keyword-Search-Service/pkg/metrics"
	pkgredis "github.com/Adithya-Monish-Kumar-K/Keyword-Search-Service/pkg/redis"
)

const keyPrefix = "search:"

// Backend is the subset of the Redis client used by the cache. Get must
// return an error matching pkgredis.IsNilError on a miss.
type Backend interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	FlushByPattern(ctx context.Context, pattern string) (int64, error)
}

// Stats is a snapshot of the cache counters since start.
type Stats struct {
	Hits    int64   `json:"hits"`
	Misses  int64   `json:"misses"`
	HitRate float64 `json:"hitRate"`
}

type QueryCache struct {
	backend Backend
	ttl     time.Duration
	timeout time.Duration
	group   singleflight.Group
	metrics *metrics.Metrics
	logger  *slog.Logger
	hits    atomic.Int64
	misses  atomic.Int64
}

// New creates a QueryCache. m may be nil.
func New(backend Backend, ttl time.Duration, m *metrics.Metrics) *QueryCache {
	return &QueryCache{
		backend: backend,
		ttl:     ttl,
		metrics: m,
		logger:  slog.Default().With("component", "query-cache"),
	}
}

// SetComputeTimeout bounds the shared computation started by GetOrCompute.
// Zero leaves it to the compute function. Call it before serving requests.
func (c *QueryCache) SetComputeTimeout(d time.Duration) {
	c.timeout = d
}

// Get looks q up. Backend and decoding errors are logged and reported as a
// miss.
func (c *QueryCache) Get(ctx context.Context, q engine.Query) (*engine.ResultPage, bool) {
	key := buildKey(q)
	data, err := c.backend.Get(ctx, key)
	if err != nil {
		if !pkgredis.IsNilError(err) {
			c.logger.Error("cache get failed", "key", key, "error", err)
		}
		c.recordMiss()
		return nil, false
	}
	var page engine.ResultPage
	if err := json.Unmarshal(data, &page); err != nil {
		c.logger.Error("cache unmarshal failed", "key", key, "error", err)
		c.recordMiss()
		return nil, false
	}
	c.recordHit()
	c.logger.Debug("cache hit", "keywords", q.Keywords, "page", q.Page, "key", key)
	return &page, true
}

// Set stores page under q. Failures are logged only.
func (c *QueryCache) Set(ctx context.Context, q engine.Query, page *engine.ResultPage) {
	key := buildKey(q)
	data, err := json.Marshal(page)
	if err != nil {
		c.logger.Error("cache marshal failed", "key", key, "error", err)
		return
	}
	if err := c.backend.Set(ctx, key, data, c.ttl); err != nil {
		c.logger.Error("cache set failed", "key", key, "error", err)
	}
}

// GetOrCompute returns the cached page for q or runs compute once for all
// concurrent callers asking for the same q. The bool reports a cache hit.
// Errors from compute are returned as-is and never cached.
//
// The shared computation is detached from the caller that started it, so a
// caller giving up only ends its own wait.
func (c *QueryCache) GetOrCompute(
	ctx context.Context,
	q engine.Query,
	compute func(ctx context.Context) (*engine.ResultPage, error),
) (*engine.ResultPage, bool, error) {
	if page, ok := c.Get(ctx, q); ok {
		return page, true, nil
	}
	key := buildKey(q)
	ch := c.group.DoChan(key, func() (any, error) {
		shared := context.WithoutCancel(ctx)
		if c.timeout > 0 {
			var cancel context.CancelFunc
			shared, cancel = context.WithTimeout(shared, c.timeout)
			defer cancel()
		}
		page, err := compute(shared)
		if err != nil {
			return nil, err
		}
		c.Set(shared, q, page)
		return page, nil
	})
	select {
	case <-ctx.Done():
		return nil, false, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, false, res.Err
		}
		return res.Val.(*engine.ResultPage), false, nil
	}
}

// Invalidate drops every cached page and returns how many keys were removed.
func (c *QueryCache) Invalidate(ctx context.Context) (int64, error) {
	deleted, err := c.backend.FlushByPattern(ctx, keyPrefix+"*")
	if err != nil {
		return 0, fmt.Errorf("invalidating cache: %w", err)
	}
	c.logger.Info("cache invalidated", "keys_deleted", deleted)
	return deleted, nil
}

func (c *QueryCache) Stats() Stats {
	s := Stats{Hits: c.hits.Load(), Misses: c.misses.Load()}
	if n := s.Hits + s.Misses; n > 0 {
		s.HitRate = float64(s.Hits) / float64(n)
	}
	return s
}

// IndexCompleteEvent is published by the indexer after it has written the
// postings of a page.
type IndexCompleteEvent struct {
	PageID   int64    `json:"pageId"`
	URL      string   `json:"url"`
	Keywords []string `json:"keywords"`
}

// InvalidationHandler returns a Kafka handler that clears the cache on every
// index.complete event. Undecodable payloads still invalidate, since any
// message on the topic means the index changed.
func (c *QueryCache) InvalidationHandler() kafka.MessageHandler {
	return func(ctx context.Context, _ []byte, value []byte) error {
		event, err := kafka.DecodeJSON[IndexCompleteEvent](value)
		if err != nil {
			c.logger.Warn("undecodable index event", "error", err)
		} else {
			c.logger.Debug("index changed", "page_id", event.PageID, "url", event.URL)
		}
		_, err = c.Invalidate(ctx)
		return err
	}
}

func (c *QueryCache) recordHit() {
	c.hits.Add(1)
	if c.metrics != nil {
		c.metrics.CacheHitsTotal.Inc()
	}
}

func (c *QueryCache) recordMiss() {
	c.misses.Add(1)
	if c.metrics != nil {
		c.metrics.CacheMissesTotal.Inc()
	}
}

func buildKey(q engine.Query) string {
	hash := sha256.Sum256([]byte(q.Key()))
	return fmt.Sprintf("%s%x", keyPrefix, hash[:16])
}
