package cache

import (
	"context"
	"errors"
	"path"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/Keyword-Search-Service/internal/searcher/engine"
	"github.com/Adithya-Monish-Kumar-K/Keyword-Search-Service/pkg/metrics"
)

type memBackend struct {
	mu     sync.Mutex
	data   map[string][]byte
	ttls   map[string]time.Duration
	getErr error
}

func newMemBackend() *memBackend {
	return &memBackend{data: map[string][]byte{}, ttls: map[string]time.Duration{}}
}

func (b *memBackend) Get(_ context.Context, key string) ([]byte, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.getErr != nil {
		return nil, b.getErr
	}
	v, ok := b.data[key]
	if !ok {
		return nil, redis.Nil
	}
	return v, nil
}

func (b *memBackend) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.data[key] = value
	b.ttls[key] = ttl
	return nil
}

func (b *memBackend) FlushByPattern(_ context.Context, pattern string) (int64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	var n int64
	for k := range b.data {
		if ok, _ := path.Match(pattern, k); ok {
			delete(b.data, k)
			n++
		}
	}
	return n, nil
}

func samplePage() *engine.ResultPage {
	return &engine.ResultPage{
		Page: 1, Limit: 10, Total: 2, TotalPages: 1,
		Keywords: []string{"db", "engine"},
		Results:  []engine.Result{{URL: "A", Score: 5}, {URL: "B", Score: 0.5}},
	}
}

var sampleQuery = engine.Query{Keywords: []string{"db", "engine"}, Page: 1, Limit: 10}

func TestGetOrComputeCachesResult(t *testing.T) {
	m := metrics.New(prometheus.NewRegistry())
	backend := newMemBackend()
	c := New(backend, time.Minute, m)
	ctx := context.Background()

	var calls int
	compute := func(context.Context) (*engine.ResultPage, error) {
		calls++
		return samplePage(), nil
	}

	page, hit, err := c.GetOrCompute(ctx, sampleQuery, compute)
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Equal(t, samplePage(), page)

	page, hit, err = c.GetOrCompute(ctx, sampleQuery, compute)
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, samplePage(), page)
	assert.Equal(t, 1, calls)

	assert.Equal(t, Stats{Hits: 1, Misses: 1, HitRate: 0.5}, c.Stats())
	assert.Equal(t, 1.0, testutil.ToFloat64(m.CacheHitsTotal))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.CacheMissesTotal))
	for _, ttl := range backend.ttls {
		assert.Equal(t, time.Minute, ttl)
	}
}

func TestGetOrComputeDoesNotCacheErrors(t *testing.T) {
	c := New(newMemBackend(), time.Minute, nil)
	boom := errors.New("store down")

	_, _, err := c.GetOrCompute(context.Background(), sampleQuery, func(context.Context) (*engine.ResultPage, error) {
		return nil, boom
	})
	assert.ErrorIs(t, err, boom)

	_, ok := c.Get(context.Background(), sampleQuery)
	assert.False(t, ok)
}

func TestPaginationIsPartOfTheKey(t *testing.T) {
	c := New(newMemBackend(), time.Minute, nil)
	ctx := context.Background()
	c.Set(ctx, sampleQuery, samplePage())

	other := sampleQuery
	other.Page = 2
	_, ok := c.Get(ctx, other)
	assert.False(t, ok)
	assert.NotEqual(t, buildKey(sampleQuery), buildKey(other))
}

func TestBackendErrorIsAMiss(t *testing.T) {
	backend := newMemBackend()
	backend.getErr = errors.New("connection reset")
	c := New(backend, time.Minute, nil)

	page, hit, err := c.GetOrCompute(context.Background(), sampleQuery, func(context.Context) (*engine.ResultPage, error) {
		return samplePage(), nil
	})
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Equal(t, samplePage(), page)
}

func TestCorruptEntryIsAMiss(t *testing.T) {
	backend := newMemBackend()
	c := New(backend, time.Minute, nil)
	backend.data[buildKey(sampleQuery)] = []byte("{not json")

	_, ok := c.Get(context.Background(), sampleQuery)
	assert.False(t, ok)
}

func TestConcurrentMissesCoalesce(t *testing.T) {
	c := New(newMemBackend(), time.Minute, nil)
	var calls atomic.Int32
	release := make(chan struct{})
	compute := func(context.Context) (*engine.ResultPage, error) {
		calls.Add(1)
		<-release
		return samplePage(), nil
	}

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _, err := c.GetOrCompute(context.Background(), sampleQuery, compute)
			assert.NoError(t, err)
		}()
	}
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, int32(1), calls.Load())
}

func TestCancelledCallerDoesNotFailOthers(t *testing.T) {
	c := New(newMemBackend(), time.Minute, nil)
	started := make(chan struct{})
	release := make(chan struct{})
	var once sync.Once
	compute := func(ctx context.Context) (*engine.ResultPage, error) {
		once.Do(func() { close(started) })
		select {
		case <-release:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
		return samplePage(), nil
	}

	firstCtx, cancelFirst := context.WithCancel(context.Background())
	firstErr := make(chan error, 1)
	go func() {
		_, _, err := c.GetOrCompute(firstCtx, sampleQuery, compute)
		firstErr <- err
	}()
	<-started

	type outcome struct {
		page *engine.ResultPage
		err  error
	}
	second := make(chan outcome, 1)
	go func() {
		page, _, err := c.GetOrCompute(context.Background(), sampleQuery, compute)
		second <- outcome{page, err}
	}()
	time.Sleep(20 * time.Millisecond)

	cancelFirst()
	assert.ErrorIs(t, <-firstErr, context.Canceled)

	close(release)
	got := <-second
	require.NoError(t, got.err)
	assert.Equal(t, samplePage(), got.page)

	_, ok := c.Get(context.Background(), sampleQuery)
	assert.True(t, ok, "shared result is cached after the first caller left")
}

func TestComputeTimeoutBoundsSharedWork(t *testing.T) {
	c := New(newMemBackend(), time.Minute, nil)
	c.SetComputeTimeout(10 * time.Millisecond)

	_, _, err := c.GetOrCompute(context.Background(), sampleQuery, func(ctx context.Context) (*engine.ResultPage, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestInvalidate(t *testing.T) {
	backend := newMemBackend()
	backend.data["session:abc"] = []byte("keep")
	c := New(backend, time.Minute, nil)
	ctx := context.Background()
	c.Set(ctx, sampleQuery, samplePage())

	n, err := c.Invalidate(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	_, ok := c.Get(ctx, sampleQuery)
	assert.False(t, ok)
	assert.Contains(t, backend.data, "session:abc")
}

func TestInvalidationHandler(t *testing.T) {
	backend := newMemBackend()
	c := New(backend, time.Minute, nil)
	ctx := context.Background()
	handle := c.InvalidationHandler()

	c.Set(ctx, sampleQuery, samplePage())
	require.NoError(t, handle(ctx, nil, []byte(`{"pageId":7,"url":"https://a.example","keywords":["db"]}`)))
	_, ok := c.Get(ctx, sampleQuery)
	assert.False(t, ok)

	c.Set(ctx, sampleQuery, samplePage())
	require.NoError(t, handle(ctx, nil, []byte("garbage")))
	_, ok = c.Get(ctx, sampleQuery)
	assert.False(t, ok)
}
