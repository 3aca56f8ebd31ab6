// Command loadtest drives GET /api/v1/search with a rotating set of keyword
// queries and reports latency percentiles and status codes.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"
)

type Config struct {
	BaseURL     string
	Concurrency int
	Duration    time.Duration
	MaxPage     int
	Limit       int
	RPS         float64
	Queries     []string
}

var defaultQueries = []string{
	"db,engine",
	"search,engine",
	"cache",
	"inverted,index",
	"ranking,pagination",
	"postgres,sqlite",
	"kafka,analytics",
	"circuit,breaker",
	"keyword",
	"distributed,systems,consensus",
	"crawler,queue",
	"frequency,score",
}

func main() {
	cfg := Config{Queries: defaultQueries}
	flag.StringVar(&cfg.BaseURL, "url", "http://localhost:5000", "base URL of the search service")
	flag.IntVar(&cfg.Concurrency, "concurrency", 10, "number of concurrent workers")
	flag.DurationVar(&cfg.Duration, "duration", 30*time.Second, "test duration")
	flag.IntVar(&cfg.MaxPage, "pages", 3, "pages are requested round-robin from 1 to this value")
	flag.IntVar(&cfg.Limit, "limit", 10, "results per page")
	flag.Float64Var(&cfg.RPS, "rps", 0, "global request rate cap, 0 for unlimited")
	flag.Parse()

	fmt.Println("=== Keyword Search Load Test ===")
	fmt.Printf("Target:      %s\n", cfg.BaseURL)
	fmt.Printf("Concurrency: %d\n", cfg.Concurrency)
	fmt.Printf("Duration:    %s\n", cfg.Duration)
	fmt.Printf("Queries:     %d unique, pages 1-%d\n", len(cfg.Queries), cfg.MaxPage)
	fmt.Println()

	stats := run(cfg)
	if !stats.Report(os.Stdout, cfg.Duration) {
		fmt.Println()
		fmt.Println("WARNING: No requests completed. Is the service running?")
		os.Exit(1)
	}
}

// searchURL builds the request for the i-th iteration.
func searchURL(cfg Config, i int) string {
	q := url.Values{}
	q.Set("q", cfg.Queries[i%len(cfg.Queries)])
	q.Set("page", strconv.Itoa(i%max(cfg.MaxPage, 1)+1))
	q.Set("limit", strconv.Itoa(cfg.Limit))
	return cfg.BaseURL + "/api/v1/search?" + q.Encode()
}

func run(cfg Config) *Stats {
	stats := NewStats()
	client := &http.Client{
		Timeout: 10 * time.Second,
		Transport: &http.Transport{
			MaxIdleConns:        cfg.Concurrency * 2,
			MaxIdleConnsPerHost: cfg.Concurrency * 2,
			IdleConnTimeout:     90 * time.Second,
		},
	}
	var limiter *rate.Limiter
	if cfg.RPS > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RPS), cfg.Concurrency)
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Duration)
	defer cancel()

	var wg sync.WaitGroup
	for w := 0; w < cfg.Concurrency; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := w; ctx.Err() == nil; i += cfg.Concurrency {
				if limiter != nil && limiter.Wait(ctx) != nil {
					return
				}
				doSearch(ctx, client, searchURL(cfg, i), stats)
			}
		}()
	}
	wg.Wait()
	return stats
}

func doSearch(ctx context.Context, client *http.Client, rawURL string, stats *Stats) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		stats.Record(0, 0, false, err)
		return
	}
	req.Header.Set("X-Request-ID", "loadtest-"+uuid.NewString())

	start := time.Now()
	resp, err := client.Do(req)
	if err != nil {
		if ctx.Err() == nil {
			stats.Record(time.Since(start), 0, false, err)
		}
		return
	}
	defer resp.Body.Close()

	var body struct {
		Total int `json:"total"`
	}
	decodeErr := json.NewDecoder(resp.Body).Decode(&body)
	elapsed := time.Since(start)
	if resp.StatusCode == http.StatusOK && decodeErr != nil {
		stats.Record(elapsed, resp.StatusCode, false, decodeErr)
		return
	}
	stats.Record(elapsed, resp.StatusCode, body.Total == 0, nil)
}
