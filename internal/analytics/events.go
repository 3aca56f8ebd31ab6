// Package analytics tracks search events. The collector ships them to Kafka
// in batches; the aggregator consumes them and serves summary statistics.
package analytics

import (
	"strings"
	"time"
)

// SearchEvent describes one answered keyword query.
type SearchEvent struct {
	Keywords  []string  `json:"keywords"`
	Page      int       `json:"page"`
	Limit     int       `json:"limit"`
	Total     int       `json:"total"`
	Returned  int       `json:"returned"`
	LatencyMs int64     `json:"latency_ms"`
	CacheHit  bool      `json:"cache_hit"`
	Timestamp time.Time `json:"timestamp"`
	RequestID string    `json:"request_id,omitempty"`
}

// QueryKey is the keyword set as one string, used as the Kafka message key
// and for top-query counting. Pagination is deliberately not part of it.
func (e SearchEvent) QueryKey() string {
	return strings.Join(e.Keywords, ",")
}

// ZeroResult reports whether the query matched no document at all.
func (e SearchEvent) ZeroResult() bool {
	return e.Total == 0
}
