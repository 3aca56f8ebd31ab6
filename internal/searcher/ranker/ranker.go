// Package ranker aggregates postings into per-document candidates, scores
// them, and orders and pages the result.
package ranker

import (
	"math"
	"sort"

	"github.com/Adithya-Monish-Kumar-K/Keyword-Search-Service/internal/index"
)

// Scorer turns a candidate's match statistics into a relevance score.
// k is the size of the effective keyword set.
type Scorer interface {
	Score(matched, freqSum, k int) float64
}

// QuerySizeScorer scores freqSum*matched/k: documents matching more of the
// query and matching it more often rank higher, normalised by query size
// rather than by the number of matched keywords.
type QuerySizeScorer struct{}

func (QuerySizeScorer) Score(matched, freqSum, k int) float64 {
	if k <= 0 {
		return 0
	}
	return float64(freqSum) * float64(matched) / float64(k)
}

type aggregate struct {
	url     string
	seen    []bool
	matched int
	freqSum int
}

// Aggregate groups postings by document and scores each document with s.
// keywords must be the deduplicated effective keyword set; postings for other
// keywords and postings with a non-positive frequency are ignored. The result
// is unordered.
func Aggregate(postings []index.Posting, keywords []string, s Scorer) []index.Candidate {
	k := len(keywords)
	if k == 0 || len(postings) == 0 {
		return []index.Candidate{}
	}
	slot := make(map[string]int, k)
	for i, kw := range keywords {
		slot[kw] = i
	}

	docs := make(map[int64]*aggregate)
	order := make([]int64, 0)
	for _, p := range postings {
		i, ok := slot[p.Keyword]
		if !ok || p.Frequency < 1 {
			continue
		}
		agg, ok := docs[p.DocID]
		if !ok {
			agg = &aggregate{url: p.URL, seen: make([]bool, k)}
			docs[p.DocID] = agg
			order = append(order, p.DocID)
		}
		if !agg.seen[i] {
			agg.seen[i] = true
			agg.matched++
		}
		agg.freqSum += p.Frequency
		if agg.url == "" {
			agg.url = p.URL
		}
	}

	candidates := make([]index.Candidate, 0, len(docs))
	for _, docID := range order {
		agg := docs[docID]
		candidates = append(candidates, index.Candidate{
			DocID:   docID,
			URL:     agg.url,
			Matched: agg.matched,
			FreqSum: agg.freqSum,
			Score:   s.Score(agg.matched, agg.freqSum, k),
		})
	}
	return candidates
}

// Sort orders candidates by score descending, ties broken by document id
// ascending, so identical inputs always produce identical orderings.
func Sort(candidates []index.Candidate) {
	sort.Slice(candidates, func(i, j int) bool {
		return less(candidates[i], candidates[j])
	})
}

// Offset returns the number of entries to skip for a 1-based page. ok is
// false when the offset does not fit in an int, which callers treat as a page
// past the end.
func Offset(page, limit int) (offset int, ok bool) {
	if page < 1 || limit < 1 {
		return 0, false
	}
	if page-1 > math.MaxInt/limit {
		return 0, false
	}
	return (page - 1) * limit, true
}

// Paginate returns the window of sorted candidates for page. A page past the
// end yields an empty, non-nil slice.
func Paginate(sorted []index.Candidate, page, limit int) []index.Candidate {
	offset, ok := Offset(page, limit)
	if !ok || offset >= len(sorted) {
		return []index.Candidate{}
	}
	end := len(sorted)
	if limit < end-offset {
		end = offset + limit
	}
	return sorted[offset:end]
}

// TotalPages is ceil(total/limit).
func TotalPages(total, limit int) int {
	if total <= 0 || limit <= 0 {
		return 0
	}
	return (total + limit - 1) / limit
}
