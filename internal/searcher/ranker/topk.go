package ranker

import (
	"container/heap"

	"github.com/Adithya-Monish-Kumar-K/Keyword-Search-Service/internal/index"
)

// Top returns the n best candidates in ranking order without sorting the
// whole slice. candidates is not modified.
func Top(candidates []index.Candidate, n int) []index.Candidate {
	if n <= 0 {
		return []index.Candidate{}
	}
	if n >= len(candidates) {
		out := append([]index.Candidate(nil), candidates...)
		Sort(out)
		return out
	}
	h := make(worstFirst, 0, n+1)
	for _, c := range candidates {
		heap.Push(&h, c)
		if h.Len() > n {
			heap.Pop(&h)
		}
	}
	out := make([]index.Candidate, h.Len())
	for i := len(out) - 1; i >= 0; i-- {
		out[i] = heap.Pop(&h).(index.Candidate)
	}
	return out
}

// Window returns page of the ranked candidates. Unlike Paginate it accepts
// unsorted input and only orders the first page*limit entries.
func Window(candidates []index.Candidate, page, limit int) []index.Candidate {
	offset, ok := Offset(page, limit)
	if !ok || offset >= len(candidates) {
		return []index.Candidate{}
	}
	n := len(candidates)
	if limit < n-offset {
		n = offset + limit
	}
	return Paginate(Top(candidates, n), page, limit)
}

func less(a, b index.Candidate) bool {
	if a.Score != b.Score {
		return a.Score > b.Score
	}
	return a.DocID < b.DocID
}

// worstFirst is a heap whose root is the lowest ranked candidate.
type worstFirst []index.Candidate

func (h worstFirst) Len() int           { return len(h) }
func (h worstFirst) Less(i, j int) bool { return less(h[j], h[i]) }
func (h worstFirst) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }

func (h *worstFirst) Push(x any) {
	*h = append(*h, x.(index.Candidate))
}

func (h *worstFirst) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}
