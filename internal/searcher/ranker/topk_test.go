package ranker

import (
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Adithya-Monish-Kumar-K/Keyword-Search-Service/internal/index"
)

func randomCandidates(n int) []index.Candidate {
	r := rand.New(rand.NewPCG(7, 11))
	out := make([]index.Candidate, n)
	for i := range out {
		// few distinct scores so ties are common
		out[i] = index.Candidate{DocID: int64(r.IntN(10 * n)), Score: float64(r.IntN(5))}
	}
	return out
}

func TestTopMatchesFullSort(t *testing.T) {
	candidates := randomCandidates(200)
	sorted := append([]index.Candidate(nil), candidates...)
	Sort(sorted)

	for _, n := range []int{0, 1, 17, 199, 200, 500} {
		got := Top(candidates, n)
		want := sorted
		if n < len(sorted) {
			want = sorted[:n]
		}
		assert.Equal(t, want, got, "n=%d", n)
	}
}

func TestTopLeavesInputUntouched(t *testing.T) {
	candidates := randomCandidates(50)
	before := append([]index.Candidate(nil), candidates...)
	Top(candidates, 10)
	Top(candidates, 100)
	assert.Equal(t, before, candidates)
}

func TestWindowMatchesPaginate(t *testing.T) {
	candidates := randomCandidates(95)
	sorted := append([]index.Candidate(nil), candidates...)
	Sort(sorted)

	for page := 1; page <= 11; page++ {
		assert.Equal(t, Paginate(sorted, page, 10), Window(candidates, page, 10), "page %d", page)
	}
	assert.Empty(t, Window(candidates, 0, 10))
	assert.NotNil(t, Window(nil, 1, 10))
}

func BenchmarkWindowFirstPage(b *testing.B) {
	candidates := randomCandidates(50000)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		Window(candidates, 1, 10)
	}
}
