// Package index holds the read-side types of the inverted index shared by the
// posting stores and the ranking engine.
package index

// Posting is one (keyword, document, frequency) entry of the inverted index,
// joined with the document's canonical URL.
type Posting struct {
	Keyword   string `json:"keyword"`
	DocID     int64  `json:"docId"`
	URL       string `json:"url,omitempty"`
	Frequency int    `json:"frequency"`
}

// Document is an indexed page.
type Document struct {
	ID  int64  `json:"id"`
	URL string `json:"url"`
}

// Candidate is the per-query aggregate of one matching document.
//
// Matched is the number of distinct query keywords found in the document and
// FreqSum the sum of their frequencies, so 1 <= Matched <= FreqSum.
type Candidate struct {
	DocID   int64
	URL     string
	Matched int
	FreqSum int
	Score   float64
}
