// Package parser turns a raw keyword string into the effective
// keyword set used for ranking.
package parser

import "strings"

// Separator splits keywords in the wire form "db, engine".
const Separator = ","

// Split breaks a comma-delimited keyword string into raw tokens. Tokens are
// not trimmed; Normalize does that.
func Split(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	return strings.Split(raw, Separator)
}

// Normalize trims and lower-cases every keyword, drops empty ones, and removes
// duplicates keeping the first occurrence. The indexer stores keywords in
// lower case, so the query does too.
func Normalize(keywords []string) []string {
	out := make([]string, 0, len(keywords))
	seen := make(map[string]struct{}, len(keywords))
	for _, kw := range keywords {
		kw = strings.ToLower(strings.TrimSpace(kw))
		if kw == "" {
			continue
		}
		if _, dup := seen[kw]; dup {
			continue
		}
		seen[kw] = struct{}{}
		out = append(out, kw)
	}
	return out
}

// Parse is Normalize(Split(raw)).
func Parse(raw string) []string {
	return Normalize(Split(raw))
}
