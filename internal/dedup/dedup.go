// Package dedup decides whether a newly observed trend name refers to a trend
// that has already been recorded.
//
// Matching blends two measures: a character-level edit similarity and a
// word-overlap similarity. Word overlap carries more weight because trending
// headlines vary more in wording than in spelling.
//
// Everything in this package is a pure function of its inputs and is safe for
// concurrent use.
package dedup

import (
	"strings"
	"time"
)

const (
	// Threshold is the minimum combined score for a fuzzy match.
	Threshold = 0.6

	// EditWeight and WordWeight blend the two similarity measures.
	EditWeight = 0.4
	WordWeight = 0.6
)

// Record is a previously recorded trend the candidate is compared against.
type Record struct {
	ID         int64
	Name       string
	ObservedAt time.Time
}

// Match is the outcome of a successful FindDuplicate call.
type Match struct {
	Record Record
	Score  float64
	Exact  bool
}

// FindDuplicate returns the record that best matches candidate.
//
// An exact match after lower-casing and trimming returns immediately with a
// score of 1. Otherwise the record with the highest combined score wins, with
// ties going to the earliest record, and it is reported only if the score
// reaches Threshold.
func FindDuplicate(candidate string, records []Record) (Match, bool) {
	normCandidate := normalize(candidate)

	var best Match
	found := false

	for _, rec := range records {
		normName := normalize(rec.Name)

		if normCandidate == normName {
			return Match{Record: rec, Score: 1, Exact: true}, true
		}

		score := combine(normCandidate, normName)
		if !found || score > best.Score {
			best = Match{Record: rec, Score: score}
			found = true
		}
	}

	if !found || best.Score < Threshold {
		return Match{}, false
	}
	return best, true
}

// Score returns the combined similarity between two trend names after
// normalization.
func Score(a, b string) float64 {
	return combine(normalize(a), normalize(b))
}

func combine(a, b string) float64 {
	return EditWeight*EditSimilarity(a, b) + WordWeight*WordOverlap(a, b)
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
