package dedup

import (
	"strings"
	"unicode"
)

// Levenshtein returns the minimum number of single-rune insertions,
// deletions and substitutions that turn a into b.
func Levenshtein(a, b string) int {
	ra, rb := []rune(a), []rune(b)
	if len(ra) == 0 {
		return len(rb)
	}
	if len(rb) == 0 {
		return len(ra)
	}

	prev := make([]int, len(ra)+1)
	curr := make([]int, len(ra)+1)
	for j := range prev {
		prev[j] = j
	}

	for i := 1; i <= len(rb); i++ {
		curr[0] = i
		for j := 1; j <= len(ra); j++ {
			if rb[i-1] == ra[j-1] {
				curr[j] = prev[j-1]
				continue
			}
			curr[j] = 1 + min(prev[j-1], curr[j-1], prev[j])
		}
		prev, curr = curr, prev
	}

	return prev[len(ra)]
}

// EditSimilarity converts the edit distance between a and b into a ratio in
// [0, 1], where 1 means identical. Two empty strings score 0.
func EditSimilarity(a, b string) float64 {
	maxLen := max(len([]rune(a)), len([]rune(b)))
	if maxLen == 0 {
		return 0
	}

	sim := 1 - float64(Levenshtein(a, b))/float64(maxLen)
	return min(max(sim, 0), 1)
}

// WordOverlap compares the words of a and b after lower-casing and stripping
// punctuation.
//
// The numerator counts every word of a, repeats included, that appears in
// b's word set, while the denominator is the size of the union of both word
// sets. This is not a true Jaccard index: a candidate that repeats a shared
// word can score above 1.
func WordOverlap(a, b string) float64 {
	wordsA := words(a)
	wordsB := words(b)

	setB := make(map[string]struct{}, len(wordsB))
	for _, w := range wordsB {
		setB[w] = struct{}{}
	}

	matches := 0
	union := make(map[string]struct{}, len(wordsA)+len(wordsB))
	for _, w := range wordsA {
		if _, ok := setB[w]; ok {
			matches++
		}
		union[w] = struct{}{}
	}
	for w := range setB {
		union[w] = struct{}{}
	}

	if len(union) == 0 {
		return 0
	}
	return float64(matches) / float64(len(union))
}

// words lower-cases s, drops every rune that is neither a letter, a digit
// nor whitespace, and splits on whitespace.
func words(s string) []string {
	stripped := strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.IsSpace(r) {
			return r
		}
		return -1
	}, strings.ToLower(s))

	return strings.Fields(stripped)
}
