// Package answers decides whether a submitted answer matches the canonical
// one: both strings are normalized (lower-cased, accents stripped, trimmed),
// then compared exactly, then by edit distance with a small tolerance.
package answers

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// DefaultTolerance is the maximum edit distance still accepted as correct.
const DefaultTolerance = 2

var stripMarks = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// Normalize lower-cases the string, removes diacritics and trims whitespace,
// so "  Édîth " and "edith" compare equal.
func Normalize(s string) string {
	out, _, err := transform.String(stripMarks, s)
	if err != nil {
		out = s
	}
	return strings.TrimSpace(strings.ToLower(out))
}

// Levenshtein returns the edit distance between two strings, counted in
// runes, with insertions, deletions and substitutions all costing 1.
func Levenshtein(a, b string) int {
	ra := []rune(a)
	rb := []rune(b)

	prev := make([]int, len(rb)+1)
	cur := make([]int, len(rb)+1)
	for j := range prev {
		prev[j] = j
	}

	for i := 1; i <= len(ra); i++ {
		cur[0] = i
		for j := 1; j <= len(rb); j++ {
			cost := 1
			if ra[i-1] == rb[j-1] {
				cost = 0
			}
			cur[j] = min(prev[j]+1, cur[j-1]+1, prev[j-1]+cost)
		}
		prev, cur = cur, prev
	}
	return prev[len(rb)]
}

// Match reports whether userAnswer should be accepted for canonical using
// DefaultTolerance.
func Match(userAnswer, canonical string) bool {
	return MatchWithTolerance(userAnswer, canonical, DefaultTolerance)
}

// MatchWithTolerance accepts the answer when the normalized strings are
// identical or within the given edit distance.
func MatchWithTolerance(userAnswer, canonical string, tolerance int) bool {
	u := Normalize(userAnswer)
	c := Normalize(canonical)
	if u == c {
		return true
	}
	return Levenshtein(u, c) <= tolerance
}
