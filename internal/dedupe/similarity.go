package dedupe

import (
	"unicode/utf8"

	"github.com/agnivade/levenshtein"
)

// LevenshteinDistance returns the edit distance between a and b counted in
// code points, with insertions, deletions and substitutions each costing 1.
func LevenshteinDistance(a, b string) int {
	return levenshtein.ComputeDistance(a, b)
}

// Similarity maps the edit distance onto [0,1], where 1 means identical.
// Two empty strings are identical; one empty string matches nothing.
func Similarity(a, b string) float64 {
	if a == "" || b == "" {
		if a == b {
			return 1
		}
		return 0
	}
	maxLen := utf8.RuneCountInString(a)
	if n := utf8.RuneCountInString(b); n > maxLen {
		maxLen = n
	}
	return float64(maxLen-LevenshteinDistance(a, b)) / float64(maxLen)
}
