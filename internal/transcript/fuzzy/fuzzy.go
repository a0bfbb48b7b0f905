// Package fuzzy provides the two string-similarity primitives used by the
// order resolver: Levenshtein edit distance and Jaro-Winkler similarity.
//
// Both functions are pure and total: any pair of strings, including empty
// ones, yields a defined result. Callers are expected to lower-case their
// inputs; no case folding happens here.
package fuzzy

import (
	"github.com/antzucaro/matchr"
)

// maxPrefix is the longest common prefix rewarded by the Winkler bonus.
const maxPrefix = 4

// prefixScale is the Winkler scaling factor applied per prefix character.
const prefixScale = 0.1

// Levenshtein returns the edit distance between a and b, counted over runes.
// Levenshtein(a, "") is the rune length of a.
func Levenshtein(a, b string) int {
	return matchr.Levenshtein(a, b)
}

// JaroWinkler returns the Jaro-Winkler similarity of a and b in [0, 1],
// where 1 means identical.
//
// The match window is max(len(a), len(b))/2 - 1 in integer runes, which keeps
// JaroWinkler(s, s) at exactly 1 for every s. The score is symmetric in a
// and b.
func JaroWinkler(a, b string) float64 {
	ra, rb := []rune(a), []rune(b)

	j := jaro(ra, rb)

	prefix := 0
	for i := 0; i < min(maxPrefix, len(ra), len(rb)); i++ {
		if ra[i] != rb[i] {
			break
		}
		prefix++
	}

	return j + prefixScale*float64(prefix)*(1-j)
}

// jaro computes the plain Jaro similarity over rune slices.
func jaro(a, b []rune) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 1
	}
	if len(a) == 0 || len(b) == 0 {
		return 0
	}

	window := max(len(a), len(b))/2 - 1
	if window < 0 {
		window = 0
	}

	aMatched := make([]bool, len(a))
	bMatched := make([]bool, len(b))

	matches := 0
	for i := range a {
		start := max(0, i-window)
		end := min(len(b), i+window+1)
		for k := start; k < end; k++ {
			if bMatched[k] || a[i] != b[k] {
				continue
			}
			aMatched[i] = true
			bMatched[k] = true
			matches++
			break
		}
	}
	if matches == 0 {
		return 0
	}

	transpositions := 0
	k := 0
	for i := range a {
		if !aMatched[i] {
			continue
		}
		for !bMatched[k] {
			k++
		}
		if a[i] != b[k] {
			transpositions++
		}
		k++
	}

	m := float64(matches)
	t := float64(transpositions) / 2
	return (m/float64(len(a)) + m/float64(len(b)) + (m-t)/m) / 3
}
