// Package phonetic provides a sound-alike fallback for dish alias matching,
// using Double Metaphone encoding combined with Jaro-Winkler similarity.
//
// The algorithm proceeds in two stages:
//
//  1. Phonetic candidate filtering: Double Metaphone codes are computed for
//     each word of the spoken phrase and for each alias variant. A variant
//     whose codes overlap the phrase's codes becomes a candidate.
//
//  2. Jaro-Winkler ranking: among candidates, the variant with the highest
//     similarity on the full strings is selected, provided it reaches the
//     phonetic threshold.
//
// The alias resolver only consults this matcher after plain Jaro-Winkler
// scoring failed to clear its own, stricter threshold. It catches mishearings
// that sound right but are spelled far apart ("sheikh" for "shake").
package phonetic

import (
	"strings"

	"github.com/antzucaro/matchr"

	"github.com/MrWong99/voiceorder/internal/transcript/fuzzy"
)

const defaultThreshold = 0.70

// Option is a functional option for configuring a [Matcher].
type Option func(*Matcher)

// WithThreshold sets the minimum Jaro-Winkler score a phonetically matching
// variant must reach to be accepted. Default: 0.70.
func WithThreshold(threshold float64) Option {
	return func(m *Matcher) {
		m.threshold = threshold
	}
}

// Matcher is a phonetic variant matcher. It is read-only after construction
// and safe for concurrent use.
type Matcher struct {
	threshold float64
}

// New returns a new [Matcher] configured with the supplied options.
func New(opts ...Option) *Matcher {
	m := &Matcher{threshold: defaultThreshold}
	for _, o := range opts {
		o(m)
	}
	return m
}

// Threshold returns the configured acceptance threshold.
func (m *Matcher) Threshold() float64 { return m.threshold }

// Variants is a precomputed set of alias variants with their phonetic codes.
// Build it once with [Prepare] and reuse it for every lookup.
type Variants struct {
	items []prepared
}

type prepared struct {
	text  string
	codes map[string]struct{}
}

// Prepare lower-cases variants and computes their Double Metaphone codes.
// Empty variants are skipped.
func Prepare(variants []string) *Variants {
	vs := &Variants{items: make([]prepared, 0, len(variants))}
	for _, v := range variants {
		v = strings.ToLower(strings.TrimSpace(v))
		if v == "" {
			continue
		}
		vs.items = append(vs.items, prepared{text: v, codes: codesForTokens(strings.Fields(v))})
	}
	return vs
}

// Len returns the number of prepared variants.
func (vs *Variants) Len() int { return len(vs.items) }

// Match finds the variant in vs that sounds most like phrase.
//
// When matched is false, variant is empty and score is 0.
func (m *Matcher) Match(phrase string, vs *Variants) (variant string, score float64, matched bool) {
	phrase = strings.ToLower(strings.TrimSpace(phrase))
	if phrase == "" || vs == nil || len(vs.items) == 0 {
		return "", 0, false
	}

	inputCodes := codesForTokens(strings.Fields(phrase))
	if len(inputCodes) == 0 {
		return "", 0, false
	}

	for _, p := range vs.items {
		if !codesOverlap(inputCodes, p.codes) {
			continue
		}
		s := fuzzy.JaroWinkler(phrase, p.text)
		if s >= m.threshold && s > score {
			variant, score = p.text, s
		}
	}
	if variant == "" {
		return "", 0, false
	}
	return variant, score, true
}

// Codes returns the union of Double Metaphone codes for the words of s.
func Codes(s string) []string {
	set := codesForTokens(strings.Fields(strings.ToLower(s)))
	out := make([]string, 0, len(set))
	for c := range set {
		out = append(out, c)
	}
	return out
}

// codesForTokens returns the union of all Double Metaphone codes for the
// given tokens. Empty codes (words without consonants) are excluded.
func codesForTokens(tokens []string) map[string]struct{} {
	codes := make(map[string]struct{}, len(tokens)*2)
	for _, t := range tokens {
		p, s := matchr.DoubleMetaphone(t)
		if p != "" {
			codes[p] = struct{}{}
		}
		if s != "" {
			codes[s] = struct{}{}
		}
	}
	return codes
}

// codesOverlap reports whether the two code sets share at least one code.
func codesOverlap(a, b map[string]struct{}) bool {
	if len(a) > len(b) {
		a, b = b, a
	}
	for code := range a {
		if _, ok := b[code]; ok {
			return true
		}
	}
	return false
}
