// Package resolver maps spoken item phrases to canonical dish keys using the
// alias table.
//
// Resolution runs in up to three stages, stopping at the first that succeeds:
//
//  1. Exact: every contiguous word window of the phrase (longest first, then
//     leftmost) is looked up verbatim in the alias table.
//  2. Fuzzy: the window × variant pair with the highest Jaro-Winkler
//     similarity wins; equal similarities are broken by the smaller
//     Levenshtein distance. The winner must reach the fuzzy threshold.
//  3. Phonetic (optional): a Double Metaphone match against all variants,
//     accepted at the phonetic matcher's own threshold.
//
// When every stage fails the item stays unmatched and its raw name candidate
// is handed to catalog reconciliation verbatim.
package resolver

import (
	"math"
	"strings"

	"github.com/MrWong99/voiceorder/internal/alias"
	"github.com/MrWong99/voiceorder/internal/transcript/fuzzy"
	"github.com/MrWong99/voiceorder/internal/transcript/phonetic"
	"github.com/MrWong99/voiceorder/internal/transcript/segment"
)

const defaultThreshold = 0.80

// Method names the stage that produced a [ResolvedItem].
type Method string

const (
	MethodNone     Method = ""
	MethodExact    Method = "exact"
	MethodFuzzy    Method = "fuzzy"
	MethodPhonetic Method = "phonetic"
)

// ResolvedItem is an item phrase after alias resolution.
type ResolvedItem struct {
	// CanonicalKey is the matched alias key. Empty when Matched is false.
	CanonicalKey string

	// Matched reports whether any stage accepted an alias.
	Matched bool

	// Confidence is 1.0 for exact hits, the similarity score for fuzzy and
	// phonetic hits, and 0 when unmatched.
	Confidence float64

	// Method is the stage that produced the match.
	Method Method

	// Quantity and Modifications are carried over from the phrase.
	Quantity      int
	Modifications []string

	// NameCandidate is the phrase's name as spoken, used for reporting
	// unresolved items.
	NameCandidate string
}

// Key returns the string to match against the catalog: the canonical key
// when matched, otherwise the raw name candidate.
func (it ResolvedItem) Key() string {
	if it.Matched {
		return it.CanonicalKey
	}
	return it.NameCandidate
}

// Option is a functional option for configuring a [Resolver].
type Option func(*Resolver)

// WithThreshold sets the minimum Jaro-Winkler similarity for a fuzzy alias
// match. Default: 0.80.
func WithThreshold(threshold float64) Option {
	return func(r *Resolver) {
		r.threshold = threshold
	}
}

// WithPhoneticMatcher enables the phonetic fallback stage. When nil (the
// default) the stage is skipped.
func WithPhoneticMatcher(m *phonetic.Matcher) Option {
	return func(r *Resolver) {
		r.phonetic = m
	}
}

// Resolver resolves item phrases against an alias table. It is read-only
// after construction and safe for concurrent use.
type Resolver struct {
	aliases   *alias.Table
	threshold float64
	phonetic  *phonetic.Matcher
	prepared  *phonetic.Variants
}

// New returns a [Resolver] over aliases. A nil table resolves nothing and
// every item falls through to its raw name.
func New(aliases *alias.Table, opts ...Option) *Resolver {
	r := &Resolver{
		aliases:   aliases,
		threshold: defaultThreshold,
	}
	for _, o := range opts {
		o(r)
	}
	if r.phonetic != nil {
		r.prepared = phonetic.Prepare(aliases.AllVariants())
	}
	return r
}

// Threshold returns the configured fuzzy threshold.
func (r *Resolver) Threshold() float64 { return r.threshold }

// Resolve maps phrase to a canonical key. It never fails; an unmatched item
// is reported through ResolvedItem.Matched.
func (r *Resolver) Resolve(phrase segment.ItemPhrase) ResolvedItem {
	item := ResolvedItem{
		Quantity:      phrase.Quantity,
		Modifications: phrase.Modifications,
		NameCandidate: phrase.NameCandidate,
	}

	windows := Windows(phrase.NameCandidate)
	if len(windows) == 0 || r.aliases.Len() == 0 {
		return item
	}

	// Stage 1: exact.
	for _, w := range windows {
		if key, ok := r.aliases.Resolve(w); ok {
			return r.accept(item, key, 1, MethodExact)
		}
	}

	// Stage 2: fuzzy.
	variant, score := r.bestFuzzy(windows)
	if variant != "" && score >= r.threshold {
		key, _ := r.aliases.Resolve(variant)
		return r.accept(item, key, score, MethodFuzzy)
	}

	// Stage 3: phonetic.
	if r.phonetic != nil {
		var best string
		var bestScore float64
		for _, w := range windows {
			if v, s, ok := r.phonetic.Match(w, r.prepared); ok && s > bestScore {
				best, bestScore = v, s
			}
		}
		if best != "" {
			key, _ := r.aliases.Resolve(best)
			return r.accept(item, key, bestScore, MethodPhonetic)
		}
	}

	return item
}

// ResolveAll resolves every phrase in order.
func (r *Resolver) ResolveAll(phrases []segment.ItemPhrase) []ResolvedItem {
	out := make([]ResolvedItem, len(phrases))
	for i, p := range phrases {
		out[i] = r.Resolve(p)
	}
	return out
}

func (r *Resolver) accept(item ResolvedItem, key string, confidence float64, m Method) ResolvedItem {
	item.CanonicalKey = key
	item.Matched = true
	item.Confidence = confidence
	item.Method = m
	return item
}

// bestFuzzy returns the variant with the highest Jaro-Winkler similarity to
// any window. Ties go to the smaller Levenshtein distance, then to the first
// pair seen.
func (r *Resolver) bestFuzzy(windows []string) (string, float64) {
	var (
		bestVariant string
		bestScore   float64
		bestDist    = math.MaxInt
	)
	for _, w := range windows {
		for _, v := range r.aliases.AllVariants() {
			s := fuzzy.JaroWinkler(w, v)
			if s == 0 || s < bestScore {
				continue
			}
			d := fuzzy.Levenshtein(w, v)
			if s > bestScore || d < bestDist {
				bestVariant, bestScore, bestDist = v, s, d
			}
		}
	}
	return bestVariant, bestScore
}

// Windows returns every contiguous word window of name, longest first and
// leftmost first within a length. name is lower-cased and split on
// whitespace.
func Windows(name string) []string {
	words := strings.Fields(strings.ToLower(name))
	n := len(words)
	out := make([]string, 0, n*(n+1)/2)
	for size := n; size >= 1; size-- {
		for start := 0; start+size <= n; start++ {
			out = append(out, strings.Join(words[start:start+size], " "))
		}
	}
	return out
}
