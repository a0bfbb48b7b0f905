// Package segment splits a normalised order transcript into a table number
// and a list of item phrases, each with a quantity, a dish-name candidate and
// any modification clauses ("no onion", "extra butter").
//
// Segmentation is pattern based and total: malformed input never fails, it
// just yields fewer phrases or no table.
package segment

import (
	"regexp"
	"slices"
	"strconv"
	"strings"
)

// ItemPhrase is one spoken order item, before any dish matching.
type ItemPhrase struct {
	// RawText is the phrase as it appeared in the normalised transcript.
	RawText string

	// Quantity is the spoken quantity; 1 when none was given.
	Quantity int

	// NameCandidate is the phrase with quantity and modification clauses
	// removed. It is what the alias resolver matches against.
	NameCandidate string

	// Clauses are the modification clauses spoken inside this phrase.
	Clauses []string

	// Modifications are the modifications attached to this item by the
	// active [ModificationScope].
	Modifications []string
}

var (
	// tableRe finds "[for|at|to|is|number] table [for|at|to|is|number|no] <n>".
	tableRe = regexp.MustCompile(`(?:\b(?:for|at|to|is|number)\s+)?\btable\s*(?:\b(?:for|at|to|is|number|no)\b\.?\s*)?(\d+)\b`)

	leadingVerbRe = regexp.MustCompile(`^(?:get|order|add|bring)\s+`)
	splitRe       = regexp.MustCompile(`\band\b|,|\.`)
	spaceRe       = regexp.MustCompile(`\s+`)
)

// Segment extracts the table number and item phrases from normalised text
// and attaches modifications found in original according to scope. A nil
// scope selects [LastItemScope].
//
// table is nil when no table number was spoken.
func Segment(original, normalized string, scope ModificationScope) (table *int, phrases []ItemPhrase) {
	text := collapse(normalized)

	if loc := tableRe.FindStringSubmatchIndex(text); loc != nil {
		if n, err := strconv.Atoi(text[loc[2]:loc[3]]); err == nil {
			table = &n
			text = collapse(text[:loc[0]] + " " + text[loc[1]:])
		}
	}

	text = leadingVerbRe.ReplaceAllString(text, "")

	for _, raw := range splitRe.Split(text, -1) {
		raw = collapse(raw)
		if raw == "" {
			continue
		}
		if p, ok := parsePhrase(raw); ok {
			phrases = append(phrases, p)
		}
	}

	if scope == nil {
		scope = LastItemScope
	}
	scope(original, phrases)

	return table, phrases
}

// parsePhrase splits a single phrase into quantity, name and clauses. It
// reports false when nothing nameable is left (e.g. a bare number).
func parsePhrase(raw string) (ItemPhrase, bool) {
	p := ItemPhrase{RawText: raw, Quantity: 1}

	var rest []string
	p.Clauses, rest = splitClauses(strings.Fields(raw))

	tokens := Tokenize(strings.Join(rest, " "))

	// <digits> <words> or <words> <digits>.
	switch {
	case len(tokens) >= 2 && tokens[0].Kind == TokenQuantity:
		p.Quantity = tokens[0].Quantity
		tokens = tokens[1:]
	case len(tokens) >= 2 && tokens[len(tokens)-1].Kind == TokenQuantity:
		p.Quantity = tokens[len(tokens)-1].Quantity
		tokens = tokens[:len(tokens)-1]
	}

	var words []string
	for _, t := range tokens {
		if t.Kind == TokenWord {
			words = append(words, t.Text)
		}
	}
	p.NameCandidate = strings.Join(words, " ")
	if p.NameCandidate == "" {
		return ItemPhrase{}, false
	}
	if p.Quantity < 1 {
		p.Quantity = 1
	}
	return p, true
}

func collapse(s string) string {
	return strings.TrimSpace(spaceRe.ReplaceAllString(s, " "))
}

// cloneStrings copies s so scopes never alias phrase-owned slices.
func cloneStrings(s []string) []string {
	if len(s) == 0 {
		return nil
	}
	return slices.Clone(s)
}
