// Package numeral rewrites spoken number-words in an order transcript into
// digit strings and strips conversational filler phrases.
//
// Speech-to-text engines frequently emit homophones instead of numbers
// ("to rice", "too naan"), so the dictionary deliberately includes them.
package numeral

import (
	"regexp"
	"strings"
)

// numberWords maps spoken number-words and their common mishearings to digit
// strings. Matches are whole-word only.
var numberWords = map[string]string{
	"one": "1", "won": "1", "single": "1",
	"two": "2", "to": "2", "too": "2", "tu": "2", "do": "2", "du": "2",
	"three": "3", "tree": "3", "free": "3",
	"four": "4", "for": "4",
	"five": "5", "fiv": "5",
	"six": "6", "sex": "6",
	"seven": "7",
	"eight": "8", "ate": "8",
	"nine": "9", "nain": "9",
	"ten": "10",
}

// fillers are conversational phrases removed before parsing. Longer phrases
// sharing a first word are listed before shorter ones.
var fillers = []string{
	"please",
	"thank you",
	"can i get",
	"i'd like",
	"i would like",
	"may i have",
	"could i get",
	"give me",
	"get me",
	"order for",
	"for me",
	"for us",
}

// tableWord is the table marker. Connector words around it are kept so that
// "for table 5" and "table for 6" survive for table extraction.
const tableWord = "table"

// connectors are number homophones that double as table connectors.
var connectors = map[string]bool{"for": true, "to": true}

var (
	fillerRe   = buildFillerRe()
	numberRe   = buildNumberRe()
	spaceRe    = regexp.MustCompile(`\s+`)
	wordBefore = regexp.MustCompile(`([\w']+)\s*$`)
	wordAfter  = regexp.MustCompile(`^\s*([\w']+)`)
)

func buildFillerRe() *regexp.Regexp {
	quoted := make([]string, len(fillers))
	for i, f := range fillers {
		quoted[i] = regexp.QuoteMeta(f)
	}
	return regexp.MustCompile(`\b(?:` + strings.Join(quoted, "|") + `)\b`)
}

func buildNumberRe() *regexp.Regexp {
	words := make([]string, 0, len(numberWords))
	for w := range numberWords {
		words = append(words, regexp.QuoteMeta(w))
	}
	return regexp.MustCompile(`\b(?:` + strings.Join(words, "|") + `)\b`)
}

// Normalize lower-cases text, strips filler phrases and replaces number-words
// with digits. It is total and idempotent: Normalize(Normalize(s)) equals
// Normalize(s) for every s.
func Normalize(text string) string {
	s := collapse(strings.ToLower(text))

	// Removing one filler can join two words into another filler
	// ("give please me"), so strip until nothing changes.
	for {
		next := collapse(fillerRe.ReplaceAllString(s, " "))
		if next == s {
			break
		}
		s = next
	}

	return collapse(replaceNumbers(s))
}

// replaceNumbers substitutes every whole-word number match, except words
// directly adjacent to the table marker.
func replaceNumbers(s string) string {
	locs := numberRe.FindAllStringIndex(s, -1)
	if len(locs) == 0 {
		return s
	}

	var b strings.Builder
	last := 0
	for _, loc := range locs {
		start, end := loc[0], loc[1]
		b.WriteString(s[last:start])
		word := s[start:end]
		// "won't" and "do's" are contractions, not numbers.
		if isTableConnector(s, word, start, end) || (end < len(s) && s[end] == '\'') {
			b.WriteString(word)
		} else {
			b.WriteString(numberWords[word])
		}
		last = end
	}
	b.WriteString(s[last:])
	return b.String()
}

// isTableConnector reports whether word is "for"/"to" standing directly in
// front of "table", or directly behind it and followed by a number.
func isTableConnector(s, word string, start, end int) bool {
	if !connectors[word] {
		return false
	}
	next := ""
	if m := wordAfter.FindStringSubmatch(s[end:]); m != nil {
		next = m[1]
	}
	if next == tableWord {
		return true
	}
	m := wordBefore.FindStringSubmatch(s[:start])
	if m == nil || m[1] != tableWord {
		return false
	}
	_, isWord := numberWords[next]
	return isWord || isDigits(next)
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func collapse(s string) string {
	return strings.TrimSpace(spaceRe.ReplaceAllString(s, " "))
}
