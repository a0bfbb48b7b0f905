package segment

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

// ModificationScope decides which item phrases receive which modification
// clauses. original is the un-normalised transcript. Implementations write
// to phrases[i].Modifications in place.
type ModificationScope func(original string, phrases []ItemPhrase)

// LastItemScope collects every modification clause in the whole original
// transcript and attaches all of them to the last phrase. Earlier phrases get
// none, even when a clause was spoken right after them.
//
// This is the historical behaviour of the waiter dashboard and the default.
// Use [PhraseScope] to keep clauses with the phrase they were spoken in.
func LastItemScope(original string, phrases []ItemPhrase) {
	if len(phrases) == 0 {
		return
	}
	if mods := ExtractModifications(original); len(mods) > 0 {
		phrases[len(phrases)-1].Modifications = mods
	}
}

// PhraseScope attaches to each phrase only the clauses spoken inside it.
func PhraseScope(_ string, phrases []ItemPhrase) {
	for i := range phrases {
		phrases[i].Modifications = cloneStrings(phrases[i].Clauses)
	}
}

// modifierWords open a modification clause.
var modifierWords = map[string]bool{
	"no":      true,
	"extra":   true,
	"less":    true,
	"without": true,
	"with":    true,
}

// wordOrPunct splits text into words (letters, digits, apostrophes, hyphens)
// and single punctuation marks.
var wordOrPunct = regexp.MustCompile(`[\p{L}\p{N}_'-]+|[^\s\p{L}\p{N}_'-]`)

// ExtractModifications scans text for "(no|extra|less|without|with) <words>"
// clauses. A clause ends at punctuation, "and", "table", a number or the next
// modifier word. Modifier words directly after the opening one belong to the
// clause ("with extra butter"). Clauses are returned lower-cased in spoken
// order.
func ExtractModifications(text string) []string {
	tokens := wordOrPunct.FindAllString(strings.ToLower(text), -1)

	var mods []string
	for i := 0; i < len(tokens); {
		if !modifierWords[tokens[i]] || (i > 0 && tokens[i-1] == "table") {
			i++
			continue
		}
		j, ok := clauseEnd(tokens, i)
		if ok {
			mods = append(mods, strings.Join(tokens[i:j], " "))
		}
		i = j
	}
	return mods
}

// splitClauses separates the modification clauses of a phrase's words from
// the remaining words.
func splitClauses(words []string) (clauses, rest []string) {
	for i := 0; i < len(words); {
		if !modifierWords[words[i]] {
			rest = append(rest, words[i])
			i++
			continue
		}
		j, ok := clauseEnd(words, i)
		if ok {
			clauses = append(clauses, strings.Join(words[i:j], " "))
		}
		i = j
	}
	return clauses, rest
}

// clauseEnd returns the end of the clause opened by the modifier at
// tokens[i]. ok is false when the modifiers are followed by no words.
func clauseEnd(tokens []string, i int) (j int, ok bool) {
	j = i + 1
	for j < len(tokens) && modifierWords[tokens[j]] {
		j++
	}
	body := j
	for j < len(tokens) && !isClauseStop(tokens[j]) {
		j++
	}
	return j, j > body
}

func isClauseStop(tok string) bool {
	if modifierWords[tok] || tok == "and" || tok == "table" || isDigits(tok) {
		return true
	}
	return !wordRune(tok)
}

// wordRune reports whether tok starts like a word rather than punctuation.
func wordRune(tok string) bool {
	r, _ := utf8.DecodeRuneInString(tok)
	return r == '_' || r == '\'' || r == '-' || unicode.IsLetter(r) || unicode.IsDigit(r)
}
