package segment

import (
	"strconv"
	"strings"
)

// TokenKind classifies a [Token].
type TokenKind int

const (
	// TokenWord is any word that is neither a quantity nor the table marker.
	TokenWord TokenKind = iota

	// TokenQuantity is a run of decimal digits.
	TokenQuantity

	// TokenTable is the word "table".
	TokenTable
)

// String returns a human-readable name for k.
func (k TokenKind) String() string {
	switch k {
	case TokenWord:
		return "word"
	case TokenQuantity:
		return "quantity"
	case TokenTable:
		return "table"
	}
	return "unknown"
}

// Token is a single classified word of a normalised phrase.
type Token struct {
	Kind TokenKind

	// Text is the word as written.
	Text string

	// Quantity is the parsed value of a [TokenQuantity].
	Quantity int
}

// Tokenize splits s on whitespace and classifies each word. Digit runs too
// large for an int are kept as words.
func Tokenize(s string) []Token {
	fields := strings.Fields(s)
	tokens := make([]Token, 0, len(fields))
	for _, f := range fields {
		switch {
		case f == "table":
			tokens = append(tokens, Token{Kind: TokenTable, Text: f})
		case isDigits(f):
			n, err := strconv.Atoi(f)
			if err != nil {
				tokens = append(tokens, Token{Kind: TokenWord, Text: f})
				continue
			}
			tokens = append(tokens, Token{Kind: TokenQuantity, Text: f, Quantity: n})
		default:
			tokens = append(tokens, Token{Kind: TokenWord, Text: f})
		}
	}
	return tokens
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
