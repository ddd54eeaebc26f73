// Package types parses the type descriptions the server attaches to result
// columns, such as Array(Nullable(String)) or Map(String, UInt64), into trees
// of Node values.
package types

import (
	"iter"
	"strings"
)

const structuralChars = "(,)"

// Token is a single structural character or a trimmed type name or literal.
type Token string

func (t Token) IsStructural() bool {
	return len(t) == 1 && strings.ContainsAny(string(t), structuralChars)
}

// Tokenizer hands out the tokens of one input string. It is single pass:
// once exhausted, tokenizing again requires a new Tokenizer.
type Tokenizer struct {
	input string
	pos   int
}

func NewTokenizer(input string) *Tokenizer {
	return &Tokenizer{input: input}
}

// Next returns the next token, or false once the input is exhausted.
func (t *Tokenizer) Next() (Token, bool) {
	for t.pos < len(t.input) {
		rest := t.input[t.pos:]
		index := strings.IndexAny(rest, structuralChars)

		switch {
		case index == 0:
			t.pos++
			return Token(rest[:1]), true
		case index < 0:
			t.pos = len(t.input)

			if trimmed := strings.TrimSpace(rest); trimmed != "" {
				return Token(trimmed), true
			}
		default:
			// Stop at the structural character so the next call emits it.
			t.pos += index

			if trimmed := strings.TrimSpace(rest[:index]); trimmed != "" {
				return Token(trimmed), true
			}
		}
	}

	return "", false
}

// Tokens returns the tokens of input as a sequence.
func Tokens(input string) iter.Seq[Token] {
	return func(yield func(Token) bool) {
		tokenizer := NewTokenizer(input)

		for {
			token, ok := tokenizer.Next()

			if !ok || !yield(token) {
				return
			}
		}
	}
}
