package types

import (
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
)

func collect(input string) []Token {
	return slices.Collect(Tokens(input))
}

func TestTokenizer(t *testing.T) {
	testCases := []struct {
		desc     string
		input    string
		expected []Token
	}{
		{
			desc:     "atomic type",
			input:    "String",
			expected: []Token{"String"},
		},
		{
			desc:     "compact",
			input:    "A(B,C)",
			expected: []Token{"A", "(", "B", ",", "C", ")"},
		},
		{
			desc:     "whitespace around atoms",
			input:    "A( B , C )",
			expected: []Token{"A", "(", "B", ",", "C", ")"},
		},
		{
			desc:     "adjacent structural characters",
			input:    "Array(Nullable(String))",
			expected: []Token{"Array", "(", "Nullable", "(", "String", ")", ")"},
		},
		{
			desc:     "inner spaces are kept",
			input:    "Tuple(a String, b DateTime('UTC'))",
			expected: []Token{"Tuple", "(", "a String", ",", "b DateTime", "(", "'UTC'", ")", ")"},
		},
		{
			desc:     "trailing whitespace",
			input:    "  UInt8  ",
			expected: []Token{"UInt8"},
		},
		{
			desc:     "blank input",
			input:    "   ",
			expected: nil,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.desc, func(t *testing.T) {
			assert.Equal(t, tc.expected, collect(tc.input))
		})
	}
}

func TestTokenizerIsSinglePass(t *testing.T) {
	tokenizer := NewTokenizer("A(B)")

	var tokens []Token

	for token, ok := tokenizer.Next(); ok; token, ok = tokenizer.Next() {
		tokens = append(tokens, token)
	}

	assert.Equal(t, []Token{"A", "(", "B", ")"}, tokens)

	_, ok := tokenizer.Next()
	assert.False(t, ok)
}

func TestTokensStopsEarly(t *testing.T) {
	var tokens []Token

	for token := range Tokens("Map(String, UInt64)") {
		tokens = append(tokens, token)

		if len(tokens) == 2 {
			break
		}
	}

	assert.Equal(t, []Token{"Map", "("}, tokens)
}

func TestTokenIsStructural(t *testing.T) {
	assert.True(t, Token("(").IsStructural())
	assert.True(t, Token(",").IsStructural())
	assert.True(t, Token(")").IsStructural())
	assert.False(t, Token("Int32").IsStructural())
	assert.False(t, Token("a,").IsStructural())
}
