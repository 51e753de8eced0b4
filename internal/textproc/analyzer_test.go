package textproc

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokensLowercasesAndSplits(t *testing.T) {
	a := New(WithStemming(false))
	tokens := a.Tokens("Hello, World! foo-bar")

	terms := make([]string, len(tokens))
	for i, tok := range tokens {
		terms[i] = tok.Term
	}
	assert.Equal(t, []string{"hello", "world", "foo", "bar"}, terms)
}

func TestTokensPositionsCountRawTokens(t *testing.T) {
	stop := map[string]struct{}{"the": {}, "of": {}}
	a := New(WithStemming(false), WithStopwords(stop))

	tokens := a.Tokens("the cat of the house")
	require.Len(t, tokens, 2)

	// Stopwords are removed but still occupy a raw position, so the
	// surviving tokens keep their original slots.
	assert.Equal(t, Token{Term: "cat", Position: 2}, tokens[0])
	assert.Equal(t, Token{Term: "house", Position: 5}, tokens[1])
}

func TestTokensStemming(t *testing.T) {
	a := New()
	assert.Equal(t, []string{"run", "quick"}, a.Terms("running quickly"))

	plain := New(WithStemming(false))
	assert.Equal(t, []string{"running", "quickly"}, plain.Terms("running quickly"))
}

func TestTokensDropsShortTokens(t *testing.T) {
	a := New(WithStemming(false))
	assert.Equal(t, []string{"ab", "abc"}, a.Terms("a ab abc"))

	relaxed := New(WithStemming(false), WithMinTokenLength(1))
	assert.Equal(t, []string{"a", "ab", "abc"}, relaxed.Terms("a ab abc"))
}

func TestTokensStopwordsMatchBeforeStemming(t *testing.T) {
	// The stopword list holds surface forms; "running" must be filtered
	// even though its stem "run" is not in the list.
	stop := map[string]struct{}{"running": {}}
	a := New(WithStopwords(stop))
	assert.Empty(t, a.Terms("running"))
}

func TestTokensEmptyInput(t *testing.T) {
	a := New()
	assert.Empty(t, a.Tokens(""))
	assert.Empty(t, a.Tokens("  \t\n  "))
	assert.Empty(t, a.Tokens("!!! ... ---"))
}

func TestQueryAndDocumentNormalisationAgree(t *testing.T) {
	a := New()
	text := "Distributed Systems are distributed"

	tokens := a.Tokens(text)
	terms := a.Terms(text)
	require.Equal(t, len(tokens), len(terms))
	for i, tok := range tokens {
		assert.Equal(t, tok.Term, terms[i])
	}
}
