// Package textproc normalises raw text into term tokens: lowercasing,
// splitting on non-alphanumeric boundaries, stopword removal, and Porter
// stemming. The same Analyzer instance is applied to documents at build time
// and to queries at search time, so the mapping is referentially transparent.
package textproc

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"unicode"

	snowballeng "github.com/kljensen/snowball/english"
)

// Token is a single normalised term together with its 1-based position in
// the raw token stream. Positions count raw tokens, so removed stopwords
// leave gaps.
type Token struct {
	Term     string
	Position int
}

// Analyzer holds the normalisation options.
type Analyzer struct {
	stopwords map[string]struct{}
	stem      bool
	minLen    int
}

// Option configures an Analyzer.
type Option func(*Analyzer)

// WithStemming enables or disables Porter stemming.
func WithStemming(enabled bool) Option {
	return func(a *Analyzer) { a.stem = enabled }
}

// WithStopwords installs a stopword set.
func WithStopwords(words map[string]struct{}) Option {
	return func(a *Analyzer) { a.stopwords = words }
}

// WithMinTokenLength drops tokens shorter than n runes.
func WithMinTokenLength(n int) Option {
	return func(a *Analyzer) { a.minLen = n }
}

// New creates an Analyzer. By default stemming is on, no stopwords are
// removed, and single-character tokens are dropped.
func New(opts ...Option) *Analyzer {
	a := &Analyzer{
		stem:   true,
		minLen: 2,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Tokens normalises text into positioned tokens.
func (a *Analyzer) Tokens(text string) []Token {
	words := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	tokens := make([]Token, 0, len(words))
	for i, word := range words {
		if len(word) < a.minLen {
			continue
		}
		if _, isStop := a.stopwords[word]; isStop {
			continue
		}
		term := word
		if a.stem {
			term = snowballeng.Stem(word, false)
		}
		if term == "" {
			continue
		}
		tokens = append(tokens, Token{Term: term, Position: i + 1})
	}
	return tokens
}

// Terms normalises text and returns the bare term sequence, for query
// processing where positions are irrelevant.
func (a *Analyzer) Terms(text string) []string {
	tokens := a.Tokens(text)
	terms := make([]string, len(tokens))
	for i, tok := range tokens {
		terms[i] = tok.Term
	}
	return terms
}

// LoadStopwords reads a stopword file: one word per line, blank lines and
// #-comments ignored.
func LoadStopwords(path string) (map[string]struct{}, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening stopword file %s: %w", path, err)
	}
	defer f.Close()

	words := make(map[string]struct{})
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		word := strings.ToLower(strings.TrimSpace(scanner.Text()))
		if word == "" || strings.HasPrefix(word, "#") {
			continue
		}
		words[word] = struct{}{}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading stopword file %s: %w", path, err)
	}
	return words, nil
}
