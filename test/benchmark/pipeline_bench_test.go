// Package benchmark contains Go benchmarks for the text analyzer, the index
// builder, the rank computation, and the query engine, measuring throughput
// and allocation behaviour on synthetic corpora.
package benchmark

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
	"testing"

	"github.com/citeseek/citeseek/internal/corpus"
	"github.com/citeseek/citeseek/internal/index"
	"github.com/citeseek/citeseek/internal/query"
	"github.com/citeseek/citeseek/internal/rank"
	"github.com/citeseek/citeseek/internal/textproc"
)

// syntheticCorpus builds n documents over a fixed vocabulary with a skewed
// term distribution, plus a sparse random link structure.
func syntheticCorpus(n int) []corpus.Document {
	vocab := []string{
		"retrieval", "index", "ranking", "vector", "cosine", "weight",
		"graph", "citation", "authority", "query", "document", "term",
		"frequency", "systems", "analysis", "algorithm", "storage", "search",
	}
	rng := rand.New(rand.NewSource(42))
	docs := make([]corpus.Document, n)
	for i := range docs {
		var sb strings.Builder
		words := 30 + rng.Intn(120)
		for w := 0; w < words; w++ {
			// Skewed pick: low vocabulary indexes dominate.
			idx := rng.Intn(len(vocab))
			if rng.Intn(3) > 0 {
				idx = rng.Intn(6)
			}
			sb.WriteString(vocab[idx])
			sb.WriteByte(' ')
		}
		doc := corpus.Document{
			ID:    corpus.DocID(i + 1),
			Title: fmt.Sprintf("document %d", i+1),
			Text:  sb.String(),
		}
		for l := 0; l < rng.Intn(4); l++ {
			doc.Links = append(doc.Links, corpus.DocID(rng.Intn(n)+1))
		}
		docs[i] = doc
	}
	return docs
}

func BenchmarkAnalyzerTokens(b *testing.B) {
	a := textproc.New()
	text := strings.Repeat("ranked retrieval with inverted indexes and citation analysis ", 20)
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = a.Tokens(text)
	}
}

func BenchmarkIndexBuild(b *testing.B) {
	docs := syntheticCorpus(1000)
	analyzer := textproc.New()
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, err := index.Build(context.Background(), docs, analyzer,
			index.BuildOptions{Strategy: index.IDFPlain, Workers: 4})
		if err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkRankCompute(b *testing.B) {
	g := rank.FromDocuments(syntheticCorpus(5000))
	opts := rank.Options{Damping: 0.85, MaxIter: 100, Tolerance: 1e-6}
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := rank.Compute(g, opts); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkQuerySearch(b *testing.B) {
	docs := syntheticCorpus(10000)
	analyzer := textproc.New()
	ix, err := index.Build(context.Background(), docs, analyzer,
		index.BuildOptions{Strategy: index.IDFPlain, Workers: 4})
	if err != nil {
		b.Fatal(err)
	}
	engine, err := query.New(ix, nil, query.Params{CosineWeight: 1})
	if err != nil {
		b.Fatal(err)
	}
	terms := analyzer.Terms("citation authority ranking")

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = engine.Search(terms)
	}
}

func BenchmarkQuerySearchParallel(b *testing.B) {
	docs := syntheticCorpus(10000)
	analyzer := textproc.New()
	ix, err := index.Build(context.Background(), docs, analyzer,
		index.BuildOptions{Strategy: index.IDFPlain, Workers: 4})
	if err != nil {
		b.Fatal(err)
	}
	engine, err := query.New(ix, nil, query.Params{CosineWeight: 1})
	if err != nil {
		b.Fatal(err)
	}
	terms := analyzer.Terms("citation authority ranking")

	b.ReportAllocs()
	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			_ = engine.Search(terms)
		}
	})
}
