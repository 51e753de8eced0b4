package index

import (
	"fmt"
	"math"

	"github.com/citeseek/citeseek/internal/corpus"
	"github.com/citeseek/citeseek/internal/textproc"
)

// IDFStrategy selects the inverse-document-frequency formula. The two are
// not numerically interchangeable: Plain suits a closed, pre-counted
// collection; Smooth keeps idf positive on an open-ended corpus where df can
// approach the document count.
type IDFStrategy string

const (
	// IDFPlain is ln(N/df).
	IDFPlain IDFStrategy = "plain"
	// IDFSmooth is ln((N+1)/(df+1)) + 1.
	IDFSmooth IDFStrategy = "smooth"
)

// Value computes idf for a term. A df of zero yields zero, which drops
// unseen terms from scoring instead of dividing by zero.
func (s IDFStrategy) Value(totalDocs, df int) float64 {
	if df == 0 || totalDocs == 0 {
		return 0
	}
	switch s {
	case IDFSmooth:
		return math.Log(float64(totalDocs+1)/float64(df+1)) + 1
	default:
		return math.Log(float64(totalDocs) / float64(df))
	}
}

// Occurrence records a term's raw frequency and ordered positions within one
// document.
type Occurrence struct {
	TF        int
	Positions []int
}

// TermStats is the per-term output of the statistics pass.
type TermStats struct {
	DF   int
	IDF  float64
	Docs map[corpus.DocID]*Occurrence
}

// Stats holds the accumulated term statistics for a frozen document count.
type Stats struct {
	DocCount int
	DocIDs   []corpus.DocID
	Terms    map[string]*TermStats
}

// Accumulator gathers per-document term frequencies in a first pass, then
// folds them into term-keyed statistics. The two-pass split keeps the
// mutable nested maps out of the fold: pass one only appends to a
// per-document arena, pass two reads it immutably.
type Accumulator struct {
	docs []docEntry
	seen map[corpus.DocID]struct{}
}

type docEntry struct {
	id    corpus.DocID
	terms map[string]*Occurrence
}

// NewAccumulator creates an empty Accumulator.
func NewAccumulator() *Accumulator {
	return &Accumulator{seen: make(map[corpus.DocID]struct{})}
}

// AddDocument records one document's normalised tokens. An empty token
// sequence still counts the document toward N. Re-adding an id is an error:
// ids are assigned once at ingestion and immutable thereafter.
func (a *Accumulator) AddDocument(id corpus.DocID, tokens []textproc.Token) error {
	if _, dup := a.seen[id]; dup {
		return fmt.Errorf("document %d added twice", id)
	}
	a.seen[id] = struct{}{}

	entry := docEntry{id: id, terms: make(map[string]*Occurrence, len(tokens))}
	for _, tok := range tokens {
		occ, ok := entry.terms[tok.Term]
		if !ok {
			occ = &Occurrence{}
			entry.terms[tok.Term] = occ
		}
		occ.TF++
		occ.Positions = append(occ.Positions, tok.Position)
	}
	a.docs = append(a.docs, entry)
	return nil
}

// Fold freezes N and produces per-term df, idf, and occurrences.
func (a *Accumulator) Fold(strategy IDFStrategy) *Stats {
	stats := &Stats{
		DocCount: len(a.docs),
		DocIDs:   make([]corpus.DocID, 0, len(a.docs)),
		Terms:    make(map[string]*TermStats),
	}
	for _, entry := range a.docs {
		stats.DocIDs = append(stats.DocIDs, entry.id)
		for term, occ := range entry.terms {
			ts, ok := stats.Terms[term]
			if !ok {
				ts = &TermStats{Docs: make(map[corpus.DocID]*Occurrence)}
				stats.Terms[term] = ts
			}
			ts.Docs[entry.id] = occ
		}
	}
	for _, ts := range stats.Terms {
		ts.DF = len(ts.Docs)
		ts.IDF = strategy.Value(stats.DocCount, ts.DF)
	}
	return stats
}
