// Package index builds the inverted index: per-term document statistics,
// TF-IDF weights, per-document L2 norms, and champion lists (postings
// pre-sorted by weight) that let the query engine take top candidates per
// term without a query-time sort.
package index

import (
	"fmt"
	"sort"

	"github.com/citeseek/citeseek/internal/corpus"
)

// Posting is one (term, document) entry of a champion list.
type Posting struct {
	DocID      corpus.DocID `json:"doc_id"`
	TF         int          `json:"tf"`
	TFWeight   float64      `json:"tf_weight"`
	Weight     float64      `json:"weight"`
	NormWeight float64      `json:"norm_weight"`
	Positions  []int        `json:"positions"`
}

// NewPosting validates and constructs a Posting. Raw frequency must be
// positive and weights non-negative; norm_weight is bounded by 1.
func NewPosting(docID corpus.DocID, tf int, tfWeight, weight, normWeight float64, positions []int) (Posting, error) {
	if tf <= 0 {
		return Posting{}, fmt.Errorf("posting for doc %d: raw frequency must be positive, got %d", docID, tf)
	}
	if tfWeight < 0 || weight < 0 {
		return Posting{}, fmt.Errorf("posting for doc %d: negative weight", docID)
	}
	if normWeight < 0 || normWeight > 1+1e-12 {
		return Posting{}, fmt.Errorf("posting for doc %d: norm weight %v out of [0,1]", docID, normWeight)
	}
	return Posting{
		DocID:      docID,
		TF:         tf,
		TFWeight:   tfWeight,
		Weight:     weight,
		NormWeight: normWeight,
		Positions:  positions,
	}, nil
}

// DictEntry is one dictionary row.
type DictEntry struct {
	Term string  `json:"term"`
	DF   int     `json:"df"`
	IDF  float64 `json:"idf"`
}

// Index is the complete read-only build artifact: dictionary, champion
// lists, and document norms. Once built it is never mutated, so concurrent
// readers need no locking.
type Index struct {
	DocCount int
	Dict     map[string]DictEntry
	Postings map[string][]Posting
	Norms    map[corpus.DocID]float64
}

// Terms returns the vocabulary in lexicographic order.
func (ix *Index) Terms() []string {
	terms := make([]string, 0, len(ix.Dict))
	for term := range ix.Dict {
		terms = append(terms, term)
	}
	sort.Strings(terms)
	return terms
}
