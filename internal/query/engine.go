// Package query scores free-text queries against the index: vector-space
// cosine similarity over champion lists, optionally fused with a link-graph
// authority score.
package query

import (
	"fmt"
	"math"
	"sort"

	"github.com/citeseek/citeseek/internal/corpus"
	"github.com/citeseek/citeseek/internal/index"
	"github.com/citeseek/citeseek/internal/rank"
	"github.com/citeseek/citeseek/pkg/errors"
)

// DefaultTopKPerTerm is the per-term candidate cap: only the first K entries
// of a term's champion list are examined. This is a deliberate speed/recall
// trade-off, kept configurable rather than hidden.
const DefaultTopKPerTerm = 10

// weightEpsilon is the tolerance before fusion weights are renormalized.
const weightEpsilon = 1e-6

// Params configures an Engine.
type Params struct {
	// TopKPerTerm caps how deep into each term's champion list scoring
	// reaches. Zero means DefaultTopKPerTerm.
	TopKPerTerm int
	// CosineWeight and RankWeight fuse the two score components. They are
	// renormalized to sum to 1 when their sum deviates by more than 1e-6.
	CosineWeight float64
	RankWeight   float64
	// NormalizeRank min-max rescales the rank vector before fusing.
	NormalizeRank bool
}

// Result is one ranked document.
type Result struct {
	DocID  corpus.DocID `json:"doc_id"`
	Score  float64      `json:"score"`
	Cosine float64      `json:"cosine"`
	Rank   float64      `json:"rank,omitempty"`
}

// Engine answers queries against an immutable index and optional rank
// vector. All inputs are read-only after construction, so a single Engine is
// safe for arbitrarily many concurrent queries.
type Engine struct {
	ix     *index.Index
	ranks  rank.Vector
	topK   int
	wCos   float64
	wRank  float64
	fusion bool
}

// New validates the configuration and builds an Engine. Configuration
// mistakes (weights that cannot be normalized, an authority weight without a
// rank vector) fail fast here, before any query runs.
func New(ix *index.Index, ranks rank.Vector, p Params) (*Engine, error) {
	if ix == nil {
		return nil, fmt.Errorf("%w: index is required", errors.ErrInvalidInput)
	}
	if p.CosineWeight < 0 || p.RankWeight < 0 {
		return nil, fmt.Errorf("%w: fusion weights must be non-negative (w_cos=%v, w_pr=%v)",
			errors.ErrInvalidWeights, p.CosineWeight, p.RankWeight)
	}
	if p.CosineWeight+p.RankWeight == 0 {
		return nil, fmt.Errorf("%w: w_cos and w_pr are both zero", errors.ErrInvalidWeights)
	}
	if p.RankWeight > 0 && ranks == nil {
		return nil, fmt.Errorf("%w: w_pr=%v", errors.ErrNoRankVector, p.RankWeight)
	}
	if p.TopKPerTerm < 0 {
		return nil, fmt.Errorf("%w: negative candidate cap %d", errors.ErrInvalidInput, p.TopKPerTerm)
	}

	wCos, wRank := p.CosineWeight, p.RankWeight
	if sum := wCos + wRank; math.Abs(sum-1) > weightEpsilon {
		wCos /= sum
		wRank /= sum
	}
	topK := p.TopKPerTerm
	if topK == 0 {
		topK = DefaultTopKPerTerm
	}

	fusion := wRank > 0 && ranks != nil
	if fusion && p.NormalizeRank {
		ranks = ranks.Normalized()
	}

	return &Engine{
		ix:     ix,
		ranks:  ranks,
		topK:   topK,
		wCos:   wCos,
		wRank:  wRank,
		fusion: fusion,
	}, nil
}

// Search scores the normalised query terms and returns all surfaced
// candidates ranked by final score descending, ties in document-id order.
// Truncation for display is the caller's concern. An empty query, a query of
// entirely unseen terms, or an empty candidate set all yield an empty
// result, never an error.
func (e *Engine) Search(terms []string) []Result {
	weights, norm := e.queryVector(terms)
	if len(weights) == 0 || norm == 0 {
		return []Result{}
	}

	// Candidate generation with per-term pruning: each query term
	// contributes only the top-K entries of its champion list, but every
	// document surfaced by any term stays a candidate.
	scores := make(map[corpus.DocID]float64)
	for term, w := range weights {
		queryNW := w / norm
		postings := e.ix.Postings[term]
		if len(postings) > e.topK {
			postings = postings[:e.topK]
		}
		for _, p := range postings {
			scores[p.DocID] += p.NormWeight * queryNW
		}
	}
	if len(scores) == 0 {
		return []Result{}
	}

	results := make([]Result, 0, len(scores))
	for id, cos := range scores {
		r := Result{DocID: id, Score: cos, Cosine: cos}
		if e.fusion {
			r.Rank = e.ranks[id]
			r.Score = e.wCos*cos + e.wRank*r.Rank
		}
		results = append(results, r)
	}
	sort.Slice(results, func(i, j int) bool { return results[i].DocID < results[j].DocID })
	sort.SliceStable(results, func(i, j int) bool { return results[i].Score > results[j].Score })
	return results
}

// queryVector builds the ephemeral query-term weights and their L2 norm.
// Terms missing from the dictionary get idf 0 and drop out.
func (e *Engine) queryVector(terms []string) (map[string]float64, float64) {
	counts := make(map[string]int, len(terms))
	for _, term := range terms {
		counts[term]++
	}

	weights := make(map[string]float64, len(counts))
	normSum := 0.0
	for term, count := range counts {
		entry, ok := e.ix.Dict[term]
		if !ok || entry.IDF == 0 {
			continue
		}
		tfWeight := 1 + math.Log(float64(count))
		w := tfWeight * entry.IDF
		weights[term] = w
		normSum += w * w
	}
	return weights, math.Sqrt(normSum)
}
