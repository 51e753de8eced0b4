package index

import (
	"fmt"
	"math"
	"sort"

	"github.com/citeseek/citeseek/internal/corpus"
)

// Compile turns term statistics into the final index artifact: TF-IDF
// weights, per-document L2 norms, and champion lists.
//
// The champion-list ordering is weight descending with deterministic
// tie-breaks (higher raw frequency first, then lower document id), so
// rebuilding from an unchanged corpus reproduces byte-identical artifacts.
func Compile(stats *Stats) (*Index, error) {
	normSums := make(map[corpus.DocID]float64, len(stats.DocIDs))
	for _, id := range stats.DocIDs {
		normSums[id] = 0
	}

	// Cross-term reduction: every term's weights contribute to a
	// document's norm, so this pass must finish before any norm_weight
	// can be computed.
	weights := make(map[string]map[corpus.DocID]float64, len(stats.Terms))
	for term, ts := range stats.Terms {
		perDoc := make(map[corpus.DocID]float64, len(ts.Docs))
		for id, occ := range ts.Docs {
			tfWeight := 1 + math.Log(float64(occ.TF))
			w := tfWeight * ts.IDF
			perDoc[id] = w
			normSums[id] += w * w
		}
		weights[term] = perDoc
	}

	norms := make(map[corpus.DocID]float64, len(normSums))
	for id, sum := range normSums {
		norms[id] = math.Sqrt(sum)
	}

	ix := &Index{
		DocCount: stats.DocCount,
		Dict:     make(map[string]DictEntry, len(stats.Terms)),
		Postings: make(map[string][]Posting, len(stats.Terms)),
		Norms:    norms,
	}
	for term, ts := range stats.Terms {
		ix.Dict[term] = DictEntry{Term: term, DF: ts.DF, IDF: ts.IDF}

		postings := make([]Posting, 0, len(ts.Docs))
		for id, occ := range ts.Docs {
			w := weights[term][id]
			normWeight := 0.0
			if norms[id] > 0 {
				normWeight = w / norms[id]
			}
			tfWeight := 1 + math.Log(float64(occ.TF))
			p, err := NewPosting(id, occ.TF, tfWeight, w, normWeight, occ.Positions)
			if err != nil {
				return nil, fmt.Errorf("compiling term %q: %w", term, err)
			}
			postings = append(postings, p)
		}
		sort.Slice(postings, func(i, j int) bool {
			if postings[i].Weight != postings[j].Weight {
				return postings[i].Weight > postings[j].Weight
			}
			if postings[i].TF != postings[j].TF {
				return postings[i].TF > postings[j].TF
			}
			return postings[i].DocID < postings[j].DocID
		})
		ix.Postings[term] = postings
	}
	return ix, nil
}
