// Package eval computes standard retrieval-quality metrics (Average
// Precision, R-Precision, MAP) over ranked result lists and qrels.
package eval

import (
	"github.com/citeseek/citeseek/internal/corpus"
	"github.com/citeseek/citeseek/internal/query"
)

// AveragePrecision computes AP for one ranked result list against the set
// of relevant document ids. Duplicate relevant ids are collapsed; an empty
// relevant set scores 0.
func AveragePrecision(results []query.Result, relevant []corpus.DocID) float64 {
	unique := uniquePreserveOrder(relevant)
	if len(unique) == 0 {
		return 0
	}
	relevantSet := make(map[corpus.DocID]struct{}, len(unique))
	for _, id := range unique {
		relevantSet[id] = struct{}{}
	}

	hits := 0
	precisionSum := 0.0
	for i, r := range results {
		if _, ok := relevantSet[r.DocID]; ok {
			hits++
			precisionSum += float64(hits) / float64(i+1)
		}
	}
	return precisionSum / float64(len(unique))
}

// RPrecision computes the fraction of the top |R| results that are relevant.
func RPrecision(results []query.Result, relevant []corpus.DocID) float64 {
	unique := uniquePreserveOrder(relevant)
	r := len(unique)
	if r == 0 {
		return 0
	}
	relevantSet := make(map[corpus.DocID]struct{}, r)
	for _, id := range unique {
		relevantSet[id] = struct{}{}
	}

	hits := 0
	for i := 0; i < r && i < len(results); i++ {
		if _, ok := relevantSet[results[i].DocID]; ok {
			hits++
		}
	}
	return float64(hits) / float64(r)
}

// Summary aggregates per-query metrics over a query set.
type Summary struct {
	MAP            float64
	MeanRPrecision float64
	Queries        int
}

// Summarize computes MAP and mean R-Precision from per-query values.
func Summarize(apValues, rpValues []float64) Summary {
	s := Summary{Queries: len(apValues)}
	if len(apValues) == 0 {
		return s
	}
	for _, ap := range apValues {
		s.MAP += ap
	}
	s.MAP /= float64(len(apValues))
	if len(rpValues) > 0 {
		for _, rp := range rpValues {
			s.MeanRPrecision += rp
		}
		s.MeanRPrecision /= float64(len(rpValues))
	}
	return s
}

func uniquePreserveOrder(ids []corpus.DocID) []corpus.DocID {
	seen := make(map[corpus.DocID]struct{}, len(ids))
	out := make([]corpus.DocID, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
