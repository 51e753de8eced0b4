package eval

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/citeseek/citeseek/internal/corpus"
	"github.com/citeseek/citeseek/internal/query"
)

func ranked(ids ...corpus.DocID) []query.Result {
	out := make([]query.Result, len(ids))
	for i, id := range ids {
		out[i] = query.Result{DocID: id}
	}
	return out
}

func TestAveragePrecision(t *testing.T) {
	// Relevant {2,5}; ranking [5,9,2,7] hits at ranks 1 and 3:
	// AP = (1/2)(1/1 + 2/3) = 0.8333...
	ap := AveragePrecision(ranked(5, 9, 2, 7), []corpus.DocID{2, 5})
	assert.InDelta(t, 5.0/6.0, ap, 1e-9)
}

func TestAveragePrecisionPerfectRanking(t *testing.T) {
	ap := AveragePrecision(ranked(1, 2, 3), []corpus.DocID{1, 2, 3})
	assert.InDelta(t, 1.0, ap, 1e-12)
}

func TestAveragePrecisionNoHits(t *testing.T) {
	assert.Equal(t, 0.0, AveragePrecision(ranked(9, 8, 7), []corpus.DocID{1, 2}))
}

func TestAveragePrecisionMissedRelevantLowersScore(t *testing.T) {
	// Only one of two relevant documents is retrieved; the denominator is
	// still |R| = 2.
	ap := AveragePrecision(ranked(2, 9), []corpus.DocID{2, 5})
	assert.InDelta(t, 0.5, ap, 1e-12)
}

func TestAveragePrecisionEdgeCases(t *testing.T) {
	assert.Equal(t, 0.0, AveragePrecision(nil, []corpus.DocID{1}))
	assert.Equal(t, 0.0, AveragePrecision(ranked(1), nil))
}

func TestAveragePrecisionDuplicateJudgements(t *testing.T) {
	// Duplicate qrels lines must not inflate |R|.
	a := AveragePrecision(ranked(5, 9, 2, 7), []corpus.DocID{2, 5, 5, 2})
	b := AveragePrecision(ranked(5, 9, 2, 7), []corpus.DocID{2, 5})
	assert.Equal(t, b, a)
}

func TestRPrecision(t *testing.T) {
	// R = 2, top-2 of the ranking contains one relevant document.
	rp := RPrecision(ranked(5, 9, 2, 7), []corpus.DocID{2, 5})
	assert.InDelta(t, 0.5, rp, 1e-12)
}

func TestRPrecisionShortRanking(t *testing.T) {
	// Fewer results than R: the missing tail counts as misses.
	rp := RPrecision(ranked(2), []corpus.DocID{2, 5, 7})
	assert.InDelta(t, 1.0/3.0, rp, 1e-12)
}

func TestSummarize(t *testing.T) {
	s := Summarize([]float64{1.0, 0.5}, []float64{0.5, 0.5})
	assert.Equal(t, 2, s.Queries)
	assert.InDelta(t, 0.75, s.MAP, 1e-12)
	assert.InDelta(t, 0.5, s.MeanRPrecision, 1e-12)

	empty := Summarize(nil, nil)
	assert.Equal(t, 0, empty.Queries)
	assert.Equal(t, 0.0, empty.MAP)

	// No R-Precision values leaves the mean at zero rather than NaN.
	apOnly := Summarize([]float64{1.0}, nil)
	assert.Equal(t, 1.0, apOnly.MAP)
	assert.Equal(t, 0.0, apOnly.MeanRPrecision)
}

func TestParseQueries(t *testing.T) {
	path := filepath.Join(t.TempDir(), "query.text")
	content := ".I 1\n.W\n What articles exist which deal with TSS,\n an operating system?\n.N\n 1. Author\n.I 2\n.W\n parallel algorithms\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	queries, err := ParseQueries(path)
	require.NoError(t, err)
	require.Len(t, queries, 2)

	assert.Equal(t, 1, queries[0].ID)
	assert.Equal(t, "What articles exist which deal with TSS, an operating system?", queries[0].Text)
	assert.Equal(t, 2, queries[1].ID)
	assert.Equal(t, "parallel algorithms", queries[1].Text)
}

func TestParseQrels(t *testing.T) {
	path := filepath.Join(t.TempDir(), "qrels.text")
	content := "1 1410\n1 1572\n2 2434\nbad line\n3\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	qrels, err := ParseQrels(path)
	require.NoError(t, err)

	assert.Equal(t, []corpus.DocID{1410, 1572}, qrels[1])
	assert.Equal(t, []corpus.DocID{2434}, qrels[2])
	assert.NotContains(t, qrels, 3)
}
