package index

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/citeseek/citeseek/internal/corpus"
	"github.com/citeseek/citeseek/internal/textproc"
)

// BuildOptions controls an index build.
type BuildOptions struct {
	Strategy IDFStrategy
	Workers  int
}

// Build runs the full pipeline: parallel tokenisation sharded across
// documents, sequential statistics accumulation, then compilation into the
// final artifact. Tokenisation is the only parallel stage; accumulation runs
// in input order so identical corpora always produce identical artifacts.
func Build(ctx context.Context, docs []corpus.Document, analyzer *textproc.Analyzer, opts BuildOptions) (*Index, error) {
	logger := slog.Default().With("component", "index-builder")
	start := time.Now()

	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	strategy := opts.Strategy
	if strategy == "" {
		strategy = IDFPlain
	}

	tokenised := make([][]textproc.Token, len(docs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i := range docs {
		i := i
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			tokenised[i] = analyzer.Tokens(docs[i].FullText())
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("tokenising corpus: %w", err)
	}

	acc := NewAccumulator()
	for i, doc := range docs {
		if err := acc.AddDocument(doc.ID, tokenised[i]); err != nil {
			return nil, fmt.Errorf("accumulating corpus: %w", err)
		}
	}

	ix, err := Compile(acc.Fold(strategy))
	if err != nil {
		return nil, err
	}
	logger.Info("index built",
		"docs", ix.DocCount,
		"terms", len(ix.Dict),
		"idf_strategy", string(strategy),
		"duration", time.Since(start).Round(time.Millisecond),
	)
	return ix, nil
}
