package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/citeseek/citeseek/internal/eval"
	"github.com/citeseek/citeseek/internal/query"
	"github.com/citeseek/citeseek/internal/rank"
	"github.com/citeseek/citeseek/internal/store"
	"github.com/citeseek/citeseek/internal/textproc"
	"github.com/citeseek/citeseek/pkg/config"
	"github.com/citeseek/citeseek/pkg/logger"
)

func main() {
	configPath := flag.String("config", "", "path to config file")
	queriesPath := flag.String("queries", "", "path to the query file")
	qrelsPath := flag.String("qrels", "", "path to the relevance judgements file")
	verbose := flag.Bool("v", false, "print per-query metrics")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	if *queriesPath == "" || *qrelsPath == "" {
		fmt.Fprintln(os.Stderr, "-queries and -qrels are required")
		os.Exit(1)
	}

	logger.Setup(cfg.Logging.Level, cfg.Logging.Format)

	ix, err := store.LoadIndex(cfg.Index.DataDir)
	if err != nil {
		slog.Error("failed to load index", "data_dir", cfg.Index.DataDir, "error", err)
		os.Exit(1)
	}

	var ranks rank.Vector
	if cfg.Search.RankWeight > 0 {
		artifact, err := store.LoadRank(cfg.Index.DataDir)
		if err != nil {
			slog.Error("failed to load rank vector", "error", err)
			os.Exit(1)
		}
		ranks = artifact.Raw
	}

	engine, err := query.New(ix, ranks, query.Params{
		TopKPerTerm:   cfg.Search.TopKPerTerm,
		CosineWeight:  cfg.Search.CosineWeight,
		RankWeight:    cfg.Search.RankWeight,
		NormalizeRank: cfg.Search.NormalizeRank,
	})
	if err != nil {
		slog.Error("failed to build query engine", "error", err)
		os.Exit(1)
	}

	opts := []textproc.Option{textproc.WithStemming(cfg.Index.Stem)}
	if cfg.Index.Stopwords != "" {
		words, err := textproc.LoadStopwords(cfg.Index.Stopwords)
		if err != nil {
			slog.Error("failed to load stopwords", "error", err)
			os.Exit(1)
		}
		opts = append(opts, textproc.WithStopwords(words))
	}
	analyzer := textproc.New(opts...)

	queries, err := eval.ParseQueries(*queriesPath)
	if err != nil {
		slog.Error("failed to parse queries", "path", *queriesPath, "error", err)
		os.Exit(1)
	}
	qrels, err := eval.ParseQrels(*qrelsPath)
	if err != nil {
		slog.Error("failed to parse relevance judgements", "path", *qrelsPath, "error", err)
		os.Exit(1)
	}

	var apValues, rpValues []float64
	for _, q := range queries {
		relevant, ok := qrels[q.ID]
		if !ok || len(relevant) == 0 {
			continue
		}
		results := engine.Search(analyzer.Terms(q.Text))
		ap := eval.AveragePrecision(results, relevant)
		rp := eval.RPrecision(results, relevant)
		apValues = append(apValues, ap)
		rpValues = append(rpValues, rp)
		if *verbose {
			fmt.Printf("query %3d  AP=%.4f  R-Prec=%.4f  (relevant=%d, returned=%d)\n",
				q.ID, ap, rp, len(relevant), len(results))
		}
	}

	summary := eval.Summarize(apValues, rpValues)
	fmt.Printf("queries evaluated: %d\n", summary.Queries)
	fmt.Printf("MAP:               %.4f\n", summary.MAP)
	fmt.Printf("mean R-Precision:  %.4f\n", summary.MeanRPrecision)
}
