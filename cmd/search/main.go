package main

import (
	"bufio"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/citeseek/citeseek/internal/corpus"
	"github.com/citeseek/citeseek/internal/index"
	"github.com/citeseek/citeseek/internal/query"
	"github.com/citeseek/citeseek/internal/rank"
	"github.com/citeseek/citeseek/internal/store"
	"github.com/citeseek/citeseek/internal/textproc"
	"github.com/citeseek/citeseek/pkg/config"
	"github.com/citeseek/citeseek/pkg/logger"
)

func main() {
	configPath := flag.String("config", "", "path to config file")
	q := flag.String("q", "", "one-shot query; omit for interactive mode")
	limit := flag.Int("k", 0, "number of results to print (default from config)")
	wCos := flag.Float64("wcos", -1, "cosine weight override")
	wRank := flag.Float64("wpr", -1, "authority weight override")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger.Setup(cfg.Logging.Level, cfg.Logging.Format)

	ix, err := store.LoadIndex(cfg.Index.DataDir)
	if err != nil {
		slog.Error("failed to load index", "data_dir", cfg.Index.DataDir, "error", err)
		os.Exit(1)
	}

	params := query.Params{
		TopKPerTerm:   cfg.Search.TopKPerTerm,
		CosineWeight:  cfg.Search.CosineWeight,
		RankWeight:    cfg.Search.RankWeight,
		NormalizeRank: cfg.Search.NormalizeRank,
	}
	if *wCos >= 0 {
		params.CosineWeight = *wCos
	}
	if *wRank >= 0 {
		params.RankWeight = *wRank
	}

	engine, err := buildEngine(cfg, ix, params)
	if err != nil {
		slog.Error("failed to build query engine", "error", err)
		os.Exit(1)
	}

	analyzer, err := buildAnalyzer(cfg.Index)
	if err != nil {
		slog.Error("failed to build analyzer", "error", err)
		os.Exit(1)
	}

	meta, err := store.LoadMeta(cfg.Index.DataDir)
	if err != nil {
		slog.Warn("document metadata unavailable", "error", err)
	}

	k := cfg.Search.DefaultLimit
	if *limit > 0 {
		k = *limit
	}

	if *q != "" {
		runQuery(engine, analyzer, meta, *q, k)
		return
	}

	// Interactive mode reads one query per line until ZZEND or EOF.
	scanner := bufio.NewScanner(os.Stdin)
	fmt.Println("enter queries, one per line (ZZEND to quit)")
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			break
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if strings.EqualFold(line, "ZZEND") {
			break
		}
		runQuery(engine, analyzer, meta, line, k)
	}
}

func buildEngine(cfg *config.Config, ix *index.Index, params query.Params) (*query.Engine, error) {
	var ranks rank.Vector
	if params.RankWeight > 0 {
		artifact, err := store.LoadRank(cfg.Index.DataDir)
		if err != nil {
			return nil, fmt.Errorf("loading rank vector (run the pagerank command first): %w", err)
		}
		ranks = artifact.Raw
	}
	return query.New(ix, ranks, params)
}

func buildAnalyzer(cfg config.IndexConfig) (*textproc.Analyzer, error) {
	opts := []textproc.Option{textproc.WithStemming(cfg.Stem)}
	if cfg.Stopwords != "" {
		words, err := textproc.LoadStopwords(cfg.Stopwords)
		if err != nil {
			return nil, fmt.Errorf("loading stopwords: %w", err)
		}
		opts = append(opts, textproc.WithStopwords(words))
	}
	return textproc.New(opts...), nil
}

func runQuery(engine *query.Engine, analyzer *textproc.Analyzer, meta map[corpus.DocID]store.DocMeta, q string, k int) {
	terms := analyzer.Terms(q)
	results := engine.Search(terms)
	if len(results) == 0 {
		fmt.Println("no results")
		return
	}
	if len(results) > k {
		results = results[:k]
	}
	for i, res := range results {
		title := ""
		if m, ok := meta[res.DocID]; ok {
			title = m.Title
		}
		fmt.Printf("%2d. doc %-6d score=%.4f cosine=%.4f rank=%.4f  %s\n",
			i+1, res.DocID, res.Score, res.Cosine, res.Rank, title)
	}
}
