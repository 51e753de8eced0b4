package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/citeseek/citeseek/internal/corpus"
	"github.com/citeseek/citeseek/internal/index"
	"github.com/citeseek/citeseek/internal/store"
	"github.com/citeseek/citeseek/internal/textproc"
	"github.com/citeseek/citeseek/pkg/config"
	"github.com/citeseek/citeseek/pkg/kafka"
	"github.com/citeseek/citeseek/pkg/logger"
	"github.com/citeseek/citeseek/pkg/metrics"
	"github.com/citeseek/citeseek/pkg/postgres"
)

func main() {
	configPath := flag.String("config", "", "path to config file")
	source := flag.String("source", "cacm", "corpus source: cacm, jsonl, kafka or postgres")
	input := flag.String("input", "", "input path for cacm and jsonl sources")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger.Setup(cfg.Logging.Level, cfg.Logging.Format)
	slog.Info("starting index build",
		"source", *source,
		"data_dir", cfg.Index.DataDir,
		"idf_strategy", cfg.Index.IDFStrategy,
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Long builds are observable over the scrape endpoint.
	var m *metrics.Metrics
	if cfg.Metrics.Enabled {
		m = metrics.New()
		shutdown := metrics.StartServer(cfg.Metrics.Port)
		defer shutdown(context.Background())
	}

	docs, adjacency, err := loadCorpus(ctx, cfg, *source, *input)
	if err != nil {
		slog.Error("failed to load corpus", "source", *source, "error", err)
		os.Exit(1)
	}
	slog.Info("corpus loaded", "documents", len(docs))

	analyzer, err := buildAnalyzer(cfg.Index)
	if err != nil {
		slog.Error("failed to build analyzer", "error", err)
		os.Exit(1)
	}

	ix, err := index.Build(ctx, docs, analyzer, index.BuildOptions{
		Strategy: index.IDFStrategy(cfg.Index.IDFStrategy),
		Workers:  cfg.Index.Workers,
	})
	if err != nil {
		slog.Error("index build failed", "error", err)
		os.Exit(1)
	}

	if m != nil {
		m.DocsIndexedTotal.Add(float64(len(docs)))
		m.TermsIndexed.Set(float64(len(ix.Dict)))
	}

	if err := store.SaveIndex(cfg.Index.DataDir, ix); err != nil {
		slog.Error("failed to save index", "error", err)
		os.Exit(1)
	}
	if err := store.SaveMeta(cfg.Index.DataDir, store.BuildMeta(docs)); err != nil {
		slog.Error("failed to save document metadata", "error", err)
		os.Exit(1)
	}
	if err := store.SaveLinks(cfg.Index.DataDir, adjacency); err != nil {
		slog.Error("failed to save link graph", "error", err)
		os.Exit(1)
	}

	slog.Info("index build complete",
		"documents", ix.DocCount,
		"terms", len(ix.Dict),
		"data_dir", cfg.Index.DataDir,
	)
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

// loadCorpus reads documents and link adjacency from the chosen source.
// Crawl-record sources (jsonl, kafka, postgres) share link resolution.
func loadCorpus(ctx context.Context, cfg *config.Config, source, input string) ([]corpus.Document, map[corpus.DocID][]corpus.DocID, error) {
	switch source {
	case "cacm":
		if input == "" {
			return nil, nil, fmt.Errorf("cacm source requires -input")
		}
		return corpus.ParseCACM(input)
	case "jsonl":
		if input == "" {
			return nil, nil, fmt.Errorf("jsonl source requires -input")
		}
		records, err := corpus.ReadJSONL(input)
		if err != nil {
			return nil, nil, err
		}
		return fromRecords(records)
	case "kafka":
		records, err := drainKafka(ctx, cfg)
		if err != nil {
			return nil, nil, err
		}
		return fromRecords(records)
	case "postgres":
		client, err := postgres.New(cfg.Postgres)
		if err != nil {
			return nil, nil, fmt.Errorf("connecting to postgres: %w", err)
		}
		defer client.Close()
		docStore, err := corpus.NewStore(ctx, client)
		if err != nil {
			return nil, nil, err
		}
		records, err := docStore.LoadRecords(ctx)
		if err != nil {
			return nil, nil, err
		}
		return fromRecords(records)
	default:
		return nil, nil, fmt.Errorf("unknown corpus source %q", source)
	}
}

func fromRecords(records []corpus.CrawlRecord) ([]corpus.Document, map[corpus.DocID][]corpus.DocID, error) {
	docs := corpus.ResolveLinks(records)
	adjacency := make(map[corpus.DocID][]corpus.DocID, len(docs))
	for _, doc := range docs {
		adjacency[doc.ID] = doc.Links
	}
	return docs, adjacency, nil
}

// drainKafka treats the crawl-records topic as a finite stream: it consumes
// until the topic goes idle, then returns everything collected.
func drainKafka(ctx context.Context, cfg *config.Config) ([]corpus.CrawlRecord, error) {
	var records []corpus.CrawlRecord
	handler := func(ctx context.Context, key, value []byte) error {
		rec, err := kafka.DecodeJSON[corpus.CrawlRecord](value)
		if err != nil {
			return err
		}
		records = append(records, rec)
		return nil
	}
	consumer := kafka.NewConsumer(cfg.Kafka, cfg.Kafka.Topics.CrawlRecords, handler)
	defer consumer.Close()

	count, err := consumer.Drain(ctx, cfg.Kafka.DrainTimeout)
	if err != nil {
		return nil, fmt.Errorf("draining topic: %w", err)
	}
	slog.Info("kafka drain complete", "records", count)
	return records, nil
}
