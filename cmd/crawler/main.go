package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/citeseek/citeseek/internal/corpus"
	"github.com/citeseek/citeseek/internal/crawler"
	"github.com/citeseek/citeseek/pkg/config"
	"github.com/citeseek/citeseek/pkg/kafka"
	"github.com/citeseek/citeseek/pkg/logger"
	"github.com/citeseek/citeseek/pkg/metrics"
	"github.com/citeseek/citeseek/pkg/postgres"
)

func main() {
	configPath := flag.String("config", "", "path to config file")
	sinkName := flag.String("sink", "jsonl", "where to store crawl records: jsonl, kafka or postgres")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger.Setup(cfg.Logging.Level, cfg.Logging.Format)
	if len(cfg.Crawler.Seeds) == 0 {
		slog.Error("no seed URLs configured")
		os.Exit(1)
	}
	slog.Info("starting crawl",
		"seeds", cfg.Crawler.Seeds,
		"max_pages", cfg.Crawler.MaxPages,
		"max_depth", cfg.Crawler.MaxDepth,
		"sink", *sinkName,
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var m *metrics.Metrics
	if cfg.Metrics.Enabled {
		m = metrics.New()
		shutdown := metrics.StartServer(cfg.Metrics.Port)
		defer shutdown(context.Background())
	}

	sink, cleanup, err := buildSink(ctx, cfg, *sinkName)
	if err != nil {
		slog.Error("failed to set up sink", "sink", *sinkName, "error", err)
		os.Exit(1)
	}
	defer cleanup()

	c := crawler.New(cfg.Crawler, m)
	stored, err := c.Run(ctx, sink)
	if err != nil {
		slog.Error("crawl failed", "error", err)
		os.Exit(1)
	}

	slog.Info("crawl complete", "pages_stored", stored)
}

func buildSink(ctx context.Context, cfg *config.Config, name string) (crawler.Sink, func(), error) {
	switch name {
	case "jsonl":
		writer, err := corpus.NewJSONLWriter(cfg.Crawler.Output)
		if err != nil {
			return nil, nil, err
		}
		sink := func(ctx context.Context, rec corpus.CrawlRecord) error {
			return writer.Write(rec)
		}
		cleanup := func() {
			if err := writer.Close(); err != nil {
				slog.Error("failed to close output file", "error", err)
			}
		}
		return sink, cleanup, nil
	case "kafka":
		producer := kafka.NewProducer(cfg.Kafka, cfg.Kafka.Topics.CrawlRecords)
		sink := func(ctx context.Context, rec corpus.CrawlRecord) error {
			return producer.Publish(ctx, kafka.Event{
				Key:   strconv.FormatUint(uint64(rec.DocID), 10),
				Value: rec,
			})
		}
		cleanup := func() {
			if err := producer.Close(); err != nil {
				slog.Error("failed to close kafka producer", "error", err)
			}
		}
		return sink, cleanup, nil
	case "postgres":
		client, err := postgres.New(cfg.Postgres)
		if err != nil {
			return nil, nil, fmt.Errorf("connecting to postgres: %w", err)
		}
		docStore, err := corpus.NewStore(ctx, client)
		if err != nil {
			client.Close()
			return nil, nil, err
		}
		sink := func(ctx context.Context, rec corpus.CrawlRecord) error {
			return docStore.SaveRecord(ctx, rec)
		}
		cleanup := func() {
			if err := client.Close(); err != nil {
				slog.Error("failed to close postgres client", "error", err)
			}
		}
		return sink, cleanup, nil
	default:
		return nil, nil, fmt.Errorf("unknown sink %q", name)
	}
}
