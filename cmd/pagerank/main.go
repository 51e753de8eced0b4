package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/citeseek/citeseek/internal/rank"
	"github.com/citeseek/citeseek/internal/store"
	"github.com/citeseek/citeseek/pkg/config"
	"github.com/citeseek/citeseek/pkg/logger"
)

func main() {
	configPath := flag.String("config", "", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger.Setup(cfg.Logging.Level, cfg.Logging.Format)
	slog.Info("starting rank computation",
		"data_dir", cfg.Index.DataDir,
		"damping", cfg.Rank.Damping,
		"max_iter", cfg.Rank.MaxIter,
		"tolerance", cfg.Rank.Tolerance,
	)

	adjacency, err := store.LoadLinks(cfg.Index.DataDir)
	if err != nil {
		slog.Error("failed to load link graph", "error", err)
		os.Exit(1)
	}

	graph := rank.FromAdjacency(adjacency)
	if graph.Len() == 0 {
		slog.Error("link graph is empty, run the indexer first")
		os.Exit(1)
	}

	result, err := rank.Compute(graph, rank.Options{
		Damping:   cfg.Rank.Damping,
		MaxIter:   cfg.Rank.MaxIter,
		Tolerance: cfg.Rank.Tolerance,
	})
	if err != nil {
		slog.Error("rank computation failed", "error", err)
		os.Exit(1)
	}

	artifact := store.RankArtifact{
		Damping:    cfg.Rank.Damping,
		Iterations: result.Iterations,
		Delta:      result.Delta,
		Converged:  result.Converged,
		Raw:        result.Ranks,
	}
	if cfg.Rank.Normalize {
		artifact.Normalized = result.Ranks.Normalized()
	}

	if err := store.SaveRank(cfg.Index.DataDir, artifact); err != nil {
		slog.Error("failed to save rank vector", "error", err)
		os.Exit(1)
	}

	slog.Info("rank computation complete",
		"nodes", graph.Len(),
		"iterations", result.Iterations,
		"delta", result.Delta,
		"converged", result.Converged,
	)
}
