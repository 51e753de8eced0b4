package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/citeseek/citeseek/internal/query"
	"github.com/citeseek/citeseek/internal/rank"
	"github.com/citeseek/citeseek/internal/server"
	"github.com/citeseek/citeseek/internal/store"
	"github.com/citeseek/citeseek/internal/textproc"
	"github.com/citeseek/citeseek/pkg/config"
	"github.com/citeseek/citeseek/pkg/health"
	"github.com/citeseek/citeseek/pkg/logger"
	"github.com/citeseek/citeseek/pkg/metrics"
	pkgredis "github.com/citeseek/citeseek/pkg/redis"
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
	slog.Info("starting search service", "port", cfg.Server.Port, "data_dir", cfg.Index.DataDir)

	ix, err := store.LoadIndex(cfg.Index.DataDir)
	if err != nil {
		slog.Error("failed to load index", "data_dir", cfg.Index.DataDir, "error", err)
		os.Exit(1)
	}
	slog.Info("index loaded", "documents", ix.DocCount, "terms", len(ix.Dict))

	var ranks rank.Vector
	var rankArtifact store.RankArtifact
	if cfg.Search.RankWeight > 0 {
		rankArtifact, err = store.LoadRank(cfg.Index.DataDir)
		if err != nil {
			slog.Error("failed to load rank vector", "error", err)
			os.Exit(1)
		}
		ranks = rankArtifact.Raw
		slog.Info("rank vector loaded", "nodes", len(ranks), "converged", rankArtifact.Converged)
	}

	meta, err := store.LoadMeta(cfg.Index.DataDir)
	if err != nil {
		slog.Warn("document metadata unavailable, results will be bare", "error", err)
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

	m := metrics.New()
	m.TermsIndexed.Set(float64(len(ix.Dict)))
	if ranks != nil {
		m.RankIterations.Set(float64(rankArtifact.Iterations))
		m.RankFinalDelta.Set(rankArtifact.Delta)
	}
	var metricsShutdown func(context.Context) error
	if cfg.Metrics.Enabled {
		metricsShutdown = metrics.StartServer(cfg.Metrics.Port)
	}

	var redisClient *pkgredis.Client
	redisClient, err = pkgredis.NewClient(cfg.Redis)
	if err != nil {
		slog.Warn("redis unavailable, query caching disabled", "error", err)
		redisClient = nil
	} else {
		defer redisClient.Close()
		slog.Info("query cache enabled", "addr", cfg.Redis.Addr, "ttl", cfg.Redis.CacheTTL)
	}
	queryCache := server.NewQueryCache(redisClient, cfg.Redis.CacheTTL, m, slog.Default())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	checker := health.NewChecker()
	checker.Register("index", func(ctx context.Context) health.ComponentHealth {
		if ix.DocCount > 0 {
			return health.ComponentHealth{
				Status:  health.StatusUp,
				Message: fmt.Sprintf("%d documents, %d terms", ix.DocCount, len(ix.Dict)),
			}
		}
		return health.ComponentHealth{Status: health.StatusDown, Message: "empty index"}
	})
	checker.Register("redis", func(ctx context.Context) health.ComponentHealth {
		if redisClient == nil {
			return health.ComponentHealth{Status: health.StatusDegraded, Message: "not configured"}
		}
		if err := redisClient.Ping(ctx); err != nil {
			return health.ComponentHealth{Status: health.StatusDegraded, Message: err.Error()}
		}
		return health.ComponentHealth{Status: health.StatusUp}
	})

	params := query.Params{
		TopKPerTerm:   cfg.Search.TopKPerTerm,
		CosineWeight:  cfg.Search.CosineWeight,
		RankWeight:    cfg.Search.RankWeight,
		NormalizeRank: cfg.Search.NormalizeRank,
	}
	h, err := server.NewHandler(ix, ranks, analyzer, meta, params, cfg.Search.DefaultLimit, queryCache, m, slog.Default())
	if err != nil {
		slog.Error("failed to build search handler", "error", err)
		os.Exit(1)
	}

	mux := http.NewServeMux()
	h.Routes(mux)
	mux.HandleFunc("GET /api/v1/cache/stats", func(w http.ResponseWriter, r *http.Request) {
		hits, misses := queryCache.Stats()
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]int64{"hits": hits, "misses": misses})
	})
	mux.HandleFunc("POST /api/v1/cache/invalidate", func(w http.ResponseWriter, r *http.Request) {
		deleted, err := queryCache.Invalidate(r.Context())
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]int64{"deleted": deleted})
	})
	mux.HandleFunc("GET /health/live", checker.LiveHandler())
	mux.HandleFunc("GET /health/ready", checker.ReadyHandler())

	var chain http.Handler = mux
	chain = server.Metrics(m)(chain)
	chain = server.Timeout(cfg.Server.WriteTimeout)(chain)
	chain = server.RequestID(chain)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      chain,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		<-ctx.Done()
		slog.Info("shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Error("server shutdown error", "error", err)
		}
		if metricsShutdown != nil {
			if err := metricsShutdown(shutdownCtx); err != nil {
				slog.Error("metrics server shutdown error", "error", err)
			}
		}
	}()

	slog.Info("search service listening", "addr", srv.Addr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}

	slog.Info("search service stopped")
}
