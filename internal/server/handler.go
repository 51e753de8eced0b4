package server

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	apperrors "github.com/citeseek/citeseek/pkg/errors"
	"github.com/citeseek/citeseek/pkg/logger"
	"github.com/citeseek/citeseek/pkg/metrics"

	"github.com/citeseek/citeseek/internal/corpus"
	"github.com/citeseek/citeseek/internal/index"
	"github.com/citeseek/citeseek/internal/query"
	"github.com/citeseek/citeseek/internal/rank"
	"github.com/citeseek/citeseek/internal/store"
	"github.com/citeseek/citeseek/internal/textproc"
)

// SearchResponse is the JSON body of a successful search.
type SearchResponse struct {
	Query   string      `json:"query"`
	Total   int         `json:"total"`
	TookMS  int64       `json:"took_ms"`
	Results []SearchHit `json:"results"`
}

// SearchHit is one ranked document, enriched with stored metadata.
type SearchHit struct {
	DocID   corpus.DocID `json:"doc_id"`
	Score   float64      `json:"score"`
	Cosine  float64      `json:"cosine"`
	Rank    float64      `json:"rank,omitempty"`
	URL     string       `json:"url,omitempty"`
	Title   string       `json:"title,omitempty"`
	Snippet string       `json:"snippet,omitempty"`
}

// Handler serves the search API over a loaded set of artifacts.
type Handler struct {
	ix       *index.Index
	ranks    rank.Vector
	analyzer *textproc.Analyzer
	meta     map[corpus.DocID]store.DocMeta
	engine   *query.Engine
	defaults query.Params
	limit    int
	cache    *QueryCache
	metrics  *metrics.Metrics
	logger   *slog.Logger
}

// NewHandler builds the default engine once; per-request weight overrides get
// a throwaway engine so invalid overrides fail that request alone.
func NewHandler(
	ix *index.Index,
	ranks rank.Vector,
	analyzer *textproc.Analyzer,
	meta map[corpus.DocID]store.DocMeta,
	defaults query.Params,
	defaultLimit int,
	cache *QueryCache,
	m *metrics.Metrics,
	log *slog.Logger,
) (*Handler, error) {
	engine, err := query.New(ix, ranks, defaults)
	if err != nil {
		return nil, fmt.Errorf("build default engine: %w", err)
	}
	return &Handler{
		ix:       ix,
		ranks:    ranks,
		analyzer: analyzer,
		meta:     meta,
		engine:   engine,
		defaults: defaults,
		limit:    defaultLimit,
		cache:    cache,
		metrics:  m,
		logger:   log.With("component", "search_handler"),
	}, nil
}

// Routes registers the handler's endpoints on mux.
func (h *Handler) Routes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/v1/search", h.Search)
	mux.HandleFunc("GET /", h.Home)
}

// Search handles GET /api/v1/search?q=...&k=...&wcos=...&wpr=...&normalize=...
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	q := strings.TrimSpace(r.URL.Query().Get("q"))
	if q == "" {
		h.writeError(w, r, fmt.Errorf("%w: query parameter 'q' is required", apperrors.ErrInvalidInput))
		return
	}

	limit := h.limit
	if raw := r.URL.Query().Get("k"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			h.writeError(w, r, fmt.Errorf("%w: 'k' must be a positive integer", apperrors.ErrInvalidInput))
			return
		}
		limit = n
	}

	params, overridden, err := h.overrideParams(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	key := h.cache.Key(q, limit, params.CosineWeight, params.RankWeight, params.NormalizeRank)
	payload, cached, err := h.cache.GetOrCompute(r.Context(), key, func() (any, error) {
		engine := h.engine
		if overridden {
			custom, err := query.New(h.ix, h.ranks, params)
			if err != nil {
				return nil, err
			}
			engine = custom
		}
		terms := h.analyzer.Terms(q)
		results := engine.Search(terms)
		if len(results) > limit {
			results = results[:limit]
		}
		return h.buildResponse(q, results, start), nil
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	if h.metrics != nil {
		resultType := "hit"
		var counts struct {
			Total int `json:"total"`
		}
		if err := json.Unmarshal(payload, &counts); err == nil && counts.Total == 0 {
			resultType = "zero_result"
		}
		h.metrics.SearchQueriesTotal.WithLabelValues(resultType).Inc()
		status := "miss"
		if cached {
			status = "hit"
		}
		h.metrics.SearchLatency.WithLabelValues(status).Observe(time.Since(start).Seconds())
	}

	w.Header().Set("Content-Type", "application/json")
	if cached {
		w.Header().Set("X-Cache", "hit")
	} else {
		w.Header().Set("X-Cache", "miss")
	}
	w.WriteHeader(http.StatusOK)
	w.Write(payload)

	h.logger.Debug("search served",
		"query", q,
		"k", limit,
		"cached", cached,
		"took", time.Since(start))
}

func (h *Handler) overrideParams(r *http.Request) (query.Params, bool, error) {
	params := h.defaults
	overridden := false
	if raw := r.URL.Query().Get("wcos"); raw != "" {
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return params, false, fmt.Errorf("%w: 'wcos' must be a number", apperrors.ErrInvalidInput)
		}
		params.CosineWeight = v
		overridden = true
	}
	if raw := r.URL.Query().Get("wpr"); raw != "" {
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return params, false, fmt.Errorf("%w: 'wpr' must be a number", apperrors.ErrInvalidInput)
		}
		params.RankWeight = v
		overridden = true
	}
	if raw := r.URL.Query().Get("normalize"); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			return params, false, fmt.Errorf("%w: 'normalize' must be a boolean", apperrors.ErrInvalidInput)
		}
		params.NormalizeRank = v
		overridden = true
	}
	return params, overridden, nil
}

func (h *Handler) buildResponse(q string, results []query.Result, start time.Time) SearchResponse {
	hits := make([]SearchHit, 0, len(results))
	for _, res := range results {
		hit := SearchHit{
			DocID:  res.DocID,
			Score:  res.Score,
			Cosine: res.Cosine,
			Rank:   res.Rank,
		}
		if m, ok := h.meta[res.DocID]; ok {
			hit.URL = m.URL
			hit.Title = m.Title
			hit.Snippet = m.Snippet
		}
		hits = append(hits, hit)
	}
	if h.metrics != nil {
		h.metrics.SearchResultsCount.Observe(float64(len(hits)))
	}
	return SearchResponse{
		Query:   q,
		Total:   len(hits),
		TookMS:  time.Since(start).Milliseconds(),
		Results: hits,
	}
}

// Home serves a minimal query form so the service is explorable in a browser.
func (h *Handler) Home(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	fmt.Fprint(w, `<!DOCTYPE html>
<html>
<head><title>citeseek</title></head>
<body>
<h1>citeseek</h1>
<form action="/api/v1/search" method="get">
<input type="text" name="q" placeholder="search query" size="40">
<input type="submit" value="Search">
</form>
</body>
</html>`)
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := apperrors.HTTPStatusCode(err)
	log := logger.FromContext(r.Context())
	if status >= 500 {
		log.Error("request failed", "error", err)
	} else {
		log.Warn("request rejected", "error", err)
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
}
