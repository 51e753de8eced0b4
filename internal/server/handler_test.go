package server

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/citeseek/citeseek/internal/corpus"
	"github.com/citeseek/citeseek/internal/index"
	"github.com/citeseek/citeseek/internal/query"
	"github.com/citeseek/citeseek/internal/rank"
	"github.com/citeseek/citeseek/internal/store"
	"github.com/citeseek/citeseek/internal/textproc"
	"github.com/citeseek/citeseek/pkg/metrics"
)

func newTestHandler(t *testing.T) *Handler {
	return newTestHandlerWithMetrics(t, nil)
}

func newTestHandlerWithMetrics(t *testing.T, m *metrics.Metrics) *Handler {
	t.Helper()
	docs := []corpus.Document{
		{ID: 1, Title: "Cats", Text: "cat cat dog"},
		{ID: 2, Title: "Birds", Text: "bird"},
		{ID: 3, Title: "Dogs", Text: "cat dog dog"},
	}
	analyzer := textproc.New(textproc.WithStemming(false))
	ix, err := index.Build(context.Background(), docs, analyzer, index.BuildOptions{Strategy: index.IDFPlain})
	require.NoError(t, err)

	ranks := rank.Vector{1: 0.5, 2: 0.3, 3: 0.2}
	cache := NewQueryCache(nil, time.Minute, nil, slog.Default())
	h, err := NewHandler(ix, ranks, analyzer, store.BuildMeta(docs),
		query.Params{CosineWeight: 0.7, RankWeight: 0.3}, 10, cache, m, slog.Default())
	require.NoError(t, err)
	return h
}

func doSearch(t *testing.T, h *Handler, target string) (*httptest.ResponseRecorder, SearchResponse) {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	rec := httptest.NewRecorder()
	h.Search(rec, req)

	var body SearchResponse
	if rec.Code == http.StatusOK {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	}
	return rec, body
}

func TestSearchEndpoint(t *testing.T) {
	h := newTestHandler(t)

	rec, body := doSearch(t, h, "/api/v1/search?q=dog")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "dog", body.Query)
	require.Equal(t, 2, body.Total)

	// Metadata is joined onto the hits.
	assert.Equal(t, "Dogs", findHit(t, body, 3).Title)
	assert.Equal(t, "Cats", findHit(t, body, 1).Title)
}

func TestSearchEndpointMissingQuery(t *testing.T) {
	h := newTestHandler(t)
	rec, _ := doSearch(t, h, "/api/v1/search")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSearchEndpointLimit(t *testing.T) {
	h := newTestHandler(t)

	rec, body := doSearch(t, h, "/api/v1/search?q=dog&k=1")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, body.Total)

	rec, _ = doSearch(t, h, "/api/v1/search?q=dog&k=0")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	rec, _ = doSearch(t, h, "/api/v1/search?q=dog&k=banana")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSearchEndpointWeightOverrides(t *testing.T) {
	h := newTestHandler(t)

	// Pure authority ordering puts document 1 first.
	rec, body := doSearch(t, h, "/api/v1/search?q=dog&wcos=0&wpr=1")
	assert.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, 2, body.Total)
	assert.Equal(t, corpus.DocID(1), body.Results[0].DocID)

	// Both weights zero is a configuration error for that request.
	rec, _ = doSearch(t, h, "/api/v1/search?q=dog&wcos=0&wpr=0")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, _ = doSearch(t, h, "/api/v1/search?q=dog&wcos=abc")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSearchEndpointNoResults(t *testing.T) {
	h := newTestHandler(t)
	rec, body := doSearch(t, h, "/api/v1/search?q=zebra")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 0, body.Total)
	assert.Empty(t, body.Results)
}

func TestSearchQueryResultTypeMetric(t *testing.T) {
	m := metrics.New()
	h := newTestHandlerWithMetrics(t, m)

	doSearch(t, h, "/api/v1/search?q=zebra")
	doSearch(t, h, "/api/v1/search?q=dog")

	assert.Equal(t, 1.0, testutil.ToFloat64(m.SearchQueriesTotal.WithLabelValues("zero_result")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.SearchQueriesTotal.WithLabelValues("hit")))
}

func findHit(t *testing.T, body SearchResponse, id corpus.DocID) SearchHit {
	t.Helper()
	for _, hit := range body.Results {
		if hit.DocID == id {
			return hit
		}
	}
	t.Fatalf("doc %d not in results", id)
	return SearchHit{}
}

func TestRequestIDMiddleware(t *testing.T) {
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	rec := httptest.NewRecorder()
	RequestID(inner).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))

	// A caller-supplied id is echoed back unchanged.
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-ID", "fixed-id")
	rec = httptest.NewRecorder()
	RequestID(inner).ServeHTTP(rec, req)
	assert.Equal(t, "fixed-id", rec.Header().Get("X-Request-ID"))
}

func TestTimeoutMiddleware(t *testing.T) {
	slow := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(5 * time.Second):
		}
	})
	rec := httptest.NewRecorder()
	Timeout(20*time.Millisecond)(slow).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusGatewayTimeout, rec.Code)

	fast := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	rec = httptest.NewRecorder()
	Timeout(time.Second)(fast).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestTimeoutMiddlewareSuppressesLateWrites(t *testing.T) {
	release := make(chan struct{})
	wrote := make(chan error, 1)
	slow := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
		_, err := w.Write([]byte("late body"))
		wrote <- err
	})

	rec := httptest.NewRecorder()
	Timeout(10*time.Millisecond)(slow).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusGatewayTimeout, rec.Code)

	// A handler that finishes after the deadline must not touch the
	// response the client already received.
	close(release)
	assert.ErrorIs(t, <-wrote, http.ErrHandlerTimeout)
	assert.JSONEq(t, `{"error":"request timeout"}`, rec.Body.String())
}

func TestQueryCacheKeyDeterminism(t *testing.T) {
	c := NewQueryCache(nil, time.Minute, nil, slog.Default())

	a := c.Key("cats and dogs", 10, 0.7, 0.3, true)
	b := c.Key("cats and dogs", 10, 0.7, 0.3, true)
	assert.Equal(t, a, b)

	assert.NotEqual(t, a, c.Key("cats and dogs", 11, 0.7, 0.3, true))
	assert.NotEqual(t, a, c.Key("cats and dogs", 10, 0.3, 0.7, true))
	assert.NotEqual(t, a, c.Key("cats and dogs", 10, 0.7, 0.3, false))
}

func TestQueryCacheComputeWithoutRedis(t *testing.T) {
	c := NewQueryCache(nil, time.Minute, nil, slog.Default())

	calls := 0
	payload, cached, err := c.GetOrCompute(context.Background(), "k", func() (any, error) {
		calls++
		return map[string]int{"n": 1}, nil
	})
	require.NoError(t, err)
	assert.False(t, cached)
	assert.JSONEq(t, `{"n":1}`, string(payload))
	assert.Equal(t, 1, calls)

	_, misses := c.Stats()
	assert.Equal(t, int64(1), misses)
}
