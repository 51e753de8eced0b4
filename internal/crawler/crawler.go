// Package crawler implements a polite breadth-first web crawler: robots.txt
// compliance, per-fetch delay, domain restriction, and duplicate
// suppression. It assigns sequential document ids and emits crawl records to
// a pluggable sink (JSONL file, Kafka topic, or PostgreSQL store).
package crawler

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/temoto/robotstxt"
	"golang.org/x/net/html"

	"github.com/citeseek/citeseek/internal/corpus"
	"github.com/citeseek/citeseek/pkg/config"
	"github.com/citeseek/citeseek/pkg/metrics"
)

// Sink receives each stored crawl record.
type Sink func(ctx context.Context, rec corpus.CrawlRecord) error

type frontierEntry struct {
	url    string
	depth  int
	parent string
}

// Crawler performs one breadth-first crawl run.
type Crawler struct {
	cfg     config.CrawlerConfig
	client  *http.Client
	logger  *slog.Logger
	metrics *metrics.Metrics

	robots     map[string]*robotstxt.RobotsData
	visited    map[string]struct{}
	discovered map[string]struct{}
	frontier   []frontierEntry
	nextID     corpus.DocID
}

// New creates a Crawler seeded from the configuration. The metrics argument
// may be nil.
func New(cfg config.CrawlerConfig, m *metrics.Metrics) *Crawler {
	c := &Crawler{
		cfg: cfg,
		client: &http.Client{
			Timeout: 15 * time.Second,
		},
		logger:     slog.Default().With("component", "crawler"),
		metrics:    m,
		robots:     make(map[string]*robotstxt.RobotsData),
		visited:    make(map[string]struct{}),
		discovered: make(map[string]struct{}),
	}
	for _, seed := range cfg.Seeds {
		c.frontier = append(c.frontier, frontierEntry{url: seed})
		c.discovered[seed] = struct{}{}
	}
	return c
}

// Run crawls until the frontier empties, the page budget is reached, or ctx
// is cancelled. It returns the number of stored documents. Transient fetch
// failures skip the page and keep crawling.
func (c *Crawler) Run(ctx context.Context, sink Sink) (int, error) {
	stored := 0
	for len(c.frontier) > 0 && stored < c.cfg.MaxPages {
		if err := ctx.Err(); err != nil {
			return stored, err
		}
		entry := c.frontier[0]
		c.frontier = c.frontier[1:]

		parsed, err := url.Parse(entry.url)
		if err != nil {
			continue
		}
		normalized, ok := NormalizeURL(parsed)
		if !ok {
			continue
		}
		if _, seen := c.visited[normalized]; seen {
			continue
		}
		if c.cfg.AllowedDomain != "" && parsed.Host != c.cfg.AllowedDomain {
			continue
		}
		if !c.canFetch(ctx, parsed) {
			c.count("skipped")
			continue
		}
		c.visited[normalized] = struct{}{}

		start := time.Now()
		page, err := c.fetch(ctx, normalized)
		if c.metrics != nil {
			c.metrics.CrawlFetchDuration.Observe(time.Since(start).Seconds())
		}
		if err != nil {
			c.logger.Warn("fetch failed", "url", normalized, "error", err)
			c.count("error")
			continue
		}

		c.nextID++
		rec := corpus.CrawlRecord{
			DocID:     c.nextID,
			URL:       normalized,
			Title:     page.Title,
			ParentURL: entry.parent,
			Content:   page.Text,
			Links:     page.Links,
		}
		if err := sink(ctx, rec); err != nil {
			return stored, fmt.Errorf("storing crawl record %d: %w", rec.DocID, err)
		}
		stored++
		c.count("stored")
		c.logger.Info("page stored",
			"doc_id", rec.DocID,
			"url", normalized,
			"depth", entry.depth,
			"links", len(page.Links),
		)

		if entry.depth < c.cfg.MaxDepth {
			for _, link := range page.Links {
				if _, dup := c.discovered[link]; dup {
					continue
				}
				c.discovered[link] = struct{}{}
				c.frontier = append(c.frontier, frontierEntry{
					url:    link,
					depth:  entry.depth + 1,
					parent: normalized,
				})
			}
		}

		if c.cfg.Delay > 0 {
			select {
			case <-ctx.Done():
				return stored, ctx.Err()
			case <-time.After(c.cfg.Delay):
			}
		}
	}
	c.logger.Info("crawl finished", "stored", stored, "frontier", len(c.frontier))
	return stored, nil
}

// fetch downloads and parses one HTML page.
func (c *Crawler) fetch(ctx context.Context, pageURL string) (Page, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return Page{}, fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("User-Agent", c.cfg.UserAgent)

	resp, err := c.client.Do(req)
	if err != nil {
		return Page{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Page{}, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); !strings.Contains(ct, "text/html") {
		return Page{}, fmt.Errorf("unsupported content type %q", ct)
	}

	root, err := html.Parse(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return Page{}, fmt.Errorf("parsing html: %w", err)
	}
	base, err := url.Parse(pageURL)
	if err != nil {
		return Page{}, fmt.Errorf("parsing page url: %w", err)
	}
	return ExtractPage(root, base), nil
}

// canFetch consults robots.txt, fetching and caching it per host. Hosts
// whose robots.txt cannot be retrieved are treated as allowing everything.
func (c *Crawler) canFetch(ctx context.Context, u *url.URL) bool {
	data, ok := c.robots[u.Host]
	if !ok {
		data = c.fetchRobots(ctx, u)
		c.robots[u.Host] = data
	}
	if data == nil {
		return true
	}
	return data.TestAgent(u.Path, c.cfg.UserAgent)
}

func (c *Crawler) fetchRobots(ctx context.Context, u *url.URL) *robotstxt.RobotsData {
	robotsURL := fmt.Sprintf("%s://%s/robots.txt", u.Scheme, u.Host)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, robotsURL, nil)
	if err != nil {
		return nil
	}
	req.Header.Set("User-Agent", c.cfg.UserAgent)
	resp, err := c.client.Do(req)
	if err != nil {
		c.logger.Debug("robots.txt unavailable", "host", u.Host, "error", err)
		return nil
	}
	defer resp.Body.Close()
	data, err := robotstxt.FromResponse(resp)
	if err != nil {
		c.logger.Debug("robots.txt unparseable", "host", u.Host, "error", err)
		return nil
	}
	return data
}

func (c *Crawler) count(outcome string) {
	if c.metrics != nil {
		c.metrics.PagesCrawledTotal.WithLabelValues(outcome).Inc()
	}
}
