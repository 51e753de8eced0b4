package corpus

import (
	"bufio"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
)

// CrawlRecord is the wire shape of one crawled page, as written by the
// crawler (and published to Kafka when streaming ingestion is enabled).
// Links are URLs at crawl time; ResolveLinks rewrites them to document ids
// once the whole corpus is known.
type CrawlRecord struct {
	DocID     DocID    `json:"doc_id"`
	URL       string   `json:"url"`
	Title     string   `json:"title"`
	ParentURL string   `json:"parent_url,omitempty"`
	Content   string   `json:"content"`
	Links     []string `json:"links"`
}

// ReadJSONL loads crawl records from a JSONL file. Malformed lines are
// skipped and counted, never fatal.
func ReadJSONL(path string) ([]CrawlRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening corpus %s: %w", path, err)
	}
	defer f.Close()

	var records []CrawlRecord
	skipped := 0
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var rec CrawlRecord
		if err := json.Unmarshal(line, &rec); err != nil {
			skipped++
			continue
		}
		records = append(records, rec)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading corpus %s: %w", path, err)
	}
	if skipped > 0 {
		slog.Warn("corpus loaded with malformed records skipped",
			"path", path, "skipped", skipped, "loaded", len(records))
	}
	return records, nil
}

// ResolveLinks converts crawl records into documents, rewriting outgoing
// link URLs to document ids. Links to pages outside the corpus are dropped;
// self-links are collapsed.
func ResolveLinks(records []CrawlRecord) []Document {
	urlToID := make(map[string]DocID, len(records))
	for _, rec := range records {
		if rec.URL != "" {
			urlToID[rec.URL] = rec.DocID
		}
	}

	docs := make([]Document, 0, len(records))
	for _, rec := range records {
		doc := Document{
			ID:    rec.DocID,
			URL:   rec.URL,
			Title: rec.Title,
			Text:  rec.Content,
		}
		seen := make(map[DocID]struct{})
		for _, link := range rec.Links {
			target, ok := urlToID[link]
			if !ok || target == rec.DocID {
				continue
			}
			if _, dup := seen[target]; dup {
				continue
			}
			seen[target] = struct{}{}
			doc.Links = append(doc.Links, target)
		}
		docs = append(docs, doc)
	}
	return docs
}

// JSONLWriter streams crawl records to a JSONL file, one record per line.
type JSONLWriter struct {
	f   *os.File
	buf *bufio.Writer
	enc *json.Encoder
}

// NewJSONLWriter creates (or truncates) the output file.
func NewJSONLWriter(path string) (*JSONLWriter, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("creating corpus file %s: %w", path, err)
	}
	buf := bufio.NewWriter(f)
	return &JSONLWriter{f: f, buf: buf, enc: json.NewEncoder(buf)}, nil
}

// Write appends one record.
func (w *JSONLWriter) Write(rec CrawlRecord) error {
	if err := w.enc.Encode(rec); err != nil {
		return fmt.Errorf("encoding crawl record %d: %w", rec.DocID, err)
	}
	return nil
}

// Close flushes and closes the file.
func (w *JSONLWriter) Close() error {
	if err := w.buf.Flush(); err != nil {
		w.f.Close()
		return fmt.Errorf("flushing corpus file: %w", err)
	}
	return w.f.Close()
}
