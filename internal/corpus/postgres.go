package corpus

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/citeseek/citeseek/pkg/postgres"
)

// Store persists crawl records in PostgreSQL as an alternative to JSONL
// files. The schema is two tables: documents (doc_id, url, title, content)
// and links (source_id, target_url).
type Store struct {
	client *postgres.Client
}

// NewStore wraps an existing postgres client and creates the schema if
// missing.
func NewStore(ctx context.Context, client *postgres.Client) (*Store, error) {
	const schema = `
CREATE TABLE IF NOT EXISTS documents (
	doc_id  BIGINT PRIMARY KEY,
	url     TEXT NOT NULL DEFAULT '',
	title   TEXT NOT NULL DEFAULT '',
	content TEXT NOT NULL DEFAULT ''
);
CREATE TABLE IF NOT EXISTS links (
	source_id  BIGINT NOT NULL REFERENCES documents (doc_id),
	target_url TEXT NOT NULL,
	PRIMARY KEY (source_id, target_url)
);`
	if _, err := client.DB.ExecContext(ctx, schema); err != nil {
		return nil, fmt.Errorf("creating corpus schema: %w", err)
	}
	return &Store{client: client}, nil
}

// SaveRecord upserts one crawl record and its outgoing links inside a
// transaction.
func (s *Store) SaveRecord(ctx context.Context, rec CrawlRecord) error {
	return s.client.InTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO documents (doc_id, url, title, content)
			 VALUES ($1, $2, $3, $4)
			 ON CONFLICT (doc_id) DO UPDATE
			 SET url = EXCLUDED.url, title = EXCLUDED.title, content = EXCLUDED.content`,
			int64(rec.DocID), rec.URL, rec.Title, rec.Content,
		)
		if err != nil {
			return fmt.Errorf("upserting document %d: %w", rec.DocID, err)
		}
		if _, err := tx.ExecContext(ctx,
			`DELETE FROM links WHERE source_id = $1`, int64(rec.DocID)); err != nil {
			return fmt.Errorf("clearing links for document %d: %w", rec.DocID, err)
		}
		for _, link := range rec.Links {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO links (source_id, target_url) VALUES ($1, $2)
				 ON CONFLICT DO NOTHING`,
				int64(rec.DocID), link,
			); err != nil {
				return fmt.Errorf("inserting link for document %d: %w", rec.DocID, err)
			}
		}
		return nil
	})
}

// LoadRecords reads the whole corpus back in doc-id order.
func (s *Store) LoadRecords(ctx context.Context) ([]CrawlRecord, error) {
	rows, err := s.client.DB.QueryContext(ctx,
		`SELECT doc_id, url, title, content FROM documents ORDER BY doc_id`)
	if err != nil {
		return nil, fmt.Errorf("querying documents: %w", err)
	}
	defer rows.Close()

	var records []CrawlRecord
	byID := make(map[DocID]int)
	for rows.Next() {
		var id int64
		var rec CrawlRecord
		if err := rows.Scan(&id, &rec.URL, &rec.Title, &rec.Content); err != nil {
			return nil, fmt.Errorf("scanning document row: %w", err)
		}
		rec.DocID = DocID(id)
		byID[rec.DocID] = len(records)
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating document rows: %w", err)
	}

	linkRows, err := s.client.DB.QueryContext(ctx,
		`SELECT source_id, target_url FROM links ORDER BY source_id, target_url`)
	if err != nil {
		return nil, fmt.Errorf("querying links: %w", err)
	}
	defer linkRows.Close()
	for linkRows.Next() {
		var source int64
		var target string
		if err := linkRows.Scan(&source, &target); err != nil {
			return nil, fmt.Errorf("scanning link row: %w", err)
		}
		if idx, ok := byID[DocID(source)]; ok {
			records[idx].Links = append(records[idx].Links, target)
		}
	}
	if err := linkRows.Err(); err != nil {
		return nil, fmt.Errorf("iterating link rows: %w", err)
	}
	return records, nil
}
