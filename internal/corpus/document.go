// Package corpus defines the document model and the corpus sources the
// indexing pipeline reads from: CACM collection files, JSONL crawl output,
// and an optional PostgreSQL document store.
package corpus

// DocID identifies a retrievable document. IDs are assigned once at
// ingestion and are immutable thereafter.
type DocID uint32

// Document is one retrievable unit of the collection.
type Document struct {
	ID     DocID   `json:"doc_id"`
	URL    string  `json:"url,omitempty"`
	Title  string  `json:"title"`
	Author string  `json:"author,omitempty"`
	Text   string  `json:"content"`
	Links  []DocID `json:"links,omitempty"`
}

// FullText returns the concatenation of the searchable fields.
func (d Document) FullText() string {
	if d.Author == "" {
		return d.Title + " " + d.Text
	}
	return d.Title + " " + d.Author + " " + d.Text
}
