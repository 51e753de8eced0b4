package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"unicode/utf8"

	"github.com/citeseek/citeseek/internal/corpus"
	"github.com/citeseek/citeseek/internal/index"
	"github.com/citeseek/citeseek/internal/rank"
	"github.com/citeseek/citeseek/pkg/errors"
)

// Artifact file names within the data directory.
const (
	NormsName = "norms.json"
	RankName  = "pagerank.json"
	MetaName  = "documents.json"
	LinksName = "links.json"
)

// RankArtifact is the persisted output of a PageRank run: the raw vector
// (sums to 1), the optional min-max-normalized vector, and the run's
// termination facts.
type RankArtifact struct {
	Damping    float64     `json:"damping"`
	Iterations int         `json:"iterations"`
	Delta      float64     `json:"delta"`
	Converged  bool        `json:"converged"`
	Raw        rank.Vector `json:"raw"`
	Normalized rank.Vector `json:"normalized,omitempty"`
}

// DocMeta is the per-document presentation metadata kept beside the index
// for result rendering.
type DocMeta struct {
	DocID   corpus.DocID `json:"doc_id"`
	URL     string       `json:"url,omitempty"`
	Title   string       `json:"title"`
	Author  string       `json:"author,omitempty"`
	Snippet string       `json:"snippet,omitempty"`
}

// SaveIndex writes the segment plus the norms file.
func SaveIndex(dir string, ix *index.Index) error {
	if _, err := WriteSegment(dir, ix); err != nil {
		return err
	}
	return writeJSON(filepath.Join(dir, NormsName), ix.Norms)
}

// LoadIndex reads the segment and norms back into a fully materialised,
// read-only Index.
func LoadIndex(dir string) (*index.Index, error) {
	reader, err := OpenSegment(dir)
	if err != nil {
		return nil, err
	}
	defer reader.Close()

	dict, postings, err := reader.ReadAll()
	if err != nil {
		return nil, err
	}
	var norms map[corpus.DocID]float64
	if err := readJSON(filepath.Join(dir, NormsName), &norms); err != nil {
		return nil, err
	}
	return &index.Index{
		DocCount: reader.DocCount(),
		Dict:     dict,
		Postings: postings,
		Norms:    norms,
	}, nil
}

// SaveRank persists a PageRank result.
func SaveRank(dir string, artifact RankArtifact) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating artifact directory: %w", err)
	}
	return writeJSON(filepath.Join(dir, RankName), artifact)
}

// LoadRank reads a persisted PageRank result.
func LoadRank(dir string) (RankArtifact, error) {
	var artifact RankArtifact
	if err := readJSON(filepath.Join(dir, RankName), &artifact); err != nil {
		return RankArtifact{}, err
	}
	return artifact, nil
}

// SaveLinks persists the document adjacency so the rank computation can run
// without re-parsing the corpus.
func SaveLinks(dir string, adjacency map[corpus.DocID][]corpus.DocID) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating artifact directory: %w", err)
	}
	return writeJSON(filepath.Join(dir, LinksName), adjacency)
}

// LoadLinks reads the persisted document adjacency.
func LoadLinks(dir string) (map[corpus.DocID][]corpus.DocID, error) {
	var adjacency map[corpus.DocID][]corpus.DocID
	if err := readJSON(filepath.Join(dir, LinksName), &adjacency); err != nil {
		return nil, err
	}
	return adjacency, nil
}

// SaveMeta persists per-document presentation metadata.
func SaveMeta(dir string, meta map[corpus.DocID]DocMeta) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating artifact directory: %w", err)
	}
	return writeJSON(filepath.Join(dir, MetaName), meta)
}

// LoadMeta reads per-document presentation metadata.
func LoadMeta(dir string) (map[corpus.DocID]DocMeta, error) {
	var meta map[corpus.DocID]DocMeta
	if err := readJSON(filepath.Join(dir, MetaName), &meta); err != nil {
		return nil, err
	}
	return meta, nil
}

// BuildMeta derives presentation metadata from a corpus.
func BuildMeta(docs []corpus.Document) map[corpus.DocID]DocMeta {
	meta := make(map[corpus.DocID]DocMeta, len(docs))
	for _, doc := range docs {
		snippet := doc.Text
		if len(snippet) > 240 {
			cut := 240
			for cut > 0 && !utf8.RuneStart(snippet[cut]) {
				cut--
			}
			snippet = snippet[:cut]
		}
		meta[doc.ID] = DocMeta{
			DocID:   doc.ID,
			URL:     doc.URL,
			Title:   doc.Title,
			Author:  doc.Author,
			Snippet: snippet,
		}
	}
	return meta
}

// writeJSON marshals v and writes it atomically via a temp file rename.
func writeJSON(path string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshaling %s: %w", filepath.Base(path), err)
	}
	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", tmpPath, err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("renaming %s: %w", tmpPath, err)
	}
	return nil
}

func readJSON(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%w: %s", errors.ErrArtifactMissing, path)
		}
		return fmt.Errorf("reading %s: %w", path, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("%w: parsing %s: %v", errors.ErrCorruptArtifact, path, err)
	}
	return nil
}
