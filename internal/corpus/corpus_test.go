package corpus

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleCACM = `.I 1
.T
Preliminary Report on a System
for General Problem Solving
.A
Newell, A.
.W
A system for reasoning about
problems is described.
.X
2	5	1
3	5	1
2	6	1
.I 2
.T
Information Processing
.W
Processing of symbolic information.
.I 3
.T
Empty Abstract Entry
`

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestParseCACM(t *testing.T) {
	docs, adjacency, err := ParseCACM(writeFile(t, "cacm.all", sampleCACM))
	require.NoError(t, err)
	require.Len(t, docs, 3)

	byID := make(map[DocID]Document, len(docs))
	for _, d := range docs {
		byID[d.ID] = d
	}

	d1 := byID[1]
	assert.Equal(t, "Preliminary Report on a System for General Problem Solving", d1.Title)
	assert.Equal(t, "Newell, A.", d1.Author)
	assert.Equal(t, "A system for reasoning about problems is described.", d1.Text)

	// Only relation code 5 counts as a citation; the 6-coded line is
	// ignored and duplicates collapse.
	assert.Equal(t, []DocID{2, 3}, adjacency[1])
	assert.Empty(t, adjacency[2])

	// A document without .W still exists and counts toward the corpus.
	d3 := byID[3]
	assert.Equal(t, "Empty Abstract Entry", d3.Title)
	assert.Empty(t, d3.Text)
}

func TestParseCACMRegistersCitationTargets(t *testing.T) {
	content := ".I 1\n.W\ncites something unseen\n.X\n42\t5\t1\n"
	docs, adjacency, err := ParseCACM(writeFile(t, "cacm.all", content))
	require.NoError(t, err)

	// Document 42 never has its own record but must exist as a graph node.
	require.Len(t, docs, 2)
	assert.Equal(t, []DocID{42}, adjacency[1])
	assert.Contains(t, adjacency, DocID(42))
}

func TestParseCACMSkipsMalformedRecords(t *testing.T) {
	content := ".I 1\n.W\nfirst document\n.I \n.W\norphaned text\n.I abc\n.W\nanother orphan\n.I 2\n.W\nsecond document\n"
	docs, _, err := ParseCACM(writeFile(t, "cacm.all", content))
	require.NoError(t, err)

	// Records with a missing or non-numeric id are skipped; parsing
	// continues with the next record.
	require.Len(t, docs, 2)
	byID := make(map[DocID]Document, len(docs))
	for _, d := range docs {
		byID[d.ID] = d
	}
	assert.Equal(t, "first document", byID[1].Text)
	assert.Equal(t, "second document", byID[2].Text)
}

func TestParseCACMMissingFile(t *testing.T) {
	_, _, err := ParseCACM(filepath.Join(t.TempDir(), "nope"))
	assert.Error(t, err)
}

func TestDocumentFullText(t *testing.T) {
	d := Document{Title: "A Title", Author: "Someone", Text: "body text"}
	full := d.FullText()
	assert.Contains(t, full, "A Title")
	assert.Contains(t, full, "body text")
}

func TestReadJSONLSkipsMalformedLines(t *testing.T) {
	content := `{"doc_id":1,"url":"https://a.example/","title":"A","content":"alpha","links":["https://b.example/"]}
this is not json
{"doc_id":2,"url":"https://b.example/","title":"B","content":"beta","links":[]}
`
	records, err := ReadJSONL(writeFile(t, "corpus.jsonl", content))
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, DocID(1), records[0].DocID)
	assert.Equal(t, "beta", records[1].Content)
}

func TestResolveLinks(t *testing.T) {
	records := []CrawlRecord{
		{DocID: 1, URL: "https://a.example/", Links: []string{
			"https://b.example/",
			"https://b.example/",          // duplicate
			"https://a.example/",          // self
			"https://outside.example/far", // not in corpus
		}},
		{DocID: 2, URL: "https://b.example/", Links: []string{"https://a.example/"}},
	}

	docs := ResolveLinks(records)
	require.Len(t, docs, 2)
	assert.Equal(t, []DocID{2}, docs[0].Links)
	assert.Equal(t, []DocID{1}, docs[1].Links)
}

func TestJSONLWriterRoundtrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.jsonl")
	w, err := NewJSONLWriter(path)
	require.NoError(t, err)

	records := []CrawlRecord{
		{DocID: 1, URL: "https://a.example/", Title: "A", Content: "alpha", Links: []string{"https://b.example/"}},
		{DocID: 2, URL: "https://b.example/", Title: "B", Content: "beta"},
	}
	for _, rec := range records {
		require.NoError(t, w.Write(rec))
	}
	require.NoError(t, w.Close())

	loaded, err := ReadJSONL(path)
	require.NoError(t, err)
	assert.Equal(t, records, loaded)
}
