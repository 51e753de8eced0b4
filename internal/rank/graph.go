// Package rank computes a link-graph authority score per document via
// damped power iteration over the citation/hyperlink structure.
package rank

import (
	"sort"

	"github.com/RoaringBitmap/roaring"

	"github.com/citeseek/citeseek/internal/corpus"
)

// Graph is the adjacency relation over document ids. Every document appears
// as a node even with no outgoing edges (a dangling node). Outlink sets are
// roaring bitmaps, which collapse duplicate targets for free.
type Graph struct {
	out map[corpus.DocID]*roaring.Bitmap
}

// NewGraph creates an empty Graph.
func NewGraph() *Graph {
	return &Graph{out: make(map[corpus.DocID]*roaring.Bitmap)}
}

// AddNode registers a document id with no edges yet.
func (g *Graph) AddNode(id corpus.DocID) {
	if _, ok := g.out[id]; !ok {
		g.out[id] = roaring.New()
	}
}

// AddEdge registers a link from one document to another. Both endpoints are
// added as nodes; self-loops are collapsed.
func (g *Graph) AddEdge(from, to corpus.DocID) {
	g.AddNode(from)
	g.AddNode(to)
	if from == to {
		return
	}
	g.out[from].Add(uint32(to))
}

// Nodes returns all document ids in ascending order.
func (g *Graph) Nodes() []corpus.DocID {
	ids := make([]corpus.DocID, 0, len(g.out))
	for id := range g.out {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Len returns the node count.
func (g *Graph) Len() int {
	return len(g.out)
}

// OutDegree returns the number of distinct outgoing edges for id.
func (g *Graph) OutDegree(id corpus.DocID) int {
	if bm, ok := g.out[id]; ok {
		return int(bm.GetCardinality())
	}
	return 0
}

// EachTarget calls fn for every outgoing edge of id, in ascending target
// order.
func (g *Graph) EachTarget(id corpus.DocID, fn func(target corpus.DocID)) {
	bm, ok := g.out[id]
	if !ok {
		return
	}
	it := bm.Iterator()
	for it.HasNext() {
		fn(corpus.DocID(it.Next()))
	}
}

// FromDocuments builds the link graph from a corpus, using each document's
// resolved outgoing links.
func FromDocuments(docs []corpus.Document) *Graph {
	g := NewGraph()
	for _, doc := range docs {
		g.AddNode(doc.ID)
		for _, target := range doc.Links {
			g.AddEdge(doc.ID, target)
		}
	}
	return g
}

// FromAdjacency builds the link graph from an explicit adjacency relation,
// as produced by the CACM citation parser.
func FromAdjacency(adj map[corpus.DocID][]corpus.DocID) *Graph {
	g := NewGraph()
	for id, targets := range adj {
		g.AddNode(id)
		for _, target := range targets {
			g.AddEdge(id, target)
		}
	}
	return g
}
