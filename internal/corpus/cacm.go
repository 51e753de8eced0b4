package corpus

import (
	"bufio"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"strconv"
	"strings"
)

// CitationRelation is the .X relation code that counts as a citation link.
// The CACM collection encodes several relation types; code 5 is the
// bibliographic reference.
const CitationRelation = 5

// ParseCACM reads a CACM-format collection file (.I / .T / .A / .W / .X
// records) and returns the documents plus the citation adjacency. Both
// endpoints of every citation edge are registered, so documents that only
// appear as citation targets still exist in the link graph. Unparseable
// citation lines are skipped; a collection-scale build never aborts for one
// bad record.
func ParseCACM(path string) ([]Document, map[DocID][]DocID, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("opening collection %s: %w", path, err)
	}
	defer f.Close()

	logger := slog.Default().With("component", "cacm-parser")

	docs := make(map[DocID]*Document)
	order := make([]DocID, 0, 4096)
	links := make(map[DocID]map[DocID]struct{})

	register := func(id DocID) {
		if _, ok := docs[id]; !ok {
			docs[id] = &Document{ID: id}
			order = append(order, id)
		}
		if _, ok := links[id]; !ok {
			links[id] = make(map[DocID]struct{})
		}
	}

	var current DocID
	var haveDoc bool
	field := ""
	skipped := 0

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\n")
		switch {
		case strings.HasPrefix(line, ".I "):
			parts := strings.Fields(line)
			if len(parts) < 2 {
				logger.Warn("skipping record with bad id", "line", line)
				skipped++
				haveDoc = false
				field = ""
				continue
			}
			id, err := strconv.ParseUint(parts[1], 10, 32)
			if err != nil {
				logger.Warn("skipping record with bad id", "line", line)
				skipped++
				haveDoc = false
				field = ""
				continue
			}
			current = DocID(id)
			haveDoc = true
			field = ""
			register(current)
		case strings.HasPrefix(line, ".T"):
			field = "title"
		case strings.HasPrefix(line, ".A"):
			field = "author"
		case strings.HasPrefix(line, ".W"):
			field = "abstract"
		case strings.HasPrefix(line, ".X"):
			field = "citations"
		case strings.HasPrefix(line, "."):
			field = ""
		default:
			if !haveDoc {
				continue
			}
			switch field {
			case "title":
				docs[current].Title += " " + line
			case "author":
				docs[current].Author += " " + line
			case "abstract":
				docs[current].Text += " " + line
			case "citations":
				target, relation, ok := parseCitation(line)
				if !ok {
					continue
				}
				if relation != CitationRelation {
					continue
				}
				register(target)
				links[current][target] = struct{}{}
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, nil, fmt.Errorf("reading collection %s: %w", path, err)
	}

	out := make([]Document, 0, len(order))
	adjacency := make(map[DocID][]DocID, len(order))
	for _, id := range order {
		d := docs[id]
		d.Title = strings.TrimSpace(d.Title)
		d.Author = strings.TrimSpace(d.Author)
		d.Text = strings.TrimSpace(d.Text)
		targets := make([]DocID, 0, len(links[id]))
		for t := range links[id] {
			targets = append(targets, t)
		}
		sort.Slice(targets, func(i, j int) bool { return targets[i] < targets[j] })
		d.Links = targets
		out = append(out, *d)
		adjacency[id] = targets
	}
	if skipped > 0 {
		logger.Warn("collection parsed with skipped records", "skipped", skipped)
	}
	return out, adjacency, nil
}

// parseCitation extracts the target id and relation code from a CACM .X
// triplet line ("target relation source").
func parseCitation(line string) (DocID, int, bool) {
	parts := strings.Fields(strings.TrimSpace(line))
	if len(parts) < 3 {
		return 0, 0, false
	}
	target, err := strconv.ParseUint(parts[0], 10, 32)
	if err != nil {
		return 0, 0, false
	}
	relation, err := strconv.Atoi(parts[1])
	if err != nil {
		return 0, 0, false
	}
	return DocID(target), relation, true
}
