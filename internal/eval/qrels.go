package eval

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/citeseek/citeseek/internal/corpus"
)

// Query is one evaluation query.
type Query struct {
	ID   int
	Text string
}

// ParseQueries reads a CACM-style query file (.I id, .W free text) into
// ordered queries.
func ParseQueries(path string) ([]Query, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening query file %s: %w", path, err)
	}
	defer f.Close()

	var queries []Query
	var current *Query
	collecting := false

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\n")
		switch {
		case strings.HasPrefix(line, ".I"):
			if current != nil {
				current.Text = strings.TrimSpace(current.Text)
				queries = append(queries, *current)
			}
			current = nil
			parts := strings.Fields(line)
			if len(parts) > 1 {
				if id, err := strconv.Atoi(parts[1]); err == nil {
					current = &Query{ID: id}
				}
			}
			collecting = false
		case strings.HasPrefix(line, ".W"):
			collecting = true
		case strings.HasPrefix(line, "."):
			collecting = false
		default:
			if collecting && current != nil {
				current.Text += " " + strings.TrimSpace(line)
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading query file %s: %w", path, err)
	}
	if current != nil {
		current.Text = strings.TrimSpace(current.Text)
		queries = append(queries, *current)
	}
	return queries, nil
}

// ParseQrels reads a qrels file (query id, relevant doc id per line) into a
// mapping of query id to ordered relevant document ids. Malformed lines are
// skipped.
func ParseQrels(path string) (map[int][]corpus.DocID, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening qrels file %s: %w", path, err)
	}
	defer f.Close()

	qrels := make(map[int][]corpus.DocID)
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		parts := strings.Fields(line)
		if len(parts) < 2 {
			continue
		}
		qid, err := strconv.Atoi(parts[0])
		if err != nil {
			continue
		}
		docID, err := strconv.ParseUint(parts[1], 10, 32)
		if err != nil {
			continue
		}
		qrels[qid] = append(qrels[qid], corpus.DocID(docID))
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading qrels file %s: %w", path, err)
	}
	return qrels, nil
}
