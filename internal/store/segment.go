// Package store persists and reloads the build artifacts: a binary
// dictionary+postings segment, JSON document norms, the rank vector file,
// and document metadata. Artifacts are written whole to a temp file and
// renamed into place, so a reader never observes a partial write; re-indexing
// replaces files and re-opens rather than mutating anything live.
package store

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"hash/crc32"
	"os"
	"path/filepath"
	"sort"

	"github.com/citeseek/citeseek/internal/index"
	"github.com/citeseek/citeseek/pkg/errors"
)

// SegmentName is the fixed on-disk name of the dictionary+postings segment.
const SegmentName = "index.csx"

const (
	segmentMagic   uint32 = 0x43535831 // "CSX1"
	segmentVersion uint32 = 1
	headerSize            = 48
	footerSize            = 16
)

// segmentHeader is the fixed-size header at the start of every segment. The
// format carries no timestamps: rebuilding from an unchanged corpus must
// reproduce the file byte for byte.
type segmentHeader struct {
	Magic      uint32
	Version    uint32
	TermCount  uint32
	DocCount   uint32
	PostOffset int64
	PostSize   int64
	DictOffset int64
	DictSize   int64
}

// dictEntry maps a term to its df, idf, and postings location within the
// segment.
type dictEntry struct {
	Term       string  `json:"t"`
	DF         int     `json:"d"`
	IDF        float64 `json:"i"`
	PostOffset int64   `json:"o"`
	PostLen    int     `json:"l"`
}

// WriteSegment serialises the dictionary and champion lists into
// dir/index.csx, writing a .tmp file first and renaming on success.
func WriteSegment(dir string, ix *index.Index) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("creating artifact directory: %w", err)
	}
	finalPath := filepath.Join(dir, SegmentName)
	tmpPath := finalPath + ".tmp"

	f, err := os.Create(tmpPath)
	if err != nil {
		return "", fmt.Errorf("creating temp segment file: %w", err)
	}
	defer f.Close()

	headerBytes := make([]byte, headerSize)
	if _, err := f.Write(headerBytes); err != nil {
		return "", fmt.Errorf("writing header placeholder: %w", err)
	}

	terms := ix.Terms()
	postStart := int64(headerSize)
	offset := postStart
	dict := make([]dictEntry, 0, len(terms))
	postCRC := crc32.NewIEEE()
	for _, term := range terms {
		entry := ix.Dict[term]
		data, err := json.Marshal(ix.Postings[term])
		if err != nil {
			return "", fmt.Errorf("marshaling postings for term %q: %w", term, err)
		}
		if _, err := f.Write(data); err != nil {
			return "", fmt.Errorf("writing postings for term %q: %w", term, err)
		}
		postCRC.Write(data)
		dict = append(dict, dictEntry{
			Term:       term,
			DF:         entry.DF,
			IDF:        entry.IDF,
			PostOffset: offset - postStart,
			PostLen:    len(data),
		})
		offset += int64(len(data))
	}
	postSize := offset - postStart

	dictData, err := json.Marshal(dict)
	if err != nil {
		return "", fmt.Errorf("marshaling dictionary: %w", err)
	}
	if _, err := f.Write(dictData); err != nil {
		return "", fmt.Errorf("writing dictionary: %w", err)
	}

	footer := make([]byte, footerSize)
	binary.LittleEndian.PutUint32(footer[0:4], crc32.ChecksumIEEE(dictData))
	binary.LittleEndian.PutUint32(footer[4:8], postCRC.Sum32())
	if _, err := f.Write(footer); err != nil {
		return "", fmt.Errorf("writing footer: %w", err)
	}

	header := segmentHeader{
		Magic:      segmentMagic,
		Version:    segmentVersion,
		TermCount:  uint32(len(terms)),
		DocCount:   uint32(ix.DocCount),
		PostOffset: postStart,
		PostSize:   postSize,
		DictOffset: postStart + postSize,
		DictSize:   int64(len(dictData)),
	}
	binary.LittleEndian.PutUint32(headerBytes[0:4], header.Magic)
	binary.LittleEndian.PutUint32(headerBytes[4:8], header.Version)
	binary.LittleEndian.PutUint32(headerBytes[8:12], header.TermCount)
	binary.LittleEndian.PutUint32(headerBytes[12:16], header.DocCount)
	binary.LittleEndian.PutUint64(headerBytes[16:24], uint64(header.PostOffset))
	binary.LittleEndian.PutUint64(headerBytes[24:32], uint64(header.PostSize))
	binary.LittleEndian.PutUint64(headerBytes[32:40], uint64(header.DictOffset))
	binary.LittleEndian.PutUint64(headerBytes[40:48], uint64(header.DictSize))
	if _, err := f.WriteAt(headerBytes, 0); err != nil {
		return "", fmt.Errorf("updating header: %w", err)
	}
	if err := f.Sync(); err != nil {
		return "", fmt.Errorf("syncing segment file: %w", err)
	}
	f.Close()
	if err := os.Rename(tmpPath, finalPath); err != nil {
		return "", fmt.Errorf("renaming segment file: %w", err)
	}
	return finalPath, nil
}

// SegmentReader reads a segment lazily: the dictionary is held in memory,
// postings are fetched per term.
type SegmentReader struct {
	file   *os.File
	header segmentHeader
	dict   []dictEntry
}

// OpenSegment opens and validates dir/index.csx.
func OpenSegment(dir string) (*SegmentReader, error) {
	path := filepath.Join(dir, SegmentName)
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", errors.ErrArtifactMissing, path)
		}
		return nil, fmt.Errorf("opening segment file: %w", err)
	}
	headerBytes := make([]byte, headerSize)
	if _, err := f.ReadAt(headerBytes, 0); err != nil {
		f.Close()
		return nil, fmt.Errorf("%w: reading header: %v", errors.ErrCorruptArtifact, err)
	}
	header := segmentHeader{
		Magic:      binary.LittleEndian.Uint32(headerBytes[0:4]),
		Version:    binary.LittleEndian.Uint32(headerBytes[4:8]),
		TermCount:  binary.LittleEndian.Uint32(headerBytes[8:12]),
		DocCount:   binary.LittleEndian.Uint32(headerBytes[12:16]),
		PostOffset: int64(binary.LittleEndian.Uint64(headerBytes[16:24])),
		PostSize:   int64(binary.LittleEndian.Uint64(headerBytes[24:32])),
		DictOffset: int64(binary.LittleEndian.Uint64(headerBytes[32:40])),
		DictSize:   int64(binary.LittleEndian.Uint64(headerBytes[40:48])),
	}
	if header.Magic != segmentMagic {
		f.Close()
		return nil, fmt.Errorf("%w: bad magic bytes %x", errors.ErrCorruptArtifact, header.Magic)
	}
	if header.Version != segmentVersion {
		f.Close()
		return nil, fmt.Errorf("%w: unsupported segment version %d", errors.ErrCorruptArtifact, header.Version)
	}

	dictBytes := make([]byte, header.DictSize)
	if _, err := f.ReadAt(dictBytes, header.DictOffset); err != nil {
		f.Close()
		return nil, fmt.Errorf("%w: reading dictionary: %v", errors.ErrCorruptArtifact, err)
	}
	footer := make([]byte, footerSize)
	if _, err := f.ReadAt(footer, header.DictOffset+header.DictSize); err != nil {
		f.Close()
		return nil, fmt.Errorf("%w: reading footer: %v", errors.ErrCorruptArtifact, err)
	}
	if crc32.ChecksumIEEE(dictBytes) != binary.LittleEndian.Uint32(footer[0:4]) {
		f.Close()
		return nil, fmt.Errorf("%w: dictionary checksum mismatch", errors.ErrCorruptArtifact)
	}

	var dict []dictEntry
	if err := json.Unmarshal(dictBytes, &dict); err != nil {
		f.Close()
		return nil, fmt.Errorf("%w: parsing dictionary: %v", errors.ErrCorruptArtifact, err)
	}
	return &SegmentReader{file: f, header: header, dict: dict}, nil
}

// DocCount returns the document count frozen at build time.
func (r *SegmentReader) DocCount() int {
	return int(r.header.DocCount)
}

// TermCount returns the vocabulary size.
func (r *SegmentReader) TermCount() int {
	return len(r.dict)
}

// Lookup returns the dictionary entry for a term, or false if absent.
func (r *SegmentReader) Lookup(term string) (index.DictEntry, bool) {
	i := sort.Search(len(r.dict), func(i int) bool { return r.dict[i].Term >= term })
	if i >= len(r.dict) || r.dict[i].Term != term {
		return index.DictEntry{}, false
	}
	e := r.dict[i]
	return index.DictEntry{Term: e.Term, DF: e.DF, IDF: e.IDF}, true
}

// Postings reads one term's champion list from disk. A missing term yields
// nil, nil.
func (r *SegmentReader) Postings(term string) ([]index.Posting, error) {
	i := sort.Search(len(r.dict), func(i int) bool { return r.dict[i].Term >= term })
	if i >= len(r.dict) || r.dict[i].Term != term {
		return nil, nil
	}
	entry := r.dict[i]
	data := make([]byte, entry.PostLen)
	if _, err := r.file.ReadAt(data, r.header.PostOffset+entry.PostOffset); err != nil {
		return nil, fmt.Errorf("reading postings for term %q: %w", term, err)
	}
	var postings []index.Posting
	if err := json.Unmarshal(data, &postings); err != nil {
		return nil, fmt.Errorf("%w: parsing postings for term %q: %v", errors.ErrCorruptArtifact, term, err)
	}
	return postings, nil
}

// ReadAll materialises the full dictionary and postings table.
func (r *SegmentReader) ReadAll() (map[string]index.DictEntry, map[string][]index.Posting, error) {
	dict := make(map[string]index.DictEntry, len(r.dict))
	postings := make(map[string][]index.Posting, len(r.dict))
	for _, e := range r.dict {
		dict[e.Term] = index.DictEntry{Term: e.Term, DF: e.DF, IDF: e.IDF}
		plist, err := r.Postings(e.Term)
		if err != nil {
			return nil, nil, err
		}
		postings[e.Term] = plist
	}
	return dict, postings, nil
}

// Close closes the underlying file.
func (r *SegmentReader) Close() error {
	return r.file.Close()
}
