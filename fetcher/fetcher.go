// Package fetcher loads a pre-tokenized JSON corpus — either from a
// local file or over HTTP — and feeds it into an IndexBuilder. The
// corpus format is a flat list of documents, each carrying the terms it
// contains and how often each occurs.
package fetcher

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	"vsmindex/build"
)

// TermOccurrence is a single term and how many times it occurs within
// one document.
type TermOccurrence struct {
	Term      string  `json:"term"`
	Frequency float32 `json:"frequency"`
}

// Document is one corpus entry.
type Document struct {
	DocID uint32           `json:"doc_id"`
	Terms []TermOccurrence `json:"terms"`
}

type corpus struct {
	Documents []Document `json:"documents"`
}

// Fetch reads raw bytes from path, treating it as an HTTP(S) URL when it
// has that prefix and as a local file path otherwise.
func Fetch(path string) ([]byte, error) {
	if strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		resp, err := http.Get(path)
		if err != nil {
			return nil, fmt.Errorf("fetcher: fetch %s: %w", path, err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("fetcher: non-ok HTTP response fetching %s: %s", path, resp.Status)
		}

		data, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, fmt.Errorf("fetcher: read response body from %s: %w", path, err)
		}
		return data, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("fetcher: read local file %s: %w", path, err)
	}
	return data, nil
}

// ParseCorpus parses raw corpus JSON into its documents.
func ParseCorpus(data []byte) ([]Document, error) {
	var c corpus
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("fetcher: parse corpus json: %w", err)
	}
	return c.Documents, nil
}

// LoadInto fetches and parses the corpus at path, then inserts every
// document into b via InsertNewWeightedVec, using payloadFor to turn
// each document's id into the builder's payload type. It returns the
// assigned builder document ids in corpus order, which need not match
// the corpus's own DocID field (the builder assigns ids by insertion
// order regardless of what's in the JSON).
func LoadInto[D any](path string, b *build.IndexBuilder[D], payloadFor func(docID uint32) D) ([]int, error) {
	data, err := Fetch(path)
	if err != nil {
		return nil, err
	}
	docs, err := ParseCorpus(data)
	if err != nil {
		return nil, err
	}

	ids := make([]int, 0, len(docs))
	for _, doc := range docs {
		terms := make([]build.TermWeightPair, len(doc.Terms))
		for i, t := range doc.Terms {
			terms[i] = build.TermWeightPair{Term: t.Term, Weight: t.Frequency}
		}
		id, err := b.InsertNewWeightedVec(payloadFor(doc.DocID), terms)
		if err != nil {
			return nil, fmt.Errorf("fetcher: insert document %d: %w", doc.DocID, err)
		}
		ids = append(ids, id)
	}
	return ids, nil
}
