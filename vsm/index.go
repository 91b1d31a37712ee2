// Package vsm is the query-time entry point: it opens a built archive and
// answers term-resolution and vector-retrieval queries over it.
package vsm

import (
	"fmt"
	"io"
	"os"
	"unicode/utf8"

	"vsmindex/archive"
	"vsmindex/docvector"
	"vsmindex/sparsevec"
	"vsmindex/termstore"
	"vsmindex/termweight"
	"vsmindex/vectorstore"
)

// stopwordThreshold is the default document-frequency ratio past which a
// term is considered a stopword.
const stopwordThreshold = 0.35

// minFallbackRunes is the floor a query term is truncated down to while
// searching for a resolvable prefix; below this length resolution gives
// up rather than matching on noise.
const minFallbackRunes = 3

// Index is an opened, immutable search index: a term dictionary plus the
// document vectors it indexes. All read operations are safe for
// concurrent use.
type Index[D any] struct {
	metadata archive.Metadata
	terms    *termstore.TermStore
	vectors  *vectorstore.VectorStore[D]
}

// New wraps an already-assembled term store and vector store as an
// Index. The build package uses this to hand back a ready-to-query
// Index immediately after writing an archive.
func New[D any](meta archive.Metadata, terms *termstore.TermStore, vectors *vectorstore.VectorStore[D]) *Index[D] {
	return &Index[D]{metadata: meta, terms: terms, vectors: vectors}
}

// Open reads an archive from path and builds an Index from it.
func Open[D any](path string, decode docvector.Decoder[D]) (*Index[D], error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("vsm: open %s: %w", path, err)
	}
	defer f.Close()
	return FromReader(f, decode)
}

// FromReader reads an archive from an arbitrary stream and builds an
// Index from it.
func FromReader[D any](r io.Reader, decode docvector.Decoder[D]) (*Index[D], error) {
	sections, err := archive.Read(r)
	if err != nil {
		return nil, fmt.Errorf("vsm: read archive: %w", err)
	}
	vectors := vectorstore.New(sections.Vectors, sections.InvertedIndex, decode)
	return New(sections.Metadata, sections.TermStore, vectors), nil
}

// TermStore returns the index's term dictionary.
func (idx *Index[D]) TermStore() *termstore.TermStore { return idx.terms }

// GetVectorStore returns the index's document vector store.
func (idx *Index[D]) GetVectorStore() *vectorstore.VectorStore[D] { return idx.vectors }

// Metadata returns the archive metadata the index was opened from.
func (idx *Index[D]) Metadata() archive.Metadata { return idx.metadata }

// TermWeightPair pairs a query term with a caller-chosen weight.
type TermWeightPair struct {
	Term   string
	Weight float32
}

// BuildVector resolves terms to dimensions via the term store and
// applies weight (tf=1, df=term.DocFrequency, totalDocs=vector
// store size) to produce a query vector. If weight is nil every
// resolved term gets weight 1.0 (tf=1 with no further scaling). Terms
// that don't resolve, even after the truncation fallback, are skipped;
// ok is false only when none of the terms resolved at all.
func (idx *Index[D]) BuildVector(terms []string, weight *termweight.Weight) (sparsevec.SparseVector, bool) {
	pairs := make([]sparsevec.Pair, 0, len(terms))
	totalDocs := uint32(idx.vectors.Len())

	for _, text := range terms {
		dim, term, ok := idx.resolveTerm(text)
		if !ok {
			continue
		}
		w := float32(1.0)
		if weight != nil {
			w = weight.Apply(1, term.DocFrequency, totalDocs, 1.0)
		}
		pairs = append(pairs, sparsevec.Pair{Dim: uint32(dim), Weight: w})
	}

	if len(pairs) == 0 {
		return sparsevec.SparseVector{}, false
	}
	return sparsevec.NewRaw(pairs), true
}

// BuildVectorWeights is like BuildVector but takes caller-supplied
// per-term weights directly instead of deriving them from a
// termweight.Weight formula.
func (idx *Index[D]) BuildVectorWeights(termWeights []TermWeightPair) (sparsevec.SparseVector, bool) {
	pairs := make([]sparsevec.Pair, 0, len(termWeights))
	for _, tw := range termWeights {
		dim, _, ok := idx.resolveTerm(tw.Term)
		if !ok {
			continue
		}
		pairs = append(pairs, sparsevec.Pair{Dim: uint32(dim), Weight: tw.Weight})
	}

	if len(pairs) == 0 {
		return sparsevec.SparseVector{}, false
	}
	return sparsevec.NewRaw(pairs), true
}

// resolveTerm finds text in the term store, falling back to
// progressively shorter rune-wise prefixes (down to minFallbackRunes)
// when the exact text does not resolve.
func (idx *Index[D]) resolveTerm(text string) (int, termstore.Term, bool) {
	if dim, ok := idx.terms.GetTerm(text); ok {
		term, _ := idx.terms.LoadTerm(dim)
		return dim, term, true
	}

	query := text
	for utf8.RuneCountInString(query) > minFallbackRunes {
		query = dropLastRune(query)
		if dim, ok := idx.terms.GetTerm(query); ok {
			term, _ := idx.terms.LoadTerm(dim)
			return dim, term, true
		}
	}

	return 0, termstore.Term{}, false
}

func dropLastRune(s string) string {
	_, size := utf8.DecodeLastRuneInString(s)
	return s[:len(s)-size]
}

// IsStopword reports whether term's document frequency ratio meets or
// exceeds stopwordThreshold. The second return value is false if term
// does not resolve at all.
func (idx *Index[D]) IsStopword(term string) (bool, bool) {
	return idx.IsStopwordCust(term, stopwordThreshold)
}

// IsStopwordCust is IsStopword with a caller-supplied threshold in
// [0, 1].
func (idx *Index[D]) IsStopwordCust(term string, thresholdRatio float64) (bool, bool) {
	_, t, ok := idx.resolveTerm(term)
	if !ok {
		return false, false
	}
	totalDocs := idx.vectors.Len()
	if totalDocs == 0 {
		return false, true
	}
	ratio := float64(t.DocFrequency) / float64(totalDocs)
	return ratio >= thresholdRatio, true
}
