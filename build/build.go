// Package build implements the index build pipeline: accumulate
// document vectors against a growing term dictionary, then finalize by
// assigning each term its sorted dimension, reweighting every vector,
// and assembling the term store, inverted index, and vector store that
// make up a queryable archive.
package build

import (
	"fmt"
	"io"
	"math"
	"sort"

	"vsmindex/archive"
	"vsmindex/docvector"
	"vsmindex/invertedindex"
	"vsmindex/memfile"
	"vsmindex/sparsevec"
	"vsmindex/termstore"
	"vsmindex/termweight"
	"vsmindex/vectorstore"
	"vsmindex/vsm"
)

// maxDimsPerVector mirrors the on-disk codec's u16 dimension count
// field: a document vector may carry at most this many non-zero
// dimensions.
const maxDimsPerVector = 1<<16 - 1

type pendingVector[D any] struct {
	payload D
	pairs   []sparsevec.Pair // dims are insertion ids, not yet sorted positions
}

// IndexBuilder accumulates document vectors and the term statistics
// needed to weight and order them, then finalizes everything into an
// archive and a ready-to-query Index.
type IndexBuilder[D any] struct {
	vectors []pendingVector[D]
	terms   *termStoreBuilder
	weight  *termweight.Weight
	encode  docvector.Encoder[D]
	decode  docvector.Decoder[D]
}

// New creates an empty IndexBuilder. encode is used once per vector
// during Build to serialize its payload; decode is handed to the Index
// Build returns, so the caller can query it immediately without
// re-opening the archive it just wrote.
func New[D any](encode docvector.Encoder[D], decode docvector.Decoder[D]) *IndexBuilder[D] {
	return &IndexBuilder[D]{terms: newTermStoreBuilder(), encode: encode, decode: decode}
}

// WithWeight configures the weighting function applied to every term
// weight during Build. Without a configured weight, raw insertion
// weights pass through unchanged.
func (b *IndexBuilder[D]) WithWeight(w termweight.Weight) *IndexBuilder[D] {
	b.weight = &w
	return b
}

// InsertNewVec indexes doc's unique terms with an initial weight of 1.0
// each and returns its assigned document id.
func (b *IndexBuilder[D]) InsertNewVec(payload D, terms []string) int {
	pairs := make([]sparsevec.Pair, 0, len(terms))
	seen := make(map[int]bool, len(terms))
	docID := len(b.vectors)

	for _, text := range terms {
		id := b.terms.getOrAddTerm(text)
		b.terms.incrementTermFreq(id, docID)
		if !seen[id] {
			seen[id] = true
			b.terms.incrementDocFreq(id)
			pairs = append(pairs, sparsevec.Pair{Dim: uint32(id), Weight: 1.0})
		}
	}

	b.vectors = append(b.vectors, pendingVector[D]{payload: payload, pairs: pairs})
	return docID
}

// TermWeightPair pairs term text with a caller-chosen initial weight.
type TermWeightPair struct {
	Term   string
	Weight float32
}

// InsertNewWeightedVec is InsertNewVec with caller-supplied initial
// weights. terms must be unique within the document; the builder does
// not validate this itself, and a duplicate is counted again in both
// the term and document frequency and gets its weight summed with the
// first at Build. Every weight must be finite; a NaN or infinite weight is
// rejected here rather than reaching the archive.
func (b *IndexBuilder[D]) InsertNewWeightedVec(payload D, terms []TermWeightPair) (int, error) {
	pairs := make([]sparsevec.Pair, 0, len(terms))
	docID := len(b.vectors)

	for _, tw := range terms {
		if !isFiniteWeight(tw.Weight) {
			return 0, fmt.Errorf("build: non-finite weight %v for term %q", tw.Weight, tw.Term)
		}
		id := b.terms.getOrAddTerm(tw.Term)
		b.terms.incrementTermFreq(id, docID)
		b.terms.incrementDocFreq(id)
		pairs = append(pairs, sparsevec.Pair{Dim: uint32(id), Weight: tw.Weight})
	}

	b.vectors = append(b.vectors, pendingVector[D]{payload: payload, pairs: pairs})
	return docID, nil
}

// GetOrAddTerm resolves text to its insertion id, allocating one if
// necessary, without touching document- or term-frequency counters.
// InsertCustomVec callers use this to build raw (insertion-id, weight)
// pairs by hand.
func (b *IndexBuilder[D]) GetOrAddTerm(text string) int {
	return b.terms.getOrAddTerm(text)
}

// InsertCustomVec is an escape hatch for pre-built vectors whose
// dimensions are already insertion ids obtained from GetOrAddTerm. It
// does not update term- or document-frequency counters, and no exported
// method sets them, so a weight configured with WithWeight sees tf=0 for
// these dimensions: TFIDF and NormalizedTF then yield a non-finite
// weight, which Build rejects, while NoWeight (or no weight at all)
// keeps the weights given here. Every weight must be finite.
func (b *IndexBuilder[D]) InsertCustomVec(payload D, pairs []sparsevec.Pair) (int, error) {
	for _, p := range pairs {
		if !isFiniteWeight(p.Weight) {
			return 0, fmt.Errorf("build: non-finite weight %v at dimension %d", p.Weight, p.Dim)
		}
	}

	docID := len(b.vectors)
	cp := make([]sparsevec.Pair, len(pairs))
	copy(cp, pairs)
	b.vectors = append(b.vectors, pendingVector[D]{payload: payload, pairs: cp})
	return docID, nil
}

func isFiniteWeight(w float32) bool {
	f := float64(w)
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

// Build finalizes the index: assigns sorted dimensions to every term,
// remaps and reweights every vector, assembles the term store, inverted
// index and vector store, writes the archive to w, and returns a
// ready-to-query Index wrapping the same in-memory structures (so
// callers don't have to immediately re-open what they just wrote).
func (b *IndexBuilder[D]) Build(w io.Writer) (*vsm.Index[D], error) {
	b.terms.buildOrderMap()
	totalDocs := uint32(len(b.vectors))

	encodedVectors := memfile.New()
	postings := make(map[uint32][]uint32)

	for docID, pv := range b.vectors {
		remapped, err := b.remapVector(docID, pv.pairs, totalDocs)
		if err != nil {
			return nil, fmt.Errorf("build: document %d: %w", docID, err)
		}
		if remapped.Len() > maxDimsPerVector {
			return nil, fmt.Errorf("build: document %d has %d dimensions, exceeding the %d limit", docID, remapped.Len(), maxDimsPerVector)
		}

		dv := docvector.DocumentVector[D]{Vector: remapped, Payload: pv.payload}
		encoded, err := docvector.Encode(dv, b.encode)
		if err != nil {
			return nil, fmt.Errorf("build: encode document %d: %w", docID, err)
		}
		encodedVectors.Insert(encoded)

		for _, p := range remapped.Pairs() {
			postings[p.Dim] = append(postings[p.Dim], uint32(docID))
		}
	}

	invIndex := invertedindex.Build(postings)
	termStore, err := b.buildTermStore()
	if err != nil {
		return nil, err
	}

	meta := archive.Metadata{Version: archive.V1, DocumentCount: uint64(len(b.vectors))}
	if err := archive.Write(w, meta, termStore, invIndex, encodedVectors); err != nil {
		return nil, fmt.Errorf("build: write archive: %w", err)
	}

	vs := vectorstore.New(encodedVectors, invIndex, b.decode)
	return vsm.New(meta, termStore, vs), nil
}

// remapVector replaces every (insertionDim, oldWeight) pair with
// (sortedDim, newWeight), re-sorts by the new dimension, and sums
// weights for any duplicate dimension a custom-built vector might
// introduce. A weighting function applied to a dimension with no
// recorded term/document frequency (e.g. one inserted via
// InsertCustomVec, which does not update those counters) can produce a
// non-finite weight; that is rejected rather than written to the
// archive.
func (b *IndexBuilder[D]) remapVector(docID int, pairs []sparsevec.Pair, totalDocs uint32) (sparsevec.SparseVector, error) {
	remapped := make([]sparsevec.Pair, len(pairs))
	for i, p := range pairs {
		insertionDim := int(p.Dim)
		newDim := b.terms.sortedDim(insertionDim)

		newWeight := p.Weight
		if b.weight != nil {
			tf := b.terms.termFreqOf(insertionDim, docID)
			df := b.terms.docFreqOf(insertionDim)
			newWeight = b.weight.Apply(tf, df, totalDocs, p.Weight)
			if !isFiniteWeight(newWeight) {
				return sparsevec.SparseVector{}, fmt.Errorf(
					"non-finite weight %v weighting dimension %d (tf=%d, df=%d, totalDocs=%d)",
					newWeight, newDim, tf, df, totalDocs)
			}
		}
		remapped[i] = sparsevec.Pair{Dim: uint32(newDim), Weight: newWeight}
	}

	sort.Slice(remapped, func(i, j int) bool { return remapped[i].Dim < remapped[j].Dim })
	return sumDedup(remapped)
}

// sumDedup collapses consecutive same-dimension pairs by summing their
// weights, then returns a SparseVector with the recomputed length. It
// rejects a non-finite summed weight or length, which a sum of very
// large finite weights could still produce.
func sumDedup(sorted []sparsevec.Pair) (sparsevec.SparseVector, error) {
	if len(sorted) == 0 {
		return sparsevec.NewPreSorted(nil, 0), nil
	}

	out := make([]sparsevec.Pair, 0, len(sorted))
	out = append(out, sorted[0])
	for _, p := range sorted[1:] {
		last := &out[len(out)-1]
		if p.Dim == last.Dim {
			last.Weight += p.Weight
			continue
		}
		out = append(out, p)
	}

	var sumSquares float32
	for _, p := range out {
		if !isFiniteWeight(p.Weight) {
			return sparsevec.SparseVector{}, fmt.Errorf("non-finite weight %v at dimension %d", p.Weight, p.Dim)
		}
		sumSquares += p.Weight * p.Weight
	}
	length := float32(math.Sqrt(float64(sumSquares)))
	if !isFiniteWeight(length) {
		return sparsevec.SparseVector{}, fmt.Errorf("non-finite vector length %v", length)
	}

	return sparsevec.NewPreSorted(out, length), nil
}

// buildTermStore emits every term in sorted order, each with its final
// document frequency.
func (b *IndexBuilder[D]) buildTermStore() (*termstore.TermStore, error) {
	order := make([]int, len(b.terms.texts))
	for i := range order {
		order[i] = i
	}
	sort.Slice(order, func(i, j int) bool { return b.terms.texts[order[i]] < b.terms.texts[order[j]] })

	records := memfile.WithCapacity(len(order))
	for _, insertionID := range order {
		term := termstore.Term{
			Text:         b.terms.texts[insertionID],
			DocFrequency: b.terms.docFreqOf(insertionID),
		}
		encoded, err := term.Encode()
		if err != nil {
			// Term text is only ever what callers supplied to
			// InsertNewVec/InsertNewWeightedVec/GetOrAddTerm; an
			// encode failure here means a caller handed in an
			// empty string or a NUL byte, which earlier insertion
			// already accepted uncaught. Dropping the term would
			// shift every later dimension, so the build fails.
			return nil, fmt.Errorf("build: term %q: %w", term.Text, err)
		}
		records.Insert(encoded)
	}
	return termstore.New(records), nil
}
