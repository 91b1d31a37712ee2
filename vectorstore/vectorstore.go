// Package vectorstore stores every document vector in insertion order and
// answers dimension-restricted lookups by delegating id resolution to an
// invertedindex.InvertedIndex. Multi-dimension lookups merge several
// posting lists with a min-heap, the same block-merge technique this
// project's teacher uses to walk multiple posting iterators in lock step.
package vectorstore

import (
	"container/heap"
	"context"
	"fmt"
	"io"

	"vsmindex/docvector"
	"vsmindex/invertedindex"
	"vsmindex/memfile"
	"vsmindex/sparsevec"
)

// VectorStore holds every document vector plus the inverted index used to
// resolve dimension-restricted queries without a full scan.
type VectorStore[D any] struct {
	records *memfile.MemFile
	index   *invertedindex.InvertedIndex
	decode  docvector.Decoder[D]
}

// New wraps an encoded vector memfile and its inverted index with a
// payload decoder.
func New[D any](records *memfile.MemFile, index *invertedindex.InvertedIndex, decode docvector.Decoder[D]) *VectorStore[D] {
	return &VectorStore[D]{records: records, index: index, decode: decode}
}

// Len returns the number of vectors in the store.
func (vs *VectorStore[D]) Len() int { return vs.records.Len() }

// IsEmpty reports whether the store holds no vectors.
func (vs *VectorStore[D]) IsEmpty() bool { return vs.records.IsEmpty() }

// Records exposes the backing memfile, for callers (such as the archive
// writer) that need to serialize the vector store's sections separately
// from its inverted index.
func (vs *VectorStore[D]) Records() *memfile.MemFile { return vs.records }

// Index exposes the bound inverted index, for the same reason as Records.
func (vs *VectorStore[D]) Index() *invertedindex.InvertedIndex { return vs.index }

// LoadVector decodes the vector stored at id.
func (vs *VectorStore[D]) LoadVector(id int) (docvector.DocumentVector[D], bool) {
	record, ok := vs.records.GetChecked(id)
	if !ok {
		var zero docvector.DocumentVector[D]
		return zero, false
	}
	dv, err := docvector.Decode(record, vs.decode)
	if err != nil {
		var zero docvector.DocumentVector[D]
		return zero, false
	}
	return dv, true
}

// DimensionSize returns the number of vectors carrying a non-zero weight
// at dim.
func (vs *VectorStore[D]) DimensionSize(dim uint32) int {
	ids, ok := vs.index.Get(dim)
	if !ok {
		return 0
	}
	return len(ids)
}

// GetInDim returns every vector with a non-zero weight at dim.
func (vs *VectorStore[D]) GetInDim(dim uint32) []docvector.DocumentVector[D] {
	ids, ok := vs.index.Get(dim)
	if !ok {
		return nil
	}
	return vs.loadAll(ids)
}

// GetInDims returns the ids of every vector carrying a non-zero weight in
// any of dims, each id appearing exactly once, in ascending order. It
// does not decode any vector.
func (vs *VectorStore[D]) GetInDims(dims []uint32) []uint32 {
	postings := make([][]uint32, 0, len(dims))
	for _, dim := range dims {
		if ids, ok := vs.index.Get(dim); ok && len(ids) > 0 {
			postings = append(postings, ids)
		}
	}
	return mergePostings(postings)
}

func (vs *VectorStore[D]) loadAll(ids []uint32) []docvector.DocumentVector[D] {
	out := make([]docvector.DocumentVector[D], 0, len(ids))
	for _, id := range ids {
		if dv, ok := vs.LoadVector(int(id)); ok {
			out = append(out, dv)
		}
	}
	return out
}

// Iter returns a lazy iterator over every vector in storage order,
// decoding each one only when VectorIterator.Next is called.
func (vs *VectorStore[D]) Iter() *VectorIterator[D] {
	return &VectorIterator[D]{vs: vs}
}

// GetAllIter returns a lazy iterator over every vector carrying a
// non-zero weight in any of dims, in ascending id order, decoding each
// one only when VectorIterator.Next is called.
func (vs *VectorStore[D]) GetAllIter(dims []uint32) *VectorIterator[D] {
	return &VectorIterator[D]{vs: vs, ids: vs.GetInDims(dims), filtered: true}
}

// GetForVec returns a lazy iterator over every vector sharing at least
// one dimension with vec.
func (vs *VectorStore[D]) GetForVec(vec *sparsevec.SparseVector) *VectorIterator[D] {
	return vs.GetAllIter(vec.VecIndices())
}

// VectorIterator walks a sequence of vector ids, decoding on demand.
// Construct one with VectorStore's Iter, GetAllIter or GetForVec.
type VectorIterator[D any] struct {
	vs       *VectorStore[D]
	ids      []uint32
	filtered bool
	pos      int
	current  docvector.DocumentVector[D]
}

// Next advances the iterator and reports whether a vector is available.
// Records that fail to decode are skipped.
func (it *VectorIterator[D]) Next() bool {
	for {
		var id int
		if it.filtered {
			if it.pos >= len(it.ids) {
				return false
			}
			id = int(it.ids[it.pos])
		} else {
			if it.pos >= it.vs.records.Len() {
				return false
			}
			id = it.pos
		}
		it.pos++

		dv, ok := it.vs.LoadVector(id)
		if !ok {
			continue
		}
		it.current = dv
		return true
	}
}

// Vector returns the vector most recently produced by Next.
func (it *VectorIterator[D]) Vector() docvector.DocumentVector[D] { return it.current }

// asyncBatchSize is the number of vectors delivered per GetAllAsync send.
const asyncBatchSize = 200

// GetAllAsync streams every vector in storage order over a channel, in
// batches of asyncBatchSize, from a background goroutine. Cancel ctx to
// drop the remaining work: each send waits on both the reader and ctx, so
// a cancelled goroutine exits instead of blocking on the unbuffered
// channel. A reader that stops reading without cancelling ctx leaves the
// goroutine blocked on its next send until ctx is done.
func (vs *VectorStore[D]) GetAllAsync(ctx context.Context) <-chan []docvector.DocumentVector[D] {
	out := make(chan []docvector.DocumentVector[D])

	go func() {
		defer close(out)

		batch := make([]docvector.DocumentVector[D], 0, asyncBatchSize)
		for i := 0; i < vs.records.Len(); i++ {
			dv, ok := vs.LoadVector(i)
			if !ok {
				continue
			}
			batch = append(batch, dv)
			if len(batch) < asyncBatchSize {
				continue
			}

			select {
			case out <- batch:
				batch = make([]docvector.DocumentVector[D], 0, asyncBatchSize)
			case <-ctx.Done():
				return
			}
		}

		if len(batch) == 0 {
			return
		}
		select {
		case out <- batch:
		case <-ctx.Done():
		}
	}()

	return out
}

// Serialize writes the backing memfile and inverted index.
func (vs *VectorStore[D]) Serialize(w io.Writer) error {
	if err := vs.records.Serialize(w); err != nil {
		return fmt.Errorf("vectorstore: serialize records: %w", err)
	}
	if err := vs.index.Serialize(w); err != nil {
		return fmt.Errorf("vectorstore: serialize index: %w", err)
	}
	return nil
}

// Deserialize reads a vector store previously written by Serialize.
func Deserialize[D any](r io.Reader, decode docvector.Decoder[D]) (*VectorStore[D], error) {
	records, err := memfile.Deserialize(r)
	if err != nil {
		return nil, fmt.Errorf("vectorstore: deserialize records: %w", err)
	}
	index, err := invertedindex.Deserialize(r)
	if err != nil {
		return nil, fmt.Errorf("vectorstore: deserialize index: %w", err)
	}
	return New(records, index, decode), nil
}

// postingCursor tracks the read position of a single posting list during
// a k-way merge.
type postingCursor struct {
	ids []uint32
	pos int
}

// cursorHeap is a min-heap over postingCursors, ordered by each cursor's
// current id, mirroring the block-merge min-heap this project's engine
// uses to walk several posting iterators in lock step.
type cursorHeap []*postingCursor

func (h cursorHeap) Len() int            { return len(h) }
func (h cursorHeap) Less(i, j int) bool  { return h[i].ids[h[i].pos] < h[j].ids[h[j].pos] }
func (h cursorHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *cursorHeap) Push(x interface{}) { *h = append(*h, x.(*postingCursor)) }
func (h *cursorHeap) Pop() interface{} {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}

// mergePostings merges several sorted, deduplicated posting lists into a
// single sorted slice with no duplicates.
func mergePostings(postings [][]uint32) []uint32 {
	h := &cursorHeap{}
	for _, ids := range postings {
		if len(ids) > 0 {
			*h = append(*h, &postingCursor{ids: ids})
		}
	}
	heap.Init(h)

	var out []uint32
	var lastID uint32
	hasLast := false

	for h.Len() > 0 {
		cur := (*h)[0]
		id := cur.ids[cur.pos]
		if !hasLast || id != lastID {
			out = append(out, id)
			lastID = id
			hasLast = true
		}

		cur.pos++
		if cur.pos >= len(cur.ids) {
			heap.Pop(h)
		} else {
			heap.Fix(h, 0)
		}
	}

	return out
}
