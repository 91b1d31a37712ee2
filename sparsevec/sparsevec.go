// Package sparsevec implements sorted sparse vectors over a dense dimension
// space and the algebra needed to compare them: cosine similarity, overlap
// detection and dimension lookups. Vectors are stored as ascending
// (dimension, weight) pairs alongside a cached L2 norm so similarity never
// has to re-walk the whole vector to normalize.
package sparsevec

import (
	"math"
	"sort"
)

// Pair is a single (dimension, weight) entry of a SparseVector.
type Pair struct {
	Dim    uint32
	Weight float32
}

// SparseVector is a sorted, deduplicated sequence of (dim, weight) pairs
// plus the cached length (L2 norm) of the vector. The zero value is the
// empty vector.
type SparseVector struct {
	pairs  []Pair
	length float32
}

// NewRaw sorts pairs by dimension, deduplicates (keeping the first
// occurrence of a dimension) and recomputes the length. Use this whenever
// the caller cannot guarantee the input is already sorted.
func NewRaw(pairs []Pair) SparseVector {
	sorted := make([]Pair, len(pairs))
	copy(sorted, pairs)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Dim < sorted[j].Dim })

	v := SparseVector{pairs: sorted}
	v.Update()
	return v
}

// NewPreSorted builds a SparseVector from pairs that are already sorted
// ascending by dimension and a length that was already computed (e.g. taken
// verbatim off the wire during decode, to preserve round-trip identity).
func NewPreSorted(pairs []Pair, length float32) SparseVector {
	return SparseVector{pairs: pairs, length: length}
}

// Len returns the number of non-zero dimensions in the vector.
func (v *SparseVector) Len() int { return len(v.pairs) }

// IsEmpty reports whether the vector has no non-zero dimensions.
func (v *SparseVector) IsEmpty() bool { return len(v.pairs) == 0 }

// Length returns the cached L2 norm of the vector.
func (v *SparseVector) Length() float32 { return v.length }

// Pairs returns the vector's (dim, weight) pairs in ascending dimension
// order. The returned slice must not be mutated; edit the vector in
// place via DeleteDim/Update instead.
func (v *SparseVector) Pairs() []Pair { return v.pairs }

// VecIndices returns the dimensions present in the vector, in ascending
// order.
func (v *SparseVector) VecIndices() []uint32 {
	out := make([]uint32, len(v.pairs))
	for i, p := range v.pairs {
		out[i] = p.Dim
	}
	return out
}

// VecValues returns the weights of the vector, in the same order as
// VecIndices.
func (v *SparseVector) VecValues() []float32 {
	out := make([]float32, len(v.pairs))
	for i, p := range v.pairs {
		out[i] = p.Weight
	}
	return out
}

// HasDim reports whether the vector carries a non-zero weight at dim, via
// binary search.
func (v *SparseVector) HasDim(dim uint32) bool {
	i := sort.Search(len(v.pairs), func(i int) bool { return v.pairs[i].Dim >= dim })
	return i < len(v.pairs) && v.pairs[i].Dim == dim
}

// DeleteDim removes the pair at dim, if present. It does not recompute
// the length; callers must call Update afterwards (once is enough after a
// batch of deletes).
func (v *SparseVector) DeleteDim(dim uint32) {
	i := sort.Search(len(v.pairs), func(i int) bool { return v.pairs[i].Dim >= dim })
	if i < len(v.pairs) && v.pairs[i].Dim == dim {
		v.pairs = append(v.pairs[:i], v.pairs[i+1:]...)
	}
}

// Update re-sorts, deduplicates and recomputes the length. It must be
// called after any batch of in-place mutations to the vector's pairs.
func (v *SparseVector) Update() {
	sort.SliceStable(v.pairs, func(i, j int) bool { return v.pairs[i].Dim < v.pairs[j].Dim })
	v.dedup()
	v.length = v.calcLength()
}

// dedup collapses runs sharing the same dimension, keeping the first
// encountered entry (later writes do not overwrite).
func (v *SparseVector) dedup() {
	if len(v.pairs) < 2 {
		return
	}
	out := v.pairs[:1]
	for _, p := range v.pairs[1:] {
		if p.Dim != out[len(out)-1].Dim {
			out = append(out, p)
		}
	}
	v.pairs = out
}

func (v *SparseVector) calcLength() float32 {
	var sum float32
	for _, p := range v.pairs {
		sum += p.Weight * p.Weight
	}
	return float32(math.Sqrt(float64(sum)))
}

func (v *SparseVector) firstDim() uint32 { return v.pairs[0].Dim }
func (v *SparseVector) lastDim() uint32  { return v.pairs[len(v.pairs)-1].Dim }

// CouldOverlap is a fast rejection test: it returns false whenever the
// dimension ranges of a and b can't possibly intersect, without walking
// either vector.
func CouldOverlap(a, b *SparseVector) bool {
	if a.IsEmpty() || b.IsEmpty() {
		return false
	}
	if a.firstDim() > b.lastDim() || a.lastDim() < b.firstDim() {
		return false
	}
	return true
}

// OverlapsWith reports whether a and b share at least one dimension.
func OverlapsWith(a, b *SparseVector) bool {
	if !CouldOverlap(a, b) {
		return false
	}
	merge := NewLockStepMerge(a.pairs, b.pairs)
	_, ok := merge.Next()
	return ok
}

// Similarity computes the cosine similarity between a and b. Returns 0
// whenever either vector is empty (zero length), since cosine is
// undefined for the zero vector and the spec defines this as the
// non-participating case rather than NaN propagation.
func Similarity(a, b *SparseVector) float32 {
	if a.length == 0 || b.length == 0 {
		return 0
	}
	return dot(a, b) / (a.length * b.length)
}

func dot(a, b *SparseVector) float32 {
	var sum float32
	merge := NewLockStepMerge(a.pairs, b.pairs)
	for {
		entry, ok := merge.Next()
		if !ok {
			break
		}
		sum += entry.A * entry.B
	}
	return sum
}
