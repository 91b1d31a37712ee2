package sparsevec

// LockStepEntry is a dimension shared by both streams fed into a
// LockStepMerge, along with each stream's weight at that dimension.
type LockStepEntry struct {
	Dim uint32
	A   float32
	B   float32
}

// LockStepMerge walks two sorted (dim, weight) streams with a classic
// two-pointer merge, yielding only dimensions present in both streams.
// It advances whichever stream has the smaller head until the heads match
// or one stream is exhausted. O(n+m), no allocation beyond the struct
// itself.
type LockStepMerge struct {
	a, b []Pair
	i, j int
}

// NewLockStepMerge creates a merge iterator over two pair slices. Both
// slices must already be sorted ascending by Dim (as SparseVector always
// keeps them).
func NewLockStepMerge(a, b []Pair) *LockStepMerge {
	return &LockStepMerge{a: a, b: b}
}

// Next advances to the next shared dimension. It returns false once either
// stream is exhausted.
func (m *LockStepMerge) Next() (LockStepEntry, bool) {
	for m.i < len(m.a) && m.j < len(m.b) {
		da, db := m.a[m.i].Dim, m.b[m.j].Dim
		switch {
		case da < db:
			m.i++
		case da > db:
			m.j++
		default:
			entry := LockStepEntry{Dim: da, A: m.a[m.i].Weight, B: m.b[m.j].Weight}
			m.i++
			m.j++
			return entry, true
		}
	}
	return LockStepEntry{}, false
}
