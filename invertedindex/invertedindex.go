// Package invertedindex implements the dense dimension→posting map used to
// prune candidate vectors during search: a length-prefixed u32 posting per
// dimension, addressed through a dense offset table so every dimension —
// even ones with no postings — resolves in O(1).
package invertedindex

import (
	"encoding/binary"
	"fmt"
	"io"
	"sort"

	"vsmindex/idset"
)

// InvertedIndex maps a dimension to the sorted, deduplicated list of
// vector ids whose sparse vector has a non-zero weight there. It is built
// once and is immutable thereafter.
type InvertedIndex struct {
	// offsets[d] is the byte offset into payload of dimension d's
	// posting header. len(offsets) == maxDim+1 (dense: every dimension
	// seen during Build has an entry, even if its posting is empty).
	offsets []uint32
	payload []byte
}

// Build assembles an InvertedIndex from a dimension→vector-ids map. Per
// dimension the posting is sorted ascending and deduplicated; dimensions
// absent from postings get a zero-length posting so the offset table
// stays dense across 0..=maxDim.
func Build(postings map[uint32][]uint32) *InvertedIndex {
	if len(postings) == 0 {
		return &InvertedIndex{}
	}

	dims := make([]uint32, 0, len(postings))
	var maxDim uint32
	for dim := range postings {
		dims = append(dims, dim)
		if dim > maxDim {
			maxDim = dim
		}
	}
	sort.Slice(dims, func(i, j int) bool { return dims[i] < dims[j] })

	idx := &InvertedIndex{offsets: make([]uint32, maxDim+1)}

	present := make(map[uint32]bool, len(dims))
	for _, d := range dims {
		present[d] = true
	}

	for dim := uint32(0); dim <= maxDim; dim++ {
		idx.offsets[dim] = uint32(len(idx.payload))
		if !present[dim] {
			idx.payload = appendUint32(idx.payload, 0)
			continue
		}

		ids := uniqueSorted(postings[dim])
		idx.payload = appendUint32(idx.payload, uint32(len(ids)))
		for _, id := range ids {
			idx.payload = appendUint32(idx.payload, id)
		}
	}

	return idx
}

// uniqueSorted dedups and sorts a dimension's raw posting list via idset,
// the project's roaring-style in-memory id set.
func uniqueSorted(ids []uint32) []uint32 {
	return idset.FromSlice(ids).Sorted()
}

func appendUint32(buf []byte, v uint32) []byte {
	var tmp [4]byte
	binary.LittleEndian.PutUint32(tmp[:], v)
	return append(buf, tmp[:]...)
}

// Get returns the posting for dim, or false if dim has no posting
// (either because it is beyond the indexed range, or because it carries
// the zero-length sentinel).
func (idx *InvertedIndex) Get(dim uint32) ([]uint32, bool) {
	if int(dim) >= len(idx.offsets) {
		return nil, false
	}
	start := idx.offsets[dim]
	if int(start)+4 > len(idx.payload) {
		return nil, false
	}
	length := binary.LittleEndian.Uint32(idx.payload[start : start+4])
	if length == 0 {
		return nil, false
	}

	ids := make([]uint32, length)
	pos := start + 4
	for i := range ids {
		ids[i] = binary.LittleEndian.Uint32(idx.payload[pos : pos+4])
		pos += 4
	}
	return ids, true
}

// Has reports whether dim carries a non-empty posting.
func (idx *InvertedIndex) Has(dim uint32) bool {
	_, ok := idx.Get(dim)
	return ok
}

// MaxDim returns the highest dimension the index has an offset-table
// entry for (dense dimensions run 0..=MaxDim). Returns 0 for an empty
// index; callers should check DimCount first.
func (idx *InvertedIndex) MaxDim() uint32 {
	if len(idx.offsets) == 0 {
		return 0
	}
	return uint32(len(idx.offsets) - 1)
}

// DimCount returns the number of dense offset-table entries (maxDim+1),
// i.e. the number of dimensions the index has any knowledge of.
func (idx *InvertedIndex) DimCount() int { return len(idx.offsets) }

// Serialize writes [u32 n_offsets][u32 offset]*n [u32 payload_len][payload].
func (idx *InvertedIndex) Serialize(w io.Writer) error {
	if err := binary.Write(w, binary.LittleEndian, uint32(len(idx.offsets))); err != nil {
		return fmt.Errorf("invertedindex: write offset count: %w", err)
	}
	for _, off := range idx.offsets {
		if err := binary.Write(w, binary.LittleEndian, off); err != nil {
			return fmt.Errorf("invertedindex: write offset: %w", err)
		}
	}
	if err := binary.Write(w, binary.LittleEndian, uint32(len(idx.payload))); err != nil {
		return fmt.Errorf("invertedindex: write payload length: %w", err)
	}
	if _, err := w.Write(idx.payload); err != nil {
		return fmt.Errorf("invertedindex: write payload: %w", err)
	}
	return nil
}

// Deserialize reads an InvertedIndex previously written by Serialize.
func Deserialize(r io.Reader) (*InvertedIndex, error) {
	var nOffsets uint32
	if err := binary.Read(r, binary.LittleEndian, &nOffsets); err != nil {
		return nil, fmt.Errorf("invertedindex: read offset count: %w", err)
	}
	offsets := make([]uint32, nOffsets)
	for i := range offsets {
		if err := binary.Read(r, binary.LittleEndian, &offsets[i]); err != nil {
			return nil, fmt.Errorf("invertedindex: read offset %d: %w", i, err)
		}
	}

	var payloadLen uint32
	if err := binary.Read(r, binary.LittleEndian, &payloadLen); err != nil {
		return nil, fmt.Errorf("invertedindex: read payload length: %w", err)
	}
	payload := make([]byte, payloadLen)
	if _, err := io.ReadFull(r, payload); err != nil {
		return nil, fmt.Errorf("invertedindex: read payload: %w", err)
	}

	return &InvertedIndex{offsets: offsets, payload: payload}, nil
}
