// Package memfile implements an append-only, indexed byte store: a flat
// buffer of concatenated records plus a parallel offset table so any
// record can be sliced out in O(1). It backs both the term store and the
// vector store, which only differ in what they put inside each record.
package memfile

import (
	"encoding/binary"
	"fmt"
	"io"
)

// MemFile is an append-only store of variable-length byte records.
// Record i occupies data[offsets[i]:offsets[i+1]], or data[offsets[i]:]
// for the last record. The zero value is an empty store ready to use.
type MemFile struct {
	data    []byte
	offsets []uint32
}

// New returns an empty MemFile.
func New() *MemFile {
	return &MemFile{}
}

// WithCapacity returns an empty MemFile with room pre-reserved for n
// records, to avoid repeated offset-slice growth during a bulk build.
func WithCapacity(n int) *MemFile {
	return &MemFile{offsets: make([]uint32, 0, n)}
}

// Insert appends a record and returns its record id.
func (m *MemFile) Insert(record []byte) int {
	id := len(m.offsets)
	m.offsets = append(m.offsets, uint32(len(m.data)))
	m.data = append(m.data, record...)
	return id
}

// Len returns the number of records stored.
func (m *MemFile) Len() int { return len(m.offsets) }

// IsEmpty reports whether the store holds no records.
func (m *MemFile) IsEmpty() bool { return len(m.offsets) == 0 }

// Get returns the record at i. It panics if i is out of range, matching
// the contract that callers only ever index with ids this package handed
// out or that passed an explicit bounds check.
func (m *MemFile) Get(i int) []byte {
	start := m.offsets[i]
	if i+1 < len(m.offsets) {
		return m.data[start:m.offsets[i+1]]
	}
	return m.data[start:]
}

// GetChecked is the non-panicking variant of Get, for callers decoding an
// id read back off a wire format that may be out of range.
func (m *MemFile) GetChecked(i int) ([]byte, bool) {
	if i < 0 || i >= len(m.offsets) {
		return nil, false
	}
	return m.Get(i), true
}

// Iter returns all records in storage order.
func (m *MemFile) Iter() [][]byte {
	out := make([][]byte, len(m.offsets))
	for i := range m.offsets {
		out[i] = m.Get(i)
	}
	return out
}

// Serialize writes the store as
// [u64 n_records][u32 offset]*n [u64 data_len][data].
func (m *MemFile) Serialize(w io.Writer) error {
	if err := binary.Write(w, binary.LittleEndian, uint64(len(m.offsets))); err != nil {
		return fmt.Errorf("memfile: write record count: %w", err)
	}
	for _, off := range m.offsets {
		if err := binary.Write(w, binary.LittleEndian, off); err != nil {
			return fmt.Errorf("memfile: write offset: %w", err)
		}
	}
	if err := binary.Write(w, binary.LittleEndian, uint64(len(m.data))); err != nil {
		return fmt.Errorf("memfile: write data length: %w", err)
	}
	if _, err := w.Write(m.data); err != nil {
		return fmt.Errorf("memfile: write data: %w", err)
	}
	return nil
}

// Deserialize reads a store previously written by Serialize.
func Deserialize(r io.Reader) (*MemFile, error) {
	var nRecords uint64
	if err := binary.Read(r, binary.LittleEndian, &nRecords); err != nil {
		return nil, fmt.Errorf("memfile: read record count: %w", err)
	}

	offsets := make([]uint32, nRecords)
	for i := range offsets {
		if err := binary.Read(r, binary.LittleEndian, &offsets[i]); err != nil {
			return nil, fmt.Errorf("memfile: read offset %d: %w", i, err)
		}
	}

	var dataLen uint64
	if err := binary.Read(r, binary.LittleEndian, &dataLen); err != nil {
		return nil, fmt.Errorf("memfile: read data length: %w", err)
	}

	data := make([]byte, dataLen)
	if _, err := io.ReadFull(r, data); err != nil {
		return nil, fmt.Errorf("memfile: read data: %w", err)
	}

	return &MemFile{data: data, offsets: offsets}, nil
}
