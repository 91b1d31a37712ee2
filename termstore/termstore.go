// Package termstore implements the sorted, binary-searchable term
// dictionary: an append-only byte store of encoded Term records (see
// memfile) whose storage order defines each term's dimension id, plus an
// optional sort permutation that lets new terms be appended after load
// without physically re-sorting the underlying store.
package termstore

import (
	"fmt"
	"io"
	"sort"

	"vsmindex/memfile"
)

// TermStore is a sorted term dictionary. When SortIndex is empty, record
// storage order already is lexicographic order and binary search runs
// directly against the memfile. Once BuildCustSort has been called,
// SortIndex holds a permutation of storage offsets into lexicographic
// order, which is what lets InsertNew append without re-sorting the
// underlying records.
type TermStore struct {
	records   *memfile.MemFile
	sortIndex []uint32
}

// New wraps an encoded term store with no custom sort index: callers must
// have inserted records already in lexicographic order (as the builder
// does).
func New(records *memfile.MemFile) *TermStore {
	return &TermStore{records: records}
}

// Len returns the number of terms in the dictionary.
func (s *TermStore) Len() int { return s.records.Len() }

// IsEmpty reports whether the dictionary has no terms.
func (s *TermStore) IsEmpty() bool { return s.records.IsEmpty() }

// IsSorted reports whether the store's storage order is still the
// dictionary's lexicographic order (i.e. no sort permutation has been
// built yet).
func (s *TermStore) IsSorted() bool { return len(s.sortIndex) == 0 }

// storagePos maps a dim (in current dictionary order) to a storage
// offset in the backing memfile.
func (s *TermStore) storagePos(dim int) int {
	if s.IsSorted() {
		return dim
	}
	return int(s.sortIndex[dim])
}

// LoadTerm decodes the term at dictionary position dim.
func (s *TermStore) LoadTerm(dim int) (Term, bool) {
	if dim < 0 || dim >= s.records.Len() {
		return Term{}, false
	}
	record := s.records.Get(s.storagePos(dim))
	term, err := DecodeTerm(record)
	if err != nil {
		return Term{}, false
	}
	return term, true
}

// GetTerm resolves text to its dimension id via binary search, or
// reports that it is absent.
func (s *TermStore) GetTerm(text string) (int, bool) {
	n := s.records.Len()
	lo, hi := 0, n
	for lo < hi {
		mid := lo + (hi-lo)/2
		record := s.records.Get(s.storagePos(mid))
		term, err := DecodeTerm(record)
		if err != nil {
			return 0, false
		}
		switch {
		case term.Text < text:
			lo = mid + 1
		case term.Text > text:
			hi = mid
		default:
			return mid, true
		}
	}
	return 0, false
}

// FindTerm resolves text to its decoded Term.
func (s *TermStore) FindTerm(text string) (Term, bool) {
	dim, ok := s.GetTerm(text)
	if !ok {
		return Term{}, false
	}
	return s.LoadTerm(dim)
}

// Iter returns every term, in dictionary order (i.e. in SortIndex order
// when one has been built, lexicographic order otherwise).
func (s *TermStore) Iter() []Term {
	out := make([]Term, 0, s.records.Len())
	for i := 0; i < s.records.Len(); i++ {
		term, ok := s.LoadTerm(i)
		if !ok {
			continue
		}
		out = append(out, term)
	}
	return out
}

// BuildCustSort seeds the sort permutation with the identity mapping,
// enabling InsertNew. It is a no-op once a permutation already exists.
// On an empty store the permutation stays empty, so the store still
// reports IsSorted and InsertNew keeps returning false.
func (s *TermStore) BuildCustSort() {
	if !s.IsSorted() {
		return
	}
	s.sortIndex = make([]uint32, s.records.Len())
	for i := range s.sortIndex {
		s.sortIndex[i] = uint32(i)
	}
}

// InsertNew appends term as a new raw record and re-sorts the
// permutation so lookups keep finding it in the right lexicographic
// position. It requires BuildCustSort to have been called at least once;
// it returns false otherwise. Inserting a text that already exists in the
// store is a contract violation the caller must avoid (InsertNew does not
// check for duplicates).
func (s *TermStore) InsertNew(term Term) (int, bool) {
	if s.IsSorted() {
		return 0, false
	}

	encoded, err := term.Encode()
	if err != nil {
		return 0, false
	}
	rawID := s.records.Insert(encoded)
	s.sortIndex = append(s.sortIndex, uint32(rawID))

	sort.SliceStable(s.sortIndex, func(i, j int) bool {
		ti, _ := DecodeTerm(s.records.Get(int(s.sortIndex[i])))
		tj, _ := DecodeTerm(s.records.Get(int(s.sortIndex[j])))
		return ti.Text < tj.Text
	})

	// The new dimension is wherever rawID landed after the re-sort.
	for pos, off := range s.sortIndex {
		if int(off) == rawID {
			return pos, true
		}
	}
	return 0, false
}

// Serialize writes the term store as its backing memfile plus the sort
// permutation (empty when the store is still in pure lexicographic
// order).
func (s *TermStore) Serialize(w io.Writer) error {
	if err := s.records.Serialize(w); err != nil {
		return fmt.Errorf("termstore: serialize records: %w", err)
	}
	if err := writeUint32Slice(w, s.sortIndex); err != nil {
		return fmt.Errorf("termstore: serialize sort index: %w", err)
	}
	return nil
}

// Deserialize reads a term store previously written by Serialize. Every
// record is decoded once up front so a corrupt term (e.g. invalid UTF-8)
// surfaces here rather than later, the first time some query happens to
// touch that dimension.
func Deserialize(r io.Reader) (*TermStore, error) {
	records, err := memfile.Deserialize(r)
	if err != nil {
		return nil, fmt.Errorf("termstore: deserialize records: %w", err)
	}
	sortIndex, err := readUint32Slice(r)
	if err != nil {
		return nil, fmt.Errorf("termstore: deserialize sort index: %w", err)
	}

	for i := 0; i < records.Len(); i++ {
		if _, err := DecodeTerm(records.Get(i)); err != nil {
			return nil, fmt.Errorf("termstore: validate record %d: %w", i, err)
		}
	}

	return &TermStore{records: records, sortIndex: sortIndex}, nil
}
