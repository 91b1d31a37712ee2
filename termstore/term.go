package termstore

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"unicode/utf8"
)

// ErrInvalidUTF8 is the sentinel wrapped by a DecodeTerm failure caused
// by term bytes that aren't valid UTF-8. Archive-level callers that need
// to classify this specifically detect it with errors.Is, since this
// package can't import the archive package's error type (archive depends
// on termstore, not the other way around).
var ErrInvalidUTF8 = errors.New("termstore: term bytes are not valid utf-8")

// Term is a single dictionary entry: the term text and the number of
// distinct documents it appears in.
type Term struct {
	Text         string
	DocFrequency uint32
}

// Encode writes a Term as [u32 LE doc_frequency][text bytes]. The text's
// length is implicit from the enclosing memfile record, so no length
// prefix is written here.
func (t Term) Encode() ([]byte, error) {
	if len(t.Text) == 0 {
		return nil, fmt.Errorf("termstore: term text must not be empty")
	}
	if bytes.IndexByte([]byte(t.Text), 0) >= 0 {
		return nil, fmt.Errorf("termstore: term text must not contain NUL bytes")
	}

	buf := make([]byte, 4+len(t.Text))
	binary.LittleEndian.PutUint32(buf[:4], t.DocFrequency)
	copy(buf[4:], t.Text)
	return buf, nil
}

// DecodeTerm reads a Term from a single memfile record.
func DecodeTerm(record []byte) (Term, error) {
	if len(record) < 4 {
		return Term{}, fmt.Errorf("termstore: term record too short (%d bytes)", len(record))
	}
	docFreq := binary.LittleEndian.Uint32(record[:4])
	textBytes := record[4:]
	if len(textBytes) == 0 {
		return Term{}, fmt.Errorf("termstore: decoded term text is empty")
	}
	if !utf8.Valid(textBytes) {
		return Term{}, fmt.Errorf("termstore: decode term: %w", ErrInvalidUTF8)
	}
	return Term{Text: string(textBytes), DocFrequency: docFreq}, nil
}
