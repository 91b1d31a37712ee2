// Package archive implements the on-disk container for a built index: a
// canonical length-framed blob for writing, with read-only support for a
// legacy gzipped tar container so older artifacts keep opening.
package archive

import (
	"archive/tar"
	"bufio"
	"bytes"
	"compress/gzip"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"vsmindex/invertedindex"
	"vsmindex/memfile"
	"vsmindex/termstore"
)

// magic identifies the canonical container format.
var magic = [4]byte{'V', 'S', 'M', '1'}

// IndexVersion identifies the metadata layout. The set is closed; readers
// must reject anything else with DecodeError.
type IndexVersion uint8

// V1 is the only version this package knows how to read or write.
const V1 IndexVersion = 0

// Metadata is the fixed-size header every archive carries.
type Metadata struct {
	Version       IndexVersion
	DocumentCount uint64
}

func (m Metadata) encode() []byte {
	buf := make([]byte, 9)
	buf[0] = byte(m.Version)
	binary.LittleEndian.PutUint64(buf[1:], m.DocumentCount)
	return buf
}

func decodeMetadata(data []byte) (Metadata, error) {
	if len(data) != 9 {
		return Metadata{}, newError(DecodeError, fmt.Sprintf("metadata record must be 9 bytes, got %d", len(data)), nil)
	}
	version := IndexVersion(data[0])
	if version != V1 {
		return Metadata{}, newError(DecodeError, fmt.Sprintf("unknown index version %d", version), nil)
	}
	return Metadata{
		Version:       version,
		DocumentCount: binary.LittleEndian.Uint64(data[1:]),
	}, nil
}

// Sections is every component a built index needs, decoded from an
// archive. The vector payload bytes are left in a raw memfile: decoding
// the generic payload type is the caller's job once it has its
// docvector.Decoder in hand.
type Sections struct {
	Metadata      Metadata
	TermStore     *termstore.TermStore
	InvertedIndex *invertedindex.InvertedIndex
	Vectors       *memfile.MemFile
}

// Write assembles the canonical framed container: magic, then each
// section preceded by its little-endian u64 byte length, in the fixed
// order metadata, term store, inverted index, vector store. meta's
// DocumentCount is expected to already equal vectors.Len(); callers that
// build via the build package get this for free.
func Write(w io.Writer, meta Metadata, ts *termstore.TermStore, idx *invertedindex.InvertedIndex, vectors *memfile.MemFile) error {
	if _, err := w.Write(magic[:]); err != nil {
		return newError(IOError, "write magic", err)
	}

	var tsBuf, idxBuf, vecBuf bytes.Buffer
	if err := ts.Serialize(&tsBuf); err != nil {
		return newError(IOError, "serialize term store", err)
	}
	if err := idx.Serialize(&idxBuf); err != nil {
		return newError(IOError, "serialize inverted index", err)
	}
	if err := vectors.Serialize(&vecBuf); err != nil {
		return newError(IOError, "serialize vector store", err)
	}

	for _, section := range []struct {
		name string
		data []byte
	}{
		{"metadata", meta.encode()},
		{"term_store", tsBuf.Bytes()},
		{"inverted_index", idxBuf.Bytes()},
		{"vector_store", vecBuf.Bytes()},
	} {
		if err := writeFramed(w, section.data); err != nil {
			return newError(IOError, fmt.Sprintf("write %s section", section.name), err)
		}
	}
	return nil
}

func writeFramed(w io.Writer, data []byte) error {
	if err := binary.Write(w, binary.LittleEndian, uint64(len(data))); err != nil {
		return err
	}
	_, err := w.Write(data)
	return err
}

// classifyTermStoreError maps a term store decode failure to the archive
// error kind it belongs to: UTF8Error for invalid term text, DecodeError
// for anything else malformed.
func classifyTermStoreError(err error) error {
	if errors.Is(err, termstore.ErrInvalidUTF8) {
		return newError(UTF8Error, "decode term store", err)
	}
	return newError(DecodeError, "decode term store", err)
}

func readFramed(r io.Reader) ([]byte, error) {
	var length uint64
	if err := binary.Read(r, binary.LittleEndian, &length); err != nil {
		return nil, err
	}
	data := make([]byte, length)
	if _, err := io.ReadFull(r, data); err != nil {
		return nil, err
	}
	return data, nil
}

// Read parses an archive from r, accepting either the canonical framed
// container or the legacy gzipped tar container.
func Read(r io.Reader) (Sections, error) {
	br := bufio.NewReader(r)
	head, err := br.Peek(4)
	if err != nil {
		return Sections{}, newError(IOError, "peek container header", err)
	}

	if bytes.Equal(head, magic[:]) {
		return readCanonical(br)
	}
	if head[0] == 0x1f && head[1] == 0x8b {
		return readLegacy(br)
	}
	return Sections{}, newError(InvalidIndexError, "unrecognized container: bad magic prefix", nil)
}

func readCanonical(r io.Reader) (Sections, error) {
	var magicBuf [4]byte
	if _, err := io.ReadFull(r, magicBuf[:]); err != nil {
		return Sections{}, newError(IOError, "read magic", err)
	}
	if magicBuf != magic {
		return Sections{}, newError(InvalidIndexError, "bad magic prefix", nil)
	}

	metaBytes, err := readFramed(r)
	if err != nil {
		return Sections{}, newError(InvalidIndexError, "read metadata section", err)
	}
	meta, err := decodeMetadata(metaBytes)
	if err != nil {
		return Sections{}, err
	}

	tsBytes, err := readFramed(r)
	if err != nil {
		return Sections{}, newError(InvalidIndexError, "read term store section", err)
	}
	ts, err := termstore.Deserialize(bytes.NewReader(tsBytes))
	if err != nil {
		return Sections{}, classifyTermStoreError(err)
	}

	idxBytes, err := readFramed(r)
	if err != nil {
		return Sections{}, newError(InvalidIndexError, "read inverted index section", err)
	}
	idx, err := invertedindex.Deserialize(bytes.NewReader(idxBytes))
	if err != nil {
		return Sections{}, newError(DecodeError, "decode inverted index", err)
	}

	vecBytes, err := readFramed(r)
	if err != nil {
		return Sections{}, newError(InvalidIndexError, "read vector store section", err)
	}
	vectors, err := memfile.Deserialize(bytes.NewReader(vecBytes))
	if err != nil {
		return Sections{}, newError(DecodeError, "decode vector store", err)
	}

	if uint64(vectors.Len()) != meta.DocumentCount {
		return Sections{}, newError(InvalidIndexError, fmt.Sprintf(
			"document count mismatch: metadata says %d, vector store has %d", meta.DocumentCount, vectors.Len()), nil)
	}

	return Sections{Metadata: meta, TermStore: ts, InvertedIndex: idx, Vectors: vectors}, nil
}

// legacy tar entry names, fixed by the format this project's predecessor
// shipped before the canonical container existed.
const (
	legacyMetadata = "metadata"
	legacyTerms    = "term_indexer"
	legacyDims     = "dim_map"
	legacyVectors  = "vectors"
)

func readLegacy(r io.Reader) (Sections, error) {
	gz, err := gzip.NewReader(r)
	if err != nil {
		return Sections{}, newError(InvalidIndexError, "open legacy gzip stream", err)
	}
	defer gz.Close()

	entries := make(map[string][]byte, 4)
	tr := tar.NewReader(gz)
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return Sections{}, newError(InvalidIndexError, "read legacy tar entry", err)
		}
		data, err := io.ReadAll(tr)
		if err != nil {
			return Sections{}, newError(IOError, "read legacy tar entry body", err)
		}
		entries[hdr.Name] = data
	}

	for _, name := range []string{legacyMetadata, legacyTerms, legacyDims, legacyVectors} {
		if _, ok := entries[name]; !ok {
			return Sections{}, newError(InvalidIndexError, fmt.Sprintf("legacy archive missing entry %q", name), nil)
		}
	}

	meta, err := decodeMetadata(entries[legacyMetadata])
	if err != nil {
		return Sections{}, err
	}
	ts, err := termstore.Deserialize(bytes.NewReader(entries[legacyTerms]))
	if err != nil {
		return Sections{}, classifyTermStoreError(err)
	}
	idx, err := invertedindex.Deserialize(bytes.NewReader(entries[legacyDims]))
	if err != nil {
		return Sections{}, newError(DecodeError, "decode legacy inverted index", err)
	}
	vectors, err := memfile.Deserialize(bytes.NewReader(entries[legacyVectors]))
	if err != nil {
		return Sections{}, newError(DecodeError, "decode legacy vector store", err)
	}

	return Sections{Metadata: meta, TermStore: ts, InvertedIndex: idx, Vectors: vectors}, nil
}
