package archive

import (
	"archive/tar"
	"bytes"
	"compress/gzip"
	"testing"

	"github.com/stretchr/testify/require"
	"vsmindex/invertedindex"
	"vsmindex/memfile"
	"vsmindex/termstore"
)

func tinyFixture(t *testing.T) (*termstore.TermStore, *invertedindex.InvertedIndex, *memfile.MemFile) {
	t.Helper()
	records := memfile.New()
	for _, term := range []termstore.Term{{Text: "a", DocFrequency: 1}, {Text: "b", DocFrequency: 2}} {
		enc, err := term.Encode()
		require.NoError(t, err)
		records.Insert(enc)
	}
	ts := termstore.New(records)

	idx := invertedindex.Build(map[uint32][]uint32{0: {0}, 1: {0, 1}})

	vectors := memfile.New()
	vectors.Insert([]byte("doc0"))
	vectors.Insert([]byte("doc1"))

	return ts, idx, vectors
}

func TestWriteReadRoundTrip(t *testing.T) {
	ts, idx, vectors := tinyFixture(t)
	meta := Metadata{Version: V1, DocumentCount: uint64(vectors.Len())}

	var buf bytes.Buffer
	require.NoError(t, Write(&buf, meta, ts, idx, vectors))

	sections, err := Read(&buf)
	require.NoError(t, err)
	require.Equal(t, meta, sections.Metadata)
	require.Equal(t, ts.Len(), sections.TermStore.Len())
	require.Equal(t, vectors.Len(), sections.Vectors.Len())

	_, ok := sections.InvertedIndex.Get(1)
	require.True(t, ok)
}

func TestReadRejectsBadMagic(t *testing.T) {
	_, err := Read(bytes.NewReader([]byte("nope")))
	require.Error(t, err)
	var archErr *Error
	require.ErrorAs(t, err, &archErr)
	require.Equal(t, InvalidIndexError, archErr.Kind)
}

func TestReadRejectsDocumentCountMismatch(t *testing.T) {
	ts, idx, vectors := tinyFixture(t)
	meta := Metadata{Version: V1, DocumentCount: 999}

	var buf bytes.Buffer
	require.NoError(t, Write(&buf, meta, ts, idx, vectors))

	_, err := Read(&buf)
	require.Error(t, err)
}

func TestReadClassifiesInvalidUTF8TermAsUTF8Error(t *testing.T) {
	records := memfile.New()
	good, err := termstore.Term{Text: "a", DocFrequency: 1}.Encode()
	require.NoError(t, err)
	records.Insert(good)

	bad, err := termstore.Term{Text: string([]byte{0xff, 0xfe}), DocFrequency: 0}.Encode()
	require.NoError(t, err)
	records.Insert(bad)

	ts := termstore.New(records)
	idx := invertedindex.Build(map[uint32][]uint32{0: {0}})
	vectors := memfile.New()
	vectors.Insert([]byte("doc0"))
	meta := Metadata{Version: V1, DocumentCount: uint64(vectors.Len())}

	var buf bytes.Buffer
	require.NoError(t, Write(&buf, meta, ts, idx, vectors))

	_, err = Read(&buf)
	require.Error(t, err)
	var archErr *Error
	require.ErrorAs(t, err, &archErr)
	require.Equal(t, UTF8Error, archErr.Kind)
}

func TestReadAcceptsLegacyTarGz(t *testing.T) {
	ts, idx, vectors := tinyFixture(t)
	meta := Metadata{Version: V1, DocumentCount: uint64(vectors.Len())}

	var tsBuf, idxBuf, vecBuf bytes.Buffer
	require.NoError(t, ts.Serialize(&tsBuf))
	require.NoError(t, idx.Serialize(&idxBuf))
	require.NoError(t, vectors.Serialize(&vecBuf))

	var gzBuf bytes.Buffer
	gz := gzip.NewWriter(&gzBuf)
	tw := tar.NewWriter(gz)

	// Entry order deliberately does not match section order, to exercise
	// the "entry order is not guaranteed" clause.
	entries := []struct {
		name string
		data []byte
	}{
		{legacyVectors, vecBuf.Bytes()},
		{legacyMetadata, meta.encode()},
		{legacyDims, idxBuf.Bytes()},
		{legacyTerms, tsBuf.Bytes()},
	}
	for _, e := range entries {
		require.NoError(t, tw.WriteHeader(&tar.Header{Name: e.name, Size: int64(len(e.data))}))
		_, err := tw.Write(e.data)
		require.NoError(t, err)
	}
	require.NoError(t, tw.Close())
	require.NoError(t, gz.Close())

	sections, err := Read(&gzBuf)
	require.NoError(t, err)
	require.Equal(t, meta, sections.Metadata)
	require.Equal(t, ts.Len(), sections.TermStore.Len())
}
