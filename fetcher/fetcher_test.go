package fetcher

import (
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"vsmindex/build"
)

const sampleCorpus = `{
  "documents": [
    {"doc_id": 10, "terms": [{"term": "a", "frequency": 1}, {"term": "to", "frequency": 1}]},
    {"doc_id": 11, "terms": [{"term": "a", "frequency": 2}, {"term": "car", "frequency": 1}]}
  ]
}`

func encodeID(v uint32) ([]byte, error) {
	buf := make([]byte, 4)
	binary.LittleEndian.PutUint32(buf, v)
	return buf, nil
}

func decodeID(data []byte) (uint32, error) {
	return binary.LittleEndian.Uint32(data), nil
}

func TestParseCorpus(t *testing.T) {
	docs, err := ParseCorpus([]byte(sampleCorpus))
	require.NoError(t, err)
	require.Len(t, docs, 2)
	require.Equal(t, uint32(10), docs[0].DocID)
	require.Equal(t, "a", docs[0].Terms[0].Term)
}

func TestFetchLocalFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "corpus.json")
	require.NoError(t, os.WriteFile(path, []byte(sampleCorpus), 0o644))

	data, err := Fetch(path)
	require.NoError(t, err)
	require.Equal(t, sampleCorpus, string(data))
}

func TestLoadIntoInsertsEveryDocument(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "corpus.json")
	require.NoError(t, os.WriteFile(path, []byte(sampleCorpus), 0o644))

	b := build.New[uint32](encodeID, decodeID)
	ids, err := LoadInto(path, b, func(docID uint32) uint32 { return docID })
	require.NoError(t, err)
	require.Equal(t, []int{0, 1}, ids)
}
