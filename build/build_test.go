package build

import (
	"bytes"
	"encoding/binary"
	"math"
	"testing"

	"github.com/stretchr/testify/require"
	"vsmindex/sparsevec"
	"vsmindex/termweight"
)

func encodeID(v uint32) ([]byte, error) {
	buf := make([]byte, 4)
	binary.LittleEndian.PutUint32(buf, v)
	return buf, nil
}

func decodeID(data []byte) (uint32, error) {
	return binary.LittleEndian.Uint32(data), nil
}

// corpus mirrors the spec's running tiny-corpus example:
//
//	doc0: "a" "to"
//	doc1: "a" "to" "car" "drive"
//	doc2: "a" "have" "make" "stand"
func buildTinyCorpus(t *testing.T, weight *termweight.Weight) *IndexBuilder[uint32] {
	t.Helper()
	b := New[uint32](encodeID, decodeID)
	if weight != nil {
		b.WithWeight(*weight)
	}

	b.InsertNewVec(0, []string{"a", "to"})
	b.InsertNewVec(1, []string{"a", "to", "car", "drive"})
	b.InsertNewVec(2, []string{"a", "have", "make", "stand"})
	return b
}

func TestBuildAssignsSortedDimensionsLexicographically(t *testing.T) {
	b := buildTinyCorpus(t, nil)
	var buf bytes.Buffer
	idx, err := b.Build(&buf)
	require.NoError(t, err)

	dim, ok := idx.TermStore().GetTerm("a")
	require.True(t, ok)
	term, ok := idx.TermStore().LoadTerm(dim)
	require.True(t, ok)
	require.Equal(t, uint32(3), term.DocFrequency)

	dim, ok = idx.TermStore().GetTerm("stand")
	require.True(t, ok)
	term, ok = idx.TermStore().LoadTerm(dim)
	require.True(t, ok)
	require.Equal(t, uint32(1), term.DocFrequency)
}

func TestBuildWritesArchiveWithCorrectDocumentCount(t *testing.T) {
	b := buildTinyCorpus(t, nil)
	var buf bytes.Buffer
	idx, err := b.Build(&buf)
	require.NoError(t, err)
	require.Equal(t, uint64(3), idx.Metadata().DocumentCount)
	require.Equal(t, 3, idx.GetVectorStore().Len())
}

func TestBuildWithTFIDFWeightsVectors(t *testing.T) {
	weight := termweight.TFIDFWeight
	b := buildTinyCorpus(t, &weight)
	var buf bytes.Buffer
	idx, err := b.Build(&buf)
	require.NoError(t, err)

	vec, ok := idx.GetVectorStore().LoadVector(2)
	require.True(t, ok)
	// "a" appears in all 3 docs (idf=log10(3/3)=0), so its weight must
	// collapse to zero once weighted.
	for _, p := range vec.Vector.Pairs() {
		termDim, ok := idx.TermStore().GetTerm("a")
		require.True(t, ok)
		if p.Dim == uint32(termDim) {
			require.InDelta(t, float32(0), p.Weight, 1e-6)
		}
	}
}

func TestInsertCustomVecBypassesFrequencyCounters(t *testing.T) {
	b := New[uint32](encodeID, decodeID)
	id := b.GetOrAddTerm("widget")
	_, err := b.InsertCustomVec(0, []sparsevec.Pair{{Dim: uint32(id), Weight: 2.5}})
	require.NoError(t, err)

	var buf bytes.Buffer
	idx, err := b.Build(&buf)
	require.NoError(t, err)

	vec, ok := idx.GetVectorStore().LoadVector(0)
	require.True(t, ok)
	require.Equal(t, 1, vec.Vector.Len())
	require.Equal(t, float32(2.5), vec.Vector.Pairs()[0].Weight)
}

func TestRejectsVectorExceedingDimensionLimit(t *testing.T) {
	b := New[uint32](encodeID, decodeID)
	pairs := make([]sparsevec.Pair, maxDimsPerVector+1)
	for i := range pairs {
		id := b.GetOrAddTerm(string(rune('a' + i%26)) + string(rune('A'+i/26)))
		pairs[i] = sparsevec.Pair{Dim: uint32(id), Weight: 1}
	}
	_, err := b.InsertCustomVec(0, pairs)
	require.NoError(t, err)

	var buf bytes.Buffer
	_, err = b.Build(&buf)
	require.Error(t, err)
}

func TestInsertCustomVecRejectsNonFiniteWeight(t *testing.T) {
	b := New[uint32](encodeID, decodeID)
	id := b.GetOrAddTerm("widget")
	_, err := b.InsertCustomVec(0, []sparsevec.Pair{{Dim: uint32(id), Weight: float32(math.NaN())}})
	require.Error(t, err)
}

func TestInsertNewWeightedVecRejectsNonFiniteWeight(t *testing.T) {
	b := New[uint32](encodeID, decodeID)
	_, err := b.InsertNewWeightedVec(0, []TermWeightPair{{Term: "widget", Weight: float32(math.Inf(1))}})
	require.Error(t, err)
}

// TestBuildRejectsNonFiniteTFIDFWeight exercises the exact corruption
// path a review of this codebase once found: a custom vector bypasses
// the term/document frequency counters, so applying TFIDF to its
// dimension computes log10(0) and produces an infinite weight. Build
// must reject this instead of silently writing it to the archive.
func TestBuildRejectsNonFiniteTFIDFWeight(t *testing.T) {
	weight := termweight.TFIDFWeight
	b := New[uint32](encodeID, decodeID)
	b.WithWeight(weight)

	id := b.GetOrAddTerm("widget")
	_, err := b.InsertCustomVec(0, []sparsevec.Pair{{Dim: uint32(id), Weight: 1.0}})
	require.NoError(t, err)

	var buf bytes.Buffer
	_, err = b.Build(&buf)
	require.Error(t, err)
}
