package invertedindex

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestGetReturnsSortedDedupedPostings(t *testing.T) {
	idx := Build(map[uint32][]uint32{
		0: {3, 1, 1, 2},
		2: {5},
	})

	ids, ok := idx.Get(0)
	require.True(t, ok)
	require.Equal(t, []uint32{1, 2, 3}, ids)

	ids, ok = idx.Get(2)
	require.True(t, ok)
	require.Equal(t, []uint32{5}, ids)
}

func TestGapDimensionIsAbsent(t *testing.T) {
	idx := Build(map[uint32][]uint32{
		0: {1},
		2: {2},
	})

	require.False(t, idx.Has(1), "dim 1 has no postings and must not be present")
	require.True(t, idx.Has(0))
	require.True(t, idx.Has(2))
	require.Equal(t, uint32(2), idx.MaxDim())
	require.Equal(t, 3, idx.DimCount())
}

func TestGetBeyondMaxDimIsAbsent(t *testing.T) {
	idx := Build(map[uint32][]uint32{0: {1}})

	_, ok := idx.Get(5)
	require.False(t, ok)
}

func TestEmptyIndex(t *testing.T) {
	idx := Build(nil)
	require.False(t, idx.Has(0))
	require.Equal(t, 0, idx.DimCount())
}

func TestSerializeRoundTrip(t *testing.T) {
	idx := Build(map[uint32][]uint32{
		0: {1, 2},
		1: {3},
		3: {4, 5, 6},
	})

	var buf bytes.Buffer
	require.NoError(t, idx.Serialize(&buf))

	decoded, err := Deserialize(&buf)
	require.NoError(t, err)
	require.Equal(t, idx.DimCount(), decoded.DimCount())

	for _, dim := range []uint32{0, 1, 2, 3} {
		want, wantOK := idx.Get(dim)
		got, gotOK := decoded.Get(dim)
		require.Equal(t, wantOK, gotOK)
		require.Equal(t, want, got)
	}
}
