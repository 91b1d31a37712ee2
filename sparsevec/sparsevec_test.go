package sparsevec

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewRawSortsAndDedups(t *testing.T) {
	v := NewRaw([]Pair{
		{Dim: 3, Weight: 1},
		{Dim: 1, Weight: 2},
		{Dim: 1, Weight: 99}, // duplicate dim: first occurrence after sort wins
		{Dim: 2, Weight: 3},
	})

	require.Equal(t, 3, v.Len())
	pairs := v.Pairs()
	for i := 0; i+1 < len(pairs); i++ {
		require.Less(t, pairs[i].Dim, pairs[i+1].Dim)
	}
}

func TestNormInvariant(t *testing.T) {
	v := NewRaw([]Pair{{Dim: 0, Weight: 3}, {Dim: 1, Weight: 4}})
	require.InDelta(t, 5.0, v.Length(), 1e-4)
}

func TestEmptyVectorHasZeroLength(t *testing.T) {
	var v SparseVector
	require.True(t, v.IsEmpty())
	require.Equal(t, float32(0), v.Length())
	require.Equal(t, float32(0), Similarity(&v, &v))
}

func TestSelfSimilarity(t *testing.T) {
	v := NewRaw([]Pair{{Dim: 0, Weight: 1}, {Dim: 5, Weight: 2}, {Dim: 9, Weight: 3}})
	sim := Similarity(&v, &v)
	require.InDelta(t, 1.0, sim, 1e-5)
}

func TestDisjointVectorsDoNotOverlap(t *testing.T) {
	a := NewRaw([]Pair{{Dim: 0, Weight: 1}, {Dim: 2, Weight: 1}})
	b := NewRaw([]Pair{{Dim: 1, Weight: 1}, {Dim: 3, Weight: 1}})

	require.False(t, OverlapsWith(&a, &b))
	require.Equal(t, float32(0), Similarity(&a, &b))
}

func TestOverlapEquivalence(t *testing.T) {
	a := NewRaw([]Pair{{Dim: 0, Weight: 1}, {Dim: 4, Weight: 1}, {Dim: 8, Weight: 1}})
	b := NewRaw([]Pair{{Dim: 4, Weight: 2}, {Dim: 9, Weight: 1}})

	exists := false
	for _, d := range a.VecIndices() {
		if b.HasDim(d) {
			exists = true
		}
	}
	require.Equal(t, exists, OverlapsWith(&a, &b))
}

func TestCosineBounds(t *testing.T) {
	a := NewRaw([]Pair{{Dim: 0, Weight: 1}, {Dim: 1, Weight: -2}, {Dim: 2, Weight: 3}})
	b := NewRaw([]Pair{{Dim: 0, Weight: -1}, {Dim: 1, Weight: 2}, {Dim: 2, Weight: -3}})

	sim := Similarity(&a, &b)
	require.GreaterOrEqual(t, float64(sim)+1e-4, -1.0)
	require.LessOrEqual(t, float64(sim)-1e-4, 1.0)
	require.InDelta(t, -1.0, sim, 1e-4)
}

func TestHasDimBinarySearch(t *testing.T) {
	v := NewRaw([]Pair{{Dim: 2, Weight: 1}, {Dim: 8, Weight: 1}, {Dim: 16, Weight: 1}})
	require.True(t, v.HasDim(8))
	require.False(t, v.HasDim(9))
}

func TestDeleteDim(t *testing.T) {
	v := NewRaw([]Pair{{Dim: 1, Weight: 1}, {Dim: 2, Weight: 2}, {Dim: 3, Weight: 3}})
	v.DeleteDim(2)
	v.Update()
	require.False(t, v.HasDim(2))
	require.Equal(t, 2, v.Len())
}

func TestLockStepMergeSharedDimensionsOnly(t *testing.T) {
	a := []Pair{{Dim: 0, Weight: 1}, {Dim: 2, Weight: 2}, {Dim: 4, Weight: 3}}
	b := []Pair{{Dim: 2, Weight: 10}, {Dim: 3, Weight: 20}, {Dim: 4, Weight: 30}}

	merge := NewLockStepMerge(a, b)
	var got []LockStepEntry
	for {
		e, ok := merge.Next()
		if !ok {
			break
		}
		got = append(got, e)
	}

	require.Equal(t, []LockStepEntry{
		{Dim: 2, A: 2, B: 10},
		{Dim: 4, A: 3, B: 30},
	}, got)
}

func TestCalcLengthMatchesManualSqrt(t *testing.T) {
	v := NewRaw([]Pair{{Dim: 0, Weight: 1}, {Dim: 1, Weight: 1}, {Dim: 2, Weight: 1}})
	want := math.Sqrt(3)
	require.InDelta(t, want, float64(v.Length()), 1e-4)
}
