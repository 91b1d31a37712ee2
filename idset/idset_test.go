package idset

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAddDedupsAndSorts(t *testing.T) {
	s := FromSlice([]uint32{5, 1, 5, 3, 1})
	require.Equal(t, 3, s.Cardinality())
	require.Equal(t, []uint32{1, 3, 5}, s.Sorted())
}

func TestContains(t *testing.T) {
	s := New()
	s.Add(70000) // forces a non-zero high bucket
	require.True(t, s.Contains(70000))
	require.False(t, s.Contains(70001))
}

func TestConvertsToBitmapPastThreshold(t *testing.T) {
	s := New()
	for i := uint32(0); i < conversionThreshold+10; i++ {
		s.Add(i)
	}
	require.Equal(t, conversionThreshold+10, s.Cardinality())

	bc, ok := s.buckets[0].(*bitmapContainer)
	require.True(t, ok, "bucket should have converted to a bitmap container")
	require.Equal(t, conversionThreshold+10, bc.cardinality())
	require.True(t, s.Contains(0))
	require.True(t, s.Contains(conversionThreshold+9))
}

func TestSortedAcrossBuckets(t *testing.T) {
	s := FromSlice([]uint32{1<<16 + 5, 2, 1<<16 + 1, 1})
	require.Equal(t, []uint32{1, 2, 1<<16 + 1, 1<<16 + 5}, s.Sorted())
}
