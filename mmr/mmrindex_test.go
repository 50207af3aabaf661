package mmr

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMMRIndex(t *testing.T) {
	// leaf index -> node index, for the first twenty one leaves
	expected := []uint64{0, 1, 3, 4, 7, 8, 10, 11, 15, 16, 18, 19, 22, 23, 25, 26, 31, 32, 34, 35, 38}
	for leafIndex, want := range expected {
		assert.Equal(t, want, MMRIndex(uint64(leafIndex)), "leaf %d", leafIndex)
	}
}

func TestSizeForLeafCount(t *testing.T) {
	tests := []struct {
		leaves uint64
		size   uint64
	}{
		{0, 0},
		{1, 1},
		{2, 3},
		{3, 4},
		{4, 7},
		{6, 10},
		{10, 18},
		{11, 19},
		{14, 25},
		{15, 26},
		{16, 31},
		{20, 38},
		{64, 127},
	}
	for _, tt := range tests {
		size := SizeForLeafCount(tt.leaves)
		assert.Equal(t, tt.size, size, "leaves %d", tt.leaves)
		assert.True(t, IsValidSize(size), "size %d", size)
		assert.Equal(t, tt.leaves, LeafCount(size), "size %d", size)
	}
}

func TestSizeForLeafCountSkipsInteriorSizes(t *testing.T) {
	// between two consecutive leaf counts every size is a partial append
	for leaves := uint64(1); leaves < 40; leaves++ {
		from, to := SizeForLeafCount(leaves), SizeForLeafCount(leaves+1)
		for size := from + 1; size < to; size++ {
			assert.False(t, IsValidSize(size), "size %d", size)
		}
	}
}
