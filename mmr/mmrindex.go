package mmr

import "math/bits"

// MMRIndex returns the index of the leaf with the given leaf index. Because
// the leaf is the next node appended to an MMR holding leafIndex leaves, this
// is also the size of that MMR.
func MMRIndex(leafIndex uint64) uint64 {
	sum := uint64(0)
	for leafIndex > 0 {
		h := bits.Len64(leafIndex)
		sum += (1 << h) - 1
		leafIndex -= uint64(1) << (h - 1)
	}
	return sum
}

// SizeForLeafCount returns the number of nodes in an MMR holding leafCount leaves.
func SizeForLeafCount(leafCount uint64) uint64 {
	return MMRIndex(leafCount)
}
