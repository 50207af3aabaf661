package mmr

import (
	"math"
	"math/bits"
)

// LeafCount returns the number of leaves in an MMR of the given size.
//
// For sizes that are not valid (an append was interrupted before all its
// interior nodes were added) the count for the largest valid size below it is
// returned.
func LeafCount(mmrSize uint64) uint64 {
	return PeaksBitmap(mmrSize)
}

// PeaksBitmap returns a bit per peak, set at the bit for the peak's height.
// Read as an integer this is the leaf count: appending a leaf is a binary
// increment where a carry merges two equal peaks.
func PeaksBitmap(mmrSize uint64) uint64 {
	if mmrSize == 0 {
		return 0
	}
	pos := mmrSize
	peakSize := uint64(math.MaxUint64) >> bits.LeadingZeros64(mmrSize)
	peakMap := uint64(0)
	for peakSize > 0 {
		peakMap <<= 1
		if pos >= peakSize {
			pos -= peakSize
			peakMap |= 1
		}
		peakSize >>= 1
	}
	return peakMap
}
