package mmr

// PosPeaks returns the one based positions of the peaks of an MMR of the
// given size, highest (left most) first. It returns nil for size zero and for
// sizes that no sequence of appends produces.
//
//	3            15
//	           /    \
//	          /      \
//	         /        \
//	2       7          14
//	      /   \       /   \
//	1    3     6    10     13      18
//	    / \  /  \   / \   /  \    /  \
//	0  1   2 4   5 8   9 11   12 16   17 19
//
// For size 19 the peaks are [15, 18, 19].
func PosPeaks(mmrSize uint64) []uint64 {
	if mmrSize == 0 {
		return nil
	}

	// a size ending on a left sibling whose parent is missing
	if PosHeight(mmrSize+1) > PosHeight(mmrSize) {
		return nil
	}

	top := uint64(1)
	for (top - 1) <= mmrSize {
		top <<= 1
	}
	top = (top >> 1) - 1
	if top == 0 {
		return nil
	}

	peaks := []uint64{top}
	peak := top
outer:
	for {
		peak = JumpRightSibling(peak)
		for peak > mmrSize {
			p, ok := LeftChild(peak)
			if !ok {
				break outer
			}
			peak = p
		}
		peaks = append(peaks, peak)
	}
	return peaks
}

// Peaks returns the zero based indices of the peaks of an MMR of the given
// size, highest first. See PosPeaks.
func Peaks(mmrSize uint64) []uint64 {
	peaks := PosPeaks(mmrSize)
	for i := range peaks {
		peaks[i]--
	}
	return peaks
}

// IsValidSize is true when mmrSize is the size of an MMR after a whole number
// of leaf appends.
func IsValidSize(mmrSize uint64) bool {
	return mmrSize == 0 || PosPeaks(mmrSize) != nil
}
