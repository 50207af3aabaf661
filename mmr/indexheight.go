package mmr

// JumpLeftPerfect moves a one based position onto the equivalent node of the
// perfect tree immediately to its left.
func JumpLeftPerfect(pos uint64) uint64 {
	msb := uint64(1) << (BitLength64(pos) - 1)
	return pos - (msb - 1)
}

// PosHeight returns the zero based height of the one based position pos.
func PosHeight(pos uint64) uint64 {
	for !AllOnes(pos) {
		pos = JumpLeftPerfect(pos)
	}
	return BitLength64(pos) - 1
}

// IndexHeight returns the zero based height of the node at index i.
func IndexHeight(i uint64) uint64 {
	return PosHeight(i + 1)
}

// JumpRightSibling returns the position of the right sibling of pos. pos must
// be a left child.
func JumpRightSibling(pos uint64) uint64 {
	return pos + (1 << (PosHeight(pos) + 1)) - 1
}

// LeftChild returns the position of the left child of pos, false for leaves.
func LeftChild(pos uint64) (uint64, bool) {
	height := PosHeight(pos)
	if height == 0 {
		return 0, false
	}
	return pos - (1 << height), true
}

// SiblingOffset is the distance between a left child at the given height and
// its right sibling.
func SiblingOffset(height uint64) uint64 {
	return (2 << height) - 1
}
