package mmr

// NodeAppender is the storage an MMR is appended to. Get is only ever called
// for the current peaks and for the node appended immediately before, so a
// store holding just the peaks is sufficient.
type NodeAppender interface {
	Get(i uint64) ([]byte, error)
	Append(value []byte) (uint64, error)
}

// Merger returns the value for the interior node at index i given the values
// of its left and right children.
type Merger func(i uint64, left []byte, right []byte) ([]byte, error)

// AddLeaf appends a leaf to the mmr and back fills the interior nodes 'above
// and to the left' that the leaf completes.
//
// Returns the size of the mmr after the addition, which is also the index of
// the next leaf.
func AddLeaf(store NodeAppender, merge Merger, leaf []byte) (uint64, error) {
	var err error
	var i uint64

	height := uint64(0)

	if i, err = store.Append(leaf); err != nil {
		return 0, err
	}

	// i is the index of the next node. If that node would sit higher than the
	// one just added it is the parent of the node just added and the peak to
	// its left.
	//
	//  0 1    <- add 1, index 2 has height 1
	//
	//   2     <- so 2 is appended as the parent of 0 and 1
	//  / \
	// 0   1
	//
	// The same holds after every parent appended, which is what cascades the
	// merges up the tree.
	for IndexHeight(i) > height {
		iRight := i - 1
		iLeft := iRight - SiblingOffset(height)

		var left, right, value []byte
		if left, err = store.Get(iLeft); err != nil {
			return 0, err
		}
		if right, err = store.Get(iRight); err != nil {
			return 0, err
		}
		if value, err = merge(i, left, right); err != nil {
			return 0, err
		}
		if i, err = store.Append(value); err != nil {
			return 0, err
		}
		height++
	}
	return i, nil
}
