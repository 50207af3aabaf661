package mmr

import "errors"

var ErrNoPeaks = errors.New("an mmr with no peaks has no root")

// BagPeaks folds the peaks, highest first, into a single root value. The two
// right most values are merged first and the result becomes the right hand
// operand of the next merge to the left:
//
//	merge(p0, merge(p1, merge(p2, p3)))
//
// A single peak is its own root. The merged values are ephemeral and are
// never appended to the mmr.
func BagPeaks(peaks [][]byte, merge func(left []byte, right []byte) ([]byte, error)) ([]byte, error) {
	if len(peaks) == 0 {
		return nil, ErrNoPeaks
	}

	var err error
	root := peaks[len(peaks)-1]
	for i := len(peaks) - 2; i >= 0; i-- {
		if root, err = merge(peaks[i], root); err != nil {
			return nil, err
		}
	}
	return root, nil
}
