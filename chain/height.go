package chain

import (
	"errors"
	"fmt"
)

// Height is the position of a block in the best chain, genesis is zero.
type Height uint32

// MaxHeight is the largest height a block can have.
const MaxHeight Height = (1 << 31) - 1

var ErrHeightRange = errors.New("height out of range")

// Next returns the height after h.
func (h Height) Next() (Height, error) {
	if h >= MaxHeight {
		return 0, fmt.Errorf("%w: no height after %d", ErrHeightRange, h)
	}
	return h + 1, nil
}

// Prev returns the height before h.
func (h Height) Prev() (Height, error) {
	if h == 0 {
		return 0, fmt.Errorf("%w: no height before genesis", ErrHeightRange)
	}
	return h - 1, nil
}
