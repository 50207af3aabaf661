package historytree

import "errors"

var (
	ErrNoHistoryTree       = errors.New("the network upgrade in effect at this height has no history tree")
	ErrUpgradeMismatch     = errors.New("the block belongs to a different network upgrade than the tree")
	ErrNonContiguousHeight = errors.New("blocks must be pushed in strictly consecutive height order")
	ErrMalformedNode       = errors.New("malformed history node")
	ErrInvalidCache        = errors.New("the cached peaks do not describe a tree of the given size and height")
	ErrHeightNotInTree     = errors.New("the height is not covered by the tree")
	ErrEmptyTree           = errors.New("the history tree is empty")
)
