package upgrade

import (
	"errors"
	"fmt"

	"github.com/Metalcape/zebra-flyclient/chain"
	"github.com/Metalcape/zebra-flyclient/network"
)

var (
	ErrCancelled    = errors.New("the format upgrade was cancelled")
	ErrCorruption   = errors.New("the finalized state is corrupt")
	ErrPassStarted  = errors.New("the pass has already been started")
	ErrPassFinished = errors.New("a finished pass can not be restarted")
)

// CorruptionError reports a failure that leaves the finalized state unusable
// for the format upgrade. It matches ErrCorruption.
type CorruptionError struct {
	Op     string
	Height chain.Height
	Err    error
}

func (e *CorruptionError) Error() string {
	return fmt.Sprintf("%s at height %d: %v", e.Op, e.Height, e.Err)
}

func (e *CorruptionError) Unwrap() error { return e.Err }

func (e *CorruptionError) Is(target error) bool { return target == ErrCorruption }

func corruption(op string, h chain.Height, err error) error {
	return &CorruptionError{Op: op, Height: h, Err: err}
}

// RootMismatchError is the check result when the history tree rebuilt from
// the stored peaks of an upgrade does not have the expected root.
type RootMismatchError struct {
	Upgrade  network.Upgrade
	Height   chain.Height
	Expected chain.Hash
	Actual   chain.Hash
}

func (e *RootMismatchError) Error() string {
	return fmt.Sprintf("%s history tree at %d: expected root %s, stored nodes give %s",
		e.Upgrade, e.Height, e.Expected, e.Actual)
}

// MissingNodeError is the check result when a peak of an upgrade's history
// tree was never stored, or can not be used to rebuild the tree.
type MissingNodeError struct {
	Upgrade network.Upgrade
	Index   uint64
	Err     error
}

func (e *MissingNodeError) Error() string {
	return fmt.Sprintf("%s history node %d: %v", e.Upgrade, e.Index, e.Err)
}

func (e *MissingNodeError) Unwrap() error { return e.Err }
