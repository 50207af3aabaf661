package finalizedstate

import "errors"

var (
	ErrNotFound        = errors.New("record not found in the finalized state")
	ErrNetworkMismatch = errors.New("the database was created for a different network")
	ErrMalformedKey    = errors.New("malformed finalized state key")
	ErrMalformedRecord = errors.New("malformed finalized state record")
	ErrNoBranchID      = errors.New("history nodes can only be keyed for upgrades with a consensus branch id")
	ErrBatchFailed     = errors.New("a write staged in the batch failed")
)
