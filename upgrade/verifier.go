package upgrade

import (
	"errors"
	"fmt"

	"github.com/Metalcape/zebra-flyclient/chain"
	"github.com/Metalcape/zebra-flyclient/finalizedstate"
	"github.com/Metalcape/zebra-flyclient/historytree"
	"github.com/Metalcape/zebra-flyclient/network"
)

// Verifier checks the history nodes written by a Runner. It never writes.
type Verifier struct {
	opts Options
	pass *Pass
}

// NewVerifier returns a Verifier for a single pass.
func NewVerifier(opts ...Option) *Verifier {
	return &Verifier{opts: newOptions(opts), pass: newPass(passCheck)}
}

// Pass reports the progress of the check.
func (v *Verifier) Pass() *Pass { return v.pass }

// Check verifies the history nodes using a new Verifier. See Verifier.Check
// for the meaning of the two errors.
func Check(tip chain.Height, db State, cancel <-chan CancelFormatChange, opts ...Option) (verifyErr error, err error) {
	return NewVerifier(opts...).Check(tip, db, cancel)
}

// Check rebuilds the history tree of each upgrade up to tip from the blocks,
// then rebuilds it a second time from just the stored nodes at its peaks, and
// compares the roots. The tree of the upgrade the tip is in must also match
// the trusted tip history tree.
//
// verifyErr is nil when every upgrade checks out, otherwise a
// *RootMismatchError or *MissingNodeError for the first that does not. err is
// ErrCancelled or a CorruptionError, in which case verifyErr is meaningless.
func (v *Verifier) Check(tip chain.Height, db State, cancel <-chan CancelFormatChange) (verifyErr error, err error) {
	if err = v.pass.start(); err != nil {
		return nil, err
	}
	defer func() { v.pass.finish(err) }()

	log := v.opts.log
	log.Infof("%s: checking history nodes up to height %d", v.pass, tip)

	if cancelled(cancel) {
		return nil, v.cancelled()
	}
	trusted, err := db.HistoryTree()
	if err != nil {
		return nil, corruption("read the tip history tree", tip, err)
	}
	if trusted == nil {
		log.Infof("%s: the tip is before the first history tree, nothing to check", v.pass)
		return nil, nil
	}

	epochs := network.HistoryEpochs(db.Network())
	for i, epoch := range epochs {
		if !epoch.Active || tip < epoch.Height {
			break
		}
		if cancelled(cancel) {
			return nil, v.cancelled()
		}

		last := network.EpochEnd(epochs, i, tip)
		verifyErr, err = v.checkEpoch(db, trusted, epoch, last, cancel)
		if errors.Is(err, ErrCancelled) {
			return nil, v.cancelled()
		}
		if err != nil {
			return nil, err
		}
		if verifyErr != nil {
			v.opts.metrics.Mismatches.Inc()
			log.Infof("%s: %v", v.pass, verifyErr)
			return verifyErr, nil
		}

		if cancelled(cancel) {
			return nil, v.cancelled()
		}
	}

	log.Infof("%s: history nodes up to height %d are valid", v.pass, tip)
	return nil, nil
}

func (v *Verifier) checkEpoch(
	db State, trusted *historytree.Tree, epoch network.EpochActivation, last chain.Height,
	cancel <-chan CancelFormatChange,
) (verifyErr error, err error) {
	rp := replayer{opts: &v.opts, pass: v.pass, db: db}
	expected, err := rp.replay(epoch, last, cancel, nil)
	if err != nil {
		return nil, err
	}
	expectedRoot, err := expected.Hash()
	if err != nil {
		return nil, corruption("hash the rebuilt history tree", last, err)
	}

	// the tree the tip is in must be the one the node trusts
	if trusted.Upgrade() == epoch.Upgrade && trusted.CurrentHeight() == last {
		trustedRoot, err := trusted.Hash()
		if err != nil {
			return nil, corruption("hash the tip history tree", last, err)
		}
		if trustedRoot != expectedRoot {
			return &RootMismatchError{Upgrade: epoch.Upgrade, Height: last, Expected: trustedRoot, Actual: expectedRoot}, nil
		}
	}

	if cancelled(cancel) {
		return nil, ErrCancelled
	}

	indices, err := expected.PeaksAt(last)
	if err != nil {
		return nil, corruption("find the history tree peaks", last, err)
	}
	peaks := make([]historytree.Entry, 0, len(indices))
	for _, i := range indices {
		e, err := db.HistoryNode(finalizedstate.HistoryNodeKey{Upgrade: epoch.Upgrade, Index: i})
		if errors.Is(err, finalizedstate.ErrNotFound) || errors.Is(err, finalizedstate.ErrMalformedRecord) {
			return &MissingNodeError{Upgrade: epoch.Upgrade, Index: i, Err: err}, nil
		}
		if err != nil {
			return nil, corruption("read history node", last, err)
		}
		peaks = append(peaks, e)
	}

	cached, err := historytree.FromCache(db.Network(), epoch.Upgrade, expected.Size(), peaks, last)
	if err != nil {
		return &MissingNodeError{Upgrade: epoch.Upgrade, Index: indices[0], Err: fmt.Errorf("the stored peaks are unusable: %w", err)}, nil
	}
	actualRoot, err := cached.Hash()
	if err != nil {
		return &MissingNodeError{Upgrade: epoch.Upgrade, Index: indices[0], Err: err}, nil
	}
	if actualRoot != expectedRoot {
		return &RootMismatchError{Upgrade: epoch.Upgrade, Height: last, Expected: expectedRoot, Actual: actualRoot}, nil
	}

	v.opts.metrics.EpochsCompleted.WithLabelValues(passCheck).Inc()
	v.opts.log.Infof("%s: %s history tree root %s matches", v.pass, epoch.Upgrade, expectedRoot)
	return nil, nil
}

func (v *Verifier) cancelled() error {
	v.opts.log.Infof("%s: cancelled", v.pass)
	return ErrCancelled
}
