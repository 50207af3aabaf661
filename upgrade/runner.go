package upgrade

import (
	"errors"
	"fmt"

	"github.com/Metalcape/zebra-flyclient/chain"
	"github.com/Metalcape/zebra-flyclient/finalizedstate"
	"github.com/Metalcape/zebra-flyclient/historytree"
	"github.com/Metalcape/zebra-flyclient/network"
)

// Runner writes the history nodes of every upgrade with a history tree, from
// its activation up to the tip.
type Runner struct {
	opts Options
	pass *Pass
}

// NewRunner returns a Runner for a single pass. Without options it logs to
// the shared service logger and its metrics are not registered.
func NewRunner(opts ...Option) *Runner {
	return &Runner{opts: newOptions(opts), pass: newPass(passRun)}
}

// Pass reports the progress of the run.
func (r *Runner) Pass() *Pass { return r.pass }

// Run back fills the history nodes using a new Runner.
func Run(tip chain.Height, db State, cancel <-chan CancelFormatChange, opts ...Option) error {
	return NewRunner(opts...).Run(tip, db, cancel)
}

// Run clears every stored history node, then replays the blocks of each
// upgrade up to tip and commits all the nodes of that upgrade in one batch.
//
// It returns ErrCancelled when cancelled, in which case the upgrades already
// committed stay written and the one in progress is not. Any other error is a
// CorruptionError.
func (r *Runner) Run(tip chain.Height, db State, cancel <-chan CancelFormatChange) (err error) {
	if err = r.pass.start(); err != nil {
		return err
	}
	defer func() { r.pass.finish(err) }()

	log := r.opts.log
	log.Infof("%s: adding history nodes up to height %d", r.pass, tip)

	batch := db.NewBatch()
	batch.ClearHistoryNodes()
	if err = db.WriteBatch(batch); err != nil {
		return corruption("clear history nodes", tip, err)
	}

	trusted, err := db.HistoryTree()
	if err != nil {
		return corruption("read the tip history tree", tip, err)
	}
	if trusted == nil {
		log.Infof("%s: the tip is before the first history tree, nothing to add", r.pass)
		return nil
	}

	epochs := network.HistoryEpochs(db.Network())
	for i, epoch := range epochs {
		if !epoch.Active || tip < epoch.Height {
			break
		}
		if cancelled(cancel) {
			return r.cancelled()
		}

		last := network.EpochEnd(epochs, i, tip)
		if err = r.runEpoch(db, epoch, last, cancel); err != nil {
			if errors.Is(err, ErrCancelled) {
				return r.cancelled()
			}
			return err
		}

		if cancelled(cancel) {
			return r.cancelled()
		}
	}

	log.Infof("%s: history nodes added up to height %d", r.pass, tip)
	return nil
}

// runEpoch writes the nodes of one upgrade's history tree, atomically
func (r *Runner) runEpoch(db State, epoch network.EpochActivation, last chain.Height, cancel <-chan CancelFormatChange) error {
	r.opts.log.Infof("%s: rebuilding the %s history tree, heights %d to %d", r.pass, epoch.Upgrade, epoch.Height, last)

	batch := db.NewBatch()
	var next uint64
	stage := func(e historytree.Entry) error {
		// stored indices are dense and equal the mmr index
		if e.Index != next {
			return corruption("stage history node", last,
				fmt.Errorf("%s node %d produced where %d was expected", epoch.Upgrade, e.Index, next))
		}
		batch.PutHistoryNode(finalizedstate.HistoryNodeKey{Upgrade: epoch.Upgrade, Index: next}, e)
		next++
		return nil
	}

	rp := replayer{opts: &r.opts, pass: r.pass, db: db}
	if _, err := rp.replay(epoch, last, cancel, stage); err != nil {
		return err
	}

	if err := db.WriteBatch(batch); err != nil {
		return corruption("commit history nodes", last, err)
	}
	r.opts.metrics.NodesWritten.Add(float64(next))
	r.opts.metrics.EpochsCompleted.WithLabelValues(passRun).Inc()
	r.opts.log.Infof("%s: committed %d %s history nodes", r.pass, next, epoch.Upgrade)
	return nil
}

func (r *Runner) cancelled() error {
	r.opts.log.Infof("%s: cancelled", r.pass)
	return ErrCancelled
}
