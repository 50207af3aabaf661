package upgrade

import (
	"github.com/Metalcape/zebra-flyclient/chain"
	"github.com/Metalcape/zebra-flyclient/historytree"
	"github.com/Metalcape/zebra-flyclient/network"
)

// replayer rebuilds the history tree of one upgrade from the finalized
// blocks. Run and Check replay identically, they only differ in what they do
// with the entries.
type replayer struct {
	opts *Options
	pass *Pass
	db   State
}

// replay pushes the blocks epoch.Height..last into a new tree, handing every
// entry produced to emit, when emit is not nil. Cancellation is polled before
// every block after the first.
func (r replayer) replay(
	epoch network.EpochActivation, last chain.Height,
	cancel <-chan CancelFormatChange, emit func(historytree.Entry) error,
) (*historytree.Tree, error) {
	var tree *historytree.Tree
	var entries []historytree.Entry

	blocks := r.opts.metrics.BlocksReplayed.WithLabelValues(r.pass.Kind())
	height := r.opts.metrics.Height.WithLabelValues(r.pass.Kind())

	for h := epoch.Height; h <= last; {
		if h > epoch.Height && cancelled(cancel) {
			return nil, ErrCancelled
		}

		b, err := r.db.Block(h)
		if err != nil {
			return nil, corruption("read block", h, err)
		}
		sapling, err := r.db.SaplingRoot(h)
		if err != nil {
			return nil, corruption("read sapling root", h, err)
		}
		orchard, err := r.db.OrchardRoot(h)
		if err != nil {
			return nil, corruption("read orchard root", h, err)
		}

		if tree == nil {
			tree, entries, err = historytree.New(r.db.Network(), b, sapling, orchard)
		} else {
			entries, err = tree.Push(b, sapling, orchard)
		}
		if err != nil {
			return nil, corruption("push block into the history tree", h, err)
		}

		if emit != nil {
			for _, e := range entries {
				if err = emit(e); err != nil {
					return nil, err
				}
			}
		}

		blocks.Inc()
		height.Set(float64(h))
		if (h-epoch.Height+1)%chain.Height(r.opts.progressInterval) == 0 {
			r.opts.log.Infof("%s: %s history tree at height %d of %d", r.pass, epoch.Upgrade, h, last)
		}

		if h == last {
			break
		}
		next, err := h.Next()
		if err != nil {
			return nil, corruption("advance past block", h, err)
		}
		h = next
	}
	return tree, nil
}
