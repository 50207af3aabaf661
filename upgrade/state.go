package upgrade

import (
	"github.com/Metalcape/zebra-flyclient/chain"
	"github.com/Metalcape/zebra-flyclient/finalizedstate"
	"github.com/Metalcape/zebra-flyclient/historytree"
	"github.com/Metalcape/zebra-flyclient/network"
)

// State is the part of the finalized state the passes read and write.
// *finalizedstate.DB implements it.
type State interface {
	Network() network.Network
	Block(h chain.Height) (chain.Block, error)
	SaplingRoot(h chain.Height) (chain.Root, error)
	OrchardRoot(h chain.Height) (chain.Root, error)

	// HistoryTree is the trusted history tree as of the tip, nil when the
	// tip is before the first upgrade with a history tree.
	HistoryTree() (*historytree.Tree, error)
	HistoryNode(key finalizedstate.HistoryNodeKey) (historytree.Entry, error)

	NewBatch() *finalizedstate.WriteBatch
	WriteBatch(b *finalizedstate.WriteBatch) error
}

// VersionedState is the finalized state as seen by the Driver.
type VersionedState interface {
	State
	TipHeight() (chain.Height, bool, error)
	FormatVersion() (finalizedstate.FormatVersion, bool, error)
}

var (
	_ State          = (*finalizedstate.DB)(nil)
	_ VersionedState = (*finalizedstate.DB)(nil)
)
