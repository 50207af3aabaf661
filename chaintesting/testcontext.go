package chaintesting

import (
	"math/rand"
	"testing"

	"github.com/datatrails/go-datatrails-common/logger"
	"github.com/stretchr/testify/require"

	"github.com/Metalcape/zebra-flyclient/chain"
	"github.com/Metalcape/zebra-flyclient/finalizedstate"
	"github.com/Metalcape/zebra-flyclient/historytree"
	"github.com/Metalcape/zebra-flyclient/network"
)

// TestContext is a finalized state with a generated chain. Blocks are
// finalized one at a time the way a node does, so the tip history tree is
// always the tree of the upgrade the tip is in.
type TestContext struct {
	Log     logger.Logger
	DB      *finalizedstate.DB
	Network network.Network
	T       *testing.T

	// EpochRoots is the root of each upgrade's history tree as of the last
	// block generated in that upgrade.
	EpochRoots map[network.Upgrade]chain.Hash

	rng    *rand.Rand
	tip    chain.Height
	hasTip bool
	prev   chain.Block
	tree   *historytree.Tree
}

type TestConfig struct {
	// We seed the RNG with the provided StartTimeMS. It is normal to force it
	// to some fixed value so that the generated chain is the same from run to
	// run. It is also the time of the genesis block.
	StartTimeMS     int64
	TestLabelPrefix string
	// Activations defaults to DefaultActivations
	Activations map[network.Upgrade]chain.Height
	// DBPath can be "" for an in memory database
	DBPath string
}

// DefaultActivations is a short regtest style schedule with four history
// tree upgrades. Nu6_1 is not scheduled.
func DefaultActivations() map[network.Upgrade]chain.Height {
	return map[network.Upgrade]chain.Height{
		network.Genesis:          0,
		network.BeforeOverwinter: 1,
		network.Overwinter:       2,
		network.Sapling:          3,
		network.Blossom:          4,
		network.Heartwood:        10,
		network.Canopy:           30,
		network.Nu5:              45,
		network.Nu6:              70,
	}
}

// valid compact targets blocks are given, all easy
var testBits = []uint32{0x200f0f0f, 0x1f07ffff, 0x2007ffff}

func NewTestContext(t *testing.T, cfg TestConfig) *TestContext {
	c := &TestContext{
		T:          t,
		EpochRoots: map[network.Upgrade]chain.Hash{},
		rng:        rand.New(rand.NewSource(cfg.StartTimeMS)),
	}
	logger.New("NOOP")
	c.Log = logger.Sugar.WithServiceName(cfg.TestLabelPrefix)

	activations := cfg.Activations
	if activations == nil {
		activations = DefaultActivations()
	}
	var err error
	c.Network, err = network.NewConfigured(cfg.TestLabelPrefix, activations)
	require.NoError(t, err)

	c.DB, err = finalizedstate.Open(c.Log, cfg.DBPath, finalizedstate.WithNetwork(c.Network))
	require.NoError(t, err)
	t.Cleanup(func() { c.DB.Close() })

	c.prev.Time = uint32(cfg.StartTimeMS / 1000)
	return c
}

// Tip returns the height of the last block generated, false before genesis.
func (c *TestContext) Tip() (chain.Height, bool) {
	return c.tip, c.hasTip
}

// TipTree is the history tree as of the tip, nil before Heartwood.
func (c *TestContext) TipTree() *historytree.Tree {
	return c.tree
}

// ExtendChain finalizes blocks from the current tip up to and including tip.
func (c *TestContext) ExtendChain(tip chain.Height) {
	h := chain.Height(0)
	if c.hasTip {
		h = c.tip + 1
	}
	for ; h <= tip; h++ {
		c.finalize(h)
	}
}

// NewChain creates a test context and generates its chain up to tip.
func NewChain(t *testing.T, cfg TestConfig, tip chain.Height) *TestContext {
	c := NewTestContext(t, cfg)
	c.ExtendChain(tip)
	return c
}

func (c *TestContext) finalize(h chain.Height) {
	u := c.Network.UpgradeAt(h)

	b := chain.Block{
		Height:         h,
		PrevHash:       c.prev.Hash,
		Time:           c.prev.Time + 60 + uint32(c.rng.Intn(30)),
		Bits:           testBits[c.rng.Intn(len(testBits))],
		SaplingTxCount: uint64(c.rng.Intn(5)),
	}
	if u.HasOrchard() {
		b.OrchardTxCount = uint64(c.rng.Intn(5))
	}
	b.Hash = chain.HeaderHash(b)

	var sapling, orchard chain.Root
	c.rng.Read(sapling[:])
	if u.HasOrchard() {
		c.rng.Read(orchard[:])
	}

	batch := c.DB.NewBatch()
	batch.PutBlock(b)
	batch.PutSaplingRoot(h, sapling)
	if u.HasOrchard() {
		batch.PutOrchardRoot(h, orchard)
	}

	if u.HasHistoryTree() {
		var err error
		if c.tree == nil || c.tree.Upgrade() != u {
			c.tree, _, err = historytree.New(c.Network, b, sapling, orchard)
		} else {
			_, err = c.tree.Push(b, sapling, orchard)
		}
		require.NoError(c.T, err)

		root, err := c.tree.Hash()
		require.NoError(c.T, err)
		c.EpochRoots[u] = root
		batch.PutHistoryTree(c.tree)
	}
	batch.PutTipHeight(h)
	require.NoError(c.T, c.DB.WriteBatch(batch))

	c.prev = b
	c.tip = h
	c.hasTip = true
}

// DeleteHistoryNode removes a stored history node.
func (c *TestContext) DeleteHistoryNode(key finalizedstate.HistoryNodeKey) {
	batch := c.DB.NewBatch()
	batch.DeleteHistoryNode(key)
	require.NoError(c.T, c.DB.WriteBatch(batch))
}

// ReplaceHistoryNode overwrites a stored history node.
func (c *TestContext) ReplaceHistoryNode(key finalizedstate.HistoryNodeKey, e historytree.Entry) {
	batch := c.DB.NewBatch()
	batch.PutHistoryNode(key, e)
	require.NoError(c.T, c.DB.WriteBatch(batch))
}

// HistoryNodeCounts returns the number of stored history nodes per upgrade.
func (c *TestContext) HistoryNodeCounts() map[network.Upgrade]uint64 {
	counts, err := c.DB.HistoryNodeCounts()
	require.NoError(c.T, err)
	return counts
}
