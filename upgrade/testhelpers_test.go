package upgrade

import (
	"testing"

	"github.com/datatrails/go-datatrails-common/logger"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	"github.com/Metalcape/zebra-flyclient/chain"
	"github.com/Metalcape/zebra-flyclient/chaintesting"
	"github.com/Metalcape/zebra-flyclient/finalizedstate"
	"github.com/Metalcape/zebra-flyclient/historytree"
	"github.com/Metalcape/zebra-flyclient/mmr"
	"github.com/Metalcape/zebra-flyclient/network"
)

// default schedule heights, see chaintesting.DefaultActivations
const (
	heartwood chain.Height = 10
	canopy    chain.Height = 30
	nu5       chain.Height = 45
	nu6       chain.Height = 70
)

// nu6_1 activates in the chains of newNu6_1Chain
const nu6_1 chain.Height = 80

func newTestChain(t *testing.T, tip chain.Height) *chaintesting.TestContext {
	return chaintesting.NewChain(t, chaintesting.TestConfig{
		StartTimeMS:     1_700_000_000_000,
		TestLabelPrefix: "historynodes",
	}, tip)
}

// newNu6_1Chain is newTestChain with Nu6_1 also scheduled, so Nu6 ends
// before the tip and the last tree has no following upgrade.
func newNu6_1Chain(t *testing.T, tip chain.Height) *chaintesting.TestContext {
	activations := chaintesting.DefaultActivations()
	activations[network.Nu6_1] = nu6_1
	return chaintesting.NewChain(t, chaintesting.TestConfig{
		StartTimeMS:     1_700_000_000_000,
		TestLabelPrefix: "historynodes",
		Activations:     activations,
	}, tip)
}

func testOptions(t *testing.T) []Option {
	logger.New("NOOP")
	return []Option{
		WithLogger(logger.Sugar.WithServiceName(t.Name())),
		WithRegisterer(prometheus.NewRegistry()),
		WithProgressInterval(7),
	}
}

// leavesIn returns the number of blocks of the upgrade starting at start
// that are at or below tip, given the height the next upgrade starts at.
func leavesIn(start, next, tip chain.Height) uint64 {
	last := min(next-1, tip)
	if tip < start {
		return 0
	}
	return uint64(last-start) + 1
}

// expectedCounts is the number of history nodes each upgrade has for the
// default schedule and the given tip.
func expectedCounts(tip chain.Height) map[network.Upgrade]uint64 {
	counts := map[network.Upgrade]uint64{}
	for _, e := range []struct {
		u           network.Upgrade
		start, next chain.Height
	}{
		{network.Heartwood, heartwood, canopy},
		{network.Canopy, canopy, nu5},
		{network.Nu5, nu5, nu6},
		{network.Nu6, nu6, chain.MaxHeight},
	} {
		if leaves := leavesIn(e.start, e.next, tip); leaves > 0 {
			counts[e.u] = mmr.SizeForLeafCount(leaves)
		}
	}
	return counts
}

// requireDense checks the stored indices of u are exactly 0..n-1
func requireDense(t *testing.T, db *finalizedstate.DB, u network.Upgrade, n uint64) []historytree.Entry {
	t.Helper()
	entries, err := db.HistoryNodes(u)
	require.NoError(t, err)
	require.Len(t, entries, int(n))
	for i, e := range entries {
		require.Equal(t, uint64(i), e.Index, "%s", u)
	}
	return entries
}

// storedRoot rebuilds the tree of u from its stored peaks
func storedRoot(t *testing.T, c *chaintesting.TestContext, u network.Upgrade, size uint64, last chain.Height) chain.Hash {
	t.Helper()
	var peaks []historytree.Entry
	for _, i := range mmr.Peaks(mmr.SizeForLeafCount(size)) {
		e, err := c.DB.HistoryNode(finalizedstate.HistoryNodeKey{Upgrade: u, Index: i})
		require.NoError(t, err)
		peaks = append(peaks, e)
	}
	tree, err := historytree.FromCache(c.Network, u, size, peaks, last)
	require.NoError(t, err)
	root, err := tree.Hash()
	require.NoError(t, err)
	return root
}
