package upgrade

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Metalcape/zebra-flyclient/chain"
	"github.com/Metalcape/zebra-flyclient/chaintesting"
	"github.com/Metalcape/zebra-flyclient/finalizedstate"
	"github.com/Metalcape/zebra-flyclient/historytree"
	"github.com/Metalcape/zebra-flyclient/mmr"
	"github.com/Metalcape/zebra-flyclient/network"
)

func TestCheckAfterRun(t *testing.T) {
	for _, tip := range []chain.Height{heartwood - 1, heartwood, heartwood + 10, canopy - 1, canopy, nu5 + 1, nu6 + 20} {
		c := newTestChain(t, tip)
		require.NoError(t, Run(tip, c.DB, nil, testOptions(t)...))

		state := chaintesting.NewTestStateCounter(c.DB)
		v := NewVerifier(testOptions(t)...)
		verifyErr, err := v.Check(tip, state, nil)
		require.NoError(t, err, "tip %d", tip)
		assert.NoError(t, verifyErr, "tip %d", tip)
		assert.Equal(t, Completed, v.Pass().State())

		// the check never writes
		assert.Zero(t, state.MethodCallCount("NewBatch"))
		assert.Zero(t, state.MethodCallCount("WriteBatch"))
	}
}

func TestCheckLastUpgradeWithoutSuccessor(t *testing.T) {
	tip := nu6_1 + 13
	c := newNu6_1Chain(t, tip)
	require.NoError(t, Run(tip, c.DB, nil, testOptions(t)...))

	// at the tip, and on the last Nu6 block
	for _, h := range []chain.Height{tip, nu6_1 - 1} {
		verifyErr, err := Check(h, c.DB, nil, testOptions(t)...)
		require.NoError(t, err, "height %d", h)
		assert.NoError(t, verifyErr, "height %d", h)
	}

	// Nu6_1 has 14 leaves, its peaks are at 14, 21 and 24
	peaks := mmr.Peaks(mmr.SizeForLeafCount(uint64(tip-nu6_1) + 1))
	require.Equal(t, []uint64{14, 21, 24}, peaks)
	c.DeleteHistoryNode(finalizedstate.HistoryNodeKey{Upgrade: network.Nu6_1, Index: 24})

	verifyErr, err := Check(tip, c.DB, nil, testOptions(t)...)
	require.NoError(t, err)
	var missing *MissingNodeError
	require.True(t, errors.As(verifyErr, &missing))
	assert.Equal(t, network.Nu6_1, missing.Upgrade)
	assert.Equal(t, uint64(24), missing.Index)

	// below Nu6_1 its nodes are never read
	verifyErr, err = Check(nu6_1-1, c.DB, nil, testOptions(t)...)
	require.NoError(t, err)
	assert.NoError(t, verifyErr)
}

func TestCheckWithoutRun(t *testing.T) {
	c := newTestChain(t, canopy+4)

	verifyErr, err := Check(canopy+4, c.DB, nil, testOptions(t)...)
	require.NoError(t, err)

	var missing *MissingNodeError
	require.True(t, errors.As(verifyErr, &missing))
	assert.Equal(t, network.Heartwood, missing.Upgrade)
	assert.ErrorIs(t, missing, finalizedstate.ErrNotFound)
}

func TestCheckMissingPeak(t *testing.T) {
	tip := nu5 + 6
	c := newTestChain(t, tip)
	require.NoError(t, Run(tip, c.DB, nil, testOptions(t)...))

	// canopy has 15 leaves, its peaks are at 14, 21, 24 and 25
	peaks := mmr.Peaks(mmr.SizeForLeafCount(uint64(nu5 - canopy)))
	require.Equal(t, []uint64{14, 21, 24, 25}, peaks)
	c.DeleteHistoryNode(finalizedstate.HistoryNodeKey{Upgrade: network.Canopy, Index: 21})

	verifyErr, err := Check(tip, c.DB, nil, testOptions(t)...)
	require.NoError(t, err)
	var missing *MissingNodeError
	require.True(t, errors.As(verifyErr, &missing))
	assert.Equal(t, network.Canopy, missing.Upgrade)
	assert.Equal(t, uint64(21), missing.Index)

	// nodes that are not peaks are not read
	c = newTestChain(t, tip)
	require.NoError(t, Run(tip, c.DB, nil, testOptions(t)...))
	c.DeleteHistoryNode(finalizedstate.HistoryNodeKey{Upgrade: network.Canopy, Index: 3})
	verifyErr, err = Check(tip, c.DB, nil, testOptions(t)...)
	require.NoError(t, err)
	assert.NoError(t, verifyErr)
}

func TestCheckAlteredPeak(t *testing.T) {
	tip := nu6 + 3
	c := newTestChain(t, tip)
	require.NoError(t, Run(tip, c.DB, nil, testOptions(t)...))

	key := finalizedstate.HistoryNodeKey{Upgrade: network.Nu5, Index: 30}
	stored, err := c.DB.HistoryNode(key)
	require.NoError(t, err)
	node, err := historytree.UnmarshalNode(historytree.V2, stored.Data)
	require.NoError(t, err)
	node.OrchardTxCount++
	c.ReplaceHistoryNode(key, historytree.Entry{Index: key.Index, Data: node.MarshalBinary()})

	verifyErr, err := Check(tip, c.DB, nil, testOptions(t)...)
	require.NoError(t, err)
	var mismatch *RootMismatchError
	require.True(t, errors.As(verifyErr, &mismatch))
	assert.Equal(t, network.Nu5, mismatch.Upgrade)
	assert.Equal(t, nu6-1, mismatch.Height)
	assert.Equal(t, c.EpochRoots[network.Nu5], mismatch.Expected)
	assert.NotEqual(t, mismatch.Expected, mismatch.Actual)
}

func TestCheckUntrustedTip(t *testing.T) {
	tip := canopy + 6
	c := newTestChain(t, tip)
	require.NoError(t, Run(tip, c.DB, nil, testOptions(t)...))

	// replace the trusted tip tree with one over different roots
	var tree *historytree.Tree
	for h := canopy; h <= tip; h++ {
		b, err := c.DB.Block(h)
		require.NoError(t, err)
		if tree == nil {
			tree, _, err = historytree.New(c.Network, b, chain.Root{}, chain.Root{})
		} else {
			_, err = tree.Push(b, chain.Root{}, chain.Root{})
		}
		require.NoError(t, err)
	}
	batch := c.DB.NewBatch()
	batch.PutHistoryTree(tree)
	require.NoError(t, c.DB.WriteBatch(batch))

	verifyErr, err := Check(tip, c.DB, nil, testOptions(t)...)
	require.NoError(t, err)
	var mismatch *RootMismatchError
	require.True(t, errors.As(verifyErr, &mismatch))
	assert.Equal(t, network.Canopy, mismatch.Upgrade)
	assert.Equal(t, tip, mismatch.Height)
}

func TestCheckCancelled(t *testing.T) {
	tip := nu5 + 2
	c := newTestChain(t, tip)
	require.NoError(t, Run(tip, c.DB, nil, testOptions(t)...))

	cancel := NewCancelChannel()
	state := chaintesting.NewTestStateCounter(c.DB)
	state.OnBlock = func(h chain.Height) {
		if h == canopy+1 {
			cancel <- CancelFormatChange{}
		}
	}

	v := NewVerifier(testOptions(t)...)
	verifyErr, err := v.Check(tip, state, cancel)
	assert.ErrorIs(t, err, ErrCancelled)
	assert.NoError(t, verifyErr)
	assert.Equal(t, Cancelled, v.Pass().State())
}

func TestCheckCorruption(t *testing.T) {
	tip := canopy + 2
	c := newTestChain(t, tip)
	require.NoError(t, Run(tip, c.DB, nil, testOptions(t)...))

	state := chaintesting.NewTestStateCounter(c.DB)
	failAt := heartwood + 4
	state.FailBlockAt = &failAt

	_, err := Check(tip, state, nil, testOptions(t)...)
	require.ErrorIs(t, err, ErrCorruption)
	var corrupt *CorruptionError
	require.True(t, errors.As(err, &corrupt))
	assert.Equal(t, failAt, corrupt.Height)
}
