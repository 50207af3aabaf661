package historytree

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Metalcape/zebra-flyclient/chain"
	"github.com/Metalcape/zebra-flyclient/network"
)

const (
	testHeartwood chain.Height = 5
	testCanopy    chain.Height = 40
	testNu5       chain.Height = 60
	// regtest pow limit, each block has work 17
	testBits uint32 = 0x200f0f0f
)

func testNetwork(t *testing.T) network.Network {
	t.Helper()
	n, err := network.NewConfigured("historytest", map[network.Upgrade]chain.Height{
		network.Genesis:          0,
		network.BeforeOverwinter: 1,
		network.Overwinter:       2,
		network.Sapling:          3,
		network.Blossom:          4,
		network.Heartwood:        testHeartwood,
		network.Canopy:           testCanopy,
		network.Nu5:              testNu5,
	})
	require.NoError(t, err)
	return n
}

func testBlock(h chain.Height) chain.Block {
	b := chain.Block{
		Height:         h,
		Time:           1_600_000_000 + uint32(h)*75,
		Bits:           testBits,
		SaplingTxCount: uint64(h % 3),
		OrchardTxCount: uint64(h % 2),
	}
	binary.LittleEndian.PutUint32(b.PrevHash[:], uint32(h)-1)
	b.Hash = chain.HeaderHash(b)
	return b
}

func testRoots(h chain.Height) (chain.Root, chain.Root) {
	var sapling, orchard chain.Root
	binary.BigEndian.PutUint32(sapling[:], uint32(h))
	sapling[31] = 's'
	binary.BigEndian.PutUint32(orchard[:], uint32(h))
	orchard[31] = 'o'
	return sapling, orchard
}

// buildTree pushes the blocks start..last and returns every entry produced,
// keyed by index.
func buildTree(t *testing.T, n network.Network, start, last chain.Height) (*Tree, map[uint64]Entry) {
	t.Helper()
	all := map[uint64]Entry{}

	sapling, orchard := testRoots(start)
	tree, entries, err := New(n, testBlock(start), sapling, orchard)
	require.NoError(t, err)
	for _, e := range entries {
		all[e.Index] = e
	}
	for h := start + 1; h <= last; h++ {
		sapling, orchard := testRoots(h)
		entries, err := tree.Push(testBlock(h), sapling, orchard)
		require.NoError(t, err)
		for _, e := range entries {
			all[e.Index] = e
		}
	}
	return tree, all
}
