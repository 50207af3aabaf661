package historytree

import (
	"fmt"
	"maps"

	"github.com/Metalcape/zebra-flyclient/chain"
	"github.com/Metalcape/zebra-flyclient/mmr"
	"github.com/Metalcape/zebra-flyclient/network"
)

// Entry is a node of the history tree at its mmr index within its upgrade.
type Entry struct {
	Index uint64
	Data  []byte
	Hash  chain.Hash
}

// Tree is the history tree of a single network upgrade. A nil *Tree is the
// empty tree, which has no root.
type Tree struct {
	network network.Network
	upgrade network.Upgrade
	branch  network.BranchID
	version Version

	// size is the number of leaves, height the height of the last leaf
	size   uint64
	height chain.Height

	// peaks maps the mmr index of each current peak to its serialized node
	peaks map[uint64][]byte
}

// New starts the history tree for the upgrade in effect at b.Height with b
// as its first leaf. The entries are every node the first block produces,
// which is always just the leaf at index 0.
func New(n network.Network, b chain.Block, saplingRoot chain.Root, orchardRoot chain.Root) (*Tree, []Entry, error) {
	u := n.UpgradeAt(b.Height)
	branch, err := branchFor(u)
	if err != nil {
		return nil, nil, fmt.Errorf("block %d: %w", b.Height, err)
	}
	t := &Tree{
		network: n,
		upgrade: u,
		branch:  branch,
		version: VersionFor(u),
		peaks:   map[uint64][]byte{},
	}
	entries, err := t.appendLeaf(b, saplingRoot, orchardRoot)
	if err != nil {
		return nil, nil, err
	}
	t.size = 1
	t.height = b.Height
	return t, entries, nil
}

// FromCache rebuilds a tree from the peaks of a tree holding size leaves, the
// last of which is at height. peaks must be exactly the peak entries of that
// tree, in any order.
func FromCache(n network.Network, u network.Upgrade, size uint64, peaks []Entry, height chain.Height) (*Tree, error) {
	branch, err := branchFor(u)
	if err != nil {
		return nil, err
	}
	if size == 0 {
		return nil, fmt.Errorf("%w: no leaves", ErrInvalidCache)
	}
	if got := n.UpgradeAt(height); got != u {
		return nil, fmt.Errorf("%w: height %d is in %s, not %s", ErrUpgradeMismatch, height, got, u)
	}

	t := &Tree{
		network: n,
		upgrade: u,
		branch:  branch,
		version: VersionFor(u),
		size:    size,
		height:  height,
		peaks:   make(map[uint64][]byte, len(peaks)),
	}
	for _, e := range peaks {
		t.peaks[e.Index] = e.Data
	}

	mmrSize := mmr.SizeForLeafCount(size)
	want := mmr.Peaks(mmrSize)
	if len(t.peaks) != len(want) || len(peaks) != len(want) {
		return nil, fmt.Errorf("%w: %d peaks given, a tree of %d leaves has %d", ErrInvalidCache, len(peaks), size, len(want))
	}

	// the peaks must tile the leaves, oldest first, ending at height. Each
	// peak covers a perfect subtree, so its leaf count is the bit of the
	// peaks bitmap for its height.
	var bitmap uint64
	var next uint64
	for i, index := range want {
		data, ok := t.peaks[index]
		if !ok {
			return nil, fmt.Errorf("%w: peak %d missing", ErrInvalidCache, index)
		}
		node, err := UnmarshalNode(t.version, data)
		if err != nil {
			return nil, fmt.Errorf("peak %d: %w", index, err)
		}
		if i > 0 && node.StartHeight != next {
			return nil, fmt.Errorf("%w: peak %d starts at %d, expected %d", ErrInvalidCache, index, node.StartHeight, next)
		}
		if leaves := uint64(1) << mmr.IndexHeight(index); node.LeafCount() != leaves {
			return nil, fmt.Errorf("%w: peak %d covers %d leaves, expected %d", ErrInvalidCache, index, node.LeafCount(), leaves)
		}
		bitmap |= node.LeafCount()
		next = node.EndHeight + 1
	}
	if bitmap != mmr.PeaksBitmap(mmrSize) || mmr.LeafCount(mmrSize) != size || next != uint64(height)+1 {
		return nil, fmt.Errorf("%w: peaks cover %d leaves ending at %d", ErrInvalidCache, bitmap, next-1)
	}
	return t, nil
}

// Push appends block b, which must be the block after the current tip of the
// tree and in the same upgrade. It returns the leaf and every interior node
// the leaf completes, lowest index first. The tree is unchanged on error.
func (t *Tree) Push(b chain.Block, saplingRoot chain.Root, orchardRoot chain.Root) ([]Entry, error) {
	if uint64(b.Height) != uint64(t.height)+1 {
		return nil, fmt.Errorf("%w: tree ends at %d, got %d", ErrNonContiguousHeight, t.height, b.Height)
	}
	if u := t.network.UpgradeAt(b.Height); u != t.upgrade {
		return nil, fmt.Errorf("%w: block %d is in %s, the tree is %s", ErrUpgradeMismatch, b.Height, u, t.upgrade)
	}

	saved := maps.Clone(t.peaks)
	entries, err := t.appendLeaf(b, saplingRoot, orchardRoot)
	if err != nil {
		t.peaks = saved
		return nil, err
	}
	t.size++
	t.height = b.Height
	return entries, nil
}

// Hash returns the root of the tree: the peaks combined right to left, then
// hashed as a node.
func (t *Tree) Hash() (chain.Hash, error) {
	root, err := mmr.BagPeaks(t.peakValues(), t.merge)
	if err != nil {
		return chain.Hash{}, err
	}
	node, err := UnmarshalNode(t.version, root)
	if err != nil {
		return chain.Hash{}, err
	}
	return node.Hash(t.branch), nil
}

// Peaks returns the current peak entries, highest first.
func (t *Tree) Peaks() []Entry {
	indices := mmr.Peaks(t.mmrSize())
	entries := make([]Entry, 0, len(indices))
	for _, i := range indices {
		entries = append(entries, t.entry(i, t.peaks[i]))
	}
	return entries
}

// PeaksAt returns the mmr indices of the peaks of this tree as it was, or
// will be, once the block at height h was pushed.
func (t *Tree) PeaksAt(h chain.Height) ([]uint64, error) {
	start, ok := t.network.ActivationHeight(t.upgrade)
	if !ok || h < start {
		return nil, fmt.Errorf("%w: %d is before %s activates", ErrHeightNotInTree, h, t.upgrade)
	}
	if u := t.network.UpgradeAt(h); u != t.upgrade {
		return nil, fmt.Errorf("%w: %d is in %s", ErrHeightNotInTree, h, u)
	}
	size := mmr.SizeForLeafCount(uint64(h-start) + 1)
	if !mmr.IsValidSize(size) {
		return nil, fmt.Errorf("%w: no mmr of %d nodes", ErrHeightNotInTree, size)
	}
	return mmr.Peaks(size), nil
}

func (t *Tree) Network() network.Network    { return t.network }
func (t *Tree) Upgrade() network.Upgrade    { return t.upgrade }
func (t *Tree) Size() uint64                { return t.size }
func (t *Tree) CurrentHeight() chain.Height { return t.height }

// RootHash returns the root of t, ErrEmptyTree when t is the empty tree.
func RootHash(t *Tree) (chain.Hash, error) {
	if t == nil {
		return chain.Hash{}, ErrEmptyTree
	}
	return t.Hash()
}

func (t *Tree) mmrSize() uint64 {
	return mmr.SizeForLeafCount(t.size)
}

func (t *Tree) peakValues() [][]byte {
	indices := mmr.Peaks(t.mmrSize())
	values := make([][]byte, 0, len(indices))
	for _, i := range indices {
		values = append(values, t.peaks[i])
	}
	return values
}

func (t *Tree) entry(index uint64, data []byte) Entry {
	// the data was produced or validated by this tree
	node, _ := UnmarshalNode(t.version, data)
	return Entry{Index: index, Data: data, Hash: node.Hash(t.branch)}
}

// merge combines two serialized nodes. It is used both for interior nodes
// and for bagging the peaks.
func (t *Tree) merge(left []byte, right []byte) ([]byte, error) {
	l, err := UnmarshalNode(t.version, left)
	if err != nil {
		return nil, err
	}
	r, err := UnmarshalNode(t.version, right)
	if err != nil {
		return nil, err
	}
	parent, err := Combine(t.branch, l, r)
	if err != nil {
		return nil, err
	}
	return parent.MarshalBinary(), nil
}

// appendLeaf adds the leaf for b to the peaks, collecting every node
// appended. On success the peaks map holds exactly the new peaks.
func (t *Tree) appendLeaf(b chain.Block, saplingRoot chain.Root, orchardRoot chain.Root) ([]Entry, error) {
	leaf, err := NewLeaf(t.version, b, saplingRoot, orchardRoot)
	if err != nil {
		return nil, err
	}
	store := &peakAppender{tree: t, next: t.mmrSize()}
	size, err := mmr.AddLeaf(store, func(_ uint64, left, right []byte) ([]byte, error) {
		return t.merge(left, right)
	}, leaf.MarshalBinary())
	if err != nil {
		return nil, err
	}

	keep := map[uint64]bool{}
	for _, i := range mmr.Peaks(size) {
		keep[i] = true
	}
	maps.DeleteFunc(t.peaks, func(i uint64, _ []byte) bool { return !keep[i] })
	return store.entries, nil
}

// peakAppender is the mmr store of a tree during a single leaf append. Reads
// are satisfied from the peaks, appends are recorded as entries.
type peakAppender struct {
	tree    *Tree
	next    uint64
	entries []Entry
}

func (s *peakAppender) Get(i uint64) ([]byte, error) {
	if data, ok := s.tree.peaks[i]; ok {
		return data, nil
	}
	return nil, fmt.Errorf("%w: node %d is not retained", ErrMalformedNode, i)
}

func (s *peakAppender) Append(value []byte) (uint64, error) {
	s.tree.peaks[s.next] = value
	s.entries = append(s.entries, s.tree.entry(s.next, value))
	s.next++
	return s.next, nil
}

func branchFor(u network.Upgrade) (network.BranchID, error) {
	if !u.HasHistoryTree() {
		return 0, fmt.Errorf("%w: %s", ErrNoHistoryTree, u)
	}
	branch, ok := u.BranchID()
	if !ok {
		return 0, fmt.Errorf("%w: %s", network.ErrUnknownUpgrade, u)
	}
	return branch, nil
}
