package historytree

import (
	"encoding/binary"
	"fmt"

	"github.com/holiman/uint256"

	"github.com/Metalcape/zebra-flyclient/chain"
	"github.com/Metalcape/zebra-flyclient/network"
)

// Version selects the node layout. V2 adds the orchard fields and is used
// from Nu5 onwards.
type Version uint8

const (
	V1 Version = 1
	V2 Version = 2
)

// VersionFor returns the node layout used by the history tree of u.
func VersionFor(u network.Upgrade) Version {
	if u.HasOrchard() {
		return V2
	}
	return V1
}

// NodeData summarizes a contiguous range of blocks. For a leaf the range is
// a single block.
type NodeData struct {
	Version           Version
	SubtreeCommitment chain.Hash
	StartTime         uint32
	EndTime           uint32
	StartTarget       uint32
	EndTarget         uint32
	StartSaplingRoot  chain.Root
	EndSaplingRoot    chain.Root
	SubtreeTotalWork  uint256.Int
	StartHeight       uint64
	EndHeight         uint64
	SaplingTxCount    uint64

	// V2 only
	StartOrchardRoot chain.Root
	EndOrchardRoot   chain.Root
	OrchardTxCount   uint64
}

const (
	// fixed width part of a V1 node, excluding the three compact sizes
	v1FixedLen = 32 + 4*4 + 32 + 32 + 32
	// extra fixed width part of a V2 node
	v2FixedLen = 32 + 32

	maxCompactSizeLen = 9
	// MaxNodeLen bounds the serialized size of any node
	MaxNodeLen = v1FixedLen + v2FixedLen + 4*maxCompactSizeLen
)

// NewLeaf returns the leaf node for block b. The orchard root is ignored by
// V1 nodes.
func NewLeaf(version Version, b chain.Block, saplingRoot chain.Root, orchardRoot chain.Root) (NodeData, error) {
	work, err := chain.Work(b.Bits)
	if err != nil {
		return NodeData{}, fmt.Errorf("block %d: %w", b.Height, err)
	}
	n := NodeData{
		Version:           version,
		SubtreeCommitment: b.Hash,
		StartTime:         b.Time,
		EndTime:           b.Time,
		StartTarget:       b.Bits,
		EndTarget:         b.Bits,
		StartSaplingRoot:  saplingRoot,
		EndSaplingRoot:    saplingRoot,
		SubtreeTotalWork:  *work,
		StartHeight:       uint64(b.Height),
		EndHeight:         uint64(b.Height),
		SaplingTxCount:    b.SaplingTxCount,
	}
	if version == V2 {
		n.StartOrchardRoot = orchardRoot
		n.EndOrchardRoot = orchardRoot
		n.OrchardTxCount = b.OrchardTxCount
	}
	return n, nil
}

// Combine returns the parent of left and right. The parent commits to the
// serialization of both children and spans from the start of left to the end
// of right.
func Combine(branch network.BranchID, left NodeData, right NodeData) (NodeData, error) {
	if left.Version != right.Version {
		return NodeData{}, fmt.Errorf("%w: version %d combined with %d", ErrMalformedNode, left.Version, right.Version)
	}
	if left.EndHeight+1 != right.StartHeight {
		return NodeData{}, fmt.Errorf(
			"%w: left ends at %d, right starts at %d", ErrMalformedNode, left.EndHeight, right.StartHeight)
	}

	n := NodeData{
		Version:           left.Version,
		SubtreeCommitment: nodeHash(branch, left.MarshalBinary(), right.MarshalBinary()),
		StartTime:         left.StartTime,
		EndTime:           right.EndTime,
		StartTarget:       left.StartTarget,
		EndTarget:         right.EndTarget,
		StartSaplingRoot:  left.StartSaplingRoot,
		EndSaplingRoot:    right.EndSaplingRoot,
		StartHeight:       left.StartHeight,
		EndHeight:         right.EndHeight,
		SaplingTxCount:    left.SaplingTxCount + right.SaplingTxCount,
	}
	n.SubtreeTotalWork.Add(&left.SubtreeTotalWork, &right.SubtreeTotalWork)
	if n.Version == V2 {
		n.StartOrchardRoot = left.StartOrchardRoot
		n.EndOrchardRoot = right.EndOrchardRoot
		n.OrchardTxCount = left.OrchardTxCount + right.OrchardTxCount
	}
	return n, nil
}

// Hash returns the hash of the node, which for the root node is the history
// tree root.
func (n NodeData) Hash(branch network.BranchID) chain.Hash {
	return nodeHash(branch, n.MarshalBinary())
}

// LeafCount is the number of blocks the node summarizes.
func (n NodeData) LeafCount() uint64 {
	return n.EndHeight - n.StartHeight + 1
}

// MarshalBinary returns the node serialization that node hashes commit to.
// Integers are little endian and heights and counts are compact sizes.
//
// .     | commitment | times | targets | sapling roots | work | heights, sapling tx | orchard roots | orchard tx |
// bytes |     32     |  4+4  |   4+4   |    32+32      |  32  |     compact x 3     |  32+32 (V2)   | compact (V2)|
func (n NodeData) MarshalBinary() []byte {
	buf := make([]byte, 0, MaxNodeLen)
	buf = append(buf, n.SubtreeCommitment[:]...)
	buf = binary.LittleEndian.AppendUint32(buf, n.StartTime)
	buf = binary.LittleEndian.AppendUint32(buf, n.EndTime)
	buf = binary.LittleEndian.AppendUint32(buf, n.StartTarget)
	buf = binary.LittleEndian.AppendUint32(buf, n.EndTarget)
	buf = append(buf, n.StartSaplingRoot[:]...)
	buf = append(buf, n.EndSaplingRoot[:]...)
	buf = appendWork(buf, &n.SubtreeTotalWork)
	buf = appendCompactSize(buf, n.StartHeight)
	buf = appendCompactSize(buf, n.EndHeight)
	buf = appendCompactSize(buf, n.SaplingTxCount)
	if n.Version == V2 {
		buf = append(buf, n.StartOrchardRoot[:]...)
		buf = append(buf, n.EndOrchardRoot[:]...)
		buf = appendCompactSize(buf, n.OrchardTxCount)
	}
	return buf
}

// UnmarshalNode parses a node serialized by MarshalBinary. The version is
// not part of the serialization and must be supplied.
func UnmarshalNode(version Version, data []byte) (NodeData, error) {
	if version != V1 && version != V2 {
		return NodeData{}, fmt.Errorf("%w: unknown version %d", ErrMalformedNode, version)
	}
	r := nodeReader{data: data}
	n := NodeData{Version: version}
	r.fixed(n.SubtreeCommitment[:])
	n.StartTime = r.uint32()
	n.EndTime = r.uint32()
	n.StartTarget = r.uint32()
	n.EndTarget = r.uint32()
	r.fixed(n.StartSaplingRoot[:])
	r.fixed(n.EndSaplingRoot[:])
	r.work(&n.SubtreeTotalWork)
	n.StartHeight = r.compactSize()
	n.EndHeight = r.compactSize()
	n.SaplingTxCount = r.compactSize()
	if version == V2 {
		r.fixed(n.StartOrchardRoot[:])
		r.fixed(n.EndOrchardRoot[:])
		n.OrchardTxCount = r.compactSize()
	}
	if r.err != nil {
		return NodeData{}, r.err
	}
	if len(r.data) != 0 {
		return NodeData{}, fmt.Errorf("%w: %d trailing bytes", ErrMalformedNode, len(r.data))
	}
	if n.EndHeight < n.StartHeight {
		return NodeData{}, fmt.Errorf("%w: ends at %d before it starts at %d", ErrMalformedNode, n.EndHeight, n.StartHeight)
	}
	return n, nil
}

func appendWork(buf []byte, work *uint256.Int) []byte {
	be := work.Bytes32()
	for i := len(be) - 1; i >= 0; i-- {
		buf = append(buf, be[i])
	}
	return buf
}

func appendCompactSize(buf []byte, n uint64) []byte {
	switch {
	case n < 0xfd:
		return append(buf, byte(n))
	case n <= 0xffff:
		buf = append(buf, 0xfd)
		return binary.LittleEndian.AppendUint16(buf, uint16(n))
	case n <= 0xffffffff:
		buf = append(buf, 0xfe)
		return binary.LittleEndian.AppendUint32(buf, uint32(n))
	default:
		buf = append(buf, 0xff)
		return binary.LittleEndian.AppendUint64(buf, n)
	}
}

// nodeReader consumes a serialized node, remembering the first error
type nodeReader struct {
	data []byte
	err  error
}

func (r *nodeReader) take(n int) []byte {
	if r.err != nil {
		return nil
	}
	if len(r.data) < n {
		r.err = fmt.Errorf("%w: truncated", ErrMalformedNode)
		return nil
	}
	b := r.data[:n]
	r.data = r.data[n:]
	return b
}

func (r *nodeReader) fixed(dst []byte) {
	if b := r.take(len(dst)); b != nil {
		copy(dst, b)
	}
}

func (r *nodeReader) uint32() uint32 {
	if b := r.take(4); b != nil {
		return binary.LittleEndian.Uint32(b)
	}
	return 0
}

func (r *nodeReader) work(dst *uint256.Int) {
	b := r.take(32)
	if b == nil {
		return
	}
	var be [32]byte
	for i := range b {
		be[31-i] = b[i]
	}
	dst.SetBytes32(be[:])
}

// compactSize rejects non canonical encodings
func (r *nodeReader) compactSize() uint64 {
	b := r.take(1)
	if b == nil {
		return 0
	}
	var n, least uint64
	switch b[0] {
	case 0xfd:
		if v := r.take(2); v != nil {
			n, least = uint64(binary.LittleEndian.Uint16(v)), 0xfd
		}
	case 0xfe:
		if v := r.take(4); v != nil {
			n, least = uint64(binary.LittleEndian.Uint32(v)), 0x10000
		}
	case 0xff:
		if v := r.take(8); v != nil {
			n, least = binary.LittleEndian.Uint64(v), 0x100000000
		}
	default:
		return uint64(b[0])
	}
	if r.err == nil && n < least {
		r.err = fmt.Errorf("%w: non canonical compact size", ErrMalformedNode)
	}
	return n
}
