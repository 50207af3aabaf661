package finalizedstate

import (
	"encoding/binary"
	"fmt"

	"github.com/Metalcape/zebra-flyclient/chain"
	"github.com/Metalcape/zebra-flyclient/network"
)

// Every record key starts with a one byte tag naming the record type. Heights
// and indices follow big endian so that leveldb orders them numerically.
//
//	block          | 0x01 | height(4)
//	sapling root   | 0x02 | height(4)
//	orchard root   | 0x03 | height(4)
//	history tree   | 0x04
//	history node   | 0x05 | branch id(4) | index(8)
//	format version | 0x06
//	tip height     | 0x07
//	network        | 0x08
const (
	tagBlock         byte = 0x01
	tagSaplingRoot   byte = 0x02
	tagOrchardRoot   byte = 0x03
	tagHistoryTree   byte = 0x04
	tagHistoryNode   byte = 0x05
	tagFormatVersion byte = 0x06
	tagTipHeight     byte = 0x07
	tagNetwork       byte = 0x08
)

const (
	heightKeyLen      = 1 + 4
	historyNodeKeyLen = 1 + 4 + 8
)

// HistoryNodeKey addresses a history tree node by its upgrade and its mmr
// index within that upgrade's tree.
type HistoryNodeKey struct {
	Upgrade network.Upgrade
	Index   uint64
}

func (k HistoryNodeKey) String() string {
	return fmt.Sprintf("%s/%d", k.Upgrade, k.Index)
}

// MarshalBinary returns the database key.
func (k HistoryNodeKey) MarshalBinary() ([]byte, error) {
	branch, ok := k.Upgrade.BranchID()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNoBranchID, k.Upgrade)
	}
	key := make([]byte, 0, historyNodeKeyLen)
	key = append(key, tagHistoryNode)
	key = binary.BigEndian.AppendUint32(key, uint32(branch))
	key = binary.BigEndian.AppendUint64(key, k.Index)
	return key, nil
}

// ParseHistoryNodeKey is the inverse of HistoryNodeKey.MarshalBinary
func ParseHistoryNodeKey(key []byte) (HistoryNodeKey, error) {
	if len(key) != historyNodeKeyLen || key[0] != tagHistoryNode {
		return HistoryNodeKey{}, fmt.Errorf("%w: %x", ErrMalformedKey, key)
	}
	branch := network.BranchID(binary.BigEndian.Uint32(key[1:5]))
	u, ok := network.UpgradeFromBranchID(branch)
	if !ok {
		return HistoryNodeKey{}, fmt.Errorf("%w: unknown branch id %08x", ErrMalformedKey, uint32(branch))
	}
	return HistoryNodeKey{Upgrade: u, Index: binary.BigEndian.Uint64(key[5:])}, nil
}

// historyNodePrefix returns the prefix shared by the history node keys of
// upgrade u.
func historyNodePrefix(u network.Upgrade) ([]byte, error) {
	branch, ok := u.BranchID()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNoBranchID, u)
	}
	return binary.BigEndian.AppendUint32([]byte{tagHistoryNode}, uint32(branch)), nil
}

func heightKey(tag byte, h chain.Height) []byte {
	key := make([]byte, 0, heightKeyLen)
	key = append(key, tag)
	return binary.BigEndian.AppendUint32(key, uint32(h))
}
