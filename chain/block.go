package chain

import (
	"encoding/binary"
	"encoding/hex"

	"golang.org/x/crypto/blake2b"
)

// Hash is a 32 byte block hash or note commitment tree root.
type Hash [32]byte

func (h Hash) String() string { return hex.EncodeToString(h[:]) }

// Root is the root of a shielded note commitment tree as of a block.
type Root = Hash

// Block carries the parts of a finalized block the history tree commits to.
// Transactions are summarized by their shielded counts.
type Block struct {
	Height         Height `cbor:"1,keyasint"`
	Hash           Hash   `cbor:"2,keyasint"`
	PrevHash       Hash   `cbor:"3,keyasint"`
	Time           uint32 `cbor:"4,keyasint"`
	Bits           uint32 `cbor:"5,keyasint"`
	SaplingTxCount uint64 `cbor:"6,keyasint"`
	OrchardTxCount uint64 `cbor:"7,keyasint"`
}

// HeaderHash derives a block hash from the committed header fields. It is
// used to give synthetic blocks a stable identity.
func HeaderHash(b Block) Hash {
	var buf [4 + 32 + 4 + 4]byte
	binary.LittleEndian.PutUint32(buf[0:], uint32(b.Height))
	copy(buf[4:], b.PrevHash[:])
	binary.LittleEndian.PutUint32(buf[36:], b.Time)
	binary.LittleEndian.PutUint32(buf[40:], b.Bits)
	return blake2b.Sum256(buf[:])
}
