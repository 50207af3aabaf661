package historytree

import (
	"encoding/binary"

	"github.com/dchest/blake2b"

	"github.com/Metalcape/zebra-flyclient/chain"
	"github.com/Metalcape/zebra-flyclient/network"
)

const (
	hashDomain = "ZcashHistory"
	hashSize   = 32
)

// hashPersonalization is the blake2b personalization of node hashes: the
// domain followed by the little endian branch id, so node hashes differ per
// upgrade.
func hashPersonalization(branch network.BranchID) [blake2b.PersonSize]byte {
	var person [blake2b.PersonSize]byte
	copy(person[:], hashDomain)
	binary.LittleEndian.PutUint32(person[len(hashDomain):], uint32(branch))
	return person
}

// nodeHash returns the personalized blake2b-256 digest of the serialized
// nodes, in order.
func nodeHash(branch network.BranchID, serialized ...[]byte) chain.Hash {
	person := hashPersonalization(branch)
	// New only fails for an invalid config, and this one is fixed
	hasher, _ := blake2b.New(&blake2b.Config{Size: hashSize, Person: person[:]})
	for _, s := range serialized {
		hasher.Write(s)
	}
	var h chain.Hash
	copy(h[:], hasher.Sum(nil))
	return h
}
