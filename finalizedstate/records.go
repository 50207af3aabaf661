package finalizedstate

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"

	dtcbor "github.com/datatrails/go-datatrails-common/cbor"

	"github.com/Metalcape/zebra-flyclient/chain"
	"github.com/Metalcape/zebra-flyclient/network"
)

// NewCodec returns the codec used for every record value. Encoding is
// deterministic so equal records always have equal bytes, and unknown fields
// are rejected on decode.
func NewCodec() (dtcbor.CBORCodec, error) {
	decOpts := dtcbor.NewDeterministicDecOpts()
	decOpts.ExtraReturnErrors = cbor.ExtraDecErrorUnknownField
	return dtcbor.NewCBORCodec(dtcbor.NewDeterministicEncOpts(), decOpts)
}

// FormatVersion is the version of the on disk layout. A database is upgraded
// by each format change whose version is above the stored one.
type FormatVersion struct {
	Major uint64 `cbor:"1,keyasint"`
	Minor uint64 `cbor:"2,keyasint"`
	Patch uint64 `cbor:"3,keyasint"`
}

func (v FormatVersion) String() string {
	return fmt.Sprintf("%d.%d.%d", v.Major, v.Minor, v.Patch)
}

// Less is true when v is an older format than other.
func (v FormatVersion) Less(other FormatVersion) bool {
	if v.Major != other.Major {
		return v.Major < other.Major
	}
	if v.Minor != other.Minor {
		return v.Minor < other.Minor
	}
	return v.Patch < other.Patch
}

// storedNode is the value of a history node record
type storedNode struct {
	Data []byte     `cbor:"1,keyasint"`
	Hash chain.Hash `cbor:"2,keyasint"`
}

// storedTree is the value of the tip history tree record: the peaks of the
// tree of the upgrade the tip is in, and what FromCache needs to restore it.
type storedTree struct {
	Upgrade network.Upgrade `cbor:"1,keyasint"`
	Size    uint64          `cbor:"2,keyasint"`
	Height  chain.Height    `cbor:"3,keyasint"`
	Peaks   []storedEntry   `cbor:"4,keyasint"`
}

type storedEntry struct {
	Index uint64     `cbor:"1,keyasint"`
	Data  []byte     `cbor:"2,keyasint"`
	Hash  chain.Hash `cbor:"3,keyasint"`
}

// storedNetwork pins a database to the network it was created for
type storedNetwork struct {
	Name        string                           `cbor:"1,keyasint"`
	Activations map[network.Upgrade]chain.Height `cbor:"2,keyasint"`
}

func (s storedNetwork) network() (network.Network, error) {
	switch s.Name {
	case network.MainnetName, network.TestnetName:
		return network.ParseNetwork(s.Name)
	}
	return network.NewConfigured(s.Name, s.Activations)
}

func newStoredNetwork(n network.Network) storedNetwork {
	return storedNetwork{Name: n.Name(), Activations: n.Activations()}
}
