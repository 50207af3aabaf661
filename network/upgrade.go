package network

import "fmt"

// Upgrade identifies a consensus rule era. Upgrades are declared in
// activation order.
type Upgrade uint8

const (
	Genesis Upgrade = iota
	BeforeOverwinter
	Overwinter
	Sapling
	Blossom
	Heartwood
	Canopy
	Nu5
	Nu6
	Nu6_1
)

// allUpgrades in activation order
var allUpgrades = []Upgrade{
	Genesis, BeforeOverwinter, Overwinter, Sapling, Blossom, Heartwood, Canopy, Nu5, Nu6, Nu6_1,
}

// BranchID is the consensus branch id committed to by signatures and by
// history tree node hashes.
type BranchID uint32

var branchIDs = map[Upgrade]BranchID{
	Overwinter: 0x5ba81b19,
	Sapling:    0x76b809bb,
	Blossom:    0x2bb40e60,
	Heartwood:  0xf5b9230b,
	Canopy:     0xe9ff75a6,
	Nu5:        0xc2d6d0b4,
	Nu6:        0xc8e71055,
	Nu6_1:      0x4dec4df0,
}

var upgradeNames = map[Upgrade]string{
	Genesis:          "Genesis",
	BeforeOverwinter: "BeforeOverwinter",
	Overwinter:       "Overwinter",
	Sapling:          "Sapling",
	Blossom:          "Blossom",
	Heartwood:        "Heartwood",
	Canopy:           "Canopy",
	Nu5:              "Nu5",
	Nu6:              "Nu6",
	Nu6_1:            "Nu6_1",
}

func (u Upgrade) String() string {
	if name, ok := upgradeNames[u]; ok {
		return name
	}
	return fmt.Sprintf("Upgrade(%d)", uint8(u))
}

// BranchID returns the consensus branch id, false for the pre Overwinter eras.
func (u Upgrade) BranchID() (BranchID, bool) {
	id, ok := branchIDs[u]
	return id, ok
}

// Next returns the upgrade that follows u, false for the last known upgrade.
func (u Upgrade) Next() (Upgrade, bool) {
	if int(u)+1 >= len(allUpgrades) {
		return 0, false
	}
	return allUpgrades[u+1], true
}

// HasHistoryTree is true for the upgrades that maintain a history tree.
func (u Upgrade) HasHistoryTree() bool {
	return u >= Heartwood && int(u) < len(allUpgrades)
}

// HasOrchard is true for upgrades whose history nodes commit to the orchard
// note commitment tree.
func (u Upgrade) HasOrchard() bool {
	return u >= Nu5
}

// UpgradeFromBranchID is the inverse of BranchID
func UpgradeFromBranchID(id BranchID) (Upgrade, bool) {
	for u, b := range branchIDs {
		if b == id {
			return u, true
		}
	}
	return 0, false
}

// ParseUpgrade maps an upgrade name, as returned by String, to its Upgrade.
func ParseUpgrade(name string) (Upgrade, error) {
	for u, n := range upgradeNames {
		if n == name {
			return u, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownUpgrade, name)
}
