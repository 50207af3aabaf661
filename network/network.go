package network

import (
	"fmt"
	"maps"
	"slices"

	"github.com/Metalcape/zebra-flyclient/chain"
)

const (
	MainnetName = "Mainnet"
	TestnetName = "Testnet"
)

// Network is the identity of a chain together with its upgrade activation
// schedule. It is passed around by value and never modified after
// construction.
type Network struct {
	name        string
	activations map[Upgrade]chain.Height
}

var mainnetActivations = map[Upgrade]chain.Height{
	Genesis:          0,
	BeforeOverwinter: 1,
	Overwinter:       347_500,
	Sapling:          419_200,
	Blossom:          653_600,
	Heartwood:        903_000,
	Canopy:           1_046_400,
	Nu5:              1_687_104,
	Nu6:              2_726_400,
	Nu6_1:            3_146_400,
}

var testnetActivations = map[Upgrade]chain.Height{
	Genesis:          0,
	BeforeOverwinter: 1,
	Overwinter:       207_500,
	Sapling:          280_000,
	Blossom:          584_000,
	Heartwood:        903_800,
	Canopy:           1_028_500,
	Nu5:              1_842_420,
	Nu6:              2_976_000,
	Nu6_1:            3_536_500,
}

func Mainnet() Network {
	return Network{name: MainnetName, activations: mainnetActivations}
}

func Testnet() Network {
	return Network{name: TestnetName, activations: testnetActivations}
}

// NewConfigured creates a network with a custom activation schedule, as used
// by regtest style chains and by tests. Upgrades missing from activations are
// not scheduled, and no upgrade after an unscheduled one may be scheduled.
func NewConfigured(name string, activations map[Upgrade]chain.Height) (Network, error) {
	if name == "" {
		return Network{}, ErrNetworkNameRequired
	}
	if h, ok := activations[Genesis]; !ok || h != 0 {
		return Network{}, ErrGenesisNotAtZero
	}

	var prev chain.Height
	scheduled := true
	for _, u := range allUpgrades[1:] {
		h, ok := activations[u]
		if !ok {
			scheduled = false
			continue
		}
		if !scheduled {
			return Network{}, fmt.Errorf("%w: %s", ErrActivationGap, u)
		}
		if h <= prev {
			return Network{}, fmt.Errorf("%w: %s at %d", ErrActivationOrder, u, h)
		}
		prev = h
	}
	for u := range activations {
		if int(u) >= len(allUpgrades) {
			return Network{}, fmt.Errorf("%w: %d", ErrUnknownUpgrade, u)
		}
	}
	return Network{name: name, activations: maps.Clone(activations)}, nil
}

// ParseNetwork returns the network for the well known names Mainnet and
// Testnet (case sensitive).
func ParseNetwork(name string) (Network, error) {
	switch name {
	case MainnetName:
		return Mainnet(), nil
	case TestnetName:
		return Testnet(), nil
	}
	return Network{}, fmt.Errorf("%w: %q", ErrUnknownNetwork, name)
}

func (n Network) Name() string   { return n.name }
func (n Network) String() string { return n.name }

// Equal is true when both networks have the same name and schedule.
func (n Network) Equal(other Network) bool {
	return n.name == other.name && maps.Equal(n.activations, other.activations)
}

// Activations returns a copy of the activation schedule.
func (n Network) Activations() map[Upgrade]chain.Height {
	return maps.Clone(n.activations)
}

// ActivationHeight returns the height at which u activates, false if it is
// not scheduled on this network.
func (n Network) ActivationHeight(u Upgrade) (chain.Height, bool) {
	h, ok := n.activations[u]
	return h, ok
}

// UpgradeAt returns the upgrade in effect at height h.
func (n Network) UpgradeAt(h chain.Height) Upgrade {
	current := Genesis
	for _, u := range allUpgrades {
		activation, ok := n.activations[u]
		if !ok || activation > h {
			break
		}
		current = u
	}
	return current
}

// ScheduledUpgrades lists the upgrades with an activation height, in order.
func (n Network) ScheduledUpgrades() []Upgrade {
	upgrades := slices.Collect(maps.Keys(n.activations))
	slices.Sort(upgrades)
	return upgrades
}
