package network

import "github.com/Metalcape/zebra-flyclient/chain"

// EpochActivation pairs an upgrade that maintains a history tree with its
// activation height. Active is false when the upgrade is not scheduled on the
// network, in which case Height is meaningless.
type EpochActivation struct {
	Upgrade Upgrade
	Height  chain.Height
	Active  bool
}

// historyUpgrades are the upgrades that start a new history tree, oldest first
var historyUpgrades = []Upgrade{Heartwood, Canopy, Nu5, Nu6, Nu6_1}

// HistoryEpochs returns the history tree epochs of the network, oldest first.
//
// The first upgrade without an activation height is included with Active
// false and ends the list: upgrades are scheduled in order, so nothing after
// it can be active either.
func HistoryEpochs(n Network) []EpochActivation {
	epochs := make([]EpochActivation, 0, len(historyUpgrades))
	for _, u := range historyUpgrades {
		h, ok := n.ActivationHeight(u)
		epochs = append(epochs, EpochActivation{Upgrade: u, Height: h, Active: ok})
		if !ok {
			break
		}
	}
	return epochs
}

// EpochEnd returns the last height that belongs to the epoch starting at
// epochs[i], given the chain tip. It is the height before the next epoch
// activates, or tip when there is no next active epoch, clamped to tip.
func EpochEnd(epochs []EpochActivation, i int, tip chain.Height) chain.Height {
	last := tip
	if i+1 < len(epochs) && epochs[i+1].Active {
		// activation heights strictly increase, so only genesis has no Prev
		if prev, err := epochs[i+1].Height.Prev(); err == nil {
			last = prev
		}
	}
	return min(last, tip)
}
