package network

import "errors"

var (
	ErrUnknownNetwork      = errors.New("unknown network")
	ErrUnknownUpgrade      = errors.New("unknown network upgrade")
	ErrActivationOrder     = errors.New("network upgrade activation heights must strictly increase in upgrade order")
	ErrActivationGap       = errors.New("a network upgrade can not be activated when the upgrade before it is not")
	ErrGenesisNotAtZero    = errors.New("the genesis upgrade must activate at height zero")
	ErrNetworkNameRequired = errors.New("a configured network requires a name")
)
