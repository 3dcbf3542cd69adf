package binding

import (
	id "keygate/pkg/domain"
	dErrors "keygate/pkg/domain-errors"
)

// factoryAddresses maps chain IDs to the published mechanism factory on that
// network. An explicit override on the deployment config wins over this
// table.
var factoryAddresses = map[id.ChainID]id.Address{
	1:     id.MustAddress("0xe79b93f8e22676774f2a8dad469175ebd00c4258"),
	10:    id.MustAddress("0x1fb0bf9e442900146aeb0c61a3db2e120ec5bbee"),
	100:   id.MustAddress("0x1bc53f4303c711cc693f6ec3477b83703dcb317f"),
	137:   id.MustAddress("0xe8e5cd156f89f7bdb267eabd5c43af3d5af2a78f"),
	8453:  id.MustAddress("0xd0b14797b9d08493392865647384974470202a78"),
	42161: id.MustAddress("0x1fb0bf9e442900146aeb0c61a3db2e120ec5bbee"),
}

// ErrUnsupportedNetwork: no factory address is resolvable for the deployment,
// neither from an explicit override nor from the per-network table. Requires
// redeployment with an override.
var ErrUnsupportedNetwork = dErrors.New(dErrors.CodeFailedPrecondition, "no mechanism factory known for this network")

// FactoryAddress returns the published factory address for a network, so
// deployment wiring can register the serving factory where Initialize will
// look it up.
func FactoryAddress(chainID id.ChainID) (id.Address, bool) {
	addr, ok := factoryAddresses[chainID]
	return addr, ok
}

// resolveFactoryAddress picks the factory for this deployment: the explicit
// override when present, else the chain table.
func resolveFactoryAddress(chainID id.ChainID, override id.Address) (id.Address, error) {
	if !override.IsZero() {
		return override, nil
	}
	if addr, ok := factoryAddresses[chainID]; ok {
		return addr, nil
	}
	return id.ZeroAddress, ErrUnsupportedNetwork
}
