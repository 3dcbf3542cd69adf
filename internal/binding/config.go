package binding

import (
	"sync"

	"keygate/internal/hooks"
	id "keygate/pkg/domain"
)

// DeploymentConfig is the instance-independent configuration shared by every
// binding of a deployment lineage. Bindings read it at initialization time
// and snapshot what they need, so later mutations (the future-fee update)
// affect only bindings initialized afterwards.
type DeploymentConfig struct {
	// Referrer receives the fee split on every binding of this lineage.
	Referrer id.Address

	// FactoryOverride, when set, takes precedence over the per-network
	// factory table.
	FactoryOverride id.Address

	// TransferPolicy selects the transfer product for new bindings.
	TransferPolicy hooks.TransferPolicy

	mu          sync.RWMutex
	referrerFee id.BasisPoints
}

// NewDeploymentConfig constructs the shared configuration.
func NewDeploymentConfig(referrer id.Address, referrerFee id.BasisPoints, transferPolicy hooks.TransferPolicy) *DeploymentConfig {
	return &DeploymentConfig{
		Referrer:       referrer,
		TransferPolicy: transferPolicy,
		referrerFee:    referrerFee,
	}
}

// ReferrerFee returns the fee new bindings will be initialized with.
func (c *DeploymentConfig) ReferrerFee() id.BasisPoints {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.referrerFee
}

// SetReferrerFee updates the fee for bindings initialized from now on.
// Authorization lives at the hook surface; this is plain storage.
func (c *DeploymentConfig) SetReferrerFee(fee id.BasisPoints) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.referrerFee = fee
}
