package service

import (
	"context"
	"crypto/rand"
	"log/slog"
	"sync"

	"keygate/internal/mechanism/ports"
	id "keygate/pkg/domain"
	dErrors "keygate/pkg/domain-errors"
)

// Mechanism versions this factory can deploy. Older versions lack the hook
// registration surface keygate depends on.
var supportedVersions = map[uint64]bool{
	12: true,
	13: true,
	14: true,
	15: true,
}

// StoreProvider supplies a fresh key store for each created ledger, named
// after the ledger's display name for backends that namespace by it.
type StoreProvider func(name string) (Store, error)

// Factory creates ledgers at a requested mechanism version.
type Factory struct {
	stores StoreProvider
	logger *slog.Logger
}

// NewFactory constructs a ledger factory.
func NewFactory(stores StoreProvider, logger *slog.Logger) *Factory {
	return &Factory{stores: stores, logger: logger}
}

// CreateAtVersion deploys a ledger, assigning it a fresh identity principal.
func (f *Factory) CreateAtVersion(ctx context.Context, cfg ports.InitConfig, version uint64) (ports.Mechanism, error) {
	if !supportedVersions[version] {
		return nil, dErrors.Newf(dErrors.CodeInvalidInput, "unsupported mechanism version %d", version)
	}

	store, err := f.stores(cfg.DisplayName)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to provision key store")
	}

	identity, err := newIdentity()
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to derive ledger identity")
	}

	ledger, err := NewLedger(identity, cfg, store, WithLogger(f.logger))
	if err != nil {
		return nil, err
	}

	if f.logger != nil {
		f.logger.InfoContext(ctx, "ledger created",
			"identity", identity,
			"version", version,
			"name", cfg.DisplayName,
		)
	}
	return ledger, nil
}

// newIdentity derives a fresh principal for a ledger instance.
func newIdentity() (id.Address, error) {
	var a id.Address
	if _, err := rand.Read(a[:]); err != nil {
		return id.ZeroAddress, err
	}
	return a, nil
}

// Provider maps published factory addresses to in-process factories,
// modeling the per-network factory deployment table.
type Provider struct {
	mu        sync.RWMutex
	factories map[id.Address]ports.Factory
}

// NewProvider constructs an empty provider.
func NewProvider() *Provider {
	return &Provider{factories: make(map[id.Address]ports.Factory)}
}

// Register publishes a factory at an address.
func (p *Provider) Register(addr id.Address, factory ports.Factory) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.factories[addr] = factory
}

// FactoryAt resolves the factory published at addr.
func (p *Provider) FactoryAt(addr id.Address) (ports.Factory, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	factory, ok := p.factories[addr]
	if !ok {
		return nil, dErrors.Newf(dErrors.CodeNotFound, "no mechanism factory published at %s", addr)
	}
	return factory, nil
}
