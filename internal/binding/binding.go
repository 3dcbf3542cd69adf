// Package binding couples exactly one credential policy to exactly one
// subscription mechanism. A binding is created unbound, initialized exactly
// once — creating the ledger, registering hooks, fixing economic terms,
// handing over manager control — and is immutable afterwards.
package binding

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"keygate/internal/hooks"
	hookmetrics "keygate/internal/hooks/metrics"
	mechports "keygate/internal/mechanism/ports"
	regports "keygate/internal/registry/ports"
	id "keygate/pkg/domain"
	dErrors "keygate/pkg/domain-errors"
	audit "keygate/pkg/platform/audit"
)

// DefaultMechanismVersion is deployed when a subscription configuration
// leaves the version unset.
const DefaultMechanismVersion uint64 = 14

// ErrAlreadyInitialized: initialization is one-shot; a second call is always
// rejected regardless of arguments.
var ErrAlreadyInitialized = dErrors.New(dErrors.CodeConflict, "binding is already initialized")

// SubscriptionConfig is consumed once by Initialize to create the ledger.
// It is not retained.
type SubscriptionConfig struct {
	// ExpirationDuration is the validity window each purchase buys.
	ExpirationDuration time.Duration
	// Asset denominates the price; the zero address is the native asset.
	Asset id.Address
	// UnitPrice is the cost of one purchase.
	UnitPrice id.Amount
	// SupplyCap bounds total keys; zero means unlimited.
	SupplyCap uint64
	// Manager receives administrative control of the new ledger.
	Manager id.Address
	// DisplayName labels the ledger.
	DisplayName string
	// MechanismVersion selects the ledger version; zero means
	// DefaultMechanismVersion.
	MechanismVersion uint64
}

// Binding is one deployed policy/mechanism coupling.
type Binding struct {
	identity  id.Address
	registry  regports.CredentialRegistry
	policyID  id.PolicyID
	chainID   id.ChainID
	shared    *DeploymentConfig
	factories mechports.FactoryProvider

	logger      *slog.Logger
	hookMetrics *hookmetrics.Metrics
	auditor     hooks.AuditPublisher

	mu        sync.Mutex
	mechanism mechports.Mechanism
	hooks     *hooks.Service
	terms     hooks.EconomicTerms
}

// Option configures a Binding.
type Option func(*Binding)

func WithLogger(logger *slog.Logger) Option {
	return func(b *Binding) {
		b.logger = logger
	}
}

func WithHookMetrics(m *hookmetrics.Metrics) Option {
	return func(b *Binding) {
		b.hookMetrics = m
	}
}

func WithAuditPublisher(publisher hooks.AuditPublisher) Option {
	return func(b *Binding) {
		b.auditor = publisher
	}
}

// New constructs an unbound binding. identity is the principal the binding
// acts as; its admin position over policyID on the registry is granted
// out-of-band.
func New(identity id.Address, registry regports.CredentialRegistry, policyID id.PolicyID, chainID id.ChainID, shared *DeploymentConfig, factories mechports.FactoryProvider, opts ...Option) (*Binding, error) {
	if registry == nil {
		return nil, errors.New("credential registry is required")
	}
	if shared == nil {
		return nil, errors.New("deployment configuration is required")
	}
	if factories == nil {
		return nil, errors.New("factory provider is required")
	}

	b := &Binding{
		identity:  identity,
		registry:  registry,
		policyID:  policyID,
		chainID:   chainID,
		shared:    shared,
		factories: factories,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b, nil
}

// Initialize creates and wires the subscription mechanism. One-shot: the
// mechanism reference is set exactly once and every later call fails with
// ErrAlreadyInitialized.
func (b *Binding) Initialize(ctx context.Context, cfg SubscriptionConfig) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.mechanism != nil {
		return ErrAlreadyInitialized
	}
	if cfg.Manager.IsZero() {
		return dErrors.New(dErrors.CodeInvalidInput, "ledger manager cannot be the zero principal")
	}

	factoryAddr, err := resolveFactoryAddress(b.chainID, b.shared.FactoryOverride)
	if err != nil {
		return err
	}
	factory, err := b.factories.FactoryAt(factoryAddr)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeFailedPrecondition, "resolved factory is not available")
	}

	version := cfg.MechanismVersion
	if version == 0 {
		version = DefaultMechanismVersion
	}

	mech, err := factory.CreateAtVersion(ctx, mechports.InitConfig{
		Creator:            b.identity,
		ExpirationDuration: cfg.ExpirationDuration,
		Asset:              cfg.Asset,
		UnitPrice:          cfg.UnitPrice,
		SupplyCap:          cfg.SupplyCap,
		DisplayName:        cfg.DisplayName,
	}, version)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to create subscription mechanism")
	}

	// Snapshot the economic terms now: the shared config's fee may move
	// later, but this binding's terms are fixed for life.
	terms := hooks.EconomicTerms{
		Referrer:               b.shared.Referrer,
		ReferrerFeeBasisPoints: b.shared.ReferrerFee(),
	}

	hookSvc, err := hooks.New(mech, b.registry, b.identity, b.policyID, terms, b.shared.TransferPolicy,
		hooks.WithLogger(b.logger),
		hooks.WithMetrics(b.hookMetrics),
		hooks.WithAuditPublisher(b.auditor),
		hooks.WithFutureFeeConfig(b.shared),
	)
	if err != nil {
		return err
	}

	if err := mech.RegisterHooks(ctx, b.identity, hookSvc); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to register hooks")
	}
	if err := mech.SetReferrerFee(ctx, b.identity, terms.Referrer, terms.ReferrerFeeBasisPoints); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to set referrer fee")
	}
	if err := mech.AddManager(ctx, b.identity, cfg.Manager); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to hand over ledger management")
	}
	if err := mech.RenounceManager(ctx, b.identity); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to renounce ledger management")
	}

	b.mechanism = mech
	b.hooks = hookSvc
	b.terms = terms

	if b.logger != nil {
		b.logger.InfoContext(ctx, "binding initialized",
			"policy_id", b.policyID,
			"mechanism", mech.Identity(),
			"version", version,
			"referrer_fee", terms.ReferrerFeeBasisPoints,
		)
	}
	if b.auditor != nil {
		_ = b.auditor.Emit(ctx, audit.Event{
			Category: audit.CategoryOperations,
			Action:   string(audit.EventBindingInitialized),
			Actor:    b.identity,
			PolicyID: b.policyID,
		})
	}
	return nil
}

// Mechanism returns the bound subscription mechanism, nil before
// initialization.
func (b *Binding) Mechanism() mechports.Mechanism {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.mechanism
}

// Hooks returns the hook handler, nil before initialization.
func (b *Binding) Hooks() *hooks.Service {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.hooks
}

// PolicyID returns the credential policy this binding governs.
func (b *Binding) PolicyID() id.PolicyID {
	return b.policyID
}

// Identity returns the principal the binding acts as.
func (b *Binding) Identity() id.Address {
	return b.identity
}

// Terms returns the economic terms fixed at initialization; zero before.
func (b *Binding) Terms() hooks.EconomicTerms {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.terms
}
