// Package ports defines the surface keygate needs from a subscription
// mechanism: the paid-access ledger selling time-limited keys. A binding
// creates exactly one mechanism during initialization and afterwards treats
// it as an external collaborator.
package ports

import (
	"context"
	"time"

	id "keygate/pkg/domain"
)

// InitConfig is the one-shot configuration a factory consumes when creating a
// ledger. It is not retained beyond creation.
type InitConfig struct {
	// Creator becomes the ledger's initial manager.
	Creator id.Address
	// ExpirationDuration is the validity window each purchase buys.
	ExpirationDuration time.Duration
	// Asset denominates the price. The zero address is the native asset.
	Asset id.Address
	// UnitPrice is the cost of one purchase in base units of Asset.
	UnitPrice id.Amount
	// SupplyCap bounds the number of keys ever sold. Zero means unlimited.
	SupplyCap uint64
	// DisplayName labels the ledger for operators.
	DisplayName string
}

// HookCapability tags one hook a handler can implement. Registration wires
// only the capabilities a handler declares.
type HookCapability string

const (
	CapabilityQuote    HookCapability = "quote"
	CapabilityPurchase HookCapability = "purchase"
	CapabilityTransfer HookCapability = "transfer"
	CapabilityExtend   HookCapability = "extend"
)

// HookSet is implemented by hook handlers. A handler declares its
// capabilities and must implement the matching hook interface for each one.
type HookSet interface {
	Capabilities() []HookCapability
}

// QuoteHook prices a pending purchase. May veto it by returning an error.
type QuoteHook interface {
	QuotePrice(ctx context.Context, buyer, recipient, referrer id.Address, data []byte) (id.Amount, error)
}

// PurchaseHook observes a completed sale. An error unwinds the sale.
type PurchaseHook interface {
	OnPurchase(ctx context.Context, caller id.Address, saleID id.SaleID, payer, recipient, referrer id.Address, data []byte, minPrice, pricePaid id.Amount) error
}

// TransferHook observes a pending key transfer. An error vetoes it.
type TransferHook interface {
	OnTransfer(ctx context.Context, caller id.Address, saleID id.SaleID, operator, from, to id.Address, expiresAt time.Time) error
}

// ExtendHook observes a key renewal. An error unwinds the renewal.
type ExtendHook interface {
	OnExtend(ctx context.Context, caller id.Address, saleID id.SaleID, principal id.Address, expiresAt time.Time) error
}

// Mechanism is the ledger surface a binding and its hooks interact with.
// Manager-gated operations take the acting principal explicitly; the
// mechanism enforces its own manager set.
type Mechanism interface {
	// Identity is the principal the mechanism invokes hooks as. Hook
	// handlers authorize callers against it.
	Identity() id.Address

	// HasValidSubscription reports whether principal holds an unexpired
	// key at the request-scoped time. A key is valid strictly before its
	// expiry, never at it.
	HasValidSubscription(ctx context.Context, principal id.Address) (bool, error)

	// CurrentPrice returns the ledger's unit price.
	CurrentPrice(ctx context.Context) (id.Amount, error)

	// ReferrerFee returns the fee share recorded for referrer, zero when
	// none is set.
	ReferrerFee(ctx context.Context, referrer id.Address) (id.BasisPoints, error)

	// SetReferrerFee records a fee share for referrer. Manager-gated.
	SetReferrerFee(ctx context.Context, caller, referrer id.Address, fee id.BasisPoints) error

	// RegisterHooks wires the declared capabilities of hooks into the
	// ledger's lifecycle. Manager-gated.
	RegisterHooks(ctx context.Context, caller id.Address, hooks HookSet) error

	// AddManager grants manager control. Manager-gated.
	AddManager(ctx context.Context, caller, principal id.Address) error

	// RenounceManager removes the caller from the manager set.
	RenounceManager(ctx context.Context, caller id.Address) error

	// Purchase sells a key to recipient (buyer when recipient is zero),
	// driving the registered quote and purchase hooks synchronously. The
	// sale is all-or-nothing: a hook error unwinds it.
	Purchase(ctx context.Context, buyer, recipient, referrer id.Address, value id.Amount, data []byte) (id.SaleID, error)

	// Transfer moves a key between principals, driving the registered
	// transfer hook first. A hook error vetoes the transfer.
	Transfer(ctx context.Context, operator, from, to id.Address) error

	// Extend renews a key, driving the registered extend hook.
	Extend(ctx context.Context, principal id.Address, value id.Amount) error
}

// Factory creates ledgers at a requested mechanism version.
type Factory interface {
	CreateAtVersion(ctx context.Context, cfg InitConfig, version uint64) (Mechanism, error)
}

// FactoryProvider resolves a factory from its published address. Bindings
// look the address up per network and then obtain the factory here.
type FactoryProvider interface {
	FactoryAt(addr id.Address) (Factory, error)
}
