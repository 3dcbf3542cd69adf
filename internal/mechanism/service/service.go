// Package service implements the subscription ledger: time-limited keys sold
// at a unit price, with lifecycle hooks driven synchronously inside each
// ledger operation. Persistence is delegated to a Store so the same ledger
// logic runs over memory, Redis, or PostgreSQL key storage.
package service

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"keygate/internal/mechanism/models"
	"keygate/internal/mechanism/ports"
	id "keygate/pkg/domain"
	dErrors "keygate/pkg/domain-errors"
	"keygate/pkg/platform/sentinel"
	"keygate/pkg/requestcontext"
)

// Store is the persistence surface for subscription keys. Implementations
// return nil (not an error) for absent keys on Get.
type Store interface {
	Get(ctx context.Context, principal id.Address) (*models.SubscriptionKey, error)
	Put(ctx context.Context, key *models.SubscriptionKey) error
	Delete(ctx context.Context, principal id.Address) error
	Count(ctx context.Context) (uint64, error)
}

// Ledger is one deployed subscription mechanism instance.
type Ledger struct {
	identity id.Address
	name     string
	duration time.Duration
	asset    id.Address

	store  Store
	logger *slog.Logger

	mu           sync.RWMutex
	price        id.Amount
	supplyCap    uint64
	referrerFees map[id.Address]id.BasisPoints
	managers     map[id.Address]bool
	quoteHook    ports.QuoteHook
	purchaseHook ports.PurchaseHook
	transferHook ports.TransferHook
	extendHook   ports.ExtendHook
}

// Option configures a Ledger.
type Option func(*Ledger)

// WithLogger attaches a structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(l *Ledger) {
		l.logger = logger
	}
}

// NewLedger constructs a ledger. The creator becomes the sole initial
// manager; identity is the principal the ledger invokes hooks as.
func NewLedger(identity id.Address, cfg ports.InitConfig, store Store, opts ...Option) (*Ledger, error) {
	if store == nil {
		return nil, errors.New("subscription key store is required")
	}
	if cfg.Creator.IsZero() {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "ledger creator cannot be the zero principal")
	}
	if cfg.ExpirationDuration <= 0 {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "expiration duration must be positive")
	}

	l := &Ledger{
		identity:     identity,
		name:         cfg.DisplayName,
		duration:     cfg.ExpirationDuration,
		asset:        cfg.Asset,
		store:        store,
		price:        cfg.UnitPrice,
		supplyCap:    cfg.SupplyCap,
		referrerFees: make(map[id.Address]id.BasisPoints),
		managers:     map[id.Address]bool{cfg.Creator: true},
	}
	for _, opt := range opts {
		opt(l)
	}
	return l, nil
}

func (l *Ledger) Identity() id.Address {
	return l.identity
}

// Name returns the operator-facing label.
func (l *Ledger) Name() string {
	return l.name
}

func (l *Ledger) HasValidSubscription(ctx context.Context, principal id.Address) (bool, error) {
	key, err := l.store.Get(ctx, principal)
	if err != nil {
		return false, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load subscription key")
	}
	return key.ValidAt(requestcontext.Now(ctx)), nil
}

func (l *Ledger) CurrentPrice(_ context.Context) (id.Amount, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.price, nil
}

func (l *Ledger) ReferrerFee(_ context.Context, referrer id.Address) (id.BasisPoints, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.referrerFees[referrer], nil
}

func (l *Ledger) SetReferrerFee(_ context.Context, caller, referrer id.Address, fee id.BasisPoints) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.managers[caller] {
		return errNotManager
	}
	l.referrerFees[referrer] = fee
	return nil
}

// RegisterHooks wires the capabilities hooks declares. A declared capability
// whose interface is not implemented is a configuration error.
func (l *Ledger) RegisterHooks(_ context.Context, caller id.Address, hooks ports.HookSet) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.managers[caller] {
		return errNotManager
	}

	for _, capability := range hooks.Capabilities() {
		switch capability {
		case ports.CapabilityQuote:
			h, ok := hooks.(ports.QuoteHook)
			if !ok {
				return dErrors.Newf(dErrors.CodeInvalidInput, "hook set declares %q but does not implement it", capability)
			}
			l.quoteHook = h
		case ports.CapabilityPurchase:
			h, ok := hooks.(ports.PurchaseHook)
			if !ok {
				return dErrors.Newf(dErrors.CodeInvalidInput, "hook set declares %q but does not implement it", capability)
			}
			l.purchaseHook = h
		case ports.CapabilityTransfer:
			h, ok := hooks.(ports.TransferHook)
			if !ok {
				return dErrors.Newf(dErrors.CodeInvalidInput, "hook set declares %q but does not implement it", capability)
			}
			l.transferHook = h
		case ports.CapabilityExtend:
			h, ok := hooks.(ports.ExtendHook)
			if !ok {
				return dErrors.Newf(dErrors.CodeInvalidInput, "hook set declares %q but does not implement it", capability)
			}
			l.extendHook = h
		default:
			return dErrors.Newf(dErrors.CodeInvalidInput, "unknown hook capability %q", capability)
		}
	}
	return nil
}

func (l *Ledger) AddManager(_ context.Context, caller, principal id.Address) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.managers[caller] {
		return errNotManager
	}
	if principal.IsZero() {
		return dErrors.New(dErrors.CodeInvalidInput, "manager cannot be the zero principal")
	}
	l.managers[principal] = true
	return nil
}

func (l *Ledger) RenounceManager(_ context.Context, caller id.Address) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.managers[caller] {
		return errNotManager
	}
	delete(l.managers, caller)
	return nil
}

// IsManager reports manager position; used by tests and operator surfaces.
func (l *Ledger) IsManager(principal id.Address) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.managers[principal]
}

// Purchase sells or extends a key for recipient. The quote hook prices the
// sale, the purchase hook observes it; either can abort the sale, and a
// purchase hook failure unwinds the key write so the call stays
// all-or-nothing.
func (l *Ledger) Purchase(ctx context.Context, buyer, recipient, referrer id.Address, value id.Amount, data []byte) (id.SaleID, error) {
	if buyer.IsZero() {
		return id.SaleID{}, dErrors.New(dErrors.CodeInvalidInput, "buyer cannot be the zero principal")
	}
	if recipient.IsZero() {
		recipient = buyer
	}

	l.mu.RLock()
	price := l.price
	supplyCap := l.supplyCap
	quoteHook := l.quoteHook
	purchaseHook := l.purchaseHook
	l.mu.RUnlock()

	if quoteHook != nil {
		quoted, err := quoteHook.QuotePrice(ctx, buyer, recipient, referrer, data)
		if err != nil {
			return id.SaleID{}, err
		}
		price = quoted
	}
	if value < price {
		return id.SaleID{}, dErrors.Newf(dErrors.CodeFailedPrecondition, "payment %d below quoted price %d", value, price)
	}

	now := requestcontext.Now(ctx)
	existing, err := l.store.Get(ctx, recipient)
	if err != nil {
		return id.SaleID{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load subscription key")
	}

	if existing == nil && supplyCap > 0 {
		sold, err := l.store.Count(ctx)
		if err != nil {
			return id.SaleID{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to count subscription keys")
		}
		if sold >= supplyCap {
			return id.SaleID{}, dErrors.New(dErrors.CodeFailedPrecondition, "supply cap reached")
		}
	}

	// A live key extends from its current expiry; a lapsed or absent key
	// starts a fresh window.
	expiresAt := now.Add(l.duration)
	if existing.ValidAt(now) {
		expiresAt = existing.ExpiresAt.Add(l.duration)
	}

	key := &models.SubscriptionKey{
		SaleID:      id.NewSaleID(),
		Owner:       recipient,
		ExpiresAt:   expiresAt,
		PurchasedAt: now,
	}
	if err := l.store.Put(ctx, key); err != nil {
		return id.SaleID{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to store subscription key")
	}

	if purchaseHook != nil {
		if err := purchaseHook.OnPurchase(ctx, l.identity, key.SaleID, buyer, recipient, referrer, data, price, value); err != nil {
			l.unwind(ctx, recipient, existing)
			return id.SaleID{}, err
		}
	}

	if l.logger != nil {
		l.logger.InfoContext(ctx, "subscription key sold",
			"sale_id", key.SaleID,
			"recipient", recipient,
			"expires_at", key.ExpiresAt,
		)
	}
	return key.SaleID, nil
}

// Transfer moves from's key to to. The transfer hook runs before any state
// moves, so a veto leaves the ledger untouched.
func (l *Ledger) Transfer(ctx context.Context, operator, from, to id.Address) error {
	if to.IsZero() {
		return dErrors.New(dErrors.CodeInvalidInput, "transfer recipient cannot be the zero principal")
	}

	key, err := l.store.Get(ctx, from)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to load subscription key")
	}
	if key == nil {
		return dErrors.Wrap(sentinel.ErrNotFound, dErrors.CodeNotFound, "no subscription key to transfer")
	}

	l.mu.RLock()
	transferHook := l.transferHook
	l.mu.RUnlock()

	if transferHook != nil {
		if err := transferHook.OnTransfer(ctx, l.identity, key.SaleID, operator, from, to, key.ExpiresAt); err != nil {
			return err
		}
	}

	if err := l.store.Delete(ctx, from); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to remove transferred key")
	}
	moved := *key
	moved.Owner = to
	if err := l.store.Put(ctx, &moved); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to store transferred key")
	}

	if l.logger != nil {
		l.logger.InfoContext(ctx, "subscription key transferred",
			"sale_id", key.SaleID,
			"from", from,
			"to", to,
		)
	}
	return nil
}

// Extend renews principal's key for another expiration window.
func (l *Ledger) Extend(ctx context.Context, principal id.Address, value id.Amount) error {
	l.mu.RLock()
	price := l.price
	extendHook := l.extendHook
	l.mu.RUnlock()

	if value < price {
		return dErrors.Newf(dErrors.CodeFailedPrecondition, "payment %d below price %d", value, price)
	}

	key, err := l.store.Get(ctx, principal)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to load subscription key")
	}
	if key == nil {
		return dErrors.Wrap(sentinel.ErrNotFound, dErrors.CodeNotFound, "no subscription key to extend")
	}

	now := requestcontext.Now(ctx)
	renewed := *key
	if key.ValidAt(now) {
		renewed.ExpiresAt = key.ExpiresAt.Add(l.duration)
	} else {
		renewed.ExpiresAt = now.Add(l.duration)
	}

	if extendHook != nil {
		if err := extendHook.OnExtend(ctx, l.identity, key.SaleID, principal, renewed.ExpiresAt); err != nil {
			return err
		}
	}

	if err := l.store.Put(ctx, &renewed); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to store renewed key")
	}
	return nil
}

// unwind restores the pre-sale key state after a purchase hook failure.
func (l *Ledger) unwind(ctx context.Context, recipient id.Address, previous *models.SubscriptionKey) {
	var err error
	if previous == nil {
		err = l.store.Delete(ctx, recipient)
	} else {
		err = l.store.Put(ctx, previous)
	}
	if err != nil && l.logger != nil {
		l.logger.ErrorContext(ctx, "failed to unwind aborted sale",
			"recipient", recipient,
			"error", err,
		)
	}
}

var errNotManager = dErrors.New(dErrors.CodeForbidden, "caller is not a ledger manager")
