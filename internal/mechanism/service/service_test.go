package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"keygate/internal/mechanism/ports"
	memorystore "keygate/internal/mechanism/store/memory"
	id "keygate/pkg/domain"
	dErrors "keygate/pkg/domain-errors"
	"keygate/pkg/requestcontext"
)

var (
	manager   = id.MustAddress("0x4000000000000000000000000000000000000001")
	buyer     = id.MustAddress("0x4000000000000000000000000000000000000002")
	recipient = id.MustAddress("0x4000000000000000000000000000000000000003")
	other     = id.MustAddress("0x4000000000000000000000000000000000000004")
)

// recordingHooks implements every hook interface and records invocations.
// Any of its veto errors can be armed per hook.
type recordingHooks struct {
	capabilities []ports.HookCapability

	quoteCalls    int
	purchaseCalls int
	transferCalls int
	extendCalls   int

	quotePrice  id.Amount
	quoteErr    error
	purchaseErr error
	transferErr error
	extendErr   error

	lastCaller id.Address
}

func (h *recordingHooks) Capabilities() []ports.HookCapability {
	return h.capabilities
}

func (h *recordingHooks) QuotePrice(_ context.Context, _, _, _ id.Address, _ []byte) (id.Amount, error) {
	h.quoteCalls++
	return h.quotePrice, h.quoteErr
}

func (h *recordingHooks) OnPurchase(_ context.Context, caller id.Address, _ id.SaleID, _, _, _ id.Address, _ []byte, _, _ id.Amount) error {
	h.purchaseCalls++
	h.lastCaller = caller
	return h.purchaseErr
}

func (h *recordingHooks) OnTransfer(_ context.Context, caller id.Address, _ id.SaleID, _, _, _ id.Address, _ time.Time) error {
	h.transferCalls++
	h.lastCaller = caller
	return h.transferErr
}

func (h *recordingHooks) OnExtend(_ context.Context, caller id.Address, _ id.SaleID, _ id.Address, _ time.Time) error {
	h.extendCalls++
	h.lastCaller = caller
	return h.extendErr
}

type LedgerSuite struct {
	suite.Suite
	ctx    context.Context
	ledger *Ledger
	store  *memorystore.InMemoryKeyStore
}

func TestLedgerSuite(t *testing.T) {
	suite.Run(t, new(LedgerSuite))
}

func (s *LedgerSuite) SetupTest() {
	s.ctx = context.Background()
	s.store = memorystore.New()
	s.ledger = s.newLedger(ports.InitConfig{
		Creator:            manager,
		ExpirationDuration: 24 * time.Hour,
		UnitPrice:          100,
		DisplayName:        "ledger-test",
	})
}

func (s *LedgerSuite) newLedger(cfg ports.InitConfig) *Ledger {
	ledger, err := NewLedger(other, cfg, s.store)
	s.Require().NoError(err)
	return ledger
}

func (s *LedgerSuite) register(h *recordingHooks) {
	s.Require().NoError(s.ledger.RegisterHooks(s.ctx, manager, h))
}

// ============================================================================
// Construction and management
// ============================================================================

func (s *LedgerSuite) TestNewLedgerValidation() {
	_, err := NewLedger(other, ports.InitConfig{Creator: manager, ExpirationDuration: time.Hour}, nil)
	s.Error(err)

	_, err = NewLedger(other, ports.InitConfig{ExpirationDuration: time.Hour}, memorystore.New())
	s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))

	_, err = NewLedger(other, ports.InitConfig{Creator: manager}, memorystore.New())
	s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))
}

func (s *LedgerSuite) TestManagerGating() {
	s.Run("non-manager calls are rejected", func() {
		err := s.ledger.SetReferrerFee(s.ctx, other, recipient, 100)
		s.True(dErrors.HasCode(err, dErrors.CodeForbidden))

		err = s.ledger.RegisterHooks(s.ctx, other, &recordingHooks{})
		s.True(dErrors.HasCode(err, dErrors.CodeForbidden))

		err = s.ledger.AddManager(s.ctx, other, recipient)
		s.True(dErrors.HasCode(err, dErrors.CodeForbidden))
	})

	s.Run("management can be handed over and renounced", func() {
		s.NoError(s.ledger.AddManager(s.ctx, manager, other))
		s.NoError(s.ledger.RenounceManager(s.ctx, manager))

		s.True(s.ledger.IsManager(other))
		s.False(s.ledger.IsManager(manager))

		err := s.ledger.SetReferrerFee(s.ctx, manager, recipient, 100)
		s.True(dErrors.HasCode(err, dErrors.CodeForbidden))
	})
}

func (s *LedgerSuite) TestRegisterHooksCapabilityScoped() {
	s.Run("only declared capabilities are wired", func() {
		h := &recordingHooks{capabilities: []ports.HookCapability{ports.CapabilityPurchase}}
		s.register(h)

		_, err := s.ledger.Purchase(s.ctx, buyer, id.ZeroAddress, id.ZeroAddress, 100, nil)
		s.NoError(err)

		s.Equal(0, h.quoteCalls)
		s.Equal(1, h.purchaseCalls)
	})

	s.Run("unknown capability is rejected", func() {
		h := &recordingHooks{capabilities: []ports.HookCapability{"settle"}}
		err := s.ledger.RegisterHooks(s.ctx, manager, h)
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})
}

// ============================================================================
// Purchase
// ============================================================================

func (s *LedgerSuite) TestPurchase() {
	h := &recordingHooks{
		capabilities: []ports.HookCapability{ports.CapabilityQuote, ports.CapabilityPurchase},
		quotePrice:   150,
	}
	s.register(h)

	s.Run("zero buyer is rejected", func() {
		_, err := s.ledger.Purchase(s.ctx, id.ZeroAddress, recipient, id.ZeroAddress, 200, nil)
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	s.Run("quote hook reprices the sale", func() {
		_, err := s.ledger.Purchase(s.ctx, buyer, id.ZeroAddress, id.ZeroAddress, 100, nil)
		s.True(dErrors.HasCode(err, dErrors.CodeFailedPrecondition))
		s.Equal(1, h.quoteCalls)
		s.Equal(0, h.purchaseCalls)
	})

	s.Run("sale runs hooks in order and stores the key", func() {
		saleID, err := s.ledger.Purchase(s.ctx, buyer, id.ZeroAddress, id.ZeroAddress, 150, nil)
		s.NoError(err)
		s.False(saleID.IsNil())
		s.Equal(1, h.purchaseCalls)
		s.Equal(s.ledger.Identity(), h.lastCaller)

		valid, err := s.ledger.HasValidSubscription(s.ctx, buyer)
		s.NoError(err)
		s.True(valid)
	})

	s.Run("zero recipient defaults to the buyer", func() {
		key, err := s.store.Get(s.ctx, buyer)
		s.NoError(err)
		s.Require().NotNil(key)
		s.Equal(buyer, key.Owner)
	})
}

func (s *LedgerSuite) TestPurchaseQuoteVeto() {
	h := &recordingHooks{
		capabilities: []ports.HookCapability{ports.CapabilityQuote, ports.CapabilityPurchase},
		quoteErr:     errors.New("quote vetoed"),
	}
	s.register(h)

	_, err := s.ledger.Purchase(s.ctx, buyer, id.ZeroAddress, id.ZeroAddress, 100, nil)
	s.Error(err)
	s.Equal(0, h.purchaseCalls)

	valid, err := s.ledger.HasValidSubscription(s.ctx, buyer)
	s.NoError(err)
	s.False(valid)
}

func (s *LedgerSuite) TestPurchaseHookFailureUnwinds() {
	h := &recordingHooks{
		capabilities: []ports.HookCapability{ports.CapabilityPurchase},
		purchaseErr:  errors.New("grant failed"),
	}
	s.register(h)

	s.Run("a fresh sale leaves no key behind", func() {
		_, err := s.ledger.Purchase(s.ctx, buyer, id.ZeroAddress, id.ZeroAddress, 100, nil)
		s.Error(err)

		key, err := s.store.Get(s.ctx, buyer)
		s.NoError(err)
		s.Nil(key)
	})

	s.Run("an extension restores the previous key", func() {
		h.purchaseErr = nil
		_, err := s.ledger.Purchase(s.ctx, buyer, id.ZeroAddress, id.ZeroAddress, 100, nil)
		s.Require().NoError(err)
		before, err := s.store.Get(s.ctx, buyer)
		s.Require().NoError(err)

		h.purchaseErr = errors.New("grant failed")
		_, err = s.ledger.Purchase(s.ctx, buyer, id.ZeroAddress, id.ZeroAddress, 100, nil)
		s.Error(err)

		after, err := s.store.Get(s.ctx, buyer)
		s.NoError(err)
		s.Require().NotNil(after)
		s.Equal(before.ExpiresAt, after.ExpiresAt)
		s.Equal(before.SaleID, after.SaleID)
	})
}

func (s *LedgerSuite) TestPurchaseExtendsLiveKey() {
	t0 := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	ctx := requestcontext.WithTime(s.ctx, t0)

	_, err := s.ledger.Purchase(ctx, buyer, id.ZeroAddress, id.ZeroAddress, 100, nil)
	s.Require().NoError(err)

	// A live key stacks a second window on top of the current expiry.
	later := requestcontext.WithTime(s.ctx, t0.Add(time.Hour))
	_, err = s.ledger.Purchase(later, buyer, id.ZeroAddress, id.ZeroAddress, 100, nil)
	s.Require().NoError(err)

	key, err := s.store.Get(s.ctx, buyer)
	s.Require().NoError(err)
	s.Equal(t0.Add(48*time.Hour), key.ExpiresAt)

	// A lapsed key starts a fresh window from the purchase time.
	lapsed := requestcontext.WithTime(s.ctx, t0.Add(96*time.Hour))
	_, err = s.ledger.Purchase(lapsed, buyer, id.ZeroAddress, id.ZeroAddress, 100, nil)
	s.Require().NoError(err)

	key, err = s.store.Get(s.ctx, buyer)
	s.Require().NoError(err)
	s.Equal(t0.Add(120*time.Hour), key.ExpiresAt)
}

func (s *LedgerSuite) TestPurchaseSupplyCap() {
	s.store = memorystore.New()
	s.ledger = s.newLedger(ports.InitConfig{
		Creator:            manager,
		ExpirationDuration: 24 * time.Hour,
		UnitPrice:          100,
		SupplyCap:          1,
	})

	_, err := s.ledger.Purchase(s.ctx, buyer, id.ZeroAddress, id.ZeroAddress, 100, nil)
	s.NoError(err)

	s.Run("new keys beyond the cap are rejected", func() {
		_, err := s.ledger.Purchase(s.ctx, other, id.ZeroAddress, id.ZeroAddress, 100, nil)
		s.True(dErrors.HasCode(err, dErrors.CodeFailedPrecondition))
	})

	s.Run("extending an existing key is not capped", func() {
		_, err := s.ledger.Purchase(s.ctx, buyer, id.ZeroAddress, id.ZeroAddress, 100, nil)
		s.NoError(err)
	})
}

// ============================================================================
// Transfer
// ============================================================================

func (s *LedgerSuite) TestTransfer() {
	h := &recordingHooks{capabilities: []ports.HookCapability{ports.CapabilityTransfer}}
	s.register(h)

	_, err := s.ledger.Purchase(s.ctx, buyer, id.ZeroAddress, id.ZeroAddress, 100, nil)
	s.Require().NoError(err)

	s.Run("zero recipient is rejected", func() {
		err := s.ledger.Transfer(s.ctx, buyer, buyer, id.ZeroAddress)
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	s.Run("missing key is rejected", func() {
		err := s.ledger.Transfer(s.ctx, other, other, recipient)
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})

	s.Run("hook veto leaves the ledger untouched", func() {
		h.transferErr = errors.New("transfers disabled")
		err := s.ledger.Transfer(s.ctx, buyer, buyer, recipient)
		s.Error(err)

		valid, err := s.ledger.HasValidSubscription(s.ctx, buyer)
		s.NoError(err)
		s.True(valid)
	})

	s.Run("transfer moves the key", func() {
		h.transferErr = nil
		s.NoError(s.ledger.Transfer(s.ctx, buyer, buyer, recipient))

		fromValid, err := s.ledger.HasValidSubscription(s.ctx, buyer)
		s.NoError(err)
		s.False(fromValid)

		toValid, err := s.ledger.HasValidSubscription(s.ctx, recipient)
		s.NoError(err)
		s.True(toValid)
	})
}

// ============================================================================
// Extend
// ============================================================================

func (s *LedgerSuite) TestExtend() {
	h := &recordingHooks{capabilities: []ports.HookCapability{ports.CapabilityExtend}}
	s.register(h)

	s.Run("missing key is rejected", func() {
		err := s.ledger.Extend(s.ctx, buyer, 100)
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})

	s.Run("underpayment is rejected", func() {
		err := s.ledger.Extend(s.ctx, buyer, 99)
		s.True(dErrors.HasCode(err, dErrors.CodeFailedPrecondition))
	})

	s.Run("renewal stacks on the current expiry", func() {
		t0 := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
		ctx := requestcontext.WithTime(s.ctx, t0)

		_, err := s.ledger.Purchase(ctx, buyer, id.ZeroAddress, id.ZeroAddress, 100, nil)
		s.Require().NoError(err)

		s.NoError(s.ledger.Extend(ctx, buyer, 100))
		s.Equal(1, h.extendCalls)

		key, err := s.store.Get(s.ctx, buyer)
		s.Require().NoError(err)
		s.Equal(t0.Add(48*time.Hour), key.ExpiresAt)
	})

	s.Run("extend hook veto aborts the renewal", func() {
		h.extendErr = errors.New("renewal vetoed")
		before, err := s.store.Get(s.ctx, buyer)
		s.Require().NoError(err)

		s.Error(s.ledger.Extend(s.ctx, buyer, 100))

		after, err := s.store.Get(s.ctx, buyer)
		s.NoError(err)
		s.Equal(before.ExpiresAt, after.ExpiresAt)
	})
}

// ============================================================================
// Factory and provider
// ============================================================================

func (s *LedgerSuite) TestFactory() {
	factory := NewFactory(func(string) (Store, error) {
		return memorystore.New(), nil
	}, nil)

	cfg := ports.InitConfig{
		Creator:            manager,
		ExpirationDuration: time.Hour,
		UnitPrice:          10,
	}

	s.Run("unsupported versions are rejected", func() {
		_, err := factory.CreateAtVersion(s.ctx, cfg, 11)
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	s.Run("each ledger gets a distinct identity", func() {
		first, err := factory.CreateAtVersion(s.ctx, cfg, 14)
		s.Require().NoError(err)
		second, err := factory.CreateAtVersion(s.ctx, cfg, 15)
		s.Require().NoError(err)

		s.NotEqual(first.Identity(), second.Identity())
	})
}

func (s *LedgerSuite) TestProvider() {
	provider := NewProvider()
	addr := id.MustAddress("0x4000000000000000000000000000000000000010")

	_, err := provider.FactoryAt(addr)
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))

	factory := NewFactory(func(string) (Store, error) { return memorystore.New(), nil }, nil)
	provider.Register(addr, factory)

	got, err := provider.FactoryAt(addr)
	s.NoError(err)
	s.Same(factory, got)
}
