// Package hooks implements the subscription event handler: the reactive
// write path invoked by the bound subscription mechanism on price quotes,
// purchases, and transfers. Each hook authorizes the caller, validates the
// economic terms, and drives credential grants and revocations on the
// external credential registry.
//
// The handler holds no membership state of its own; the current subscriber
// set lives entirely in the subscription ledger, and the credential registry
// is the authority for who holds the credential. Hooks only synchronize the
// two.
package hooks

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"keygate/internal/hooks/metrics"
	mechports "keygate/internal/mechanism/ports"
	regports "keygate/internal/registry/ports"
	id "keygate/pkg/domain"
	dErrors "keygate/pkg/domain-errors"
	audit "keygate/pkg/platform/audit"
	"keygate/pkg/requestcontext"
)

// EconomicTerms fixes the referrer fee split a binding was initialized with.
// Quotes verify the mechanism still honors these terms.
type EconomicTerms struct {
	Referrer               id.Address
	ReferrerFeeBasisPoints id.BasisPoints
}

// TransferPolicy selects how the handler reacts to subscription transfers.
// The two policies are distinct products; there is no blended behavior.
type TransferPolicy string

const (
	// TransferForbid vetoes every transfer: subscriptions, and with them
	// eligibility, stay bound to the original purchaser.
	TransferForbid TransferPolicy = "forbid"

	// TransferRebind moves the credential with the key: soft-revoke the
	// sender, grant the recipient.
	TransferRebind TransferPolicy = "rebind"
)

// ParseTransferPolicy validates a policy string from configuration.
func ParseTransferPolicy(s string) (TransferPolicy, error) {
	switch TransferPolicy(s) {
	case TransferForbid, TransferRebind:
		return TransferPolicy(s), nil
	}
	return "", dErrors.Newf(dErrors.CodeInvalidInput, "transfer policy must be %q or %q", TransferForbid, TransferRebind)
}

// FutureFeeConfig is the shared deployment configuration slot the
// administrative fee update writes to. Only bindings initialized after the
// write observe the new fee.
type FutureFeeConfig interface {
	SetReferrerFee(fee id.BasisPoints)
}

// AuditPublisher emits audit events from hook handling.
type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

// Service is the hook handler bound to one mechanism and one policy.
type Service struct {
	mechanism mechports.Mechanism
	registry  regports.CredentialRegistry
	policyID  id.PolicyID

	// identity is the principal this binding acts as against the
	// registry; its admin position over policyID is granted out-of-band.
	identity id.Address

	terms          EconomicTerms
	transferPolicy TransferPolicy
	futureFees     FutureFeeConfig

	logger  *slog.Logger
	metrics *metrics.Metrics
	audit   AuditPublisher
	tracer  trace.Tracer
}

// Option configures a Service.
type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

func WithAuditPublisher(publisher AuditPublisher) Option {
	return func(s *Service) {
		s.audit = publisher
	}
}

// WithFutureFeeConfig wires the shared deployment config slot the referrer's
// administrative fee update writes through to.
func WithFutureFeeConfig(cfg FutureFeeConfig) Option {
	return func(s *Service) {
		s.futureFees = cfg
	}
}

// New constructs a hook handler.
func New(mechanism mechports.Mechanism, registry regports.CredentialRegistry, identity id.Address, policyID id.PolicyID, terms EconomicTerms, transferPolicy TransferPolicy, opts ...Option) (*Service, error) {
	if mechanism == nil {
		return nil, errors.New("subscription mechanism is required")
	}
	if registry == nil {
		return nil, errors.New("credential registry is required")
	}
	if transferPolicy != TransferForbid && transferPolicy != TransferRebind {
		return nil, dErrors.Newf(dErrors.CodeInvalidInput, "invalid transfer policy %q", transferPolicy)
	}

	s := &Service{
		mechanism:      mechanism,
		registry:       registry,
		policyID:       policyID,
		identity:       identity,
		terms:          terms,
		transferPolicy: transferPolicy,
		tracer:         otel.Tracer("keygate/hooks"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Terms returns the economic terms the handler enforces.
func (s *Service) Terms() EconomicTerms {
	return s.terms
}

// Capabilities declares which hooks this handler implements. The mechanism
// wires only these.
func (s *Service) Capabilities() []mechports.HookCapability {
	return []mechports.HookCapability{
		mechports.CapabilityQuote,
		mechports.CapabilityPurchase,
		mechports.CapabilityTransfer,
	}
}

// QuotePrice returns the price a pending purchase must pay. Anyone may quote;
// the fee-consistency check guards against external tampering with the
// mechanism's referrer fee after initialization and has no side effects.
func (s *Service) QuotePrice(ctx context.Context, buyer, recipient, referrer id.Address, data []byte) (id.Amount, error) {
	start := time.Now()
	defer func() { s.metrics.ObserveHookLatency("quote", time.Since(start)) }()

	recorded, err := s.mechanism.ReferrerFee(ctx, s.terms.Referrer)
	if err != nil {
		s.metrics.IncrementInvocation("quote", "error")
		return 0, dErrors.Wrap(err, dErrors.CodeInternal, "failed to read mechanism referrer fee")
	}
	if recorded != s.terms.ReferrerFeeBasisPoints {
		s.metrics.IncrementInvocation("quote", "fee_mismatch")
		s.logAudit(ctx, audit.Event{
			Category:  audit.CategorySecurity,
			Action:    string(audit.EventReferrerFeeMismatch),
			Principal: s.terms.Referrer,
			PolicyID:  s.policyID,
			Reason:    "recorded fee " + recorded.String() + ", bound terms " + s.terms.ReferrerFeeBasisPoints.String(),
		})
		return 0, ErrInvalidReferrerFee
	}

	price, err := s.mechanism.CurrentPrice(ctx)
	if err != nil {
		s.metrics.IncrementInvocation("quote", "error")
		return 0, dErrors.Wrap(err, dErrors.CodeInternal, "failed to read mechanism price")
	}

	s.metrics.IncrementInvocation("quote", "ok")
	return price, nil
}

// OnPurchase grants the credential to the sale's recipient. Only the bound
// mechanism may call it.
//
// Grants are idempotent: a recipient who already holds the credential —
// typically a re-subscription after a disciplinary revocation and
// reinstatement — is a successful no-op rather than a failure. The registry
// rejects duplicate grants before checking anything else, so without this
// branch a repurchase by a current holder would spuriously fail even though
// the end state is already correct.
func (s *Service) OnPurchase(ctx context.Context, caller id.Address, saleID id.SaleID, payer, recipient, referrer id.Address, data []byte, minPrice, pricePaid id.Amount) error {
	ctx, span := s.tracer.Start(ctx, "hooks.OnPurchase")
	defer span.End()

	start := time.Now()
	defer func() { s.metrics.ObserveHookLatency("purchase", time.Since(start)) }()

	if err := s.authorizeCaller(ctx, caller, "purchase"); err != nil {
		return err
	}

	if err := s.grant(ctx, recipient, saleID); err != nil {
		s.metrics.IncrementInvocation("purchase", "grant_failed")
		return err
	}

	s.metrics.IncrementInvocation("purchase", "ok")
	if s.logger != nil {
		s.logger.InfoContext(ctx, "purchase hook handled",
			"request_id", requestcontext.RequestID(ctx),
			"sale_id", saleID,
			"payer", payer,
			"recipient", recipient,
			"price_paid", pricePaid,
		)
	}
	return nil
}

// OnTransfer reacts to a key moving between principals. Only the bound
// mechanism may call it. Under TransferForbid every transfer is vetoed;
// under TransferRebind the credential follows the key: the sender is
// soft-revoked (holder cleared, standing untouched — losing the key is not
// misconduct) and the recipient is granted under the same idempotent
// contract as purchases.
func (s *Service) OnTransfer(ctx context.Context, caller id.Address, saleID id.SaleID, operator, from, to id.Address, expiresAt time.Time) error {
	ctx, span := s.tracer.Start(ctx, "hooks.OnTransfer")
	defer span.End()

	start := time.Now()
	defer func() { s.metrics.ObserveHookLatency("transfer", time.Since(start)) }()

	if err := s.authorizeCaller(ctx, caller, "transfer"); err != nil {
		return err
	}

	if s.transferPolicy == TransferForbid {
		s.metrics.IncrementInvocation("transfer", "vetoed")
		s.logAudit(ctx, audit.Event{
			Category:  audit.CategorySecurity,
			Action:    string(audit.EventTransferVetoed),
			Principal: from,
			Actor:     operator,
			PolicyID:  s.policyID,
			SaleID:    saleID,
		})
		return ErrTransferNotAllowed
	}

	if err := s.registry.SetHolderStatus(ctx, s.identity, s.policyID, from, false, true); err != nil {
		s.metrics.IncrementInvocation("transfer", "revoke_failed")
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to revoke credential from sender")
	}
	s.logAudit(ctx, audit.Event{
		Category:  audit.CategoryCompliance,
		Action:    string(audit.EventCredentialRevoked),
		Principal: from,
		Actor:     caller,
		PolicyID:  s.policyID,
		SaleID:    saleID,
		Reason:    "subscription transferred",
	})

	if err := s.grant(ctx, to, saleID); err != nil {
		s.metrics.IncrementInvocation("transfer", "grant_failed")
		return err
	}

	s.metrics.IncrementInvocation("transfer", "ok")
	if s.logger != nil {
		s.logger.InfoContext(ctx, "transfer hook handled",
			"request_id", requestcontext.RequestID(ctx),
			"sale_id", saleID,
			"from", from,
			"to", to,
			"expires_at", expiresAt,
		)
	}
	return nil
}

// SetFutureReferrerFee updates the fee recorded in the shared deployment
// configuration. Restricted to the configured referrer; only bindings
// initialized after the call observe the new fee.
func (s *Service) SetFutureReferrerFee(ctx context.Context, actor id.Address, fee id.BasisPoints) error {
	if actor != s.terms.Referrer {
		s.logAudit(ctx, audit.Event{
			Category: audit.CategorySecurity,
			Action:   string(audit.EventAdminActionRejected),
			Actor:    actor,
			PolicyID: s.policyID,
			Reason:   "future referrer fee update by non-referrer",
		})
		return ErrNotAuthorizedAdmin
	}
	if s.futureFees == nil {
		return dErrors.New(dErrors.CodeInternal, "deployment configuration is not wired")
	}

	s.futureFees.SetReferrerFee(fee)
	s.logAudit(ctx, audit.Event{
		Category: audit.CategoryCompliance,
		Action:   string(audit.EventFutureReferrerFeeSet),
		Actor:    actor,
		PolicyID: s.policyID,
		Decision: fee.String(),
	})
	return nil
}

// authorizeCaller enforces that state-mutating hooks come from the bound
// mechanism. Identity-based authorization is the only mutual exclusion this
// surface has.
func (s *Service) authorizeCaller(ctx context.Context, caller id.Address, hook string) error {
	if caller == s.mechanism.Identity() {
		return nil
	}
	s.metrics.IncrementInvocation(hook, "unauthorized")
	s.logAudit(ctx, audit.Event{
		Category: audit.CategorySecurity,
		Action:   string(audit.EventHookCallerRejected),
		Actor:    caller,
		PolicyID: s.policyID,
		Reason:   hook,
	})
	return ErrNotAuthorizedCaller
}

// grant mints the credential for recipient, treating "already holds it" as
// success.
func (s *Service) grant(ctx context.Context, recipient id.Address, saleID id.SaleID) error {
	err := s.registry.Mint(ctx, s.identity, s.policyID, recipient)
	switch {
	case err == nil:
		s.metrics.IncrementGrant("granted")
		s.logAudit(ctx, audit.Event{
			Category:  audit.CategoryCompliance,
			Action:    string(audit.EventCredentialGranted),
			Principal: recipient,
			Actor:     s.identity,
			PolicyID:  s.policyID,
			SaleID:    saleID,
		})
		return nil

	case errors.Is(err, regports.ErrAlreadyHolder):
		s.metrics.IncrementGrant("noop")
		s.logAudit(ctx, audit.Event{
			Category:  audit.CategoryOperations,
			Action:    string(audit.EventCredentialGrantNoop),
			Principal: recipient,
			PolicyID:  s.policyID,
			SaleID:    saleID,
		})
		return nil

	default:
		s.metrics.IncrementGrant("failed")
		return &dErrors.DomainError{
			Code:    dErrors.CodeInternal,
			Message: ErrCredentialGrantFailed.Message,
			Err:     err,
		}
	}
}

func (s *Service) logAudit(ctx context.Context, event audit.Event) {
	if event.RequestID == "" {
		event.RequestID = requestcontext.RequestID(ctx)
	}
	if s.logger != nil {
		s.logger.InfoContext(ctx, event.Action,
			"request_id", event.RequestID,
			"principal", event.Principal,
			"actor", event.Actor,
			"policy_id", event.PolicyID,
			"log_type", "audit",
		)
	}
	if s.audit == nil {
		return
	}
	if err := s.audit.Emit(ctx, event); err != nil && s.logger != nil {
		s.logger.WarnContext(ctx, "failed to emit audit event", "event", event.Action, "error", err)
	}
}
