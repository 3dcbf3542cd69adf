// Package eligibility implements the read path: does a principal currently
// satisfy the subscription-based policy? The check is pure — no side
// effects, no cached membership — and delegates entirely to the bound
// subscription mechanism's view of key validity.
package eligibility

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"keygate/internal/eligibility/metrics"
	mechports "keygate/internal/mechanism/ports"
	regports "keygate/internal/registry/ports"
	id "keygate/pkg/domain"
	dErrors "keygate/pkg/domain-errors"
)

// Result is the eligibility answer for one principal.
//
// GoodStanding is a disciplinary dimension distinct from eligibility. This
// module never disciplines — it only gates on subscription currency — so
// standing is unconditionally true, leaving other policy modules free to
// compose the two dimensions differently.
type Result struct {
	Eligible     bool
	GoodStanding bool
}

// StatusReport extends Result with the registry's view for operator surfaces.
type StatusReport struct {
	Result
	HoldsCredential bool
}

const statusTimeout = 2 * time.Second

// Service answers eligibility queries against one binding.
type Service struct {
	mechanism mechports.Mechanism
	registry  regports.CredentialRegistry
	policyID  id.PolicyID
	logger    *slog.Logger
	metrics   *metrics.Metrics
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

// New constructs an eligibility oracle over a bound mechanism.
func New(mechanism mechports.Mechanism, registry regports.CredentialRegistry, policyID id.PolicyID, opts ...Option) (*Service, error) {
	if mechanism == nil {
		return nil, errors.New("subscription mechanism is required")
	}
	if registry == nil {
		return nil, errors.New("credential registry is required")
	}

	s := &Service{
		mechanism: mechanism,
		registry:  registry,
		policyID:  policyID,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// CheckEligibility reports whether principal currently holds a valid
// subscription. Safe for arbitrary principals, including those with no
// subscription history. The policyID parameter is accepted for interface
// parity with multi-policy callers; this binding governs exactly one policy.
func (s *Service) CheckEligibility(ctx context.Context, principal id.Address, _ id.PolicyID) (Result, error) {
	valid, err := s.mechanism.HasValidSubscription(ctx, principal)
	if err != nil {
		return Result{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to check subscription validity")
	}

	s.metrics.IncrementCheck(valid)
	return Result{Eligible: valid, GoodStanding: true}, nil
}

// Status gathers the subscription and credential views concurrently for one
// principal. Read-only; used by operator tooling to spot drift between the
// ledger and the registry.
func (s *Service) Status(ctx context.Context, principal id.Address) (StatusReport, error) {
	ctx, cancel := context.WithTimeout(ctx, statusTimeout)
	defer cancel()

	var report StatusReport
	report.GoodStanding = true

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		valid, err := s.mechanism.HasValidSubscription(ctx, principal)
		if err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to check subscription validity")
		}
		report.Eligible = valid
		return nil
	})
	g.Go(func() error {
		holds, err := s.registry.IsHolder(ctx, s.policyID, principal)
		if err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to check credential holder state")
		}
		report.HoldsCredential = holds
		return nil
	})
	if err := g.Wait(); err != nil {
		return StatusReport{}, err
	}

	if s.logger != nil && report.Eligible != report.HoldsCredential {
		s.logger.WarnContext(ctx, "subscription and credential state diverge",
			"principal", principal,
			"eligible", report.Eligible,
			"holds_credential", report.HoldsCredential,
		)
	}
	return report, nil
}
