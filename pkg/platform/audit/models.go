package audit

import (
	"time"

	id "keygate/pkg/domain"
)

// EventCategory classifies audit events by their primary purpose. This
// enables different retention policies, storage backends, and routing.
type EventCategory string

const (
	// CategoryCompliance covers events with economic or contractual
	// significance: credential grants, revocations, fee changes.
	CategoryCompliance EventCategory = "compliance"

	// CategorySecurity covers events relevant to security monitoring:
	// rejected hook callers, failed admin actions.
	CategorySecurity EventCategory = "security"

	// CategoryOperations covers events useful for debugging and
	// operational visibility: initialization, routine quotes.
	CategoryOperations EventCategory = "operations"
)

// Event is emitted from domain logic to capture key actions. Keep it
// transport-agnostic so stores and sinks can fan out.
type Event struct {
	Category  EventCategory
	Timestamp time.Time
	Action    string
	// Principal is the subject of the event: the recipient of a grant,
	// the holder being revoked.
	Principal id.Address
	// Actor is who triggered the event when different from Principal:
	// the mechanism invoking a hook, the referrer updating a fee.
	Actor    id.Address
	PolicyID id.PolicyID
	SaleID   id.SaleID
	Decision string
	Reason   string
	// RequestID correlates the event with the HTTP request that caused it.
	RequestID string
}

// AuditEvent names the actions keygate emits.
type AuditEvent string

const (
	// Hook events
	EventCredentialGranted   AuditEvent = "credential_granted"
	EventCredentialGrantNoop AuditEvent = "credential_grant_noop"
	EventCredentialRevoked   AuditEvent = "credential_revoked"
	EventTransferVetoed      AuditEvent = "transfer_vetoed"
	EventHookCallerRejected  AuditEvent = "hook_caller_rejected"
	EventReferrerFeeMismatch AuditEvent = "referrer_fee_mismatch"

	// Administrative events
	EventFutureReferrerFeeSet AuditEvent = "future_referrer_fee_set"
	EventAdminActionRejected  AuditEvent = "admin_action_rejected"

	// Lifecycle events
	EventBindingInitialized AuditEvent = "binding_initialized"
)
