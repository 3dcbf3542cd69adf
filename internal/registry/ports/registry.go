// Package ports defines the narrow surface keygate needs from the external
// credential registry. The registry itself — its admin hierarchy, its
// storage — is someone else's system; keygate only holds a restricted
// mint/revoke capability over a single policy.
package ports

import (
	"context"
	"errors"

	id "keygate/pkg/domain"
)

// Sentinel facts reported by registry implementations. Services translate
// these into domain errors.
var (
	// ErrAlreadyHolder: the principal already holds the credential. The
	// registry rejects duplicate grants before checking anything else, so
	// callers that want idempotent grants must branch on this.
	ErrAlreadyHolder = errors.New("principal already holds the credential")

	// ErrNotAdmin: the caller has no admin position over the policy.
	ErrNotAdmin = errors.New("caller is not an admin of the policy")
)

// CredentialRegistry is the mint/revoke/query surface of the external
// credential authority.
type CredentialRegistry interface {
	// Mint grants the credential for policyID to principal. Fails with
	// ErrNotAdmin when caller lacks admin position over the policy and
	// with ErrAlreadyHolder when the principal already holds it.
	Mint(ctx context.Context, caller id.Address, policyID id.PolicyID, principal id.Address) error

	// SetHolderStatus updates holder and standing flags for a current
	// holder. Passing holder=false, goodStanding=true is a soft revoke:
	// the credential is removed without marking misconduct. Requires
	// admin position over the policy.
	SetHolderStatus(ctx context.Context, caller id.Address, policyID id.PolicyID, principal id.Address, holder, goodStanding bool) error

	// IsHolder reports whether principal currently holds the credential.
	IsHolder(ctx context.Context, policyID id.PolicyID, principal id.Address) (bool, error)

	// InGoodStanding reports the disciplinary flag for principal. Unknown
	// principals are in good standing.
	InGoodStanding(ctx context.Context, policyID id.PolicyID, principal id.Address) (bool, error)
}
