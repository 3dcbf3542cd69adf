package hooks

import (
	dErrors "keygate/pkg/domain-errors"
)

// Domain errors for the hook surface. Fail-closed: any ambiguity in
// authorization or economic state blocks the operation; nothing here is
// retried internally.
var (
	// ErrNotAuthorizedCaller: a hook was invoked by a principal other
	// than the bound subscription mechanism.
	ErrNotAuthorizedCaller = dErrors.New(dErrors.CodeUnauthorized, "caller is not the bound subscription mechanism")

	// ErrNotAuthorizedAdmin: a fee update was attempted by a principal
	// other than the configured referrer.
	ErrNotAuthorizedAdmin = dErrors.New(dErrors.CodeForbidden, "caller is not the configured referrer")

	// ErrInvalidReferrerFee: the fee recorded on the mechanism for the
	// configured referrer no longer matches the binding's terms. Someone
	// changed it after initialization; quotes are blocked until a
	// mechanism manager restores it.
	ErrInvalidReferrerFee = dErrors.New(dErrors.CodeFailedPrecondition, "mechanism referrer fee does not match bound economic terms")

	// ErrTransferNotAllowed: the binding's transfer policy forbids moving
	// subscriptions between principals.
	ErrTransferNotAllowed = dErrors.New(dErrors.CodeForbidden, "subscription transfer is not allowed")

	// ErrCredentialGrantFailed: the registry rejected a grant for a
	// reason other than the recipient already holding the credential.
	ErrCredentialGrantFailed = dErrors.New(dErrors.CodeInternal, "credential grant failed")
)
