package sessionkit

import "errors"

// Sentinel errors for the session and impersonation flows. Callers
// match with errors.Is; wrapped variants carry call-site detail.
var (
	// ErrInvalidToken means verification rejected the held credential.
	ErrInvalidToken = errors.New("session token rejected")

	// ErrVerificationUnavailable means verification could not reach the
	// backend at all. Handled the same as ErrInvalidToken today (forced
	// logout) but kept distinct so a stricter caller can retry instead.
	ErrVerificationUnavailable = errors.New("session verification unavailable")

	// ErrPermissionDenied means a non-super-admin attempted to
	// impersonate.
	ErrPermissionDenied = errors.New("impersonation requires a super admin")

	// ErrInvalidTarget means the impersonation target was a super admin
	// or the acting user themselves.
	ErrInvalidTarget = errors.New("invalid impersonation target")

	// ErrDelegationStartFailed means the backend rejected or never
	// received the impersonation request. No local state was changed;
	// the operation is safe to retry.
	ErrDelegationStartFailed = errors.New("impersonation could not be started")

	// ErrFallbackUnavailable means the saved original session was
	// missing from the store when the fallback restore path needed it.
	ErrFallbackUnavailable = errors.New("saved session unavailable for restore")

	// ErrRestoreFailed means both exit paths were exhausted. The system
	// stays in the delegating state; the user must reload and sign in
	// again.
	ErrRestoreFailed = errors.New("unable to restore original session, reload the page")
)
