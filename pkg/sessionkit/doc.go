// Package sessionkit is the client-side authentication session and
// impersonation subsystem of the homeserve platform.
//
// It holds the single source of truth for "who is acting now"
// (SessionContext), a durable key-value contract for surviving restarts
// (Store), token verification against the backend (Verifier), and the
// impersonation Controller that lets a super admin assume another
// user's session and later restore their own, with a local fallback
// when the backend restore call fails.
//
// The package is a library: UI collaborators call into it and own all
// rendering and navigation.
package sessionkit
