// Package identity wraps the identity provider as three narrow capabilities:
// verify a credential, mint a token, verify a bearer token. The rest of the
// service depends on the Provider interface, never on a vendor SDK.
package identity

import (
	"context"
	"time"
)

// Identity is the verified subject of a credential.
type Identity struct {
	UID     string
	Email   string
	Name    string
	Picture string
}

// Provider exposes the identity-provider capabilities consumed by the
// session endpoints. Implementations hold no per-request state.
type Provider interface {
	// VerifyIDToken checks a provider ID token presented at sign-in.
	VerifyIDToken(ctx context.Context, idToken string) (Identity, error)

	// MintSessionCredential issues an opaque session credential for the
	// identity, valid for ttl. The credential carries no claims readable by
	// the client.
	MintSessionCredential(ctx context.Context, id Identity, ttl time.Duration) (string, error)

	// VerifySessionCredential validates a session credential. With
	// checkRevoked set, the provider also consults its revocation state.
	// Failure modes map to domain.ErrSessionExpired, domain.ErrSessionRevoked,
	// or domain.ErrAuthenticationFailed.
	VerifySessionCredential(ctx context.Context, credential string, checkRevoked bool) (Identity, error)

	// MintIdentityToken issues a short-lived signed token bound to a single
	// user id, consumed immediately by the client.
	MintIdentityToken(ctx context.Context, uid string, ttl time.Duration) (string, error)

	// VerifyIdentityToken validates a bearer identity token and returns the
	// bound uid.
	VerifyIdentityToken(ctx context.Context, token string) (string, error)

	// RevokeSessionCredential invalidates a credential ahead of its expiry.
	RevokeSessionCredential(ctx context.Context, credential string) error
}

// RevocationStore tracks revoked session ids. Entries only need to outlive
// the credential they invalidate.
type RevocationStore interface {
	Revoke(ctx context.Context, sessionID string, ttl time.Duration) error
	IsRevoked(ctx context.Context, sessionID string) (bool, error)
}
