package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrNoCredential signals a request without a session credential.
	ErrNoCredential = errors.New("session: no credential")
	// ErrSessionExpired indicates the credential passed its provider deadline.
	ErrSessionExpired = errors.New("session: expired")
	// ErrSessionRevoked indicates the credential was revoked after issuance.
	ErrSessionRevoked = errors.New("session: revoked")
	// ErrAuthenticationFailed covers every other verification failure.
	ErrAuthenticationFailed = errors.New("session: authentication failed")
	// ErrInvalidToken rejects malformed invitation tokens before any lookup.
	ErrInvalidToken = errors.New("invite: malformed token")
	// ErrInviteNotFound signals an unknown invitation token.
	ErrInviteNotFound = errors.New("invite: not found")
	// ErrSpaceNotFound signals an unknown space id.
	ErrSpaceNotFound = errors.New("space: not found")
	// ErrNotSpaceMember rejects callers outside the space's membership.
	ErrNotSpaceMember = errors.New("space: not a member")
	// ErrUserNotFound signals an unknown user profile.
	ErrUserNotFound = errors.New("user: not found")
	// ErrInvalidInput rejects requests missing required fields.
	ErrInvalidInput = errors.New("invalid input")
	// ErrInvalidSecret rejects a bootstrap attempt with the wrong secret.
	ErrInvalidSecret = errors.New("bootstrap: invalid secret")
	// ErrBootstrapDisabled refuses bootstrap when no secret is configured.
	// A missing secret is a deployment error, never a fallback.
	ErrBootstrapDisabled = errors.New("bootstrap: secret not configured")
	// ErrBootstrapConsumed refuses bootstrap after its single permitted use.
	ErrBootstrapConsumed = errors.New("bootstrap: already used")
)

// TerminalStateError reports an invitation already out of pending. The
// current status is named so callers know which terminal state absorbed it.
type TerminalStateError struct {
	Status InviteStatus
}

func (e *TerminalStateError) Error() string {
	return fmt.Sprintf("invite: already %s", e.Status)
}

// Message renders the user-facing description of the terminal state.
func (e *TerminalStateError) Message() string {
	if e.Status == InviteStatusExpired {
		return "Invite has expired"
	}
	return fmt.Sprintf("Invite has already been %s", e.Status)
}
