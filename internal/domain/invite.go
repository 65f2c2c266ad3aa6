package domain

import "time"

// InviteStatus is the lifecycle state of an invitation.
type InviteStatus string

const (
	InviteStatusPending  InviteStatus = "pending"
	InviteStatusAccepted InviteStatus = "accepted"
	InviteStatusDeclined InviteStatus = "declined"
	InviteStatusExpired  InviteStatus = "expired"
)

// Terminal reports whether no further transition is permitted.
func (s InviteStatus) Terminal() bool {
	switch s {
	case InviteStatusAccepted, InviteStatusDeclined, InviteStatusExpired:
		return true
	}
	return false
}

// InviteTokenLength is the exact hex length of an invitation token.
const InviteTokenLength = 48

// ValidInviteToken accepts only strings of exactly 48 hex characters,
// case-insensitive. It is checked before any store lookup.
func ValidInviteToken(token string) bool {
	if len(token) != InviteTokenLength {
		return false
	}
	for i := 0; i < len(token); i++ {
		c := token[i]
		switch {
		case c >= '0' && c <= '9':
		case c >= 'a' && c <= 'f':
		case c >= 'A' && c <= 'F':
		default:
			return false
		}
	}
	return true
}

// Invitation is a token-addressed, time-bounded, single-use grant allowing
// one user to join a space. Records are never deleted; terminal states are
// kept for audit.
type Invitation struct {
	ID          int64
	SpaceID     int64
	Token       string
	InviterUID  string
	TargetEmail string
	TargetUID   string
	Role        SpaceRole
	Status      InviteStatus
	CreatedAt   time.Time
	ExpiresAt   time.Time
	RespondedAt *time.Time
}

// EffectiveStatus computes the status as of now without mutating anything.
// A pending invitation past its deadline reads as expired; persisting that
// transition is the store's job.
func (i Invitation) EffectiveStatus(now time.Time) InviteStatus {
	if i.Status == InviteStatusPending && now.After(i.ExpiresAt) {
		return InviteStatusExpired
	}
	return i.Status
}

// Redacted returns a copy with the secret token blanked. Every outward
// payload must go through this; the raw token travels only through the
// out-of-band channel chosen by the inviter.
func (i Invitation) Redacted() Invitation {
	i.Token = ""
	return i
}
