package repository

import (
	"context"
	"time"

	"github.com/ainexllc/ainexsuite-bridge/internal/domain"
)

// InviteRepository persists invitations. Records are append-then-transition
// only; nothing here deletes.
type InviteRepository interface {
	Create(ctx context.Context, inv domain.Invitation) error
	GetByToken(ctx context.Context, token string) (domain.Invitation, error)

	// MarkExpired conditionally transitions a pending invitation past its
	// deadline to expired. It reports whether this call performed the write;
	// racing reads and concurrent accepts make it a no-op.
	MarkExpired(ctx context.Context, inviteID int64, now time.Time) (bool, error)

	// Accept transitions pending→accepted and appends the member to the
	// target space as one atomic unit. ok is false when the invitation was
	// not pending (or past its deadline) at write time.
	Accept(ctx context.Context, token string, member domain.SpaceMember, now time.Time) (inv domain.Invitation, ok bool, err error)

	// Decline transitions pending→declined with the same conditional
	// semantics as Accept, without touching membership.
	Decline(ctx context.Context, token string, now time.Time) (inv domain.Invitation, ok bool, err error)
}

// SpaceRepository persists spaces and their canonical member rows.
type SpaceRepository interface {
	Create(ctx context.Context, space domain.Space) error
	Get(ctx context.Context, spaceID int64) (domain.Space, error)
	ListByMember(ctx context.Context, uid string) ([]domain.Space, error)
	AddMember(ctx context.Context, spaceID int64, member domain.SpaceMember) error
}

// UserRepository stores cached user profiles and their roles.
type UserRepository interface {
	Get(ctx context.Context, uid string) (domain.UserProfile, error)
	Upsert(ctx context.Context, profile domain.UserProfile) error

	// GrantRole merges a role onto the user's record without overwriting
	// other fields; granting an already-held role is a no-op.
	GrantRole(ctx context.Context, uid, role string) error
}
