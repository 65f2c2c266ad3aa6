package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/ainexllc/ainexsuite-bridge/internal/domain"
	"github.com/ainexllc/ainexsuite-bridge/internal/repository"
)

// DefaultInviteTTL applies when the caller does not choose a lifetime.
const DefaultInviteTTL = 7 * 24 * time.Hour

// InviteService governs admission into spaces through token-addressed,
// single-use invitations.
type InviteService struct {
	invites   repository.InviteRepository
	spaces    repository.SpaceRepository
	snowflake *snowflake.Node
	ttl       time.Duration
	logger    *zap.Logger
	tracer    trace.Tracer
	now       func() time.Time
}

// NewInviteService wires dependencies. A zero ttl falls back to
// DefaultInviteTTL.
func NewInviteService(invites repository.InviteRepository, spaces repository.SpaceRepository, node *snowflake.Node, ttl time.Duration, logger *zap.Logger) *InviteService {
	if ttl <= 0 {
		ttl = DefaultInviteTTL
	}
	return &InviteService{
		invites:   invites,
		spaces:    spaces,
		snowflake: node,
		ttl:       ttl,
		logger:    logger,
		tracer:    otel.Tracer("github.com/ainexllc/ainexsuite-bridge/internal/service"),
		now:       time.Now,
	}
}

// CreateInviteInput carries everything needed to issue an invitation.
type CreateInviteInput struct {
	SpaceID     int64
	InviterUID  string
	TargetEmail string
	TargetUID   string
	Role        domain.SpaceRole
	TTL         time.Duration
}

// CreateInvite issues a pending invitation addressed by a fresh random
// token. The returned record still carries the token so the out-of-band
// delivery channel can embed it; HTTP responses must expose only the public
// id (see Invitation.Redacted).
func (s *InviteService) CreateInvite(ctx context.Context, in CreateInviteInput) (domain.Invitation, error) {
	ctx, span := s.startSpan(ctx, "InviteService.CreateInvite")
	defer span.End()

	inviter := strings.TrimSpace(in.InviterUID)
	if in.SpaceID == 0 || inviter == "" {
		return domain.Invitation{}, domain.ErrInvalidInput
	}
	if strings.TrimSpace(in.TargetEmail) == "" && strings.TrimSpace(in.TargetUID) == "" {
		return domain.Invitation{}, domain.ErrInvalidInput
	}
	role := in.Role
	if role == "" {
		role = domain.SpaceRoleMember
	}
	if !role.Valid() {
		return domain.Invitation{}, domain.ErrInvalidInput
	}

	space, err := s.spaces.Get(ctx, in.SpaceID)
	if err != nil {
		span.RecordError(err)
		return domain.Invitation{}, err
	}
	if !space.HasMember(inviter) {
		return domain.Invitation{}, domain.ErrNotSpaceMember
	}

	ttl := in.TTL
	if ttl <= 0 {
		ttl = s.ttl
	}

	now := s.now().UTC()
	inv := domain.Invitation{
		ID:          s.snowflake.Generate().Int64(),
		SpaceID:     in.SpaceID,
		Token:       newInviteToken(),
		InviterUID:  inviter,
		TargetEmail: strings.ToLower(strings.TrimSpace(in.TargetEmail)),
		TargetUID:   strings.TrimSpace(in.TargetUID),
		Role:        role,
		Status:      domain.InviteStatusPending,
		CreatedAt:   now,
		ExpiresAt:   now.Add(ttl),
	}

	if err := s.invites.Create(ctx, inv); err != nil {
		span.RecordError(err)
		return domain.Invitation{}, fmt.Errorf("persist invitation: %w", err)
	}

	s.audit("invite.created", "invite_id", inv.ID, "space_id", inv.SpaceID, "inviter_uid", inviter)
	return inv, nil
}

// GetInviteByToken resolves an invitation for the public lookup. Pending
// invitations past their deadline transition to expired as a side effect;
// the returned record always has its token redacted.
func (s *InviteService) GetInviteByToken(ctx context.Context, token string) (domain.Invitation, error) {
	ctx, span := s.startSpan(ctx, "InviteService.GetInviteByToken")
	defer span.End()

	if !domain.ValidInviteToken(token) {
		return domain.Invitation{}, domain.ErrInvalidToken
	}

	inv, err := s.invites.GetByToken(ctx, strings.ToLower(token))
	if err != nil {
		return domain.Invitation{}, err
	}

	now := s.now().UTC()
	effective := inv.EffectiveStatus(now)
	if effective.Terminal() {
		if inv.Status == domain.InviteStatusPending {
			s.persistExpiry(ctx, inv.ID, now)
		}
		return domain.Invitation{}, &domain.TerminalStateError{Status: effective}
	}

	return inv.Redacted(), nil
}

// AcceptInvite admits the acting user into the invitation's space. The
// pending check and the transition run as one conditional update in the
// store, so concurrent accepts admit the member exactly once.
func (s *InviteService) AcceptInvite(ctx context.Context, token, actingUID, actingDisplayName, actingPhotoURL string) (domain.Invitation, error) {
	ctx, span := s.startSpan(ctx, "InviteService.AcceptInvite")
	defer span.End()

	if !domain.ValidInviteToken(token) {
		return domain.Invitation{}, domain.ErrInvalidToken
	}
	uid := strings.TrimSpace(actingUID)
	if uid == "" {
		return domain.Invitation{}, domain.ErrInvalidInput
	}

	now := s.now().UTC()
	member := domain.SpaceMember{
		UID:         uid,
		DisplayName: actingDisplayName,
		PhotoURL:    actingPhotoURL,
		JoinedAt:    now,
	}

	inv, ok, err := s.invites.Accept(ctx, strings.ToLower(token), member, now)
	if err != nil {
		span.RecordError(err)
		return domain.Invitation{}, fmt.Errorf("accept invitation: %w", err)
	}
	if !ok {
		return domain.Invitation{}, s.transitionFailure(ctx, token, now)
	}

	s.audit("invite.accepted", "invite_id", inv.ID, "space_id", inv.SpaceID, "uid", uid)
	return inv.Redacted(), nil
}

// DeclineInvite transitions the invitation to declined without touching
// membership.
func (s *InviteService) DeclineInvite(ctx context.Context, token string) (domain.Invitation, error) {
	ctx, span := s.startSpan(ctx, "InviteService.DeclineInvite")
	defer span.End()

	if !domain.ValidInviteToken(token) {
		return domain.Invitation{}, domain.ErrInvalidToken
	}

	now := s.now().UTC()
	inv, ok, err := s.invites.Decline(ctx, strings.ToLower(token), now)
	if err != nil {
		span.RecordError(err)
		return domain.Invitation{}, fmt.Errorf("decline invitation: %w", err)
	}
	if !ok {
		return domain.Invitation{}, s.transitionFailure(ctx, token, now)
	}

	s.audit("invite.declined", "invite_id", inv.ID, "space_id", inv.SpaceID)
	return inv.Redacted(), nil
}

// transitionFailure explains why a conditional transition matched nothing:
// the token is unknown, the invitation sits in a terminal state, or it
// overran its deadline while still pending.
func (s *InviteService) transitionFailure(ctx context.Context, token string, now time.Time) error {
	inv, err := s.invites.GetByToken(ctx, strings.ToLower(token))
	if err != nil {
		return err
	}
	effective := inv.EffectiveStatus(now)
	if inv.Status == domain.InviteStatusPending && effective == domain.InviteStatusExpired {
		s.persistExpiry(ctx, inv.ID, now)
	}
	if effective.Terminal() {
		return &domain.TerminalStateError{Status: effective}
	}
	// Unreachable under read-committed: the losing update re-reads the
	// winner's terminal state. Surface it rather than guess.
	return fmt.Errorf("invite %d: conditional transition lost", inv.ID)
}

func (s *InviteService) persistExpiry(ctx context.Context, inviteID int64, now time.Time) {
	wrote, err := s.invites.MarkExpired(ctx, inviteID, now)
	if err != nil {
		s.log().Warn("persist invite expiry failed", zap.Int64("invite_id", inviteID), zap.Error(err))
		return
	}
	if wrote {
		s.audit("invite.expired", "invite_id", inviteID)
	}
}

func (s *InviteService) startSpan(ctx context.Context, name string) (context.Context, trace.Span) {
	if s == nil || s.tracer == nil {
		return ctx, trace.SpanFromContext(ctx)
	}
	return s.tracer.Start(ctx, name)
}

func (s *InviteService) audit(event string, attrs ...any) {
	logger := s.log()
	if logger == nil {
		return
	}
	fields := make([]zap.Field, 0, len(attrs)/2+2)
	fields = append(fields, zap.String("event", event), zap.Time("timestamp", time.Now().UTC()))
	for i := 0; i+1 < len(attrs); i += 2 {
		key, ok := attrs[i].(string)
		if !ok {
			continue
		}
		fields = append(fields, zap.Any(key, attrs[i+1]))
	}
	logger.Info("audit", fields...)
}

func (s *InviteService) log() *zap.Logger {
	if s != nil && s.logger != nil {
		return s.logger
	}
	return zap.L()
}

// newInviteToken returns 24 random bytes hex-encoded: 48 characters, the
// exact format ValidInviteToken enforces.
func newInviteToken() string {
	b := make([]byte, domain.InviteTokenLength/2)
	if _, err := rand.Read(b); err != nil {
		panic(err)
	}
	return hex.EncodeToString(b)
}
