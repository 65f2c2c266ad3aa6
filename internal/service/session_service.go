package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/ainexllc/ainexsuite-bridge/internal/config"
	"github.com/ainexllc/ainexsuite-bridge/internal/domain"
	"github.com/ainexllc/ainexsuite-bridge/internal/identity"
	"github.com/ainexllc/ainexsuite-bridge/internal/repository"
)

// SessionService trades credentials across the trust boundary: provider ID
// token in, session credential out; session credential in, identity token
// out. The exchange path never writes.
type SessionService struct {
	provider identity.Provider
	users    repository.UserRepository
	cfg      config.Config
	logger   *zap.Logger
	tracer   trace.Tracer
}

// NewSessionService wires dependencies.
func NewSessionService(provider identity.Provider, users repository.UserRepository, cfg config.Config, logger *zap.Logger) *SessionService {
	return &SessionService{
		provider: provider,
		users:    users,
		cfg:      cfg,
		logger:   logger,
		tracer:   otel.Tracer("github.com/ainexllc/ainexsuite-bridge/internal/service"),
	}
}

// CreateSession verifies a provider ID token and mints a session credential.
// Minimal display info is cached for fast UI rendering; the cache write is
// best-effort and never blocks sign-in.
func (s *SessionService) CreateSession(ctx context.Context, idToken string) (string, error) {
	ctx, span := s.startSpan(ctx, "SessionService.CreateSession")
	defer span.End()

	if strings.TrimSpace(idToken) == "" {
		return "", domain.ErrNoCredential
	}

	id, err := s.provider.VerifyIDToken(ctx, idToken)
	if err != nil {
		span.RecordError(err)
		return "", err
	}

	credential, err := s.provider.MintSessionCredential(ctx, id, s.cfg.SessionTTL)
	if err != nil {
		span.RecordError(err)
		return "", err
	}

	if s.users != nil {
		profile := domain.UserProfile{
			UID:         id.UID,
			Email:       id.Email,
			DisplayName: id.Name,
			PhotoURL:    id.Picture,
		}
		if err := s.users.Upsert(ctx, profile); err != nil {
			s.log().Warn("profile cache write failed", zap.String("uid", id.UID), zap.Error(err))
		}
	}

	s.audit("session.created", "uid", id.UID)
	return credential, nil
}

// ExchangeSession trades a verified session credential for a fresh identity
// token bound to the verified user id. Revocation checking is always on.
// This is a pure verify-then-mint exchange with no side effects and no
// retries; callers that receive an error restart the full sign-in flow.
func (s *SessionService) ExchangeSession(ctx context.Context, credential string) (string, error) {
	ctx, span := s.startSpan(ctx, "SessionService.ExchangeSession")
	defer span.End()

	if strings.TrimSpace(credential) == "" {
		return "", domain.ErrNoCredential
	}

	id, err := s.provider.VerifySessionCredential(ctx, credential, true)
	if err != nil {
		span.RecordError(err)
		return "", normalizeVerifyError(err)
	}

	token, err := s.provider.MintIdentityToken(ctx, id.UID, s.cfg.IdentityTokenTTL)
	if err != nil {
		span.RecordError(err)
		return "", err
	}

	return token, nil
}

// RevokeSession invalidates the presented credential everywhere.
func (s *SessionService) RevokeSession(ctx context.Context, credential string) error {
	ctx, span := s.startSpan(ctx, "SessionService.RevokeSession")
	defer span.End()

	if strings.TrimSpace(credential) == "" {
		return domain.ErrNoCredential
	}
	if err := s.provider.RevokeSessionCredential(ctx, credential); err != nil {
		span.RecordError(err)
		return normalizeVerifyError(err)
	}
	s.audit("session.revoked")
	return nil
}

// VerifyIdentityToken validates a bearer identity token for authenticated
// routes.
func (s *SessionService) VerifyIdentityToken(ctx context.Context, token string) (string, error) {
	return s.provider.VerifyIdentityToken(ctx, token)
}

// normalizeVerifyError collapses provider failures onto the session error
// taxonomy so callers only ever see the distinct, user-safe categories.
func normalizeVerifyError(err error) error {
	switch {
	case errors.Is(err, domain.ErrSessionExpired),
		errors.Is(err, domain.ErrSessionRevoked),
		errors.Is(err, domain.ErrNoCredential),
		errors.Is(err, domain.ErrAuthenticationFailed):
		return err
	default:
		return domain.ErrAuthenticationFailed
	}
}

func (s *SessionService) startSpan(ctx context.Context, name string) (context.Context, trace.Span) {
	if s == nil || s.tracer == nil {
		return ctx, trace.SpanFromContext(ctx)
	}
	return s.tracer.Start(ctx, name)
}

func (s *SessionService) audit(event string, attrs ...any) {
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

func (s *SessionService) log() *zap.Logger {
	if s != nil && s.logger != nil {
		return s.logger
	}
	return zap.L()
}
