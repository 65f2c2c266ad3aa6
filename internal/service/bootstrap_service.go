package service

import (
	"context"
	"crypto/subtle"
	"strings"

	"go.uber.org/zap"

	"github.com/ainexllc/ainexsuite-bridge/internal/domain"
	"github.com/ainexllc/ainexsuite-bridge/internal/repository"
)

// AdminRole is the elevated role the bootstrap path grants.
const AdminRole = "admin"

// BootstrapGuard enforces that the escalation path works at most once per
// deployment. Claim returns false without writing when already consumed.
type BootstrapGuard interface {
	Claim(ctx context.Context, uid string) (bool, error)
}

// BootstrapService is the narrow, intentionally temporary escalation path
// for the first admin. It fails closed: no configured secret means no
// bootstrap, never a shared default.
type BootstrapService struct {
	users  repository.UserRepository
	guard  BootstrapGuard
	secret string
	logger *zap.Logger
}

// NewBootstrapService wires dependencies. secret may be empty, in which case
// every attempt is refused with ErrBootstrapDisabled.
func NewBootstrapService(users repository.UserRepository, guard BootstrapGuard, secret string, logger *zap.Logger) *BootstrapService {
	return &BootstrapService{users: users, guard: guard, secret: secret, logger: logger}
}

// Bootstrap merges the admin role onto the target user's record when the
// secret matches. A mismatch performs no write of any kind.
func (s *BootstrapService) Bootstrap(ctx context.Context, uid, secret string) error {
	uid = strings.TrimSpace(uid)
	if uid == "" {
		return domain.ErrInvalidInput
	}
	if s.secret == "" {
		return domain.ErrBootstrapDisabled
	}
	if subtle.ConstantTimeCompare([]byte(secret), []byte(s.secret)) != 1 {
		return domain.ErrInvalidSecret
	}

	// The target must exist before the single use is consumed, otherwise a
	// typo in the uid would burn the bootstrap for nothing.
	if _, err := s.users.Get(ctx, uid); err != nil {
		return err
	}

	if s.guard != nil {
		ok, err := s.guard.Claim(ctx, uid)
		if err != nil {
			return err
		}
		if !ok {
			return domain.ErrBootstrapConsumed
		}
	}

	if err := s.users.GrantRole(ctx, uid, AdminRole); err != nil {
		return err
	}

	if s.logger != nil {
		s.logger.Info("audit",
			zap.String("event", "bootstrap.granted"),
			zap.String("uid", uid),
			zap.String("role", AdminRole),
		)
	}
	return nil
}
