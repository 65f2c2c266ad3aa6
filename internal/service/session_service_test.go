package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ainexllc/ainexsuite-bridge/internal/config"
	"github.com/ainexllc/ainexsuite-bridge/internal/domain"
	"github.com/ainexllc/ainexsuite-bridge/internal/identity"
	"github.com/ainexllc/ainexsuite-bridge/internal/service"
)

// fakeProvider scripts the identity-provider capabilities.
type fakeProvider struct {
	verifyIDErr      error
	verifySessionErr error
	identity         identity.Identity
	minted           int
	revoked          []string
}

func (f *fakeProvider) VerifyIDToken(ctx context.Context, idToken string) (identity.Identity, error) {
	if f.verifyIDErr != nil {
		return identity.Identity{}, f.verifyIDErr
	}
	return f.identity, nil
}

func (f *fakeProvider) MintSessionCredential(ctx context.Context, id identity.Identity, ttl time.Duration) (string, error) {
	return "session-credential", nil
}

func (f *fakeProvider) VerifySessionCredential(ctx context.Context, credential string, checkRevoked bool) (identity.Identity, error) {
	if f.verifySessionErr != nil {
		return identity.Identity{}, f.verifySessionErr
	}
	return f.identity, nil
}

func (f *fakeProvider) MintIdentityToken(ctx context.Context, uid string, ttl time.Duration) (string, error) {
	f.minted++
	return "identity-token:" + uid, nil
}

func (f *fakeProvider) VerifyIdentityToken(ctx context.Context, token string) (string, error) {
	return f.identity.UID, nil
}

func (f *fakeProvider) RevokeSessionCredential(ctx context.Context, credential string) error {
	f.revoked = append(f.revoked, credential)
	return nil
}

type memoryUserRepo struct {
	profiles map[string]domain.UserProfile
	writes   int
}

func newMemoryUserRepo() *memoryUserRepo {
	return &memoryUserRepo{profiles: map[string]domain.UserProfile{}}
}

func (m *memoryUserRepo) Get(ctx context.Context, uid string) (domain.UserProfile, error) {
	profile, ok := m.profiles[uid]
	if !ok {
		return domain.UserProfile{}, domain.ErrUserNotFound
	}
	return profile, nil
}

func (m *memoryUserRepo) Upsert(ctx context.Context, profile domain.UserProfile) error {
	m.writes++
	existing, ok := m.profiles[profile.UID]
	if ok {
		profile.Roles = existing.Roles
	}
	m.profiles[profile.UID] = profile
	return nil
}

func (m *memoryUserRepo) GrantRole(ctx context.Context, uid, role string) error {
	profile, ok := m.profiles[uid]
	if !ok {
		return domain.ErrUserNotFound
	}
	if !profile.HasRole(role) {
		profile.Roles = append(profile.Roles, role)
	}
	m.profiles[uid] = profile
	return nil
}

func sessionConfig() config.Config {
	return config.Config{SessionTTL: 14 * 24 * time.Hour, IdentityTokenTTL: 5 * time.Minute}
}

func TestCreateSessionCachesProfile(t *testing.T) {
	ctx := context.Background()
	provider := &fakeProvider{identity: identity.Identity{UID: "u-1", Email: "u@ainexsuite.com", Name: "User"}}
	users := newMemoryUserRepo()
	svc := service.NewSessionService(provider, users, sessionConfig(), zap.NewNop())

	cred, err := svc.CreateSession(ctx, "id-token")
	require.NoError(t, err)
	require.Equal(t, "session-credential", cred)

	cached, err := users.Get(ctx, "u-1")
	require.NoError(t, err)
	require.Equal(t, "u@ainexsuite.com", cached.Email)
}

func TestCreateSessionRequiresToken(t *testing.T) {
	svc := service.NewSessionService(&fakeProvider{}, newMemoryUserRepo(), sessionConfig(), zap.NewNop())
	_, err := svc.CreateSession(context.Background(), "  ")
	require.ErrorIs(t, err, domain.ErrNoCredential)
}

func TestExchangeSession(t *testing.T) {
	ctx := context.Background()
	provider := &fakeProvider{identity: identity.Identity{UID: "u-1"}}
	users := newMemoryUserRepo()
	svc := service.NewSessionService(provider, users, sessionConfig(), zap.NewNop())

	token, err := svc.ExchangeSession(ctx, "session-credential")
	require.NoError(t, err)
	require.Equal(t, "identity-token:u-1", token)

	// Pure verify-then-mint: the exchange writes nothing.
	require.Zero(t, users.writes)
}

func TestExchangeSessionErrorTaxonomy(t *testing.T) {
	ctx := context.Background()
	users := newMemoryUserRepo()

	cases := []struct {
		name string
		fail error
		want error
	}{
		{"expired", domain.ErrSessionExpired, domain.ErrSessionExpired},
		{"revoked", domain.ErrSessionRevoked, domain.ErrSessionRevoked},
		{"generic", context.DeadlineExceeded, domain.ErrAuthenticationFailed},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			provider := &fakeProvider{verifySessionErr: tc.fail}
			svc := service.NewSessionService(provider, users, sessionConfig(), zap.NewNop())
			_, err := svc.ExchangeSession(ctx, "session-credential")
			require.ErrorIs(t, err, tc.want)
			require.Zero(t, provider.minted)
		})
	}

	svc := service.NewSessionService(&fakeProvider{}, users, sessionConfig(), zap.NewNop())
	_, err := svc.ExchangeSession(ctx, "")
	require.ErrorIs(t, err, domain.ErrNoCredential)
}

func TestRevokeSession(t *testing.T) {
	ctx := context.Background()
	provider := &fakeProvider{identity: identity.Identity{UID: "u-1"}}
	svc := service.NewSessionService(provider, newMemoryUserRepo(), sessionConfig(), zap.NewNop())

	require.NoError(t, svc.RevokeSession(ctx, "session-credential"))
	require.Equal(t, []string{"session-credential"}, provider.revoked)

	require.ErrorIs(t, svc.RevokeSession(ctx, ""), domain.ErrNoCredential)
}
