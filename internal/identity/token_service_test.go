package identity_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/ainexllc/ainexsuite-bridge/internal/domain"
	"github.com/ainexllc/ainexsuite-bridge/internal/identity"
)

const testIssuer = "https://auth.test"

var testKey = []byte("0123456789abcdef0123456789abcdef")

type memoryRevocationStore struct {
	mu      sync.Mutex
	revoked map[string]struct{}
}

func newMemoryRevocationStore() *memoryRevocationStore {
	return &memoryRevocationStore{revoked: map[string]struct{}{}}
}

func (m *memoryRevocationStore) Revoke(ctx context.Context, sessionID string, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.revoked[sessionID] = struct{}{}
	return nil
}

func (m *memoryRevocationStore) IsRevoked(ctx context.Context, sessionID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.revoked[sessionID]
	return ok, nil
}

func TestSessionCredentialRoundTrip(t *testing.T) {
	ctx := context.Background()
	svc := identity.NewTokenService(testKey, testIssuer, newMemoryRevocationStore())

	id := identity.Identity{UID: "u-1", Email: "u@ainexsuite.com", Name: "User One"}
	cred, err := svc.MintSessionCredential(ctx, id, time.Hour)
	require.NoError(t, err)
	require.NotEmpty(t, cred)

	got, err := svc.VerifySessionCredential(ctx, cred, true)
	require.NoError(t, err)
	require.Equal(t, id.UID, got.UID)
	require.Equal(t, id.Email, got.Email)
}

func TestVerifyRejectsGarbage(t *testing.T) {
	ctx := context.Background()
	svc := identity.NewTokenService(testKey, testIssuer, nil)

	_, err := svc.VerifySessionCredential(ctx, "not-a-token", false)
	require.ErrorIs(t, err, domain.ErrAuthenticationFailed)
}

func TestVerifyRejectsWrongKey(t *testing.T) {
	ctx := context.Background()
	minting := identity.NewTokenService(testKey, testIssuer, nil)
	verifying := identity.NewTokenService([]byte("ffffffffffffffffffffffffffffffff"), testIssuer, nil)

	cred, err := minting.MintSessionCredential(ctx, identity.Identity{UID: "u-1"}, time.Hour)
	require.NoError(t, err)

	_, err = verifying.VerifySessionCredential(ctx, cred, false)
	require.ErrorIs(t, err, domain.ErrAuthenticationFailed)
}

func TestVerifyDistinguishesExpiry(t *testing.T) {
	ctx := context.Background()
	svc := identity.NewTokenService(testKey, testIssuer, nil)

	cred, err := svc.MintSessionCredential(ctx, identity.Identity{UID: "u-1"}, -time.Minute)
	require.NoError(t, err)

	_, err = svc.VerifySessionCredential(ctx, cred, false)
	require.ErrorIs(t, err, domain.ErrSessionExpired)
}

func TestRevocation(t *testing.T) {
	ctx := context.Background()
	store := newMemoryRevocationStore()
	svc := identity.NewTokenService(testKey, testIssuer, store)

	cred, err := svc.MintSessionCredential(ctx, identity.Identity{UID: "u-1"}, time.Hour)
	require.NoError(t, err)

	require.NoError(t, svc.RevokeSessionCredential(ctx, cred))

	_, err = svc.VerifySessionCredential(ctx, cred, true)
	require.ErrorIs(t, err, domain.ErrSessionRevoked)

	// Revocation checking is opt-in; a plain verify still passes.
	_, err = svc.VerifySessionCredential(ctx, cred, false)
	require.NoError(t, err)
}

func TestTokenUseSeparation(t *testing.T) {
	ctx := context.Background()
	svc := identity.NewTokenService(testKey, testIssuer, nil)

	// A session credential must not pass as an identity token, and vice versa.
	cred, err := svc.MintSessionCredential(ctx, identity.Identity{UID: "u-1"}, time.Hour)
	require.NoError(t, err)
	_, err = svc.VerifyIdentityToken(ctx, cred)
	require.ErrorIs(t, err, domain.ErrAuthenticationFailed)

	idToken, err := svc.MintIdentityToken(ctx, "u-1", time.Minute)
	require.NoError(t, err)
	_, err = svc.VerifySessionCredential(ctx, idToken, false)
	require.ErrorIs(t, err, domain.ErrAuthenticationFailed)

	uid, err := svc.VerifyIdentityToken(ctx, idToken)
	require.NoError(t, err)
	require.Equal(t, "u-1", uid)
}

func TestIDTokenFlow(t *testing.T) {
	ctx := context.Background()
	svc := identity.NewTokenService(testKey, testIssuer, nil)

	idToken, err := svc.MintIDToken(ctx, identity.Identity{UID: "u-9", Email: "nine@ainexsuite.com"}, time.Minute)
	require.NoError(t, err)

	got, err := svc.VerifyIDToken(ctx, idToken)
	require.NoError(t, err)
	require.Equal(t, "u-9", got.UID)
	require.Equal(t, "nine@ainexsuite.com", got.Email)
}
