package identity

import (
	"context"
	"errors"
	"fmt"
	"time"

	gojose "github.com/go-jose/go-jose/v4"
	gojwt "github.com/go-jose/go-jose/v4/jwt"
	"github.com/google/uuid"

	"github.com/ainexllc/ainexsuite-bridge/internal/domain"
)

// Token-use markers keep the three credential kinds from substituting for
// each other.
const (
	useIDToken  = "id"
	useSession  = "session"
	useIdentity = "identity"
)

// TokenService implements Provider with go-jose HMAC tokens and a pluggable
// revocation store. It exists so the service runs and tests without a vendor
// SDK; swapping in a hosted provider only means re-implementing Provider.
type TokenService struct {
	key     []byte
	issuer  string
	revoked RevocationStore
	now     func() time.Time
}

var _ Provider = (*TokenService)(nil)

// NewTokenService constructs the provider from a signing key and issuer.
func NewTokenService(signingKey []byte, issuer string, revoked RevocationStore) *TokenService {
	return &TokenService{
		key:     signingKey,
		issuer:  issuer,
		revoked: revoked,
		now:     time.Now,
	}
}

type bridgeClaims struct {
	Email     string `json:"email,omitempty"`
	Name      string `json:"name,omitempty"`
	Picture   string `json:"picture,omitempty"`
	SessionID string `json:"sid,omitempty"`
	TokenUse  string `json:"token_use"`
}

// VerifyIDToken checks a provider ID token presented at sign-in.
func (s *TokenService) VerifyIDToken(ctx context.Context, idToken string) (Identity, error) {
	std, custom, err := s.parse(idToken, useIDToken)
	if err != nil {
		return Identity{}, err
	}
	return identityFromClaims(std, custom), nil
}

// MintIDToken issues a provider ID token for the identity. The sign-in
// surface calls this after primary authentication; VerifyIDToken is its
// counterpart.
func (s *TokenService) MintIDToken(ctx context.Context, id Identity, ttl time.Duration) (string, error) {
	return s.sign(id, bridgeClaims{
		Email:    id.Email,
		Name:     id.Name,
		Picture:  id.Picture,
		TokenUse: useIDToken,
	}, ttl)
}

// MintSessionCredential issues an opaque session credential. Each credential
// carries a unique session id so it can be revoked individually.
func (s *TokenService) MintSessionCredential(ctx context.Context, id Identity, ttl time.Duration) (string, error) {
	return s.sign(id, bridgeClaims{
		Email:     id.Email,
		Name:      id.Name,
		Picture:   id.Picture,
		SessionID: uuid.NewString(),
		TokenUse:  useSession,
	}, ttl)
}

// VerifySessionCredential validates a session credential, optionally
// consulting the revocation store.
func (s *TokenService) VerifySessionCredential(ctx context.Context, credential string, checkRevoked bool) (Identity, error) {
	std, custom, err := s.parse(credential, useSession)
	if err != nil {
		return Identity{}, err
	}
	if checkRevoked && s.revoked != nil && custom.SessionID != "" {
		revoked, err := s.revoked.IsRevoked(ctx, custom.SessionID)
		if err != nil {
			return Identity{}, fmt.Errorf("revocation check: %w", err)
		}
		if revoked {
			return Identity{}, domain.ErrSessionRevoked
		}
	}
	return identityFromClaims(std, custom), nil
}

// MintIdentityToken issues a short-lived identity token bound to uid.
func (s *TokenService) MintIdentityToken(ctx context.Context, uid string, ttl time.Duration) (string, error) {
	return s.sign(Identity{UID: uid}, bridgeClaims{TokenUse: useIdentity}, ttl)
}

// VerifyIdentityToken validates a bearer identity token and returns its uid.
func (s *TokenService) VerifyIdentityToken(ctx context.Context, token string) (string, error) {
	std, _, err := s.parse(token, useIdentity)
	if err != nil {
		return "", err
	}
	return std.Subject, nil
}

// RevokeSessionCredential marks the credential's session id revoked for the
// remainder of its lifetime. Already-expired credentials are rejected rather
// than stored.
func (s *TokenService) RevokeSessionCredential(ctx context.Context, credential string) error {
	std, custom, err := s.parse(credential, useSession)
	if err != nil {
		return err
	}
	if s.revoked == nil || custom.SessionID == "" {
		return nil
	}
	remaining := std.Expiry.Time().Sub(s.now())
	if remaining <= 0 {
		return domain.ErrSessionExpired
	}
	if err := s.revoked.Revoke(ctx, custom.SessionID, remaining); err != nil {
		return fmt.Errorf("revoke session: %w", err)
	}
	return nil
}

func (s *TokenService) sign(id Identity, custom bridgeClaims, ttl time.Duration) (string, error) {
	signer, err := gojose.NewSigner(
		gojose.SigningKey{Algorithm: gojose.HS256, Key: s.key},
		(&gojose.SignerOptions{}).WithType("JWT"),
	)
	if err != nil {
		return "", fmt.Errorf("new signer: %w", err)
	}

	now := s.now().UTC()
	std := gojwt.Claims{
		ID:        uuid.NewString(),
		Subject:   id.UID,
		Issuer:    s.issuer,
		IssuedAt:  gojwt.NewNumericDate(now),
		NotBefore: gojwt.NewNumericDate(now),
		Expiry:    gojwt.NewNumericDate(now.Add(ttl)),
	}

	token, err := gojwt.Signed(signer).Claims(std).Claims(custom).Serialize()
	if err != nil {
		return "", fmt.Errorf("serialize token: %w", err)
	}
	return token, nil
}

func (s *TokenService) parse(token, wantUse string) (*gojwt.Claims, *bridgeClaims, error) {
	parsed, err := gojwt.ParseSigned(token, []gojose.SignatureAlgorithm{gojose.HS256})
	if err != nil {
		return nil, nil, domain.ErrAuthenticationFailed
	}

	var std gojwt.Claims
	var custom bridgeClaims
	if err := parsed.Claims(s.key, &std, &custom); err != nil {
		return nil, nil, domain.ErrAuthenticationFailed
	}

	if err := std.ValidateWithLeeway(gojwt.Expected{Issuer: s.issuer, Time: s.now()}, 0); err != nil {
		if errors.Is(err, gojwt.ErrExpired) {
			return nil, nil, domain.ErrSessionExpired
		}
		return nil, nil, domain.ErrAuthenticationFailed
	}

	if custom.TokenUse != wantUse || std.Subject == "" {
		return nil, nil, domain.ErrAuthenticationFailed
	}

	return &std, &custom, nil
}

func identityFromClaims(std *gojwt.Claims, custom *bridgeClaims) Identity {
	return Identity{
		UID:     std.Subject,
		Email:   custom.Email,
		Name:    custom.Name,
		Picture: custom.Picture,
	}
}
