package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ainexllc/ainexsuite-bridge/internal/config"
	"github.com/ainexllc/ainexsuite-bridge/internal/domain"
	httptransport "github.com/ainexllc/ainexsuite-bridge/internal/http"
	httpHandler "github.com/ainexllc/ainexsuite-bridge/internal/http/handler"
	"github.com/ainexllc/ainexsuite-bridge/internal/identity"
	"github.com/ainexllc/ainexsuite-bridge/internal/repository"
	"github.com/ainexllc/ainexsuite-bridge/internal/service"
)

const testSigningKey = "0123456789abcdef0123456789abcdef"

type fixture struct {
	router  *gin.Engine
	tokens  *identity.TokenService
	invites *memInviteRepo
	spaces  *memSpaceRepo
	users   *memUserRepo
	guard   *memGuard
	cfg     config.Config
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg := config.Config{
		Environment:       "test",
		SessionCookieName: "ainex_session",
		SessionTTL:        14 * 24 * time.Hour,
		IdentityTokenTTL:  5 * time.Minute,
		InviteTTL:         7 * 24 * time.Hour,
		ServiceName:       "bridge-test",
		BootstrapSecret:   "bootstrap-secret",
	}

	tokens := identity.NewTokenService([]byte(testSigningKey), "https://auth.test", newMemRevocation())
	users := newMemUserRepo()
	spaces := newMemSpaceRepo()
	invites := newMemInviteRepo(spaces)
	guard := &memGuard{}

	logger := zap.NewNop()
	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	sessions := service.NewSessionService(tokens, users, cfg, logger)
	inviteSvc := service.NewInviteService(invites, spaces, node, cfg.InviteTTL, logger)
	spaceSvc := service.NewSpaceService(spaces, node, logger)
	bootstrapSvc := service.NewBootstrapService(users, guard, cfg.BootstrapSecret, logger)

	router := httptransport.NewRouter(
		cfg,
		sessions,
		httpHandler.NewSessionHandler(sessions, cfg),
		httpHandler.NewInviteHandler(inviteSvc, users),
		httpHandler.NewSpaceHandler(spaceSvc, users),
		httpHandler.NewAdminHandler(bootstrapSvc),
		nil,
	)

	return &fixture{
		router:  router,
		tokens:  tokens,
		invites: invites,
		spaces:  spaces,
		users:   users,
		guard:   guard,
		cfg:     cfg,
	}
}

type request struct {
	method  string
	path    string
	body    any
	cookie  string
	bearer  string
	rawBody string
}

func (f *fixture) do(t *testing.T, r request) *httptest.ResponseRecorder {
	t.Helper()

	var body *bytes.Reader
	switch {
	case r.rawBody != "":
		body = bytes.NewReader([]byte(r.rawBody))
	case r.body != nil:
		encoded, err := json.Marshal(r.body)
		require.NoError(t, err)
		body = bytes.NewReader(encoded)
	default:
		body = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(r.method, r.path, body)
	req.Header.Set("Content-Type", "application/json")
	req.Host = "habits.ainexsuite.com"
	if r.cookie != "" {
		req.AddCookie(&http.Cookie{Name: f.cfg.SessionCookieName, Value: r.cookie})
	}
	if r.bearer != "" {
		req.Header.Set("Authorization", "Bearer "+r.bearer)
	}

	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return out
}

// signIn mints a provider ID token for uid and runs it through the create
// endpoint, returning the issued session credential.
func (f *fixture) signIn(t *testing.T, uid, email, name string) string {
	t.Helper()
	idToken, err := f.tokens.MintIDToken(context.Background(), identity.Identity{UID: uid, Email: email, Name: name}, time.Minute)
	require.NoError(t, err)

	w := f.do(t, request{method: "POST", path: "/session/create", body: map[string]string{"idToken": idToken}})
	require.Equal(t, 200, w.Code, w.Body.String())
	return decodeBody(t, w)["sessionCookie"].(string)
}

// identityToken signs uid in and exchanges the credential for a bearer
// identity token.
func (f *fixture) identityToken(t *testing.T, uid string) string {
	t.Helper()
	credential := f.signIn(t, uid, uid+"@example.com", uid)
	w := f.do(t, request{method: "POST", path: "/session/exchange", cookie: credential})
	require.Equal(t, 200, w.Code, w.Body.String())
	return decodeBody(t, w)["customToken"].(string)
}

// memInviteRepo mirrors the conditional transition semantics of the
// Postgres implementation behind one mutex.
type memInviteRepo struct {
	mu      sync.Mutex
	byToken map[string]domain.Invitation
	spaces  *memSpaceRepo
}

var _ repository.InviteRepository = (*memInviteRepo)(nil)

func newMemInviteRepo(spaces *memSpaceRepo) *memInviteRepo {
	return &memInviteRepo{byToken: map[string]domain.Invitation{}, spaces: spaces}
}

func (r *memInviteRepo) Create(ctx context.Context, inv domain.Invitation) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byToken[inv.Token] = inv
	return nil
}

func (r *memInviteRepo) GetByToken(ctx context.Context, token string) (domain.Invitation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	inv, ok := r.byToken[token]
	if !ok {
		return domain.Invitation{}, domain.ErrInviteNotFound
	}
	return inv, nil
}

func (r *memInviteRepo) MarkExpired(ctx context.Context, inviteID int64, now time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for token, inv := range r.byToken {
		if inv.ID != inviteID {
			continue
		}
		if inv.Status != domain.InviteStatusPending || inv.ExpiresAt.After(now) {
			return false, nil
		}
		inv.Status = domain.InviteStatusExpired
		r.byToken[token] = inv
		return true, nil
	}
	return false, nil
}

func (r *memInviteRepo) Accept(ctx context.Context, token string, member domain.SpaceMember, now time.Time) (domain.Invitation, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	inv, ok := r.byToken[token]
	if !ok {
		return domain.Invitation{}, false, domain.ErrInviteNotFound
	}
	if inv.Status != domain.InviteStatusPending || !inv.ExpiresAt.After(now) {
		return inv, false, nil
	}
	inv.Status = domain.InviteStatusAccepted
	inv.RespondedAt = &now
	r.byToken[token] = inv

	member.Role = inv.Role
	member.JoinedAt = now
	if err := r.spaces.AddMember(ctx, inv.SpaceID, member); err != nil {
		return domain.Invitation{}, false, err
	}
	return inv, true, nil
}

func (r *memInviteRepo) Decline(ctx context.Context, token string, now time.Time) (domain.Invitation, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	inv, ok := r.byToken[token]
	if !ok {
		return domain.Invitation{}, false, domain.ErrInviteNotFound
	}
	if inv.Status != domain.InviteStatusPending || !inv.ExpiresAt.After(now) {
		return inv, false, nil
	}
	inv.Status = domain.InviteStatusDeclined
	inv.RespondedAt = &now
	r.byToken[token] = inv
	return inv, true, nil
}

type memSpaceRepo struct {
	mu   sync.Mutex
	byID map[int64]domain.Space
}

var _ repository.SpaceRepository = (*memSpaceRepo)(nil)

func newMemSpaceRepo() *memSpaceRepo {
	return &memSpaceRepo{byID: map[int64]domain.Space{}}
}

func (r *memSpaceRepo) Create(ctx context.Context, space domain.Space) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byID[space.ID] = space
	return nil
}

func (r *memSpaceRepo) Get(ctx context.Context, spaceID int64) (domain.Space, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	space, ok := r.byID[spaceID]
	if !ok {
		return domain.Space{}, domain.ErrSpaceNotFound
	}
	return space, nil
}

func (r *memSpaceRepo) ListByMember(ctx context.Context, uid string) ([]domain.Space, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.Space
	for _, space := range r.byID {
		if space.HasMember(uid) {
			out = append(out, space)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *memSpaceRepo) AddMember(ctx context.Context, spaceID int64, member domain.SpaceMember) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	space, ok := r.byID[spaceID]
	if !ok {
		return domain.ErrSpaceNotFound
	}
	if space.HasMember(member.UID) {
		return nil
	}
	space.Members = append(space.Members, member)
	r.byID[spaceID] = space
	return nil
}

type memUserRepo struct {
	mu    sync.Mutex
	byUID map[string]domain.UserProfile
}

var _ repository.UserRepository = (*memUserRepo)(nil)

func newMemUserRepo() *memUserRepo {
	return &memUserRepo{byUID: map[string]domain.UserProfile{}}
}

func (r *memUserRepo) Get(ctx context.Context, uid string) (domain.UserProfile, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	profile, ok := r.byUID[uid]
	if !ok {
		return domain.UserProfile{}, domain.ErrUserNotFound
	}
	return profile, nil
}

func (r *memUserRepo) Upsert(ctx context.Context, profile domain.UserProfile) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.byUID[profile.UID]; ok {
		profile.Roles = existing.Roles
	}
	r.byUID[profile.UID] = profile
	return nil
}

func (r *memUserRepo) GrantRole(ctx context.Context, uid, role string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	profile, ok := r.byUID[uid]
	if !ok {
		return domain.ErrUserNotFound
	}
	for _, held := range profile.Roles {
		if held == role {
			return nil
		}
	}
	profile.Roles = append(profile.Roles, role)
	r.byUID[uid] = profile
	return nil
}

type memGuard struct {
	mu   sync.Mutex
	used bool
}

var _ service.BootstrapGuard = (*memGuard)(nil)

func (g *memGuard) Claim(ctx context.Context, uid string) (bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.used {
		return false, nil
	}
	g.used = true
	return true, nil
}

type memRevocation struct {
	mu      sync.Mutex
	revoked map[string]struct{}
}

var _ identity.RevocationStore = (*memRevocation)(nil)

func newMemRevocation() *memRevocation {
	return &memRevocation{revoked: map[string]struct{}{}}
}

func (s *memRevocation) Revoke(ctx context.Context, sessionID string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.revoked[sessionID] = struct{}{}
	return nil
}

func (s *memRevocation) IsRevoked(ctx context.Context, sessionID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.revoked[sessionID]
	return ok, nil
}
