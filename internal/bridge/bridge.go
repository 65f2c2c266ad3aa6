package bridge

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/ainexllc/ainexsuite-bridge/internal/cookiedomain"
)

// CookieAttributes describes how the session cookie is scoped when stored.
type CookieAttributes struct {
	Domain   string
	Path     string
	MaxAge   int
	Secure   bool
	SameSite http.SameSite
}

// CookieJar is the cookie store the bridge writes through. Browser
// embeddings back it with document cookies; tests and CLI tooling use an
// in-memory jar.
type CookieJar interface {
	Get(name string) (string, bool)
	Set(name, value string, attrs CookieAttributes)
	Clear(name string, attrs CookieAttributes)
}

// Profile is the display information cached alongside the session so
// sibling apps can render the signed-in user without a round trip.
type Profile struct {
	UID         string `json:"uid"`
	Email       string `json:"email"`
	DisplayName string `json:"displayName"`
	PhotoURL    string `json:"photoUrl"`
}

// Options configures a Bridge.
type Options struct {
	// BaseURL is the session service origin, e.g. https://auth.ainexsuite.com.
	BaseURL string
	// Host is the hostname the embedding app runs on. It decides the
	// cookie's domain scope.
	Host string
	// CookieName defaults to ainex_session.
	CookieName string
	// SessionMaxAge defaults to fourteen days.
	SessionMaxAge time.Duration
	// Secure marks stored cookies Secure. Enable everywhere except local
	// development.
	Secure bool
	// HTTPClient defaults to a ten second timeout client.
	HTTPClient *http.Client
}

// Bridge gives a family of applications one shared sign-in. It stores the
// session credential in a cookie scoped to the family domain and exchanges
// it for per-app identity tokens.
type Bridge struct {
	baseURL    string
	host       string
	cookieName string
	maxAge     time.Duration
	secure     bool
	httpClient *http.Client
	jar        CookieJar

	mu      sync.Mutex
	profile *Profile
}

// New constructs a Bridge writing through the provided jar.
func New(jar CookieJar, opts Options) *Bridge {
	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	cookieName := opts.CookieName
	if cookieName == "" {
		cookieName = "ainex_session"
	}
	maxAge := opts.SessionMaxAge
	if maxAge <= 0 {
		maxAge = 14 * 24 * time.Hour
	}
	return &Bridge{
		baseURL:    strings.TrimRight(opts.BaseURL, "/"),
		host:       opts.Host,
		cookieName: cookieName,
		maxAge:     maxAge,
		secure:     opts.Secure,
		httpClient: client,
		jar:        jar,
	}
}

// DomainType classifies the embedding host: family hosts share the session
// cookie with sibling apps, local hosts emulate that in development, and
// standalone hosts keep sessions to themselves.
func (b *Bridge) DomainType() cookiedomain.Kind {
	return cookiedomain.ResolveKind(b.host)
}

func (b *Bridge) cookieAttributes() CookieAttributes {
	return CookieAttributes{
		Domain:   cookiedomain.Resolve(b.host),
		Path:     "/",
		MaxAge:   int(b.maxAge.Seconds()),
		Secure:   b.secure,
		SameSite: http.SameSiteLaxMode,
	}
}

// CreateSession trades a provider ID token for a session credential and
// stores it under the family cookie domain. The cached profile, when the
// caller supplies one, lets sibling apps greet the user immediately.
func (b *Bridge) CreateSession(ctx context.Context, idToken string, profile *Profile) error {
	var resp struct {
		SessionCookie string `json:"sessionCookie"`
	}
	if err := b.post(ctx, "/session/create", map[string]string{"idToken": idToken}, "", &resp); err != nil {
		return err
	}
	if resp.SessionCookie == "" {
		return fmt.Errorf("create session: empty credential")
	}

	b.jar.Set(b.cookieName, resp.SessionCookie, b.cookieAttributes())

	b.mu.Lock()
	b.profile = profile
	b.mu.Unlock()
	return nil
}

// SessionCredential returns the stored credential, false when no session
// exists on this host.
func (b *Bridge) SessionCredential() (string, bool) {
	return b.jar.Get(b.cookieName)
}

// ExchangeSession verifies the stored credential with the session service
// and returns a fresh short-lived identity token for this app.
func (b *Bridge) ExchangeSession(ctx context.Context) (string, error) {
	credential, ok := b.SessionCredential()
	if !ok || credential == "" {
		return "", fmt.Errorf("exchange session: no stored credential")
	}

	var resp struct {
		CustomToken string `json:"customToken"`
	}
	if err := b.post(ctx, "/session/exchange", struct{}{}, credential, &resp); err != nil {
		return "", err
	}
	if resp.CustomToken == "" {
		return "", fmt.Errorf("exchange session: empty token")
	}
	return resp.CustomToken, nil
}

// CachedProfile returns the display info stored at sign-in, nil when the
// session was created elsewhere or already cleared.
func (b *Bridge) CachedProfile() *Profile {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.profile
}

// ClearSession removes the cookie and cached profile. Clearing an absent
// session is a no-op.
func (b *Bridge) ClearSession() {
	b.jar.Clear(b.cookieName, b.cookieAttributes())
	b.mu.Lock()
	b.profile = nil
	b.mu.Unlock()
}

// SignOut revokes the credential server-side, then clears local state. The
// local clear happens even when revocation fails, so a broken network
// never traps the user in a session.
func (b *Bridge) SignOut(ctx context.Context) error {
	credential, ok := b.SessionCredential()
	defer b.ClearSession()
	if !ok || credential == "" {
		return nil
	}
	return b.post(ctx, "/session/revoke", struct{}{}, credential, nil)
}

func (b *Bridge) post(ctx context.Context, path string, payload any, credential string, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if credential != "" {
		req.AddCookie(&http.Cookie{Name: b.cookieName, Value: credential})
	}

	resp, err := b.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s request: %w", path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("read %s response: %w", path, err)
	}
	if resp.StatusCode >= 300 {
		var failure struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(raw, &failure) == nil && failure.Error != "" {
			return fmt.Errorf("%s failed: status=%d message=%s", path, resp.StatusCode, failure.Error)
		}
		return fmt.Errorf("%s failed: status=%d", path, resp.StatusCode)
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode %s response: %w", path, err)
	}
	return nil
}
