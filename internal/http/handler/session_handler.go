package handler

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/ainexllc/ainexsuite-bridge/internal/config"
	"github.com/ainexllc/ainexsuite-bridge/internal/cookiedomain"
	"github.com/ainexllc/ainexsuite-bridge/internal/domain"
	"github.com/ainexllc/ainexsuite-bridge/internal/service"
)

// SessionHandler bridges browser sessions across the app family: it issues
// the shared session cookie and exchanges it for identity tokens.
type SessionHandler struct {
	Sessions *service.SessionService
	Config   config.Config
}

// NewSessionHandler creates the handler set.
func NewSessionHandler(sessions *service.SessionService, cfg config.Config) *SessionHandler {
	return &SessionHandler{Sessions: sessions, Config: cfg}
}

// Create verifies a provider ID token and issues the session credential as
// an HTTP-only cookie scoped to the caller's domain family. The credential
// is echoed in the body for non-browser clients.
func (h *SessionHandler) Create(c *gin.Context) {
	var req struct {
		IDToken string `json:"idToken"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	credential, err := h.Sessions.CreateSession(c.Request.Context(), req.IDToken)
	if err != nil {
		h.respondSessionError(c, err)
		return
	}

	h.setSessionCookie(c, credential, int(h.Config.SessionTTL.Seconds()))
	c.JSON(http.StatusOK, gin.H{"sessionCookie": credential})
}

// Exchange trades a verified session credential for a fresh identity token.
// The credential is read from the HTTP-only cookie; dev builds additionally
// accept it from the request body (see bodyCredential).
func (h *SessionHandler) Exchange(c *gin.Context) {
	credential := h.credentialFromRequest(c)
	token, err := h.Sessions.ExchangeSession(c.Request.Context(), credential)
	if err != nil {
		h.respondSessionError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"customToken": token})
}

// Revoke invalidates the presented credential and clears the cookie.
func (h *SessionHandler) Revoke(c *gin.Context) {
	credential := h.credentialFromRequest(c)
	if err := h.Sessions.RevokeSession(c.Request.Context(), credential); err != nil {
		h.respondSessionError(c, err)
		return
	}
	h.setSessionCookie(c, "", -1)
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (h *SessionHandler) credentialFromRequest(c *gin.Context) string {
	if cookie, err := c.Cookie(h.Config.SessionCookieName); err == nil && cookie != "" {
		return cookie
	}
	return bodyCredential(c)
}

func (h *SessionHandler) setSessionCookie(c *gin.Context, value string, maxAge int) {
	http.SetCookie(c.Writer, &http.Cookie{
		Name:     h.Config.SessionCookieName,
		Value:    value,
		Domain:   cookiedomain.Resolve(c.Request.Host),
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   h.Config.Production(),
		SameSite: http.SameSiteLaxMode,
	})
}

// respondSessionError maps verification failures onto distinct, user-safe
// messages. Anything outside the taxonomy is logged in full and surfaced
// generically.
func (h *SessionHandler) respondSessionError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, domain.ErrNoCredential):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "no credential"})
	case errors.Is(err, domain.ErrSessionExpired):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "session expired"})
	case errors.Is(err, domain.ErrSessionRevoked):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "session revoked"})
	case errors.Is(err, domain.ErrAuthenticationFailed):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication failed"})
	default:
		zap.L().Error("session endpoint failure", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
	}
}

// DomainInfo reports how the caller's host participates in cookie sharing,
// so clients can decide whether cross-app navigation can rely on shared
// auth.
func (h *SessionHandler) DomainInfo(c *gin.Context) {
	host := strings.TrimSpace(c.Request.Host)
	c.JSON(http.StatusOK, gin.H{
		"host":         host,
		"cookieDomain": cookiedomain.Resolve(host),
		"type":         cookiedomain.ResolveKind(host),
	})
}
