package handler

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/ainexllc/ainexsuite-bridge/internal/domain"
	"github.com/ainexllc/ainexsuite-bridge/internal/http/middleware"
	"github.com/ainexllc/ainexsuite-bridge/internal/repository"
	"github.com/ainexllc/ainexsuite-bridge/internal/service"
)

// InviteHandler exposes the invitation lifecycle over HTTP.
type InviteHandler struct {
	Invites *service.InviteService
	Users   repository.UserRepository
}

// NewInviteHandler creates the handler set.
func NewInviteHandler(invites *service.InviteService, users repository.UserRepository) *InviteHandler {
	return &InviteHandler{Invites: invites, Users: users}
}

// invitationView is the outward shape of an invitation. It has no token
// field at all, so the secret cannot leak through serialization.
type invitationView struct {
	ID          string     `json:"id"`
	SpaceID     string     `json:"spaceId"`
	InviterUID  string     `json:"inviterUid"`
	TargetEmail string     `json:"targetEmail,omitempty"`
	TargetUID   string     `json:"targetUid,omitempty"`
	Role        string     `json:"role"`
	Status      string     `json:"status"`
	CreatedAt   time.Time  `json:"createdAt"`
	ExpiresAt   time.Time  `json:"expiresAt"`
	RespondedAt *time.Time `json:"respondedAt,omitempty"`
}

func newInvitationView(inv domain.Invitation) invitationView {
	return invitationView{
		ID:          strconv.FormatInt(inv.ID, 10),
		SpaceID:     strconv.FormatInt(inv.SpaceID, 10),
		InviterUID:  inv.InviterUID,
		TargetEmail: inv.TargetEmail,
		TargetUID:   inv.TargetUID,
		Role:        string(inv.Role),
		Status:      string(inv.Status),
		CreatedAt:   inv.CreatedAt,
		ExpiresAt:   inv.ExpiresAt,
		RespondedAt: inv.RespondedAt,
	}
}

// Create issues an invitation for a space the caller belongs to. The
// response never carries the token; delivery happens out of band.
func (h *InviteHandler) Create(c *gin.Context) {
	spaceID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid space id"})
		return
	}

	var req struct {
		TargetEmail string `json:"targetEmail"`
		TargetUID   string `json:"targetUid"`
		Role        string `json:"role"`
		TTLHours    int    `json:"ttlHours"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	inv, err := h.Invites.CreateInvite(c.Request.Context(), service.CreateInviteInput{
		SpaceID:     spaceID,
		InviterUID:  middleware.UID(c),
		TargetEmail: req.TargetEmail,
		TargetUID:   req.TargetUID,
		Role:        domain.SpaceRole(req.Role),
		TTL:         time.Duration(req.TTLHours) * time.Hour,
	})
	if err != nil {
		h.respondError(c, err, false)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"invitation": newInvitationView(inv.Redacted())})
}

// Get resolves an invitation by its token so the invitee can preview it.
// Terminal invitations answer 410 with the reason.
func (h *InviteHandler) Get(c *gin.Context) {
	inv, err := h.Invites.GetInviteByToken(c.Request.Context(), c.Param("token"))
	if err != nil {
		h.respondError(c, err, true)
		return
	}
	c.JSON(http.StatusOK, gin.H{"invitation": newInvitationView(inv)})
}

// Accept joins the authenticated caller to the invited space. Display
// fields come from the caller's cached profile when one exists.
func (h *InviteHandler) Accept(c *gin.Context) {
	uid := middleware.UID(c)

	var displayName, photoURL string
	if profile, err := h.Users.Get(c.Request.Context(), uid); err == nil {
		displayName = profile.DisplayName
		photoURL = profile.PhotoURL
	}

	inv, err := h.Invites.AcceptInvite(c.Request.Context(), c.Param("token"), uid, displayName, photoURL)
	if err != nil {
		h.respondError(c, err, false)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "invitation": newInvitationView(inv)})
}

// Decline marks the invitation declined. Possession of the token is the
// only authorization required.
func (h *InviteHandler) Decline(c *gin.Context) {
	inv, err := h.Invites.DeclineInvite(c.Request.Context(), c.Param("token"))
	if err != nil {
		h.respondError(c, err, false)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "invitation": newInvitationView(inv)})
}

// respondError maps service failures to HTTP responses. Reads report every
// terminal state as gone; transitions answer 410 only for expiry and 400
// for invitations someone already responded to.
func (h *InviteHandler) respondError(c *gin.Context, err error, read bool) {
	var terminal *domain.TerminalStateError
	switch {
	case errors.Is(err, domain.ErrInvalidToken):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid invitation token"})
	case errors.Is(err, domain.ErrInviteNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Invitation not found"})
	case errors.Is(err, domain.ErrNotSpaceMember):
		c.JSON(http.StatusForbidden, gin.H{"error": "Not a member of this space"})
	case errors.Is(err, domain.ErrSpaceNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Space not found"})
	case errors.Is(err, domain.ErrInvalidInput):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
	case errors.As(err, &terminal):
		status := http.StatusBadRequest
		if read || terminal.Status == domain.InviteStatusExpired {
			status = http.StatusGone
		}
		c.JSON(status, gin.H{"error": terminal.Message(), "status": string(terminal.Status)})
	default:
		zap.L().Error("invite endpoint failure", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
	}
}
