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

// SpaceHandler exposes space management for authenticated users.
type SpaceHandler struct {
	Spaces *service.SpaceService
	Users  repository.UserRepository
}

// NewSpaceHandler creates the handler set.
func NewSpaceHandler(spaces *service.SpaceService, users repository.UserRepository) *SpaceHandler {
	return &SpaceHandler{Spaces: spaces, Users: users}
}

type memberView struct {
	UID         string    `json:"uid"`
	DisplayName string    `json:"displayName,omitempty"`
	PhotoURL    string    `json:"photoUrl,omitempty"`
	Role        string    `json:"role"`
	JoinedAt    time.Time `json:"joinedAt"`
}

type spaceView struct {
	ID         string       `json:"id"`
	Name       string       `json:"name"`
	Type       string       `json:"type,omitempty"`
	Members    []memberView `json:"members"`
	MemberUIDs []string     `json:"memberUids"`
	CreatedBy  string       `json:"createdBy"`
	CreatedAt  time.Time    `json:"createdAt"`
}

func newSpaceView(s domain.Space) spaceView {
	members := make([]memberView, 0, len(s.Members))
	for _, m := range s.Members {
		members = append(members, memberView{
			UID:         m.UID,
			DisplayName: m.DisplayName,
			PhotoURL:    m.PhotoURL,
			Role:        string(m.Role),
			JoinedAt:    m.JoinedAt,
		})
	}
	return spaceView{
		ID:         strconv.FormatInt(s.ID, 10),
		Name:       s.Name,
		Type:       s.Type,
		Members:    members,
		MemberUIDs: s.MemberUIDs(),
		CreatedBy:  s.CreatedBy,
		CreatedAt:  s.CreatedAt,
	}
}

// Create opens a new space with the caller as its first admin member.
func (h *SpaceHandler) Create(c *gin.Context) {
	var req struct {
		Name string `json:"name"`
		Type string `json:"type"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	uid := middleware.UID(c)
	var displayName, photoURL string
	if profile, err := h.Users.Get(c.Request.Context(), uid); err == nil {
		displayName = profile.DisplayName
		photoURL = profile.PhotoURL
	}

	space, err := h.Spaces.CreateSpace(c.Request.Context(), req.Name, req.Type, uid, displayName, photoURL)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"space": newSpaceView(space)})
}

// Get returns one space, members included, to callers who belong to it.
func (h *SpaceHandler) Get(c *gin.Context) {
	spaceID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid space id"})
		return
	}

	space, err := h.Spaces.GetSpace(c.Request.Context(), spaceID, middleware.UID(c))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"space": newSpaceView(space)})
}

// List returns every space the caller is a member of.
func (h *SpaceHandler) List(c *gin.Context) {
	spaces, err := h.Spaces.ListSpaces(c.Request.Context(), middleware.UID(c))
	if err != nil {
		h.respondError(c, err)
		return
	}

	views := make([]spaceView, 0, len(spaces))
	for _, s := range spaces {
		views = append(views, newSpaceView(s))
	}
	c.JSON(http.StatusOK, gin.H{"spaces": views})
}

func (h *SpaceHandler) respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, domain.ErrInvalidInput):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
	case errors.Is(err, domain.ErrSpaceNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Space not found"})
	case errors.Is(err, domain.ErrNotSpaceMember):
		c.JSON(http.StatusForbidden, gin.H{"error": "Not a member of this space"})
	default:
		zap.L().Error("space endpoint failure", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
	}
}
