package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/ainexllc/ainexsuite-bridge/internal/domain"
	"github.com/ainexllc/ainexsuite-bridge/internal/service"
)

// AdminHandler exposes the one-time admin bootstrap endpoint.
type AdminHandler struct {
	Bootstrap *service.BootstrapService
}

// NewAdminHandler creates the handler set.
func NewAdminHandler(bootstrap *service.BootstrapService) *AdminHandler {
	return &AdminHandler{Bootstrap: bootstrap}
}

// BootstrapAdmin grants the admin role to one user, guarded by a shared
// secret and consumable exactly once.
func (h *AdminHandler) BootstrapAdmin(c *gin.Context) {
	var req struct {
		UID    string `json:"uid"`
		Secret string `json:"secret"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing uid"})
		return
	}

	err := h.Bootstrap.Bootstrap(c.Request.Context(), req.UID, req.Secret)
	switch {
	case err == nil:
		c.JSON(http.StatusOK, gin.H{"success": true, "message": "Admin role granted"})
	case errors.Is(err, domain.ErrInvalidInput):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing uid"})
	case errors.Is(err, domain.ErrInvalidSecret):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid secret"})
	case errors.Is(err, domain.ErrBootstrapConsumed):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Bootstrap already used"})
	case errors.Is(err, domain.ErrBootstrapDisabled):
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Bootstrap not configured"})
	case errors.Is(err, domain.ErrUserNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
	default:
		zap.L().Error("bootstrap endpoint failure", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
	}
}
