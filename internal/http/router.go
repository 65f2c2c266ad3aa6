package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/ainexllc/ainexsuite-bridge/internal/config"
	"github.com/ainexllc/ainexsuite-bridge/internal/http/handler"
	httpmiddleware "github.com/ainexllc/ainexsuite-bridge/internal/http/middleware"
	"github.com/ainexllc/ainexsuite-bridge/internal/middleware"
	"github.com/ainexllc/ainexsuite-bridge/internal/service"
)

// NewRouter wires Gin routes and middleware.
func NewRouter(
	cfg config.Config,
	sessions *service.SessionService,
	sessionHandler *handler.SessionHandler,
	inviteHandler *handler.InviteHandler,
	spaceHandler *handler.SpaceHandler,
	adminHandler *handler.AdminHandler,
	rateLimiter *middleware.RateLimiter,
) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(httpmiddleware.RequestLogger(nil))
	if rateLimiter != nil {
		r.Use(rateLimiter.Handler())
	}
	r.Use(middleware.FamilyCORS(cfg))
	r.Use(otelgin.Middleware(cfg.ServiceName))

	requireIdentity := httpmiddleware.RequireIdentity(sessions)

	session := r.Group("/session")
	{
		session.POST("/create", sessionHandler.Create)
		session.POST("/exchange", sessionHandler.Exchange)
		session.POST("/revoke", sessionHandler.Revoke)
		session.GET("/domain", sessionHandler.DomainInfo)
	}

	invites := r.Group("/invites")
	{
		invites.GET("/:token", inviteHandler.Get)
		invites.POST("/:token/accept", requireIdentity, inviteHandler.Accept)
		invites.POST("/:token/decline", inviteHandler.Decline)
	}

	spaces := r.Group("/spaces", requireIdentity)
	{
		spaces.POST("", spaceHandler.Create)
		spaces.GET("", spaceHandler.List)
		spaces.GET("/:id", spaceHandler.Get)
		spaces.POST("/:id/invites", inviteHandler.Create)
	}

	r.POST("/admin/bootstrap", adminHandler.BootstrapAdmin)

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	return r
}
