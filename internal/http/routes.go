package http

import (
	"time"

	"super_clicker/internal/http/handlers"
	"super_clicker/internal/http/middleware"
	"super_clicker/internal/ws"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Limits configures the rate limiters.
type Limits struct {
	API        int
	APIWindow  time.Duration
	Auth       int
	AuthWindow time.Duration
	Save       int
	SaveWindow time.Duration
}

func RegisterRoutes(r *gin.Engine, h *handlers.Handler, health *handlers.HealthHandler, hub *ws.Hub, limits Limits) {
	// Health checks (no rate limiting)
	r.GET("/health", health.Health)
	r.GET("/healthz", health.Liveness)
	r.GET("/readyz", health.Readiness)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// Account status push stream
	r.GET("/ws", ws.HandleWS(hub))

	v1 := r.Group("/api/v1")
	v1.Use(middleware.RateLimit(limits.API, limits.APIWindow))
	registerAPIRoutes(v1, h, limits)
}

func registerAPIRoutes(api *gin.RouterGroup, h *handlers.Handler, limits Limits) {
	// Auth
	api.POST("/auth", middleware.RateLimit(limits.Auth, limits.AuthWindow), h.Auth)

	// Player records
	api.GET("/user/:id", middleware.JWT(), h.GetUser)
	api.POST("/user/:id", middleware.JWT(), middleware.UserRateLimit("save", limits.Save, limits.SaveWindow), h.SaveUser)

	api.GET("/leaderboard", h.GetLeaderboard)
	api.GET("/stats", h.GetStats)

	// Admin
	adm := api.Group("/admin")
	adm.Use(middleware.JWT(), middleware.AdminOnly())
	{
		adm.GET("/users", h.ListUsers)
		adm.POST("/cleanup", h.Cleanup)
		adm.GET("/audit", h.RecentAuditLogs)
		adm.GET("/users/:id/audit", h.UserAuditLogs)
		adm.POST("/users/:id/:action", h.Moderate)
	}
}
