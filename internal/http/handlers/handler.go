package handlers

import (
	"errors"
	"net/http"
	"time"

	"super_clicker/internal/service"
	"super_clicker/internal/store"

	"github.com/gin-gonic/gin"
)

// HandlerConfig holds configuration for handler
type HandlerConfig struct {
	BotToken string
	DevMode  bool
	IsAdmin  func(userID int64) bool
}

type Handler struct {
	BotToken string
	DevMode  bool
	IsAdmin  func(userID int64) bool

	Players    *service.PlayerService
	Moderation *service.ModerationService
	Admin      *service.AdminService
	Audit      *service.AuditService

	now func() time.Time
}

func NewHandler(cfg HandlerConfig, players *service.PlayerService, moderation *service.ModerationService, adminSvc *service.AdminService, audit *service.AuditService) *Handler {
	isAdmin := cfg.IsAdmin
	if isAdmin == nil {
		isAdmin = func(int64) bool { return false }
	}
	return &Handler{
		BotToken:   cfg.BotToken,
		DevMode:    cfg.DevMode,
		IsAdmin:    isAdmin,
		Players:    players,
		Moderation: moderation,
		Admin:      adminSvc,
		Audit:      audit,
		now:        time.Now,
	}
}

// getUserID извлекает user_id из контекста Gin
func getUserID(c interface{ Get(string) (any, bool) }) (int64, bool) {
	uidVal, ok := c.Get("user_id")
	if !ok {
		return 0, false
	}
	switch v := uidVal.(type) {
	case int64:
		return v, true
	case float64:
		return int64(v), true
	default:
		return 0, false
	}
}

func getCaller(c *gin.Context) (service.Caller, bool) {
	id, ok := getUserID(c)
	if !ok {
		return service.Caller{}, false
	}
	return service.Caller{UserID: id, IsAdmin: c.GetBool("is_admin")}, true
}

// storeError maps storage failures to a response.
func storeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
	case errors.Is(err, store.ErrUnreachable):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "storage unavailable"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "db error"})
	}
}
