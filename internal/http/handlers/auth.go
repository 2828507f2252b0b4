package handlers

import (
	"errors"
	"net/http"

	"super_clicker/internal/domain"
	"super_clicker/internal/moderation"
	"super_clicker/internal/service"
	"super_clicker/internal/store"
	"super_clicker/internal/telegram"

	"github.com/gin-gonic/gin"
)

type AuthRequest struct {
	InitData string `json:"init_data"`
}

const devUserID int64 = 12345

func (h *Handler) Auth(c *gin.Context) {
	var req AuthRequest
	if err := c.BindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "bad request"})
		return
	}
	if len(req.InitData) > 4096 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "init_data too long"})
		return
	}

	var tgUser *telegram.User
	if h.DevMode {
		// DEV MODE: пропускаем валидацию
		tgUser, _ = telegram.ParseUser(req.InitData)
		if tgUser == nil {
			tgUser = &telegram.User{ID: devUserID, Username: "testuser"}
		}
	} else {
		values, ok := telegram.ValidateInitData(req.InitData, h.BotToken, h.now())
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid or stale telegram data"})
			return
		}
		u, err := telegram.UserFrom(values)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid user json"})
			return
		}
		tgUser = u
	}

	ctx := c.Request.Context()
	rec, err := h.Players.Get(ctx, tgUser.ID)
	if errors.Is(err, store.ErrNotFound) {
		name := tgUser.Username
		if name == "" {
			name = tgUser.FirstName
		}
		rec, err = h.Players.Save(ctx, service.Caller{UserID: tgUser.ID}, tgUser.ID, domain.NewPlayerRecord(tgUser.ID, name, h.now()))
	}
	if err != nil {
		storeError(c, err)
		return
	}

	isAdmin := h.IsAdmin(tgUser.ID)
	token, err := service.GenerateJWT(tgUser.ID, isAdmin)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "token generation failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"token":    token,
		"is_admin": isAdmin,
		"user": gin.H{
			"id":            rec.UserID,
			"username":      rec.Username,
			"first_name":    tgUser.FirstName,
			"coins":         rec.Coins,
			"level":         rec.Level,
			"accountStatus": rec.AccountStatus,
			"summary":       moderation.Summary(rec.AccountStatus, h.now()),
		},
	})
}
