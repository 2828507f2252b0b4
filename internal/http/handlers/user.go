package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"super_clicker/internal/domain"
	"super_clicker/internal/service"

	"github.com/gin-gonic/gin"
)

// GetUser returns a player record. Players may only read their own.
func (h *Handler) GetUser(c *gin.Context) {
	caller, ok := getCaller(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid user id"})
		return
	}
	if !caller.IsAdmin && caller.UserID != id {
		c.JSON(http.StatusForbidden, gin.H{"error": "forbidden"})
		return
	}

	rec, err := h.Players.Get(c.Request.Context(), id)
	if err != nil {
		storeError(c, err)
		return
	}
	c.JSON(http.StatusOK, rec)
}

// SaveUser stores a player record sent by the game client or an admin tool.
func (h *Handler) SaveUser(c *gin.Context) {
	caller, ok := getCaller(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid user id"})
		return
	}

	var rec domain.PlayerRecord
	if err := c.ShouldBindJSON(&rec); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "bad request"})
		return
	}

	saved, err := h.Players.Save(c.Request.Context(), caller, id, &rec)
	if err != nil {
		if errors.Is(err, service.ErrForbidden) {
			c.JSON(http.StatusForbidden, gin.H{"error": "forbidden"})
			return
		}
		storeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":        "success",
		"accountStatus": saved.AccountStatus,
		"lastSaved":     saved.LastSaved,
	})
}
