package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"super_clicker/internal/admin"
	"super_clicker/internal/moderation"
	"super_clicker/internal/service"

	"github.com/gin-gonic/gin"
)

// ListUsers returns a page of player records (admin).
func (h *Handler) ListUsers(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "100"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	users, err := h.Admin.ListUsers(c.Request.Context(), limit, offset)
	if err != nil {
		storeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"users": users, "limit": limit, "offset": offset})
}

// Cleanup removes abandoned low-level accounts (admin).
func (h *Handler) Cleanup(c *gin.Context) {
	adminID, _ := getUserID(c)
	n, err := h.Admin.Cleanup(c.Request.Context(), adminID)
	if err != nil {
		storeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"cleaned_count": n, "status": "success"})
}

// Moderate applies ban/unban/freeze/unfreeze/warn to a player (admin).
func (h *Handler) Moderate(c *gin.Context) {
	adminID, _ := getUserID(c)
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid user id"})
		return
	}

	var req service.ActionRequest
	if err := c.ShouldBindJSON(&req); err != nil && c.Request.ContentLength > 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "bad request"})
		return
	}

	rec, err := h.Moderation.Apply(c.Request.Context(), adminID, id, c.Param("action"), req)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrUnknownAction), errors.Is(err, service.ErrInvalidRequest):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		case errors.Is(err, admin.ErrNotCommitted):
			c.JSON(http.StatusBadGateway, gin.H{"error": "change not saved, retry"})
		default:
			storeError(c, err)
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":        "success",
		"accountStatus": rec.AccountStatus,
		"summary":       moderation.Summary(rec.AccountStatus, h.now()),
	})
}

// UserAuditLogs returns the moderation history of one player (admin).
func (h *Handler) UserAuditLogs(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid user id"})
		return
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))

	logs, err := h.Audit.GetUserAuditLogs(c.Request.Context(), id, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to get audit logs"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"logs": logs})
}

// RecentAuditLogs returns the latest audit entries (admin).
func (h *Handler) RecentAuditLogs(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	logs, err := h.Audit.GetRecentLogs(c.Request.Context(), limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to get audit logs"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"logs": logs})
}
