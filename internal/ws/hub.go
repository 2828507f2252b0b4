package ws

import (
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"super_clicker/internal/domain"
	"super_clicker/internal/logger"
	"super_clicker/internal/metrics"
	"super_clicker/internal/moderation"
)

// Hub fans account status changes out to every connection of the player.
type Hub struct {
	mu      sync.RWMutex
	clients map[int64]map[*Client]struct{}
	log     *slog.Logger
}

func NewHub() *Hub {
	return &Hub{
		clients: make(map[int64]map[*Client]struct{}),
		log:     logger.Component("ws"),
	}
}

func (h *Hub) register(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	set, ok := h.clients[c.UserID]
	if !ok {
		set = make(map[*Client]struct{})
		h.clients[c.UserID] = set
	}
	set[c] = struct{}{}
	metrics.WSConnections.Inc()
	h.log.Debug("client registered", "user_id", c.UserID, "connections", len(set))
}

func (h *Hub) unregister(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	set, ok := h.clients[c.UserID]
	if !ok {
		return
	}
	if _, ok := set[c]; !ok {
		return
	}
	delete(set, c)
	close(c.Send)
	if len(set) == 0 {
		delete(h.clients, c.UserID)
	}
	metrics.WSConnections.Dec()
}

// Connections returns the number of open connections for userID.
func (h *Hub) Connections(userID int64) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[userID])
}

// PublishStatus sends the status to all of the player's connections. Slow
// connections drop the frame rather than block the caller.
func (h *Hub) PublishStatus(userID int64, st domain.AccountStatus, events []moderation.Event) {
	msg, err := json.Marshal(StatusMessage{
		Type:    MsgStatus,
		UserID:  userID,
		Status:  st,
		Events:  events,
		Summary: moderation.Summary(st, time.Now()),
	})
	if err != nil {
		h.log.Error("marshal status", "user_id", userID, "error", err)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.clients[userID] {
		select {
		case c.Send <- msg:
			metrics.StatusPushes.Inc()
		default:
			h.log.Warn("status frame dropped", "user_id", userID)
		}
	}
}
