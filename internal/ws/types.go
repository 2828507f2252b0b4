package ws

import (
	"super_clicker/internal/domain"
	"super_clicker/internal/moderation"
)

const (
	// server - client
	MsgReady  = "ready"
	MsgStatus = "status"
)

// StatusMessage is pushed whenever a player's account status changes.
type StatusMessage struct {
	Type    string               `json:"type"`
	UserID  int64                `json:"user_id"`
	Status  domain.AccountStatus `json:"accountStatus"`
	Events  []moderation.Event   `json:"events,omitempty"`
	Summary string               `json:"summary,omitempty"`
}
