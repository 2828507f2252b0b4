package domain

import "time"

// AuditLog records a moderation or persistence action for later review
type AuditLog struct {
	ID        int64                  `db:"id" json:"id"`
	UserID    int64                  `db:"user_id" json:"user_id"`
	ActorID   int64                  `db:"actor_id" json:"actor_id"`
	Action    string                 `db:"action" json:"action"`
	Category  string                 `db:"category" json:"category"`
	Details   map[string]interface{} `db:"details" json:"details"`
	CreatedAt time.Time              `db:"created_at" json:"created_at"`
}

// Audit action categories
const (
	AuditCategoryModeration = "moderation"
	AuditCategoryPlayer     = "player"
	AuditCategoryAdmin      = "admin"
)

// Audit actions
const (
	// Moderation actions
	AuditActionBan      = "ban"
	AuditActionUnban    = "unban"
	AuditActionFreeze   = "freeze"
	AuditActionUnfreeze = "unfreeze"
	AuditActionWarn     = "warn"
	AuditActionAutoBan  = "auto_ban"
	AuditActionExpired  = "expired"

	// Player actions
	AuditActionSave = "save"

	// Admin actions
	AuditActionCleanup = "cleanup"
)
