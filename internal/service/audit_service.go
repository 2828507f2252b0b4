package service

import (
	"context"

	"super_clicker/internal/domain"
	"super_clicker/internal/logger"
	"super_clicker/internal/moderation"
)

// AuditRepo is the storage behind AuditService.
type AuditRepo interface {
	Create(ctx context.Context, log *domain.AuditLog) error
	GetByUserID(ctx context.Context, userID int64, limit int) ([]*domain.AuditLog, error)
	GetRecent(ctx context.Context, limit int) ([]*domain.AuditLog, error)
}

// AuditService handles audit logging
type AuditService struct {
	repo AuditRepo
}

func NewAuditService(repo AuditRepo) *AuditService {
	return &AuditService{repo: repo}
}

// Log creates a new audit log entry. Failures are logged and swallowed.
func (s *AuditService) Log(ctx context.Context, userID, actorID int64, action, category string, details map[string]interface{}) {
	log := &domain.AuditLog{
		UserID:   userID,
		ActorID:  actorID,
		Action:   action,
		Category: category,
		Details:  details,
	}

	if err := s.repo.Create(ctx, log); err != nil {
		logger.Error("failed to create audit log", "error", err, "action", action, "user_id", userID)
	}
}

// LogEvents writes one moderation entry per event.
func (s *AuditService) LogEvents(ctx context.Context, userID, actorID int64, events []moderation.Event) {
	for _, ev := range events {
		details := map[string]interface{}{
			"reason": ev.Reason,
		}
		if ev.Expires != nil {
			details["expires"] = ev.Expires.UTC()
		}
		if ev.Warnings > 0 {
			details["warnings"] = ev.Warnings
		}
		s.Log(ctx, userID, actorID, auditAction(ev.Kind), domain.AuditCategoryModeration, details)
	}
}

func auditAction(kind moderation.EventKind) string {
	switch kind {
	case moderation.EventBanned:
		return domain.AuditActionBan
	case moderation.EventUnbanned:
		return domain.AuditActionUnban
	case moderation.EventFrozen:
		return domain.AuditActionFreeze
	case moderation.EventUnfrozen:
		return domain.AuditActionUnfreeze
	case moderation.EventWarned:
		return domain.AuditActionWarn
	case moderation.EventAutoBanned, moderation.EventEscalated:
		return domain.AuditActionAutoBan
	case moderation.EventBanExpired, moderation.EventFreezeExpired:
		return domain.AuditActionExpired
	default:
		return string(kind)
	}
}

// GetUserAuditLogs returns audit logs for a user
func (s *AuditService) GetUserAuditLogs(ctx context.Context, userID int64, limit int) ([]*domain.AuditLog, error) {
	return s.repo.GetByUserID(ctx, userID, limit)
}

// GetRecentLogs returns recent audit logs
func (s *AuditService) GetRecentLogs(ctx context.Context, limit int) ([]*domain.AuditLog, error) {
	return s.repo.GetRecent(ctx, limit)
}
