package service

import (
	"context"
	"time"

	"super_clicker/internal/domain"
)

const leaderboardSize = 10

// PlayerQueries are the aggregate queries over all player records.
type PlayerQueries interface {
	Leaderboard(ctx context.Context, limit int, now time.Time) ([]domain.LeaderboardEntry, error)
	Stats(ctx context.Context, now time.Time) (domain.GameStats, error)
	List(ctx context.Context, limit, offset int) ([]*domain.PlayerRecord, error)
	DeleteInactive(ctx context.Context, before time.Time, maxLevel int) (int64, error)
}

// CleanupPolicy selects abandoned accounts.
type CleanupPolicy struct {
	InactiveAfter time.Duration
	MaxLevel      int
}

// AdminService provides statistics, the leaderboard and bulk operations
type AdminService struct {
	players PlayerQueries
	audit   *AuditService
	cleanup CleanupPolicy
	now     func() time.Time
}

func NewAdminService(players PlayerQueries, audit *AuditService, cleanup CleanupPolicy) *AdminService {
	return &AdminService{players: players, audit: audit, cleanup: cleanup, now: time.Now}
}

// Leaderboard returns the top players by coins, without banned accounts.
func (s *AdminService) Leaderboard(ctx context.Context) ([]domain.LeaderboardEntry, error) {
	return s.players.Leaderboard(ctx, leaderboardSize, s.now())
}

// GetStats returns game-wide statistics
func (s *AdminService) GetStats(ctx context.Context) (domain.GameStats, error) {
	return s.players.Stats(ctx, s.now())
}

// ListUsers returns a page of full player records.
func (s *AdminService) ListUsers(ctx context.Context, limit, offset int) ([]*domain.PlayerRecord, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}
	return s.players.List(ctx, limit, offset)
}

// Cleanup deletes low-level accounts that have not saved for the configured
// period and returns how many were removed.
func (s *AdminService) Cleanup(ctx context.Context, adminID int64) (int64, error) {
	before := s.now().Add(-s.cleanup.InactiveAfter)
	n, err := s.players.DeleteInactive(ctx, before, s.cleanup.MaxLevel)
	if err != nil {
		return 0, err
	}
	if s.audit != nil {
		s.audit.Log(ctx, 0, adminID, domain.AuditActionCleanup, domain.AuditCategoryAdmin, map[string]interface{}{
			"cleaned_count": n,
			"before":        before.UTC(),
			"max_level":     s.cleanup.MaxLevel,
		})
	}
	return n, nil
}
