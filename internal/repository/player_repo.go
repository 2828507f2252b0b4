package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"super_clicker/internal/domain"
	"super_clicker/internal/store"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PlayerRepository is the authoritative store of player records. The full
// record lives in the data column; the remaining columns are copies used by
// leaderboard, stats and cleanup queries.
type PlayerRepository struct {
	db *pgxpool.Pool
}

func NewPlayerRepository(db *pgxpool.Pool) *PlayerRepository {
	return &PlayerRepository{db: db}
}

var _ store.Store = (*PlayerRepository)(nil)

// Fetch implements store.Store.
func (r *PlayerRepository) Fetch(ctx context.Context, userID int64) (*domain.PlayerRecord, error) {
	var data []byte
	err := r.db.QueryRow(ctx, `SELECT data FROM players WHERE user_id = $1`, userID).Scan(&data)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, classify(err)
	}

	var rec domain.PlayerRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("decode player %d: %w", userID, err)
	}
	return &rec, nil
}

// Store implements store.Store.
func (r *PlayerRepository) Store(ctx context.Context, rec *domain.PlayerRecord) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode player %d: %w", rec.UserID, err)
	}
	lastSaved := time.Now()
	if rec.LastSaved != nil {
		lastSaved = *rec.LastSaved
	}
	st := rec.AccountStatus

	_, err = r.db.Exec(ctx, `
		INSERT INTO players (user_id, username, coins, level, total_clicks,
			is_banned, ban_expires, is_frozen, freeze_expires, data, last_saved)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (user_id) DO UPDATE SET
			username = EXCLUDED.username,
			coins = EXCLUDED.coins,
			level = EXCLUDED.level,
			total_clicks = EXCLUDED.total_clicks,
			is_banned = EXCLUDED.is_banned,
			ban_expires = EXCLUDED.ban_expires,
			is_frozen = EXCLUDED.is_frozen,
			freeze_expires = EXCLUDED.freeze_expires,
			data = EXCLUDED.data,
			last_saved = EXCLUDED.last_saved
	`, rec.UserID, rec.Username, rec.Coins, rec.Level, rec.TotalClicks,
		st.IsBanned, st.BanExpires, st.IsFrozen, st.FreezeExpires, data, lastSaved)
	if err != nil {
		return classify(err)
	}
	return nil
}

// Leaderboard returns the top players by coins, skipping actively banned ones.
func (r *PlayerRepository) Leaderboard(ctx context.Context, limit int, now time.Time) ([]domain.LeaderboardEntry, error) {
	rows, err := r.db.Query(ctx, `
		SELECT user_id, username, coins, level, total_clicks
		FROM players
		WHERE NOT (is_banned AND (ban_expires IS NULL OR ban_expires > $1))
		ORDER BY coins DESC
		LIMIT $2`, now, limit)
	if err != nil {
		return nil, classify(err)
	}
	defer rows.Close()

	res := make([]domain.LeaderboardEntry, 0, limit)
	for rows.Next() {
		var e domain.LeaderboardEntry
		if err := rows.Scan(&e.UserID, &e.Username, &e.Coins, &e.Level, &e.TotalClicks); err != nil {
			return nil, err
		}
		res = append(res, e)
	}
	return res, rows.Err()
}

// Stats aggregates all records. Ban and freeze counts only include active
// restrictions.
func (r *PlayerRepository) Stats(ctx context.Context, now time.Time) (domain.GameStats, error) {
	var s domain.GameStats
	err := r.db.QueryRow(ctx, `
		SELECT
			COUNT(*),
			COUNT(*) FILTER (WHERE is_banned AND (ban_expires IS NULL OR ban_expires > $1)),
			COUNT(*) FILTER (WHERE is_frozen AND (freeze_expires IS NULL OR freeze_expires > $1)),
			COALESCE(SUM(coins), 0),
			COALESCE(SUM(total_clicks), 0)
		FROM players`, now).Scan(&s.TotalUsers, &s.BannedUsers, &s.FrozenUsers, &s.TotalCoins, &s.TotalClicks)
	if err != nil {
		return s, classify(err)
	}
	s.ActiveUsers = s.TotalUsers - s.BannedUsers
	return s, nil
}

// List returns records ordered by user id.
func (r *PlayerRepository) List(ctx context.Context, limit, offset int) ([]*domain.PlayerRecord, error) {
	rows, err := r.db.Query(ctx, `
		SELECT data FROM players
		ORDER BY user_id
		LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, classify(err)
	}
	defer rows.Close()

	var res []*domain.PlayerRecord
	for rows.Next() {
		var data []byte
		if err := rows.Scan(&data); err != nil {
			return nil, err
		}
		var rec domain.PlayerRecord
		if err := json.Unmarshal(data, &rec); err != nil {
			return nil, err
		}
		res = append(res, &rec)
	}
	return res, rows.Err()
}

// DeleteInactive removes records not saved since before and below maxLevel.
func (r *PlayerRepository) DeleteInactive(ctx context.Context, before time.Time, maxLevel int) (int64, error) {
	tag, err := r.db.Exec(ctx, `DELETE FROM players WHERE last_saved < $1 AND level < $2`, before, maxLevel)
	if err != nil {
		return 0, classify(err)
	}
	return tag.RowsAffected(), nil
}

// classify marks connection-level failures as store.ErrUnreachable. Errors
// reported by the server itself are returned as is.
func classify(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return err
	}
	if errors.Is(err, context.Canceled) {
		return err
	}
	return fmt.Errorf("%w: %v", store.ErrUnreachable, err)
}
