package store

import (
	"context"
	"errors"
	"log/slog"

	"super_clicker/internal/domain"
	"super_clicker/internal/logger"
)

// Fallback prefers the remote store and falls back to the local one when the
// remote is unreachable. Writes always land locally first.
type Fallback struct {
	remote Store
	local  Store
	log    *slog.Logger
}

func NewFallback(remote, local Store) *Fallback {
	return &Fallback{remote: remote, local: local, log: logger.Component("store")}
}

// Fetch returns the remote record, or the local one if the remote is
// unreachable or has never seen this player.
func (f *Fallback) Fetch(ctx context.Context, userID int64) (*domain.PlayerRecord, error) {
	rec, err := f.remote.Fetch(ctx, userID)
	switch {
	case err == nil:
		if lerr := f.local.Store(ctx, rec); lerr != nil {
			f.log.Warn("local mirror failed", "user_id", userID, "error", lerr)
		}
		return rec, nil
	case errors.Is(err, ErrUnreachable):
		f.log.Warn("remote store unreachable, using local", "user_id", userID, "error", err)
	case errors.Is(err, ErrNotFound):
	default:
		return nil, err
	}
	return f.local.Fetch(ctx, userID)
}

// Store writes locally, then remotely. An unreachable remote is logged and
// not reported.
func (f *Fallback) Store(ctx context.Context, rec *domain.PlayerRecord) error {
	if err := f.local.Store(ctx, rec); err != nil {
		return err
	}
	if err := f.remote.Store(ctx, rec); err != nil {
		if errors.Is(err, ErrUnreachable) {
			f.log.Warn("remote store unreachable, kept local copy", "user_id", rec.UserID, "error", err)
			return nil
		}
		return err
	}
	return nil
}
