package bot

import (
	"context"
	"sync"
	"testing"
	"time"

	"super_clicker/internal/domain"
	"super_clicker/internal/moderation"
	"super_clicker/internal/service"
	"super_clicker/internal/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type flakyStore struct {
	*store.Memory

	mu    sync.Mutex
	fails int
}

func (f *flakyStore) Store(ctx context.Context, rec *domain.PlayerRecord) error {
	f.mu.Lock()
	if f.fails > 0 {
		f.fails--
		f.mu.Unlock()
		return store.ErrUnreachable
	}
	f.mu.Unlock()
	return f.Memory.Store(ctx, rec)
}

func (f *flakyStore) failNext(n int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fails = n
}

type stubQueries struct{}

func (stubQueries) Leaderboard(context.Context, int, time.Time) ([]domain.LeaderboardEntry, error) {
	return []domain.LeaderboardEntry{{UserID: 5, Username: "tapper", Coins: 42, Level: 3}}, nil
}

func (stubQueries) Stats(context.Context, time.Time) (domain.GameStats, error) {
	return domain.GameStats{TotalUsers: 7, BannedUsers: 2}, nil
}

func (stubQueries) List(context.Context, int, int) ([]*domain.PlayerRecord, error) { return nil, nil }

func (stubQueries) DeleteInactive(context.Context, time.Time, int) (int64, error) { return 0, nil }

func newCommands(t *testing.T) (*Commands, *flakyStore) {
	t.Helper()
	st := &flakyStore{Memory: store.NewMemory()}
	require.NoError(t, st.Memory.Store(context.Background(), domain.NewPlayerRecord(5, "tapper", time.Now())))

	engine := moderation.NewEngine(moderation.DefaultConfig())
	return NewCommands(
		service.NewModerationService(st, store.NewLocks(), engine, nil, nil),
		service.NewAdminService(stubQueries{}, nil, service.CleanupPolicy{}),
	), st
}

func TestCommandsModerationFlow(t *testing.T) {
	c, st := newCommands(t)
	ctx := context.Background()

	assert.Contains(t, c.Handle(ctx, 1, "warn", "spam"), "/find")
	assert.Contains(t, c.Handle(ctx, 1, "find", "404"), "не найден")
	assert.Contains(t, c.Handle(ctx, 1, "find", "abc"), "Использование")

	assert.Contains(t, c.Handle(ctx, 1, "find", "5"), "Игрок 5")

	out := c.Handle(ctx, 1, "ban", "1d 1 macro")
	assert.Contains(t, out, "Account banned until")
	assert.Contains(t, out, "Cheating: macro")

	rec, err := st.Fetch(ctx, 5)
	require.NoError(t, err)
	assert.True(t, rec.AccountStatus.IsBanned)
	require.NotNil(t, rec.AccountStatus.BanExpires)

	assert.Contains(t, c.Handle(ctx, 1, "unban", ""), "Account unbanned")
	assert.Contains(t, c.Handle(ctx, 1, "warn", "3"), "Warning issued (1): Suspected cheating")
	assert.Contains(t, c.Handle(ctx, 1, "freeze", "forever under review"), "Account frozen: under review")
	assert.Contains(t, c.Handle(ctx, 1, "unfreeze", ""), "Account unfrozen")

	assert.Contains(t, c.Handle(ctx, 1, "ban", "1d"), "Использование")
	assert.Contains(t, c.Handle(ctx, 1, "ban", "soon Cheating"), "invalid")

	// another admin has an empty slot
	assert.Contains(t, c.Handle(ctx, 2, "status", ""), "не выбран")
	assert.Contains(t, c.Handle(ctx, 1, "status", ""), "Игрок 5")
}

func TestCommandsRetry(t *testing.T) {
	c, st := newCommands(t)
	ctx := context.Background()

	require.Contains(t, c.Handle(ctx, 1, "find", "5"), "Игрок 5")

	st.failNext(1)
	assert.Contains(t, c.Handle(ctx, 1, "ban", "forever 2"), "/retry")
	assert.Contains(t, c.Handle(ctx, 1, "status", ""), "несохранённые")

	rec, err := st.Fetch(ctx, 5)
	require.NoError(t, err)
	assert.False(t, rec.AccountStatus.IsBanned)

	assert.Contains(t, c.Handle(ctx, 1, "retry", ""), "Account banned permanently: Abuse")
	rec, err = st.Fetch(ctx, 5)
	require.NoError(t, err)
	assert.True(t, rec.AccountStatus.IsBanned)
}

func TestCommandsStats(t *testing.T) {
	c, _ := newCommands(t)
	ctx := context.Background()

	assert.Contains(t, c.Handle(ctx, 1, "stats", ""), "Всего игроков: 7")
	assert.Contains(t, c.Handle(ctx, 1, "top", ""), "tapper (5) - 42")
	assert.Contains(t, c.Handle(ctx, 1, "help", ""), "/ban")
	assert.Contains(t, c.Handle(ctx, 1, "reasons", ""), "1. Cheating")
	assert.Contains(t, c.Handle(ctx, 1, "nope", ""), "Неизвестная команда")
}

func TestResolveReason(t *testing.T) {
	tests := []struct {
		args   string
		reason string
		detail string
	}{
		{"", "", ""},
		{"1", "Cheating", ""},
		{"2 spamming chat", "Abuse", "spamming chat"},
		{"9 out of range", "9 out of range", ""},
		{"free text", "free text", ""},
	}
	for _, tt := range tests {
		reason, detail := resolveReason([]string{"Cheating", "Abuse"}, tt.args)
		assert.Equal(t, tt.reason, reason, tt.args)
		assert.Equal(t, tt.detail, detail, tt.args)
	}
}

