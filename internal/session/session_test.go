package session

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"super_clicker/internal/domain"
	"super_clicker/internal/moderation"
	"super_clicker/internal/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var start = time.Date(2026, 5, 10, 9, 0, 0, 0, time.UTC)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type recordingUI struct {
	mu       sync.Mutex
	messages []string
	views    int
}

func (u *recordingUI) Notify(msg string) {
	u.mu.Lock()
	u.messages = append(u.messages, msg)
	u.mu.Unlock()
}

func (u *recordingUI) RefreshAccountStatusView(domain.AccountStatus) {
	u.mu.Lock()
	u.views++
	u.mu.Unlock()
}

func (u *recordingUI) Messages() []string {
	u.mu.Lock()
	defer u.mu.Unlock()
	return append([]string(nil), u.messages...)
}

// countingStore counts writes on top of an in-memory store.
type countingStore struct {
	*store.Memory
	writes atomic.Int64
}

func (c *countingStore) Store(ctx context.Context, rec *domain.PlayerRecord) error {
	c.writes.Add(1)
	return c.Memory.Store(ctx, rec)
}

type fixture struct {
	clock *fakeClock
	store *countingStore
	ui    *recordingUI
}

func newFixture() *fixture {
	return &fixture{
		clock: &fakeClock{now: start},
		store: &countingStore{Memory: store.NewMemory()},
		ui:    &recordingUI{},
	}
}

func (f *fixture) options() Options {
	return Options{
		Engine:      moderation.NewEngine(moderation.DefaultConfig(), moderation.WithClock(f.clock.Now)),
		Detector:    moderation.NewDetector(moderation.DefaultThresholds()),
		UI:          f.ui,
		OfflineCap:  24 * time.Hour,
		OfflineRate: 0.01,
	}
}

func (f *fixture) seed(t *testing.T, mutate func(*domain.PlayerRecord)) {
	t.Helper()
	rec := domain.NewPlayerRecord(1, "bob", start)
	if mutate != nil {
		mutate(rec)
	}
	require.NoError(t, f.store.Memory.Store(context.Background(), rec))
}

func (f *fixture) load(t *testing.T) *Session {
	t.Helper()
	s, err := Load(context.Background(), f.store, 1, "bob", f.options())
	require.NoError(t, err)
	return s
}

func TestLoadCreatesMissingRecord(t *testing.T) {
	f := newFixture()
	s := f.load(t)

	rec := s.Record()
	assert.Equal(t, int64(1), rec.UserID)
	assert.Equal(t, "bob", rec.Username)
	assert.Equal(t, 1, rec.Level)

	stored, err := f.store.Fetch(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, "bob", stored.Username)
}

func TestLoadCreditsOfflineEarnings(t *testing.T) {
	tests := []struct {
		name    string
		away    time.Duration
		level   int
		banned  bool
		expects int64
	}{
		{"two hours level two", 2 * time.Hour, 2, false, 144},
		{"capped at a day", 48 * time.Hour, 1, false, 864},
		{"no upgrade", 2 * time.Hour, 0, false, 0},
		{"banned earns nothing", 2 * time.Hour, 2, true, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture()
			f.seed(t, func(rec *domain.PlayerRecord) {
				rec.LastPlayed = start.Add(-tt.away)
				rec.Upgrades[domain.UpgradeOfflineEarnings] = domain.Upgrade{Level: tt.level, Cost: 1000}
				rec.AccountStatus.IsBanned = tt.banned
			})
			s := f.load(t)
			assert.Equal(t, tt.expects, s.Record().Coins)
		})
	}
}

func TestLoadReconcilesExpiredBan(t *testing.T) {
	f := newFixture()
	f.seed(t, func(rec *domain.PlayerRecord) {
		rec.AccountStatus.IsBanned = true
		rec.AccountStatus.BanReason = "spam"
		rec.AccountStatus.BanExpires = domain.TimePtr(start.Add(-time.Minute))
	})
	s := f.load(t)

	assert.False(t, s.Status().IsBanned)
	assert.Contains(t, f.ui.Messages(), "Ban expired, account unbanned")
}

func TestClickCreditsStrength(t *testing.T) {
	f := newFixture()
	f.seed(t, func(rec *domain.PlayerRecord) {
		rec.ClickPower = 2
		rec.ClickMultiplier = 3
		rec.Boosters["doubleCoins"] = domain.Booster{Multiplier: 2, ExpiresAt: start.Add(time.Minute)}
		rec.Boosters["expired"] = domain.Booster{Multiplier: 10, ExpiresAt: start.Add(-time.Minute)}
	})
	s := f.load(t)

	res, err := s.Click(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(12), res.Strength)
	assert.Equal(t, int64(12), res.Coins)
	assert.Equal(t, int64(1), s.Record().TotalClicks)
}

func TestClickLevelsUp(t *testing.T) {
	f := newFixture()
	s := f.load(t)

	var last ClickResult
	for i := 0; i < 100; i++ {
		f.clock.Advance(100 * time.Millisecond)
		res, err := s.Click(context.Background())
		require.NoError(t, err)
		last = res
	}
	assert.True(t, last.LeveledUp)
	rec := s.Record()
	assert.Equal(t, 2, rec.Level)
	assert.Equal(t, int64(0), rec.XP)
	assert.Equal(t, int64(150), rec.XPNeeded)
}

func TestClickDeniedWhileRestricted(t *testing.T) {
	tests := []struct {
		name   string
		status domain.AccountStatus
		reason string
	}{
		{"banned", domain.AccountStatus{IsBanned: true}, moderation.ReasonBanned},
		{"frozen", domain.AccountStatus{IsFrozen: true, FreezeExpires: domain.TimePtr(start.Add(time.Hour))}, moderation.ReasonFrozen},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture()
			f.seed(t, func(rec *domain.PlayerRecord) { rec.AccountStatus = tt.status })
			s := f.load(t)
			writes := f.store.writes.Load()

			_, err := s.Click(context.Background())
			require.ErrorIs(t, err, moderation.ErrDenied)
			var denied *moderation.DeniedError
			require.ErrorAs(t, err, &denied)
			assert.Equal(t, tt.reason, denied.Reason)

			assert.Equal(t, int64(0), s.Record().Coins)
			assert.Equal(t, writes, f.store.writes.Load(), "denied action must not persist")

			require.ErrorIs(t, s.Purchase(context.Background(), 0, nil), moderation.ErrDenied)
			require.ErrorIs(t, s.ActivateBooster(context.Background(), "x", 2, 0, time.Minute), moderation.ErrDenied)
			assert.Equal(t, writes, f.store.writes.Load())
		})
	}
}

func TestAutoclickerGetsBanned(t *testing.T) {
	f := newFixture()
	s := f.load(t)
	ctx := context.Background()

	// first click only sets the cadence baseline
	_, err := s.Click(ctx)
	require.NoError(t, err)

	for i := 1; i <= 10; i++ {
		f.clock.Advance(20 * time.Millisecond)
		_, err := s.Click(ctx)
		require.NoError(t, err, "click %d", i)
	}

	f.clock.Advance(20 * time.Millisecond)
	_, err = s.Click(ctx)
	require.ErrorIs(t, err, moderation.ErrDenied)

	st := s.Status()
	assert.True(t, st.IsBanned)
	assert.Equal(t, moderation.ReasonAutoclicker, st.BanReason)
	require.NotNil(t, st.BanExpires)
	assert.True(t, st.BanExpires.Equal(f.clock.Now().Add(7*24*time.Hour)))
	assert.Equal(t, int64(11), s.Record().Coins, "the banning click is not credited")

	require.NoError(t, s.Flush(ctx))
	stored, err := f.store.Fetch(ctx, 1)
	require.NoError(t, err)
	assert.True(t, stored.AccountStatus.IsBanned)
}

func TestImplausibleStateGetsBanned(t *testing.T) {
	f := newFixture()
	f.seed(t, func(rec *domain.PlayerRecord) {
		rec.Coins = 2_000_000
		rec.Level = 3
	})
	s := f.load(t)

	_, err := s.Click(context.Background())
	require.ErrorIs(t, err, moderation.ErrDenied)
	st := s.Status()
	assert.True(t, st.IsBanned)
	assert.Equal(t, moderation.ReasonCoinsImplausible, st.BanReason)
}

func TestWarnEscalates(t *testing.T) {
	f := newFixture()
	s := f.load(t)
	ctx := context.Background()

	s.Warn(ctx, "first")
	assert.False(t, s.Status().IsBanned)
	s.Warn(ctx, "second")

	st := s.Status()
	assert.Equal(t, 2, st.Warnings)
	assert.True(t, st.IsBanned)
	assert.Equal(t, moderation.ReasonWarningLimit, st.BanReason)

	require.NoError(t, s.Flush(ctx))
	stored, err := f.store.Fetch(ctx, 1)
	require.NoError(t, err)
	assert.True(t, stored.AccountStatus.IsBanned)
	assert.Len(t, stored.AccountStatus.WarningHistory, 2)
}

func TestPurchaseAndBooster(t *testing.T) {
	f := newFixture()
	f.seed(t, func(rec *domain.PlayerRecord) { rec.Coins = 100 })
	s := f.load(t)
	ctx := context.Background()

	require.ErrorIs(t, s.Purchase(ctx, 500, nil), ErrInsufficientFunds)

	require.NoError(t, s.Purchase(ctx, 50, func(rec *domain.PlayerRecord) {
		rec.ClickPower++
	}))
	require.NoError(t, s.ActivateBooster(ctx, "turbo", 5, 30, time.Minute))

	rec := s.Record()
	assert.Equal(t, int64(20), rec.Coins)
	assert.Equal(t, int64(2), rec.ClickPower)

	res, err := s.Click(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(10), res.Strength)

	f.clock.Advance(2 * time.Minute)
	res, err = s.Click(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), res.Strength)
}

func TestReconcileTickPersistsExpiry(t *testing.T) {
	f := newFixture()
	f.seed(t, func(rec *domain.PlayerRecord) {
		rec.AccountStatus.IsFrozen = true
		rec.AccountStatus.FreezeExpires = domain.TimePtr(start.Add(time.Hour))
	})
	s := f.load(t)
	ctx := context.Background()

	writes := f.store.writes.Load()
	s.Reconcile(ctx)
	assert.Equal(t, writes, f.store.writes.Load(), "nothing expired yet")

	f.clock.Advance(time.Hour + time.Millisecond)
	s.Reconcile(ctx)
	assert.False(t, s.Status().IsFrozen)
	require.NoError(t, s.Flush(ctx))
	assert.Equal(t, writes+1, f.store.writes.Load())
	s.Close(ctx)
}

func TestStartReconcilerStops(t *testing.T) {
	f := newFixture()
	f.seed(t, func(rec *domain.PlayerRecord) {
		rec.AccountStatus.IsBanned = true
		rec.AccountStatus.BanExpires = domain.TimePtr(start.Add(time.Second))
	})
	s := f.load(t)

	stop := s.StartReconciler(5 * time.Millisecond)
	f.clock.Advance(2 * time.Second)

	require.Eventually(t, func() bool { return !s.Status().IsBanned }, time.Second, 5*time.Millisecond)
	stop()
	stop()
	s.Close(context.Background())
}

func TestApplyRemoteStatus(t *testing.T) {
	f := newFixture()
	s := f.load(t)

	pushed := domain.AccountStatus{IsFrozen: true, FreezeReason: "review"}
	events := []moderation.Event{{Kind: moderation.EventFrozen, Reason: "review", At: start}}
	s.ApplyRemoteStatus(context.Background(), pushed, events)

	assert.True(t, s.Status().IsFrozen)
	assert.Contains(t, f.ui.Messages(), "Account frozen: review")
	assert.Equal(t, "Account frozen: review (permanent)", s.Summary())
	assert.Equal(t, fmt.Sprintf("Super Clicker support\nUser ID: %d\nIssue: account frozen", 1), s.SupportMessage())
}

func TestApplyRemoteStatusClearsLapsedRestriction(t *testing.T) {
	f := newFixture()
	s := f.load(t)
	ctx := context.Background()
	views := func() int {
		f.ui.mu.Lock()
		defer f.ui.mu.Unlock()
		return f.ui.views
	}
	before := views()

	pushed := domain.AccountStatus{IsBanned: true, BanReason: "spam", BanExpires: domain.TimePtr(start.Add(-time.Second))}
	s.ApplyRemoteStatus(ctx, pushed, []moderation.Event{{Kind: moderation.EventBanned, Reason: "spam", At: start}})

	assert.False(t, s.Status().IsBanned)
	assert.Contains(t, f.ui.Messages(), "Ban expired, account unbanned")
	assert.Greater(t, views(), before)

	require.NoError(t, s.Flush(ctx))
	stored, err := f.store.Fetch(ctx, 1)
	require.NoError(t, err)
	assert.False(t, stored.AccountStatus.IsBanned)
	s.Close(ctx)
}

// slowStore delays every write.
type slowStore struct {
	*store.Memory
	delay time.Duration
}

func (s *slowStore) Store(ctx context.Context, rec *domain.PlayerRecord) error {
	time.Sleep(s.delay)
	return s.Memory.Store(ctx, rec)
}

func TestClickCadenceIgnoresSlowStore(t *testing.T) {
	st := &slowStore{Memory: store.NewMemory(), delay: 60 * time.Millisecond}
	s, err := Load(context.Background(), st, 1, "bob", Options{})
	require.NoError(t, err)
	defer s.Close(context.Background())

	var wg sync.WaitGroup
	for i := 0; i < 25; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = s.Click(context.Background())
		}()
		time.Sleep(20 * time.Millisecond)
	}
	wg.Wait()

	status := s.Status()
	assert.True(t, status.IsBanned)
	assert.Equal(t, moderation.ReasonAutoclicker, status.BanReason)
}

func TestFlushRetriesFailedWrite(t *testing.T) {
	f := newFixture()
	fs := &failingStore{inner: f.store}
	s, err := Load(context.Background(), fs, 1, "bob", f.options())
	require.NoError(t, err)
	ctx := context.Background()

	fs.setFail(true)
	_, err = s.Click(ctx)
	require.NoError(t, err)
	require.ErrorIs(t, s.Flush(ctx), store.ErrUnreachable)

	fs.setFail(false)
	require.NoError(t, s.Flush(ctx))
	stored, err := f.store.Fetch(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(1), stored.TotalClicks)
	s.Close(ctx)
}

// failingStore rejects writes while fail is set.
type failingStore struct {
	inner store.Store
	mu    sync.Mutex
	fail  bool
}

func (f *failingStore) setFail(v bool) {
	f.mu.Lock()
	f.fail = v
	f.mu.Unlock()
}

func (f *failingStore) Fetch(ctx context.Context, userID int64) (*domain.PlayerRecord, error) {
	return f.inner.Fetch(ctx, userID)
}

func (f *failingStore) Store(ctx context.Context, rec *domain.PlayerRecord) error {
	f.mu.Lock()
	fail := f.fail
	f.mu.Unlock()
	if fail {
		return store.ErrUnreachable
	}
	return f.inner.Store(ctx, rec)
}
