package moderation

import (
	"fmt"
	"testing"
	"time"

	"super_clicker/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var start = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

type fakeClock struct{ t time.Time }

func (c *fakeClock) Now() time.Time          { return c.t }
func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestEngine(clock *fakeClock) *Engine {
	seq := 0
	return NewEngine(DefaultConfig(),
		WithClock(clock.Now),
		WithIDGenerator(func() string {
			seq++
			return fmt.Sprintf("w%d", seq)
		}),
	)
}

func TestPredicates(t *testing.T) {
	past := start.Add(-time.Minute)
	future := start.Add(time.Minute)

	testcases := []struct {
		Name   string
		Status domain.AccountStatus
		Banned bool
		Frozen bool
	}{
		{Name: "clean", Status: domain.AccountStatus{}},
		{Name: "permanent ban", Status: domain.AccountStatus{IsBanned: true}, Banned: true},
		{Name: "future ban", Status: domain.AccountStatus{IsBanned: true, BanExpires: &future}, Banned: true},
		{Name: "lapsed ban", Status: domain.AccountStatus{IsBanned: true, BanExpires: &past}},
		{Name: "ban expiring now", Status: domain.AccountStatus{IsBanned: true, BanExpires: domain.TimePtr(start)}},
		{Name: "permanent freeze", Status: domain.AccountStatus{IsFrozen: true}, Frozen: true},
		{Name: "lapsed freeze", Status: domain.AccountStatus{IsFrozen: true, FreezeExpires: &past}},
		{Name: "expiry without flag", Status: domain.AccountStatus{BanExpires: &future, FreezeExpires: &future}},
	}

	for _, tc := range testcases {
		t.Run(tc.Name, func(t *testing.T) {
			assert.Equal(t, tc.Banned, IsActivelyBanned(tc.Status, start))
			assert.Equal(t, tc.Frozen, IsActivelyFrozen(tc.Status, start))
		})
	}
}

func TestReconcileClearsLapsedRestrictions(t *testing.T) {
	past := start.Add(-time.Second)
	st := domain.AccountStatus{
		IsBanned: true, BanReason: "cheating", BanExpires: &past,
		IsFrozen: true, FreezeReason: "check", FreezeExpires: &past,
	}

	out, events := Reconcile(st, start)
	require.Len(t, events, 2)
	assert.Equal(t, EventBanExpired, events[0].Kind)
	assert.Equal(t, EventFreezeExpired, events[1].Kind)
	assert.False(t, out.IsBanned)
	assert.Empty(t, out.BanReason)
	assert.Nil(t, out.BanExpires)
	assert.False(t, out.IsFrozen)
	assert.Empty(t, out.FreezeReason)
	assert.Nil(t, out.FreezeExpires)

	// input untouched
	assert.True(t, st.IsBanned)

	again, events := Reconcile(out, start)
	assert.Empty(t, events)
	assert.Equal(t, out, again)
}

func TestReconcileKeepsActiveAndPermanent(t *testing.T) {
	future := start.Add(time.Hour)
	st := domain.AccountStatus{IsBanned: true, BanReason: "x", IsFrozen: true, FreezeExpires: &future}

	out, events := Reconcile(st, start)
	assert.Empty(t, events)
	assert.True(t, out.IsBanned)
	assert.True(t, out.IsFrozen)
}

func TestBanThenReconcileAfterDuration(t *testing.T) {
	clock := &fakeClock{t: start}
	e := newTestEngine(clock)

	st, events := e.Ban(domain.AccountStatus{}, "test", 3_600_000*time.Millisecond)
	require.Len(t, events, 1)
	require.NotNil(t, st.BanExpires)
	assert.Equal(t, start.Add(time.Hour), *st.BanExpires)

	out, events := Reconcile(st, start.Add(3_600_001*time.Millisecond))
	require.Len(t, events, 1)
	assert.False(t, out.IsBanned)
	assert.Nil(t, out.BanExpires)
}

func TestPermanentBanAndFreeze(t *testing.T) {
	clock := &fakeClock{t: start}
	e := newTestEngine(clock)

	st, _ := e.Ban(domain.AccountStatus{}, "fraud", Permanent)
	assert.True(t, st.IsBanned)
	assert.Nil(t, st.BanExpires)

	st, _ = e.Freeze(st, "review", Permanent)
	assert.True(t, st.IsFrozen)
	assert.Nil(t, st.FreezeExpires)

	st, _ = e.Unban(st)
	assert.False(t, st.IsBanned)
	assert.Empty(t, st.BanReason)

	st, _ = e.Unfreeze(st)
	assert.False(t, st.IsFrozen)
	assert.Empty(t, st.FreezeReason)
}

func TestWarnKeepsCountInSyncWithHistory(t *testing.T) {
	clock := &fakeClock{t: start}
	e := NewEngine(Config{MaxWarnings: 5, EscalationBanDuration: time.Hour, AutoBanDuration: time.Hour}, WithClock(clock.Now))

	st := domain.AccountStatus{}
	for i := 0; i < 8; i++ {
		st, _ = e.Warn(st, fmt.Sprintf("reason %d", i), domain.IssuedBySystem)
		require.Equal(t, len(st.WarningHistory), st.Warnings)
		if st.Warnings >= 5 {
			require.True(t, st.IsBanned, "escalation missing after %d warnings", st.Warnings)
		}
		clock.Advance(time.Second)
	}

	ids := map[string]bool{}
	for _, w := range st.WarningHistory {
		assert.False(t, ids[w.ID], "duplicate warning id %s", w.ID)
		ids[w.ID] = true
	}
}

func TestWarnEscalatesAtLimit(t *testing.T) {
	clock := &fakeClock{t: start}
	e := newTestEngine(clock)

	st, events := e.Warn(domain.AccountStatus{}, "spam", domain.IssuedBySystem)
	require.Len(t, events, 1)
	assert.Equal(t, 1, st.Warnings)
	assert.False(t, st.IsBanned)

	clock.Advance(time.Minute)
	st, events = e.Warn(st, "rude", domain.IssuedByAdmin(42))
	require.Len(t, events, 2)
	assert.Equal(t, EventWarned, events[0].Kind)
	assert.Equal(t, EventEscalated, events[1].Kind)

	assert.Equal(t, 2, st.Warnings)
	assert.True(t, st.IsBanned)
	assert.Equal(t, ReasonWarningLimit, st.BanReason)
	require.NotNil(t, st.BanExpires)
	assert.Equal(t, clock.Now().Add(7*24*time.Hour), *st.BanExpires)
	assert.Equal(t, "admin_42", st.WarningHistory[1].IssuedBy)
	assert.Equal(t, clock.Now(), *st.LastWarning)
}

func TestEscalationDoesNotShortenPermanentBan(t *testing.T) {
	clock := &fakeClock{t: start}
	e := newTestEngine(clock)

	st, _ := e.Ban(domain.AccountStatus{}, "fraud", Permanent)
	st, _ = e.Warn(st, "a", "")
	st, events := e.Warn(st, "b", "")

	require.Len(t, events, 1)
	assert.True(t, st.IsBanned)
	assert.Nil(t, st.BanExpires)
	assert.Equal(t, "fraud", st.BanReason)
}

func TestAutoBan(t *testing.T) {
	clock := &fakeClock{t: start}
	e := newTestEngine(clock)

	st, events := e.AutoBan(domain.AccountStatus{}, ReasonAutoclicker)
	require.Len(t, events, 1)
	assert.Equal(t, EventAutoBanned, events[0].Kind)
	assert.Equal(t, start.Add(7*24*time.Hour), *st.BanExpires)

	longer := start.Add(30 * 24 * time.Hour)
	st.BanExpires = &longer
	kept, events := e.AutoBan(st, ReasonCoinsImplausible)
	assert.Empty(t, events)
	assert.Equal(t, longer, *kept.BanExpires)
	assert.Equal(t, ReasonAutoclicker, kept.BanReason)
}

func TestOperationsDoNotAliasInput(t *testing.T) {
	clock := &fakeClock{t: start}
	e := newTestEngine(clock)

	base, _ := e.Warn(domain.AccountStatus{}, "first", "")
	base.WarningHistory = append(make([]domain.Warning, 0, 10), base.WarningHistory...)

	a, _ := e.Warn(base, "a", "")
	b, _ := e.Warn(base, "b", "")
	assert.Equal(t, "a", a.WarningHistory[1].Reason)
	assert.Equal(t, "b", b.WarningHistory[1].Reason)
	assert.Len(t, base.WarningHistory, 1)
}

func TestCanAct(t *testing.T) {
	future := start.Add(time.Hour)
	past := start.Add(-time.Hour)

	statuses := []domain.AccountStatus{
		{},
		{IsBanned: true},
		{IsBanned: true, BanExpires: &future},
		{IsBanned: true, BanExpires: &past},
		{IsFrozen: true},
		{IsFrozen: true, FreezeExpires: &future},
		{IsFrozen: true, FreezeExpires: &past},
		{IsBanned: true, IsFrozen: true},
		{IsBanned: true, BanExpires: &past, IsFrozen: true},
	}

	for i, st := range statuses {
		t.Run(fmt.Sprint(i), func(t *testing.T) {
			d := CanAct(st, start)
			banned := IsActivelyBanned(st, start)
			frozen := IsActivelyFrozen(st, start)
			assert.Equal(t, !(banned || frozen), d.Allowed)
			switch {
			case banned:
				assert.Equal(t, ReasonBanned, d.Reason)
			case frozen:
				assert.Equal(t, ReasonFrozen, d.Reason)
			default:
				assert.NoError(t, d.Err())
			}
			if !d.Allowed {
				assert.ErrorIs(t, d.Err(), ErrDenied)
			}
		})
	}
}

func TestObserveClickCadence(t *testing.T) {
	d := NewDetector(DefaultThresholds())
	stats := domain.CheatStats{LastClickTime: domain.TimePtr(start)}
	now := start

	var verdict Verdict
	for i := 1; i <= 11; i++ {
		now = now.Add(20 * time.Millisecond)
		stats, verdict = d.ObserveClick(stats, now)
		if i < 11 {
			require.False(t, verdict.AutoBan, "banned early on click %d", i)
		}
	}
	assert.True(t, verdict.AutoBan)
	assert.Equal(t, ReasonAutoclicker, verdict.Reason)
	assert.Equal(t, 11, stats.SuspiciousActivity)
}

func TestObserveClickSlowNeverBans(t *testing.T) {
	d := NewDetector(DefaultThresholds())
	stats := domain.CheatStats{SuspiciousActivity: 10}
	now := start

	for i := 0; i < 100; i++ {
		now = now.Add(1001 * time.Millisecond)
		var verdict Verdict
		stats, verdict = d.ObserveClick(stats, now)
		require.False(t, verdict.AutoBan)
	}
	assert.Equal(t, 0, stats.SuspiciousActivity)
}

func TestObserveClickMiddleBandLeavesCounter(t *testing.T) {
	d := NewDetector(DefaultThresholds())
	stats := domain.CheatStats{LastClickTime: domain.TimePtr(start), SuspiciousActivity: 3}

	stats, _ = d.ObserveClick(stats, start.Add(300*time.Millisecond))
	assert.Equal(t, 3, stats.SuspiciousActivity)
	assert.Equal(t, start.Add(300*time.Millisecond), *stats.LastClickTime)
}

func TestObserveState(t *testing.T) {
	d := NewDetector(DefaultThresholds())

	testcases := []struct {
		Name       string
		Coins      int64
		Level      int
		ClickPower int64
		Want       Verdict
	}{
		{Name: "coins implausible", Coins: 2_000_000, Level: 3, ClickPower: 1, Want: Verdict{AutoBan: true, Reason: ReasonCoinsImplausible}},
		{Name: "rich but levelled", Coins: 2_000_000, Level: 10, ClickPower: 1},
		{Name: "click power", Coins: 10, Level: 1, ClickPower: 1001, Want: Verdict{AutoBan: true, Reason: ReasonClickPowerImplausible}},
		{Name: "boundary", Coins: 1_000_000, Level: 1, ClickPower: 1000},
	}

	for _, tc := range testcases {
		t.Run(tc.Name, func(t *testing.T) {
			assert.Equal(t, tc.Want, d.ObserveState(tc.Coins, tc.Level, tc.ClickPower))
		})
	}
}

func TestMergeClientStatus(t *testing.T) {
	clock := &fakeClock{t: start}
	e := newTestEngine(clock)

	server, _ := e.Warn(domain.AccountStatus{}, "spam", domain.IssuedByAdmin(1))

	t.Run("client cannot lift a ban", func(t *testing.T) {
		banned, _ := e.Ban(server, "fraud", Permanent)
		out, _ := e.MergeClientStatus(banned, domain.AccountStatus{})
		assert.True(t, out.IsBanned)
		assert.Equal(t, 1, out.Warnings)
	})

	t.Run("client system warning escalates", func(t *testing.T) {
		client, _ := e.Warn(server, "suspicious", domain.IssuedBySystem)
		client.IsBanned = false
		client.BanExpires = nil

		out, events := e.MergeClientStatus(server, client)
		assert.Equal(t, 2, out.Warnings)
		assert.True(t, out.IsBanned)
		assert.Equal(t, ReasonWarningLimit, out.BanReason)
		assert.NotEmpty(t, events)
	})

	t.Run("forged admin warnings ignored", func(t *testing.T) {
		client, _ := e.Warn(server, "forged", domain.IssuedByAdmin(9))
		out, _ := e.MergeClientStatus(server, client)
		assert.Equal(t, 1, out.Warnings)
	})

	t.Run("client auto ban adopted", func(t *testing.T) {
		client, _ := e.AutoBan(server, ReasonAutoclicker)
		out, events := e.MergeClientStatus(server, client)
		assert.True(t, out.IsBanned)
		assert.Equal(t, ReasonAutoclicker, out.BanReason)
		require.Len(t, events, 1)
		assert.Equal(t, EventAutoBanned, events[0].Kind)
	})

	t.Run("stale admin ban not adopted", func(t *testing.T) {
		client, _ := e.Ban(server, "cheat", Permanent)
		out, events := e.MergeClientStatus(server, client)
		assert.False(t, out.IsBanned)
		assert.Empty(t, out.BanReason)
		assert.Empty(t, events)
	})

	t.Run("auto ban reason with forged expiry ignored", func(t *testing.T) {
		client, _ := e.Ban(server, ReasonAutoclicker, 30*24*time.Hour)
		out, _ := e.MergeClientStatus(server, client)
		assert.False(t, out.IsBanned)

		client, _ = e.Ban(server, ReasonAutoclicker, Permanent)
		out, _ = e.MergeClientStatus(server, client)
		assert.False(t, out.IsBanned)
	})
}

func TestSummaryPrecedence(t *testing.T) {
	st := domain.AccountStatus{IsBanned: true, BanReason: "cheat", IsFrozen: true, FreezeReason: "check", Warnings: 1}
	assert.Contains(t, Summary(st, start), "banned")

	st.IsBanned = false
	assert.Contains(t, Summary(st, start), "frozen")

	st.IsFrozen = false
	assert.Contains(t, Summary(st, start), "1 warning")

	assert.Empty(t, Summary(domain.AccountStatus{}, start))
}
