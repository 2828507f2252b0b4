// Package session owns one player's record for the lifetime of a game session.
//
// Every mutation runs under the session mutex, so the reconcile timer, clicks
// and status pushes never interleave. Writes to the store happen outside it,
// on a saver goroutine. Player actions pass the moderation gate before any of
// their own effects. This enforcement is advisory: the record lives on the
// player's machine and the server re-checks everything it is sent.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"time"

	"super_clicker/internal/domain"
	"super_clicker/internal/logger"
	"super_clicker/internal/moderation"
	"super_clicker/internal/store"
)

var ErrInsufficientFunds = errors.New("insufficient coins")

// saveRetryInterval is how often the saver retries a failed write.
const saveRetryInterval = 5 * time.Second

// UI receives user-facing notifications. Callbacks run with the session
// locked and must not call back into the Session.
type UI interface {
	Notify(message string)
	RefreshAccountStatusView(status domain.AccountStatus)
}

type nopUI struct{}

func (nopUI) Notify(string)                                 {}
func (nopUI) RefreshAccountStatusView(domain.AccountStatus) {}

type Options struct {
	Engine      *moderation.Engine
	Detector    *moderation.Detector
	UI          UI
	OfflineCap  time.Duration
	OfflineRate float64
}

type Session struct {
	mu    sync.Mutex
	rec   *domain.PlayerRecord
	dirty bool

	// saveMu orders writes, so an older snapshot never lands after a newer one.
	saveMu sync.Mutex
	saveCh chan struct{}

	store    store.Store
	ui       UI
	engine   *moderation.Engine
	detector *moderation.Detector
	offline  struct {
		cap  time.Duration
		rate float64
	}
	log *slog.Logger

	stopMu sync.Mutex
	stops  []func()
}

// ClickResult describes a credited click.
type ClickResult struct {
	Strength  int64
	Coins     int64
	Level     int
	LeveledUp bool
}

// Load fetches the player's record, creating a fresh one when the store has
// none, reconciles expired restrictions and credits offline earnings.
func Load(ctx context.Context, st store.Store, userID int64, username string, opts Options) (*Session, error) {
	if opts.Engine == nil {
		opts.Engine = moderation.NewEngine(moderation.DefaultConfig())
	}
	if opts.Detector == nil {
		opts.Detector = moderation.NewDetector(moderation.DefaultThresholds())
	}
	if opts.UI == nil {
		opts.UI = nopUI{}
	}

	s := &Session{
		store:    st,
		ui:       opts.UI,
		engine:   opts.Engine,
		detector: opts.Detector,
		log:      logger.Component("session").With("user_id", userID),
		saveCh:   make(chan struct{}, 1),
	}
	s.offline.cap = opts.OfflineCap
	s.offline.rate = opts.OfflineRate

	now := s.engine.Now()
	rec, err := st.Fetch(ctx, userID)
	switch {
	case errors.Is(err, store.ErrNotFound):
		rec = domain.NewPlayerRecord(userID, username, now)
		s.log.Info("new player record")
	case err != nil:
		return nil, fmt.Errorf("load player %d: %w", userID, err)
	}
	if rec.Username == "" {
		rec.Username = username
	}

	s.mu.Lock()
	s.rec = rec
	s.reconcileLocked(now)
	if earned := s.offlineEarningsLocked(now); earned > 0 {
		s.rec.Coins += earned
		s.ui.Notify(fmt.Sprintf("Offline earnings: +%d coins", earned))
	}
	s.rec.LastPlayed = now
	s.persistLocked()
	s.ui.RefreshAccountStatusView(s.rec.AccountStatus.Clone())
	s.mu.Unlock()

	_ = s.Flush(ctx)
	s.startLoop(saveRetryInterval, s.saveCh, func(ctx context.Context) { _ = s.Flush(ctx) })
	return s, nil
}

func (s *Session) offlineEarningsLocked(now time.Time) int64 {
	st := s.rec.AccountStatus
	if moderation.IsActivelyBanned(st, now) || moderation.IsActivelyFrozen(st, now) {
		return 0
	}
	up, ok := s.rec.Upgrades[domain.UpgradeOfflineEarnings]
	if !ok || up.Level <= 0 || s.rec.LastPlayed.IsZero() {
		return 0
	}
	elapsed := now.Sub(s.rec.LastPlayed)
	if elapsed <= 0 {
		return 0
	}
	if s.offline.cap > 0 && elapsed > s.offline.cap {
		elapsed = s.offline.cap
	}
	return int64(math.Floor(elapsed.Seconds() * s.offline.rate * float64(up.Level)))
}

// Click is the primary player action. The click is timed at arrival, before
// waiting for the session.
func (s *Session) Click(ctx context.Context) (ClickResult, error) {
	now := s.engine.Now()

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.gateLocked(now); err != nil {
		return ClickResult{}, err
	}

	stats, verdict := s.detector.ObserveClick(s.rec.Stats, now)
	s.rec.Stats = stats
	if !verdict.AutoBan {
		verdict = s.detector.ObserveState(s.rec.Coins, s.rec.Level, s.rec.ClickPower)
	}
	if verdict.AutoBan {
		s.autoBanLocked(verdict.Reason)
		return ClickResult{}, &moderation.DeniedError{Reason: moderation.ReasonBanned}
	}

	strength := s.clickStrengthLocked(now)
	s.rec.Coins += strength
	s.rec.TotalClicks++
	leveled := s.addXPLocked(1)
	s.rec.LastPlayed = now
	s.persistLocked()

	return ClickResult{
		Strength:  strength,
		Coins:     s.rec.Coins,
		Level:     s.rec.Level,
		LeveledUp: leveled,
	}, nil
}

func (s *Session) clickStrengthLocked(now time.Time) int64 {
	strength := s.rec.ClickPower * s.rec.ClickMultiplier
	for _, b := range s.rec.Boosters {
		if b.Active(now) && b.Multiplier > 0 {
			strength *= b.Multiplier
		}
	}
	return strength
}

func (s *Session) addXPLocked(n int64) bool {
	s.rec.XP += n
	leveled := false
	for s.rec.XPNeeded > 0 && s.rec.XP >= s.rec.XPNeeded {
		s.rec.XP -= s.rec.XPNeeded
		s.rec.Level++
		s.rec.XPNeeded = int64(float64(s.rec.XPNeeded) * 1.5)
		leveled = true
	}
	if leveled {
		s.ui.Notify(fmt.Sprintf("Level up! Now level %d", s.rec.Level))
	}
	return leveled
}

// Purchase debits cost and applies the purchased effect to the record.
func (s *Session) Purchase(ctx context.Context, cost int64, apply func(*domain.PlayerRecord)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.engine.Now()
	if err := s.gateLocked(now); err != nil {
		return err
	}
	if cost < 0 || s.rec.Coins < cost {
		return ErrInsufficientFunds
	}

	s.rec.Coins -= cost
	if apply != nil {
		apply(s.rec)
	}
	s.rec.LastPlayed = now
	s.persistLocked()
	return nil
}

// ActivateBooster debits cost and multiplies click strength by multiplier for d.
func (s *Session) ActivateBooster(ctx context.Context, name string, multiplier, cost int64, d time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.engine.Now()
	if err := s.gateLocked(now); err != nil {
		return err
	}
	if cost < 0 || s.rec.Coins < cost {
		return ErrInsufficientFunds
	}
	if s.rec.Boosters == nil {
		s.rec.Boosters = map[string]domain.Booster{}
	}

	s.rec.Coins -= cost
	s.rec.Boosters[name] = domain.Booster{Multiplier: multiplier, ExpiresAt: now.Add(d)}
	s.rec.LastPlayed = now
	s.persistLocked()
	s.ui.Notify(fmt.Sprintf("Booster %s active for %s", name, d))
	return nil
}

// Warn records a system warning against the player, escalating to a ban at
// the configured limit.
func (s *Session) Warn(ctx context.Context, reason string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	st, events := s.engine.Warn(s.rec.AccountStatus, reason, domain.IssuedBySystem)
	s.applyLocked(st, events)
}

// Reconcile clears expired restrictions. It is the reconciler tick.
func (s *Session) Reconcile(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.reconcileLocked(s.engine.Now()) {
		s.persistLocked()
		s.ui.RefreshAccountStatusView(s.rec.AccountStatus.Clone())
	}
}

// ApplyRemoteStatus replaces the account status with one pushed by the server.
// Restrictions that already lapsed are cleared before it is applied.
func (s *Session) ApplyRemoteStatus(ctx context.Context, st domain.AccountStatus, events []moderation.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()

	st, expired := moderation.Reconcile(st.Clone(), s.engine.Now())
	s.applyLocked(st, append(append([]moderation.Event(nil), events...), expired...))
}

// StartReconciler runs Reconcile every interval until the returned stop
// function or Close is called.
func (s *Session) StartReconciler(interval time.Duration) (stop func()) {
	return s.startLoop(interval, nil, s.Reconcile)
}

// startLoop runs fn on every tick and on every signal from wake (which may be
// nil) until the returned stop function or Close is called.
func (s *Session) startLoop(interval time.Duration, wake <-chan struct{}, fn func(context.Context)) (stop func()) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	go func() {
		defer close(done)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				fn(ctx)
			case <-wake:
				fn(ctx)
			}
		}
	}()

	var once sync.Once
	stop = func() {
		once.Do(func() {
			cancel()
			<-done
		})
	}

	s.stopMu.Lock()
	s.stops = append(s.stops, stop)
	s.stopMu.Unlock()
	return stop
}

// Close stops the reconcilers and the saver, then writes any unsaved change.
func (s *Session) Close(ctx context.Context) {
	s.stopMu.Lock()
	stops := s.stops
	s.stops = nil
	s.stopMu.Unlock()
	for _, stop := range stops {
		stop()
	}
	_ = s.Flush(ctx)
}

// Flush writes the record if it changed since the last successful write.
// A failed write stays pending for the saver to retry.
func (s *Session) Flush(ctx context.Context) error {
	s.saveMu.Lock()
	defer s.saveMu.Unlock()

	s.mu.Lock()
	if !s.dirty {
		s.mu.Unlock()
		return nil
	}
	snap := s.rec.Clone()
	s.dirty = false
	s.mu.Unlock()

	if err := s.store.Store(ctx, snap); err != nil {
		s.mu.Lock()
		s.dirty = true
		s.mu.Unlock()
		s.log.Warn("failed to save player", "error", err)
		return err
	}
	return nil
}

// Status returns a copy of the current account status.
func (s *Session) Status() domain.AccountStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rec.AccountStatus.Clone()
}

// Record returns a copy of the whole record.
func (s *Session) Record() *domain.PlayerRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rec.Clone()
}

// Summary is the status banner text.
func (s *Session) Summary() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return moderation.Summary(s.rec.AccountStatus, s.engine.Now())
}

// SupportMessage is the text shown when a restricted player contacts support.
func (s *Session) SupportMessage() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	issue := "account frozen"
	if moderation.IsActivelyBanned(s.rec.AccountStatus, s.engine.Now()) {
		issue = "account banned"
	}
	return fmt.Sprintf("Super Clicker support\nUser ID: %d\nIssue: %s", s.rec.UserID, issue)
}

func (s *Session) gateLocked(now time.Time) error {
	if s.reconcileLocked(now) {
		s.ui.RefreshAccountStatusView(s.rec.AccountStatus.Clone())
	}
	d := moderation.CanAct(s.rec.AccountStatus, now)
	if !d.Allowed {
		s.ui.Notify("Action unavailable: " + d.Reason)
	}
	return d.Err()
}

// reconcileLocked reports whether anything expired.
func (s *Session) reconcileLocked(now time.Time) bool {
	st, events := moderation.Reconcile(s.rec.AccountStatus, now)
	if len(events) == 0 {
		return false
	}
	s.rec.AccountStatus = st
	s.notifyLocked(events)
	return true
}

func (s *Session) autoBanLocked(reason string) {
	st, events := s.engine.AutoBan(s.rec.AccountStatus, reason)
	s.log.Warn("auto ban", "reason", reason)
	s.applyLocked(st, events)
}

func (s *Session) applyLocked(st domain.AccountStatus, events []moderation.Event) {
	s.rec.AccountStatus = st
	s.notifyLocked(events)
	s.persistLocked()
	s.ui.RefreshAccountStatusView(s.rec.AccountStatus.Clone())
}

func (s *Session) notifyLocked(events []moderation.Event) {
	for _, ev := range events {
		s.ui.Notify(ev.Message())
	}
}

// persistLocked marks the record for the saver.
func (s *Session) persistLocked() {
	s.dirty = true
	select {
	case s.saveCh <- struct{}{}:
	default:
	}
}
