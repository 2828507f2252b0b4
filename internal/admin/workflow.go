// Package admin is the moderator side of account moderation: one loaded
// target record, moderation actions applied to it, and a push to the store.
package admin

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"super_clicker/internal/domain"
	"super_clicker/internal/logger"
	"super_clicker/internal/moderation"
	"super_clicker/internal/store"
)

var (
	// ErrNoTarget is returned by every action invoked before a successful Search.
	ErrNoTarget = errors.New("no target loaded")
	// ErrSearchInProgress rejects a Search while another is outstanding.
	ErrSearchInProgress = errors.New("search already in progress")
	// ErrNotCommitted wraps a failed push. The target keeps the attempted
	// change and Retry pushes it again.
	ErrNotCommitted = errors.New("change not committed")
)

// Result is the outcome of a committed action.
type Result struct {
	Record *domain.PlayerRecord
	Events []moderation.Event
}

// Workflow holds a single target slot. It is safe for concurrent use, but
// actions on the slot are serialised. Pushes take the user's entry in locks,
// so they interleave safely with other writers of the same store.
type Workflow struct {
	store  store.Store
	engine *moderation.Engine
	locks  *store.Locks
	log    *slog.Logger

	searching atomic.Bool

	mu     sync.Mutex
	target *domain.PlayerRecord
	// committed: the slot matches the store. edited: the slot carries an
	// admin change that was not pushed yet.
	committed bool
	edited    bool
	pending   []moderation.Event
}

func New(st store.Store, engine *moderation.Engine, locks *store.Locks) *Workflow {
	return &Workflow{
		store:  st,
		engine: engine,
		locks:  locks,
		log:    logger.Component("admin"),
	}
}

// Search fetches the user's record into the slot. On failure the slot keeps
// its previous content. Restrictions that lapsed are cleared in the slot and
// stay pending until the next push.
func (w *Workflow) Search(ctx context.Context, userID int64) (*domain.PlayerRecord, error) {
	if !w.searching.CompareAndSwap(false, true) {
		return nil, ErrSearchInProgress
	}
	defer w.searching.Store(false)

	rec, err := w.store.Fetch(ctx, userID)
	if err != nil {
		return nil, err
	}
	var events []moderation.Event
	rec.AccountStatus, events = w.engine.Reconcile(rec.AccountStatus)

	w.mu.Lock()
	defer w.mu.Unlock()
	w.target = rec
	w.committed = len(events) == 0
	w.edited = false
	w.pending = events
	return rec.Clone(), nil
}

// Target returns a copy of the loaded record, or nil.
func (w *Workflow) Target() *domain.PlayerRecord {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.target.Clone()
}

// Committed reports whether the slot matches the store as last pushed or fetched.
func (w *Workflow) Committed() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.target != nil && w.committed
}

func (w *Workflow) ApplyBan(ctx context.Context, reason string, d time.Duration) (Result, error) {
	return w.apply(ctx, "ban", func(st domain.AccountStatus) (domain.AccountStatus, []moderation.Event) {
		return w.engine.Ban(st, reason, d)
	})
}

func (w *Workflow) ApplyUnban(ctx context.Context) (Result, error) {
	return w.apply(ctx, "unban", w.engine.Unban)
}

func (w *Workflow) ApplyFreeze(ctx context.Context, reason string, d time.Duration) (Result, error) {
	return w.apply(ctx, "freeze", func(st domain.AccountStatus) (domain.AccountStatus, []moderation.Event) {
		return w.engine.Freeze(st, reason, d)
	})
}

func (w *Workflow) ApplyUnfreeze(ctx context.Context) (Result, error) {
	return w.apply(ctx, "unfreeze", w.engine.Unfreeze)
}

// ApplyWarn issues a warning on behalf of adminID. Reaching the warning limit
// bans the target in the same push.
func (w *Workflow) ApplyWarn(ctx context.Context, reason string, adminID int64) (Result, error) {
	return w.apply(ctx, "warn", func(st domain.AccountStatus) (domain.AccountStatus, []moderation.Event) {
		return w.engine.Warn(st, reason, domain.IssuedByAdmin(adminID))
	})
}

// Retry pushes an uncommitted target again. A committed target is a no-op.
func (w *Workflow) Retry(ctx context.Context) (Result, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.target == nil {
		return Result{}, ErrNoTarget
	}
	if w.committed {
		return Result{Record: w.target.Clone()}, nil
	}
	unlock := w.locks.Lock(w.target.UserID)
	defer unlock()
	w.refreshLocked(ctx)
	return w.pushLocked(ctx, "retry")
}

func (w *Workflow) apply(ctx context.Context, action string, op func(domain.AccountStatus) (domain.AccountStatus, []moderation.Event)) (Result, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.target == nil {
		return Result{}, ErrNoTarget
	}
	unlock := w.locks.Lock(w.target.UserID)
	defer unlock()
	w.refreshLocked(ctx)

	st, events := op(w.target.AccountStatus)
	w.target.AccountStatus = st
	w.committed = false
	w.edited = true
	w.pending = append(w.pending, events...)
	return w.pushLocked(ctx, action)
}

// refreshLocked rebases the slot on the stored record, so a push never rolls
// back progress or status changes made since Search. Unpushed admin changes
// are carried over. When the store cannot be read the slot is pushed as is.
func (w *Workflow) refreshLocked(ctx context.Context) {
	fresh, err := w.store.Fetch(ctx, w.target.UserID)
	if err != nil {
		w.log.Debug("refresh before push failed", "user_id", w.target.UserID, "error", err)
		return
	}
	if w.edited {
		fresh.AccountStatus = w.target.AccountStatus.Clone()
		w.target = fresh
		return
	}
	fresh.AccountStatus, w.pending = w.engine.Reconcile(fresh.AccountStatus)
	w.target = fresh
}

func (w *Workflow) pushLocked(ctx context.Context, action string) (Result, error) {
	if err := w.store.Store(ctx, w.target.Clone()); err != nil {
		w.log.Warn("push failed", "action", action, "user_id", w.target.UserID, "error", err)
		return Result{}, fmt.Errorf("%w: %w", ErrNotCommitted, err)
	}
	w.committed = true
	w.edited = false
	events := w.pending
	w.pending = nil
	w.log.Info("moderation pushed", "action", action, "user_id", w.target.UserID)
	return Result{Record: w.target.Clone(), Events: events}, nil
}
