package moderation

import (
	"time"

	"super_clicker/internal/domain"

	"github.com/google/uuid"
)

// Permanent is the ban/freeze duration meaning "no expiry".
const Permanent time.Duration = 0

// ReasonWarningLimit is the ban reason used by warning escalation.
const ReasonWarningLimit = "warning limit reached"

// Config holds the moderation tunables.
type Config struct {
	MaxWarnings           int
	EscalationBanDuration time.Duration
	AutoBanDuration       time.Duration
}

func DefaultConfig() Config {
	return Config{
		MaxWarnings:           2,
		EscalationBanDuration: 7 * 24 * time.Hour,
		AutoBanDuration:       7 * 24 * time.Hour,
	}
}

// Engine applies moderation operations to an AccountStatus. Every operation
// returns a new status and the events to notify; the input is never modified.
type Engine struct {
	cfg   Config
	now   func() time.Time
	newID func() string
}

type Option func(*Engine)

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// WithIDGenerator overrides the warning id source.
func WithIDGenerator(gen func() string) Option {
	return func(e *Engine) { e.newID = gen }
}

func NewEngine(cfg Config, opts ...Option) *Engine {
	if cfg.MaxWarnings <= 0 {
		cfg.MaxWarnings = DefaultConfig().MaxWarnings
	}
	e := &Engine{
		cfg:   cfg,
		now:   time.Now,
		newID: uuid.NewString,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *Engine) Config() Config {
	return e.cfg
}

func (e *Engine) Now() time.Time {
	return e.now()
}

// Reconcile runs the expiry resolver at the engine clock.
func (e *Engine) Reconcile(st domain.AccountStatus) (domain.AccountStatus, []Event) {
	return Reconcile(st, e.now())
}

// Ban sets the ban fields. A non-positive duration bans permanently.
func (e *Engine) Ban(st domain.AccountStatus, reason string, d time.Duration) (domain.AccountStatus, []Event) {
	now := e.now()
	out := st.Clone()
	out.IsBanned = true
	out.BanReason = reason
	out.BanExpires = expiry(now, d)
	return out, []Event{{Kind: EventBanned, Reason: reason, Expires: out.BanExpires, At: now}}
}

func (e *Engine) Unban(st domain.AccountStatus) (domain.AccountStatus, []Event) {
	out := st.Clone()
	out.IsBanned = false
	out.BanReason = ""
	out.BanExpires = nil
	return out, []Event{{Kind: EventUnbanned, At: e.now()}}
}

// Freeze sets the freeze fields. A non-positive duration freezes permanently.
func (e *Engine) Freeze(st domain.AccountStatus, reason string, d time.Duration) (domain.AccountStatus, []Event) {
	now := e.now()
	out := st.Clone()
	out.IsFrozen = true
	out.FreezeReason = reason
	out.FreezeExpires = expiry(now, d)
	return out, []Event{{Kind: EventFrozen, Reason: reason, Expires: out.FreezeExpires, At: now}}
}

func (e *Engine) Unfreeze(st domain.AccountStatus) (domain.AccountStatus, []Event) {
	out := st.Clone()
	out.IsFrozen = false
	out.FreezeReason = ""
	out.FreezeExpires = nil
	return out, []Event{{Kind: EventUnfrozen, At: e.now()}}
}

// Warn appends a warning and, when the count reaches MaxWarnings, bans the
// account in the same result.
func (e *Engine) Warn(st domain.AccountStatus, reason, issuedBy string) (domain.AccountStatus, []Event) {
	now := e.now()
	if issuedBy == "" {
		issuedBy = domain.IssuedBySystem
	}
	out := st.Clone()
	out.WarningHistory = append(out.WarningHistory, domain.Warning{
		ID:        e.newID(),
		Reason:    reason,
		IssuedBy:  issuedBy,
		Timestamp: now,
	})
	out.Warnings = len(out.WarningHistory)
	out.LastWarning = domain.TimePtr(now)

	events := []Event{{Kind: EventWarned, Reason: reason, Warnings: out.Warnings, At: now}}
	out, escalation := e.escalate(out, now)
	return out, append(events, escalation...)
}

// AutoBan bans for the configured auto-ban duration on behalf of the system.
// An existing ban that already lasts longer is kept.
func (e *Engine) AutoBan(st domain.AccountStatus, reason string) (domain.AccountStatus, []Event) {
	now := e.now()
	out, changed := extendBan(st.Clone(), reason, now, e.cfg.AutoBanDuration)
	if !changed {
		return out, nil
	}
	return out, []Event{{Kind: EventAutoBanned, Reason: reason, Expires: out.BanExpires, At: now}}
}

// Enforce applies the escalation rule to a status that was produced elsewhere,
// for example a record pushed by an admin tool.
func (e *Engine) Enforce(st domain.AccountStatus) (domain.AccountStatus, []Event) {
	return e.escalate(st.Clone(), e.now())
}

func (e *Engine) escalate(st domain.AccountStatus, now time.Time) (domain.AccountStatus, []Event) {
	st.Warnings = len(st.WarningHistory)
	if st.Warnings < e.cfg.MaxWarnings {
		return st, nil
	}
	out, changed := extendBan(st, ReasonWarningLimit, now, e.cfg.EscalationBanDuration)
	if !changed {
		return out, nil
	}
	return out, []Event{{Kind: EventEscalated, Reason: ReasonWarningLimit, Expires: out.BanExpires, Warnings: out.Warnings, At: now}}
}

// extendBan bans until now+d unless an active ban already ends later or never.
func extendBan(st domain.AccountStatus, reason string, now time.Time, d time.Duration) (domain.AccountStatus, bool) {
	until := expiry(now, d)
	if IsActivelyBanned(st, now) {
		if st.BanExpires == nil {
			return st, false
		}
		if until != nil && !until.After(*st.BanExpires) {
			return st, false
		}
	}
	st.IsBanned = true
	st.BanReason = reason
	st.BanExpires = until
	return st, true
}

func expiry(now time.Time, d time.Duration) *time.Time {
	if d <= Permanent {
		return nil
	}
	return domain.TimePtr(now.Add(d))
}
