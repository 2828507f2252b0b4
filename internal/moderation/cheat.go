package moderation

import (
	"time"

	"super_clicker/internal/domain"
)

// Verdict reasons
const (
	ReasonAutoclicker           = "autoclicker"
	ReasonCoinsImplausible      = "coins implausible"
	ReasonClickPowerImplausible = "clickPower implausible"
)

// Thresholds are the tunables of the two cheat heuristics.
type Thresholds struct {
	// Clicks closer than this raise the suspicion counter.
	MinClickInterval time.Duration
	// Clicks further apart than this lower it by one, never below zero.
	DecayInterval time.Duration
	// The counter must exceed this to trigger a ban.
	MaxSuspicious int

	// More coins than CoinsCeiling below level CoinsMinLevel is implausible.
	CoinsCeiling  int64
	CoinsMinLevel int
	MaxClickPower int64
}

func DefaultThresholds() Thresholds {
	return Thresholds{
		MinClickInterval: 50 * time.Millisecond,
		DecayInterval:    time.Second,
		MaxSuspicious:    10,
		CoinsCeiling:     1_000_000,
		CoinsMinLevel:    10,
		MaxClickPower:    1000,
	}
}

// Verdict is the outcome of one observation. The zero value means no action.
type Verdict struct {
	AutoBan bool
	Reason  string
}

func autoBan(reason string) Verdict {
	return Verdict{AutoBan: true, Reason: reason}
}

// Detector evaluates click cadence and resource plausibility.
// It is stateless; per-player state travels in domain.CheatStats.
type Detector struct {
	t Thresholds
}

func NewDetector(t Thresholds) *Detector {
	return &Detector{t: t}
}

func (d *Detector) Thresholds() Thresholds {
	return d.t
}

// ObserveClick updates the cadence counter for a click at now.
func (d *Detector) ObserveClick(stats domain.CheatStats, now time.Time) (domain.CheatStats, Verdict) {
	out := stats
	if stats.LastClickTime != nil {
		gap := now.Sub(*stats.LastClickTime)
		switch {
		case gap < d.t.MinClickInterval:
			out.SuspiciousActivity++
		case gap > d.t.DecayInterval:
			if out.SuspiciousActivity > 0 {
				out.SuspiciousActivity--
			}
		}
	}
	out.LastClickTime = domain.TimePtr(now)

	if out.SuspiciousActivity > d.t.MaxSuspicious {
		return out, autoBan(ReasonAutoclicker)
	}
	return out, Verdict{}
}

// ObserveState checks resource totals against what a legitimate player can reach.
func (d *Detector) ObserveState(coins int64, level int, clickPower int64) Verdict {
	if coins > d.t.CoinsCeiling && level < d.t.CoinsMinLevel {
		return autoBan(ReasonCoinsImplausible)
	}
	if clickPower > d.t.MaxClickPower {
		return autoBan(ReasonClickPowerImplausible)
	}
	return Verdict{}
}
