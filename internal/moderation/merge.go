package moderation

import (
	"time"

	"super_clicker/internal/domain"
)

// MergeClientStatus folds a status reported by an untrusted client into the
// stored one. The client may add restrictions its own heuristics raised
// (system warnings that extend the stored history, a detector auto ban) but can never
// lift or shorten what the server holds.
func (e *Engine) MergeClientStatus(server, client domain.AccountStatus) (domain.AccountStatus, []Event) {
	now := e.now()
	out, events := Reconcile(server, now)

	if extendsHistory(out.WarningHistory, client.WarningHistory) {
		added := 0
		for _, w := range client.WarningHistory[len(out.WarningHistory):] {
			if w.IssuedBy != domain.IssuedBySystem {
				continue
			}
			out.WarningHistory = append(out.WarningHistory, w)
			ts := w.Timestamp
			out.LastWarning = &ts
			added++
			events = append(events, Event{Kind: EventWarned, Reason: w.Reason, Warnings: len(out.WarningHistory), At: now})
		}
		out.Warnings = len(out.WarningHistory)
		if added > 0 {
			var escalation []Event
			out, escalation = e.escalate(out, now)
			events = append(events, escalation...)
		}
	}

	if e.isClientAutoBan(client, now) && !IsActivelyBanned(out, now) {
		out.IsBanned = true
		out.BanReason = client.BanReason
		out.BanExpires = client.Clone().BanExpires
		events = append(events, Event{Kind: EventAutoBanned, Reason: out.BanReason, Expires: out.BanExpires, At: now})
	}

	return out, events
}

// isClientAutoBan reports whether client carries a ban the client's own
// detector could have raised. Anything else is a stale copy of a server ban.
func (e *Engine) isClientAutoBan(client domain.AccountStatus, now time.Time) bool {
	if !IsActivelyBanned(client, now) {
		return false
	}
	switch client.BanReason {
	case ReasonAutoclicker, ReasonCoinsImplausible, ReasonClickPowerImplausible:
	default:
		return false
	}
	if e.cfg.AutoBanDuration == Permanent {
		return true
	}
	return client.BanExpires != nil && !client.BanExpires.After(now.Add(e.cfg.AutoBanDuration))
}

func extendsHistory(stored, incoming []domain.Warning) bool {
	if len(incoming) <= len(stored) {
		return false
	}
	for i := range stored {
		if stored[i].ID != incoming[i].ID {
			return false
		}
	}
	return true
}
