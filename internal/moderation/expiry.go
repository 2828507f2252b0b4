package moderation

import (
	"time"

	"super_clicker/internal/domain"
)

// Reconcile clears bans and freezes whose expiry is strictly before now.
// It returns a copy of the status and one event per lapsed restriction;
// a second call with the same now returns no events.
func Reconcile(st domain.AccountStatus, now time.Time) (domain.AccountStatus, []Event) {
	out := st.Clone()
	var events []Event

	if out.IsBanned && out.BanExpires != nil && now.After(*out.BanExpires) {
		out.IsBanned = false
		out.BanReason = ""
		out.BanExpires = nil
		events = append(events, Event{Kind: EventBanExpired, At: now})
	}

	if out.IsFrozen && out.FreezeExpires != nil && now.After(*out.FreezeExpires) {
		out.IsFrozen = false
		out.FreezeReason = ""
		out.FreezeExpires = nil
		events = append(events, Event{Kind: EventFreezeExpired, At: now})
	}

	return out, events
}
