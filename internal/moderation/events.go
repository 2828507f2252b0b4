package moderation

import (
	"fmt"
	"time"
)

type EventKind string

const (
	EventBanned        EventKind = "banned"
	EventAutoBanned    EventKind = "auto_banned"
	EventEscalated     EventKind = "escalated"
	EventUnbanned      EventKind = "unbanned"
	EventFrozen        EventKind = "frozen"
	EventUnfrozen      EventKind = "unfrozen"
	EventWarned        EventKind = "warned"
	EventBanExpired    EventKind = "ban_expired"
	EventFreezeExpired EventKind = "freeze_expired"
)

// Event describes one status transition, used for notifications, audit and push.
type Event struct {
	Kind     EventKind  `json:"kind"`
	Reason   string     `json:"reason,omitempty"`
	Expires  *time.Time `json:"expires,omitempty"`
	Warnings int        `json:"warnings,omitempty"`
	At       time.Time  `json:"at"`
}

// Message renders the toast text shown to the player.
func (e Event) Message() string {
	switch e.Kind {
	case EventBanned, EventAutoBanned, EventEscalated:
		if e.Expires == nil {
			return fmt.Sprintf("Account banned permanently: %s", e.Reason)
		}
		return fmt.Sprintf("Account banned until %s: %s", e.Expires.Format("02.01.2006 15:04"), e.Reason)
	case EventUnbanned:
		return "Account unbanned"
	case EventFrozen:
		if e.Expires == nil {
			return fmt.Sprintf("Account frozen: %s", e.Reason)
		}
		return fmt.Sprintf("Account frozen until %s: %s", e.Expires.Format("02.01.2006 15:04"), e.Reason)
	case EventUnfrozen:
		return "Account unfrozen"
	case EventWarned:
		return fmt.Sprintf("Warning issued (%d): %s", e.Warnings, e.Reason)
	case EventBanExpired:
		return "Ban expired, account unbanned"
	case EventFreezeExpired:
		return "Freeze expired, account unfrozen"
	default:
		return string(e.Kind)
	}
}
