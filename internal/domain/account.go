package domain

import (
	"strconv"
	"time"
)

// IssuedBySystem marks warnings raised by the client heuristics rather than an admin.
const IssuedBySystem = "system"

// IssuedByAdmin returns the issuer tag for warnings given by an admin.
func IssuedByAdmin(adminID int64) string {
	return "admin_" + strconv.FormatInt(adminID, 10)
}

// Warning is a recorded strike. Never mutated after creation.
type Warning struct {
	ID        string    `json:"id"`
	Reason    string    `json:"reason"`
	IssuedBy  string    `json:"issuedBy"`
	Timestamp time.Time `json:"timestamp"`
}

// AccountStatus holds the ban/freeze/warning state of one player.
// A nil expiry means the ban or freeze is permanent.
type AccountStatus struct {
	IsBanned   bool       `json:"isBanned"`
	BanReason  string     `json:"banReason"`
	BanExpires *time.Time `json:"banExpires"`

	IsFrozen      bool       `json:"isFrozen"`
	FreezeReason  string     `json:"freezeReason"`
	FreezeExpires *time.Time `json:"freezeExpires"`

	Warnings       int        `json:"warnings"`
	WarningHistory []Warning  `json:"warningHistory"`
	LastWarning    *time.Time `json:"lastWarning"`
}

// Clone returns a deep copy so callers can mutate it without aliasing the history slice.
func (s AccountStatus) Clone() AccountStatus {
	out := s
	out.BanExpires = cloneTime(s.BanExpires)
	out.FreezeExpires = cloneTime(s.FreezeExpires)
	out.LastWarning = cloneTime(s.LastWarning)
	if s.WarningHistory != nil {
		out.WarningHistory = make([]Warning, len(s.WarningHistory))
		copy(out.WarningHistory, s.WarningHistory)
	}
	return out
}

// CheatStats is the per-player state of the click cadence heuristic.
// It lives only in the session process and is never persisted.
type CheatStats struct {
	LastClickTime      *time.Time `json:"lastClickTime"`
	SuspiciousActivity int        `json:"suspiciousActivity"`
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}

// TimePtr is a small helper for optional timestamps.
func TimePtr(t time.Time) *time.Time {
	return &t
}
