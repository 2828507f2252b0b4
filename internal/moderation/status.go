package moderation

import (
	"fmt"
	"time"

	"super_clicker/internal/domain"
)

// IsActivelyBanned reports whether the ban flag is set and has not lapsed at now.
func IsActivelyBanned(st domain.AccountStatus, now time.Time) bool {
	return st.IsBanned && (st.BanExpires == nil || now.Before(*st.BanExpires))
}

// IsActivelyFrozen reports whether the freeze flag is set and has not lapsed at now.
func IsActivelyFrozen(st domain.AccountStatus, now time.Time) bool {
	return st.IsFrozen && (st.FreezeExpires == nil || now.Before(*st.FreezeExpires))
}

// Summary is the one-line status banner. Ban wins over freeze, freeze over warnings.
func Summary(st domain.AccountStatus, now time.Time) string {
	switch {
	case IsActivelyBanned(st, now):
		reason := st.BanReason
		if reason == "" {
			reason = "terms of use violation"
		}
		if st.BanExpires == nil {
			return fmt.Sprintf("Account banned: %s (permanent)", reason)
		}
		return fmt.Sprintf("Account banned: %s (until %s)", reason, st.BanExpires.Format("02.01.2006"))
	case IsActivelyFrozen(st, now):
		reason := st.FreezeReason
		if reason == "" {
			reason = "suspicious activity"
		}
		if st.FreezeExpires == nil {
			return fmt.Sprintf("Account frozen: %s (permanent)", reason)
		}
		return fmt.Sprintf("Account frozen: %s (until %s)", reason, st.FreezeExpires.Format("02.01.2006"))
	case st.Warnings > 0:
		return fmt.Sprintf("You have %d warning(s). Be careful!", st.Warnings)
	default:
		return ""
	}
}
