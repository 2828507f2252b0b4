package admin

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"super_clicker/internal/moderation"
)

// Reason presets offered by the moderation dialogs.
var (
	BanReasons    = []string{"Cheating", "Abuse", "Fraud", "Spam", "Other"}
	FreezeReasons = []string{"Suspicious activity", "Cheat review", "Maintenance", "Other"}
	WarnReasons   = []string{"Chat rules violation", "Disrespectful behaviour", "Suspected cheating", "Spam", "Other"}
)

var durationPresets = map[string]time.Duration{
	"1h":        time.Hour,
	"1d":        24 * time.Hour,
	"1w":        7 * 24 * time.Hour,
	"1m":        30 * 24 * time.Hour,
	"0":         moderation.Permanent,
	"forever":   moderation.Permanent,
	"permanent": moderation.Permanent,
	"":          moderation.Permanent,
}

// DurationPresets lists the preset keys in dialog order.
var DurationPresets = []string{"1h", "1d", "1w", "1m", "forever"}

// ParseDuration accepts a preset (1h, 1d, 1w, 1m, 0/forever), a millisecond
// count or a Go duration string. Zero means permanent.
func ParseDuration(s string) (time.Duration, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if d, ok := durationPresets[s]; ok {
		return d, nil
	}
	if ms, err := strconv.ParseInt(s, 10, 64); err == nil {
		if ms < 0 {
			return 0, fmt.Errorf("negative duration %q", s)
		}
		return time.Duration(ms) * time.Millisecond, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("invalid duration %q", s)
	}
	if d < 0 {
		return 0, fmt.Errorf("negative duration %q", s)
	}
	return d, nil
}

// ComposeReason joins a preset reason and optional free-text detail.
func ComposeReason(reason, detail string) string {
	reason = strings.TrimSpace(reason)
	detail = strings.TrimSpace(detail)
	switch {
	case detail == "":
		return reason
	case reason == "":
		return detail
	default:
		return reason + ": " + detail
	}
}
