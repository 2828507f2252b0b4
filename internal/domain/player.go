package domain

import "time"

// Upgrade keys the moderation core cares about
const (
	UpgradeClickPower      = "clickPower"
	UpgradeAutoClicker     = "autoClicker"
	UpgradeClickMultiplier = "clickMultiplier"
	UpgradeOfflineEarnings = "offlineEarnings"
)

type Upgrade struct {
	Level int   `json:"level"`
	Cost  int64 `json:"cost"`
}

type Booster struct {
	Multiplier int64     `json:"multiplier"`
	ExpiresAt  time.Time `json:"expiresAt"`
}

// Active reports whether the booster still applies at now.
func (b Booster) Active(now time.Time) bool {
	return now.Before(b.ExpiresAt)
}

// PlayerRecord is the full persisted record of one player.
type PlayerRecord struct {
	UserID   int64  `json:"userId"`
	Username string `json:"username"`

	Coins           int64 `json:"coins"`
	ClickPower      int64 `json:"clickPower"`
	ClickMultiplier int64 `json:"clickMultiplier"`
	AutoClickers    int64 `json:"autoClickers"`
	TotalClicks     int64 `json:"totalClicks"`
	Level           int   `json:"level"`
	XP              int64 `json:"xp"`
	XPNeeded        int64 `json:"xpNeeded"`

	Upgrades map[string]Upgrade `json:"upgrades,omitempty"`
	Boosters map[string]Booster `json:"boosters,omitempty"`

	LastPlayed time.Time  `json:"lastPlayed"`
	LastSaved  *time.Time `json:"lastSaved,omitempty"`

	AccountStatus AccountStatus `json:"accountStatus"`

	// Stats is process-local and never leaves the session.
	Stats CheatStats `json:"-"`
}

// NewPlayerRecord returns a fresh record with starting progress.
func NewPlayerRecord(userID int64, username string, now time.Time) *PlayerRecord {
	if username == "" {
		username = "Player"
	}
	return &PlayerRecord{
		UserID:          userID,
		Username:        username,
		ClickPower:      1,
		ClickMultiplier: 1,
		Level:           1,
		XPNeeded:        100,
		Upgrades: map[string]Upgrade{
			UpgradeClickPower:      {Level: 1, Cost: 50},
			UpgradeAutoClicker:     {Level: 0, Cost: 100},
			UpgradeClickMultiplier: {Level: 0, Cost: 500},
			UpgradeOfflineEarnings: {Level: 0, Cost: 1000},
		},
		Boosters:   map[string]Booster{},
		LastPlayed: now,
	}
}

// Clone returns a deep copy of the record.
func (r *PlayerRecord) Clone() *PlayerRecord {
	if r == nil {
		return nil
	}
	out := *r
	out.AccountStatus = r.AccountStatus.Clone()
	out.LastSaved = cloneTime(r.LastSaved)
	out.Stats.LastClickTime = cloneTime(r.Stats.LastClickTime)
	if r.Upgrades != nil {
		out.Upgrades = make(map[string]Upgrade, len(r.Upgrades))
		for k, v := range r.Upgrades {
			out.Upgrades[k] = v
		}
	}
	if r.Boosters != nil {
		out.Boosters = make(map[string]Booster, len(r.Boosters))
		for k, v := range r.Boosters {
			out.Boosters[k] = v
		}
	}
	return &out
}
