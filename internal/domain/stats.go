package domain

// LeaderboardEntry is one row of the public leaderboard.
type LeaderboardEntry struct {
	UserID      int64  `json:"user_id"`
	Username    string `json:"username"`
	Coins       int64  `json:"coins"`
	Level       int    `json:"level"`
	TotalClicks int64  `json:"totalClicks"`
}

// GameStats aggregates all player records.
type GameStats struct {
	TotalUsers  int64 `json:"total_users"`
	ActiveUsers int64 `json:"active_users"`
	BannedUsers int64 `json:"banned_users"`
	FrozenUsers int64 `json:"frozen_users"`
	TotalCoins  int64 `json:"total_coins"`
	TotalClicks int64 `json:"total_clicks"`
}
