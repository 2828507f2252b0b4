// Package metrics holds the Prometheus collectors of the moderation server.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	// ModerationActions counts applied moderation actions by source
	// (admin_api, bot, client_merge, server_check, expiry).
	ModerationActions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "moderation_actions_total",
			Help: "Moderation actions applied to player accounts",
		},
		[]string{"action", "source"},
	)
	ModerationPushFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "moderation_push_failures_total",
			Help: "Moderation changes that could not be committed to the store",
		},
		[]string{"action"},
	)
	PlayerSaves = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "player_saves_total",
			Help: "Player record saves by outcome",
		},
		[]string{"result"},
	)
	StatusPushes = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "account_status_pushes_total",
			Help: "Account status frames sent over websocket",
		},
	)
	WSConnections = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "status_ws_connections",
			Help: "Open account status websocket connections",
		},
	)
)

func init() {
	prometheus.MustRegister(ModerationActions)
	prometheus.MustRegister(ModerationPushFailures)
	prometheus.MustRegister(PlayerSaves)
	prometheus.MustRegister(StatusPushes)
	prometheus.MustRegister(WSConnections)
}
