package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Application metrics, registered on the default registry at init time.
var (
	// SongRequestsCreated counts committed enqueue operations.
	SongRequestsCreated = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "guubot_song_requests_created_total",
			Help: "Total number of song requests added to a queue",
		},
	)

	// ChatCommandsTotal counts dispatched chat commands by canonical name.
	ChatCommandsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "guubot_chat_commands_total",
			Help: "Total number of handled chat commands",
		},
		[]string{"command"},
	)

	// EventsPublishedTotal counts domain events by topic.
	EventsPublishedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "guubot_events_published_total",
			Help: "Total number of domain events published on the bus",
		},
		[]string{"topic"},
	)

	// WidgetConnections tracks currently open overlay connections per channel.
	WidgetConnections = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "guubot_widget_connections",
			Help: "Open overlay websocket connections",
		},
		[]string{"channel_id"},
	)

	// HealthStatus reports dependency health (1=ok, 0=down).
	HealthStatus = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "guubot_health_status",
			Help: "Health status of dependencies (1=ok, 0=down)",
		},
		[]string{"dependency"},
	)
)
