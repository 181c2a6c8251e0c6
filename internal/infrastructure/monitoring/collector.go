package monitoring

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Collector exposes the service's Prometheus metrics. A nil Collector is
// safe to call, so tests can pass one without a registry.
type Collector struct {
	wsConnections prometheus.Gauge
	roomsActive   prometheus.Gauge

	gatewayEvents  *prometheus.CounterVec
	playerActions  *prometheus.CounterVec
	chatMessages   prometheus.Counter
	roomsCreated   prometheus.Counter
	roomsClosed    prometheus.Counter
	httpDuration   *prometheus.HistogramVec
}

func NewCollector() *Collector {
	return &Collector{
		wsConnections: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "cinesync_ws_connections",
			Help: "Current number of open websocket connections",
		}),

		roomsActive: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "cinesync_rooms_active",
			Help: "Current number of active rooms",
		}),

		gatewayEvents: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "cinesync_gateway_events_total",
			Help: "Inbound websocket events by type",
		}, []string{"event"}),

		playerActions: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "cinesync_player_actions_total",
			Help: "Applied player state changes by action",
		}, []string{"action"}),

		chatMessages: promauto.NewCounter(prometheus.CounterOpts{
			Name: "cinesync_chat_messages_total",
			Help: "Chat messages appended to room logs",
		}),

		roomsCreated: promauto.NewCounter(prometheus.CounterOpts{
			Name: "cinesync_rooms_created_total",
			Help: "Rooms created since start",
		}),

		roomsClosed: promauto.NewCounter(prometheus.CounterOpts{
			Name: "cinesync_rooms_closed_total",
			Help: "Rooms closed by their host since start",
		}),

		httpDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "cinesync_http_request_duration_seconds",
			Help:    "HTTP request latency by method and route",
			Buckets: []float64{0.005, 0.01, 0.05, 0.1, 0.5, 1, 2, 5},
		}, []string{"method", "route", "status"}),
	}
}

func (c *Collector) WSConnected() {
	if c == nil {
		return
	}
	c.wsConnections.Inc()
}

func (c *Collector) WSDisconnected() {
	if c == nil {
		return
	}
	c.wsConnections.Dec()
}

func (c *Collector) GatewayEvent(event string) {
	if c == nil {
		return
	}
	c.gatewayEvents.WithLabelValues(event).Inc()
}

func (c *Collector) PlayerAction(action string) {
	if c == nil {
		return
	}
	c.playerActions.WithLabelValues(action).Inc()
}

func (c *Collector) ChatMessage() {
	if c == nil {
		return
	}
	c.chatMessages.Inc()
}

func (c *Collector) RoomCreated() {
	if c == nil {
		return
	}
	c.roomsCreated.Inc()
	c.roomsActive.Inc()
}

func (c *Collector) RoomClosed() {
	if c == nil {
		return
	}
	c.roomsClosed.Inc()
	c.roomsActive.Dec()
}

func (c *Collector) ObserveHTTPRequest(method, route, status string, seconds float64) {
	if c == nil {
		return
	}
	c.httpDuration.WithLabelValues(method, route, status).Observe(seconds)
}
