// Package metrics exposes Prometheus metrics for games and realtime connections.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "tictactoe"

// NewRegistry creates a Prometheus registry with Go runtime and process collectors.
func NewRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	reg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	return reg
}

// Handler returns an http.Handler that serves Prometheus metrics.
func Handler(reg *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
}

// Metrics holds the game and connection metrics. A nil *Metrics is valid and
// records nothing.
type Metrics struct {
	GamesCreated      prometheus.Counter
	GamesFinished     *prometheus.CounterVec
	Joins             *prometheus.CounterVec
	Moves             *prometheus.CounterVec
	ActiveConnections prometheus.Gauge
	EventsReceived    *prometheus.CounterVec
}

// New creates and registers the metrics on the given registry.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		GamesCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "games",
			Name:      "created_total",
			Help:      "Total number of games created.",
		}),
		GamesFinished: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "games",
			Name:      "finished_total",
			Help:      "Total number of finished games by outcome.",
		}, []string{"outcome"}),
		Joins: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "games",
			Name:      "joins_total",
			Help:      "Total number of join attempts by result.",
		}, []string{"result"}),
		Moves: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "games",
			Name:      "moves_total",
			Help:      "Total number of move attempts by result.",
		}, []string{"result"}),
		ActiveConnections: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "websocket",
			Name:      "active_connections",
			Help:      "Number of active WebSocket connections.",
		}),
		EventsReceived: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "websocket",
			Name:      "events_received_total",
			Help:      "Total number of inbound realtime events by name.",
		}, []string{"event"}),
	}

	reg.MustRegister(m.GamesCreated, m.GamesFinished, m.Joins, m.Moves, m.ActiveConnections, m.EventsReceived)
	return m
}

// RegisterActiveGames exposes the live game count reported by count.
func RegisterActiveGames(reg prometheus.Registerer, count func() int) {
	reg.MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "games",
		Name:      "active",
		Help:      "Number of games currently held in memory.",
	}, func() float64 {
		return float64(count())
	}))
}

func (m *Metrics) GameCreated() {
	if m == nil {
		return
	}
	m.GamesCreated.Inc()
}

func (m *Metrics) GameFinished(outcome string) {
	if m == nil {
		return
	}
	m.GamesFinished.WithLabelValues(outcome).Inc()
}

func (m *Metrics) JoinAttempt(result string) {
	if m == nil {
		return
	}
	m.Joins.WithLabelValues(result).Inc()
}

func (m *Metrics) MoveAttempt(result string) {
	if m == nil {
		return
	}
	m.Moves.WithLabelValues(result).Inc()
}

func (m *Metrics) ConnectionOpened() {
	if m == nil {
		return
	}
	m.ActiveConnections.Inc()
}

func (m *Metrics) ConnectionClosed() {
	if m == nil {
		return
	}
	m.ActiveConnections.Dec()
}

func (m *Metrics) EventReceived(event string) {
	if m == nil {
		return
	}
	m.EventsReceived.WithLabelValues(event).Inc()
}
