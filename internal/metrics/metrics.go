package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics stores Prometheus collectors used across the service.
type Metrics struct {
	SwipesTotal     *prometheus.CounterVec
	MatchesCreated  prometheus.Counter
	MessagesSent    *prometheus.CounterVec
	EventsDropped   *prometheus.CounterVec
	LiveConnections prometheus.Gauge
	PushesSent      *prometheus.CounterVec
}

var (
	regOnce         sync.Once
	metricsInstance *Metrics
)

// Registry builds and registers the metrics singleton with optional namespace.
func Registry(namespace string) *Metrics {
	regOnce.Do(func() {
		metricsInstance = &Metrics{
			SwipesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "swipes_total",
				Help:      "Total swipes recorded by action.",
			}, []string{"action"}),
			MatchesCreated: prometheus.NewCounter(prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "matches_created_total",
				Help:      "Total matches created.",
			}),
			MessagesSent: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "messages_sent_total",
				Help:      "Total messages stored by type.",
			}, []string{"type"}),
			EventsDropped: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "realtime_events_dropped_total",
				Help:      "Events discarded because a connection's send buffer was full.",
			}, []string{"event"}),
			LiveConnections: prometheus.NewGauge(prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "live_connections",
				Help:      "Currently open websocket connections.",
			}),
			PushesSent: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "pushes_sent_total",
				Help:      "Push notifications dispatched by outcome.",
			}, []string{"status"}),
		}

		prometheus.MustRegister(
			metricsInstance.SwipesTotal,
			metricsInstance.MatchesCreated,
			metricsInstance.MessagesSent,
			metricsInstance.EventsDropped,
			metricsInstance.LiveConnections,
			metricsInstance.PushesSent,
		)
	})
	return metricsInstance
}
