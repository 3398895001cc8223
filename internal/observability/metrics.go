package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics groups all Prometheus instruments used by the service.
type Metrics struct {
	ActiveSessions      prometheus.Gauge
	SessionEvents       *prometheus.CounterVec
	WSMessages          *prometheus.CounterVec
	BridgeNotifications *prometheus.CounterVec
	BridgeNotifyLatency *prometheus.HistogramVec

	notify *notifyWindow
}

// NewMetrics registers instruments on the default registry. The namespace
// must be unique per process.
func NewMetrics(namespace string) *Metrics {
	return NewMetricsWith(prometheus.DefaultRegisterer, namespace)
}

func NewMetricsWith(reg prometheus.Registerer, namespace string) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		ActiveSessions: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_sessions",
			Help:      "Number of voice sessions currently registered.",
		}),
		SessionEvents: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "session_events_total",
			Help:      "Session lifecycle events by type.",
		}, []string{"event"}),
		WSMessages: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ws_messages_total",
			Help:      "Media stream websocket frames by direction and event.",
		}, []string{"direction", "type"}),
		BridgeNotifications: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "bridge_notifications_total",
			Help:      "Bridge lifecycle notifications by event and outcome.",
		}, []string{"event", "outcome"}),
		BridgeNotifyLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "bridge_notify_latency_ms",
			Help:      "Bridge notification round trip in milliseconds.",
			Buckets:   []float64{5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000},
		}, []string{"event"}),
		notify: newNotifyWindow(256),
	}
}

// ObserveBridgeNotification satisfies bridge.Recorder.
func (m *Metrics) ObserveBridgeNotification(event, outcome string, latency time.Duration) {
	if m == nil {
		return
	}
	ms := float64(latency.Microseconds()) / 1000
	m.BridgeNotifications.WithLabelValues(event, outcome).Inc()
	m.BridgeNotifyLatency.WithLabelValues(event).Observe(ms)
	m.notify.Observe(event, outcome, ms)
}

func (m *Metrics) SnapshotBridgeNotifications() NotifySnapshot {
	if m == nil || m.notify == nil {
		return NotifySnapshot{GeneratedAt: time.Now().UTC(), Events: []NotifyEventStats{}}
	}
	return m.notify.Snapshot()
}

func (m *Metrics) ResetBridgeNotifications() {
	if m == nil || m.notify == nil {
		return
	}
	m.notify.Reset()
}

func MetricsHandler() http.Handler {
	return promhttp.Handler()
}
