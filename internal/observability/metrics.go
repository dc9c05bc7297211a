package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	PushEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "sentinel",
		Name:      "push_events_total",
		Help:      "Push events received, by topic and handling result",
	}, []string{"topic", "result"})

	PushConnected = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "sentinel",
		Name:      "push_connected",
		Help:      "1 while the push transport holds a live connection",
	})

	AlertMerges = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "sentinel",
		Name:      "alert_merges_total",
		Help:      "Merges into the canonical alert collection",
	}, []string{"source", "result"})

	UnseenAlerts = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "sentinel",
		Name:      "unseen_alerts",
		Help:      "Alerts in PENDING state in the canonical collection",
	})

	Actions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "sentinel",
		Name:      "actions_total",
		Help:      "User actions dispatched to the backend",
	}, []string{"action", "result"})

	HydrationDivergence = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "sentinel",
		Name:      "hydration_divergence",
		Help:      "Alerts on which the backend unseen list and the derived unseen projection disagreed at the last hydration",
	})

	BackendRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "sentinel",
		Name:      "backend_request_duration_seconds",
		Help:      "Duration of calls to the backend REST API",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "status"})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "sentinel",
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request duration",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	WSConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "sentinel",
		Name:      "ws_connections",
		Help:      "Number of active browser WebSocket connections",
	})
)
