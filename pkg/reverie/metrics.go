package reverie

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the engine's Prometheus collectors.
type Metrics struct {
	// ClusterDuration observes RefreshClusters runs by winning strategy.
	ClusterDuration *prometheus.HistogramVec
	// AssistantFallbacks counts assistant calls that fell back to local heuristics.
	AssistantFallbacks *prometheus.CounterVec
}

// NewMetrics registers the collectors with reg. A nil reg selects a
// private registry, which keeps repeated construction in tests safe.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	factory := promauto.With(reg)
	return &Metrics{
		ClusterDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "reverie_cluster_duration_seconds",
				Help:    "Duration of cluster refreshes in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"strategy"},
		),
		AssistantFallbacks: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "reverie_assistant_fallbacks_total",
				Help: "Assistant calls that fell back to the local heuristics",
			},
			[]string{"op"},
		),
	}
}
