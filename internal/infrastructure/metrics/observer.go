package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/avatarctic/land-registry-gateway/internal/core/ports"
)

// Observer exports gateway events as Prometheus metrics.
type Observer struct {
	cacheLookups     *prometheus.CounterVec
	upstreamCalls    *prometheus.CounterVec
	upstreamDuration *prometheus.HistogramVec
	bulkJobs         *prometheus.CounterVec
}

// NewObserver creates the gateway metrics and registers them with reg.
func NewObserver(reg prometheus.Registerer) (*Observer, error) {
	o := &Observer{
		cacheLookups: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "land_registry_cache_lookups_total",
				Help: "Cache lookups by operation and result",
			},
			[]string{"operation", "result"},
		),
		upstreamCalls: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "land_registry_upstream_calls_total",
				Help: "Calls dispatched to the Land Registry API by operation and outcome code",
			},
			[]string{"operation", "code"},
		),
		upstreamDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "land_registry_upstream_call_duration_seconds",
				Help:    "Latency of calls to the Land Registry API",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		bulkJobs: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "land_registry_bulk_job_observations_total",
				Help: "Bulk job states observed on submit and poll",
			},
			[]string{"status"},
		),
	}
	for _, c := range []prometheus.Collector{o.cacheLookups, o.upstreamCalls, o.upstreamDuration, o.bulkJobs} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return o, nil
}

func (o *Observer) CacheLookup(operation string, hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	o.cacheLookups.WithLabelValues(operation, result).Inc()
}

func (o *Observer) UpstreamCall(operation, code string, elapsed time.Duration) {
	o.upstreamCalls.WithLabelValues(operation, code).Inc()
	o.upstreamDuration.WithLabelValues(operation).Observe(elapsed.Seconds())
}

func (o *Observer) BulkJobObserved(status string) {
	o.bulkJobs.WithLabelValues(status).Inc()
}

var _ ports.GatewayObserver = (*Observer)(nil)
