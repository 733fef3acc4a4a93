package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus metrics for a pipeline run.
type Metrics struct {
	PersonsProcessed         prometheus.Counter
	PersonFailures           *prometheus.CounterVec
	MetricRecordsEmitted     prometheus.Counter
	ExclusionsRecorded       prometheus.Counter
	DefaultDelegateFallbacks prometheus.Counter
	CacheHits                prometheus.Counter
}

// New creates and registers all pipeline metrics.
func New() *Metrics {
	return &Metrics{
		PersonsProcessed: promauto.NewCounter(prometheus.CounterOpts{
			Name: "caseline_persons_processed_total",
			Help: "Total number of persons processed successfully",
		}),
		PersonFailures: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "caseline_person_failures_total",
			Help: "Total number of per-person pipeline failures by stage",
		}, []string{"stage"}),
		MetricRecordsEmitted: promauto.NewCounter(prometheus.CounterOpts{
			Name: "caseline_metric_records_emitted_total",
			Help: "Total number of metric records emitted",
		}),
		ExclusionsRecorded: promauto.NewCounter(prometheus.CounterOpts{
			Name: "caseline_exclusions_recorded_total",
			Help: "Total number of spans and events excluded by inclusion predicates",
		}),
		DefaultDelegateFallbacks: promauto.NewCounter(prometheus.CounterOpts{
			Name: "caseline_default_delegate_fallbacks_total",
			Help: "Total number of persons processed under the default delegate because their jurisdiction code was unrecognized",
		}),
		CacheHits: promauto.NewCounter(prometheus.CounterOpts{
			Name: "caseline_result_cache_hits_total",
			Help: "Total number of person results served from the result cache",
		}),
	}
}
