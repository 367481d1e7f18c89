package core

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus collectors for the detection pipeline. Each
// Engine gets its own registry so tests can build engines side by side.
type Metrics struct {
	Registry *prometheus.Registry

	EventsAppended   *prometheus.CounterVec
	EventsEvicted    prometheus.Counter
	EventStoreSize   prometheus.Gauge
	DetectionPasses  prometheus.Counter
	DetectionSkipped *prometheus.CounterVec
	ThreatsDetected  *prometheus.CounterVec
	ThreatsPublished *prometheus.CounterVec
}

// NewMetrics creates and registers all pipeline metrics on a fresh registry.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	factory := promauto.With(reg)

	return &Metrics{
		Registry: reg,
		EventsAppended: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "casbguard_events_appended_total",
			Help: "Activity events appended to the event store",
		}, []string{"action"}),
		EventsEvicted: factory.NewCounter(prometheus.CounterOpts{
			Name: "casbguard_events_evicted_total",
			Help: "Activity events dropped from the head of the full event store",
		}),
		EventStoreSize: factory.NewGauge(prometheus.GaugeOpts{
			Name: "casbguard_event_store_size",
			Help: "Current number of events held in the event store",
		}),
		DetectionPasses: factory.NewCounter(prometheus.CounterOpts{
			Name: "casbguard_detection_passes_total",
			Help: "Completed anomaly detection scans",
		}),
		DetectionSkipped: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "casbguard_detection_skipped_total",
			Help: "Login events the detector could not evaluate",
		}, []string{"reason"}),
		ThreatsDetected: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "casbguard_threats_detected_total",
			Help: "Threats raised by the anomaly detector",
		}, []string{"type"}),
		ThreatsPublished: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "casbguard_threats_published_total",
			Help: "Threats delivered to external sinks",
		}, []string{"sink", "result"}),
	}
}
