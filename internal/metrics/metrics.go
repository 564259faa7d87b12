// Package metrics exposes Prometheus instrumentation for the scan pipeline.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

const (
	metricNamespaceConstant = "vibereport"

	scansTotalNameConstant        = "scans_total"
	scansTotalHelpConstant        = "Completed scans partitioned by acquisition source and outcome."
	scanDurationNameConstant      = "scan_duration_seconds"
	scanDurationHelpConstant      = "Wall-clock scan duration partitioned by execution class."
	cacheHitsTotalNameConstant    = "scan_cache_hits_total"
	cacheHitsTotalHelpConstant    = "Scans answered from the short-lived result cache."
	fallbacksTotalNameConstant    = "scan_fallbacks_total"
	fallbacksTotalHelpConstant    = "Primary-path failures that triggered the crawl fallback."
	sourceLabelNameConstant       = "source"
	outcomeLabelNameConstant      = "outcome"
	executionClassLabelConstant   = "execution_class"
	outcomeSucceededValueConstant = "success"
	outcomeFailedValueConstant    = "failure"
)

// Recorder registers and updates the pipeline's Prometheus collectors.
type Recorder struct {
	registry     *prometheus.Registry
	scansTotal   *prometheus.CounterVec
	scanDuration *prometheus.HistogramVec
	cacheHits    prometheus.Counter
	fallbacks    prometheus.Counter
}

// NewRecorder builds a Recorder with its own registry, including the standard
// Go runtime and process collectors.
func NewRecorder() *Recorder {
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	recorder := &Recorder{
		registry: registry,
		scansTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricNamespaceConstant,
			Name:      scansTotalNameConstant,
			Help:      scansTotalHelpConstant,
		}, []string{sourceLabelNameConstant, outcomeLabelNameConstant}),
		scanDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: metricNamespaceConstant,
			Name:      scanDurationNameConstant,
			Help:      scanDurationHelpConstant,
			Buckets:   prometheus.ExponentialBuckets(0.5, 2, 10),
		}, []string{executionClassLabelConstant}),
		cacheHits: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricNamespaceConstant,
			Name:      cacheHitsTotalNameConstant,
			Help:      cacheHitsTotalHelpConstant,
		}),
		fallbacks: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricNamespaceConstant,
			Name:      fallbacksTotalNameConstant,
			Help:      fallbacksTotalHelpConstant,
		}),
	}

	registry.MustRegister(recorder.scansTotal, recorder.scanDuration, recorder.cacheHits, recorder.fallbacks)
	return recorder
}

// Registry exposes the underlying registry for HTTP handler wiring.
func (recorder *Recorder) Registry() *prometheus.Registry {
	return recorder.registry
}

// ObserveScan records one finished scan attempt.
func (recorder *Recorder) ObserveScan(source string, succeeded bool, executionClass string, duration time.Duration) {
	outcome := outcomeFailedValueConstant
	if succeeded {
		outcome = outcomeSucceededValueConstant
	}
	recorder.scansTotal.WithLabelValues(source, outcome).Inc()
	recorder.scanDuration.WithLabelValues(executionClass).Observe(duration.Seconds())
}

// RecordCacheHit counts a scan answered from the result cache.
func (recorder *Recorder) RecordCacheHit() {
	recorder.cacheHits.Inc()
}

// RecordFallback counts a primary-path failure that fell back to crawling.
func (recorder *Recorder) RecordFallback() {
	recorder.fallbacks.Inc()
}
