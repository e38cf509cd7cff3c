// Package metrics records run statistics in a Prometheus registry.
//
// A run is a batch job, so nothing is served: the registry is written to a
// node_exporter textfile at the end of the run. A nil *Recorder discards
// everything, which lets the pipeline run without metrics.
package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "narr"

// Stage names used for the stage duration gauge.
const (
	StageNormalize = "normalize"
	StageCluster   = "cluster"
	StageScore     = "score"
	StageEvidence  = "evidence"
	StageTotal     = "total"
)

// Recorder holds the gauges for one process.
type Recorder struct {
	registry *prometheus.Registry

	eventsIngested    prometheus.Gauge
	eventsDeduped     prometheus.Gauge
	baselineEvents    prometheus.Gauge
	candidates        prometheus.Gauge
	narrativesRanked  prometheus.Gauge
	topComposite      prometheus.Gauge
	lastRunTimestamp  prometheus.Gauge
	stageDuration     *prometheus.GaugeVec
	connectorFailures *prometheus.GaugeVec
}

// New creates a Recorder with its own registry.
func New() *Recorder {
	r := &Recorder{registry: prometheus.NewRegistry()}

	r.eventsIngested = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "events_ingested",
		Help:      "Events in the analysis window before deduplication",
	})
	r.eventsDeduped = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "events_deduplicated",
		Help:      "Events remaining after normalization and deduplication",
	})
	r.baselineEvents = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "baseline_events",
		Help:      "Events in the baseline period",
	})
	r.candidates = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "candidates",
		Help:      "Narrative candidates produced by clustering",
	})
	r.narrativesRanked = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "narratives_ranked",
		Help:      "Narratives in the final report",
	})
	r.topComposite = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "top_composite",
		Help:      "Composite score of the top ranked narrative",
	})
	r.lastRunTimestamp = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "last_run_timestamp_seconds",
		Help:      "Unix time the last report was generated",
	})
	r.stageDuration = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "stage_duration_seconds",
		Help:      "Wall time spent in each pipeline stage",
	}, []string{"stage"})
	r.connectorFailures = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "connector_failures",
		Help:      "Feeds that failed during the last fetch",
	}, []string{"connector"})

	r.registry.MustRegister(
		r.eventsIngested, r.eventsDeduped, r.baselineEvents,
		r.candidates, r.narrativesRanked, r.topComposite,
		r.lastRunTimestamp, r.stageDuration, r.connectorFailures,
	)
	return r
}

// Registry exposes the underlying registry.
func (r *Recorder) Registry() *prometheus.Registry {
	if r == nil {
		return nil
	}
	return r.registry
}

// Counts is the per-run event and narrative tally.
type Counts struct {
	Ingested   int
	Deduped    int
	Baseline   int
	Candidates int
	Ranked     int
}

// SetCounts records the run tallies.
func (r *Recorder) SetCounts(c Counts) {
	if r == nil {
		return
	}
	r.eventsIngested.Set(float64(c.Ingested))
	r.eventsDeduped.Set(float64(c.Deduped))
	r.baselineEvents.Set(float64(c.Baseline))
	r.candidates.Set(float64(c.Candidates))
	r.narrativesRanked.Set(float64(c.Ranked))
}

// SetTopComposite records the best composite score of the run.
func (r *Recorder) SetTopComposite(v float64) {
	if r == nil {
		return
	}
	r.topComposite.Set(v)
}

// ObserveStage records how long a stage took.
func (r *Recorder) ObserveStage(stage string, d time.Duration) {
	if r == nil {
		return
	}
	r.stageDuration.WithLabelValues(stage).Set(d.Seconds())
}

// Stage starts timing a stage. Call the returned func when it ends.
func (r *Recorder) Stage(stage string) func() {
	start := time.Now()
	return func() { r.ObserveStage(stage, time.Since(start)) }
}

// SetConnectorFailures records how many feeds of a connector failed.
func (r *Recorder) SetConnectorFailures(connector string, n int) {
	if r == nil {
		return
	}
	r.connectorFailures.WithLabelValues(connector).Set(float64(n))
}

// MarkRun stamps the time a report was generated.
func (r *Recorder) MarkRun(t time.Time) {
	if r == nil {
		return
	}
	r.lastRunTimestamp.Set(float64(t.Unix()))
}

// WriteTextfile writes the registry in the text exposition format, for the
// node_exporter textfile collector. The file is replaced atomically.
func (r *Recorder) WriteTextfile(path string) error {
	if r == nil {
		return nil
	}
	if err := prometheus.WriteToTextfile(path, r.registry); err != nil {
		return fmt.Errorf("write metrics textfile: %w", err)
	}
	return nil
}
