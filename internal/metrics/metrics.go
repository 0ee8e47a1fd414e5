// Package metrics exposes engine activity as Prometheus collectors on a
// private registry.
package metrics

import (
	"fmt"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/deepteaching86-gif/deepreading/internal/mst"
)

const namespace = "deepreading"

// Recorder owns the engine's collectors.
type Recorder struct {
	registry *prometheus.Registry

	sessionsStarted   *prometheus.CounterVec
	responses         *prometheus.CounterVec
	standardError     prometheus.Histogram
	stageTransitions  *prometheus.CounterVec
	poolExhausted     *prometheus.CounterVec
	sessionsFinalized *prometheus.CounterVec
	finalTheta        prometheus.Histogram
}

// New creates a Recorder with its own registry.
func New() *Recorder {
	reg := prometheus.NewRegistry()
	f := promauto.With(reg)

	return &Recorder{
		registry: reg,
		sessionsStarted: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sessions_started_total",
			Help:      "Test sessions started, by form.",
		}, []string{"form"}),
		responses: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "responses_total",
			Help:      "Responses recorded, by stage and correctness.",
		}, []string{"stage", "correct"}),
		standardError: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "response_standard_error",
			Help:      "Standard error of the ability estimate after each response.",
			Buckets:   []float64{0.2, 0.25, 0.3, 0.35, 0.4, 0.5, 0.6, 0.8, 1},
		}),
		stageTransitions: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stage_transitions_total",
			Help:      "Stage transitions, by source and destination panel.",
		}, []string{"from", "to"}),
		poolExhausted: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pool_exhausted_total",
			Help:      "Selections that found no eligible item, by stage and panel.",
		}, []string{"stage", "panel"}),
		sessionsFinalized: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sessions_finalized_total",
			Help:      "Finalized sessions, by proficiency level.",
		}, []string{"level"}),
		finalTheta: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "final_theta",
			Help:      "Final ability estimates.",
			Buckets:   prometheus.LinearBuckets(-3, 0.5, 13),
		}),
	}
}

// Registry returns the registry holding the recorder's collectors.
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

func (r *Recorder) SessionStarted(formID int) {
	r.sessionsStarted.WithLabelValues(strconv.Itoa(formID)).Inc()
}

func (r *Recorder) ResponseRecorded(stage int, correct bool, se float64) {
	r.responses.WithLabelValues(strconv.Itoa(stage), strconv.FormatBool(correct)).Inc()
	r.standardError.Observe(se)
}

func (r *Recorder) StageTransition(from, to mst.Panel) {
	r.stageTransitions.WithLabelValues(string(from), string(to)).Inc()
}

func (r *Recorder) PoolExhausted(stage int, panel mst.Panel) {
	r.poolExhausted.WithLabelValues(strconv.Itoa(stage), string(panel)).Inc()
}

func (r *Recorder) SessionFinalized(level int, theta float64) {
	r.sessionsFinalized.WithLabelValues(strconv.Itoa(level)).Inc()
	r.finalTheta.Observe(theta)
}

// WriteTextfile writes the current metrics in the text exposition format,
// for the node exporter textfile collector.
func (r *Recorder) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, r.registry); err != nil {
		return fmt.Errorf("write metrics textfile: %w", err)
	}
	return nil
}
