package generation

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the generation collectors.
type Metrics struct {
	Runs               *prometheus.CounterVec
	ModelCalls         *prometheus.CounterVec
	ValidationFailures *prometheus.CounterVec
	StageDuration      *prometheus.HistogramVec
}

// NewMetrics creates the collectors and registers them with reg when it is
// not nil.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Runs: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "linguaforge",
				Name:      "generation_runs_total",
				Help:      "Generation runs by intent and outcome.",
			},
			[]string{"intent", "outcome"},
		),
		ModelCalls: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "linguaforge",
				Name:      "generation_model_calls_total",
				Help:      "Model round trips made by generation runs.",
			},
			[]string{"intent"},
		),
		ValidationFailures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "linguaforge",
				Name:      "generation_validation_failures_total",
				Help:      "Rejected model outputs by kind.",
			},
			[]string{"intent", "kind"},
		),
		StageDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "linguaforge",
				Name:      "generation_stage_duration_seconds",
				Help:      "Time spent in each generation stage.",
				Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5, 10, 30, 60},
			},
			[]string{"intent", "stage"},
		),
	}
	if reg != nil {
		reg.MustRegister(m.Runs, m.ModelCalls, m.ValidationFailures, m.StageDuration)
	}
	return m
}

func (m *Metrics) observeStage(intent string, stage State, d time.Duration) {
	if m == nil {
		return
	}
	m.StageDuration.WithLabelValues(intent, string(stage)).Observe(d.Seconds())
}

func (m *Metrics) modelCall(intent string) {
	if m == nil {
		return
	}
	m.ModelCalls.WithLabelValues(intent).Inc()
}

func (m *Metrics) validationFailure(intent, kind string) {
	if m == nil {
		return
	}
	m.ValidationFailures.WithLabelValues(intent, kind).Inc()
}

func (m *Metrics) run(intent, outcome string) {
	if m == nil {
		return
	}
	m.Runs.WithLabelValues(intent, outcome).Inc()
}
