package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/vetclinic/aiadmin/internal/core/ports"
	"github.com/vetclinic/aiadmin/internal/domain"
)

// Metrics holds the pipeline's Prometheus collectors.
//
// Metrics:
//   - aiadmin_stage_runs_total{stage,signal}
//   - aiadmin_stage_duration_seconds{stage}
//   - aiadmin_tool_calls_total{tool,outcome}
//   - aiadmin_llm_requests_total{outcome}
//   - aiadmin_pipeline_runs_total{final_status}
type Metrics struct {
	StageRunsTotal    *prometheus.CounterVec
	StageDuration     *prometheus.HistogramVec
	ToolCallsTotal    *prometheus.CounterVec
	LLMRequestsTotal  *prometheus.CounterVec
	PipelineRunsTotal *prometheus.CounterVec
}

// New registers the collectors on reg. Pass prometheus.DefaultRegisterer in
// the server and a fresh registry in tests.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		StageRunsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "aiadmin_stage_runs_total",
				Help: "Pipeline stage executions by returned signal",
			},
			[]string{"stage", "signal"},
		),
		StageDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "aiadmin_stage_duration_seconds",
				Help:    "Wall time of one pipeline stage",
				Buckets: prometheus.ExponentialBuckets(0.05, 2, 12), // 50ms to ~100s
			},
			[]string{"stage"},
		),
		ToolCallsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "aiadmin_tool_calls_total",
				Help: "Tool invocations made on behalf of the model",
			},
			[]string{"tool", "outcome"}, // "ok" or "error"
		),
		LLMRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "aiadmin_llm_requests_total",
				Help: "Language model requests by outcome",
			},
			[]string{"outcome"},
		),
		PipelineRunsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "aiadmin_pipeline_runs_total",
				Help: "Finished pipeline runs by final task status",
			},
			[]string{"final_status"},
		),
	}
}

var _ ports.PipelineMetrics = (*Metrics)(nil)

func (m *Metrics) StageFinished(stage, signal string, elapsed time.Duration) {
	m.StageRunsTotal.WithLabelValues(stage, signal).Inc()
	m.StageDuration.WithLabelValues(stage).Observe(elapsed.Seconds())
}

func (m *Metrics) ToolCalled(tool, outcome string) {
	m.ToolCallsTotal.WithLabelValues(tool, outcome).Inc()
}

func (m *Metrics) ModelRequest(outcome string) {
	m.LLMRequestsTotal.WithLabelValues(outcome).Inc()
}

func (m *Metrics) RunFinished(status domain.TaskStatus) {
	m.PipelineRunsTotal.WithLabelValues(string(status)).Inc()
}

type nop struct{}

// Nop discards everything.
func Nop() ports.PipelineMetrics { return nop{} }

func (nop) StageFinished(string, string, time.Duration) {}
func (nop) ToolCalled(string, string)                   {}
func (nop) ModelRequest(string)                         {}
func (nop) RunFinished(domain.TaskStatus)               {}
