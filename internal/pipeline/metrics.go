package pipeline

import "github.com/prometheus/client_golang/prometheus"

var (
	runsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "warehouse_pipeline_runs_total",
			Help: "Pipeline runs by result: succeeded, failed, skipped.",
		},
		[]string{"result"},
	)

	stageAttempts = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "warehouse_pipeline_stage_attempts_total",
			Help: "Stage attempts by stage and outcome.",
		},
		[]string{"stage", "outcome"},
	)
)

func init() {
	prometheus.MustRegister(runsTotal, stageAttempts)
}
