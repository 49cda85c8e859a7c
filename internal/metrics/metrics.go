// Package metrics exposes Prometheus counters for the batch pipeline
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/qrfoundry/batch-pipeline/pkg/batch"
)

var (
	// BatchesTotal counts completed batch runs by terminal status
	BatchesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "qr_batch_runs_total",
		Help: "Completed batch runs by status",
	}, []string{"status"})

	// RowsProcessed counts CSV rows archived across all batch runs
	RowsProcessed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "qr_batch_rows_processed_total",
		Help: "CSV rows archived across all batch runs",
	})

	// VerdictsTotal counts validation verdicts by state
	VerdictsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "qr_batch_verdicts_total",
		Help: "Validation verdicts by state",
	}, []string{"state"})
)

// ObserveOutcome records the metrics for one finished batch run
func ObserveOutcome(outcome *batch.Outcome) {
	if outcome == nil {
		return
	}
	status := "failed"
	if outcome.Success {
		status = "succeeded"
	}
	BatchesTotal.WithLabelValues(status).Inc()
	RowsProcessed.Add(float64(outcome.RowCount))
	for _, v := range outcome.Verdicts {
		VerdictsTotal.WithLabelValues(string(v.State)).Inc()
	}
}
