package metrics

import (
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
)

// PrometheusRecorder implements Recorder using Prometheus metrics.
type PrometheusRecorder struct {
	batchDuration *prom.HistogramVec
	batchOutcome  *prom.CounterVec
	fileDuration  *prom.HistogramVec
	fileResults   *prom.CounterVec
	indexRecords  *prom.GaugeVec
	watchEvents   *prom.CounterVec
}

// NewPrometheusRecorder constructs the pipeline metrics and registers them
// on reg (a fresh registry when nil).
func NewPrometheusRecorder(reg *prom.Registry) *PrometheusRecorder {
	if reg == nil {
		reg = prom.NewRegistry()
	}
	pr := &PrometheusRecorder{
		batchDuration: prom.NewHistogramVec(prom.HistogramOpts{
			Namespace: "contented",
			Name:      "batch_duration_seconds",
			Help:      "Duration of full and incremental build batches",
			Buckets:   prom.DefBuckets,
		}, []string{"pipeline", "kind"}),
		batchOutcome: prom.NewCounterVec(prom.CounterOpts{
			Namespace: "contented",
			Name:      "batch_outcomes_total",
			Help:      "Build batches by final outcome",
		}, []string{"pipeline", "outcome"}),
		fileDuration: prom.NewHistogramVec(prom.HistogramOpts{
			Namespace: "contented",
			Name:      "file_duration_seconds",
			Help:      "Duration of processing one source file",
			Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
		}, []string{"pipeline"}),
		fileResults: prom.NewCounterVec(prom.CounterOpts{
			Namespace: "contented",
			Name:      "file_results_total",
			Help:      "Source file results by outcome",
		}, []string{"pipeline", "result"}),
		indexRecords: prom.NewGaugeVec(prom.GaugeOpts{
			Namespace: "contented",
			Name:      "index_records",
			Help:      "Records in the last committed snapshot",
		}, []string{"pipeline"}),
		watchEvents: prom.NewCounterVec(prom.CounterOpts{
			Namespace: "contented",
			Name:      "watch_events_total",
			Help:      "Qualifying file system events received",
		}, []string{"pipeline"}),
	}
	reg.MustRegister(pr.batchDuration, pr.batchOutcome, pr.fileDuration, pr.fileResults, pr.indexRecords, pr.watchEvents)
	return pr
}

func (p *PrometheusRecorder) ObserveBatchDuration(pipeline, kind string, d time.Duration) {
	if p == nil {
		return
	}
	p.batchDuration.WithLabelValues(pipeline, kind).Observe(d.Seconds())
}

func (p *PrometheusRecorder) IncBatchOutcome(pipeline string, outcome OutcomeLabel) {
	if p == nil {
		return
	}
	p.batchOutcome.WithLabelValues(pipeline, string(outcome)).Inc()
}

func (p *PrometheusRecorder) ObserveFileDuration(pipeline string, d time.Duration) {
	if p == nil {
		return
	}
	p.fileDuration.WithLabelValues(pipeline).Observe(d.Seconds())
}

func (p *PrometheusRecorder) IncFileResult(pipeline string, result ResultLabel) {
	if p == nil {
		return
	}
	p.fileResults.WithLabelValues(pipeline, string(result)).Inc()
}

func (p *PrometheusRecorder) SetIndexRecords(pipeline string, n int) {
	if p == nil {
		return
	}
	p.indexRecords.WithLabelValues(pipeline).Set(float64(n))
}

func (p *PrometheusRecorder) AddWatchEvents(pipeline string, n int) {
	if p == nil {
		return
	}
	p.watchEvents.WithLabelValues(pipeline).Add(float64(n))
}
