package metrics

import "time"

// ResultLabel enumerates per-file result categories for counters.
type ResultLabel string

const (
	ResultIndexed  ResultLabel = "indexed"
	ResultFailed   ResultLabel = "failed"
	ResultCollided ResultLabel = "collided"
	ResultRemoved  ResultLabel = "removed"
)

// OutcomeLabel enumerates batch outcomes.
type OutcomeLabel string

const (
	OutcomeCommitted OutcomeLabel = "committed"
	OutcomeAborted   OutcomeLabel = "aborted"
	OutcomeCanceled  OutcomeLabel = "canceled"
)

// Recorder defines the observability hooks of pipeline builds.
type Recorder interface {
	ObserveBatchDuration(pipeline, kind string, d time.Duration)
	IncBatchOutcome(pipeline string, outcome OutcomeLabel)
	ObserveFileDuration(pipeline string, d time.Duration)
	IncFileResult(pipeline string, result ResultLabel)
	SetIndexRecords(pipeline string, n int)
	AddWatchEvents(pipeline string, n int)
}

// NoopRecorder is a Recorder that does nothing (default when metrics not configured).
type NoopRecorder struct{}

func (NoopRecorder) ObserveBatchDuration(string, string, time.Duration) {}
func (NoopRecorder) IncBatchOutcome(string, OutcomeLabel)               {}
func (NoopRecorder) ObserveFileDuration(string, time.Duration)          {}
func (NoopRecorder) IncFileResult(string, ResultLabel)                  {}
func (NoopRecorder) SetIndexRecords(string, int)                        {}
func (NoopRecorder) AddWatchEvents(string, int)                         {}
