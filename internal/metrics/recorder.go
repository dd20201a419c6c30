package metrics

import "time"

// ResultLabel enumerates stage result categories for counters.
type ResultLabel string

const (
	ResultSuccess  ResultLabel = "success"
	ResultFatal    ResultLabel = "fatal"
	ResultCanceled ResultLabel = "canceled"
)

// RunOutcomeLabel enumerates final run outcomes.
type RunOutcomeLabel string

const (
	RunPassed   RunOutcomeLabel = "passed"
	RunFailed   RunOutcomeLabel = "failed" // completed below the quality threshold
	RunError    RunOutcomeLabel = "error"
	RunCanceled RunOutcomeLabel = "canceled"
)

// Recorder defines observability hooks for pipeline runs. Implementations
// must be safe for concurrent use.
type Recorder interface {
	ObserveStageDuration(stage string, d time.Duration)
	IncStageResult(stage string, result ResultLabel)
	ObserveRunDuration(d time.Duration)
	IncRunOutcome(outcome RunOutcomeLabel)
	ObserveQuality(format string, q float64)
	ObserveConsistency(c float64)
	IncConversion(from, to, status string)
	SetHistorySize(n int)
	IncMonitorFailure(operation string) // operation: persist|publish
}

// NoopRecorder is a Recorder that does nothing (default when metrics not configured).
type NoopRecorder struct{}

func (NoopRecorder) ObserveStageDuration(string, time.Duration) {}
func (NoopRecorder) IncStageResult(string, ResultLabel)         {}
func (NoopRecorder) ObserveRunDuration(time.Duration)           {}
func (NoopRecorder) IncRunOutcome(RunOutcomeLabel)              {}
func (NoopRecorder) ObserveQuality(string, float64)             {}
func (NoopRecorder) ObserveConsistency(float64)                 {}
func (NoopRecorder) IncConversion(string, string, string)       {}
func (NoopRecorder) SetHistorySize(int)                         {}
func (NoopRecorder) IncMonitorFailure(string)                   {}
