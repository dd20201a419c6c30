package pipeline

import "time"

// Event is a run lifecycle event delivered through the Bus.
type Event interface{ Name() string }

// Event names used in the pipeline.
const (
	EventRunStarted     = "RunStarted"
	EventStageCompleted = "StageCompleted"
	EventRunCompleted   = "RunCompleted"
	EventRunFailed      = "RunFailed"
)

// RunStarted is published before the first stage.
type RunStarted struct {
	RunID     string
	Iteration int
	Topic     string
}

func (RunStarted) Name() string { return EventRunStarted }

// StageCompleted is published after every successful stage.
type StageCompleted struct {
	RunID    string
	Stage    Stage
	Duration time.Duration
}

func (StageCompleted) Name() string { return EventStageCompleted }

// RunCompleted is published once the run was recorded.
type RunCompleted struct{ Result *Result }

func (RunCompleted) Name() string { return EventRunCompleted }

// RunFailed is published when a stage aborted the run.
type RunFailed struct {
	RunID     string
	Iteration int
	Stage     Stage
	Err       error
}

func (RunFailed) Name() string { return EventRunFailed }
