package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"git.home.luguber.info/inful/echopipe/internal/content"
	derrors "git.home.luguber.info/inful/echopipe/internal/foundation/errors"
	"git.home.luguber.info/inful/echopipe/internal/generator"
	"git.home.luguber.info/inful/echopipe/internal/logfields"
	"git.home.luguber.info/inful/echopipe/internal/metrics"
	"git.home.luguber.info/inful/echopipe/internal/monitor"
	"git.home.luguber.info/inful/echopipe/internal/output"
	"git.home.luguber.info/inful/echopipe/internal/quality"
	"git.home.luguber.info/inful/echopipe/internal/retry"
	"git.home.luguber.info/inful/echopipe/internal/transform"
)

// Stage names a pipeline stage.
type Stage string

const (
	StageGenerate  Stage = "generate"
	StageTransform Stage = "transform"
	StageValidate  Stage = "validate"
	StageOutput    Stage = "output"
)

// Stages lists the stages in execution order.
var Stages = []Stage{StageGenerate, StageTransform, StageValidate, StageOutput}

// Result is the outcome of one executed request.
type Result struct {
	RunID        string           `json:"run_id"`
	Iteration    int              `json:"iteration"`
	Success      bool             `json:"success"`
	Duration     float64          `json:"duration"`
	Quality      float64          `json:"quality"`
	Consistency  float64          `json:"consistency"`
	Manifest     content.Manifest `json:"manifest"`
	Validation   quality.Result   `json:"validation"`
	Passthroughs []content.Format `json:"passthroughs,omitempty"`
}

// Orchestrator runs requests through the four stages.
type Orchestrator struct {
	generator   *generator.Generator
	transformer *transform.Transformer
	validator   *quality.Validator
	formatter   *output.Formatter
	monitor     *monitor.Monitor

	recorder    metrics.Recorder
	bus         *Bus
	latency     time.Duration
	outputRetry retry.Policy
}

// Option configures orchestrator behavior.
type Option func(*Orchestrator)

// WithRecorder reports stage and run metrics to r.
func WithRecorder(r metrics.Recorder) Option {
	return func(o *Orchestrator) {
		if r != nil {
			o.recorder = r
		}
	}
}

// WithBus publishes lifecycle events to b.
func WithBus(b *Bus) Option {
	return func(o *Orchestrator) { o.bus = b }
}

// WithStageLatency waits d before each stage. The wait honours cancellation.
func WithStageLatency(d time.Duration) Option {
	return func(o *Orchestrator) { o.latency = d }
}

// WithOutputRetry retries retryable output failures according to p.
func WithOutputRetry(p retry.Policy) Option {
	return func(o *Orchestrator) { o.outputRetry = p }
}

// New wires the stages together. The monitor is required; it is the only
// writer of execution history.
func New(gen *generator.Generator, tr *transform.Transformer, val *quality.Validator, out *output.Formatter, mon *monitor.Monitor, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		generator:   gen,
		transformer: tr,
		validator:   val,
		formatter:   out,
		monitor:     mon,
		recorder:    metrics.NoopRecorder{},
		outputRetry: retry.None(),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Monitor returns the monitor runs are recorded in.
func (o *Orchestrator) Monitor() *monitor.Monitor { return o.monitor }

// Execute runs req as iteration. Stage failures are returned as classified
// errors and the run is not recorded. A failure to record the run is logged
// and does not fail the execution.
func (o *Orchestrator) Execute(ctx context.Context, req content.Request, iteration int) (*Result, error) {
	started := time.Now()
	run := o.monitor.Start(ctx, req.Input(), iteration)
	log := slog.With(logfields.RunID(run.ID), logfields.Iteration(iteration))
	log.Info("Pipeline run started", logfields.Topic(req.Topic()), logfields.Format(string(req.Format())))
	o.publish(RunStarted{RunID: run.ID, Iteration: iteration, Topic: req.Topic()})

	var (
		gc       *content.GeneratedContent
		tr       *transform.Transformed
		val      quality.Result
		manifest content.Manifest
	)
	steps := []struct {
		stage Stage
		run   func(context.Context) error
	}{
		{StageGenerate, func(ctx context.Context) (err error) {
			gc, err = o.generator.Generate(ctx, req)
			return err
		}},
		{StageTransform, func(ctx context.Context) (err error) {
			tr, err = o.transformer.Transform(ctx, gc)
			return err
		}},
		{StageValidate, func(ctx context.Context) error {
			val = o.validator.Validate(ctx, tr.Set, gc.Metadata)
			return nil
		}},
		{StageOutput, func(ctx context.Context) error {
			return o.outputRetry.Do(ctx, string(StageOutput), canRetry, func(ctx context.Context) (err error) {
				manifest, err = o.formatter.Format(ctx, tr.Set, gc.Metadata, iteration)
				return err
			})
		}},
	}
	for _, step := range steps {
		if err := o.runStage(ctx, run.ID, step.stage, step.run); err != nil {
			return nil, o.fail(run, step.stage, started, err)
		}
	}

	rec, recErr := o.monitor.Record(ctx, run, monitor.Outcome{
		Success:     val.Passed,
		Quality:     val.Quality,
		Consistency: val.Consistency,
		Manifest:    manifest,
	})
	if recErr != nil {
		log.Warn("Execution record not persisted", logfields.Error(recErr))
	}

	res := &Result{
		RunID:        run.ID,
		Iteration:    iteration,
		Success:      val.Passed,
		Duration:     rec.Duration,
		Quality:      val.Quality,
		Consistency:  val.Consistency,
		Manifest:     manifest,
		Validation:   val,
		Passthroughs: tr.Passthroughs(),
	}
	o.observe(res, gc.Metadata.Format, tr, time.Since(started))
	log.Info("Pipeline run completed",
		logfields.Quality(res.Quality),
		slog.Float64("consistency", res.Consistency),
		slog.Bool("success", res.Success),
		logfields.Elapsed(time.Since(started)))
	o.publish(RunCompleted{Result: res})
	return res, nil
}

// runStage waits the configured latency, runs fn and reports the outcome.
func (o *Orchestrator) runStage(ctx context.Context, runID string, stage Stage, fn func(context.Context) error) error {
	if err := o.wait(ctx); err != nil {
		o.recorder.IncStageResult(string(stage), metrics.ResultCanceled)
		return derrors.WrapError(err, derrors.CategoryRuntime, "pipeline canceled").
			WithContext("stage", string(stage)).
			Build()
	}
	start := time.Now()
	err := fn(ctx)
	elapsed := time.Since(start)
	o.recorder.ObserveStageDuration(string(stage), elapsed)
	if err != nil {
		result := metrics.ResultFatal
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			result = metrics.ResultCanceled
		}
		o.recorder.IncStageResult(string(stage), result)
		return err
	}
	o.recorder.IncStageResult(string(stage), metrics.ResultSuccess)
	slog.Debug("Stage completed", logfields.RunID(runID), logfields.Stage(string(stage)), logfields.Elapsed(elapsed))
	o.publish(StageCompleted{RunID: runID, Stage: stage, Duration: elapsed})
	return nil
}

func (o *Orchestrator) wait(ctx context.Context) error {
	if o.latency <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(o.latency)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func (o *Orchestrator) fail(run *monitor.Run, stage Stage, started time.Time, err error) error {
	if !derrors.IsClassified(err) {
		err = derrors.WrapError(err, derrors.CategoryInternal, "pipeline stage failed").
			WithContext("stage", string(stage)).
			Build()
	}
	outcome := metrics.RunError
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		outcome = metrics.RunCanceled
	}
	o.recorder.IncRunOutcome(outcome)
	o.recorder.ObserveRunDuration(time.Since(started))
	slog.Error("Pipeline run failed",
		logfields.RunID(run.ID),
		logfields.Iteration(run.Iteration),
		logfields.Stage(string(stage)),
		logfields.Error(err))
	o.publish(RunFailed{RunID: run.ID, Iteration: run.Iteration, Stage: stage, Err: err})
	return err
}

func (o *Orchestrator) observe(res *Result, source content.Format, tr *transform.Transformed, elapsed time.Duration) {
	for _, f := range res.Validation.Formats() {
		o.recorder.ObserveQuality(string(f), res.Validation.Scores[f].Quality)
	}
	o.recorder.ObserveConsistency(res.Consistency)
	for to, conv := range tr.Conversions {
		o.recorder.IncConversion(string(source), string(to), string(conv.Status))
	}
	outcome := metrics.RunFailed
	if res.Success {
		outcome = metrics.RunPassed
	}
	o.recorder.IncRunOutcome(outcome)
	o.recorder.ObserveRunDuration(elapsed)
}

func (o *Orchestrator) publish(e Event) {
	if o.bus == nil {
		return
	}
	if err := o.bus.Publish(e); err != nil {
		slog.Warn("Event handler failed", slog.String("event", e.Name()), logfields.Error(err))
	}
}

func canRetry(err error) bool {
	if ce, ok := derrors.AsClassified(err); ok {
		return ce.CanRetry()
	}
	return false
}
