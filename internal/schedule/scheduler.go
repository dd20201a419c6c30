// Package schedule runs pipeline batches and report exports on a timer.
package schedule

import (
	"context"
	"log/slog"
	"time"

	"github.com/go-co-op/gocron/v2"

	"git.home.luguber.info/inful/echopipe/internal/content"
	derrors "git.home.luguber.info/inful/echopipe/internal/foundation/errors"
	"git.home.luguber.info/inful/echopipe/internal/logfields"
	"git.home.luguber.info/inful/echopipe/internal/pipeline"
)

// BatchRunner executes a list of requests with consecutive iterations.
type BatchRunner interface {
	RunBatch(ctx context.Context, requests []content.Request, startIteration int) (*pipeline.BatchResult, error)
}

// ReportSaver persists a performance report and returns where it went.
type ReportSaver interface {
	SaveReport(ctx context.Context, name string) (string, error)
}

// Scheduler wraps a gocron scheduler. Jobs never overlap with themselves; a
// tick that arrives while the previous run is busy is skipped.
type Scheduler struct {
	scheduler gocron.Scheduler
}

// New creates a scheduler. Call Start to begin running jobs.
func New() (*Scheduler, error) {
	s, err := gocron.NewScheduler()
	if err != nil {
		return nil, derrors.WrapError(err, derrors.CategoryRuntime, "create scheduler").Build()
	}
	return &Scheduler{scheduler: s}, nil
}

// Start begins running scheduled jobs.
func (s *Scheduler) Start() {
	slog.Info("Starting scheduler", slog.Int("jobs", len(s.scheduler.Jobs())))
	s.scheduler.Start()
}

// Stop waits for running jobs and shuts the scheduler down.
func (s *Scheduler) Stop() error {
	slog.Info("Stopping scheduler")
	return s.scheduler.Shutdown()
}

// ScheduleEvery runs task every interval. The first run happens immediately
// when immediate is set, otherwise after one interval.
func (s *Scheduler) ScheduleEvery(name string, interval time.Duration, immediate bool, task func()) (string, error) {
	if interval <= 0 {
		return "", derrors.ConfigError("schedule interval must be positive").
			WithContext("job", name).
			WithContext("interval", interval.String()).
			Build()
	}
	return s.add(name, gocron.DurationJob(interval), immediate, task)
}

// ScheduleCron runs task on a five-field cron expression.
func (s *Scheduler) ScheduleCron(name, expr string, task func()) (string, error) {
	return s.add(name, gocron.CronJob(expr, false), false, task)
}

func (s *Scheduler) add(name string, def gocron.JobDefinition, immediate bool, task func()) (string, error) {
	opts := []gocron.JobOption{
		gocron.WithName(name),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	}
	if immediate {
		opts = append(opts, gocron.WithStartAt(gocron.WithStartImmediately()))
	}
	job, err := s.scheduler.NewJob(def, gocron.NewTask(task), opts...)
	if err != nil {
		return "", derrors.ConfigError("invalid schedule").
			WithCause(err).
			WithContext("job", name).
			Build()
	}
	return job.ID().String(), nil
}

// BatchTask returns a job body that runs requests as one batch per tick.
// Iterations continue across ticks via seq.
func BatchTask(ctx context.Context, runner BatchRunner, requests []content.Request, seq *pipeline.Sequence) func() {
	return func() {
		if ctx.Err() != nil {
			return
		}
		start := seq.Reserve(len(requests))
		slog.Info("Executing scheduled batch", slog.Int("requests", len(requests)), logfields.Iteration(start))
		res, err := runner.RunBatch(ctx, requests, start)
		if err != nil {
			slog.Error("Scheduled batch stopped", logfields.Error(err))
			return
		}
		for _, f := range res.Failed {
			slog.Warn("Scheduled run failed", logfields.Iteration(f.Iteration), logfields.Error(f.Error))
		}
	}
}

// ReportTask returns a job body that saves a performance report per tick.
func ReportTask(ctx context.Context, saver ReportSaver) func() {
	return func() {
		if ctx.Err() != nil {
			return
		}
		loc, err := saver.SaveReport(ctx, "")
		if err != nil {
			slog.Error("Scheduled report export failed", logfields.Error(err))
			return
		}
		slog.Info("Performance report exported", logfields.Path(loc))
	}
}
