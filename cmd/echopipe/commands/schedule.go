package commands

import (
	"context"
	"log/slog"
	"time"

	derrors "git.home.luguber.info/inful/echopipe/internal/foundation/errors"
	"git.home.luguber.info/inful/echopipe/internal/inbox"
	"git.home.luguber.info/inful/echopipe/internal/pipeline"
	"git.home.luguber.info/inful/echopipe/internal/schedule"
)

// ScheduleCmd implements the 'schedule' command.
type ScheduleCmd struct {
	Input       string        `short:"i" required:"" help:"Request list file (JSON or YAML)" type:"path"`
	Every       time.Duration `help:"Run the batch at this interval"`
	Cron        string        `help:"Run the batch on this cron expression instead of an interval"`
	ReportEvery time.Duration `name:"report-every" help:"Export a performance report at this interval"`
	Start       int           `short:"s" default:"0" help:"First iteration; 0 continues after the recorded history"`
	MetricsAddr string        `name:"metrics-addr" help:"Serve Prometheus metrics on this address; defaults to monitor.metrics_addr"`
}

func (c *ScheduleCmd) Run(g *Global, root *CLI) error {
	ctx, cancel := signalContext()
	defer cancel()
	return c.run(ctx, g, root)
}

func (c *ScheduleCmd) run(ctx context.Context, g *Global, root *CLI) error {
	if (c.Every > 0) == (c.Cron != "") {
		return derrors.ValidationError("exactly one of --every and --cron is required").Build()
	}
	specs, err := inbox.LoadRequests(c.Input)
	if err != nil {
		return err
	}
	return withRuntime(ctx, g, root, func(rt *Runtime) error {
		s, err := schedule.New()
		if err != nil {
			return err
		}
		seq := pipeline.NewSequence(startIteration(c.Start, rt))
		batch := schedule.BatchTask(ctx, rt.Orchestrator, inbox.Requests(specs), seq)
		if c.Cron != "" {
			_, err = s.ScheduleCron("batch", c.Cron, batch)
		} else {
			_, err = s.ScheduleEvery("batch", c.Every, true, batch)
		}
		if err != nil {
			_ = s.Stop()
			return err
		}
		if c.ReportEvery > 0 {
			if _, err := s.ScheduleEvery("report", c.ReportEvery, false, schedule.ReportTask(ctx, rt.Monitor)); err != nil {
				_ = s.Stop()
				return err
			}
		}

		rt.ServeMetrics(ctx, firstNonEmpty(c.MetricsAddr, rt.Config.Monitor.MetricsAddr))
		s.Start()
		<-ctx.Done()
		slog.Info("Shutdown signal received, stopping scheduler")
		return s.Stop()
	})
}
