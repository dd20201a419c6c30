package commands

import (
	"context"
	"log/slog"
	"time"

	"git.home.luguber.info/inful/echopipe/internal/content"
	"git.home.luguber.info/inful/echopipe/internal/inbox"
	"git.home.luguber.info/inful/echopipe/internal/logfields"
	"git.home.luguber.info/inful/echopipe/internal/pipeline"
)

// WatchCmd implements the 'watch' command.
type WatchCmd struct {
	Dir         string        `short:"d" help:"Inbox directory; defaults to pipeline.inbox_dir" type:"path"`
	Start       int           `short:"s" default:"0" help:"First iteration; 0 continues after the recorded history"`
	Debounce    time.Duration `default:"500ms" help:"Quiet period before a new file is read"`
	MetricsAddr string        `name:"metrics-addr" help:"Serve Prometheus metrics on this address; defaults to monitor.metrics_addr"`
}

func (c *WatchCmd) Run(g *Global, root *CLI) error {
	ctx, cancel := signalContext()
	defer cancel()
	return c.run(ctx, g, root)
}

func (c *WatchCmd) run(ctx context.Context, g *Global, root *CLI) error {
	return withRuntime(ctx, g, root, func(rt *Runtime) error {
		dir := c.Dir
		if dir == "" {
			dir = rt.Config.Pipeline.InboxDir
		}
		seq := pipeline.NewSequence(startIteration(c.Start, rt))
		w, err := inbox.New(dir, func(ctx context.Context, req content.Request, source string) error {
			iteration := seq.Next()
			res, err := rt.Orchestrator.Execute(ctx, req, iteration)
			if err != nil {
				return err
			}
			slog.Info("Inbox request executed",
				logfields.Path(source),
				logfields.Iteration(iteration),
				logfields.Quality(res.Quality),
				slog.Bool("success", res.Success))
			return nil
		}, inbox.WithDebounce(c.Debounce))
		if err != nil {
			return err
		}
		defer func() { _ = w.Close() }()

		rt.ServeMetrics(ctx, firstNonEmpty(c.MetricsAddr, rt.Config.Monitor.MetricsAddr))
		return w.Run(ctx)
	})
}

// startIteration returns start, or one past the highest recorded iteration
// when start is not positive.
func startIteration(start int, rt *Runtime) int {
	if start > 0 {
		return start
	}
	next := 1
	for _, rec := range rt.Monitor.History() {
		if rec.Iteration >= next {
			next = rec.Iteration + 1
		}
	}
	return next
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
