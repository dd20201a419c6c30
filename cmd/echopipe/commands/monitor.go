package commands

import (
	"context"
	"fmt"
	"strings"

	derrors "git.home.luguber.info/inful/echopipe/internal/foundation/errors"
	"git.home.luguber.info/inful/echopipe/internal/monitor"
)

// ReportCmd implements the 'report' command.
type ReportCmd struct {
	Save bool   `help:"Persist the report next to the execution records"`
	Name string `help:"Report name when saving; defaults to a timestamped name"`
	JSON bool   `help:"Print the report as JSON"`
}

func (c *ReportCmd) Run(g *Global, root *CLI) error {
	return c.run(context.Background(), g, root)
}

func (c *ReportCmd) run(ctx context.Context, g *Global, root *CLI) error {
	return withRuntime(ctx, g, root, func(rt *Runtime) error {
		report := rt.Monitor.Report(ctx)
		if c.JSON {
			if err := writeJSON(g.Out, report); err != nil {
				return err
			}
		} else {
			renderReport(g.Out, report)
		}
		if !c.Save {
			return nil
		}
		loc, err := rt.Monitor.SaveReport(ctx, c.Name)
		if err != nil {
			return err
		}
		fmt.Fprintln(g.Out, noteStyle.Render("Report saved to "+loc))
		return nil
	})
}

// SummaryCmd implements the 'summary' command.
type SummaryCmd struct {
	Limit int  `short:"n" default:"10" help:"Number of recent executions to list"`
	JSON  bool `help:"Print the summary as JSON"`
}

func (c *SummaryCmd) Run(g *Global, root *CLI) error {
	return c.run(context.Background(), g, root)
}

func (c *SummaryCmd) run(ctx context.Context, g *Global, root *CLI) error {
	return withRuntime(ctx, g, root, func(rt *Runtime) error {
		s := rt.Monitor.Summary(c.Limit)
		if c.JSON {
			return writeJSON(g.Out, s)
		}
		renderSummary(g.Out, s)
		return nil
	})
}

// HealthCmd implements the 'health' command. It exits non-zero only when
// the status is error.
type HealthCmd struct {
	JSON bool `help:"Print the health status as JSON"`
}

func (c *HealthCmd) Run(g *Global, root *CLI) error {
	return c.run(context.Background(), g, root)
}

func (c *HealthCmd) run(ctx context.Context, g *Global, root *CLI) error {
	return withRuntime(ctx, g, root, func(rt *Runtime) error {
		h := rt.Monitor.Health(ctx)
		if c.JSON {
			if err := writeJSON(g.Out, h); err != nil {
				return err
			}
		} else {
			renderHealth(g.Out, h)
		}
		if h.Status == monitor.HealthStatusError {
			return errUnhealthy(h)
		}
		return nil
	})
}

func errUnhealthy(h monitor.Health) error {
	return derrors.NewError(derrors.CategoryMonitor, "monitor is unhealthy").
		WithContext("errors", strings.Join(h.Errors, "; ")).
		WithContext("backend", h.Backend).
		Build()
}

// HistoryCmd groups history maintenance subcommands.
type HistoryCmd struct {
	Clear HistoryClearCmd `cmd:"" help:"Delete all execution records"`
}

// HistoryClearCmd implements 'history clear'.
type HistoryClearCmd struct {
	KeepRecords bool `name:"keep-records" help:"Only reset the in-process history; keep persisted records"`
}

func (c *HistoryClearCmd) Run(g *Global, root *CLI) error {
	return c.run(context.Background(), g, root)
}

func (c *HistoryClearCmd) run(ctx context.Context, g *Global, root *CLI) error {
	return withRuntime(ctx, g, root, func(rt *Runtime) error {
		if c.KeepRecords {
			rt.Monitor.Clear()
			fmt.Fprintln(g.Out, noteStyle.Render("History cleared"))
			return nil
		}
		n, err := rt.Monitor.Purge(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintln(g.Out, noteStyle.Render(fmt.Sprintf("History cleared, %d records deleted", n)))
		return nil
	})
}

// RecordsCmd groups record inspection subcommands.
type RecordsCmd struct {
	List RecordsListCmd `cmd:"" help:"List persisted record and report names"`
	Show RecordsShowCmd `cmd:"" help:"Print one persisted execution record"`
}

// RecordsListCmd implements 'records list'.
type RecordsListCmd struct{}

func (c *RecordsListCmd) Run(g *Global, root *CLI) error {
	return c.run(context.Background(), g, root)
}

func (c *RecordsListCmd) run(ctx context.Context, g *Global, root *CLI) error {
	return withRuntime(ctx, g, root, func(rt *Runtime) error {
		names, err := rt.Monitor.MetricsFiles(ctx)
		if err != nil {
			return err
		}
		if len(names) == 0 {
			fmt.Fprintln(g.Out, noteStyle.Render("No records in "+rt.Monitor.Backend().Location()))
			return nil
		}
		for _, n := range names {
			fmt.Fprintln(g.Out, n)
		}
		return nil
	})
}

// RecordsShowCmd implements 'records show'.
type RecordsShowCmd struct {
	Name string `arg:"" help:"Record name as printed by 'records list'"`
}

func (c *RecordsShowCmd) Run(g *Global, root *CLI) error {
	return c.run(context.Background(), g, root)
}

func (c *RecordsShowCmd) run(ctx context.Context, g *Global, root *CLI) error {
	return withRuntime(ctx, g, root, func(rt *Runtime) error {
		rec, err := rt.Monitor.LoadRecord(ctx, c.Name)
		if err != nil {
			return err
		}
		return writeJSON(g.Out, rec)
	})
}
