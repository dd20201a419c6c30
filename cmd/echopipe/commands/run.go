package commands

import (
	"context"
	"fmt"

	"git.home.luguber.info/inful/echopipe/internal/content"
	derrors "git.home.luguber.info/inful/echopipe/internal/foundation/errors"
	"git.home.luguber.info/inful/echopipe/internal/inbox"
)

// RequestFlags select the request(s) a command executes: an input file or
// inline flags.
type RequestFlags struct {
	Input  string `short:"i" help:"Request file (JSON or YAML)" type:"path"`
	Topic  string `short:"t" help:"Topic when no input file is given"`
	Format string `short:"f" help:"Requested format (markdown, html, jsonld)"`
	Length string `short:"l" help:"Length class (short, medium, long)"`
}

func (r RequestFlags) specs() ([]content.RequestSpec, error) {
	if r.Input != "" {
		return inbox.LoadRequests(r.Input)
	}
	return []content.RequestSpec{{Topic: r.Topic, Format: r.Format, Length: r.Length}}, nil
}

// RunCmd implements the 'run' command.
type RunCmd struct {
	RequestFlags `embed:""`
	Iteration    int  `short:"n" help:"Iteration number; defaults to the request file value or 1"`
	JSON         bool `help:"Print the result as JSON"`
}

func (c *RunCmd) Run(g *Global, root *CLI) error {
	ctx, cancel := signalContext()
	defer cancel()
	return c.run(ctx, g, root)
}

func (c *RunCmd) run(ctx context.Context, g *Global, root *CLI) error {
	specs, err := c.specs()
	if err != nil {
		return err
	}
	if len(specs) != 1 {
		return derrors.ValidationError("run takes a single request; use batch for lists").
			WithContext("requests", len(specs)).
			Build()
	}
	iteration := c.Iteration
	if iteration == 0 {
		iteration = max(specs[0].Iteration, 1)
	}
	return withRuntime(ctx, g, root, func(rt *Runtime) error {
		res, err := rt.Orchestrator.Execute(ctx, specs[0].Request(), iteration)
		if err != nil {
			return err
		}
		if c.JSON {
			return writeJSON(g.Out, res)
		}
		renderResult(g.Out, res)
		return nil
	})
}

// BatchCmd implements the 'batch' command.
type BatchCmd struct {
	Input string `short:"i" required:"" help:"Request list file (JSON or YAML)" type:"path"`
	Start int    `short:"s" default:"1" help:"Iteration of the first request"`
	JSON  bool   `help:"Print the results as JSON"`
}

func (c *BatchCmd) Run(g *Global, root *CLI) error {
	ctx, cancel := signalContext()
	defer cancel()
	return c.run(ctx, g, root)
}

func (c *BatchCmd) run(ctx context.Context, g *Global, root *CLI) error {
	specs, err := inbox.LoadRequests(c.Input)
	if err != nil {
		return err
	}
	return withRuntime(ctx, g, root, func(rt *Runtime) error {
		br, err := rt.Orchestrator.RunBatch(ctx, inbox.Requests(specs), c.Start)
		if c.JSON {
			if jerr := writeJSON(g.Out, br); jerr != nil {
				return jerr
			}
		} else if br != nil {
			renderBatch(g.Out, br)
		}
		if err != nil {
			return err
		}
		if n := len(br.Failed); n > 0 {
			return derrors.NewError(derrors.CategoryRuntime, fmt.Sprintf("%d of %d requests failed", n, len(specs))).
				WithCause(br.Failed[0].Error).
				Build()
		}
		return nil
	})
}

// BenchCmd implements the 'bench' command.
type BenchCmd struct {
	RequestFlags `embed:""`
	Iterations   int  `short:"n" default:"10" help:"Number of executions"`
	Start        int  `short:"s" default:"1" help:"Iteration of the first execution"`
	JSON         bool `help:"Print the result as JSON"`
}

func (c *BenchCmd) Run(g *Global, root *CLI) error {
	ctx, cancel := signalContext()
	defer cancel()
	return c.run(ctx, g, root)
}

func (c *BenchCmd) run(ctx context.Context, g *Global, root *CLI) error {
	specs, err := c.specs()
	if err != nil {
		return err
	}
	return withRuntime(ctx, g, root, func(rt *Runtime) error {
		br, err := rt.Orchestrator.Benchmark(ctx, specs[0].Request(), c.Iterations, c.Start)
		if err != nil {
			return err
		}
		if c.JSON {
			return writeJSON(g.Out, br)
		}
		renderBenchmark(g.Out, br)
		return nil
	})
}
