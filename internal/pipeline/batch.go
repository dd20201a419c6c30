package pipeline

import (
	"context"
	"log/slog"
	"time"

	"git.home.luguber.info/inful/echopipe/internal/content"
	derrors "git.home.luguber.info/inful/echopipe/internal/foundation/errors"
	"git.home.luguber.info/inful/echopipe/internal/logfields"
)

// BatchResult collects the outcome of RunBatch.
type BatchResult struct {
	Results []*Result
	Failed  []FailedRun
}

// Passed counts the runs that met the quality threshold.
func (b *BatchResult) Passed() int {
	n := 0
	for _, r := range b.Results {
		if r.Success {
			n++
		}
	}
	return n
}

// RunBatch executes requests in order with consecutive iterations starting
// at startIteration. A failed run is collected and the batch continues; only
// cancellation stops it early.
func (o *Orchestrator) RunBatch(ctx context.Context, requests []content.Request, startIteration int) (*BatchResult, error) {
	dlq := NewDeadLetterQueue()
	out := &BatchResult{}
	for i, req := range requests {
		if err := ctx.Err(); err != nil {
			out.Failed = dlq.GetAll()
			return out, derrors.WrapError(err, derrors.CategoryRuntime, "batch canceled").
				WithContext("completed", i).
				Build()
		}
		iteration := startIteration + i
		res, err := o.Execute(ctx, req, iteration)
		if err != nil {
			dlq.Enqueue(FailedRun{Request: req, Iteration: iteration, Error: err, Timestamp: time.Now()})
			continue
		}
		out.Results = append(out.Results, res)
	}
	out.Failed = dlq.GetAll()
	slog.Info("Batch completed",
		slog.Int("requests", len(requests)),
		slog.Int("passed", out.Passed()),
		slog.Int("failed", dlq.Count()))
	return out, nil
}

// BenchmarkResult summarizes repeated executions of one request.
type BenchmarkResult struct {
	Iterations          int     `json:"total_iterations"`
	TotalSeconds        float64 `json:"total_time"`
	AverageSeconds      float64 `json:"average_time"`
	IterationsPerSecond float64 `json:"iterations_per_second"`
	AverageQuality      float64 `json:"average_quality"`
	Passed              int     `json:"passed"`
}

// Benchmark executes req n times with consecutive iterations and reports
// throughput. The first failing run aborts the benchmark.
func (o *Orchestrator) Benchmark(ctx context.Context, req content.Request, n, startIteration int) (BenchmarkResult, error) {
	if n <= 0 {
		return BenchmarkResult{}, derrors.ValidationError("benchmark needs at least one iteration").
			WithContext("iterations", n).
			Build()
	}
	started := time.Now()
	var qualitySum float64
	passed := 0
	for i := range n {
		res, err := o.Execute(ctx, req, startIteration+i)
		if err != nil {
			return BenchmarkResult{}, err
		}
		qualitySum += res.Quality
		if res.Success {
			passed++
		}
	}
	total := time.Since(started).Seconds()
	br := BenchmarkResult{
		Iterations:     n,
		TotalSeconds:   total,
		AverageSeconds: total / float64(n),
		AverageQuality: qualitySum / float64(n),
		Passed:         passed,
	}
	if total > 0 {
		br.IterationsPerSecond = float64(n) / total
	}
	slog.Debug("Benchmark completed", slog.Int("iterations", n), logfields.Elapsed(time.Since(started)))
	return br, nil
}
