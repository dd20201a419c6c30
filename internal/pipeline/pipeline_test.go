package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/echopipe/internal/config"
	"git.home.luguber.info/inful/echopipe/internal/content"
	"git.home.luguber.info/inful/echopipe/internal/convert"
	derrors "git.home.luguber.info/inful/echopipe/internal/foundation/errors"
	"git.home.luguber.info/inful/echopipe/internal/generator"
	"git.home.luguber.info/inful/echopipe/internal/hostinfo"
	"git.home.luguber.info/inful/echopipe/internal/metrics"
	"git.home.luguber.info/inful/echopipe/internal/monitor"
	"git.home.luguber.info/inful/echopipe/internal/output"
	"git.home.luguber.info/inful/echopipe/internal/quality"
	"git.home.luguber.info/inful/echopipe/internal/retry"
	"git.home.luguber.info/inful/echopipe/internal/storage"
	"git.home.luguber.info/inful/echopipe/internal/transform"
)

type fixture struct {
	orch     *Orchestrator
	monitor  *monitor.Monitor
	recorder *metrics.MemoryRecorder
	outDir   string
}

func newFixture(t *testing.T, threshold float64, opts ...Option) *fixture {
	t.Helper()
	outDir := filepath.Join(t.TempDir(), "content")
	local, err := storage.NewFSStore(outDir)
	require.NoError(t, err)

	rec := metrics.NewMemoryRecorder()
	mon := monitor.New(monitor.Options{
		Host:     hostinfo.Static{Snapshot: hostinfo.Snapshot{CPUCount: 2, MemoryPercent: 30}},
		Recorder: rec,
	})
	formats := []content.Format{content.FormatMarkdown, content.FormatHTML, content.FormatJSONLD}
	orch := New(
		generator.New(generator.Options{Model: "default", MaxTokens: 1000, Temperature: 0.7}),
		transform.New(convert.New(), formats),
		quality.New(quality.Options{Threshold: threshold, ConsistencyCheck: true, Scoring: quality.DefaultScoring()}),
		output.New(local, output.DefaultNamingConvention, nil),
		mon,
		append([]Option{WithRecorder(rec)}, opts...)...,
	)
	return &fixture{orch: orch, monitor: mon, recorder: rec, outDir: outDir}
}

func TestExecuteWritesAndRecords(t *testing.T) {
	f := newFixture(t, 0)
	res, err := f.orch.Execute(t.Context(), content.NewRequest("Go concurrency", "markdown", "medium"), 3)
	require.NoError(t, err)

	assert.True(t, res.Success)
	assert.Equal(t, 3, res.Iteration)
	assert.NotEmpty(t, res.RunID)
	assert.Equal(t, []string{"html", "jsonld", "markdown", "metadata"}, res.Manifest.Keys())
	for _, p := range res.Manifest {
		assert.FileExists(t, p)
	}
	assert.Equal(t, filepath.Join(f.outDir, "iteration-3", "index.md"), res.Manifest["markdown"])
	assert.Len(t, res.Validation.Scores, 3)
	assert.InDelta(t, res.Validation.Quality, res.Quality, 1e-12)

	history := f.monitor.History()
	require.Len(t, history, 1)
	assert.Equal(t, res.RunID, history[0].ID)
	assert.Equal(t, "Go concurrency", history[0].Input["topic"])
	assert.Equal(t, res.Manifest, history[0].Manifest)

	for _, s := range Stages {
		assert.Equal(t, 1, f.recorder.StageResults(string(s), metrics.ResultSuccess), s)
	}
	assert.Equal(t, 1, f.recorder.RunOutcomes(metrics.RunPassed))
	assert.Len(t, f.recorder.Quality("html"), 1)
	assert.Equal(t, 1, f.recorder.HistorySize())
}

func TestExecuteBelowThresholdIsRecordedFailure(t *testing.T) {
	f := newFixture(t, 0.95)
	res, err := f.orch.Execute(t.Context(), content.NewRequest("Go", "html", "short"), 1)
	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.Less(t, res.Quality, 0.95)
	assert.Len(t, f.monitor.History(), 1)
	assert.False(t, f.monitor.History()[0].Success)
	assert.Equal(t, 1, f.recorder.RunOutcomes(metrics.RunFailed))
}

func TestExecuteIsIdempotentPerIteration(t *testing.T) {
	f := newFixture(t, 0)
	req := content.NewRequest("Go", "jsonld", "long")
	first, err := f.orch.Execute(t.Context(), req, 5)
	require.NoError(t, err)
	firstBody, err := os.ReadFile(first.Manifest["jsonld"])
	require.NoError(t, err)

	second, err := f.orch.Execute(t.Context(), req, 5)
	require.NoError(t, err)
	assert.Equal(t, first.Manifest, second.Manifest)
	secondBody, err := os.ReadFile(second.Manifest["jsonld"])
	require.NoError(t, err)
	assert.Equal(t, firstBody, secondBody)
	assert.InDelta(t, first.Quality, second.Quality, 1e-12)
	assert.Len(t, f.monitor.History(), 2)
}

func TestExecuteOutputFailureIsNotRecorded(t *testing.T) {
	fast := retry.Policy{Mode: config.RetryBackoffFixed, Initial: time.Millisecond, Max: time.Millisecond, MaxRetries: 1}
	f := newFixture(t, 0, WithOutputRetry(fast))
	// Replace the output root with a regular file so every write fails.
	require.NoError(t, os.RemoveAll(f.outDir))
	require.NoError(t, os.WriteFile(f.outDir, []byte("blocked"), 0o600))

	res, err := f.orch.Execute(t.Context(), content.NewRequest("Go", "markdown", "short"), 1)
	require.Error(t, err)
	assert.Nil(t, res)
	assert.True(t, derrors.HasCategory(err, derrors.CategoryOutput))
	assert.Empty(t, f.monitor.History())
	assert.Equal(t, 1, f.recorder.StageResults(string(StageOutput), metrics.ResultFatal))
	assert.Equal(t, 1, f.recorder.RunOutcomes(metrics.RunError))
}

func TestExecuteCanceledDuringLatency(t *testing.T) {
	f := newFixture(t, 0, WithStageLatency(time.Hour))
	ctx, cancel := context.WithCancel(t.Context())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	_, err := f.orch.Execute(ctx, content.NewRequest("Go", "markdown", "short"), 1)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, f.monitor.History())
	assert.Equal(t, 1, f.recorder.RunOutcomes(metrics.RunCanceled))
}

func TestExecutePublishesLifecycleEvents(t *testing.T) {
	bus := NewBus()
	var mu sync.Mutex
	var names []string
	collect := func(e Event) error {
		mu.Lock()
		defer mu.Unlock()
		names = append(names, e.Name())
		return nil
	}
	for _, ev := range []string{EventRunStarted, EventStageCompleted, EventRunCompleted, EventRunFailed} {
		bus.Subscribe(ev, collect)
	}
	bus.Subscribe(EventRunCompleted, func(Event) error { return errors.New("handler failure is only logged") })

	f := newFixture(t, 0, WithBus(bus))
	_, err := f.orch.Execute(t.Context(), content.NewRequest("Go", "markdown", "short"), 1)
	require.NoError(t, err)
	assert.Equal(t, []string{
		EventRunStarted,
		EventStageCompleted, EventStageCompleted, EventStageCompleted, EventStageCompleted,
		EventRunCompleted,
	}, names)
}

func TestRunBatchCollectsFailures(t *testing.T) {
	f := newFixture(t, 0)
	reqs := []content.Request{
		content.NewRequest("Go", "markdown", "short"),
		content.NewRequest("Rust", "html", "medium"),
		content.NewRequest("Zig", "jsonld", "long"),
	}
	br, err := f.orch.RunBatch(t.Context(), reqs, 10)
	require.NoError(t, err)
	require.Len(t, br.Results, 3)
	assert.Empty(t, br.Failed)
	assert.Equal(t, 3, br.Passed())
	assert.Equal(t, []int{10, 11, 12}, []int{br.Results[0].Iteration, br.Results[1].Iteration, br.Results[2].Iteration})
	assert.DirExists(t, filepath.Join(f.outDir, "iteration-12"))
}

func TestRunBatchStopsOnCancel(t *testing.T) {
	f := newFixture(t, 0)
	ctx, cancel := context.WithCancel(t.Context())
	cancel()
	br, err := f.orch.RunBatch(ctx, []content.Request{content.NewRequest("Go", "", "")}, 1)
	require.Error(t, err)
	assert.True(t, derrors.HasCategory(err, derrors.CategoryRuntime))
	assert.Empty(t, br.Results)
}

func TestBenchmark(t *testing.T) {
	f := newFixture(t, 0)
	br, err := f.orch.Benchmark(t.Context(), content.NewRequest("Go", "markdown", "short"), 3, 1)
	require.NoError(t, err)
	assert.Equal(t, 3, br.Iterations)
	assert.Equal(t, 3, br.Passed)
	assert.Greater(t, br.AverageQuality, 0.0)
	assert.Len(t, f.monitor.History(), 3)

	_, err = f.orch.Benchmark(t.Context(), content.NewRequest("Go", "", ""), 0, 1)
	assert.True(t, derrors.HasCategory(err, derrors.CategoryValidation))
}

func TestDeadLetterQueue(t *testing.T) {
	dlq := NewDeadLetterQueue()
	dlq.Enqueue(FailedRun{Iteration: 1, Error: errors.New("boom")})
	dlq.Enqueue(FailedRun{Iteration: 2, Error: errors.New("bang")})
	assert.Equal(t, 2, dlq.Count())
	all := dlq.GetAll()
	all[0].Iteration = 99
	assert.Equal(t, 1, dlq.GetAll()[0].Iteration)
	dlq.Clear()
	assert.Zero(t, dlq.Count())
}

func TestFailedRunJSON(t *testing.T) {
	fr := FailedRun{
		Request:   content.NewRequest("Go", "html", "short"),
		Iteration: 4,
		Error:     errors.New("disk full"),
		Timestamp: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
	}
	data, err := json.Marshal(fr)
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"input_data": {"topic": "Go", "format": "html", "length": "short"},
		"iteration": 4,
		"error": "disk full",
		"timestamp": "2026-01-02T03:04:05Z"
	}`, string(data))
}

func TestBusRunsAllHandlers(t *testing.T) {
	bus := NewBus()
	calls := 0
	bus.Subscribe(EventRunStarted, func(Event) error { calls++; return errors.New("first") })
	bus.Subscribe(EventRunStarted, func(Event) error { calls++; return nil })
	bus.Subscribe(EventRunStarted, nil)

	err := bus.Publish(RunStarted{RunID: "r"})
	require.Error(t, err)
	assert.Equal(t, 2, calls)
	assert.NoError(t, bus.Publish(RunCompleted{}))
}
