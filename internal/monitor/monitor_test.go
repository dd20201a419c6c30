package monitor

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/echopipe/internal/content"
	derrors "git.home.luguber.info/inful/echopipe/internal/foundation/errors"
	"git.home.luguber.info/inful/echopipe/internal/hostinfo"
	"git.home.luguber.info/inful/echopipe/internal/metrics"
	"git.home.luguber.info/inful/echopipe/internal/storage"
)

var baseTime = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

// stepClock advances one second per call.
type stepClock struct {
	mu sync.Mutex
	n  int
}

func (c *stepClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.n++
	return baseTime.Add(time.Duration(c.n) * time.Second)
}

type seqIDs struct {
	mu sync.Mutex
	n  int
}

func (s *seqIDs) Next() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.n++
	return fmt.Sprintf("run-%03d", s.n)
}

type recordingPublisher struct {
	mu      sync.Mutex
	records []ExecutionRecord
	err     error
}

func (p *recordingPublisher) Publish(_ context.Context, rec ExecutionRecord) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.records = append(p.records, rec)
	return p.err
}

func (p *recordingPublisher) Close() error { return nil }

var healthyHost = hostinfo.Static{Snapshot: hostinfo.Snapshot{CPUPercent: 12.5, CPUCount: 4, MemoryPercent: 40, DiskPercent: 55}}

func newTestMonitor(t *testing.T, opts Options) *Monitor {
	t.Helper()
	if opts.Host == nil {
		opts.Host = healthyHost
	}
	if opts.Now == nil {
		opts.Now = (&stepClock{}).Now
	}
	if opts.NewID == nil {
		opts.NewID = (&seqIDs{}).Next
	}
	return New(opts)
}

func recordRun(t *testing.T, m *Monitor, iteration int, quality float64, success bool) ExecutionRecord {
	t.Helper()
	run := m.Start(t.Context(), map[string]string{"topic": "Go"}, iteration)
	rec, err := m.Record(t.Context(), run, Outcome{
		Success:     success,
		Quality:     quality,
		Consistency: 1,
		Manifest:    content.Manifest{"markdown": fmt.Sprintf("out/iteration-%d/index.md", iteration)},
	})
	require.NoError(t, err)
	return rec
}

func TestRecordAppendsAndPersists(t *testing.T) {
	m := newTestMonitor(t, Options{})
	input := map[string]string{"topic": "Go"}
	run := m.Start(t.Context(), input, 7)
	input["topic"] = "mutated"

	rec, err := m.Record(t.Context(), run, Outcome{Success: true, Quality: 0.9, Consistency: 1})
	require.NoError(t, err)

	assert.Equal(t, "run-001", rec.ID)
	assert.Equal(t, 7, rec.Iteration)
	assert.Equal(t, "Go", rec.Input["topic"])
	assert.InDelta(t, 1.0, rec.Duration, 1e-9)
	assert.Equal(t, healthyHost.Snapshot, rec.SystemInfo)
	assert.Equal(t, healthyHost.Snapshot, rec.Performance)
	assert.Equal(t, "execution_run-001_20250301_120002.json", rec.Name())

	require.Len(t, m.History(), 1)
	stored, err := m.LoadRecord(t.Context(), rec.Name())
	require.NoError(t, err)
	assert.Equal(t, rec.ID, stored.ID)
	assert.InDelta(t, 0.9, stored.Quality, 1e-12)
}

func TestHistoryReturnsCopies(t *testing.T) {
	m := newTestMonitor(t, Options{})
	recordRun(t, m, 1, 0.9, true)

	h := m.History()
	h[0].Input["topic"] = "changed"
	h[0].Quality = 0

	again := m.History()
	assert.Equal(t, "Go", again[0].Input["topic"])
	assert.InDelta(t, 0.9, again[0].Quality, 1e-12)
}

func TestHistoryLimitDropsOldest(t *testing.T) {
	rec := metrics.NewMemoryRecorder()
	m := newTestMonitor(t, Options{HistoryLimit: 3, Recorder: rec})
	for i := 1; i <= 5; i++ {
		recordRun(t, m, i, 0.8, true)
	}
	h := m.History()
	require.Len(t, h, 3)
	assert.Equal(t, 3, h[0].Iteration)
	assert.Equal(t, 5, h[2].Iteration)
	assert.Equal(t, 3, rec.HistorySize())

	// All five are still persisted.
	files, err := m.MetricsFiles(t.Context())
	require.NoError(t, err)
	assert.Len(t, files, 5)
}

func TestRecordNilRun(t *testing.T) {
	m := newTestMonitor(t, Options{})
	_, err := m.Record(t.Context(), nil, Outcome{})
	require.Error(t, err)
	assert.True(t, derrors.HasCategory(err, derrors.CategoryMonitor))
	assert.Empty(t, m.History())
}

func TestRecordPersistFailureKeepsHistory(t *testing.T) {
	store := storage.NewMemoryStore()
	store.FailPut = errors.New("disk full")
	rec := metrics.NewMemoryRecorder()
	m := newTestMonitor(t, Options{Backend: NewBlobBackend("memory", store), Recorder: rec})

	run := m.Start(t.Context(), nil, 1)
	out, err := m.Record(t.Context(), run, Outcome{Success: true, Quality: 1})
	require.Error(t, err)
	assert.True(t, derrors.HasCategory(err, derrors.CategoryMonitor))
	assert.Equal(t, run.ID, out.ID)
	assert.Len(t, m.History(), 1)
	assert.Equal(t, 1, rec.MonitorFailures("persist"))
}

func TestRecordPublishes(t *testing.T) {
	pub := &recordingPublisher{}
	m := newTestMonitor(t, Options{Publisher: pub})
	rec := recordRun(t, m, 1, 0.85, true)
	require.Len(t, pub.records, 1)
	assert.Equal(t, rec.ID, pub.records[0].ID)
}

func TestRecordPublishFailureIsNotFatal(t *testing.T) {
	pub := &recordingPublisher{err: errors.New("no responders")}
	rec := metrics.NewMemoryRecorder()
	m := newTestMonitor(t, Options{Publisher: pub, Recorder: rec})

	run := m.Start(t.Context(), nil, 1)
	_, err := m.Record(t.Context(), run, Outcome{Quality: 0.5})
	require.NoError(t, err)
	assert.Len(t, m.History(), 1)
	assert.Equal(t, 1, rec.MonitorFailures("publish"))
}

func TestHostFailureDegradesToEmptySnapshot(t *testing.T) {
	m := newTestMonitor(t, Options{Host: hostinfo.Static{Err: hostinfo.ErrUnsupported}})
	rec := recordRun(t, m, 1, 0.9, true)
	assert.True(t, rec.SystemInfo.Empty())
	assert.True(t, rec.Performance.Empty())
}

func TestConcurrentRecords(t *testing.T) {
	m := newTestMonitor(t, Options{})
	var wg sync.WaitGroup
	for i := range 40 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			run := m.Start(context.Background(), nil, i)
			_, _ = m.Record(context.Background(), run, Outcome{Quality: 0.5})
		}()
	}
	wg.Wait()

	h := m.History()
	require.Len(t, h, 40)
	seen := make(map[string]bool)
	for _, r := range h {
		seen[r.ID] = true
	}
	assert.Len(t, seen, 40)
}

func TestSummary(t *testing.T) {
	m := newTestMonitor(t, Options{})
	empty := m.Summary(10)
	assert.Equal(t, MsgNoExecutions, empty.Message)
	assert.Zero(t, empty.TotalExecutions)

	recordRun(t, m, 1, 0.6, false)
	recordRun(t, m, 2, 0.9, true)
	recordRun(t, m, 3, 0.9, true)

	s := m.Summary(2)
	assert.Empty(t, s.Message)
	assert.Equal(t, 3, s.TotalExecutions)
	assert.Equal(t, 2, s.Successful)
	assert.InDelta(t, 0.8, s.AverageQuality, 1e-9)
	assert.InDelta(t, 0.6, s.MinQuality, 1e-9)
	assert.InDelta(t, 0.9, s.MaxQuality, 1e-9)
	assert.InDelta(t, 1.0, s.AverageDuration, 1e-9)
	assert.InDelta(t, 2.0/3.0, s.SuccessRate, 1e-9)
	require.Len(t, s.RecentExecutions, 2)
	assert.Equal(t, 2, s.RecentExecutions[0].Iteration)

	assert.Len(t, m.Summary(0).RecentExecutions, 3)
}

func TestReport(t *testing.T) {
	m := newTestMonitor(t, Options{})
	empty := m.Report(t.Context())
	assert.True(t, empty.Empty())
	assert.Equal(t, MsgNoHistory, empty.Message)

	for i := 1; i <= 12; i++ {
		recordRun(t, m, i, float64(i)/20, i%2 == 0)
	}
	r := m.Report(t.Context())
	assert.Equal(t, 12, r.TotalExecutions)
	assert.Equal(t, 10, r.RecentTrends.Window)
	// Iterations 3..12 → qualities 0.15..0.60.
	assert.InDelta(t, 0.375, r.RecentTrends.AverageQuality, 1e-9)
	assert.InDelta(t, 0.45, r.RecentTrends.QualityImprovement, 1e-9)
	assert.InDelta(t, 0.5, r.RecentTrends.SuccessRate, 1e-9)
	require.Len(t, r.ExecutionHistory, 5)
	assert.Equal(t, 8, r.ExecutionHistory[0].Iteration)
	assert.Equal(t, healthyHost.Snapshot, r.SystemMetrics)
}

func TestSaveReportAndMetricsFiles(t *testing.T) {
	dir := t.TempDir()
	backend, err := NewFileBackend(dir)
	require.NoError(t, err)
	m := newTestMonitor(t, Options{Backend: backend})
	rec := recordRun(t, m, 1, 0.9, true)

	loc, err := m.SaveReport(t.Context(), "")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "performance_report_20250301_120003.json"), loc)
	assert.FileExists(t, loc)
	assert.FileExists(t, filepath.Join(dir, rec.Name()))

	files, err := m.MetricsFiles(t.Context())
	require.NoError(t, err)
	assert.Equal(t, []string{rec.Name(), "performance_report_20250301_120003.json"}, files)

	named, err := m.SaveReport(t.Context(), "weekly.json")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "weekly.json"), named)
}

func TestLoadRestoresHistory(t *testing.T) {
	dir := t.TempDir()
	backend, err := NewFileBackend(dir)
	require.NoError(t, err)
	clock := &stepClock{}
	first := newTestMonitor(t, Options{Backend: backend, Now: clock.Now})
	for i := 1; i <= 4; i++ {
		recordRun(t, first, i, 0.7, true)
	}

	again, err := NewFileBackend(dir)
	require.NoError(t, err)
	second := newTestMonitor(t, Options{Backend: again, HistoryLimit: 3})
	n, err := second.Load(t.Context())
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	h := second.History()
	assert.Equal(t, []int{2, 3, 4}, []int{h[0].Iteration, h[1].Iteration, h[2].Iteration})
}

func TestClearAndPurge(t *testing.T) {
	m := newTestMonitor(t, Options{})
	rec := recordRun(t, m, 1, 0.9, true)
	recordRun(t, m, 2, 0.9, true)
	_, err := m.SaveReport(t.Context(), "")
	require.NoError(t, err)

	m.Clear()
	assert.Empty(t, m.History())
	_, err = m.LoadRecord(t.Context(), rec.Name())
	require.NoError(t, err, "clear keeps persisted records")

	n, err := m.Purge(t.Context())
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	_, err = m.LoadRecord(t.Context(), rec.Name())
	assert.True(t, derrors.HasCategory(err, derrors.CategoryNotFound))

	files, err := m.MetricsFiles(t.Context())
	require.NoError(t, err)
	assert.Len(t, files, 1, "reports survive a purge")
}

func TestHealth(t *testing.T) {
	t.Run("healthy", func(t *testing.T) {
		m := newTestMonitor(t, Options{})
		recordRun(t, m, 1, 0.9, true)
		h := m.Health(t.Context())
		assert.Equal(t, HealthStatusHealthy, h.Status)
		assert.True(t, h.MetricsWritable)
		assert.Equal(t, 1, h.HistorySize)
		assert.Equal(t, "memory", h.Backend)
		assert.Empty(t, h.Warnings)
	})

	t.Run("high resource usage warns", func(t *testing.T) {
		host := hostinfo.Static{Snapshot: hostinfo.Snapshot{MemoryPercent: 95, DiskPercent: 91}}
		h := newTestMonitor(t, Options{Host: host}).Health(t.Context())
		assert.Equal(t, HealthStatusWarning, h.Status)
		assert.Equal(t, []string{MsgHighMemory, MsgHighDisk}, h.Warnings)
	})

	t.Run("exactly at threshold is healthy", func(t *testing.T) {
		host := hostinfo.Static{Snapshot: hostinfo.Snapshot{MemoryPercent: 90, DiskPercent: 90}}
		h := newTestMonitor(t, Options{Host: host}).Health(t.Context())
		assert.Equal(t, HealthStatusHealthy, h.Status)
	})

	t.Run("missing host metrics warns", func(t *testing.T) {
		h := newTestMonitor(t, Options{Host: hostinfo.Static{Err: hostinfo.ErrUnsupported}}).Health(t.Context())
		assert.Equal(t, HealthStatusWarning, h.Status)
		require.Len(t, h.Warnings, 1)
		assert.Contains(t, h.Warnings[0], MsgHostUnavailable)
	})

	t.Run("unwritable backend is an error", func(t *testing.T) {
		store := storage.NewMemoryStore()
		store.FailPut = errors.New("read-only")
		host := hostinfo.Static{Snapshot: hostinfo.Snapshot{MemoryPercent: 95}}
		h := newTestMonitor(t, Options{Backend: NewBlobBackend("memory", store), Host: host}).Health(t.Context())
		assert.Equal(t, HealthStatusError, h.Status)
		assert.False(t, h.MetricsWritable)
		require.Len(t, h.Errors, 1)
		assert.Contains(t, h.Errors[0], MsgMetricsNotWritable)
	})

	t.Run("unwritable directory is an error", func(t *testing.T) {
		if os.Geteuid() == 0 {
			t.Skip("root ignores directory permissions")
		}
		dir := t.TempDir()
		backend, err := NewFileBackend(dir)
		require.NoError(t, err)
		require.NoError(t, os.Chmod(dir, 0o500))
		t.Cleanup(func() { _ = os.Chmod(dir, 0o750) })
		h := newTestMonitor(t, Options{Backend: backend}).Health(t.Context())
		assert.Equal(t, HealthStatusError, h.Status)
	})
}

func TestRecordNames(t *testing.T) {
	at := time.Date(2024, 12, 31, 23, 59, 58, 0, time.UTC)
	assert.Equal(t, "execution_abc_20241231_235958.json", RecordName("abc", at))
	assert.Equal(t, "performance_report_20241231_235958.json", ReportName(at))
	assert.True(t, IsRecordName("execution_abc_20241231_235958.json"))
	assert.False(t, IsRecordName("performance_report_20241231_235958.json"))
}
