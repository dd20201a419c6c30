package monitor

import (
	"context"
	"encoding/json"
	"log/slog"
	"maps"
	"sync"
	"time"

	"github.com/google/uuid"

	derrors "git.home.luguber.info/inful/echopipe/internal/foundation/errors"
	"git.home.luguber.info/inful/echopipe/internal/hostinfo"
	"git.home.luguber.info/inful/echopipe/internal/logfields"
	"git.home.luguber.info/inful/echopipe/internal/metrics"
)

// DefaultHistoryLimit bounds the in-memory history when Options.HistoryLimit is unset.
const DefaultHistoryLimit = 1000

var nowFunc = time.Now

// Options configures a Monitor. Zero values select defaults.
type Options struct {
	HistoryLimit int
	Backend      Backend
	Publisher    Publisher
	Host         hostinfo.Collector
	Recorder     metrics.Recorder
	Now          func() time.Time
	NewID        func() string
}

// Monitor owns the execution history of a process. It is safe for concurrent use.
type Monitor struct {
	mu      sync.RWMutex
	history []ExecutionRecord

	limit     int
	backend   Backend
	publisher Publisher
	host      hostinfo.Collector
	recorder  metrics.Recorder
	now       func() time.Time
	newID     func() string
}

// New creates a Monitor. Without a backend records are kept in memory only.
func New(opts Options) *Monitor {
	m := &Monitor{
		limit:     opts.HistoryLimit,
		backend:   opts.Backend,
		publisher: opts.Publisher,
		host:      opts.Host,
		recorder:  opts.Recorder,
		now:       opts.Now,
		newID:     opts.NewID,
	}
	if m.limit <= 0 {
		m.limit = DefaultHistoryLimit
	}
	if m.backend == nil {
		m.backend = NewMemoryBackend()
	}
	if m.host == nil {
		m.host = hostinfo.ProcCollector{}
	}
	if m.recorder == nil {
		m.recorder = metrics.NoopRecorder{}
	}
	if m.now == nil {
		m.now = nowFunc
	}
	if m.newID == nil {
		m.newID = func() string { return uuid.NewString() }
	}
	return m
}

// Backend returns the persistence backend.
func (m *Monitor) Backend() Backend { return m.backend }

// Start begins tracking a run and captures a host snapshot.
func (m *Monitor) Start(ctx context.Context, input map[string]string, iteration int) *Run {
	return &Run{
		ID:         m.newID(),
		Iteration:  iteration,
		StartedAt:  m.now(),
		Input:      maps.Clone(input),
		SystemInfo: m.snapshot(ctx),
	}
}

// Record completes run with outcome, appends it to the history and persists
// it. The in-memory append always happens; a persistence failure is returned
// and a publish failure is only logged.
func (m *Monitor) Record(ctx context.Context, run *Run, out Outcome) (ExecutionRecord, error) {
	if run == nil {
		return ExecutionRecord{}, derrors.MonitorError("cannot record a run that was never started").Build()
	}
	ended := m.now()
	rec := ExecutionRecord{
		ID:          run.ID,
		Iteration:   run.Iteration,
		StartedAt:   run.StartedAt,
		EndedAt:     ended,
		Duration:    ended.Sub(run.StartedAt).Seconds(),
		Input:       maps.Clone(run.Input),
		Success:     out.Success,
		Quality:     out.Quality,
		Consistency: out.Consistency,
		Manifest:    maps.Clone(out.Manifest),
		SystemInfo:  run.SystemInfo,
		Performance: m.snapshot(ctx),
	}

	m.mu.Lock()
	m.history = append(m.history, rec)
	if over := len(m.history) - m.limit; over > 0 {
		m.history = append(m.history[:0:0], m.history[over:]...)
	}
	size := len(m.history)
	m.mu.Unlock()
	m.recorder.SetHistorySize(size)

	var persistErr error
	if err := m.backend.SaveRecord(ctx, rec); err != nil {
		m.recorder.IncMonitorFailure("persist")
		slog.Warn("Failed to persist execution record",
			logfields.RunID(rec.ID),
			slog.String("backend", m.backend.Name()),
			logfields.Error(err))
		persistErr = derrors.WrapError(err, derrors.CategoryMonitor, "failed to persist execution record").
			WithContext("run_id", rec.ID).
			Build()
	}
	if m.publisher != nil {
		if err := m.publisher.Publish(ctx, rec); err != nil {
			m.recorder.IncMonitorFailure("publish")
			slog.Warn("Failed to publish execution record", logfields.RunID(rec.ID), logfields.Error(err))
		}
	}

	slog.Info("Execution recorded",
		logfields.RunID(rec.ID),
		logfields.Iteration(rec.Iteration),
		logfields.Quality(rec.Quality),
		slog.Bool("success", rec.Success),
		slog.Float64("duration_s", rec.Duration))
	return rec.Clone(), persistErr
}

// Load replaces the in-memory history with the most recent persisted records.
func (m *Monitor) Load(ctx context.Context) (int, error) {
	records, err := m.backend.Recent(ctx, m.limit)
	if err != nil {
		return 0, err
	}
	m.mu.Lock()
	m.history = records
	m.mu.Unlock()
	m.recorder.SetHistorySize(len(records))
	return len(records), nil
}

// History returns a copy of the in-memory history, oldest first.
func (m *Monitor) History() []ExecutionRecord {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]ExecutionRecord, len(m.history))
	for i, r := range m.history {
		out[i] = r.Clone()
	}
	return out
}

// Clear empties the in-memory history. Persisted records are kept.
func (m *Monitor) Clear() {
	m.mu.Lock()
	m.history = nil
	m.mu.Unlock()
	m.recorder.SetHistorySize(0)
	slog.Info("Execution history cleared")
}

// Purge clears the history and deletes every persisted record.
func (m *Monitor) Purge(ctx context.Context) (int, error) {
	m.Clear()
	n, err := m.backend.DeleteRecords(ctx)
	if err != nil {
		return n, err
	}
	slog.Info("Persisted execution records deleted", slog.Int("count", n), slog.String("backend", m.backend.Name()))
	return n, nil
}

// MetricsFiles lists the names of persisted records and reports.
func (m *Monitor) MetricsFiles(ctx context.Context) ([]string, error) {
	return m.backend.List(ctx)
}

// LoadRecord reads one persisted record by name.
func (m *Monitor) LoadRecord(ctx context.Context, name string) (ExecutionRecord, error) {
	return m.backend.LoadRecord(ctx, name)
}

// SaveReport builds a report and persists it under name, or under a
// timestamped default name when name is empty. It returns the location.
func (m *Monitor) SaveReport(ctx context.Context, name string) (string, error) {
	report := m.Report(ctx)
	if name == "" {
		name = ReportName(report.GeneratedAt)
	}
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return "", derrors.WrapError(err, derrors.CategoryMonitor, "failed to encode performance report").Build()
	}
	loc, err := m.backend.SaveReport(ctx, name, data)
	if err != nil {
		return "", err
	}
	slog.Info("Performance report saved", logfields.Path(loc))
	return loc, nil
}

// snapshot reads host metrics, degrading to an empty snapshot on failure.
func (m *Monitor) snapshot(ctx context.Context) hostinfo.Snapshot {
	snap, err := m.host.Collect(ctx)
	if err != nil {
		slog.Warn("Host metrics unavailable", logfields.Error(err))
		return hostinfo.Snapshot{}
	}
	return snap
}

// Close releases the publisher and the backend.
func (m *Monitor) Close() error {
	if m.publisher != nil {
		if err := m.publisher.Close(); err != nil {
			slog.Warn("Failed to close publisher", logfields.Error(err))
		}
	}
	return m.backend.Close()
}
