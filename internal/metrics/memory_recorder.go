package metrics

import (
	"sync"
	"time"
)

// MemoryRecorder keeps counts in memory. It backs tests and the CLI's
// end-of-batch summary.
type MemoryRecorder struct {
	mu             sync.Mutex
	stageDurations map[string]int
	stageResults   map[string]map[ResultLabel]int
	runDurations   int
	runOutcomes    map[RunOutcomeLabel]int
	quality        map[string][]float64
	consistency    []float64
	conversions    map[string]int
	historySize    int
	monitorFails   map[string]int
}

// NewMemoryRecorder returns an empty recorder.
func NewMemoryRecorder() *MemoryRecorder {
	return &MemoryRecorder{
		stageDurations: map[string]int{},
		stageResults:   map[string]map[ResultLabel]int{},
		runOutcomes:    map[RunOutcomeLabel]int{},
		quality:        map[string][]float64{},
		conversions:    map[string]int{},
		monitorFails:   map[string]int{},
	}
}

func (m *MemoryRecorder) ObserveStageDuration(stage string, _ time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stageDurations[stage]++
}

func (m *MemoryRecorder) IncStageResult(stage string, result ResultLabel) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.stageResults[stage]
	if !ok {
		r = map[ResultLabel]int{}
		m.stageResults[stage] = r
	}
	r[result]++
}

func (m *MemoryRecorder) ObserveRunDuration(time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.runDurations++
}

func (m *MemoryRecorder) IncRunOutcome(outcome RunOutcomeLabel) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.runOutcomes[outcome]++
}

func (m *MemoryRecorder) ObserveQuality(format string, q float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.quality[format] = append(m.quality[format], q)
}

func (m *MemoryRecorder) ObserveConsistency(c float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.consistency = append(m.consistency, c)
}

func (m *MemoryRecorder) IncConversion(from, to, status string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.conversions[from+"->"+to+":"+status]++
}

func (m *MemoryRecorder) SetHistorySize(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.historySize = n
}

func (m *MemoryRecorder) IncMonitorFailure(operation string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.monitorFails[operation]++
}

// StageDurations returns how many durations were observed for stage.
func (m *MemoryRecorder) StageDurations(stage string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stageDurations[stage]
}

// StageResults returns the count of result for stage.
func (m *MemoryRecorder) StageResults(stage string, result ResultLabel) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stageResults[stage][result]
}

// RunOutcomes returns the count of outcome.
func (m *MemoryRecorder) RunOutcomes(outcome RunOutcomeLabel) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.runOutcomes[outcome]
}

// Quality returns the observed quality scores of format.
func (m *MemoryRecorder) Quality(format string) []float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]float64(nil), m.quality[format]...)
}

// Conversions returns the count for a from/to/status triple.
func (m *MemoryRecorder) Conversions(from, to, status string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.conversions[from+"->"+to+":"+status]
}

// HistorySize returns the last reported history size.
func (m *MemoryRecorder) HistorySize() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.historySize
}

// MonitorFailures returns the count of failures for operation.
func (m *MemoryRecorder) MonitorFailures(operation string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.monitorFails[operation]
}

// Runs returns the number of observed run durations.
func (m *MemoryRecorder) Runs() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.runDurations
}
