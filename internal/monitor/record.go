package monitor

import (
	"fmt"
	"maps"
	"strings"
	"time"

	"git.home.luguber.info/inful/echopipe/internal/content"
	"git.home.luguber.info/inful/echopipe/internal/hostinfo"
)

const (
	recordPrefix = "execution_"
	reportPrefix = "performance_report_"
	fileSuffix   = ".json"

	// TimestampLayout is the timestamp embedded in record and report names.
	TimestampLayout = "20060102_150405"
)

// ExecutionRecord is the telemetry captured for one completed pipeline run.
type ExecutionRecord struct {
	ID          string            `json:"execution_id"`
	Iteration   int               `json:"iteration"`
	StartedAt   time.Time         `json:"start_time"`
	EndedAt     time.Time         `json:"end_time"`
	Duration    float64           `json:"duration"`
	Input       map[string]string `json:"input_data"`
	Success     bool              `json:"success"`
	Quality     float64           `json:"quality_score"`
	Consistency float64           `json:"consistency_score"`
	Manifest    content.Manifest  `json:"output_files"`
	SystemInfo  hostinfo.Snapshot `json:"system_info"`
	Performance hostinfo.Snapshot `json:"performance_metrics"`
}

// Name returns the persisted name of the record.
func (r ExecutionRecord) Name() string {
	return RecordName(r.ID, r.EndedAt)
}

// Clone returns a deep copy of the record.
func (r ExecutionRecord) Clone() ExecutionRecord {
	r.Input = maps.Clone(r.Input)
	r.Manifest = maps.Clone(r.Manifest)
	return r
}

// Run is an execution in progress, returned by Monitor.Start.
type Run struct {
	ID         string
	Iteration  int
	StartedAt  time.Time
	Input      map[string]string
	SystemInfo hostinfo.Snapshot
}

// Outcome carries the results the orchestrator hands to Monitor.Record.
type Outcome struct {
	Success     bool
	Quality     float64
	Consistency float64
	Manifest    content.Manifest
}

// RecordName builds "execution_<id>_<YYYYMMDD_HHMMSS>.json".
func RecordName(id string, at time.Time) string {
	return fmt.Sprintf("%s%s_%s%s", recordPrefix, id, at.UTC().Format(TimestampLayout), fileSuffix)
}

// ReportName builds "performance_report_<YYYYMMDD_HHMMSS>.json".
func ReportName(at time.Time) string {
	return reportPrefix + at.UTC().Format(TimestampLayout) + fileSuffix
}

// IsRecordName reports whether name looks like a persisted execution record.
func IsRecordName(name string) bool {
	return strings.HasPrefix(name, recordPrefix) && strings.HasSuffix(name, fileSuffix)
}
