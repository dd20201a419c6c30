// Package hostinfo takes best-effort snapshots of host resource usage.
package hostinfo

import (
	"context"
	"errors"
	"runtime"
)

// ErrUnsupported is returned by the collector on platforms without /proc.
var ErrUnsupported = errors.New("host metrics are not supported on " + runtime.GOOS)

// Snapshot is a point-in-time view of host resources. The zero value is the
// empty snapshot used when metrics are unavailable; it encodes as {}.
type Snapshot struct {
	CPUPercent        float64 `json:"cpu_percent,omitempty"`
	CPUCount          int     `json:"cpu_count,omitempty"`
	MemoryPercent     float64 `json:"memory_percent,omitempty"`
	MemoryTotalGB     float64 `json:"memory_total_gb,omitempty"`
	MemoryAvailableGB float64 `json:"memory_available_gb,omitempty"`
	DiskPercent       float64 `json:"disk_percent,omitempty"`
	DiskFreeGB        float64 `json:"disk_free_gb,omitempty"`
	ProcessRSSMB      float64 `json:"process_rss_mb,omitempty"`
	ProcessCPUSeconds float64 `json:"process_cpu_seconds,omitempty"`
}

// Empty reports whether the snapshot carries no data.
func (s Snapshot) Empty() bool { return s == Snapshot{} }

// Collector reads a Snapshot.
type Collector interface {
	Collect(ctx context.Context) (Snapshot, error)
}

// Static is a Collector returning a fixed snapshot or error.
type Static struct {
	Snapshot Snapshot
	Err      error
}

// Collect returns the fixed values.
func (s Static) Collect(context.Context) (Snapshot, error) {
	return s.Snapshot, s.Err
}

const (
	bytesPerGB = 1 << 30
	bytesPerMB = 1 << 20
)

func percent(part, whole float64) float64 {
	if whole <= 0 {
		return 0
	}
	return round2(part / whole * 100)
}

func round2(v float64) float64 {
	return float64(int64(v*100+0.5)) / 100
}
