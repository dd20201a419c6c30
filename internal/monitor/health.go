package monitor

import (
	"context"
	"fmt"
	"time"

	"git.home.luguber.info/inful/echopipe/internal/hostinfo"
)

// HealthStatus is the tri-state health signal of the monitor.
type HealthStatus string

const (
	HealthStatusHealthy HealthStatus = "healthy"
	HealthStatusWarning HealthStatus = "warning"
	HealthStatusError   HealthStatus = "error"
)

// ResourceThreshold is the memory and disk usage percentage above which
// health degrades to warning.
const ResourceThreshold = 90.0

const (
	MsgHighMemory         = "High memory usage"
	MsgHighDisk           = "High disk usage"
	MsgHostUnavailable    = "Host metrics unavailable"
	MsgMetricsNotWritable = "Metrics location not writable"
)

// Health is the diagnostic response of Monitor.Health.
type Health struct {
	Status          HealthStatus      `json:"status"`
	Timestamp       time.Time         `json:"timestamp"`
	Backend         string            `json:"backend"`
	MetricsLocation string            `json:"metrics_location"`
	MetricsWritable bool              `json:"metrics_writable"`
	HistorySize     int               `json:"execution_history_size"`
	SystemResources hostinfo.Snapshot `json:"system_resources"`
	Warnings        []string          `json:"warnings,omitempty"`
	Errors          []string          `json:"errors,omitempty"`
}

// Health derives the health signal from host resource usage and from
// whether the backend accepts writes. It never gates pipeline execution.
func (m *Monitor) Health(ctx context.Context) Health {
	h := Health{
		Timestamp:       m.now(),
		Backend:         m.backend.Name(),
		MetricsLocation: m.backend.Location(),
		MetricsWritable: true,
	}
	m.mu.RLock()
	h.HistorySize = len(m.history)
	m.mu.RUnlock()

	snap, err := m.host.Collect(ctx)
	switch {
	case err != nil:
		h.Warnings = append(h.Warnings, fmt.Sprintf("%s: %v", MsgHostUnavailable, err))
	default:
		h.SystemResources = snap
		if snap.MemoryPercent > ResourceThreshold {
			h.Warnings = append(h.Warnings, MsgHighMemory)
		}
		if snap.DiskPercent > ResourceThreshold {
			h.Warnings = append(h.Warnings, MsgHighDisk)
		}
	}

	if err := m.backend.CheckWritable(ctx); err != nil {
		h.MetricsWritable = false
		h.Errors = append(h.Errors, fmt.Sprintf("%s: %v", MsgMetricsNotWritable, err))
	}

	switch {
	case len(h.Errors) > 0:
		h.Status = HealthStatusError
	case len(h.Warnings) > 0:
		h.Status = HealthStatusWarning
	default:
		h.Status = HealthStatusHealthy
	}
	return h
}
