package config

import "git.home.luguber.info/inful/echopipe/internal/foundation/normalization"

// MonitorBackend selects where execution records are persisted.
type MonitorBackend string

const (
	MonitorBackendMemory   MonitorBackend = "memory"
	MonitorBackendFile     MonitorBackend = "file"
	MonitorBackendSQLite   MonitorBackend = "sqlite"
	MonitorBackendPostgres MonitorBackend = "postgres"
)

var monitorBackends = normalization.NewNormalizer(map[string]MonitorBackend{
	"memory":     MonitorBackendMemory,
	"file":       MonitorBackendFile,
	"filesystem": MonitorBackendFile,
	"sqlite":     MonitorBackendSQLite,
	"postgres":   MonitorBackendPostgres,
	"postgresql": MonitorBackendPostgres,
	"pgx":        MonitorBackendPostgres,
}, "")

// NormalizeMonitorBackend converts user input (case-insensitive) into a typed
// backend, returning empty string for unknown values.
func NormalizeMonitorBackend(raw string) MonitorBackend {
	return monitorBackends.Normalize(raw)
}
