package logfields

import (
	"log/slog"
	"time"
)

// Canonical log field name constants to avoid drift across packages.
const (
	KeyRunID      = "run_id"
	KeyIteration  = "iteration"
	KeyStage      = "stage"
	KeyFormat     = "format"
	KeyFrom       = "from"
	KeyTo         = "to"
	KeyTopic      = "topic"
	KeyQuality    = "quality"
	KeyDurationMS = "duration_ms"
	KeyPath       = "path"
	KeyReason     = "reason"
	KeyError      = "error"
)

// Simple helpers returning slog.Attr. Keeping each granular means callers can compose.
func RunID(id string) slog.Attr         { return slog.String(KeyRunID, id) }
func Iteration(n int) slog.Attr         { return slog.Int(KeyIteration, n) }
func Stage(name string) slog.Attr       { return slog.String(KeyStage, name) }
func Format(f string) slog.Attr         { return slog.String(KeyFormat, f) }
func From(f string) slog.Attr           { return slog.String(KeyFrom, f) }
func To(f string) slog.Attr             { return slog.String(KeyTo, f) }
func Topic(t string) slog.Attr          { return slog.String(KeyTopic, t) }
func Quality(q float64) slog.Attr       { return slog.Float64(KeyQuality, q) }
func Path(p string) slog.Attr           { return slog.String(KeyPath, p) }
func Reason(r string) slog.Attr         { return slog.String(KeyReason, r) }
func DurationMS(ms float64) slog.Attr   { return slog.Float64(KeyDurationMS, ms) }
func Elapsed(d time.Duration) slog.Attr { return DurationMS(float64(d.Microseconds()) / 1000) }
func Error(err error) slog.Attr {
	if err == nil {
		return slog.String(KeyError, "")
	}
	return slog.String(KeyError, err.Error())
}
