package monitor

import (
	"context"
	"time"

	"git.home.luguber.info/inful/echopipe/internal/hostinfo"
)

const (
	// DefaultSummaryLimit is the number of recent executions listed by Summary.
	DefaultSummaryLimit = 10
	trendWindow         = 10
	reportHistory       = 5

	MsgNoExecutions = "No executions recorded"
	MsgNoHistory    = "No execution history available"
)

// Stats aggregates duration and quality over a set of records.
type Stats struct {
	AverageDuration    float64 `json:"average_duration"`
	MinDuration        float64 `json:"min_duration"`
	MaxDuration        float64 `json:"max_duration"`
	AverageQuality     float64 `json:"average_quality"`
	MinQuality         float64 `json:"min_quality"`
	MaxQuality         float64 `json:"max_quality"`
	AverageConsistency float64 `json:"average_consistency"`
	SuccessRate        float64 `json:"success_rate"`
}

// Summary is the aggregate view returned by Monitor.Summary.
type Summary struct {
	Message         string `json:"message,omitempty"`
	TotalExecutions int    `json:"total_executions"`
	Successful      int    `json:"successful_executions"`
	Stats
	RecentExecutions []ExecutionRecord `json:"recent_executions,omitempty"`
}

// Trends describes the most recent window of executions.
type Trends struct {
	Window             int     `json:"window"`
	AverageDuration    float64 `json:"recent_avg_duration"`
	AverageQuality     float64 `json:"recent_avg_quality"`
	SuccessRate        float64 `json:"recent_success_rate"`
	QualityImprovement float64 `json:"quality_change"`
}

// Report is the full aggregate returned by Monitor.Report.
type Report struct {
	Message          string            `json:"message,omitempty"`
	GeneratedAt      time.Time         `json:"report_generated"`
	TotalExecutions  int               `json:"total_executions"`
	Performance      Stats             `json:"performance_metrics"`
	RecentTrends     Trends            `json:"recent_trends"`
	SystemMetrics    hostinfo.Snapshot `json:"system_metrics"`
	ExecutionHistory []ExecutionRecord `json:"execution_history"`
}

// Empty reports whether the report was built from an empty history.
func (r Report) Empty() bool { return r.TotalExecutions == 0 }

// Summary aggregates the whole history and lists the last limit executions.
// A non-positive limit selects DefaultSummaryLimit.
func (m *Monitor) Summary(limit int) Summary {
	if limit <= 0 {
		limit = DefaultSummaryLimit
	}
	history := m.History()
	if len(history) == 0 {
		return Summary{Message: MsgNoExecutions}
	}
	s := Summary{
		TotalExecutions:  len(history),
		Stats:            computeStats(history),
		RecentExecutions: tail(history, limit),
	}
	for _, r := range history {
		if r.Success {
			s.Successful++
		}
	}
	return s
}

// Report aggregates the history, the trend over the last ten executions, the
// current host metrics and the last five records.
func (m *Monitor) Report(ctx context.Context) Report {
	history := m.History()
	r := Report{GeneratedAt: m.now()}
	if len(history) == 0 {
		r.Message = MsgNoHistory
		return r
	}
	recent := tail(history, trendWindow)
	recentStats := computeStats(recent)
	r.TotalExecutions = len(history)
	r.Performance = computeStats(history)
	r.RecentTrends = Trends{
		Window:             len(recent),
		AverageDuration:    recentStats.AverageDuration,
		AverageQuality:     recentStats.AverageQuality,
		SuccessRate:        recentStats.SuccessRate,
		QualityImprovement: recent[len(recent)-1].Quality - recent[0].Quality,
	}
	r.SystemMetrics = m.snapshot(ctx)
	r.ExecutionHistory = tail(history, reportHistory)
	return r
}

func computeStats(records []ExecutionRecord) Stats {
	if len(records) == 0 {
		return Stats{}
	}
	first := records[0]
	s := Stats{
		MinDuration: first.Duration,
		MaxDuration: first.Duration,
		MinQuality:  first.Quality,
		MaxQuality:  first.Quality,
	}
	var dur, qual, cons float64
	success := 0
	for _, r := range records {
		dur += r.Duration
		qual += r.Quality
		cons += r.Consistency
		s.MinDuration = min(s.MinDuration, r.Duration)
		s.MaxDuration = max(s.MaxDuration, r.Duration)
		s.MinQuality = min(s.MinQuality, r.Quality)
		s.MaxQuality = max(s.MaxQuality, r.Quality)
		if r.Success {
			success++
		}
	}
	n := float64(len(records))
	s.AverageDuration = dur / n
	s.AverageQuality = qual / n
	s.AverageConsistency = cons / n
	s.SuccessRate = float64(success) / n
	return s
}

func tail(records []ExecutionRecord, n int) []ExecutionRecord {
	if len(records) > n {
		return records[len(records)-n:]
	}
	return records
}
