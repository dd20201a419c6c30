package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"git.home.luguber.info/inful/echopipe/internal/monitor"
	"git.home.luguber.info/inful/echopipe/internal/pipeline"
)

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#5B8DEF"))
	labelStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#888888")).Width(22)
	okStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#3FB950"))
	warnStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#D29922"))
	errStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#FF6B6B"))
	noteStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#AAAAAA"))
	boxStyle   = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#444444")).
			Padding(0, 1)
)

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func row(label string, value any) string {
	return lipgloss.JoinHorizontal(lipgloss.Top, labelStyle.Render(label), fmt.Sprint(value))
}

func box(title string, lines ...string) string {
	body := lipgloss.JoinVertical(lipgloss.Left, lines...)
	return boxStyle.Render(lipgloss.JoinVertical(lipgloss.Left, titleStyle.Render(title), body))
}

func passFail(ok bool) string {
	if ok {
		return okStyle.Render("passed")
	}
	return warnStyle.Render("below threshold")
}

func pct(v float64) string { return fmt.Sprintf("%.1f%%", v*100) }

func secs(v float64) string { return fmt.Sprintf("%.3fs", v) }

func renderResult(w io.Writer, res *pipeline.Result) {
	lines := []string{
		row("Run", res.RunID),
		row("Iteration", res.Iteration),
		row("Result", passFail(res.Success)),
		row("Quality", fmt.Sprintf("%.3f (threshold %.2f)", res.Quality, res.Validation.Threshold)),
		row("Consistency", fmt.Sprintf("%.3f", res.Consistency)),
		row("Duration", secs(res.Duration)),
	}
	for _, key := range res.Manifest.Keys() {
		lines = append(lines, row("  "+key, res.Manifest[key]))
	}
	for _, f := range res.Validation.Formats() {
		s := res.Validation.Scores[f]
		if len(s.Issues) > 0 {
			lines = append(lines, row("  issues "+string(f), strings.Join(s.Messages(), "; ")))
		}
	}
	fmt.Fprintln(w, box("Execution", lines...))
}

func renderBatch(w io.Writer, br *pipeline.BatchResult) {
	lines := make([]string, 0, len(br.Results)+len(br.Failed)+1)
	for _, r := range br.Results {
		lines = append(lines, row(fmt.Sprintf("iteration %d", r.Iteration),
			fmt.Sprintf("%s  quality %.3f", passFail(r.Success), r.Quality)))
	}
	for _, f := range br.Failed {
		lines = append(lines, row(fmt.Sprintf("iteration %d", f.Iteration), errStyle.Render("error: ")+f.Error.Error()))
	}
	lines = append(lines, noteStyle.Render(fmt.Sprintf("%d executed, %d passed, %d failed",
		len(br.Results), br.Passed(), len(br.Failed))))
	fmt.Fprintln(w, box("Batch", lines...))
}

func renderBenchmark(w io.Writer, br pipeline.BenchmarkResult) {
	fmt.Fprintln(w, box("Benchmark",
		row("Iterations", br.Iterations),
		row("Passed", br.Passed),
		row("Total time", secs(br.TotalSeconds)),
		row("Average time", secs(br.AverageSeconds)),
		row("Iterations/second", fmt.Sprintf("%.2f", br.IterationsPerSecond)),
		row("Average quality", fmt.Sprintf("%.3f", br.AverageQuality)),
	))
}

func statsRows(s monitor.Stats) []string {
	return []string{
		row("Average duration", secs(s.AverageDuration)),
		row("Min / max duration", secs(s.MinDuration)+" / "+secs(s.MaxDuration)),
		row("Average quality", fmt.Sprintf("%.3f", s.AverageQuality)),
		row("Min / max quality", fmt.Sprintf("%.3f / %.3f", s.MinQuality, s.MaxQuality)),
		row("Average consistency", fmt.Sprintf("%.3f", s.AverageConsistency)),
		row("Success rate", pct(s.SuccessRate)),
	}
}

func recordRow(r monitor.ExecutionRecord) string {
	return row(r.Name(), fmt.Sprintf("%s  quality %.3f  %s", passFail(r.Success), r.Quality, secs(r.Duration)))
}

func renderSummary(w io.Writer, s monitor.Summary) {
	if s.Message != "" {
		fmt.Fprintln(w, noteStyle.Render(s.Message))
		return
	}
	lines := []string{
		row("Executions", s.TotalExecutions),
		row("Successful", s.Successful),
	}
	lines = append(lines, statsRows(s.Stats)...)
	for _, r := range s.RecentExecutions {
		lines = append(lines, recordRow(r))
	}
	fmt.Fprintln(w, box("Summary", lines...))
}

func renderReport(w io.Writer, r monitor.Report) {
	if r.Empty() {
		fmt.Fprintln(w, noteStyle.Render(r.Message))
		return
	}
	perf := append([]string{row("Executions", r.TotalExecutions)}, statsRows(r.Performance)...)
	trends := []string{
		row("Window", r.RecentTrends.Window),
		row("Average duration", secs(r.RecentTrends.AverageDuration)),
		row("Average quality", fmt.Sprintf("%.3f", r.RecentTrends.AverageQuality)),
		row("Success rate", pct(r.RecentTrends.SuccessRate)),
		row("Quality change", fmt.Sprintf("%+.3f", r.RecentTrends.QualityImprovement)),
	}
	history := make([]string, 0, len(r.ExecutionHistory))
	for _, rec := range r.ExecutionHistory {
		history = append(history, recordRow(rec))
	}
	fmt.Fprintln(w, lipgloss.JoinVertical(lipgloss.Left,
		box("Performance", perf...),
		box("Recent trends", trends...),
		box("Latest executions", history...),
		noteStyle.Render("Generated "+r.GeneratedAt.Format("2006-01-02 15:04:05 MST")),
	))
}

func healthStyle(s monitor.HealthStatus) lipgloss.Style {
	switch s {
	case monitor.HealthStatusHealthy:
		return okStyle
	case monitor.HealthStatusWarning:
		return warnStyle
	default:
		return errStyle
	}
}

func renderHealth(w io.Writer, h monitor.Health) {
	lines := []string{
		row("Status", healthStyle(h.Status).Render(string(h.Status))),
		row("Backend", h.Backend),
		row("Metrics location", h.MetricsLocation),
		row("Metrics writable", h.MetricsWritable),
		row("History size", h.HistorySize),
	}
	if s := h.SystemResources; !s.Empty() {
		lines = append(lines,
			row("CPU count", s.CPUCount),
			row("Memory used", fmt.Sprintf("%.1f%%", s.MemoryPercent)),
			row("Disk used", fmt.Sprintf("%.1f%%", s.DiskPercent)),
		)
	}
	for _, m := range h.Warnings {
		lines = append(lines, warnStyle.Render("warning: ")+m)
	}
	for _, m := range h.Errors {
		lines = append(lines, errStyle.Render("error: ")+m)
	}
	fmt.Fprintln(w, box("Health", lines...))
}
