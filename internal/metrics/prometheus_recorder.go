package metrics

import (
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
)

const namespace = "echopipe"

// PrometheusRecorder implements Recorder using Prometheus metrics.
type PrometheusRecorder struct {
	stageDuration  *prom.HistogramVec
	stageResults   *prom.CounterVec
	runDuration    prom.Histogram
	runOutcome     *prom.CounterVec
	quality        *prom.HistogramVec
	consistency    prom.Histogram
	conversions    *prom.CounterVec
	historySize    prom.Gauge
	monitorFailure *prom.CounterVec
}

// NewPrometheusRecorder constructs the metrics and registers them on reg.
func NewPrometheusRecorder(reg *prom.Registry) *PrometheusRecorder {
	if reg == nil {
		reg = prom.NewRegistry()
	}
	scoreBuckets := prom.LinearBuckets(0, 0.1, 11)
	pr := &PrometheusRecorder{
		stageDuration: prom.NewHistogramVec(prom.HistogramOpts{
			Namespace: namespace,
			Name:      "stage_duration_seconds",
			Help:      "Duration of individual pipeline stages",
			Buckets:   prom.DefBuckets,
		}, []string{"stage"}),
		stageResults: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "stage_results_total",
			Help:      "Stage result counts by outcome",
		}, []string{"stage", "result"}),
		runDuration: prom.NewHistogram(prom.HistogramOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "Total pipeline run duration",
			Buckets:   prom.DefBuckets,
		}),
		runOutcome: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "run_outcomes_total",
			Help:      "Pipeline runs by final outcome",
		}, []string{"outcome"}),
		quality: prom.NewHistogramVec(prom.HistogramOpts{
			Namespace: namespace,
			Name:      "format_quality",
			Help:      "Quality score per rendering format",
			Buckets:   scoreBuckets,
		}, []string{"format"}),
		consistency: prom.NewHistogram(prom.HistogramOpts{
			Namespace: namespace,
			Name:      "consistency",
			Help:      "Cross-format consistency score per run",
			Buckets:   scoreBuckets,
		}),
		conversions: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "conversions_total",
			Help:      "Format conversions by source, target and status",
		}, []string{"from", "to", "status"}),
		historySize: prom.NewGauge(prom.GaugeOpts{
			Namespace: namespace,
			Name:      "monitor_history_size",
			Help:      "Execution records held in monitor history",
		}),
		monitorFailure: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "monitor_failures_total",
			Help:      "Monitor persistence and publish failures",
		}, []string{"operation"}),
	}
	reg.MustRegister(pr.stageDuration, pr.stageResults, pr.runDuration, pr.runOutcome,
		pr.quality, pr.consistency, pr.conversions, pr.historySize, pr.monitorFailure)
	return pr
}

func (p *PrometheusRecorder) ObserveStageDuration(stage string, d time.Duration) {
	if p == nil {
		return
	}
	p.stageDuration.WithLabelValues(stage).Observe(d.Seconds())
}

func (p *PrometheusRecorder) IncStageResult(stage string, result ResultLabel) {
	if p == nil {
		return
	}
	p.stageResults.WithLabelValues(stage, string(result)).Inc()
}

func (p *PrometheusRecorder) ObserveRunDuration(d time.Duration) {
	if p == nil {
		return
	}
	p.runDuration.Observe(d.Seconds())
}

func (p *PrometheusRecorder) IncRunOutcome(outcome RunOutcomeLabel) {
	if p == nil {
		return
	}
	p.runOutcome.WithLabelValues(string(outcome)).Inc()
}

func (p *PrometheusRecorder) ObserveQuality(format string, q float64) {
	if p == nil {
		return
	}
	p.quality.WithLabelValues(format).Observe(q)
}

func (p *PrometheusRecorder) ObserveConsistency(c float64) {
	if p == nil {
		return
	}
	p.consistency.Observe(c)
}

func (p *PrometheusRecorder) IncConversion(from, to, status string) {
	if p == nil {
		return
	}
	p.conversions.WithLabelValues(from, to, status).Inc()
}

func (p *PrometheusRecorder) SetHistorySize(n int) {
	if p == nil {
		return
	}
	p.historySize.Set(float64(n))
}

func (p *PrometheusRecorder) IncMonitorFailure(operation string) {
	if p == nil {
		return
	}
	p.monitorFailure.WithLabelValues(operation).Inc()
}
