package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrometheusRecorder(t *testing.T) {
	reg := prom.NewRegistry()
	pr := NewPrometheusRecorder(reg)
	pr.ObserveStageDuration("generate", 150*time.Millisecond)
	pr.IncStageResult("generate", ResultSuccess)
	pr.ObserveRunDuration(500 * time.Millisecond)
	pr.IncRunOutcome(RunPassed)
	pr.IncRunOutcome(RunPassed)
	pr.ObserveQuality("markdown", 0.8)
	pr.ObserveConsistency(1)
	pr.IncConversion("markdown", "html", "converted")
	pr.SetHistorySize(4)
	pr.IncMonitorFailure("publish")

	assert.Equal(t, 2.0, testutil.ToFloat64(pr.runOutcome.WithLabelValues("passed")))
	assert.Equal(t, 4.0, testutil.ToFloat64(pr.historySize))
	assert.Equal(t, 1.0, testutil.ToFloat64(pr.conversions.WithLabelValues("markdown", "html", "converted")))

	mfs, err := reg.Gather()
	require.NoError(t, err)
	assert.NotEmpty(t, mfs)
}

func TestNilPrometheusRecorderIsSafe(t *testing.T) {
	var pr *PrometheusRecorder
	pr.IncRunOutcome(RunError)
	pr.SetHistorySize(1)
}

func TestHTTPHandlerServesRegistry(t *testing.T) {
	reg := NewRegistry()
	pr := NewPrometheusRecorder(reg)
	pr.IncRunOutcome(RunFailed)

	rec := httptest.NewRecorder()
	HTTPHandler(reg).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), "echopipe_run_outcomes_total"))
}
