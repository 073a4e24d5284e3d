package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// counterValue reads a single-label counter from the registry.
func counterValue(t *testing.T, m *Metrics, name, label string) float64 {
	t.Helper()
	families, err := m.Registry().Gather()
	require.NoError(t, err)
	for _, mf := range families {
		if mf.GetName() != namespace+"_"+name {
			continue
		}
		for _, metric := range mf.GetMetric() {
			for _, lp := range metric.GetLabel() {
				if lp.GetValue() == label {
					return metric.GetCounter().GetValue()
				}
			}
		}
	}
	return 0
}

func TestCounters(t *testing.T) {
	m := New()
	m.ObserveUpdate("plan_updated", 20*time.Millisecond)
	m.ObserveUpdate("plan_updated", 30*time.Millisecond)
	m.ObserveUpdate("feedback_only", time.Millisecond)
	m.IncExtraction("content")
	m.IncArchiveWrite(true)
	m.IncArchiveWrite(false)
	m.IncArchiveWrite(false)
	m.IncRestore("ok")
	m.IncValidation(false)

	assert.Equal(t, 2.0, counterValue(t, m, "plan_updates_total", "plan_updated"))
	assert.Equal(t, 1.0, counterValue(t, m, "plan_updates_total", "feedback_only"))
	assert.Equal(t, 1.0, counterValue(t, m, "plan_extractions_total", "content"))
	assert.Equal(t, 2.0, counterValue(t, m, "plan_archive_writes_total", "inline"))
	assert.Equal(t, 1.0, counterValue(t, m, "plan_archive_writes_total", "offloaded"))
	assert.Equal(t, 1.0, counterValue(t, m, "plan_restores_total", "ok"))
	assert.Equal(t, 1.0, counterValue(t, m, "plan_validations_total", "invalid"))
}

func TestNilMetricsIsSafe(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ObserveUpdate("failed", time.Second)
		m.IncExtraction("none")
		m.IncArchiveWrite(false)
		m.IncRestore("not_found")
		m.IncValidation(true)
	})
	assert.Nil(t, m.Registry())
}

func TestHandlerExposesCounters(t *testing.T) {
	m := New()
	m.IncArchiveWrite(true)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), `plan_service_plan_archive_writes_total{placement="offloaded"} 1`))
}
