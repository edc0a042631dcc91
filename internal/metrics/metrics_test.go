package metrics

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// value gathers the registry and returns the counter or gauge value of
// the named family whose labels match.
func value(t *testing.T, s *service, name string, labels map[string]string) float64 {
	t.Helper()
	families, err := s.registry.Gather()
	require.NoError(t, err)
	for _, mf := range families {
		if mf.GetName() != name {
			continue
		}
		for _, m := range mf.GetMetric() {
			if matches(m, labels) {
				if m.GetCounter() != nil {
					return m.GetCounter().GetValue()
				}
				return m.GetGauge().GetValue()
			}
		}
	}
	t.Fatalf("metric %s%v not found", name, labels)
	return 0
}

func matches(m *dto.Metric, labels map[string]string) bool {
	if len(m.GetLabel()) != len(labels) {
		return false
	}
	for _, lp := range m.GetLabel() {
		if labels[lp.GetName()] != lp.GetValue() {
			return false
		}
	}
	return true
}

func TestObserveJob(t *testing.T) {
	s := New(Config{Enabled: true}).(*service)

	s.ObserveJob("heart_rate", JobResult{Users: 3, Created: 2, Failures: 1, MissingConfigs: 1, Elapsed: time.Second})
	s.ObserveJob("heart_rate", JobResult{Users: 4, Created: 4, Err: context.Canceled})

	job := map[string]string{"job": "heart_rate"}
	assert.Equal(t, float64(1), value(t, s, "vitalsd_generation_runs_total", map[string]string{"job": "heart_rate", "result": "ok"}))
	assert.Equal(t, float64(1), value(t, s, "vitalsd_generation_runs_total", map[string]string{"job": "heart_rate", "result": "error"}))
	assert.Equal(t, float64(6), value(t, s, "vitalsd_readings_generated_total", job))
	assert.Equal(t, float64(1), value(t, s, "vitalsd_generation_failures_total", job))
	assert.Equal(t, float64(1), value(t, s, "vitalsd_simulation_config_missing_total", job))
	assert.Equal(t, float64(4), value(t, s, "vitalsd_generation_users", job))
}

func TestWrapHandlerRecordsStatus(t *testing.T) {
	c := New(Config{Enabled: true})
	h := WrapHandler(c, "/thing", http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/thing", nil))

	s := c.(*service)
	assert.Equal(t, float64(1), value(t, s, "vitalsd_http_requests_total", map[string]string{"route": "/thing", "status": "418"}))

	rec := httptest.NewRecorder()
	c.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(body), `vitalsd_http_requests_total{route="/thing",status="418"} 1`))
}

func TestDisabledCollectorIsNoop(t *testing.T) {
	c := New(Config{})
	c.ObserveJob("spo2", JobResult{Created: 1})
	c.ObserveRequest("/x", 200, time.Millisecond)

	rec := httptest.NewRecorder()
	c.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
