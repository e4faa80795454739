package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// value returns the current value of the named counter or gauge with the
// given label pair, or -100 when absent.
func value(t *testing.T, m *Metrics, name, label, labelValue string) float64 {
	t.Helper()
	families, err := m.Registry().Gather()
	require.NoError(t, err)
	for _, mf := range families {
		if mf.GetName() != name {
			continue
		}
		for _, metric := range mf.GetMetric() {
			if label != "" && !hasLabel(metric, label, labelValue) {
				continue
			}
			if c := metric.GetCounter(); c != nil {
				return c.GetValue()
			}
			if g := metric.GetGauge(); g != nil {
				return g.GetValue()
			}
		}
	}
	return -100
}

func hasLabel(m *dto.Metric, name, value string) bool {
	for _, lp := range m.GetLabel() {
		if lp.GetName() == name && lp.GetValue() == value {
			return true
		}
	}
	return false
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	m.ObserveDelivery("delivered", time.Second)
	m.ObserveRetry("delivered")
	m.ObserveProbe("ok")
	m.ObserveHistoryLoad("server")
	m.ObserveSessionEnd("logout")
	m.SetConnection(ConnectionConnected)
}

func TestCounters(t *testing.T) {
	m := New()
	m.ObserveDelivery("delivered", 200*time.Millisecond)
	m.ObserveDelivery("timeout", 30*time.Second)
	m.ObserveDelivery("timeout", 30*time.Second)
	m.ObserveProbe("ok")
	m.SetConnection(ConnectionConnected)

	assert.Equal(t, 1.0, value(t, m, "lxassist_deliveries_total", "outcome", "delivered"))
	assert.Equal(t, 2.0, value(t, m, "lxassist_deliveries_total", "outcome", "timeout"))
	assert.Equal(t, 1.0, value(t, m, "lxassist_health_probes_total", "result", "ok"))
	assert.Equal(t, 1.0, value(t, m, "lxassist_connection_state", "", ""))
}

func TestHandler(t *testing.T) {
	m := New()
	m.ObserveHistoryLoad("greeting")

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `lxassist_history_loads_total{source="greeting"} 1`)
	assert.Contains(t, string(body), "lxassist_connection_state -1")
}

func TestIndependentRegistries(t *testing.T) {
	a, b := New(), New()
	a.ObserveRetry("delivered")
	assert.Equal(t, 1.0, value(t, a, "lxassist_retries_total", "outcome", "delivered"))
	assert.Equal(t, -100.0, value(t, b, "lxassist_retries_total", "outcome", "delivered"))
}
