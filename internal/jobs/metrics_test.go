package jobmetrics

import (
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
)

// sample returns the value of the series in family matching every label pair.
func sample(t *testing.T, reg *prometheus.Registry, family string, labels map[string]string) float64 {
	t.Helper()
	families, err := reg.Gather()
	require.NoError(t, err)
	for _, mf := range families {
		if mf.GetName() != family {
			continue
		}
	next:
		for _, m := range mf.GetMetric() {
			for _, lp := range m.GetLabel() {
				if want, ok := labels[lp.GetName()]; ok && want != lp.GetValue() {
					continue next
				}
			}
			switch {
			case m.GetCounter() != nil:
				return m.GetCounter().GetValue()
			case m.GetGauge() != nil:
				return m.GetGauge().GetValue()
			}
		}
	}
	t.Fatalf("series %s%v not found", family, labels)
	return 0
}

func TestTrackerRecordsOutcome(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)

	require.NoError(t, m.Track("report:daily").End(nil))
	boom := errors.New("boom")
	require.ErrorIs(t, m.Track("report:daily").End(boom), boom)

	require.Equal(t, 1.0, sample(t, reg, "store_jobs_total", map[string]string{"job": "report:daily", "status": "success"}))
	require.Equal(t, 1.0, sample(t, reg, "store_jobs_total", map[string]string{"job": "report:daily", "status": "failure"}))
	require.Equal(t, 1.0, sample(t, reg, "store_jobs_failures_total", map[string]string{"job": "report:daily"}))
}

func TestSetExpiring(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)
	m.SetExpiring(4)
	require.Equal(t, 4.0, sample(t, reg, "store_expiring_products", nil))
	m.SetExpiring(-1)
	require.Equal(t, 4.0, sample(t, reg, "store_expiring_products", nil))
}

func TestNilMetricsTracker(t *testing.T) {
	var m *Metrics
	boom := errors.New("boom")
	require.ErrorIs(t, m.Track("x").End(boom), boom)
	m.SetExpiring(3)
}
