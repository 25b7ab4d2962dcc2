package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// sample returns the value of the named series whose labels include want,
// or -1 when no such series was gathered.
func sample(t *testing.T, reg *prometheus.Registry, name string, want map[string]string) float64 {
	t.Helper()
	families, err := reg.Gather()
	require.NoError(t, err)
	for _, mf := range families {
		if mf.GetName() != name {
			continue
		}
	series:
		for _, m := range mf.GetMetric() {
			labels := map[string]string{}
			for _, lp := range m.GetLabel() {
				labels[lp.GetName()] = lp.GetValue()
			}
			for k, v := range want {
				if labels[k] != v {
					continue series
				}
			}
			if h := m.GetHistogram(); h != nil {
				return float64(h.GetSampleCount())
			}
			return m.GetCounter().GetValue()
		}
	}
	return -1
}

func TestObserver_Counts(t *testing.T) {
	reg := prometheus.NewRegistry()
	o, err := NewObserver(reg)
	require.NoError(t, err)

	o.CacheLookup("searchProperties", false)
	o.CacheLookup("searchProperties", true)
	o.CacheLookup("searchProperties", true)
	o.UpstreamCall("searchProperties", "OK", 120*time.Millisecond)
	o.UpstreamCall("searchProperties", "HTTP_503", time.Second)
	o.BulkJobObserved("completed")

	assert.Equal(t, 2.0, sample(t, reg, "land_registry_cache_lookups_total", map[string]string{"operation": "searchProperties", "result": "hit"}))
	assert.Equal(t, 1.0, sample(t, reg, "land_registry_cache_lookups_total", map[string]string{"operation": "searchProperties", "result": "miss"}))
	assert.Equal(t, 1.0, sample(t, reg, "land_registry_upstream_calls_total", map[string]string{"code": "HTTP_503"}))
	assert.Equal(t, 2.0, sample(t, reg, "land_registry_upstream_call_duration_seconds", map[string]string{"operation": "searchProperties"}))
	assert.Equal(t, 1.0, sample(t, reg, "land_registry_bulk_job_observations_total", map[string]string{"status": "completed"}))
}

func TestObserver_DoubleRegistration(t *testing.T) {
	reg := prometheus.NewRegistry()
	_, err := NewObserver(reg)
	require.NoError(t, err)
	_, err = NewObserver(reg)
	assert.Error(t, err)
}
