package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

func gather(t *testing.T, reg *prometheus.Registry) map[string]float64 {
	t.Helper()
	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("Gather() error = %v", err)
	}

	values := make(map[string]float64)
	for _, mf := range families {
		for _, m := range mf.GetMetric() {
			key := mf.GetName()
			for _, lp := range m.GetLabel() {
				key += "," + lp.GetName() + "=" + lp.GetValue()
			}
			switch {
			case m.GetCounter() != nil:
				values[key] = m.GetCounter().GetValue()
			case m.GetGauge() != nil:
				values[key] = m.GetGauge().GetValue()
			case m.GetHistogram() != nil:
				values[key] = float64(m.GetHistogram().GetSampleCount())
			}
		}
	}
	return values
}

func TestCollector_Records(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollectorWith("wave", reg)

	c.RecordAPIRequest("/api/runs", "GET", "200")
	c.RecordAPIRequest("/api/runs", "GET", "200")
	c.RecordGeneration("openmeteo", "success")
	c.RecordSourceError("openmeteo")
	c.UpdateGridCells(3000, 7000, 512)
	c.UpdateDBConnectionPool(1, 2, 3)
	c.NewTimer(c.RegridDuration).ObserveDuration()

	got := gather(t, reg)

	tests := map[string]float64{
		"wave_api_requests_total,endpoint=/api/runs,method=GET,status=200": 2,
		"wave_generation_runs_total,source=openmeteo,status=success":       1,
		"wave_source_errors_total,source=openmeteo":                        1,
		"wave_grid_cells,class=land":                                       3000,
		"wave_grid_cells,class=empty":                                      512,
		"wave_db_connection_pool,state=total":                              3,
		"wave_regrid_duration_seconds":                                     1,
	}
	for key, want := range tests {
		if got[key] != want {
			t.Errorf("%s = %v, want %v", key, got[key], want)
		}
	}
}

func TestNewCollectorWith_SeparateRegistries(t *testing.T) {
	// Registering twice on distinct registries must not panic.
	NewCollectorWith("wave", prometheus.NewRegistry())
	NewCollectorWith("wave", prometheus.NewRegistry())
}

func TestTimer(t *testing.T) {
	timer := (&Collector{}).NewTimer(nil)
	time.Sleep(time.Millisecond)
	if d := timer.ObserveDuration(); d <= 0 {
		t.Errorf("ObserveDuration() = %v, want > 0", d)
	}
}
