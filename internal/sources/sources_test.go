package sources

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"sync/atomic"
	"testing"
	"time"

	"wave-platform/internal/landmask"
	"wave-platform/internal/models"
)

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "samples.json")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	return path
}

func TestFileSource_GridDataDocument(t *testing.T) {
	path := writeFile(t, `{"gridData":[
		{"lat":10,"lon":20,"height":1.5,"direction":90,"period":8},
		{"lat":-5,"lon":200,"height":3,"direction":270}
	]}`)

	src := NewFileSource(path, 0)
	samples, err := src.Samples(context.Background(), models.GlobalHeader(2.5))
	if err != nil {
		t.Fatalf("Samples() error = %v", err)
	}

	if len(samples) != 2 {
		t.Fatalf("len(samples) = %d, want 2", len(samples))
	}
	want := models.WaveSample{Latitude: 10, Longitude: 20, SignificantHeight: 1.5, MeanDirection: 90, MeanPeriod: 8}
	if samples[0] != want {
		t.Errorf("samples[0] = %+v, want %+v", samples[0], want)
	}
	if samples[1].Longitude != 200 {
		t.Errorf("samples[1].Longitude = %v, want 200", samples[1].Longitude)
	}
}

func TestFileSource_RefTime(t *testing.T) {
	path := writeFile(t, `{"refTime":"2024-03-01T12:00:00+02:00","gridData":[{"lat":1,"lon":2,"height":3,"direction":4}]}`)

	src := NewFileSource(path, 0)
	if _, ok := src.ValidTime(); ok {
		t.Error("ValidTime() reported a time before any read")
	}
	if _, err := src.Samples(context.Background(), models.GlobalHeader(2.5)); err != nil {
		t.Fatalf("Samples() error = %v", err)
	}

	validTime, ok := src.ValidTime()
	if !ok || !validTime.Equal(time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)) {
		t.Errorf("ValidTime() = %v, %v, want 2024-03-01 10:00 UTC", validTime, ok)
	}
	if validTime.Location() != time.UTC {
		t.Errorf("ValidTime() location = %v, want UTC", validTime.Location())
	}
}

func TestFileSource_BareArray(t *testing.T) {
	path := writeFile(t, `[{"lat":1,"lon":2,"height":3,"direction":4}]`)

	samples, err := NewFileSource(path, 5).Samples(context.Background(), models.GlobalHeader(2.5))
	if err != nil {
		t.Fatalf("Samples() error = %v", err)
	}
	if len(samples) != 1 || samples[0].MeanDirection != 4 {
		t.Errorf("samples = %+v", samples)
	}
	if w := NewFileSource(path, 5).Window(models.GlobalHeader(2.5)); w != 5 {
		t.Errorf("Window() = %v, want 5", w)
	}
}

func TestFileSource_Errors(t *testing.T) {
	ctx := context.Background()
	header := models.GlobalHeader(2.5)

	t.Run("missing file", func(t *testing.T) {
		if _, err := NewFileSource(filepath.Join(t.TempDir(), "nope.json"), 0).Samples(ctx, header); err == nil {
			t.Error("Samples() should fail")
		}
	})

	t.Run("bad latitude", func(t *testing.T) {
		path := writeFile(t, `[{"lat":91,"lon":0,"height":1,"direction":0}]`)
		_, err := NewFileSource(path, 0).Samples(ctx, header)
		var vErr *models.ValidationError
		if !errors.As(err, &vErr) {
			t.Fatalf("Samples() error = %v, want ValidationError", err)
		}
		if vErr.Field != "lat" {
			t.Errorf("Field = %q, want lat", vErr.Field)
		}
	})

	t.Run("bad refTime", func(t *testing.T) {
		path := writeFile(t, `{"refTime":"yesterday","gridData":[{"lat":0,"lon":0,"height":1,"direction":0}]}`)
		_, err := NewFileSource(path, 0).Samples(ctx, header)
		var vErr *models.ValidationError
		if !errors.As(err, &vErr) || vErr.Field != "refTime" {
			t.Errorf("Samples() error = %v, want refTime ValidationError", err)
		}
	})

	t.Run("empty", func(t *testing.T) {
		path := writeFile(t, `{"gridData":[]}`)
		if _, err := NewFileSource(path, 0).Samples(ctx, header); !errors.Is(err, models.ErrNoSamples) {
			t.Errorf("Samples() error = %v, want ErrNoSamples", err)
		}
	})

	t.Run("malformed", func(t *testing.T) {
		path := writeFile(t, `{"gridData":`)
		if _, err := NewFileSource(path, 0).Samples(ctx, header); err == nil {
			t.Error("Samples() should fail")
		}
	})
}

func marineServer(t *testing.T, handler func(lat, lon float64) (int, string)) (*httptest.Server, *int32) {
	t.Helper()
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)

		if r.URL.Path != "/v1/marine" {
			t.Errorf("path = %s, want /v1/marine", r.URL.Path)
		}
		if r.Header.Get("User-Agent") == "" {
			t.Error("User-Agent header not set")
		}
		if got := r.URL.Query().Get("current"); got != "wave_height,wave_direction,wave_period" {
			t.Errorf("current = %q", got)
		}

		lat, _ := strconv.ParseFloat(r.URL.Query().Get("latitude"), 64)
		lon, _ := strconv.ParseFloat(r.URL.Query().Get("longitude"), 64)
		status, body := handler(lat, lon)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		fmt.Fprint(w, body)
	}))
	t.Cleanup(server.Close)
	return server, &calls
}

func TestOpenMeteoSource_Samples(t *testing.T) {
	server, calls := marineServer(t, func(lat, lon float64) (int, string) {
		if lat == 0 && lon == -170 {
			return http.StatusOK, `{"current":{"time":"2024-03-01T06:00","wave_height":null,"wave_direction":null,"wave_period":null}}`
		}
		return http.StatusOK, fmt.Sprintf(`{"current":{"time":"2024-03-01T06:00","wave_height":%g,"wave_direction":180,"wave_period":9.5}}`, lat+2)
	})

	// 3 rows (10, 0, -10) by 3 columns (170, 180, 190).
	header := models.NewHeader(10, -10, 170, 190, 10, 10)
	src := NewOpenMeteoSource(landmask.Ocean, 1, 0)
	src.baseURL = server.URL

	samples, err := src.Samples(context.Background(), header)
	if err != nil {
		t.Fatalf("Samples() error = %v", err)
	}

	if got := atomic.LoadInt32(calls); got != 9 {
		t.Errorf("requests = %d, want 9", got)
	}
	if len(samples) != 8 {
		t.Fatalf("len(samples) = %d, want 8 (one null payload skipped)", len(samples))
	}

	first := samples[0]
	if first.Latitude != 10 || first.Longitude != 170 || first.SignificantHeight != 12 || first.MeanPeriod != 9.5 {
		t.Errorf("samples[0] = %+v", first)
	}
	for _, s := range samples {
		if s.Latitude == 0 && s.Longitude == 190 {
			t.Error("null payload produced a sample")
		}
	}

	validTime, ok := src.ValidTime()
	if !ok || !validTime.Equal(time.Date(2024, 3, 1, 6, 0, 0, 0, time.UTC)) {
		t.Errorf("ValidTime() = %v, %v, want 2024-03-01 06:00 UTC", validTime, ok)
	}
}

func TestOpenMeteoSource_StrideAndLand(t *testing.T) {
	server, calls := marineServer(t, func(lat, lon float64) (int, string) {
		return http.StatusOK, `{"current":{"wave_height":1,"wave_direction":90}}`
	})

	header := models.GlobalHeader(10) // 36 x 19
	westOnly := landmask.MaskFunc(func(lat, lon float64) bool { return lon >= 180 })

	src := NewOpenMeteoSource(westOnly, 4, 0)
	src.baseURL = server.URL

	samples, err := src.Samples(context.Background(), header)
	if err != nil {
		t.Fatalf("Samples() error = %v", err)
	}

	// rows 0,4,...,16 (5) by columns 0,4,...,16 below 180 degrees (5)
	if len(samples) != 25 || atomic.LoadInt32(calls) != 25 {
		t.Errorf("samples, requests = %d, %d, want 25, 25", len(samples), atomic.LoadInt32(calls))
	}
	if w := src.Window(header); w != 20 {
		t.Errorf("Window() = %v, want 20", w)
	}
	if _, ok := src.ValidTime(); ok {
		t.Error("ValidTime() reported a time the API never sent")
	}
}

func TestOpenMeteoSource_FailureAborts(t *testing.T) {
	server, _ := marineServer(t, func(lat, lon float64) (int, string) {
		if lat < 0 {
			return http.StatusInternalServerError, `{"error":true}`
		}
		return http.StatusOK, `{"current":{"wave_height":1,"wave_direction":90}}`
	})

	src := NewOpenMeteoSource(landmask.Ocean, 1, 0)
	src.baseURL = server.URL

	samples, err := src.Samples(context.Background(), models.NewHeader(10, -10, 0, 10, 10, 10))
	if err == nil {
		t.Fatal("Samples() should fail when any request fails")
	}
	if samples != nil {
		t.Errorf("Samples() returned %d samples with an error", len(samples))
	}
}

func TestOpenMeteoSource_AllNull(t *testing.T) {
	server, _ := marineServer(t, func(lat, lon float64) (int, string) {
		return http.StatusOK, `{"current":{"wave_height":null,"wave_direction":null}}`
	})

	src := NewOpenMeteoSource(landmask.Ocean, 1, 0)
	src.baseURL = server.URL

	if _, err := src.Samples(context.Background(), models.NewHeader(0, 0, 0, 10, 10, 10)); !errors.Is(err, models.ErrNoSamples) {
		t.Errorf("Samples() error = %v, want ErrNoSamples", err)
	}
}

func TestOpenMeteoSource_Cancelled(t *testing.T) {
	server, _ := marineServer(t, func(lat, lon float64) (int, string) {
		return http.StatusOK, `{"current":{"wave_height":1,"wave_direction":90}}`
	})

	src := NewOpenMeteoSource(landmask.Ocean, 1, time.Hour)
	src.baseURL = server.URL

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	if _, err := src.Samples(ctx, models.NewHeader(0, 0, 0, 10, 10, 10)); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Samples() error = %v, want context.DeadlineExceeded", err)
	}
}

func TestOpenMeteoSource_Forecast(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if r.URL.Path != "/v1/marine" {
			t.Errorf("path = %s, want /v1/marine", r.URL.Path)
		}
		if got := q.Get("daily"); got != "wave_height_max,wave_direction_dominant,wave_period_max" {
			t.Errorf("daily = %q", got)
		}
		if q.Get("forecast_days") != "3" || q.Get("longitude") != "-40.00" {
			t.Errorf("query = %s", r.URL.RawQuery)
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"daily":{
			"time":["2024-03-01","2024-03-02","2024-03-03"],
			"wave_height_max":[2.5,null,3.1],
			"wave_direction_dominant":[270,280,null],
			"wave_period_max":[9,10,11]
		}}`)
	}))
	t.Cleanup(server.Close)

	src := NewOpenMeteoSource(nil, 0, 0).WithBaseURL(server.URL)
	forecast, err := src.Forecast(context.Background(), 35, 320, 3)
	if err != nil {
		t.Fatalf("Forecast() error = %v", err)
	}

	want := []models.ForecastDay{{
		Day:          0,
		ValidTime:    time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
		HeightM:      2.5,
		DirectionDeg: 270,
		PeriodS:      9,
	}}
	if len(forecast) != len(want) {
		t.Fatalf("len(forecast) = %d, want %d (days with nulls skipped)", len(forecast), len(want))
	}
	if forecast[0] != want[0] {
		t.Errorf("forecast[0] = %+v, want %+v", forecast[0], want[0])
	}
}

func TestOpenMeteoSource_ForecastErrors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	t.Cleanup(server.Close)

	src := NewOpenMeteoSource(nil, 0, 0).WithBaseURL(server.URL)
	for _, days := range []int{0, MaxForecastDays + 1} {
		if _, err := src.Forecast(context.Background(), 0, 0, days); err == nil {
			t.Errorf("Forecast(days=%d) should fail", days)
		}
	}
	if _, err := src.Forecast(context.Background(), 0, 0, 2); err == nil {
		t.Error("Forecast() should fail on an upstream error")
	}
}

func TestNewOpenMeteoSource_Defaults(t *testing.T) {
	src := NewOpenMeteoSource(nil, 0, -1)
	if src.baseURL != "https://marine-api.open-meteo.com" {
		t.Errorf("baseURL = %s", src.baseURL)
	}
	if src.stride != 4 || src.delay != 100*time.Millisecond {
		t.Errorf("stride, delay = %d, %v, want 4, 100ms", src.stride, src.delay)
	}
	if src.Name() != "openmeteo" {
		t.Errorf("Name() = %q", src.Name())
	}
}
