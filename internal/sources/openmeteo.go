package sources

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"wave-platform/internal/landmask"
	"wave-platform/internal/models"
)

const (
	defaultOpenMeteoURL = "https://marine-api.open-meteo.com"
	defaultStride       = 4
	defaultDelay        = 100 * time.Millisecond

	// currentTimeLayout is the ISO 8601 form Open-Meteo uses for GMT times.
	currentTimeLayout = "2006-01-02T15:04"
)

// OpenMeteoSource samples current wave conditions from the Open-Meteo marine
// API on every stride-th row and column of the target grid.
type OpenMeteoSource struct {
	baseURL    string
	httpClient *http.Client
	userAgent  string
	mask       landmask.Mask
	stride     int
	delay      time.Duration

	mu        sync.Mutex
	validTime time.Time
}

// NewOpenMeteoSource creates a source. Cells classified as land by mask are
// not requested. stride < 1 selects the default of 4; a negative delay
// selects the default of 100ms between requests.
func NewOpenMeteoSource(mask landmask.Mask, stride int, delay time.Duration) *OpenMeteoSource {
	if mask == nil {
		mask = landmask.Ocean
	}
	if stride < 1 {
		stride = defaultStride
	}
	if delay < 0 {
		delay = defaultDelay
	}
	return &OpenMeteoSource{
		baseURL: defaultOpenMeteoURL,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		userAgent: "WavePlatform/1.0",
		mask:      mask,
		stride:    stride,
		delay:     delay,
	}
}

// WithBaseURL points the source at another marine API endpoint, such as a
// self-hosted Open-Meteo instance.
func (s *OpenMeteoSource) WithBaseURL(baseURL string) *OpenMeteoSource {
	if baseURL != "" {
		s.baseURL = strings.TrimRight(baseURL, "/")
	}
	return s
}

// Name returns "openmeteo".
func (s *OpenMeteoSource) Name() string {
	return "openmeteo"
}

// Window covers half the distance between neighbouring sample points.
func (s *OpenMeteoSource) Window(header models.VelocityGridHeader) float64 {
	return float64(s.stride) * math.Max(header.Dx, header.Dy) / 2
}

// ValidTime returns the latest observation time reported during the last
// successful Samples call.
func (s *OpenMeteoSource) ValidTime() (time.Time, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.validTime, !s.validTime.IsZero()
}

// marineResponse is the subset of the /v1/marine payload we read. Values are
// null over land and outside the wave model domain.
type marineResponse struct {
	Current struct {
		Time          string   `json:"time"`
		WaveHeight    *float64 `json:"wave_height"`
		WaveDirection *float64 `json:"wave_direction"`
		WavePeriod    *float64 `json:"wave_period"`
	} `json:"current"`
}

// Samples requests every strided ocean cell of header in row-major order.
// Any failed request aborts the whole acquisition.
func (s *OpenMeteoSource) Samples(ctx context.Context, header models.VelocityGridHeader) ([]models.WaveSample, error) {
	if err := header.Validate(); err != nil {
		return nil, err
	}

	var samples []models.WaveSample
	var latest time.Time
	first := true
	for y := 0; y < header.Ny; y += s.stride {
		for x := 0; x < header.Nx; x += s.stride {
			lat, lon := header.CellCenter(y, x)
			if s.mask.IsLand(lat, lon) {
				continue
			}

			if !first && s.delay > 0 {
				if err := sleep(ctx, s.delay); err != nil {
					return nil, err
				}
			}
			first = false

			sample, at, ok, err := s.point(ctx, lat, lon)
			if err != nil {
				return nil, fmt.Errorf("sample (%.2f, %.2f): %w", lat, lon, err)
			}
			if ok {
				samples = append(samples, sample)
				if at.After(latest) {
					latest = at
				}
			}
		}
	}

	if len(samples) == 0 {
		return nil, models.ErrNoSamples
	}

	s.mu.Lock()
	s.validTime = latest
	s.mu.Unlock()
	return samples, nil
}

func (s *OpenMeteoSource) point(ctx context.Context, lat, lon float64) (models.WaveSample, time.Time, bool, error) {
	q := url.Values{}
	q.Set("latitude", strconv.FormatFloat(lat, 'f', 2, 64))
	q.Set("longitude", strconv.FormatFloat(landmask.Normalize(lon), 'f', 2, 64))
	q.Set("current", "wave_height,wave_direction,wave_period")

	var body marineResponse
	if err := s.get(ctx, q, &body); err != nil {
		return models.WaveSample{}, time.Time{}, false, err
	}

	cur := body.Current
	if cur.WaveHeight == nil || cur.WaveDirection == nil {
		return models.WaveSample{}, time.Time{}, false, nil
	}

	sample := models.WaveSample{
		Latitude:          lat,
		Longitude:         lon,
		SignificantHeight: *cur.WaveHeight,
		MeanDirection:     *cur.WaveDirection,
	}
	if cur.WavePeriod != nil {
		sample.MeanPeriod = *cur.WavePeriod
	}

	// An unparseable time leaves the sample usable, just undated.
	at, _ := time.ParseInLocation(currentTimeLayout, cur.Time, time.UTC)
	return sample, at, true, nil
}

// get issues a /v1/marine request and decodes the JSON body into out.
func (s *OpenMeteoSource) get(ctx context.Context, q url.Values, out interface{}) error {
	reqURL := fmt.Sprintf("%s/v1/marine?%s", s.baseURL, q.Encode())

	req, err := http.NewRequestWithContext(ctx, "GET", reqURL, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", s.userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to fetch marine data: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("API returned status %d", resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// MaxForecastDays is the longest daily forecast the marine API serves.
const MaxForecastDays = 16

// dailyResponse is the subset of a daily /v1/marine payload we read. Each
// array has one entry per day; entries are null where the model has no data.
type dailyResponse struct {
	Daily struct {
		Time          []string   `json:"time"`
		WaveHeight    []*float64 `json:"wave_height_max"`
		WaveDirection []*float64 `json:"wave_direction_dominant"`
		WavePeriod    []*float64 `json:"wave_period_max"`
	} `json:"daily"`
}

// Forecast returns up to days daily forecasts for one point, starting today
// (GMT). Days without a height or direction are left out, so the result can
// be shorter than requested.
func (s *OpenMeteoSource) Forecast(ctx context.Context, lat, lon float64, days int) ([]models.ForecastDay, error) {
	if days < 1 || days > MaxForecastDays {
		return nil, fmt.Errorf("forecast days %d outside [1, %d]", days, MaxForecastDays)
	}

	q := url.Values{}
	q.Set("latitude", strconv.FormatFloat(lat, 'f', 2, 64))
	q.Set("longitude", strconv.FormatFloat(landmask.Normalize(lon), 'f', 2, 64))
	q.Set("daily", "wave_height_max,wave_direction_dominant,wave_period_max")
	q.Set("forecast_days", strconv.Itoa(days))
	q.Set("timezone", "GMT")

	var body dailyResponse
	if err := s.get(ctx, q, &body); err != nil {
		return nil, err
	}

	daily := body.Daily
	forecast := make([]models.ForecastDay, 0, len(daily.Time))
	for i, day := range daily.Time {
		height, direction := valueAt(daily.WaveHeight, i), valueAt(daily.WaveDirection, i)
		if height == nil || direction == nil {
			continue
		}

		validTime, err := time.ParseInLocation("2006-01-02", day, time.UTC)
		if err != nil {
			return nil, fmt.Errorf("forecast day %d: %w", i, err)
		}

		fd := models.ForecastDay{
			Day:          i,
			ValidTime:    validTime,
			HeightM:      *height,
			DirectionDeg: *direction,
		}
		if period := valueAt(daily.WavePeriod, i); period != nil {
			fd.PeriodS = *period
		}
		forecast = append(forecast, fd)
	}
	return forecast, nil
}

func valueAt(values []*float64, i int) *float64 {
	if i < len(values) {
		return values[i]
	}
	return nil
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
