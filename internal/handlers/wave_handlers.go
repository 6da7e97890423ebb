package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"wave-platform/internal/models"
	"wave-platform/internal/repository"
	"wave-platform/internal/services"
	"wave-platform/pkg/logging"
	"wave-platform/pkg/metrics"
)

// WaveHandler handles wave artifact and run history endpoints
type WaveHandler struct {
	waveService *services.WaveService
	logger      *logging.StructuredLogger
	metrics     *metrics.Collector
}

// NewWaveHandler creates a new wave handler
func NewWaveHandler(
	waveService *services.WaveService,
	logger *logging.StructuredLogger,
	metricsCollector *metrics.Collector,
) *WaveHandler {
	return &WaveHandler{
		waveService: waveService,
		logger:      logger,
		metrics:     metricsCollector,
	}
}

// ErrorResponse represents an API error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Code    int    `json:"code"`
}

// PaginatedResponse represents a paginated API response
type PaginatedResponse struct {
	Data       interface{} `json:"data"`
	Total      int         `json:"total"`
	Page       int         `json:"page"`
	Limit      int         `json:"limit"`
	TotalPages int         `json:"total_pages"`
}

func (h *WaveHandler) observe(endpoint string, start time.Time) {
	h.metrics.APIRequestDuration.WithLabelValues(endpoint).Observe(time.Since(start).Seconds())
}

// GetArtifact handles GET /data/wave-data.json
func (h *WaveHandler) GetArtifact(w http.ResponseWriter, r *http.Request) {
	const endpoint = "/data/wave-data.json"
	defer h.observe(endpoint, time.Now())
	ctx := r.Context()

	data, err := h.waveService.Artifact(ctx)
	if errors.Is(err, services.ErrNoArtifact) {
		h.sendError(w, r, endpoint, "no wave data has been generated yet", http.StatusNotFound)
		return
	}
	if err != nil {
		h.logger.Error(ctx, "[API_ARTIFACT_ERROR] Failed to read artifact", logging.Fields{}, err)
		h.metrics.RecordAPIError("internal_error", endpoint)
		h.sendError(w, r, endpoint, "failed to read wave data", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store, no-cache, must-revalidate")
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.WriteHeader(http.StatusOK)
	w.Write(data)

	h.metrics.RecordAPIRequest(endpoint, r.Method, "200")
}

// ListRuns handles GET /api/runs
func (h *WaveHandler) ListRuns(w http.ResponseWriter, r *http.Request) {
	const endpoint = "/api/runs"
	defer h.observe(endpoint, time.Now())
	ctx := r.Context()

	page := 1
	limit := 20

	if p, err := strconv.Atoi(r.URL.Query().Get("page")); err == nil && p > 0 {
		page = p
	}
	if l, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil && l > 0 && l <= 500 {
		limit = l
	}

	filter := repository.RunFilter{
		Limit:  limit,
		Offset: (page - 1) * limit,
	}
	if source := r.URL.Query().Get("source"); source != "" {
		filter.Source = &source
	}

	runs, total, err := h.waveService.ListRuns(ctx, filter)
	if err != nil {
		h.logger.Error(ctx, "[API_LIST_RUNS_ERROR] Failed to list runs", logging.Fields{
			"page":  page,
			"limit": limit,
		}, err)
		h.metrics.RecordAPIError("internal_error", endpoint)
		h.sendError(w, r, endpoint, "failed to retrieve runs", http.StatusInternalServerError)
		return
	}

	response := PaginatedResponse{
		Data:       runs,
		Total:      total,
		Page:       page,
		Limit:      limit,
		TotalPages: (total + limit - 1) / limit,
	}

	h.metrics.RecordAPIRequest(endpoint, r.Method, "200")
	h.sendJSON(w, response, http.StatusOK)
}

// GetLatestRun handles GET /api/runs/latest
func (h *WaveHandler) GetLatestRun(w http.ResponseWriter, r *http.Request) {
	const endpoint = "/api/runs/latest"
	defer h.observe(endpoint, time.Now())

	run, err := h.waveService.LatestRun(r.Context())
	h.sendRun(w, r, endpoint, run, err)
}

// GetRun handles GET /api/runs/{id}
func (h *WaveHandler) GetRun(w http.ResponseWriter, r *http.Request) {
	const endpoint = "/api/runs/{id}"
	defer h.observe(endpoint, time.Now())

	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil || id <= 0 {
		h.sendError(w, r, endpoint, "run id must be a positive integer", http.StatusBadRequest)
		return
	}

	run, err := h.waveService.GetRun(r.Context(), id)
	h.sendRun(w, r, endpoint, run, err)
}

func (h *WaveHandler) sendRun(w http.ResponseWriter, r *http.Request, endpoint string, run *models.GridRun, err error) {
	var notFound *repository.NotFoundError
	switch {
	case errors.As(err, &notFound):
		h.sendError(w, r, endpoint, notFound.Error(), http.StatusNotFound)
	case err != nil:
		h.logger.Error(r.Context(), "[API_GET_RUN_ERROR] Failed to get run", logging.Fields{
			"endpoint": endpoint,
		}, err)
		h.metrics.RecordAPIError("internal_error", endpoint)
		h.sendError(w, r, endpoint, "failed to retrieve run", http.StatusInternalServerError)
	default:
		h.metrics.RecordAPIRequest(endpoint, r.Method, "200")
		h.sendJSON(w, run, http.StatusOK)
	}
}

// GetPoint handles GET /api/wave/point?lat=&lon=
func (h *WaveHandler) GetPoint(w http.ResponseWriter, r *http.Request) {
	const endpoint = "/api/wave/point"
	defer h.observe(endpoint, time.Now())
	ctx := r.Context()

	lat, latErr := strconv.ParseFloat(r.URL.Query().Get("lat"), 64)
	lon, lonErr := strconv.ParseFloat(r.URL.Query().Get("lon"), 64)
	if latErr != nil || lonErr != nil {
		h.sendError(w, r, endpoint, "lat and lon query parameters must be numbers", http.StatusBadRequest)
		return
	}

	reading, err := h.waveService.PointAt(ctx, lat, lon)
	var validationErr *models.ValidationError
	switch {
	case errors.As(err, &validationErr):
		h.sendError(w, r, endpoint, validationErr.Message, http.StatusBadRequest)
	case errors.Is(err, services.ErrNoArtifact):
		h.sendError(w, r, endpoint, "no wave data has been generated yet", http.StatusNotFound)
	case err != nil:
		h.logger.Error(ctx, "[API_POINT_ERROR] Point lookup failed", logging.Fields{
			"lat": lat,
			"lon": lon,
		}, err)
		h.metrics.RecordAPIError("internal_error", endpoint)
		h.sendError(w, r, endpoint, "failed to look up point", http.StatusInternalServerError)
	default:
		h.metrics.RecordAPIRequest(endpoint, r.Method, "200")
		h.sendJSON(w, reading, http.StatusOK)
	}
}

// GetForecast handles GET /api/wave/forecast?lat=&lon=&days=
func (h *WaveHandler) GetForecast(w http.ResponseWriter, r *http.Request) {
	const endpoint = "/api/wave/forecast"
	defer h.observe(endpoint, time.Now())
	ctx := r.Context()

	query := r.URL.Query()
	lat, latErr := strconv.ParseFloat(query.Get("lat"), 64)
	lon, lonErr := strconv.ParseFloat(query.Get("lon"), 64)
	if latErr != nil || lonErr != nil {
		h.sendError(w, r, endpoint, "lat and lon query parameters must be numbers", http.StatusBadRequest)
		return
	}

	days := 0
	if raw := query.Get("days"); raw != "" {
		d, err := strconv.Atoi(raw)
		if err != nil {
			h.sendError(w, r, endpoint, "days must be an integer", http.StatusBadRequest)
			return
		}
		days = d
	}

	forecast, err := h.waveService.Forecast(ctx, lat, lon, days)
	var validationErr *models.ValidationError
	switch {
	case errors.As(err, &validationErr):
		h.sendError(w, r, endpoint, validationErr.Message, http.StatusBadRequest)
	case errors.Is(err, services.ErrNoForecaster):
		h.sendError(w, r, endpoint, "point forecasts are not available", http.StatusServiceUnavailable)
	case err != nil:
		h.logger.Error(ctx, "[API_FORECAST_ERROR] Forecast fetch failed", logging.Fields{
			"lat":  lat,
			"lon":  lon,
			"days": days,
		}, err)
		h.metrics.RecordAPIError("upstream_error", endpoint)
		h.sendError(w, r, endpoint, "failed to fetch forecast", http.StatusBadGateway)
	default:
		h.metrics.RecordAPIRequest(endpoint, r.Method, "200")
		h.sendJSON(w, forecast, http.StatusOK)
	}
}

// HealthCheck handles GET /health
func (h *WaveHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	status := map[string]string{
		"status":    "healthy",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	}
	code := http.StatusOK

	if err := h.waveService.HealthCheck(ctx); err != nil {
		h.logger.Warn(ctx, "[HEALTH_CHECK_FAILED] Database unreachable", logging.Fields{
			"error": err.Error(),
		})
		status["status"] = "unhealthy"
		status["database"] = err.Error()
		code = http.StatusServiceUnavailable
	}

	h.logger.Debug(ctx, "[HEALTH_CHECK] Health check requested", logging.Fields{})
	h.sendJSON(w, status, code)
}

// sendJSON sends a JSON response
func (h *WaveHandler) sendJSON(w http.ResponseWriter, data interface{}, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(data)
}

// sendError sends an error response
func (h *WaveHandler) sendError(w http.ResponseWriter, r *http.Request, endpoint, message string, statusCode int) {
	h.metrics.RecordAPIRequest(endpoint, r.Method, strconv.Itoa(statusCode))

	response := ErrorResponse{
		Error:   http.StatusText(statusCode),
		Message: message,
		Code:    statusCode,
	}

	h.sendJSON(w, response, statusCode)
}

// RegisterRoutes registers all wave API routes
func (h *WaveHandler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/data/wave-data.json", h.GetArtifact).Methods("GET", "HEAD")
	router.HandleFunc("/api/runs", h.ListRuns).Methods("GET")
	router.HandleFunc("/api/runs/latest", h.GetLatestRun).Methods("GET")
	router.HandleFunc("/api/runs/{id:[0-9]+}", h.GetRun).Methods("GET")
	router.HandleFunc("/api/wave/point", h.GetPoint).Methods("GET")
	router.HandleFunc("/api/wave/forecast", h.GetForecast).Methods("GET")
	router.HandleFunc("/health", h.HealthCheck).Methods("GET")
	router.HandleFunc("/api/docs", SwaggerUI).Methods("GET")
	router.HandleFunc("/api/docs/openapi.json", OpenAPISpec).Methods("GET")
}
