package handlers

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	ghandlers "github.com/gorilla/handlers"
	"github.com/gorilla/mux"

	"wave-platform/pkg/logging"
)

// RequestIDHeader carries the request id in both directions.
const RequestIDHeader = "X-Request-ID"

// CORS allows any origin to read the API and wave data. Preflight requests
// are answered with 204 before reaching the router.
func CORS(next http.Handler) http.Handler {
	return ghandlers.CORS(
		ghandlers.AllowedOrigins([]string{"*"}),
		ghandlers.AllowedMethods([]string{http.MethodGet, http.MethodHead, http.MethodOptions}),
		ghandlers.AllowedHeaders([]string{"Content-Type", RequestIDHeader}),
		ghandlers.ExposedHeaders([]string{RequestIDHeader}),
		ghandlers.OptionStatusCode(http.StatusNoContent),
	)(next)
}

// NoStore disables client caching.
func NoStore(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "no-store, no-cache, must-revalidate")
		next.ServeHTTP(w, r)
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

// RequestLogger tags each request with an id (reusing the caller's
// X-Request-ID when present) and logs its outcome.
func RequestLogger(logger *logging.StructuredLogger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			id := r.Header.Get(RequestIDHeader)
			if id == "" {
				id = uuid.NewString()
			}
			w.Header().Set(RequestIDHeader, id)
			ctx := logging.WithRequestID(r.Context(), id)

			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(rec, r.WithContext(ctx))

			logger.Info(ctx, "[API_REQUEST] Request handled", logging.Fields{
				"method":      r.Method,
				"path":        r.URL.Path,
				"status":      rec.status,
				"duration_ms": time.Since(start).Milliseconds(),
				"remote_addr": r.RemoteAddr,
			})
		})
	}
}

// NewRouter wires the API routes, the /metrics endpoint and, when staticDir
// is set, the visualization front end at "/". Responses are gzip-compressed
// for clients that accept it.
func NewRouter(h *WaveHandler, metricsHandler http.Handler, staticDir string) http.Handler {
	router := mux.NewRouter()
	router.Use(RequestLogger(h.logger))

	h.RegisterRoutes(router)

	if metricsHandler != nil {
		router.Handle("/metrics", metricsHandler).Methods("GET")
	}
	if staticDir != "" {
		router.PathPrefix("/").Handler(NoStore(http.FileServer(http.Dir(staticDir))))
	}

	return CORS(ghandlers.CompressHandler(router))
}
