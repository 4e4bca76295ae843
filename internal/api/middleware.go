package api

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/rs/cors"

	"github.com/illenko/opspages/internal/api/helpers"
)

const (
	defaultRequestTimeout = 30 * time.Second
	requestIDHeader       = "X-Request-ID"
)

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}

func withMiddleware(next http.Handler, metrics *httpMetrics, timeout time.Duration) http.Handler {
	if timeout <= 0 {
		timeout = defaultRequestTimeout
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}

		requestID := r.Header.Get(requestIDHeader)
		if requestID == "" {
			requestID = uuid.NewString()
		}
		sw.Header().Set(requestIDHeader, requestID)

		ctx, cancel := context.WithTimeout(helpers.WithRequestID(r.Context(), requestID), timeout)
		defer cancel()
		req := r.WithContext(ctx)

		defer func() {
			if err := recover(); err != nil {
				slog.Error("panic recovered", "error", err, "path", r.URL.Path, "request_id", requestID)
				helpers.WriteError(sw, http.StatusInternalServerError, "Internal server error")
			}

			route := req.Pattern
			if route == "" {
				route = "unmatched"
			}
			metrics.observe(r.Method, route, strconv.Itoa(sw.status), time.Since(start))

			slog.Debug("request completed",
				"method", r.Method,
				"path", r.URL.Path,
				"status", sw.status,
				"request_id", requestID,
				"duration", time.Since(start),
			)
		}()

		next.ServeHTTP(sw, req)
	})
}

func withCORS(next http.Handler, origins []string) http.Handler {
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	return cors.New(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{
			http.MethodGet,
			http.MethodPost,
			http.MethodPut,
			http.MethodDelete,
			http.MethodOptions,
		},
		AllowedHeaders: []string{"Content-Type", "Authorization", requestIDHeader},
		ExposedHeaders: []string{requestIDHeader},
		MaxAge:         300,
	}).Handler(next)
}
