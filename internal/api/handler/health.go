package handler

import (
	"context"
	"net/http"

	"github.com/illenko/opspages/internal/api/helpers"
	"github.com/illenko/opspages/internal/storage"
)

type DatabaseStats interface {
	Stats(ctx context.Context) (*storage.DBStats, error)
}

type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

type HealthHandler struct {
	db      DatabaseStats
	checks  map[string]HealthChecker
	version string
}

type HealthStatus struct {
	Status       string           `json:"status"`
	Message      string           `json:"message"`
	Version      string           `json:"version,omitempty"`
	DatabaseOK   bool             `json:"database_ok"`
	Database     *storage.DBStats `json:"database,omitempty"`
	Integrations map[string]bool  `json:"integrations,omitempty"`
}

// NewHealthHandler builds the health endpoint. checks holds optional
// integrations by name; a failing integration degrades the status without
// making it unhealthy.
func NewHealthHandler(db DatabaseStats, checks map[string]HealthChecker, version string) *HealthHandler {
	return &HealthHandler{db: db, checks: checks, version: version}
}

func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	status := HealthStatus{
		Status:     "healthy",
		Message:    "i am batman",
		Version:    h.version,
		DatabaseOK: true,
	}

	stats, err := h.db.Stats(ctx)
	if err != nil {
		status.Status = "unhealthy"
		status.DatabaseOK = false
	} else {
		status.Database = stats
	}

	for name, check := range h.checks {
		if check == nil {
			continue
		}
		if status.Integrations == nil {
			status.Integrations = make(map[string]bool)
		}
		ok := check.HealthCheck(ctx) == nil
		status.Integrations[name] = ok
		if !ok && status.Status == "healthy" {
			status.Status = "degraded"
		}
	}

	code := http.StatusOK
	if !status.DatabaseOK {
		code = http.StatusServiceUnavailable
	}
	helpers.WriteJSON(w, code, status)
}
