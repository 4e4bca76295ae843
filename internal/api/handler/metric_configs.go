package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/illenko/opspages/internal/api/helpers"
	"github.com/illenko/opspages/internal/models"
	"github.com/illenko/opspages/internal/storage"
)

type MetricsConfigCatalog interface {
	Create(ctx context.Context, c *models.MetricsConfig) (*models.MetricsConfig, error)
	List(ctx context.Context, f storage.MetricsConfigFilter) ([]models.MetricsConfig, error)
	Get(ctx context.Context, id int64) (*models.MetricsConfig, error)
	Update(ctx context.Context, id int64, u models.MetricsConfigUpdate) (*models.MetricsConfig, error)
	Delete(ctx context.Context, id int64) error
	Preview(ctx context.Context, id int64, day string) (*models.ConfigPreview, error)
}

type MetricConfigsHandler struct {
	configs MetricsConfigCatalog
}

func NewMetricConfigsHandler(configs MetricsConfigCatalog) *MetricConfigsHandler {
	return &MetricConfigsHandler{configs: configs}
}

type metricsConfigRequest struct {
	PromQLName  string  `json:"promql_name" validate:"required"`
	Name        string  `json:"name" validate:"required"`
	Description *string `json:"description"`
	ServiceID   int64   `json:"service_id" validate:"required,gt=0"`
	Aggregation string  `json:"aggregation" validate:"omitempty,oneof=SUM AVERAGE"`
}

func (h *MetricConfigsHandler) List(w http.ResponseWriter, r *http.Request) {
	serviceID, err := helpers.ParseOptionalInt64(r, "service_id")
	if err != nil {
		helpers.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	f := storage.MetricsConfigFilter{
		ServiceID: serviceID,
		Limit:     helpers.ParseIntParam(r, "limit", 0),
		Offset:    helpers.ParseIntParam(r, "offset", 0),
	}
	if name := r.URL.Query().Get("promql_name"); name != "" {
		f.PromQLName = &name
	}

	configs, err := h.configs.List(r.Context(), f)
	if err != nil {
		helpers.WriteServiceError(w, r, err, "Metric config not found")
		return
	}
	if configs == nil {
		configs = []models.MetricsConfig{}
	}

	helpers.WriteData(w, http.StatusOK, configs)
}

func (h *MetricConfigsHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := helpers.PathID(r, "id")
	if err != nil {
		helpers.WriteError(w, http.StatusBadRequest, "invalid metric config id")
		return
	}

	c, err := h.configs.Get(r.Context(), id)
	if err != nil {
		helpers.WriteServiceError(w, r, err, "Metric config not found")
		return
	}

	helpers.WriteData(w, http.StatusOK, c)
}

func (h *MetricConfigsHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req metricsConfigRequest
	if err := helpers.DecodeJSON(w, r, &req); err != nil {
		helpers.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	req.Aggregation = strings.ToUpper(req.Aggregation)
	if err := helpers.Validate(req); err != nil {
		helpers.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	c, err := h.configs.Create(r.Context(), &models.MetricsConfig{
		PromQLName:  req.PromQLName,
		Name:        req.Name,
		Description: req.Description,
		ServiceID:   req.ServiceID,
		Aggregation: models.Aggregation(req.Aggregation),
	})
	if err != nil {
		helpers.WriteServiceError(w, r, err, "Metric config not found")
		return
	}

	helpers.WriteData(w, http.StatusCreated, c)
}

func (h *MetricConfigsHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := helpers.PathID(r, "id")
	if err != nil {
		helpers.WriteError(w, http.StatusBadRequest, "invalid metric config id")
		return
	}

	var patch models.MetricsConfigUpdate
	if err := helpers.DecodeJSON(w, r, &patch); err != nil {
		helpers.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	if patch.Aggregation != nil {
		agg := models.Aggregation(strings.ToUpper(string(*patch.Aggregation)))
		patch.Aggregation = &agg
	}

	c, err := h.configs.Update(r.Context(), id, patch)
	if err != nil {
		helpers.WriteServiceError(w, r, err, "Metric config not found")
		return
	}

	helpers.WriteData(w, http.StatusOK, c)
}

func (h *MetricConfigsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := helpers.PathID(r, "id")
	if err != nil {
		helpers.WriteError(w, http.StatusBadRequest, "invalid metric config id")
		return
	}

	if err := h.configs.Delete(r.Context(), id); err != nil {
		helpers.WriteServiceError(w, r, err, "Metric config not found")
		return
	}

	helpers.WriteMessage(w, http.StatusOK, "Metric config deleted successfully")
}

// Preview evaluates the config query on Prometheus. The optional body
// {"date": "DD-MM-YYYY"} picks the evaluation day.
func (h *MetricConfigsHandler) Preview(w http.ResponseWriter, r *http.Request) {
	id, err := helpers.PathID(r, "id")
	if err != nil {
		helpers.WriteError(w, http.StatusBadRequest, "invalid metric config id")
		return
	}

	var req struct {
		Date string `json:"date"`
	}
	if r.ContentLength != 0 {
		if err := helpers.DecodeJSON(w, r, &req); err != nil {
			helpers.WriteError(w, http.StatusBadRequest, err.Error())
			return
		}
	}

	preview, err := h.configs.Preview(r.Context(), id, req.Date)
	if err != nil {
		helpers.WriteServiceError(w, r, err, "Metric config not found")
		return
	}

	helpers.WriteData(w, http.StatusOK, preview)
}
