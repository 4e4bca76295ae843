package handler

import (
	"context"
	"math"
	"net/http"
	"time"

	"github.com/illenko/opspages/internal/api/helpers"
	"github.com/illenko/opspages/internal/dates"
	"github.com/illenko/opspages/internal/models"
)

type MetricOperations interface {
	GenerateMetricsForDate(ctx context.Context, date int64) (*models.GenerationReport, error)
	GenerateMetricsForService(ctx context.Context, serviceID, date int64) (*models.GenerationReport, error)
	GenerateMetricsForServices(ctx context.Context, serviceIDs []int64, date int64) (*models.GenerationReport, error)
	FindByServiceAndDate(ctx context.Context, serviceID, date int64) ([]models.Metric, error)
	ListMetrics(ctx context.Context, f models.MetricFilter) ([]models.Metric, error)
	GetMetric(ctx context.Context, id int64) (*models.Metric, error)
	CreateMetric(ctx context.Context, m *models.Metric) (*models.Metric, error)
	UpdateMetric(ctx context.Context, id int64, u models.MetricUpdate) (*models.Metric, error)
	DeleteMetric(ctx context.Context, id int64) error
}

type MetricsHandler struct {
	metrics MetricOperations
	loc     *time.Location
}

func NewMetricsHandler(metrics MetricOperations, loc *time.Location) *MetricsHandler {
	if loc == nil {
		loc = dates.IST
	}
	return &MetricsHandler{metrics: metrics, loc: loc}
}

// GenerateForDate triggers generation for every metric config.
func (h *MetricsHandler) GenerateForDate(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Date any `json:"date"`
	}
	if err := helpers.DecodeJSON(w, r, &req); err != nil {
		helpers.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	date, ok := h.dateValue(req.Date)
	if !ok {
		helpers.WriteError(w, http.StatusBadRequest, "Date is required and must be a number or a DD-MM-YYYY string")
		return
	}

	report, err := h.metrics.GenerateMetricsForDate(r.Context(), date)
	h.writeReport(w, r, report, err)
}

func (h *MetricsHandler) GenerateForService(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ServiceID any `json:"serviceId"`
		Date      any `json:"date"`
	}
	if err := helpers.DecodeJSON(w, r, &req); err != nil {
		helpers.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	serviceID, ok := intValue(req.ServiceID)
	if !ok {
		helpers.WriteError(w, http.StatusBadRequest, "Service ID is required and must be a number")
		return
	}
	date, ok := h.dateValue(req.Date)
	if !ok {
		helpers.WriteError(w, http.StatusBadRequest, "Date is required and must be a number or a DD-MM-YYYY string")
		return
	}

	report, err := h.metrics.GenerateMetricsForService(r.Context(), serviceID, date)
	h.writeReport(w, r, report, err)
}

func (h *MetricsHandler) GenerateForServices(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ServiceIDs []any `json:"serviceIds"`
		Date       any   `json:"date"`
	}
	if err := helpers.DecodeJSON(w, r, &req); err != nil {
		helpers.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	if len(req.ServiceIDs) == 0 {
		helpers.WriteError(w, http.StatusBadRequest, "Service IDs are required and must be a non-empty array of numbers")
		return
	}
	ids := make([]int64, 0, len(req.ServiceIDs))
	for _, raw := range req.ServiceIDs {
		id, ok := intValue(raw)
		if !ok {
			helpers.WriteError(w, http.StatusBadRequest, "Service IDs are required and must be a non-empty array of numbers")
			return
		}
		ids = append(ids, id)
	}
	date, ok := h.dateValue(req.Date)
	if !ok {
		helpers.WriteError(w, http.StatusBadRequest, "Date is required and must be a number or a DD-MM-YYYY string")
		return
	}

	report, err := h.metrics.GenerateMetricsForServices(r.Context(), ids, date)
	h.writeReport(w, r, report, err)
}

func (h *MetricsHandler) writeReport(w http.ResponseWriter, r *http.Request, report *models.GenerationReport, err error) {
	if err != nil {
		helpers.WriteServiceError(w, r, err, "Metric configs not found")
		return
	}
	if report.Success {
		helpers.WriteJSON(w, http.StatusOK, map[string]any{
			"success": true,
			"message": "Metric generation triggered successfully",
			"results": report.Results,
		})
		return
	}
	msg := report.Error
	if msg == "" {
		msg = "Failed to generate metrics"
	}
	helpers.WriteJSON(w, http.StatusInternalServerError, map[string]any{
		"success": false,
		"error":   msg,
		"results": report.Results,
	})
}

// ByServiceAndDate lists the metrics of a service on ?date=DD-MM-YYYY.
func (h *MetricsHandler) ByServiceAndDate(w http.ResponseWriter, r *http.Request) {
	serviceID, err := helpers.PathID(r, "svc_id")
	if err != nil {
		helpers.WriteError(w, http.StatusBadRequest, "svc_id must be a number")
		return
	}
	date, err := dates.ToEpoch(r.URL.Query().Get("date"), h.loc)
	if err != nil {
		helpers.WriteError(w, http.StatusBadRequest, "date must be in DD-MM-YYYY format (e.g., '25-12-2023')")
		return
	}

	metrics, err := h.metrics.FindByServiceAndDate(r.Context(), serviceID, date)
	if err != nil {
		helpers.WriteServiceError(w, r, err, "Service not found")
		return
	}
	if metrics == nil {
		metrics = []models.Metric{}
	}

	helpers.WriteData(w, http.StatusOK, metrics)
}

func (h *MetricsHandler) List(w http.ResponseWriter, r *http.Request) {
	var f models.MetricFilter
	var err error
	if f.MetricsConfigID, err = helpers.ParseOptionalInt64(r, "metrics_config_id"); err != nil {
		helpers.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	if f.DateFrom, err = helpers.ParseOptionalInt64(r, "date_from"); err != nil {
		helpers.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	if f.DateTo, err = helpers.ParseOptionalInt64(r, "date_to"); err != nil {
		helpers.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	if s := r.URL.Query().Get("state"); s != "" {
		st, ok := models.ParseMetricState(s)
		if !ok {
			helpers.WriteError(w, http.StatusBadRequest, "state must be one of RESOLVED, UNRESOLVED, NOT_OUR_ISSUE, ACKNOWLEDGED")
			return
		}
		f.State = &st
	}
	f.Limit = helpers.ParseIntParam(r, "limit", 0)
	f.Offset = helpers.ParseIntParam(r, "offset", 0)

	metrics, err := h.metrics.ListMetrics(r.Context(), f)
	if err != nil {
		helpers.WriteServiceError(w, r, err, "Metric not found")
		return
	}
	if metrics == nil {
		metrics = []models.Metric{}
	}

	helpers.WriteData(w, http.StatusOK, metrics)
}

func (h *MetricsHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := helpers.PathID(r, "id")
	if err != nil {
		helpers.WriteError(w, http.StatusBadRequest, "invalid metric id")
		return
	}

	metric, err := h.metrics.GetMetric(r.Context(), id)
	if err != nil {
		helpers.WriteServiceError(w, r, err, "Metric not found")
		return
	}

	helpers.WriteData(w, http.StatusOK, metric)
}

type createMetricRequest struct {
	MetricsConfigID  int64    `json:"metrics_config_id" validate:"required,gt=0"`
	Name             *string  `json:"name"`
	Date             *int64   `json:"date"`
	State            *string  `json:"state"`
	ImageURL         *string  `json:"image_url"`
	SummaryText      *string  `json:"summary_text"`
	Comment          *string  `json:"comment"`
	Value            *float64 `json:"value"`
	CriticalityScore *int     `json:"criticalityScore" validate:"omitempty,min=1,max=100"`
}

func (h *MetricsHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createMetricRequest
	if err := helpers.DecodeJSON(w, r, &req); err != nil {
		helpers.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := helpers.Validate(req); err != nil {
		helpers.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	m := &models.Metric{
		MetricsConfigID:  req.MetricsConfigID,
		Name:             req.Name,
		Date:             req.Date,
		ImageURL:         req.ImageURL,
		SummaryText:      req.SummaryText,
		Comment:          req.Comment,
		Value:            req.Value,
		CriticalityScore: req.CriticalityScore,
	}
	if req.State != nil {
		st, ok := models.ParseMetricState(*req.State)
		if !ok {
			helpers.WriteError(w, http.StatusBadRequest, "state must be one of RESOLVED, UNRESOLVED, NOT_OUR_ISSUE, ACKNOWLEDGED")
			return
		}
		m.State = &st
	}

	created, err := h.metrics.CreateMetric(r.Context(), m)
	if err != nil {
		helpers.WriteServiceError(w, r, err, "Metric not found")
		return
	}

	helpers.WriteData(w, http.StatusCreated, created)
}

func (h *MetricsHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := helpers.PathID(r, "id")
	if err != nil {
		helpers.WriteError(w, http.StatusBadRequest, "invalid metric id")
		return
	}

	var patch models.MetricUpdate
	if err := helpers.DecodeJSON(w, r, &patch); err != nil {
		helpers.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	if patch.State != nil {
		st, ok := models.ParseMetricState(string(*patch.State))
		if !ok {
			helpers.WriteError(w, http.StatusBadRequest, "state must be one of RESOLVED, UNRESOLVED, NOT_OUR_ISSUE, ACKNOWLEDGED")
			return
		}
		patch.State = &st
	}

	metric, err := h.metrics.UpdateMetric(r.Context(), id, patch)
	if err != nil {
		helpers.WriteServiceError(w, r, err, "Metric not found")
		return
	}

	helpers.WriteJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "Metric updated successfully",
		"data":    metric,
	})
}

func (h *MetricsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := helpers.PathID(r, "id")
	if err != nil {
		helpers.WriteError(w, http.StatusBadRequest, "invalid metric id")
		return
	}

	if err := h.metrics.DeleteMetric(r.Context(), id); err != nil {
		helpers.WriteServiceError(w, r, err, "Metric not found")
		return
	}

	helpers.WriteMessage(w, http.StatusOK, "Metric deleted successfully")
}

// dateValue accepts epoch milliseconds or a DD-MM-YYYY day.
func (h *MetricsHandler) dateValue(v any) (int64, bool) {
	switch d := v.(type) {
	case float64:
		if d <= 0 || d != math.Trunc(d) {
			return 0, false
		}
		return int64(d), true
	case string:
		ms, err := dates.ToEpoch(d, h.loc)
		return ms, err == nil
	default:
		return 0, false
	}
}

func intValue(v any) (int64, bool) {
	f, ok := v.(float64)
	if !ok || f <= 0 || f != math.Trunc(f) {
		return 0, false
	}
	return int64(f), true
}
