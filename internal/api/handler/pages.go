package handler

import (
	"context"
	"math"
	"net/http"
	"strings"

	"github.com/illenko/opspages/internal/api/helpers"
	"github.com/illenko/opspages/internal/dates"
	"github.com/illenko/opspages/internal/models"
	"github.com/illenko/opspages/internal/service"
)

type PageOperations interface {
	CreatePageAndGenerateMetrics(ctx context.Context, pageType models.PageType, day string, serviceID int64) (*models.PageCreation, error)
	GetPagesByServiceForAPI(ctx context.Context, serviceID int64) ([]models.WeekBucket, error)
	GetPageWithMetrics(ctx context.Context, pageID int64) (*models.PageWithMetrics, error)
	GetPageDetails(ctx context.Context, pageID int64) (*models.PageDetails, error)
	UpdateMetricState(ctx context.Context, metricID int64, state string) (*models.Metric, error)
	ListPages(ctx context.Context, f models.PageFilter) ([]models.Page, error)
	GetPage(ctx context.Context, id int64) (*models.Page, error)
	CreatePage(ctx context.Context, in service.PageInput) (*models.Page, error)
	UpdatePage(ctx context.Context, id int64, u models.PageUpdate) (*models.Page, error)
	DeletePage(ctx context.Context, id int64) error
}

type PagesHandler struct {
	pages PageOperations
}

func NewPagesHandler(pages PageOperations) *PagesHandler {
	return &PagesHandler{pages: pages}
}

// createPageRequest keeps loose field types so each field gets its own
// validation message.
type createPageRequest struct {
	Type  any `json:"type"`
	Date  any `json:"date"`
	SvcID any `json:"svc_id"`
}

func (h *PagesHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createPageRequest
	if err := helpers.DecodeJSON(w, r, &req); err != nil {
		helpers.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	pageType, ok := req.Type.(string)
	if !ok || !models.PageType(pageType).Valid() {
		helpers.WriteError(w, http.StatusBadRequest, "type is required and must be either 'DAILY' or 'WEEKLY'")
		return
	}
	day, ok := req.Date.(string)
	if !ok || day == "" {
		helpers.WriteError(w, http.StatusBadRequest, "date is required and must be a string in DD-MM-YYYY format")
		return
	}
	if !dates.Valid(day) {
		helpers.WriteError(w, http.StatusBadRequest, "date must be in DD-MM-YYYY format (e.g., '25-12-2023')")
		return
	}
	svcID, ok := req.SvcID.(float64)
	if !ok || svcID != math.Trunc(svcID) || svcID <= 0 || svcID >= math.MaxInt64 {
		helpers.WriteError(w, http.StatusBadRequest, "svc_id is required and must be a number")
		return
	}

	res, err := h.pages.CreatePageAndGenerateMetrics(r.Context(), models.PageType(pageType), day, int64(svcID))
	if err != nil {
		helpers.WriteServiceError(w, r, err, "Service not found")
		return
	}

	helpers.WriteJSON(w, http.StatusCreated, map[string]any{
		"success": true,
		"message": "Page created and metric generation triggered successfully",
		"data":    res,
	})
}

func (h *PagesHandler) ListByService(w http.ResponseWriter, r *http.Request) {
	serviceID, err := helpers.PathID(r, "svc_id")
	if err != nil {
		helpers.WriteJSON(w, http.StatusBadRequest, map[string]any{
			"success":  false,
			"response": map[string]string{"message": "Error"},
		})
		return
	}

	buckets, err := h.pages.GetPagesByServiceForAPI(r.Context(), serviceID)
	if err != nil {
		helpers.WriteServiceError(w, r, err, "Service not found")
		return
	}

	helpers.WriteJSON(w, http.StatusOK, map[string]any{"success": true, "response": buckets})
}

func (h *PagesHandler) GetWithMetrics(w http.ResponseWriter, r *http.Request) {
	pageID, err := helpers.PathID(r, "page_id")
	if err != nil {
		helpers.WriteError(w, http.StatusBadRequest, "page_id must be a number")
		return
	}

	res, err := h.pages.GetPageWithMetrics(r.Context(), pageID)
	if err != nil {
		helpers.WriteServiceError(w, r, err, "Page not found")
		return
	}

	helpers.WriteData(w, http.StatusOK, res)
}

func (h *PagesHandler) Details(w http.ResponseWriter, r *http.Request) {
	pageID, err := helpers.PathID(r, "page_id")
	if err != nil {
		helpers.WriteError(w, http.StatusBadRequest, "page_id must be a number")
		return
	}

	details, err := h.pages.GetPageDetails(r.Context(), pageID)
	if err != nil {
		helpers.WriteServiceError(w, r, err, "Page not found")
		return
	}

	helpers.WriteJSON(w, http.StatusOK, map[string]any{"success": true, "response": details})
}

func (h *PagesHandler) UpdateMetricState(w http.ResponseWriter, r *http.Request) {
	metricID, err := helpers.PathID(r, "metric_id")
	if err != nil {
		helpers.WriteError(w, http.StatusBadRequest, "metric_id must be a number")
		return
	}

	var req struct {
		State string `json:"state" validate:"required"`
	}
	if err := helpers.DecodeJSON(w, r, &req); err != nil {
		helpers.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := helpers.Validate(req); err != nil {
		helpers.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	metric, err := h.pages.UpdateMetricState(r.Context(), metricID, req.State)
	if err != nil {
		helpers.WriteServiceError(w, r, err, "Metric not found")
		return
	}

	helpers.WriteJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "Metric state updated successfully",
		"data":    metric,
	})
}

func (h *PagesHandler) List(w http.ResponseWriter, r *http.Request) {
	serviceID, err := helpers.ParseOptionalInt64(r, "service_id")
	if err != nil {
		helpers.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	parentID, err := helpers.ParseOptionalInt64(r, "parent_id")
	if err != nil {
		helpers.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	f := models.PageFilter{
		ServiceID: serviceID,
		ParentID:  parentID,
		Limit:     helpers.ParseIntParam(r, "limit", 0),
		Offset:    helpers.ParseIntParam(r, "offset", 0),
	}
	if t := r.URL.Query().Get("type"); t != "" {
		pt := models.PageType(strings.ToUpper(t))
		f.Type = &pt
	}

	pages, err := h.pages.ListPages(r.Context(), f)
	if err != nil {
		helpers.WriteServiceError(w, r, err, "Page not found")
		return
	}
	if pages == nil {
		pages = []models.Page{}
	}

	helpers.WriteData(w, http.StatusOK, pages)
}

func (h *PagesHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := helpers.PathID(r, "id")
	if err != nil {
		helpers.WriteError(w, http.StatusBadRequest, "invalid page id")
		return
	}

	page, err := h.pages.GetPage(r.Context(), id)
	if err != nil {
		helpers.WriteServiceError(w, r, err, "Page not found")
		return
	}

	helpers.WriteData(w, http.StatusOK, page)
}

type plainPageRequest struct {
	ServiceID   int64   `json:"service_id" validate:"required,gt=0"`
	Type        string  `json:"type" validate:"required,oneof=DAILY WEEKLY"`
	Name        string  `json:"name"`
	Date        string  `json:"date"`
	ParentID    *int64  `json:"parent_id"`
	Heading     *string `json:"heading"`
	Annotations *string `json:"annotations"`
}

// CreatePlain stores a page without triggering metric generation.
func (h *PagesHandler) CreatePlain(w http.ResponseWriter, r *http.Request) {
	var req plainPageRequest
	if err := helpers.DecodeJSON(w, r, &req); err != nil {
		helpers.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := helpers.Validate(req); err != nil {
		helpers.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	page, err := h.pages.CreatePage(r.Context(), service.PageInput{
		ServiceID:   req.ServiceID,
		Type:        models.PageType(req.Type),
		Name:        req.Name,
		Date:        req.Date,
		ParentID:    req.ParentID,
		Heading:     req.Heading,
		Annotations: req.Annotations,
	})
	if err != nil {
		helpers.WriteServiceError(w, r, err, "Page not found")
		return
	}

	helpers.WriteData(w, http.StatusCreated, page)
}

func (h *PagesHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := helpers.PathID(r, "id")
	if err != nil {
		helpers.WriteError(w, http.StatusBadRequest, "invalid page id")
		return
	}

	var patch models.PageUpdate
	if err := helpers.DecodeJSON(w, r, &patch); err != nil {
		helpers.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	page, err := h.pages.UpdatePage(r.Context(), id, patch)
	if err != nil {
		helpers.WriteServiceError(w, r, err, "Page not found")
		return
	}

	helpers.WriteData(w, http.StatusOK, page)
}

func (h *PagesHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := helpers.PathID(r, "id")
	if err != nil {
		helpers.WriteError(w, http.StatusBadRequest, "invalid page id")
		return
	}

	if err := h.pages.DeletePage(r.Context(), id); err != nil {
		helpers.WriteServiceError(w, r, err, "Page not found")
		return
	}

	helpers.WriteMessage(w, http.StatusOK, "Page deleted successfully")
}
