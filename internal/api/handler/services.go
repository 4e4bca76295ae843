package handler

import (
	"context"
	"net/http"

	"github.com/illenko/opspages/internal/api/helpers"
	"github.com/illenko/opspages/internal/models"
)

type ServiceCatalog interface {
	Create(ctx context.Context, name string) (*models.Service, error)
	List(ctx context.Context, opts models.ListOptions) ([]models.ServiceSummary, error)
	Get(ctx context.Context, id int64) (*models.Service, error)
	Update(ctx context.Context, id int64, name string) (*models.Service, error)
	Delete(ctx context.Context, id int64) error
	Dashboards(ctx context.Context, id int64) ([]models.Dashboard, error)
}

type ServicesHandler struct {
	services ServiceCatalog
}

func NewServicesHandler(services ServiceCatalog) *ServicesHandler {
	return &ServicesHandler{services: services}
}

type serviceRequest struct {
	Name string `json:"service_name" validate:"required"`
}

func (h *ServicesHandler) List(w http.ResponseWriter, r *http.Request) {
	services, err := h.services.List(r.Context(), models.ListOptions{
		Limit:  helpers.ParseIntParam(r, "limit", 0),
		Offset: helpers.ParseIntParam(r, "offset", 0),
	})
	if err != nil {
		helpers.WriteServiceError(w, r, err, "Service not found")
		return
	}
	if services == nil {
		services = []models.ServiceSummary{}
	}

	helpers.WriteData(w, http.StatusOK, services)
}

func (h *ServicesHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := helpers.PathID(r, "id")
	if err != nil {
		helpers.WriteError(w, http.StatusBadRequest, "invalid service id")
		return
	}

	svc, err := h.services.Get(r.Context(), id)
	if err != nil {
		helpers.WriteServiceError(w, r, err, "Service not found")
		return
	}

	helpers.WriteData(w, http.StatusOK, svc)
}

func (h *ServicesHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req serviceRequest
	if err := helpers.DecodeJSON(w, r, &req); err != nil {
		helpers.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := helpers.Validate(req); err != nil {
		helpers.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	svc, err := h.services.Create(r.Context(), req.Name)
	if err != nil {
		helpers.WriteServiceError(w, r, err, "Service not found")
		return
	}

	helpers.WriteData(w, http.StatusCreated, svc)
}

func (h *ServicesHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := helpers.PathID(r, "id")
	if err != nil {
		helpers.WriteError(w, http.StatusBadRequest, "invalid service id")
		return
	}

	var req serviceRequest
	if err := helpers.DecodeJSON(w, r, &req); err != nil {
		helpers.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := helpers.Validate(req); err != nil {
		helpers.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	svc, err := h.services.Update(r.Context(), id, req.Name)
	if err != nil {
		helpers.WriteServiceError(w, r, err, "Service not found")
		return
	}

	helpers.WriteData(w, http.StatusOK, svc)
}

func (h *ServicesHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := helpers.PathID(r, "id")
	if err != nil {
		helpers.WriteError(w, http.StatusBadRequest, "invalid service id")
		return
	}

	if err := h.services.Delete(r.Context(), id); err != nil {
		helpers.WriteServiceError(w, r, err, "Service not found")
		return
	}

	helpers.WriteMessage(w, http.StatusOK, "Service deleted successfully")
}

func (h *ServicesHandler) Dashboards(w http.ResponseWriter, r *http.Request) {
	id, err := helpers.PathID(r, "id")
	if err != nil {
		helpers.WriteError(w, http.StatusBadRequest, "invalid service id")
		return
	}

	dashboards, err := h.services.Dashboards(r.Context(), id)
	if err != nil {
		helpers.WriteServiceError(w, r, err, "Service not found")
		return
	}
	if dashboards == nil {
		dashboards = []models.Dashboard{}
	}

	helpers.WriteData(w, http.StatusOK, dashboards)
}
