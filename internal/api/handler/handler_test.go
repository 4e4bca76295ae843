package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/illenko/opspages/internal/dates"
	"github.com/illenko/opspages/internal/models"
	"github.com/illenko/opspages/internal/scheduler"
	"github.com/illenko/opspages/internal/service"
	"github.com/illenko/opspages/internal/storage"
)

func serve(t *testing.T, pattern string, h http.HandlerFunc, method, target, body string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc(pattern, h)

	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &decoded), rec.Body.String())
	return rec, decoded
}

type fakePageOps struct {
	PageOperations

	created     []string
	createErr   error
	withMetrics *models.PageWithMetrics
	getErr      error
	details     *models.PageDetails
	stateErr    error
	buckets     []models.WeekBucket
}

func (f *fakePageOps) CreatePageAndGenerateMetrics(_ context.Context, t models.PageType, day string, svcID int64) (*models.PageCreation, error) {
	if f.createErr != nil {
		return nil, f.createErr
	}
	f.created = append(f.created, fmt.Sprintf("%s_%s_%d", t, day, svcID))
	return &models.PageCreation{
		Page: &models.Page{ID: 1, ServiceID: svcID, Name: string(t) + "_" + day, Type: t},
		MetricGeneration: &models.GenerationReport{
			Success: false,
			Results: []models.GenerationResult{},
			Error:   fmt.Sprintf("No metric configs found for service %d", svcID),
		},
	}, nil
}

func (f *fakePageOps) GetPagesByServiceForAPI(context.Context, int64) ([]models.WeekBucket, error) {
	return f.buckets, nil
}

func (f *fakePageOps) GetPageWithMetrics(context.Context, int64) (*models.PageWithMetrics, error) {
	return f.withMetrics, f.getErr
}

func (f *fakePageOps) GetPageDetails(context.Context, int64) (*models.PageDetails, error) {
	return f.details, f.getErr
}

func (f *fakePageOps) UpdateMetricState(_ context.Context, id int64, state string) (*models.Metric, error) {
	if f.stateErr != nil {
		return nil, f.stateErr
	}
	st, ok := models.ParseMetricState(state)
	if !ok {
		return nil, &service.ValidationError{Message: "state must be one of RESOLVED, UNRESOLVED, NOT_OUR_ISSUE, ACKNOWLEDGED"}
	}
	return &models.Metric{ID: id, State: &st}, nil
}

func TestPagesHandler_CreateValidation(t *testing.T) {
	h := NewPagesHandler(&fakePageOps{})

	tests := []struct {
		name string
		body string
		want string
	}{
		{"missing type", `{"date":"25-12-2023","svc_id":1}`, "type is required and must be either 'DAILY' or 'WEEKLY'"},
		{"bad type", `{"type":"MONTHLY","date":"25-12-2023","svc_id":1}`, "type is required and must be either 'DAILY' or 'WEEKLY'"},
		{"missing date", `{"type":"DAILY","svc_id":1}`, "date is required and must be a string in DD-MM-YYYY format"},
		{"numeric date", `{"type":"DAILY","date":20231225,"svc_id":1}`, "date is required and must be a string in DD-MM-YYYY format"},
		{"bad date", `{"type":"DAILY","date":"2023-12-25","svc_id":1}`, "date must be in DD-MM-YYYY format (e.g., '25-12-2023')"},
		{"string svc", `{"type":"DAILY","date":"25-12-2023","svc_id":"1"}`, "svc_id is required and must be a number"},
		{"missing svc", `{"type":"DAILY","date":"25-12-2023"}`, "svc_id is required and must be a number"},
		{"huge svc", `{"type":"DAILY","date":"25-12-2023","svc_id":1e20}`, "svc_id is required and must be a number"},
		{"svc at int64 limit", `{"type":"DAILY","date":"25-12-2023","svc_id":9223372036854775808}`, "svc_id is required and must be a number"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, body := serve(t, "POST /api/page", h.Create, http.MethodPost, "/api/page", tt.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Equal(t, false, body["success"])
			assert.Equal(t, tt.want, body["error"])
		})
	}
}

func TestPagesHandler_Create(t *testing.T) {
	ops := &fakePageOps{}
	h := NewPagesHandler(ops)

	rec, body := serve(t, "POST /api/page", h.Create, http.MethodPost, "/api/page",
		`{"type":"DAILY","date":"25-12-2023","svc_id":1}`)

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, "Page created and metric generation triggered successfully", body["message"])
	assert.Equal(t, []string{"DAILY_25-12-2023_1"}, ops.created)

	data := body["data"].(map[string]any)
	assert.Equal(t, "DAILY_25-12-2023", data["page"].(map[string]any)["name"])
	gen := data["metricGeneration"].(map[string]any)
	assert.Equal(t, false, gen["success"])
	assert.Equal(t, "No metric configs found for service 1", gen["error"])
}

func TestPagesHandler_CreateUnknownService(t *testing.T) {
	h := NewPagesHandler(&fakePageOps{createErr: fmt.Errorf("create page: %w", storage.ErrInvalidReference)})

	rec, _ := serve(t, "POST /api/page", h.Create, http.MethodPost, "/api/page",
		`{"type":"DAILY","date":"25-12-2023","svc_id":99}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPagesHandler_ListByService(t *testing.T) {
	h := NewPagesHandler(&fakePageOps{buckets: []models.WeekBucket{{ID: "week-2023-12-25", Synthetic: true}}})

	rec, body := serve(t, "GET /api/page/service/{svc_id}", h.ListByService, http.MethodGet, "/api/page/service/1", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, body["response"], 1)

	rec, body = serve(t, "GET /api/page/service/{svc_id}", h.ListByService, http.MethodGet, "/api/page/service/abc", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, false, body["success"])
	assert.Equal(t, map[string]any{"message": "Error"}, body["response"])
}

func TestPagesHandler_GetWithMetrics(t *testing.T) {
	date := int64(1703442600000)
	ok := &fakePageOps{withMetrics: &models.PageWithMetrics{
		Page:    &models.Page{ID: 4, Date: &date},
		Metrics: []models.Metric{{ID: 1}},
	}}
	rec, body := serve(t, "GET /api/page/page/{page_id}", NewPagesHandler(ok).GetWithMetrics, http.MethodGet, "/api/page/page/4", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, body["data"].(map[string]any)["metrics"], 1)

	missing := &fakePageOps{getErr: fmt.Errorf("page 4: %w", storage.ErrNotFound)}
	rec, body = serve(t, "GET /api/page/page/{page_id}", NewPagesHandler(missing).GetWithMetrics, http.MethodGet, "/api/page/page/4", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Page not found", body["error"])

	undated := &fakePageOps{getErr: fmt.Errorf("page 4: %w", service.ErrPageHasNoDate)}
	rec, _ = serve(t, "GET /api/page/page/{page_id}", NewPagesHandler(undated).GetWithMetrics, http.MethodGet, "/api/page/page/4", "")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestPagesHandler_Details(t *testing.T) {
	ops := &fakePageOps{details: &models.PageDetails{Name: "DAILY_25-12-2023", Summary: "No summary available"}}

	rec, body := serve(t, "GET /api/page/details/{page_id}", NewPagesHandler(ops).Details, http.MethodGet, "/api/page/details/1", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "No summary available", body["response"].(map[string]any)["summary"])
}

func TestPagesHandler_UpdateMetricState(t *testing.T) {
	h := NewPagesHandler(&fakePageOps{})
	pattern := "PUT /api/page/metric/{metric_id}/state"

	rec, body := serve(t, pattern, h.UpdateMetricState, http.MethodPut, "/api/page/metric/3/state", `{"state":"resolved"}`)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "RESOLVED", body["data"].(map[string]any)["state"])

	rec, _ = serve(t, pattern, h.UpdateMetricState, http.MethodPut, "/api/page/metric/3/state", `{"state":"DONE"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, body = serve(t, pattern, h.UpdateMetricState, http.MethodPut, "/api/page/metric/3/state", `{}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "state is required", body["error"])

	missing := NewPagesHandler(&fakePageOps{stateErr: fmt.Errorf("update metric: %w", storage.ErrNotFound)})
	rec, body = serve(t, pattern, missing.UpdateMetricState, http.MethodPut, "/api/page/metric/3/state", `{"state":"RESOLVED"}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Metric not found", body["error"])
}

type fakeMetricOps struct {
	MetricOperations

	report    *models.GenerationReport
	serviceID int64
	date      int64
	ids       []int64
}

func (f *fakeMetricOps) GenerateMetricsForDate(_ context.Context, date int64) (*models.GenerationReport, error) {
	f.date = date
	return f.report, nil
}

func (f *fakeMetricOps) GenerateMetricsForService(_ context.Context, serviceID, date int64) (*models.GenerationReport, error) {
	f.serviceID, f.date = serviceID, date
	return f.report, nil
}

func (f *fakeMetricOps) GenerateMetricsForServices(_ context.Context, ids []int64, date int64) (*models.GenerationReport, error) {
	f.ids, f.date = ids, date
	return f.report, nil
}

func (f *fakeMetricOps) FindByServiceAndDate(_ context.Context, serviceID, date int64) ([]models.Metric, error) {
	f.serviceID, f.date = serviceID, date
	return nil, nil
}

func TestMetricsHandler_Generate(t *testing.T) {
	ok := &fakeMetricOps{report: &models.GenerationReport{Success: true, Results: []models.GenerationResult{{ConfigID: 1, Success: true}}}}
	h := NewMetricsHandler(ok, dates.IST)

	rec, body := serve(t, "POST /api/metrics/generate/service", h.GenerateForService, http.MethodPost,
		"/api/metrics/generate/service", `{"serviceId":2,"date":"25-12-2023"}`)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Metric generation triggered successfully", body["message"])
	assert.Equal(t, int64(2), ok.serviceID)
	assert.Equal(t, int64(1703442600000), ok.date)

	rec, _ = serve(t, "POST /api/metrics/generate/date", h.GenerateForDate, http.MethodPost,
		"/api/metrics/generate/date", `{"date":1703442600000}`)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, int64(1703442600000), ok.date)

	rec, _ = serve(t, "POST /api/metrics/generate/services", h.GenerateForServices, http.MethodPost,
		"/api/metrics/generate/services", `{"serviceIds":[1,3],"date":1}`)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []int64{1, 3}, ok.ids)

	rec, body = serve(t, "POST /api/metrics/generate/service", h.GenerateForService, http.MethodPost,
		"/api/metrics/generate/service", `{"serviceId":"2","date":1}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Service ID is required and must be a number", body["error"])

	rec, _ = serve(t, "POST /api/metrics/generate/services", h.GenerateForServices, http.MethodPost,
		"/api/metrics/generate/services", `{"serviceIds":[],"date":1}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestMetricsHandler_GenerateFailure(t *testing.T) {
	failed := &fakeMetricOps{report: &models.GenerationReport{
		Success: false,
		Results: []models.GenerationResult{{ConfigID: 1, Success: false, Error: "API call failed"}},
	}}
	h := NewMetricsHandler(failed, dates.IST)

	rec, body := serve(t, "POST /api/metrics/generate/date", h.GenerateForDate, http.MethodPost,
		"/api/metrics/generate/date", `{"date":1}`)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "Failed to generate metrics", body["error"])
	assert.Len(t, body["results"], 1)
}

func TestMetricsHandler_ByServiceAndDate(t *testing.T) {
	ops := &fakeMetricOps{}
	h := NewMetricsHandler(ops, dates.IST)

	rec, body := serve(t, "GET /api/metrics/service/{svc_id}", h.ByServiceAndDate, http.MethodGet,
		"/api/metrics/service/5?date=25-12-2023", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []any{}, body["data"])
	assert.Equal(t, int64(5), ops.serviceID)
	assert.Equal(t, int64(1703442600000), ops.date)

	rec, _ = serve(t, "GET /api/metrics/service/{svc_id}", h.ByServiceAndDate, http.MethodGet,
		"/api/metrics/service/5?date=2023-12-25", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

type fakeCatalog struct {
	ServiceCatalog
	names map[string]bool
}

func (f *fakeCatalog) Create(_ context.Context, name string) (*models.Service, error) {
	if f.names[name] {
		return nil, fmt.Errorf("service %q: %w", name, storage.ErrConflict)
	}
	f.names[name] = true
	return &models.Service{ID: int64(len(f.names)), Name: name}, nil
}

func TestServicesHandler_Create(t *testing.T) {
	h := NewServicesHandler(&fakeCatalog{names: map[string]bool{}})

	rec, body := serve(t, "POST /api/services", h.Create, http.MethodPost, "/api/services", `{"service_name":"payments"}`)
	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "payments", body["data"].(map[string]any)["service_name"])

	rec, body = serve(t, "POST /api/services", h.Create, http.MethodPost, "/api/services", `{"service_name":"payments"}`)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, false, body["success"])

	rec, body = serve(t, "POST /api/services", h.Create, http.MethodPost, "/api/services", `{}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "service_name is required", body["error"])
}

func (f *fakeCatalog) Delete(context.Context, int64) error {
	return fmt.Errorf("failed to delete from services: %w (pages_service_id_fkey)", storage.ErrInUse)
}

func TestServicesHandler_DeleteStillReferenced(t *testing.T) {
	h := NewServicesHandler(&fakeCatalog{names: map[string]bool{}})

	rec, body := serve(t, "DELETE /api/services/{id}", h.Delete, http.MethodDelete, "/api/services/1", "")
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, false, body["success"])
	assert.Equal(t, "record is still referenced", body["error"])
}

type fakeUsers struct {
	UserStore
	created []models.User
}

func (f *fakeUsers) Create(_ context.Context, u *models.User) (*models.User, error) {
	u.ID = int64(len(f.created) + 1)
	f.created = append(f.created, *u)
	return u, nil
}

func (f *fakeUsers) Get(context.Context, int64) (*models.User, error) {
	return nil, nil
}

func TestUsersHandler(t *testing.T) {
	users := &fakeUsers{}
	h := NewUsersHandler(users)

	rec, body := serve(t, "POST /api/users", h.Create, http.MethodPost, "/api/users", `{"name":"Ana","email":"not-an-email"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "email must be a valid email address", body["error"])

	rec, _ = serve(t, "POST /api/users", h.Create, http.MethodPost, "/api/users", `{"name":"Ana","email":"ana@example.com"}`)
	assert.Equal(t, http.StatusCreated, rec.Code)
	require.Len(t, users.created, 1)

	rec, body = serve(t, "GET /api/users/{id}", h.Get, http.MethodGet, "/api/users/9", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "User not found", body["error"])
}

type fakeProducts struct {
	ProductStore
}

func (fakeProducts) Create(_ context.Context, p *models.Product) (*models.Product, error) {
	p.ID = 1
	return p, nil
}

func TestProductsHandler_Create(t *testing.T) {
	h := NewProductsHandler(fakeProducts{})

	rec, body := serve(t, "POST /api/products", h.Create, http.MethodPost, "/api/products", `{"name":"Pager","price":-1}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "price must be at least 0", body["error"])

	rec, body = serve(t, "POST /api/products", h.Create, http.MethodPost, "/api/products", `{"name":"Pager"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "price is required", body["error"])

	rec, _ = serve(t, "POST /api/products", h.Create, http.MethodPost, "/api/products", `{"name":"Pager","price":0}`)
	assert.Equal(t, http.StatusCreated, rec.Code)
}

type fakeActionItems struct {
	ActionItemStore
}

func (fakeActionItems) Create(_ context.Context, a *models.ActionItem) (*models.ActionItem, error) {
	return nil, fmt.Errorf("create action item: %w", storage.ErrInvalidReference)
}

func TestActionItemsHandler_Create(t *testing.T) {
	h := NewActionItemsHandler(fakeActionItems{})

	rec, body := serve(t, "POST /api/action_items", h.Create, http.MethodPost, "/api/action_items", `{"jira_link":"not a url","metric_id":1}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "jira_link must be a valid URL", body["error"])

	rec, body = serve(t, "POST /api/action_items", h.Create, http.MethodPost, "/api/action_items", `{"jira_link":"https://jira.example/OPS-1","metric_id":404}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "referenced record does not exist", body["error"])
}

type fakeStats struct{ err error }

func (f fakeStats) Stats(context.Context) (*storage.DBStats, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &storage.DBStats{Services: 2}, nil
}

type fakeCheck struct{ err error }

func (f fakeCheck) HealthCheck(context.Context) error { return f.err }

func TestHealthHandler(t *testing.T) {
	h := NewHealthHandler(fakeStats{}, map[string]HealthChecker{"prometheus": fakeCheck{}}, "dev")
	rec, body := serve(t, "GET /health", h.Health, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "healthy", body["status"])
	assert.Equal(t, "i am batman", body["message"])

	h = NewHealthHandler(fakeStats{}, map[string]HealthChecker{"grafana": fakeCheck{err: errors.New("down")}}, "dev")
	_, body = serve(t, "GET /health", h.Health, http.MethodGet, "/health", "")
	assert.Equal(t, "degraded", body["status"])
	assert.Equal(t, map[string]any{"grafana": false}, body["integrations"])

	h = NewHealthHandler(fakeStats{err: errors.New("refused")}, nil, "dev")
	rec, body = serve(t, "GET /health", h.Health, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, false, body["database_ok"])
}

type fakeScheduler struct {
	err error
}

func (f fakeScheduler) GetStatus() scheduler.RunStatus {
	return scheduler.RunStatus{Schedule: "30 0 * * *", PagesCreated: 3}
}

func (f fakeScheduler) TriggerRun(context.Context) error { return f.err }

func TestSchedulerHandler(t *testing.T) {
	h := NewSchedulerHandler(fakeScheduler{})
	rec, body := serve(t, "POST /api/scheduler/run", h.Trigger, http.MethodPost, "/api/scheduler/run", "")
	assert.Equal(t, http.StatusAccepted, rec.Code)
	assert.Equal(t, true, body["success"])

	rec, body = serve(t, "GET /api/scheduler/status", h.Status, http.MethodGet, "/api/scheduler/status", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(3), body["data"].(map[string]any)["pages_created"])

	busy := NewSchedulerHandler(fakeScheduler{err: scheduler.ErrRunAlreadyInProgress})
	rec, _ = serve(t, "POST /api/scheduler/run", busy.Trigger, http.MethodPost, "/api/scheduler/run", "")
	assert.Equal(t, http.StatusConflict, rec.Code)

	none := NewSchedulerHandler(nil)
	rec, _ = serve(t, "POST /api/scheduler/run", none.Trigger, http.MethodPost, "/api/scheduler/run", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
