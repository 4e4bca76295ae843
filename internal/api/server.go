package api

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/illenko/opspages/internal/api/handler"
	"github.com/illenko/opspages/internal/api/helpers"
)

type Server struct {
	httpServer *http.Server
}

type ServerConfig struct {
	Host           string
	Port           int
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	RequestTimeout time.Duration
	CORSOrigins    []string
}

type Handlers struct {
	Health        *handler.HealthHandler
	Pages         *handler.PagesHandler
	Metrics       *handler.MetricsHandler
	MetricConfigs *handler.MetricConfigsHandler
	Services      *handler.ServicesHandler
	ActionItems   *handler.ActionItemsHandler
	Users         *handler.UsersHandler
	Products      *handler.ProductsHandler
	Scheduler     *handler.SchedulerHandler
}

func NewServer(h Handlers, cfg ServerConfig) *Server {
	if cfg.ReadTimeout == 0 {
		cfg.ReadTimeout = 30 * time.Second
	}
	if cfg.WriteTimeout == 0 {
		cfg.WriteTimeout = 30 * time.Second
	}

	return &Server{
		httpServer: &http.Server{
			Addr:         cfg.Host + ":" + strconv.Itoa(cfg.Port),
			Handler:      NewHandler(h, cfg, prometheus.NewRegistry()),
			ReadTimeout:  cfg.ReadTimeout,
			WriteTimeout: cfg.WriteTimeout,
		},
	}
}

// NewHandler builds the routed handler with middleware. HTTP metrics are
// registered in reg and exposed on /metrics.
func NewHandler(h Handlers, cfg ServerConfig, reg *prometheus.Registry) http.Handler {
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metrics := newHTTPMetrics(reg)

	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", h.Health.Health)
	mux.Handle("GET /metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))

	mux.HandleFunc("POST /api/page", h.Pages.Create)
	mux.HandleFunc("GET /api/page", h.Pages.List)
	mux.HandleFunc("POST /api/page/plain", h.Pages.CreatePlain)
	mux.HandleFunc("GET /api/page/service/{svc_id}", h.Pages.ListByService)
	mux.HandleFunc("GET /api/page/page/{page_id}", h.Pages.GetWithMetrics)
	mux.HandleFunc("GET /api/page/details/{page_id}", h.Pages.Details)
	mux.HandleFunc("PUT /api/page/metric/{metric_id}/state", h.Pages.UpdateMetricState)
	mux.HandleFunc("GET /api/page/{id}", h.Pages.Get)
	mux.HandleFunc("PUT /api/page/{id}", h.Pages.Update)
	mux.HandleFunc("DELETE /api/page/{id}", h.Pages.Delete)

	mux.HandleFunc("POST /api/metrics/generate/date", h.Metrics.GenerateForDate)
	mux.HandleFunc("POST /api/metrics/generate/service", h.Metrics.GenerateForService)
	mux.HandleFunc("POST /api/metrics/generate/services", h.Metrics.GenerateForServices)
	mux.HandleFunc("GET /api/metrics/service/{svc_id}", h.Metrics.ByServiceAndDate)
	mux.HandleFunc("GET /api/metrics", h.Metrics.List)
	mux.HandleFunc("POST /api/metrics", h.Metrics.Create)
	mux.HandleFunc("GET /api/metrics/{id}", h.Metrics.Get)
	mux.HandleFunc("PUT /api/metrics/{id}", h.Metrics.Update)
	mux.HandleFunc("DELETE /api/metrics/{id}", h.Metrics.Delete)

	mux.HandleFunc("GET /api/metric_config", h.MetricConfigs.List)
	mux.HandleFunc("POST /api/metric_config", h.MetricConfigs.Create)
	mux.HandleFunc("GET /api/metric_config/{id}", h.MetricConfigs.Get)
	mux.HandleFunc("PUT /api/metric_config/{id}", h.MetricConfigs.Update)
	mux.HandleFunc("DELETE /api/metric_config/{id}", h.MetricConfigs.Delete)
	mux.HandleFunc("POST /api/metric_config/{id}/preview", h.MetricConfigs.Preview)

	mux.HandleFunc("GET /api/services", h.Services.List)
	mux.HandleFunc("POST /api/services", h.Services.Create)
	mux.HandleFunc("GET /api/services/{id}", h.Services.Get)
	mux.HandleFunc("PUT /api/services/{id}", h.Services.Update)
	mux.HandleFunc("DELETE /api/services/{id}", h.Services.Delete)
	mux.HandleFunc("GET /api/services/{id}/dashboards", h.Services.Dashboards)

	mux.HandleFunc("GET /api/action_items", h.ActionItems.List)
	mux.HandleFunc("POST /api/action_items", h.ActionItems.Create)
	mux.HandleFunc("GET /api/action_items/{id}", h.ActionItems.Get)
	mux.HandleFunc("PUT /api/action_items/{id}", h.ActionItems.Update)
	mux.HandleFunc("DELETE /api/action_items/{id}", h.ActionItems.Delete)

	mux.HandleFunc("GET /api/users", h.Users.List)
	mux.HandleFunc("POST /api/users", h.Users.Create)
	mux.HandleFunc("GET /api/users/{id}", h.Users.Get)
	mux.HandleFunc("PUT /api/users/{id}", h.Users.Update)
	mux.HandleFunc("DELETE /api/users/{id}", h.Users.Delete)

	mux.HandleFunc("GET /api/products", h.Products.List)
	mux.HandleFunc("POST /api/products", h.Products.Create)
	mux.HandleFunc("GET /api/products/{id}", h.Products.Get)
	mux.HandleFunc("PUT /api/products/{id}", h.Products.Update)
	mux.HandleFunc("DELETE /api/products/{id}", h.Products.Delete)

	mux.HandleFunc("GET /api/scheduler/status", h.Scheduler.Status)
	mux.HandleFunc("POST /api/scheduler/run", h.Scheduler.Trigger)

	mux.HandleFunc("/", routeNotFound)

	return withCORS(withMiddleware(mux, metrics, cfg.RequestTimeout), cfg.CORSOrigins)
}

func routeNotFound(w http.ResponseWriter, r *http.Request) {
	helpers.WriteJSON(w, http.StatusNotFound, map[string]any{
		"success": false,
		"error":   "Route not found",
		"path":    r.URL.Path,
		"method":  r.Method,
	})
}

func (s *Server) Start() error {
	slog.Info("starting HTTP server", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
