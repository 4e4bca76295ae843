package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/illenko/opspages/internal/dates"
	"github.com/illenko/opspages/internal/models"
	"github.com/illenko/opspages/internal/storage"
)

type ServiceStore interface {
	Create(ctx context.Context, name string) (*models.Service, error)
	List(ctx context.Context, opts models.ListOptions) ([]models.Service, error)
	Get(ctx context.Context, id int64) (*models.Service, error)
	GetByName(ctx context.Context, name string) (*models.Service, error)
	Update(ctx context.Context, id int64, name string) (*models.Service, error)
	Delete(ctx context.Context, id int64) error
}

type DashboardSearcher interface {
	SearchDashboards(ctx context.Context, query string) ([]models.Dashboard, error)
}

type ServiceService struct {
	services   ServiceStore
	dashboards DashboardSearcher
}

// NewServiceService builds the service catalog. dashboards may be nil when
// Grafana is not configured.
func NewServiceService(services ServiceStore, dashboards DashboardSearcher) *ServiceService {
	return &ServiceService{services: services, dashboards: dashboards}
}

func (s *ServiceService) Create(ctx context.Context, name string) (*models.Service, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, invalid("service_name is required")
	}
	if err := s.ensureNameFree(ctx, name, 0); err != nil {
		return nil, err
	}
	return s.services.Create(ctx, name)
}

func (s *ServiceService) List(ctx context.Context, opts models.ListOptions) ([]models.ServiceSummary, error) {
	services, err := s.services.List(ctx, opts)
	if err != nil {
		return nil, err
	}
	out := make([]models.ServiceSummary, 0, len(services))
	for _, svc := range services {
		out = append(out, models.ServiceSummary{ID: svc.ID, Name: svc.Name})
	}
	return out, nil
}

// ListAll returns every service with full rows.
func (s *ServiceService) ListAll(ctx context.Context) ([]models.Service, error) {
	return s.services.List(ctx, models.ListOptions{})
}

func (s *ServiceService) Get(ctx context.Context, id int64) (*models.Service, error) {
	svc, err := s.services.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if svc == nil {
		return nil, fmt.Errorf("service %d: %w", id, storage.ErrNotFound)
	}
	return svc, nil
}

func (s *ServiceService) Update(ctx context.Context, id int64, name string) (*models.Service, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, invalid("service_name is required")
	}
	if err := s.ensureNameFree(ctx, name, id); err != nil {
		return nil, err
	}
	return s.services.Update(ctx, id, name)
}

func (s *ServiceService) Delete(ctx context.Context, id int64) error {
	return s.services.Delete(ctx, id)
}

// Dashboards lists the Grafana dashboards matching the service name.
func (s *ServiceService) Dashboards(ctx context.Context, id int64) ([]models.Dashboard, error) {
	if s.dashboards == nil {
		return nil, fmt.Errorf("grafana: %w", ErrNotConfigured)
	}
	svc, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.dashboards.SearchDashboards(ctx, svc.Name)
}

func (s *ServiceService) ensureNameFree(ctx context.Context, name string, selfID int64) error {
	existing, err := s.services.GetByName(ctx, name)
	if err != nil {
		return err
	}
	if existing != nil && existing.ID != selfID {
		return fmt.Errorf("service %q: %w", name, storage.ErrConflict)
	}
	return nil
}

// PromQLEvaluator evaluates an instant PromQL expression to a single value.
// A nil value means the expression matched no series.
type PromQLEvaluator interface {
	QueryScalar(ctx context.Context, expr string, at time.Time) (*float64, error)
}

type MetricsConfigService struct {
	configs    ConfigStore
	prometheus PromQLEvaluator
	loc        *time.Location
}

// NewMetricsConfigService builds the config catalog. prometheus may be nil
// when no Prometheus server is configured.
func NewMetricsConfigService(configs ConfigStore, prometheus PromQLEvaluator, loc *time.Location) *MetricsConfigService {
	if loc == nil {
		loc = dates.IST
	}
	return &MetricsConfigService{configs: configs, prometheus: prometheus, loc: loc}
}

func (s *MetricsConfigService) Create(ctx context.Context, c *models.MetricsConfig) (*models.MetricsConfig, error) {
	c.PromQLName = strings.TrimSpace(c.PromQLName)
	c.Name = strings.TrimSpace(c.Name)
	switch {
	case c.PromQLName == "":
		return nil, invalid("promql_name is required")
	case c.Name == "":
		return nil, invalid("name is required")
	case c.ServiceID <= 0:
		return nil, invalid("service_id is required and must be a number")
	}
	if c.Aggregation == "" {
		c.Aggregation = models.AggregationSum
	}
	if !c.Aggregation.Valid() {
		return nil, invalid("aggregation must be either 'SUM' or 'AVERAGE'")
	}
	if err := s.ensurePromQLNameFree(ctx, c.PromQLName, 0); err != nil {
		return nil, err
	}
	return s.configs.Create(ctx, c)
}

func (s *MetricsConfigService) List(ctx context.Context, f storage.MetricsConfigFilter) ([]models.MetricsConfig, error) {
	return s.configs.List(ctx, f)
}

func (s *MetricsConfigService) Get(ctx context.Context, id int64) (*models.MetricsConfig, error) {
	c, err := s.configs.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, fmt.Errorf("metric config %d: %w", id, storage.ErrNotFound)
	}
	return c, nil
}

func (s *MetricsConfigService) Update(ctx context.Context, id int64, u models.MetricsConfigUpdate) (*models.MetricsConfig, error) {
	if u.Aggregation != nil && !u.Aggregation.Valid() {
		return nil, invalid("aggregation must be either 'SUM' or 'AVERAGE'")
	}
	if u.PromQLName != nil {
		name := strings.TrimSpace(*u.PromQLName)
		if name == "" {
			return nil, invalid("promql_name must not be empty")
		}
		u.PromQLName = &name
		if err := s.ensurePromQLNameFree(ctx, name, id); err != nil {
			return nil, err
		}
	}
	if u.Name != nil && strings.TrimSpace(*u.Name) == "" {
		return nil, invalid("name must not be empty")
	}
	return s.configs.Update(ctx, id, u)
}

func (s *MetricsConfigService) Delete(ctx context.Context, id int64) error {
	return s.configs.Delete(ctx, id)
}

// Preview evaluates the aggregated config query at the start of day, or now
// when day is empty.
func (s *MetricsConfigService) Preview(ctx context.Context, id int64, day string) (*models.ConfigPreview, error) {
	if s.prometheus == nil {
		return nil, fmt.Errorf("prometheus: %w", ErrNotConfigured)
	}

	at := time.Now()
	if day != "" {
		t, err := dates.Parse(day, s.loc)
		if err != nil {
			return nil, invalid("date must be in DD-MM-YYYY format (e.g., '25-12-2023')")
		}
		at = t
	}

	c, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	expr := AggregateExpr(c.Aggregation, c.PromQLName)
	value, err := s.prometheus.QueryScalar(ctx, expr, at)
	if err != nil {
		return nil, fmt.Errorf("failed to evaluate %s: %w", expr, err)
	}

	return &models.ConfigPreview{
		ConfigID:    c.ID,
		Query:       expr,
		Aggregation: c.Aggregation,
		Value:       value,
		EvaluatedAt: at.UnixMilli(),
	}, nil
}

// AggregateExpr wraps a metric name in the PromQL aggregation of agg.
func AggregateExpr(agg models.Aggregation, promqlName string) string {
	if agg == models.AggregationAverage {
		return "avg(" + promqlName + ")"
	}
	return "sum(" + promqlName + ")"
}

func (s *MetricsConfigService) ensurePromQLNameFree(ctx context.Context, name string, selfID int64) error {
	existing, err := s.configs.GetByPromQLName(ctx, name)
	if err != nil {
		return err
	}
	if existing != nil && existing.ID != selfID {
		return fmt.Errorf("metric config %q: %w", name, storage.ErrConflict)
	}
	return nil
}
