package service

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"

	"golang.org/x/sync/errgroup"

	"github.com/illenko/opspages/internal/events"
	"github.com/illenko/opspages/internal/models"
	"github.com/illenko/opspages/internal/storage"
)

const generationFailedMessage = "API call failed"

type MetricStore interface {
	Create(ctx context.Context, m *models.Metric) (*models.Metric, error)
	Get(ctx context.Context, id int64) (*models.Metric, error)
	List(ctx context.Context, f models.MetricFilter) ([]models.Metric, error)
	ListByConfigsAndDate(ctx context.Context, configIDs []int64, date int64) ([]models.Metric, error)
	Update(ctx context.Context, id int64, u models.MetricUpdate) (*models.Metric, error)
	Delete(ctx context.Context, id int64) error
}

type ConfigStore interface {
	Create(ctx context.Context, c *models.MetricsConfig) (*models.MetricsConfig, error)
	Get(ctx context.Context, id int64) (*models.MetricsConfig, error)
	GetByPromQLName(ctx context.Context, name string) (*models.MetricsConfig, error)
	List(ctx context.Context, f storage.MetricsConfigFilter) ([]models.MetricsConfig, error)
	ListByService(ctx context.Context, serviceID int64) ([]models.MetricsConfig, error)
	ListByServices(ctx context.Context, serviceIDs []int64) ([]models.MetricsConfig, error)
	Update(ctx context.Context, id int64, u models.MetricsConfigUpdate) (*models.MetricsConfig, error)
	Delete(ctx context.Context, id int64) error
}

// MetricGenerator triggers computation of one metric by the external generator.
type MetricGenerator interface {
	GenerateMetric(ctx context.Context, configID, date int64) (bool, error)
}

type MetricService struct {
	metrics        MetricStore
	configs        ConfigStore
	generator      MetricGenerator
	events         events.Publisher
	maxConcurrency int
	logger         *slog.Logger
}

// NewMetricService builds the service. maxConcurrency bounds simultaneous
// generator calls per request; zero means no bound.
func NewMetricService(metrics MetricStore, configs ConfigStore, generator MetricGenerator, publisher events.Publisher, maxConcurrency int) *MetricService {
	if publisher == nil {
		publisher = events.Nop{}
	}
	return &MetricService{
		metrics:        metrics,
		configs:        configs,
		generator:      generator,
		events:         publisher,
		maxConcurrency: maxConcurrency,
		logger:         slog.Default().With("component", "metric_service"),
	}
}

func (s *MetricService) GenerateMetricsForDate(ctx context.Context, date int64) (*models.GenerationReport, error) {
	configs, err := s.configs.List(ctx, storage.MetricsConfigFilter{})
	if err != nil {
		return nil, fmt.Errorf("failed to load metric configs: %w", err)
	}
	return s.generate(ctx, configs, date, "No metric configs found", "date", nil), nil
}

func (s *MetricService) GenerateMetricsForService(ctx context.Context, serviceID, date int64) (*models.GenerationReport, error) {
	configs, err := s.configs.ListByService(ctx, serviceID)
	if err != nil {
		return nil, fmt.Errorf("failed to load metric configs for service %d: %w", serviceID, err)
	}
	empty := fmt.Sprintf("No metric configs found for service %d", serviceID)
	return s.generate(ctx, configs, date, empty, "service", []int64{serviceID}), nil
}

func (s *MetricService) GenerateMetricsForServices(ctx context.Context, serviceIDs []int64, date int64) (*models.GenerationReport, error) {
	configs, err := s.configs.ListByServices(ctx, serviceIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to load metric configs for services: %w", err)
	}
	empty := fmt.Sprintf("No metric configs found for services %v", serviceIDs)
	return s.generate(ctx, configs, date, empty, "services", serviceIDs), nil
}

// generate calls the generator once per config and waits for all of them.
// Results keep the order of configs.
func (s *MetricService) generate(ctx context.Context, configs []models.MetricsConfig, date int64, emptyMessage, scope string, serviceIDs []int64) *models.GenerationReport {
	if len(configs) == 0 {
		return &models.GenerationReport{
			Success: false,
			Results: []models.GenerationResult{},
			Error:   emptyMessage,
		}
	}

	// Dispatched generator calls outlive the caller; each attempt is bounded
	// by the client timeout only.
	ctx = context.WithoutCancel(ctx)

	results := make([]models.GenerationResult, len(configs))

	var g errgroup.Group
	if s.maxConcurrency > 0 {
		g.SetLimit(s.maxConcurrency)
	}
	for i, cfg := range configs {
		g.Go(func() error {
			results[i] = s.generateOne(ctx, cfg.ID, date)
			return nil
		})
	}
	_ = g.Wait()

	report := &models.GenerationReport{Success: true, Results: results}
	failed := 0
	for _, r := range results {
		if !r.Success {
			report.Success = false
			failed++
		}
	}

	s.logger.Info("metric generation finished",
		"scope", scope,
		"date", date,
		"configs", len(configs),
		"failed", failed,
	)

	s.publish(ctx, events.Event{
		Type: events.TypeGenerationCompleted,
		Key:  scope + "-" + strconv.FormatInt(date, 10),
		Payload: events.GenerationCompleted{
			Scope:      scope,
			ServiceIDs: serviceIDs,
			Date:       date,
			Total:      len(configs),
			Failed:     failed,
		},
	})

	return report
}

func (s *MetricService) generateOne(ctx context.Context, configID, date int64) models.GenerationResult {
	ok, err := s.generator.GenerateMetric(ctx, configID, date)
	if err != nil {
		s.logger.Warn("metric generation failed", "config_id", configID, "error", err)
		return models.GenerationResult{ConfigID: configID, Success: false, Error: err.Error()}
	}
	if !ok {
		return models.GenerationResult{ConfigID: configID, Success: false, Error: generationFailedMessage}
	}
	return models.GenerationResult{ConfigID: configID, Success: true}
}

// FindByServiceAndDate returns the metrics of every config of the service
// observed on date.
func (s *MetricService) FindByServiceAndDate(ctx context.Context, serviceID, date int64) ([]models.Metric, error) {
	configs, err := s.configs.ListByService(ctx, serviceID)
	if err != nil {
		return nil, fmt.Errorf("failed to load metric configs for service %d: %w", serviceID, err)
	}

	ids := make([]int64, 0, len(configs))
	for _, c := range configs {
		ids = append(ids, c.ID)
	}

	metrics, err := s.metrics.ListByConfigsAndDate(ctx, ids, date)
	if err != nil {
		return nil, fmt.Errorf("failed to load metrics for service %d: %w", serviceID, err)
	}
	return metrics, nil
}

func (s *MetricService) ListMetrics(ctx context.Context, f models.MetricFilter) ([]models.Metric, error) {
	return s.metrics.List(ctx, f)
}

func (s *MetricService) GetMetric(ctx context.Context, id int64) (*models.Metric, error) {
	m, err := s.metrics.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if m == nil {
		return nil, fmt.Errorf("metric %d: %w", id, storage.ErrNotFound)
	}
	return m, nil
}

func (s *MetricService) CreateMetric(ctx context.Context, m *models.Metric) (*models.Metric, error) {
	if m.MetricsConfigID <= 0 {
		return nil, invalid("metrics_config_id is required and must be a number")
	}
	if err := validateMetricFields(m.State, m.CriticalityScore); err != nil {
		return nil, err
	}
	return s.metrics.Create(ctx, m)
}

func (s *MetricService) UpdateMetric(ctx context.Context, id int64, u models.MetricUpdate) (*models.Metric, error) {
	if err := validateMetricFields(u.State, u.CriticalityScore); err != nil {
		return nil, err
	}
	m, err := s.metrics.Update(ctx, id, u)
	if err != nil {
		return nil, err
	}

	if u.State != nil {
		s.publish(ctx, events.Event{
			Type: events.TypeMetricStateChanged,
			Key:  "metric-" + strconv.FormatInt(m.ID, 10),
			Payload: events.MetricStateChanged{
				MetricID: m.ID,
				ConfigID: m.MetricsConfigID,
				State:    string(*u.State),
			},
		})
	}
	return m, nil
}

func (s *MetricService) DeleteMetric(ctx context.Context, id int64) error {
	return s.metrics.Delete(ctx, id)
}

func validateMetricFields(state *models.MetricState, score *int) error {
	if state != nil {
		if _, ok := models.ParseMetricState(string(*state)); !ok {
			return invalid("state must be one of RESOLVED, UNRESOLVED, NOT_OUR_ISSUE, ACKNOWLEDGED")
		}
	}
	if score != nil && (*score < 1 || *score > 100) {
		return invalid("criticalityScore must be between 1 and 100")
	}
	return nil
}

func (s *MetricService) publish(ctx context.Context, e events.Event) {
	if err := s.events.Publish(ctx, e); err != nil {
		s.logger.Warn("failed to publish event", "type", e.Type, "error", err)
	}
}
