package service

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/illenko/opspages/internal/dates"
	"github.com/illenko/opspages/internal/events"
	"github.com/illenko/opspages/internal/models"
	"github.com/illenko/opspages/internal/storage"
)

type PageStore interface {
	Create(ctx context.Context, p *models.Page) (*models.Page, error)
	Get(ctx context.Context, id int64) (*models.Page, error)
	List(ctx context.Context, f models.PageFilter) ([]models.Page, error)
	ListByService(ctx context.Context, serviceID int64) ([]models.Page, error)
	Find(ctx context.Context, serviceID int64, pageType models.PageType, date int64) (*models.Page, error)
	Update(ctx context.Context, id int64, u models.PageUpdate) (*models.Page, error)
	Delete(ctx context.Context, id int64) error
}

// MetricOperations is the part of MetricService pages depend on.
type MetricOperations interface {
	GenerateMetricsForService(ctx context.Context, serviceID, date int64) (*models.GenerationReport, error)
	FindByServiceAndDate(ctx context.Context, serviceID, date int64) ([]models.Metric, error)
	UpdateMetric(ctx context.Context, id int64, u models.MetricUpdate) (*models.Metric, error)
}

// ImageResolver turns a stored image reference into a URL a browser can load.
type ImageResolver interface {
	ResolveImageURL(ctx context.Context, ref string) string
}

type PageService struct {
	pages   PageStore
	metrics MetricOperations
	images  ImageResolver
	events  events.Publisher
	loc     *time.Location
	logger  *slog.Logger
}

func NewPageService(pages PageStore, metrics MetricOperations, images ImageResolver, publisher events.Publisher, loc *time.Location) *PageService {
	if publisher == nil {
		publisher = events.Nop{}
	}
	if loc == nil {
		loc = dates.IST
	}
	return &PageService{
		pages:   pages,
		metrics: metrics,
		images:  images,
		events:  publisher,
		loc:     loc,
		logger:  slog.Default().With("component", "page_service"),
	}
}

// Location is the zone reporting days are computed in.
func (s *PageService) Location() *time.Location {
	return s.loc
}

// CreatePageAndGenerateMetrics stores a page for day and then asks the
// generator for every metric config of the service. The page stays stored
// when generation fails; the failure is reported in the result.
func (s *PageService) CreatePageAndGenerateMetrics(ctx context.Context, pageType models.PageType, day string, serviceID int64) (*models.PageCreation, error) {
	if !pageType.Valid() {
		return nil, invalid("type is required and must be either 'DAILY' or 'WEEKLY'")
	}
	date, err := dates.ToEpoch(day, s.loc)
	if err != nil {
		return nil, invalid("date must be in DD-MM-YYYY format (e.g., '25-12-2023')")
	}

	page, err := s.pages.Create(ctx, &models.Page{
		ServiceID: serviceID,
		Name:      pageName(pageType, day),
		Type:      pageType,
		Date:      &date,
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("page created", "page_id", page.ID, "service_id", serviceID, "name", page.Name)
	s.publishPageCreated(ctx, page)

	// The page is committed; a caller going away must not abort generation.
	report, err := s.metrics.GenerateMetricsForService(context.WithoutCancel(ctx), serviceID, date)
	if err != nil {
		s.logger.Error("metric generation failed", "page_id", page.ID, "error", err)
		report = &models.GenerationReport{
			Success: false,
			Results: []models.GenerationResult{},
			Error:   err.Error(),
		}
	}

	return &models.PageCreation{Page: page, MetricGeneration: report}, nil
}

// EnsureDailyPage creates the DAILY page of the service for day unless one
// already exists. created is false when the page was already there.
func (s *PageService) EnsureDailyPage(ctx context.Context, serviceID int64, day string) (*models.PageCreation, bool, error) {
	date, err := dates.ToEpoch(day, s.loc)
	if err != nil {
		return nil, false, invalid("date must be in DD-MM-YYYY format (e.g., '25-12-2023')")
	}
	existing, err := s.pages.Find(ctx, serviceID, models.PageTypeDaily, date)
	if err != nil {
		return nil, false, err
	}
	if existing != nil {
		return &models.PageCreation{Page: existing}, false, nil
	}
	res, err := s.CreatePageAndGenerateMetrics(ctx, models.PageTypeDaily, day, serviceID)
	if err != nil {
		return nil, false, err
	}
	return res, true, nil
}

// GetPageWithMetrics returns the page and the metrics of its service on the
// page date.
func (s *PageService) GetPageWithMetrics(ctx context.Context, pageID int64) (*models.PageWithMetrics, error) {
	page, err := s.GetPage(ctx, pageID)
	if err != nil {
		return nil, err
	}
	if page.Date == nil {
		return nil, fmt.Errorf("page %d: %w", pageID, ErrPageHasNoDate)
	}

	metrics, err := s.metrics.FindByServiceAndDate(ctx, page.ServiceID, *page.Date)
	if err != nil {
		return nil, err
	}
	if metrics == nil {
		metrics = []models.Metric{}
	}
	return &models.PageWithMetrics{Page: page, Metrics: metrics}, nil
}

func (s *PageService) UpdateMetricState(ctx context.Context, metricID int64, state string) (*models.Metric, error) {
	st, ok := models.ParseMetricState(strings.TrimSpace(state))
	if !ok {
		return nil, invalid("state must be one of RESOLVED, UNRESOLVED, NOT_OUR_ISSUE, ACKNOWLEDGED")
	}
	return s.metrics.UpdateMetric(ctx, metricID, models.MetricUpdate{State: &st})
}

func (s *PageService) ListPages(ctx context.Context, f models.PageFilter) ([]models.Page, error) {
	if f.Type != nil && !f.Type.Valid() {
		return nil, invalid("type must be either 'DAILY' or 'WEEKLY'")
	}
	return s.pages.List(ctx, f)
}

func (s *PageService) GetPage(ctx context.Context, id int64) (*models.Page, error) {
	page, err := s.pages.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if page == nil {
		return nil, fmt.Errorf("page %d: %w", id, storage.ErrNotFound)
	}
	return page, nil
}

// PageInput describes a page created without triggering generation.
type PageInput struct {
	ServiceID   int64
	Type        models.PageType
	Name        string
	Date        string
	ParentID    *int64
	Heading     *string
	Annotations *string
}

func (s *PageService) CreatePage(ctx context.Context, in PageInput) (*models.Page, error) {
	if !in.Type.Valid() {
		return nil, invalid("type is required and must be either 'DAILY' or 'WEEKLY'")
	}
	if in.ServiceID <= 0 {
		return nil, invalid("svc_id is required and must be a number")
	}

	page := &models.Page{
		ServiceID:   in.ServiceID,
		Name:        strings.TrimSpace(in.Name),
		Type:        in.Type,
		ParentID:    in.ParentID,
		Heading:     in.Heading,
		Annotations: in.Annotations,
	}
	if in.Date != "" {
		date, err := dates.ToEpoch(in.Date, s.loc)
		if err != nil {
			return nil, invalid("date must be in DD-MM-YYYY format (e.g., '25-12-2023')")
		}
		page.Date = &date
		if page.Name == "" {
			page.Name = pageName(in.Type, in.Date)
		}
	}
	if page.Name == "" {
		return nil, invalid("name or date is required")
	}

	created, err := s.pages.Create(ctx, page)
	if err != nil {
		return nil, err
	}
	s.publishPageCreated(ctx, created)
	return created, nil
}

func (s *PageService) UpdatePage(ctx context.Context, id int64, u models.PageUpdate) (*models.Page, error) {
	if u.ParentID != nil && *u.ParentID == id {
		return nil, invalid("page cannot be its own parent")
	}
	return s.pages.Update(ctx, id, u)
}

func (s *PageService) DeletePage(ctx context.Context, id int64) error {
	return s.pages.Delete(ctx, id)
}

func (s *PageService) publishPageCreated(ctx context.Context, p *models.Page) {
	err := s.events.Publish(ctx, events.Event{
		Type: events.TypePageCreated,
		Key:  "service-" + strconv.FormatInt(p.ServiceID, 10),
		Payload: events.PageCreated{
			PageID:    p.ID,
			ServiceID: p.ServiceID,
			Name:      p.Name,
			Type:      string(p.Type),
			Date:      p.Date,
		},
	})
	if err != nil {
		s.logger.Warn("failed to publish event", "type", events.TypePageCreated, "error", err)
	}
}

func pageName(t models.PageType, day string) string {
	return string(t) + "_" + day
}
