package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/illenko/opspages/internal/events"
	"github.com/illenko/opspages/internal/models"
	"github.com/illenko/opspages/internal/storage"
)

func ptr[T any](v T) *T { return &v }

type fakePages struct {
	mu     sync.Mutex
	nextID int64
	pages  []models.Page
}

func (f *fakePages) Create(_ context.Context, p *models.Page) (*models.Page, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	cp := *p
	cp.ID = f.nextID
	f.pages = append(f.pages, cp)
	return &cp, nil
}

func (f *fakePages) Get(_ context.Context, id int64) (*models.Page, error) {
	for _, p := range f.pages {
		if p.ID == id {
			cp := p
			return &cp, nil
		}
	}
	return nil, nil
}

func (f *fakePages) List(_ context.Context, flt models.PageFilter) ([]models.Page, error) {
	var out []models.Page
	for _, p := range f.pages {
		if flt.ServiceID != nil && p.ServiceID != *flt.ServiceID {
			continue
		}
		if flt.Type != nil && p.Type != *flt.Type {
			continue
		}
		out = append(out, p)
	}
	return out, nil
}

func (f *fakePages) ListByService(ctx context.Context, serviceID int64) ([]models.Page, error) {
	return f.List(ctx, models.PageFilter{ServiceID: &serviceID})
}

func (f *fakePages) Find(_ context.Context, serviceID int64, t models.PageType, date int64) (*models.Page, error) {
	for _, p := range f.pages {
		if p.ServiceID == serviceID && p.Type == t && p.Date != nil && *p.Date == date {
			cp := p
			return &cp, nil
		}
	}
	return nil, nil
}

func (f *fakePages) Update(_ context.Context, id int64, u models.PageUpdate) (*models.Page, error) {
	for i := range f.pages {
		if f.pages[i].ID == id {
			if u.Heading != nil {
				f.pages[i].Heading = u.Heading
			}
			if u.ParentID != nil {
				f.pages[i].ParentID = u.ParentID
			}
			cp := f.pages[i]
			return &cp, nil
		}
	}
	return nil, storage.ErrNotFound
}

func (f *fakePages) Delete(_ context.Context, id int64) error {
	for i := range f.pages {
		if f.pages[i].ID == id {
			f.pages = append(f.pages[:i], f.pages[i+1:]...)
			return nil
		}
	}
	return storage.ErrNotFound
}

type fakeConfigs struct {
	configs []models.MetricsConfig
	err     error
}

func (f *fakeConfigs) Create(_ context.Context, c *models.MetricsConfig) (*models.MetricsConfig, error) {
	cp := *c
	cp.ID = int64(len(f.configs) + 1)
	f.configs = append(f.configs, cp)
	return &cp, nil
}

func (f *fakeConfigs) Get(_ context.Context, id int64) (*models.MetricsConfig, error) {
	for _, c := range f.configs {
		if c.ID == id {
			cp := c
			return &cp, nil
		}
	}
	return nil, nil
}

func (f *fakeConfigs) GetByPromQLName(_ context.Context, name string) (*models.MetricsConfig, error) {
	for _, c := range f.configs {
		if c.PromQLName == name {
			cp := c
			return &cp, nil
		}
	}
	return nil, nil
}

func (f *fakeConfigs) List(_ context.Context, _ storage.MetricsConfigFilter) ([]models.MetricsConfig, error) {
	return f.configs, f.err
}

func (f *fakeConfigs) ListByService(ctx context.Context, serviceID int64) ([]models.MetricsConfig, error) {
	return f.ListByServices(ctx, []int64{serviceID})
}

func (f *fakeConfigs) ListByServices(_ context.Context, ids []int64) ([]models.MetricsConfig, error) {
	if f.err != nil {
		return nil, f.err
	}
	var out []models.MetricsConfig
	for _, c := range f.configs {
		for _, id := range ids {
			if c.ServiceID == id {
				out = append(out, c)
			}
		}
	}
	return out, nil
}

func (f *fakeConfigs) Update(_ context.Context, id int64, u models.MetricsConfigUpdate) (*models.MetricsConfig, error) {
	for i := range f.configs {
		if f.configs[i].ID == id {
			if u.PromQLName != nil {
				f.configs[i].PromQLName = *u.PromQLName
			}
			cp := f.configs[i]
			return &cp, nil
		}
	}
	return nil, storage.ErrNotFound
}

func (f *fakeConfigs) Delete(context.Context, int64) error { return nil }

type fakeMetrics struct {
	metrics []models.Metric
	queried []int64
}

func (f *fakeMetrics) Create(_ context.Context, m *models.Metric) (*models.Metric, error) {
	cp := *m
	cp.ID = int64(len(f.metrics) + 1)
	f.metrics = append(f.metrics, cp)
	return &cp, nil
}

func (f *fakeMetrics) Get(_ context.Context, id int64) (*models.Metric, error) {
	for _, m := range f.metrics {
		if m.ID == id {
			cp := m
			return &cp, nil
		}
	}
	return nil, nil
}

func (f *fakeMetrics) List(context.Context, models.MetricFilter) ([]models.Metric, error) {
	return f.metrics, nil
}

func (f *fakeMetrics) ListByConfigsAndDate(_ context.Context, ids []int64, date int64) ([]models.Metric, error) {
	f.queried = ids
	out := []models.Metric{}
	for _, m := range f.metrics {
		if m.Date == nil || *m.Date != date {
			continue
		}
		for _, id := range ids {
			if m.MetricsConfigID == id {
				out = append(out, m)
			}
		}
	}
	return out, nil
}

func (f *fakeMetrics) Update(_ context.Context, id int64, u models.MetricUpdate) (*models.Metric, error) {
	for i := range f.metrics {
		if f.metrics[i].ID == id {
			if u.State != nil {
				f.metrics[i].State = u.State
			}
			if u.CriticalityScore != nil {
				f.metrics[i].CriticalityScore = u.CriticalityScore
			}
			cp := f.metrics[i]
			return &cp, nil
		}
	}
	return nil, storage.ErrNotFound
}

func (f *fakeMetrics) Delete(context.Context, int64) error { return nil }

// fakeGenerator acks every config except those listed in fail or errs.
type fakeGenerator struct {
	mu       sync.Mutex
	fail     map[int64]bool
	errs     map[int64]error
	delay    time.Duration
	calls    []int64
	inFlight int
	peak     int
}

func (g *fakeGenerator) GenerateMetric(ctx context.Context, configID, _ int64) (bool, error) {
	g.mu.Lock()
	g.calls = append(g.calls, configID)
	g.inFlight++
	if g.inFlight > g.peak {
		g.peak = g.inFlight
	}
	g.mu.Unlock()

	var ctxErr error
	if g.delay > 0 {
		select {
		case <-time.After(g.delay):
		case <-ctx.Done():
			ctxErr = ctx.Err()
		}
	}

	g.mu.Lock()
	g.inFlight--
	g.mu.Unlock()

	if ctxErr != nil {
		return false, ctxErr
	}

	if err := g.errs[configID]; err != nil {
		return false, err
	}
	return !g.fail[configID], nil
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.Event
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, e events.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
	return p.err
}

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.Type)
	}
	return out
}

type prefixResolver struct{}

func (prefixResolver) ResolveImageURL(_ context.Context, ref string) string {
	if ref == "" || ref[0] == '/' || len(ref) >= 4 && ref[:4] == "http" {
		return ref
	}
	return "https://signed.example/" + ref
}

type fakeServices struct {
	services []models.Service
}

func (f *fakeServices) Create(_ context.Context, name string) (*models.Service, error) {
	s := models.Service{ID: int64(len(f.services) + 1), Name: name}
	f.services = append(f.services, s)
	return &s, nil
}

func (f *fakeServices) List(context.Context, models.ListOptions) ([]models.Service, error) {
	return f.services, nil
}

func (f *fakeServices) Get(_ context.Context, id int64) (*models.Service, error) {
	for _, s := range f.services {
		if s.ID == id {
			cp := s
			return &cp, nil
		}
	}
	return nil, nil
}

func (f *fakeServices) GetByName(_ context.Context, name string) (*models.Service, error) {
	for _, s := range f.services {
		if s.Name == name {
			cp := s
			return &cp, nil
		}
	}
	return nil, nil
}

func (f *fakeServices) Update(_ context.Context, id int64, name string) (*models.Service, error) {
	for i := range f.services {
		if f.services[i].ID == id {
			f.services[i].Name = name
			cp := f.services[i]
			return &cp, nil
		}
	}
	return nil, storage.ErrNotFound
}

func (f *fakeServices) Delete(context.Context, int64) error { return nil }

type fakeDashboards struct {
	query string
}

func (f *fakeDashboards) SearchDashboards(_ context.Context, query string) ([]models.Dashboard, error) {
	f.query = query
	return []models.Dashboard{{UID: "abc", Title: query + " overview"}}, nil
}

type fakePrometheus struct {
	expr  string
	at    time.Time
	value *float64
	err   error
}

func (f *fakePrometheus) QueryScalar(_ context.Context, expr string, at time.Time) (*float64, error) {
	f.expr = expr
	f.at = at
	return f.value, f.err
}

var errBoom = errors.New("boom")
