package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/illenko/opspages/internal/dates"
	"github.com/illenko/opspages/internal/events"
	"github.com/illenko/opspages/internal/models"
	"github.com/illenko/opspages/internal/storage"
)

type pageFixture struct {
	pages   *fakePages
	configs *fakeConfigs
	metrics *fakeMetrics
	gen     *fakeGenerator
	pub     *recordingPublisher
	svc     *PageService
}

func newPageFixture() *pageFixture {
	f := &pageFixture{
		pages:   &fakePages{},
		configs: &fakeConfigs{},
		metrics: &fakeMetrics{},
		gen:     &fakeGenerator{},
		pub:     &recordingPublisher{},
	}
	metricSvc := NewMetricService(f.metrics, f.configs, f.gen, f.pub, 0)
	f.svc = NewPageService(f.pages, metricSvc, prefixResolver{}, f.pub, dates.IST)
	return f
}

func epoch(t *testing.T, day string) int64 {
	t.Helper()
	ms, err := dates.ToEpoch(day, dates.IST)
	require.NoError(t, err)
	return ms
}

func TestCreatePageAndGenerateMetrics_NoConfigs(t *testing.T) {
	f := newPageFixture()

	res, err := f.svc.CreatePageAndGenerateMetrics(context.Background(), models.PageTypeDaily, "25-12-2023", 1)
	require.NoError(t, err)

	assert.Equal(t, "DAILY_25-12-2023", res.Page.Name)
	assert.Equal(t, int64(1703442600000), *res.Page.Date)
	assert.False(t, res.MetricGeneration.Success)
	assert.Empty(t, res.MetricGeneration.Results)
	assert.Equal(t, "No metric configs found for service 1", res.MetricGeneration.Error)

	require.Len(t, f.pages.pages, 1)
	assert.Equal(t, []string{events.TypePageCreated}, f.pub.types())
}

func TestCreatePageAndGenerateMetrics_WithConfigs(t *testing.T) {
	f := newPageFixture()
	f.configs.configs = configsFor(3, 1, 2)
	f.gen.fail = map[int64]bool{2: true}

	res, err := f.svc.CreatePageAndGenerateMetrics(context.Background(), models.PageTypeWeekly, "01-01-2024", 3)
	require.NoError(t, err)

	assert.Equal(t, "WEEKLY_01-01-2024", res.Page.Name)
	assert.False(t, res.MetricGeneration.Success)
	require.Len(t, res.MetricGeneration.Results, 2)
	assert.True(t, res.MetricGeneration.Results[0].Success)
	assert.Equal(t, "API call failed", res.MetricGeneration.Results[1].Error)
}

func TestCreatePageAndGenerateMetrics_GenerationErrorKeepsPage(t *testing.T) {
	f := newPageFixture()
	f.configs.err = errBoom

	res, err := f.svc.CreatePageAndGenerateMetrics(context.Background(), models.PageTypeDaily, "25-12-2023", 1)
	require.NoError(t, err)
	assert.False(t, res.MetricGeneration.Success)
	assert.Contains(t, res.MetricGeneration.Error, "boom")
	assert.Len(t, f.pages.pages, 1)
}

func TestCreatePageAndGenerateMetrics_CallerCancelDoesNotAbortGeneration(t *testing.T) {
	f := newPageFixture()
	f.configs.configs = configsFor(1, 1, 2)
	f.gen.delay = 100 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(20*time.Millisecond, cancel)

	res, err := f.svc.CreatePageAndGenerateMetrics(ctx, models.PageTypeDaily, "25-12-2023", 1)
	require.NoError(t, err)
	require.Error(t, ctx.Err())

	assert.True(t, res.MetricGeneration.Success)
	require.Len(t, res.MetricGeneration.Results, 2)
	for _, r := range res.MetricGeneration.Results {
		assert.True(t, r.Success)
		assert.Empty(t, r.Error)
	}
	assert.Len(t, f.pages.pages, 1)
}

func TestCreatePageAndGenerateMetrics_Validation(t *testing.T) {
	f := newPageFixture()
	ctx := context.Background()

	tests := []struct {
		name     string
		pageType models.PageType
		day      string
		message  string
	}{
		{"bad type", "MONTHLY", "25-12-2023", "type is required"},
		{"bad format", models.PageTypeDaily, "2023-12-25", "DD-MM-YYYY"},
		{"bad calendar day", models.PageTypeDaily, "31-02-2024", "DD-MM-YYYY"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.CreatePageAndGenerateMetrics(ctx, tt.pageType, tt.day, 1)
			var verr *ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Contains(t, verr.Message, tt.message)
		})
	}
	assert.Empty(t, f.pages.pages)
}

func TestEnsureDailyPage(t *testing.T) {
	f := newPageFixture()
	ctx := context.Background()

	_, created, err := f.svc.EnsureDailyPage(ctx, 1, "25-12-2023")
	require.NoError(t, err)
	assert.True(t, created)

	res, created, err := f.svc.EnsureDailyPage(ctx, 1, "25-12-2023")
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, int64(1), res.Page.ID)
	assert.Len(t, f.pages.pages, 1)
}

func TestGetPageWithMetrics(t *testing.T) {
	f := newPageFixture()
	ctx := context.Background()
	date := epoch(t, "25-12-2023")

	f.configs.configs = configsFor(1, 10)
	f.metrics.metrics = []models.Metric{
		{ID: 1, MetricsConfigID: 10, Date: ptr(date)},
		{ID: 2, MetricsConfigID: 10, Date: ptr(date + 86400000)},
	}
	page, err := f.pages.Create(ctx, &models.Page{ServiceID: 1, Name: "DAILY_25-12-2023", Type: models.PageTypeDaily, Date: &date})
	require.NoError(t, err)

	got, err := f.svc.GetPageWithMetrics(ctx, page.ID)
	require.NoError(t, err)
	assert.Equal(t, page.ID, got.Page.ID)
	require.Len(t, got.Metrics, 1)
	assert.Equal(t, int64(1), got.Metrics[0].ID)
}

func TestGetPageWithMetrics_Errors(t *testing.T) {
	f := newPageFixture()
	ctx := context.Background()

	_, err := f.svc.GetPageWithMetrics(ctx, 99)
	assert.ErrorIs(t, err, storage.ErrNotFound)

	undated, err := f.pages.Create(ctx, &models.Page{ServiceID: 1, Name: "draft", Type: models.PageTypeDaily})
	require.NoError(t, err)

	_, err = f.svc.GetPageWithMetrics(ctx, undated.ID)
	assert.ErrorIs(t, err, ErrPageHasNoDate)

	_, err = f.svc.GetPageDetails(ctx, undated.ID)
	assert.ErrorIs(t, err, ErrPageHasNoDate)
}

func TestUpdateMetricState(t *testing.T) {
	f := newPageFixture()
	ctx := context.Background()
	f.metrics.metrics = []models.Metric{{ID: 5, MetricsConfigID: 1}}

	m, err := f.svc.UpdateMetricState(ctx, 5, "not_our_issue")
	require.NoError(t, err)
	assert.Equal(t, models.MetricStateNotOurIssue, *m.State)

	m, err = f.svc.UpdateMetricState(ctx, 5, "Unresolved")
	require.NoError(t, err)
	assert.Equal(t, models.MetricStateUnresolved, *m.State)

	_, err = f.svc.UpdateMetricState(ctx, 5, "CLOSED")
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)

	_, err = f.svc.UpdateMetricState(ctx, 404, "RESOLVED")
	assert.ErrorIs(t, err, storage.ErrNotFound)

	assert.Equal(t, []string{events.TypeMetricStateChanged, events.TypeMetricStateChanged}, f.pub.types())
}

func TestCreatePage(t *testing.T) {
	f := newPageFixture()
	ctx := context.Background()

	p, err := f.svc.CreatePage(ctx, PageInput{ServiceID: 1, Type: models.PageTypeDaily, Date: "26-12-2023"})
	require.NoError(t, err)
	assert.Equal(t, "DAILY_26-12-2023", p.Name)
	assert.Empty(t, f.gen.calls)

	p, err = f.svc.CreatePage(ctx, PageInput{ServiceID: 1, Type: models.PageTypeWeekly, Name: "Retro"})
	require.NoError(t, err)
	assert.Nil(t, p.Date)

	_, err = f.svc.CreatePage(ctx, PageInput{ServiceID: 1, Type: models.PageTypeWeekly})
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)

	_, err = f.svc.CreatePage(ctx, PageInput{Type: models.PageTypeWeekly, Name: "x"})
	require.ErrorAs(t, err, &verr)
}

func TestUpdatePage_SelfParent(t *testing.T) {
	f := newPageFixture()
	_, err := f.svc.UpdatePage(context.Background(), 3, models.PageUpdate{ParentID: ptr(int64(3))})
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
}
