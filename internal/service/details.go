package service

import (
	"context"
	"sort"
	"strconv"
	"strings"

	"github.com/illenko/opspages/internal/dates"
	"github.com/illenko/opspages/internal/models"
)

const noSummary = "No summary available"

// GetPageDetails compiles the page view: anomalies ranked by criticality,
// comments and summaries taken from the metrics, and the page summary.
func (s *PageService) GetPageDetails(ctx context.Context, pageID int64) (*models.PageDetails, error) {
	pwm, err := s.GetPageWithMetrics(ctx, pageID)
	if err != nil {
		return nil, err
	}
	page := pwm.Page

	details := &models.PageDetails{
		Name:      page.Name,
		Date:      dates.FromEpoch(*page.Date, s.loc),
		Summary:   pageSummary(page),
		Anomalies: s.anomalies(ctx, pwm.Metrics),
		Comments:  []models.PageNote{},
		Summaries: []models.PageNote{},
	}

	for _, m := range pwm.Metrics {
		comment := deref(m.Comment)
		if comment != "" {
			details.Comments = append(details.Comments, models.PageNote{
				ID:       "comment-" + strconv.FormatInt(m.ID, 10),
				MetricID: m.ID,
				Title:    metricTitle(m),
				Text:     comment,
			})
		}
		summary := deref(m.SummaryText)
		if summary != "" && summary != comment {
			details.Summaries = append(details.Summaries, models.PageNote{
				ID:       "summary-" + strconv.FormatInt(m.ID, 10),
				MetricID: m.ID,
				Title:    metricTitle(m),
				Text:     summary,
			})
		}
	}

	return details, nil
}

func (s *PageService) anomalies(ctx context.Context, metrics []models.Metric) []models.Anomaly {
	ranked := make([]models.Metric, len(metrics))
	copy(ranked, metrics)
	sort.SliceStable(ranked, func(i, j int) bool {
		a, b := score(ranked[i]), score(ranked[j])
		if a != b {
			return a > b
		}
		return ranked[i].ID < ranked[j].ID
	})

	out := make([]models.Anomaly, 0, len(ranked))
	for i, m := range ranked {
		state := models.MetricStateUnresolved
		if m.State != nil {
			state = *m.State
		}
		graph := deref(m.ImageURL)
		if graph != "" && s.images != nil {
			graph = s.images.ResolveImageURL(ctx, graph)
		}
		out = append(out, models.Anomaly{
			ID:               m.ID,
			Title:            metricTitle(m),
			CriticalityScore: score(m),
			Description:      deref(m.SummaryText),
			GraphImage:       graph,
			State:            state,
			Severity:         severityForRank(i),
		})
	}
	return out
}

// severityForRank grades an anomaly by its position once sorted by
// criticality: the first is high, the next two medium, the rest low.
func severityForRank(rank int) models.Severity {
	switch {
	case rank == 0:
		return models.SeverityHigh
	case rank <= 2:
		return models.SeverityMedium
	default:
		return models.SeverityLow
	}
}

func pageSummary(p *models.Page) string {
	var parts []string
	for _, s := range []*string{p.OpsgenieSummary, p.MetricSummary} {
		if v := strings.TrimSpace(deref(s)); v != "" {
			parts = append(parts, v)
		}
	}
	if len(parts) == 0 {
		return noSummary
	}
	return strings.Join(parts, "\n\n")
}

func metricTitle(m models.Metric) string {
	if name := deref(m.Name); name != "" {
		return name
	}
	return "Metric #" + strconv.FormatInt(m.ID, 10)
}

func score(m models.Metric) int {
	if m.CriticalityScore == nil {
		return 0
	}
	return *m.CriticalityScore
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
