package service

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/illenko/opspages/internal/dates"
	"github.com/illenko/opspages/internal/models"
)

const weekIDLayout = "2006-01-02"

// GetPagesByServiceForAPI groups the pages of a service into weeks. Stored
// WEEKLY pages become the buckets when the service has any; otherwise the
// DAILY pages are grouped into synthetic Monday-start weeks.
func (s *PageService) GetPagesByServiceForAPI(ctx context.Context, serviceID int64) ([]models.WeekBucket, error) {
	pages, err := s.pages.ListByService(ctx, serviceID)
	if err != nil {
		return nil, err
	}

	var weekly, daily []models.Page
	for _, p := range pages {
		switch p.Type {
		case models.PageTypeWeekly:
			weekly = append(weekly, p)
		case models.PageTypeDaily:
			daily = append(daily, p)
		}
	}

	if len(weekly) > 0 {
		return storedWeeks(weekly, daily, s.loc), nil
	}
	return syntheticWeeks(daily, s.loc), nil
}

func syntheticWeeks(daily []models.Page, loc *time.Location) []models.WeekBucket {
	byStart := make(map[int64]*models.WeekBucket)
	var starts []time.Time

	for _, p := range sortedByDate(daily) {
		if p.Date == nil {
			continue
		}
		start := dates.WeekStart(time.UnixMilli(*p.Date), loc)
		b, ok := byStart[start.UnixMilli()]
		if !ok {
			b = newSyntheticWeek(start)
			byStart[start.UnixMilli()] = b
			starts = append(starts, start)
		}
		b.Files = append(b.Files, pageFile(p, loc))
	}

	sort.Slice(starts, func(i, j int) bool { return starts[i].Before(starts[j]) })

	buckets := make([]models.WeekBucket, 0, len(starts))
	for _, start := range starts {
		buckets = append(buckets, *byStart[start.UnixMilli()])
	}
	return buckets
}

func newSyntheticWeek(start time.Time) *models.WeekBucket {
	first := start.Format(dates.Layout)
	last := dates.WeekEnd(start).Format(dates.Layout)
	return &models.WeekBucket{
		ID:        "week-" + start.Format(weekIDLayout),
		Synthetic: true,
		WeekStart: first,
		WeekEnd:   last,
		Title:     weekTitle(first, last),
		WeeklyFile: models.PageFile{
			ID:        "weekly-" + start.Format(weekIDLayout),
			Name:      string(models.PageTypeWeekly) + "_" + first,
			Type:      models.PageTypeWeekly,
			Date:      first,
			Synthetic: true,
		},
		Files: []models.PageFile{},
	}
}

// storedWeeks turns WEEKLY pages into buckets and attaches the DAILY pages
// whose date falls inside each week. Undated weekly pages sort last.
func storedWeeks(weekly, daily []models.Page, loc *time.Location) []models.WeekBucket {
	weekly = sortedByDate(weekly)
	daily = sortedByDate(daily)

	buckets := make([]models.WeekBucket, 0, len(weekly))
	for _, w := range weekly {
		id := w.ID
		b := models.WeekBucket{
			ID:         strconv.FormatInt(w.ID, 10),
			PageID:     &id,
			Title:      w.Name,
			WeeklyFile: pageFile(w, loc),
			Files:      []models.PageFile{},
		}
		if w.Heading != nil && *w.Heading != "" {
			b.Title = *w.Heading
		}

		if w.Date != nil {
			start := dates.WeekStart(time.UnixMilli(*w.Date), loc)
			end := start.AddDate(0, 0, 7)
			b.WeekStart = start.Format(dates.Layout)
			b.WeekEnd = dates.WeekEnd(start).Format(dates.Layout)
			if w.Heading == nil || *w.Heading == "" {
				b.Title = weekTitle(b.WeekStart, b.WeekEnd)
			}

			for _, d := range daily {
				if d.Date == nil {
					continue
				}
				if d.ParentID != nil && *d.ParentID != w.ID {
					continue
				}
				t := time.UnixMilli(*d.Date)
				if !t.Before(start) && t.Before(end) {
					b.Files = append(b.Files, pageFile(d, loc))
				}
			}
		}
		buckets = append(buckets, b)
	}
	return buckets
}

func pageFile(p models.Page, loc *time.Location) models.PageFile {
	id := p.ID
	f := models.PageFile{
		ID:     strconv.FormatInt(p.ID, 10),
		PageID: &id,
		Name:   p.Name,
		Type:   p.Type,
	}
	if p.Date != nil {
		f.Date = dates.FromEpoch(*p.Date, loc)
	}
	return f
}

// sortedByDate orders pages by date then id, undated pages last.
func sortedByDate(pages []models.Page) []models.Page {
	out := make([]models.Page, len(pages))
	copy(out, pages)
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i].Date, out[j].Date
		switch {
		case a == nil && b == nil:
			return out[i].ID < out[j].ID
		case a == nil:
			return false
		case b == nil:
			return true
		case *a != *b:
			return *a < *b
		default:
			return out[i].ID < out[j].ID
		}
	})
	return out
}

func weekTitle(first, last string) string {
	return fmt.Sprintf("Week %s - %s", first, last)
}
