// Package dates converts between the client-facing DD-MM-YYYY day format and
// the epoch-millisecond timestamps stored with pages and metrics.
//
// A stored date is the instant a reporting day starts in the reporting zone.
// With the default IST zone "25-12-2023" is 2023-12-24T18:30:00Z.
package dates

import (
	"fmt"
	"regexp"
	"time"
)

// Layout is the client-facing day format.
const Layout = "02-01-2006"

// IST is the default reporting zone (UTC+05:30).
var IST = time.FixedZone("IST", 5*3600+30*60)

var dayPattern = regexp.MustCompile(`^\d{2}-\d{2}-\d{4}$`)

type dateError string

func (e dateError) Error() string { return string(e) }

const ErrInvalidFormat = dateError("date must be in DD-MM-YYYY format")

// Valid reports whether s is a well-formed calendar day in DD-MM-YYYY.
func Valid(s string) bool {
	_, err := Parse(s, time.UTC)
	return err == nil
}

// Parse returns the start of day s in loc.
func Parse(s string, loc *time.Location) (time.Time, error) {
	if !dayPattern.MatchString(s) {
		return time.Time{}, ErrInvalidFormat
	}
	t, err := time.ParseInLocation(Layout, s, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %s", ErrInvalidFormat, s)
	}
	return t, nil
}

// ToEpoch converts a DD-MM-YYYY day to epoch milliseconds of its midnight in loc.
func ToEpoch(s string, loc *time.Location) (int64, error) {
	t, err := Parse(s, loc)
	if err != nil {
		return 0, err
	}
	return t.UnixMilli(), nil
}

// FromEpoch formats epoch milliseconds as the DD-MM-YYYY day they fall on in loc.
func FromEpoch(ms int64, loc *time.Location) string {
	return time.UnixMilli(ms).In(loc).Format(Layout)
}

// Day returns the start of the day containing t, in loc.
func Day(t time.Time, loc *time.Location) time.Time {
	t = t.In(loc)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
}

// WeekStart returns the Monday starting the week that contains t, in loc.
// Sunday counts as the seventh day of the week.
func WeekStart(t time.Time, loc *time.Location) time.Time {
	day := Day(t, loc)
	weekday := int(day.Weekday())
	if weekday == 0 {
		weekday = 7
	}
	return day.AddDate(0, 0, -(weekday - 1))
}

// WeekEnd returns the Sunday closing the week that starts at start.
func WeekEnd(start time.Time) time.Time {
	return start.AddDate(0, 0, 6)
}
