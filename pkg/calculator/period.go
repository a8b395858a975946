package calculator

import (
	"fmt"
	"time"

	"cohort-retention/pkg/models"
)

// PeriodOf truncates t (converted to UTC) to the start of its period.
// Weeks start on Monday, as ISO weeks do.
func PeriodOf(t time.Time, g models.Granularity) models.Period {
	t = t.UTC()
	var start time.Time
	switch g {
	case models.GranularityMonth:
		start = time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
	case models.GranularityWeek:
		day := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
		start = day.AddDate(0, 0, -isoWeekdayIndex(day.Weekday()))
	default:
		start = time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	}
	return models.Period{Granularity: g, Start: start}
}

// PeriodsBetween returns the whole periods from a to b (b - a). Months use calendar
// arithmetic, never fixed-length windows.
func PeriodsBetween(a, b models.Period) int {
	switch a.Granularity {
	case models.GranularityMonth:
		return (b.Start.Year()-a.Start.Year())*12 + int(b.Start.Month()) - int(a.Start.Month())
	case models.GranularityWeek:
		return daysBetween(a.Start, b.Start) / 7
	default:
		return daysBetween(a.Start, b.Start)
	}
}

// AddPeriods moves p forward by n periods.
func AddPeriods(p models.Period, n int) models.Period {
	switch p.Granularity {
	case models.GranularityMonth:
		return models.Period{Granularity: p.Granularity, Start: p.Start.AddDate(0, n, 0)}
	case models.GranularityWeek:
		return models.Period{Granularity: p.Granularity, Start: p.Start.AddDate(0, 0, 7*n)}
	default:
		return models.Period{Granularity: p.Granularity, Start: p.Start.AddDate(0, 0, n)}
	}
}

// WeekOfMonth returns the 1-based week ordinal of t's day inside its month:
// days 1-7 are week 1, 8-14 week 2, and the trailing days 29-31 fold into week 5.
func WeekOfMonth(t time.Time) int {
	w := (t.UTC().Day()-1)/7 + 1
	if w > 5 {
		w = 5
	}
	return w
}

// parseMonth("2006-01") -> first day of the month, UTC.
func parseMonth(s string) (time.Time, error) {
	t, err := time.ParseInLocation("2006-01", s, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("expected YYYY-MM (ex: 2023-05): %w", err)
	}
	return t, nil
}

// daysBetween counts calendar days between two UTC midnights. Dividing the hour
// count keeps it exact because UTC has no DST shifts.
func daysBetween(a, b time.Time) int {
	return int(b.Sub(a).Hours()) / 24
}

// isoWeekdayIndex maps Monday..Sunday to 0..6.
func isoWeekdayIndex(d time.Weekday) int {
	return (int(d) + 6) % 7
}
