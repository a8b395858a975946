package calculator

import (
	"errors"
	"sort"
	"time"

	"cohort-retention/pkg/models"
)

// ErrInvalidParams marks caller mistakes (bad granularity, negative horizon, bad month).
// Empty data is never an error.
var ErrInvalidParams = errors.New("invalid parameters")

// qualifying returns a new slice holding the lines whose status is valid and whose
// instant falls in r. An empty range yields nothing.
func qualifying(lines []models.OrderLine, statuses models.StatusSet, r models.DateRange) []models.OrderLine {
	if r.Empty() {
		return nil
	}
	out := make([]models.OrderLine, 0, len(lines))
	for _, l := range lines {
		if statuses.Contains(l.Status) && r.Contains(l.CreatedAt) {
			out = append(out, l)
		}
	}
	return out
}

// statusesOrDefault applies the source convention when the caller passed no set.
func statusesOrDefault(s models.StatusSet) models.StatusSet {
	if len(s) == 0 {
		return models.DefaultValidStatuses()
	}
	return s
}

// firstPurchases maps each user to the earliest instant among the given lines.
func firstPurchases(lines []models.OrderLine) map[string]time.Time {
	first := make(map[string]time.Time)
	for _, l := range lines {
		if t, ok := first[l.UserID]; !ok || l.CreatedAt.Before(t) {
			first[l.UserID] = l.CreatedAt
		}
	}
	return first
}

// AssignCohorts tags every valid-status line with its user's cohort and age.
// Lines outside the status set are removed before the first purchase is computed,
// so ages are never negative. The result is ordered by user, time, then order id.
func AssignCohorts(lines []models.OrderLine, statuses models.StatusSet, g models.Granularity) []models.CohortLine {
	valid := qualifying(lines, statusesOrDefault(statuses), models.DateRange{})
	return assign(valid, g)
}

// assign expects lines already filtered to qualifying purchases.
func assign(valid []models.OrderLine, g models.Granularity) []models.CohortLine {
	if len(valid) == 0 {
		return nil
	}
	first := firstPurchases(valid)

	out := make([]models.CohortLine, 0, len(valid))
	for _, l := range valid {
		cohort := PeriodOf(first[l.UserID], g)
		period := PeriodOf(l.CreatedAt, g)
		out = append(out, models.CohortLine{
			OrderLine: l,
			Cohort:    cohort,
			Period:    period,
			Age:       PeriodsBetween(cohort, period),
		})
	}

	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.UserID != b.UserID {
			return a.UserID < b.UserID
		}
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.Before(b.CreatedAt)
		}
		return a.OrderID < b.OrderID
	})
	return out
}

// AvailableCohortMonths lists the months holding at least one line that qualifies
// under p, newest first. A non-zero year keeps only that year's months.
func AvailableCohortMonths(lines []models.OrderLine, p models.Params, year int) []string {
	seen := make(map[string]struct{})
	for _, l := range qualifying(lines, statusesOrDefault(p.ValidStatuses), p.Range) {
		if year != 0 && l.CreatedAt.Year() != year {
			continue
		}
		seen[PeriodOf(l.CreatedAt, models.GranularityMonth).String()] = struct{}{}
	}

	months := make([]string, 0, len(seen))
	for m := range seen {
		months = append(months, m)
	}
	sort.Sort(sort.Reverse(sort.StringSlice(months)))
	return months
}
