package calculator

import (
	"fmt"
	"sort"
	"time"

	"cohort-retention/pkg/models"
)

// Retention builds the cohort × age matrix for the requested granularity.
//
// Rows are cohorts in ascending order and columns run from age 0 to MaxAge, capped at
// the number of periods between the earliest cohort and the last observed period. A cell is
// only valid when its period is not later than the last period observed in the data;
// cells past that edge carry no reading instead of a misleading 0%. An observed cell
// with nobody active is a valid 0.
//
// It returns nil without error when no line qualifies.
func Retention(lines []models.OrderLine, p models.RetentionParams) (*models.RetentionMatrix, error) {
	if !p.Granularity.Valid() {
		return nil, fmt.Errorf("%w: granularity %q", ErrInvalidParams, p.Granularity)
	}
	if p.MaxAge < 0 {
		return nil, fmt.Errorf("%w: max age %d", ErrInvalidParams, p.MaxAge)
	}
	valid := qualifying(lines, statusesOrDefault(p.ValidStatuses), p.Range)
	return buildMatrix(assign(valid, p.Granularity), p.Granularity, p.MaxAge, nil), nil
}

// MonthlyRetention is Retention at month granularity.
func MonthlyRetention(lines []models.OrderLine, p models.Params, maxAge int) (*models.RetentionMatrix, error) {
	return Retention(lines, models.RetentionParams{Params: p, Granularity: models.GranularityMonth, MaxAge: maxAge})
}

// DailyRetention is Retention at day granularity.
func DailyRetention(lines []models.OrderLine, p models.Params, maxAge int) (*models.RetentionMatrix, error) {
	return Retention(lines, models.RetentionParams{Params: p, Granularity: models.GranularityDay, MaxAge: maxAge})
}

// WeeklyRetention builds the week cohort matrix, optionally keeping only the cohorts
// whose week starts in SelectedMonth and, within it, on week-of-month SelectedWeek.
// Both are read from the Monday that opens the cohort week, so a first purchase on
// Friday 2023-06-02 belongs to the 2023-05 cohorts, week 5.
// The filter drops rows only; sizes, ages and the observation edge are unaffected.
func WeeklyRetention(lines []models.OrderLine, p models.WeeklyRetentionParams) (*models.RetentionMatrix, error) {
	if p.MaxAge < 0 {
		return nil, fmt.Errorf("%w: max age %d", ErrInvalidParams, p.MaxAge)
	}
	if p.SelectedWeek < 0 || p.SelectedWeek > 5 {
		return nil, fmt.Errorf("%w: week %d not in 0..5", ErrInvalidParams, p.SelectedWeek)
	}

	var keep func(models.Period) bool
	if p.SelectedMonth != "" || p.SelectedWeek != 0 {
		var month time.Time
		if p.SelectedMonth != "" {
			m, err := parseMonth(p.SelectedMonth)
			if err != nil {
				return nil, fmt.Errorf("%w: month: %v", ErrInvalidParams, err)
			}
			month = m
		}
		keep = func(c models.Period) bool {
			if !month.IsZero() && (c.Start.Year() != month.Year() || c.Start.Month() != month.Month()) {
				return false
			}
			return p.SelectedWeek == 0 || WeekOfMonth(c.Start) == p.SelectedWeek
		}
	}

	valid := qualifying(lines, statusesOrDefault(p.ValidStatuses), p.Range)
	return buildMatrix(assign(valid, models.GranularityWeek), models.GranularityWeek, p.MaxAge, keep), nil
}

type cohortStats struct {
	cohort models.Period
	users  map[string]struct{}
	active []map[string]struct{} // by age, up to maxAge
}

func buildMatrix(tagged []models.CohortLine, g models.Granularity, maxAge int, keep func(models.Period) bool) *models.RetentionMatrix {
	if len(tagged) == 0 {
		return nil
	}

	first, last := tagged[0].Cohort, tagged[0].Period
	for _, l := range tagged {
		if l.Cohort.Start.Before(first.Start) {
			first = l.Cohort
		}
		if l.Period.Start.After(last.Start) {
			last = l.Period
		}
	}
	// No cohort can hold a reading past the span of the data.
	if span := PeriodsBetween(first, last); maxAge > span {
		maxAge = span
	}

	stats := make(map[int64]*cohortStats)
	for _, l := range tagged {
		key := l.Cohort.Start.Unix()
		cs, ok := stats[key]
		if !ok {
			cs = &cohortStats{
				cohort: l.Cohort,
				users:  make(map[string]struct{}),
				active: make([]map[string]struct{}, maxAge+1),
			}
			stats[key] = cs
		}
		cs.users[l.UserID] = struct{}{}
		if l.Age > maxAge {
			continue
		}
		if cs.active[l.Age] == nil {
			cs.active[l.Age] = make(map[string]struct{})
		}
		cs.active[l.Age][l.UserID] = struct{}{}
	}

	keys := make([]int64, 0, len(stats))
	for k := range stats {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })

	m := &models.RetentionMatrix{
		Granularity:  g,
		MaxAge:       maxAge,
		LastObserved: last,
	}
	for _, k := range keys {
		cs := stats[k]
		if keep != nil && !keep(cs.cohort) {
			continue
		}
		size := len(cs.users)
		row := models.CohortRow{
			Cohort: cs.cohort,
			Size:   size,
			Cells:  make([]models.RetentionCell, maxAge+1),
		}
		for age := 0; age <= maxAge; age++ {
			cell := models.RetentionCell{Age: age}
			if !AddPeriods(cs.cohort, age).Start.After(last.Start) {
				cell.ActiveUsers = len(cs.active[age])
				cell.Rate = models.RateOf(cell.ActiveUsers, size)
			}
			row.Cells[age] = cell
		}
		m.Cohorts = append(m.Cohorts, row)
	}

	if len(m.Cohorts) == 0 {
		return nil
	}
	return m
}
