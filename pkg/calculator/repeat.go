package calculator

import (
	"sort"

	"cohort-retention/pkg/models"
)

// RepeatPurchaseRates answers "what share of this month's buyers bought in an earlier
// month". A purchaser is returning when their cohort month is strictly before the
// period. This is a per-period ratio and is not a cohort retention rate.
//
// Cohorts are derived from the filtered lines, so a date range restarts history at
// its start. Periods are ascending; the result is empty when nothing qualifies.
func RepeatPurchaseRates(lines []models.OrderLine, p models.Params) []models.RepeatPurchaseRow {
	valid := qualifying(lines, statusesOrDefault(p.ValidStatuses), p.Range)
	tagged := assign(valid, models.GranularityMonth)
	if len(tagged) == 0 {
		return []models.RepeatPurchaseRow{}
	}

	type bucket struct {
		period     models.Period
		purchasers map[string]bool // user -> returning
	}
	buckets := make(map[int64]*bucket)
	for _, l := range tagged {
		key := l.Period.Start.Unix()
		b, ok := buckets[key]
		if !ok {
			b = &bucket{period: l.Period, purchasers: make(map[string]bool)}
			buckets[key] = b
		}
		b.purchasers[l.UserID] = l.Cohort.Start.Before(l.Period.Start)
	}

	keys := make([]int64, 0, len(buckets))
	for k := range buckets {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })

	rows := make([]models.RepeatPurchaseRow, 0, len(keys))
	for _, k := range keys {
		b := buckets[k]
		returning := 0
		for _, r := range b.purchasers {
			if r {
				returning++
			}
		}
		rows = append(rows, models.RepeatPurchaseRow{
			Period:              b.period,
			Purchasers:          len(b.purchasers),
			ReturningUsers:      returning,
			NewUsers:            len(b.purchasers) - returning,
			RepeatPurchaserRate: ratio(returning, len(b.purchasers)),
		})
	}
	return rows
}

// ratio returns num/den, or 0 when den is 0.
func ratio(num, den int) float64 {
	if den == 0 {
		return 0
	}
	return float64(num) / float64(den)
}
