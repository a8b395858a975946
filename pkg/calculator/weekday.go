package calculator

import (
	"sort"
	"time"

	"cohort-retention/pkg/models"
)

// order is the order-level view of its qualifying lines.
type order struct {
	id     string
	user   string
	at     time.Time // earliest qualifying line
	repeat bool      // the user had an earlier qualifying order
}

// ordersOf collapses lines into orders and marks repeat orders. Each user's orders
// are sequenced by (instant, id); every order after the first is a repeat.
func ordersOf(valid []models.OrderLine) []order {
	byID := make(map[string]*order)
	for _, l := range valid {
		o, ok := byID[l.OrderID]
		if !ok {
			byID[l.OrderID] = &order{id: l.OrderID, user: l.UserID, at: l.CreatedAt}
			continue
		}
		if l.CreatedAt.Before(o.at) {
			o.at = l.CreatedAt
			o.user = l.UserID
		}
	}

	out := make([]order, 0, len(byID))
	for _, o := range byID {
		out = append(out, *o)
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.user != b.user {
			return a.user < b.user
		}
		if !a.at.Equal(b.at) {
			return a.at.Before(b.at)
		}
		return a.id < b.id
	})

	for i := range out {
		out[i].repeat = i > 0 && out[i-1].user == out[i].user
	}
	return out
}

type weekdayCounts [7]struct{ repeat, exposure int }

func (c *weekdayCounts) rows() []models.WeekdayExposure {
	out := make([]models.WeekdayExposure, 7)
	for i := range c {
		wd := time.Weekday((i + 1) % 7) // Monday first
		out[i] = models.WeekdayExposure{
			Weekday:      wd,
			Name:         wd.String(),
			RepeatOrders: c[i].repeat,
			Exposure:     c[i].exposure,
			RepeatRate:   ratio(c[i].repeat, c[i].exposure),
		}
	}
	return out
}

// WeekdayRepeatPurchases cross-tabulates repeat orders by weekday.
//
// ByOrderWeekday keys each order by the weekday it was placed: Exposure counts every
// qualifying order on that weekday, RepeatOrders the ones from users who had bought
// before. ByCohortWeekday uses the same counting keyed by the weekday of the user's
// first order. The date range is applied before orders are sequenced.
// It returns nil when no order qualifies.
func WeekdayRepeatPurchases(lines []models.OrderLine, p models.Params) *models.WeekdayRepeat {
	orders := ordersOf(qualifying(lines, statusesOrDefault(p.ValidStatuses), p.Range))
	if len(orders) == 0 {
		return nil
	}

	var byOrder, byCohort weekdayCounts
	firstDay := 0
	for i, o := range orders {
		if i == 0 || orders[i-1].user != o.user {
			firstDay = isoWeekdayIndex(o.at.Weekday())
		}
		d := isoWeekdayIndex(o.at.Weekday())

		byOrder[d].exposure++
		byCohort[firstDay].exposure++
		if o.repeat {
			byOrder[d].repeat++
			byCohort[firstDay].repeat++
		}
	}

	return &models.WeekdayRepeat{
		ByOrderWeekday:  byOrder.rows(),
		ByCohortWeekday: byCohort.rows(),
	}
}

// WeekdayWeekend folds the order-weekday view into Monday-Friday and Saturday-Sunday
// and compares the two aggregate repeat rates. Lift has no reading when the weekday
// rate is 0. It returns nil when no order qualifies.
func WeekdayWeekend(lines []models.OrderLine, p models.Params) *models.WeekdayWeekendComparison {
	wr := WeekdayRepeatPurchases(lines, p)
	if wr == nil {
		return nil
	}

	weekday := models.SegmentRow{Segment: models.SegmentWeekday, Days: 5}
	weekend := models.SegmentRow{Segment: models.SegmentWeekend, Days: 2}
	for _, row := range wr.ByOrderWeekday {
		seg := &weekday
		if row.Weekday == time.Saturday || row.Weekday == time.Sunday {
			seg = &weekend
		}
		seg.RepeatOrders += row.RepeatOrders
		seg.Exposure += row.Exposure
	}
	for _, seg := range []*models.SegmentRow{&weekday, &weekend} {
		seg.RepeatRate = ratio(seg.RepeatOrders, seg.Exposure)
		seg.AvgPerDay = float64(seg.RepeatOrders) / float64(seg.Days)
	}

	cmp := &models.WeekdayWeekendComparison{
		Weekday:        weekday,
		Weekend:        weekend,
		RateDifference: weekend.RepeatRate - weekday.RepeatRate,
	}
	if weekday.RepeatRate > 0 {
		cmp.Lift = models.NullRate{Float64: weekend.RepeatRate / weekday.RepeatRate, Valid: true}
	}
	return cmp
}
