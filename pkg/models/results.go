package models

import "time"

/*
COMPUTE → result tables returned to the presentation layer. Numbers are raw; the
display applies percentage formatting itself.
*/

// RetentionMatrix is a dense cohort × age table.
type RetentionMatrix struct {
	Granularity Granularity `json:"granularity"`
	MaxAge      int         `json:"max_age"`

	// LastObserved is the latest period present in the data; cells beyond it are not valid.
	LastObserved Period `json:"last_observed"`

	// Cohorts are sorted ascending by key.
	Cohorts []CohortRow `json:"cohorts"`
}

// CohortRow is one matrix row.
type CohortRow struct {
	Cohort Period          `json:"cohort"`
	Size   int             `json:"size"`
	Cells  []RetentionCell `json:"cells"` // index == age, len == MaxAge+1
}

// RetentionCell holds the reading for one (cohort, age) pair.
type RetentionCell struct {
	Age         int      `json:"age"`
	ActiveUsers int      `json:"active_users"`
	Rate        NullRate `json:"rate"` // ActiveUsers / Size; null beyond the observation edge
}

// RetentionDetailRow is the flat companion of a matrix cell.
type RetentionDetailRow struct {
	Cohort      string   `json:"cohort"`
	CohortSize  int      `json:"cohort_size"`
	Age         int      `json:"age"`
	ActiveUsers int      `json:"active_users"`
	Rate        NullRate `json:"rate"`
}

// Detail flattens the matrix into one row per cell.
func (m *RetentionMatrix) Detail() []RetentionDetailRow {
	if m == nil {
		return nil
	}
	out := make([]RetentionDetailRow, 0, len(m.Cohorts)*(m.MaxAge+1))
	for _, row := range m.Cohorts {
		for _, c := range row.Cells {
			out = append(out, RetentionDetailRow{
				Cohort:      row.Cohort.String(),
				CohortSize:  row.Size,
				Age:         c.Age,
				ActiveUsers: c.ActiveUsers,
				Rate:        c.Rate,
			})
		}
	}
	return out
}

// CurvePoint aggregates the valid rates of every cohort at one age.
type CurvePoint struct {
	Age     int     `json:"age"`
	Mean    float64 `json:"mean"`
	Median  float64 `json:"median"`
	Min     float64 `json:"min"`
	Max     float64 `json:"max"`
	Cohorts int     `json:"cohorts"` // cohorts with a valid reading at this age
}

// RepeatPurchaseRow is the per-month share of buyers who bought in an earlier month.
type RepeatPurchaseRow struct {
	Period              Period  `json:"period"`
	Purchasers          int     `json:"purchasers"`
	ReturningUsers      int     `json:"returning_users"`
	NewUsers            int     `json:"new_users"`
	RepeatPurchaserRate float64 `json:"repeat_purchaser_rate"`
}

// WeekdayExposure is one weekday bucket.
type WeekdayExposure struct {
	Weekday      time.Weekday `json:"-"`
	Name         string       `json:"weekday"`
	RepeatOrders int          `json:"repeat_orders"`
	Exposure     int          `json:"exposure"`
	RepeatRate   float64      `json:"repeat_rate"` // 0 when Exposure is 0
}

// WeekdayRepeat carries both weekday views, Monday first.
type WeekdayRepeat struct {
	ByOrderWeekday  []WeekdayExposure `json:"by_order_weekday"`
	ByCohortWeekday []WeekdayExposure `json:"by_cohort_weekday"`
}

// Weekday views.
const (
	ViewOrderWeekday  = "order_weekday"
	ViewCohortWeekday = "cohort_weekday"
)

// WeekdayDetailRow is the flat companion of a weekday bucket.
type WeekdayDetailRow struct {
	View         string  `json:"view"`
	Weekday      string  `json:"weekday"`
	RepeatOrders int     `json:"repeat_orders"`
	Exposure     int     `json:"exposure"`
	RepeatRate   float64 `json:"repeat_rate"`
}

// Detail lists both views, order weekday first.
func (w *WeekdayRepeat) Detail() []WeekdayDetailRow {
	if w == nil {
		return nil
	}
	out := make([]WeekdayDetailRow, 0, len(w.ByOrderWeekday)+len(w.ByCohortWeekday))
	for _, v := range []struct {
		name string
		rows []WeekdayExposure
	}{{ViewOrderWeekday, w.ByOrderWeekday}, {ViewCohortWeekday, w.ByCohortWeekday}} {
		for _, r := range v.rows {
			out = append(out, WeekdayDetailRow{
				View:         v.name,
				Weekday:      r.Name,
				RepeatOrders: r.RepeatOrders,
				Exposure:     r.Exposure,
				RepeatRate:   r.RepeatRate,
			})
		}
	}
	return out
}

// Day-type segments for the weekday/weekend rollup.
const (
	SegmentWeekday = "weekday"
	SegmentWeekend = "weekend"
)

// SegmentRow is one side of the weekday/weekend comparison.
type SegmentRow struct {
	Segment      string  `json:"segment"`
	Days         int     `json:"days"` // calendar weekdays in the segment
	RepeatOrders int     `json:"repeat_orders"`
	Exposure     int     `json:"exposure"`
	RepeatRate   float64 `json:"repeat_rate"`
	AvgPerDay    float64 `json:"avg_repeat_orders_per_day"`
}

// WeekdayWeekendComparison is the rollup plus a direct comparison.
type WeekdayWeekendComparison struct {
	Weekday        SegmentRow `json:"weekday"`
	Weekend        SegmentRow `json:"weekend"`
	RateDifference float64    `json:"rate_difference"` // weekend - weekday
	Lift           NullRate   `json:"lift"`            // weekend / weekday
}

// Table returns the two segment rows in display order.
func (c *WeekdayWeekendComparison) Table() []SegmentRow {
	if c == nil {
		return nil
	}
	return []SegmentRow{c.Weekday, c.Weekend}
}

// PurchaseCountBucket counts users with exactly Purchases distinct orders.
type PurchaseCountBucket struct {
	Purchases int `json:"purchases"`
	Users     int `json:"users"`
}

// PurchaseDistribution is the purchase-frequency histogram.
type PurchaseDistribution struct {
	Buckets          []PurchaseCountBucket `json:"buckets"` // ascending by Purchases
	TotalUsers       int                   `json:"total_users"`
	OneTimeUsers     int                   `json:"one_time_users"`
	RepeatPurchasers int                   `json:"repeat_purchasers"`
	RepeatShare      float64               `json:"repeat_share"`
}

// Report bundles every table produced by one calculator.Run.
type Report struct {
	RunID           string                    `json:"run_id"`
	GeneratedAt     time.Time                 `json:"generated_at"`
	Diagnostics     NormalizeReport           `json:"diagnostics"`
	AvailableMonths []string                  `json:"available_months"`
	Distribution    *PurchaseDistribution     `json:"distribution"`
	Monthly         *RetentionMatrix          `json:"monthly_retention"`
	MonthlyCurve    []CurvePoint              `json:"monthly_curve"`
	Weekly          *RetentionMatrix          `json:"weekly_retention"`
	Repeat          []RepeatPurchaseRow       `json:"repeat_purchase"`
	Weekday         *WeekdayRepeat            `json:"weekday_repeat"`
	WeekdayWeekend  *WeekdayWeekendComparison `json:"weekday_weekend"`
}
