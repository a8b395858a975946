package models

import (
	"strings"
	"time"
)

/*
LOAD → raw rows as read from the order_items source, before any parsing.
*/

// RawOrderLine is one order item exactly as the loader read it. Every field is text;
// typing happens in the normalizer.
type RawOrderLine struct {
	OrderID   string `validate:"required"`
	UserID    string `validate:"required"`
	CreatedAt string `validate:"required"`
	Status    string `validate:"required"`
}

/*
NORMALIZE → typed rows handed to every analytic function.
*/

// Status is the lifecycle state of an order item.
type Status string

const (
	StatusComplete   Status = "Complete"
	StatusReturned   Status = "Returned"
	StatusCancelled  Status = "Cancelled"
	StatusProcessing Status = "Processing"
	StatusShipped    Status = "Shipped"
	StatusPending    Status = "Pending"
	StatusUnknown    Status = ""
)

var knownStatuses = []Status{
	StatusComplete, StatusReturned, StatusCancelled,
	StatusProcessing, StatusShipped, StatusPending,
}

// ParseStatus maps a raw status onto the enum, ignoring case and surrounding spaces.
// Values outside the enum return StatusUnknown and false.
func ParseStatus(raw string) (Status, bool) {
	raw = strings.TrimSpace(raw)
	for _, s := range knownStatuses {
		if strings.EqualFold(raw, string(s)) {
			return s, true
		}
	}
	return StatusUnknown, false
}

// StatusSet lists the statuses that count as a purchase event.
type StatusSet []Status

// DefaultValidStatuses returns the source convention {Complete, Returned, Cancelled}.
// Cancelled and Returned items count as purchase intent.
func DefaultValidStatuses() StatusSet {
	return StatusSet{StatusComplete, StatusReturned, StatusCancelled}
}

// ParseStatusSet builds a set from raw names, skipping unknown ones.
func ParseStatusSet(names []string) StatusSet {
	set := make(StatusSet, 0, len(names))
	for _, n := range names {
		if s, ok := ParseStatus(n); ok && !set.Contains(s) {
			set = append(set, s)
		}
	}
	return set
}

// Contains reports whether s is in the set. StatusUnknown is never contained.
func (ss StatusSet) Contains(s Status) bool {
	if s == StatusUnknown {
		return false
	}
	for _, v := range ss {
		if v == s {
			return true
		}
	}
	return false
}

// OrderLine is a validated order item with a UTC instant.
type OrderLine struct {
	OrderID   string
	UserID    string
	CreatedAt time.Time // always UTC
	Status    Status
}

// Drop reasons reported by the normalizer.
const (
	DropMalformedTimestamp = "malformed_timestamp"
	DropInvalidRow         = "invalid_row"
)

// NormalizeReport surfaces what the normalizer discarded.
type NormalizeReport struct {
	Input           int            `json:"input"`
	Kept            int            `json:"kept"`
	Dropped         int            `json:"dropped"`
	DroppedByReason map[string]int `json:"dropped_by_reason"`
	UnknownStatus   int            `json:"unknown_status"`
}

/*
COHORT → period keys and cohort-tagged rows.
*/

// Granularity is the period length used for cohorts and ages.
type Granularity string

const (
	GranularityMonth Granularity = "month"
	GranularityWeek  Granularity = "week"
	GranularityDay   Granularity = "day"
)

// Valid reports whether g is one of the supported granularities.
func (g Granularity) Valid() bool {
	switch g {
	case GranularityMonth, GranularityWeek, GranularityDay:
		return true
	}
	return false
}

// Period is a truncated calendar period. Start is UTC midnight of the first day
// (first of the month, Monday of the ISO week, or the day itself).
type Period struct {
	Granularity Granularity
	Start       time.Time
}

// String returns the CohortKey label: "2006-01" for months, "2006-01-02" otherwise.
func (p Period) String() string {
	if p.Granularity == GranularityMonth {
		return p.Start.Format("2006-01")
	}
	return p.Start.Format("2006-01-02")
}

// MarshalText lets periods serialize as their label.
func (p Period) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// CohortLine is an order line joined with its user's cohort.
type CohortLine struct {
	OrderLine
	Cohort Period // period of the user's first qualifying purchase
	Period Period // period of this line
	Age    int    // whole periods between Cohort and Period, >= 0
}

/*
PARAMS → filter inputs collected by the presentation layer.
*/

// DateRange is an inclusive [Start, End] window. A zero bound is open.
type DateRange struct {
	Start time.Time
	End   time.Time
}

// DayRange builds the inclusive range covering whole UTC days from start to end.
func DayRange(start, end time.Time) DateRange {
	var r DateRange
	if !start.IsZero() {
		s := start.UTC()
		r.Start = time.Date(s.Year(), s.Month(), s.Day(), 0, 0, 0, 0, time.UTC)
	}
	if !end.IsZero() {
		e := end.UTC()
		r.End = time.Date(e.Year(), e.Month(), e.Day(), 0, 0, 0, 0, time.UTC).AddDate(0, 0, 1).Add(-time.Nanosecond)
	}
	return r
}

// Empty reports whether the range cannot contain any instant (start after end).
func (r DateRange) Empty() bool {
	return !r.Start.IsZero() && !r.End.IsZero() && r.Start.After(r.End)
}

// Contains reports whether t falls inside the range.
func (r DateRange) Contains(t time.Time) bool {
	if !r.Start.IsZero() && t.Before(r.Start) {
		return false
	}
	if !r.End.IsZero() && t.After(r.End) {
		return false
	}
	return true
}

// Params is shared by every analytic function.
type Params struct {
	ValidStatuses StatusSet
	Range         DateRange
}

// RetentionParams drives the cohort matrix.
type RetentionParams struct {
	Params
	Granularity     Granularity
	MaxAge          int
	ShowAnnotations bool // display only, ignored by computation
}

// WeeklyRetentionParams narrows week cohorts to one month and week-of-month.
type WeeklyRetentionParams struct {
	Params
	SelectedMonth   string // "2006-01", empty for every month
	SelectedWeek    int    // 0 = All, otherwise 1..5
	MaxAge          int
	ShowAnnotations bool
}

/*
CONFIG → parameters passed to calculator.Run.
*/

// Config holds everything a full report run needs.
type Config struct {
	ValidStatuses StatusSet
	Range         DateRange
	SelectedMonth string // weekly matrix month; latest available month when empty
	SelectedWeek  int
	MaxMonthAge   int
	MaxWeekAge    int
	MonthsYear    int // restricts AvailableMonths to one year, 0 for all
	Verbose       bool
}
