package calculator

import (
	"errors"
	"strings"
	"time"

	"cohort-retention/pkg/models"
	"cohort-retention/pkg/validation"
)

// ErrMalformedTimestamp is returned by ParseTimestamp for text matching no known layout.
var ErrMalformedTimestamp = errors.New("malformed timestamp")

// Layouts carrying their own offset.
var zonedLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999 -0700",
}

// Layouts without an offset. They are read as UTC.
var naiveLayouts = []string{
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02 15:04",
	"2006-01-02",
}

// ParseTimestamp reads the timestamp formats seen in order exports and returns a UTC
// instant. Naive values are assumed to already be UTC; no local zone is inferred.
func ParseTimestamp(raw string) (time.Time, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return time.Time{}, ErrMalformedTimestamp
	}
	// "2023-03-13 04:36:00 UTC" as found in the Looker export.
	s = strings.TrimSuffix(s, " UTC")

	for _, layout := range zonedLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	for _, layout := range naiveLayouts {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return t, nil
		}
	}
	return time.Time{}, ErrMalformedTimestamp
}

// Normalize types raw rows. Rows failing validation or carrying an unparsable
// timestamp are dropped and counted; nothing is coerced to a default date.
// Unknown statuses are kept as StatusUnknown, which no StatusSet contains.
func Normalize(raw []models.RawOrderLine) ([]models.OrderLine, models.NormalizeReport) {
	rep := models.NormalizeReport{
		Input:           len(raw),
		DroppedByReason: map[string]int{},
	}
	out := make([]models.OrderLine, 0, len(raw))

	for _, r := range raw {
		row := models.RawOrderLine{
			OrderID:   strings.TrimSpace(r.OrderID),
			UserID:    strings.TrimSpace(r.UserID),
			CreatedAt: strings.TrimSpace(r.CreatedAt),
			Status:    strings.TrimSpace(r.Status),
		}
		if err := validation.Struct(&row); err != nil {
			rep.DroppedByReason[models.DropInvalidRow]++
			continue
		}

		ts, err := ParseTimestamp(row.CreatedAt)
		if err != nil {
			rep.DroppedByReason[models.DropMalformedTimestamp]++
			continue
		}

		status, ok := models.ParseStatus(row.Status)
		if !ok {
			rep.UnknownStatus++
		}

		out = append(out, models.OrderLine{
			OrderID:   row.OrderID,
			UserID:    row.UserID,
			CreatedAt: ts,
			Status:    status,
		})
	}

	rep.Kept = len(out)
	rep.Dropped = rep.Input - rep.Kept
	return out, rep
}
