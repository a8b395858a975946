package models

import (
	"math"

	"github.com/goccy/go-json"
)

// NullRate is a ratio that may have no reading, in the spirit of sql.NullFloat64.
// It serializes to null when not valid so no NaN ever reaches the display.
type NullRate struct {
	Float64 float64
	Valid   bool
}

// RateOf returns num/den, or an invalid rate when den is zero.
func RateOf(num, den int) NullRate {
	if den == 0 {
		return NullRate{}
	}
	return NullRate{Float64: float64(num) / float64(den), Valid: true}
}

// MarshalJSON implements json.Marshaler.
func (r NullRate) MarshalJSON() ([]byte, error) {
	if !r.Valid || math.IsNaN(r.Float64) || math.IsInf(r.Float64, 0) {
		return []byte("null"), nil
	}
	return json.Marshal(r.Float64)
}

// UnmarshalJSON implements json.Unmarshaler.
func (r *NullRate) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*r = NullRate{}
		return nil
	}
	var v float64
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*r = NullRate{Float64: v, Valid: true}
	return nil
}
