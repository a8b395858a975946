package calculator

import (
	"sort"

	"cohort-retention/pkg/models"
)

// RetentionCurve summarizes each age column across cohorts. Only valid cells count,
// so cohorts that have not reached an age yet do not drag its average down.
// Ages without any valid cell are omitted.
func RetentionCurve(m *models.RetentionMatrix) []models.CurvePoint {
	if m == nil {
		return nil
	}

	curve := make([]models.CurvePoint, 0, m.MaxAge+1)
	for age := 0; age <= m.MaxAge; age++ {
		var rates []float64
		for _, row := range m.Cohorts {
			if age < len(row.Cells) && row.Cells[age].Rate.Valid {
				rates = append(rates, row.Cells[age].Rate.Float64)
			}
		}
		if len(rates) == 0 {
			continue
		}
		curve = append(curve, models.CurvePoint{
			Age:     age,
			Mean:    average(rates),
			Median:  median(rates),
			Min:     minFloat(rates),
			Max:     maxFloat(rates),
			Cohorts: len(rates),
		})
	}
	return curve
}

func average(vals []float64) float64 {
	if len(vals) == 0 {
		return 0
	}
	var sum float64
	for _, v := range vals {
		sum += v
	}
	return sum / float64(len(vals))
}

func median(vals []float64) float64 {
	if len(vals) == 0 {
		return 0
	}
	sorted := make([]float64, len(vals))
	copy(sorted, vals)
	sort.Float64s(sorted)

	mid := len(sorted) / 2
	if len(sorted)%2 == 0 {
		return (sorted[mid-1] + sorted[mid]) / 2
	}
	return sorted[mid]
}

func minFloat(vals []float64) float64 {
	result := vals[0]
	for _, v := range vals[1:] {
		if v < result {
			result = v
		}
	}
	return result
}

func maxFloat(vals []float64) float64 {
	result := vals[0]
	for _, v := range vals[1:] {
		if v > result {
			result = v
		}
	}
	return result
}
