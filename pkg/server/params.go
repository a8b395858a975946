package server

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"cohort-retention/pkg/models"
	"cohort-retention/pkg/validation"
)

// query holds the raw filter inputs of an analytic request.
type query struct {
	Start       string `validate:"omitempty,datetime=2006-01-02"`
	End         string `validate:"omitempty,datetime=2006-01-02"`
	Statuses    []string
	Granularity string `validate:"omitempty,oneof=month week day"`
	Month       string `validate:"omitempty,datetime=2006-01"`
	Week        string `validate:"omitempty,oneof=All all 0 1 2 3 4 5"`
	MaxAgeRaw   string `validate:"omitempty,number"`
	MaxAge      int    `validate:"max=520"`
	Year        string `validate:"omitempty,number,len=4"`
	Annotations string `validate:"omitempty,boolean"`
}

// filters is query after conversion.
type filters struct {
	params      models.Params
	granularity models.Granularity
	month       string
	week        int
	maxAge      int
	year        int
	annotations bool
}

const defaultMaxAge = 12

func parseQuery(r *http.Request) (filters, error) {
	v := r.URL.Query()
	q := query{
		Start:       v.Get("start"),
		End:         v.Get("end"),
		Granularity: v.Get("granularity"),
		Month:       v.Get("month"),
		Week:        v.Get("week"),
		MaxAgeRaw:   v.Get("max_age"),
		Year:        v.Get("year"),
		Annotations: v.Get("annotations"),
	}
	if q.MaxAgeRaw != "" {
		// Out of range values saturate, which max= then rejects.
		q.MaxAge, _ = strconv.Atoi(q.MaxAgeRaw)
	}
	for _, s := range v["status"] {
		for _, part := range strings.Split(s, ",") {
			if part = strings.TrimSpace(part); part != "" {
				q.Statuses = append(q.Statuses, part)
			}
		}
	}
	if err := validation.Struct(&q); err != nil {
		return filters{}, err
	}

	f := filters{
		granularity: models.GranularityMonth,
		month:       q.Month,
		maxAge:      defaultMaxAge,
	}
	if q.Granularity != "" {
		f.granularity = models.Granularity(q.Granularity)
	}

	var start, end time.Time
	if q.Start != "" {
		start, _ = time.Parse("2006-01-02", q.Start)
	}
	if q.End != "" {
		end, _ = time.Parse("2006-01-02", q.End)
	}
	f.params.Range = models.DayRange(start, end)

	if len(q.Statuses) > 0 {
		f.params.ValidStatuses = models.ParseStatusSet(q.Statuses)
		if len(f.params.ValidStatuses) == 0 {
			return filters{}, fmt.Errorf("status: no known status in %v", q.Statuses)
		}
	}
	if q.Week != "" && !strings.EqualFold(q.Week, "all") {
		f.week, _ = strconv.Atoi(q.Week)
	}
	if q.MaxAgeRaw != "" {
		f.maxAge = q.MaxAge
	}
	if q.Year != "" {
		f.year, _ = strconv.Atoi(q.Year)
	}
	if q.Annotations != "" {
		f.annotations, _ = strconv.ParseBool(q.Annotations)
	}
	return f, nil
}
