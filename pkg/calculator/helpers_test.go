package calculator

import (
	"strconv"
	"time"

	"cohort-retention/pkg/models"
)

func date(y, m, d int) time.Time {
	return time.Date(y, time.Month(m), d, 0, 0, 0, 0, time.UTC)
}

func at(y, m, d, h int) time.Time {
	return time.Date(y, time.Month(m), d, h, 0, 0, 0, time.UTC)
}

// orderSeq hands out order ids so fixtures stay short.
type orderSeq int

func (s *orderSeq) line(user string, ts time.Time, status models.Status) models.OrderLine {
	*s++
	return models.OrderLine{
		OrderID:   "o" + strconv.Itoa(int(*s)),
		UserID:    user,
		CreatedAt: ts,
		Status:    status,
	}
}

// scenarioJanFeb: A buys in Jan and Feb, B only in Jan, C only in Feb.
func scenarioJanFeb() []models.OrderLine {
	var s orderSeq
	return []models.OrderLine{
		s.line("A", at(2024, 1, 10, 9), models.StatusComplete),
		s.line("B", at(2024, 1, 20, 14), models.StatusComplete),
		s.line("A", at(2024, 2, 3, 11), models.StatusComplete),
		s.line("C", at(2024, 2, 15, 16), models.StatusComplete),
	}
}

func cloneLines(lines []models.OrderLine) []models.OrderLine {
	return append([]models.OrderLine(nil), lines...)
}
