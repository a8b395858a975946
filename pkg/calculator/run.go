package calculator

import (
	"context"
	"fmt"
	"time"

	"cohort-retention/pkg/logging"
	"cohort-retention/pkg/metrics"
	"cohort-retention/pkg/models"

	"github.com/google/uuid"
	"github.com/schollz/progressbar/v3"
)

// Loader reads the raw order_items table.
type Loader interface {
	LoadOrderLines(ctx context.Context) ([]models.RawOrderLine, error)
}

// Run loads the order table, normalizes it and computes every report.
func Run(ctx context.Context, src Loader, cfg models.Config) (*models.Report, error) {
	raw, err := src.LoadOrderLines(ctx)
	if err != nil {
		return nil, fmt.Errorf("load order items: %w", err)
	}
	lines, diag := Normalize(raw)
	metrics.RecordNormalize(diag.DroppedByReason, diag.UnknownStatus)
	logging.Info().
		Int("input", diag.Input).
		Int("kept", diag.Kept).
		Int("dropped", diag.Dropped).
		Int("unknown_status", diag.UnknownStatus).
		Msg("normalized order items")

	return Analyze(ctx, lines, diag, cfg)
}

type step struct {
	name string
	run  func() (empty bool, err error)
}

// Analyze computes every report over already normalized lines.
func Analyze(ctx context.Context, lines []models.OrderLine, diag models.NormalizeReport, cfg models.Config) (*models.Report, error) {
	p := models.Params{ValidStatuses: cfg.ValidStatuses, Range: cfg.Range}
	rep := &models.Report{
		RunID:       uuid.NewString(),
		GeneratedAt: time.Now().UTC(),
		Diagnostics: diag,
	}

	// Default to the latest month inside the range so the weekly view matches the others.
	month := cfg.SelectedMonth
	if month == "" {
		if all := AvailableCohortMonths(lines, p, 0); len(all) > 0 {
			month = all[0]
		}
	}

	steps := []step{
		{"months", func() (bool, error) {
			rep.AvailableMonths = AvailableCohortMonths(lines, p, cfg.MonthsYear)
			return len(rep.AvailableMonths) == 0, nil
		}},
		{"distribution", func() (bool, error) {
			rep.Distribution = PurchaseDistribution(lines, p)
			return rep.Distribution == nil, nil
		}},
		{"monthly_retention", func() (bool, error) {
			m, err := MonthlyRetention(lines, p, cfg.MaxMonthAge)
			rep.Monthly = m
			rep.MonthlyCurve = RetentionCurve(m)
			return m == nil, err
		}},
		{"weekly_retention", func() (bool, error) {
			m, err := WeeklyRetention(lines, models.WeeklyRetentionParams{
				Params:        p,
				SelectedMonth: month,
				SelectedWeek:  cfg.SelectedWeek,
				MaxAge:        cfg.MaxWeekAge,
			})
			rep.Weekly = m
			return m == nil, err
		}},
		{"repeat_purchase", func() (bool, error) {
			rep.Repeat = RepeatPurchaseRates(lines, p)
			return len(rep.Repeat) == 0, nil
		}},
		{"weekday_repeat", func() (bool, error) {
			rep.Weekday = WeekdayRepeatPurchases(lines, p)
			return rep.Weekday == nil, nil
		}},
		{"weekday_weekend", func() (bool, error) {
			rep.WeekdayWeekend = WeekdayWeekend(lines, p)
			return rep.WeekdayWeekend == nil, nil
		}},
	}

	var bar *progressbar.ProgressBar
	if cfg.Verbose {
		bar = progressbar.Default(int64(len(steps)), "reports")
	} else {
		bar = progressbar.DefaultSilent(int64(len(steps)))
	}
	defer func() { _ = bar.Finish() }()

	for _, s := range steps {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		start := time.Now()
		empty, err := s.run()
		if err != nil {
			return nil, fmt.Errorf("%s: %w", s.name, err)
		}
		elapsed := time.Since(start)
		metrics.RecordReport(s.name, elapsed, empty)
		_ = bar.Add(1)

		logging.Debug().
			Str("run_id", rep.RunID).
			Str("report", s.name).
			Bool("empty", empty).
			Dur("elapsed", elapsed).
			Msg("report computed")
	}
	return rep, nil
}
