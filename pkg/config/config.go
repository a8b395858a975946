// Package config loads runtime settings from struct defaults, an optional YAML file
// and COHORT_* environment variables, in that order of precedence.
package config

import (
	"fmt"
	"time"

	"cohort-retention/pkg/models"
	"cohort-retention/pkg/validation"
)

// Config is the full runtime configuration.
type Config struct {
	Source  SourceConfig  `koanf:"source"`
	Report  ReportConfig  `koanf:"report"`
	Server  ServerConfig  `koanf:"server"`
	Logging LoggingConfig `koanf:"logging"`
	Export  ExportConfig  `koanf:"export"`
}

// SourceConfig locates the order items table.
type SourceConfig struct {
	DSN   string `koanf:"dsn" validate:"required"`
	Table string `koanf:"table" validate:"omitempty,max=64"`
}

// ReportConfig holds the filter inputs of a report run.
type ReportConfig struct {
	ValidStatuses []string `koanf:"valid_statuses" validate:"dive,required"`
	Start         string   `koanf:"start" validate:"omitempty,datetime=2006-01-02"`
	End           string   `koanf:"end" validate:"omitempty,datetime=2006-01-02"`
	Month         string   `koanf:"month" validate:"omitempty,datetime=2006-01"`
	Week          int      `koanf:"week" validate:"min=0,max=5"`
	MaxMonthAge   int      `koanf:"max_month_age" validate:"min=0,max=240"`
	MaxWeekAge    int      `koanf:"max_week_age" validate:"min=0,max=520"`
	MonthsYear    int      `koanf:"months_year" validate:"min=0"`
	Verbose       bool     `koanf:"verbose"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Addr            string        `koanf:"addr" validate:"required"`
	ReadTimeout     time.Duration `koanf:"read_timeout" validate:"min=0"`
	WriteTimeout    time.Duration `koanf:"write_timeout" validate:"min=0"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout" validate:"min=0"`
	CORSOrigins     []string      `koanf:"cors_origins"`
	RateLimit       int           `koanf:"rate_limit" validate:"min=1"`
	RateWindow      time.Duration `koanf:"rate_window" validate:"min=1"`
}

// LoggingConfig mirrors logging.Config without the output writer.
type LoggingConfig struct {
	Level  string `koanf:"level" validate:"omitempty,oneof=trace debug info warn warning error disabled"`
	Format string `koanf:"format" validate:"omitempty,oneof=json console"`
}

// ExportConfig sets where the CLI writes report files. Empty disables export.
type ExportConfig struct {
	Dir string `koanf:"dir"`
}

func defaultConfig() *Config {
	return &Config{
		Source: SourceConfig{Table: "order_items"},
		Report: ReportConfig{
			ValidStatuses: []string{"Complete", "Returned", "Cancelled"},
			MaxMonthAge:   12,
			MaxWeekAge:    12,
		},
		Server: ServerConfig{
			Addr:            ":8080",
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    60 * time.Second,
			ShutdownTimeout: 10 * time.Second,
			CORSOrigins:     []string{"*"},
			RateLimit:       100,
			RateWindow:      time.Minute,
		},
		Logging: LoggingConfig{Level: "info", Format: "json"},
	}
}

// Validate checks every field against its tags and the status names against the
// known set.
func (c *Config) Validate() error {
	if err := validation.Struct(c); err != nil {
		return err
	}
	if got := models.ParseStatusSet(c.Report.ValidStatuses); len(got) != len(c.Report.ValidStatuses) {
		return fmt.Errorf("report.valid_statuses: unknown or duplicate status in %v", c.Report.ValidStatuses)
	}
	return nil
}

// Model converts the report settings into calculator parameters.
func (r ReportConfig) Model() (models.Config, error) {
	var start, end time.Time
	var err error
	if r.Start != "" {
		if start, err = time.Parse("2006-01-02", r.Start); err != nil {
			return models.Config{}, fmt.Errorf("report.start: %w", err)
		}
	}
	if r.End != "" {
		if end, err = time.Parse("2006-01-02", r.End); err != nil {
			return models.Config{}, fmt.Errorf("report.end: %w", err)
		}
	}
	return models.Config{
		ValidStatuses: models.ParseStatusSet(r.ValidStatuses),
		Range:         models.DayRange(start, end),
		SelectedMonth: r.Month,
		SelectedWeek:  r.Week,
		MaxMonthAge:   r.MaxMonthAge,
		MaxWeekAge:    r.MaxWeekAge,
		MonthsYear:    r.MonthsYear,
		Verbose:       r.Verbose,
	}, nil
}
