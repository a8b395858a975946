package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"cohort-retention/pkg/models"
	"cohort-retention/pkg/validation"
)

func TestLoad_Defaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Server.Addr != ":8080" || cfg.Server.RateLimit != 100 || cfg.Server.RateWindow != time.Minute {
		t.Errorf("server defaults: %+v", cfg.Server)
	}
	if cfg.Report.MaxMonthAge != 12 || len(cfg.Report.ValidStatuses) != 3 {
		t.Errorf("report defaults: %+v", cfg.Report)
	}
	if cfg.Source.Table != "order_items" {
		t.Errorf("Source.Table = %q", cfg.Source.Table)
	}

	// The DSN has no default.
	var verr *validation.Error
	if err := cfg.Validate(); !errors.As(err, &verr) {
		t.Fatalf("Validate() = %v, want a validation error", err)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("COHORT_SOURCE_DSN", "postgres://u:p@db/shop")
	t.Setenv("COHORT_REPORT_MAX_MONTH_AGE", "6")
	t.Setenv("COHORT_REPORT_VALID_STATUSES", "Complete, Shipped")
	t.Setenv("COHORT_SERVER_CORS_ORIGINS", "https://a.example,https://b.example")
	t.Setenv("COHORT_SERVER_RATE_WINDOW", "30s")
	t.Setenv("COHORT_LOGGING_LEVEL", "debug")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	if cfg.Source.DSN != "postgres://u:p@db/shop" {
		t.Errorf("Source.DSN = %q", cfg.Source.DSN)
	}
	if cfg.Report.MaxMonthAge != 6 {
		t.Errorf("MaxMonthAge = %d, want 6", cfg.Report.MaxMonthAge)
	}
	if got := cfg.Report.ValidStatuses; len(got) != 2 || got[1] != "Shipped" {
		t.Errorf("ValidStatuses = %v", got)
	}
	if len(cfg.Server.CORSOrigins) != 2 {
		t.Errorf("CORSOrigins = %v", cfg.Server.CORSOrigins)
	}
	if cfg.Server.RateWindow != 30*time.Second {
		t.Errorf("RateWindow = %v", cfg.Server.RateWindow)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("Logging.Level = %q", cfg.Logging.Level)
	}
}

func TestLoad_File(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	content := `
source:
  dsn: "mariadb://u:p@db:3306/shop"
report:
  month: "2023-05"
  week: 2
server:
  addr: "127.0.0.1:9000"
`
	path := filepath.Join(dir, "cohort-retention.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("COHORT_SERVER_ADDR", ":9100")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Source.DSN != "mariadb://u:p@db:3306/shop" || cfg.Report.Month != "2023-05" || cfg.Report.Week != 2 {
		t.Errorf("file values not applied: %+v", cfg)
	}
	if cfg.Server.Addr != ":9100" {
		t.Errorf("env must win over file, got %q", cfg.Server.Addr)
	}
	if cfg.Report.MaxWeekAge != 12 {
		t.Errorf("defaults must survive, got %d", cfg.Report.MaxWeekAge)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatal("expected error for an explicit missing file")
	}
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		c := defaultConfig()
		c.Source.DSN = "x.csv"
		return c
	}
	if err := valid().Validate(); err != nil {
		t.Fatalf("valid config rejected: %v", err)
	}

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"week out of range", func(c *Config) { c.Report.Week = 6 }},
		{"bad month", func(c *Config) { c.Report.Month = "05/2023" }},
		{"bad start", func(c *Config) { c.Report.Start = "2023-13-01" }},
		{"negative age", func(c *Config) { c.Report.MaxMonthAge = -1 }},
		{"unknown status", func(c *Config) { c.Report.ValidStatuses = []string{"Complete", "Lost"} }},
		{"bad log format", func(c *Config) { c.Logging.Format = "xml" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid()
			tt.mutate(c)
			if err := c.Validate(); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

func TestReportConfig_Model(t *testing.T) {
	r := ReportConfig{
		ValidStatuses: []string{"complete", "Returned"},
		Start:         "2023-05-01",
		End:           "2023-05-31",
		Month:         "2023-05",
		Week:          1,
		MaxMonthAge:   3,
	}
	m, err := r.Model()
	if err != nil {
		t.Fatalf("Model() error = %v", err)
	}
	if len(m.ValidStatuses) != 2 || !m.ValidStatuses.Contains(models.StatusComplete) {
		t.Errorf("statuses: %v", m.ValidStatuses)
	}
	last := time.Date(2023, 5, 31, 23, 59, 59, 0, time.UTC)
	if !m.Range.Contains(last) || m.Range.Contains(last.Add(time.Second)) {
		t.Errorf("range must cover the whole end day: %+v", m.Range)
	}
	if m.SelectedMonth != "2023-05" || m.SelectedWeek != 1 || m.MaxMonthAge != 3 {
		t.Errorf("model: %+v", m)
	}
}
