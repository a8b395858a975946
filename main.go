package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"cohort-retention/pkg/calculator"
	"cohort-retention/pkg/config"
	"cohort-retention/pkg/database"
	"cohort-retention/pkg/export"
	"cohort-retention/pkg/logging"
	"cohort-retention/pkg/models"
	"cohort-retention/pkg/server"

	"github.com/goccy/go-json"
	"github.com/joho/godotenv"
)

var reportNames = []string{"all", "months", "distribution", "monthly", "curve", "weekly", "repeat", "weekday", "weekend"}

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load(configPathFromArgs(os.Args[1:]))
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	flag.String("config", "", "YAML config file (default: search cohort-retention.yaml)")
	dsn := flag.String("dsn", cfg.Source.DSN, "source DSN: mariadb://, mysql://, postgres://, duckdb:// or a .csv path")
	table := flag.String("table", cfg.Source.Table, "order items table")
	report := flag.String("report", "all", "report to print: "+strings.Join(reportNames, "|"))
	start := flag.String("start", cfg.Report.Start, "first day included (YYYY-MM-DD)")
	end := flag.String("end", cfg.Report.End, "last day included (YYYY-MM-DD)")
	month := flag.String("month", cfg.Report.Month, "weekly cohort month (YYYY-MM), latest when empty")
	week := flag.String("week", weekFlag(cfg.Report.Week), "week of month: All or 1..5")
	maxAge := flag.Int("max_age", cfg.Report.MaxMonthAge, "largest cohort age shown")
	out := flag.String("out", cfg.Export.Dir, "directory for the JSON export, empty to skip")
	serve := flag.Bool("serve", false, "serve the HTTP API instead of printing a report")
	verbose := flag.Bool("v", cfg.Report.Verbose, "progress bar and debug logs")
	flag.Parse()

	cfg.Source.DSN = *dsn
	cfg.Source.Table = *table
	cfg.Report.Start = *start
	cfg.Report.End = *end
	cfg.Report.Month = *month
	cfg.Report.MaxMonthAge = *maxAge
	cfg.Report.MaxWeekAge = *maxAge
	cfg.Report.Verbose = *verbose
	cfg.Export.Dir = *out
	if cfg.Report.Week, err = parseWeek(*week); err != nil {
		fmt.Fprintf(os.Stderr, "invalid -week: %v\n", err)
		os.Exit(2)
	}
	if *verbose {
		cfg.Logging.Level = "debug"
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "invalid configuration: %v\n", err)
		os.Exit(2)
	}

	logging.Init(logging.Config{Level: cfg.Logging.Level, Format: cfg.Logging.Format})

	src, err := database.Open(cfg.Source.DSN, cfg.Source.Table)
	if err != nil {
		logging.Fatal().Err(err).Msg("open source")
	}
	defer src.Close()
	logging.Info().Str("driver", src.Driver()).Msg("source opened")

	if *serve {
		if err := runServer(cfg, src); err != nil {
			logging.Error().Err(err).Msg("server stopped")
			os.Exit(1)
		}
		return
	}

	if err := runReport(cfg, src, *report); err != nil {
		logging.Error().Err(err).Msg("report failed")
		os.Exit(1)
	}
}

func runReport(cfg *config.Config, src calculator.Loader, name string) error {
	params, err := cfg.Report.Model()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	rep, err := calculator.Run(ctx, src, params)
	if err != nil {
		return fmt.Errorf("compute: %w", err)
	}

	section, err := pick(rep, name)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(section); err != nil {
		return fmt.Errorf("print report: %w", err)
	}

	if cfg.Export.Dir != "" {
		if _, err := export.Report(cfg.Export.Dir, rep); err != nil {
			return fmt.Errorf("export: %w", err)
		}
	}
	return nil
}

func runServer(cfg *config.Config, src calculator.Loader) error {
	cache := database.NewCache(src)
	if _, err := cache.Get(context.Background()); err != nil {
		return fmt.Errorf("initial load: %w", err)
	}

	router := server.NewRouter(server.NewHandler(cache), server.RouterOptions{
		CORSOrigins: cfg.Server.CORSOrigins,
		RateLimit:   cfg.Server.RateLimit,
		RateWindow:  cfg.Server.RateWindow,
	})
	srv := server.New(cfg.Server, router)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	var runErr error
	select {
	case sig := <-sigCh:
		logging.Info().Str("signal", sig.String()).Msg("received shutdown signal")
	case err := <-errCh:
		if err != nil && !errors.Is(err, context.Canceled) {
			runErr = err
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logging.Error().Err(err).Msg("graceful shutdown failed")
	}
	return runErr
}

func pick(rep *models.Report, name string) (any, error) {
	switch name {
	case "all":
		return rep, nil
	case "months":
		return rep.AvailableMonths, nil
	case "distribution":
		return rep.Distribution, nil
	case "monthly":
		return rep.Monthly, nil
	case "curve":
		return rep.MonthlyCurve, nil
	case "weekly":
		return rep.Weekly, nil
	case "repeat":
		return rep.Repeat, nil
	case "weekday":
		return rep.Weekday, nil
	case "weekend":
		return rep.WeekdayWeekend, nil
	default:
		return nil, fmt.Errorf("unknown report %q (want %s)", name, strings.Join(reportNames, "|"))
	}
}

func parseWeek(s string) (int, error) {
	if s == "" || strings.EqualFold(s, "all") {
		return 0, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 1 || n > 5 {
		return 0, fmt.Errorf("%q is not All or 1..5", s)
	}
	return n, nil
}

func weekFlag(n int) string {
	if n == 0 {
		return "All"
	}
	return strconv.Itoa(n)
}

// configPathFromArgs finds -config before the other flags are defined, since their
// defaults come from the loaded file.
func configPathFromArgs(args []string) string {
	for i, a := range args {
		name, value, hasValue := strings.Cut(strings.TrimLeft(a, "-"), "=")
		if name != "config" || !strings.HasPrefix(a, "-") {
			continue
		}
		if hasValue {
			return value
		}
		if i+1 < len(args) {
			return args[i+1]
		}
	}
	return ""
}
