// Package export writes finished reports to disk as indented JSON.
package export

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"cohort-retention/pkg/logging"
	"cohort-retention/pkg/models"

	"github.com/goccy/go-json"
)

// JSON writes data to filename, creating parent directories as needed.
func JSON(filename string, data any) error {
	if err := os.MkdirAll(filepath.Dir(filename), 0o755); err != nil {
		return fmt.Errorf("create directory: %w", err)
	}

	file, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("create file: %w", err)
	}
	defer file.Close()

	enc := json.NewEncoder(file)
	enc.SetIndent("", "  ")
	if err := enc.Encode(data); err != nil {
		return fmt.Errorf("write JSON: %w", err)
	}
	return nil
}

// TimestampedFilename returns dir/name_YYYYMMDD_HHMMSS.json for t in UTC.
func TimestampedFilename(dir, name string, t time.Time) string {
	return filepath.Join(dir, fmt.Sprintf("%s_%s.json", name, t.UTC().Format("20060102_150405")))
}

// Report writes rep under dir, named after its generation time, and returns the path.
func Report(dir string, rep *models.Report) (string, error) {
	path := TimestampedFilename(dir, "cohort_report", rep.GeneratedAt)
	if err := JSON(path, rep); err != nil {
		return "", err
	}
	logging.Info().Str("path", path).Str("run_id", rep.RunID).Msg("report exported")
	return path, nil
}
