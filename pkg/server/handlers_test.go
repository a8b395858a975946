package server

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"cohort-retention/pkg/calculator"
	"cohort-retention/pkg/database"
	"cohort-retention/pkg/models"

	"github.com/goccy/go-json"
)

type stubTables struct {
	table     *database.Table
	err       error
	refreshes int
}

func (s *stubTables) Get(context.Context) (*database.Table, error) {
	return s.table, s.err
}

func (s *stubTables) Refresh(context.Context) (*database.Table, error) {
	s.refreshes++
	return s.table, s.err
}

func newTables() *stubTables {
	lines, diag := calculator.Normalize([]models.RawOrderLine{
		{OrderID: "1", UserID: "A", CreatedAt: "2023-05-01 10:00:00 UTC", Status: "Complete"},
		{OrderID: "2", UserID: "A", CreatedAt: "2023-06-03 10:00:00 UTC", Status: "Complete"},
		{OrderID: "3", UserID: "B", CreatedAt: "2023-05-08 10:00:00 UTC", Status: "Returned"},
		{OrderID: "4", UserID: "C", CreatedAt: "2023-06-10 10:00:00 UTC", Status: "Cancelled"},
		{OrderID: "5", UserID: "D", CreatedAt: "bad", Status: "Complete"},
	})
	return &stubTables{table: &database.Table{Lines: lines, Diagnostics: diag, LoadedAt: time.Now()}}
}

func newTestRouter(tables Tables) http.Handler {
	return NewRouter(NewHandler(tables), RouterOptions{CORSOrigins: []string{"*"}})
}

type envelope struct {
	Report      string                 `json:"report"`
	Empty       bool                   `json:"empty"`
	Data        json.RawMessage        `json:"data"`
	Detail      json.RawMessage        `json:"detail"`
	Diagnostics models.NormalizeReport `json:"diagnostics"`
}

func get(t *testing.T, h http.Handler, target string) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))

	var env envelope
	if rec.Code == http.StatusOK {
		if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
			t.Fatalf("decode %s: %v", target, err)
		}
	}
	return rec, env
}

func isNull(raw json.RawMessage) bool {
	return len(raw) == 0 || string(raw) == "null"
}

func TestHealth(t *testing.T) {
	rec, _ := get(t, newTestRouter(newTables()), "/healthz")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"ok"`) {
		t.Fatalf("got %d %s", rec.Code, rec.Body.String())
	}
}

func TestRetention(t *testing.T) {
	rec, env := get(t, newTestRouter(newTables()), "/api/v1/retention?max_age=2")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if env.Report != "retention" || env.Empty {
		t.Fatalf("envelope: %+v", env)
	}
	if env.Diagnostics.Dropped != 1 {
		t.Fatalf("diagnostics: %+v", env.Diagnostics)
	}

	var m struct {
		Cohorts []struct {
			Cohort string `json:"cohort"`
			Size   int    `json:"size"`
			Cells  []struct {
				Age  int      `json:"age"`
				Rate *float64 `json:"rate"`
			} `json:"cells"`
		} `json:"cohorts"`
	}
	if err := json.Unmarshal(env.Data, &m); err != nil {
		t.Fatalf("decode matrix: %v", err)
	}
	if len(m.Cohorts) != 2 || m.Cohorts[0].Cohort != "2023-05" || m.Cohorts[0].Size != 2 {
		t.Fatalf("cohorts: %+v", m.Cohorts)
	}
	may, june := m.Cohorts[0].Cells, m.Cohorts[1].Cells
	if len(may) != 2 || *may[0].Rate != 1 || *may[1].Rate != 0.5 {
		t.Fatalf("may cells: %+v", may)
	}
	if june[1].Rate != nil {
		t.Fatalf("june age 1 is past the data edge: %+v", june)
	}
	if isNull(env.Detail) {
		t.Fatal("expected a detail table")
	}
}

func TestRetention_MaxAgeAtLimit(t *testing.T) {
	rec, env := get(t, newTestRouter(newTables()), "/api/v1/retention?max_age=520")
	if rec.Code != http.StatusOK || env.Empty {
		t.Fatalf("got %d: %s", rec.Code, rec.Body.String())
	}
	var m struct {
		MaxAge int `json:"max_age"`
	}
	if err := json.Unmarshal(env.Data, &m); err != nil || m.MaxAge != 1 {
		t.Fatalf("width must follow the data span, got %d (%v)", m.MaxAge, err)
	}
}

func TestWeeklyRetention_Filters(t *testing.T) {
	h := newTestRouter(newTables())

	_, env := get(t, h, "/api/v1/retention/weekly?month=2023-05&week=2")
	if env.Empty {
		t.Fatal("week 2 of May holds B's cohort")
	}
	_, env = get(t, h, "/api/v1/retention/weekly?month=2023-04&week=All")
	if !env.Empty || !isNull(env.Data) {
		t.Fatalf("expected empty result, got %+v", env)
	}
}

func TestAnalyticEndpoints(t *testing.T) {
	h := newTestRouter(newTables())
	for _, path := range []string{
		"/api/v1/months?year=2023",
		"/api/v1/distribution",
		"/api/v1/retention/curve?granularity=week",
		"/api/v1/repeat",
		"/api/v1/weekday",
		"/api/v1/weekday/weekend",
	} {
		rec, env := get(t, h, path)
		if rec.Code != http.StatusOK || env.Empty {
			t.Fatalf("%s: %d empty=%v %s", path, rec.Code, env.Empty, rec.Body.String())
		}
	}
}

func TestWeekday_DetailTable(t *testing.T) {
	rec, env := get(t, newTestRouter(newTables()), "/api/v1/weekday")
	if rec.Code != http.StatusOK || env.Empty {
		t.Fatalf("got %d: %s", rec.Code, rec.Body.String())
	}
	var rows []models.WeekdayDetailRow
	if err := json.Unmarshal(env.Detail, &rows); err != nil {
		t.Fatalf("decode detail: %v", err)
	}
	if len(rows) != 14 || rows[0].View != models.ViewOrderWeekday || rows[7].View != models.ViewCohortWeekday {
		t.Fatalf("detail: %+v", rows)
	}

	_, env = get(t, newTestRouter(newTables()), "/api/v1/repeat")
	if isNull(env.Detail) {
		t.Fatal("repeat must carry its detail table")
	}
}

func TestStartAfterEndIsEmpty(t *testing.T) {
	rec, env := get(t, newTestRouter(newTables()), "/api/v1/distribution?start=2023-06-01&end=2023-05-01")
	if rec.Code != http.StatusOK || !env.Empty {
		t.Fatalf("got %d %+v", rec.Code, env)
	}
}

func TestValidationErrors(t *testing.T) {
	h := newTestRouter(newTables())
	for _, path := range []string{
		"/api/v1/retention?granularity=year",
		"/api/v1/retention?max_age=-1",
		"/api/v1/retention?max_age=abc",
		"/api/v1/retention?max_age=521",
		"/api/v1/retention?max_age=200000000",
		"/api/v1/retention?max_age=9223372036854775807",
		"/api/v1/retention/weekly?max_age=99999999999999999999",
		"/api/v1/retention/weekly?week=6",
		"/api/v1/retention/weekly?month=May",
		"/api/v1/repeat?start=01/05/2023",
		"/api/v1/weekday?status=Lost",
	} {
		rec, _ := get(t, h, path)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("%s: expected 400, got %d", path, rec.Code)
		}
		var body ErrorResponse
		if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil || body.Error.Code != "VALIDATION_ERROR" {
			t.Fatalf("%s: body %s", path, rec.Body.String())
		}
	}
}

func TestSourceUnavailable(t *testing.T) {
	rec, _ := get(t, newTestRouter(&stubTables{err: errors.New("db down")}), "/api/v1/repeat")
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rec.Code)
	}
}

func TestRefresh(t *testing.T) {
	tables := newTables()
	rec := httptest.NewRecorder()
	newTestRouter(tables).ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/refresh", nil))

	if rec.Code != http.StatusOK || tables.refreshes != 1 {
		t.Fatalf("got %d after %d refreshes", rec.Code, tables.refreshes)
	}
	if !strings.Contains(rec.Body.String(), `"rows":4`) {
		t.Fatalf("body: %s", rec.Body.String())
	}
}
