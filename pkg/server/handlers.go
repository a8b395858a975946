package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"cohort-retention/pkg/calculator"
	"cohort-retention/pkg/database"
	"cohort-retention/pkg/logging"
	"cohort-retention/pkg/models"
	"cohort-retention/pkg/validation"

	"github.com/goccy/go-json"
)

// Tables is the cached order table the handlers read from.
type Tables interface {
	Get(ctx context.Context) (*database.Table, error)
	Refresh(ctx context.Context) (*database.Table, error)
}

// Response is the envelope of every analytic endpoint. Empty results are not errors.
type Response struct {
	Report      string                 `json:"report"`
	Empty       bool                   `json:"empty"`
	Data        any                    `json:"data"`
	Detail      any                    `json:"detail,omitempty"`
	Diagnostics models.NormalizeReport `json:"diagnostics"`
	GeneratedAt time.Time              `json:"generated_at"`
}

type APIError struct {
	Code    string   `json:"code"`
	Message string   `json:"message"`
	Details []string `json:"details,omitempty"`
}

type ErrorResponse struct {
	Error APIError `json:"error"`
}

// Handler serves the analytic endpoints.
type Handler struct {
	tables Tables
}

func NewHandler(tables Tables) *Handler {
	return &Handler{tables: tables}
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		logging.Error().Err(err).Msg("failed to marshal JSON response")
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, err := w.Write(data); err != nil {
		logging.Error().Err(err).Msg("failed to write JSON response")
	}
}

func respondError(w http.ResponseWriter, status int, code string, err error) {
	apiErr := APIError{Code: code, Message: err.Error()}
	var verr *validation.Error
	if errors.As(err, &verr) {
		apiErr.Message = "invalid query parameters"
		for _, f := range verr.Fields {
			apiErr.Details = append(apiErr.Details, f.Error())
		}
	}
	if status >= http.StatusInternalServerError {
		logging.Error().Err(err).Str("code", code).Msg("request failed")
	}
	respondJSON(w, status, ErrorResponse{Error: apiErr})
}

// analytic runs compute over the cached table with the request's filters.
func (h *Handler) analytic(report string, compute func(lines []models.OrderLine, f filters) (data, detail any, empty bool, err error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		f, err := parseQuery(r)
		if err != nil {
			respondError(w, http.StatusBadRequest, "VALIDATION_ERROR", err)
			return
		}
		table, err := h.tables.Get(r.Context())
		if err != nil {
			respondError(w, http.StatusServiceUnavailable, "SOURCE_UNAVAILABLE", err)
			return
		}

		data, detail, empty, err := compute(table.Lines, f)
		if errors.Is(err, calculator.ErrInvalidParams) {
			respondError(w, http.StatusBadRequest, "VALIDATION_ERROR", err)
			return
		}
		if err != nil {
			respondError(w, http.StatusInternalServerError, "INTERNAL_ERROR", err)
			return
		}
		resp := Response{
			Report:      report,
			Empty:       empty,
			Data:        data,
			Diagnostics: table.Diagnostics,
			GeneratedAt: time.Now().UTC(),
		}
		if !empty {
			resp.Detail = detail
		}
		respondJSON(w, http.StatusOK, resp)
	}
}

func (h *Handler) Months() http.HandlerFunc {
	return h.analytic("available_months", func(lines []models.OrderLine, f filters) (any, any, bool, error) {
		months := calculator.AvailableCohortMonths(lines, f.params, f.year)
		return months, nil, len(months) == 0, nil
	})
}

func (h *Handler) Distribution() http.HandlerFunc {
	return h.analytic("purchase_distribution", func(lines []models.OrderLine, f filters) (any, any, bool, error) {
		d := calculator.PurchaseDistribution(lines, f.params)
		if d == nil {
			return nil, nil, true, nil
		}
		return d, d.Buckets, false, nil
	})
}

func (h *Handler) Retention() http.HandlerFunc {
	return h.analytic("retention", func(lines []models.OrderLine, f filters) (any, any, bool, error) {
		m, err := calculator.Retention(lines, models.RetentionParams{
			Params:          f.params,
			Granularity:     f.granularity,
			MaxAge:          f.maxAge,
			ShowAnnotations: f.annotations,
		})
		if err != nil || m == nil {
			return nil, nil, true, err
		}
		return m, m.Detail(), false, nil
	})
}

func (h *Handler) RetentionCurve() http.HandlerFunc {
	return h.analytic("retention_curve", func(lines []models.OrderLine, f filters) (any, any, bool, error) {
		m, err := calculator.Retention(lines, models.RetentionParams{
			Params:      f.params,
			Granularity: f.granularity,
			MaxAge:      f.maxAge,
		})
		if err != nil || m == nil {
			return nil, nil, true, err
		}
		return calculator.RetentionCurve(m), nil, false, nil
	})
}

func (h *Handler) WeeklyRetention() http.HandlerFunc {
	return h.analytic("weekly_retention", func(lines []models.OrderLine, f filters) (any, any, bool, error) {
		m, err := calculator.WeeklyRetention(lines, models.WeeklyRetentionParams{
			Params:          f.params,
			SelectedMonth:   f.month,
			SelectedWeek:    f.week,
			MaxAge:          f.maxAge,
			ShowAnnotations: f.annotations,
		})
		if err != nil || m == nil {
			return nil, nil, true, err
		}
		return m, m.Detail(), false, nil
	})
}

func (h *Handler) Repeat() http.HandlerFunc {
	return h.analytic("repeat_purchase", func(lines []models.OrderLine, f filters) (any, any, bool, error) {
		rows := calculator.RepeatPurchaseRates(lines, f.params)
		return rows, rows, len(rows) == 0, nil
	})
}

func (h *Handler) Weekday() http.HandlerFunc {
	return h.analytic("weekday_repeat", func(lines []models.OrderLine, f filters) (any, any, bool, error) {
		wr := calculator.WeekdayRepeatPurchases(lines, f.params)
		if wr == nil {
			return nil, nil, true, nil
		}
		return wr, wr.Detail(), false, nil
	})
}

func (h *Handler) WeekdayWeekend() http.HandlerFunc {
	return h.analytic("weekday_weekend", func(lines []models.OrderLine, f filters) (any, any, bool, error) {
		cmp := calculator.WeekdayWeekend(lines, f.params)
		if cmp == nil {
			return nil, nil, true, nil
		}
		return cmp, cmp.Table(), false, nil
	})
}

type refreshResult struct {
	Rows     int       `json:"rows"`
	LoadedAt time.Time `json:"loaded_at"`
}

// Refresh reloads the order table from the source.
func (h *Handler) Refresh(w http.ResponseWriter, r *http.Request) {
	table, err := h.tables.Refresh(r.Context())
	if err != nil {
		respondError(w, http.StatusServiceUnavailable, "SOURCE_UNAVAILABLE", err)
		return
	}
	respondJSON(w, http.StatusOK, Response{
		Report:      "refresh",
		Empty:       len(table.Lines) == 0,
		Data:        refreshResult{Rows: len(table.Lines), LoadedAt: table.LoadedAt},
		Diagnostics: table.Diagnostics,
		GeneratedAt: time.Now().UTC(),
	})
}

func Health(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
