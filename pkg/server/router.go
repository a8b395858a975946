package server

import (
	"net/http"
	"strconv"
	"time"

	"cohort-retention/pkg/metrics"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// RouterOptions configures the cross-cutting middleware.
type RouterOptions struct {
	CORSOrigins []string
	RateLimit   int
	RateWindow  time.Duration
}

// NewRouter wires the API routes.
func NewRouter(h *Handler, opts RouterOptions) http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: opts.CORSOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/healthz", Health)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		if opts.RateLimit > 0 {
			r.Use(httprate.Limit(opts.RateLimit, opts.RateWindow, httprate.WithKeyFuncs(httprate.KeyByIP)))
		}
		r.Use(requestMetrics)

		r.Get("/months", h.Months())
		r.Get("/distribution", h.Distribution())
		r.Get("/retention", h.Retention())
		r.Get("/retention/curve", h.RetentionCurve())
		r.Get("/retention/weekly", h.WeeklyRetention())
		r.Get("/repeat", h.Repeat())
		r.Get("/weekday", h.Weekday())
		r.Get("/weekday/weekend", h.WeekdayWeekend())
		r.Post("/refresh", h.Refresh)
	})
	return r
}

// requestMetrics records every API call under its route pattern.
func requestMetrics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		endpoint := r.URL.Path
		if rc := chi.RouteContext(r.Context()); rc != nil && rc.RoutePattern() != "" {
			endpoint = rc.RoutePattern()
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		metrics.RecordAPIRequest(r.Method, endpoint, strconv.Itoa(status), time.Since(start))
	})
}
