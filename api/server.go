/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route definitions.
  This is the wiring layer that connects URLs to handlers.

MIDDLEWARE STACK:
  1. RequestID:  Unique ID per request for tracing
  2. Logger:     zap request log (5xx Error, 4xx Warn, else Info)
  3. Recoverer:  Panic recovery (500 instead of crash)
  4. CORS:       Cross-origin requests for frontend

ROUTE GROUPS:
  /api/agents/*         Roster, shifts, absences, leaves, agent planning
  /api/swaps            Shift swaps
  /api/holidays/*       Holiday calendar
  /api/planning/*       Monthly and quarterly grids
  /api/stats/*          Statistics and rankings
  /api/scenarios/*      Demo roster
  /api/admin/*          Materialization
  /metrics              Prometheus exposition (when configured)

SECURITY NOTE:
  No authentication middleware. All endpoints are public.

SEE ALSO:
  - handlers.go: Handler implementations
  - cmd/server/main.go: Server startup
*/
package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/warp/rota-engine/logger"
)

// RouterOptions configures NewRouter.
type RouterOptions struct {
	Logger       *zap.Logger
	AllowOrigins []string
	// Metrics is mounted at /metrics when non-nil.
	Metrics http.Handler
}

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler, opts RouterOptions) *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(RequestLogger(logger.OrNop(opts.Logger)))
	r.Use(middleware.Recoverer)
	if len(opts.AllowOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   opts.AllowOrigins,
			AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-Id"},
			AllowCredentials: true,
		}))
	}

	if opts.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", opts.Metrics)
	}

	r.Route("/api", func(r chi.Router) {
		r.Route("/agents", func(r chi.Router) {
			r.Get("/", h.ListAgents)
			r.Post("/", h.CreateAgent)
			r.Route("/{code}", func(r chi.Router) {
				r.Get("/", h.GetAgent)
				r.Patch("/", h.UpdateAgent)
				r.Delete("/", h.ExitAgent)

				r.Get("/shifts/{date}", h.GetShift)
				r.Put("/shifts/{date}", h.SetShift)
				r.Post("/absences", h.RecordAbsence)

				r.Get("/leaves", h.ListLeaves)
				r.Post("/leaves", h.BookLeave)
				r.Delete("/leaves", h.CancelLeave)

				r.Get("/planning", h.AgentPlanning)
			})
		})

		r.Post("/swaps", h.SwapShifts)

		r.Route("/holidays", func(r chi.Router) {
			r.Get("/", h.ListHolidays)
			r.Post("/", h.CreateHoliday)
			r.Delete("/{date}", h.DeleteHoliday)
		})

		r.Route("/planning", func(r chi.Router) {
			r.Get("/", h.MonthlyPlanning)
			r.Get("/quarter", h.QuarterPlanning)
		})

		r.Route("/stats", func(r chi.Router) {
			r.Get("/global", h.GlobalStats)
			r.Get("/worked-days", h.GlobalWorkedDays)
			r.Get("/groups/{group}", h.GroupStats)
			r.Get("/groups/{group}/ranking", h.GroupRanking)
			r.Get("/groups/{group}/worked-days", h.GroupWorkedDays)
			r.Get("/agents/{code}", h.AgentStats)
			r.Get("/agents/{code}/detail", h.AgentDetail)
			r.Get("/agents/{code}/evolution", h.AgentEvolution)
		})

		r.Route("/scenarios", func(r chi.Router) {
			r.Get("/", h.ListScenarios)
			r.Get("/current", h.GetCurrentScenario)
			r.Post("/demo", h.LoadDemoScenario)
			r.Post("/reset", h.ResetDatabase)
		})

		r.Route("/admin", func(r chi.Router) {
			r.Post("/materialize", h.Materialize)
		})
	})

	return r
}

// RequestLogger logs one line per request with zap.
func RequestLogger(log *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			next.ServeHTTP(ww, r)

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			fields := []zap.Field{
				zap.Int("status", status),
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.String("query", r.URL.RawQuery),
				zap.String("ip", r.RemoteAddr),
				zap.Duration("latency", time.Since(start)),
				zap.String("request_id", middleware.GetReqID(r.Context())),
			}

			switch {
			case status >= 500:
				log.Error("request failed", fields...)
			case status >= 400:
				log.Warn("client error", fields...)
			default:
				log.Info("request completed", fields...)
			}
		})
	}
}
