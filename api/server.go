/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route definitions.
  This is the wiring layer that connects URLs to handlers.

MIDDLEWARE STACK:
  1. RequestID:  Unique ID per request, echoed in logs
  2. Logger:     zap request log (method, path, status, duration)
  3. Recoverer:  Panic recovery (500 instead of crash)
  4. CORS:       Cross-origin requests for the frontend

ROUTE GROUPS:
  /api/health           Liveness
  /api/agents/*         Agent queries
  /api/managers/*       Manager queries
  /api/admin/*          Configuration, tables and demo scenarios (RequireAdmin)

SEE ALSO:
  - handlers.go: Query handlers
  - admin.go: Admin handlers
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
)

// RouterOptions configures NewRouter.
type RouterOptions struct {
	// CORSOrigins defaults to every origin.
	CORSOrigins []string
}

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler, opts RouterOptions) *chi.Mux {
	origins := opts.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(requestLogger(h.log))
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", "X-Admin-Password"},
		MaxAge:         300,
	}))

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", h.Health)

		// Agent routes
		r.Route("/agents", func(r chi.Router) {
			r.Post("/lookup", h.LookupAgent)
			r.Get("/{code}/prizes", h.GetPrizes)
			r.Get("/{code}/band", h.GetBand)
		})

		// Manager routes
		r.Route("/managers", func(r chi.Router) {
			r.Get("/{code}/downline", h.GetDownline)
			r.Get("/{code}/near-miss", h.GetNearMiss)
			r.Get("/{code}/roster", h.GetRoster)
		})

		// Admin routes
		r.Route("/admin", func(r chi.Router) {
			r.Use(h.RequireAdmin)

			r.Post("/login", h.Login)
			r.Get("/status", h.GetStatus)
			r.Get("/config", h.GetConfig)
			r.Put("/config", h.PutConfig)
			r.Post("/commit", h.Commit)
			r.Get("/history", h.GetHistory)
			r.Get("/review", h.GetReview)
			r.Put("/roster", h.PutRoster)

			r.Route("/schemes", func(r chi.Router) {
				r.Post("/", h.CreateScheme)
				r.Delete("/", h.DeletePeriodicSchemes)
				r.Put("/{id}", h.UpdateScheme)
				r.Delete("/{id}", h.DeleteScheme)
				r.Put("/{id}/tiers", h.PutTiers)
			})

			r.Route("/tables", func(r chi.Router) {
				r.Get("/", h.ListTables)
				r.Post("/", h.UploadTable)
				r.Delete("/", h.DeleteAllTables)
				r.Delete("/{name}", h.DeleteTable)
			})

			// Demo scenarios
			r.Get("/scenarios", h.ListScenarios)
			r.Post("/scenarios/load", h.LoadScenario)
		})
	})

	return r
}

// requestLogger logs one line per request.
func requestLogger(log *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			defer func() {
				log.Info("http request",
					zap.String("method", r.Method),
					zap.String("path", r.URL.Path),
					zap.Int("status", ww.Status()),
					zap.Int("bytes", ww.BytesWritten()),
					zap.Duration("duration", time.Since(start)),
					zap.String("request_id", middleware.GetReqID(r.Context())))
			}()
			next.ServeHTTP(ww, r)
		})
	}
}
