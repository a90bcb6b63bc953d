/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route definitions.
  This is the wiring layer that connects URLs to handlers.

MIDDLEWARE STACK:
  1. RequestID:  Unique ID per request for tracing
  2. RealIP:     Client address from proxy headers
  3. Logger:     One zap line per request
  4. Recoverer:  Panic recovery (500 instead of crash)
  5. CORS:       Cross-origin requests for the web client
  6. Identity:   Caller from X-User-Email

ROUTE GROUPS:
  /api/habits/*         Catalog, habit CRUD, completion
  /api/users/*          User records and "my habits"
  /api/analytics        Global counters
  /api/admin/*          Activity log
  /api/scenarios/*      Demo scenarios (dev only)
  /healthz              Liveness

RATE LIMITING:
  POST /api/habits/{id}/complete is limited per caller. Double submits
  inside the window are also collapsed by the Gate, the limiter only
  protects the store from floods.

SECURITY NOTE:
  No authentication middleware. The caller's email header is trusted and
  must be set by an authenticating proxy in production.

SEE ALSO:
  - handlers.go: Handler implementations
  - cmd/habituo/serve.go: Server startup
*/
package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

type RouterOptions struct {
	AllowedOrigins []string

	// Completion rate limit per caller; CompleteRate <= 0 disables it.
	CompleteRate  float64
	CompleteBurst int

	// EnableScenarios mounts the demo scenario and reset routes.
	EnableScenarios bool
}

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler, opts RouterOptions) *chi.Mux {
	r := chi.NewRouter()

	origins := opts.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"http://localhost:5173", "http://localhost:8080"}
	}

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(RequestLogger(h.Logger))
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", UserHeader},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	r.Use(Identity)

	completeLimiter := NewKeyedRateLimiter(opts.CompleteRate, opts.CompleteBurst)

	r.Get("/healthz", h.Health)

	r.Route("/api", func(r chi.Router) {
		// Habit routes
		r.Route("/habits", func(r chi.Router) {
			r.Get("/", h.ListPublicHabits)
			r.Get("/featured", h.ListFeaturedHabits)
			r.Get("/{id}", h.GetHabit)

			r.Group(func(r chi.Router) {
				r.Use(RequireUser)
				r.Post("/", h.CreateHabit)
				r.Delete("/{id}", h.DeleteHabit)
				r.With(RateLimitByUser(completeLimiter, h.Logger)).Post("/{id}/complete", h.MarkComplete)
			})
		})

		// User routes
		r.Route("/users", func(r chi.Router) {
			r.Post("/", h.CreateUser)
			r.Get("/{email}", h.GetUser)
			r.With(RequireUser).Get("/{email}/habits", h.ListUserHabits)
		})

		r.Get("/analytics", h.GetAnalytics)

		// Admin routes
		r.Route("/admin", func(r chi.Router) {
			r.Use(RequireUser)
			r.Get("/activity", h.ListActivity)
		})

		// Scenario routes
		if opts.EnableScenarios {
			r.Route("/scenarios", func(r chi.Router) {
				r.Get("/", h.ListScenarios)
				r.Get("/current", h.GetCurrentScenario)
				r.Post("/load", h.LoadScenario)
				r.Post("/reset", h.ResetDatabase)
			})
		}
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "Route not found", nil)
	})

	return r
}
