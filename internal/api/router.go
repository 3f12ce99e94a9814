package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"crowdflow/internal/nav"
	"crowdflow/internal/sim"
)

// EngineInterface defines the simulation methods used by the API.
// Keep this minimal - only include methods the API layer actually calls.
type EngineInterface interface {
	// GetSnapshot returns the latest immutable snapshot (preferred for polling)
	GetSnapshot() sim.WorldSnapshot
	// Stats returns live counters
	Stats() sim.Stats
	// World returns the navigation layers
	World() *nav.World

	Agents() []sim.AgentSnapshot
	Agent(id string) (sim.AgentSnapshot, bool)
	AgentsNear(center nav.Vec2, radius float64) []sim.AgentSnapshot
	AddAgent(pos nav.Vec2) (sim.AgentSnapshot, error)
	SpawnAgents(n int) ([]sim.AgentSnapshot, error)
	RemoveAgent(id string) error

	// IssueGoal sends agents (all when ids is empty) toward a world position
	IssueGoal(ids []string, goal nav.Vec2) (sim.GoalResult, error)
	// ActiveField returns the field of the most recent goal
	ActiveField() (*nav.FlowField, error)

	RecentEvents(n int) []sim.Event
}

// RouterConfig contains all dependencies needed to construct the HTTP router.
//
// Example usage in tests:
//
//	router := api.NewRouter(api.RouterConfig{
//	    Engine: engine,
//	    RateLimitConfig: &api.RateLimitConfig{
//	        Read:  api.Rate{PerSecond: 1000, Burst: 1000}, // High limits for tests
//	        Solve: api.Rate{PerSecond: 1000, Burst: 1000},
//	    },
//	})
//	ts := httptest.NewServer(router)
type RouterConfig struct {
	// Engine is the simulation (required)
	Engine EngineInterface

	// RateLimiter is an optional pre-configured rate limiter.
	// If nil, a new one will be created using RateLimitConfig.
	RateLimiter *RouteLimiter

	// RateLimitConfig is optional configuration for the rate limiter.
	// Only used if RateLimiter is nil. If both are nil, uses DefaultRateLimitConfig.
	RateLimitConfig *RateLimitConfig

	// CORSOrigins is an optional list of allowed CORS origins.
	// If nil, only localhost origins are allowed.
	CORSOrigins []string

	// APIToken guards the mutating routes when set.
	APIToken string

	// DisableLogging disables the request logger middleware (useful for benchmarks).
	DisableLogging bool
}

// routerHandlers holds the handler functions for the router.
type routerHandlers struct {
	engine EngineInterface
}

// DefaultCORSOrigins are used when RouterConfig.CORSOrigins is nil.
var DefaultCORSOrigins = []string{
	"http://localhost:*",
	"http://127.0.0.1:*",
}

// NewRouter constructs the HTTP router with all middleware and routes.
//
// IMPORTANT: NewRouter opens no listeners. The only goroutine it may start is
// the cleanup loop of a rate limiter it creates itself; pass RateLimiter to
// keep control of that.
func NewRouter(cfg RouterConfig) *chi.Mux {
	r := chi.NewRouter()

	// Middleware - Order matters!
	if !cfg.DisableLogging {
		r.Use(middleware.Logger)
	}
	r.Use(middleware.Recoverer)
	r.Use(metricsMiddleware)

	rateLimiter := cfg.RateLimiter
	if rateLimiter == nil {
		rateLimitCfg := DefaultRateLimitConfig
		if cfg.RateLimitConfig != nil {
			rateLimitCfg = *cfg.RateLimitConfig
		}
		rateLimiter = NewRouteLimiter(rateLimitCfg)
	}
	read := rateLimiter.Limit(ClassRead)
	sample := rateLimiter.Limit(ClassSample)
	solve := rateLimiter.Limit(ClassSolve)
	requireToken := RequireToken(cfg.APIToken)

	corsOrigins := cfg.CORSOrigins
	if corsOrigins == nil {
		corsOrigins = DefaultCORSOrigins
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   corsOrigins,
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		AllowCredentials: true,
	}))

	h := &routerHandlers{engine: cfg.Engine}

	r.Route("/api", func(r chi.Router) {
		// World, simulation state and agent reads
		r.Group(func(r chi.Router) {
			r.Use(read)
			r.Get("/world", h.handleGetWorld)
			r.Get("/stats", h.handleGetStats)
			r.Get("/snapshot", h.handleGetSnapshot)
			r.Get("/events", h.handleGetEvents)
			r.Get("/agents", h.handleListAgents)
			r.Get("/agents/{id}", h.handleGetAgent)
		})

		// Point queries against the active field (fine units)
		r.Group(func(r chi.Router) {
			r.Use(sample)
			r.Get("/agents/near", h.handleAgentsNear)
			r.Get("/field/cost", h.handleFieldCost)
			r.Get("/field/direction", h.handleFieldDirection)
			r.Get("/field/accessible", h.handleFieldAccessible)
		})

		// Whole-field work: a heatmap settles every reachable cell
		r.With(solve).Get("/field/heatmap.png", h.handleFieldHeatmap)

		// Mutating routes; the limiter runs first so token guesses are throttled too
		r.Group(func(r chi.Router) {
			r.Use(solve, requireToken)
			r.Post("/agents", h.handleCreateAgents)
			r.Post("/goal", h.handleIssueGoal)
		})
		r.With(read, requireToken).Delete("/agents/{id}", h.handleDeleteAgent)
	})

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]string{"status": "ok"})
	})

	return r
}
