package api

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
)

// statsInterval is how often engine counters are copied into metrics.
const statsInterval = time.Second

// ServerConfig configures the public API server.
type ServerConfig struct {
	AllowedOrigins []string
	RateLimit      RateLimitConfig // Unset classes use DefaultRateLimitConfig
	APIToken       string
}

// Server is the HTTP API server with WebSocket support.
// It combines the HTTP router with WebSocket hub for real-time updates.
type Server struct {
	engine      EngineInterface
	router      *chi.Mux
	wsHub       *WebSocketHub
	rateLimiter *RouteLimiter
	httpServer  *http.Server
	stopChan    chan struct{}
}

// NewServer creates a new API server.
//
// IMPORTANT: Background workers do NOT start until Start() is called.
// For testing HTTP endpoints without WebSocket support, use NewRouter() directly.
func NewServer(engine EngineInterface, cfg ServerConfig) *Server {
	s := &Server{
		engine:      engine,
		wsHub:       NewWebSocketHub(cfg.AllowedOrigins),
		rateLimiter: NewRouteLimiter(cfg.RateLimit),
		stopChan:    make(chan struct{}),
	}

	s.router = NewRouter(RouterConfig{
		Engine:      engine,
		RateLimiter: s.rateLimiter,
		CORSOrigins: cfg.AllowedOrigins,
		APIToken:    cfg.APIToken,
	})

	// WebSocket route needs the hub instance; upgrades count as reads
	s.router.With(s.rateLimiter.Limit(ClassRead)).Get("/ws", s.wsHub.HandleWebSocket)

	s.httpServer = &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Start begins the HTTP server AND starts background workers.
// It blocks until the server stops; http.ErrServerClosed means a clean Shutdown.
func (s *Server) Start(addr string) error {
	go s.wsHub.Run()
	s.wsHub.StartBroadcastLoop(s.engine, SnapshotBroadcastInterval)
	go s.statsLoop()

	s.httpServer.Addr = addr

	log.Printf("🌐 API server starting on %s", addr)
	return s.httpServer.ListenAndServe()
}

func (s *Server) statsLoop() {
	ticker := time.NewTicker(statsInterval)
	defer ticker.Stop()
	for {
		select {
		case <-s.stopChan:
			return
		case <-ticker.C:
			RecordStats(s.engine.Stats())
		}
	}
}

// Router returns the HTTP handler for use with httptest.
func (s *Server) Router() http.Handler {
	return s.router
}

// Hub returns the WebSocket hub.
func (s *Server) Hub() *WebSocketHub {
	return s.wsHub
}

// Shutdown stops background workers and drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	select {
	case <-s.stopChan:
	default:
		close(s.stopChan)
	}
	s.wsHub.Stop()
	s.rateLimiter.Stop()

	return s.httpServer.Shutdown(ctx)
}
