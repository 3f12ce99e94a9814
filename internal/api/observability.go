package api

import (
	"log"
	"net"
	"net/http"
	"net/http/pprof"
	"os"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"crowdflow/internal/sim"
)

// Metrics with bounded cardinality (no per-agent labels)
var (
	// Simulation metrics
	tickDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "crowd_tick_duration_seconds",
		Help:    "Time spent in a simulation tick",
		Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.025, 0.05, 0.1},
	})

	agentCount = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "crowd_agents",
		Help: "Current number of agents",
	})

	movingCount = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "crowd_agents_moving",
		Help: "Agents currently following a flow field",
	})

	activeFields = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "crowd_flow_fields_active",
		Help: "Flow fields with at least one reference",
	})

	densityTotal = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "crowd_density_total",
		Help: "Sum of the crowd density field",
	})

	searchCaps = promauto.NewCounter(prometheus.CounterOpts{
		Name: "crowd_search_cap_total",
		Help: "Flow field searches aborted by the iteration cap",
	})

	// Event log metrics
	eventLogTotal = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "event_log_events",
		Help: "Events accepted by the event log",
	})

	eventLogDropped = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "event_log_dropped",
		Help: "Events dropped due to rate limiting or buffer full",
	})

	// DoS detection metrics - use ONLY bounded label values
	connectionRejected = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "connection_rejected_total",
		Help: "Connections rejected by rate limiter, origin check or auth",
	}, []string{"reason"}) // Bounded: "rate_limit", "origin", "auth", "ws_total_limit", "ws_ip_limit"

	// HTTP metrics with bounded labels
	requestLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "HTTP request latency",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "endpoint"}) // endpoint is the route pattern, not the full URL

	requestTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total HTTP requests",
	}, []string{"method", "endpoint", "status"})

	// WebSocket metrics
	wsConnectionsActive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "websocket_connections_active",
		Help: "Currently active WebSocket connections",
	})

	wsMessagesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "websocket_messages_total",
		Help: "Total WebSocket messages sent",
	})
)

// DebugServerConfig configures the debug server
type DebugServerConfig struct {
	Enabled       bool
	ListenAddr    string // Localhost only unless ALLOW_DEBUG_EXTERNAL=true
	BasicAuthUser string // Optional basic auth
	BasicAuthPass string
}

// StartDebugServer starts the internal observability server (pprof, /metrics,
// /health). Returns nil when disabled.
// CRITICAL: This binds to localhost only to prevent pprof-based DoS
func StartDebugServer(cfg DebugServerConfig) *http.Server {
	if !cfg.Enabled {
		log.Println("📊 Debug server disabled")
		return nil
	}

	cfg.ListenAddr = localDebugAddr(cfg.ListenAddr)

	mux := http.NewServeMux()

	// pprof endpoints for profiling
	mux.HandleFunc("/debug/pprof/", pprof.Index)
	mux.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
	mux.HandleFunc("/debug/pprof/profile", pprof.Profile)
	mux.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
	mux.HandleFunc("/debug/pprof/trace", pprof.Trace)

	mux.Handle("/metrics", promhttp.Handler())

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	var handler http.Handler = mux
	if cfg.BasicAuthUser != "" {
		handler = basicAuthMiddleware(cfg.BasicAuthUser, cfg.BasicAuthPass, mux)
	}

	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		log.Printf("📊 Debug server starting on %s", cfg.ListenAddr)
		log.Printf("   - pprof:   http://%s/debug/pprof/", cfg.ListenAddr)
		log.Printf("   - metrics: http://%s/metrics", cfg.ListenAddr)

		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("⚠️ Debug server error: %v", err)
		}
	}()

	return srv
}

// localDebugAddr forces the host part of addr to loopback unless external
// binding was explicitly allowed.
func localDebugAddr(addr string) string {
	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		log.Printf("⚠️ Invalid debug address %q, using 127.0.0.1:6060", addr)
		return "127.0.0.1:6060"
	}
	if host == "localhost" || host == "127.0.0.1" || host == "::1" {
		return addr
	}
	if os.Getenv("ALLOW_DEBUG_EXTERNAL") == "true" {
		return addr
	}
	log.Println("⚠️ Debug server forced to localhost for security")
	return net.JoinHostPort("127.0.0.1", port)
}

// basicAuthMiddleware adds basic authentication to the handler
func basicAuthMiddleware(user, pass string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		u, p, ok := r.BasicAuth()
		if !ok || u != user || p != pass {
			w.Header().Set("WWW-Authenticate", `Basic realm="debug"`)
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// metricsMiddleware records latency and status per chi route pattern.
func metricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		endpoint := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if p := rctx.RoutePattern(); p != "" {
				endpoint = p
			}
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		RecordRequest(r.Method, endpoint, status, time.Since(start))
	})
}

// RecordTick records tick timing for metrics
func RecordTick(duration time.Duration) {
	tickDuration.Observe(duration.Seconds())
}

// RecordSearchCap counts one aborted flow field search
func RecordSearchCap() {
	searchCaps.Inc()
}

// RecordStats copies engine counters into gauges
func RecordStats(s sim.Stats) {
	agentCount.Set(float64(s.Agents))
	movingCount.Set(float64(s.Moving))
	activeFields.Set(float64(s.ActiveFields))
	densityTotal.Set(s.DensityTotal)
	eventLogTotal.Set(float64(s.Events.Total))
	eventLogDropped.Set(float64(s.Events.Dropped))
}

// RecordConnectionRejected increments the rejection counter
func RecordConnectionRejected(reason string) {
	connectionRejected.WithLabelValues(reason).Inc()
}

// RecordRequest records HTTP request metrics
func RecordRequest(method, endpoint string, status int, duration time.Duration) {
	requestLatency.WithLabelValues(method, endpoint).Observe(duration.Seconds())
	requestTotal.WithLabelValues(method, endpoint, strconv.Itoa(status)).Inc()
}

// UpdateWSConnections updates WebSocket connection count
func UpdateWSConnections(count int) {
	wsConnectionsActive.Set(float64(count))
}

// IncrementWSMessages increments WebSocket message counter
func IncrementWSMessages() {
	wsMessagesTotal.Inc()
}
