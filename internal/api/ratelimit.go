package api

import (
	"math"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"
)

// RouteClass groups endpoints by how much navigation work one request can
// trigger. Each class has its own token bucket per client IP.
type RouteClass int

const (
	// ClassRead covers snapshot, stats, event and agent reads.
	ClassRead RouteClass = iota
	// ClassSample covers point queries that settle a handful of field cells.
	ClassSample
	// ClassSolve covers goal orders, spawns and heatmaps, any of which can
	// settle a whole flow field.
	ClassSolve

	numRouteClasses
)

func (c RouteClass) String() string {
	switch c {
	case ClassRead:
		return "read"
	case ClassSample:
		return "sample"
	case ClassSolve:
		return "solve"
	default:
		return "unknown"
	}
}

// Rate is one token bucket: sustained requests per second and burst size.
type Rate struct {
	PerSecond float64
	Burst     int
}

func (r Rate) valid() bool { return r.PerSecond > 0 && r.Burst > 0 }

// RateLimitConfig sets the per-IP bucket of every route class.
type RateLimitConfig struct {
	Read            Rate
	Sample          Rate
	Solve           Rate
	CleanupInterval time.Duration // How often idle client buckets are dropped
}

// DefaultRateLimitConfig keeps solves rare relative to reads.
var DefaultRateLimitConfig = RateLimitConfig{
	Read:            Rate{PerSecond: 20, Burst: 40},
	Sample:          Rate{PerSecond: 10, Burst: 20},
	Solve:           Rate{PerSecond: 1, Burst: 3},
	CleanupInterval: 5 * time.Minute,
}

func (c RateLimitConfig) rate(class RouteClass) Rate {
	switch class {
	case ClassSample:
		return c.Sample
	case ClassSolve:
		return c.Solve
	default:
		return c.Read
	}
}

// withDefaults replaces unusable classes with their defaults.
func (c RateLimitConfig) withDefaults() RateLimitConfig {
	if !c.Read.valid() {
		c.Read = DefaultRateLimitConfig.Read
	}
	if !c.Sample.valid() {
		c.Sample = DefaultRateLimitConfig.Sample
	}
	if !c.Solve.valid() {
		c.Solve = DefaultRateLimitConfig.Solve
	}
	if c.CleanupInterval <= 0 {
		c.CleanupInterval = DefaultRateLimitConfig.CleanupInterval
	}
	return c
}

// RateLimitStats reports limiter decisions for one class.
type RateLimitStats struct {
	Allowed  uint64 `json:"allowed"`
	Rejected uint64 `json:"rejected"`
}

type clientBucket struct {
	limiter  *rate.Limiter
	lastSeen atomic.Int64 // Unix nano
}

type classBuckets struct {
	rate     Rate
	clients  sync.Map // map[string]*clientBucket
	allowed  atomic.Uint64
	rejected atomic.Uint64
}

// RouteLimiter rate-limits clients separately for each route class, so a
// client polling snapshots is never starved by its own heatmap requests.
type RouteLimiter struct {
	classes         [numRouteClasses]*classBuckets
	cleanupInterval time.Duration
	stopChan        chan struct{}
	stopOnce        sync.Once
}

// NewRouteLimiter creates a limiter and starts its cleanup goroutine.
// Classes left at zero in cfg use DefaultRateLimitConfig.
func NewRouteLimiter(cfg RateLimitConfig) *RouteLimiter {
	cfg = cfg.withDefaults()
	rl := &RouteLimiter{
		cleanupInterval: cfg.CleanupInterval,
		stopChan:        make(chan struct{}),
	}
	for c := range rl.classes {
		rl.classes[c] = &classBuckets{rate: cfg.rate(RouteClass(c))}
	}

	go rl.cleanupLoop()
	return rl
}

// Stop ends the cleanup goroutine.
func (rl *RouteLimiter) Stop() {
	rl.stopOnce.Do(func() {
		close(rl.stopChan)
	})
}

func (rl *RouteLimiter) bucket(class RouteClass, ip string) *rate.Limiter {
	cb := rl.classes[class]
	now := time.Now().UnixNano()

	if v, ok := cb.clients.Load(ip); ok {
		b := v.(*clientBucket)
		b.lastSeen.Store(now)
		return b.limiter
	}

	b := &clientBucket{limiter: rate.NewLimiter(rate.Limit(cb.rate.PerSecond), cb.rate.Burst)}
	b.lastSeen.Store(now)
	actual, _ := cb.clients.LoadOrStore(ip, b)
	return actual.(*clientBucket).limiter
}

// Reserve takes one token from ip's bucket for class. It returns zero when
// the request may proceed, otherwise how long the client should wait. A
// refused request does not consume a token.
func (rl *RouteLimiter) Reserve(class RouteClass, ip string) time.Duration {
	if class < 0 || class >= numRouteClasses {
		class = ClassRead
	}
	cb := rl.classes[class]

	now := time.Now()
	res := rl.bucket(class, ip).ReserveN(now, 1)
	if !res.OK() {
		cb.rejected.Add(1)
		return time.Second
	}
	wait := res.DelayFrom(now)
	if wait == 0 {
		cb.allowed.Add(1)
		return 0
	}

	res.CancelAt(now)
	cb.rejected.Add(1)
	return wait
}

// Limit returns middleware that applies the bucket of one route class.
func (rl *RouteLimiter) Limit(class RouteClass) func(http.Handler) http.Handler {
	reason := "rate_limit_" + class.String()
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if wait := rl.Reserve(class, GetClientIP(r)); wait > 0 {
				RecordConnectionRejected(reason)
				w.Header().Set("Retry-After", strconv.Itoa(retryAfterSeconds(wait)))
				writeError(w, "rate limit exceeded for "+class.String()+" requests", http.StatusTooManyRequests)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func retryAfterSeconds(wait time.Duration) int {
	return max(1, int(math.Ceil(wait.Seconds())))
}

// Stats returns decisions per route class, keyed by class name.
func (rl *RouteLimiter) Stats() map[string]RateLimitStats {
	out := make(map[string]RateLimitStats, len(rl.classes))
	for c, cb := range rl.classes {
		out[RouteClass(c).String()] = RateLimitStats{
			Allowed:  cb.allowed.Load(),
			Rejected: cb.rejected.Load(),
		}
	}
	return out
}

func (rl *RouteLimiter) cleanupLoop() {
	ticker := time.NewTicker(rl.cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-rl.stopChan:
			return
		case <-ticker.C:
			rl.cleanup(time.Now().Add(-2 * rl.cleanupInterval))
		}
	}
}

// cleanup drops buckets idle since before cutoff.
func (rl *RouteLimiter) cleanup(cutoff time.Time) {
	limit := cutoff.UnixNano()
	for _, cb := range rl.classes {
		cb.clients.Range(func(key, value interface{}) bool {
			if value.(*clientBucket).lastSeen.Load() < limit {
				cb.clients.Delete(key)
			}
			return true
		})
	}
}

// clients counts tracked buckets in one class.
func (rl *RouteLimiter) clients(class RouteClass) int {
	n := 0
	rl.classes[class].clients.Range(func(_, _ interface{}) bool {
		n++
		return true
	})
	return n
}

// GetClientIP extracts the client IP from an HTTP request.
// Forwarded headers are trusted, so run behind a proxy that sets them.
func GetClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		return strings.TrimSpace(first)
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return strings.TrimSpace(xri)
	}

	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}

// IsAllowedOrigin checks an Origin header against an allow list. Entries may
// end in ":*" to accept any port. Localhost is always allowed.
func IsAllowedOrigin(origin string, allowed []string) bool {
	if origin == "" {
		return false
	}
	if strings.HasPrefix(origin, "http://localhost") || strings.HasPrefix(origin, "http://127.0.0.1") {
		return true
	}

	for _, a := range allowed {
		if a == origin || a == "*" {
			return true
		}
		if prefix, ok := strings.CutSuffix(a, ":*"); ok && strings.HasPrefix(origin, prefix+":") {
			return true
		}
	}
	return false
}
