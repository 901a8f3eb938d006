package ratelimit

import (
	"context"
	"net/http"
	"strconv"
	"sync"
	"time"
)

// Config defines per-route rate limit settings. A non-positive
// RequestsPerSecond disables limiting for the route.
type Config struct {
	RequestsPerSecond float64
	Burst             int
}

// Limiter implements token bucket rate limiting per route.
type Limiter struct {
	mu      sync.RWMutex
	buckets map[string]*tokenBucket
	config  map[string]Config
}

// New creates a limiter with the provided configuration.
func New(config map[string]Config) *Limiter {
	l := &Limiter{
		buckets: make(map[string]*tokenBucket),
		config:  make(map[string]Config),
	}
	l.Configure(config)
	return l
}

// Configure replaces the limiter's per-route limits. Existing buckets
// for still-configured routes keep their current fill so a reload does
// not hand out a fresh burst.
func (l *Limiter) Configure(config map[string]Config) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.config = make(map[string]Config, len(config))
	newBuckets := make(map[string]*tokenBucket, len(config))
	for routeID, cfg := range config {
		if cfg.RequestsPerSecond <= 0 {
			// Unlimited route, no bucket
			continue
		}
		l.config[routeID] = cfg

		if bucket, exists := l.buckets[routeID]; exists {
			bucket.configure(cfg.RequestsPerSecond, cfg.Burst)
			newBuckets[routeID] = bucket
		} else {
			newBuckets[routeID] = newTokenBucket(cfg.RequestsPerSecond, cfg.Burst)
		}
	}
	l.buckets = newBuckets
}

// Allow checks if a request for the given route should be allowed.
// Returns true if allowed, false if rate limit exceeded.
func (l *Limiter) Allow(routeID string) bool {
	l.mu.RLock()
	bucket, exists := l.buckets[routeID]
	l.mu.RUnlock()

	if !exists {
		// No rate limit configured for this route - allow
		return true
	}

	return bucket.take()
}

// AllowContext checks if a request is allowed, with context cancellation support.
func (l *Limiter) AllowContext(ctx context.Context, routeID string) bool {
	// Check if context is already cancelled
	select {
	case <-ctx.Done():
		return false
	default:
	}

	return l.Allow(routeID)
}

// Stats returns current rate limit statistics for all routes.
func (l *Limiter) Stats() map[string]Stats {
	l.mu.RLock()
	defer l.mu.RUnlock()

	stats := make(map[string]Stats, len(l.buckets))
	for routeID, bucket := range l.buckets {
		stats[routeID] = bucket.stats()
	}
	return stats
}

// Stats exposes current state of a rate limit bucket.
type Stats struct {
	Limit          float64 `json:"limit"`
	Burst          int     `json:"burst"`
	Available      float64 `json:"available"`
	LastRefillTime string  `json:"lastRefillTime"`
}

// tokenBucket implements a token bucket algorithm for rate limiting.
type tokenBucket struct {
	mu         sync.Mutex
	rate       float64   // tokens per second
	capacity   float64   // maximum burst size
	tokens     float64   // current available tokens
	lastRefill time.Time // last time tokens were refilled
}

// newTokenBucket creates a token bucket with the specified rate and capacity.
func newTokenBucket(rps float64, burst int) *tokenBucket {
	if burst <= 0 {
		burst = 1
	}

	return &tokenBucket{
		rate:       rps,
		capacity:   float64(burst),
		tokens:     float64(burst), // Start with full bucket
		lastRefill: time.Now(),
	}
}

// configure updates the bucket's rate and capacity.
func (tb *tokenBucket) configure(rps float64, burst int) {
	tb.mu.Lock()
	defer tb.mu.Unlock()

	if burst <= 0 {
		burst = 1
	}

	oldCapacity := tb.capacity
	tb.rate = rps
	tb.capacity = float64(burst)

	// If new capacity is higher, grant more tokens proportionally
	if tb.capacity > oldCapacity {
		tb.tokens += tb.capacity - oldCapacity
	}

	// Cap tokens at new capacity
	if tb.tokens > tb.capacity {
		tb.tokens = tb.capacity
	}
}

// take attempts to consume one token from the bucket.
// Returns true if a token was available, false otherwise.
func (tb *tokenBucket) take() bool {
	tb.mu.Lock()
	defer tb.mu.Unlock()

	tb.refill()

	if tb.tokens >= 1.0 {
		tb.tokens -= 1.0
		return true
	}

	return false
}

// refill adds tokens to the bucket based on elapsed time.
func (tb *tokenBucket) refill() {
	now := time.Now()
	elapsed := now.Sub(tb.lastRefill).Seconds()

	tb.tokens += elapsed * tb.rate

	// Cap at capacity
	if tb.tokens > tb.capacity {
		tb.tokens = tb.capacity
	}

	tb.lastRefill = now
}

// stats returns current statistics for this bucket.
func (tb *tokenBucket) stats() Stats {
	tb.mu.Lock()
	defer tb.mu.Unlock()

	tb.refill()

	return Stats{
		Limit:          tb.rate,
		Burst:          int(tb.capacity),
		Available:      tb.tokens,
		LastRefillTime: tb.lastRefill.Format(time.RFC3339),
	}
}

// WriteHeaders adds rate limit status headers to the response.
func WriteHeaders(w http.ResponseWriter, limit, remaining int, resetTime time.Time) {
	w.Header().Set("X-RateLimit-Limit", strconv.Itoa(limit))
	w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(remaining))
	w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(resetTime.Unix(), 10))
}
