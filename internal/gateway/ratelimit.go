// Package gateway - ratelimit.go throttles bursts per client IP.
//
// DESIGN: A token bucket per IP (golang.org/x/time/rate) sits in front of
// identity resolution. It protects the quota store and the provider from a
// single address hammering the endpoint; it is not a quota. Buckets idle
// for a cleanup interval are dropped. When the bucket map is full, an idle
// bucket is evicted, and if none can be the request is allowed.
package gateway

import (
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"github.com/munilab/ai-gateway/internal/config"
	"github.com/munilab/ai-gateway/internal/monitoring"
)

type ipBucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// ipRateLimiter holds one limiter per client IP.
type ipRateLimiter struct {
	mu       sync.Mutex
	buckets  map[string]*ipBucket
	limit    rate.Limit
	burst    int
	disabled bool
	stopCh   chan struct{}
	stopOnce sync.Once
}

// newIPRateLimiter creates a limiter. perSecond <= 0 disables it.
func newIPRateLimiter(perSecond float64, burst int) *ipRateLimiter {
	rl := &ipRateLimiter{
		buckets: make(map[string]*ipBucket),
		stopCh:  make(chan struct{}),
	}
	if perSecond <= 0 {
		rl.disabled = true
		return rl
	}
	if burst < 1 {
		burst = 1
	}
	rl.limit = rate.Limit(perSecond)
	rl.burst = burst
	go rl.cleanupLoop()
	return rl
}

// Allow reports whether ip may make another request now.
func (rl *ipRateLimiter) Allow(ip string) bool {
	if rl.disabled {
		return true
	}
	now := time.Now()

	rl.mu.Lock()
	b, ok := rl.buckets[ip]
	if !ok {
		if len(rl.buckets) >= config.MaxRateLimitBuckets && !rl.evictOneLocked(now) {
			rl.mu.Unlock()
			log.Warn().Int("buckets", len(rl.buckets)).Msg("ip rate limiter full, allowing request")
			return true
		}
		b = &ipBucket{limiter: rate.NewLimiter(rl.limit, rl.burst)}
		rl.buckets[ip] = b
	}
	b.lastSeen = now
	rl.mu.Unlock()

	return b.limiter.Allow()
}

// evictOneLocked drops one bucket idle longer than the cleanup interval.
func (rl *ipRateLimiter) evictOneLocked(now time.Time) bool {
	for ip, b := range rl.buckets {
		if now.Sub(b.lastSeen) > config.DefaultCleanupInterval {
			delete(rl.buckets, ip)
			return true
		}
	}
	return false
}

func (rl *ipRateLimiter) cleanupLoop() {
	ticker := time.NewTicker(config.DefaultCleanupInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			rl.cleanup(time.Now())
		case <-rl.stopCh:
			return
		}
	}
}

func (rl *ipRateLimiter) cleanup(now time.Time) {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	for ip, b := range rl.buckets {
		if now.Sub(b.lastSeen) > config.DefaultCleanupInterval {
			delete(rl.buckets, ip)
		}
	}
}

// Stop ends the cleanup goroutine.
func (rl *ipRateLimiter) Stop() {
	rl.stopOnce.Do(func() { close(rl.stopCh) })
}

// ipLimit rejects requests from throttled IPs with 429.
func (g *Gateway) ipLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := clientIP(r)
		if g.ipLimiter.Allow(ip) {
			next.ServeHTTP(w, r)
			return
		}

		g.metrics.RecordIPThrottled()
		g.metrics.RecordRequest(false)
		e := NewError(KindTooManyRequests, nil)
		w.Header().Set("Retry-After", "1")
		writeJSON(w, e.Status(), ErrorResponse{Error: e.Message()})

		g.tracker.RecordRequest(&monitoring.RequestEvent{
			RequestID:  getRequestID(r),
			Timestamp:  time.Now().UTC(),
			Endpoint:   EndpointName,
			ClientIP:   ip,
			StatusCode: e.Status(),
			Outcome:    monitoring.OutcomeIPThrottled,
			ErrorKind:  string(e.Kind),
		})
	})
}
