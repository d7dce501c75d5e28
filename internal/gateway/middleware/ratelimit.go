package middleware

import (
	"net"
	"net/http"
	"sync"
	"time"

	"burlymcp/internal/gateway/handlers"
	"burlymcp/internal/mcp"
	"burlymcp/pkg/envelope"
)

// RateLimiterConfig tunes the optional per-remote-address limiter.
// RequestsPerMinute defaults to 60; Enabled=false turns the middleware
// into a pass-through.
type RateLimiterConfig struct {
	RequestsPerMinute int
	Enabled           bool
	CleanupInterval   time.Duration
}

// RateLimiter tracks one sliding window per remote address. Exceeded
// requests on /mcp still answer 200 with an error envelope; other
// endpoints get a plain 429.
type RateLimiter struct {
	cfg     RateLimiterConfig
	mu      sync.Mutex
	windows map[string]*clientWindow
	stop    chan struct{}
}

type clientWindow struct {
	limiter  *mcp.SlidingWindow
	lastSeen time.Time
}

// NewRateLimiter builds a limiter and starts its idle-client cleanup
// loop when enabled.
func NewRateLimiter(cfg RateLimiterConfig) *RateLimiter {
	if cfg.RequestsPerMinute <= 0 {
		cfg.RequestsPerMinute = 60
	}
	if cfg.CleanupInterval <= 0 {
		cfg.CleanupInterval = 5 * time.Minute
	}
	rl := &RateLimiter{
		cfg:     cfg,
		windows: make(map[string]*clientWindow),
		stop:    make(chan struct{}),
	}
	if cfg.Enabled {
		go rl.cleanupLoop()
	}
	return rl
}

// RateLimit wraps next with the per-remote-address check.
func (rl *RateLimiter) RateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !rl.cfg.Enabled {
			next.ServeHTTP(w, r)
			return
		}
		if rl.allow(remoteHost(r)) {
			next.ServeHTTP(w, r)
			return
		}
		if r.URL.Path == "/mcp" {
			handlers.WriteEnvelope(w, envelope.Fail("Rate limit exceeded", "", nil, envelope.Metrics{ExitCode: 1}))
			return
		}
		handlers.WriteJSON(w, http.StatusTooManyRequests, map[string]string{"error": "rate limit exceeded"})
	})
}

// Stop ends the cleanup loop.
func (rl *RateLimiter) Stop() {
	close(rl.stop)
}

func (rl *RateLimiter) allow(addr string) bool {
	rl.mu.Lock()
	cw, ok := rl.windows[addr]
	if !ok {
		cw = &clientWindow{limiter: mcp.NewSlidingWindow(rl.cfg.RequestsPerMinute, time.Minute)}
		rl.windows[addr] = cw
	}
	cw.lastSeen = time.Now()
	rl.mu.Unlock()

	return cw.limiter.Allow()
}

func (rl *RateLimiter) cleanupLoop() {
	ticker := time.NewTicker(rl.cfg.CleanupInterval)
	defer ticker.Stop()
	for {
		select {
		case <-rl.stop:
			return
		case <-ticker.C:
			cutoff := time.Now().Add(-rl.cfg.CleanupInterval)
			rl.mu.Lock()
			for addr, cw := range rl.windows {
				if cw.lastSeen.Before(cutoff) {
					delete(rl.windows, addr)
				}
			}
			rl.mu.Unlock()
		}
	}
}

// remoteHost strips the port from RemoteAddr so one client is one
// window regardless of its ephemeral ports.
func remoteHost(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
