package server

import (
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/roach88/sqlrest/internal/metrics"
)

const (
	// RequestIDHeader carries the request id in both directions.
	RequestIDHeader = "X-Request-ID"

	loggerKey = "sqlrest.logger"
)

// requestContext assigns every request a UUIDv7 id (or keeps the caller's),
// attaches a request-scoped logger, and logs completion.
func requestContext(base *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(RequestIDHeader)
		if id == "" {
			if v7, err := uuid.NewV7(); err == nil {
				id = v7.String()
			} else {
				id = uuid.NewString()
			}
		}
		c.Header(RequestIDHeader, id)

		logger := base.With("request_id", id)
		c.Set(loggerKey, logger)

		start := time.Now()
		c.Next()

		level := slog.LevelInfo
		if c.Writer.Status() >= http.StatusInternalServerError {
			level = slog.LevelError
		}
		logger.Log(c.Request.Context(), level, "request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"elapsed", time.Since(start),
		)
	}
}

// loggerFrom returns the request-scoped logger.
func loggerFrom(c *gin.Context) *slog.Logger {
	if v, ok := c.Get(loggerKey); ok {
		if l, ok := v.(*slog.Logger); ok {
			return l
		}
	}
	return slog.Default()
}

// instrument records request counts and latency by route template.
func instrument(m *metrics.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		m.ObserveRequest(c.Request.Method, c.FullPath(), c.Writer.Status(), time.Since(start))
	}
}

// limiterIdleTTL is how long a client's bucket is kept after its last
// request.
const limiterIdleTTL = 10 * time.Minute

// ipLimiter keeps one token bucket per client IP. Buckets idle for longer
// than limiterIdleTTL are swept at most once per TTL, so the map holds only
// the clients seen in the last two TTLs.
type ipLimiter struct {
	mu        sync.Mutex
	limiters  map[string]*limiterEntry
	rate      rate.Limit
	burst     int
	now       func() time.Time
	lastSweep time.Time
}

type limiterEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

func newIPLimiter(perSecond float64, burst int) *ipLimiter {
	if burst <= 0 {
		burst = 1
	}
	return &ipLimiter{
		limiters:  make(map[string]*limiterEntry),
		rate:      rate.Limit(perSecond),
		burst:     burst,
		now:       time.Now,
		lastSweep: time.Now(),
	}
}

// get returns the limiter for ip, creating one if needed.
func (l *ipLimiter) get(ip string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if now.Sub(l.lastSweep) >= limiterIdleTTL {
		l.sweep(now)
	}

	entry, ok := l.limiters[ip]
	if !ok {
		entry = &limiterEntry{limiter: rate.NewLimiter(l.rate, l.burst)}
		l.limiters[ip] = entry
	}
	entry.lastSeen = now
	return entry.limiter
}

// sweep drops buckets idle for longer than limiterIdleTTL. Callers hold mu.
func (l *ipLimiter) sweep(now time.Time) {
	for ip, entry := range l.limiters {
		if now.Sub(entry.lastSeen) > limiterIdleTTL {
			delete(l.limiters, ip)
		}
	}
	l.lastSweep = now
}

// rateLimit rejects requests over the per-IP budget with 429.
func rateLimit(l *ipLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		ip := c.ClientIP()
		if ip == "" {
			ip = c.RemoteIP()
		}

		if !l.get(ip).Allow() {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, errorBody("RATE_LIMITED", "rate limit exceeded"))
			return
		}
		c.Next()
	}
}
