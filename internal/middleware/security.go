package middleware

import (
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"halmon/internal/logger"
)

const limiterIdleTTL = 10 * time.Minute

type ipLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter keeps one token bucket per client IP. Buckets idle for
// limiterIdleTTL are dropped on the next sweep.
type RateLimiter struct {
	mu        sync.Mutex
	clients   map[string]*ipLimiter
	limit     rate.Limit
	burst     int
	lastSweep time.Time
}

// NewRateLimiter allows perSecond requests per IP with the given burst
func NewRateLimiter(perSecond float64, burst int) *RateLimiter {
	if perSecond <= 0 {
		perSecond = 100
	}
	if burst <= 0 {
		burst = 200
	}
	return &RateLimiter{
		clients:   make(map[string]*ipLimiter),
		limit:     rate.Limit(perSecond),
		burst:     burst,
		lastSweep: time.Now(),
	}
}

// Allow spends one token from the bucket of ip
func (rl *RateLimiter) Allow(ip string) bool {
	now := time.Now()

	rl.mu.Lock()
	defer rl.mu.Unlock()

	if now.Sub(rl.lastSweep) > limiterIdleTTL {
		for key, c := range rl.clients {
			if now.Sub(c.lastSeen) > limiterIdleTTL {
				delete(rl.clients, key)
			}
		}
		rl.lastSweep = now
	}

	c, ok := rl.clients[ip]
	if !ok {
		c = &ipLimiter{limiter: rate.NewLimiter(rl.limit, rl.burst)}
		rl.clients[ip] = c
	}
	c.lastSeen = now
	return c.limiter.AllowN(now, 1)
}

// Len returns the number of tracked clients
func (rl *RateLimiter) Len() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return len(rl.clients)
}

// RateLimitMiddleware enforces rate limiting per IP
func RateLimitMiddleware(limiter *RateLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		ip := c.ClientIP()
		if !limiter.Allow(ip) {
			logger.Warnf("[SECURITY] rate limit exceeded for IP: %s", ip)
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error":       "rate limit exceeded",
				"retry_after": 1,
			})
			return
		}
		c.Next()
	}
}

// SecurityHeadersMiddleware adds security headers to all responses
func SecurityHeadersMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("X-Content-Type-Options", "nosniff")
		c.Header("X-Frame-Options", "DENY")
		c.Header("Content-Security-Policy", "default-src 'none'")
		c.Header("Referrer-Policy", "no-referrer")
		c.Header("Cache-Control", "no-store")
		c.Next()
	}
}

// OriginAllowed reports whether origin matches one of allowed.
// Entries are full origins, bare hosts, or "*".
func OriginAllowed(origin string, allowed []string) bool {
	origin = strings.TrimRight(origin, "/")
	if origin == "" {
		return false
	}
	for _, o := range allowed {
		o = strings.TrimRight(strings.TrimSpace(o), "/")
		if o == "" {
			continue
		}
		if o == "*" || o == origin {
			return true
		}
		if !strings.Contains(o, "://") {
			if parsed, err := url.Parse(origin); err == nil && parsed.Host == o {
				return true
			}
		}
	}
	return false
}

// CORSMiddleware answers preflight requests and sets CORS headers for allowed origins
func CORSMiddleware(allowedOrigins []string) gin.HandlerFunc {
	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")
		if OriginAllowed(origin, allowedOrigins) {
			c.Header("Vary", "Origin")
			c.Header("Access-Control-Allow-Origin", strings.TrimRight(origin, "/"))
			c.Header("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
			c.Header("Access-Control-Allow-Headers", "Content-Type, Authorization")
			c.Header("Access-Control-Max-Age", "86400")
		}

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

// SecurityLogger records authentication events with a fixed "security" field
type SecurityLogger struct{}

func NewSecurityLogger() *SecurityLogger {
	return &SecurityLogger{}
}

func (sl *SecurityLogger) entry(ip string) *logrus.Entry {
	return logger.WithFields(logrus.Fields{"component": "security", "ip": ip})
}

// LogFailedAuth logs failed authentication attempts
func (sl *SecurityLogger) LogFailedAuth(ip string, reason string) {
	sl.entry(ip).Warnf("failed authentication: %s", reason)
}

// LogTokenGenerated logs successful token generation
func (sl *SecurityLogger) LogTokenGenerated(ip string, serverName string) {
	sl.entry(ip).Infof("token generated for server %s", serverName)
}

// LogWebSocketConnected logs successful websocket connections
func (sl *SecurityLogger) LogWebSocketConnected(ip string, serverName string) {
	sl.entry(ip).Infof("websocket connected for server %s", serverName)
}

// LogWebSocketDisconnected logs websocket disconnections
func (sl *SecurityLogger) LogWebSocketDisconnected(ip string, clientID string) {
	sl.entry(ip).Infof("websocket disconnected: %s", clientID)
}

// InputValidator validates and sanitizes user input
type InputValidator struct{}

func NewInputValidator() *InputValidator {
	return &InputValidator{}
}

// ValidateToken checks that token looks like a JWT (header.payload.signature)
func (iv *InputValidator) ValidateToken(token string) bool {
	if len(token) < 20 || len(token) > 4096 {
		return false
	}
	return strings.Count(token, ".") == 2
}

// ValidateServerName allows 1-255 characters of letters, digits, '-', '_' and '.'
func (iv *InputValidator) ValidateServerName(name string) bool {
	if len(name) < 1 || len(name) > 255 {
		return false
	}
	for _, c := range name {
		if !((c >= 'a' && c <= 'z') ||
			(c >= 'A' && c <= 'Z') ||
			(c >= '0' && c <= '9') ||
			c == '-' || c == '_' || c == '.') {
			return false
		}
	}
	return true
}
