package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func TestOriginAllowed(t *testing.T) {
	allowed := []string{"https://dash.example.com/", "localhost:3000"}

	tests := []struct {
		origin string
		want   bool
	}{
		{"https://dash.example.com", true},
		{"https://dash.example.com/", true},
		{"http://localhost:3000", true},
		{"https://evil.example.com", false},
		{"", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, OriginAllowed(tt.origin, allowed), tt.origin)
	}
	assert.True(t, OriginAllowed("https://anything.test", []string{"*"}))
	assert.False(t, OriginAllowed("https://anything.test", nil))
}

func TestInputValidator(t *testing.T) {
	iv := NewInputValidator()

	assert.True(t, iv.ValidateServerName("web-01.prod_eu"))
	assert.False(t, iv.ValidateServerName(""))
	assert.False(t, iv.ValidateServerName("web 01"))
	assert.False(t, iv.ValidateServerName(strings.Repeat("a", 256)))

	assert.True(t, iv.ValidateToken("aaaaaaaaaa.bbbbbbbbbb.cccccccccc"))
	assert.False(t, iv.ValidateToken("short.a.b"))
	assert.False(t, iv.ValidateToken(strings.Repeat("a", 40)))
}

func newEngine(handlers ...gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(handlers...)
	r.GET("/ping", func(c *gin.Context) { c.String(http.StatusOK, "pong") })
	return r
}

func TestRateLimitMiddleware(t *testing.T) {
	r := newEngine(RateLimitMiddleware(NewRateLimiter(1, 2)))

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ping", nil))
		codes = append(codes, w.Code)
	}
	assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes)
}

func TestCORSMiddleware(t *testing.T) {
	r := newEngine(CORSMiddleware([]string{"https://dash.example.com"}), SecurityHeadersMiddleware())

	req := httptest.NewRequest(http.MethodOptions, "/ping", nil)
	req.Header.Set("Origin", "https://dash.example.com")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "https://dash.example.com", w.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set("Origin", "https://evil.example.com")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "DENY", w.Header().Get("X-Frame-Options"))
}

func TestRateLimiterDropsIdleClients(t *testing.T) {
	rl := NewRateLimiter(1, 1)
	assert.True(t, rl.Allow("10.0.0.1"))
	assert.False(t, rl.Allow("10.0.0.1"))
	assert.True(t, rl.Allow("10.0.0.2"))
	assert.Equal(t, 2, rl.Len())

	past := time.Now().Add(-2 * limiterIdleTTL)
	rl.mu.Lock()
	rl.clients["10.0.0.1"].lastSeen = past
	rl.lastSweep = past
	rl.mu.Unlock()

	rl.Allow("10.0.0.3")
	assert.Equal(t, 2, rl.Len(), "10.0.0.1 dropped, 10.0.0.3 added")
}
