package routes

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"halmon/internal/config"
	"halmon/internal/controllers"
	"halmon/internal/metrics"
	"halmon/internal/middleware"
	"halmon/internal/services"
)

// RouterDeps are the services the HTTP API is built on. Hub, Auth and
// Metrics may be nil to leave their routes out.
type RouterDeps struct {
	Monitor *services.Monitor
	Store   *services.AlarmStore
	Hub     *services.AlertHub
	Auth    *services.AuthService
	Metrics *metrics.Metrics
}

// NewRouter builds the gin engine with middleware and every route
func NewRouter(cfg config.ServerConfig, deps RouterDeps) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(requestLogger())
	r.Use(middleware.SecurityHeadersMiddleware())
	r.Use(middleware.CORSMiddleware(cfg.AllowedOrigins))
	r.Use(middleware.RateLimitMiddleware(middleware.NewRateLimiter(cfg.RateLimit, cfg.RateBurst)))
	if deps.Metrics != nil {
		r.Use(deps.Metrics.Middleware())
		r.GET("/prometheus", gin.WrapH(deps.Metrics.Handler()))
	}

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "monitoring": deps.Monitor.Active()})
	})

	RegisterMonitorRoutes(r, controllers.NewMonitorController(deps.Monitor))
	RegisterAlarmRoutes(r, controllers.NewAlarmController(deps.Store))
	if deps.Hub != nil && deps.Auth != nil {
		wc := controllers.NewWebSocketController(deps.Hub, deps.Auth, deps.Monitor, middleware.NewSecurityLogger(), cfg.AllowedOrigins)
		RegisterAuthRoutes(r, wc)
	}
	return r
}
