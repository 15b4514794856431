package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"propertycare-backend/internal/documents"
	"propertycare-backend/internal/maintenance"
	"propertycare-backend/internal/services/health"
	"propertycare-backend/internal/shared/config"
	"propertycare-backend/internal/shared/metrics"
	"propertycare-backend/internal/shared/server/middleware"
	"propertycare-backend/internal/shared/server/respond"
)

const (
	healthPath  = "/healthz"
	metricsPath = "/metrics"
)

// RouterDeps holds the handlers and collaborators the router mounts.
type RouterDeps struct {
	Config             config.Config
	Verifier           middleware.TokenVerifier
	Health             *health.Service
	DocumentHandler    *documents.Handler
	MaintenanceHandler *maintenance.Handler
	RateLimiter        *middleware.RateLimiter
}

// NewRouter constructs the Gin engine with middleware and routes registered.
func NewRouter(deps RouterDeps) *gin.Engine {
	if deps.Config.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()

	r.Use(
		middleware.RequestID(),
		middleware.Logging(healthPath, metricsPath),
		middleware.Recovery(),
		middleware.CORS(deps.Config.CORSAllowOrigin),
		middleware.Auth(deps.Verifier, healthPath, metricsPath),
		middleware.RateLimit(middleware.RateLimitRule{
			Rate:  deps.Config.RateLimitRPS,
			Burst: deps.Config.RateLimitBurst,
		}, deps.RateLimiter),
	)

	r.GET(healthPath, func(c *gin.Context) {
		if deps.Health == nil {
			respond.OK(c, gin.H{"ok": true})
			return
		}
		status, ok := deps.Health.Status(c.Request.Context())
		if !ok {
			respond.JSON(c, http.StatusServiceUnavailable, status)
			return
		}
		respond.OK(c, status)
	})
	r.GET(metricsPath, metrics.Handler())

	api := r.Group("/api")
	if deps.DocumentHandler != nil {
		deps.DocumentHandler.RegisterRoutes(api)
	}
	if deps.MaintenanceHandler != nil {
		deps.MaintenanceHandler.RegisterRoutes(api)
	}

	r.NoRoute(func(c *gin.Context) {
		respond.Error(c, http.StatusNotFound, "not_found", "route not found", nil)
	})

	return r
}

// Addr normalizes the listen address.
func Addr(port string) string {
	if port == "" {
		return ":8080"
	}
	if port[0] == ':' {
		return port
	}
	return ":" + port
}
