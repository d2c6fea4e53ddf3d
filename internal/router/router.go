package router

import (
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/patientiq/dashboard-api/internal/handler/health"
	"github.com/patientiq/dashboard-api/internal/handler/prometheus"
	"github.com/patientiq/dashboard-api/internal/middleware"
	"github.com/patientiq/dashboard-api/pkg/security"
)

const streamPath = "/api/alerts/stream"

type Handler interface {
	RegisterRoutes(*gin.RouterGroup)
}

type Router struct {
	engine  *gin.Engine
	health  *health.Handler
	metrics *prometheus.Handler
	api     []Handler
	// patientScoped handlers serve patient records and are access audited.
	patientScoped []Handler
}

type RouterConfig struct {
	RateLimit      rate.Limit
	RateBurst      int
	AllowedOrigins []string
	APIKey         security.KeyVerifier
	Timeout        time.Duration
	MaxBodyBytes   int64
	Debug          bool
}

// Handlers groups the route registrars. PatientScoped ones get the access
// audit middleware.
type Handlers struct {
	Health        *health.Handler
	Metrics       *prometheus.Handler
	PatientScoped []Handler
	API           []Handler
}

func NewRouter(h Handlers, config RouterConfig) *Router {
	if config.Debug {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}
	middleware.UseJSONFieldNames()

	engine := gin.New()
	r := &Router{
		engine:        engine,
		health:        h.Health,
		metrics:       h.Metrics,
		api:           h.API,
		patientScoped: h.PatientScoped,
	}

	engine.Use(
		middleware.Recovery(),
		middleware.RequestID(),
		middleware.Logger(),
	)
	if r.metrics != nil {
		engine.Use(r.metrics.Middleware())
	}
	engine.Use(
		middleware.CORS(config.AllowedOrigins),
		middleware.SecurityHeaders(middleware.DefaultSecurityConfig()),
		middleware.NewRateLimiter(middleware.RateLimiterConfig{
			Rate:  config.RateLimit,
			Burst: config.RateBurst,
		}).RateLimit(),
		middleware.APIKey(middleware.APIKeyConfig{
			Verifier:    config.APIKey,
			ExemptPaths: []string{"/health", "/health/ready", "/metrics"},
		}),
		middleware.SizeLimit(config.MaxBodyBytes),
		middleware.Timeout(middleware.TimeoutConfig{
			Duration:  config.Timeout,
			SkipPaths: []string{streamPath},
		}),
	)

	return r
}

func (r *Router) Setup() {
	if r.health != nil {
		r.health.RegisterRoutes(r.engine)
	}
	if r.metrics != nil {
		r.engine.GET("/metrics", r.metrics.Handler())
	}

	api := r.engine.Group("/api")
	for _, h := range r.api {
		h.RegisterRoutes(api)
	}

	audited := r.engine.Group("/api", middleware.AuditAccess("patient"))
	for _, h := range r.patientScoped {
		h.RegisterRoutes(audited)
	}
}

func (r *Router) Engine() *gin.Engine {
	return r.engine
}
