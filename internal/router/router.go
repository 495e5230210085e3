package router

import (
	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/Nayana519/PulseGuard/internal/handler/prometheus"
	"github.com/Nayana519/PulseGuard/internal/middleware"
	"github.com/Nayana519/PulseGuard/pkg/logger"
)

type Handler interface {
	RegisterRoutes(*gin.RouterGroup)
}

type RouterConfig struct {
	Mode        string
	RateLimit   rate.Limit
	RateBurst   int
	MaxBodySize int64
}

type Router struct {
	engine   *gin.Engine
	health   Handler
	api      []Handler
	metrics  *prometheus.Handler
	logger   *logger.Logger
	limiter  *middleware.RateLimiter
	sizeConf middleware.SizeLimitConfig
}

// NewRouter builds the engine with the core middleware. health is mounted
// without identity; every api handler sits behind it.
func NewRouter(log *logger.Logger, metrics *prometheus.Handler, health Handler, config RouterConfig, api ...Handler) *Router {
	if config.Mode != "" {
		gin.SetMode(config.Mode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()
	r := &Router{
		engine:   engine,
		health:   health,
		api:      api,
		metrics:  metrics,
		logger:   log,
		sizeConf: middleware.DefaultSizeLimitConfig(),
	}
	if config.MaxBodySize > 0 {
		r.sizeConf.MaxBodySize = config.MaxBodySize
	}
	if config.RateLimit > 0 {
		r.limiter = middleware.NewRateLimiter(middleware.RateLimiterConfig{
			Rate:  config.RateLimit,
			Burst: config.RateBurst,
		})
	}

	engine.Use(
		middleware.RequestID(),
		middleware.Recovery(log),
		middleware.Logger(log),
		middleware.ErrorHandler(log),
	)
	if metrics != nil {
		engine.Use(metrics.Middleware())
	}
	return r
}

func (r *Router) Setup() *gin.Engine {
	if r.metrics != nil {
		r.engine.GET("/metrics", r.metrics.Handler())
	}

	api := r.engine.Group("/api/v1")
	api.Use(func(c *gin.Context) {
		c.Header("X-API-Version", "1.0")
		c.Next()
	})

	if r.health != nil {
		r.health.RegisterRoutes(api)
	}

	protected := api.Group("")
	if r.limiter != nil {
		protected.Use(r.limiter.RateLimit())
	}
	protected.Use(middleware.SizeLimit(r.sizeConf), middleware.Identity())
	for _, h := range r.api {
		h.RegisterRoutes(protected)
	}
	return r.engine
}

func (r *Router) Engine() *gin.Engine {
	return r.engine
}
