package worker

import (
	"github.com/gin-gonic/gin"

	"ccbot/internal/logger"
	"ccbot/pkg/middleware"
	"ccbot/pkg/ratelimit"
	"ccbot/pkg/tracing"
)

type RouterOptions struct {
	Logger logger.Logger
	// RateLimit is optional.
	RateLimit *ratelimit.Store
	// TracingService enables otelgin spans under that service name.
	TracingService string
}

// NewRouter builds the worker engine: CORS on every response, then the task
// endpoint at "/".
func NewRouter(h *Handler, opts RouterOptions) *gin.Engine {
	log := opts.Logger
	if log == nil {
		log = logger.NopLogger()
	}

	router := gin.New()
	if opts.TracingService != "" {
		router.Use(tracing.GinMiddleware(opts.TracingService))
	}
	router.Use(middleware.Recovery(log))
	router.Use(middleware.AccessLog(log))
	router.Use(middleware.RequestID())
	router.Use(middleware.CORS())
	if opts.RateLimit != nil {
		router.Use(ratelimit.RateLimitMiddleware(opts.RateLimit))
	}

	h.RegisterRoutes(router)
	return router
}
