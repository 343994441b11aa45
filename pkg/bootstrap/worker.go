package bootstrap

import (
	"github.com/gin-gonic/gin"

	"ccbot/internal/config"
	"ccbot/internal/llm"
	"ccbot/internal/logger"
	"ccbot/internal/worker"
	"ccbot/pkg/circuitbreaker"
	"ccbot/pkg/ratelimit"
)

// WorkerStack is the AI worker wired to its provider client.
type WorkerStack struct {
	Service   *worker.Service
	Router    *gin.Engine
	RateLimit *ratelimit.Store
}

type WorkerOptions struct {
	Configs worker.ConfigSource
	Chat    worker.Chat
	// ServiceName labels otelgin spans; empty disables them.
	ServiceName string
	// RateLimit applies the per-client limiter when the config enables it.
	RateLimit bool
}

func NewWorkerStack(cfg *config.Config, opts WorkerOptions, log logger.Logger) *WorkerStack {
	var breaker *circuitbreaker.Wrapper
	if cfg.CircuitBreaker.Enabled {
		breaker = circuitbreaker.NewWrapper(circuitbreaker.FromSettings("llm", cfg.CircuitBreaker))
	}

	completer := llm.NewClient(llm.Options{
		Timeout: cfg.Worker.ProviderTimeout,
		Breaker: breaker,
		Logger:  log,
	})

	svc := worker.NewService(worker.Options{
		Completer:  completer,
		Configs:    opts.Configs,
		Chat:       opts.Chat,
		AutoDelete: cfg.Scan.AutoDelete,
		Logger:     log,
	})

	stack := &WorkerStack{Service: svc}
	if opts.RateLimit && cfg.Worker.RateLimit.Enabled {
		stack.RateLimit = ratelimit.NewStore(ratelimit.FromSettings(cfg.Worker.RateLimit))
	}

	stack.Router = worker.NewRouter(worker.NewHandler(svc, log), worker.RouterOptions{
		Logger:         log,
		RateLimit:      stack.RateLimit,
		TracingService: opts.ServiceName,
	})
	return stack
}
