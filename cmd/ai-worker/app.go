package main

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"ccbot/internal/aiconfig"
	"ccbot/internal/config"
	"ccbot/internal/constants"
	"ccbot/internal/logger"
	"ccbot/internal/telegram"
	"ccbot/pkg/bootstrap"
	"ccbot/pkg/health"
	"ccbot/pkg/logging"
	"ccbot/pkg/metrics"
	"ccbot/pkg/tracing"
)

// App serves the worker endpoint at "/" next to /health and /metrics. The
// worker reads the same ai:config document the bot edits, so both must point
// at the same Redis.
type App struct {
	*bootstrap.Base
	dbConnector    *bootstrap.DatabaseConnector
	redis          *redis.Client
	worker         *bootstrap.WorkerStack
	tracerProvider *tracing.TracerProvider
	server         *http.Server
}

func NewApp(cfg *config.Config, log logger.Logger) *App {
	if sugaredLogger, ok := log.(*logger.SugaredLogger); ok {
		sugaredLogger.SetServiceName(constants.ServiceNameAIWorker)
	}
	return &App{
		Base:        bootstrap.NewBase(cfg, log),
		dbConnector: bootstrap.NewDatabaseConnector(cfg, log),
	}
}

func (a *App) Initialize(ctx context.Context) error {
	metrics.RegisterWorkerMetrics()
	if a.Config.Worker.RateLimit.Enabled {
		metrics.RegisterRateLimitMetrics()
	}
	if a.Config.CircuitBreaker.Enabled {
		metrics.RegisterCircuitBreakerMetrics()
	}

	rdb, err := a.dbConnector.InitRedis(ctx)
	if err != nil {
		return fmt.Errorf("failed to initialize store: %w", err)
	}
	a.redis = rdb
	configs := aiconfig.NewManager(a.dbConnector.NewStore(rdb), a.Logger)

	tp, err := tracing.Init(a.Config.Tracing, constants.ServiceNameAIWorker)
	if err != nil {
		return fmt.Errorf("failed to initialize tracing: %w", err)
	}
	a.tracerProvider = tp

	chat := telegram.NewClient(a.Config.Telegram.APIURL, a.Config.Telegram.BotToken,
		&http.Client{Timeout: constants.DefaultHTTPTimeout}, a.Logger)

	gin.SetMode(gin.ReleaseMode)
	a.worker = bootstrap.NewWorkerStack(a.Config, bootstrap.WorkerOptions{
		Configs:     configs,
		Chat:        chat,
		ServiceName: constants.ServiceNameAIWorker,
		RateLimit:   true,
	}, a.Logger)

	healthRegistry := health.NewCheckerRegistry()
	if a.redis != nil {
		healthRegistry.Register(health.NewRedisChecker(a.redis))
	}
	a.worker.Router.GET("/health", health.Handler(healthRegistry))
	a.worker.Router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	a.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", a.Config.Server.Port),
		Handler:      a.worker.Router,
		ReadTimeout:  a.Config.Server.ReadTimeoutSeconds * time.Second,
		WriteTimeout: a.Config.Server.WriteTimeoutSeconds * time.Second,
	}
	return nil
}

func (a *App) Run(ctx context.Context) error {
	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		a.Logger.InfowCtx(ctx, "HTTP server starting", "port", a.Config.Server.Port)
		if err := a.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("HTTP server error: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gCtx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), constants.ShutdownTimeout)
		defer cancel()
		return a.server.Shutdown(shutdownCtx)
	})

	if a.worker.RateLimit != nil {
		g.Go(func() error {
			a.worker.RateLimit.RunCleanup(gCtx)
			return nil
		})
	}

	return g.Wait()
}

func (a *App) Shutdown(ctx context.Context) error {
	shutdownCtx := logging.WithServiceName(ctx, constants.ServiceNameAIWorker)
	a.Logger.InfowCtx(shutdownCtx, "Shutting down AI worker")

	additionalShutdown := func(ctx context.Context) []error {
		var errs []error

		if a.worker != nil {
			a.worker.Service.Wait()
		}

		if a.tracerProvider != nil {
			if err := a.tracerProvider.Shutdown(ctx); err != nil {
				errs = append(errs, fmt.Errorf("tracer provider shutdown error: %w", err))
			}
		}

		errs = append(errs, a.dbConnector.ShutdownDatabases(a.redis)...)

		return errs
	}

	return a.Base.Shutdown(ctx, additionalShutdown)
}
