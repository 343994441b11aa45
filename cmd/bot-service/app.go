package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"ccbot/internal/aiconfig"
	"ccbot/internal/bot"
	"ccbot/internal/config"
	"ccbot/internal/constants"
	"ccbot/internal/deduplication"
	"ccbot/internal/dispatch"
	"ccbot/internal/logger"
	"ccbot/internal/telegram"
	"ccbot/pkg/bootstrap"
	"ccbot/pkg/cel"
	"ccbot/pkg/circuitbreaker"
	"ccbot/pkg/health"
	"ccbot/pkg/logging"
	"ccbot/pkg/metrics"
	"ccbot/pkg/middleware"
	"ccbot/pkg/tracing"
)

type App struct {
	*bootstrap.Base
	dbConnector    *bootstrap.DatabaseConnector
	redis          *redis.Client
	configs        *aiconfig.Manager
	telegram       *telegram.Client
	worker         *bootstrap.WorkerStack
	dispatcher     *dispatch.Dispatcher
	bot            *bot.Bot
	tracerProvider *tracing.TracerProvider
	server         *http.Server
}

func NewApp(cfg *config.Config, log logger.Logger) *App {
	if sugaredLogger, ok := log.(*logger.SugaredLogger); ok {
		sugaredLogger.SetServiceName(constants.ServiceNameBot)
	}
	return &App{
		Base:        bootstrap.NewBase(cfg, log),
		dbConnector: bootstrap.NewDatabaseConnector(cfg, log),
	}
}

func (a *App) Initialize(ctx context.Context) error {
	metrics.RegisterBotMetrics()
	metrics.RegisterDispatchMetrics()
	metrics.RegisterBrokerMetrics()
	if a.Config.CircuitBreaker.Enabled {
		metrics.RegisterCircuitBreakerMetrics()
	}
	if a.Config.Dispatch.EmbedWorker {
		metrics.RegisterWorkerMetrics()
	}

	if err := a.initStore(ctx); err != nil {
		return fmt.Errorf("failed to initialize store: %w", err)
	}

	if err := a.InitBroker(constants.ServiceNameBot); err != nil {
		return fmt.Errorf("failed to initialize broker: %w", err)
	}

	tp, err := tracing.Init(a.Config.Tracing, constants.ServiceNameBot)
	if err != nil {
		return fmt.Errorf("failed to initialize tracing: %w", err)
	}
	a.tracerProvider = tp

	if err := a.initBot(); err != nil {
		return fmt.Errorf("failed to initialize bot: %w", err)
	}

	a.initHTTPServer()
	return nil
}

func (a *App) initStore(ctx context.Context) error {
	rdb, err := a.dbConnector.InitRedis(ctx)
	if err != nil {
		return err
	}
	a.redis = rdb
	a.configs = aiconfig.NewManager(a.dbConnector.NewStore(rdb), a.Logger)
	return nil
}

func (a *App) initBot() error {
	cfg := a.Config

	a.telegram = telegram.NewClient(cfg.Telegram.APIURL, cfg.Telegram.BotToken,
		&http.Client{Timeout: constants.DefaultHTTPTimeout}, a.Logger)

	httpCfg := dispatch.DefaultHTTPChannelConfig(cfg.Dispatch.WorkerURL)
	httpCfg.AttemptTimeout = cfg.Dispatch.HTTPTimeout
	httpCfg.MaxAttempts = cfg.Dispatch.Retry.MaxAttempts
	httpCfg.RetryInterval = cfg.Dispatch.Retry.Interval
	httpCfg.ConnectionAbortedDelay = cfg.Dispatch.Retry.ConnectionAbortedDelay

	var binding dispatch.Binding
	switch {
	case cfg.Dispatch.EmbedWorker:
		a.worker = bootstrap.NewWorkerStack(cfg, bootstrap.WorkerOptions{
			Configs: a.configs,
			Chat:    a.telegram,
		}, a.Logger)
		binding = &dispatch.HandlerBinding{Handler: a.worker.Router}
	case cfg.Dispatch.BindingURL != "":
		binding = &dispatch.URLBinding{URL: cfg.Dispatch.BindingURL, Client: &http.Client{}}
	}

	a.dispatcher = dispatch.New(dispatch.Options{
		Binding:        binding,
		BindingTimeout: cfg.Dispatch.BindingTimeout,
		Availability:   dispatch.NewAvailability(cfg.Dispatch.AvailabilityTTL, nil),
		HTTP:           httpCfg,
		Messenger:      a.telegram,
		Audit:          a.Producer,
		Logger:         a.Logger,
	})

	opts := bot.Options{
		Messenger:      a.telegram,
		Dispatcher:     a.dispatcher,
		Configs:        a.configs,
		Scan:           bot.NewScanState(cfg.Scan.Enabled, cfg.Scan.EnabledGroups),
		AdminIDs:       cfg.Telegram.AdminIDs,
		DebugGroups:    cfg.Scan.DebugGroups,
		DebugAllGroups: cfg.Scan.DebugAllGroups,
		CustomPrompt:   cfg.Scan.CustomPrompt,
		WorkerURL:      dispatch.NormalizeWorkerURL(cfg.Dispatch.WorkerURL),
		Logger:         a.Logger,
	}
	if cfg.Scan.Rule != "" {
		evaluator, err := cel.NewEvaluator()
		if err != nil {
			return err
		}
		if err := evaluator.ValidateRule(cfg.Scan.Rule); err != nil {
			return fmt.Errorf("invalid scan rule: %w", err)
		}
		opts.Rules = evaluator
		opts.Rule = cfg.Scan.Rule
	}

	a.bot = bot.New(opts)
	return nil
}

func (a *App) initHTTPServer() {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(tracing.GinMiddleware(constants.ServiceNameBot))
	router.Use(middleware.Recovery(a.Logger))
	router.Use(middleware.AccessLog(a.Logger))
	router.Use(middleware.RequestID())

	healthRegistry := health.NewCheckerRegistry()
	if a.redis != nil {
		healthRegistry.Register(health.NewRedisChecker(a.redis))
	}
	healthRegistry.Register(health.NewFuncChecker("direct_binding", a.checkBinding))

	router.GET("/health", health.Handler(healthRegistry))
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	var dedup bot.Deduplicator
	if a.Config.Deduplication.Enabled {
		dedup = a.newDeduplicator()
	}
	bot.NewWebhookHandler(a.bot, a.Config.Telegram.WebhookSecret, dedup, a.Logger).RegisterRoutes(router)

	a.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", a.Config.Server.Port),
		Handler:      router,
		ReadTimeout:  a.Config.Server.ReadTimeoutSeconds * time.Second,
		WriteTimeout: a.Config.Server.WriteTimeoutSeconds * time.Second,
	}
}

func (a *App) newDeduplicator() *deduplication.Service {
	var repo deduplication.Repository = deduplication.NewMemoryRepository()
	if a.redis != nil {
		repo = deduplication.NewRepository(a.redis)
		if a.Config.CircuitBreaker.Enabled {
			repo = deduplication.NewCircuitBreakerRepository(repo,
				circuitbreaker.NewWrapper(circuitbreaker.FromSettings("redis-dedup", a.Config.CircuitBreaker)))
		}
	}
	return deduplication.NewService(repo, a.Config.Database.Redis.KeyPrefix, a.Config.Deduplication.TTL, a.Logger)
}

// checkBinding reports a direct binding believed unreachable as degraded: the
// HTTP channel still carries requests.
func (a *App) checkBinding(context.Context) error {
	state, _ := a.dispatcher.Availability().Snapshot()
	if state == dispatch.StateUnavailable {
		return health.Degraded(errors.New("direct binding unavailable, using HTTP channel"))
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

	if a.Config.Telegram.SetupCommands {
		g.Go(func() error {
			if err := a.bot.RegisterCommands(gCtx); err != nil {
				a.Logger.WarnwCtx(gCtx, "Failed to register bot commands", "error", err)
			}
			return nil
		})
	}

	return g.Wait()
}

func (a *App) Shutdown(ctx context.Context) error {
	shutdownCtx := logging.WithServiceName(ctx, constants.ServiceNameBot)
	a.Logger.InfowCtx(shutdownCtx, "Shutting down bot service")

	additionalShutdown := func(ctx context.Context) []error {
		var errs []error

		// In-flight dispatches may still publish audit events and use Redis.
		if a.bot != nil {
			a.bot.Wait()
		}
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
