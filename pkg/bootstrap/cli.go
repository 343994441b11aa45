package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"ccbot/internal/config"
	"ccbot/internal/constants"
	"ccbot/internal/logger"
	"ccbot/pkg/logging"
)

// Service is the lifecycle each binary's App implements.
type Service interface {
	Initialize(ctx context.Context) error
	Run(ctx context.Context) error
	Shutdown(ctx context.Context) error
}

type ServiceCommand struct {
	Name  string
	Short string
	Long  string
	New   func(cfg *config.Config, log logger.Logger) Service
}

// NewRootCommand builds the CLI shared by the bot and the worker: serve
// (also the default) and check-config. The config path comes from --config
// or CONFIG_FILE.
func NewRootCommand(sc ServiceCommand) *cobra.Command {
	var configFile string

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Start " + sc.Name,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runService(cmd.Context(), sc, configFile)
		},
	}

	checkCmd := &cobra.Command{
		Use:   "check-config",
		Short: "Load and validate the config file, then exit",
		RunE: func(cmd *cobra.Command, _ []string) error {
			earlyLog := logging.NewEarlyLog(sc.Name)
			cfg, err := loadConfig(earlyLog, configFile)
			if err != nil {
				return err
			}
			earlyLog.Info("Config OK: worker_url=%q binding_url=%q embed_worker=%t broker=%q redis=%t",
				cfg.Dispatch.WorkerURL, cfg.Dispatch.BindingURL, cfg.Dispatch.EmbedWorker,
				cfg.Broker.Type, cfg.Database.Redis.Host != "")
			return nil
		},
	}

	root := &cobra.Command{
		Use:           sc.Name,
		Short:         sc.Short,
		Long:          sc.Long,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          serveCmd.RunE,
	}
	root.PersistentFlags().StringVar(&configFile, "config", "", "Path to config file (required)")
	root.AddCommand(serveCmd, checkCmd)
	return root
}

// Execute runs the root command and exits non-zero on failure.
func Execute(sc ServiceCommand) {
	if err := NewRootCommand(sc).ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}

func loadConfig(earlyLog *logging.EarlyLog, configFile string) (*config.Config, error) {
	if configFile == "" {
		configFile = os.Getenv("CONFIG_FILE")
	}
	if configFile == "" {
		earlyLog.Error("Config file is required. Use --config flag or CONFIG_FILE environment variable")
		return nil, errors.New("config file is required")
	}

	cfg, err := config.Load(configFile)
	if err != nil {
		earlyLog.Error("Failed to load config: %v", err)
		return nil, err
	}
	return cfg, nil
}

func runService(parent context.Context, sc ServiceCommand, configFile string) error {
	earlyLog := logging.NewEarlyLog(sc.Name)

	cfg, err := loadConfig(earlyLog, configFile)
	if err != nil {
		return err
	}

	log, err := logger.NewWithFormat(cfg.Logging.Level, cfg.Logging.Format)
	if err != nil {
		earlyLog.Error("Failed to init logger: %v", err)
		return err
	}
	if sl, ok := log.(*logger.SugaredLogger); ok {
		sl.SetServiceName(sc.Name)
	}
	defer func() { _ = log.Sync() }()

	ctx, cancel := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	log.InfowCtx(ctx, "Starting service")

	app := sc.New(cfg, log)
	if err := app.Initialize(ctx); err != nil {
		log.ErrorwCtx(ctx, "Failed to initialize application", "error", err)
		shutdown(ctx, app, log)
		return fmt.Errorf("initialize: %w", err)
	}

	log.InfowCtx(ctx, "Service running")
	runErr := app.Run(ctx)
	shutdown(ctx, app, log)

	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		log.ErrorwCtx(ctx, "Service stopped with error", "error", runErr)
		return runErr
	}
	log.InfowCtx(ctx, "Service shutdown complete")
	return nil
}

// shutdown gets a fresh deadline since ctx is usually already cancelled.
func shutdown(ctx context.Context, app Service, log logger.Logger) {
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), constants.ShutdownTimeout)
	defer cancel()
	if err := app.Shutdown(shutdownCtx); err != nil {
		log.ErrorwCtx(ctx, "Shutdown finished with errors", "error", err)
	}
}
