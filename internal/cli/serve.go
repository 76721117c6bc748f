package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/canopyerp/outbound/internal/config"
	"github.com/canopyerp/outbound/internal/deadletter"
	"github.com/canopyerp/outbound/internal/delivery"
	"github.com/canopyerp/outbound/internal/dispatch"
	"github.com/canopyerp/outbound/internal/providers"
	"github.com/canopyerp/outbound/internal/server"
	"github.com/canopyerp/outbound/internal/subscriptions"
)

var (
	servePort int
	serveHost string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the delivery engine",
	Long: `Start the delivery engine and its admin HTTP server.

The engine will:
  - Load subscriptions from config, a YAML file, or a SQLite table
  - Accept published events and fan them out to matching subscriptions
  - Retry failed deliveries with exponential backoff
  - Quarantine exhausted deliveries in the dead-letter store`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().IntVarP(&servePort, "port", "p", 0, "Admin port to listen on (overrides config)")
	serveCmd.Flags().StringVar(&serveHost, "host", "", "Host to bind to (overrides config)")

	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(config.LoadOptions{ConfigFile: cfgFile})
	if err != nil {
		return err
	}
	applyLogConfig(cfg.Logging.Level, cfg.Logging.Format)

	if servePort != 0 {
		cfg.Server.Port = servePort
	}
	if serveHost != "" {
		cfg.Server.Host = serveHost
	}

	source, closeSource, err := buildSource(&cfg.Subscriptions)
	if err != nil {
		return err
	}
	defer closeSource()

	registry := subscriptions.NewRegistry(source, cfg.Subscriptions.CacheTTL)

	var watcher *subscriptions.Watcher
	if cfg.Subscriptions.File != "" {
		watcher, err = subscriptions.NewWatcher(registry, cfg.Subscriptions.File)
		if err != nil {
			return fmt.Errorf("creating subscriptions watcher: %w", err)
		}
		if err := watcher.Start(); err != nil {
			return fmt.Errorf("starting subscriptions watcher: %w", err)
		}
		defer watcher.Stop()
	}

	executor := delivery.NewExecutor(
		delivery.WithLimiter(delivery.NewHostLimiter(cfg.Delivery.RateLimitRPS, cfg.Delivery.RateLimitBurst)),
	)
	client := delivery.NewClient(
		delivery.WithExecutor(executor),
		delivery.WithMaxRetries(cfg.Delivery.MaxRetries),
		delivery.WithBackoff(buildBackoff(&cfg.Delivery)),
	)

	dlq := deadletter.NewStore(executor)
	if cfg.DeadLetter.JanitorSchedule != "" {
		janitor, jerr := deadletter.NewJanitor(dlq, cfg.DeadLetter.JanitorSchedule, cfg.DeadLetter.Retention)
		if jerr != nil {
			return fmt.Errorf("creating dead-letter janitor: %w", jerr)
		}
		janitor.Start()
		defer janitor.Stop()
	}

	dispatcher := dispatch.New(registry, client, dlq,
		dispatch.WithAttemptTimeout(cfg.Delivery.Timeout),
	)

	if cfg.Providers.Workflow.Enabled {
		if err := startWorkflowProvider(cmd.Context(), &cfg.Providers.Workflow, client); err != nil {
			return err
		}
	}

	srv := server.New(&cfg.Server, dispatcher, registry, dlq)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-quit:
		log.Info().Str("signal", sig.String()).Msg("Shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Admin server shutdown failed")
	}

	// Let in-flight retry sequences run to their conclusion.
	dispatcher.Stop()
	return nil
}

func buildSource(cfg *config.SubscriptionsConfig) (subscriptions.Source, func(), error) {
	noop := func() {}

	switch {
	case len(cfg.Static) > 0:
		subs := make([]*subscriptions.Subscription, 0, len(cfg.Static))
		for _, s := range cfg.Static {
			subs = append(subs, &subscriptions.Subscription{
				ID:       s.ID,
				URL:      s.URL,
				Events:   s.Events,
				Headers:  s.Headers,
				Secret:   s.Secret,
				Active:   s.Active,
				TenantID: s.TenantID,
			})
		}
		source, err := subscriptions.NewStaticSource(subs)
		if err != nil {
			return nil, nil, err
		}
		log.Info().Int("count", len(subs)).Msg("Using static subscriptions")
		return source, noop, nil

	case cfg.File != "":
		log.Info().Str("file", cfg.File).Msg("Using subscriptions file")
		return subscriptions.NewFileSource(cfg.File), noop, nil

	case cfg.DBPath != "":
		source, err := subscriptions.OpenSQLiteSource(cfg.DBPath)
		if err != nil {
			return nil, nil, err
		}
		log.Info().Str("db", cfg.DBPath).Msg("Using subscriptions database")
		return source, func() { _ = source.Close() }, nil

	default:
		source, _ := subscriptions.NewStaticSource(nil)
		log.Warn().Msg("No subscription source configured, deliveries will match nothing")
		return source, noop, nil
	}
}

func buildBackoff(cfg *config.DeliveryConfig) delivery.Backoff {
	if cfg.Jitter {
		return delivery.ExponentialJitter{Initial: cfg.BackoffInitial, Max: cfg.BackoffMax}
	}
	return delivery.Exponential{Initial: cfg.BackoffInitial, Max: cfg.BackoffMax}
}

func startWorkflowProvider(ctx context.Context, cfg *config.WorkflowProviderConfig, client *delivery.Client) error {
	provider := providers.NewWorkflowProvider(providers.NewBase(client))
	err := provider.Initialize(ctx, providers.Config{
		BaseURL: cfg.BaseURL,
		APIKey:  cfg.APIKey,
		Timeout: cfg.Timeout,
	})
	if err != nil {
		return err
	}

	status, err := provider.TestConnection(ctx)
	if err != nil {
		return err
	}
	if !status.Healthy {
		log.Warn().
			Str("message", status.Message).
			Msg("Workflow provider unreachable, continuing")
		return nil
	}

	log.Info().
		Int64("latency_ms", status.LatencyMs).
		Msg("Workflow provider connected")
	return nil
}
