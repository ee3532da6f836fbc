package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/riverqueue/river"
	"github.com/riverqueue/river/rivertype"
	"github.com/spf13/cobra"

	"github.com/vitalpages/server/internal/analytics"
	"github.com/vitalpages/server/internal/api"
	"github.com/vitalpages/server/internal/audit"
	"github.com/vitalpages/server/internal/auth"
	"github.com/vitalpages/server/internal/config"
	"github.com/vitalpages/server/internal/domain/backups"
	"github.com/vitalpages/server/internal/domain/blog"
	"github.com/vitalpages/server/internal/domain/campaigns"
	"github.com/vitalpages/server/internal/domain/contacts"
	"github.com/vitalpages/server/internal/domain/content"
	"github.com/vitalpages/server/internal/domain/monitor"
	"github.com/vitalpages/server/internal/domain/navigation"
	"github.com/vitalpages/server/internal/domain/plugins"
	"github.com/vitalpages/server/internal/domain/seo"
	"github.com/vitalpages/server/internal/domain/users"
	"github.com/vitalpages/server/internal/domain/webhooks"
	"github.com/vitalpages/server/internal/email"
	"github.com/vitalpages/server/internal/jobs"
	"github.com/vitalpages/server/internal/metrics"
	"github.com/vitalpages/server/internal/storage/postgres"
)

var (
	serveCmd = &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP server",
		Long: `Start the VitalPages API server.

Configuration is read from environment variables. The server connects to
PostgreSQL, starts the River job queue and the plugin runner, and serves
the public and admin APIs until interrupted.`,
		RunE: runServe,
	}

	serverHost string
	serverPort int
)

func init() {
	serveCmd.Flags().StringVar(&serverHost, "host", "", "listen host (overrides SERVER_HOST)")
	serveCmd.Flags().IntVar(&serverPort, "port", 0, "listen port (overrides SERVER_PORT)")
}

// loadConfig reads configuration from the environment and applies the global
// logging flags on top.
func loadConfig() (config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return config.Config{}, err
	}
	if logLevel != "" {
		cfg.Logging.Level = logLevel
	}
	if logFormat != "" {
		cfg.Logging.Format = logFormat
	}
	return cfg, nil
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("config error: %w", err)
	}
	if serverHost != "" {
		cfg.Server.Host = serverHost
	}
	if serverPort != 0 {
		cfg.Server.Port = serverPort
	}

	logger := config.NewLogger(cfg.Logging)
	logger.Info().
		Str("version", Version).
		Str("commit", GitCommit).
		Str("env", cfg.Environment).
		Msg("starting server")

	metrics.Init(Version, GitCommit, BuildDate)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pool, err := postgres.NewPool(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer pool.Close()

	repo, err := postgres.NewRepository(pool)
	if err != nil {
		return fmt.Errorf("init repository: %w", err)
	}

	jwtManager, err := auth.NewJWTManager(cfg.Auth.JWTSecret, cfg.Auth.SessionExpiry, cfg.Auth.PendingTwoFactor, "vitalpages")
	if err != nil {
		return fmt.Errorf("init jwt manager: %w", err)
	}

	auditLogger := audit.NewLogger(logger)

	emailSvc, err := email.NewService(cfg.Email, logger)
	if err != nil {
		return fmt.Errorf("init email service: %w", err)
	}

	analyticsClient := analytics.NewClient(cfg.Analytics, logger)
	captcha := contacts.NewRecaptchaVerifier(cfg.Recaptcha, logger)

	// River workers are registered before their services exist; the service
	// fields are populated below, before the client starts working jobs.
	deliverer := webhooks.NewDeliverer(repo.Webhooks(), cfg.Webhooks.Timeout, logger)
	webhookWorker := &jobs.WebhookDeliveryWorker{Deliverer: deliverer}
	campaignWorker := &jobs.CampaignSendWorker{}
	backupWorker := &jobs.BackupWorker{}
	pruneWorker := &jobs.BackupPruneWorker{Logger: logger}

	workers := river.NewWorkers()
	river.AddWorker(workers, webhookWorker)
	river.AddWorker(workers, campaignWorker)
	river.AddWorker(workers, backupWorker)
	river.AddWorker(workers, pruneWorker)

	riverLogger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelWarn}))
	retryPolicy := jobs.NewRetryPolicy().WithWebhookMaxAttempts(cfg.Webhooks.MaxAttempts)
	riverClient, err := jobs.NewClient(pool, workers, riverLogger,
		[]rivertype.Hook{metrics.NewRiverMetricsHook()},
		jobs.NewPeriodicJobs(cfg.Backups.Schedule), retryPolicy)
	if err != nil {
		return fmt.Errorf("init job client: %w", err)
	}
	enqueuer := jobs.NewEnqueuer(riverClient, retryPolicy)

	webhooksSvc := webhooks.NewService(repo.Webhooks(), enqueuer, cfg.Environment != "production", logger)
	campaignsSvc := campaigns.NewService(repo.Campaigns(), emailSvc, enqueuer, webhooksSvc, logger)
	backupsSvc := backups.NewService(cfg.Database.URL, cfg.Backups, webhooksSvc, logger)

	campaignWorker.Campaigns = campaignsSvc
	backupWorker.Backups = backupsSvc
	pruneWorker.Backups = backupsSvc

	twoFactor := auth.NewTwoFactor("VitalPages")
	usersSvc := users.NewService(repo.Users(), emailSvc, twoFactor, auditLogger, webhooksSvc, cfg.Server.BaseURL, logger)
	contentSvc := content.NewService(repo.Pages(), webhooksSvc, logger)
	blogSvc := blog.NewService(repo.Posts(), webhooksSvc, logger)
	navSvc := navigation.NewService(repo.Navigation(), logger)
	contactsSvc := contacts.NewService(repo.Contacts(), captcha, emailSvc, webhooksSvc, cfg.Email.StaffNotify, logger)
	seoSvc := seo.NewService(repo.SEO(), logger)

	queue := plugins.NewQueue(plugins.QueueConfig{
		Capacity:    cfg.Plugins.QueueCapacity,
		MaxAttempts: cfg.Plugins.MaxAttempts,
		BaseBackoff: cfg.Plugins.BaseBackoff,
		MaxBackoff:  cfg.Plugins.MaxBackoff,
	}, plugins.NewSimulatedRunner(), logger)
	queue.Start(ctx)
	defer queue.Stop()
	pluginsSvc := plugins.NewService(repo.Plugins(), queue, logger)
	if cfg.Plugins.ManifestDir != "" {
		if err := pluginsSvc.SyncManifestDir(ctx, cfg.Plugins.ManifestDir); err != nil {
			return fmt.Errorf("sync plugin manifests: %w", err)
		}
	}

	collector := monitor.NewCollector(func() int { return queue.Depth() })
	hub := monitor.NewHub(collector, cfg.Monitor.BroadcastInterval, cfg.Monitor.ClientSendBuffer, logger)
	go hub.Run(ctx)
	defer hub.Shutdown()

	go syncGauges(ctx, hub, queue)

	if cfg.AdminBootstrap.Username != "" && cfg.AdminBootstrap.Password != "" {
		if err := usersSvc.EnsureBootstrapAdmin(ctx, cfg.AdminBootstrap.Username, cfg.AdminBootstrap.Email, cfg.AdminBootstrap.Password); err != nil {
			return fmt.Errorf("bootstrap admin: %w", err)
		}
	}

	if err := riverClient.Start(ctx); err != nil {
		return fmt.Errorf("start job client: %w", err)
	}
	defer func() {
		stopCtx, stopCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer stopCancel()
		if err := riverClient.Stop(stopCtx); err != nil {
			logger.Error().Err(err).Msg("job client shutdown failed")
		}
	}()

	router := api.NewRouter(cfg, api.Dependencies{
		Pool:       pool,
		JWTManager: jwtManager,
		Audit:      auditLogger,
		Analytics:  analyticsClient,
		Enqueuer:   enqueuer,
		Hub:        hub,
		Collector:  collector,
		Users:      usersSvc,
		Content:    contentSvc,
		Blog:       blogSvc,
		Navigation: navSvc,
		Contacts:   contactsSvc,
		Campaigns:  campaignsSvc,
		Webhooks:   webhooksSvc,
		SEO:        seoSvc,
		Plugins:    pluginsSvc,
		Backups:    backupsSvc,
		Version:    Version,
	}, logger)

	srv := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:           router,
		ReadTimeout:       10 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      30 * time.Second,
		MaxHeaderBytes:    1 << 20,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", srv.Addr).Msg("listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	case sig := <-sigCh:
		logger.Info().Str("signal", sig.String()).Msg("shutting down")
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}

	logger.Info().Msg("server stopped")
	return nil
}

// syncGauges mirrors a couple of in-process values into Prometheus gauges.
func syncGauges(ctx context.Context, hub *monitor.Hub, queue *plugins.Queue) {
	ticker := time.NewTicker(15 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			metrics.MonitorClientsConnected.Set(float64(hub.ClientCount()))
			metrics.PluginQueueDepth.Set(float64(queue.Depth()))
		}
	}
}
