package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/cvpipe/resume-worker/internal/artifacts"
	"github.com/cvpipe/resume-worker/internal/clients"
	"github.com/cvpipe/resume-worker/internal/config"
	"github.com/cvpipe/resume-worker/internal/domain"
	"github.com/cvpipe/resume-worker/internal/enrich"
	"github.com/cvpipe/resume-worker/internal/health"
	"github.com/cvpipe/resume-worker/internal/metrics"
	"github.com/cvpipe/resume-worker/internal/storage"
	"github.com/cvpipe/resume-worker/internal/validation"
	"github.com/cvpipe/resume-worker/internal/worker"
	"github.com/cvpipe/resume-worker/shared/logger"
	"github.com/cvpipe/resume-worker/shared/postgresql"
	"github.com/cvpipe/resume-worker/shared/rabbitmq"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables or flags")
	}

	defaultConfigPath := os.Getenv("RESUME_WORKER_CONFIG_PATH")
	if defaultConfigPath == "" {
		defaultConfigPath = "configs/worker/config.yaml"
	}
	configPath := flag.String("config", defaultConfigPath, "Path to configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	appLogger, err := initLogger(&cfg.Logging)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	appLogger.Info("Starting resume worker",
		slog.String("app", cfg.App.Name),
		slog.String("version", cfg.App.Version),
		slog.String("environment", cfg.App.Environment),
	)

	// One pool per data source; pools are safe for concurrent in-flight jobs.
	jobsDB, err := initPostgreSQL(&cfg.Databases.Jobs, appLogger.Logger)
	if err != nil {
		return fmt.Errorf("failed to initialize jobs database: %w", err)
	}
	defer jobsDB.Close()

	postsDB, err := initPostgreSQL(&cfg.Databases.Posts, appLogger.Logger)
	if err != nil {
		return fmt.Errorf("failed to initialize posts database: %w", err)
	}
	defer postsDB.Close()

	managementDB, err := initPostgreSQL(&cfg.Databases.Management, appLogger.Logger)
	if err != nil {
		return fmt.Errorf("failed to initialize management database: %w", err)
	}
	defer managementDB.Close()

	authDB, err := initPostgreSQL(&cfg.Databases.Auth, appLogger.Logger)
	if err != nil {
		return fmt.Errorf("failed to initialize auth database: %w", err)
	}
	defer authDB.Close()

	rabbitClient, err := rabbitmq.NewClient(&rabbitmq.Config{
		Host:                 cfg.RabbitMQ.Host,
		Port:                 cfg.RabbitMQ.Port,
		User:                 cfg.RabbitMQ.User,
		Password:             cfg.RabbitMQ.Password,
		VHost:                cfg.RabbitMQ.VHost,
		ExchangeName:         cfg.RabbitMQ.Exchange,
		QueueName:            cfg.RabbitMQ.Queue,
		RoutingKey:           cfg.RabbitMQ.RoutingKey,
		DeadLetterExchange:   cfg.RabbitMQ.DeadLetterExchange,
		DeadLetterRoutingKey: cfg.RabbitMQ.DeadLetterRoutingKey,
		PrefetchCount:        cfg.RabbitMQ.PrefetchCount,
		ConnectAttempts:      cfg.RabbitMQ.ConnectAttempts,
		ReconnectDelay:       cfg.Worker.ReconnectDelay,
		Heartbeat:            cfg.RabbitMQ.Heartbeat,
		ConnectionTimeout:    cfg.RabbitMQ.ConnectionTimeout,
	}, appLogger.Logger)
	if err != nil {
		return fmt.Errorf("failed to initialize RabbitMQ: %w", err)
	}
	defer rabbitClient.Close()

	artifactStore, err := artifacts.NewStore(&artifacts.Config{
		Endpoint:  cfg.Storage.Endpoint,
		AccessKey: cfg.Storage.AccessKey,
		SecretKey: cfg.Storage.SecretKey,
		Bucket:    cfg.Storage.Bucket,
		UseSSL:    cfg.Storage.UseSSL,
	}, appLogger.Logger)
	if err != nil {
		return fmt.Errorf("failed to initialize artifact storage: %w", err)
	}

	registry := prometheus.NewRegistry()
	workerMetrics := metrics.New(registry)

	retryPolicy := cfg.Retry.Policy()
	aiClient := clients.NewAIClient(cfg.AI.BaseURL, cfg.AI.Timeout, appLogger.Logger)
	renderClient := clients.NewRenderClient(
		cfg.Renderer.BaseURL,
		cfg.Renderer.Timeout,
		cfg.Renderer.PollInterval,
		cfg.Renderer.WaitWindow,
		appLogger.Logger,
	)

	enricher := enrich.New(aiClient, enrich.Config{
		Language:    cfg.Enrichment.Language,
		Concurrency: cfg.Enrichment.Concurrency,
		Sections:    enrichSections(cfg.Enrichment.Sections),
		RetryPolicy: retryPolicy,
	}, appLogger.Logger)

	orchestrator := worker.NewOrchestrator(&worker.OrchestratorConfig{
		Jobs:        storage.NewJobsStore(jobsDB.DB(), appLogger.Logger),
		Posts:       storage.NewPostsStore(postsDB.DB(), appLogger.Logger),
		Management:  storage.NewManagementStore(managementDB.DB(), appLogger.Logger),
		Auth:        storage.NewAuthStore(authDB.DB(), appLogger.Logger),
		Enricher:    enricher,
		Renderer:    renderClient,
		Artifacts:   artifactStore,
		RetryPolicy: retryPolicy,
		FetchLimit:  cfg.Worker.FetchLimit,
		Logger:      appLogger.Logger,
		Metrics:     workerMetrics,
	})

	workerInstance := worker.NewWorker(&worker.Config{
		RabbitClient:   rabbitClient,
		Orchestrator:   orchestrator,
		MaxRetries:     cfg.Worker.MaxRetries,
		JobTimeout:     cfg.Worker.JobTimeout,
		ReconnectDelay: cfg.Worker.ReconnectDelay,
		Logger:         appLogger.Logger,
		Metrics:        workerMetrics,
	})

	healthServer := health.NewServer(cfg.Health.Port, map[string]health.Check{
		"rabbitmq": func(ctx context.Context) error {
			if !workerInstance.Healthy() {
				return errors.New("not connected")
			}
			return nil
		},
		"jobs_db":       jobsDB.HealthCheck,
		"posts_db":      postsDB.HealthCheck,
		"management_db": managementDB.HealthCheck,
		"auth_db":       authDB.HealthCheck,
	}, registry, appLogger.Logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	errChan := make(chan error, 2)
	workerDone := make(chan struct{})
	go func() {
		defer close(workerDone)
		if err := workerInstance.Start(ctx); err != nil {
			errChan <- err
		}
	}()
	go func() {
		if err := healthServer.Start(); err != nil {
			errChan <- err
		}
	}()

	appLogger.Info("Resume worker started successfully")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-quit:
		appLogger.Info("Received signal, shutting down gracefully",
			slog.String("signal", sig.String()),
		)
	case err := <-errChan:
		appLogger.Error("Worker error",
			slog.Any("error", err),
		)
		return err
	}

	cancel()

	// Bounded drain window for in-flight jobs.
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Worker.ShutdownTimeout)
	defer shutdownCancel()

	if err := healthServer.Shutdown(shutdownCtx); err != nil {
		appLogger.Error("Failed to stop health server",
			slog.Any("error", err),
		)
	}

	// Start returns once in-flight deliveries drain after cancel.
	select {
	case <-workerDone:
		appLogger.Info("Worker stopped gracefully")
	case <-shutdownCtx.Done():
		appLogger.Warn("Worker shutdown timeout exceeded, forcing exit")
	}

	appLogger.Info("Resume worker shutdown complete")
	return nil
}

// initLogger initializes and configures the application logger
func initLogger(cfg *config.LoggingConfig) (*logger.Logger, error) {
	return logger.New(&logger.Config{
		Level:        cfg.Level,
		Format:       cfg.Format,
		Output:       cfg.Output,
		EnableSource: cfg.EnableCaller,
		TimeFormat:   time.RFC3339,
	})
}

// initPostgreSQL initializes one PostgreSQL connection pool
func initPostgreSQL(cfg *config.DatabaseConfig, logger *slog.Logger) (*postgresql.Client, error) {
	return postgresql.NewClient(&postgresql.Config{
		Host:            cfg.Host,
		Port:            cfg.Port,
		User:            cfg.User,
		Password:        cfg.Password,
		Database:        cfg.Database,
		SSLMode:         cfg.SSLMode,
		MaxOpenConns:    cfg.MaxOpenConns,
		MaxIdleConns:    cfg.MaxIdleConns,
		ConnMaxLifetime: cfg.ConnMaxLifetime,
		ConnMaxIdleTime: cfg.ConnMaxIdleTime,
	}, logger)
}

// enrichSections converts the YAML enrichment sections into the enricher's
// typed configuration.
func enrichSections(sections map[string]config.SectionConfig) map[domain.Section]enrich.SectionConfig {
	if len(sections) == 0 {
		return nil
	}
	out := make(map[domain.Section]enrich.SectionConfig, len(sections))
	for name, sc := range sections {
		out[domain.Section(name)] = enrich.SectionConfig{
			Enabled:        sc.Enabled,
			MinLength:      sc.MinLength,
			MaxLength:      sc.MaxLength,
			RequiredFormat: validation.Format(sc.Format),
			Fallback:       enrich.FallbackPolicy(sc.Fallback),
		}
	}
	return out
}
