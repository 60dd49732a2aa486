package app

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"

	"github.com/trous-aml/trous_service/internal/api/routes"
	"github.com/trous-aml/trous_service/internal/infrastructure/config"
	"github.com/trous-aml/trous_service/internal/infrastructure/database"
	"github.com/trous-aml/trous_service/internal/infrastructure/di"
	"github.com/trous-aml/trous_service/internal/workers/alert_ingest"
	"github.com/trous-aml/trous_service/internal/workers/screening_refresh"
	"github.com/trous-aml/trous_service/pkg/logger"
	"github.com/trous-aml/trous_service/pkg/metrics"
	"github.com/trous-aml/trous_service/pkg/tracing"
)

const shutdownTimeout = 30 * time.Second

// Application represents the main application
type Application struct {
	cfg       *config.Config
	log       *logger.Logger
	server    *http.Server
	container *di.Container

	// Workers
	refreshScheduler *screening_refresh.Scheduler
	alertProcessor   *alert_ingest.Processor
	stopMetrics      chan struct{}

	// Tracing
	tracingShutdown func(context.Context) error
}

// NewApplication creates a new application instance
func NewApplication() *Application {
	return &Application{}
}

// Initialize initializes the application
func (app *Application) Initialize() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	app.cfg = cfg

	log := logger.New(cfg.LogLevel, cfg.Environment)
	app.log = log

	// The memory driver keeps everything in process; only postgres needs a
	// connection and migrations.
	var db *sqlx.DB
	if cfg.Database.Driver != "memory" {
		db, err = database.NewConnection(cfg.Database)
		if err != nil {
			return fmt.Errorf("failed to connect to database: %w", err)
		}
		if err := database.RunMigrations(cfg.Database.URL, cfg.Database.MigrationsPath); err != nil {
			return fmt.Errorf("failed to run migrations: %w", err)
		}
	}

	if err := app.initializeTracing(); err != nil {
		return fmt.Errorf("failed to initialize tracing: %w", err)
	}

	container, err := di.NewContainer(cfg, db, log)
	if err != nil {
		return fmt.Errorf("failed to create DI container: %w", err)
	}
	app.container = container

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := container.Bootstrap(ctx); err != nil {
		return fmt.Errorf("failed to bootstrap organization: %w", err)
	}

	if err := app.initializeWorkers(); err != nil {
		return fmt.Errorf("failed to initialize workers: %w", err)
	}

	app.initializeServer()
	return nil
}

// initializeTracing initializes OpenTelemetry tracing
func (app *Application) initializeTracing() error {
	if !app.cfg.Tracing.Enabled {
		return nil
	}
	tracingConfig := tracing.Config{
		Enabled:      true,
		CollectorURL: app.cfg.Tracing.CollectorURL,
		ServiceName:  "trous-aml",
		Environment:  app.cfg.Environment,
		SampleRate:   app.cfg.Tracing.SampleRate,
	}

	shutdown, err := tracing.InitTracer(context.Background(), tracingConfig, app.log.Zap())
	if err != nil {
		return err
	}
	app.tracingShutdown = shutdown
	app.log.Info("OpenTelemetry tracing initialized", "collector_url", tracingConfig.CollectorURL)
	return nil
}

// initializeWorkers starts the screening refresh scheduler and, when Kafka
// ingest is enabled, the alert consumer.
func (app *Application) initializeWorkers() error {
	if app.cfg.Scheduler.ScreeningRefreshCron != "" {
		scheduler, err := screening_refresh.NewScheduler(screening_refresh.Config{
			Schedule:  app.cfg.Scheduler.ScreeningRefreshCron,
			MaxAge:    app.cfg.Screening.RefreshMaxAge(),
			BatchSize: app.cfg.Screening.RefreshBatchSize,
		}, app.container.OrgRepo, app.container.ScreeningService, app.log)
		if err != nil {
			return err
		}
		scheduler.Start()
		app.refreshScheduler = scheduler
	}

	if app.container.AlertConsumer != nil {
		app.alertProcessor = alert_ingest.NewProcessor(app.container.AlertConsumer, app.container.AlertService, app.log)
		app.alertProcessor.Start(context.Background())
		app.log.Info("Alert ingest consumer started", "topic", alert_ingest.Topic)
	}
	return nil
}

// initializeServer initializes the HTTP server
func (app *Application) initializeServer() {
	if app.cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := routes.SetupRoutes(app.container)

	app.server = &http.Server{
		Addr:           fmt.Sprintf(":%d", app.cfg.Server.Port),
		Handler:        router,
		ReadTimeout:    time.Duration(app.cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout:   time.Duration(app.cfg.Server.WriteTimeout) * time.Second,
		IdleTimeout:    120 * time.Second,
		MaxHeaderBytes: 1 << 20, // 1MB
	}
}

// Start starts the application
func (app *Application) Start() error {
	go func() {
		app.log.Info("Starting server",
			"port", app.cfg.Server.Port,
			"environment", app.cfg.Environment,
			"database_driver", app.cfg.Database.Driver,
		)

		if err := app.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			app.log.Fatal("Failed to start server", "error", err)
		}
	}()

	if app.container.DB != nil {
		app.stopMetrics = make(chan struct{})
		go app.startMetricsCollection()
	}
	return nil
}

// startMetricsCollection publishes connection pool stats until shutdown.
func (app *Application) startMetricsCollection() {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-app.stopMetrics:
			return
		case <-ticker.C:
			stats := app.container.DB.Stats()
			metrics.DatabaseConnectionsGauge.WithLabelValues("open").Set(float64(stats.OpenConnections))
			metrics.DatabaseConnectionsGauge.WithLabelValues("idle").Set(float64(stats.Idle))
			metrics.DatabaseConnectionsGauge.WithLabelValues("in_use").Set(float64(stats.InUse))
		}
	}
}

// Shutdown gracefully shuts down the application
func (app *Application) Shutdown() error {
	app.log.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	app.stopWorkers(ctx)

	if err := app.server.Shutdown(ctx); err != nil {
		app.log.Error("Server forced to shutdown", "error", err)
	}

	if app.tracingShutdown != nil {
		if err := app.tracingShutdown(ctx); err != nil {
			app.log.Warn("Error flushing traces", "error", err)
		}
	}

	if err := app.container.Close(); err != nil {
		app.log.Warn("Error closing connections", "error", err)
	}

	app.log.Info("Server exited gracefully")
	_ = app.log.Sync()
	return nil
}

func (app *Application) stopWorkers(ctx context.Context) {
	if app.stopMetrics != nil {
		close(app.stopMetrics)
	}

	if app.refreshScheduler != nil {
		app.log.Info("Stopping screening refresh scheduler...")
		if err := app.refreshScheduler.Stop(ctx); err != nil {
			app.log.Warn("Error stopping scheduler", "error", err)
		}
	}

	if app.alertProcessor != nil {
		app.log.Info("Stopping alert ingest consumer...")
		if err := app.alertProcessor.Shutdown(shutdownTimeout); err != nil {
			app.log.Warn("Error stopping alert consumer", "error", err)
		}
	}
}

// WaitForShutdown waits for interrupt signal
func (app *Application) WaitForShutdown() {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
}
