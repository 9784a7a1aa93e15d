package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	"github.com/BarkinBalci/registration-analytics-service/docs"
	"github.com/BarkinBalci/registration-analytics-service/internal/config"
	"github.com/BarkinBalci/registration-analytics-service/internal/engine"
	"github.com/BarkinBalci/registration-analytics-service/internal/handler"
	"github.com/BarkinBalci/registration-analytics-service/internal/logger"
	"github.com/BarkinBalci/registration-analytics-service/internal/queue"
	"github.com/BarkinBalci/registration-analytics-service/internal/queue/kafka"
	"github.com/BarkinBalci/registration-analytics-service/internal/queue/sqs"
	"github.com/BarkinBalci/registration-analytics-service/internal/repository/clickhouse"
	"github.com/BarkinBalci/registration-analytics-service/internal/service"
	"github.com/BarkinBalci/registration-analytics-service/internal/source"
	"github.com/BarkinBalci/registration-analytics-service/internal/telemetry"
)

const shutdownTimeout = 15 * time.Second

// @title Registration Analytics Service API
// @version 1.0
// @description API for querying registration metrics and publishing registrations
// @host localhost:8080
// @BasePath /
// @schemes http https
func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(fmt.Sprintf("Failed to load config: %v", err))
	}

	log, err := logger.New(cfg.Service.Environment, "api")
	if err != nil {
		panic(fmt.Sprintf("Failed to initialize logger: %v", err))
	}
	defer func(log *zap.Logger) {
		_ = log.Sync()
	}(log)

	log.Info("Starting API service",
		zap.String("environment", cfg.Service.Environment),
		zap.String("port", cfg.Service.APIPort),
		zap.String("source", cfg.Engine.Source))

	// Configure Swagger host dynamically
	docs.SwaggerInfo.Host = cfg.Service.Host

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := telemetry.SetupTracing(ctx, cfg.Telemetry.OtelEndpoint, cfg.Telemetry.ServiceName)
	if err != nil {
		log.Fatal("Failed to set up tracing", zap.Error(err))
	}
	defer func() {
		if err := shutdownTracing(context.Background()); err != nil {
			log.Error("Failed to shut down tracing", zap.Error(err))
		}
	}()

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := telemetry.NewMetrics(registry)

	eng, err := engine.New(engine.Options{
		IdentityFields: cfg.Engine.IdentityFields,
		MergeStrategy:  cfg.Engine.MergeStrategy,
		Dimensions:     cfg.Engine.Dimensions,
		CacheSize:      cfg.Cache.Size,
		CacheTTL:       time.Duration(cfg.Cache.TTLSec) * time.Second,
	}, metrics, log)
	if err != nil {
		log.Fatal("Failed to create engine", zap.Error(err))
	}

	// ClickHouse is only needed when it is the snapshot source or the aggregate sink
	var repo *clickhouse.Repository
	if cfg.Engine.Source == "clickhouse" || cfg.Engine.PersistAggregates {
		chClient, err := clickhouse.NewClient(ctx, &cfg.ClickHouse, log)
		if err != nil {
			log.Fatal("Failed to create ClickHouse client", zap.Error(err))
		}
		repo = clickhouse.NewRepository(chClient, log)
		defer func() {
			if err := repo.Close(); err != nil {
				log.Error("Failed to close ClickHouse client", zap.Error(err))
			}
		}()

		if err := repo.InitSchema(ctx); err != nil {
			log.Fatal("Failed to initialize schema", zap.Error(err))
		}
	}

	var loader service.Loader
	switch cfg.Engine.Source {
	case "clickhouse":
		loader = source.NewRepositoryLoader("clickhouse:"+cfg.ClickHouse.Database, repo)
	default:
		loader = source.NewCSVLoader(cfg.Engine.CSVPath, log)
	}

	var store service.AggregateStore
	if cfg.Engine.PersistAggregates {
		store = repo
	}

	metricsService := service.NewMetricsService(eng, loader, store, log)

	publisher, closePublisher, err := newPublisher(ctx, cfg, log)
	if err != nil {
		log.Fatal("Failed to create queue publisher", zap.Error(err))
	}
	defer closePublisher()

	var registrationService service.RegistrationServicer
	if publisher != nil {
		registrationService = service.NewRegistrationService(publisher, log)
	} else {
		log.Warn("No ingestion queue configured, registration endpoints are disabled")
	}

	if cfg.Engine.LoadOnStart {
		report, err := metricsService.ReloadSnapshot(ctx)
		if err != nil {
			// Queries answer 503 until a reload succeeds
			log.Error("Initial snapshot load failed", zap.Error(err))
		} else {
			log.Info("Initial snapshot loaded",
				zap.Int64("snapshot_version", report.SnapshotVersion),
				zap.Int("accepted", report.Accepted),
				zap.Int("duplicates", report.Duplicates),
				zap.Int("rejected", report.RejectedTotal))
		}
	}

	h := handler.NewHandler(registrationService, metricsService, metrics.Handler(), log)

	server := &http.Server{
		Addr:              fmt.Sprintf(":%s", cfg.Service.APIPort),
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info("API server starting", zap.String("address", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Failed to start API server", zap.Error(err))
		}
	}()

	<-ctx.Done()
	log.Info("Shutting down API server gracefully")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("API server shutdown failed", zap.Error(err))
	}
}

// newPublisher creates the publisher for the configured queue, or nil when the queue is not configured
func newPublisher(ctx context.Context, cfg *config.Config, log *zap.Logger) (queue.QueuePublisher, func(), error) {
	noop := func() {}

	switch cfg.Consumer.Queue {
	case "kafka":
		client := kafka.NewPublisher(cfg.Kafka, log)
		return client, func() {
			if err := client.Close(); err != nil {
				log.Error("Failed to close Kafka client", zap.Error(err))
			}
		}, nil
	default:
		if cfg.SQS.QueueURL == "" {
			return nil, noop, nil
		}
		client, err := sqs.NewClient(ctx, cfg.SQS, log)
		if err != nil {
			return nil, noop, err
		}
		return client, noop, nil
	}
}
