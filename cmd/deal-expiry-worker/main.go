package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/prohmpiriya/wedding-market/internal/di"
	"github.com/prohmpiriya/wedding-market/internal/metrics"
	"github.com/prohmpiriya/wedding-market/internal/worker"
	"github.com/prohmpiriya/wedding-market/pkg/config"
	"github.com/prohmpiriya/wedding-market/pkg/database"
	"github.com/prohmpiriya/wedding-market/pkg/kafka"
	"github.com/prohmpiriya/wedding-market/pkg/logger"
	pkgredis "github.com/prohmpiriya/wedding-market/pkg/redis"
	"github.com/prohmpiriya/wedding-market/pkg/telemetry"
)

const serviceName = "deal-expiry-worker"

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Initialize logger
	logCfg := &logger.Config{
		Level:       cfg.App.Environment,
		ServiceName: serviceName,
		Development: cfg.IsDevelopment(),
	}
	if err := logger.Init(logCfg); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	appLog := logger.Get()
	appLog.Info("Starting Deal Expiry Worker...")

	if cfg.UsesMemoryRepository() {
		appLog.Fatal("Deal expiry worker needs REPOSITORY_DRIVER=postgres")
	}

	loc, err := time.LoadLocation(cfg.Worker.Timezone)
	if err != nil {
		appLog.Fatal("Invalid worker timezone", zap.Error(err))
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if _, err := telemetry.Init(ctx, &telemetry.Config{
		Enabled:        cfg.OTel.Enabled,
		MetricsEnabled: cfg.OTel.MetricsEnabled,
		ServiceName:    serviceName,
		ServiceVersion: cfg.App.Version,
		Environment:    cfg.App.Environment,
		CollectorAddr:  cfg.OTel.CollectorAddr,
		SampleRatio:    cfg.OTel.SampleRatio,
	}); err != nil {
		appLog.Warn("Telemetry disabled", zap.Error(err))
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = telemetry.Shutdown(shutdownCtx)
	}()
	if err := metrics.Init(); err != nil {
		appLog.Warn("Metrics disabled", zap.Error(err))
	}

	// Initialize database connection
	dbCfg := database.PostgresConfigFrom(cfg.ListingDatabase, cfg.OTel.Enabled, serviceName)
	dbCfg.MaxConns = 4
	dbCfg.MinConns = 1
	db, err := database.NewPostgres(ctx, dbCfg)
	if err != nil {
		appLog.Fatal(fmt.Sprintf("Failed to connect to database: %v", err))
	}
	defer db.Close()
	appLog.Info("Database connected")

	// Redis is needed to invalidate cached calendars of expired deals
	var redis *pkgredis.Client
	if cfg.Redis.Enabled {
		redis, err = pkgredis.NewClient(ctx, pkgredis.ConfigFrom(cfg.Redis))
		if err != nil {
			appLog.Warn(fmt.Sprintf("Redis connection failed, cached calendars expire by TTL only: %v", err))
			redis = nil
		} else {
			defer redis.Close()
			appLog.Info("Redis connected")
		}
	}

	var producer *kafka.Producer
	if cfg.Kafka.Enabled {
		producerCfg := kafka.DefaultProducerConfig()
		producerCfg.Brokers = cfg.Kafka.Brokers
		producerCfg.ClientID = serviceName
		producer, err = kafka.NewProducer(ctx, producerCfg)
		if err != nil {
			appLog.Warn(fmt.Sprintf("Kafka connection failed, events will only be logged: %v", err))
			producer = nil
		} else {
			defer producer.Close()
			appLog.Info("Kafka producer connected")
		}
	}

	container := di.NewContainer(&di.ContainerConfig{
		DB:          db,
		Redis:       redis,
		Producer:    producer,
		EventTopic:  cfg.Kafka.Topic,
		CacheTTL:    cfg.Pricing.CacheTTL,
		ServiceName: serviceName,
		Version:     cfg.App.Version,
		Logger:      appLog,
	})

	// Create worker
	expiryWorker := worker.NewDealExpiryWorker(container.CalendarService, &worker.DealExpiryWorkerConfig{
		ScanInterval: cfg.Worker.ScanInterval,
		BatchSize:    cfg.Worker.BatchSize,
		Location:     loc,
	}, appLog)

	if err := expiryWorker.Start(ctx); err != nil {
		appLog.Fatal(fmt.Sprintf("Worker error: %v", err))
	}

	appLog.Info("Deal Expiry Worker started successfully")

	// Wait for interrupt signal for graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	appLog.Info("Shutting down worker...")
	expiryWorker.Stop()

	stats := expiryWorker.GetStats()
	appLog.Info("Worker exited gracefully",
		zap.Int64("total_expired", stats.TotalExpired),
		zap.Int64("total_scans", stats.TotalScans),
	)
}
