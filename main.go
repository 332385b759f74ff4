package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/prohmpiriya/wedding-market/internal/di"
	"github.com/prohmpiriya/wedding-market/internal/metrics"
	"github.com/prohmpiriya/wedding-market/internal/service"
	"github.com/prohmpiriya/wedding-market/pkg/config"
	"github.com/prohmpiriya/wedding-market/pkg/database"
	"github.com/prohmpiriya/wedding-market/pkg/kafka"
	"github.com/prohmpiriya/wedding-market/pkg/logger"
	"github.com/prohmpiriya/wedding-market/pkg/middleware"
	pkgredis "github.com/prohmpiriya/wedding-market/pkg/redis"
	"github.com/prohmpiriya/wedding-market/pkg/telemetry"
)

const serviceName = "wedding-market"

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
	appLog.Info("Starting Wedding Market API...",
		zap.String("version", cfg.App.Version),
		zap.String("repository", cfg.Repository.Driver),
	)

	ctx := context.Background()

	// Initialize telemetry
	if _, err := telemetry.Init(ctx, &telemetry.Config{
		Enabled:        cfg.OTel.Enabled,
		MetricsEnabled: cfg.OTel.MetricsEnabled,
		ServiceName:    cfg.OTel.ServiceName,
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
	var db *database.PostgresDB
	if !cfg.UsesMemoryRepository() {
		if err := cfg.ValidateListingDatabase(); err != nil {
			appLog.Fatal("Invalid database config", zap.Error(err))
		}
		db, err = database.NewPostgres(ctx, database.PostgresConfigFrom(cfg.ListingDatabase, cfg.OTel.Enabled, serviceName))
		if err != nil {
			appLog.Fatal("Failed to connect to database", zap.Error(err))
		}
		defer db.Close()
		appLog.Info("Database connected")
	} else {
		appLog.Warn("Using in-memory repositories, data is lost on restart")
	}

	// Initialize Redis connection
	var redis *pkgredis.Client
	if cfg.Redis.Enabled {
		redis, err = pkgredis.NewClient(ctx, pkgredis.ConfigFrom(cfg.Redis))
		if err != nil {
			appLog.Warn(fmt.Sprintf("Redis connection failed, serving without cache: %v", err))
			redis = nil
		} else {
			defer redis.Close()
			appLog.Info("Redis connected")
		}
	}

	// Initialize Kafka producer
	var producer *kafka.Producer
	if cfg.Kafka.Enabled {
		producerCfg := kafka.DefaultProducerConfig()
		producerCfg.Brokers = cfg.Kafka.Brokers
		producerCfg.ClientID = cfg.Kafka.ClientID
		producer, err = kafka.NewProducer(ctx, producerCfg)
		if err != nil {
			appLog.Warn(fmt.Sprintf("Kafka connection failed, events will only be logged: %v", err))
			producer = nil
		} else {
			defer producer.Close()
			appLog.Info("Kafka producer connected")
		}
	}

	// Build dependency injection container
	container := di.NewContainer(&di.ContainerConfig{
		DB:           db,
		Redis:        redis,
		Producer:     producer,
		EventTopic:   cfg.Kafka.Topic,
		CacheTTL:     cfg.Pricing.CacheTTL,
		MaxRangeDays: cfg.Pricing.MaxRangeDays,
		ServiceName:  serviceName,
		Version:      cfg.App.Version,
		Logger:       appLog,
	})

	// Setup Gin
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestID())
	router.Use(telemetry.TracingMiddleware(cfg.OTel.ServiceName))
	router.Use(middleware.Logger(appLog))

	// Health check endpoints
	router.GET("/health", container.HealthHandler.Health)
	router.GET("/ready", container.HealthHandler.Ready)

	jwtCfg := &middleware.JWTConfig{
		Secret: cfg.JWT.Secret,
		Issuer: cfg.JWT.Issuer,
	}

	// API routes
	v1 := router.Group("/api/v1")
	{
		// Public pricing routes
		listings := v1.Group("/listings/:kind/:id")
		if cfg.Pricing.RateLimitRPS > 0 {
			listings.Use(middleware.RateLimit(&middleware.RateLimitConfig{
				RequestsPerSecond: cfg.Pricing.RateLimitRPS,
				Burst:             cfg.Pricing.RateLimitBurst,
				Logger:            appLog,
			}))
		}
		{
			listings.GET("/availability", container.PricingHandler.GetAvailability)
			listings.GET("/deals/active", container.PricingHandler.GetActiveDeal)
			listings.GET("/price", container.PricingHandler.GetPrice)
			listings.GET("/calendar", container.PricingHandler.GetCalendar)
		}

		// Owner calendar routes
		owner := v1.Group("",
			middleware.JWTMiddleware(jwtCfg),
			middleware.RequireRole(service.RoleVendor, service.RoleVenue, service.RoleAdmin),
		)
		{
			owner.PUT("/listings/:kind/:id/availability/:date", container.CalendarHandler.SetAvailability)
			owner.PUT("/listings/:kind/:id/price-slots/:date", container.CalendarHandler.SetPriceSlot)

			createDeal := []gin.HandlerFunc{container.CalendarHandler.CreateDeal}
			if redis != nil {
				createDeal = append([]gin.HandlerFunc{middleware.Idempotency(&middleware.IdempotencyConfig{
					Store: redis,
				})}, createDeal...)
			}
			owner.POST("/listings/:kind/:id/deals", createDeal...)
			owner.POST("/deals/:id/deactivate", container.CalendarHandler.DeactivateDeal)
		}

		// Admin moderation routes
		admin := v1.Group("/admin",
			middleware.JWTMiddleware(jwtCfg),
			middleware.RequireRole(service.RoleAdmin),
		)
		{
			admin.GET("/listings", container.ModerationHandler.ListListings)
			admin.POST("/listings/:kind/:id/approve", container.ModerationHandler.Approve)
			admin.POST("/listings/:kind/:id/reject", container.ModerationHandler.Reject)
		}
	}

	// Create HTTP server
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Start server in goroutine
	go func() {
		appLog.Info(fmt.Sprintf("Wedding Market API listening on %s", addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			appLog.Fatal(fmt.Sprintf("Failed to start server: %v", err))
		}
	}()

	// Wait for interrupt signal for graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	appLog.Info("Shutting down server...")

	// Give outstanding requests 30 seconds to complete
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		appLog.Error("Server forced to shutdown", zap.Error(err))
	}

	appLog.Info("Server exited gracefully")
}
