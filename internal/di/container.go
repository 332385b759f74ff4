package di

import (
	"time"

	"github.com/prohmpiriya/wedding-market/internal/handler"
	"github.com/prohmpiriya/wedding-market/internal/repository"
	"github.com/prohmpiriya/wedding-market/internal/service"
	"github.com/prohmpiriya/wedding-market/pkg/database"
	"github.com/prohmpiriya/wedding-market/pkg/kafka"
	"github.com/prohmpiriya/wedding-market/pkg/logger"
	"github.com/prohmpiriya/wedding-market/pkg/redis"
	"github.com/prohmpiriya/wedding-market/pkg/retry"
)

// Container holds all dependencies for the marketplace service
type Container struct {
	// Infrastructure
	DB       *database.PostgresDB
	Redis    *redis.Client
	Producer *kafka.Producer

	// Repositories
	CalendarRepo repository.CalendarRepository
	ListingRepo  repository.ListingRepository

	// Services
	Publisher         service.EventPublisher
	PricingService    service.PricingService
	CalendarService   service.CalendarService
	ModerationService service.ModerationService

	// Handlers
	HealthHandler     *handler.HealthHandler
	PricingHandler    *handler.PricingHandler
	CalendarHandler   *handler.CalendarHandler
	ModerationHandler *handler.ModerationHandler
}

// ContainerConfig contains configuration for building the container
type ContainerConfig struct {
	// DB is nil when the in-memory repositories are selected
	DB       *database.PostgresDB
	Redis    *redis.Client
	Producer *kafka.Producer

	EventTopic   string
	CacheTTL     time.Duration
	MaxRangeDays int
	ServiceName  string
	Version      string
	Logger       *logger.Logger
}

// NewContainer creates a new dependency injection container
func NewContainer(cfg *ContainerConfig) *Container {
	c := &Container{
		DB:       cfg.DB,
		Redis:    cfg.Redis,
		Producer: cfg.Producer,
	}

	log := cfg.Logger
	if log == nil {
		log = logger.Get()
	}

	// Initialize repositories
	var calendarRepo repository.CalendarRepository
	if c.DB != nil {
		calendarRepo = repository.NewPostgresCalendarRepository(c.DB.Pool())
		c.ListingRepo = repository.NewPostgresListingRepository(c.DB.Pool())
	} else {
		calendarRepo = repository.NewMemoryCalendarRepository()
		c.ListingRepo = repository.NewMemoryListingRepository()
	}

	// Wrap with cache if Redis is available
	if c.Redis != nil {
		c.CalendarRepo = repository.NewCachedCalendarRepository(calendarRepo, c.Redis, cfg.CacheTTL)
	} else {
		c.CalendarRepo = calendarRepo
	}

	// Initialize services
	if c.Producer != nil {
		c.Publisher = service.NewKafkaEventPublisher(c.Producer, cfg.EventTopic, retry.DefaultConfig()).
			WithDeadLetter(retry.NewKafkaDeadLetterPublisher(c.Producer, cfg.ServiceName))
	} else {
		c.Publisher = service.NewLogEventPublisher(log)
	}
	c.PricingService = service.NewPricingService(c.CalendarRepo, c.ListingRepo, &service.PricingServiceConfig{
		MaxRangeDays: cfg.MaxRangeDays,
	}, log)
	c.CalendarService = service.NewCalendarService(c.CalendarRepo, c.ListingRepo, c.Publisher, log)
	c.ModerationService = service.NewModerationService(c.ListingRepo, c.Publisher, log)

	// Initialize handlers
	c.HealthHandler = handler.NewHealthHandler(cfg.Version)
	if c.DB != nil {
		c.HealthHandler.AddComponent("database", c.DB)
	} else {
		c.HealthHandler.AddComponent("database", nil)
	}
	if c.Redis != nil {
		c.HealthHandler.AddComponent("redis", c.Redis)
	} else {
		c.HealthHandler.AddComponent("redis", nil)
	}
	if c.Producer != nil {
		c.HealthHandler.AddComponent("kafka", handler.HealthCheckFunc(c.Producer.Ping))
	} else {
		c.HealthHandler.AddComponent("kafka", nil)
	}
	c.PricingHandler = handler.NewPricingHandler(c.PricingService)
	c.CalendarHandler = handler.NewCalendarHandler(c.CalendarService)
	c.ModerationHandler = handler.NewModerationHandler(c.ModerationService)

	return c
}
