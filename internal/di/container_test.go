package di

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/prohmpiriya/wedding-market/internal/repository"
	"github.com/prohmpiriya/wedding-market/internal/service"
	"github.com/prohmpiriya/wedding-market/pkg/logger"
)

func TestNewContainer_MemoryBackend(t *testing.T) {
	c := NewContainer(&ContainerConfig{Logger: logger.NewNop(), Version: "test"})

	assert.IsType(t, &repository.MemoryCalendarRepository{}, c.CalendarRepo)
	assert.IsType(t, &repository.MemoryListingRepository{}, c.ListingRepo)
	assert.IsType(t, &service.LogEventPublisher{}, c.Publisher)

	assert.NotNil(t, c.PricingService)
	assert.NotNil(t, c.CalendarService)
	assert.NotNil(t, c.ModerationService)
	assert.NotNil(t, c.HealthHandler)
	assert.NotNil(t, c.PricingHandler)
	assert.NotNil(t, c.CalendarHandler)
	assert.NotNil(t, c.ModerationHandler)
}
