package service

import (
	"context"

	"github.com/prohmpiriya/wedding-market/internal/domain"
	"github.com/prohmpiriya/wedding-market/internal/dto"
	"github.com/prohmpiriya/wedding-market/internal/pricing"
)

// Actor is the authenticated caller of a write operation
type Actor struct {
	UserID string
	Role   string
}

// IsAdmin reports whether the actor may act on any listing
func (a Actor) IsAdmin() bool {
	return a.Role == RoleAdmin
}

// Roles carried in access tokens
const (
	RoleAdmin  = "admin"
	RoleVenue  = "venue"
	RoleVendor = "vendor"
)

// PricingService defines the interface for availability and price queries
type PricingService interface {
	// GetAvailability resolves whether a date can be booked and how urgently
	GetAvailability(ctx context.Context, ref domain.ListingRef, date domain.Date) (*pricing.AvailabilityResult, error)
	// GetActiveDeal returns the deal applying on a date, nil when none does
	GetActiveDeal(ctx context.Context, ref domain.ListingRef, date domain.Date) (*domain.TimeBoundDeal, error)
	// GetEffectivePrice quotes one date; basePrice defaults to the listing's base price
	GetEffectivePrice(ctx context.Context, ref domain.ListingRef, date domain.Date, basePrice *float64) (*PriceQuote, error)
	// GetCalendar quotes every date of an inclusive range
	GetCalendar(ctx context.Context, ref domain.ListingRef, start, end domain.Date, basePrice *float64) (*CalendarQuote, error)
}

// CalendarService defines the interface for owner calendar changes
type CalendarService interface {
	// SetAvailability creates or replaces a date's availability
	SetAvailability(ctx context.Context, actor Actor, ref domain.ListingRef, date domain.Date, req *dto.SetAvailabilityRequest) (*domain.AvailabilityRecord, error)
	// SetPriceSlot creates or replaces a date's price multiplier
	SetPriceSlot(ctx context.Context, actor Actor, ref domain.ListingRef, date domain.Date, req *dto.SetPriceSlotRequest) (*domain.PriceSlot, error)
	// CreateDeal creates an active time-bound deal
	CreateDeal(ctx context.Context, actor Actor, ref domain.ListingRef, req *dto.CreateDealRequest) (*domain.TimeBoundDeal, error)
	// DeactivateDeal switches a deal off
	DeactivateDeal(ctx context.Context, actor Actor, dealID string) (*domain.TimeBoundDeal, error)
	// ExpireEndedDeals deactivates a batch of deals that ended before today
	ExpireEndedDeals(ctx context.Context, today domain.Date, batchSize int) (int, error)
}

// ModerationService defines the interface for admin listing review
type ModerationService interface {
	// ListListings lists listings, typically the pending queue
	ListListings(ctx context.Context, filter *dto.ListingListFilter) ([]*domain.Listing, int, error)
	// Approve makes a listing public
	Approve(ctx context.Context, actor Actor, ref domain.ListingRef) (*domain.Listing, error)
	// Reject hides a listing with a reason
	Reject(ctx context.Context, actor Actor, ref domain.ListingRef, req *dto.RejectListingRequest) (*domain.Listing, error)
}

// EventPublisher publishes listing events keyed by listing
type EventPublisher interface {
	Publish(ctx context.Context, key string, event interface{}) error
}

// PriceQuote is a single-date quote with the listing's currency
type PriceQuote struct {
	pricing.Quote
	Currency string
}

// CalendarQuote is a range of quotes with the listing's currency
type CalendarQuote struct {
	Start    domain.Date
	End      domain.Date
	Currency string
	Days     []pricing.Quote
}
