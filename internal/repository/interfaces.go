package repository

import (
	"context"

	"github.com/prohmpiriya/wedding-market/internal/domain"
)

// CalendarRepository defines the interface for availability, price slot and deal data access.
// Nil filter arguments mean "no constraint".
type CalendarRepository interface {
	// FetchAvailability returns availability records whose date lies in [start, end]
	FetchAvailability(ctx context.Context, ref *domain.ListingRef, start, end *domain.Date) ([]domain.AvailabilityRecord, error)
	// FetchPriceSlots returns price slots whose date lies in [start, end]
	FetchPriceSlots(ctx context.Context, ref *domain.ListingRef, start, end *domain.Date) ([]domain.PriceSlot, error)
	// FetchActiveDeals returns active deals overlapping [start, end], ordered by start date then creation
	FetchActiveDeals(ctx context.Context, ref *domain.ListingRef, start, end *domain.Date) ([]domain.TimeBoundDeal, error)

	// UpsertAvailability creates or replaces the record for (listing, date)
	UpsertAvailability(ctx context.Context, rec *domain.AvailabilityRecord) error
	// UpsertPriceSlot creates or replaces the slot for (listing, date)
	UpsertPriceSlot(ctx context.Context, slot *domain.PriceSlot) error
	// CreateDeal stores a new deal; a duplicate ID returns domain.ErrDealAlreadyExists
	CreateDeal(ctx context.Context, deal *domain.TimeBoundDeal) error
	// GetDeal retrieves a deal by ID, active or not
	GetDeal(ctx context.Context, id string) (*domain.TimeBoundDeal, error)
	// SetDealActive flips a deal's is_active flag
	SetDealActive(ctx context.Context, id string, active bool) error
	// DeactivateEndedDeals deactivates up to limit active deals whose end date is before the given date
	// and returns them
	DeactivateEndedDeals(ctx context.Context, before domain.Date, limit int) ([]domain.TimeBoundDeal, error)
}

// ListingRepository defines the interface for venue and vendor listing data access
type ListingRepository interface {
	// Create stores a new listing; an existing (kind, id) returns domain.ErrListingAlreadyExists
	Create(ctx context.Context, listing *domain.Listing) error
	// GetByRef retrieves a listing by kind and ID
	GetByRef(ctx context.Context, ref domain.ListingRef) (*domain.Listing, error)
	// List lists listings with filters and pagination, returning the total count
	List(ctx context.Context, filter *domain.ListingFilter) ([]*domain.Listing, int, error)
	// UpdateStatus records a moderation decision
	UpdateStatus(ctx context.Context, ref domain.ListingRef, status domain.ModerationStatus, reason, moderatedBy string) error
}
