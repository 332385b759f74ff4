package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/prohmpiriya/wedding-market/internal/domain"
)

type calendarKey struct {
	listing domain.ListingRef
	date    domain.Date
}

// MemoryCalendarRepository implements CalendarRepository using in-memory storage.
// This is useful for testing and development. Deals keep insertion order.
type MemoryCalendarRepository struct {
	availability map[calendarKey]domain.AvailabilityRecord
	slots        map[calendarKey]domain.PriceSlot
	deals        []*domain.TimeBoundDeal
	dealsByID    map[string]*domain.TimeBoundDeal
	mu           sync.RWMutex
}

// NewMemoryCalendarRepository creates a new in-memory calendar repository
func NewMemoryCalendarRepository() *MemoryCalendarRepository {
	return &MemoryCalendarRepository{
		availability: make(map[calendarKey]domain.AvailabilityRecord),
		slots:        make(map[calendarKey]domain.PriceSlot),
		dealsByID:    make(map[string]*domain.TimeBoundDeal),
	}
}

func inRange(d domain.Date, start, end *domain.Date) bool {
	if start != nil && d.Before(*start) {
		return false
	}
	if end != nil && d.After(*end) {
		return false
	}
	return true
}

// FetchAvailability returns availability records in the inclusive date range
func (r *MemoryCalendarRepository) FetchAvailability(ctx context.Context, ref *domain.ListingRef, start, end *domain.Date) ([]domain.AvailabilityRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := []domain.AvailabilityRecord{}
	for k, rec := range r.availability {
		if ref != nil && k.listing != *ref {
			continue
		}
		if inRange(k.date, start, end) {
			result = append(result, rec)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Listing != result[j].Listing {
			return result[i].Listing.String() < result[j].Listing.String()
		}
		return result[i].Date.Before(result[j].Date)
	})
	return result, nil
}

// FetchPriceSlots returns price slots in the inclusive date range
func (r *MemoryCalendarRepository) FetchPriceSlots(ctx context.Context, ref *domain.ListingRef, start, end *domain.Date) ([]domain.PriceSlot, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := []domain.PriceSlot{}
	for k, slot := range r.slots {
		if ref != nil && k.listing != *ref {
			continue
		}
		if inRange(k.date, start, end) {
			result = append(result, slot)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Listing != result[j].Listing {
			return result[i].Listing.String() < result[j].Listing.String()
		}
		return result[i].Date.Before(result[j].Date)
	})
	return result, nil
}

func overlapsRange(deal *domain.TimeBoundDeal, start, end *domain.Date) bool {
	from, to := deal.StartDate, deal.EndDate
	if start != nil {
		from = *start
	}
	if end != nil {
		to = *end
	}
	return deal.Overlaps(from, to)
}

// FetchActiveDeals returns active deals overlapping the range, ordered by start
// date with insertion order breaking ties
func (r *MemoryCalendarRepository) FetchActiveDeals(ctx context.Context, ref *domain.ListingRef, start, end *domain.Date) ([]domain.TimeBoundDeal, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := []domain.TimeBoundDeal{}
	for _, deal := range r.deals {
		if !deal.IsActive {
			continue
		}
		if ref != nil && deal.Listing != *ref {
			continue
		}
		if !overlapsRange(deal, start, end) {
			continue
		}
		result = append(result, *deal)
	}
	sort.SliceStable(result, func(i, j int) bool {
		return result[i].StartDate.Before(result[j].StartDate)
	})
	return result, nil
}

// UpsertAvailability creates or replaces an availability record
func (r *MemoryCalendarRepository) UpsertAvailability(ctx context.Context, rec *domain.AvailabilityRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec.UpdatedAt = time.Now()
	r.availability[calendarKey{rec.Listing, rec.Date}] = *rec
	return nil
}

// UpsertPriceSlot creates or replaces a price slot
func (r *MemoryCalendarRepository) UpsertPriceSlot(ctx context.Context, slot *domain.PriceSlot) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	slot.UpdatedAt = time.Now()
	r.slots[calendarKey{slot.Listing, slot.Date}] = *slot
	return nil
}

// CreateDeal stores a new deal
func (r *MemoryCalendarRepository) CreateDeal(ctx context.Context, deal *domain.TimeBoundDeal) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.dealsByID[deal.ID]; exists {
		return domain.ErrDealAlreadyExists
	}

	// Clone deal to avoid external modifications
	d := *deal
	r.deals = append(r.deals, &d)
	r.dealsByID[d.ID] = &d
	return nil
}

// GetDeal retrieves a deal by ID
func (r *MemoryCalendarRepository) GetDeal(ctx context.Context, id string) (*domain.TimeBoundDeal, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	deal, exists := r.dealsByID[id]
	if !exists {
		return nil, domain.ErrDealNotFound
	}
	d := *deal
	return &d, nil
}

// SetDealActive flips a deal's is_active flag
func (r *MemoryCalendarRepository) SetDealActive(ctx context.Context, id string, active bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	deal, exists := r.dealsByID[id]
	if !exists {
		return domain.ErrDealNotFound
	}
	deal.IsActive = active
	deal.UpdatedAt = time.Now()
	return nil
}

// DeactivateEndedDeals deactivates up to limit active deals that ended before the given date
func (r *MemoryCalendarRepository) DeactivateEndedDeals(ctx context.Context, before domain.Date, limit int) ([]domain.TimeBoundDeal, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()
	result := []domain.TimeBoundDeal{}
	for _, deal := range r.deals {
		if limit > 0 && len(result) >= limit {
			break
		}
		if deal.IsActive && deal.EndDate.Before(before) {
			deal.IsActive = false
			deal.UpdatedAt = now
			result = append(result, *deal)
		}
	}
	return result, nil
}
