package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/prohmpiriya/wedding-market/internal/domain"
	"github.com/prohmpiriya/wedding-market/pkg/redis"
)

const (
	// Cache key prefix; every key of a listing lives under pricing:<kind>:<id>:
	calendarKeyPrefix = "pricing:"

	// Default TTL for calendar caches
	defaultCalendarCacheTTL = 2 * time.Minute
)

// CachedCalendarRepository wraps CalendarRepository with Redis read-through caching.
// Only fully bounded single-listing reads are cached; writes invalidate the listing.
type CachedCalendarRepository struct {
	repo  CalendarRepository
	cache *redis.Client
	ttl   time.Duration
}

// NewCachedCalendarRepository creates a new CachedCalendarRepository
func NewCachedCalendarRepository(repo CalendarRepository, cache *redis.Client, ttl time.Duration) *CachedCalendarRepository {
	if ttl <= 0 {
		ttl = defaultCalendarCacheTTL
	}
	return &CachedCalendarRepository{
		repo:  repo,
		cache: cache,
		ttl:   ttl,
	}
}

func listingPrefix(ref domain.ListingRef) string {
	return calendarKeyPrefix + ref.String() + ":"
}

func listingKey(ref domain.ListingRef, set string, start, end domain.Date) string {
	return fmt.Sprintf("%s%s:%s:%s", listingPrefix(ref), set, start, end)
}

func cacheable(ref *domain.ListingRef, start, end *domain.Date) bool {
	return ref != nil && !ref.IsZero() && start != nil && end != nil
}

// FetchAvailability retrieves availability with caching
func (r *CachedCalendarRepository) FetchAvailability(ctx context.Context, ref *domain.ListingRef, start, end *domain.Date) ([]domain.AvailabilityRecord, error) {
	if !cacheable(ref, start, end) {
		return r.repo.FetchAvailability(ctx, ref, start, end)
	}

	cacheKey := listingKey(*ref, "avail", *start, *end)
	var records []domain.AvailabilityRecord
	if r.getCached(ctx, cacheKey, &records) {
		return records, nil
	}

	records, err := r.repo.FetchAvailability(ctx, ref, start, end)
	if err != nil {
		return nil, err
	}
	r.setCached(ctx, cacheKey, records)
	return records, nil
}

// FetchPriceSlots retrieves price slots with caching
func (r *CachedCalendarRepository) FetchPriceSlots(ctx context.Context, ref *domain.ListingRef, start, end *domain.Date) ([]domain.PriceSlot, error) {
	if !cacheable(ref, start, end) {
		return r.repo.FetchPriceSlots(ctx, ref, start, end)
	}

	cacheKey := listingKey(*ref, "slots", *start, *end)
	var slots []domain.PriceSlot
	if r.getCached(ctx, cacheKey, &slots) {
		return slots, nil
	}

	slots, err := r.repo.FetchPriceSlots(ctx, ref, start, end)
	if err != nil {
		return nil, err
	}
	r.setCached(ctx, cacheKey, slots)
	return slots, nil
}

// FetchActiveDeals retrieves active deals with caching
func (r *CachedCalendarRepository) FetchActiveDeals(ctx context.Context, ref *domain.ListingRef, start, end *domain.Date) ([]domain.TimeBoundDeal, error) {
	if !cacheable(ref, start, end) {
		return r.repo.FetchActiveDeals(ctx, ref, start, end)
	}

	cacheKey := listingKey(*ref, "deals", *start, *end)
	var deals []domain.TimeBoundDeal
	if r.getCached(ctx, cacheKey, &deals) {
		return deals, nil
	}

	deals, err := r.repo.FetchActiveDeals(ctx, ref, start, end)
	if err != nil {
		return nil, err
	}
	r.setCached(ctx, cacheKey, deals)
	return deals, nil
}

// UpsertAvailability writes through and invalidates the listing
func (r *CachedCalendarRepository) UpsertAvailability(ctx context.Context, rec *domain.AvailabilityRecord) error {
	if err := r.repo.UpsertAvailability(ctx, rec); err != nil {
		return err
	}
	r.invalidate(ctx, rec.Listing)
	return nil
}

// UpsertPriceSlot writes through and invalidates the listing
func (r *CachedCalendarRepository) UpsertPriceSlot(ctx context.Context, slot *domain.PriceSlot) error {
	if err := r.repo.UpsertPriceSlot(ctx, slot); err != nil {
		return err
	}
	r.invalidate(ctx, slot.Listing)
	return nil
}

// CreateDeal writes through and invalidates the listing
func (r *CachedCalendarRepository) CreateDeal(ctx context.Context, deal *domain.TimeBoundDeal) error {
	if err := r.repo.CreateDeal(ctx, deal); err != nil {
		return err
	}
	r.invalidate(ctx, deal.Listing)
	return nil
}

// GetDeal bypasses the cache
func (r *CachedCalendarRepository) GetDeal(ctx context.Context, id string) (*domain.TimeBoundDeal, error) {
	return r.repo.GetDeal(ctx, id)
}

// SetDealActive writes through and invalidates the deal's listing
func (r *CachedCalendarRepository) SetDealActive(ctx context.Context, id string, active bool) error {
	deal, err := r.repo.GetDeal(ctx, id)
	if err != nil {
		return err
	}
	if err := r.repo.SetDealActive(ctx, id, active); err != nil {
		return err
	}
	r.invalidate(ctx, deal.Listing)
	return nil
}

// DeactivateEndedDeals writes through and invalidates every affected listing
func (r *CachedCalendarRepository) DeactivateEndedDeals(ctx context.Context, before domain.Date, limit int) ([]domain.TimeBoundDeal, error) {
	deals, err := r.repo.DeactivateEndedDeals(ctx, before, limit)
	if err != nil {
		return nil, err
	}
	seen := make(map[domain.ListingRef]struct{}, len(deals))
	for _, d := range deals {
		if _, ok := seen[d.Listing]; ok {
			continue
		}
		seen[d.Listing] = struct{}{}
		r.invalidate(ctx, d.Listing)
	}
	return deals, nil
}

// InvalidateListing drops every cached entry for the listing
func (r *CachedCalendarRepository) InvalidateListing(ctx context.Context, ref domain.ListingRef) error {
	if ref.IsZero() {
		return nil
	}
	_, err := r.cache.DeleteByPattern(ctx, listingPrefix(ref)+"*")
	return err
}

func (r *CachedCalendarRepository) invalidate(ctx context.Context, ref domain.ListingRef) {
	// Ignore errors; entries expire with the TTL anyway
	_ = r.InvalidateListing(ctx, ref)
}

func (r *CachedCalendarRepository) getCached(ctx context.Context, key string, dest interface{}) bool {
	cached, err := r.cache.Get(ctx, key).Result()
	if err != nil || cached == "" {
		return false
	}
	return json.Unmarshal([]byte(cached), dest) == nil
}

func (r *CachedCalendarRepository) setCached(ctx context.Context, key string, value interface{}) {
	data, err := json.Marshal(value)
	if err != nil {
		return
	}
	r.cache.Set(ctx, key, data, r.ttl)
}
