package repository

import (
	"context"
	"sync"
	"time"

	"github.com/prohmpiriya/wedding-market/internal/domain"
)

// MemoryListingRepository implements ListingRepository using in-memory storage
type MemoryListingRepository struct {
	listings map[domain.ListingRef]*domain.Listing
	order    []domain.ListingRef
	mu       sync.RWMutex
}

// NewMemoryListingRepository creates a new in-memory listing repository
func NewMemoryListingRepository() *MemoryListingRepository {
	return &MemoryListingRepository{
		listings: make(map[domain.ListingRef]*domain.Listing),
	}
}

// Create stores a new listing
func (r *MemoryListingRepository) Create(ctx context.Context, listing *domain.Listing) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if listing.Ref.IsZero() {
		return domain.ErrInvalidListingID
	}
	if _, exists := r.listings[listing.Ref]; exists {
		return domain.ErrListingAlreadyExists
	}

	l := *listing
	r.listings[l.Ref] = &l
	r.order = append(r.order, l.Ref)
	return nil
}

// GetByRef retrieves a listing by kind and ID
func (r *MemoryListingRepository) GetByRef(ctx context.Context, ref domain.ListingRef) (*domain.Listing, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	listing, exists := r.listings[ref]
	if !exists {
		return nil, domain.ErrListingNotFound
	}
	l := *listing
	return &l, nil
}

// List lists listings in insertion order
func (r *MemoryListingRepository) List(ctx context.Context, filter *domain.ListingFilter) ([]*domain.Listing, int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	matched := make([]*domain.Listing, 0, len(r.order))
	for _, ref := range r.order {
		l := r.listings[ref]
		if filter != nil {
			if filter.Kind != "" && l.Ref.Kind() != filter.Kind {
				continue
			}
			if filter.Status != "" && l.Status != filter.Status {
				continue
			}
		}
		matched = append(matched, l)
	}

	total := len(matched)
	limit, offset := 20, 0
	if filter != nil {
		if filter.Limit > 0 {
			limit = filter.Limit
		}
		offset = filter.Offset
	}

	// Apply pagination
	if offset >= total {
		return []*domain.Listing{}, total, nil
	}
	end := offset + limit
	if end > total {
		end = total
	}

	result := make([]*domain.Listing, 0, end-offset)
	for _, l := range matched[offset:end] {
		c := *l
		result = append(result, &c)
	}
	return result, total, nil
}

// UpdateStatus records a moderation decision
func (r *MemoryListingRepository) UpdateStatus(ctx context.Context, ref domain.ListingRef, status domain.ModerationStatus, reason, moderatedBy string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	listing, exists := r.listings[ref]
	if !exists {
		return domain.ErrListingNotFound
	}

	now := time.Now()
	listing.Status = status
	listing.RejectionReason = reason
	listing.ModeratedBy = moderatedBy
	listing.ModeratedAt = &now
	listing.UpdatedAt = now
	return nil
}
