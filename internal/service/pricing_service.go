package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/prohmpiriya/wedding-market/internal/domain"
	"github.com/prohmpiriya/wedding-market/internal/metrics"
	"github.com/prohmpiriya/wedding-market/internal/pricing"
	"github.com/prohmpiriya/wedding-market/internal/repository"
	"github.com/prohmpiriya/wedding-market/pkg/logger"
)

// DefaultMaxRangeDays caps calendar queries when no limit is configured
const DefaultMaxRangeDays = 366

// PricingServiceConfig holds pricing service settings
type PricingServiceConfig struct {
	MaxRangeDays int
}

// pricingService implements the PricingService interface
type pricingService struct {
	calendar     pricing.CalendarSource
	listings     repository.ListingRepository
	maxRangeDays int
	log          *logger.Logger
}

// NewPricingService creates a new PricingService
func NewPricingService(calendar pricing.CalendarSource, listings repository.ListingRepository, cfg *PricingServiceConfig, log *logger.Logger) PricingService {
	maxDays := DefaultMaxRangeDays
	if cfg != nil && cfg.MaxRangeDays > 0 {
		maxDays = cfg.MaxRangeDays
	}
	if log == nil {
		log = logger.Get()
	}
	return &pricingService{
		calendar:     calendar,
		listings:     listings,
		maxRangeDays: maxDays,
		log:          log,
	}
}

// GetAvailability resolves a date's availability
func (s *pricingService) GetAvailability(ctx context.Context, ref domain.ListingRef, date domain.Date) (*pricing.AvailabilityResult, error) {
	e, err := s.load(ctx, ref, date, date)
	if err != nil {
		return nil, err
	}
	result := e.ResolveAvailability(date)
	metrics.RecordQuote(ctx, string(ref.Kind()), "availability")
	return &result, nil
}

// GetActiveDeal returns the deal covering date, or nil
func (s *pricingService) GetActiveDeal(ctx context.Context, ref domain.ListingRef, date domain.Date) (*domain.TimeBoundDeal, error) {
	e, err := s.load(ctx, ref, date, date)
	if err != nil {
		return nil, err
	}
	metrics.RecordQuote(ctx, string(ref.Kind()), "deal")
	deal, ok := e.FindActiveDeal(date)
	if !ok {
		return nil, nil
	}
	return &deal, nil
}

// GetEffectivePrice quotes one date
func (s *pricingService) GetEffectivePrice(ctx context.Context, ref domain.ListingRef, date domain.Date, basePrice *float64) (*PriceQuote, error) {
	base, currency, err := s.resolveBasePrice(ctx, ref, basePrice)
	if err != nil {
		return nil, err
	}

	e, err := s.load(ctx, ref, date, date)
	if err != nil {
		return nil, err
	}
	metrics.RecordQuote(ctx, string(ref.Kind()), "price")
	return &PriceQuote{Quote: e.Quote(base, date), Currency: currency}, nil
}

// GetCalendar quotes every date of [start, end]
func (s *pricingService) GetCalendar(ctx context.Context, ref domain.ListingRef, start, end domain.Date, basePrice *float64) (*CalendarQuote, error) {
	if end.Before(start) {
		return nil, domain.ErrInvalidDateRange
	}
	if days := start.DaysUntil(end) + 1; days > s.maxRangeDays {
		return nil, fmt.Errorf("%w: %d days requested, at most %d allowed", domain.ErrRangeTooLarge, days, s.maxRangeDays)
	}

	base, currency, err := s.resolveBasePrice(ctx, ref, basePrice)
	if err != nil {
		return nil, err
	}

	e, err := s.load(ctx, ref, start, end)
	if err != nil {
		return nil, err
	}
	metrics.RecordQuote(ctx, string(ref.Kind()), "calendar")
	return &CalendarQuote{
		Start:    start,
		End:      end,
		Currency: currency,
		Days:     e.Calendar(base, start, end),
	}, nil
}

// resolveBasePrice returns the explicit base price, or the listing's own
func (s *pricingService) resolveBasePrice(ctx context.Context, ref domain.ListingRef, basePrice *float64) (float64, string, error) {
	if basePrice != nil {
		if *basePrice <= 0 {
			return 0, "", domain.ErrInvalidBasePrice
		}
		return *basePrice, "", nil
	}

	listing, err := s.listings.GetByRef(ctx, ref)
	if err != nil {
		return 0, "", err
	}
	if listing.BasePrice <= 0 {
		return 0, "", domain.ErrInvalidBasePrice
	}
	return listing.BasePrice, listing.Currency, nil
}

// load fetches one snapshot for ref over [start, end]
func (s *pricingService) load(ctx context.Context, ref domain.ListingRef, start, end domain.Date) (*pricing.Evaluator, error) {
	loader := pricing.NewSnapshotLoader(s.calendar, s.log)
	q := pricing.Query{Listing: ref, Start: start, End: end}

	began := time.Now()
	e, err := loader.Load(ctx, q)
	metrics.RecordSnapshotLoad(ctx, string(ref.Kind()), q.Days(), time.Since(began).Seconds())
	if err != nil {
		var loadErr *pricing.LoadError
		switch {
		case errors.As(err, &loadErr):
			metrics.RecordSnapshotFailure(ctx, loadErr.Source)
		case errors.Is(err, pricing.ErrStaleLoad):
			metrics.RecordStaleLoad(ctx)
		}
		return nil, err
	}
	return e, nil
}
