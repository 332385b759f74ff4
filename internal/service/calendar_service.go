package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/prohmpiriya/wedding-market/internal/domain"
	"github.com/prohmpiriya/wedding-market/internal/dto"
	"github.com/prohmpiriya/wedding-market/internal/metrics"
	"github.com/prohmpiriya/wedding-market/internal/repository"
	"github.com/prohmpiriya/wedding-market/pkg/logger"
)

// calendarService implements the CalendarService interface
type calendarService struct {
	calendar  repository.CalendarRepository
	listings  repository.ListingRepository
	publisher EventPublisher
	log       *logger.Logger
}

// NewCalendarService creates a new CalendarService
func NewCalendarService(calendar repository.CalendarRepository, listings repository.ListingRepository, publisher EventPublisher, log *logger.Logger) CalendarService {
	if log == nil {
		log = logger.Get()
	}
	if publisher == nil {
		publisher = NewLogEventPublisher(log)
	}
	return &calendarService{
		calendar:  calendar,
		listings:  listings,
		publisher: publisher,
		log:       log,
	}
}

func invalidRequest(msg string) error {
	return fmt.Errorf("%w: %s", domain.ErrInvalidRequest, msg)
}

// SetAvailability creates or replaces a date's availability
func (s *calendarService) SetAvailability(ctx context.Context, actor Actor, ref domain.ListingRef, date domain.Date, req *dto.SetAvailabilityRequest) (*domain.AvailabilityRecord, error) {
	if valid, msg := req.Validate(); !valid {
		return nil, invalidRequest(msg)
	}
	if date.IsZero() {
		return nil, domain.ErrInvalidDate
	}
	if _, err := s.authorize(ctx, actor, ref); err != nil {
		return nil, err
	}

	rec := &domain.AvailabilityRecord{
		Listing:        ref,
		Date:           date,
		IsAvailable:    *req.IsAvailable,
		RemainingSlots: req.RemainingSlots,
	}
	if err := s.calendar.UpsertAvailability(ctx, rec); err != nil {
		return nil, err
	}

	metrics.RecordCalendarWrite(ctx, string(ref.Kind()), domain.ChangeAvailability)
	s.publishCalendarChange(ctx, actor, ref, domain.ChangeAvailability, []domain.Date{date}, nil)
	return rec, nil
}

// SetPriceSlot creates or replaces a date's price multiplier
func (s *calendarService) SetPriceSlot(ctx context.Context, actor Actor, ref domain.ListingRef, date domain.Date, req *dto.SetPriceSlotRequest) (*domain.PriceSlot, error) {
	if valid, msg := req.Validate(); !valid {
		return nil, invalidRequest(msg)
	}
	if date.IsZero() {
		return nil, domain.ErrInvalidDate
	}
	if _, err := s.authorize(ctx, actor, ref); err != nil {
		return nil, err
	}

	slot := &domain.PriceSlot{
		Listing:         ref,
		Date:            date,
		PriceMultiplier: req.PriceMultiplier,
	}
	if err := s.calendar.UpsertPriceSlot(ctx, slot); err != nil {
		return nil, err
	}

	metrics.RecordCalendarWrite(ctx, string(ref.Kind()), domain.ChangePriceSlot)
	s.publishCalendarChange(ctx, actor, ref, domain.ChangePriceSlot, []domain.Date{date}, nil)
	return slot, nil
}

// CreateDeal creates an active deal for the listing
func (s *calendarService) CreateDeal(ctx context.Context, actor Actor, ref domain.ListingRef, req *dto.CreateDealRequest) (*domain.TimeBoundDeal, error) {
	if valid, msg := req.Validate(); !valid {
		return nil, invalidRequest(msg)
	}
	if _, err := s.authorize(ctx, actor, ref); err != nil {
		return nil, err
	}

	// Validate already parsed both dates
	start, _ := domain.ParseDate(req.StartDate)
	end, _ := domain.ParseDate(req.EndDate)

	now := time.Now()
	deal := &domain.TimeBoundDeal{
		ID:                 uuid.New().String(),
		Listing:            ref,
		Title:              req.Title,
		StartDate:          start,
		EndDate:            end,
		DiscountPercentage: req.DiscountPercentage,
		IsActive:           true,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	if err := s.calendar.CreateDeal(ctx, deal); err != nil {
		return nil, err
	}

	metrics.RecordCalendarWrite(ctx, string(ref.Kind()), domain.ChangeDealCreated)
	s.publishCalendarChange(ctx, actor, ref, domain.ChangeDealCreated, []domain.Date{start, end}, []string{deal.ID})
	return deal, nil
}

// DeactivateDeal switches a deal off
func (s *calendarService) DeactivateDeal(ctx context.Context, actor Actor, dealID string) (*domain.TimeBoundDeal, error) {
	if _, err := uuid.Parse(dealID); err != nil {
		return nil, domain.ErrInvalidDealID
	}

	deal, err := s.calendar.GetDeal(ctx, dealID)
	if err != nil {
		return nil, err
	}
	if _, err := s.authorize(ctx, actor, deal.Listing); err != nil {
		return nil, err
	}
	if !deal.IsActive {
		return nil, domain.ErrDealAlreadyInactive
	}

	if err := s.calendar.SetDealActive(ctx, dealID, false); err != nil {
		return nil, err
	}
	deal.IsActive = false
	deal.UpdatedAt = time.Now()

	metrics.RecordCalendarWrite(ctx, string(deal.Listing.Kind()), domain.ChangeDealDeactivated)
	s.publishCalendarChange(ctx, actor, deal.Listing, domain.ChangeDealDeactivated, []domain.Date{deal.StartDate, deal.EndDate}, []string{deal.ID})
	return deal, nil
}

// ExpireEndedDeals deactivates deals whose end date is before today and
// publishes one event per affected listing
func (s *calendarService) ExpireEndedDeals(ctx context.Context, today domain.Date, batchSize int) (int, error) {
	deals, err := s.calendar.DeactivateEndedDeals(ctx, today, batchSize)
	if err != nil {
		return 0, err
	}
	if len(deals) == 0 {
		return 0, nil
	}

	byListing := make(map[domain.ListingRef][]string)
	var order []domain.ListingRef
	for _, d := range deals {
		if _, seen := byListing[d.Listing]; !seen {
			order = append(order, d.Listing)
		}
		byListing[d.Listing] = append(byListing[d.Listing], d.ID)
	}

	system := Actor{UserID: "system", Role: RoleAdmin}
	for _, ref := range order {
		s.publishCalendarChange(ctx, system, ref, domain.ChangeDealsExpired, nil, byListing[ref])
	}

	metrics.RecordDealsExpired(ctx, int64(len(deals)))
	return len(deals), nil
}

// authorize loads the listing and checks the actor may change it
func (s *calendarService) authorize(ctx context.Context, actor Actor, ref domain.ListingRef) (*domain.Listing, error) {
	if ref.IsZero() {
		return nil, domain.ErrInvalidListingID
	}
	listing, err := s.listings.GetByRef(ctx, ref)
	if err != nil {
		return nil, err
	}
	if !actor.IsAdmin() && listing.OwnerID != actor.UserID {
		return nil, fmt.Errorf("%s: %w", ref, domain.ErrNotListingOwner)
	}
	return listing, nil
}

// publishCalendarChange publishes after the write committed; failures are logged, not returned
func (s *calendarService) publishCalendarChange(ctx context.Context, actor Actor, ref domain.ListingRef, change string, dates []domain.Date, dealIDs []string) {
	event := &domain.CalendarChangedEvent{
		EventID:    uuid.New().String(),
		EventType:  domain.EventCalendarChanged,
		Listing:    ref,
		Change:     change,
		Dates:      dates,
		DealIDs:    dealIDs,
		ActorID:    actor.UserID,
		OccurredAt: time.Now().UTC(),
	}
	if err := s.publisher.Publish(ctx, ref.String(), event); err != nil {
		metrics.RecordPublishFailure(ctx, event.EventType)
		s.log.WithContext(ctx).Error("failed to publish calendar change",
			zap.String("listing", ref.String()),
			zap.String("change", change),
			zap.Error(err),
		)
	}
}
