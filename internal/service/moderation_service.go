package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/prohmpiriya/wedding-market/internal/domain"
	"github.com/prohmpiriya/wedding-market/internal/dto"
	"github.com/prohmpiriya/wedding-market/internal/metrics"
	"github.com/prohmpiriya/wedding-market/internal/repository"
	"github.com/prohmpiriya/wedding-market/pkg/logger"
)

// moderationService implements the ModerationService interface
type moderationService struct {
	listings  repository.ListingRepository
	publisher EventPublisher
	log       *logger.Logger
}

// NewModerationService creates a new ModerationService
func NewModerationService(listings repository.ListingRepository, publisher EventPublisher, log *logger.Logger) ModerationService {
	if log == nil {
		log = logger.Get()
	}
	if publisher == nil {
		publisher = NewLogEventPublisher(log)
	}
	return &moderationService{
		listings:  listings,
		publisher: publisher,
		log:       log,
	}
}

// ListListings lists listings matching the filter
func (s *moderationService) ListListings(ctx context.Context, filter *dto.ListingListFilter) ([]*domain.Listing, int, error) {
	if filter == nil {
		filter = &dto.ListingListFilter{}
	}
	if valid, msg := filter.Validate(); !valid {
		return nil, 0, invalidRequest(msg)
	}
	filter.SetDefaults()
	return s.listings.List(ctx, filter.ToDomain())
}

// Approve makes a listing public
func (s *moderationService) Approve(ctx context.Context, actor Actor, ref domain.ListingRef) (*domain.Listing, error) {
	return s.moderate(ctx, actor, ref, domain.ModerationApproved, "")
}

// Reject hides a listing with a reason
func (s *moderationService) Reject(ctx context.Context, actor Actor, ref domain.ListingRef, req *dto.RejectListingRequest) (*domain.Listing, error) {
	if req == nil || req.Reason == "" {
		return nil, domain.ErrRejectionReasonRequired
	}
	if valid, msg := req.Validate(); !valid {
		return nil, invalidRequest(msg)
	}
	return s.moderate(ctx, actor, ref, domain.ModerationRejected, req.Reason)
}

func (s *moderationService) moderate(ctx context.Context, actor Actor, ref domain.ListingRef, status domain.ModerationStatus, reason string) (*domain.Listing, error) {
	listing, err := s.listings.GetByRef(ctx, ref)
	if err != nil {
		return nil, err
	}
	if listing.Status == status {
		return nil, domain.ErrListingAlreadyModerated
	}

	if err := s.listings.UpdateStatus(ctx, ref, status, reason, actor.UserID); err != nil {
		return nil, err
	}

	now := time.Now()
	listing.Status = status
	listing.RejectionReason = reason
	listing.ModeratedBy = actor.UserID
	listing.ModeratedAt = &now
	listing.UpdatedAt = now

	metrics.RecordModeration(ctx, string(status))

	event := &domain.ListingModeratedEvent{
		EventID:    uuid.New().String(),
		EventType:  domain.EventListingModerated,
		Listing:    ref,
		Status:     status,
		Reason:     reason,
		ActorID:    actor.UserID,
		OccurredAt: now.UTC(),
	}
	if err := s.publisher.Publish(ctx, ref.String(), event); err != nil {
		metrics.RecordPublishFailure(ctx, event.EventType)
		s.log.WithContext(ctx).Error("failed to publish moderation decision",
			zap.String("listing", ref.String()),
			zap.String("status", string(status)),
			zap.Error(err),
		)
	}

	return listing, nil
}
