package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/prohmpiriya/wedding-market/internal/domain"
	"github.com/prohmpiriya/wedding-market/internal/dto"
	"github.com/prohmpiriya/wedding-market/internal/pricing"
	"github.com/prohmpiriya/wedding-market/internal/repository"
	"github.com/prohmpiriya/wedding-market/pkg/logger"
	"github.com/prohmpiriya/wedding-market/pkg/retry"
)

var (
	d      = domain.MustParseDate
	venue  = domain.VenueRef("V1")
	owner  = Actor{UserID: "owner-1", Role: RoleVenue}
	admin  = Actor{UserID: "admin-1", Role: RoleAdmin}
	other  = Actor{UserID: "owner-2", Role: RoleVenue}
	noLogs = logger.NewNop()
)

// recordingPublisher captures published events
type recordingPublisher struct {
	mu     sync.Mutex
	keys   []string
	events []interface{}
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, key string, event interface{}) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.keys = append(p.keys, key)
	p.events = append(p.events, event)
	return p.err
}

func (p *recordingPublisher) calendarEvents() []*domain.CalendarChangedEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []*domain.CalendarChangedEvent
	for _, e := range p.events {
		if ce, ok := e.(*domain.CalendarChangedEvent); ok {
			out = append(out, ce)
		}
	}
	return out
}

type fixture struct {
	calendar  *repository.MemoryCalendarRepository
	listings  *repository.MemoryListingRepository
	publisher *recordingPublisher
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		calendar:  repository.NewMemoryCalendarRepository(),
		listings:  repository.NewMemoryListingRepository(),
		publisher: &recordingPublisher{},
	}
	require.NoError(t, f.listings.Create(context.Background(), &domain.Listing{
		Ref:       venue,
		OwnerID:   owner.UserID,
		Name:      "Garden Hall",
		BasePrice: 1000,
		Currency:  "THB",
		Status:    domain.ModerationApproved,
	}))
	return f
}

func (f *fixture) pricing() PricingService {
	return NewPricingService(f.calendar, f.listings, &PricingServiceConfig{MaxRangeDays: 62}, noLogs)
}

func (f *fixture) calendarService() CalendarService {
	return NewCalendarService(f.calendar, f.listings, f.publisher, noLogs)
}

func boolPtr(b bool) *bool        { return &b }
func floatPtr(v float64) *float64 { return &v }

func TestPricingService_ChristmasScenario(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	cal := f.calendarService()

	_, err := cal.SetAvailability(ctx, owner, venue, d("2025-12-25"), &dto.SetAvailabilityRequest{IsAvailable: boolPtr(true), RemainingSlots: 1})
	require.NoError(t, err)
	_, err = cal.SetPriceSlot(ctx, owner, venue, d("2025-12-25"), &dto.SetPriceSlotRequest{PriceMultiplier: 1.2})
	require.NoError(t, err)
	_, err = cal.CreateDeal(ctx, owner, venue, &dto.CreateDealRequest{Title: "Year-end", StartDate: "2025-12-20", EndDate: "2025-12-31", DiscountPercentage: 10})
	require.NoError(t, err)

	svc := f.pricing()

	avail, err := svc.GetAvailability(ctx, venue, d("2025-12-25"))
	require.NoError(t, err)
	assert.Equal(t, pricing.AvailabilityResult{Available: true, RemainingSlots: 1, UrgencyLevel: domain.UrgencyHigh}, *avail)

	deal, err := svc.GetActiveDeal(ctx, venue, d("2025-12-25"))
	require.NoError(t, err)
	require.NotNil(t, deal)
	assert.Equal(t, "Year-end", deal.Title)

	quote, err := svc.GetEffectivePrice(ctx, venue, d("2025-12-25"), nil)
	require.NoError(t, err)
	assert.InDelta(t, 1080.0, quote.EffectivePrice, 1e-9)
	assert.Equal(t, "THB", quote.Currency)

	explicit, err := svc.GetEffectivePrice(ctx, venue, d("2025-12-25"), floatPtr(500))
	require.NoError(t, err)
	assert.InDelta(t, 540.0, explicit.EffectivePrice, 1e-9)
}

func TestPricingService_DefaultsWithoutRecords(t *testing.T) {
	f := newFixture(t)
	svc := f.pricing()
	ctx := context.Background()

	avail, err := svc.GetAvailability(ctx, domain.VendorRef("unknown"), d("2025-07-04"))
	require.NoError(t, err)
	assert.True(t, avail.Available)
	assert.Equal(t, 1, avail.RemainingSlots)
	assert.Equal(t, domain.UrgencyNone, avail.UrgencyLevel)

	deal, err := svc.GetActiveDeal(ctx, venue, d("2025-07-04"))
	require.NoError(t, err)
	assert.Nil(t, deal)

	quote, err := svc.GetEffectivePrice(ctx, venue, d("2025-07-04"), nil)
	require.NoError(t, err)
	assert.Equal(t, 1000.0, quote.EffectivePrice)
}

func TestPricingService_Validation(t *testing.T) {
	f := newFixture(t)
	svc := f.pricing()
	ctx := context.Background()

	_, err := svc.GetEffectivePrice(ctx, venue, d("2025-07-04"), floatPtr(0))
	assert.ErrorIs(t, err, domain.ErrInvalidBasePrice)

	_, err = svc.GetEffectivePrice(ctx, domain.VenueRef("missing"), d("2025-07-04"), nil)
	assert.ErrorIs(t, err, domain.ErrListingNotFound)

	_, err = svc.GetCalendar(ctx, venue, d("2025-07-04"), d("2025-07-01"), nil)
	assert.ErrorIs(t, err, domain.ErrInvalidDateRange)

	_, err = svc.GetCalendar(ctx, venue, d("2025-01-01"), d("2025-12-31"), nil)
	assert.ErrorIs(t, err, domain.ErrRangeTooLarge)
}

func TestPricingService_GetCalendar(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.calendarService().SetAvailability(ctx, owner, venue, d("2025-12-02"), &dto.SetAvailabilityRequest{IsAvailable: boolPtr(false)})
	require.NoError(t, err)

	cal, err := f.pricing().GetCalendar(ctx, venue, d("2025-12-01"), d("2025-12-03"), nil)
	require.NoError(t, err)
	require.Len(t, cal.Days, 3)
	assert.True(t, cal.Days[0].Availability.Available)
	assert.False(t, cal.Days[1].Availability.Available)
	assert.Equal(t, domain.UrgencyNone, cal.Days[1].Availability.UrgencyLevel)
	assert.Equal(t, d("2025-12-03"), cal.Days[2].Date)
}

// failingSource fails deal fetches
type failingSource struct {
	pricing.CalendarSource
}

func (failingSource) FetchActiveDeals(context.Context, *domain.ListingRef, *domain.Date, *domain.Date) ([]domain.TimeBoundDeal, error) {
	return nil, errors.New("deals table unavailable")
}

func TestPricingService_LoadFailure(t *testing.T) {
	f := newFixture(t)
	svc := NewPricingService(failingSource{CalendarSource: f.calendar}, f.listings, nil, noLogs)

	_, err := svc.GetAvailability(context.Background(), venue, d("2025-12-25"))
	var loadErr *pricing.LoadError
	require.ErrorAs(t, err, &loadErr)
	assert.Equal(t, pricing.SourceDeals, loadErr.Source)
}

func TestCalendarService_Ownership(t *testing.T) {
	f := newFixture(t)
	cal := f.calendarService()
	ctx := context.Background()
	req := &dto.SetPriceSlotRequest{PriceMultiplier: 1.5}

	_, err := cal.SetPriceSlot(ctx, other, venue, d("2025-12-25"), req)
	assert.True(t, domain.IsForbiddenError(err))

	_, err = cal.SetPriceSlot(ctx, admin, venue, d("2025-12-25"), req)
	assert.NoError(t, err)

	_, err = cal.SetPriceSlot(ctx, owner, domain.VenueRef("missing"), d("2025-12-25"), req)
	assert.ErrorIs(t, err, domain.ErrListingNotFound)

	assert.Len(t, f.publisher.calendarEvents(), 1, "only the admin write was published")
}

func TestCalendarService_VendorWritesLeaveSameIDVenueUntouched(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	vendor := domain.VendorRef(venue.ID())
	vendorOwner := Actor{UserID: "vendor-owner", Role: RoleVendor}
	require.NoError(t, f.listings.Create(ctx, &domain.Listing{
		Ref: vendor, OwnerID: vendorOwner.UserID, Name: "Band", BasePrice: 1000, Currency: "THB", Status: domain.ModerationApproved,
	}))
	cal := f.calendarService()
	xmas := d("2025-12-25")

	_, err := cal.SetAvailability(ctx, owner, venue, xmas, &dto.SetAvailabilityRequest{IsAvailable: boolPtr(true), RemainingSlots: 1})
	require.NoError(t, err)

	_, err = cal.SetAvailability(ctx, vendorOwner, vendor, xmas, &dto.SetAvailabilityRequest{IsAvailable: boolPtr(false)})
	require.NoError(t, err)
	_, err = cal.SetPriceSlot(ctx, vendorOwner, vendor, xmas, &dto.SetPriceSlotRequest{PriceMultiplier: 5})
	require.NoError(t, err)

	// the vendor owner cannot reach the venue through the shared id
	_, err = cal.SetPriceSlot(ctx, vendorOwner, venue, xmas, &dto.SetPriceSlotRequest{PriceMultiplier: 5})
	assert.True(t, domain.IsForbiddenError(err))

	svc := f.pricing()
	venueAvail, err := svc.GetAvailability(ctx, venue, xmas)
	require.NoError(t, err)
	assert.Equal(t, pricing.AvailabilityResult{Available: true, RemainingSlots: 1, UrgencyLevel: domain.UrgencyHigh}, *venueAvail)
	venueQuote, err := svc.GetEffectivePrice(ctx, venue, xmas, nil)
	require.NoError(t, err)
	assert.InDelta(t, 1000.0, venueQuote.EffectivePrice, 1e-9)

	vendorAvail, err := svc.GetAvailability(ctx, vendor, xmas)
	require.NoError(t, err)
	assert.False(t, vendorAvail.Available)
	vendorQuote, err := svc.GetEffectivePrice(ctx, vendor, xmas, nil)
	require.NoError(t, err)
	assert.InDelta(t, 5000.0, vendorQuote.EffectivePrice, 1e-9)

	for _, ev := range f.publisher.calendarEvents()[1:] {
		assert.Equal(t, vendor, ev.Listing)
	}
}

func TestCalendarService_Validation(t *testing.T) {
	f := newFixture(t)
	cal := f.calendarService()
	ctx := context.Background()

	_, err := cal.SetAvailability(ctx, owner, venue, d("2025-12-25"), &dto.SetAvailabilityRequest{IsAvailable: boolPtr(true), RemainingSlots: -1})
	assert.True(t, domain.IsValidationError(err))

	_, err = cal.SetPriceSlot(ctx, owner, venue, d("2025-12-25"), &dto.SetPriceSlotRequest{PriceMultiplier: 0})
	assert.True(t, domain.IsValidationError(err))

	_, err = cal.CreateDeal(ctx, owner, venue, &dto.CreateDealRequest{Title: "x", StartDate: "2025-12-31", EndDate: "2025-12-01"})
	assert.True(t, domain.IsValidationError(err))

	_, err = cal.DeactivateDeal(ctx, owner, "not-a-uuid")
	assert.ErrorIs(t, err, domain.ErrInvalidDealID)

	assert.Empty(t, f.publisher.calendarEvents())
}

func TestCalendarService_DeactivateDeal(t *testing.T) {
	f := newFixture(t)
	cal := f.calendarService()
	ctx := context.Background()

	deal, err := cal.CreateDeal(ctx, owner, venue, &dto.CreateDealRequest{Title: "Weekday", StartDate: "2025-06-01", EndDate: "2025-06-30", DiscountPercentage: 15})
	require.NoError(t, err)

	_, err = cal.DeactivateDeal(ctx, other, deal.ID)
	assert.True(t, domain.IsForbiddenError(err))

	off, err := cal.DeactivateDeal(ctx, owner, deal.ID)
	require.NoError(t, err)
	assert.False(t, off.IsActive)

	_, err = cal.DeactivateDeal(ctx, owner, deal.ID)
	assert.ErrorIs(t, err, domain.ErrDealAlreadyInactive)

	active, err := f.pricing().GetActiveDeal(ctx, venue, d("2025-06-15"))
	require.NoError(t, err)
	assert.Nil(t, active)

	events := f.publisher.calendarEvents()
	require.Len(t, events, 2)
	assert.Equal(t, domain.ChangeDealCreated, events[0].Change)
	assert.Equal(t, domain.ChangeDealDeactivated, events[1].Change)
	assert.Equal(t, []string{deal.ID}, events[1].DealIDs)
	assert.Equal(t, venue, events[1].Listing)
	assert.Equal(t, "venue:V1", f.publisher.keys[1])
}

func TestCalendarService_PublishFailureDoesNotFailWrite(t *testing.T) {
	f := newFixture(t)
	f.publisher.err = errors.New("broker down")

	rec, err := f.calendarService().SetAvailability(context.Background(), owner, venue, d("2025-12-25"), &dto.SetAvailabilityRequest{IsAvailable: boolPtr(true), RemainingSlots: 2})
	require.NoError(t, err)
	assert.Equal(t, 2, rec.RemainingSlots)
}

func TestCalendarService_ExpireEndedDeals(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	cal := f.calendarService()

	for _, r := range []dto.CreateDealRequest{
		{Title: "old-1", StartDate: "2025-01-01", EndDate: "2025-01-31", DiscountPercentage: 5},
		{Title: "old-2", StartDate: "2025-02-01", EndDate: "2025-02-28", DiscountPercentage: 5},
		{Title: "current", StartDate: "2025-03-01", EndDate: "2025-03-31", DiscountPercentage: 5},
	} {
		_, err := cal.CreateDeal(ctx, owner, venue, &r)
		require.NoError(t, err)
	}

	n, err := cal.ExpireEndedDeals(ctx, d("2025-03-01"), 100)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	events := f.publisher.calendarEvents()
	last := events[len(events)-1]
	assert.Equal(t, domain.ChangeDealsExpired, last.Change)
	assert.Len(t, last.DealIDs, 2)

	n, err = cal.ExpireEndedDeals(ctx, d("2025-03-01"), 100)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestModerationService(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.listings.Create(ctx, &domain.Listing{
		Ref: domain.VendorRef("F1"), OwnerID: "o", Name: "Flower Co", BasePrice: 300, Status: domain.ModerationPending,
	}))
	svc := NewModerationService(f.listings, f.publisher, noLogs)

	pending, total, err := svc.ListListings(ctx, &dto.ListingListFilter{Status: "pending"})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	assert.Equal(t, domain.VendorRef("F1"), pending[0].Ref)

	_, _, err = svc.ListListings(ctx, &dto.ListingListFilter{Status: "archived"})
	assert.True(t, domain.IsValidationError(err))

	_, err = svc.Reject(ctx, admin, domain.VendorRef("F1"), &dto.RejectListingRequest{})
	assert.ErrorIs(t, err, domain.ErrRejectionReasonRequired)

	rejected, err := svc.Reject(ctx, admin, domain.VendorRef("F1"), &dto.RejectListingRequest{Reason: "blurry photos"})
	require.NoError(t, err)
	assert.Equal(t, domain.ModerationRejected, rejected.Status)
	assert.Equal(t, "blurry photos", rejected.RejectionReason)

	approved, err := svc.Approve(ctx, admin, domain.VendorRef("F1"))
	require.NoError(t, err)
	assert.Equal(t, domain.ModerationApproved, approved.Status)

	_, err = svc.Approve(ctx, admin, domain.VendorRef("F1"))
	assert.ErrorIs(t, err, domain.ErrListingAlreadyModerated)

	_, err = svc.Approve(ctx, admin, domain.VendorRef("nope"))
	assert.ErrorIs(t, err, domain.ErrListingNotFound)

	require.Len(t, f.publisher.events, 2)
	ev, ok := f.publisher.events[1].(*domain.ListingModeratedEvent)
	require.True(t, ok)
	assert.Equal(t, domain.EventListingModerated, ev.EventType)
	assert.Equal(t, admin.UserID, ev.ActorID)
}

// MockProducer is a testify mock of Producer
type MockProducer struct {
	mock.Mock
}

func (m *MockProducer) ProduceJSON(ctx context.Context, topic, key string, value any, headers map[string]string) error {
	args := m.Called(ctx, topic, key, value, headers)
	return args.Error(0)
}

func TestKafkaEventPublisher_RetriesTransientFailures(t *testing.T) {
	producer := new(MockProducer)
	event := &domain.CalendarChangedEvent{EventType: domain.EventCalendarChanged, Listing: venue}
	headers := map[string]string{"content-type": "application/json", "event-type": domain.EventCalendarChanged}

	producer.On("ProduceJSON", mock.Anything, "listing-events", "venue:V1", event, headers).
		Return(errors.New("not leader")).Once()
	producer.On("ProduceJSON", mock.Anything, "listing-events", "venue:V1", event, headers).
		Return(nil).Once()

	pub := NewKafkaEventPublisher(producer, "listing-events", &retry.Config{
		MaxRetries:      2,
		InitialInterval: time.Millisecond,
		MaxInterval:     time.Millisecond,
		Multiplier:      1,
	})
	require.NoError(t, pub.Publish(context.Background(), "venue:V1", event))
	producer.AssertExpectations(t)
}

func TestKafkaEventPublisher_GivesUp(t *testing.T) {
	producer := new(MockProducer)
	producer.On("ProduceJSON", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(errors.New("broker down"))

	pub := NewKafkaEventPublisher(producer, "listing-events", &retry.Config{
		MaxRetries:      1,
		InitialInterval: time.Millisecond,
		MaxInterval:     time.Millisecond,
		Multiplier:      1,
	})
	err := pub.Publish(context.Background(), "venue:V1", &domain.ListingModeratedEvent{})
	assert.ErrorIs(t, err, retry.ErrMaxRetriesExceeded)
	producer.AssertNumberOfCalls(t, "ProduceJSON", 2)
}

type deadLetters struct {
	msgs []*retry.DeadLetter
}

func (d *deadLetters) PublishDeadLetter(_ context.Context, msg *retry.DeadLetter) error {
	d.msgs = append(d.msgs, msg)
	return nil
}

func TestKafkaEventPublisher_ParksExhaustedEvents(t *testing.T) {
	producer := new(MockProducer)
	producer.On("ProduceJSON", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(errors.New("broker down"))
	dlq := &deadLetters{}

	pub := NewKafkaEventPublisher(producer, "listing-events", &retry.Config{
		MaxRetries:      1,
		InitialInterval: time.Millisecond,
		MaxInterval:     time.Millisecond,
		Multiplier:      1,
	}).WithDeadLetter(dlq)

	event := &domain.CalendarChangedEvent{EventType: domain.EventCalendarChanged, Listing: venue}
	err := pub.Publish(context.Background(), "venue:V1", event)
	assert.ErrorIs(t, err, retry.ErrMaxRetriesExceeded)

	require.Len(t, dlq.msgs, 1)
	msg := dlq.msgs[0]
	assert.Equal(t, "listing-events", msg.OriginalTopic)
	assert.Equal(t, "venue:V1", msg.OriginalKey)
	assert.Equal(t, 2, msg.Attempts)
	assert.Contains(t, string(msg.Payload), domain.EventCalendarChanged)
}
