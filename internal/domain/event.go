package domain

import "time"

// Event types published to the listing events topic
const (
	EventCalendarChanged  = "listing.calendar.changed"
	EventListingModerated = "listing.moderated"
)

// Calendar change kinds
const (
	ChangeAvailability    = "availability"
	ChangePriceSlot       = "price_slot"
	ChangeDealCreated     = "deal_created"
	ChangeDealDeactivated = "deal_deactivated"
	ChangeDealsExpired    = "deals_expired"
)

// CalendarChangedEvent is emitted after any write to a listing's calendar
type CalendarChangedEvent struct {
	EventID    string     `json:"event_id"`
	EventType  string     `json:"event_type"`
	Listing    ListingRef `json:"listing"`
	Change     string     `json:"change"`
	Dates      []Date     `json:"dates,omitempty"`
	DealIDs    []string   `json:"deal_ids,omitempty"`
	ActorID    string     `json:"actor_id,omitempty"`
	OccurredAt time.Time  `json:"occurred_at"`
}

// ListingModeratedEvent is emitted when an admin approves or rejects a listing
type ListingModeratedEvent struct {
	EventID    string           `json:"event_id"`
	EventType  string           `json:"event_type"`
	Listing    ListingRef       `json:"listing"`
	Status     ModerationStatus `json:"status"`
	Reason     string           `json:"reason,omitempty"`
	ActorID    string           `json:"actor_id"`
	OccurredAt time.Time        `json:"occurred_at"`
}
