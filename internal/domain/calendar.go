package domain

import "time"

// AvailabilityRecord is the bookable state of one listing on one date.
// IsAvailable is authoritative; RemainingSlots only matters when it is true.
type AvailabilityRecord struct {
	Listing        ListingRef `json:"listing"`
	Date           Date       `json:"date"`
	IsAvailable    bool       `json:"is_available"`
	RemainingSlots int        `json:"remaining_slots"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// PriceSlot scales a listing's base price on one date
type PriceSlot struct {
	Listing         ListingRef `json:"listing"`
	Date            Date       `json:"date"`
	PriceMultiplier float64    `json:"price_multiplier"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

// DefaultPriceMultiplier applies on dates without a PriceSlot
const DefaultPriceMultiplier = 1.0

// TimeBoundDeal is a promotional discount over an inclusive date range
type TimeBoundDeal struct {
	ID                 string     `json:"id"`
	Listing            ListingRef `json:"listing"`
	Title              string     `json:"title"`
	StartDate          Date       `json:"start_date"`
	EndDate            Date       `json:"end_date"`
	DiscountPercentage float64    `json:"discount_percentage"`
	IsActive           bool       `json:"is_active"`
	CreatedAt          time.Time  `json:"created_at"`
	UpdatedAt          time.Time  `json:"updated_at"`
}

// Covers reports whether the deal is active and date falls inside [StartDate, EndDate]
func (d *TimeBoundDeal) Covers(date Date) bool {
	return d.IsActive && date.Between(d.StartDate, d.EndDate)
}

// Overlaps reports whether the deal's range intersects [start, end]
func (d *TimeBoundDeal) Overlaps(start, end Date) bool {
	return d.StartDate.Compare(end) <= 0 && d.EndDate.Compare(start) >= 0
}

// UrgencyLevel is the coarse booking-pressure signal shown next to a date
type UrgencyLevel string

const (
	UrgencyNone   UrgencyLevel = "none"
	UrgencyLow    UrgencyLevel = "low"
	UrgencyMedium UrgencyLevel = "medium"
	UrgencyHigh   UrgencyLevel = "high"
)

// UrgencyForSlots maps remaining slots of an available date to an urgency level
func UrgencyForSlots(remaining int) UrgencyLevel {
	switch {
	case remaining <= 0:
		return UrgencyNone
	case remaining == 1:
		return UrgencyHigh
	case remaining <= 3:
		return UrgencyMedium
	default:
		return UrgencyLow
	}
}
