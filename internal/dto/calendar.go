package dto

import (
	"time"

	"github.com/prohmpiriya/wedding-market/internal/domain"
)

const timeLayout = time.RFC3339

// SetAvailabilityRequest represents the request to set one date's availability
type SetAvailabilityRequest struct {
	IsAvailable    *bool `json:"is_available" binding:"required"`
	RemainingSlots int   `json:"remaining_slots" binding:"omitempty,gte=0"`
}

// Validate validates the SetAvailabilityRequest
func (r *SetAvailabilityRequest) Validate() (bool, string) {
	if r.IsAvailable == nil {
		return false, "is_available is required"
	}
	if r.RemainingSlots < 0 {
		return false, "remaining_slots must be greater than or equal to 0"
	}
	return true, ""
}

// SetPriceSlotRequest represents the request to set one date's price multiplier
type SetPriceSlotRequest struct {
	PriceMultiplier float64 `json:"price_multiplier" binding:"required,gt=0"`
}

// Validate validates the SetPriceSlotRequest
func (r *SetPriceSlotRequest) Validate() (bool, string) {
	if r.PriceMultiplier <= 0 {
		return false, "price_multiplier must be greater than 0"
	}
	return true, ""
}

// CreateDealRequest represents the request to create a time-bound deal
type CreateDealRequest struct {
	Title              string  `json:"title" binding:"required,min=1,max=200"`
	StartDate          string  `json:"start_date" binding:"required"`
	EndDate            string  `json:"end_date" binding:"required"`
	DiscountPercentage float64 `json:"discount_percentage" binding:"gte=0,lte=100"`
}

// Validate validates the CreateDealRequest
func (r *CreateDealRequest) Validate() (bool, string) {
	if r.Title == "" {
		return false, "title is required"
	}
	start, err := domain.ParseDate(r.StartDate)
	if err != nil {
		return false, "start_date must be YYYY-MM-DD"
	}
	end, err := domain.ParseDate(r.EndDate)
	if err != nil {
		return false, "end_date must be YYYY-MM-DD"
	}
	if end.Before(start) {
		return false, "start_date must not be after end_date"
	}
	if r.DiscountPercentage < 0 || r.DiscountPercentage > 100 {
		return false, "discount_percentage must be between 0 and 100"
	}
	return true, ""
}

// AvailabilityRecordResponse represents a stored availability record
type AvailabilityRecordResponse struct {
	Listing        domain.ListingRef `json:"listing"`
	Date           string            `json:"date"`
	IsAvailable    bool              `json:"is_available"`
	RemainingSlots int               `json:"remaining_slots"`
	UpdatedAt      string            `json:"updated_at"`
}

// NewAvailabilityRecordResponse converts an availability record
func NewAvailabilityRecordResponse(rec *domain.AvailabilityRecord) *AvailabilityRecordResponse {
	return &AvailabilityRecordResponse{
		Listing:        rec.Listing,
		Date:           rec.Date.String(),
		IsAvailable:    rec.IsAvailable,
		RemainingSlots: rec.RemainingSlots,
		UpdatedAt:      rec.UpdatedAt.Format(timeLayout),
	}
}

// PriceSlotResponse represents a stored price slot
type PriceSlotResponse struct {
	Listing         domain.ListingRef `json:"listing"`
	Date            string            `json:"date"`
	PriceMultiplier float64           `json:"price_multiplier"`
	UpdatedAt       string            `json:"updated_at"`
}

// NewPriceSlotResponse converts a price slot
func NewPriceSlotResponse(slot *domain.PriceSlot) *PriceSlotResponse {
	return &PriceSlotResponse{
		Listing:         slot.Listing,
		Date:            slot.Date.String(),
		PriceMultiplier: slot.PriceMultiplier,
		UpdatedAt:       slot.UpdatedAt.Format(timeLayout),
	}
}
