package dto

import (
	"github.com/prohmpiriya/wedding-market/internal/domain"
	"github.com/prohmpiriya/wedding-market/internal/pricing"
)

// DateQuery represents a single-date pricing query
type DateQuery struct {
	Date      string   `form:"date"`
	BasePrice *float64 `form:"base_price"`
}

// Validate validates the DateQuery
func (q *DateQuery) Validate() (bool, string) {
	if q.Date == "" {
		return false, "date is required"
	}
	if _, err := domain.ParseDate(q.Date); err != nil {
		return false, "date must be YYYY-MM-DD"
	}
	if q.BasePrice != nil && *q.BasePrice <= 0 {
		return false, "base_price must be greater than 0"
	}
	return true, ""
}

// CalendarQuery represents a date-range pricing query
type CalendarQuery struct {
	Start     string   `form:"start"`
	End       string   `form:"end"`
	BasePrice *float64 `form:"base_price"`
}

// Validate validates the CalendarQuery
func (q *CalendarQuery) Validate() (bool, string) {
	if q.Start == "" || q.End == "" {
		return false, "start and end are required"
	}
	start, err := domain.ParseDate(q.Start)
	if err != nil {
		return false, "start must be YYYY-MM-DD"
	}
	end, err := domain.ParseDate(q.End)
	if err != nil {
		return false, "end must be YYYY-MM-DD"
	}
	if end.Before(start) {
		return false, "start must not be after end"
	}
	if q.BasePrice != nil && *q.BasePrice <= 0 {
		return false, "base_price must be greater than 0"
	}
	return true, ""
}

// AvailabilityResponse represents the availability of one date
type AvailabilityResponse struct {
	Listing        domain.ListingRef   `json:"listing"`
	Date           string              `json:"date"`
	Available      bool                `json:"available"`
	RemainingSlots int                 `json:"remaining_slots"`
	UrgencyLevel   domain.UrgencyLevel `json:"urgency_level"`
}

// NewAvailabilityResponse builds an AvailabilityResponse
func NewAvailabilityResponse(ref domain.ListingRef, date domain.Date, r *pricing.AvailabilityResult) *AvailabilityResponse {
	return &AvailabilityResponse{
		Listing:        ref,
		Date:           date.String(),
		Available:      r.Available,
		RemainingSlots: r.RemainingSlots,
		UrgencyLevel:   r.UrgencyLevel,
	}
}

// DealResponse represents a time-bound deal
type DealResponse struct {
	ID                 string            `json:"id"`
	Listing            domain.ListingRef `json:"listing"`
	Title              string            `json:"title"`
	StartDate          string            `json:"start_date"`
	EndDate            string            `json:"end_date"`
	DiscountPercentage float64           `json:"discount_percentage"`
	IsActive           bool              `json:"is_active"`
	CreatedAt          string            `json:"created_at,omitempty"`
	UpdatedAt          string            `json:"updated_at,omitempty"`
}

// NewDealResponse converts a deal, returning nil for nil
func NewDealResponse(deal *domain.TimeBoundDeal) *DealResponse {
	if deal == nil {
		return nil
	}
	resp := &DealResponse{
		ID:                 deal.ID,
		Listing:            deal.Listing,
		Title:              deal.Title,
		StartDate:          deal.StartDate.String(),
		EndDate:            deal.EndDate.String(),
		DiscountPercentage: deal.DiscountPercentage,
		IsActive:           deal.IsActive,
	}
	if !deal.CreatedAt.IsZero() {
		resp.CreatedAt = deal.CreatedAt.Format(timeLayout)
	}
	if !deal.UpdatedAt.IsZero() {
		resp.UpdatedAt = deal.UpdatedAt.Format(timeLayout)
	}
	return resp
}

// ActiveDealResponse represents the deal applying on a date, if any
type ActiveDealResponse struct {
	Listing domain.ListingRef `json:"listing"`
	Date    string            `json:"date"`
	Deal    *DealResponse     `json:"deal"`
}

// PriceResponse represents the effective price of one date
type PriceResponse struct {
	Listing            domain.ListingRef           `json:"listing"`
	Date               string                      `json:"date"`
	BasePrice          float64                     `json:"base_price"`
	Currency           string                      `json:"currency,omitempty"`
	PriceMultiplier    float64                     `json:"price_multiplier"`
	DealID             string                      `json:"deal_id,omitempty"`
	DiscountPercentage float64                     `json:"discount_percentage"`
	EffectivePrice     float64                     `json:"effective_price"`
	Availability       *pricing.AvailabilityResult `json:"availability"`
}

// NewPriceResponse builds a PriceResponse from a quote
func NewPriceResponse(ref domain.ListingRef, currency string, q *pricing.Quote) *PriceResponse {
	resp := &PriceResponse{
		Listing:         ref,
		Date:            q.Date.String(),
		BasePrice:       q.BasePrice,
		Currency:        currency,
		PriceMultiplier: q.Multiplier,
		EffectivePrice:  q.EffectivePrice,
		Availability:    &q.Availability,
	}
	if q.Deal != nil {
		resp.DealID = q.Deal.ID
		resp.DiscountPercentage = q.Deal.DiscountPercentage
	}
	return resp
}

// CalendarResponse represents quotes for every date of a range
type CalendarResponse struct {
	Listing  domain.ListingRef `json:"listing"`
	Start    string            `json:"start"`
	End      string            `json:"end"`
	Currency string            `json:"currency,omitempty"`
	Days     []*PriceResponse  `json:"days"`
}

// NewCalendarResponse builds a CalendarResponse
func NewCalendarResponse(ref domain.ListingRef, currency string, start, end domain.Date, quotes []pricing.Quote) *CalendarResponse {
	days := make([]*PriceResponse, 0, len(quotes))
	for i := range quotes {
		days = append(days, NewPriceResponse(ref, currency, &quotes[i]))
	}
	return &CalendarResponse{
		Listing:  ref,
		Start:    start.String(),
		End:      end.String(),
		Currency: currency,
		Days:     days,
	}
}
