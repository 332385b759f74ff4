package pricing

import (
	"github.com/prohmpiriya/wedding-market/internal/domain"
)

// Snapshot is the raw record sets loaded for one listing and date range
type Snapshot struct {
	Availability []domain.AvailabilityRecord
	PriceSlots   []domain.PriceSlot
	Deals        []domain.TimeBoundDeal
}

// AvailabilityResult answers "can this date be booked, and how urgently"
type AvailabilityResult struct {
	Available      bool                `json:"available"`
	RemainingSlots int                 `json:"remaining_slots"`
	UrgencyLevel   domain.UrgencyLevel `json:"urgency_level"`
}

// Quote bundles every answer for one date
type Quote struct {
	Date           domain.Date           `json:"date"`
	Availability   AvailabilityResult    `json:"availability"`
	BasePrice      float64               `json:"base_price"`
	Multiplier     float64               `json:"price_multiplier"`
	Deal           *domain.TimeBoundDeal `json:"deal,omitempty"`
	EffectivePrice float64               `json:"effective_price"`
}

// Evaluator answers availability, deal and price queries for one listing over
// an immutable snapshot. It is safe for concurrent use.
type Evaluator struct {
	ref          domain.ListingRef
	availability map[domain.Date]domain.AvailabilityRecord
	multipliers  map[domain.Date]float64
	deals        []domain.TimeBoundDeal
}

// NewEvaluator indexes snap for ref. Records belonging to other listings are
// ignored; when a date has more than one record the first one wins. Deals keep
// snap's order, which decides ties in FindActiveDeal.
func NewEvaluator(ref domain.ListingRef, snap Snapshot) *Evaluator {
	e := &Evaluator{
		ref:          ref,
		availability: make(map[domain.Date]domain.AvailabilityRecord, len(snap.Availability)),
		multipliers:  make(map[domain.Date]float64, len(snap.PriceSlots)),
	}

	for _, rec := range snap.Availability {
		if rec.Listing != ref {
			continue
		}
		if _, dup := e.availability[rec.Date]; !dup {
			e.availability[rec.Date] = rec
		}
	}

	for _, slot := range snap.PriceSlots {
		if slot.Listing != ref {
			continue
		}
		if _, dup := e.multipliers[slot.Date]; !dup {
			e.multipliers[slot.Date] = slot.PriceMultiplier
		}
	}

	for _, deal := range snap.Deals {
		if deal.Listing == ref {
			e.deals = append(e.deals, deal)
		}
	}

	return e
}

// Ref returns the listing the evaluator answers for
func (e *Evaluator) Ref() domain.ListingRef {
	return e.ref
}

// ResolveAvailability never fails: a date without a record is available with one slot.
func (e *Evaluator) ResolveAvailability(date domain.Date) AvailabilityResult {
	rec, ok := e.availability[date]
	if !ok {
		return AvailabilityResult{Available: true, RemainingSlots: 1, UrgencyLevel: domain.UrgencyNone}
	}

	result := AvailabilityResult{
		Available:      rec.IsAvailable,
		RemainingSlots: rec.RemainingSlots,
		UrgencyLevel:   domain.UrgencyNone,
	}
	if rec.IsAvailable {
		result.UrgencyLevel = domain.UrgencyForSlots(rec.RemainingSlots)
	}
	return result
}

// FindActiveDeal returns the first deal, in snapshot order, that is active and covers date
func (e *Evaluator) FindActiveDeal(date domain.Date) (domain.TimeBoundDeal, bool) {
	for _, deal := range e.deals {
		if deal.Covers(date) {
			return deal, true
		}
	}
	return domain.TimeBoundDeal{}, false
}

// PriceMultiplier returns the date's multiplier, 1.0 when no slot exists
func (e *Evaluator) PriceMultiplier(date domain.Date) float64 {
	if m, ok := e.multipliers[date]; ok {
		return m
	}
	return domain.DefaultPriceMultiplier
}

// ComputeEffectivePrice applies the date's multiplier and then any covering deal's
// discount. The result is not rounded. basePrice must be positive; callers validate it.
func (e *Evaluator) ComputeEffectivePrice(basePrice float64, date domain.Date) float64 {
	price := basePrice
	if m, ok := e.multipliers[date]; ok {
		price *= m
	}
	if deal, ok := e.FindActiveDeal(date); ok {
		price *= 1 - deal.DiscountPercentage/100
	}
	return price
}

// Quote answers all three queries for date
func (e *Evaluator) Quote(basePrice float64, date domain.Date) Quote {
	q := Quote{
		Date:           date,
		Availability:   e.ResolveAvailability(date),
		BasePrice:      basePrice,
		Multiplier:     e.PriceMultiplier(date),
		EffectivePrice: e.ComputeEffectivePrice(basePrice, date),
	}
	if deal, ok := e.FindActiveDeal(date); ok {
		q.Deal = &deal
	}
	return q
}

// Calendar quotes every date from start to end inclusive
func (e *Evaluator) Calendar(basePrice float64, start, end domain.Date) []Quote {
	if end.Before(start) {
		return nil
	}
	quotes := make([]Quote, 0, start.DaysUntil(end)+1)
	for d := start; !d.After(end); d = d.AddDays(1) {
		quotes = append(quotes, e.Quote(basePrice, d))
	}
	return quotes
}
