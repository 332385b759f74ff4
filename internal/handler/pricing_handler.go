package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/prohmpiriya/wedding-market/internal/domain"
	"github.com/prohmpiriya/wedding-market/internal/dto"
	"github.com/prohmpiriya/wedding-market/internal/service"
	"github.com/prohmpiriya/wedding-market/pkg/response"
	"github.com/prohmpiriya/wedding-market/pkg/telemetry"
)

// PricingHandler handles public availability and price queries
type PricingHandler struct {
	pricingService service.PricingService
}

// NewPricingHandler creates a new PricingHandler
func NewPricingHandler(pricingService service.PricingService) *PricingHandler {
	return &PricingHandler{
		pricingService: pricingService,
	}
}

// GetAvailability handles GET /listings/:kind/:id/availability?date=
func (h *PricingHandler) GetAvailability(c *gin.Context) {
	ctx, span := telemetry.StartSpan(c.Request.Context(), "handler.pricing.GetAvailability")
	defer span.End()
	c.Request = c.Request.WithContext(ctx)

	ref, date, _, ok := h.bindDate(c, span)
	if !ok {
		return
	}

	result, err := h.pricingService.GetAvailability(ctx, ref, date)
	if err != nil {
		fail(c, span, err, "Failed to resolve availability")
		return
	}

	span.SetAttributes(attribute.String("urgency_level", string(result.UrgencyLevel)))
	span.SetStatus(codes.Ok, "")
	c.JSON(http.StatusOK, response.Success(dto.NewAvailabilityResponse(ref, date, result)))
}

// GetActiveDeal handles GET /listings/:kind/:id/deals/active?date=
func (h *PricingHandler) GetActiveDeal(c *gin.Context) {
	ctx, span := telemetry.StartSpan(c.Request.Context(), "handler.pricing.GetActiveDeal")
	defer span.End()
	c.Request = c.Request.WithContext(ctx)

	ref, date, _, ok := h.bindDate(c, span)
	if !ok {
		return
	}

	deal, err := h.pricingService.GetActiveDeal(ctx, ref, date)
	if err != nil {
		fail(c, span, err, "Failed to find active deal")
		return
	}

	span.SetAttributes(attribute.Bool("deal_found", deal != nil))
	span.SetStatus(codes.Ok, "")
	c.JSON(http.StatusOK, response.Success(&dto.ActiveDealResponse{
		Listing: ref,
		Date:    date.String(),
		Deal:    dto.NewDealResponse(deal),
	}))
}

// GetPrice handles GET /listings/:kind/:id/price?date=&base_price=
func (h *PricingHandler) GetPrice(c *gin.Context) {
	ctx, span := telemetry.StartSpan(c.Request.Context(), "handler.pricing.GetPrice")
	defer span.End()
	c.Request = c.Request.WithContext(ctx)

	ref, date, basePrice, ok := h.bindDate(c, span)
	if !ok {
		return
	}

	quote, err := h.pricingService.GetEffectivePrice(ctx, ref, date, basePrice)
	if err != nil {
		fail(c, span, err, "Failed to compute price")
		return
	}

	span.SetAttributes(attribute.Float64("effective_price", quote.EffectivePrice))
	span.SetStatus(codes.Ok, "")
	c.JSON(http.StatusOK, response.Success(dto.NewPriceResponse(ref, quote.Currency, &quote.Quote)))
}

// GetCalendar handles GET /listings/:kind/:id/calendar?start=&end=&base_price=
func (h *PricingHandler) GetCalendar(c *gin.Context) {
	ctx, span := telemetry.StartSpan(c.Request.Context(), "handler.pricing.GetCalendar")
	defer span.End()
	c.Request = c.Request.WithContext(ctx)

	ref, err := listingRef(c)
	if err != nil {
		fail(c, span, err, "Invalid listing")
		return
	}
	span.SetAttributes(attribute.String("listing", ref.String()))

	var q dto.CalendarQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		badRequest(c, span, "Invalid query parameters")
		return
	}
	if valid, msg := q.Validate(); !valid {
		badRequest(c, span, msg)
		return
	}
	start, _ := domain.ParseDate(q.Start)
	end, _ := domain.ParseDate(q.End)
	span.SetAttributes(attribute.String("start", q.Start), attribute.String("end", q.End))

	cal, err := h.pricingService.GetCalendar(ctx, ref, start, end, q.BasePrice)
	if err != nil {
		fail(c, span, err, "Failed to build calendar")
		return
	}

	span.SetStatus(codes.Ok, "")
	c.JSON(http.StatusOK, response.Success(dto.NewCalendarResponse(ref, cal.Currency, cal.Start, cal.End, cal.Days)))
}

// bindDate parses the listing path params and the date query; it writes the
// error response itself and reports false when the request is invalid
func (h *PricingHandler) bindDate(c *gin.Context, span trace.Span) (domain.ListingRef, domain.Date, *float64, bool) {
	ref, err := listingRef(c)
	if err != nil {
		fail(c, span, err, "Invalid listing")
		return domain.ListingRef{}, domain.Date{}, nil, false
	}
	span.SetAttributes(attribute.String("listing", ref.String()))

	var q dto.DateQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		badRequest(c, span, "Invalid query parameters")
		return domain.ListingRef{}, domain.Date{}, nil, false
	}
	if valid, msg := q.Validate(); !valid {
		badRequest(c, span, msg)
		return domain.ListingRef{}, domain.Date{}, nil, false
	}
	date, _ := domain.ParseDate(q.Date)
	span.SetAttributes(attribute.String("date", q.Date))
	return ref, date, q.BasePrice, true
}
