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

// CalendarHandler handles owner writes to a listing's calendar
type CalendarHandler struct {
	calendarService service.CalendarService
}

// NewCalendarHandler creates a new CalendarHandler
func NewCalendarHandler(calendarService service.CalendarService) *CalendarHandler {
	return &CalendarHandler{
		calendarService: calendarService,
	}
}

// SetAvailability handles PUT /listings/:kind/:id/availability/:date
func (h *CalendarHandler) SetAvailability(c *gin.Context) {
	ctx, span := telemetry.StartSpan(c.Request.Context(), "handler.calendar.SetAvailability")
	defer span.End()
	c.Request = c.Request.WithContext(ctx)

	who, ref, date, ok := h.bindTarget(c, span)
	if !ok {
		return
	}

	var req dto.SetAvailabilityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, span, "Invalid request body")
		return
	}

	rec, err := h.calendarService.SetAvailability(ctx, who, ref, date, &req)
	if err != nil {
		fail(c, span, err, "Failed to set availability")
		return
	}

	span.SetStatus(codes.Ok, "")
	c.JSON(http.StatusOK, response.Success(dto.NewAvailabilityRecordResponse(rec)))
}

// SetPriceSlot handles PUT /listings/:kind/:id/price-slots/:date
func (h *CalendarHandler) SetPriceSlot(c *gin.Context) {
	ctx, span := telemetry.StartSpan(c.Request.Context(), "handler.calendar.SetPriceSlot")
	defer span.End()
	c.Request = c.Request.WithContext(ctx)

	who, ref, date, ok := h.bindTarget(c, span)
	if !ok {
		return
	}

	var req dto.SetPriceSlotRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, span, "Invalid request body")
		return
	}

	slot, err := h.calendarService.SetPriceSlot(ctx, who, ref, date, &req)
	if err != nil {
		fail(c, span, err, "Failed to set price slot")
		return
	}

	span.SetAttributes(attribute.Float64("price_multiplier", slot.PriceMultiplier))
	span.SetStatus(codes.Ok, "")
	c.JSON(http.StatusOK, response.Success(dto.NewPriceSlotResponse(slot)))
}

// CreateDeal handles POST /listings/:kind/:id/deals
func (h *CalendarHandler) CreateDeal(c *gin.Context) {
	ctx, span := telemetry.StartSpan(c.Request.Context(), "handler.calendar.CreateDeal")
	defer span.End()
	c.Request = c.Request.WithContext(ctx)

	who, ok := actor(c)
	if !ok {
		span.SetStatus(codes.Error, "unauthorized")
		c.JSON(http.StatusUnauthorized, response.Unauthorized("User not authenticated"))
		return
	}

	ref, err := listingRef(c)
	if err != nil {
		fail(c, span, err, "Invalid listing")
		return
	}
	span.SetAttributes(attribute.String("listing", ref.String()))

	var req dto.CreateDealRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, span, "Invalid request body")
		return
	}

	deal, err := h.calendarService.CreateDeal(ctx, who, ref, &req)
	if err != nil {
		fail(c, span, err, "Failed to create deal")
		return
	}

	span.SetAttributes(attribute.String("deal_id", deal.ID))
	span.SetStatus(codes.Ok, "")
	c.JSON(http.StatusCreated, response.Success(dto.NewDealResponse(deal)))
}

// DeactivateDeal handles POST /deals/:id/deactivate
func (h *CalendarHandler) DeactivateDeal(c *gin.Context) {
	ctx, span := telemetry.StartSpan(c.Request.Context(), "handler.calendar.DeactivateDeal")
	defer span.End()
	c.Request = c.Request.WithContext(ctx)

	who, ok := actor(c)
	if !ok {
		span.SetStatus(codes.Error, "unauthorized")
		c.JSON(http.StatusUnauthorized, response.Unauthorized("User not authenticated"))
		return
	}

	dealID := c.Param("id")
	span.SetAttributes(attribute.String("deal_id", dealID))

	deal, err := h.calendarService.DeactivateDeal(ctx, who, dealID)
	if err != nil {
		fail(c, span, err, "Failed to deactivate deal")
		return
	}

	span.SetStatus(codes.Ok, "")
	c.JSON(http.StatusOK, response.Success(dto.NewDealResponse(deal)))
}

// bindTarget resolves the caller plus the :kind/:id/:date path params
func (h *CalendarHandler) bindTarget(c *gin.Context, span trace.Span) (service.Actor, domain.ListingRef, domain.Date, bool) {
	who, ok := actor(c)
	if !ok {
		span.SetStatus(codes.Error, "unauthorized")
		c.JSON(http.StatusUnauthorized, response.Unauthorized("User not authenticated"))
		return service.Actor{}, domain.ListingRef{}, domain.Date{}, false
	}

	ref, err := listingRef(c)
	if err != nil {
		fail(c, span, err, "Invalid listing")
		return service.Actor{}, domain.ListingRef{}, domain.Date{}, false
	}

	date, err := domain.ParseDate(c.Param("date"))
	if err != nil {
		badRequest(c, span, "date must be YYYY-MM-DD")
		return service.Actor{}, domain.ListingRef{}, domain.Date{}, false
	}

	span.SetAttributes(
		attribute.String("listing", ref.String()),
		attribute.String("date", date.String()),
	)
	return who, ref, date, true
}
