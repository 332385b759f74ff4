package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/prohmpiriya/wedding-market/internal/domain"
	"github.com/prohmpiriya/wedding-market/internal/dto"
	"github.com/prohmpiriya/wedding-market/internal/service"
	"github.com/prohmpiriya/wedding-market/pkg/response"
	"github.com/prohmpiriya/wedding-market/pkg/telemetry"
)

// ModerationHandler handles the admin listing queue
type ModerationHandler struct {
	moderationService service.ModerationService
}

// NewModerationHandler creates a new ModerationHandler
func NewModerationHandler(moderationService service.ModerationService) *ModerationHandler {
	return &ModerationHandler{
		moderationService: moderationService,
	}
}

// ListListings handles GET /admin/listings
func (h *ModerationHandler) ListListings(c *gin.Context) {
	ctx, span := telemetry.StartSpan(c.Request.Context(), "handler.moderation.ListListings")
	defer span.End()
	c.Request = c.Request.WithContext(ctx)

	var filter dto.ListingListFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		badRequest(c, span, "Invalid query parameters")
		return
	}
	filter.SetDefaults()

	listings, total, err := h.moderationService.ListListings(ctx, &filter)
	if err != nil {
		fail(c, span, err, "Failed to list listings")
		return
	}

	data := make([]*dto.ListingResponse, len(listings))
	for i, l := range listings {
		data[i] = dto.NewListingResponse(l)
	}

	span.SetAttributes(attribute.Int("total", total))
	span.SetStatus(codes.Ok, "")
	c.JSON(http.StatusOK, response.Paginated(data, filter.Page, filter.PerPage, int64(total)))
}

// Approve handles POST /admin/listings/:kind/:id/approve
func (h *ModerationHandler) Approve(c *gin.Context) {
	ctx, span := telemetry.StartSpan(c.Request.Context(), "handler.moderation.Approve")
	defer span.End()
	c.Request = c.Request.WithContext(ctx)

	who, ref, ok := h.bindAdminTarget(c)
	if !ok {
		span.SetStatus(codes.Error, "invalid target")
		return
	}
	span.SetAttributes(attribute.String("listing", ref.String()))

	listing, err := h.moderationService.Approve(ctx, who, ref)
	if err != nil {
		fail(c, span, err, "Failed to approve listing")
		return
	}

	span.SetStatus(codes.Ok, "")
	c.JSON(http.StatusOK, response.Success(dto.NewListingResponse(listing)))
}

// Reject handles POST /admin/listings/:kind/:id/reject
func (h *ModerationHandler) Reject(c *gin.Context) {
	ctx, span := telemetry.StartSpan(c.Request.Context(), "handler.moderation.Reject")
	defer span.End()
	c.Request = c.Request.WithContext(ctx)

	who, ref, ok := h.bindAdminTarget(c)
	if !ok {
		span.SetStatus(codes.Error, "invalid target")
		return
	}
	span.SetAttributes(attribute.String("listing", ref.String()))

	var req dto.RejectListingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, span, domain.ErrRejectionReasonRequired.Error())
		return
	}

	listing, err := h.moderationService.Reject(ctx, who, ref, &req)
	if err != nil {
		fail(c, span, err, "Failed to reject listing")
		return
	}

	span.SetStatus(codes.Ok, "")
	c.JSON(http.StatusOK, response.Success(dto.NewListingResponse(listing)))
}

func (h *ModerationHandler) bindAdminTarget(c *gin.Context) (service.Actor, domain.ListingRef, bool) {
	who, ok := actor(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, response.Unauthorized("User not authenticated"))
		return service.Actor{}, domain.ListingRef{}, false
	}
	ref, err := listingRef(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, response.ValidationError(err.Error()))
		return service.Actor{}, domain.ListingRef{}, false
	}
	return who, ref, true
}
