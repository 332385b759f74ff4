package handler

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/prohmpiriya/wedding-market/internal/domain"
	"github.com/prohmpiriya/wedding-market/internal/pricing"
	"github.com/prohmpiriya/wedding-market/internal/service"
	"github.com/prohmpiriya/wedding-market/pkg/middleware"
	"github.com/prohmpiriya/wedding-market/pkg/response"
)

// fail records err on the span and writes the matching error envelope.
// fallback is the message used for unexpected errors.
func fail(c *gin.Context, span trace.Span, err error, fallback string) {
	span.RecordError(err)

	var loadErr *pricing.LoadError
	switch {
	case domain.IsValidationError(err):
		span.SetStatus(codes.Error, err.Error())
		c.JSON(http.StatusBadRequest, response.ValidationError(validationMessage(err)))
	case domain.IsNotFoundError(err):
		span.SetStatus(codes.Error, err.Error())
		c.JSON(http.StatusNotFound, response.NotFound(err.Error()))
	case domain.IsForbiddenError(err):
		span.SetStatus(codes.Error, err.Error())
		c.JSON(http.StatusForbidden, response.Forbidden(domain.ErrNotListingOwner.Error()))
	case domain.IsConflictError(err):
		span.SetStatus(codes.Error, err.Error())
		c.JSON(http.StatusConflict, response.Conflict(err.Error()))
	case errors.As(err, &loadErr), errors.Is(err, pricing.ErrStaleLoad):
		span.SetStatus(codes.Error, "calendar unavailable")
		c.JSON(http.StatusServiceUnavailable, response.ServiceUnavailable("Calendar data is temporarily unavailable"))
	default:
		span.SetStatus(codes.Error, fallback)
		c.JSON(http.StatusInternalServerError, response.InternalError(fallback))
	}
}

// validationMessage strips the "invalid request: " prefix from wrapped DTO messages
func validationMessage(err error) string {
	return strings.TrimPrefix(err.Error(), domain.ErrInvalidRequest.Error()+": ")
}

// badRequest records msg on the span and writes a 400
func badRequest(c *gin.Context, span trace.Span, msg string) {
	span.RecordError(errors.New(msg))
	span.SetStatus(codes.Error, msg)
	c.JSON(http.StatusBadRequest, response.BadRequest(msg))
}

// listingRef parses the :kind and :id path params
func listingRef(c *gin.Context) (domain.ListingRef, error) {
	return domain.ParseListingRef(c.Param("kind"), c.Param("id"))
}

// actor builds the caller identity set by the JWT middleware
func actor(c *gin.Context) (service.Actor, bool) {
	userID, ok := middleware.GetUserID(c)
	if !ok || userID == "" {
		return service.Actor{}, false
	}
	role, _ := middleware.GetRole(c)
	return service.Actor{UserID: userID, Role: role}, true
}
