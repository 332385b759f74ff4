package domain

import "errors"

// Domain errors
var (
	// Listing errors
	ErrListingNotFound         = errors.New("listing not found")
	ErrInvalidListingKind      = errors.New("listing kind must be venue or vendor")
	ErrInvalidListingID        = errors.New("invalid listing id")
	ErrListingAlreadyExists    = errors.New("listing already exists")
	ErrListingAlreadyModerated = errors.New("listing already has this moderation status")
	ErrInvalidModerationStatus = errors.New("invalid moderation status")
	ErrRejectionReasonRequired = errors.New("rejection reason is required")

	// Deal errors
	ErrDealNotFound        = errors.New("deal not found")
	ErrDealAlreadyExists   = errors.New("deal already exists")
	ErrInvalidDealID       = errors.New("invalid deal id")
	ErrInvalidDealTitle    = errors.New("deal title is required")
	ErrInvalidDiscount     = errors.New("discount percentage must be between 0 and 100")
	ErrDealAlreadyInactive = errors.New("deal is already inactive")

	// Calendar errors
	ErrInvalidDate       = errors.New("invalid date, expected YYYY-MM-DD")
	ErrInvalidDateRange  = errors.New("start date must not be after end date")
	ErrRangeTooLarge     = errors.New("date range too large")
	ErrInvalidSlots      = errors.New("remaining slots cannot be negative")
	ErrInvalidMultiplier = errors.New("price multiplier must be greater than zero")

	// Pricing errors
	ErrInvalidBasePrice = errors.New("base price must be greater than zero")

	// Request errors
	ErrInvalidRequest  = errors.New("invalid request")
	ErrNotListingOwner = errors.New("only the listing owner may change its calendar")
)

// IsNotFoundError checks if the error is a not found error
func IsNotFoundError(err error) bool {
	return errors.Is(err, ErrListingNotFound) ||
		errors.Is(err, ErrDealNotFound)
}

// IsValidationError checks if the error is a validation error
func IsValidationError(err error) bool {
	return errors.Is(err, ErrInvalidListingKind) ||
		errors.Is(err, ErrInvalidListingID) ||
		errors.Is(err, ErrInvalidModerationStatus) ||
		errors.Is(err, ErrRejectionReasonRequired) ||
		errors.Is(err, ErrInvalidDealID) ||
		errors.Is(err, ErrInvalidDealTitle) ||
		errors.Is(err, ErrInvalidDiscount) ||
		errors.Is(err, ErrInvalidDate) ||
		errors.Is(err, ErrInvalidDateRange) ||
		errors.Is(err, ErrRangeTooLarge) ||
		errors.Is(err, ErrInvalidSlots) ||
		errors.Is(err, ErrInvalidMultiplier) ||
		errors.Is(err, ErrInvalidBasePrice) ||
		errors.Is(err, ErrInvalidRequest)
}

// IsConflictError checks if the error is a state conflict
func IsConflictError(err error) bool {
	return errors.Is(err, ErrListingAlreadyExists) ||
		errors.Is(err, ErrListingAlreadyModerated) ||
		errors.Is(err, ErrDealAlreadyExists) ||
		errors.Is(err, ErrDealAlreadyInactive)
}

// IsForbiddenError checks if the error is an ownership violation
func IsForbiddenError(err error) bool {
	return errors.Is(err, ErrNotListingOwner)
}
