package dto

import (
	"github.com/prohmpiriya/wedding-market/internal/domain"
)

// ListingListFilter represents filter options for the admin listing queue
type ListingListFilter struct {
	Status  string `form:"status"`
	Kind    string `form:"kind"`
	Page    int    `form:"page"`
	PerPage int    `form:"per_page"`
}

// SetDefaults sets default values for the filter
func (f *ListingListFilter) SetDefaults() {
	if f.Page <= 0 {
		f.Page = 1
	}
	if f.PerPage <= 0 {
		f.PerPage = 20
	}
	if f.PerPage > 100 {
		f.PerPage = 100
	}
}

// Validate validates the ListingListFilter
func (f *ListingListFilter) Validate() (bool, string) {
	if f.Status != "" {
		if _, err := domain.ParseModerationStatus(f.Status); err != nil {
			return false, "status must be pending, approved or rejected"
		}
	}
	if f.Kind != "" {
		if _, err := domain.ParseListingKind(f.Kind); err != nil {
			return false, "kind must be venue or vendor"
		}
	}
	return true, ""
}

// ToDomain converts the filter, assuming Validate and SetDefaults ran
func (f *ListingListFilter) ToDomain() *domain.ListingFilter {
	filter := &domain.ListingFilter{
		Limit:  f.PerPage,
		Offset: (f.Page - 1) * f.PerPage,
	}
	if f.Status != "" {
		filter.Status, _ = domain.ParseModerationStatus(f.Status)
	}
	if f.Kind != "" {
		filter.Kind, _ = domain.ParseListingKind(f.Kind)
	}
	return filter
}

// RejectListingRequest represents the request to reject a listing
type RejectListingRequest struct {
	Reason string `json:"reason" binding:"required,min=1,max=1000"`
}

// Validate validates the RejectListingRequest
func (r *RejectListingRequest) Validate() (bool, string) {
	if r.Reason == "" {
		return false, "reason is required"
	}
	return true, ""
}

// ListingResponse represents a listing in admin responses
type ListingResponse struct {
	Listing         domain.ListingRef       `json:"listing"`
	OwnerID         string                  `json:"owner_id"`
	Name            string                  `json:"name"`
	Category        string                  `json:"category,omitempty"`
	Location        string                  `json:"location,omitempty"`
	BasePrice       float64                 `json:"base_price"`
	Currency        string                  `json:"currency"`
	Status          domain.ModerationStatus `json:"status"`
	RejectionReason string                  `json:"rejection_reason,omitempty"`
	ModeratedBy     string                  `json:"moderated_by,omitempty"`
	ModeratedAt     *string                 `json:"moderated_at,omitempty"`
	CreatedAt       string                  `json:"created_at"`
	UpdatedAt       string                  `json:"updated_at"`
}

// NewListingResponse converts a listing
func NewListingResponse(l *domain.Listing) *ListingResponse {
	resp := &ListingResponse{
		Listing:         l.Ref,
		OwnerID:         l.OwnerID,
		Name:            l.Name,
		Category:        l.Category,
		Location:        l.Location,
		BasePrice:       l.BasePrice,
		Currency:        l.Currency,
		Status:          l.Status,
		RejectionReason: l.RejectionReason,
		ModeratedBy:     l.ModeratedBy,
		CreatedAt:       l.CreatedAt.Format(timeLayout),
		UpdatedAt:       l.UpdatedAt.Format(timeLayout),
	}
	if l.ModeratedAt != nil {
		at := l.ModeratedAt.Format(timeLayout)
		resp.ModeratedAt = &at
	}
	return resp
}
