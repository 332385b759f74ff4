package domain

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// ListingKind distinguishes venues from vendors
type ListingKind string

const (
	ListingKindVenue  ListingKind = "venue"
	ListingKindVendor ListingKind = "vendor"
)

// ParseListingKind accepts singular or plural path segments ("venue", "venues")
func ParseListingKind(s string) (ListingKind, error) {
	switch strings.TrimSuffix(strings.ToLower(s), "s") {
	case string(ListingKindVenue):
		return ListingKindVenue, nil
	case string(ListingKindVendor):
		return ListingKindVendor, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidListingKind, s)
}

// ListingRef identifies exactly one venue or one vendor. The zero value refers
// to nothing; build refs with VenueRef, VendorRef or ParseListingRef.
type ListingRef struct {
	kind ListingKind
	id   string
}

func VenueRef(id string) ListingRef  { return ListingRef{kind: ListingKindVenue, id: id} }
func VendorRef(id string) ListingRef { return ListingRef{kind: ListingKindVendor, id: id} }

// ParseListingRef validates kind and id
func ParseListingRef(kind, id string) (ListingRef, error) {
	k, err := ParseListingKind(kind)
	if err != nil {
		return ListingRef{}, err
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return ListingRef{}, ErrInvalidListingID
	}
	return ListingRef{kind: k, id: id}, nil
}

func (r ListingRef) Kind() ListingKind { return r.kind }
func (r ListingRef) ID() string        { return r.id }
func (r ListingRef) IsZero() bool      { return r.kind == "" || r.id == "" }
func (r ListingRef) IsVenue() bool     { return r.kind == ListingKindVenue }
func (r ListingRef) IsVendor() bool    { return r.kind == ListingKindVendor }

// String renders "venue:<id>" or "vendor:<id>"
func (r ListingRef) String() string {
	if r.IsZero() {
		return ""
	}
	return string(r.kind) + ":" + r.id
}

type listingRefJSON struct {
	Kind ListingKind `json:"kind"`
	ID   string      `json:"id"`
}

func (r ListingRef) MarshalJSON() ([]byte, error) {
	if r.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(listingRefJSON{Kind: r.kind, ID: r.id})
}

func (r *ListingRef) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*r = ListingRef{}
		return nil
	}
	var raw listingRefJSON
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	ref, err := ParseListingRef(string(raw.Kind), raw.ID)
	if err != nil {
		return err
	}
	*r = ref
	return nil
}

// ModerationStatus is the admin review state of a listing
type ModerationStatus string

const (
	ModerationPending  ModerationStatus = "pending"
	ModerationApproved ModerationStatus = "approved"
	ModerationRejected ModerationStatus = "rejected"
)

// ParseModerationStatus validates a status filter value
func ParseModerationStatus(s string) (ModerationStatus, error) {
	switch st := ModerationStatus(strings.ToLower(s)); st {
	case ModerationPending, ModerationApproved, ModerationRejected:
		return st, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidModerationStatus, s)
}

// Listing is a venue or vendor profile
type Listing struct {
	Ref             ListingRef       `json:"ref"`
	OwnerID         string           `json:"owner_id"`
	Name            string           `json:"name"`
	Category        string           `json:"category,omitempty"`
	Location        string           `json:"location,omitempty"`
	BasePrice       float64          `json:"base_price"`
	Currency        string           `json:"currency"`
	Status          ModerationStatus `json:"status"`
	RejectionReason string           `json:"rejection_reason,omitempty"`
	ModeratedBy     string           `json:"moderated_by,omitempty"`
	ModeratedAt     *time.Time       `json:"moderated_at,omitempty"`
	CreatedAt       time.Time        `json:"created_at"`
	UpdatedAt       time.Time        `json:"updated_at"`
}

// ListingFilter narrows List queries
type ListingFilter struct {
	Kind   ListingKind
	Status ModerationStatus
	Limit  int
	Offset int
}
