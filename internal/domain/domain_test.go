package domain

import (
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDate(t *testing.T) {
	d, err := ParseDate("2025-12-25")
	require.NoError(t, err)
	assert.Equal(t, Date{Year: 2025, Month: time.December, Day: 25}, d)
	assert.Equal(t, "2025-12-25", d.String())

	for _, bad := range []string{"", "2025-13-01", "25-12-2025", "2025-12-25T10:00:00Z"} {
		_, err := ParseDate(bad)
		assert.ErrorIs(t, err, ErrInvalidDate, bad)
	}
}

func TestDateOf_IgnoresTimeOfDay(t *testing.T) {
	morning := time.Date(2025, 6, 1, 0, 0, 1, 0, time.UTC)
	night := time.Date(2025, 6, 1, 23, 59, 59, 0, time.UTC)
	assert.Equal(t, DateOf(morning), DateOf(night))
	assert.Equal(t, MustParseDate("2025-06-01"), DateOf(night))
}

func TestDate_Arithmetic(t *testing.T) {
	d := MustParseDate("2024-02-28")

	assert.Equal(t, MustParseDate("2024-02-29"), d.AddDays(1))
	assert.Equal(t, MustParseDate("2024-03-01"), d.AddDays(2))
	assert.Equal(t, MustParseDate("2024-02-27"), d.AddDays(-1))
	assert.Equal(t, 2, d.DaysUntil(MustParseDate("2024-03-01")))
	assert.Equal(t, -1, d.DaysUntil(MustParseDate("2024-02-27")))
	assert.Equal(t, MustParseDate("2026-01-01"), NewDate(2025, 12, 32))
}

func TestDate_Compare(t *testing.T) {
	a := MustParseDate("2025-01-31")
	b := MustParseDate("2025-02-01")

	assert.Equal(t, -1, a.Compare(b))
	assert.Equal(t, 1, b.Compare(a))
	assert.Equal(t, 0, a.Compare(a))
	assert.True(t, a.Before(b))
	assert.True(t, b.After(a))
	assert.True(t, a.Between(a, b))
	assert.True(t, b.Between(a, b))
	assert.False(t, a.AddDays(-1).Between(a, b))
}

func TestDate_JSON(t *testing.T) {
	type wrapper struct {
		D Date `json:"d"`
	}

	out, err := json.Marshal(wrapper{D: MustParseDate("2025-12-25")})
	require.NoError(t, err)
	assert.JSONEq(t, `{"d":"2025-12-25"}`, string(out))

	var w wrapper
	require.NoError(t, json.Unmarshal([]byte(`{"d":"2026-01-02"}`), &w))
	assert.Equal(t, MustParseDate("2026-01-02"), w.D)

	assert.Error(t, json.Unmarshal([]byte(`{"d":"tomorrow"}`), &w))
}

func TestParseListingRef(t *testing.T) {
	tests := []struct {
		kind, id string
		want     ListingRef
		wantErr  error
	}{
		{"venue", "V1", VenueRef("V1"), nil},
		{"venues", "V1", VenueRef("V1"), nil},
		{"Vendor", "X9", VendorRef("X9"), nil},
		{"vendors", " X9 ", VendorRef("X9"), nil},
		{"caterer", "X9", ListingRef{}, ErrInvalidListingKind},
		{"venue", "  ", ListingRef{}, ErrInvalidListingID},
	}

	for _, tt := range tests {
		t.Run(tt.kind+"/"+tt.id, func(t *testing.T) {
			got, err := ParseListingRef(tt.kind, tt.id)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.True(t, got.IsZero())
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestListingRef_ExactlyOneKind(t *testing.T) {
	v := VenueRef("V1")
	assert.True(t, v.IsVenue())
	assert.False(t, v.IsVendor())
	assert.Equal(t, "venue:V1", v.String())

	var zero ListingRef
	assert.True(t, zero.IsZero())
	assert.False(t, zero.IsVenue())
	assert.False(t, zero.IsVendor())
	assert.NotEqual(t, VenueRef("A"), VendorRef("A"))
}

func TestListingRef_JSON(t *testing.T) {
	out, err := json.Marshal(VendorRef("X9"))
	require.NoError(t, err)
	assert.JSONEq(t, `{"kind":"vendor","id":"X9"}`, string(out))

	var ref ListingRef
	require.NoError(t, json.Unmarshal(out, &ref))
	assert.Equal(t, VendorRef("X9"), ref)

	assert.Error(t, json.Unmarshal([]byte(`{"kind":"both","id":"X9"}`), &ref))
}

func TestTimeBoundDeal_Covers(t *testing.T) {
	deal := TimeBoundDeal{
		StartDate: MustParseDate("2025-12-20"),
		EndDate:   MustParseDate("2025-12-31"),
		IsActive:  true,
	}

	assert.True(t, deal.Covers(MustParseDate("2025-12-20")), "start is inclusive")
	assert.True(t, deal.Covers(MustParseDate("2025-12-31")), "end is inclusive")
	assert.False(t, deal.Covers(MustParseDate("2025-12-19")))
	assert.False(t, deal.Covers(MustParseDate("2026-01-01")))

	deal.IsActive = false
	assert.False(t, deal.Covers(MustParseDate("2025-12-25")))
}

func TestTimeBoundDeal_Overlaps(t *testing.T) {
	deal := TimeBoundDeal{StartDate: MustParseDate("2025-03-10"), EndDate: MustParseDate("2025-03-20")}

	assert.True(t, deal.Overlaps(MustParseDate("2025-03-01"), MustParseDate("2025-03-10")))
	assert.True(t, deal.Overlaps(MustParseDate("2025-03-20"), MustParseDate("2025-04-01")))
	assert.True(t, deal.Overlaps(MustParseDate("2025-03-12"), MustParseDate("2025-03-13")))
	assert.True(t, deal.Overlaps(MustParseDate("2025-01-01"), MustParseDate("2025-12-31")))
	assert.False(t, deal.Overlaps(MustParseDate("2025-03-21"), MustParseDate("2025-03-30")))
	assert.False(t, deal.Overlaps(MustParseDate("2025-03-01"), MustParseDate("2025-03-09")))
}

func TestUrgencyForSlots(t *testing.T) {
	assert.Equal(t, UrgencyNone, UrgencyForSlots(0))
	assert.Equal(t, UrgencyHigh, UrgencyForSlots(1))
	assert.Equal(t, UrgencyMedium, UrgencyForSlots(2))
	assert.Equal(t, UrgencyMedium, UrgencyForSlots(3))
	assert.Equal(t, UrgencyLow, UrgencyForSlots(4))
	assert.Equal(t, UrgencyLow, UrgencyForSlots(100))
}

func TestErrorClassification(t *testing.T) {
	assert.True(t, IsNotFoundError(ErrDealNotFound))
	assert.True(t, IsValidationError(ErrInvalidBasePrice))
	assert.True(t, IsConflictError(ErrListingAlreadyModerated))
	assert.True(t, IsConflictError(ErrDealAlreadyExists))
	assert.True(t, IsConflictError(ErrListingAlreadyExists))
	assert.False(t, IsValidationError(ErrDealAlreadyExists))
	assert.False(t, IsNotFoundError(ErrInvalidDate))
	assert.True(t, IsForbiddenError(fmt.Errorf("venue:V1: %w", ErrNotListingOwner)))
	assert.True(t, IsValidationError(fmt.Errorf("%w: title is required", ErrInvalidRequest)))
}
