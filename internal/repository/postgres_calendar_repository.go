package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/prohmpiriya/wedding-market/internal/domain"
)

const pgUniqueViolationCode = "23505"

// dealColumns defines columns for the deals table
const dealColumns = `id::text, venue_id, vendor_id, title, start_date, end_date,
	discount_percentage, is_active, created_at, updated_at`

// PostgresCalendarRepository implements CalendarRepository using PostgreSQL
type PostgresCalendarRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresCalendarRepository creates a new PostgresCalendarRepository
func NewPostgresCalendarRepository(pool *pgxpool.Pool) *PostgresCalendarRepository {
	return &PostgresCalendarRepository{pool: pool}
}

// whereBuilder accumulates AND-ed conditions with positional args
type whereBuilder struct {
	conds []string
	args  []interface{}
}

func (w *whereBuilder) add(cond string, arg interface{}) {
	w.args = append(w.args, arg)
	w.conds = append(w.conds, fmt.Sprintf(cond, len(w.args)))
}

// listing constrains listing_kind and listing_id to ref
func (w *whereBuilder) listing(ref *domain.ListingRef) {
	if ref == nil {
		return
	}
	w.add("listing_kind = $%d", string(ref.Kind()))
	w.add("listing_id = $%d", ref.ID())
}

func (w *whereBuilder) String() string {
	if len(w.conds) == 0 {
		return "TRUE"
	}
	return strings.Join(w.conds, " AND ")
}

// FetchAvailability returns availability records in the inclusive date range
func (r *PostgresCalendarRepository) FetchAvailability(ctx context.Context, ref *domain.ListingRef, start, end *domain.Date) ([]domain.AvailabilityRecord, error) {
	w := &whereBuilder{}
	w.listing(ref)
	if start != nil {
		w.add("date >= $%d", start.Time())
	}
	if end != nil {
		w.add("date <= $%d", end.Time())
	}

	query := fmt.Sprintf(`SELECT listing_kind, listing_id, date, is_available, remaining_slots, updated_at
		FROM availability
		WHERE %s
		ORDER BY listing_kind, listing_id, date`, w)
	rows, err := r.pool.Query(ctx, query, w.args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	records := []domain.AvailabilityRecord{}
	for rows.Next() {
		var (
			rec      domain.AvailabilityRecord
			kind, id string
			date     time.Time
		)
		if err := rows.Scan(&kind, &id, &date, &rec.IsAvailable, &rec.RemainingSlots, &rec.UpdatedAt); err != nil {
			return nil, err
		}
		ref, err := domain.ParseListingRef(kind, id)
		if err != nil {
			return nil, err
		}
		rec.Listing = ref
		rec.Date = domain.DateOf(date)
		records = append(records, rec)
	}
	return records, rows.Err()
}

// FetchPriceSlots returns price slots in the inclusive date range
func (r *PostgresCalendarRepository) FetchPriceSlots(ctx context.Context, ref *domain.ListingRef, start, end *domain.Date) ([]domain.PriceSlot, error) {
	w := &whereBuilder{}
	w.listing(ref)
	if start != nil {
		w.add("date >= $%d", start.Time())
	}
	if end != nil {
		w.add("date <= $%d", end.Time())
	}

	query := fmt.Sprintf(`SELECT listing_kind, listing_id, date, price_multiplier, updated_at
		FROM price_slots
		WHERE %s
		ORDER BY listing_kind, listing_id, date`, w)
	rows, err := r.pool.Query(ctx, query, w.args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	slots := []domain.PriceSlot{}
	for rows.Next() {
		var (
			slot     domain.PriceSlot
			kind, id string
			date     time.Time
		)
		if err := rows.Scan(&kind, &id, &date, &slot.PriceMultiplier, &slot.UpdatedAt); err != nil {
			return nil, err
		}
		ref, err := domain.ParseListingRef(kind, id)
		if err != nil {
			return nil, err
		}
		slot.Listing = ref
		slot.Date = domain.DateOf(date)
		slots = append(slots, slot)
	}
	return slots, rows.Err()
}

// FetchActiveDeals returns active deals overlapping the range
func (r *PostgresCalendarRepository) FetchActiveDeals(ctx context.Context, ref *domain.ListingRef, start, end *domain.Date) ([]domain.TimeBoundDeal, error) {
	w := &whereBuilder{}
	w.add("is_active = $%d", true)
	if ref != nil {
		if ref.IsVenue() {
			w.add("venue_id = $%d", ref.ID())
		} else {
			w.add("vendor_id = $%d", ref.ID())
		}
	}
	if end != nil {
		w.add("start_date <= $%d", end.Time())
	}
	if start != nil {
		w.add("end_date >= $%d", start.Time())
	}

	query := fmt.Sprintf(`SELECT %s FROM deals
		WHERE %s
		ORDER BY start_date ASC, created_at ASC, id ASC`, dealColumns, w)
	return r.queryDeals(ctx, query, w.args...)
}

// UpsertAvailability creates or replaces an availability record
func (r *PostgresCalendarRepository) UpsertAvailability(ctx context.Context, rec *domain.AvailabilityRecord) error {
	query := `
		INSERT INTO availability (listing_kind, listing_id, date, is_available, remaining_slots, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (listing_kind, listing_id, date) DO UPDATE
		SET is_available = EXCLUDED.is_available,
			remaining_slots = EXCLUDED.remaining_slots,
			updated_at = EXCLUDED.updated_at
	`
	rec.UpdatedAt = time.Now()
	_, err := r.pool.Exec(ctx, query,
		string(rec.Listing.Kind()),
		rec.Listing.ID(),
		rec.Date.Time(),
		rec.IsAvailable,
		rec.RemainingSlots,
		rec.UpdatedAt,
	)
	return err
}

// UpsertPriceSlot creates or replaces a price slot
func (r *PostgresCalendarRepository) UpsertPriceSlot(ctx context.Context, slot *domain.PriceSlot) error {
	query := `
		INSERT INTO price_slots (listing_kind, listing_id, date, price_multiplier, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (listing_kind, listing_id, date) DO UPDATE
		SET price_multiplier = EXCLUDED.price_multiplier,
			updated_at = EXCLUDED.updated_at
	`
	slot.UpdatedAt = time.Now()
	_, err := r.pool.Exec(ctx, query,
		string(slot.Listing.Kind()),
		slot.Listing.ID(),
		slot.Date.Time(),
		slot.PriceMultiplier,
		slot.UpdatedAt,
	)
	return err
}

// CreateDeal stores a new deal
func (r *PostgresCalendarRepository) CreateDeal(ctx context.Context, deal *domain.TimeBoundDeal) error {
	query := `
		INSERT INTO deals (id, venue_id, vendor_id, title, start_date, end_date,
			discount_percentage, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	venueID, vendorID := refColumns(deal.Listing)
	_, err := r.pool.Exec(ctx, query,
		deal.ID,
		venueID,
		vendorID,
		deal.Title,
		deal.StartDate.Time(),
		deal.EndDate.Time(),
		deal.DiscountPercentage,
		deal.IsActive,
		deal.CreatedAt,
		deal.UpdatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolationCode {
			return domain.ErrDealAlreadyExists
		}
		return err
	}
	return nil
}

// GetDeal retrieves a deal by ID
func (r *PostgresCalendarRepository) GetDeal(ctx context.Context, id string) (*domain.TimeBoundDeal, error) {
	query := `SELECT ` + dealColumns + ` FROM deals WHERE id = $1`
	deal, err := scanDeal(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrDealNotFound
		}
		return nil, err
	}
	return deal, nil
}

// SetDealActive flips a deal's is_active flag
func (r *PostgresCalendarRepository) SetDealActive(ctx context.Context, id string, active bool) error {
	query := `UPDATE deals SET is_active = $2, updated_at = $3 WHERE id = $1`
	result, err := r.pool.Exec(ctx, query, id, active, time.Now())
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return domain.ErrDealNotFound
	}
	return nil
}

// DeactivateEndedDeals deactivates a batch of ended deals in one statement
func (r *PostgresCalendarRepository) DeactivateEndedDeals(ctx context.Context, before domain.Date, limit int) ([]domain.TimeBoundDeal, error) {
	query := `
		UPDATE deals SET is_active = FALSE, updated_at = $2
		WHERE id IN (
			SELECT id FROM deals
			WHERE is_active = TRUE AND end_date < $1
			ORDER BY end_date ASC, id ASC
			LIMIT $3
			FOR UPDATE SKIP LOCKED
		)
		RETURNING ` + dealColumns
	return r.queryDeals(ctx, query, before.Time(), time.Now(), limit)
}

func (r *PostgresCalendarRepository) queryDeals(ctx context.Context, query string, args ...interface{}) ([]domain.TimeBoundDeal, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	deals := []domain.TimeBoundDeal{}
	for rows.Next() {
		deal, err := scanDeal(rows)
		if err != nil {
			return nil, err
		}
		deals = append(deals, *deal)
	}
	return deals, rows.Err()
}

// scanDeal scans a row into a TimeBoundDeal, rebuilding the listing ref from
// whichever of venue_id / vendor_id is set
func scanDeal(row pgx.Row) (*domain.TimeBoundDeal, error) {
	var (
		deal              domain.TimeBoundDeal
		venueID, vendorID *string
		start, end        time.Time
	)
	err := row.Scan(
		&deal.ID,
		&venueID,
		&vendorID,
		&deal.Title,
		&start,
		&end,
		&deal.DiscountPercentage,
		&deal.IsActive,
		&deal.CreatedAt,
		&deal.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	switch {
	case venueID != nil:
		deal.Listing = domain.VenueRef(*venueID)
	case vendorID != nil:
		deal.Listing = domain.VendorRef(*vendorID)
	default:
		return nil, fmt.Errorf("deal %s has neither venue_id nor vendor_id", deal.ID)
	}
	deal.StartDate = domain.DateOf(start)
	deal.EndDate = domain.DateOf(end)
	return &deal, nil
}

func refColumns(ref domain.ListingRef) (venueID, vendorID *string) {
	id := ref.ID()
	if ref.IsVenue() {
		return &id, nil
	}
	return nil, &id
}
