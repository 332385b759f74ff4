package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/prohmpiriya/wedding-market/internal/domain"
)

// listingColumns defines columns for the listings table
const listingColumns = `kind, id, owner_id, name, COALESCE(category, '') as category,
	COALESCE(location, '') as location, base_price, COALESCE(currency, 'THB') as currency,
	status, COALESCE(rejection_reason, '') as rejection_reason,
	COALESCE(moderated_by, '') as moderated_by, moderated_at, created_at, updated_at`

// PostgresListingRepository implements ListingRepository using PostgreSQL
type PostgresListingRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresListingRepository creates a new PostgresListingRepository
func NewPostgresListingRepository(pool *pgxpool.Pool) *PostgresListingRepository {
	return &PostgresListingRepository{pool: pool}
}

// scanListing scans a row into a Listing struct
func scanListing(row pgx.Row) (*domain.Listing, error) {
	var (
		l        domain.Listing
		kind, id string
	)
	err := row.Scan(
		&kind,
		&id,
		&l.OwnerID,
		&l.Name,
		&l.Category,
		&l.Location,
		&l.BasePrice,
		&l.Currency,
		&l.Status,
		&l.RejectionReason,
		&l.ModeratedBy,
		&l.ModeratedAt,
		&l.CreatedAt,
		&l.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	ref, err := domain.ParseListingRef(kind, id)
	if err != nil {
		return nil, err
	}
	l.Ref = ref
	return &l, nil
}

// Create creates a new listing
func (r *PostgresListingRepository) Create(ctx context.Context, l *domain.Listing) error {
	query := `
		INSERT INTO listings (kind, id, owner_id, name, category, location, base_price,
			currency, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`
	_, err := r.pool.Exec(ctx, query,
		string(l.Ref.Kind()),
		l.Ref.ID(),
		l.OwnerID,
		l.Name,
		l.Category,
		l.Location,
		l.BasePrice,
		l.Currency,
		string(l.Status),
		l.CreatedAt,
		l.UpdatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolationCode {
			return domain.ErrListingAlreadyExists
		}
		return err
	}
	return nil
}

// GetByRef retrieves a listing by kind and ID
func (r *PostgresListingRepository) GetByRef(ctx context.Context, ref domain.ListingRef) (*domain.Listing, error) {
	query := `SELECT ` + listingColumns + ` FROM listings WHERE kind = $1 AND id = $2`
	l, err := scanListing(r.pool.QueryRow(ctx, query, string(ref.Kind()), ref.ID()))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrListingNotFound
		}
		return nil, err
	}
	return l, nil
}

// List lists listings with optional kind and status filters
func (r *PostgresListingRepository) List(ctx context.Context, filter *domain.ListingFilter) ([]*domain.Listing, int, error) {
	w := &whereBuilder{}
	limit, offset := 20, 0
	if filter != nil {
		if filter.Kind != "" {
			w.add("kind = $%d", string(filter.Kind))
		}
		if filter.Status != "" {
			w.add("status = $%d", string(filter.Status))
		}
		if filter.Limit > 0 {
			limit = filter.Limit
		}
		offset = filter.Offset
	}

	// Count total
	var total int
	countQuery := fmt.Sprintf(`SELECT COUNT(*) FROM listings WHERE %s`, w)
	if err := r.pool.QueryRow(ctx, countQuery, w.args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	args := append(w.args, limit, offset)
	query := fmt.Sprintf(`SELECT %s FROM listings
		WHERE %s
		ORDER BY created_at ASC, kind ASC, id ASC
		LIMIT $%d OFFSET $%d`, listingColumns, w, len(w.args)+1, len(w.args)+2)
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	listings := []*domain.Listing{}
	for rows.Next() {
		l, err := scanListing(rows)
		if err != nil {
			return nil, 0, err
		}
		listings = append(listings, l)
	}
	return listings, total, rows.Err()
}

// UpdateStatus records a moderation decision
func (r *PostgresListingRepository) UpdateStatus(ctx context.Context, ref domain.ListingRef, status domain.ModerationStatus, reason, moderatedBy string) error {
	query := `
		UPDATE listings
		SET status = $3, rejection_reason = NULLIF($4, ''), moderated_by = $5,
			moderated_at = $6, updated_at = $6
		WHERE kind = $1 AND id = $2
	`
	result, err := r.pool.Exec(ctx, query, string(ref.Kind()), ref.ID(), string(status), reason, moderatedBy, time.Now())
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return domain.ErrListingNotFound
	}
	return nil
}
