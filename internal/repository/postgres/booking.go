package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/peakscale/tourbook/internal/domain"
	"github.com/peakscale/tourbook/internal/query"
	"github.com/peakscale/tourbook/pkg/database"
	apperrors "github.com/peakscale/tourbook/pkg/errors"
)

const bookingColumns = `id, tour_id, user_id, price, status, provider_session_id, created_at, updated_at`

// BookingRepository implements repository.BookingRepository using PostgreSQL.
type BookingRepository struct {
	pool database.DBTX
}

// NewBookingRepository creates a new PostgreSQL-backed booking repository.
func NewBookingRepository(pool database.DBTX) *BookingRepository {
	return &BookingRepository{pool: pool}
}

// Create inserts a new booking into the database.
func (r *BookingRepository) Create(ctx context.Context, b *domain.Booking) error {
	q := `
		INSERT INTO bookings (id, tour_id, user_id, price, status, provider_session_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	_, err := r.pool.Exec(ctx, q,
		b.ID,
		b.TourID,
		b.UserID,
		b.Price,
		b.Status,
		b.ProviderSessionID,
		b.CreatedAt,
		b.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert booking: %w", err)
	}

	return nil
}

// GetByID retrieves a booking by its ID.
func (r *BookingRepository) GetByID(ctx context.Context, id string) (*domain.Booking, error) {
	q := fmt.Sprintf(`SELECT %s FROM bookings WHERE id = $1`, bookingColumns)

	var b domain.Booking
	err := r.pool.QueryRow(ctx, q, id).Scan(
		&b.ID,
		&b.TourID,
		&b.UserID,
		&b.Price,
		&b.Status,
		&b.ProviderSessionID,
		&b.CreatedAt,
		&b.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("scan booking: %w", err)
	}

	return &b, nil
}

// GetBySession retrieves the booking owning a provider checkout session.
func (r *BookingRepository) GetBySession(ctx context.Context, providerSessionID string) (*domain.Booking, error) {
	q := fmt.Sprintf(`SELECT %s FROM bookings WHERE provider_session_id = $1`, bookingColumns)

	var b domain.Booking
	err := r.pool.QueryRow(ctx, q, providerSessionID).Scan(
		&b.ID,
		&b.TourID,
		&b.UserID,
		&b.Price,
		&b.Status,
		&b.ProviderSessionID,
		&b.CreatedAt,
		&b.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("scan booking: %w", err)
	}

	return &b, nil
}

// List returns bookings matching the query spec with the total count.
func (r *BookingRepository) List(ctx context.Context, spec *query.Spec) ([]domain.Booking, int, error) {
	clause, args := spec.Clauses()

	q := fmt.Sprintf(`SELECT %s, count(*) OVER() AS total_count FROM bookings %s`, bookingColumns, clause)

	rows, err := r.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list bookings: %w", err)
	}
	defer rows.Close()

	var (
		bookings   []domain.Booking
		totalCount int
	)

	for rows.Next() {
		var b domain.Booking
		if err := rows.Scan(
			&b.ID,
			&b.TourID,
			&b.UserID,
			&b.Price,
			&b.Status,
			&b.ProviderSessionID,
			&b.CreatedAt,
			&b.UpdatedAt,
			&totalCount,
		); err != nil {
			return nil, 0, fmt.Errorf("scan booking row: %w", err)
		}
		bookings = append(bookings, b)
	}

	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate booking rows: %w", err)
	}

	if bookings == nil {
		bookings = []domain.Booking{}
	}

	return bookings, totalCount, nil
}

// ListByUser returns all bookings made by the given user, newest first.
func (r *BookingRepository) ListByUser(ctx context.Context, userID string) ([]domain.Booking, error) {
	q := fmt.Sprintf(`SELECT %s FROM bookings WHERE user_id = $1 ORDER BY created_at DESC`, bookingColumns)

	rows, err := r.pool.Query(ctx, q, userID)
	if err != nil {
		return nil, fmt.Errorf("list bookings by user: %w", err)
	}
	defer rows.Close()

	var bookings []domain.Booking
	for rows.Next() {
		var b domain.Booking
		if err := rows.Scan(
			&b.ID,
			&b.TourID,
			&b.UserID,
			&b.Price,
			&b.Status,
			&b.ProviderSessionID,
			&b.CreatedAt,
			&b.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan booking row: %w", err)
		}
		bookings = append(bookings, b)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate booking rows: %w", err)
	}

	if bookings == nil {
		bookings = []domain.Booking{}
	}

	return bookings, nil
}

// MarkPaid transitions the booking owning the provider session to paid. The
// status guard makes webhook retries idempotent at the row level.
func (r *BookingRepository) MarkPaid(ctx context.Context, providerSessionID string) (*domain.Booking, error) {
	q := fmt.Sprintf(`
		UPDATE bookings
		SET status = $1, updated_at = now()
		WHERE provider_session_id = $2 AND status = $3
		RETURNING %s`, bookingColumns)

	var b domain.Booking
	err := r.pool.QueryRow(ctx, q, domain.BookingStatusPaid, providerSessionID, domain.BookingStatusPending).Scan(
		&b.ID,
		&b.TourID,
		&b.UserID,
		&b.Price,
		&b.Status,
		&b.ProviderSessionID,
		&b.CreatedAt,
		&b.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("mark booking paid: %w", err)
	}

	return &b, nil
}
