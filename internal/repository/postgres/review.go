package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/peakscale/tourbook/internal/domain"
	"github.com/peakscale/tourbook/internal/query"
	"github.com/peakscale/tourbook/pkg/database"
	apperrors "github.com/peakscale/tourbook/pkg/errors"
)

// ReviewRepository implements repository.ReviewRepository using PostgreSQL.
type ReviewRepository struct {
	pool database.DBTX
}

// NewReviewRepository creates a new PostgreSQL-backed review repository.
func NewReviewRepository(pool database.DBTX) *ReviewRepository {
	return &ReviewRepository{pool: pool}
}

// Create inserts a new review into the database.
func (r *ReviewRepository) Create(ctx context.Context, rv *domain.Review) error {
	q := `
		INSERT INTO reviews (id, tour_id, author_id, rating, content, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`

	_, err := r.pool.Exec(ctx, q,
		rv.ID,
		rv.TourID,
		rv.AuthorID,
		rv.Rating,
		rv.Content,
		rv.CreatedAt,
		rv.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperrors.AlreadyExists("review", "tour", rv.TourID)
		}
		return fmt.Errorf("insert review: %w", err)
	}

	return nil
}

// GetByID retrieves a review by its ID, with the author's display fields.
func (r *ReviewRepository) GetByID(ctx context.Context, id string) (*domain.Review, error) {
	q := `
		SELECT r.id, r.tour_id, r.author_id, r.rating, r.content, r.created_at, r.updated_at,
		       u.name, u.photo
		FROM reviews r
		JOIN users u ON u.id = r.author_id
		WHERE r.id = $1`

	var rv domain.Review
	err := r.pool.QueryRow(ctx, q, id).Scan(
		&rv.ID,
		&rv.TourID,
		&rv.AuthorID,
		&rv.Rating,
		&rv.Content,
		&rv.CreatedAt,
		&rv.UpdatedAt,
		&rv.AuthorName,
		&rv.AuthorPhoto,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("scan review: %w", err)
	}

	return &rv, nil
}

// List returns reviews matching the query spec with the total count.
func (r *ReviewRepository) List(ctx context.Context, spec *query.Spec) ([]domain.Review, int, error) {
	clause, args := spec.Clauses()

	q := fmt.Sprintf(`
		SELECT id, tour_id, author_id, rating, content, created_at, updated_at,
		       count(*) OVER() AS total_count
		FROM reviews %s`, clause)

	rows, err := r.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list reviews: %w", err)
	}
	defer rows.Close()

	var (
		reviews    []domain.Review
		totalCount int
	)

	for rows.Next() {
		var rv domain.Review
		if err := rows.Scan(
			&rv.ID,
			&rv.TourID,
			&rv.AuthorID,
			&rv.Rating,
			&rv.Content,
			&rv.CreatedAt,
			&rv.UpdatedAt,
			&totalCount,
		); err != nil {
			return nil, 0, fmt.Errorf("scan review row: %w", err)
		}
		reviews = append(reviews, rv)
	}

	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate review rows: %w", err)
	}

	if reviews == nil {
		reviews = []domain.Review{}
	}

	return reviews, totalCount, nil
}

// Update modifies a review's rating and content.
func (r *ReviewRepository) Update(ctx context.Context, rv *domain.Review) error {
	rv.UpdatedAt = time.Now().UTC()

	q := `
		UPDATE reviews
		SET rating = $1, content = $2, updated_at = $3
		WHERE id = $4`

	ct, err := r.pool.Exec(ctx, q, rv.Rating, rv.Content, rv.UpdatedAt, rv.ID)
	if err != nil {
		return fmt.Errorf("update review: %w", err)
	}

	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("review", rv.ID)
	}

	return nil
}

// Delete removes a review from the database by its ID.
func (r *ReviewRepository) Delete(ctx context.Context, id string) error {
	ct, err := r.pool.Exec(ctx, `DELETE FROM reviews WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete review: %w", err)
	}

	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("review", id)
	}

	return nil
}

// RatingStats computes the review count and mean rating for a tour. A tour
// with no reviews yields a zero count.
func (r *ReviewRepository) RatingStats(ctx context.Context, tourID string) (domain.RatingStats, error) {
	q := `
		SELECT count(*), coalesce(round(avg(rating)::numeric, 1), 0)
		FROM reviews
		WHERE tour_id = $1`

	var stats domain.RatingStats
	if err := r.pool.QueryRow(ctx, q, tourID).Scan(&stats.Count, &stats.Average); err != nil {
		return domain.RatingStats{}, fmt.Errorf("review rating stats: %w", err)
	}

	return stats, nil
}
