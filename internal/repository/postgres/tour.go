package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/peakscale/tourbook/internal/domain"
	"github.com/peakscale/tourbook/internal/query"
	"github.com/peakscale/tourbook/pkg/database"
	apperrors "github.com/peakscale/tourbook/pkg/errors"
)

// TourRepository implements repository.TourRepository using PostgreSQL.
type TourRepository struct {
	pool database.DBTX
}

// NewTourRepository creates a new PostgreSQL-backed tour repository.
func NewTourRepository(pool database.DBTX) *TourRepository {
	return &TourRepository{pool: pool}
}

// Create inserts a new tour into the database.
func (r *TourRepository) Create(ctx context.Context, t *domain.Tour) error {
	locationJSON, err := marshalLocation(t.StartLocation)
	if err != nil {
		return err
	}

	q := `
		INSERT INTO tours (id, name, slug, price, price_discount, duration_days, max_group_size, difficulty,
		                   ratings_average, ratings_count, summary, description, image_cover, images, start_dates,
		                   secret, start_location, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)`

	_, err = r.pool.Exec(ctx, q,
		t.ID,
		t.Name,
		t.Slug,
		t.Price,
		t.PriceDiscount,
		t.DurationDays,
		t.MaxGroupSize,
		t.Difficulty,
		t.RatingsAverage,
		t.RatingsCount,
		t.Summary,
		t.Description,
		t.ImageCover,
		t.Images,
		t.StartDates,
		t.Secret,
		locationJSON,
		t.CreatedAt,
		t.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperrors.AlreadyExists("tour", "name", t.Name)
		}
		return fmt.Errorf("insert tour: %w", err)
	}

	return nil
}

// GetByID retrieves a tour by its ID.
func (r *TourRepository) GetByID(ctx context.Context, id string) (*domain.Tour, error) {
	q := fmt.Sprintf(`SELECT %s FROM tours WHERE id = $1`, tourColumns)
	return r.scanTour(ctx, q, id)
}

// GetBySlug retrieves a tour by its slug.
func (r *TourRepository) GetBySlug(ctx context.Context, slug string) (*domain.Tour, error) {
	q := fmt.Sprintf(`SELECT %s FROM tours WHERE slug = $1`, tourColumns)
	return r.scanTour(ctx, q, slug)
}

// List returns tours matching the query spec with the total count.
func (r *TourRepository) List(ctx context.Context, spec *query.Spec) ([]domain.Tour, int, error) {
	clause, args := spec.Clauses()

	// Use count(*) OVER() for total count in a single query.
	q := fmt.Sprintf(`SELECT %s, count(*) OVER() AS total_count FROM tours %s`, tourColumns, clause)

	rows, err := r.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list tours: %w", err)
	}
	defer rows.Close()

	var (
		tours      []domain.Tour
		totalCount int
	)

	for rows.Next() {
		var (
			t            domain.Tour
			locationJSON []byte
		)

		if err := rows.Scan(
			&t.ID,
			&t.Name,
			&t.Slug,
			&t.Price,
			&t.PriceDiscount,
			&t.DurationDays,
			&t.MaxGroupSize,
			&t.Difficulty,
			&t.RatingsAverage,
			&t.RatingsCount,
			&t.Summary,
			&t.Description,
			&t.ImageCover,
			&t.Images,
			&t.StartDates,
			&t.Secret,
			&locationJSON,
			&t.CreatedAt,
			&t.UpdatedAt,
			&totalCount,
		); err != nil {
			return nil, 0, fmt.Errorf("scan tour row: %w", err)
		}

		if err := unmarshalLocation(locationJSON, &t.StartLocation); err != nil {
			return nil, 0, err
		}

		tours = append(tours, t)
	}

	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate tour rows: %w", err)
	}

	if tours == nil {
		tours = []domain.Tour{}
	}

	return tours, totalCount, nil
}

// Update modifies an existing tour in the database.
func (r *TourRepository) Update(ctx context.Context, t *domain.Tour) error {
	locationJSON, err := marshalLocation(t.StartLocation)
	if err != nil {
		return err
	}

	t.UpdatedAt = time.Now().UTC()

	q := `
		UPDATE tours
		SET name = $1, slug = $2, price = $3, price_discount = $4, duration_days = $5,
		    max_group_size = $6, difficulty = $7, summary = $8, description = $9,
		    image_cover = $10, images = $11, start_dates = $12, secret = $13,
		    start_location = $14, updated_at = $15
		WHERE id = $16`

	ct, err := r.pool.Exec(ctx, q,
		t.Name,
		t.Slug,
		t.Price,
		t.PriceDiscount,
		t.DurationDays,
		t.MaxGroupSize,
		t.Difficulty,
		t.Summary,
		t.Description,
		t.ImageCover,
		t.Images,
		t.StartDates,
		t.Secret,
		locationJSON,
		t.UpdatedAt,
		t.ID,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperrors.AlreadyExists("tour", "name", t.Name)
		}
		return fmt.Errorf("update tour: %w", err)
	}

	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("tour", t.ID)
	}

	return nil
}

// Delete removes a tour from the database by its ID.
func (r *TourRepository) Delete(ctx context.Context, id string) error {
	ct, err := r.pool.Exec(ctx, `DELETE FROM tours WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete tour: %w", err)
	}

	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("tour", id)
	}

	return nil
}

// UpdateRatingStats overwrites a tour's ratings aggregate.
func (r *TourRepository) UpdateRatingStats(ctx context.Context, tourID string, stats domain.RatingStats) error {
	q := `
		UPDATE tours
		SET ratings_average = $1, ratings_count = $2, updated_at = now()
		WHERE id = $3`

	ct, err := r.pool.Exec(ctx, q, stats.Average, stats.Count, tourID)
	if err != nil {
		return fmt.Errorf("update tour rating stats: %w", err)
	}

	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("tour", tourID)
	}

	return nil
}

// Stats aggregates non-secret tours grouped by difficulty.
func (r *TourRepository) Stats(ctx context.Context) ([]domain.TourStats, error) {
	q := `
		SELECT difficulty,
		       count(*) AS tour_count,
		       coalesce(sum(ratings_count), 0) AS ratings_count,
		       coalesce(avg(ratings_average), 0) AS avg_rating,
		       coalesce(avg(price), 0) AS avg_price,
		       coalesce(min(price), 0) AS min_price,
		       coalesce(max(price), 0) AS max_price
		FROM tours
		WHERE secret = false
		GROUP BY difficulty
		ORDER BY avg_price`

	rows, err := r.pool.Query(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("tour stats: %w", err)
	}
	defer rows.Close()

	var stats []domain.TourStats
	for rows.Next() {
		var s domain.TourStats
		if err := rows.Scan(
			&s.Difficulty,
			&s.TourCount,
			&s.RatingsCount,
			&s.AvgRating,
			&s.AvgPrice,
			&s.MinPrice,
			&s.MaxPrice,
		); err != nil {
			return nil, fmt.Errorf("scan tour stats row: %w", err)
		}
		stats = append(stats, s)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate tour stats rows: %w", err)
	}

	if stats == nil {
		stats = []domain.TourStats{}
	}

	return stats, nil
}

// MonthlyPlan returns per-month start counts for the given year, busiest
// month first.
func (r *TourRepository) MonthlyPlan(ctx context.Context, year int) ([]domain.MonthlyPlanEntry, error) {
	q := `
		SELECT extract(month FROM d)::int AS month,
		       count(*) AS tour_count,
		       array_agg(name ORDER BY name) AS tour_names
		FROM tours, unnest(start_dates) AS d
		WHERE extract(year FROM d) = $1 AND secret = false
		GROUP BY month
		ORDER BY tour_count DESC, month`

	rows, err := r.pool.Query(ctx, q, year)
	if err != nil {
		return nil, fmt.Errorf("monthly plan: %w", err)
	}
	defer rows.Close()

	var plan []domain.MonthlyPlanEntry
	for rows.Next() {
		var e domain.MonthlyPlanEntry
		if err := rows.Scan(&e.Month, &e.TourCount, &e.TourNames); err != nil {
			return nil, fmt.Errorf("scan monthly plan row: %w", err)
		}
		plan = append(plan, e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate monthly plan rows: %w", err)
	}

	if plan == nil {
		plan = []domain.MonthlyPlanEntry{}
	}

	return plan, nil
}

// Within returns non-secret tours whose start location lies within radiusKm
// of the given point, nearest first. Distance is great-circle (haversine).
func (r *TourRepository) Within(ctx context.Context, lat, lng, radiusKm float64) ([]domain.Tour, error) {
	q := fmt.Sprintf(`
		SELECT %s
		FROM (
			SELECT *,
			       6371 * acos(least(1.0,
			           cos(radians($1)) * cos(radians((start_location->>'latitude')::float8)) *
			           cos(radians((start_location->>'longitude')::float8) - radians($2)) +
			           sin(radians($1)) * sin(radians((start_location->>'latitude')::float8))
			       )) AS distance_km
			FROM tours
			WHERE secret = false AND start_location IS NOT NULL
		) located
		WHERE distance_km <= $3
		ORDER BY distance_km`, tourColumns)

	rows, err := r.pool.Query(ctx, q, lat, lng, radiusKm)
	if err != nil {
		return nil, fmt.Errorf("tours within: %w", err)
	}
	defer rows.Close()

	var tours []domain.Tour
	for rows.Next() {
		var (
			t            domain.Tour
			locationJSON []byte
		)
		if err := rows.Scan(
			&t.ID,
			&t.Name,
			&t.Slug,
			&t.Price,
			&t.PriceDiscount,
			&t.DurationDays,
			&t.MaxGroupSize,
			&t.Difficulty,
			&t.RatingsAverage,
			&t.RatingsCount,
			&t.Summary,
			&t.Description,
			&t.ImageCover,
			&t.Images,
			&t.StartDates,
			&t.Secret,
			&locationJSON,
			&t.CreatedAt,
			&t.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan tour row: %w", err)
		}

		if err := unmarshalLocation(locationJSON, &t.StartLocation); err != nil {
			return nil, err
		}

		tours = append(tours, t)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate tour rows: %w", err)
	}

	if tours == nil {
		tours = []domain.Tour{}
	}

	return tours, nil
}

// Distances returns the kilometer distance from the given point to every
// non-secret tour that has a start location, nearest first.
func (r *TourRepository) Distances(ctx context.Context, lat, lng float64) ([]domain.TourDistance, error) {
	q := `
		SELECT id, name, slug,
		       6371 * acos(least(1.0,
		           cos(radians($1)) * cos(radians((start_location->>'latitude')::float8)) *
		           cos(radians((start_location->>'longitude')::float8) - radians($2)) +
		           sin(radians($1)) * sin(radians((start_location->>'latitude')::float8))
		       )) AS distance_km
		FROM tours
		WHERE secret = false AND start_location IS NOT NULL
		ORDER BY distance_km`

	rows, err := r.pool.Query(ctx, q, lat, lng)
	if err != nil {
		return nil, fmt.Errorf("tour distances: %w", err)
	}
	defer rows.Close()

	var distances []domain.TourDistance
	for rows.Next() {
		var d domain.TourDistance
		if err := rows.Scan(&d.ID, &d.Name, &d.Slug, &d.Distance); err != nil {
			return nil, fmt.Errorf("scan tour distance row: %w", err)
		}
		distances = append(distances, d)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate tour distance rows: %w", err)
	}

	if distances == nil {
		distances = []domain.TourDistance{}
	}

	return distances, nil
}

// scanTour is a helper that executes a query expected to return a single tour row.
func (r *TourRepository) scanTour(ctx context.Context, q string, args ...any) (*domain.Tour, error) {
	var (
		t            domain.Tour
		locationJSON []byte
	)

	err := r.pool.QueryRow(ctx, q, args...).Scan(
		&t.ID,
		&t.Name,
		&t.Slug,
		&t.Price,
		&t.PriceDiscount,
		&t.DurationDays,
		&t.MaxGroupSize,
		&t.Difficulty,
		&t.RatingsAverage,
		&t.RatingsCount,
		&t.Summary,
		&t.Description,
		&t.ImageCover,
		&t.Images,
		&t.StartDates,
		&t.Secret,
		&locationJSON,
		&t.CreatedAt,
		&t.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("scan tour: %w", err)
	}

	if err := unmarshalLocation(locationJSON, &t.StartLocation); err != nil {
		return nil, err
	}

	return &t, nil
}

func marshalLocation(loc *domain.Location) ([]byte, error) {
	if loc == nil {
		return nil, nil
	}
	raw, err := json.Marshal(loc)
	if err != nil {
		return nil, fmt.Errorf("marshal start location: %w", err)
	}
	return raw, nil
}

func unmarshalLocation(raw []byte, loc **domain.Location) error {
	if raw == nil {
		return nil
	}
	var l domain.Location
	if err := json.Unmarshal(raw, &l); err != nil {
		return fmt.Errorf("unmarshal start location: %w", err)
	}
	*loc = &l
	return nil
}
