package service

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/peakscale/tourbook/internal/domain"
	"github.com/peakscale/tourbook/internal/query"
	"github.com/peakscale/tourbook/internal/repository"
	apperrors "github.com/peakscale/tourbook/pkg/errors"
	"github.com/peakscale/tourbook/pkg/slug"
)

// milesPerKilometer converts the public API's mile radii to kilometers.
const milesToKm = 1.609344

// tourSchema is the query allow-list for public tour listings.
var tourSchema = query.Schema{
	Fields: map[string]string{
		"name":            "name",
		"price":           "price",
		"duration_days":   "duration_days",
		"max_group_size":  "max_group_size",
		"difficulty":      "difficulty",
		"ratings_average": "ratings_average",
		"ratings_count":   "ratings_count",
		"created_at":      "created_at",
	},
	Projection: []string{
		"id", "name", "slug", "price", "price_discount", "duration_days",
		"max_group_size", "difficulty", "ratings_average", "ratings_count",
		"summary", "image_cover", "start_dates", "start_location", "created_at",
	},
	DefaultSort: []query.SortField{{Column: "created_at", Desc: true}},
}

// TourStatsCache caches the difficulty aggregate. A miss is ErrNotFound.
type TourStatsCache interface {
	Get(ctx context.Context) ([]domain.TourStats, error)
	Set(ctx context.Context, stats []domain.TourStats) error
	Invalidate(ctx context.Context) error
}

// TourService implements the business logic for tour operations.
type TourService struct {
	tours  repository.TourRepository
	cache  TourStatsCache
	logger *slog.Logger
}

// NewTourService creates a new tour service. cache may be nil, in which case
// stats are computed on every call.
func NewTourService(tours repository.TourRepository, cache TourStatsCache, logger *slog.Logger) *TourService {
	return &TourService{
		tours:  tours,
		cache:  cache,
		logger: logger,
	}
}

// CreateTourInput holds the parameters for creating a tour.
type CreateTourInput struct {
	Name          string
	Price         int64
	PriceDiscount *int64
	DurationDays  int
	MaxGroupSize  int
	Difficulty    string
	Summary       string
	Description   string
	ImageCover    string
	Images        []string
	StartDates    []time.Time
	Secret        bool
	StartLocation *domain.Location
}

// UpdateTourInput holds the parameters for updating a tour.
type UpdateTourInput struct {
	Name          *string
	Price         *int64
	PriceDiscount *int64
	DurationDays  *int
	MaxGroupSize  *int
	Difficulty    *string
	Summary       *string
	Description   *string
	ImageCover    *string
	Images        []string
	StartDates    []time.Time
	Secret        *bool
	StartLocation *domain.Location
}

// List returns public tours matching the request's query string. Secret
// tours are excluded by a scoping filter the client cannot override.
func (s *TourService) List(ctx context.Context, values url.Values) ([]domain.Tour, int, *query.Spec, error) {
	spec, err := query.Parse(values, tourSchema)
	if err != nil {
		return nil, 0, nil, err
	}
	spec.Scope("secret", false)

	tours, total, err := s.tours.List(ctx, spec)
	if err != nil {
		return nil, 0, nil, fmt.Errorf("list tours: %w", err)
	}

	return tours, total, spec, nil
}

// TopCheap is the alias listing: the five best-rated tours, cheapest first
// among equals. Client-supplied sort, limit, and page are overridden.
func (s *TourService) TopCheap(ctx context.Context, values url.Values) ([]domain.Tour, int, *query.Spec, error) {
	preset := url.Values{}
	for k, v := range values {
		preset[k] = v
	}
	preset.Set("sort", "-ratings_average,price")
	preset.Set("limit", "5")
	preset.Set("page", "1")

	return s.List(ctx, preset)
}

// Get retrieves a tour by id or slug. Secret tours read like they do not
// exist, matching the listing scope.
func (s *TourService) Get(ctx context.Context, idOrSlug string) (*domain.Tour, error) {
	var (
		tour *domain.Tour
		err  error
	)
	if _, parseErr := uuid.Parse(idOrSlug); parseErr == nil {
		tour, err = s.tours.GetByID(ctx, idOrSlug)
	} else {
		tour, err = s.tours.GetBySlug(ctx, idOrSlug)
	}
	if err != nil {
		return nil, fmt.Errorf("get tour: %w", err)
	}
	if tour.Secret {
		return nil, apperrors.NotFound("tour", idOrSlug)
	}
	return tour, nil
}

// Create adds a new tour to the catalog.
func (s *TourService) Create(ctx context.Context, input CreateTourInput) (*domain.Tour, error) {
	if err := validateTourBasics(input.Name, input.Price, input.PriceDiscount, input.Difficulty); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	tour := &domain.Tour{
		ID:             uuid.New().String(),
		Name:           strings.TrimSpace(input.Name),
		Slug:           slug.Make(input.Name),
		Price:          input.Price,
		PriceDiscount:  input.PriceDiscount,
		DurationDays:   input.DurationDays,
		MaxGroupSize:   input.MaxGroupSize,
		Difficulty:     input.Difficulty,
		RatingsAverage: domain.DefaultRatingsAverage,
		RatingsCount:   0,
		Summary:        input.Summary,
		Description:    input.Description,
		ImageCover:     input.ImageCover,
		Images:         input.Images,
		StartDates:     input.StartDates,
		Secret:         input.Secret,
		StartLocation:  input.StartLocation,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	if err := s.tours.Create(ctx, tour); err != nil {
		return nil, fmt.Errorf("create tour: %w", err)
	}

	s.invalidateStats(ctx)

	s.logger.InfoContext(ctx, "tour created",
		slog.String("tour_id", tour.ID),
		slog.String("slug", tour.Slug),
	)

	return tour, nil
}

// Update modifies an existing tour.
func (s *TourService) Update(ctx context.Context, id string, input UpdateTourInput) (*domain.Tour, error) {
	tour, err := s.tours.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get tour: %w", err)
	}

	if input.Name != nil {
		tour.Name = strings.TrimSpace(*input.Name)
		tour.Slug = slug.Make(tour.Name)
	}
	if input.Price != nil {
		tour.Price = *input.Price
	}
	if input.PriceDiscount != nil {
		tour.PriceDiscount = input.PriceDiscount
	}
	if input.DurationDays != nil {
		tour.DurationDays = *input.DurationDays
	}
	if input.MaxGroupSize != nil {
		tour.MaxGroupSize = *input.MaxGroupSize
	}
	if input.Difficulty != nil {
		tour.Difficulty = *input.Difficulty
	}
	if input.Summary != nil {
		tour.Summary = *input.Summary
	}
	if input.Description != nil {
		tour.Description = *input.Description
	}
	if input.ImageCover != nil {
		tour.ImageCover = *input.ImageCover
	}
	if input.Images != nil {
		tour.Images = input.Images
	}
	if input.StartDates != nil {
		tour.StartDates = input.StartDates
	}
	if input.Secret != nil {
		tour.Secret = *input.Secret
	}
	if input.StartLocation != nil {
		tour.StartLocation = input.StartLocation
	}

	if err := validateTourBasics(tour.Name, tour.Price, tour.PriceDiscount, tour.Difficulty); err != nil {
		return nil, err
	}

	if err := s.tours.Update(ctx, tour); err != nil {
		return nil, fmt.Errorf("update tour: %w", err)
	}

	s.invalidateStats(ctx)

	return tour, nil
}

// Delete removes a tour from the catalog.
func (s *TourService) Delete(ctx context.Context, id string) error {
	if err := s.tours.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete tour: %w", err)
	}

	s.invalidateStats(ctx)

	s.logger.InfoContext(ctx, "tour deleted",
		slog.String("tour_id", id),
	)

	return nil
}

// Stats returns the difficulty aggregate, served from cache when warm.
func (s *TourService) Stats(ctx context.Context) ([]domain.TourStats, error) {
	if s.cache != nil {
		if stats, err := s.cache.Get(ctx); err == nil {
			return stats, nil
		}
	}

	stats, err := s.tours.Stats(ctx)
	if err != nil {
		return nil, fmt.Errorf("tour stats: %w", err)
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, stats); err != nil {
			s.logger.WarnContext(ctx, "failed to cache tour stats",
				slog.String("error", err.Error()),
			)
		}
	}

	return stats, nil
}

// MonthlyPlan returns per-month start counts for the given year.
func (s *TourService) MonthlyPlan(ctx context.Context, year int) ([]domain.MonthlyPlanEntry, error) {
	if year < 2000 || year > 2100 {
		return nil, apperrors.InvalidInput("year must be between 2000 and 2100")
	}

	plan, err := s.tours.MonthlyPlan(ctx, year)
	if err != nil {
		return nil, fmt.Errorf("monthly plan: %w", err)
	}

	return plan, nil
}

// Within returns tours whose start location lies within the given distance
// of the center point. unit is "km" or "mi".
func (s *TourService) Within(ctx context.Context, distance, lat, lng float64, unit string) ([]domain.Tour, error) {
	if distance <= 0 {
		return nil, apperrors.InvalidInput("distance must be positive")
	}
	if lat < -90 || lat > 90 || lng < -180 || lng > 180 {
		return nil, apperrors.InvalidInput("center must be valid lat,lng coordinates")
	}

	radiusKm := distance
	switch unit {
	case "km":
	case "mi":
		radiusKm = distance * milesToKm
	default:
		return nil, apperrors.InvalidInput("unit must be km or mi")
	}

	tours, err := s.tours.Within(ctx, lat, lng, radiusKm)
	if err != nil {
		return nil, fmt.Errorf("tours within: %w", err)
	}

	return tours, nil
}

// Distances returns the distance from the given point to every public tour,
// nearest first, in the requested unit ("km" or "mi").
func (s *TourService) Distances(ctx context.Context, lat, lng float64, unit string) ([]domain.TourDistance, error) {
	if lat < -90 || lat > 90 || lng < -180 || lng > 180 {
		return nil, apperrors.InvalidInput("center must be valid lat,lng coordinates")
	}
	if unit != "km" && unit != "mi" {
		return nil, apperrors.InvalidInput("unit must be km or mi")
	}

	distances, err := s.tours.Distances(ctx, lat, lng)
	if err != nil {
		return nil, fmt.Errorf("tour distances: %w", err)
	}

	if unit == "mi" {
		for i := range distances {
			distances[i].Distance /= milesToKm
		}
	}

	return distances, nil
}

func (s *TourService) invalidateStats(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx); err != nil {
		s.logger.WarnContext(ctx, "failed to invalidate tour stats cache",
			slog.String("error", err.Error()),
		)
	}
}

func validateTourBasics(name string, price int64, discount *int64, difficulty string) error {
	name = strings.TrimSpace(name)
	if len(name) < 2 || len(name) > 50 {
		return apperrors.InvalidInput("tour name must be between 2 and 50 characters")
	}
	if price <= 0 {
		return apperrors.InvalidInput("price must be positive")
	}
	if discount != nil && *discount >= price {
		return apperrors.InvalidInput("price discount must be below the regular price")
	}
	if !domain.IsValidDifficulty(difficulty) {
		return apperrors.InvalidInput("difficulty must be easy, medium, or difficult")
	}
	return nil
}
