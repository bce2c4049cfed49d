package service

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"github.com/google/uuid"

	"github.com/peakscale/tourbook/internal/domain"
	"github.com/peakscale/tourbook/internal/event"
	"github.com/peakscale/tourbook/internal/query"
	"github.com/peakscale/tourbook/internal/repository"
	apperrors "github.com/peakscale/tourbook/pkg/errors"
)

// reviewSchema is the query allow-list for review listings.
var reviewSchema = query.Schema{
	Fields: map[string]string{
		"rating":     "rating",
		"author_id":  "author_id",
		"created_at": "created_at",
	},
	Projection:  []string{"id", "tour_id", "author_id", "rating", "content", "created_at"},
	DefaultSort: []query.SortField{{Column: "created_at", Desc: true}},
}

// ReviewService implements the business logic for review operations. Every
// write recomputes the owning tour's rating aggregate in the same call, so
// the aggregate never drifts silently.
type ReviewService struct {
	reviews  repository.ReviewRepository
	tours    repository.TourRepository
	producer event.Publisher
	cache    TourStatsCache
	logger   *slog.Logger
}

// NewReviewService creates a new review service.
func NewReviewService(
	reviews repository.ReviewRepository,
	tours repository.TourRepository,
	producer event.Publisher,
	cache TourStatsCache,
	logger *slog.Logger,
) *ReviewService {
	return &ReviewService{
		reviews:  reviews,
		tours:    tours,
		producer: producer,
		cache:    cache,
		logger:   logger,
	}
}

// CreateReviewInput holds the parameters for creating a review. The author
// is always the authenticated caller, never a request field.
type CreateReviewInput struct {
	TourID   string
	AuthorID string
	Rating   int
	Content  string
}

// UpdateReviewInput holds the parameters for updating a review.
type UpdateReviewInput struct {
	Rating  *int
	Content *string
}

// ListByTour returns reviews for one tour, scoped so the client cannot
// widen the listing to other tours.
func (s *ReviewService) ListByTour(ctx context.Context, tourID string, values url.Values) ([]domain.Review, int, *query.Spec, error) {
	spec, err := query.Parse(values, reviewSchema)
	if err != nil {
		return nil, 0, nil, err
	}
	spec.Scope("tour_id", tourID)

	reviews, total, err := s.reviews.List(ctx, spec)
	if err != nil {
		return nil, 0, nil, fmt.Errorf("list reviews: %w", err)
	}

	return reviews, total, spec, nil
}

// Get retrieves a review by id.
func (s *ReviewService) Get(ctx context.Context, id string) (*domain.Review, error) {
	review, err := s.reviews.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get review: %w", err)
	}
	return review, nil
}

// Create adds a review and recomputes the tour's rating aggregate.
func (s *ReviewService) Create(ctx context.Context, input CreateReviewInput) (*domain.Review, error) {
	if input.Rating < 1 || input.Rating > 5 {
		return nil, apperrors.InvalidInput("rating must be between 1 and 5")
	}
	if input.Content == "" {
		return nil, apperrors.InvalidInput("review content is required")
	}

	// The tour must exist and be public.
	tour, err := s.tours.GetByID(ctx, input.TourID)
	if err != nil {
		return nil, fmt.Errorf("get tour: %w", err)
	}
	if tour.Secret {
		return nil, apperrors.NotFound("tour", input.TourID)
	}

	now := time.Now().UTC()
	review := &domain.Review{
		ID:        uuid.New().String(),
		TourID:    input.TourID,
		AuthorID:  input.AuthorID,
		Rating:    input.Rating,
		Content:   input.Content,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.reviews.Create(ctx, review); err != nil {
		return nil, fmt.Errorf("create review: %w", err)
	}

	s.recomputeRating(ctx, review.TourID)

	s.producer.PublishReviewCreated(ctx, event.ReviewData{
		ID:       review.ID,
		TourID:   review.TourID,
		AuthorID: review.AuthorID,
		Rating:   review.Rating,
	})

	s.logger.InfoContext(ctx, "review created",
		slog.String("review_id", review.ID),
		slog.String("tour_id", review.TourID),
	)

	return review, nil
}

// Update modifies a review. Only the author or an admin may do so.
func (s *ReviewService) Update(ctx context.Context, id string, caller *domain.User, input UpdateReviewInput) (*domain.Review, error) {
	review, err := s.reviews.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get review: %w", err)
	}

	if err := authorizeReviewWrite(review, caller); err != nil {
		return nil, err
	}

	if input.Rating != nil {
		if *input.Rating < 1 || *input.Rating > 5 {
			return nil, apperrors.InvalidInput("rating must be between 1 and 5")
		}
		review.Rating = *input.Rating
	}
	if input.Content != nil {
		if *input.Content == "" {
			return nil, apperrors.InvalidInput("review content is required")
		}
		review.Content = *input.Content
	}

	if err := s.reviews.Update(ctx, review); err != nil {
		return nil, fmt.Errorf("update review: %w", err)
	}

	s.recomputeRating(ctx, review.TourID)

	s.producer.PublishReviewUpdated(ctx, event.ReviewData{
		ID:       review.ID,
		TourID:   review.TourID,
		AuthorID: review.AuthorID,
		Rating:   review.Rating,
	})

	return review, nil
}

// Delete removes a review. Only the author or an admin may do so.
func (s *ReviewService) Delete(ctx context.Context, id string, caller *domain.User) error {
	review, err := s.reviews.GetByID(ctx, id)
	if err != nil {
		return fmt.Errorf("get review: %w", err)
	}

	if err := authorizeReviewWrite(review, caller); err != nil {
		return err
	}

	if err := s.reviews.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete review: %w", err)
	}

	s.recomputeRating(ctx, review.TourID)

	s.producer.PublishReviewDeleted(ctx, event.ReviewData{
		ID:       review.ID,
		TourID:   review.TourID,
		AuthorID: review.AuthorID,
	})

	s.logger.InfoContext(ctx, "review deleted",
		slog.String("review_id", id),
		slog.String("tour_id", review.TourID),
	)

	return nil
}

// recomputeRating refreshes the owning tour's aggregate from the review
// table. A tour left with no reviews reverts to the default display rating.
func (s *ReviewService) recomputeRating(ctx context.Context, tourID string) {
	stats, err := s.reviews.RatingStats(ctx, tourID)
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to compute rating stats",
			slog.String("tour_id", tourID),
			slog.String("error", err.Error()),
		)
		return
	}

	if stats.Count == 0 {
		stats.Average = domain.DefaultRatingsAverage
	}

	if err := s.tours.UpdateRatingStats(ctx, tourID, stats); err != nil {
		s.logger.ErrorContext(ctx, "failed to update tour rating stats",
			slog.String("tour_id", tourID),
			slog.String("error", err.Error()),
		)
		return
	}

	if s.cache != nil {
		if err := s.cache.Invalidate(ctx); err != nil {
			s.logger.WarnContext(ctx, "failed to invalidate tour stats cache",
				slog.String("error", err.Error()),
			)
		}
	}
}

func authorizeReviewWrite(review *domain.Review, caller *domain.User) error {
	if caller == nil {
		return apperrors.Unauthorized("authentication required")
	}
	if review.AuthorID != caller.ID && caller.Role != domain.RoleAdmin {
		return apperrors.Forbidden("you may only modify your own reviews")
	}
	return nil
}
