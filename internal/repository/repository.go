package repository

import (
	"context"
	"time"

	"github.com/peakscale/tourbook/internal/domain"
	"github.com/peakscale/tourbook/internal/query"
)

// TourRepository defines the interface for tour persistence operations.
type TourRepository interface {
	// Create inserts a new tour into the store.
	Create(ctx context.Context, tour *domain.Tour) error

	// GetByID retrieves a tour by its unique identifier.
	GetByID(ctx context.Context, id string) (*domain.Tour, error)

	// GetBySlug retrieves a tour by its URL-friendly slug.
	GetBySlug(ctx context.Context, slug string) (*domain.Tour, error)

	// List returns tours matching the query spec along with the total count.
	List(ctx context.Context, spec *query.Spec) ([]domain.Tour, int, error)

	// Update modifies an existing tour in the store.
	Update(ctx context.Context, tour *domain.Tour) error

	// Delete removes a tour from the store by its identifier.
	Delete(ctx context.Context, id string) error

	// UpdateRatingStats overwrites a tour's ratings aggregate.
	UpdateRatingStats(ctx context.Context, tourID string, stats domain.RatingStats) error

	// Stats aggregates non-secret tours grouped by difficulty.
	Stats(ctx context.Context) ([]domain.TourStats, error)

	// MonthlyPlan returns per-month start counts for the given year.
	MonthlyPlan(ctx context.Context, year int) ([]domain.MonthlyPlanEntry, error)

	// Within returns non-secret tours whose start location lies within
	// radiusKm of the given point.
	Within(ctx context.Context, lat, lng, radiusKm float64) ([]domain.Tour, error)

	// Distances returns the distance in kilometers from the given point to
	// every non-secret tour with a start location, nearest first.
	Distances(ctx context.Context, lat, lng float64) ([]domain.TourDistance, error)
}

// UserRepository defines the interface for user persistence operations.
type UserRepository interface {
	// Create inserts a new user into the store.
	Create(ctx context.Context, user *domain.User) error

	// GetByID retrieves a user by their unique identifier.
	GetByID(ctx context.Context, id string) (*domain.User, error)

	// GetByEmail retrieves a user by their email address.
	GetByEmail(ctx context.Context, email string) (*domain.User, error)

	// List returns users matching the query spec along with the total count.
	List(ctx context.Context, spec *query.Spec) ([]domain.User, int, error)

	// Update modifies a user's profile fields (name, email, photo, role, active).
	Update(ctx context.Context, user *domain.User) error

	// UpdatePassword stores a new password hash, rotates password_changed_at,
	// and clears any outstanding reset ticket.
	UpdatePassword(ctx context.Context, id, passwordHash string, changedAt time.Time) error

	// SetResetTicket stores a reset ticket digest and expiry on the user row.
	SetResetTicket(ctx context.Context, id, digest string, expiresAt time.Time) error

	// ClearResetTicket removes any stored reset ticket from the user row.
	ClearResetTicket(ctx context.Context, id string) error

	// ConsumeResetTicket atomically redeems an unexpired reset ticket: it
	// stores the new password hash, rotates password_changed_at, clears the
	// ticket fields, and returns the updated user. A missing or expired
	// ticket yields ErrNotFound.
	ConsumeResetTicket(ctx context.Context, digest, passwordHash string, changedAt time.Time) (*domain.User, error)

	// Deactivate soft-deletes a user by clearing the active flag.
	Deactivate(ctx context.Context, id string) error

	// Delete removes a user from the store by their identifier.
	Delete(ctx context.Context, id string) error
}

// ReviewRepository defines the interface for review persistence operations.
type ReviewRepository interface {
	// Create inserts a new review into the store.
	Create(ctx context.Context, review *domain.Review) error

	// GetByID retrieves a review by its unique identifier.
	GetByID(ctx context.Context, id string) (*domain.Review, error)

	// List returns reviews matching the query spec along with the total
	// count. Callers scope the spec to a tour.
	List(ctx context.Context, spec *query.Spec) ([]domain.Review, int, error)

	// Update modifies a review's rating and content.
	Update(ctx context.Context, review *domain.Review) error

	// Delete removes a review from the store by its identifier.
	Delete(ctx context.Context, id string) error

	// RatingStats computes the review count and mean rating for a tour.
	RatingStats(ctx context.Context, tourID string) (domain.RatingStats, error)
}

// BookingRepository defines the interface for booking persistence operations.
type BookingRepository interface {
	// Create inserts a new booking into the store.
	Create(ctx context.Context, booking *domain.Booking) error

	// GetByID retrieves a booking by its unique identifier.
	GetByID(ctx context.Context, id string) (*domain.Booking, error)

	// List returns bookings matching the query spec along with the total count.
	List(ctx context.Context, spec *query.Spec) ([]domain.Booking, int, error)

	// ListByUser returns all bookings made by the given user.
	ListByUser(ctx context.Context, userID string) ([]domain.Booking, error)

	// GetBySession retrieves the booking owning a provider checkout session.
	GetBySession(ctx context.Context, providerSessionID string) (*domain.Booking, error)

	// MarkPaid transitions the booking owning the provider session to paid
	// and returns it. Unknown sessions yield ErrNotFound.
	MarkPaid(ctx context.Context, providerSessionID string) (*domain.Booking, error)
}
