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
	"github.com/peakscale/tourbook/internal/payment"
	"github.com/peakscale/tourbook/internal/query"
	"github.com/peakscale/tourbook/internal/repository"
	apperrors "github.com/peakscale/tourbook/pkg/errors"
)

// bookingSchema is the query allow-list for admin booking listings.
var bookingSchema = query.Schema{
	Fields: map[string]string{
		"tour_id":    "tour_id",
		"user_id":    "user_id",
		"status":     "status",
		"price":      "price",
		"created_at": "created_at",
	},
	Projection:  []string{"id", "tour_id", "user_id", "price", "status", "created_at"},
	DefaultSort: []query.SortField{{Column: "created_at", Desc: true}},
}

// BookingService implements the business logic for booking operations.
type BookingService struct {
	bookings repository.BookingRepository
	tours    repository.TourRepository
	provider payment.Provider
	producer event.Publisher
	logger   *slog.Logger

	// checkoutReturnURL is where the provider sends the customer after the
	// hosted checkout completes or is abandoned.
	checkoutReturnURL string
}

// NewBookingService creates a new booking service.
func NewBookingService(
	bookings repository.BookingRepository,
	tours repository.TourRepository,
	provider payment.Provider,
	producer event.Publisher,
	checkoutReturnURL string,
	logger *slog.Logger,
) *BookingService {
	return &BookingService{
		bookings:          bookings,
		tours:             tours,
		provider:          provider,
		producer:          producer,
		checkoutReturnURL: checkoutReturnURL,
		logger:            logger,
	}
}

// CheckoutResult is what the client needs to continue to the hosted checkout.
type CheckoutResult struct {
	BookingID  string `json:"booking_id"`
	SessionURL string `json:"session_url"`
}

// Checkout creates a pending booking for the tour and a provider checkout
// session to pay for it. The price is captured now, so later price changes
// never affect this booking.
func (s *BookingService) Checkout(ctx context.Context, caller *domain.User, tourID string) (*CheckoutResult, error) {
	tour, err := s.tours.GetByID(ctx, tourID)
	if err != nil {
		return nil, fmt.Errorf("get tour: %w", err)
	}
	if tour.Secret {
		return nil, apperrors.NotFound("tour", tourID)
	}

	bookingID := uuid.New().String()
	session, err := s.provider.CreateCheckoutSession(ctx, &payment.CheckoutInput{
		BookingID:     bookingID,
		TourName:      tour.Name,
		Amount:        tour.EffectivePrice(),
		Currency:      "usd",
		CustomerEmail: caller.Email,
		SuccessURL:    s.checkoutReturnURL + "?status=success",
		CancelURL:     s.checkoutReturnURL + "?status=canceled",
	})
	if err != nil {
		return nil, apperrors.Upstream("payment", err)
	}

	now := time.Now().UTC()
	booking := &domain.Booking{
		ID:                bookingID,
		TourID:            tour.ID,
		UserID:            caller.ID,
		Price:             tour.EffectivePrice(),
		Status:            domain.BookingStatusPending,
		ProviderSessionID: session.SessionID,
		CreatedAt:         now,
		UpdatedAt:         now,
	}

	if err := s.bookings.Create(ctx, booking); err != nil {
		return nil, fmt.Errorf("create booking: %w", err)
	}

	s.logger.InfoContext(ctx, "checkout started",
		slog.String("booking_id", booking.ID),
		slog.String("tour_id", tour.ID),
		slog.String("user_id", caller.ID),
	)

	return &CheckoutResult{
		BookingID:  booking.ID,
		SessionURL: session.URL,
	}, nil
}

// CompleteCheckout handles the provider's payment-completed webhook. Replays
// for an already-paid session are acknowledged without a second transition.
func (s *BookingService) CompleteCheckout(ctx context.Context, providerSessionID string) error {
	if providerSessionID == "" {
		return apperrors.InvalidInput("session id is required")
	}

	booking, err := s.bookings.MarkPaid(ctx, providerSessionID)
	if err != nil {
		existing, getErr := s.bookings.GetBySession(ctx, providerSessionID)
		if getErr == nil && existing.Status == domain.BookingStatusPaid {
			s.logger.InfoContext(ctx, "webhook replay for paid booking",
				slog.String("booking_id", existing.ID),
			)
			return nil
		}
		return fmt.Errorf("mark booking paid: %w", err)
	}

	s.producer.PublishBookingPaid(ctx, event.BookingPaidData{
		ID:     booking.ID,
		TourID: booking.TourID,
		UserID: booking.UserID,
		Price:  booking.Price,
	})

	s.logger.InfoContext(ctx, "booking paid",
		slog.String("booking_id", booking.ID),
		slog.String("tour_id", booking.TourID),
	)

	return nil
}

// ListMine returns the caller's bookings.
func (s *BookingService) ListMine(ctx context.Context, userID string) ([]domain.Booking, error) {
	bookings, err := s.bookings.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list bookings: %w", err)
	}
	return bookings, nil
}

// List returns bookings matching the request's query string.
func (s *BookingService) List(ctx context.Context, values url.Values) ([]domain.Booking, int, *query.Spec, error) {
	spec, err := query.Parse(values, bookingSchema)
	if err != nil {
		return nil, 0, nil, err
	}

	bookings, total, err := s.bookings.List(ctx, spec)
	if err != nil {
		return nil, 0, nil, fmt.Errorf("list bookings: %w", err)
	}

	return bookings, total, spec, nil
}
