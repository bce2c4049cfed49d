// Package event publishes domain events to Kafka.
package event

import (
	"context"
	"log/slog"

	pkgkafka "github.com/peakscale/tourbook/pkg/kafka"
	"github.com/peakscale/tourbook/pkg/logger"
)

// Kafka topic constants for domain events.
const (
	TopicUserRegistered    = "tourbook.user.registered"
	TopicUserPasswordReset = "tourbook.user.password_reset"
	TopicReviewCreated     = "tourbook.review.created"
	TopicReviewUpdated     = "tourbook.review.updated"
	TopicReviewDeleted     = "tourbook.review.deleted"
	TopicBookingPaid       = "tourbook.booking.paid"
)

// Aggregate type constants.
const (
	AggregateTypeUser    = "user"
	AggregateTypeReview  = "review"
	AggregateTypeBooking = "booking"
)

// Source identifier for events originating from this service.
const Source = "tourbook-api"

// UserData is the payload for user lifecycle events.
type UserData struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

// ReviewData is the payload for review lifecycle events.
type ReviewData struct {
	ID       string `json:"id"`
	TourID   string `json:"tour_id"`
	AuthorID string `json:"author_id"`
	Rating   int    `json:"rating,omitempty"`
}

// BookingPaidData is the payload for a booking.paid event.
type BookingPaidData struct {
	ID     string `json:"id"`
	TourID string `json:"tour_id"`
	UserID string `json:"user_id"`
	Price  int64  `json:"price"`
}

// Publisher is the event publishing surface the services depend on.
type Publisher interface {
	PublishUserRegistered(ctx context.Context, data UserData)
	PublishUserPasswordReset(ctx context.Context, data UserData)
	PublishReviewCreated(ctx context.Context, data ReviewData)
	PublishReviewUpdated(ctx context.Context, data ReviewData)
	PublishReviewDeleted(ctx context.Context, data ReviewData)
	PublishBookingPaid(ctx context.Context, data BookingPaidData)
}

// Producer publishes domain events to Kafka. Publishing is best-effort:
// failures are logged, never returned, so a broker outage cannot fail the
// request that triggered the event.
type Producer struct {
	kafka  *pkgkafka.Producer
	logger *slog.Logger
}

// NewProducer creates a new domain event producer.
func NewProducer(kafka *pkgkafka.Producer, log *slog.Logger) *Producer {
	return &Producer{
		kafka:  kafka,
		logger: log,
	}
}

func (p *Producer) PublishUserRegistered(ctx context.Context, data UserData) {
	p.publish(ctx, TopicUserRegistered, data.ID, AggregateTypeUser, data)
}

func (p *Producer) PublishUserPasswordReset(ctx context.Context, data UserData) {
	p.publish(ctx, TopicUserPasswordReset, data.ID, AggregateTypeUser, data)
}

func (p *Producer) PublishReviewCreated(ctx context.Context, data ReviewData) {
	p.publish(ctx, TopicReviewCreated, data.ID, AggregateTypeReview, data)
}

func (p *Producer) PublishReviewUpdated(ctx context.Context, data ReviewData) {
	p.publish(ctx, TopicReviewUpdated, data.ID, AggregateTypeReview, data)
}

func (p *Producer) PublishReviewDeleted(ctx context.Context, data ReviewData) {
	p.publish(ctx, TopicReviewDeleted, data.ID, AggregateTypeReview, data)
}

func (p *Producer) PublishBookingPaid(ctx context.Context, data BookingPaidData) {
	p.publish(ctx, TopicBookingPaid, data.ID, AggregateTypeBooking, data)
}

func (p *Producer) publish(ctx context.Context, topic, aggregateID, aggregateType string, data any) {
	evt, err := pkgkafka.NewEvent(topic, aggregateID, aggregateType, Source, data)
	if err != nil {
		p.logger.ErrorContext(ctx, "failed to build event",
			slog.String("topic", topic),
			slog.String("error", err.Error()),
		)
		return
	}

	if corrID := logger.CorrelationIDFromContext(ctx); corrID != "" {
		evt.WithCorrelationID(corrID)
	}

	if err := p.kafka.Publish(ctx, topic, evt); err != nil {
		p.logger.ErrorContext(ctx, "failed to publish event",
			slog.String("topic", topic),
			slog.String("error", err.Error()),
		)
	}
}

// NopPublisher discards all events. Used in tests and when Kafka is disabled.
type NopPublisher struct{}

func (NopPublisher) PublishUserRegistered(context.Context, UserData)     {}
func (NopPublisher) PublishUserPasswordReset(context.Context, UserData)  {}
func (NopPublisher) PublishReviewCreated(context.Context, ReviewData)    {}
func (NopPublisher) PublishReviewUpdated(context.Context, ReviewData)    {}
func (NopPublisher) PublishReviewDeleted(context.Context, ReviewData)    {}
func (NopPublisher) PublishBookingPaid(context.Context, BookingPaidData) {}
