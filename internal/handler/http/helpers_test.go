package http

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/peakscale/tourbook/internal/auth"
	"github.com/peakscale/tourbook/internal/domain"
	"github.com/peakscale/tourbook/internal/event"
	"github.com/peakscale/tourbook/internal/mail"
	"github.com/peakscale/tourbook/internal/payment"
	"github.com/peakscale/tourbook/internal/query"
	"github.com/peakscale/tourbook/internal/service"
	"github.com/peakscale/tourbook/pkg/health"
)

// ============================================================================
// Mock repositories
// ============================================================================

type mockUserRepo struct {
	mock.Mock
}

func (m *mockUserRepo) Create(ctx context.Context, user *domain.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *mockUserRepo) GetByID(ctx context.Context, id string) (*domain.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *mockUserRepo) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *mockUserRepo) List(ctx context.Context, spec *query.Spec) ([]domain.User, int, error) {
	args := m.Called(ctx, spec)
	return args.Get(0).([]domain.User), args.Int(1), args.Error(2)
}

func (m *mockUserRepo) Update(ctx context.Context, user *domain.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *mockUserRepo) UpdatePassword(ctx context.Context, id, passwordHash string, changedAt time.Time) error {
	args := m.Called(ctx, id, passwordHash, changedAt)
	return args.Error(0)
}

func (m *mockUserRepo) SetResetTicket(ctx context.Context, id, digest string, expiresAt time.Time) error {
	args := m.Called(ctx, id, digest, expiresAt)
	return args.Error(0)
}

func (m *mockUserRepo) ClearResetTicket(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *mockUserRepo) ConsumeResetTicket(ctx context.Context, digest, passwordHash string, changedAt time.Time) (*domain.User, error) {
	args := m.Called(ctx, digest, passwordHash, changedAt)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *mockUserRepo) Deactivate(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *mockUserRepo) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

type mockTourRepo struct {
	mock.Mock
}

func (m *mockTourRepo) Create(ctx context.Context, tour *domain.Tour) error {
	args := m.Called(ctx, tour)
	return args.Error(0)
}

func (m *mockTourRepo) GetByID(ctx context.Context, id string) (*domain.Tour, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Tour), args.Error(1)
}

func (m *mockTourRepo) GetBySlug(ctx context.Context, s string) (*domain.Tour, error) {
	args := m.Called(ctx, s)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Tour), args.Error(1)
}

func (m *mockTourRepo) List(ctx context.Context, spec *query.Spec) ([]domain.Tour, int, error) {
	args := m.Called(ctx, spec)
	return args.Get(0).([]domain.Tour), args.Int(1), args.Error(2)
}

func (m *mockTourRepo) Update(ctx context.Context, tour *domain.Tour) error {
	args := m.Called(ctx, tour)
	return args.Error(0)
}

func (m *mockTourRepo) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *mockTourRepo) UpdateRatingStats(ctx context.Context, tourID string, stats domain.RatingStats) error {
	args := m.Called(ctx, tourID, stats)
	return args.Error(0)
}

func (m *mockTourRepo) Stats(ctx context.Context) ([]domain.TourStats, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.TourStats), args.Error(1)
}

func (m *mockTourRepo) MonthlyPlan(ctx context.Context, year int) ([]domain.MonthlyPlanEntry, error) {
	args := m.Called(ctx, year)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.MonthlyPlanEntry), args.Error(1)
}

func (m *mockTourRepo) Within(ctx context.Context, lat, lng, radiusKm float64) ([]domain.Tour, error) {
	args := m.Called(ctx, lat, lng, radiusKm)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Tour), args.Error(1)
}

func (m *mockTourRepo) Distances(ctx context.Context, lat, lng float64) ([]domain.TourDistance, error) {
	args := m.Called(ctx, lat, lng)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.TourDistance), args.Error(1)
}

type mockReviewRepo struct {
	mock.Mock
}

func (m *mockReviewRepo) Create(ctx context.Context, review *domain.Review) error {
	args := m.Called(ctx, review)
	return args.Error(0)
}

func (m *mockReviewRepo) GetByID(ctx context.Context, id string) (*domain.Review, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Review), args.Error(1)
}

func (m *mockReviewRepo) List(ctx context.Context, spec *query.Spec) ([]domain.Review, int, error) {
	args := m.Called(ctx, spec)
	return args.Get(0).([]domain.Review), args.Int(1), args.Error(2)
}

func (m *mockReviewRepo) Update(ctx context.Context, review *domain.Review) error {
	args := m.Called(ctx, review)
	return args.Error(0)
}

func (m *mockReviewRepo) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *mockReviewRepo) RatingStats(ctx context.Context, tourID string) (domain.RatingStats, error) {
	args := m.Called(ctx, tourID)
	return args.Get(0).(domain.RatingStats), args.Error(1)
}

type mockBookingRepo struct {
	mock.Mock
}

func (m *mockBookingRepo) Create(ctx context.Context, booking *domain.Booking) error {
	args := m.Called(ctx, booking)
	return args.Error(0)
}

func (m *mockBookingRepo) GetByID(ctx context.Context, id string) (*domain.Booking, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Booking), args.Error(1)
}

func (m *mockBookingRepo) List(ctx context.Context, spec *query.Spec) ([]domain.Booking, int, error) {
	args := m.Called(ctx, spec)
	return args.Get(0).([]domain.Booking), args.Int(1), args.Error(2)
}

func (m *mockBookingRepo) ListByUser(ctx context.Context, userID string) ([]domain.Booking, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Booking), args.Error(1)
}

func (m *mockBookingRepo) GetBySession(ctx context.Context, providerSessionID string) (*domain.Booking, error) {
	args := m.Called(ctx, providerSessionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Booking), args.Error(1)
}

func (m *mockBookingRepo) MarkPaid(ctx context.Context, providerSessionID string) (*domain.Booking, error) {
	args := m.Called(ctx, providerSessionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Booking), args.Error(1)
}

type mockMailer struct {
	mock.Mock
}

func (m *mockMailer) Send(ctx context.Context, msg mail.Message) error {
	args := m.Called(ctx, msg)
	return args.Error(0)
}

type mockProvider struct {
	mock.Mock
}

func (m *mockProvider) Name() string { return "mock" }

func (m *mockProvider) CreateCheckoutSession(ctx context.Context, input *payment.CheckoutInput) (*payment.CheckoutSession, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*payment.CheckoutSession), args.Error(1)
}

// ============================================================================
// Test fixtures
// ============================================================================

type testEnv struct {
	users    *mockUserRepo
	tours    *mockTourRepo
	reviews  *mockReviewRepo
	bookings *mockBookingRepo
	mailer   *mockMailer
	provider *mockProvider
	tokens   *auth.TokenManager
	router   http.Handler
}

func newTestEnv(t *testing.T) *testEnv {
	return newTestEnvCfg(t, RouterConfig{
		CORS:          CORSConfig{Environment: "development"},
		SessionExpiry: time.Hour,
		StatsMaxAge:   300,
	})
}

func newTestEnvCfg(t *testing.T, cfg RouterConfig) *testEnv {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	tokens := auth.NewTokenManager("test-secret-test-secret-test-1234", time.Hour)

	env := &testEnv{
		users:    new(mockUserRepo),
		tours:    new(mockTourRepo),
		reviews:  new(mockReviewRepo),
		bookings: new(mockBookingRepo),
		mailer:   new(mockMailer),
		provider: new(mockProvider),
		tokens:   tokens,
	}

	accounts := service.NewAccountService(env.users, tokens, env.mailer, event.NopPublisher{},
		"https://tourbook.example.com/reset-password", logger)
	tours := service.NewTourService(env.tours, nil, logger)
	reviews := service.NewReviewService(env.reviews, env.tours, event.NopPublisher{}, nil, logger)
	bookings := service.NewBookingService(env.bookings, env.tours, env.provider, event.NopPublisher{},
		"https://tourbook.example.com/bookings", logger)

	env.router = NewRouter(accounts, tours, reviews, bookings, tokens, env.users,
		health.NewHandler(), logger, cfg)

	return env
}

func testUser(role string) *domain.User {
	hash, _ := auth.HashPassword("pass1234")
	now := time.Now().UTC()
	return &domain.User{
		ID:           "user-" + role,
		Name:         "Test " + role,
		Email:        role + "@example.com",
		Photo:        "default.jpg",
		Role:         role,
		PasswordHash: hash,
		Active:       true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

// login wires the user into the mock store and returns a bearer token for it.
func (env *testEnv) login(t *testing.T, user *domain.User) string {
	t.Helper()
	env.users.On("GetByID", mock.Anything, user.ID).Return(user, nil)
	token, err := env.tokens.Issue(user.ID)
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}
	return token
}
