package http

import (
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/peakscale/tourbook/internal/domain"
	"github.com/peakscale/tourbook/internal/payment"
	apperrors "github.com/peakscale/tourbook/pkg/errors"
)

func paidBooking() *domain.Booking {
	now := time.Now().UTC()
	return &domain.Booking{
		ID:                "booking-1",
		TourID:            "tour-1",
		UserID:            "user-user",
		Price:             497,
		Status:            domain.BookingStatusPaid,
		ProviderSessionID: "mock_cs_abc",
		CreatedAt:         now,
		UpdatedAt:         now,
	}
}

func TestCheckout_ReturnsSessionURL(t *testing.T) {
	env := newTestEnv(t)
	token := env.login(t, testUser(domain.RoleUser))

	env.tours.On("GetByID", mock.Anything, "tour-1").Return(catalogTour(), nil)
	env.provider.On("CreateCheckoutSession", mock.Anything, mock.Anything).
		Return(&payment.CheckoutSession{SessionID: "mock_cs_abc", URL: "https://pay.example.com/mock_cs_abc"}, nil)
	env.bookings.On("Create", mock.Anything, mock.Anything).Return(nil)

	rec := postJSON(t, env.router, "/api/v1/bookings/checkout/tour-1", token, nil)

	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Contains(t, rec.Body.String(), "https://pay.example.com/mock_cs_abc")
}

func TestCheckout_RequiresAuth(t *testing.T) {
	env := newTestEnv(t)

	rec := postJSON(t, env.router, "/api/v1/bookings/checkout/tour-1", "", nil)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestWebhook_MarksBookingPaid(t *testing.T) {
	env := newTestEnv(t)

	env.bookings.On("MarkPaid", mock.Anything, "mock_cs_abc").Return(paidBooking(), nil)

	rec := postJSON(t, env.router, "/api/v1/bookings/webhook", "", map[string]string{
		"session_id": "mock_cs_abc",
	})

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "received")
}

func TestWebhook_ReplayStillSucceeds(t *testing.T) {
	env := newTestEnv(t)

	env.bookings.On("MarkPaid", mock.Anything, "mock_cs_abc").Return(nil, apperrors.ErrNotFound)
	env.bookings.On("GetBySession", mock.Anything, "mock_cs_abc").Return(paidBooking(), nil)

	rec := postJSON(t, env.router, "/api/v1/bookings/webhook", "", map[string]string{
		"session_id": "mock_cs_abc",
	})

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestWebhook_MissingSessionIDIs400(t *testing.T) {
	env := newTestEnv(t)

	rec := postJSON(t, env.router, "/api/v1/bookings/webhook", "", map[string]string{})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestListMyBookings(t *testing.T) {
	env := newTestEnv(t)
	user := testUser(domain.RoleUser)
	token := env.login(t, user)

	env.bookings.On("ListByUser", mock.Anything, user.ID).
		Return([]domain.Booking{*paidBooking()}, nil)

	rec := getPath(t, env.router, "/api/v1/bookings/me", token)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "booking-1")
}

func TestListAllBookings_UserIsForbidden(t *testing.T) {
	env := newTestEnv(t)
	token := env.login(t, testUser(domain.RoleUser))

	rec := getPath(t, env.router, "/api/v1/bookings/", token)

	assert.Equal(t, http.StatusForbidden, rec.Code)
}
