package hosted

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/peakscale/tourbook/internal/payment"
	apperrors "github.com/peakscale/tourbook/pkg/errors"
	"github.com/peakscale/tourbook/pkg/logger"
)

func testInput() *payment.CheckoutInput {
	return &payment.CheckoutInput{
		BookingID:     "booking-123",
		TourName:      "The Forest Hiker",
		Amount:        39700,
		Currency:      "usd",
		CustomerEmail: "hiker@example.com",
		SuccessURL:    "https://tourbook.example.com/my-bookings",
		CancelURL:     "https://tourbook.example.com/tours",
	}
}

func newProvider(baseURL string) *Provider {
	return NewProvider(Config{
		BaseURL: baseURL,
		APIKey:  "sk_test_123",
		Timeout: 2 * time.Second,
	}, logger.New("test", "error"))
}

func TestCreateCheckoutSession_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1/checkout/sessions", r.URL.Path)
		assert.Equal(t, "Bearer sk_test_123", r.Header.Get("Authorization"))

		var req sessionRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "booking-123", req.Reference)
		assert.Equal(t, int64(39700), req.Amount)

		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(sessionResponse{
			ID:  "cs_live_42",
			URL: "https://pay.example.com/s/cs_live_42",
		})
	}))
	defer srv.Close()

	p := newProvider(srv.URL)
	session, err := p.CreateCheckoutSession(context.Background(), testInput())

	require.NoError(t, err)
	assert.Equal(t, "cs_live_42", session.SessionID)
	assert.Equal(t, "https://pay.example.com/s/cs_live_42", session.URL)
}

func TestCreateCheckoutSession_StructuredProviderError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":{"code":"INVALID_INPUT","message":"amount must be positive"}}`))
	}))
	defer srv.Close()

	p := newProvider(srv.URL)
	session, err := p.CreateCheckoutSession(context.Background(), testInput())

	assert.Nil(t, session)
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrInvalidInput))
	assert.Contains(t, err.Error(), "amount must be positive")
}

func TestCreateCheckoutSession_IncompleteResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(sessionResponse{ID: "cs_live_43"})
	}))
	defer srv.Close()

	p := newProvider(srv.URL)
	session, err := p.CreateCheckoutSession(context.Background(), testInput())

	assert.Nil(t, session)
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrUpstream))
}

func TestCreateCheckoutSession_ProviderUnreachable(t *testing.T) {
	// Point at a closed port so the call fails at the transport level.
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close()

	p := newProvider(srv.URL)
	session, err := p.CreateCheckoutSession(context.Background(), testInput())

	assert.Nil(t, session)
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrUpstream))
}

func TestProvider_Name(t *testing.T) {
	assert.Equal(t, "hosted", newProvider("http://localhost").Name())
}
