package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/peakscale/tourbook/internal/service"
	"github.com/peakscale/tourbook/pkg/httputil"
	"github.com/peakscale/tourbook/pkg/validator"
)

// BookingHandler handles HTTP requests for bookings and checkout.
type BookingHandler struct {
	bookings *service.BookingService
	logger   *slog.Logger
}

// NewBookingHandler creates a new booking HTTP handler.
func NewBookingHandler(bookings *service.BookingService, logger *slog.Logger) *BookingHandler {
	return &BookingHandler{bookings: bookings, logger: logger}
}

// WebhookRequest is the payment provider's checkout-completed notification.
type WebhookRequest struct {
	SessionID string `json:"session_id" validate:"required"`
}

// Checkout handles POST /api/v1/bookings/checkout/{tourID}
func (h *BookingHandler) Checkout(w http.ResponseWriter, r *http.Request) {
	user := UserFromContext(r.Context())

	result, err := h.bookings.Checkout(r.Context(), user, chi.URLParam(r, "tourID"))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, httputil.Response{Data: result})
}

// Webhook handles POST /api/v1/bookings/webhook. The provider retries until
// it gets a 2xx, so replays must succeed.
func (h *BookingHandler) Webhook(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodySize)

	var req WebhookRequest
	if err := validator.DecodeAndValidate(r, &req); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	if err := h.bookings.CompleteCheckout(r.Context(), req.SessionID); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{
		Data: map[string]string{"received": "true"},
	})
}

// ListMine handles GET /api/v1/bookings/me
func (h *BookingHandler) ListMine(w http.ResponseWriter, r *http.Request) {
	user := UserFromContext(r.Context())

	bookings, err := h.bookings.ListMine(r.Context(), user.ID)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: bookings})
}

// List handles GET /api/v1/bookings (admin)
func (h *BookingHandler) List(w http.ResponseWriter, r *http.Request) {
	bookings, total, spec, err := h.bookings.List(r.Context(), r.URL.Query())
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	writeCollection(w, r, bookings, total, spec, h.logger)
}
