package http

import (
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/peakscale/tourbook/internal/domain"
	"github.com/peakscale/tourbook/internal/service"
	apperrors "github.com/peakscale/tourbook/pkg/errors"
	"github.com/peakscale/tourbook/pkg/httputil"
	"github.com/peakscale/tourbook/pkg/validator"
)

// TourHandler handles HTTP requests for the tour catalog.
type TourHandler struct {
	tours  *service.TourService
	logger *slog.Logger
}

// NewTourHandler creates a new tour HTTP handler.
func NewTourHandler(tours *service.TourService, logger *slog.Logger) *TourHandler {
	return &TourHandler{tours: tours, logger: logger}
}

// --- Request DTOs ---

// CreateTourRequest is the JSON request body for creating a tour.
type CreateTourRequest struct {
	Name          string           `json:"name" validate:"required,min=2,max=50"`
	Price         int64            `json:"price" validate:"required,gt=0"`
	PriceDiscount *int64           `json:"price_discount" validate:"omitempty,gt=0"`
	DurationDays  int              `json:"duration_days" validate:"required,gt=0"`
	MaxGroupSize  int              `json:"max_group_size" validate:"required,gt=0"`
	Difficulty    string           `json:"difficulty" validate:"required,oneof=easy medium difficult"`
	Summary       string           `json:"summary" validate:"required"`
	Description   string           `json:"description"`
	ImageCover    string           `json:"image_cover"`
	Images        []string         `json:"images"`
	StartDates    []time.Time      `json:"start_dates"`
	Secret        bool             `json:"secret"`
	StartLocation *domain.Location `json:"start_location"`
}

// UpdateTourRequest is the JSON request body for updating a tour.
type UpdateTourRequest struct {
	Name          *string          `json:"name" validate:"omitempty,min=2,max=50"`
	Price         *int64           `json:"price" validate:"omitempty,gt=0"`
	PriceDiscount *int64           `json:"price_discount" validate:"omitempty,gt=0"`
	DurationDays  *int             `json:"duration_days" validate:"omitempty,gt=0"`
	MaxGroupSize  *int             `json:"max_group_size" validate:"omitempty,gt=0"`
	Difficulty    *string          `json:"difficulty" validate:"omitempty,oneof=easy medium difficult"`
	Summary       *string          `json:"summary"`
	Description   *string          `json:"description"`
	ImageCover    *string          `json:"image_cover"`
	Images        []string         `json:"images"`
	StartDates    []time.Time      `json:"start_dates"`
	Secret        *bool            `json:"secret"`
	StartLocation *domain.Location `json:"start_location"`
}

// --- Handlers ---

// List handles GET /api/v1/tours
func (h *TourHandler) List(w http.ResponseWriter, r *http.Request) {
	tours, total, spec, err := h.tours.List(r.Context(), r.URL.Query())
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	writeCollection(w, r, tours, total, spec, h.logger)
}

// TopCheap handles GET /api/v1/tours/top-5-cheap
func (h *TourHandler) TopCheap(w http.ResponseWriter, r *http.Request) {
	tours, total, spec, err := h.tours.TopCheap(r.Context(), r.URL.Query())
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	writeCollection(w, r, tours, total, spec, h.logger)
}

// Stats handles GET /api/v1/tours/stats
func (h *TourHandler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.tours.Stats(r.Context())
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: stats})
}

// MonthlyPlan handles GET /api/v1/tours/monthly-plan/{year}
func (h *TourHandler) MonthlyPlan(w http.ResponseWriter, r *http.Request) {
	year, err := strconv.Atoi(chi.URLParam(r, "year"))
	if err != nil {
		httputil.WriteError(w, r, apperrors.InvalidInput("year must be a number"), h.logger)
		return
	}

	plan, err := h.tours.MonthlyPlan(r.Context(), year)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: plan})
}

// Within handles GET /api/v1/tours/within/{distance}/center/{latlng}/unit/{unit}
func (h *TourHandler) Within(w http.ResponseWriter, r *http.Request) {
	distance, err := strconv.ParseFloat(chi.URLParam(r, "distance"), 64)
	if err != nil {
		httputil.WriteError(w, r, apperrors.InvalidInput("distance must be a number"), h.logger)
		return
	}

	lat, lng, err := parseLatLng(chi.URLParam(r, "latlng"))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	tours, err := h.tours.Within(r.Context(), distance, lat, lng, chi.URLParam(r, "unit"))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: tours})
}

// Distances handles GET /api/v1/tours/distances/{latlng}/unit/{unit}
func (h *TourHandler) Distances(w http.ResponseWriter, r *http.Request) {
	lat, lng, err := parseLatLng(chi.URLParam(r, "latlng"))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	distances, err := h.tours.Distances(r.Context(), lat, lng, chi.URLParam(r, "unit"))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: distances})
}

// Get handles GET /api/v1/tours/{id}
func (h *TourHandler) Get(w http.ResponseWriter, r *http.Request) {
	tour, err := h.tours.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: tour})
}

// Create handles POST /api/v1/tours (admin, lead-guide)
func (h *TourHandler) Create(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodySize)

	var req CreateTourRequest
	if err := validator.DecodeAndValidate(r, &req); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	tour, err := h.tours.Create(r.Context(), service.CreateTourInput{
		Name:          req.Name,
		Price:         req.Price,
		PriceDiscount: req.PriceDiscount,
		DurationDays:  req.DurationDays,
		MaxGroupSize:  req.MaxGroupSize,
		Difficulty:    req.Difficulty,
		Summary:       req.Summary,
		Description:   req.Description,
		ImageCover:    req.ImageCover,
		Images:        req.Images,
		StartDates:    req.StartDates,
		Secret:        req.Secret,
		StartLocation: req.StartLocation,
	})
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, httputil.Response{Data: tour})
}

// Update handles PATCH /api/v1/tours/{id} (admin, lead-guide)
func (h *TourHandler) Update(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodySize)

	var req UpdateTourRequest
	if err := validator.DecodeAndValidate(r, &req); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	tour, err := h.tours.Update(r.Context(), chi.URLParam(r, "id"), service.UpdateTourInput{
		Name:          req.Name,
		Price:         req.Price,
		PriceDiscount: req.PriceDiscount,
		DurationDays:  req.DurationDays,
		MaxGroupSize:  req.MaxGroupSize,
		Difficulty:    req.Difficulty,
		Summary:       req.Summary,
		Description:   req.Description,
		ImageCover:    req.ImageCover,
		Images:        req.Images,
		StartDates:    req.StartDates,
		Secret:        req.Secret,
		StartLocation: req.StartLocation,
	})
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: tour})
}

// Delete handles DELETE /api/v1/tours/{id} (admin, lead-guide)
func (h *TourHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.tours.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// parseLatLng splits a "lat,lng" path segment.
func parseLatLng(raw string) (float64, float64, error) {
	parts := strings.Split(raw, ",")
	if len(parts) != 2 {
		return 0, 0, apperrors.InvalidInput("center must be in lat,lng format")
	}

	lat, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	if err != nil {
		return 0, 0, apperrors.InvalidInput("center must be in lat,lng format")
	}
	lng, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil {
		return 0, 0, apperrors.InvalidInput("center must be in lat,lng format")
	}

	return lat, lng, nil
}
