package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/peakscale/tourbook/internal/domain"
	"github.com/peakscale/tourbook/internal/query"
	"github.com/peakscale/tourbook/internal/service"
	"github.com/peakscale/tourbook/pkg/httputil"
	"github.com/peakscale/tourbook/pkg/validator"
)

// UserHandler handles HTTP requests for profile and user administration.
type UserHandler struct {
	accounts *service.AccountService
	logger   *slog.Logger
}

// NewUserHandler creates a new user HTTP handler.
func NewUserHandler(accounts *service.AccountService, logger *slog.Logger) *UserHandler {
	return &UserHandler{accounts: accounts, logger: logger}
}

// UpdateMeRequest is the JSON request body for profile updates. Role and
// password are not accepted here: extra fields in the body are ignored.
type UpdateMeRequest struct {
	Name  *string `json:"name" validate:"omitempty,min=1,max=100"`
	Email *string `json:"email" validate:"omitempty,email"`
	Photo *string `json:"photo" validate:"omitempty,max=255"`
}

// AdminUpdateUserRequest is the JSON request body for admin user updates.
type AdminUpdateUserRequest struct {
	Name   *string `json:"name" validate:"omitempty,min=1,max=100"`
	Email  *string `json:"email" validate:"omitempty,email"`
	Role   *string `json:"role"`
	Active *bool   `json:"active"`
}

// Me handles GET /api/v1/users/me
func (h *UserHandler) Me(w http.ResponseWriter, r *http.Request) {
	user := UserFromContext(r.Context())
	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: user.PublicView()})
}

// UpdateMe handles PATCH /api/v1/users/me
func (h *UserHandler) UpdateMe(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodySize)

	user := UserFromContext(r.Context())

	var req UpdateMeRequest
	if err := validator.DecodeAndValidate(r, &req); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	updated, err := h.accounts.UpdateMe(r.Context(), user.ID, service.UpdateMeInput{
		Name:  req.Name,
		Email: req.Email,
		Photo: req.Photo,
	})
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: updated.PublicView()})
}

// DeleteMe handles DELETE /api/v1/users/me. The account is deactivated, not
// erased; deactivated accounts behave like unknown ones at login.
func (h *UserHandler) DeleteMe(w http.ResponseWriter, r *http.Request) {
	user := UserFromContext(r.Context())

	if err := h.accounts.DeactivateMe(r.Context(), user.ID); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// List handles GET /api/v1/users (admin)
func (h *UserHandler) List(w http.ResponseWriter, r *http.Request) {
	users, total, spec, err := h.accounts.ListUsers(r.Context(), r.URL.Query())
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	views := make([]domain.PublicUser, 0, len(users))
	for i := range users {
		views = append(views, users[i].PublicView())
	}

	writeCollection(w, r, views, total, spec, h.logger)
}

// Get handles GET /api/v1/users/{id} (admin)
func (h *UserHandler) Get(w http.ResponseWriter, r *http.Request) {
	user, err := h.accounts.GetUser(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: user.PublicView()})
}

// Update handles PATCH /api/v1/users/{id} (admin)
func (h *UserHandler) Update(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodySize)

	var req AdminUpdateUserRequest
	if err := validator.DecodeAndValidate(r, &req); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	user, err := h.accounts.AdminUpdateUser(r.Context(), chi.URLParam(r, "id"), service.AdminUpdateUserInput{
		Name:   req.Name,
		Email:  req.Email,
		Role:   req.Role,
		Active: req.Active,
	})
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: user.PublicView()})
}

// Delete handles DELETE /api/v1/users/{id} (admin)
func (h *UserHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.accounts.DeleteUser(r.Context(), chi.URLParam(r, "id")); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// writeCollection writes a paginated listing, narrowing each element to the
// requested fields when the query carried a fields parameter.
func writeCollection[T any](w http.ResponseWriter, r *http.Request, items []T, total int, spec *query.Spec, l *slog.Logger) {
	if spec.Projected {
		rows, err := query.ProjectSlice(items, spec.Columns)
		if err != nil {
			httputil.WriteError(w, r, err, l)
			return
		}
		httputil.WriteJSON(w, http.StatusOK, httputil.NewPaginatedResponse(rows, total, spec.Page, spec.Limit))
		return
	}
	httputil.WriteJSON(w, http.StatusOK, httputil.NewPaginatedResponse(items, total, spec.Page, spec.Limit))
}
