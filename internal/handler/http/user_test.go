package http

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/peakscale/tourbook/internal/domain"
)

func TestUserMe_ReturnsPublicProfile(t *testing.T) {
	env := newTestEnv(t)
	user := testUser("user")
	token := env.login(t, user)

	rec := getPath(t, env.router, "/api/v1/users/me", token)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), user.Email)
	assert.NotContains(t, rec.Body.String(), "password")
}

func TestUserUpdateMe_ChangesProfileFields(t *testing.T) {
	env := newTestEnv(t)
	user := testUser("user")
	token := env.login(t, user)

	env.users.On("Update", mock.Anything, mock.MatchedBy(func(u *domain.User) bool {
		return u.ID == user.ID && u.Name == "Renamed"
	})).Return(nil)

	rec := patchJSON(t, env.router, "/api/v1/users/me", token, map[string]any{
		"name": "Renamed",
	})

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Renamed")
}

func TestUserUpdateMe_IgnoresRoleField(t *testing.T) {
	env := newTestEnv(t)
	user := testUser("user")
	token := env.login(t, user)

	// An extra "role" key in the body must never touch the stored role.
	env.users.On("Update", mock.Anything, mock.MatchedBy(func(u *domain.User) bool {
		return u.Role == domain.RoleUser
	})).Return(nil)

	rec := patchJSON(t, env.router, "/api/v1/users/me", token, map[string]any{
		"name": "Sneaky",
		"role": "admin",
	})

	assert.Equal(t, http.StatusOK, rec.Code)
	env.users.AssertExpectations(t)
}

func TestUserDeleteMe_Deactivates(t *testing.T) {
	env := newTestEnv(t)
	user := testUser("user")
	token := env.login(t, user)

	env.users.On("Deactivate", mock.Anything, user.ID).Return(nil)

	req := httptest.NewRequest(http.MethodDelete, "/api/v1/users/me", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	env.users.AssertExpectations(t)
}

func TestUserList_AdminSeesPaginatedUsers(t *testing.T) {
	env := newTestEnv(t)
	admin := testUser("admin")
	token := env.login(t, admin)

	env.users.On("List", mock.Anything, mock.Anything).
		Return([]domain.User{*testUser("user"), *admin}, 2, nil)

	rec := getPath(t, env.router, "/api/v1/users/?limit=10", token)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"total_count":2`)
	assert.Contains(t, rec.Body.String(), "user@example.com")
	assert.NotContains(t, rec.Body.String(), "password")
}

func TestUserList_ForbiddenForNonAdmins(t *testing.T) {
	env := newTestEnv(t)
	guide := testUser("guide")
	token := env.login(t, guide)

	rec := getPath(t, env.router, "/api/v1/users/", token)

	assert.Equal(t, http.StatusForbidden, rec.Code)
	env.users.AssertNotCalled(t, "List", mock.Anything, mock.Anything)
}

func TestUserGet_Admin(t *testing.T) {
	env := newTestEnv(t)
	admin := testUser("admin")
	token := env.login(t, admin)

	target := testUser("user")
	env.users.On("GetByID", mock.Anything, target.ID).Return(target, nil)

	rec := getPath(t, env.router, "/api/v1/users/"+target.ID, token)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), target.Email)
}

func TestUserUpdate_AdminChangesRole(t *testing.T) {
	env := newTestEnv(t)
	admin := testUser("admin")
	token := env.login(t, admin)

	target := testUser("user")
	env.users.On("GetByID", mock.Anything, target.ID).Return(target, nil)
	env.users.On("Update", mock.Anything, mock.MatchedBy(func(u *domain.User) bool {
		return u.ID == target.ID && u.Role == domain.RoleGuide
	})).Return(nil)

	rec := patchJSON(t, env.router, "/api/v1/users/"+target.ID, token, map[string]any{
		"role": "guide",
	})

	assert.Equal(t, http.StatusOK, rec.Code)
	env.users.AssertExpectations(t)
}

func TestUserUpdate_RejectsUnknownRole(t *testing.T) {
	env := newTestEnv(t)
	admin := testUser("admin")
	token := env.login(t, admin)

	target := testUser("user")
	env.users.On("GetByID", mock.Anything, target.ID).Return(target, nil)

	rec := patchJSON(t, env.router, "/api/v1/users/"+target.ID, token, map[string]any{
		"role": "superadmin",
	})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	env.users.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
}

func TestUserDelete_Admin(t *testing.T) {
	env := newTestEnv(t)
	admin := testUser("admin")
	token := env.login(t, admin)

	env.users.On("Delete", mock.Anything, "user-user").Return(nil)

	req := httptest.NewRequest(http.MethodDelete, "/api/v1/users/user-user", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	env.users.AssertExpectations(t)
}
