package http

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/peakscale/tourbook/internal/domain"
	apperrors "github.com/peakscale/tourbook/pkg/errors"
)

func postJSON(t *testing.T, router http.Handler, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()

	raw, err := json.Marshal(body)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func patchJSON(t *testing.T, router http.Handler, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()

	raw, err := json.Marshal(body)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPatch, path, bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestSignup_CreatesAccountAndSetsCookie(t *testing.T) {
	env := newTestEnv(t)

	env.users.On("Create", mock.Anything, mock.Anything).Return(nil)
	env.mailer.On("Send", mock.Anything, mock.Anything).Return(nil)

	rec := postJSON(t, env.router, "/api/v1/auth/signup", "", map[string]string{
		"name":     "Alice",
		"email":    "alice@example.com",
		"password": "pass1234",
	})

	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Contains(t, rec.Body.String(), `"token"`)
	assert.NotContains(t, rec.Body.String(), "password")

	cookies := rec.Result().Cookies()
	require.NotEmpty(t, cookies)
	assert.Equal(t, sessionCookieName, cookies[0].Name)
	assert.True(t, cookies[0].HttpOnly)
}

func TestSignup_ValidationErrors(t *testing.T) {
	env := newTestEnv(t)

	rec := postJSON(t, env.router, "/api/v1/auth/signup", "", map[string]string{
		"name":     "Alice",
		"email":    "not-an-email",
		"password": "short",
	})

	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "VALIDATION_ERROR")
}

func TestLogin_BadCredentialsAreOpaque(t *testing.T) {
	env := newTestEnv(t)

	env.users.On("GetByEmail", mock.Anything, "alice@example.com").Return(nil, apperrors.ErrNotFound)

	rec := postJSON(t, env.router, "/api/v1/auth/login", "", map[string]string{
		"email":    "alice@example.com",
		"password": "whatever1",
	})

	require.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "invalid email or password")
}

func TestLogin_Success(t *testing.T) {
	env := newTestEnv(t)

	user := testUser(domain.RoleUser)
	env.users.On("GetByEmail", mock.Anything, user.Email).Return(user, nil)

	rec := postJSON(t, env.router, "/api/v1/auth/login", "", map[string]string{
		"email":    user.Email,
		"password": "pass1234",
	})

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"token"`)
}

func TestForgotPassword_AlwaysSaysSent(t *testing.T) {
	env := newTestEnv(t)

	env.users.On("GetByEmail", mock.Anything, "ghost@example.com").Return(nil, apperrors.ErrNotFound)

	rec := postJSON(t, env.router, "/api/v1/auth/forgot-password", "", map[string]string{
		"email": "ghost@example.com",
	})

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "reset link has been sent")
}

func TestForgotPassword_MailOutageIs502(t *testing.T) {
	env := newTestEnv(t)

	user := testUser(domain.RoleUser)
	env.users.On("GetByEmail", mock.Anything, user.Email).Return(user, nil)
	env.users.On("SetResetTicket", mock.Anything, user.ID, mock.Anything, mock.Anything).Return(nil)
	env.users.On("ClearResetTicket", mock.Anything, user.ID).Return(nil)
	env.mailer.On("Send", mock.Anything, mock.Anything).Return(assert.AnError)

	rec := postJSON(t, env.router, "/api/v1/auth/forgot-password", "", map[string]string{
		"email": user.Email,
	})

	require.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Contains(t, rec.Body.String(), "UPSTREAM_ERROR")
}

func TestResetPassword_InvalidTicket(t *testing.T) {
	env := newTestEnv(t)

	env.users.On("ConsumeResetTicket", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(nil, apperrors.ErrNotFound)

	rec := patchJSON(t, env.router, "/api/v1/auth/reset-password/stale-ticket", "", map[string]string{
		"password": "newpass123",
	})

	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "invalid or has expired")
}

func TestUpdatePassword_RequiresAuth(t *testing.T) {
	env := newTestEnv(t)

	rec := patchJSON(t, env.router, "/api/v1/auth/update-password", "", map[string]string{
		"current_password": "pass1234",
		"new_password":     "newpass123",
	})

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestUpdatePassword_WrongCurrent(t *testing.T) {
	env := newTestEnv(t)
	token := env.login(t, testUser(domain.RoleUser))

	rec := patchJSON(t, env.router, "/api/v1/auth/update-password", token, map[string]string{
		"current_password": "wrongpass",
		"new_password":     "newpass123",
	})

	require.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "current password is incorrect")
}
