// Package service implements the business logic behind the HTTP handlers.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/peakscale/tourbook/internal/auth"
	"github.com/peakscale/tourbook/internal/domain"
	"github.com/peakscale/tourbook/internal/event"
	"github.com/peakscale/tourbook/internal/mail"
	"github.com/peakscale/tourbook/internal/query"
	"github.com/peakscale/tourbook/internal/repository"
	apperrors "github.com/peakscale/tourbook/pkg/errors"
)

// minPasswordLength is the minimum password length required.
const minPasswordLength = 8

const defaultPhoto = "default.jpg"

// userSchema is the query allow-list for admin user listings. Credential
// columns are not in it, so they can never be filtered, sorted, or selected.
var userSchema = query.Schema{
	Fields: map[string]string{
		"name":       "name",
		"email":      "email",
		"role":       "role",
		"active":     "active",
		"created_at": "created_at",
	},
	Projection:  []string{"id", "name", "email", "photo", "role", "created_at"},
	DefaultSort: []query.SortField{{Column: "created_at", Desc: true}},
}

// AccountService implements the business logic for user and auth operations.
type AccountService struct {
	users    repository.UserRepository
	tokens   *auth.TokenManager
	mailer   mail.Mailer
	producer event.Publisher
	logger   *slog.Logger

	// resetURLBase is the public prefix reset links are built from, e.g.
	// "https://tourbook.example.com/reset-password".
	resetURLBase string
}

// NewAccountService creates a new account service.
func NewAccountService(
	users repository.UserRepository,
	tokens *auth.TokenManager,
	mailer mail.Mailer,
	producer event.Publisher,
	resetURLBase string,
	logger *slog.Logger,
) *AccountService {
	return &AccountService{
		users:        users,
		tokens:       tokens,
		mailer:       mailer,
		producer:     producer,
		resetURLBase: resetURLBase,
		logger:       logger,
	}
}

// SignupInput holds the parameters for registering a new account.
type SignupInput struct {
	Name     string
	Email    string
	Password string
}

// UpdateMeInput holds the profile fields a user may change on their own
// account. Role, password, and the active flag are deliberately absent.
type UpdateMeInput struct {
	Name  *string
	Email *string
	Photo *string
}

// AdminUpdateUserInput holds the fields an admin may change on any account.
type AdminUpdateUserInput struct {
	Name   *string
	Email  *string
	Role   *string
	Active *bool
}

// Signup creates a new account, sends a welcome mail, and returns a fresh
// session token.
func (s *AccountService) Signup(ctx context.Context, input SignupInput) (*domain.User, string, error) {
	if strings.TrimSpace(input.Name) == "" {
		return nil, "", apperrors.InvalidInput("name is required")
	}
	if input.Email == "" {
		return nil, "", apperrors.InvalidInput("email is required")
	}
	if err := validatePassword(input.Password); err != nil {
		return nil, "", err
	}

	hash, err := auth.HashPassword(input.Password)
	if err != nil {
		return nil, "", err
	}

	now := time.Now().UTC()
	user := &domain.User{
		ID:           uuid.New().String(),
		Name:         strings.TrimSpace(input.Name),
		Email:        strings.ToLower(strings.TrimSpace(input.Email)),
		Photo:        defaultPhoto,
		Role:         domain.RoleUser,
		PasswordHash: hash,
		Active:       true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.users.Create(ctx, user); err != nil {
		return nil, "", fmt.Errorf("create user: %w", err)
	}

	token, err := s.tokens.Issue(user.ID)
	if err != nil {
		return nil, "", fmt.Errorf("issue token: %w", err)
	}

	// Welcome mail is best-effort: the account exists either way.
	if err := s.mailer.Send(ctx, mail.WelcomeMessage(user.Email, user.Name)); err != nil {
		s.logger.ErrorContext(ctx, "failed to send welcome email",
			slog.String("user_id", user.ID),
			slog.String("error", err.Error()),
		)
	}

	s.producer.PublishUserRegistered(ctx, event.UserData{
		ID:    user.ID,
		Name:  user.Name,
		Email: user.Email,
		Role:  user.Role,
	})

	s.logger.InfoContext(ctx, "user registered",
		slog.String("user_id", user.ID),
		slog.String("email", user.Email),
	)

	return user, token, nil
}

// Login authenticates a user with email and password. It never reveals
// which of the two credentials was wrong, and a deactivated account is
// indistinguishable from an unknown one.
func (s *AccountService) Login(ctx context.Context, email, password string) (*domain.User, string, error) {
	if email == "" || password == "" {
		return nil, "", apperrors.InvalidInput("email and password are required")
	}

	user, err := s.users.GetByEmail(ctx, strings.ToLower(email))
	if err != nil {
		return nil, "", apperrors.Unauthorized("invalid email or password")
	}
	if !user.Active {
		return nil, "", apperrors.Unauthorized("invalid email or password")
	}
	if !auth.CheckPassword(password, user.PasswordHash) {
		return nil, "", apperrors.Unauthorized("invalid email or password")
	}

	token, err := s.tokens.Issue(user.ID)
	if err != nil {
		return nil, "", fmt.Errorf("issue token: %w", err)
	}

	s.logger.InfoContext(ctx, "user logged in",
		slog.String("user_id", user.ID),
	)

	return user, token, nil
}

// ForgotPassword mints a reset ticket and mails the plaintext to the user.
// Unknown emails succeed silently so the endpoint cannot be used to probe
// for accounts. If the mail cannot be sent, the stored ticket is rolled
// back and the failure surfaces as an upstream error.
func (s *AccountService) ForgotPassword(ctx context.Context, email string) error {
	if email == "" {
		return apperrors.InvalidInput("email is required")
	}

	user, err := s.users.GetByEmail(ctx, strings.ToLower(email))
	if err != nil {
		s.logger.InfoContext(ctx, "password reset requested for unknown email")
		return nil
	}

	ticket, err := auth.NewResetTicket()
	if err != nil {
		return err
	}

	if err := s.users.SetResetTicket(ctx, user.ID, ticket.Digest, ticket.ExpiresAt); err != nil {
		return fmt.Errorf("store reset ticket: %w", err)
	}

	resetURL := fmt.Sprintf("%s/%s", strings.TrimSuffix(s.resetURLBase, "/"), ticket.Plaintext)
	if err := s.mailer.Send(ctx, mail.PasswordResetMessage(user.Email, user.Name, resetURL)); err != nil {
		// A ticket the user never received must not stay redeemable.
		if clearErr := s.users.ClearResetTicket(ctx, user.ID); clearErr != nil {
			s.logger.ErrorContext(ctx, "failed to roll back reset ticket",
				slog.String("user_id", user.ID),
				slog.String("error", clearErr.Error()),
			)
		}
		return apperrors.Upstream("mail", err)
	}

	s.logger.InfoContext(ctx, "password reset requested",
		slog.String("user_id", user.ID),
	)

	return nil
}

// ResetPassword redeems a reset ticket. The ticket is single-use: a second
// redemption, or one after expiry, fails the same way an unknown token does.
func (s *AccountService) ResetPassword(ctx context.Context, token, newPassword string) (*domain.User, string, error) {
	if token == "" {
		return nil, "", apperrors.InvalidInput("reset token is required")
	}
	if err := validatePassword(newPassword); err != nil {
		return nil, "", err
	}

	hash, err := auth.HashPassword(newPassword)
	if err != nil {
		return nil, "", err
	}

	user, err := s.users.ConsumeResetTicket(ctx, auth.Digest(token), hash, time.Now().UTC())
	if err != nil {
		return nil, "", apperrors.InvalidInput("token is invalid or has expired")
	}

	sessionToken, err := s.tokens.Issue(user.ID)
	if err != nil {
		return nil, "", fmt.Errorf("issue token: %w", err)
	}

	s.producer.PublishUserPasswordReset(ctx, event.UserData{
		ID:    user.ID,
		Email: user.Email,
	})

	s.logger.InfoContext(ctx, "password reset completed",
		slog.String("user_id", user.ID),
	)

	return user, sessionToken, nil
}

// UpdatePassword changes the password of a logged-in user after verifying
// the current one, and returns a fresh token since the old one is now stale.
func (s *AccountService) UpdatePassword(ctx context.Context, userID, currentPassword, newPassword string) (string, error) {
	if err := validatePassword(newPassword); err != nil {
		return "", err
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return "", fmt.Errorf("get user: %w", err)
	}

	if !auth.CheckPassword(currentPassword, user.PasswordHash) {
		return "", apperrors.Unauthorized("current password is incorrect")
	}

	hash, err := auth.HashPassword(newPassword)
	if err != nil {
		return "", err
	}

	if err := s.users.UpdatePassword(ctx, user.ID, hash, time.Now().UTC()); err != nil {
		return "", fmt.Errorf("update password: %w", err)
	}

	token, err := s.tokens.Issue(user.ID)
	if err != nil {
		return "", fmt.Errorf("issue token: %w", err)
	}

	s.logger.InfoContext(ctx, "password updated",
		slog.String("user_id", user.ID),
	)

	return token, nil
}

// GetUser retrieves a user by id.
func (s *AccountService) GetUser(ctx context.Context, id string) (*domain.User, error) {
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	return user, nil
}

// UpdateMe updates the caller's own profile.
func (s *AccountService) UpdateMe(ctx context.Context, userID string, input UpdateMeInput) (*domain.User, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}

	if input.Name != nil {
		if strings.TrimSpace(*input.Name) == "" {
			return nil, apperrors.InvalidInput("name cannot be empty")
		}
		user.Name = strings.TrimSpace(*input.Name)
	}
	if input.Email != nil {
		user.Email = strings.ToLower(strings.TrimSpace(*input.Email))
	}
	if input.Photo != nil {
		user.Photo = *input.Photo
	}

	if err := s.users.Update(ctx, user); err != nil {
		return nil, fmt.Errorf("update user: %w", err)
	}

	return user, nil
}

// DeactivateMe soft-deletes the caller's account.
func (s *AccountService) DeactivateMe(ctx context.Context, userID string) error {
	if err := s.users.Deactivate(ctx, userID); err != nil {
		return fmt.Errorf("deactivate user: %w", err)
	}

	s.logger.InfoContext(ctx, "user deactivated",
		slog.String("user_id", userID),
	)

	return nil
}

// ListUsers returns users matching the request's query string.
func (s *AccountService) ListUsers(ctx context.Context, values url.Values) ([]domain.User, int, *query.Spec, error) {
	spec, err := query.Parse(values, userSchema)
	if err != nil {
		return nil, 0, nil, err
	}

	users, total, err := s.users.List(ctx, spec)
	if err != nil {
		return nil, 0, nil, fmt.Errorf("list users: %w", err)
	}

	return users, total, spec, nil
}

// AdminUpdateUser updates any account, including role and active status.
func (s *AccountService) AdminUpdateUser(ctx context.Context, id string, input AdminUpdateUserInput) (*domain.User, error) {
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}

	if input.Name != nil {
		user.Name = strings.TrimSpace(*input.Name)
	}
	if input.Email != nil {
		user.Email = strings.ToLower(strings.TrimSpace(*input.Email))
	}
	if input.Role != nil {
		if !domain.IsValidRole(*input.Role) {
			return nil, apperrors.InvalidInput(fmt.Sprintf("invalid role %q", *input.Role))
		}
		user.Role = *input.Role
	}
	if input.Active != nil {
		user.Active = *input.Active
	}

	if err := s.users.Update(ctx, user); err != nil {
		return nil, fmt.Errorf("update user: %w", err)
	}

	return user, nil
}

// DeleteUser removes an account permanently.
func (s *AccountService) DeleteUser(ctx context.Context, id string) error {
	if err := s.users.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	return nil
}

func validatePassword(password string) error {
	if len(password) < minPasswordLength {
		return apperrors.InvalidInput(fmt.Sprintf("password must be at least %d characters", minPasswordLength))
	}
	return nil
}
