package domain

import (
	"time"
)

// User represents a registered account.
//
// PasswordHash, the reset-ticket fields, and the active flag never leave the
// service boundary: serialization goes through PublicView, which carries a
// fixed allow-list of fields independent of the persistence representation.
type User struct {
	ID                   string
	Name                 string
	Email                string
	Photo                string
	Role                 string
	PasswordHash         string
	PasswordChangedAt    *time.Time
	PasswordResetToken   *string
	PasswordResetExpires *time.Time
	Active               bool
	CreatedAt            time.Time
	UpdatedAt            time.Time
}

// PublicUser is the response-shaped projection of a User.
type PublicUser struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Photo     string    `json:"photo"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"created_at"`
}

// PublicView returns the response-shaped projection of the user.
func (u *User) PublicView() PublicUser {
	return PublicUser{
		ID:        u.ID,
		Name:      u.Name,
		Email:     u.Email,
		Photo:     u.Photo,
		Role:      u.Role,
		CreatedAt: u.CreatedAt,
	}
}
