package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	apperrors "github.com/peakscale/tourbook/pkg/errors"
)

// TokenManager issues and verifies the signed session tokens handed to
// clients after login. Tokens are HS256 and carry only the user id as
// subject; everything else about the user is re-read on every request.
type TokenManager struct {
	secret []byte
	expiry time.Duration
}

func NewTokenManager(secret string, expiry time.Duration) *TokenManager {
	return &TokenManager{secret: []byte(secret), expiry: expiry}
}

// Claims is the verified content of a session token.
type Claims struct {
	UserID   string
	IssuedAt time.Time
}

// Issue creates a signed token for the given user id.
func (m *TokenManager) Issue(userID string) (string, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   userID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(m.expiry)),
	})

	signed, err := token.SignedString(m.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Expiry returns the configured token lifetime, used to align the session
// cookie's max age with the token itself.
func (m *TokenManager) Expiry() time.Duration {
	return m.expiry
}

// Verify parses and validates a token string. Expired, malformed, and
// wrongly-signed tokens all surface as ErrUnauthorized with the same
// client-facing message.
func (m *TokenManager) Verify(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &jwt.RegisteredClaims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return m.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, apperrors.Unauthorized("token has expired, please log in again")
		}
		return nil, apperrors.Unauthorized("invalid token")
	}

	claims, ok := token.Claims.(*jwt.RegisteredClaims)
	if !ok || !token.Valid {
		return nil, apperrors.Unauthorized("invalid token")
	}
	if claims.Subject == "" || claims.IssuedAt == nil {
		return nil, apperrors.Unauthorized("invalid token")
	}

	return &Claims{
		UserID:   claims.Subject,
		IssuedAt: claims.IssuedAt.Time,
	}, nil
}

// IsStale reports whether a token issued at issuedAt predates the user's
// last password change. Both instants are truncated to whole seconds
// because the issued-at claim has second precision.
func IsStale(passwordChangedAt *time.Time, issuedAt time.Time) bool {
	if passwordChangedAt == nil {
		return false
	}
	return passwordChangedAt.Truncate(time.Second).After(issuedAt.Truncate(time.Second))
}
