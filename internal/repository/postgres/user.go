package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/peakscale/tourbook/internal/domain"
	"github.com/peakscale/tourbook/internal/query"
	"github.com/peakscale/tourbook/pkg/database"
	apperrors "github.com/peakscale/tourbook/pkg/errors"
)

const userColumns = `id, name, email, photo, role, password_hash, password_changed_at,
	       password_reset_token, password_reset_expires, active, created_at, updated_at`

// UserRepository implements repository.UserRepository using PostgreSQL.
type UserRepository struct {
	pool database.DBTX
}

// NewUserRepository creates a new PostgreSQL-backed user repository.
func NewUserRepository(pool database.DBTX) *UserRepository {
	return &UserRepository{pool: pool}
}

// Create inserts a new user into the database.
func (r *UserRepository) Create(ctx context.Context, u *domain.User) error {
	q := `
		INSERT INTO users (id, name, email, photo, role, password_hash, password_changed_at,
		                   password_reset_token, password_reset_expires, active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`

	_, err := r.pool.Exec(ctx, q,
		u.ID,
		u.Name,
		u.Email,
		u.Photo,
		u.Role,
		u.PasswordHash,
		u.PasswordChangedAt,
		u.PasswordResetToken,
		u.PasswordResetExpires,
		u.Active,
		u.CreatedAt,
		u.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperrors.AlreadyExists("user", "email", u.Email)
		}
		return fmt.Errorf("insert user: %w", err)
	}

	return nil
}

// GetByID retrieves a user by their ID.
func (r *UserRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	q := fmt.Sprintf(`SELECT %s FROM users WHERE id = $1`, userColumns)
	return r.scanUser(ctx, q, id)
}

// GetByEmail retrieves a user by their email address.
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	q := fmt.Sprintf(`SELECT %s FROM users WHERE email = $1`, userColumns)
	return r.scanUser(ctx, q, email)
}

// List returns users matching the query spec with the total count.
func (r *UserRepository) List(ctx context.Context, spec *query.Spec) ([]domain.User, int, error) {
	clause, args := spec.Clauses()

	q := fmt.Sprintf(`SELECT %s, count(*) OVER() AS total_count FROM users %s`, userColumns, clause)

	rows, err := r.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	var (
		users      []domain.User
		totalCount int
	)

	for rows.Next() {
		var u domain.User
		if err := rows.Scan(
			&u.ID,
			&u.Name,
			&u.Email,
			&u.Photo,
			&u.Role,
			&u.PasswordHash,
			&u.PasswordChangedAt,
			&u.PasswordResetToken,
			&u.PasswordResetExpires,
			&u.Active,
			&u.CreatedAt,
			&u.UpdatedAt,
			&totalCount,
		); err != nil {
			return nil, 0, fmt.Errorf("scan user row: %w", err)
		}
		users = append(users, u)
	}

	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate user rows: %w", err)
	}

	if users == nil {
		users = []domain.User{}
	}

	return users, totalCount, nil
}

// Update modifies a user's profile fields.
func (r *UserRepository) Update(ctx context.Context, u *domain.User) error {
	u.UpdatedAt = time.Now().UTC()

	q := `
		UPDATE users
		SET name = $1, email = $2, photo = $3, role = $4, active = $5, updated_at = $6
		WHERE id = $7`

	ct, err := r.pool.Exec(ctx, q,
		u.Name,
		u.Email,
		u.Photo,
		u.Role,
		u.Active,
		u.UpdatedAt,
		u.ID,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperrors.AlreadyExists("user", "email", u.Email)
		}
		return fmt.Errorf("update user: %w", err)
	}

	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("user", u.ID)
	}

	return nil
}

// UpdatePassword stores a new password hash, rotates password_changed_at,
// and clears any outstanding reset ticket.
func (r *UserRepository) UpdatePassword(ctx context.Context, id, passwordHash string, changedAt time.Time) error {
	q := `
		UPDATE users
		SET password_hash = $1, password_changed_at = $2,
		    password_reset_token = NULL, password_reset_expires = NULL, updated_at = $2
		WHERE id = $3`

	ct, err := r.pool.Exec(ctx, q, passwordHash, changedAt, id)
	if err != nil {
		return fmt.Errorf("update user password: %w", err)
	}

	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("user", id)
	}

	return nil
}

// SetResetTicket stores a reset ticket digest and expiry on the user row.
func (r *UserRepository) SetResetTicket(ctx context.Context, id, digest string, expiresAt time.Time) error {
	q := `
		UPDATE users
		SET password_reset_token = $1, password_reset_expires = $2, updated_at = now()
		WHERE id = $3`

	ct, err := r.pool.Exec(ctx, q, digest, expiresAt, id)
	if err != nil {
		return fmt.Errorf("set reset ticket: %w", err)
	}

	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("user", id)
	}

	return nil
}

// ClearResetTicket removes any stored reset ticket from the user row.
func (r *UserRepository) ClearResetTicket(ctx context.Context, id string) error {
	q := `
		UPDATE users
		SET password_reset_token = NULL, password_reset_expires = NULL, updated_at = now()
		WHERE id = $1`

	ct, err := r.pool.Exec(ctx, q, id)
	if err != nil {
		return fmt.Errorf("clear reset ticket: %w", err)
	}

	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("user", id)
	}

	return nil
}

// ConsumeResetTicket atomically redeems an unexpired reset ticket. The WHERE
// clause is the single-use guarantee: two concurrent redemptions of the same
// ticket cannot both match.
func (r *UserRepository) ConsumeResetTicket(ctx context.Context, digest, passwordHash string, changedAt time.Time) (*domain.User, error) {
	q := fmt.Sprintf(`
		UPDATE users
		SET password_hash = $1, password_changed_at = $2,
		    password_reset_token = NULL, password_reset_expires = NULL, updated_at = $2
		WHERE password_reset_token = $3 AND password_reset_expires > $2
		RETURNING %s`, userColumns)

	var u domain.User
	err := r.pool.QueryRow(ctx, q, passwordHash, changedAt, digest).Scan(
		&u.ID,
		&u.Name,
		&u.Email,
		&u.Photo,
		&u.Role,
		&u.PasswordHash,
		&u.PasswordChangedAt,
		&u.PasswordResetToken,
		&u.PasswordResetExpires,
		&u.Active,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("consume reset ticket: %w", err)
	}

	return &u, nil
}

// Deactivate soft-deletes a user by clearing the active flag.
func (r *UserRepository) Deactivate(ctx context.Context, id string) error {
	q := `UPDATE users SET active = false, updated_at = now() WHERE id = $1`

	ct, err := r.pool.Exec(ctx, q, id)
	if err != nil {
		return fmt.Errorf("deactivate user: %w", err)
	}

	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("user", id)
	}

	return nil
}

// Delete removes a user from the database by their ID.
func (r *UserRepository) Delete(ctx context.Context, id string) error {
	ct, err := r.pool.Exec(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}

	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("user", id)
	}

	return nil
}

// scanUser is a helper that executes a query expected to return a single user row.
func (r *UserRepository) scanUser(ctx context.Context, q string, args ...any) (*domain.User, error) {
	var u domain.User

	err := r.pool.QueryRow(ctx, q, args...).Scan(
		&u.ID,
		&u.Name,
		&u.Email,
		&u.Photo,
		&u.Role,
		&u.PasswordHash,
		&u.PasswordChangedAt,
		&u.PasswordResetToken,
		&u.PasswordResetExpires,
		&u.Active,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("scan user: %w", err)
	}

	return &u, nil
}
