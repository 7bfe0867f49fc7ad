package auth

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/clubhub/backend/internal/models"
)

// ErrUserNotFound is returned when no user matches the lookup.
var ErrUserNotFound = errors.New("user not found")

// Repository handles user persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates an auth repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const userColumns = `u.id, u.email, u.password_hash, u.name, u.role, u.club_id,
	COALESCE(c.name, ''), COALESCE(u.avatar_url, ''), u.is_email_verified, u.created_at, u.last_active_at`

const userFrom = ` FROM users u LEFT JOIN clubs c ON c.id = u.club_id`

func scanUser(row pgx.Row) (*models.User, error) {
	var u models.User
	var role string
	err := row.Scan(&u.ID, &u.Email, &u.Password, &u.Name, &role, &u.ClubID,
		&u.ClubName, &u.AvatarURL, &u.IsEmailVerified, &u.CreatedAt, &u.LastActiveAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	u.Role = models.Role(role)
	return &u, nil
}

// GetByID returns a user by ID.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	return scanUser(r.pool.QueryRow(ctx, `SELECT `+userColumns+userFrom+` WHERE u.id = $1`, id))
}

// GetByEmail returns a user by email.
func (r *Repository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return scanUser(r.pool.QueryRow(ctx, `SELECT `+userColumns+userFrom+` WHERE u.email = $1`, email))
}

// Create inserts a new user.
func (r *Repository) Create(ctx context.Context, email, passwordHash, name string, role models.Role, clubID *uuid.UUID) (*models.User, error) {
	const q = `WITH inserted AS (
		INSERT INTO users (email, password_hash, name, role, club_id)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, email, password_hash, name, role, club_id, avatar_url, is_email_verified, created_at, last_active_at
	)
	SELECT u.id, u.email, u.password_hash, u.name, u.role, u.club_id,
		COALESCE(c.name, ''), COALESCE(u.avatar_url, ''), u.is_email_verified, u.created_at, u.last_active_at
	FROM inserted u LEFT JOIN clubs c ON c.id = u.club_id`
	return scanUser(r.pool.QueryRow(ctx, q, email, passwordHash, name, string(role), clubID))
}

// TouchLastActive updates the user's last-active timestamp.
func (r *Repository) TouchLastActive(ctx context.Context, id uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `UPDATE users SET last_active_at = now() WHERE id = $1`, id)
	return err
}

// UpdateProfile updates mutable profile fields.
func (r *Repository) UpdateProfile(ctx context.Context, id uuid.UUID, name, avatarURL string) (*models.User, error) {
	const q = `WITH updated AS (
		UPDATE users SET name = $2, avatar_url = NULLIF($3, '') WHERE id = $1
		RETURNING id, email, password_hash, name, role, club_id, avatar_url, is_email_verified, created_at, last_active_at
	)
	SELECT u.id, u.email, u.password_hash, u.name, u.role, u.club_id,
		COALESCE(c.name, ''), COALESCE(u.avatar_url, ''), u.is_email_verified, u.created_at, u.last_active_at
	FROM updated u LEFT JOIN clubs c ON c.id = u.club_id`
	return scanUser(r.pool.QueryRow(ctx, q, id, name, avatarURL))
}

// List returns all users, for admin surfaces such as member management.
func (r *Repository) List(ctx context.Context) ([]models.UserPublic, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+userColumns+userFrom+` ORDER BY u.name, u.email`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []models.UserPublic
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, u.ToPublic())
	}
	return list, rows.Err()
}

// ListByClub returns the users affiliated with a club.
func (r *Repository) ListByClub(ctx context.Context, clubID uuid.UUID) ([]models.UserPublic, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+userColumns+userFrom+` WHERE u.club_id = $1 ORDER BY u.name`, clubID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []models.UserPublic
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, u.ToPublic())
	}
	return list, rows.Err()
}
