package clubs

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/clubhub/backend/internal/models"
)

// ErrClubNotFound is returned when no club matches the lookup.
var ErrClubNotFound = errors.New("club not found")

// Repository handles club and club membership persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a clubs repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Create creates a club.
func (r *Repository) Create(ctx context.Context, club *models.Club) error {
	const q = `INSERT INTO clubs (id, name, description, primary_admin_id)
		VALUES (gen_random_uuid(), $1, $2, $3)
		RETURNING id, is_active, created_at, updated_at`
	return r.pool.QueryRow(ctx, q, club.Name, club.Description, club.PrimaryAdminID).
		Scan(&club.ID, &club.IsActive, &club.CreatedAt, &club.UpdatedAt)
}

// GetByID returns a club by ID.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*models.Club, error) {
	const q = `SELECT id, name, description, primary_admin_id, is_active, created_at, updated_at
		FROM clubs WHERE id = $1`
	var club models.Club
	err := r.pool.QueryRow(ctx, q, id).Scan(&club.ID, &club.Name, &club.Description,
		&club.PrimaryAdminID, &club.IsActive, &club.CreatedAt, &club.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrClubNotFound
	}
	if err != nil {
		return nil, err
	}
	return &club, nil
}

// List returns all active clubs.
func (r *Repository) List(ctx context.Context) ([]models.Club, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, name, description, primary_admin_id, is_active, created_at, updated_at
		FROM clubs WHERE is_active ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []models.Club
	for rows.Next() {
		var club models.Club
		if err := rows.Scan(&club.ID, &club.Name, &club.Description, &club.PrimaryAdminID,
			&club.IsActive, &club.CreatedAt, &club.UpdatedAt); err != nil {
			return nil, err
		}
		list = append(list, club)
	}
	return list, rows.Err()
}

// AddMember adds a user to a club and points the user's affiliation at it.
func (r *Repository) AddMember(ctx context.Context, clubID, userID uuid.UUID) error {
	const q = `INSERT INTO club_members (club_id, user_id) VALUES ($1, $2)
		ON CONFLICT (club_id, user_id) DO NOTHING`
	if _, err := r.pool.Exec(ctx, q, clubID, userID); err != nil {
		return err
	}
	_, err := r.pool.Exec(ctx, `UPDATE users SET club_id = $1 WHERE id = $2`, clubID, userID)
	return err
}

// IsMember reports whether the user belongs to the club.
func (r *Repository) IsMember(ctx context.Context, clubID, userID uuid.UUID) (bool, error) {
	const q = `SELECT EXISTS (SELECT 1 FROM club_members WHERE club_id = $1 AND user_id = $2)`
	var ok bool
	err := r.pool.QueryRow(ctx, q, clubID, userID).Scan(&ok)
	return ok, err
}

// MemberCount returns the number of members in a club.
func (r *Repository) MemberCount(ctx context.Context, clubID uuid.UUID) (int, error) {
	var n int
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM club_members WHERE club_id = $1`, clubID).Scan(&n)
	return n, err
}

// Deactivate soft-deletes a club.
func (r *Repository) Deactivate(ctx context.Context, clubID uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `UPDATE clubs SET is_active = FALSE, updated_at = now() WHERE id = $1`, clubID)
	return err
}
