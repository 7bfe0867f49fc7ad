package models

import (
	"time"

	"github.com/google/uuid"
)

// Club represents a community/club tenant.
type Club struct {
	ID             uuid.UUID `json:"id"`
	Name           string    `json:"name"`
	Description    string    `json:"description"`
	PrimaryAdminID uuid.UUID `json:"primary_admin_id"`
	IsActive       bool      `json:"is_active"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// ClubMember links a user to a club.
type ClubMember struct {
	ClubID   uuid.UUID `json:"club_id"`
	UserID   uuid.UUID `json:"user_id"`
	JoinedAt time.Time `json:"joined_at"`
}
