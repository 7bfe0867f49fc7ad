package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Role represents a user's role in the platform. The set is closed: any
// other value is rejected at the boundary by ParseRole.
type Role string

const (
	RoleMember       Role = "member"
	RoleManager      Role = "manager"
	RolePrimaryAdmin Role = "primary_admin"
	RoleMainAdmin    Role = "main_admin"
)

// Roles lists all valid roles.
var Roles = []Role{RoleMember, RoleManager, RolePrimaryAdmin, RoleMainAdmin}

// ParseRole validates a role string. Unknown values are a data-integrity
// error, not a silent default.
func ParseRole(s string) (Role, error) {
	switch Role(s) {
	case RoleMember, RoleManager, RolePrimaryAdmin, RoleMainAdmin:
		return Role(s), nil
	}
	return "", fmt.Errorf("invalid role %q", s)
}

// User represents a platform user.
type User struct {
	ID              uuid.UUID  `json:"id"`
	Email           string     `json:"email"`
	Password        string     `json:"-"`
	Name            string     `json:"name"`
	Role            Role       `json:"role"`
	ClubID          *uuid.UUID `json:"club_id,omitempty"`
	ClubName        string     `json:"club_name,omitempty"`
	AvatarURL       string     `json:"avatar_url,omitempty"`
	IsEmailVerified bool       `json:"is_email_verified"`
	CreatedAt       time.Time  `json:"created_at"`
	LastActiveAt    time.Time  `json:"last_active_at"`
}

// UserPublic is User without sensitive fields for API responses.
type UserPublic struct {
	ID              uuid.UUID  `json:"id"`
	Email           string     `json:"email"`
	Name            string     `json:"name"`
	Role            Role       `json:"role"`
	ClubID          *uuid.UUID `json:"club_id,omitempty"`
	ClubName        string     `json:"club_name,omitempty"`
	AvatarURL       string     `json:"avatar_url,omitempty"`
	IsEmailVerified bool       `json:"is_email_verified"`
	CreatedAt       time.Time  `json:"created_at"`
	LastActiveAt    time.Time  `json:"last_active_at"`
}

// ToPublic converts User to UserPublic.
func (u *User) ToPublic() UserPublic {
	return UserPublic{
		ID:              u.ID,
		Email:           u.Email,
		Name:            u.Name,
		Role:            u.Role,
		ClubID:          u.ClubID,
		ClubName:        u.ClubName,
		AvatarURL:       u.AvatarURL,
		IsEmailVerified: u.IsEmailVerified,
		CreatedAt:       u.CreatedAt,
		LastActiveAt:    u.LastActiveAt,
	}
}
