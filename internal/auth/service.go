package auth

import (
	"context"
	"errors"

	"github.com/clubhub/backend/internal/models"
	"github.com/clubhub/backend/internal/session"
	"github.com/clubhub/backend/pkg/utils"
)

// Service is the pgx-backed authentication service behind the
// session.AuthService port.
type Service struct {
	repo *Repository
}

// NewService creates the authentication service.
func NewService(repo *Repository) *Service {
	return &Service{repo: repo}
}

// VerifyCredentials checks email and password against the user store. The
// error does not reveal whether the email or the password was wrong.
func (s *Service) VerifyCredentials(ctx context.Context, email, password string) (*models.User, error) {
	user, err := s.repo.GetByEmail(ctx, email)
	if errors.Is(err, ErrUserNotFound) {
		return nil, session.ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}
	if !utils.CheckPassword(password, user.Password) {
		return nil, session.ErrInvalidCredentials
	}
	_ = s.repo.TouchLastActive(ctx, user.ID)
	return user, nil
}

// CreateAccount registers a new user. Duplicate emails are rejected.
func (s *Service) CreateAccount(ctx context.Context, p session.CreateAccountParams) (*models.User, error) {
	if _, err := s.repo.GetByEmail(ctx, p.Email); err == nil {
		return nil, session.ErrEmailTaken
	} else if !errors.Is(err, ErrUserNotFound) {
		return nil, err
	}
	hash, err := utils.HashPassword(p.Password)
	if err != nil {
		return nil, err
	}
	return s.repo.Create(ctx, p.Email, hash, p.Name, p.Role, p.ClubID)
}

// LookupIdentity resolves an identity key (email) to a known user.
func (s *Service) LookupIdentity(ctx context.Context, identityKey string) (*models.User, error) {
	return s.repo.GetByEmail(ctx, identityKey)
}
