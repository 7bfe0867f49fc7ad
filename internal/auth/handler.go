package auth

import (
	"errors"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/clubhub/backend/internal/models"
	"github.com/clubhub/backend/internal/session"
	"github.com/clubhub/backend/pkg/response"
)

// RegisterRequest is the body for POST /auth/register.
type RegisterRequest struct {
	Email           string `json:"email" binding:"required,email"`
	Password        string `json:"password" binding:"required,min=6"`
	ConfirmPassword string `json:"confirm_password" binding:"required"`
	Name            string `json:"name" binding:"required"`
	Role            string `json:"role"` // optional, defaults to member
	ClubID          string `json:"club_id"`
}

// LoginRequest is the body for POST /auth/login.
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// SessionResponse is the session state plus token returned by auth endpoints.
type SessionResponse struct {
	Token           string             `json:"token,omitempty"`
	User            *models.UserPublic `json:"user,omitempty"`
	IsAuthenticated bool               `json:"is_authenticated"`
}

// Handler handles auth HTTP endpoints. Each request runs through a fresh
// session.Manager so that all state transitions share one code path.
type Handler struct {
	svc    *Service
	store  session.TokenStore
	jwt    *JWTService
	logger *zap.Logger
}

// NewHandler creates an auth handler.
func NewHandler(svc *Service, store session.TokenStore, jwt *JWTService, logger *zap.Logger) *Handler {
	return &Handler{svc: svc, store: store, jwt: jwt, logger: logger}
}

func (h *Handler) newManager() *session.Manager {
	return session.NewManager(h.store, h.svc, func(u *models.User) (string, error) {
		return h.jwt.Generate(u)
	})
}

func sessionResponse(st session.State, token string) SessionResponse {
	resp := SessionResponse{Token: token, IsAuthenticated: st.IsAuthenticated}
	if st.User != nil {
		pub := st.User.ToPublic()
		resp.User = &pub
	}
	return resp
}

// bearerToken extracts the token from the Authorization header, empty when
// absent or malformed.
func bearerToken(c *gin.Context) string {
	parts := strings.SplitN(c.GetHeader("Authorization"), " ", 2)
	if len(parts) != 2 || parts[0] != "Bearer" {
		return ""
	}
	return parts[1]
}

// Login handles POST /auth/login.
func (h *Handler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}

	mgr := h.newManager()
	st, err := mgr.Login(c.Request.Context(), req.Email, req.Password)
	if errors.Is(err, session.ErrInvalidCredentials) {
		response.Unauthorized(c, "invalid email or password")
		return
	}
	if err != nil {
		h.logger.Error("login failed", zap.Error(err))
		response.Internal(c, "login failed")
		return
	}
	response.OK(c, sessionResponse(st, mgr.Token()))
}

// Register handles POST /auth/register.
func (h *Handler) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}

	role := models.RoleMember
	if req.Role != "" {
		parsed, err := models.ParseRole(req.Role)
		if err != nil {
			response.BadRequest(c, "invalid role")
			return
		}
		role = parsed
	}
	var clubID *uuid.UUID
	if req.ClubID != "" {
		id, err := uuid.Parse(req.ClubID)
		if err != nil {
			response.BadRequest(c, "invalid club id")
			return
		}
		clubID = &id
	}

	mgr := h.newManager()
	st, err := mgr.Register(c.Request.Context(), session.RegisterData{
		CreateAccountParams: session.CreateAccountParams{
			Email:    req.Email,
			Password: req.Password,
			Name:     req.Name,
			Role:     role,
			ClubID:   clubID,
		},
		ConfirmPassword: req.ConfirmPassword,
	})
	switch {
	case errors.Is(err, session.ErrPasswordMismatch):
		response.BadRequest(c, "password confirmation does not match")
		return
	case errors.Is(err, session.ErrEmailTaken):
		response.BadRequest(c, "email already registered")
		return
	case err != nil:
		h.logger.Error("register failed", zap.Error(err))
		response.Internal(c, "registration failed")
		return
	}
	response.Created(c, sessionResponse(st, mgr.Token()))
}

// Session handles GET /auth/session: the session-restore lookup. A missing
// or unresolvable token yields an unauthenticated state, not an error.
func (h *Handler) Session(c *gin.Context) {
	mgr := h.newManager()
	st := mgr.Restore(c.Request.Context(), bearerToken(c))
	response.OK(c, sessionResponse(st, ""))
}

// Logout handles POST /auth/logout: clears the persisted token entry and
// returns the unauthenticated terminal state.
func (h *Handler) Logout(c *gin.Context) {
	mgr := h.newManager()
	mgr.Restore(c.Request.Context(), bearerToken(c))
	st, err := mgr.Logout(c.Request.Context())
	if err != nil {
		h.logger.Error("logout failed", zap.Error(err))
		response.Internal(c, "logout failed")
		return
	}
	response.OK(c, sessionResponse(st, ""))
}

// UpdateProfileRequest is the body for PUT /me/profile.
type UpdateProfileRequest struct {
	Name      string `json:"name" binding:"required"`
	AvatarURL string `json:"avatar_url"`
}

// UpdateProfile handles PUT /me/profile: persists the mutable profile
// fields and returns the refreshed session state.
func (h *Handler) UpdateProfile(c *gin.Context) {
	var req UpdateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}

	mgr := h.newManager()
	st := mgr.Restore(c.Request.Context(), bearerToken(c))
	if !st.IsAuthenticated {
		response.Unauthorized(c, "invalid session")
		return
	}

	user, err := h.svc.repo.UpdateProfile(c.Request.Context(), st.User.ID, req.Name, req.AvatarURL)
	if err != nil {
		h.logger.Error("profile update failed", zap.Error(err))
		response.Internal(c, "profile update failed")
		return
	}
	st = mgr.UpdateUser(func(u *models.User) {
		u.Name = user.Name
		u.AvatarURL = user.AvatarURL
	})
	response.OK(c, sessionResponse(st, ""))
}

// List handles GET /users (main_admin only).
func (h *Handler) List(c *gin.Context) {
	list, err := h.svc.repo.List(c.Request.Context())
	if err != nil {
		response.Internal(c, "failed to list users")
		return
	}
	response.OK(c, list)
}
