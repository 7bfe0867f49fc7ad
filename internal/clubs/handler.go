package clubs

import (
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/clubhub/backend/internal/auth"
	"github.com/clubhub/backend/internal/middleware"
	"github.com/clubhub/backend/internal/models"
	"github.com/clubhub/backend/pkg/response"
)

// CreateClubRequest is the body for POST /clubs.
type CreateClubRequest struct {
	Name           string `json:"name" binding:"required,min=2,max=100"`
	Description    string `json:"description"`
	PrimaryAdminID string `json:"primary_admin_id" binding:"required"`
}

// ClubResponse is a club plus its member count.
type ClubResponse struct {
	models.Club
	MemberCount int `json:"member_count"`
}

// Handler handles club HTTP endpoints.
type Handler struct {
	repo   *Repository
	users  *auth.Repository
	logger *zap.Logger
}

// NewHandler creates a clubs handler.
func NewHandler(repo *Repository, users *auth.Repository, logger *zap.Logger) *Handler {
	return &Handler{repo: repo, users: users, logger: logger}
}

// Create handles POST /clubs. Restricted to main_admin by route middleware.
func (h *Handler) Create(c *gin.Context) {
	var req CreateClubRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	adminID, err := uuid.Parse(req.PrimaryAdminID)
	if err != nil {
		response.BadRequest(c, "invalid primary admin id")
		return
	}
	if _, err := h.users.GetByID(c.Request.Context(), adminID); err != nil {
		if errors.Is(err, auth.ErrUserNotFound) {
			response.BadRequest(c, "primary admin does not exist")
			return
		}
		h.logger.Error("failed to look up primary admin", zap.Error(err))
		response.Internal(c, "failed to create club")
		return
	}

	club := &models.Club{
		Name:           req.Name,
		Description:    req.Description,
		PrimaryAdminID: adminID,
	}
	if err := h.repo.Create(c.Request.Context(), club); err != nil {
		h.logger.Error("failed to create club", zap.Error(err))
		response.Internal(c, "failed to create club")
		return
	}
	// The primary admin is always a member of the club they run.
	if err := h.repo.AddMember(c.Request.Context(), club.ID, adminID); err != nil {
		h.logger.Error("failed to add primary admin as member", zap.Error(err),
			zap.String("club_id", club.ID.String()))
	}
	response.Created(c, club)
}

// List handles GET /clubs.
func (h *Handler) List(c *gin.Context) {
	list, err := h.repo.List(c.Request.Context())
	if err != nil {
		h.logger.Error("failed to list clubs", zap.Error(err))
		response.Internal(c, "failed to list clubs")
		return
	}
	response.OK(c, list)
}

// Get handles GET /clubs/:id.
func (h *Handler) Get(c *gin.Context) {
	clubID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid club id")
		return
	}
	club, err := h.repo.GetByID(c.Request.Context(), clubID)
	if errors.Is(err, ErrClubNotFound) {
		response.NotFound(c, "club not found")
		return
	}
	if err != nil {
		h.logger.Error("failed to get club", zap.Error(err))
		response.Internal(c, "failed to get club")
		return
	}
	count, err := h.repo.MemberCount(c.Request.Context(), clubID)
	if err != nil {
		h.logger.Error("failed to count members", zap.Error(err))
		response.Internal(c, "failed to get club")
		return
	}
	response.OK(c, ClubResponse{Club: *club, MemberCount: count})
}

// Join handles POST /clubs/:id/join. The authenticated user joins the club.
func (h *Handler) Join(c *gin.Context) {
	clubID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid club id")
		return
	}
	userID := c.MustGet(middleware.ContextUserID).(uuid.UUID)

	if _, err := h.repo.GetByID(c.Request.Context(), clubID); err != nil {
		if errors.Is(err, ErrClubNotFound) {
			response.NotFound(c, "club not found")
			return
		}
		h.logger.Error("failed to get club", zap.Error(err))
		response.Internal(c, "failed to join club")
		return
	}
	if err := h.repo.AddMember(c.Request.Context(), clubID, userID); err != nil {
		h.logger.Error("failed to join club", zap.Error(err))
		response.Internal(c, "failed to join club")
		return
	}
	response.OK(c, gin.H{"club_id": clubID, "joined": true})
}

// Members handles GET /clubs/:id/members. Gated to roles that can manage
// members by route middleware.
func (h *Handler) Members(c *gin.Context) {
	clubID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid club id")
		return
	}
	members, err := h.users.ListByClub(c.Request.Context(), clubID)
	if err != nil {
		h.logger.Error("failed to list members", zap.Error(err))
		response.Internal(c, "failed to list members")
		return
	}
	response.OK(c, members)
}

// Deactivate handles DELETE /clubs/:id. Restricted to main_admin.
func (h *Handler) Deactivate(c *gin.Context) {
	clubID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid club id")
		return
	}
	if err := h.repo.Deactivate(c.Request.Context(), clubID); err != nil {
		h.logger.Error("failed to deactivate club", zap.Error(err))
		response.Internal(c, "failed to deactivate club")
		return
	}
	response.NoContent(c)
}
