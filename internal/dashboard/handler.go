// Package dashboard serves the navigation, capability and overview endpoints
// that drive the client shell.
package dashboard

import (
	"errors"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/clubhub/backend/internal/auth"
	"github.com/clubhub/backend/internal/authz"
	"github.com/clubhub/backend/internal/chat"
	"github.com/clubhub/backend/internal/clubs"
	"github.com/clubhub/backend/internal/events"
	"github.com/clubhub/backend/internal/middleware"
	"github.com/clubhub/backend/internal/models"
	"github.com/clubhub/backend/internal/realtime"
	"github.com/clubhub/backend/internal/tasks"
	"github.com/clubhub/backend/pkg/response"
)

// Capabilities is the per-role permission set returned to clients.
type Capabilities struct {
	Role                    models.Role    `json:"role"`
	RoleMeta                authz.RoleMeta `json:"role_meta"`
	CanConvertMessageToTask bool           `json:"can_convert_message_to_task"`
	CanReviewTaskConversion bool           `json:"can_review_task_conversion"`
	CanViewAnalytics        bool           `json:"can_view_analytics"`
	CanManageMembers        bool           `json:"can_manage_members"`
}

// CapabilitiesForRole builds the capability set for a role.
func CapabilitiesForRole(role models.Role) Capabilities {
	return Capabilities{
		Role:                    role,
		RoleMeta:                authz.Meta(role),
		CanConvertMessageToTask: authz.CanConvertMessageToTask(role),
		CanReviewTaskConversion: authz.CanReviewTaskConversion(role),
		CanViewAnalytics:        authz.CanViewAnalytics(role),
		CanManageMembers:        authz.CanManageMembers(role),
	}
}

// Overview is the dashboard summary for a user's club.
type Overview struct {
	MemberCount      int             `json:"member_count"`
	UpcomingEvents   []*models.Event `json:"upcoming_events"`
	PendingTasks     int             `json:"pending_tasks"`
	CompletedTasks   int             `json:"completed_tasks"`
	OverdueTasks     int             `json:"overdue_tasks"`
	MessagesThisWeek int             `json:"messages_this_week"`
	OnlineNow        int             `json:"online_now"`
	MyTasks          []*models.Task  `json:"my_tasks"`
}

// Handler handles dashboard HTTP endpoints.
type Handler struct {
	users    *auth.Repository
	clubs    *clubs.Repository
	events   *events.Repository
	tasks    *tasks.Repository
	chat     *chat.Repository
	presence *realtime.Presence
	logger   *zap.Logger
}

// NewHandler creates a dashboard handler.
func NewHandler(users *auth.Repository, clubRepo *clubs.Repository, eventRepo *events.Repository, taskRepo *tasks.Repository, chatRepo *chat.Repository, presence *realtime.Presence, logger *zap.Logger) *Handler {
	return &Handler{users: users, clubs: clubRepo, events: eventRepo, tasks: taskRepo, chat: chatRepo, presence: presence, logger: logger}
}

// Capabilities handles GET /me/capabilities. Pure function of the
// authenticated role.
func (h *Handler) Capabilities(c *gin.Context) {
	role, ok := middleware.RoleFromContext(c)
	if !ok {
		response.Unauthorized(c, "missing role")
		return
	}
	response.OK(c, CapabilitiesForRole(role))
}

// Navigation handles GET /me/navigation: the role-filtered navigation table
// with live badge counts for the user's club.
func (h *Handler) Navigation(c *gin.Context) {
	role, ok := middleware.RoleFromContext(c)
	if !ok {
		response.Unauthorized(c, "missing role")
		return
	}
	items := authz.FilterNavigation(role, authz.DefaultNavigation)

	userID := c.MustGet(middleware.ContextUserID).(uuid.UUID)
	user, err := h.users.GetByID(c.Request.Context(), userID)
	if err != nil {
		if errors.Is(err, auth.ErrUserNotFound) {
			response.Unauthorized(c, "unknown user")
			return
		}
		h.logger.Error("failed to get user", zap.Error(err))
		response.Internal(c, "failed to build navigation")
		return
	}

	if user.ClubID != nil {
		h.fillBadges(c, items, userID, *user.ClubID)
	}
	response.OK(c, items)
}

// fillBadges sets badge counts on the matching navigation entries. Badge
// failures degrade to no badge rather than failing the request.
func (h *Handler) fillBadges(c *gin.Context, items []models.NavigationItem, userID, clubID uuid.UUID) {
	ctx := c.Request.Context()
	for i := range items {
		switch items[i].Route {
		case "/tasks":
			list, err := h.tasks.ListAssignedTo(ctx, userID)
			if err != nil {
				h.logger.Warn("failed to count assigned tasks", zap.Error(err))
				continue
			}
			open := 0
			for _, t := range list {
				if t.Status != models.TaskCompleted {
					open++
				}
			}
			items[i].Badge = open
		case "/events":
			list, err := h.events.ListUpcoming(ctx, clubID, 50)
			if err != nil {
				h.logger.Warn("failed to count upcoming events", zap.Error(err))
				continue
			}
			items[i].Badge = len(list)
		case "/chat":
			online, err := h.presence.List(ctx, clubID)
			if err != nil {
				h.logger.Warn("failed to count presence", zap.Error(err))
				continue
			}
			items[i].Badge = len(online)
		}
	}
}

// Overview handles GET /dashboard/overview.
func (h *Handler) Overview(c *gin.Context) {
	userID := c.MustGet(middleware.ContextUserID).(uuid.UUID)
	user, err := h.users.GetByID(c.Request.Context(), userID)
	if err != nil {
		if errors.Is(err, auth.ErrUserNotFound) {
			response.Unauthorized(c, "unknown user")
			return
		}
		h.logger.Error("failed to get user", zap.Error(err))
		response.Internal(c, "failed to build overview")
		return
	}
	if user.ClubID == nil {
		response.OK(c, Overview{UpcomingEvents: []*models.Event{}, MyTasks: []*models.Task{}})
		return
	}
	clubID := *user.ClubID
	ctx := c.Request.Context()

	var ov Overview
	ov.MemberCount, err = h.clubs.MemberCount(ctx, clubID)
	if err != nil {
		h.logger.Error("failed to count members", zap.Error(err))
		response.Internal(c, "failed to build overview")
		return
	}
	ov.UpcomingEvents, err = h.events.ListUpcoming(ctx, clubID, 5)
	if err != nil {
		h.logger.Error("failed to list upcoming events", zap.Error(err))
		response.Internal(c, "failed to build overview")
		return
	}
	counts, err := h.tasks.CountByStatus(ctx, clubID)
	if err != nil {
		h.logger.Error("failed to count tasks", zap.Error(err))
		response.Internal(c, "failed to build overview")
		return
	}
	ov.PendingTasks = counts[models.TaskPending] + counts[models.TaskInProgress]
	ov.CompletedTasks = counts[models.TaskCompleted]
	ov.OverdueTasks = counts[models.TaskOverdue]

	ov.MessagesThisWeek, err = h.chat.CountSince(ctx, clubID, time.Now().AddDate(0, 0, -7))
	if err != nil {
		h.logger.Error("failed to count messages", zap.Error(err))
		response.Internal(c, "failed to build overview")
		return
	}

	online, err := h.presence.List(ctx, clubID)
	if err != nil {
		h.logger.Warn("failed to list presence", zap.Error(err))
	} else {
		ov.OnlineNow = len(online)
	}
	ov.MyTasks, err = h.tasks.ListAssignedTo(ctx, userID)
	if err != nil {
		h.logger.Error("failed to list assigned tasks", zap.Error(err))
		response.Internal(c, "failed to build overview")
		return
	}
	if ov.UpcomingEvents == nil {
		ov.UpcomingEvents = []*models.Event{}
	}
	if ov.MyTasks == nil {
		ov.MyTasks = []*models.Task{}
	}
	response.OK(c, ov)
}
