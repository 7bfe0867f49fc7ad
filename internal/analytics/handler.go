// Package analytics serves club engagement summaries. Access is limited to
// admin roles by route middleware.
package analytics

import (
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/clubhub/backend/internal/clubs"
	"github.com/clubhub/backend/pkg/response"
)

// Handler handles GET /clubs/:id/analytics.
type Handler struct {
	pool     *pgxpool.Pool
	clubRepo *clubs.Repository
	logger   *zap.Logger
}

// NewHandler creates an analytics handler.
func NewHandler(pool *pgxpool.Pool, clubRepo *clubs.Repository, logger *zap.Logger) *Handler {
	return &Handler{pool: pool, clubRepo: clubRepo, logger: logger}
}

// SummaryResponse is the JSON shape for club analytics.
type SummaryResponse struct {
	MemberCount        int      `json:"member_count"`
	ActiveMembers      int      `json:"active_members"`
	TotalEvents        int      `json:"total_events"`
	CompletedEvents    int      `json:"completed_events"`
	AvgEventAttendance float64  `json:"avg_event_attendance"`
	CheckInRate        *float64 `json:"check_in_rate,omitempty"`
	TotalTasks         int      `json:"total_tasks"`
	CompletedTasks     int      `json:"completed_tasks"`
	OverdueTasks       int      `json:"overdue_tasks"`
	TaskCompletionRate *float64 `json:"task_completion_rate,omitempty"`
	TotalMessages      int      `json:"total_messages"`
	MessagesThisWeek   int      `json:"messages_this_week"`
}

// GetByClub handles GET /clubs/:id/analytics.
func (h *Handler) GetByClub(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid club id")
		return
	}
	ctx := c.Request.Context()

	if _, err := h.clubRepo.GetByID(ctx, id); err != nil {
		if errors.Is(err, clubs.ErrClubNotFound) {
			response.NotFound(c, "club not found")
			return
		}
		h.logger.Error("failed to get club", zap.Error(err))
		response.Internal(c, "failed to load analytics")
		return
	}

	var out SummaryResponse

	const memberQ = `SELECT COUNT(*),
		COUNT(*) FILTER (WHERE u.last_active_at > now() - interval '7 days')
		FROM club_members cm JOIN users u ON u.id = cm.user_id WHERE cm.club_id = $1`
	if err := h.pool.QueryRow(ctx, memberQ, id).Scan(&out.MemberCount, &out.ActiveMembers); err != nil {
		h.logger.Error("failed to load member counts", zap.Error(err))
		response.Internal(c, "failed to load analytics")
		return
	}

	const eventQ = `SELECT COUNT(*), COUNT(*) FILTER (WHERE status = 'completed')
		FROM events WHERE club_id = $1`
	if err := h.pool.QueryRow(ctx, eventQ, id).Scan(&out.TotalEvents, &out.CompletedEvents); err != nil {
		h.logger.Error("failed to load event counts", zap.Error(err))
		response.Internal(c, "failed to load analytics")
		return
	}

	// Attendance over events that actually ran
	var goingTotal, checkedIn, ranEvents int
	const attendQ = `SELECT COUNT(*) FILTER (WHERE a.status = 'going'),
		COUNT(*) FILTER (WHERE a.checked_in),
		COUNT(DISTINCT e.id)
		FROM events e LEFT JOIN event_attendees a ON a.event_id = e.id
		WHERE e.club_id = $1 AND e.status IN ('ongoing', 'completed')`
	if err := h.pool.QueryRow(ctx, attendQ, id).Scan(&goingTotal, &checkedIn, &ranEvents); err != nil {
		h.logger.Error("failed to load attendance counts", zap.Error(err))
		response.Internal(c, "failed to load analytics")
		return
	}
	if ranEvents > 0 {
		out.AvgEventAttendance = float64(goingTotal) / float64(ranEvents)
	}
	if goingTotal > 0 {
		rate := float64(checkedIn) / float64(goingTotal)
		out.CheckInRate = &rate
	}

	const taskQ = `SELECT COUNT(*),
		COUNT(*) FILTER (WHERE status = 'completed'),
		COUNT(*) FILTER (WHERE status = 'overdue')
		FROM tasks WHERE club_id = $1`
	if err := h.pool.QueryRow(ctx, taskQ, id).Scan(&out.TotalTasks, &out.CompletedTasks, &out.OverdueTasks); err != nil {
		h.logger.Error("failed to load task counts", zap.Error(err))
		response.Internal(c, "failed to load analytics")
		return
	}
	if out.TotalTasks > 0 {
		rate := float64(out.CompletedTasks) / float64(out.TotalTasks)
		out.TaskCompletionRate = &rate
	}

	const msgQ = `SELECT COUNT(*),
		COUNT(*) FILTER (WHERE created_at > now() - interval '7 days')
		FROM chat_messages WHERE club_id = $1`
	if err := h.pool.QueryRow(ctx, msgQ, id).Scan(&out.TotalMessages, &out.MessagesThisWeek); err != nil {
		h.logger.Error("failed to load message counts", zap.Error(err))
		response.Internal(c, "failed to load analytics")
		return
	}

	response.OK(c, out)
}
