package events

import (
	"context"
	"errors"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/clubhub/backend/internal/middleware"
	"github.com/clubhub/backend/internal/models"
	"github.com/clubhub/backend/internal/realtime"
	"github.com/clubhub/backend/pkg/queue"
	"github.com/clubhub/backend/pkg/response"
)

// MemberLister resolves the members of a club, used for publish fan-out.
type MemberLister interface {
	ListByClub(ctx context.Context, clubID uuid.UUID) ([]models.UserPublic, error)
}

// CreateEventRequest is the body for POST /clubs/:id/events.
type CreateEventRequest struct {
	Title        string `json:"title" binding:"required,min=2,max=200"`
	Description  string `json:"description"`
	StartsAt     string `json:"starts_at" binding:"required"`
	EndsAt       string `json:"ends_at" binding:"required"`
	Location     string `json:"location"`
	IsOnline     bool   `json:"is_online"`
	MaxAttendees *int   `json:"max_attendees"`
}

// StatusRequest is the body for POST /events/:id/status.
type StatusRequest struct {
	Status string `json:"status" binding:"required"`
}

// RSVPRequest is the body for POST /events/:id/rsvp.
type RSVPRequest struct {
	Status string `json:"status" binding:"required"`
}

// Handler handles event HTTP endpoints.
type Handler struct {
	repo    *Repository
	members MemberLister
	hub     *realtime.Hub
	jobs    *queue.Queue
	logger  *zap.Logger
}

// NewHandler creates an events handler.
func NewHandler(repo *Repository, members MemberLister, hub *realtime.Hub, jobs *queue.Queue, logger *zap.Logger) *Handler {
	return &Handler{repo: repo, members: members, hub: hub, jobs: jobs, logger: logger}
}

func parseEventTimes(startsAt, endsAt string) (time.Time, time.Time, error) {
	start, err := time.Parse(time.RFC3339, startsAt)
	if err != nil {
		return time.Time{}, time.Time{}, errors.New("invalid starts_at")
	}
	end, err := time.Parse(time.RFC3339, endsAt)
	if err != nil {
		return time.Time{}, time.Time{}, errors.New("invalid ends_at")
	}
	if !end.After(start) {
		return time.Time{}, time.Time{}, errors.New("ends_at must be after starts_at")
	}
	return start, end, nil
}

// Create handles POST /clubs/:id/events. Events start in draft.
func (h *Handler) Create(c *gin.Context) {
	clubID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid club id")
		return
	}
	var req CreateEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	start, end, err := parseEventTimes(req.StartsAt, req.EndsAt)
	if err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	if req.MaxAttendees != nil && *req.MaxAttendees < 1 {
		response.BadRequest(c, "max_attendees must be positive")
		return
	}

	event := &models.Event{
		ClubID:       clubID,
		Title:        req.Title,
		Description:  req.Description,
		OrganizerID:  c.MustGet(middleware.ContextUserID).(uuid.UUID),
		StartsAt:     start,
		EndsAt:       end,
		Location:     req.Location,
		IsOnline:     req.IsOnline,
		MaxAttendees: req.MaxAttendees,
	}
	if err := h.repo.Create(c.Request.Context(), event); err != nil {
		h.logger.Error("failed to create event", zap.Error(err))
		response.Internal(c, "failed to create event")
		return
	}
	response.Created(c, event)
}

// List handles GET /clubs/:id/events.
func (h *Handler) List(c *gin.Context) {
	clubID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid club id")
		return
	}
	list, err := h.repo.ListByClub(c.Request.Context(), clubID)
	if err != nil {
		h.logger.Error("failed to list events", zap.Error(err))
		response.Internal(c, "failed to list events")
		return
	}
	response.OK(c, list)
}

// Get handles GET /events/:id.
func (h *Handler) Get(c *gin.Context) {
	event, ok := h.fetch(c)
	if !ok {
		return
	}
	response.OK(c, event)
}

func (h *Handler) fetch(c *gin.Context) (*models.Event, bool) {
	eventID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid event id")
		return nil, false
	}
	event, err := h.repo.GetByID(c.Request.Context(), eventID)
	if errors.Is(err, ErrEventNotFound) {
		response.NotFound(c, "event not found")
		return nil, false
	}
	if err != nil {
		h.logger.Error("failed to get event", zap.Error(err))
		response.Internal(c, "failed to get event")
		return nil, false
	}
	return event, true
}

// Update handles PUT /events/:id. Completed and cancelled events are frozen.
func (h *Handler) Update(c *gin.Context) {
	event, ok := h.fetch(c)
	if !ok {
		return
	}
	if event.Status == models.EventCompleted || event.Status == models.EventCancelled {
		response.Conflict(c, "event can no longer be edited")
		return
	}
	var req CreateEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	start, end, err := parseEventTimes(req.StartsAt, req.EndsAt)
	if err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	event.Title = req.Title
	event.Description = req.Description
	event.StartsAt = start
	event.EndsAt = end
	event.Location = req.Location
	event.IsOnline = req.IsOnline
	event.MaxAttendees = req.MaxAttendees
	if err := h.repo.Update(c.Request.Context(), event); err != nil {
		h.logger.Error("failed to update event", zap.Error(err))
		response.Internal(c, "failed to update event")
		return
	}
	h.hub.BroadcastToClubAndPublish(event.ClubID, "event_updated", event)
	h.notifyGoing(c.Request.Context(), event, queue.NotifyEventUpdated,
		"Event updated: "+event.Title, "Details for an event you are attending have changed.")
	response.OK(c, event)
}

// SetStatus handles POST /events/:id/status, enforcing the lifecycle state
// machine. Publishing fans out a notification to all club members.
func (h *Handler) SetStatus(c *gin.Context) {
	event, ok := h.fetch(c)
	if !ok {
		return
	}
	var req StatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	next := models.EventStatus(req.Status)
	if !event.Status.CanTransition(next) {
		response.Conflict(c, "cannot move event from "+string(event.Status)+" to "+req.Status)
		return
	}
	if err := h.repo.SetStatus(c.Request.Context(), event.ID, event.Status, next); err != nil {
		if errors.Is(err, ErrEventNotFound) {
			response.Conflict(c, "event status changed concurrently")
			return
		}
		h.logger.Error("failed to set event status", zap.Error(err))
		response.Internal(c, "failed to set event status")
		return
	}
	event.Status = next

	switch next {
	case models.EventPublished:
		h.notifyPublished(c.Request.Context(), event)
	case models.EventCancelled:
		h.notifyGoing(c.Request.Context(), event, queue.NotifyEventCancelled,
			"Event cancelled: "+event.Title, "An event you RSVPed to has been cancelled.")
	}
	h.hub.BroadcastToClubAndPublish(event.ClubID, "event_status", gin.H{
		"event_id": event.ID,
		"status":   next,
	})
	response.OK(c, event)
}

func (h *Handler) notifyPublished(ctx context.Context, event *models.Event) {
	members, err := h.members.ListByClub(ctx, event.ClubID)
	if err != nil {
		h.logger.Error("failed to list members for event fan-out", zap.Error(err))
		return
	}
	ids := make([]uuid.UUID, len(members))
	for i, m := range members {
		ids[i] = m.ID
	}
	if err := h.jobs.EnqueueNotification(ctx, queue.NotificationPayload{
		Kind:         queue.NotifyEventPublished,
		ClubID:       event.ClubID,
		SubjectID:    event.ID,
		RecipientIDs: ids,
		Title:        "New event: " + event.Title,
		Body:         event.Description,
	}); err != nil {
		h.logger.Error("failed to enqueue event notification", zap.Error(err))
	}
}

// notifyGoing fans a notification out to attendees with a going RSVP, used
// when an event they committed to changes or is cancelled.
func (h *Handler) notifyGoing(ctx context.Context, event *models.Event, kind queue.NotificationKind, title, body string) {
	ids, err := h.repo.GoingIDs(ctx, event.ID)
	if err != nil {
		h.logger.Error("failed to list going attendees for fan-out", zap.Error(err))
		return
	}
	if len(ids) == 0 {
		return
	}
	if err := h.jobs.EnqueueNotification(ctx, queue.NotificationPayload{
		Kind:         kind,
		ClubID:       event.ClubID,
		SubjectID:    event.ID,
		RecipientIDs: ids,
		Title:        title,
		Body:         body,
	}); err != nil {
		h.logger.Error("failed to enqueue event notification", zap.Error(err))
	}
}

// RSVP handles POST /events/:id/rsvp.
func (h *Handler) RSVP(c *gin.Context) {
	event, ok := h.fetch(c)
	if !ok {
		return
	}
	if event.Status != models.EventPublished && event.Status != models.EventOngoing {
		response.Conflict(c, "event is not open for RSVPs")
		return
	}
	var req RSVPRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	status := models.RSVPStatus(req.Status)
	switch status {
	case models.RSVPGoing, models.RSVPMaybe, models.RSVPNotGoing:
	default:
		response.BadRequest(c, "invalid rsvp status")
		return
	}

	userID := c.MustGet(middleware.ContextUserID).(uuid.UUID)
	err := h.repo.RSVP(c.Request.Context(), event.ID, userID, status)
	if errors.Is(err, ErrEventFull) {
		response.Conflict(c, "event is full")
		return
	}
	if err != nil {
		h.logger.Error("failed to rsvp", zap.Error(err))
		response.Internal(c, "failed to rsvp")
		return
	}
	response.OK(c, gin.H{"event_id": event.ID, "status": status})
}

// CheckIn handles POST /events/:id/checkin. Only meaningful while the event
// is ongoing.
func (h *Handler) CheckIn(c *gin.Context) {
	event, ok := h.fetch(c)
	if !ok {
		return
	}
	if event.Status != models.EventOngoing {
		response.Conflict(c, "event is not ongoing")
		return
	}
	userID := c.MustGet(middleware.ContextUserID).(uuid.UUID)
	err := h.repo.CheckIn(c.Request.Context(), event.ID, userID, time.Now())
	if errors.Is(err, ErrEventNotFound) {
		response.Conflict(c, "rsvp before checking in")
		return
	}
	if err != nil {
		h.logger.Error("failed to check in", zap.Error(err))
		response.Internal(c, "failed to check in")
		return
	}
	response.OK(c, gin.H{"event_id": event.ID, "checked_in": true})
}

// Attendees handles GET /events/:id/attendees.
func (h *Handler) Attendees(c *gin.Context) {
	event, ok := h.fetch(c)
	if !ok {
		return
	}
	list, err := h.repo.Attendees(c.Request.Context(), event.ID)
	if err != nil {
		h.logger.Error("failed to list attendees", zap.Error(err))
		response.Internal(c, "failed to list attendees")
		return
	}
	response.OK(c, list)
}
