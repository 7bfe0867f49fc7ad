package chat

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/clubhub/backend/internal/middleware"
	"github.com/clubhub/backend/internal/models"
	"github.com/clubhub/backend/internal/realtime"
	"github.com/clubhub/backend/pkg/queue"
	"github.com/clubhub/backend/pkg/response"
	"github.com/clubhub/backend/pkg/storage"
)

// TaskCreator creates a task from an approved conversion request.
type TaskCreator interface {
	CreateFromConversion(ctx context.Context, task *models.Task) error
}

// MembershipChecker reports whether a user belongs to a club.
type MembershipChecker interface {
	IsMember(ctx context.Context, clubID, userID uuid.UUID) (bool, error)
}

// SendMessageRequest is the body for POST /clubs/:id/messages.
type SendMessageRequest struct {
	Content string `json:"content" binding:"required"`
	Type    string `json:"type"`
	ReplyTo string `json:"reply_to"`
}

// EditMessageRequest is the body for PUT /messages/:id.
type EditMessageRequest struct {
	Content string `json:"content" binding:"required"`
}

// ReactionRequest is the body for reaction add/remove.
type ReactionRequest struct {
	Emoji string `json:"emoji" binding:"required"`
}

// PresignAttachmentRequest asks for an upload URL for a message attachment.
type PresignAttachmentRequest struct {
	Filename string `json:"filename" binding:"required"`
	Size     int64  `json:"size" binding:"required,min=1"`
}

// ConvertRequest proposes turning a message into a task.
type ConvertRequest struct {
	Title       string   `json:"title" binding:"required"`
	Description string   `json:"description"`
	DueDate     string   `json:"due_date" binding:"required"`
	AssigneeIDs []string `json:"assignee_ids"`
}

// ReviewRequest approves or rejects a pending conversion.
type ReviewRequest struct {
	Approve bool `json:"approve"`
}

// Handler handles chat HTTP endpoints.
type Handler struct {
	repo     *Repository
	hub      *realtime.Hub
	presence *realtime.Presence
	store    *storage.S3
	jobs     *queue.Queue
	tasks    TaskCreator
	members  MembershipChecker
	logger   *zap.Logger
}

// NewHandler creates a chat handler. store may be nil when media storage is
// not configured; attachment endpoints then return 503.
func NewHandler(repo *Repository, hub *realtime.Hub, presence *realtime.Presence, store *storage.S3, jobs *queue.Queue, tasks TaskCreator, members MembershipChecker, logger *zap.Logger) *Handler {
	return &Handler{repo: repo, hub: hub, presence: presence, store: store, jobs: jobs, tasks: tasks, members: members, logger: logger}
}

// List handles GET /clubs/:id/messages?before=<RFC3339>&limit=<n>.
func (h *Handler) List(c *gin.Context) {
	clubID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid club id")
		return
	}
	var before *time.Time
	if raw := c.Query("before"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			response.BadRequest(c, "invalid before cursor")
			return
		}
		before = &t
	}
	limit := 50
	if raw := c.Query("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil {
			limit = n
		}
	}
	msgs, err := h.repo.ListByClub(c.Request.Context(), clubID, before, limit)
	if err != nil {
		h.logger.Error("failed to list messages", zap.Error(err))
		response.Internal(c, "failed to list messages")
		return
	}
	response.OK(c, msgs)
}

// Send handles POST /clubs/:id/messages.
func (h *Handler) Send(c *gin.Context) {
	clubID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid club id")
		return
	}
	var req SendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	msgType := models.MessageTypeText
	switch models.MessageType(req.Type) {
	case "":
	case models.MessageTypeText, models.MessageTypeImage, models.MessageTypeDocument:
		msgType = models.MessageType(req.Type)
	default:
		response.BadRequest(c, "invalid message type")
		return
	}
	var replyTo *uuid.UUID
	if req.ReplyTo != "" {
		id, err := uuid.Parse(req.ReplyTo)
		if err != nil {
			response.BadRequest(c, "invalid reply_to id")
			return
		}
		replyTo = &id
	}

	senderID := c.MustGet(middleware.ContextUserID).(uuid.UUID)
	ok, err := h.members.IsMember(c.Request.Context(), clubID, senderID)
	if err != nil {
		h.logger.Error("failed to check membership", zap.Error(err))
		response.Internal(c, "failed to send message")
		return
	}
	if !ok {
		response.Forbidden(c, "not a member of this club")
		return
	}
	msg, err := h.repo.Create(c.Request.Context(), clubID, senderID, req.Content, msgType, replyTo)
	if err != nil {
		h.logger.Error("failed to create message", zap.Error(err))
		response.Internal(c, "failed to send message")
		return
	}
	h.hub.BroadcastToClubAndPublish(clubID, "chat_message", msg)
	response.Created(c, msg)
}

// Edit handles PUT /messages/:id. Only the sender may edit their message.
func (h *Handler) Edit(c *gin.Context) {
	msgID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid message id")
		return
	}
	var req EditMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	senderID := c.MustGet(middleware.ContextUserID).(uuid.UUID)
	msg, err := h.repo.UpdateContent(c.Request.Context(), msgID, senderID, req.Content)
	if errors.Is(err, ErrMessageNotFound) {
		response.NotFound(c, "message not found")
		return
	}
	if err != nil {
		h.logger.Error("failed to edit message", zap.Error(err))
		response.Internal(c, "failed to edit message")
		return
	}
	h.hub.BroadcastToClubAndPublish(msg.ClubID, "message_edited", msg)
	response.OK(c, msg)
}

// React handles POST /messages/:id/reactions.
func (h *Handler) React(c *gin.Context) {
	h.toggleReaction(c, true)
}

// Unreact handles DELETE /messages/:id/reactions.
func (h *Handler) Unreact(c *gin.Context) {
	h.toggleReaction(c, false)
}

func (h *Handler) toggleReaction(c *gin.Context, add bool) {
	msgID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid message id")
		return
	}
	var req ReactionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	userID := c.MustGet(middleware.ContextUserID).(uuid.UUID)

	msg, err := h.repo.GetByID(c.Request.Context(), msgID)
	if errors.Is(err, ErrMessageNotFound) {
		response.NotFound(c, "message not found")
		return
	}
	if err != nil {
		h.logger.Error("failed to get message", zap.Error(err))
		response.Internal(c, "failed to update reaction")
		return
	}

	if add {
		err = h.repo.AddReaction(c.Request.Context(), msgID, userID, req.Emoji)
	} else {
		err = h.repo.RemoveReaction(c.Request.Context(), msgID, userID, req.Emoji)
	}
	if err != nil {
		h.logger.Error("failed to update reaction", zap.Error(err))
		response.Internal(c, "failed to update reaction")
		return
	}
	h.hub.BroadcastToClubAndPublish(msg.ClubID, "message_reaction", gin.H{
		"message_id": msgID,
		"user_id":    userID,
		"emoji":      req.Emoji,
		"added":      add,
	})
	response.OK(c, gin.H{"message_id": msgID, "emoji": req.Emoji, "added": add})
}

// PresignAttachment handles POST /messages/:id/attachments/presign: returns
// a presigned upload URL the client PUTs the file to, then confirms with
// ConfirmAttachment.
func (h *Handler) PresignAttachment(c *gin.Context) {
	if h.store == nil {
		response.ServiceUnavailable(c, "media storage not configured")
		return
	}
	msgID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid message id")
		return
	}
	var req PresignAttachmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	if !storage.ValidateFileType(req.Filename) {
		response.BadRequest(c, "unsupported file type")
		return
	}
	if !storage.ValidateSize(req.Size) {
		response.BadRequest(c, "file exceeds maximum upload size")
		return
	}
	msg, err := h.repo.GetByID(c.Request.Context(), msgID)
	if errors.Is(err, ErrMessageNotFound) {
		response.NotFound(c, "message not found")
		return
	}
	if err != nil {
		h.logger.Error("failed to get message", zap.Error(err))
		response.Internal(c, "failed to presign upload")
		return
	}

	key := storage.AttachmentKey(msg.ClubID.String(), msgID.String(), req.Filename)
	contentType := storage.ContentTypeForFilename(req.Filename)
	uploadURL, err := h.store.GeneratePresignedUploadURL(c.Request.Context(), key, contentType)
	if err != nil {
		h.logger.Error("failed to presign upload", zap.Error(err))
		response.Internal(c, "failed to presign upload")
		return
	}
	response.OK(c, gin.H{
		"upload_url":   uploadURL,
		"key":          key,
		"content_type": contentType,
		"expires_in":   h.store.PresignExpire().Seconds(),
	})
}

// ConfirmAttachment handles POST /messages/:id/attachments: records the
// uploaded object against the message.
func (h *Handler) ConfirmAttachment(c *gin.Context) {
	if h.store == nil {
		response.ServiceUnavailable(c, "media storage not configured")
		return
	}
	msgID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid message id")
		return
	}
	var req struct {
		Key      string `json:"key" binding:"required"`
		Filename string `json:"filename" binding:"required"`
		Size     int64  `json:"size" binding:"required,min=1"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	if !storage.ValidateSize(req.Size) {
		response.BadRequest(c, "file exceeds maximum upload size")
		return
	}
	msg, err := h.repo.GetByID(c.Request.Context(), msgID)
	if errors.Is(err, ErrMessageNotFound) {
		response.NotFound(c, "message not found")
		return
	}
	if err != nil {
		h.logger.Error("failed to get message", zap.Error(err))
		response.Internal(c, "failed to record attachment")
		return
	}

	att := &models.ChatAttachment{
		MessageID: msgID,
		Kind:      attachmentKind(req.Filename),
		URL:       h.store.ObjectURL(req.Key),
		Name:      req.Filename,
		Size:      req.Size,
	}
	if err := h.repo.AddAttachment(c.Request.Context(), att); err != nil {
		h.logger.Error("failed to record attachment", zap.Error(err))
		response.Internal(c, "failed to record attachment")
		return
	}
	h.hub.BroadcastToClubAndPublish(msg.ClubID, "message_attachment", att)
	response.Created(c, att)
}

func attachmentKind(filename string) string {
	switch {
	case strings.HasSuffix(filename, ".jpg"), strings.HasSuffix(filename, ".jpeg"),
		strings.HasSuffix(filename, ".png"), strings.HasSuffix(filename, ".gif"),
		strings.HasSuffix(filename, ".webp"):
		return "image"
	case strings.HasSuffix(filename, ".mp4"):
		return "video"
	default:
		return "document"
	}
}

// Convert handles POST /messages/:id/convert. Route middleware restricts
// this to roles that may propose conversions.
func (h *Handler) Convert(c *gin.Context) {
	msgID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid message id")
		return
	}
	var req ConvertRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	dueDate, err := time.Parse(time.RFC3339, req.DueDate)
	if err != nil {
		response.BadRequest(c, "invalid due date")
		return
	}
	assignees := make([]uuid.UUID, 0, len(req.AssigneeIDs))
	for _, raw := range req.AssigneeIDs {
		id, err := uuid.Parse(raw)
		if err != nil {
			response.BadRequest(c, "invalid assignee id")
			return
		}
		assignees = append(assignees, id)
	}

	msg, err := h.repo.GetByID(c.Request.Context(), msgID)
	if errors.Is(err, ErrMessageNotFound) {
		response.NotFound(c, "message not found")
		return
	}
	if err != nil {
		h.logger.Error("failed to get message", zap.Error(err))
		response.Internal(c, "failed to create conversion request")
		return
	}
	if msg.Converted || msg.Conversion != nil && msg.Conversion.Status == models.ConversionPending {
		response.Conflict(c, "message already has a conversion request")
		return
	}

	cr := &models.TaskConversionRequest{
		MessageID:   msgID,
		RequestedBy: c.MustGet(middleware.ContextUserID).(uuid.UUID),
		Title:       req.Title,
		Description: req.Description,
		DueDate:     dueDate,
		AssigneeIDs: assignees,
	}
	if err := h.repo.CreateConversion(c.Request.Context(), cr); err != nil {
		h.logger.Error("failed to create conversion request", zap.Error(err))
		response.Internal(c, "failed to create conversion request")
		return
	}
	h.hub.BroadcastToClubAndPublish(msg.ClubID, "conversion_requested", cr)
	response.Created(c, cr)
}

// Review handles POST /conversions/:id/review. Route middleware restricts
// this to reviewer roles. Approval creates the task and flips the source
// message to task_converted.
func (h *Handler) Review(c *gin.Context) {
	crID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid conversion id")
		return
	}
	var req ReviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	cr, err := h.repo.GetConversion(c.Request.Context(), crID)
	if errors.Is(err, ErrConversionNotFound) {
		response.NotFound(c, "conversion request not found")
		return
	}
	if err != nil {
		h.logger.Error("failed to get conversion request", zap.Error(err))
		response.Internal(c, "failed to review conversion")
		return
	}
	if cr.Status != models.ConversionPending {
		response.Conflict(c, "conversion request already reviewed")
		return
	}
	msg, err := h.repo.GetByID(c.Request.Context(), cr.MessageID)
	if err != nil {
		h.logger.Error("failed to get message", zap.Error(err))
		response.Internal(c, "failed to review conversion")
		return
	}

	reviewerID := c.MustGet(middleware.ContextUserID).(uuid.UUID)
	status := models.ConversionRejected
	var createdTaskID *uuid.UUID

	if req.Approve {
		task := &models.Task{
			ClubID:      msg.ClubID,
			Title:       cr.Title,
			Description: cr.Description,
			AssignedTo:  cr.AssigneeIDs,
			AssignedBy:  reviewerID,
			Priority:    models.PriorityMedium,
			DueDate:     cr.DueDate,
		}
		if err := h.tasks.CreateFromConversion(c.Request.Context(), task); err != nil {
			h.logger.Error("failed to create task from conversion", zap.Error(err))
			response.Internal(c, "failed to review conversion")
			return
		}
		status = models.ConversionApproved
		createdTaskID = &task.ID
		if err := h.repo.MarkConverted(c.Request.Context(), cr.MessageID); err != nil {
			h.logger.Error("failed to mark message converted", zap.Error(err))
		}
	}

	if err := h.repo.ReviewConversion(c.Request.Context(), crID, reviewerID, status, createdTaskID); err != nil {
		if errors.Is(err, ErrConversionNotFound) {
			response.Conflict(c, "conversion request already reviewed")
			return
		}
		h.logger.Error("failed to review conversion", zap.Error(err))
		response.Internal(c, "failed to review conversion")
		return
	}

	if err := h.jobs.EnqueueNotification(c.Request.Context(), queue.NotificationPayload{
		Kind:         queue.NotifyConversionReviewed,
		ClubID:       msg.ClubID,
		SubjectID:    crID,
		RecipientIDs: []uuid.UUID{cr.RequestedBy},
		Title:        "Conversion request " + string(status),
		Body:         cr.Title,
	}); err != nil {
		h.logger.Error("failed to enqueue notification", zap.Error(err))
	}

	h.hub.BroadcastToClubAndPublish(msg.ClubID, "conversion_reviewed", gin.H{
		"conversion_id":   crID,
		"status":          status,
		"created_task_id": createdTaskID,
	})
	response.OK(c, gin.H{"conversion_id": crID, "status": status, "created_task_id": createdTaskID})
}

// Presence handles GET /clubs/:id/presence.
func (h *Handler) Presence(c *gin.Context) {
	clubID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid club id")
		return
	}
	list, err := h.presence.List(c.Request.Context(), clubID)
	if err != nil {
		h.logger.Error("failed to list presence", zap.Error(err))
		response.Internal(c, "failed to list presence")
		return
	}
	response.OK(c, list)
}
