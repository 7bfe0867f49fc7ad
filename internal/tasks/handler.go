package tasks

import (
	"context"
	"errors"
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

// CreateTaskRequest is the body for POST /clubs/:id/tasks.
type CreateTaskRequest struct {
	Title       string   `json:"title" binding:"required,min=2,max=200"`
	Description string   `json:"description"`
	AssigneeIDs []string `json:"assignee_ids"`
	Priority    string   `json:"priority"`
	DueDate     string   `json:"due_date" binding:"required"`
	EventID     string   `json:"event_id"`
}

// StatusRequest is the body for POST /tasks/:id/status.
type StatusRequest struct {
	Status string `json:"status" binding:"required"`
}

// TextProofRequest is the body for a text proof.
type TextProofRequest struct {
	Content string `json:"content" binding:"required"`
}

// Handler handles task HTTP endpoints.
type Handler struct {
	repo   *Repository
	hub    *realtime.Hub
	jobs   *queue.Queue
	store  *storage.S3
	logger *zap.Logger
}

// NewHandler creates a tasks handler.
func NewHandler(repo *Repository, hub *realtime.Hub, jobs *queue.Queue, store *storage.S3, logger *zap.Logger) *Handler {
	return &Handler{repo: repo, hub: hub, jobs: jobs, store: store, logger: logger}
}

// CreateFromConversion creates a task on behalf of an approved chat
// conversion and notifies the assignees.
func (h *Handler) CreateFromConversion(ctx context.Context, task *models.Task) error {
	if err := h.repo.Create(ctx, task); err != nil {
		return err
	}
	h.notifyAssigned(ctx, task)
	h.hub.BroadcastToClubAndPublish(task.ClubID, "task_created", task)
	return nil
}

func (h *Handler) notifyAssigned(ctx context.Context, task *models.Task) {
	if len(task.AssignedTo) == 0 {
		return
	}
	if err := h.jobs.EnqueueNotification(ctx, queue.NotificationPayload{
		Kind:         queue.NotifyTaskAssigned,
		ClubID:       task.ClubID,
		SubjectID:    task.ID,
		RecipientIDs: task.AssignedTo,
		Title:        "New task: " + task.Title,
		Body:         task.Description,
	}); err != nil {
		h.logger.Error("failed to enqueue task notification", zap.Error(err))
	}
}

// Create handles POST /clubs/:id/tasks.
func (h *Handler) Create(c *gin.Context) {
	clubID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid club id")
		return
	}
	var req CreateTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	dueDate, err := time.Parse(time.RFC3339, req.DueDate)
	if err != nil {
		response.BadRequest(c, "invalid due date")
		return
	}
	priority := models.PriorityMedium
	if req.Priority != "" {
		p, ok := models.ParseTaskPriority(req.Priority)
		if !ok {
			response.BadRequest(c, "invalid priority")
			return
		}
		priority = p
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
	var eventID *uuid.UUID
	if req.EventID != "" {
		id, err := uuid.Parse(req.EventID)
		if err != nil {
			response.BadRequest(c, "invalid event id")
			return
		}
		eventID = &id
	}

	task := &models.Task{
		ClubID:      clubID,
		EventID:     eventID,
		Title:       req.Title,
		Description: req.Description,
		AssignedTo:  assignees,
		AssignedBy:  c.MustGet(middleware.ContextUserID).(uuid.UUID),
		Priority:    priority,
		DueDate:     dueDate,
	}
	if err := h.repo.Create(c.Request.Context(), task); err != nil {
		h.logger.Error("failed to create task", zap.Error(err))
		response.Internal(c, "failed to create task")
		return
	}
	h.notifyAssigned(c.Request.Context(), task)
	h.hub.BroadcastToClubAndPublish(clubID, "task_created", task)
	response.Created(c, task)
}

// List handles GET /clubs/:id/tasks.
func (h *Handler) List(c *gin.Context) {
	clubID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid club id")
		return
	}
	list, err := h.repo.ListByClub(c.Request.Context(), clubID)
	if err != nil {
		h.logger.Error("failed to list tasks", zap.Error(err))
		response.Internal(c, "failed to list tasks")
		return
	}
	response.OK(c, list)
}

// Mine handles GET /me/tasks.
func (h *Handler) Mine(c *gin.Context) {
	userID := c.MustGet(middleware.ContextUserID).(uuid.UUID)
	list, err := h.repo.ListAssignedTo(c.Request.Context(), userID)
	if err != nil {
		h.logger.Error("failed to list assigned tasks", zap.Error(err))
		response.Internal(c, "failed to list tasks")
		return
	}
	response.OK(c, list)
}

func (h *Handler) fetch(c *gin.Context) (*models.Task, bool) {
	taskID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid task id")
		return nil, false
	}
	task, err := h.repo.GetByID(c.Request.Context(), taskID)
	if errors.Is(err, ErrTaskNotFound) {
		response.NotFound(c, "task not found")
		return nil, false
	}
	if err != nil {
		h.logger.Error("failed to get task", zap.Error(err))
		response.Internal(c, "failed to get task")
		return nil, false
	}
	return task, true
}

// Get handles GET /tasks/:id, with proofs included.
func (h *Handler) Get(c *gin.Context) {
	task, ok := h.fetch(c)
	if !ok {
		return
	}
	proofs, err := h.repo.ListProofs(c.Request.Context(), task.ID)
	if err != nil {
		h.logger.Error("failed to list proofs", zap.Error(err))
		response.Internal(c, "failed to get task")
		return
	}
	response.OK(c, gin.H{"task": task, "proofs": proofs})
}

// Update handles PUT /tasks/:id. Completed tasks are frozen.
func (h *Handler) Update(c *gin.Context) {
	task, ok := h.fetch(c)
	if !ok {
		return
	}
	if task.Status == models.TaskCompleted {
		response.Conflict(c, "completed tasks cannot be edited")
		return
	}
	var req CreateTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	dueDate, err := time.Parse(time.RFC3339, req.DueDate)
	if err != nil {
		response.BadRequest(c, "invalid due date")
		return
	}
	priority := task.Priority
	if req.Priority != "" {
		p, ok := models.ParseTaskPriority(req.Priority)
		if !ok {
			response.BadRequest(c, "invalid priority")
			return
		}
		priority = p
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

	newAssignees := diffAssignees(task.AssignedTo, assignees)
	task.Title = req.Title
	task.Description = req.Description
	task.AssignedTo = assignees
	task.Priority = priority
	task.DueDate = dueDate
	if err := h.repo.Update(c.Request.Context(), task); err != nil {
		h.logger.Error("failed to update task", zap.Error(err))
		response.Internal(c, "failed to update task")
		return
	}
	if len(newAssignees) > 0 {
		notify := *task
		notify.AssignedTo = newAssignees
		h.notifyAssigned(c.Request.Context(), &notify)
	}
	h.hub.BroadcastToClubAndPublish(task.ClubID, "task_updated", task)
	response.OK(c, task)
}

// diffAssignees returns the IDs in next that are not in prev.
func diffAssignees(prev, next []uuid.UUID) []uuid.UUID {
	seen := make(map[uuid.UUID]bool, len(prev))
	for _, id := range prev {
		seen[id] = true
	}
	var added []uuid.UUID
	for _, id := range next {
		if !seen[id] {
			added = append(added, id)
		}
	}
	return added
}

// SetStatus handles POST /tasks/:id/status, enforcing the task state machine.
func (h *Handler) SetStatus(c *gin.Context) {
	task, ok := h.fetch(c)
	if !ok {
		return
	}
	var req StatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	next := models.TaskStatus(req.Status)
	if !task.Status.CanTransition(next) {
		response.Conflict(c, "cannot move task from "+string(task.Status)+" to "+req.Status)
		return
	}
	if err := h.repo.SetStatus(c.Request.Context(), task.ID, task.Status, next); err != nil {
		if errors.Is(err, ErrTaskNotFound) {
			response.Conflict(c, "task status changed concurrently")
			return
		}
		h.logger.Error("failed to set task status", zap.Error(err))
		response.Internal(c, "failed to set task status")
		return
	}
	task.Status = next
	h.hub.BroadcastToClubAndPublish(task.ClubID, "task_status", gin.H{
		"task_id": task.ID,
		"status":  next,
	})
	response.OK(c, task)
}

// AddTextProof handles POST /tasks/:id/proofs/text.
func (h *Handler) AddTextProof(c *gin.Context) {
	task, ok := h.fetch(c)
	if !ok {
		return
	}
	var req TextProofRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	proof := &models.TaskProof{
		TaskID:     task.ID,
		Kind:       "text",
		Content:    req.Content,
		UploadedBy: c.MustGet(middleware.ContextUserID).(uuid.UUID),
	}
	if err := h.repo.AddProof(c.Request.Context(), proof); err != nil {
		h.logger.Error("failed to add proof", zap.Error(err))
		response.Internal(c, "failed to add proof")
		return
	}
	response.Created(c, proof)
}

// PresignProof handles POST /tasks/:id/proofs/presign: returns an upload URL
// for a file proof.
func (h *Handler) PresignProof(c *gin.Context) {
	if h.store == nil {
		response.ServiceUnavailable(c, "media storage not configured")
		return
	}
	task, ok := h.fetch(c)
	if !ok {
		return
	}
	var req struct {
		Filename string `json:"filename" binding:"required"`
		Size     int64  `json:"size" binding:"required,min=1"`
	}
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
	key := storage.ProofKey(task.ID.String(), req.Filename)
	contentType := storage.ContentTypeForFilename(req.Filename)
	uploadURL, err := h.store.GeneratePresignedUploadURL(c.Request.Context(), key, contentType)
	if err != nil {
		h.logger.Error("failed to presign proof upload", zap.Error(err))
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

// ConfirmProof handles POST /tasks/:id/proofs: records an uploaded file
// proof against the task.
func (h *Handler) ConfirmProof(c *gin.Context) {
	if h.store == nil {
		response.ServiceUnavailable(c, "media storage not configured")
		return
	}
	task, ok := h.fetch(c)
	if !ok {
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
	kind := "document"
	if strings.HasPrefix(storage.ContentTypeForFilename(req.Filename), "image/") {
		kind = "image"
	}
	proof := &models.TaskProof{
		TaskID:     task.ID,
		Kind:       kind,
		URL:        h.store.ObjectURL(req.Key),
		UploadedBy: c.MustGet(middleware.ContextUserID).(uuid.UUID),
	}
	if err := h.repo.AddProof(c.Request.Context(), proof); err != nil {
		h.logger.Error("failed to add proof", zap.Error(err))
		response.Internal(c, "failed to add proof")
		return
	}
	response.Created(c, proof)
}
