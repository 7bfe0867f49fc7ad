// Package worker runs the background jobs: notification delivery and the
// overdue-task sweep.
package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/clubhub/backend/internal/tasks"
	"github.com/clubhub/backend/pkg/queue"
)

// RetryBackoff is the pause after a failed or errored job.
const RetryBackoff = 2 * time.Second

// ClubPublisher pushes an event to a club's realtime channel.
type ClubPublisher interface {
	PublishClubEvent(clubID uuid.UUID, event string, payload []byte) error
}

// NotificationProcessor delivers queued notifications over the realtime
// channel so every server instance fans them out to connected clients.
type NotificationProcessor struct {
	queue  *queue.Queue
	pub    ClubPublisher
	logger *zap.Logger
}

// NewNotificationProcessor creates a notification delivery processor.
func NewNotificationProcessor(q *queue.Queue, pub ClubPublisher, logger *zap.Logger) *NotificationProcessor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NotificationProcessor{queue: q, pub: pub, logger: logger}
}

// Process executes one notification job.
func (p *NotificationProcessor) Process(ctx context.Context, job *queue.Job) error {
	if job.Type != queue.JobTypeNotification {
		return fmt.Errorf("unknown job type: %s", job.Type)
	}
	var payload queue.NotificationPayload
	if err := json.Unmarshal(job.Payload, &payload); err != nil {
		return fmt.Errorf("unmarshal payload: %w", err)
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal notification: %w", err)
	}
	if err := p.pub.PublishClubEvent(payload.ClubID, "notification", body); err != nil {
		return fmt.Errorf("publish: %w", err)
	}

	p.logger.Info("notification delivered",
		zap.String("kind", string(payload.Kind)),
		zap.String("club_id", payload.ClubID.String()),
		zap.Int("recipients", len(payload.RecipientIDs)))
	return nil
}

// Run starts the worker loop: dequeue, process, retry on error.
func (p *NotificationProcessor) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			p.logger.Info("notification worker stopping")
			return
		default:
		}

		job, err := p.queue.Dequeue(ctx)
		if err != nil {
			if ctx.Err() != nil {
				p.logger.Info("notification worker stopping")
				return
			}
			p.logger.Warn("dequeue error", zap.Error(err))
			time.Sleep(RetryBackoff)
			continue
		}
		if job == nil {
			continue
		}

		p.logger.Debug("processing job", zap.String("job_id", job.ID), zap.String("type", string(job.Type)))
		if err := p.Process(ctx, job); err != nil {
			p.logger.Error("job failed", zap.String("job_id", job.ID), zap.Error(err))
			if reErr := p.queue.Retry(ctx, job); reErr != nil {
				p.logger.Error("retry enqueue failed", zap.Error(reErr))
			}
			time.Sleep(RetryBackoff)
		}
	}
}

// OverdueSweeper periodically flips tasks past their due date to overdue and
// enqueues a notification for the assignees of each.
type OverdueSweeper struct {
	repo     *tasks.Repository
	queue    *queue.Queue
	interval time.Duration
	logger   *zap.Logger
}

// NewOverdueSweeper creates the overdue-task sweeper.
func NewOverdueSweeper(repo *tasks.Repository, q *queue.Queue, interval time.Duration, logger *zap.Logger) *OverdueSweeper {
	if interval <= 0 {
		interval = time.Minute
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &OverdueSweeper{repo: repo, queue: q, interval: interval, logger: logger}
}

// Run sweeps on a fixed interval until ctx is done. One sweep runs
// immediately on start so a restarted worker catches up.
func (s *OverdueSweeper) Run(ctx context.Context) {
	s.sweep(ctx)
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			s.logger.Info("overdue sweeper stopping")
			return
		case <-ticker.C:
			s.sweep(ctx)
		}
	}
}

func (s *OverdueSweeper) sweep(ctx context.Context) {
	flipped, err := s.repo.MarkOverdue(ctx)
	if err != nil {
		s.logger.Error("overdue sweep failed", zap.Error(err))
		return
	}
	if len(flipped) == 0 {
		return
	}
	s.logger.Info("tasks marked overdue", zap.Int("count", len(flipped)))

	for _, task := range flipped {
		if len(task.AssignedTo) == 0 {
			continue
		}
		if err := s.queue.EnqueueNotification(ctx, queue.NotificationPayload{
			Kind:         queue.NotifyTaskOverdue,
			ClubID:       task.ClubID,
			SubjectID:    task.ID,
			RecipientIDs: task.AssignedTo,
			Title:        "Task overdue: " + task.Title,
			Body:         "Due " + task.DueDate.Format(time.RFC1123),
		}); err != nil {
			s.logger.Error("enqueue overdue notification failed", zap.Error(err),
				zap.String("task_id", task.ID.String()))
		}
	}
}
