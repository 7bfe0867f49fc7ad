package models

import (
	"time"

	"github.com/google/uuid"
)

// TaskStatus is the lifecycle state of a task.
type TaskStatus string

const (
	TaskPending    TaskStatus = "pending"
	TaskInProgress TaskStatus = "in_progress"
	TaskCompleted  TaskStatus = "completed"
	TaskOverdue    TaskStatus = "overdue"
)

// taskTransitions lists the permitted status changes. Overdue is set by the
// sweep when the due date passes; an overdue task can still be completed.
var taskTransitions = map[TaskStatus][]TaskStatus{
	TaskPending:    {TaskInProgress, TaskCompleted, TaskOverdue},
	TaskInProgress: {TaskCompleted, TaskOverdue},
	TaskOverdue:    {TaskInProgress, TaskCompleted},
}

// CanTransition reports whether a task may move from to next.
func (s TaskStatus) CanTransition(next TaskStatus) bool {
	for _, t := range taskTransitions[s] {
		if t == next {
			return true
		}
	}
	return false
}

// TaskPriority is the urgency of a task.
type TaskPriority string

const (
	PriorityLow    TaskPriority = "low"
	PriorityMedium TaskPriority = "medium"
	PriorityHigh   TaskPriority = "high"
	PriorityUrgent TaskPriority = "urgent"
)

// ParseTaskPriority validates a priority string.
func ParseTaskPriority(s string) (TaskPriority, bool) {
	switch TaskPriority(s) {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityUrgent:
		return TaskPriority(s), true
	}
	return "", false
}

// Task represents a trackable unit of club work.
type Task struct {
	ID          uuid.UUID    `json:"id"`
	ClubID      uuid.UUID    `json:"club_id"`
	EventID     *uuid.UUID   `json:"event_id,omitempty"`
	Title       string       `json:"title"`
	Description string       `json:"description"`
	AssignedTo  []uuid.UUID  `json:"assigned_to"`
	AssignedBy  uuid.UUID    `json:"assigned_by"`
	Priority    TaskPriority `json:"priority"`
	Status      TaskStatus   `json:"status"`
	DueDate     time.Time    `json:"due_date"`
	CreatedAt   time.Time    `json:"created_at"`
	UpdatedAt   time.Time    `json:"updated_at"`
}

// TaskProof is evidence of task completion (text or an uploaded file).
type TaskProof struct {
	ID         uuid.UUID `json:"id"`
	TaskID     uuid.UUID `json:"task_id"`
	Kind       string    `json:"kind"` // image, document, text
	URL        string    `json:"url,omitempty"`
	Content    string    `json:"content,omitempty"`
	UploadedBy uuid.UUID `json:"uploaded_by"`
	UploadedAt time.Time `json:"uploaded_at"`
}
