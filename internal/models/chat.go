package models

import (
	"time"

	"github.com/google/uuid"
)

// MessageType identifies the content kind of a chat message.
type MessageType string

const (
	MessageTypeText          MessageType = "text"
	MessageTypeImage         MessageType = "image"
	MessageTypeDocument      MessageType = "document"
	MessageTypeTaskConverted MessageType = "task_converted"
)

// SenderSummary is the denormalized sender info carried on each message.
type SenderSummary struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Role      Role      `json:"role"`
	AvatarURL string    `json:"avatar_url,omitempty"`
}

// ChatAttachment is a file attached to a message, stored in S3.
type ChatAttachment struct {
	ID         uuid.UUID `json:"id"`
	MessageID  uuid.UUID `json:"message_id"`
	Kind       string    `json:"kind"` // image, document, video
	URL        string    `json:"url"`
	Name       string    `json:"name"`
	Size       int64     `json:"size"`
	UploadedAt time.Time `json:"uploaded_at"`
}

// MessageReaction aggregates one emoji's reactions on a message.
type MessageReaction struct {
	Emoji   string      `json:"emoji"`
	UserIDs []uuid.UUID `json:"user_ids"`
	Count   int         `json:"count"`
}

// ChatMessage is a message in a club's chat channel.
type ChatMessage struct {
	ID          uuid.UUID              `json:"id"`
	ClubID      uuid.UUID              `json:"club_id"`
	Content     string                 `json:"content"`
	Sender      SenderSummary          `json:"sender"`
	Type        MessageType            `json:"type"`
	ReplyTo     *uuid.UUID             `json:"reply_to,omitempty"`
	IsEdited    bool                   `json:"is_edited"`
	EditedAt    *time.Time             `json:"edited_at,omitempty"`
	Attachments []ChatAttachment       `json:"attachments,omitempty"`
	Reactions   []MessageReaction      `json:"reactions,omitempty"`
	Converted   bool                   `json:"task_converted"`
	Conversion  *TaskConversionRequest `json:"conversion_request,omitempty"`
	CreatedAt   time.Time              `json:"created_at"`
}

// ConversionStatus is the review state of a task conversion request.
type ConversionStatus string

const (
	ConversionPending  ConversionStatus = "pending"
	ConversionApproved ConversionStatus = "approved"
	ConversionRejected ConversionStatus = "rejected"
)

// TaskConversionRequest is the workflow record for promoting a chat message
// into a trackable task.
type TaskConversionRequest struct {
	ID            uuid.UUID        `json:"id"`
	MessageID     uuid.UUID        `json:"message_id"`
	RequestedBy   uuid.UUID        `json:"requested_by"`
	ReviewedBy    *uuid.UUID       `json:"reviewed_by,omitempty"`
	Status        ConversionStatus `json:"status"`
	Title         string           `json:"proposed_title"`
	Description   string           `json:"proposed_description"`
	DueDate       time.Time        `json:"proposed_due_date"`
	AssigneeIDs   []uuid.UUID      `json:"proposed_assignees"`
	CreatedTaskID *uuid.UUID       `json:"created_task_id,omitempty"`
	CreatedAt     time.Time        `json:"created_at"`
	ReviewedAt    *time.Time       `json:"reviewed_at,omitempty"`
}

// PresenceStatus is a user's chat presence.
type PresenceStatus string

const (
	PresenceOnline  PresenceStatus = "online"
	PresenceAway    PresenceStatus = "away"
	PresenceBusy    PresenceStatus = "busy"
	PresenceOffline PresenceStatus = "offline"
)

// OnlineUser is one entry in a club's presence list.
type OnlineUser struct {
	UserID   uuid.UUID      `json:"user_id"`
	Name     string         `json:"name"`
	Status   PresenceStatus `json:"status"`
	LastSeen time.Time      `json:"last_seen"`
}
