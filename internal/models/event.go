package models

import (
	"time"

	"github.com/google/uuid"
)

// EventStatus is the lifecycle state of an event.
type EventStatus string

const (
	EventDraft     EventStatus = "draft"
	EventPublished EventStatus = "published"
	EventOngoing   EventStatus = "ongoing"
	EventCompleted EventStatus = "completed"
	EventCancelled EventStatus = "cancelled"
)

// eventTransitions lists the permitted status changes.
var eventTransitions = map[EventStatus][]EventStatus{
	EventDraft:     {EventPublished, EventCancelled},
	EventPublished: {EventOngoing, EventCancelled},
	EventOngoing:   {EventCompleted, EventCancelled},
}

// CanTransition reports whether an event may move from to next.
func (s EventStatus) CanTransition(next EventStatus) bool {
	for _, t := range eventTransitions[s] {
		if t == next {
			return true
		}
	}
	return false
}

// Event represents a scheduled club event.
type Event struct {
	ID           uuid.UUID   `json:"id"`
	ClubID       uuid.UUID   `json:"club_id"`
	Title        string      `json:"title"`
	Description  string      `json:"description"`
	OrganizerID  uuid.UUID   `json:"organizer_id"`
	StartsAt     time.Time   `json:"starts_at"`
	EndsAt       time.Time   `json:"ends_at"`
	Location     string      `json:"location"`
	IsOnline     bool        `json:"is_online"`
	MaxAttendees *int        `json:"max_attendees,omitempty"`
	Status       EventStatus `json:"status"`
	CreatedAt    time.Time   `json:"created_at"`
	UpdatedAt    time.Time   `json:"updated_at"`
}

// RSVPStatus is an attendee's response to an event.
type RSVPStatus string

const (
	RSVPGoing    RSVPStatus = "going"
	RSVPMaybe    RSVPStatus = "maybe"
	RSVPNotGoing RSVPStatus = "not_going"
)

// EventAttendee is one attendance record for an event.
type EventAttendee struct {
	EventID     uuid.UUID  `json:"event_id"`
	UserID      uuid.UUID  `json:"user_id"`
	Status      RSVPStatus `json:"status"`
	CheckedIn   bool       `json:"checked_in"`
	CheckInTime *time.Time `json:"check_in_time,omitempty"`
}
