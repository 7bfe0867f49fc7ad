package chat

import (
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/clubhub/backend/internal/models"
)

func messageAt(t time.Time) *models.ChatMessage {
	return &models.ChatMessage{ID: uuid.New(), CreatedAt: t}
}

func TestReverseMessagesYieldsChronologicalOrder(t *testing.T) {
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	// Newest first, as the page query returns them.
	msgs := []*models.ChatMessage{
		messageAt(base.Add(3 * time.Minute)),
		messageAt(base.Add(2 * time.Minute)),
		messageAt(base.Add(1 * time.Minute)),
		messageAt(base),
	}
	reverseMessages(msgs)

	for i := 1; i < len(msgs); i++ {
		if !msgs[i].CreatedAt.After(msgs[i-1].CreatedAt) {
			t.Fatalf("message %d (%v) not after message %d (%v)",
				i, msgs[i].CreatedAt, i-1, msgs[i-1].CreatedAt)
		}
	}
}

func TestReverseMessagesHandlesSmallPages(t *testing.T) {
	reverseMessages(nil)
	reverseMessages([]*models.ChatMessage{})

	single := []*models.ChatMessage{messageAt(time.Now())}
	want := single[0]
	reverseMessages(single)
	if single[0] != want {
		t.Fatal("single-element page changed")
	}
}
