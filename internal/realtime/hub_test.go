package realtime

import (
	"sync"
	"testing"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/clubhub/backend/internal/models"
)

func newTestClient(hub *Hub, clubID uuid.UUID) *Client {
	return &Client{
		ID:     uuid.New().String(),
		ClubID: clubID,
		UserID: uuid.New(),
		Name:   "Member",
		Role:   models.RoleMember,
		hub:    hub,
		send:   make(chan WSMessage, 4),
	}
}

func TestHubRegisterUnregister(t *testing.T) {
	hub := NewHub(zap.NewNop(), nil, nil)
	clubID := uuid.New()

	a := newTestClient(hub, clubID)
	b := newTestClient(hub, clubID)
	hub.Register(a)
	hub.Register(b)
	if got := hub.MemberCount(clubID); got != 2 {
		t.Fatalf("expected 2 members, got %d", got)
	}

	hub.Unregister(a)
	if got := hub.MemberCount(clubID); got != 1 {
		t.Fatalf("expected 1 member, got %d", got)
	}
	hub.Unregister(b)
	if got := hub.MemberCount(clubID); got != 0 {
		t.Fatalf("expected empty club, got %d", got)
	}
}

func TestHubBroadcastReachesAllClubClients(t *testing.T) {
	hub := NewHub(zap.NewNop(), nil, nil)
	clubID := uuid.New()
	otherClub := uuid.New()

	a := newTestClient(hub, clubID)
	b := newTestClient(hub, clubID)
	outsider := newTestClient(hub, otherClub)
	hub.Register(a)
	hub.Register(b)
	hub.Register(outsider)

	hub.BroadcastToClub(clubID, "chat_message", map[string]string{"content": "hello"})

	for _, c := range []*Client{a, b} {
		select {
		case msg := <-c.send:
			if msg.Event != "chat_message" {
				t.Fatalf("expected chat_message, got %s", msg.Event)
			}
		default:
			t.Fatalf("client %s received nothing", c.ID)
		}
	}
	select {
	case msg := <-outsider.send:
		t.Fatalf("outsider received %s for another club", msg.Event)
	default:
	}
}

func TestHubPresenceCallback(t *testing.T) {
	hub := NewHub(zap.NewNop(), nil, nil)
	clubID := uuid.New()

	var counts []int
	hub.SetPresenceHandler(func(id uuid.UUID, count int) {
		if id == clubID {
			counts = append(counts, count)
		}
	})

	a := newTestClient(hub, clubID)
	b := newTestClient(hub, clubID)
	hub.Register(a)
	hub.Register(b)
	hub.Unregister(a)

	want := []int{1, 2, 1}
	if len(counts) != len(want) {
		t.Fatalf("expected %v presence counts, got %v", want, counts)
	}
	for i := range want {
		if counts[i] != want[i] {
			t.Fatalf("expected %v presence counts, got %v", want, counts)
		}
	}
}

// Broadcasting must not iterate the live club map while Register and
// Unregister mutate it; run with -race.
func TestHubBroadcastConcurrentWithMembershipChanges(t *testing.T) {
	hub := NewHub(zap.NewNop(), nil, nil)
	clubID := uuid.New()

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 0; i < 500; i++ {
			c := newTestClient(hub, clubID)
			hub.Register(c)
			hub.Unregister(c)
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < 500; i++ {
			hub.BroadcastToClub(clubID, "chat_message", map[string]string{"content": "x"})
		}
	}()
	wg.Wait()

	if got := hub.MemberCount(clubID); got != 0 {
		t.Fatalf("expected empty club after churn, got %d", got)
	}
}

// Without Redis, publish-only events fall back to a local broadcast.
func TestPublishToClubOnlyFallsBackLocally(t *testing.T) {
	hub := NewHub(zap.NewNop(), nil, nil)
	clubID := uuid.New()
	a := newTestClient(hub, clubID)
	hub.Register(a)

	hub.PublishToClubOnly(clubID, "chat_message", map[string]string{"content": "hi"})

	select {
	case msg := <-a.send:
		if msg.Event != "chat_message" {
			t.Fatalf("expected chat_message, got %s", msg.Event)
		}
	default:
		t.Fatalf("expected local fallback delivery")
	}
}
