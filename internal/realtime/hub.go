package realtime

import (
	"encoding/json"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	// PingInterval and PongWait are used for heartbeat, in seconds.
	PingInterval = 30
	PongWait     = 60
)

// PresenceHandler is called when a club's connected-member count changes.
type PresenceHandler func(clubID uuid.UUID, count int)

// Hub maintains club_id -> set of connections and broadcasts messages.
// Uses Redis pub/sub for horizontal scaling: local broadcast + publish to
// Redis.
type Hub struct {
	// clubID -> map[clientID]*Client
	clubs      map[uuid.UUID]map[string]*Client
	subs       map[uuid.UUID]func() // cancel Redis subscription per club
	mu         sync.RWMutex
	logger     *zap.Logger
	redis      Publisher
	redisSub   Subscriber
	onPresence PresenceHandler
}

// Publisher is the interface for publishing to Redis (cross-instance
// broadcast).
type Publisher interface {
	PublishClubEvent(clubID uuid.UUID, event string, payload []byte) error
}

// Subscriber subscribes to club channels and invokes handler for incoming
// events.
type Subscriber interface {
	SubscribeClub(clubID uuid.UUID, handler func(event string, payload []byte)) (cancel func(), err error)
}

// NewHub creates a new WebSocket hub.
func NewHub(logger *zap.Logger, pub Publisher, sub Subscriber) *Hub {
	return &Hub{
		clubs:    make(map[uuid.UUID]map[string]*Client),
		subs:     make(map[uuid.UUID]func()),
		logger:   logger,
		redis:    pub,
		redisSub: sub,
	}
}

// SetPresenceHandler sets the callback for connected-member count changes.
func (h *Hub) SetPresenceHandler(fn PresenceHandler) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.onPresence = fn
}

// Register adds a client to a club room. Starts the Redis subscription for
// the club when the first client joins.
func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	if h.clubs[c.ClubID] == nil {
		h.clubs[c.ClubID] = make(map[string]*Client)
		if h.redisSub != nil {
			cancel, err := h.redisSub.SubscribeClub(c.ClubID, func(event string, payload []byte) {
				h.BroadcastToClub(c.ClubID, event, json.RawMessage(payload))
			})
			if err == nil {
				h.subs[c.ClubID] = cancel
			}
		}
	}
	h.clubs[c.ClubID][c.ID] = c
	count := len(h.clubs[c.ClubID])
	onPresence := h.onPresence
	h.mu.Unlock()
	if onPresence != nil {
		onPresence(c.ClubID, count)
	}
	h.logger.Debug("client joined club", zap.String("client_id", c.ID), zap.String("club_id", c.ClubID.String()))
}

// Unregister removes a client from a club room. Cancels the Redis
// subscription when the last client leaves.
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	var count int
	if m, ok := h.clubs[c.ClubID]; ok {
		delete(m, c.ID)
		count = len(m)
		if count == 0 {
			delete(h.clubs, c.ClubID)
			if cancel, ok := h.subs[c.ClubID]; ok {
				cancel()
				delete(h.subs, c.ClubID)
			}
		}
	}
	onPresence := h.onPresence
	h.mu.Unlock()
	if onPresence != nil {
		onPresence(c.ClubID, count)
	}
	h.logger.Debug("client left club", zap.String("client_id", c.ID), zap.String("club_id", c.ClubID.String()))
}

// BroadcastToClub sends a message to all clients in a club (local only).
func (h *Hub) BroadcastToClub(clubID uuid.UUID, event string, payload interface{}) {
	var data []byte
	switch v := payload.(type) {
	case []byte:
		data = v
	case json.RawMessage:
		data = v
	default:
		data, _ = json.Marshal(payload)
	}
	msg := WSMessage{Event: event, Data: data}

	// Snapshot under the read lock; Register/Unregister mutate the map and
	// iterating it after release races with them.
	h.mu.RLock()
	clients := make([]*Client, 0, len(h.clubs[clubID]))
	for _, c := range h.clubs[clubID] {
		clients = append(clients, c)
	}
	h.mu.RUnlock()

	for _, c := range clients {
		select {
		case c.send <- msg:
		default:
			// buffer full, skip
		}
	}
}

// BroadcastToClubAndPublish sends to local clients and publishes to Redis
// for other instances.
func (h *Hub) BroadcastToClubAndPublish(clubID uuid.UUID, event string, payload interface{}) {
	data, err := json.Marshal(payload)
	if err != nil {
		return
	}
	h.BroadcastToClub(clubID, event, json.RawMessage(data))
	if h.redis != nil {
		_ = h.redis.PublishClubEvent(clubID, event, data)
	}
}

// PublishToClubOnly publishes to Redis only (no local broadcast). Used for
// chat_message so the Redis subscriber callback performs the broadcast once
// for all instances including this one, avoiding duplicate local delivery.
func (h *Hub) PublishToClubOnly(clubID uuid.UUID, event string, payload interface{}) {
	data, err := json.Marshal(payload)
	if err != nil {
		return
	}
	if h.redis != nil {
		_ = h.redis.PublishClubEvent(clubID, event, data)
		return
	}
	h.BroadcastToClub(clubID, event, json.RawMessage(data))
}

// MemberCount returns the number of connected clients in a club.
func (h *Hub) MemberCount(clubID uuid.UUID) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clubs[clubID])
}
