package realtime

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/clubhub/backend/internal/models"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // allow all origins in dev; restrict in production
	},
}

// WSMessage is the WebSocket message envelope.
type WSMessage struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// SessionValidator resolves a session token to the connecting identity.
type SessionValidator func(token string) (userID uuid.UUID, name string, role models.Role, err error)

// Client represents a single WebSocket connection in a club room.
type Client struct {
	ID       string
	ClubID   uuid.UUID
	UserID   uuid.UUID
	Name     string
	Role     models.Role
	JoinedAt time.Time
	hub      *Hub
	presence *Presence
	conn     *websocket.Conn
	send     chan WSMessage
	logger   *zap.Logger
}

// ServeWs handles the WebSocket upgrade and runs the client loop. The token
// rides in the query string since browsers cannot set headers on WebSocket
// connections.
func ServeWs(hub *Hub, presence *Presence, logger *zap.Logger, validate SessionValidator) gin.HandlerFunc {
	return func(c *gin.Context) {
		clubIDStr := c.Query("club_id")
		token := c.Query("token")
		if clubIDStr == "" || token == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "club_id and token required"})
			return
		}
		clubID, err := uuid.Parse(clubIDStr)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid club_id"})
			return
		}
		userID, name, role, err := validate(token)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}

		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			logger.Warn("websocket upgrade failed", zap.Error(err))
			return
		}

		client := &Client{
			ID:       uuid.New().String(),
			ClubID:   clubID,
			UserID:   userID,
			Name:     name,
			Role:     role,
			JoinedAt: time.Now(),
			hub:      hub,
			presence: presence,
			conn:     conn,
			send:     make(chan WSMessage, 256),
			logger:   logger,
		}
		hub.Register(client)
		client.setPresence(models.PresenceOnline)
		go client.writePump()
		client.readPump()
	}
}

func (c *Client) setPresence(status models.PresenceStatus) {
	if c.presence == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_ = c.presence.Set(ctx, c.ClubID, c.UserID, c.Name, status)
}

func (c *Client) readPump() {
	defer func() {
		if c.presence != nil {
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			_ = c.presence.Remove(ctx, c.ClubID, c.UserID)
			cancel()
		}
		c.hub.Unregister(c)
		c.hub.BroadcastToClubAndPublish(c.ClubID, "leave", map[string]string{
			"user_id": c.UserID.String(),
		})
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(65536)
	_ = c.conn.SetReadDeadline(time.Now().Add(PongWait * time.Second))
	c.conn.SetPongHandler(func(string) error {
		_ = c.conn.SetReadDeadline(time.Now().Add(PongWait * time.Second))
		return nil
	})

	for {
		var msg WSMessage
		if err := c.conn.ReadJSON(&msg); err != nil {
			break
		}
		_ = c.conn.SetReadDeadline(time.Now().Add(PongWait * time.Second))

		switch msg.Event {
		case "join":
			c.hub.BroadcastToClubAndPublish(c.ClubID, "member_count", map[string]int{
				"count": c.hub.MemberCount(c.ClubID),
			})
			c.hub.BroadcastToClubAndPublish(c.ClubID, "join", map[string]string{
				"user_id": c.UserID.String(),
				"name":    c.Name,
				"role":    string(c.Role),
			})
		case "presence":
			var payload struct {
				Status string `json:"status"`
			}
			if err := json.Unmarshal(msg.Data, &payload); err == nil {
				switch models.PresenceStatus(payload.Status) {
				case models.PresenceOnline, models.PresenceAway, models.PresenceBusy:
					c.setPresence(models.PresenceStatus(payload.Status))
					c.hub.BroadcastToClubAndPublish(c.ClubID, "presence", map[string]string{
						"user_id": c.UserID.String(),
						"status":  payload.Status,
					})
				}
			}
		case "typing":
			c.hub.BroadcastToClubAndPublish(c.ClubID, "typing", map[string]string{
				"user_id": c.UserID.String(),
				"name":    c.Name,
			})
		case "chat_message":
			// Publish only so the Redis subscriber broadcasts once for all
			// instances (avoids duplicate delivery to local clients).
			c.hub.PublishToClubOnly(c.ClubID, msg.Event, json.RawMessage(msg.Data))
		default:
			// ignore
		}
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(PingInterval * time.Second)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			_ = c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.conn.WriteJSON(msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
