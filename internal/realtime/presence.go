package realtime

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/clubhub/backend/internal/models"
)

const (
	presenceKeyPrefix = "presence:club:"
	presenceTTL       = 2 * PongWait * time.Second
)

// Presence tracks online members per club in Redis, so the online list
// survives across server instances.
type Presence struct {
	client *redis.Client
}

// NewPresence creates a Redis-backed presence tracker.
func NewPresence(client *redis.Client) *Presence {
	return &Presence{client: client}
}

type presenceEntry struct {
	Name     string                `json:"name"`
	Status   models.PresenceStatus `json:"status"`
	LastSeen time.Time             `json:"last_seen"`
}

// Set records a member's presence status for a club.
func (p *Presence) Set(ctx context.Context, clubID, userID uuid.UUID, name string, status models.PresenceStatus) error {
	key := presenceKeyPrefix + clubID.String()
	entry, err := json.Marshal(presenceEntry{Name: name, Status: status, LastSeen: time.Now()})
	if err != nil {
		return err
	}
	if err := p.client.HSet(ctx, key, userID.String(), entry).Err(); err != nil {
		return err
	}
	return p.client.Expire(ctx, key, presenceTTL).Err()
}

// Remove marks a member offline by removing their entry.
func (p *Presence) Remove(ctx context.Context, clubID, userID uuid.UUID) error {
	return p.client.HDel(ctx, presenceKeyPrefix+clubID.String(), userID.String()).Err()
}

// List returns the club's current presence entries.
func (p *Presence) List(ctx context.Context, clubID uuid.UUID) ([]models.OnlineUser, error) {
	raw, err := p.client.HGetAll(ctx, presenceKeyPrefix+clubID.String()).Result()
	if err != nil {
		return nil, err
	}
	users := make([]models.OnlineUser, 0, len(raw))
	for idStr, v := range raw {
		id, err := uuid.Parse(idStr)
		if err != nil {
			continue
		}
		var e presenceEntry
		if err := json.Unmarshal([]byte(v), &e); err != nil {
			continue
		}
		users = append(users, models.OnlineUser{
			UserID:   id,
			Name:     e.Name,
			Status:   e.Status,
			LastSeen: e.LastSeen,
		})
	}
	return users, nil
}
