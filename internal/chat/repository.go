package chat

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/clubhub/backend/internal/models"
)

var (
	// ErrMessageNotFound is returned when no message matches the lookup.
	ErrMessageNotFound = errors.New("message not found")
	// ErrConversionNotFound is returned when no conversion request matches.
	ErrConversionNotFound = errors.New("conversion request not found")
)

// Repository handles chat message persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a chat repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const messageColumns = `m.id, m.club_id, m.content, m.type, m.reply_to, m.is_edited, m.edited_at, m.created_at,
	u.id, u.name, u.role, COALESCE(u.avatar_url, '')`

const messageFrom = `FROM chat_messages m JOIN users u ON u.id = m.sender_id`

func scanMessage(row pgx.Row) (*models.ChatMessage, error) {
	var m models.ChatMessage
	err := row.Scan(&m.ID, &m.ClubID, &m.Content, &m.Type, &m.ReplyTo, &m.IsEdited, &m.EditedAt, &m.CreatedAt,
		&m.Sender.ID, &m.Sender.Name, &m.Sender.Role, &m.Sender.AvatarURL)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrMessageNotFound
	}
	if err != nil {
		return nil, err
	}
	m.Converted = m.Type == models.MessageTypeTaskConverted
	return &m, nil
}

// Create inserts a message and returns it with sender info populated.
func (r *Repository) Create(ctx context.Context, clubID, senderID uuid.UUID, content string, msgType models.MessageType, replyTo *uuid.UUID) (*models.ChatMessage, error) {
	const q = `WITH inserted AS (
		INSERT INTO chat_messages (club_id, sender_id, content, type, reply_to)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, club_id, sender_id, content, type, reply_to, is_edited, edited_at, created_at
	)
	SELECT m.id, m.club_id, m.content, m.type, m.reply_to, m.is_edited, m.edited_at, m.created_at,
		u.id, u.name, u.role, COALESCE(u.avatar_url, '')
	FROM inserted m JOIN users u ON u.id = m.sender_id`
	return scanMessage(r.pool.QueryRow(ctx, q, clubID, senderID, content, msgType, replyTo))
}

// GetByID returns a single message.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*models.ChatMessage, error) {
	q := `SELECT ` + messageColumns + ` ` + messageFrom + ` WHERE m.id = $1`
	msg, err := scanMessage(r.pool.QueryRow(ctx, q, id))
	if err != nil {
		return nil, err
	}
	if err := r.attachDetails(ctx, []*models.ChatMessage{msg}); err != nil {
		return nil, err
	}
	return msg, nil
}

// ListByClub returns up to limit messages for a club in chronological order,
// created strictly before the cursor when one is given. The query walks
// newest-first to find the page, then the page is reversed.
func (r *Repository) ListByClub(ctx context.Context, clubID uuid.UUID, before *time.Time, limit int) ([]*models.ChatMessage, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	q := `SELECT ` + messageColumns + ` ` + messageFrom + ` WHERE m.club_id = $1`
	args := []interface{}{clubID}
	if before != nil {
		q += ` AND m.created_at < $2`
		args = append(args, *before)
	}
	q += ` ORDER BY m.created_at DESC LIMIT ` + strconv.Itoa(limit)

	rows, err := r.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var msgs []*models.ChatMessage
	for rows.Next() {
		msg, err := scanMessage(rows)
		if err != nil {
			return nil, err
		}
		msgs = append(msgs, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if err := r.attachDetails(ctx, msgs); err != nil {
		return nil, err
	}
	reverseMessages(msgs)
	return msgs, nil
}

func reverseMessages(msgs []*models.ChatMessage) {
	for i, j := 0, len(msgs)-1; i < j; i, j = i+1, j-1 {
		msgs[i], msgs[j] = msgs[j], msgs[i]
	}
}

// attachDetails loads attachments, reactions and conversion requests for a
// batch of messages.
func (r *Repository) attachDetails(ctx context.Context, msgs []*models.ChatMessage) error {
	if len(msgs) == 0 {
		return nil
	}
	ids := make([]uuid.UUID, len(msgs))
	byID := make(map[uuid.UUID]*models.ChatMessage, len(msgs))
	for i, m := range msgs {
		ids[i] = m.ID
		byID[m.ID] = m
	}

	rows, err := r.pool.Query(ctx, `SELECT id, message_id, kind, url, name, size, uploaded_at
		FROM chat_attachments WHERE message_id = ANY($1) ORDER BY uploaded_at`, ids)
	if err != nil {
		return err
	}
	for rows.Next() {
		var a models.ChatAttachment
		if err := rows.Scan(&a.ID, &a.MessageID, &a.Kind, &a.URL, &a.Name, &a.Size, &a.UploadedAt); err != nil {
			rows.Close()
			return err
		}
		if m := byID[a.MessageID]; m != nil {
			m.Attachments = append(m.Attachments, a)
		}
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}

	rows, err = r.pool.Query(ctx, `SELECT message_id, emoji, array_agg(user_id ORDER BY created_at)
		FROM message_reactions WHERE message_id = ANY($1) GROUP BY message_id, emoji`, ids)
	if err != nil {
		return err
	}
	for rows.Next() {
		var msgID uuid.UUID
		var reaction models.MessageReaction
		if err := rows.Scan(&msgID, &reaction.Emoji, &reaction.UserIDs); err != nil {
			rows.Close()
			return err
		}
		reaction.Count = len(reaction.UserIDs)
		if m := byID[msgID]; m != nil {
			m.Reactions = append(m.Reactions, reaction)
		}
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}

	rows, err = r.pool.Query(ctx, `SELECT id, message_id, requested_by, reviewed_by, status,
		proposed_title, proposed_description, proposed_due_date, proposed_assignees,
		created_task_id, created_at, reviewed_at
		FROM task_conversion_requests WHERE message_id = ANY($1)`, ids)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var cr models.TaskConversionRequest
		if err := rows.Scan(&cr.ID, &cr.MessageID, &cr.RequestedBy, &cr.ReviewedBy, &cr.Status,
			&cr.Title, &cr.Description, &cr.DueDate, &cr.AssigneeIDs,
			&cr.CreatedTaskID, &cr.CreatedAt, &cr.ReviewedAt); err != nil {
			return err
		}
		if m := byID[cr.MessageID]; m != nil {
			crCopy := cr
			m.Conversion = &crCopy
		}
	}
	return rows.Err()
}

// CountSince returns how many messages a club posted after the cutoff.
func (r *Repository) CountSince(ctx context.Context, clubID uuid.UUID, since time.Time) (int, error) {
	var n int
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM chat_messages
		WHERE club_id = $1 AND created_at > $2`, clubID, since).Scan(&n)
	return n, err
}

// UpdateContent edits a message's text, marking it edited. Only the sender
// may edit, enforced by the WHERE clause.
func (r *Repository) UpdateContent(ctx context.Context, id, senderID uuid.UUID, content string) (*models.ChatMessage, error) {
	const q = `UPDATE chat_messages SET content = $1, is_edited = TRUE, edited_at = now()
		WHERE id = $2 AND sender_id = $3`
	tag, err := r.pool.Exec(ctx, q, content, id, senderID)
	if err != nil {
		return nil, err
	}
	if tag.RowsAffected() == 0 {
		return nil, ErrMessageNotFound
	}
	return r.GetByID(ctx, id)
}

// AddReaction records a user's emoji reaction, idempotently.
func (r *Repository) AddReaction(ctx context.Context, messageID, userID uuid.UUID, emoji string) error {
	const q = `INSERT INTO message_reactions (message_id, user_id, emoji) VALUES ($1, $2, $3)
		ON CONFLICT DO NOTHING`
	_, err := r.pool.Exec(ctx, q, messageID, userID, emoji)
	return err
}

// RemoveReaction removes a user's emoji reaction.
func (r *Repository) RemoveReaction(ctx context.Context, messageID, userID uuid.UUID, emoji string) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM message_reactions
		WHERE message_id = $1 AND user_id = $2 AND emoji = $3`, messageID, userID, emoji)
	return err
}

// AddAttachment records an uploaded file against a message.
func (r *Repository) AddAttachment(ctx context.Context, a *models.ChatAttachment) error {
	const q = `INSERT INTO chat_attachments (message_id, kind, url, name, size)
		VALUES ($1, $2, $3, $4, $5) RETURNING id, uploaded_at`
	return r.pool.QueryRow(ctx, q, a.MessageID, a.Kind, a.URL, a.Name, a.Size).
		Scan(&a.ID, &a.UploadedAt)
}

// CreateConversion records a pending task conversion request for a message.
func (r *Repository) CreateConversion(ctx context.Context, cr *models.TaskConversionRequest) error {
	const q = `INSERT INTO task_conversion_requests
		(message_id, requested_by, proposed_title, proposed_description, proposed_due_date, proposed_assignees)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, status, created_at`
	return r.pool.QueryRow(ctx, q, cr.MessageID, cr.RequestedBy, cr.Title, cr.Description,
		cr.DueDate, cr.AssigneeIDs).Scan(&cr.ID, &cr.Status, &cr.CreatedAt)
}

// GetConversion returns a conversion request by ID.
func (r *Repository) GetConversion(ctx context.Context, id uuid.UUID) (*models.TaskConversionRequest, error) {
	const q = `SELECT id, message_id, requested_by, reviewed_by, status,
		proposed_title, proposed_description, proposed_due_date, proposed_assignees,
		created_task_id, created_at, reviewed_at
		FROM task_conversion_requests WHERE id = $1`
	var cr models.TaskConversionRequest
	err := r.pool.QueryRow(ctx, q, id).Scan(&cr.ID, &cr.MessageID, &cr.RequestedBy, &cr.ReviewedBy,
		&cr.Status, &cr.Title, &cr.Description, &cr.DueDate, &cr.AssigneeIDs,
		&cr.CreatedTaskID, &cr.CreatedAt, &cr.ReviewedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrConversionNotFound
	}
	if err != nil {
		return nil, err
	}
	return &cr, nil
}

// ReviewConversion finalizes a pending request. The status guard in the
// WHERE clause makes review idempotence-safe under concurrent reviewers.
func (r *Repository) ReviewConversion(ctx context.Context, id, reviewerID uuid.UUID, status models.ConversionStatus, createdTaskID *uuid.UUID) error {
	const q = `UPDATE task_conversion_requests
		SET status = $1, reviewed_by = $2, created_task_id = $3, reviewed_at = now()
		WHERE id = $4 AND status = 'pending'`
	tag, err := r.pool.Exec(ctx, q, status, reviewerID, createdTaskID, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrConversionNotFound
	}
	return nil
}

// MarkConverted flips a message's type after an approved conversion.
func (r *Repository) MarkConverted(ctx context.Context, messageID uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `UPDATE chat_messages SET type = 'task_converted' WHERE id = $1`, messageID)
	return err
}
