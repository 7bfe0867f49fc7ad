package events

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/clubhub/backend/internal/models"
)

var (
	// ErrEventNotFound is returned when no event matches the lookup.
	ErrEventNotFound = errors.New("event not found")
	// ErrEventFull is returned when an RSVP would exceed max attendees.
	ErrEventFull = errors.New("event is full")
)

// Repository handles event persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates an events repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const eventColumns = `id, club_id, title, description, organizer_id, starts_at, ends_at,
	location, is_online, max_attendees, status, created_at, updated_at`

func scanEvent(row pgx.Row) (*models.Event, error) {
	var e models.Event
	err := row.Scan(&e.ID, &e.ClubID, &e.Title, &e.Description, &e.OrganizerID, &e.StartsAt,
		&e.EndsAt, &e.Location, &e.IsOnline, &e.MaxAttendees, &e.Status, &e.CreatedAt, &e.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrEventNotFound
	}
	if err != nil {
		return nil, err
	}
	return &e, nil
}

// Create inserts an event in draft status.
func (r *Repository) Create(ctx context.Context, e *models.Event) error {
	const q = `INSERT INTO events (club_id, title, description, organizer_id, starts_at, ends_at, location, is_online, max_attendees)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id, status, created_at, updated_at`
	return r.pool.QueryRow(ctx, q, e.ClubID, e.Title, e.Description, e.OrganizerID,
		e.StartsAt, e.EndsAt, e.Location, e.IsOnline, e.MaxAttendees).
		Scan(&e.ID, &e.Status, &e.CreatedAt, &e.UpdatedAt)
}

// GetByID returns an event by ID.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*models.Event, error) {
	return scanEvent(r.pool.QueryRow(ctx, `SELECT `+eventColumns+` FROM events WHERE id = $1`, id))
}

// ListByClub returns a club's events, soonest first.
func (r *Repository) ListByClub(ctx context.Context, clubID uuid.UUID) ([]*models.Event, error) {
	return r.list(ctx, `SELECT `+eventColumns+` FROM events WHERE club_id = $1 ORDER BY starts_at`, clubID)
}

// ListUpcoming returns published or ongoing events starting after now.
func (r *Repository) ListUpcoming(ctx context.Context, clubID uuid.UUID, limit int) ([]*models.Event, error) {
	const q = `SELECT ` + eventColumns + ` FROM events
		WHERE club_id = $1 AND status IN ('published', 'ongoing') AND ends_at > now()
		ORDER BY starts_at LIMIT $2`
	return r.list(ctx, q, clubID, limit)
}

func (r *Repository) list(ctx context.Context, q string, args ...interface{}) ([]*models.Event, error) {
	rows, err := r.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []*models.Event
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, e)
	}
	return list, rows.Err()
}

// Update updates an event's editable fields.
func (r *Repository) Update(ctx context.Context, e *models.Event) error {
	const q = `UPDATE events SET title = $1, description = $2, starts_at = $3, ends_at = $4,
		location = $5, is_online = $6, max_attendees = $7, updated_at = now()
		WHERE id = $8 RETURNING updated_at`
	return r.pool.QueryRow(ctx, q, e.Title, e.Description, e.StartsAt, e.EndsAt,
		e.Location, e.IsOnline, e.MaxAttendees, e.ID).Scan(&e.UpdatedAt)
}

// SetStatus moves an event to a new status. The current-status guard keeps
// concurrent transitions from racing past the state machine.
func (r *Repository) SetStatus(ctx context.Context, id uuid.UUID, from, to models.EventStatus) error {
	const q = `UPDATE events SET status = $1, updated_at = now() WHERE id = $2 AND status = $3`
	tag, err := r.pool.Exec(ctx, q, to, id, from)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrEventNotFound
	}
	return nil
}

// RSVP upserts an attendance record. A "going" RSVP respects max_attendees:
// the event row is locked for the capacity check so concurrent RSVPs
// serialize instead of overshooting the limit.
func (r *Repository) RSVP(ctx context.Context, eventID, userID uuid.UUID, status models.RSVPStatus) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if status == models.RSVPGoing {
		const check = `SELECT e.max_attendees IS NOT NULL AND
			(SELECT COUNT(*) FROM event_attendees a
				WHERE a.event_id = e.id AND a.status = 'going' AND a.user_id <> $2) >= e.max_attendees
			FROM events e WHERE e.id = $1 FOR UPDATE OF e`
		var full bool
		if err := tx.QueryRow(ctx, check, eventID, userID).Scan(&full); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return ErrEventNotFound
			}
			return err
		}
		if full {
			return ErrEventFull
		}
	}
	const q = `INSERT INTO event_attendees (event_id, user_id, status) VALUES ($1, $2, $3)
		ON CONFLICT (event_id, user_id) DO UPDATE SET status = EXCLUDED.status`
	if _, err := tx.Exec(ctx, q, eventID, userID, status); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// CheckIn marks an attendee as present.
func (r *Repository) CheckIn(ctx context.Context, eventID, userID uuid.UUID, at time.Time) error {
	const q = `UPDATE event_attendees SET checked_in = TRUE, check_in_time = $1
		WHERE event_id = $2 AND user_id = $3`
	tag, err := r.pool.Exec(ctx, q, at, eventID, userID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrEventNotFound
	}
	return nil
}

// Attendees returns all attendance records for an event.
func (r *Repository) Attendees(ctx context.Context, eventID uuid.UUID) ([]models.EventAttendee, error) {
	rows, err := r.pool.Query(ctx, `SELECT event_id, user_id, status, checked_in, check_in_time
		FROM event_attendees WHERE event_id = $1`, eventID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []models.EventAttendee
	for rows.Next() {
		var a models.EventAttendee
		if err := rows.Scan(&a.EventID, &a.UserID, &a.Status, &a.CheckedIn, &a.CheckInTime); err != nil {
			return nil, err
		}
		list = append(list, a)
	}
	return list, rows.Err()
}

// GoingIDs returns the user IDs with a "going" RSVP, used for notification
// fan-out when an event changes.
func (r *Repository) GoingIDs(ctx context.Context, eventID uuid.UUID) ([]uuid.UUID, error) {
	rows, err := r.pool.Query(ctx, `SELECT user_id FROM event_attendees
		WHERE event_id = $1 AND status = 'going'`, eventID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
