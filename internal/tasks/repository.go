package tasks

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/clubhub/backend/internal/models"
)

// ErrTaskNotFound is returned when no task matches the lookup.
var ErrTaskNotFound = errors.New("task not found")

// Repository handles task persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a tasks repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const taskColumns = `id, club_id, event_id, title, description, assigned_to, assigned_by,
	priority, status, due_date, created_at, updated_at`

func scanTask(row pgx.Row) (*models.Task, error) {
	var t models.Task
	err := row.Scan(&t.ID, &t.ClubID, &t.EventID, &t.Title, &t.Description, &t.AssignedTo,
		&t.AssignedBy, &t.Priority, &t.Status, &t.DueDate, &t.CreatedAt, &t.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrTaskNotFound
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// Create inserts a task in pending status.
func (r *Repository) Create(ctx context.Context, t *models.Task) error {
	const q = `INSERT INTO tasks (club_id, event_id, title, description, assigned_to, assigned_by, priority, due_date)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, status, created_at, updated_at`
	if t.AssignedTo == nil {
		t.AssignedTo = []uuid.UUID{}
	}
	return r.pool.QueryRow(ctx, q, t.ClubID, t.EventID, t.Title, t.Description,
		t.AssignedTo, t.AssignedBy, t.Priority, t.DueDate).
		Scan(&t.ID, &t.Status, &t.CreatedAt, &t.UpdatedAt)
}

// GetByID returns a task by ID.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*models.Task, error) {
	return scanTask(r.pool.QueryRow(ctx, `SELECT `+taskColumns+` FROM tasks WHERE id = $1`, id))
}

// ListByClub returns a club's tasks, due soonest first.
func (r *Repository) ListByClub(ctx context.Context, clubID uuid.UUID) ([]*models.Task, error) {
	return r.list(ctx, `SELECT `+taskColumns+` FROM tasks WHERE club_id = $1 ORDER BY due_date`, clubID)
}

// ListAssignedTo returns tasks assigned to a user, due soonest first.
func (r *Repository) ListAssignedTo(ctx context.Context, userID uuid.UUID) ([]*models.Task, error) {
	return r.list(ctx, `SELECT `+taskColumns+` FROM tasks WHERE $1 = ANY(assigned_to) ORDER BY due_date`, userID)
}

func (r *Repository) list(ctx context.Context, q string, args ...interface{}) ([]*models.Task, error) {
	rows, err := r.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []*models.Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, t)
	}
	return list, rows.Err()
}

// Update updates a task's editable fields.
func (r *Repository) Update(ctx context.Context, t *models.Task) error {
	const q = `UPDATE tasks SET title = $1, description = $2, assigned_to = $3,
		priority = $4, due_date = $5, updated_at = now()
		WHERE id = $6 RETURNING updated_at`
	return r.pool.QueryRow(ctx, q, t.Title, t.Description, t.AssignedTo,
		t.Priority, t.DueDate, t.ID).Scan(&t.UpdatedAt)
}

// SetStatus moves a task to a new status, guarded by the current one.
func (r *Repository) SetStatus(ctx context.Context, id uuid.UUID, from, to models.TaskStatus) error {
	const q = `UPDATE tasks SET status = $1, updated_at = now() WHERE id = $2 AND status = $3`
	tag, err := r.pool.Exec(ctx, q, to, id, from)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrTaskNotFound
	}
	return nil
}

// MarkOverdue flips pending and in-progress tasks past their due date to
// overdue and returns them for notification fan-out.
func (r *Repository) MarkOverdue(ctx context.Context) ([]*models.Task, error) {
	const q = `UPDATE tasks SET status = 'overdue', updated_at = now()
		WHERE due_date < now() AND status IN ('pending', 'in_progress')
		RETURNING ` + taskColumns
	rows, err := r.pool.Query(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []*models.Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, t)
	}
	return list, rows.Err()
}

// AddProof records completion evidence for a task.
func (r *Repository) AddProof(ctx context.Context, p *models.TaskProof) error {
	const q = `INSERT INTO task_proofs (task_id, kind, url, content, uploaded_by)
		VALUES ($1, $2, $3, $4, $5) RETURNING id, uploaded_at`
	return r.pool.QueryRow(ctx, q, p.TaskID, p.Kind, nullable(p.URL), nullable(p.Content), p.UploadedBy).
		Scan(&p.ID, &p.UploadedAt)
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// ListProofs returns a task's proofs, oldest first.
func (r *Repository) ListProofs(ctx context.Context, taskID uuid.UUID) ([]models.TaskProof, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, task_id, kind, COALESCE(url, ''), COALESCE(content, ''), uploaded_by, uploaded_at
		FROM task_proofs WHERE task_id = $1 ORDER BY uploaded_at`, taskID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []models.TaskProof
	for rows.Next() {
		var p models.TaskProof
		if err := rows.Scan(&p.ID, &p.TaskID, &p.Kind, &p.URL, &p.Content, &p.UploadedBy, &p.UploadedAt); err != nil {
			return nil, err
		}
		list = append(list, p)
	}
	return list, rows.Err()
}

// CountByStatus returns per-status task counts for a club.
func (r *Repository) CountByStatus(ctx context.Context, clubID uuid.UUID) (map[models.TaskStatus]int, error) {
	rows, err := r.pool.Query(ctx, `SELECT status, COUNT(*) FROM tasks WHERE club_id = $1 GROUP BY status`, clubID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	counts := make(map[models.TaskStatus]int)
	for rows.Next() {
		var status models.TaskStatus
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, err
		}
		counts[status] = n
	}
	return counts, rows.Err()
}
