package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrNotFound reports a missing record.
var ErrNotFound = errors.New("record not found")

// TaskAcker records inbound task acknowledgments. The hub's message router
// depends on this narrow interface rather than the full store.
type TaskAcker interface {
	AcknowledgeTask(ctx context.Context, taskID, userID int64) error
}

// Store reads and updates business records through a pgx pool.
type Store struct {
	pool *pgxpool.Pool
}

// New wraps an existing connection pool.
func New(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// ListTasks returns open tasks for a farm, most recently updated first.
func (s *Store) ListTasks(ctx context.Context, farmID int64) ([]Task, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, farm_id, assignee_id, title, status, priority, due_date, acknowledged_at, updated_at
		FROM tasks
		WHERE farm_id = $1 AND status <> 'completed'
		ORDER BY updated_at DESC`, farmID)
	if err != nil {
		return nil, fmt.Errorf("query tasks: %w", err)
	}
	defer rows.Close()

	var tasks []Task
	for rows.Next() {
		var t Task
		if err := rows.Scan(&t.ID, &t.FarmID, &t.AssigneeID, &t.Title, &t.Status,
			&t.Priority, &t.DueDate, &t.AcknowledgedAt, &t.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan task: %w", err)
		}
		tasks = append(tasks, t)
	}
	return tasks, rows.Err()
}

// AcknowledgeTask marks a task as acknowledged by its assignee. Only the
// assignee may acknowledge; an unknown task or wrong user is ErrNotFound.
func (s *Store) AcknowledgeTask(ctx context.Context, taskID, userID int64) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE tasks
		SET acknowledged_at = now(), updated_at = now()
		WHERE id = $1 AND assignee_id = $2 AND acknowledged_at IS NULL`, taskID, userID)
	if err != nil {
		return fmt.Errorf("acknowledge task %d: %w", taskID, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("task %d for user %d: %w", taskID, userID, ErrNotFound)
	}
	return nil
}

// ListActivities returns recent activities for a farm.
func (s *Store) ListActivities(ctx context.Context, farmID int64) ([]Activity, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, farm_id, user_id, kind, status, notes, updated_at
		FROM activities
		WHERE farm_id = $1
		ORDER BY updated_at DESC
		LIMIT 200`, farmID)
	if err != nil {
		return nil, fmt.Errorf("query activities: %w", err)
	}
	defer rows.Close()

	var activities []Activity
	for rows.Next() {
		var a Activity
		if err := rows.Scan(&a.ID, &a.FarmID, &a.UserID, &a.Kind, &a.Status,
			&a.Notes, &a.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan activity: %w", err)
		}
		activities = append(activities, a)
	}
	return activities, rows.Err()
}

// GetActivity returns a single activity.
func (s *Store) GetActivity(ctx context.Context, id int64) (Activity, error) {
	var a Activity
	err := s.pool.QueryRow(ctx, `
		SELECT id, farm_id, user_id, kind, status, notes, updated_at
		FROM activities WHERE id = $1`, id).
		Scan(&a.ID, &a.FarmID, &a.UserID, &a.Kind, &a.Status, &a.Notes, &a.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Activity{}, fmt.Errorf("activity %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return Activity{}, fmt.Errorf("query activity %d: %w", id, err)
	}
	return a, nil
}

// ListExpenses returns recent expenses for a farm.
func (s *Store) ListExpenses(ctx context.Context, farmID int64) ([]Expense, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, farm_id, amount, category, note, created_at
		FROM expenses
		WHERE farm_id = $1
		ORDER BY created_at DESC
		LIMIT 200`, farmID)
	if err != nil {
		return nil, fmt.Errorf("query expenses: %w", err)
	}
	defer rows.Close()

	var expenses []Expense
	for rows.Next() {
		var e Expense
		if err := rows.Scan(&e.ID, &e.FarmID, &e.Amount, &e.Category, &e.Note, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan expense: %w", err)
		}
		expenses = append(expenses, e)
	}
	return expenses, rows.Err()
}

// ListRevenues returns recent revenue records for a farm.
func (s *Store) ListRevenues(ctx context.Context, farmID int64) ([]Revenue, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, farm_id, amount, source, note, created_at
		FROM revenues
		WHERE farm_id = $1
		ORDER BY created_at DESC
		LIMIT 200`, farmID)
	if err != nil {
		return nil, fmt.Errorf("query revenues: %w", err)
	}
	defer rows.Close()

	var revenues []Revenue
	for rows.Next() {
		var r Revenue
		if err := rows.Scan(&r.ID, &r.FarmID, &r.Amount, &r.Source, &r.Note, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan revenue: %w", err)
		}
		revenues = append(revenues, r)
	}
	return revenues, rows.Err()
}
