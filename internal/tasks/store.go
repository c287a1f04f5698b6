package tasks

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
)

// DueLayout is the persisted due_at format. It sorts and compares as a string.
const DueLayout = "2006-01-02 15:04:05"

type Status string

const (
	StatusPending   Status = "pending"
	StatusCompleted Status = "completed"
)

var (
	// ErrNotPending is returned when completing a task that is missing or already completed.
	ErrNotPending = errors.New("task is not pending")
	// ErrBadDueTime marks a stored due_at that does not parse.
	ErrBadDueTime = errors.New("malformed due time")
)

// Task is one persisted one-shot task. DueAt is kept as stored text.
type Task struct {
	ID          int64  `db:"id" json:"id"`
	DueAt       string `db:"due_at" json:"due_at"`
	Description string `db:"description" json:"description"`
	Status      Status `db:"status" json:"status"`
	Attempts    int    `db:"attempts" json:"attempts"`
	LastError   string `db:"last_error" json:"last_error,omitempty"`
}

// Due parses DueAt in loc.
func (t Task) Due(loc *time.Location) (time.Time, error) {
	due, err := time.ParseInLocation(DueLayout, t.DueAt, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q: %v", ErrBadDueTime, t.DueAt, err)
	}
	return due, nil
}

// Store is the durable task queue. Inserts come from command handling, status
// updates only from the drain loop.
type Store struct {
	db  *sqlx.DB
	loc *time.Location
}

func NewStore(db *sqlx.DB, loc *time.Location) *Store {
	if loc == nil {
		loc = time.Local
	}
	return &Store{db: db, loc: loc}
}

// Enqueue stores a pending task due at dueAt, formatted in the store's zone.
func (s *Store) Enqueue(ctx context.Context, description string, dueAt time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO tasks (due_at, description, status) VALUES (?, ?, ?)`,
		dueAt.In(s.loc).Format(DueLayout), description, StatusPending)
	if err != nil {
		return 0, fmt.Errorf("enqueue task: %w", err)
	}
	return res.LastInsertId()
}

// ListPending returns pending tasks in insertion order.
func (s *Store) ListPending(ctx context.Context) ([]Task, error) {
	var out []Task
	err := s.db.SelectContext(ctx, &out,
		`SELECT id, due_at, description, status, attempts, last_error
		   FROM tasks WHERE status = ? ORDER BY id ASC`, StatusPending)
	if err != nil {
		return nil, fmt.Errorf("list pending tasks: %w", err)
	}
	return out, nil
}

// Get returns one task by id.
func (s *Store) Get(ctx context.Context, id int64) (Task, error) {
	var t Task
	err := s.db.GetContext(ctx, &t,
		`SELECT id, due_at, description, status, attempts, last_error FROM tasks WHERE id = ?`, id)
	if err != nil {
		return Task{}, fmt.Errorf("get task %d: %w", id, err)
	}
	return t, nil
}

// MarkCompleted transitions a pending task to completed. It fails with
// ErrNotPending if the task was already completed, so the transition happens once.
func (s *Store) MarkCompleted(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE tasks SET status = ?, attempts = attempts + 1, last_error = ''
		  WHERE id = ? AND status = ?`, StatusCompleted, id, StatusPending)
	if err != nil {
		return fmt.Errorf("complete task %d: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("complete task %d: %w", id, err)
	}
	if n == 0 {
		return fmt.Errorf("complete task %d: %w", id, ErrNotPending)
	}
	return nil
}

// RecordFailure counts a failed attempt. The task stays pending.
func (s *Store) RecordFailure(ctx context.Context, id int64, cause error) error {
	msg := ""
	if cause != nil {
		msg = cause.Error()
	}
	_, err := s.db.ExecContext(ctx,
		`UPDATE tasks SET attempts = attempts + 1, last_error = ? WHERE id = ? AND status = ?`,
		msg, id, StatusPending)
	if err != nil {
		return fmt.Errorf("record task %d failure: %w", id, err)
	}
	return nil
}
