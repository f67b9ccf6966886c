// Package taskboard is a small SQLite-backed kanban board.
package taskboard

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"
)

// Status is the column a task sits in.
type Status string

const (
	StatusTodo  Status = "todo"
	StatusDoing Status = "doing"
	StatusDone  Status = "done"
)

// Statuses lists the board columns in display order.
var Statuses = []Status{StatusTodo, StatusDoing, StatusDone}

var (
	ErrNotFound      = errors.New("task not found")
	ErrInvalidStatus = errors.New("invalid status")
	ErrEmptyTitle    = errors.New("task title is empty")
)

// ParseStatus validates s as a board column.
func ParseStatus(s string) (Status, error) {
	st := Status(strings.ToLower(strings.TrimSpace(s)))
	for _, v := range Statuses {
		if st == v {
			return st, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidStatus, s)
}

// Task is one card on the board.
type Task struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	Status      Status    `json:"status"`
	Priority    int       `json:"priority"` // 1 (highest) .. 5
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Filter narrows List. Zero values match everything.
type Filter struct {
	Status Status
}

// Board persists tasks in SQLite.
type Board struct {
	db  *sql.DB
	mu  sync.Mutex
	log *zap.Logger
	now func() time.Time
}

// Open opens (or creates) the board database and runs migrations.
func Open(dbPath string, log *zap.Logger) (*Board, error) {
	if log == nil {
		log = zap.NewNop()
	}
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}
	b := &Board{db: db, log: log.Named("taskboard"), now: time.Now}
	if err := b.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	b.log.Info("task board opened", zap.String("path", dbPath))
	return b, nil
}

func (b *Board) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS tasks (
			id          TEXT PRIMARY KEY,
			title       TEXT NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			status      TEXT NOT NULL,
			priority    INTEGER NOT NULL,
			created_at  INTEGER NOT NULL,
			updated_at  INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_tasks_status ON tasks(status)`,
	}
	for _, s := range stmts {
		if _, err := b.db.Exec(s); err != nil {
			return fmt.Errorf("exec %q: %w", s[:30], err)
		}
	}
	return nil
}

func clampPriority(p int) int {
	if p < 1 {
		return 3
	}
	return min(p, 5)
}

// Add creates a todo task. Priority outside 1..5 is clamped; 0 means 3.
func (b *Board) Add(ctx context.Context, title, description string, priority int) (*Task, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, ErrEmptyTitle
	}
	now := b.now()
	t := &Task{
		ID:          uuid.NewString(),
		Title:       title,
		Description: strings.TrimSpace(description),
		Status:      StatusTodo,
		Priority:    clampPriority(priority),
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	_, err := b.db.ExecContext(ctx, `INSERT INTO tasks
		(id, title, description, status, priority, created_at, updated_at)
		VALUES (?,?,?,?,?,?,?)`,
		t.ID, t.Title, t.Description, string(t.Status), t.Priority,
		now.UnixNano(), now.UnixNano(),
	)
	if err != nil {
		return nil, fmt.Errorf("insert task: %w", err)
	}
	return t, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanTask(s scanner) (*Task, error) {
	var t Task
	var status string
	var created, updated int64
	if err := s.Scan(&t.ID, &t.Title, &t.Description, &status, &t.Priority, &created, &updated); err != nil {
		return nil, err
	}
	t.Status = Status(status)
	t.CreatedAt = time.Unix(0, created)
	t.UpdatedAt = time.Unix(0, updated)
	return &t, nil
}

const selectTask = `SELECT id, title, description, status, priority, created_at, updated_at FROM tasks`

// Get returns the task with id, or ErrNotFound.
func (b *Board) Get(ctx context.Context, id string) (*Task, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	t, err := scanTask(b.db.QueryRowContext(ctx, selectTask+` WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get task: %w", err)
	}
	return t, nil
}

// List returns tasks ordered by priority, then age.
func (b *Board) List(ctx context.Context, f Filter) ([]Task, error) {
	query := selectTask
	var args []any
	if f.Status != "" {
		st, err := ParseStatus(string(f.Status))
		if err != nil {
			return nil, err
		}
		query += ` WHERE status = ?`
		args = append(args, string(st))
	}
	query += ` ORDER BY priority ASC, created_at ASC`

	b.mu.Lock()
	defer b.mu.Unlock()
	rows, err := b.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	defer rows.Close()

	var tasks []Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("scan task: %w", err)
		}
		tasks = append(tasks, *t)
	}
	return tasks, rows.Err()
}

// Move changes the column of task id.
func (b *Board) Move(ctx context.Context, id string, status Status) (*Task, error) {
	st, err := ParseStatus(string(status))
	if err != nil {
		return nil, err
	}
	b.mu.Lock()
	res, err := b.db.ExecContext(ctx, `UPDATE tasks SET status = ?, updated_at = ? WHERE id = ?`,
		string(st), b.now().UnixNano(), id)
	b.mu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("move task: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, ErrNotFound
	}
	return b.Get(ctx, id)
}

// Delete removes task id.
func (b *Board) Delete(ctx context.Context, id string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	res, err := b.db.ExecContext(ctx, `DELETE FROM tasks WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete task: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// Resolve finds a task by full id or unique id prefix, as typed in chat.
func (b *Board) Resolve(ctx context.Context, prefix string) (*Task, error) {
	prefix = strings.TrimSpace(prefix)
	if prefix == "" {
		return nil, ErrNotFound
	}
	tasks, err := b.List(ctx, Filter{})
	if err != nil {
		return nil, err
	}
	var match *Task
	for i := range tasks {
		if strings.HasPrefix(tasks[i].ID, prefix) {
			if match != nil {
				return nil, fmt.Errorf("ambiguous task id %q", prefix)
			}
			match = &tasks[i]
		}
	}
	if match == nil {
		return nil, ErrNotFound
	}
	return match, nil
}

func (b *Board) Close() error {
	b.log.Info("closing task board")
	return b.db.Close()
}
