package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"promodo/internal/session"
	"promodo/internal/task"

	_ "modernc.org/sqlite"
)

// Settings keys.
const (
	KeyConfig    = "config"
	KeyLastLogin = "lastLogin"
	KeyStreak    = "streak"
)

// ErrNotFound is returned by Get when a settings key is absent.
var ErrNotFound = errors.New("not found")

// Repository is the durable store for settings, tasks and session history.
type Repository struct {
	db *sql.DB
}

func NewRepository(path string) (*Repository, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, fmt.Errorf("database path is empty")
	}
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// A single connection keeps :memory: databases coherent and serializes
	// writers on file databases.
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("exec %q: %w", p, err)
		}
	}

	repo := &Repository{db: db}
	if err := repo.init(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}

	return repo, nil
}

func (r *Repository) init() error {
	settingsQuery := `
	CREATE TABLE IF NOT EXISTS settings (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	)
	`
	if _, err := r.db.Exec(settingsQuery); err != nil {
		return err
	}

	tasksQuery := `
	CREATE TABLE IF NOT EXISTS tasks (
		id TEXT PRIMARY KEY,
		position INTEGER NOT NULL DEFAULT 0,
		title TEXT NOT NULL,
		completed INTEGER NOT NULL DEFAULT 0,
		priority TEXT NOT NULL DEFAULT 'medium',
		subtasks TEXT NOT NULL DEFAULT '[]',
		created_at INTEGER NOT NULL,
		completed_at INTEGER
	)
	`
	if _, err := r.db.Exec(tasksQuery); err != nil {
		return err
	}

	historyQuery := `
	CREATE TABLE IF NOT EXISTS history (
		id TEXT PRIMARY KEY,
		start_time INTEGER NOT NULL, -- unix nanoseconds
		end_time INTEGER NOT NULL,
		zone TEXT NOT NULL DEFAULT 'Local',
		zone_offset INTEGER NOT NULL DEFAULT 0,
		duration_minutes INTEGER NOT NULL,
		mode TEXT NOT NULL,
		completed INTEGER NOT NULL DEFAULT 1,
		task_ids TEXT NOT NULL DEFAULT '[]'
	);
	CREATE INDEX IF NOT EXISTS idx_history_start_time ON history(start_time);
	`
	_, err := r.db.Exec(historyQuery)
	return err
}

func (r *Repository) Close() error {
	if r.db == nil {
		return nil
	}
	return r.db.Close()
}

// --- Settings ---

// Get decodes the JSON value stored under key into dst.
func (r *Repository) Get(key string, dst any) error {
	var raw string
	err := r.db.QueryRow("SELECT value FROM settings WHERE key = ?", key).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("get %s: %w", key, err)
	}
	if err := json.Unmarshal([]byte(raw), dst); err != nil {
		return fmt.Errorf("decode %s: %w", key, err)
	}
	return nil
}

func (r *Repository) Put(key string, v any) error {
	return put(r.db, key, v)
}

func (r *Repository) Delete(key string) error {
	_, err := r.db.Exec("DELETE FROM settings WHERE key = ?", key)
	return err
}

type execer interface {
	Exec(query string, args ...any) (sql.Result, error)
}

func put(db execer, key string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	_, err = db.Exec(
		"INSERT INTO settings (key, value) VALUES (?, ?) ON CONFLICT(key) DO UPDATE SET value = excluded.value",
		key, string(raw),
	)
	if err != nil {
		return fmt.Errorf("put %s: %w", key, err)
	}
	return nil
}

// LoadConfig returns the saved session config, or the defaults when none
// has been saved yet.
func (r *Repository) LoadConfig() (session.Config, error) {
	cfg := session.DefaultConfig()
	err := r.Get(KeyConfig, &cfg)
	if errors.Is(err, ErrNotFound) {
		return session.DefaultConfig(), nil
	}
	if err != nil {
		return session.DefaultConfig(), err
	}
	return cfg, nil
}

func (r *Repository) SaveConfig(cfg session.Config) error {
	return r.Put(KeyConfig, cfg)
}

// --- Tasks ---

func (r *Repository) LoadTasks() ([]task.Task, error) {
	rows, err := r.db.Query(
		"SELECT id, title, completed, priority, subtasks, created_at, completed_at FROM tasks ORDER BY position",
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	tasks := []task.Task{}
	for rows.Next() {
		var t task.Task
		var completed int
		var priority, subtasks string
		var createdAt int64
		var completedAt sql.NullInt64
		if err := rows.Scan(&t.ID, &t.Title, &completed, &priority, &subtasks, &createdAt, &completedAt); err != nil {
			return nil, err
		}
		t.Completed = completed == 1
		t.Priority = task.Priority(priority)
		t.CreatedAt = time.UnixMilli(createdAt)
		if completedAt.Valid {
			at := time.UnixMilli(completedAt.Int64)
			t.CompletedAt = &at
		}
		if err := json.Unmarshal([]byte(subtasks), &t.Subtasks); err != nil {
			return nil, fmt.Errorf("decode subtasks of %s: %w", t.ID, err)
		}
		tasks = append(tasks, t)
	}
	return tasks, rows.Err()
}

// SaveTasks replaces the whole task collection, keeping the given order.
func (r *Repository) SaveTasks(tasks []task.Task) error {
	tx, err := r.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM tasks"); err != nil {
		return err
	}
	for i := range tasks {
		if err := putTask(tx, i, &tasks[i]); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// PutTask inserts or updates a single task at the given board position.
func (r *Repository) PutTask(position int, t *task.Task) error {
	return putTask(r.db, position, t)
}

func (r *Repository) DeleteTask(id string) error {
	_, err := r.db.Exec("DELETE FROM tasks WHERE id = ?", id)
	return err
}

func putTask(db execer, position int, t *task.Task) error {
	subtasks := t.Subtasks
	if subtasks == nil {
		subtasks = []task.Subtask{}
	}
	raw, err := json.Marshal(subtasks)
	if err != nil {
		return fmt.Errorf("encode subtasks of %s: %w", t.ID, err)
	}
	completed := 0
	if t.Completed {
		completed = 1
	}
	var completedAt any
	if t.CompletedAt != nil {
		completedAt = t.CompletedAt.UnixMilli()
	}
	_, err = db.Exec(
		`INSERT INTO tasks (id, position, title, completed, priority, subtasks, created_at, completed_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
			position = excluded.position,
			title = excluded.title,
			completed = excluded.completed,
			priority = excluded.priority,
			subtasks = excluded.subtasks,
			completed_at = excluded.completed_at`,
		t.ID, position, t.Title, completed, string(t.Priority), string(raw), t.CreatedAt.UnixMilli(), completedAt,
	)
	if err != nil {
		return fmt.Errorf("save task %s: %w", t.ID, err)
	}
	return nil
}
