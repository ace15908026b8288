// Package taskstore persists video generation tasks in SQLite. Records carry
// no durability contract: a restart fails whatever was mid-flight, and
// completed rows live until a caller deletes them.
package taskstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"reelsmith/internal/config"
	"reelsmith/internal/services"
)

// ErrNotFound is returned when a task id has no record.
var ErrNotFound = errors.New("task not found")

// Store manages task persistence backed by SQLite.
type Store struct {
	db   *sql.DB
	path string
}

const (
	sqliteBusyCode          = 5
	busyRetryAttempts       = 5
	busyRetryInitialBackoff = 10 * time.Millisecond
	busyRetryMaxBackoff     = 200 * time.Millisecond
)

// Open initializes or connects to the task database under the configured log
// directory. Processing rows left over from a previous run are failed.
func Open(cfg *config.Config) (*Store, error) {
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("ensure directories: %w", err)
	}
	return OpenPath(filepath.Join(cfg.Paths.LogDir, "tasks.db"))
}

// OpenPath opens the task database at an explicit path.
func OpenPath(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: dbPath}
	ctx := context.Background()
	if err := store.initSchema(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := store.failInterrupted(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// NewTaskRequest carries the caller-supplied fields of a task.
type NewTaskRequest struct {
	Script      string
	Query       string
	VoiceID     string
	CallbackURL string
}

// Create inserts a new pending task and returns the stored record.
func (s *Store) Create(ctx context.Context, req NewTaskRequest) (*Task, error) {
	script := strings.TrimSpace(req.Script)
	if script == "" {
		return nil, services.Wrap(services.ErrValidation, "taskstore", "create", "script is required", nil)
	}
	query := strings.TrimSpace(req.Query)
	if query == "" {
		return nil, services.Wrap(services.ErrValidation, "taskstore", "create", "footage query is required", nil)
	}

	id := uuid.NewString()
	timestamp := time.Now().UTC().Format(time.RFC3339Nano)
	_, err := s.execWithRetry(ctx,
		`INSERT INTO tasks (
            id, script, query, voice_id, callback_url, status,
            progress, duration_seconds, created_at, updated_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, 0, ?, ?)`,
		id,
		script,
		query,
		nullableString(strings.TrimSpace(req.VoiceID)),
		nullableString(strings.TrimSpace(req.CallbackURL)),
		StatusPending,
		"queued",
		timestamp,
		timestamp,
	)
	if err != nil {
		return nil, fmt.Errorf("insert task: %w", err)
	}
	return s.Get(ctx, id)
}

// Get fetches a task by identifier.
func (s *Store) Get(ctx context.Context, id string) (*Task, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+taskColumns+` FROM tasks WHERE id = ?`, id)
	task, err := scanTask(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("get task: %w", err)
	}
	return task, nil
}

// Update writes every mutable field of the task back to its row.
func (s *Store) Update(ctx context.Context, task *Task) error {
	if task == nil || task.ID == "" {
		return fmt.Errorf("update task: missing id")
	}
	task.UpdatedAt = time.Now().UTC()
	res, err := s.execWithRetry(ctx,
		`UPDATE tasks SET
            status = ?, progress = ?, error_message = ?, output_path = ?,
            duration_seconds = ?, updated_at = ?, completed_at = ?
        WHERE id = ?`,
		task.Status,
		nullableString(task.Progress),
		nullableString(task.ErrorMessage),
		nullableString(task.OutputPath),
		task.DurationSeconds,
		task.UpdatedAt.Format(time.RFC3339Nano),
		nullableTime(task.CompletedAt),
		task.ID,
	)
	if err != nil {
		return fmt.Errorf("update task: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update task: rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, task.ID)
	}
	return nil
}

// AppendLog records a timestamped progress line, trims the task's log to the
// most recent MaxLogEntries rows, and mirrors the message into the task's
// Progress field.
func (s *Store) AppendLog(ctx context.Context, id, message string) error {
	message = strings.TrimSpace(message)
	if message == "" {
		return nil
	}
	timestamp := time.Now().UTC().Format(time.RFC3339Nano)
	return retryOnBusy(ctx, func() error {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin log tx: %w", err)
		}
		defer func() { _ = tx.Rollback() }()

		var exists int
		if err := tx.QueryRowContext(ctx, `SELECT COUNT(1) FROM tasks WHERE id = ?`, id).Scan(&exists); err != nil {
			return fmt.Errorf("check task: %w", err)
		}
		if exists == 0 {
			return fmt.Errorf("%w: %s", ErrNotFound, id)
		}

		if _, err := tx.ExecContext(ctx,
			`INSERT INTO task_logs (task_id, logged_at, message) VALUES (?, ?, ?)`,
			id, timestamp, message,
		); err != nil {
			return fmt.Errorf("insert log: %w", err)
		}
		if _, err := tx.ExecContext(ctx,
			`DELETE FROM task_logs WHERE task_id = ? AND id NOT IN (
                SELECT id FROM task_logs WHERE task_id = ? ORDER BY id DESC LIMIT ?
            )`,
			id, id, MaxLogEntries,
		); err != nil {
			return fmt.Errorf("trim log: %w", err)
		}
		if _, err := tx.ExecContext(ctx,
			`UPDATE tasks SET progress = ?, updated_at = ? WHERE id = ?`,
			message, timestamp, id,
		); err != nil {
			return fmt.Errorf("mirror progress: %w", err)
		}
		return tx.Commit()
	})
}

// Logs returns the task's retained log lines in append order.
func (s *Store) Logs(ctx context.Context, id string) ([]LogEntry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT logged_at, message FROM task_logs WHERE task_id = ? ORDER BY id`, id)
	if err != nil {
		return nil, fmt.Errorf("query logs: %w", err)
	}
	defer rows.Close()

	var entries []LogEntry
	for rows.Next() {
		var loggedRaw, message string
		if err := rows.Scan(&loggedRaw, &message); err != nil {
			return nil, err
		}
		entry := LogEntry{Message: message}
		if t, err := parseTimeString(loggedRaw); err == nil {
			entry.LoggedAt = t
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

// ClaimNextPending atomically flips the oldest pending task to processing and
// returns it. Returns nil when nothing is pending.
func (s *Store) ClaimNextPending(ctx context.Context) (*Task, error) {
	var claimed *Task
	err := retryOnBusy(ctx, func() error {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin claim tx: %w", err)
		}
		defer func() { _ = tx.Rollback() }()

		row := tx.QueryRowContext(ctx,
			`SELECT `+taskColumns+` FROM tasks WHERE status = ? ORDER BY created_at, id LIMIT 1`,
			StatusPending,
		)
		task, err := scanTask(row)
		if errors.Is(err, sql.ErrNoRows) {
			claimed = nil
			return tx.Commit()
		}
		if err != nil {
			return fmt.Errorf("select pending: %w", err)
		}

		timestamp := time.Now().UTC().Format(time.RFC3339Nano)
		res, err := tx.ExecContext(ctx,
			`UPDATE tasks SET status = ?, updated_at = ? WHERE id = ? AND status = ?`,
			StatusProcessing, timestamp, task.ID, StatusPending,
		)
		if err != nil {
			return fmt.Errorf("claim task: %w", err)
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("claim task: rows affected: %w", err)
		}
		if affected == 0 {
			claimed = nil
			return tx.Commit()
		}

		task.Status = StatusProcessing
		claimed = task
		return tx.Commit()
	})
	if err != nil {
		return nil, err
	}
	return claimed, nil
}

// Delete removes a task and its logs.
func (s *Store) Delete(ctx context.Context, id string) error {
	res, err := s.execWithRetry(ctx, `DELETE FROM tasks WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete task: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete task: rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return nil
}

// List returns tasks matching the given statuses, newest first. With no
// statuses it returns every task.
func (s *Store) List(ctx context.Context, statuses ...Status) ([]*Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks`
	args := make([]any, 0, len(statuses))
	if len(statuses) > 0 {
		query += ` WHERE status IN (` + makePlaceholders(len(statuses)) + `)`
		for _, status := range statuses {
			args = append(args, status)
		}
	}
	query += ` ORDER BY created_at DESC, id DESC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	defer rows.Close()

	var tasks []*Task
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, task)
	}
	return tasks, rows.Err()
}

// Stats returns task counts grouped by lifecycle state.
func (s *Store) Stats(ctx context.Context) (Stats, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT status, COUNT(1) FROM tasks GROUP BY status`)
	if err != nil {
		return Stats{}, fmt.Errorf("task stats: %w", err)
	}
	defer rows.Close()

	var stats Stats
	for rows.Next() {
		var status Status
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return Stats{}, err
		}
		stats.Total += count
		switch status {
		case StatusPending:
			stats.Pending += count
		case StatusProcessing:
			stats.Processing += count
		case StatusCompleted:
			stats.Completed += count
		case StatusFailed:
			stats.Failed += count
		}
	}
	return stats, rows.Err()
}

// failInterrupted marks processing rows from a previous run as failed.
func (s *Store) failInterrupted(ctx context.Context) error {
	timestamp := time.Now().UTC().Format(time.RFC3339Nano)
	if _, err := s.db.ExecContext(ctx,
		`UPDATE tasks SET status = ?, error_message = ?, completed_at = ?, updated_at = ? WHERE status = ?`,
		StatusFailed, InterruptedReason, timestamp, timestamp, StatusProcessing,
	); err != nil {
		return fmt.Errorf("fail interrupted tasks: %w", err)
	}
	return nil
}

func isSQLiteBusy(err error) bool {
	if err == nil {
		return false
	}
	var coder interface{ Code() int }
	if errors.As(err, &coder) && coder.Code() == sqliteBusyCode {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") || strings.Contains(msg, "database is locked")
}

func retryOnBusy(ctx context.Context, op func() error) error {
	delay := busyRetryInitialBackoff
	var lastErr error
	for attempt := 0; attempt < busyRetryAttempts; attempt++ {
		lastErr = op()
		if lastErr == nil {
			return nil
		}
		if !isSQLiteBusy(lastErr) || attempt == busyRetryAttempts-1 {
			break
		}
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
		if next := delay * 2; next <= busyRetryMaxBackoff {
			delay = next
		}
	}
	return lastErr
}

func (s *Store) execWithRetry(ctx context.Context, query string, args ...any) (sql.Result, error) {
	var (
		res     sql.Result
		execErr error
	)
	if err := retryOnBusy(ctx, func() error {
		res, execErr = s.db.ExecContext(ctx, query, args...)
		return execErr
	}); err != nil {
		return nil, err
	}
	return res, nil
}
