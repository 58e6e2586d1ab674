// Package sqlstore provides a SQLite implementation of the task and project repositories.
package sqlstore

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/runoshun/git-sprout/internal/domain"
)

//go:embed migrations/001_initial_schema.sql
var migrationV1 string

// Store implements domain.TaskRepository and domain.ProjectRepository on SQLite.
type Store struct {
	db   *sql.DB
	path string
}

// Ensure Store implements the repository interfaces.
var (
	_ domain.TaskRepository    = (*Store)(nil)
	_ domain.ProjectRepository = (*Store)(nil)
)

// Open opens (creating if needed) the database at path and applies migrations.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return nil, fmt.Errorf("creating store directory: %w", err)
	}

	// WAL lets readers proceed while another invocation writes
	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Store{db: db, path: path}
	if err := s.migrate(); err != nil {
		if closeErr := db.Close(); closeErr != nil {
			return nil, fmt.Errorf("running migrations: %w (close error: %v)", err, closeErr)
		}
		return nil, fmt.Errorf("running migrations: %w", err)
	}
	return s, nil
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate runs pending migrations.
func (s *Store) migrate() error {
	var version int
	err := s.db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations").Scan(&version)
	if err != nil {
		// Table doesn't exist yet
		version = 0
	}

	if version < 1 {
		if _, err := s.db.Exec(migrationV1); err != nil {
			return fmt.Errorf("applying migration v1: %w", err)
		}
	}
	return nil
}

const taskColumns = `id, project_path, project_name, name, description, workspace_path,
	branch, base_branch, status, created_at, completed_at, merged_at, metadata`

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanTask(row rowScanner) (*domain.Task, error) {
	var (
		task              domain.Task
		status, metadata  string
		created           int64
		completed, merged sql.NullInt64
	)
	if err := row.Scan(
		&task.ID, &task.ProjectPath, &task.ProjectName, &task.Name, &task.Description,
		&task.WorkspacePath, &task.Branch, &task.BaseBranch, &status,
		&created, &completed, &merged, &metadata,
	); err != nil {
		return nil, err
	}

	task.Status = domain.Status(status)
	task.CreatedAt = time.Unix(0, created)
	task.CompletedAt = fromNullTime(completed)
	task.MergedAt = fromNullTime(merged)
	if metadata != "" {
		if err := json.Unmarshal([]byte(metadata), &task.Metadata); err != nil {
			return nil, fmt.Errorf("decode metadata of task %s: %w", task.ID, err)
		}
	}
	return &task, nil
}

func toNullTime(t *time.Time) sql.NullInt64 {
	if t == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: t.UnixNano(), Valid: true}
}

func fromNullTime(v sql.NullInt64) *time.Time {
	if !v.Valid {
		return nil
	}
	t := time.Unix(0, v.Int64)
	return &t
}

func encodeMetadata(m domain.TaskMetadata) (string, error) {
	b, err := json.Marshal(m)
	if err != nil {
		return "", fmt.Errorf("encode metadata: %w", err)
	}
	return string(b), nil
}

// Get retrieves a task by ID. Returns nil if not found.
func (s *Store) Get(ctx context.Context, id string) (*domain.Task, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+taskColumns+" FROM tasks WHERE id = ?", id)
	task, err := scanTask(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get task %s: %w", id, err)
	}
	return task, nil
}

// List retrieves tasks matching the filter, newest first.
func (s *Store) List(ctx context.Context, filter domain.TaskFilter) ([]*domain.Task, error) {
	var (
		where []string
		args  []any
	)
	if filter.ProjectPath != "" {
		where = append(where, "project_path = ?")
		args = append(args, filter.ProjectPath)
	}
	if len(filter.Statuses) > 0 {
		placeholders := make([]string, len(filter.Statuses))
		for i, st := range filter.Statuses {
			placeholders[i] = "?"
			args = append(args, string(st))
		}
		where = append(where, "status IN ("+strings.Join(placeholders, ", ")+")")
	}
	if filter.Ref != "" {
		where = append(where, "(name = ? OR substr(id, 1, length(?)) = ?)")
		args = append(args, filter.Ref, filter.Ref, filter.Ref)
	}

	query := "SELECT " + taskColumns + " FROM tasks"
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY created_at DESC, id DESC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	defer rows.Close()

	var tasks []*domain.Task
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("list tasks: %w", err)
		}
		tasks = append(tasks, task)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	return tasks, nil
}

// Create inserts a task and increments its project's task count.
func (s *Store) Create(ctx context.Context, task *domain.Task) error {
	metadata, err := encodeMetadata(task.Metadata)
	if err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx, "INSERT INTO tasks ("+taskColumns+") VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)",
		task.ID, task.ProjectPath, task.ProjectName, task.Name, task.Description,
		task.WorkspacePath, task.Branch, task.BaseBranch, string(task.Status),
		task.CreatedAt.UnixNano(), toNullTime(task.CompletedAt), toNullTime(task.MergedAt), metadata,
	)
	if err != nil {
		return fmt.Errorf("insert task %s: %w", task.ID, err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO projects (path, name, last_used, task_count) VALUES (?, ?, ?, 1)
		ON CONFLICT(path) DO UPDATE SET task_count = task_count + 1
	`, task.ProjectPath, task.ProjectName, task.CreatedAt.UnixNano())
	if err != nil {
		return fmt.Errorf("increment task count: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

// Update persists status, timestamps and metadata of an existing task.
func (s *Store) Update(ctx context.Context, task *domain.Task) error {
	metadata, err := encodeMetadata(task.Metadata)
	if err != nil {
		return err
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE tasks SET status = ?, completed_at = ?, merged_at = ?, metadata = ?
		WHERE id = ?
	`, string(task.Status), toNullTime(task.CompletedAt), toNullTime(task.MergedAt), metadata, task.ID)
	if err != nil {
		return fmt.Errorf("update task %s: %w", task.ID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update task %s: %w", task.ID, err)
	}
	if n == 0 {
		return fmt.Errorf("update task %s: %w", task.ID, domain.ErrTaskNotFound)
	}
	return nil
}

// Delete removes a task and decrements its project's task count.
func (s *Store) Delete(ctx context.Context, id string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var projectPath string
	err = tx.QueryRowContext(ctx, "SELECT project_path FROM tasks WHERE id = ?", id).Scan(&projectPath)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("delete task %s: %w", id, domain.ErrTaskNotFound)
	}
	if err != nil {
		return fmt.Errorf("delete task %s: %w", id, err)
	}

	if _, err := tx.ExecContext(ctx, "DELETE FROM tasks WHERE id = ?", id); err != nil {
		return fmt.Errorf("delete task %s: %w", id, err)
	}
	if _, err := tx.ExecContext(ctx,
		"UPDATE projects SET task_count = MAX(task_count - 1, 0) WHERE path = ?", projectPath); err != nil {
		return fmt.Errorf("decrement task count: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

const projectColumns = "path, name, last_used, default_branch, task_count"

func scanProject(row rowScanner) (*domain.Project, error) {
	var (
		p        domain.Project
		lastUsed int64
	)
	if err := row.Scan(&p.Path, &p.Name, &lastUsed, &p.DefaultBranch, &p.TaskCount); err != nil {
		return nil, err
	}
	p.LastUsed = time.Unix(0, lastUsed)
	return &p, nil
}

// SaveProject inserts or updates a project. TaskCount is never overwritten.
func (s *Store) SaveProject(ctx context.Context, project *domain.Project) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO projects (path, name, last_used, default_branch, task_count) VALUES (?, ?, ?, ?, 0)
		ON CONFLICT(path) DO UPDATE SET
			name = excluded.name,
			last_used = excluded.last_used,
			default_branch = excluded.default_branch
	`, project.Path, project.Name, project.LastUsed.UnixNano(), project.DefaultBranch)
	if err != nil {
		return fmt.Errorf("save project %s: %w", project.Path, err)
	}
	return nil
}

// GetProject retrieves a project by root path. Returns nil if not found.
func (s *Store) GetProject(ctx context.Context, path string) (*domain.Project, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+projectColumns+" FROM projects WHERE path = ?", path)
	p, err := scanProject(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get project %s: %w", path, err)
	}
	return p, nil
}

// FindProjects returns projects whose display name equals name, most recently used first.
func (s *Store) FindProjects(ctx context.Context, name string) ([]*domain.Project, error) {
	return s.queryProjects(ctx, "SELECT "+projectColumns+" FROM projects WHERE name = ? ORDER BY last_used DESC", name)
}

// ListProjects returns every project, most recently used first.
func (s *Store) ListProjects(ctx context.Context) ([]*domain.Project, error) {
	return s.queryProjects(ctx, "SELECT "+projectColumns+" FROM projects ORDER BY last_used DESC")
}

func (s *Store) queryProjects(ctx context.Context, query string, args ...any) ([]*domain.Project, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}
	defer rows.Close()

	var projects []*domain.Project
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, fmt.Errorf("list projects: %w", err)
		}
		projects = append(projects, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}
	return projects, nil
}
