package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"todo-cli/internal/model"

	_ "modernc.org/sqlite"
)

var ErrTaskNotFound = errors.New("task not found")

// TaskDB is the SQLite task table behind the mock backend.
type TaskDB struct {
	db   *sql.DB
	path string
}

// OpenTaskDB opens (creating if needed) the task database at path.
// ":memory:" gives a private in-memory database.
func OpenTaskDB(ctx context.Context, path string) (*TaskDB, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, errors.New("task db: empty path")
	}
	memory := path == ":memory:"
	if !memory {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, err
		}
	}
	// modernc.org/sqlite driver name is "sqlite".
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	if memory {
		// Each pooled connection would otherwise see its own empty database.
		db.SetMaxOpenConns(1)
	}
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA foreign_keys=ON;",
		"PRAGMA busy_timeout=5000;",
	}
	for _, p := range pragmas {
		if _, err := db.ExecContext(ctx, p); err != nil {
			_ = db.Close()
			return nil, err
		}
	}
	t := &TaskDB{db: db, path: path}
	if err := t.migrate(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return t, nil
}

func (t *TaskDB) Path() string { return t.path }

func (t *TaskDB) Close() error { return t.db.Close() }

func (t *TaskDB) migrate(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS tasks (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			owner_id INTEGER NOT NULL,
			title TEXT NOT NULL,
			completed INTEGER NOT NULL DEFAULT 0,
			created_at_unixms INTEGER NOT NULL,
			updated_at_unixms INTEGER NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_tasks_owner ON tasks(owner_id, id);`,
	}
	for _, s := range stmts {
		if _, err := t.db.ExecContext(ctx, s); err != nil {
			return fmt.Errorf("migrate task db: %w", err)
		}
	}
	return nil
}

func nowMS() int64 { return time.Now().UTC().UnixMilli() }

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTodo(r rowScanner) (model.Todo, error) {
	var (
		td        model.Todo
		completed int
	)
	if err := r.Scan(&td.ID, &td.OwnerID, &td.Title, &completed); err != nil {
		return model.Todo{}, err
	}
	td.Completed = completed != 0
	return td, nil
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// List returns the owner's tasks in creation order.
func (t *TaskDB) List(ctx context.Context, ownerID int) ([]model.Todo, error) {
	rows, err := t.db.QueryContext(ctx,
		`SELECT id, owner_id, title, completed FROM tasks WHERE owner_id = ? ORDER BY id ASC`, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []model.Todo{}
	for rows.Next() {
		td, err := scanTodo(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, td)
	}
	return out, rows.Err()
}

func (t *TaskDB) Get(ctx context.Context, id int) (model.Todo, error) {
	row := t.db.QueryRowContext(ctx, `SELECT id, owner_id, title, completed FROM tasks WHERE id = ?`, id)
	td, err := scanTodo(row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Todo{}, fmt.Errorf("%w: %d", ErrTaskNotFound, id)
	}
	return td, err
}

func (t *TaskDB) Create(ctx context.Context, in model.NewTodo) (model.Todo, error) {
	now := nowMS()
	res, err := t.db.ExecContext(ctx,
		`INSERT INTO tasks(owner_id, title, completed, created_at_unixms, updated_at_unixms) VALUES(?, ?, ?, ?, ?)`,
		in.OwnerID, in.Title, boolInt(in.Completed), now, now)
	if err != nil {
		return model.Todo{}, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return model.Todo{}, err
	}
	return model.Todo{ID: int(id), OwnerID: in.OwnerID, Title: in.Title, Completed: in.Completed}, nil
}

// Update replaces title, completion and owner of the task with td.ID.
func (t *TaskDB) Update(ctx context.Context, td model.Todo) (model.Todo, error) {
	res, err := t.db.ExecContext(ctx,
		`UPDATE tasks SET owner_id = ?, title = ?, completed = ?, updated_at_unixms = ? WHERE id = ?`,
		td.OwnerID, td.Title, boolInt(td.Completed), nowMS(), td.ID)
	if err != nil {
		return model.Todo{}, err
	}
	if n, err := res.RowsAffected(); err != nil {
		return model.Todo{}, err
	} else if n == 0 {
		return model.Todo{}, fmt.Errorf("%w: %d", ErrTaskNotFound, td.ID)
	}
	return t.Get(ctx, td.ID)
}

func (t *TaskDB) Delete(ctx context.Context, id int) error {
	res, err := t.db.ExecContext(ctx, `DELETE FROM tasks WHERE id = ?`, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%w: %d", ErrTaskNotFound, id)
	}
	return nil
}
