package tasks

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// SQLiteRepo stores due dates as "YYYY-MM-DD HH:MM:SS" text in loc, so date
// arithmetic and ordering work on plain string comparison.
type SQLiteRepo struct {
	db  *sql.DB
	loc *time.Location
}

func NewSQLiteRepo(dsn string, loc *time.Location) (*SQLiteRepo, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	// Reasonable pragmas for an app server
	if _, err := db.Exec(`
		PRAGMA journal_mode=WAL;
		PRAGMA synchronous=NORMAL;
		PRAGMA foreign_keys=ON;
	`); err != nil {
		_ = db.Close()
		return nil, err
	}
	if loc == nil {
		loc = time.Local
	}
	return &SQLiteRepo{db: db, loc: loc}, nil
}

func (r *SQLiteRepo) Close() error { return r.db.Close() }

func (r *SQLiteRepo) Ping(ctx context.Context) error { return r.db.PingContext(ctx) }

const sqliteDueTodayFilter = `
	WHERE date(due_date) = ?
	  AND due_date > ?
	  AND status IN (?, ?)
`

func (r *SQLiteRepo) dueTodayArgs(now time.Time) []any {
	now = now.In(r.loc)
	return []any{
		now.Format(time.DateOnly),
		now.Format(dateTimeLayout),
		dueTodayStatuses[0], dueTodayStatuses[1],
	}
}

func (r *SQLiteRepo) CountDueToday(ctx context.Context, now time.Time) (n int, err error) {
	ctx, done := startQuery(ctx, DriverSQLite, "count_due_today")
	defer func() { done(err) }()

	err = r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM tasks`+sqliteDueTodayFilter, r.dueTodayArgs(now)...).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count tasks due today: %w", err)
	}
	return n, nil
}

func (r *SQLiteRepo) ListDueToday(ctx context.Context, now time.Time) (out []Task, err error) {
	ctx, done := startQuery(ctx, DriverSQLite, "list_due_today")
	defer func() { done(err) }()

	args := append(r.dueTodayArgs(now), PriorityHigh, PriorityMedium, PriorityLow)
	out, err = r.query(ctx, `
		SELECT id, task_name, category, due_date, status, priority
		FROM tasks`+sqliteDueTodayFilter+`
		ORDER BY CASE priority WHEN ? THEN 1 WHEN ? THEN 2 WHEN ? THEN 3 ELSE 0 END, id
	`, args...)
	if err != nil {
		return nil, fmt.Errorf("list tasks due today: %w", err)
	}
	return out, nil
}

func (r *SQLiteRepo) ListByStatusRank(ctx context.Context) (out []Task, err error) {
	ctx, done := startQuery(ctx, DriverSQLite, "list_by_status_rank")
	defer func() { done(err) }()

	out, err = r.query(ctx, `
		SELECT id, task_name, category, due_date, status, priority
		FROM tasks
		ORDER BY CASE status WHEN ? THEN 1 WHEN ? THEN 2 WHEN ? THEN 3 ELSE 0 END, id
	`, statusBuckets[0], statusBuckets[1], statusBuckets[2])
	if err != nil {
		return nil, fmt.Errorf("list tasks by status: %w", err)
	}
	return out, nil
}

func (r *SQLiteRepo) ListWithStatus(ctx context.Context, status string) (out []Task, err error) {
	ctx, done := startQuery(ctx, DriverSQLite, "list_with_status")
	defer func() { done(err) }()

	out, err = r.query(ctx, `
		SELECT id, task_name, category, due_date, status, priority
		FROM tasks
		WHERE status = ?
		ORDER BY id
	`, status)
	if err != nil {
		return nil, fmt.Errorf("list tasks with status %q: %w", status, err)
	}
	return out, nil
}

func (r *SQLiteRepo) Create(ctx context.Context, t NewTask) (id int64, err error) {
	ctx, done := startQuery(ctx, DriverSQLite, "create")
	defer func() { done(err) }()

	res, err := r.db.ExecContext(ctx, `
		INSERT INTO tasks (task_name, category, due_date, priority)
		VALUES (?, ?, ?, ?)
	`, t.TaskName, t.Category, t.DueDate.In(r.loc).Format(dateTimeLayout), t.Priority)
	if err != nil {
		return 0, fmt.Errorf("insert task: %w", err)
	}
	id, err = res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("insert task: %w", err)
	}
	return id, nil
}

func (r *SQLiteRepo) Update(ctx context.Context, id int64, u TaskUpdate) (n int64, err error) {
	ctx, done := startQuery(ctx, DriverSQLite, "update")
	defer func() { done(err) }()

	var due any
	if u.DueDate != nil {
		due = u.DueDate.In(r.loc).Format(dateTimeLayout)
	}
	res, err := r.db.ExecContext(ctx, `
		UPDATE tasks
		SET task_name = ?,
		    category = ?,
		    due_date = ?,
		    status = ?,
		    priority = ?
		WHERE id = ?
	`, u.TaskName, u.Category, due, u.Status, u.Priority, id)
	if err != nil {
		return 0, fmt.Errorf("update task %d: %w", id, err)
	}
	return res.RowsAffected()
}

func (r *SQLiteRepo) UpdateStatus(ctx context.Context, id int64, status string) (n int64, err error) {
	ctx, done := startQuery(ctx, DriverSQLite, "update_status")
	defer func() { done(err) }()

	res, err := r.db.ExecContext(ctx, `UPDATE tasks SET status = ? WHERE id = ?`, status, id)
	if err != nil {
		return 0, fmt.Errorf("update status of task %d: %w", id, err)
	}
	return res.RowsAffected()
}

func (r *SQLiteRepo) query(ctx context.Context, q string, args ...any) ([]Task, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Task{}
	for rows.Next() {
		var (
			t                                     Task
			name, category, due, status, priority sql.NullString
		)
		if err := rows.Scan(&t.ID, &name, &category, &due, &status, &priority); err != nil {
			return nil, err
		}
		t.TaskName = fromNull(name)
		t.Category = fromNull(category)
		t.Status = fromNull(status)
		t.Priority = fromNull(priority)
		if due.Valid {
			if ts, err := time.ParseInLocation(dateTimeLayout, due.String, r.loc); err == nil {
				t.DueDate = &ts
			}
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// ApplyMigrations ensures schema exists
func (r *SQLiteRepo) ApplyMigrations(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, `
CREATE TABLE IF NOT EXISTS tasks (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	task_name TEXT,
	category TEXT,
	due_date TEXT,
	status TEXT DEFAULT '`+DefaultStatus+`',
	priority TEXT
);
CREATE INDEX IF NOT EXISTS idx_tasks_status ON tasks (status);
	`)
	return err
}

// Helper to build DSN like: file:/absolute/path?_pragma=busy_timeout(5000)
func SQLiteFileDSN(path string) (string, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", err
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	return "file:" + filepath.ToSlash(abs) + "?_pragma=busy_timeout(5000)", nil
}

func fromNull(s sql.NullString) *string {
	if !s.Valid {
		return nil
	}
	return &s.String
}
