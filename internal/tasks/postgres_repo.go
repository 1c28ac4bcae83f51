package tasks

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresRepo keeps due dates in a timestamp (without time zone) column
// holding wall-clock time in loc.
type PostgresRepo struct {
	pool *pgxpool.Pool
	loc  *time.Location
}

func NewPostgresRepo(ctx context.Context, dsn string, loc *time.Location) (*PostgresRepo, error) {
	poolCfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse postgres config: %w", err)
	}
	poolCfg.MaxConns = 10
	poolCfg.MinConns = 1
	poolCfg.MaxConnIdleTime = time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	if loc == nil {
		loc = time.Local
	}
	return &PostgresRepo{pool: pool, loc: loc}, nil
}

func (r *PostgresRepo) Close() error {
	r.pool.Close()
	return nil
}

func (r *PostgresRepo) Ping(ctx context.Context) error { return r.pool.Ping(ctx) }

// wallClock drops the zone of t after moving it to loc, so the driver
// writes the local wall-clock value into the timestamp column.
func (r *PostgresRepo) wallClock(t time.Time) time.Time {
	t = t.In(r.loc)
	return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), time.UTC)
}

const pgDueTodayFilter = `
	WHERE due_date::date = $1::date
	  AND due_date > $2
	  AND status IN ($3, $4)
`

func (r *PostgresRepo) dueTodayArgs(now time.Time) []any {
	wall := r.wallClock(now)
	return []any{wall, wall, dueTodayStatuses[0], dueTodayStatuses[1]}
}

func (r *PostgresRepo) CountDueToday(ctx context.Context, now time.Time) (n int, err error) {
	ctx, done := startQuery(ctx, DriverPostgres, "count_due_today")
	defer func() { done(err) }()

	err = r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM tasks`+pgDueTodayFilter, r.dueTodayArgs(now)...).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count tasks due today: %w", err)
	}
	return n, nil
}

func (r *PostgresRepo) ListDueToday(ctx context.Context, now time.Time) (out []Task, err error) {
	ctx, done := startQuery(ctx, DriverPostgres, "list_due_today")
	defer func() { done(err) }()

	args := append(r.dueTodayArgs(now), PriorityHigh, PriorityMedium, PriorityLow)
	out, err = r.query(ctx, `
		SELECT id, task_name, category, due_date, status, priority
		FROM tasks`+pgDueTodayFilter+`
		ORDER BY CASE priority WHEN $5 THEN 1 WHEN $6 THEN 2 WHEN $7 THEN 3 ELSE 0 END, id
	`, args...)
	if err != nil {
		return nil, fmt.Errorf("list tasks due today: %w", err)
	}
	return out, nil
}

func (r *PostgresRepo) ListByStatusRank(ctx context.Context) (out []Task, err error) {
	ctx, done := startQuery(ctx, DriverPostgres, "list_by_status_rank")
	defer func() { done(err) }()

	out, err = r.query(ctx, `
		SELECT id, task_name, category, due_date, status, priority
		FROM tasks
		ORDER BY CASE status WHEN $1 THEN 1 WHEN $2 THEN 2 WHEN $3 THEN 3 ELSE 0 END, id
	`, statusBuckets[0], statusBuckets[1], statusBuckets[2])
	if err != nil {
		return nil, fmt.Errorf("list tasks by status: %w", err)
	}
	return out, nil
}

func (r *PostgresRepo) ListWithStatus(ctx context.Context, status string) (out []Task, err error) {
	ctx, done := startQuery(ctx, DriverPostgres, "list_with_status")
	defer func() { done(err) }()

	out, err = r.query(ctx, `
		SELECT id, task_name, category, due_date, status, priority
		FROM tasks
		WHERE status = $1
		ORDER BY id
	`, status)
	if err != nil {
		return nil, fmt.Errorf("list tasks with status %q: %w", status, err)
	}
	return out, nil
}

func (r *PostgresRepo) Create(ctx context.Context, t NewTask) (id int64, err error) {
	ctx, done := startQuery(ctx, DriverPostgres, "create")
	defer func() { done(err) }()

	err = r.pool.QueryRow(ctx, `
		INSERT INTO tasks (task_name, category, due_date, priority)
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`, t.TaskName, t.Category, r.wallClock(t.DueDate), t.Priority).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert task: %w", err)
	}
	return id, nil
}

func (r *PostgresRepo) Update(ctx context.Context, id int64, u TaskUpdate) (n int64, err error) {
	ctx, done := startQuery(ctx, DriverPostgres, "update")
	defer func() { done(err) }()

	var due *time.Time
	if u.DueDate != nil {
		wall := r.wallClock(*u.DueDate)
		due = &wall
	}
	tag, err := r.pool.Exec(ctx, `
		UPDATE tasks
		SET task_name = $1,
		    category = $2,
		    due_date = $3,
		    status = $4,
		    priority = $5
		WHERE id = $6
	`, u.TaskName, u.Category, due, u.Status, u.Priority, id)
	if err != nil {
		return 0, fmt.Errorf("update task %d: %w", id, err)
	}
	return tag.RowsAffected(), nil
}

func (r *PostgresRepo) UpdateStatus(ctx context.Context, id int64, status string) (n int64, err error) {
	ctx, done := startQuery(ctx, DriverPostgres, "update_status")
	defer func() { done(err) }()

	tag, err := r.pool.Exec(ctx, `UPDATE tasks SET status = $1 WHERE id = $2`, status, id)
	if err != nil {
		return 0, fmt.Errorf("update status of task %d: %w", id, err)
	}
	return tag.RowsAffected(), nil
}

func (r *PostgresRepo) query(ctx context.Context, q string, args ...any) ([]Task, error) {
	rows, err := r.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Task{}
	for rows.Next() {
		var (
			t   Task
			due pgtype.Timestamp
		)
		if err := rows.Scan(&t.ID, &t.TaskName, &t.Category, &due, &t.Status, &t.Priority); err != nil {
			return nil, err
		}
		if due.Valid {
			w := due.Time
			ts := time.Date(w.Year(), w.Month(), w.Day(), w.Hour(), w.Minute(), w.Second(), w.Nanosecond(), r.loc)
			t.DueDate = &ts
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// ApplyMigrations ensures schema exists
func (r *PostgresRepo) ApplyMigrations(ctx context.Context) error {
	_, err := r.pool.Exec(ctx, `
CREATE TABLE IF NOT EXISTS tasks (
	id BIGSERIAL PRIMARY KEY,
	task_name TEXT,
	category TEXT,
	due_date TIMESTAMP,
	status TEXT DEFAULT '`+DefaultStatus+`',
	priority TEXT
);
CREATE INDEX IF NOT EXISTS idx_tasks_status ON tasks (status);
	`)
	return err
}

var _ Repository = (*PostgresRepo)(nil)
