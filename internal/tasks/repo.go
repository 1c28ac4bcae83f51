package tasks

import (
	"cmp"
	"context"
	"slices"
	"sync"
	"time"
)

// Repository runs one statement per call against the tasks table.
type Repository interface {
	// CountDueToday counts open tasks due later today, relative to now.
	CountDueToday(ctx context.Context, now time.Time) (int, error)
	// ListDueToday returns the same rows ordered by priority rank.
	ListDueToday(ctx context.Context, now time.Time) ([]Task, error)
	// ListByStatusRank returns every row ordered by status rank.
	ListByStatusRank(ctx context.Context) ([]Task, error)
	// ListWithStatus returns the rows whose status equals status exactly.
	ListWithStatus(ctx context.Context, status string) ([]Task, error)
	Create(ctx context.Context, t NewTask) (int64, error)
	// Update overwrites every mutable column and reports the affected rows.
	Update(ctx context.Context, id int64, u TaskUpdate) (int64, error)
	UpdateStatus(ctx context.Context, id int64, status string) (int64, error)
	Ping(ctx context.Context) error
	Close() error
}

type InMemoryRepo struct {
	mu    sync.Mutex
	seq   int64
	store map[int64]Task
}

func NewInMemoryRepo() *InMemoryRepo {
	return &InMemoryRepo{
		store: make(map[int64]Task),
	}
}

func (r *InMemoryRepo) CountDueToday(ctx context.Context, now time.Time) (n int, err error) {
	_, done := startQuery(ctx, DriverMemory, "count_due_today")
	defer func() { done(err) }()

	r.mu.Lock()
	defer r.mu.Unlock()

	for _, t := range r.store {
		if dueLaterToday(t, now) {
			n++
		}
	}
	return n, nil
}

func (r *InMemoryRepo) ListDueToday(ctx context.Context, now time.Time) (out []Task, err error) {
	_, done := startQuery(ctx, DriverMemory, "list_due_today")
	defer func() { done(err) }()

	r.mu.Lock()
	defer r.mu.Unlock()

	out = []Task{}
	for _, t := range r.store {
		if dueLaterToday(t, now) {
			out = append(out, t)
		}
	}
	sortByRank(out, func(t Task) int { return priorityRank(t.Priority) })
	return out, nil
}

func (r *InMemoryRepo) ListByStatusRank(ctx context.Context) (out []Task, err error) {
	_, done := startQuery(ctx, DriverMemory, "list_by_status_rank")
	defer func() { done(err) }()

	r.mu.Lock()
	defer r.mu.Unlock()

	out = make([]Task, 0, len(r.store))
	for _, t := range r.store {
		out = append(out, t)
	}
	sortByRank(out, func(t Task) int { return statusRank(t.Status) })
	return out, nil
}

func (r *InMemoryRepo) ListWithStatus(ctx context.Context, status string) (out []Task, err error) {
	_, done := startQuery(ctx, DriverMemory, "list_with_status")
	defer func() { done(err) }()

	r.mu.Lock()
	defer r.mu.Unlock()

	out = []Task{}
	for _, t := range r.store {
		if t.Status != nil && *t.Status == status {
			out = append(out, t)
		}
	}
	slices.SortFunc(out, func(a, b Task) int { return cmp.Compare(a.ID, b.ID) })
	return out, nil
}

func (r *InMemoryRepo) Create(ctx context.Context, nt NewTask) (id int64, err error) {
	_, done := startQuery(ctx, DriverMemory, "create")
	defer func() { done(err) }()

	r.mu.Lock()
	defer r.mu.Unlock()

	r.seq++
	due := nt.DueDate
	t := Task{
		ID:       r.seq,
		TaskName: ptr(nt.TaskName),
		Category: ptr(nt.Category),
		DueDate:  &due,
		Status:   ptr(DefaultStatus),
		Priority: ptr(nt.Priority),
	}
	r.store[t.ID] = t
	return t.ID, nil
}

func (r *InMemoryRepo) Update(ctx context.Context, id int64, u TaskUpdate) (n int64, err error) {
	_, done := startQuery(ctx, DriverMemory, "update")
	defer func() { done(err) }()

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.store[id]; !ok {
		return 0, nil
	}
	r.store[id] = Task{
		ID:       id,
		TaskName: u.TaskName,
		Category: u.Category,
		DueDate:  u.DueDate,
		Status:   u.Status,
		Priority: u.Priority,
	}
	return 1, nil
}

func (r *InMemoryRepo) UpdateStatus(ctx context.Context, id int64, status string) (n int64, err error) {
	_, done := startQuery(ctx, DriverMemory, "update_status")
	defer func() { done(err) }()

	r.mu.Lock()
	defer r.mu.Unlock()

	t, ok := r.store[id]
	if !ok {
		return 0, nil
	}
	t.Status = ptr(status)
	r.store[id] = t
	return 1, nil
}

// Insert stores t as is, keeping its ID when set. It exists to seed rows a
// client cannot create through the API, such as unknown statuses.
func (r *InMemoryRepo) Insert(t Task) Task {
	r.mu.Lock()
	defer r.mu.Unlock()

	if t.ID == 0 {
		r.seq++
		t.ID = r.seq
	} else if t.ID > r.seq {
		r.seq = t.ID
	}
	r.store[t.ID] = t
	return t
}

// Get returns the stored row for id.
func (r *InMemoryRepo) Get(id int64) (Task, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.store[id]
	return t, ok
}

func (r *InMemoryRepo) Ping(context.Context) error { return nil }

func (r *InMemoryRepo) Close() error { return nil }

func dueLaterToday(t Task, now time.Time) bool {
	if t.DueDate == nil || t.Status == nil || !slices.Contains(dueTodayStatuses, *t.Status) {
		return false
	}
	due := t.DueDate.In(now.Location())
	y1, m1, d1 := due.Date()
	y2, m2, d2 := now.Date()
	return y1 == y2 && m1 == m2 && d1 == d2 && due.After(now)
}

// sortByRank orders rows by rank, then id, matching the ORDER BY of the SQL
// repositories.
func sortByRank(rows []Task, rank func(Task) int) {
	slices.SortFunc(rows, func(a, b Task) int {
		if c := cmp.Compare(rank(a), rank(b)); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
}

func ptr[T any](v T) *T { return &v }
