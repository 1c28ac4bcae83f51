package tasks

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func newTempDB(t *testing.T) *SQLiteRepo {
	t.Helper()
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "test.db")
	dsn, err := SQLiteFileDSN(dbPath)
	if err != nil {
		t.Fatalf("dsn error: %v", err)
	}
	repo, err := NewSQLiteRepo(dsn, time.UTC)
	if err != nil {
		t.Fatalf("open error: %v", err)
	}
	t.Cleanup(func() {
		_ = repo.Close()
		_ = os.RemoveAll(dir)
	})
	if err := repo.ApplyMigrations(context.Background()); err != nil {
		t.Fatalf("migrate error: %v", err)
	}
	return repo
}

// seedSQLite inserts a task and forces its status, which the insert path
// cannot choose.
func seedSQLite(t *testing.T, repo *SQLiteRepo, name, status, priority string, due time.Time) int64 {
	t.Helper()
	ctx := context.Background()
	id, err := repo.Create(ctx, NewTask{TaskName: name, Category: "test", DueDate: due, Priority: priority})
	if err != nil {
		t.Fatalf("create %q: %v", name, err)
	}
	if status != DefaultStatus {
		if _, err := repo.UpdateStatus(ctx, id, status); err != nil {
			t.Fatalf("set status %q: %v", status, err)
		}
	}
	return id
}

func TestSQLiteRepo_CreateUsesDefaultStatus(t *testing.T) {
	repo := newTempDB(t)
	ctx := context.Background()

	due := time.Date(2026, 10, 19, 23, 59, 59, 0, time.UTC)
	a, err := repo.Create(ctx, NewTask{TaskName: "first", Category: "home", DueDate: due, Priority: PriorityHigh})
	if err != nil {
		t.Fatalf("create first: %v", err)
	}
	b, err := repo.Create(ctx, NewTask{TaskName: "second", Category: "home", DueDate: due, Priority: PriorityLow})
	if err != nil {
		t.Fatalf("create second: %v", err)
	}
	if b <= a {
		t.Fatalf("expected monotonic IDs: a=%d b=%d", a, b)
	}

	list, err := repo.ListWithStatus(ctx, DefaultStatus)
	if err != nil {
		t.Fatalf("list error: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("expected 2 tasks, got %d", len(list))
	}
	first := list[0]
	if *first.TaskName != "first" || *first.Category != "home" || *first.Priority != PriorityHigh {
		t.Fatalf("bad first task: %+v", first)
	}
	if first.DueDate == nil || !first.DueDate.Equal(due) {
		t.Fatalf("expected due %v, got %v", due, first.DueDate)
	}
}

func TestSQLiteRepo_DueToday(t *testing.T) {
	repo := newTempDB(t)
	ctx := context.Background()

	seedSQLite(t, repo, "low", StatusNotStarted, PriorityLow, testNow.Add(time.Hour))
	seedSQLite(t, repo, "urgent", StatusInProgress, PriorityHigh, testNow.Add(2*time.Hour))
	seedSQLite(t, repo, "medium", StatusNotStarted, PriorityMedium, testNow.Add(3*time.Hour))
	seedSQLite(t, repo, "past", StatusNotStarted, PriorityHigh, testNow.Add(-time.Hour))
	seedSQLite(t, repo, "tomorrow", StatusNotStarted, PriorityHigh, testNow.Add(20*time.Hour))
	seedSQLite(t, repo, "done", StatusDone, PriorityHigh, testNow.Add(time.Hour))
	seedSQLite(t, repo, "unaccented", StatusPending, PriorityHigh, testNow.Add(time.Hour))

	n, err := repo.CountDueToday(ctx, testNow)
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if n != 3 {
		t.Fatalf("expected 3 tasks due today, got %d", n)
	}

	list, err := repo.ListDueToday(ctx, testNow)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 3 {
		t.Fatalf("expected 3 rows, got %d", len(list))
	}
	want := []string{"urgent", "medium", "low"}
	for i, name := range want {
		if *list[i].TaskName != name {
			t.Fatalf("position %d: expected %q, got %q", i, name, *list[i].TaskName)
		}
	}
}

func TestSQLiteRepo_ListByStatusRank(t *testing.T) {
	repo := newTempDB(t)
	due := testNow.Add(time.Hour)

	seedSQLite(t, repo, "done", StatusDone, PriorityLow, due)
	seedSQLite(t, repo, "doing", StatusInProgress, PriorityLow, due)
	seedSQLite(t, repo, "pending", StatusPending, PriorityLow, due)
	seedSQLite(t, repo, "odd", "unknown", PriorityLow, due)

	list, err := repo.ListByStatusRank(context.Background())
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	want := []string{"odd", "pending", "doing", "done"}
	if len(list) != len(want) {
		t.Fatalf("expected %d rows, got %d", len(want), len(list))
	}
	for i, name := range want {
		if *list[i].TaskName != name {
			t.Fatalf("position %d: expected %q, got %q", i, name, *list[i].TaskName)
		}
	}
}

func TestSQLiteRepo_UpdateOverwritesWithNulls(t *testing.T) {
	repo := newTempDB(t)
	ctx := context.Background()
	id := seedSQLite(t, repo, "original", StatusInProgress, PriorityHigh, testNow.Add(time.Hour))

	n, err := repo.Update(ctx, id, TaskUpdate{TaskName: ptr("renamed"), Status: ptr(StatusDone)})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected 1 affected row, got %d", n)
	}

	list, err := repo.ListWithStatus(ctx, StatusDone)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 1 {
		t.Fatalf("expected 1 done task, got %d", len(list))
	}
	got := list[0]
	if *got.TaskName != "renamed" {
		t.Fatalf("expected renamed task, got %q", *got.TaskName)
	}
	if got.Category != nil || got.DueDate != nil || got.Priority != nil {
		t.Fatalf("expected absent fields to be NULL, got %+v", got)
	}

	n, err = repo.Update(ctx, id+100, TaskUpdate{})
	if err != nil {
		t.Fatalf("update missing: %v", err)
	}
	if n != 0 {
		t.Fatalf("expected 0 affected rows for missing id, got %d", n)
	}
}

func TestSQLiteRepo_UpdateStatusMissingRow(t *testing.T) {
	repo := newTempDB(t)
	ctx := context.Background()
	id := seedSQLite(t, repo, "keep", StatusInProgress, PriorityLow, testNow.Add(time.Hour))

	n, err := repo.UpdateStatus(ctx, id+1, StatusDone)
	if err != nil {
		t.Fatalf("update status: %v", err)
	}
	if n != 0 {
		t.Fatalf("expected 0 affected rows, got %d", n)
	}

	list, err := repo.ListWithStatus(ctx, StatusInProgress)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 1 || list[0].ID != id {
		t.Fatalf("expected the existing row untouched, got %+v", list)
	}
}

func TestSQLiteRepo_Ping(t *testing.T) {
	repo := newTempDB(t)
	if err := repo.Ping(context.Background()); err != nil {
		t.Fatalf("ping: %v", err)
	}
}
