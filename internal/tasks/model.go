package tasks

import "time"

// Task mirrors a row of the tasks table. Every column except id is nullable
// because a full update overwrites fields with whatever the client sent.
type Task struct {
	ID       int64      `json:"id"`
	TaskName *string    `json:"task_name"`
	Category *string    `json:"category"`
	DueDate  *time.Time `json:"due_date"`
	Status   *string    `json:"status"`
	Priority *string    `json:"priority"`
}

// NewTask is the validated input of an insert.
type NewTask struct {
	TaskName string
	Category string
	DueDate  time.Time
	Priority string
}

// TaskUpdate carries the full field set of an update. Nil fields are written
// as NULL.
type TaskUpdate struct {
	TaskName *string
	Category *string
	DueDate  *time.Time
	Status   *string
	Priority *string
}

const (
	PriorityLow    = "moins important"
	PriorityMedium = "important"
	PriorityHigh   = "urgent"
)

// Status literals are not spelled the same everywhere. The insert default and
// the due-today filter use the accented "pas commencé"; the status route,
// the grouping buckets and the history filter use unaccented spellings.
const (
	StatusNotStarted = "pas commencé"
	StatusInProgress = "en cours"

	StatusPending   = "pas commence"
	StatusDone      = "termine"
	StatusCancelled = "annule"
)

// DefaultStatus is stored by the schema when a task is inserted.
const DefaultStatus = StatusNotStarted

// dueTodayStatuses are the statuses counted by the due-today queries.
var dueTodayStatuses = []string{StatusNotStarted, StatusInProgress}

// statusBuckets are the keys of the grouped-by-status response, in rank order.
var statusBuckets = []string{StatusPending, StatusInProgress, StatusDone}

// dateTimeLayout is the storage and input layout for due dates.
const dateTimeLayout = time.DateTime

func priorityRank(p *string) int {
	if p == nil {
		return 0
	}
	switch *p {
	case PriorityHigh:
		return 1
	case PriorityMedium:
		return 2
	case PriorityLow:
		return 3
	}
	return 0
}

func statusRank(s *string) int {
	if s == nil {
		return 0
	}
	for i, b := range statusBuckets {
		if *s == b {
			return i + 1
		}
	}
	return 0
}
