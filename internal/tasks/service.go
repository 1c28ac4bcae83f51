package tasks

import (
	"context"
	"errors"
	"time"
)

// Service validates input and runs the single repository call behind each
// route. It never retries.
type Service struct {
	repo Repository
	now  func() time.Time
	loc  *time.Location
}

type Option func(*Service)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithLocation sets the zone that defines "today" and interprets due dates.
func WithLocation(loc *time.Location) Option {
	return func(s *Service) { s.loc = loc }
}

func NewService(repo Repository, opts ...Option) *Service {
	s := &Service{
		repo: repo,
		now:  time.Now,
		loc:  time.Local,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) clock() time.Time { return s.now().In(s.loc) }

// CreateInput is the body of a create request.
type CreateInput struct {
	TaskName string `json:"task_name"`
	Category string `json:"category"`
	DueDate  string `json:"due_date"`
	DueTime  string `json:"due_time"`
	Priority string `json:"priority"`
}

// UpdateInput is the body of a full update. Absent fields are nil and
// overwrite the stored value with NULL.
type UpdateInput struct {
	TaskName *string `json:"task_name"`
	Category *string `json:"category"`
	DueDate  *string `json:"due_date"`
	Status   *string `json:"status"`
	Priority *string `json:"priority"`
}

func (s *Service) CountDueToday(ctx context.Context) (int, error) {
	return s.repo.CountDueToday(ctx, s.clock())
}

func (s *Service) ListDueToday(ctx context.Context) ([]Task, error) {
	return s.repo.ListDueToday(ctx, s.clock())
}

// Update overwrites all mutable fields of id. A missing id is not an error.
func (s *Service) Update(ctx context.Context, id int64, in UpdateInput) error {
	u := TaskUpdate{
		TaskName: in.TaskName,
		Category: in.Category,
		Status:   in.Status,
		Priority: in.Priority,
	}
	if in.DueDate != nil {
		due, err := parseUpdateDueDate(*in.DueDate, s.loc)
		if err != nil {
			taskValidationFailuresTotal.WithLabelValues("due_date").Inc()
			return err
		}
		u.DueDate = &due
	}

	_, err := s.repo.Update(ctx, id, u)
	return err
}

// GroupByStatus partitions every task into the three status buckets. Rows
// with any other status are left out.
func (s *Service) GroupByStatus(ctx context.Context) (map[string][]Task, error) {
	rows, err := s.repo.ListByStatusRank(ctx)
	if err != nil {
		return nil, err
	}

	groups := make(map[string][]Task, len(statusBuckets))
	for _, b := range statusBuckets {
		groups[b] = []Task{}
	}
	for _, t := range rows {
		if t.Status == nil {
			continue
		}
		if bucket, ok := groups[*t.Status]; ok {
			groups[*t.Status] = append(bucket, t)
		}
	}
	return groups, nil
}

// Create validates in and inserts a task with the default status. The due
// time defaults to the end of the due day.
func (s *Service) Create(ctx context.Context, in CreateInput) (int64, error) {
	if err := validatePriority(in.Priority); err != nil {
		taskValidationFailuresTotal.WithLabelValues("priority").Inc()
		return 0, err
	}

	due, err := validateDueDate(in.DueDate, in.DueTime, s.clock())
	if err != nil {
		reason := "due_date"
		if errors.Is(err, ErrDueDateInPast) {
			reason = "due_date_past"
		}
		taskValidationFailuresTotal.WithLabelValues(reason).Inc()
		return 0, err
	}

	id, err := s.repo.Create(ctx, NewTask{
		TaskName: in.TaskName,
		Category: in.Category,
		DueDate:  due,
		Priority: in.Priority,
	})
	if err != nil {
		return 0, err
	}
	tasksCreatedTotal.Inc()
	return id, nil
}

// UpdateStatus sets the status of id. Any allowed status may replace any
// other.
func (s *Service) UpdateStatus(ctx context.Context, id int64, status string) error {
	if err := validateStatus(status); err != nil {
		taskValidationFailuresTotal.WithLabelValues("status").Inc()
		return err
	}

	n, err := s.repo.UpdateStatus(ctx, id, status)
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	taskStatusUpdatesTotal.WithLabelValues(status).Inc()
	return nil
}

// History returns the done tasks.
func (s *Service) History(ctx context.Context) ([]Task, error) {
	return s.repo.ListWithStatus(ctx, StatusDone)
}

func (s *Service) Ping(ctx context.Context) error {
	return s.repo.Ping(ctx)
}
