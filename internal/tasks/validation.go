package tasks

import (
	"errors"
	"slices"
	"strings"
	"time"
)

var (
	ErrInvalidPriority = errors.New("invalid priority")
	ErrInvalidDueDate  = errors.New("invalid due date")
	ErrDueDateInPast   = errors.New("due date in the past")
	ErrInvalidStatus   = errors.New("invalid status")
	ErrNotFound        = errors.New("task not found")
)

var validPriorities = []string{PriorityLow, PriorityMedium, PriorityHigh}

var validStatuses = []string{StatusPending, StatusInProgress, StatusDone, StatusCancelled}

// endOfDay is used when a task is created without a due time.
const endOfDay = "23:59:59"

func validatePriority(p string) error {
	if !slices.Contains(validPriorities, p) {
		return ErrInvalidPriority
	}
	return nil
}

func validateStatus(s string) error {
	if !slices.Contains(validStatuses, s) {
		return ErrInvalidStatus
	}
	return nil
}

// dueDateTime joins a date and an optional time of day and parses the result
// in loc. It does not check the value against the clock.
func dueDateTime(date, clock string, loc *time.Location) (time.Time, error) {
	date = strings.TrimSpace(date)
	clock = strings.TrimSpace(clock)
	if clock == "" {
		clock = endOfDay
	}

	raw := date + " " + clock
	for _, layout := range []string{dateTimeLayout, "2006-01-02 15:04"} {
		if t, err := time.ParseInLocation(layout, raw, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, ErrInvalidDueDate
}

// validateDueDate composes the effective due datetime of a new task and
// rejects it when it lies before now.
func validateDueDate(date, clock string, now time.Time) (time.Time, error) {
	due, err := dueDateTime(date, clock, now.Location())
	if err != nil {
		return time.Time{}, err
	}
	if due.Before(now) {
		return time.Time{}, ErrDueDateInPast
	}
	return due, nil
}

// parseUpdateDueDate accepts the layouts clients send on a full update: a
// datetime, an RFC 3339 timestamp or a bare date.
func parseUpdateDueDate(s string, loc *time.Location) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.In(loc), nil
	}
	for _, layout := range []string{dateTimeLayout, "2006-01-02T15:04:05", "2006-01-02 15:04", "2006-01-02T15:04", time.DateOnly} {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, ErrInvalidDueDate
}
