package domain

import (
	"context"
	"time"
)

// Task is a unit of work owned by exactly one user.
type Task struct {
	ID          string
	OwnerID     string
	Description string
	Completed   bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// TaskSortField names a column tasks can be ordered by.
type TaskSortField string

const (
	TaskSortDescription TaskSortField = "description"
	TaskSortCompleted   TaskSortField = "completed"
	TaskSortCreatedAt   TaskSortField = "createdAt"
	TaskSortUpdatedAt   TaskSortField = "updatedAt"
)

// TaskQuery narrows a task listing. The zero value lists everything in
// store order.
type TaskQuery struct {
	Completed *bool
	SortBy    TaskSortField // Empty means store order.
	SortDesc  bool
	Limit     int // 0 means no limit.
	Skip      int
}

// TaskRepository defines persistence operations for tasks. Every lookup is
// scoped to an owner so a task owned by someone else is indistinguishable
// from a missing one.
type TaskRepository interface {
	Create(ctx context.Context, task *Task) error
	GetByOwner(ctx context.Context, id, ownerID string) (*Task, error)
	ListByOwner(ctx context.Context, ownerID string, q TaskQuery) ([]Task, error)
	Update(ctx context.Context, task *Task) error
	DeleteByOwner(ctx context.Context, id, ownerID string) error
	DeleteAllByOwner(ctx context.Context, ownerID string) error
}
