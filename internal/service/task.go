package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/msomdec/task-manager/internal/domain"
)

// TaskService handles task CRUD for a single owner at a time.
type TaskService struct {
	tasks domain.TaskRepository
}

// NewTaskService creates a new TaskService.
func NewTaskService(tasks domain.TaskRepository) *TaskService {
	return &TaskService{tasks: tasks}
}

// TaskUpdate lists the mutable task fields. Nil fields are left alone.
type TaskUpdate struct {
	Description *string `json:"description"`
	Completed   *bool   `json:"completed"`
}

// Create stores a new task owned by ownerID.
func (s *TaskService) Create(ctx context.Context, ownerID, description string, completed bool) (*domain.Task, error) {
	description, err := normalizeDescription(description)
	if err != nil {
		return nil, err
	}

	task := &domain.Task{
		OwnerID:     ownerID,
		Description: description,
		Completed:   completed,
	}
	if err := s.tasks.Create(ctx, task); err != nil {
		return nil, fmt.Errorf("create task: %w", err)
	}
	return task, nil
}

// List returns the owner's tasks matching q.
func (s *TaskService) List(ctx context.Context, ownerID string, q domain.TaskQuery) ([]domain.Task, error) {
	return s.tasks.ListByOwner(ctx, ownerID, q)
}

// Get returns the task if ownerID owns it, domain.ErrNotFound otherwise.
func (s *TaskService) Get(ctx context.Context, ownerID, id string) (*domain.Task, error) {
	return s.tasks.GetByOwner(ctx, id, ownerID)
}

// Update validates every supplied field, then applies them together.
func (s *TaskService) Update(ctx context.Context, ownerID, id string, upd TaskUpdate) (*domain.Task, error) {
	var description string
	if upd.Description != nil {
		d, err := normalizeDescription(*upd.Description)
		if err != nil {
			return nil, err
		}
		description = d
	}

	task, err := s.tasks.GetByOwner(ctx, id, ownerID)
	if err != nil {
		return nil, err
	}

	if upd.Description != nil {
		task.Description = description
	}
	if upd.Completed != nil {
		task.Completed = *upd.Completed
	}

	if err := s.tasks.Update(ctx, task); err != nil {
		return nil, fmt.Errorf("update task: %w", err)
	}
	return task, nil
}

// Delete removes the task and returns its last state.
func (s *TaskService) Delete(ctx context.Context, ownerID, id string) (*domain.Task, error) {
	task, err := s.tasks.GetByOwner(ctx, id, ownerID)
	if err != nil {
		return nil, err
	}
	if err := s.tasks.DeleteByOwner(ctx, id, ownerID); err != nil {
		return nil, err
	}
	return task, nil
}

func normalizeDescription(description string) (string, error) {
	description = strings.TrimSpace(description)
	if description == "" {
		return "", fmt.Errorf("%w: description is required", domain.ErrInvalidInput)
	}
	return description, nil
}
