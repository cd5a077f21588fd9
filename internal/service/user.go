package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/msomdec/task-manager/internal/domain"
	"github.com/msomdec/task-manager/internal/notify"
)

// UserService manages the authenticated user's own account.
type UserService struct {
	users      domain.UserRepository
	tasks      domain.TaskRepository
	files      domain.FileStore
	notifier   Notifier
	bcryptCost int
}

// NewUserService creates a new UserService. notifier may be nil.
func NewUserService(users domain.UserRepository, tasks domain.TaskRepository, files domain.FileStore, notifier Notifier, bcryptCost int) *UserService {
	return &UserService{
		users:      users,
		tasks:      tasks,
		files:      files,
		notifier:   notifier,
		bcryptCost: bcryptCost,
	}
}

// UserUpdate lists the mutable profile fields. Nil fields are left alone.
type UserUpdate struct {
	Name     *string `json:"name"`
	Email    *string `json:"email"`
	Password *string `json:"password"`
	Age      *int    `json:"age"`
}

// Update validates every supplied field before applying any of them, so a
// rejected update leaves the user untouched.
func (s *UserService) Update(ctx context.Context, user *domain.User, upd UserUpdate) (*domain.User, error) {
	next := *user

	if upd.Name != nil {
		name, err := normalizeName(*upd.Name)
		if err != nil {
			return nil, err
		}
		next.Name = name
	}
	if upd.Email != nil {
		email, err := normalizeEmail(*upd.Email)
		if err != nil {
			return nil, err
		}
		next.Email = email
	}
	if upd.Age != nil {
		if err := validateAge(*upd.Age); err != nil {
			return nil, err
		}
		next.Age = *upd.Age
	}
	if upd.Password != nil {
		password, err := normalizePassword(*upd.Password)
		if err != nil {
			return nil, err
		}
		hash, err := hashPassword(password, s.bcryptCost)
		if err != nil {
			return nil, err
		}
		next.PasswordHash = hash
	}

	if err := s.users.Update(ctx, &next); err != nil {
		return nil, fmt.Errorf("update user: %w", err)
	}
	return &next, nil
}

// Delete removes the user's tasks, sessions and avatar, then the user. The
// steps are not atomic; the schema's cascading foreign keys cover a crash
// part way through.
func (s *UserService) Delete(ctx context.Context, user *domain.User) error {
	if err := s.tasks.DeleteAllByOwner(ctx, user.ID); err != nil {
		return fmt.Errorf("delete tasks: %w", err)
	}
	if err := s.users.ClearTokens(ctx, user.ID); err != nil {
		return fmt.Errorf("clear tokens: %w", err)
	}
	if user.HasAvatar() {
		if err := s.files.Delete(ctx, user.AvatarKey); err != nil {
			// An orphaned blob is harmless; the account still goes.
			slog.Warn("delete avatar blob", "user_id", user.ID, "error", err)
		}
	}
	if err := s.users.Delete(ctx, user.ID); err != nil {
		return fmt.Errorf("delete user: %w", err)
	}

	enqueue(s.notifier, notify.CancellationMessage(user.Email, user.Name))
	return nil
}
