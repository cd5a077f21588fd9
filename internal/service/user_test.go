package service_test

import (
	"context"
	"errors"
	"testing"

	"github.com/msomdec/task-manager/internal/domain"
	"github.com/msomdec/task-manager/internal/service"
	"golang.org/x/crypto/bcrypt"
)

func ptr[T any](v T) *T { return &v }

func mustUser(t *testing.T, s *services, id string) *domain.User {
	t.Helper()
	user, err := s.db.Users().GetByID(context.Background(), id)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	return user
}

func TestUserService_Update(t *testing.T) {
	s := newTestServices(t)
	ctx := context.Background()
	userID, _ := s.signup(t, "update@example.com")

	updated, err := s.users.Update(ctx, mustUser(t, s, userID), service.UserUpdate{
		Name:     ptr(" Renamed "),
		Age:      ptr(41),
		Password: ptr("NewPass888"),
	})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if updated.Name != "Renamed" || updated.Age != 41 {
		t.Fatalf("unexpected user after update: %+v", updated)
	}

	stored := mustUser(t, s, userID)
	if err := bcrypt.CompareHashAndPassword([]byte(stored.PasswordHash), []byte("NewPass888")); err != nil {
		t.Fatal("new password should be stored hashed")
	}
	if _, _, err := s.auth.Login(ctx, "update@example.com", "NewPass888"); err != nil {
		t.Fatalf("Login with new password: %v", err)
	}
}

func TestUserService_Update_AllOrNothing(t *testing.T) {
	s := newTestServices(t)
	ctx := context.Background()
	userID, _ := s.signup(t, "atomic@example.com")
	before := mustUser(t, s, userID)

	_, err := s.users.Update(ctx, before, service.UserUpdate{
		Name: ptr("Should Not Stick"),
		Age:  ptr(-5),
	})
	if !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}

	after := mustUser(t, s, userID)
	if after.Name != before.Name || after.Age != before.Age {
		t.Fatalf("rejected update changed the user: before %+v after %+v", before, after)
	}
}

func TestUserService_Update_DuplicateEmail(t *testing.T) {
	s := newTestServices(t)
	s.signup(t, "taken@example.com")
	userID, _ := s.signup(t, "mine@example.com")

	_, err := s.users.Update(context.Background(), mustUser(t, s, userID), service.UserUpdate{Email: ptr("Taken@example.com")})
	if !errors.Is(err, domain.ErrDuplicateEmail) {
		t.Fatalf("expected ErrDuplicateEmail, got %v", err)
	}
}

func TestUserService_Delete_Cascades(t *testing.T) {
	s := newTestServices(t)
	ctx := context.Background()
	userID, token := s.signup(t, "bye@example.com")
	otherID, _ := s.signup(t, "stay@example.com")

	for _, d := range []string{"one", "two"} {
		if _, err := s.tasks.Create(ctx, userID, d, false); err != nil {
			t.Fatalf("Create task: %v", err)
		}
	}
	if _, err := s.tasks.Create(ctx, otherID, "theirs", false); err != nil {
		t.Fatalf("Create task: %v", err)
	}

	user := mustUser(t, s, userID)
	if err := s.avatars.Set(ctx, user, "me.png", testPNG(t, 40, 40)); err != nil {
		t.Fatalf("Set avatar: %v", err)
	}
	avatarKey := user.AvatarKey

	if err := s.users.Delete(ctx, user); err != nil {
		t.Fatalf("Delete: %v", err)
	}

	if _, err := s.db.Users().GetByID(ctx, userID); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected user gone, got %v", err)
	}
	if _, err := s.auth.ValidateToken(ctx, token); !errors.Is(err, domain.ErrInvalidToken) {
		t.Fatalf("expected token invalid after delete, got %v", err)
	}
	tasks, err := s.db.Tasks().ListByOwner(ctx, userID, domain.TaskQuery{})
	if err != nil {
		t.Fatalf("ListByOwner: %v", err)
	}
	if len(tasks) != 0 {
		t.Fatalf("expected no tasks left, got %d", len(tasks))
	}
	if _, err := s.db.FileStore().Get(ctx, avatarKey); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected avatar blob gone, got %v", err)
	}

	others, err := s.tasks.List(ctx, otherID, domain.TaskQuery{})
	if err != nil || len(others) != 1 {
		t.Fatalf("other user's tasks should survive, got %d (%v)", len(others), err)
	}

	msgs := s.outbox.Messages()
	last := msgs[len(msgs)-1]
	if last.Subject != "We are sad to see you leave." || last.To != "bye@example.com" {
		t.Fatalf("expected cancellation email, got %+v", last)
	}
}
