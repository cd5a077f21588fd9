package service_test

import (
	"context"
	"path/filepath"
	"sync"
	"testing"

	"github.com/msomdec/task-manager/internal/notify"
	"github.com/msomdec/task-manager/internal/repository/sqlstore"
	"github.com/msomdec/task-manager/internal/service"
)

const (
	testJWTSecret = "test-secret-key-for-unit-tests"
	// Cost 4 keeps bcrypt fast in tests.
	testBcryptCost = 4
)

type services struct {
	db      *sqlstore.DB
	auth    *service.AuthService
	users   *service.UserService
	tasks   *service.TaskService
	avatars *service.AvatarService
	outbox  *fakeNotifier
}

func newTestDB(t *testing.T) *sqlstore.DB {
	t.Helper()
	db, err := sqlstore.New(sqlstore.DriverSQLite, filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("New DB: %v", err)
	}
	if err := db.Migrate(context.Background()); err != nil {
		t.Fatalf("Migrate: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func newTestServices(t *testing.T) *services {
	t.Helper()
	db := newTestDB(t)
	outbox := &fakeNotifier{}
	return &services{
		db:      db,
		auth:    service.NewAuthService(db.Users(), outbox, testJWTSecret, testBcryptCost, 0),
		users:   service.NewUserService(db.Users(), db.Tasks(), db.FileStore(), outbox, testBcryptCost),
		tasks:   service.NewTaskService(db.Tasks()),
		avatars: service.NewAvatarService(db.Users(), db.FileStore()),
		outbox:  outbox,
	}
}

func (s *services) signup(t *testing.T, email string) (string, string) {
	t.Helper()
	user, token, err := s.auth.Signup(context.Background(), service.SignupInput{
		Name:     "Test User",
		Email:    email,
		Password: "MyPass777!",
		Age:      30,
	})
	if err != nil {
		t.Fatalf("Signup(%s): %v", email, err)
	}
	return user.ID, token
}

// fakeNotifier records queued messages instead of sending them.
type fakeNotifier struct {
	mu   sync.Mutex
	msgs []notify.Message
}

func (f *fakeNotifier) Enqueue(msg notify.Message) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.msgs = append(f.msgs, msg)
	return true
}

func (f *fakeNotifier) Messages() []notify.Message {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]notify.Message(nil), f.msgs...)
}

func countTokens(t *testing.T, s *services, userID string) int {
	t.Helper()
	var n int
	if err := s.db.SqlDB.QueryRow(`SELECT COUNT(*) FROM user_tokens WHERE user_id = ?`, userID).Scan(&n); err != nil {
		t.Fatalf("count tokens: %v", err)
	}
	return n
}
