package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"testing"

	"github.com/msomdec/task-manager/internal/handler"
	"github.com/msomdec/task-manager/internal/notify"
	"github.com/msomdec/task-manager/internal/repository/sqlstore"
	"github.com/msomdec/task-manager/internal/service"
)

const testJWTSecret = "test-secret-for-handler-tests-0123456789"

type recordingNotifier struct {
	mu   sync.Mutex
	msgs []notify.Message
}

func (n *recordingNotifier) Enqueue(msg notify.Message) bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.msgs = append(n.msgs, msg)
	return true
}

func (n *recordingNotifier) Subjects() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]string, len(n.msgs))
	for i, m := range n.msgs {
		out[i] = m.Subject
	}
	return out
}

type testEnv struct {
	srv    *httptest.Server
	db     *sqlstore.DB
	svc    handler.Services
	outbox *recordingNotifier
}

func newTestServices(t *testing.T) (handler.Services, *sqlstore.DB, *recordingNotifier) {
	t.Helper()
	db, err := sqlstore.New(sqlstore.DriverSQLite, filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("New DB: %v", err)
	}
	if err := db.Migrate(context.Background()); err != nil {
		t.Fatalf("Migrate: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	outbox := &recordingNotifier{}
	svc := handler.Services{
		Auth:    service.NewAuthService(db.Users(), outbox, testJWTSecret, 4, 0),
		Users:   service.NewUserService(db.Users(), db.Tasks(), db.FileStore(), outbox, 4),
		Tasks:   service.NewTaskService(db.Tasks()),
		Avatars: service.NewAvatarService(db.Users(), db.FileStore()),
		DB:      db,
	}
	return svc, db, outbox
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	svc, db, outbox := newTestServices(t)

	mux := http.NewServeMux()
	handler.RegisterRoutes(mux, svc)
	srv := httptest.NewServer(handler.Wrap(mux))
	t.Cleanup(srv.Close)

	return &testEnv{srv: srv, db: db, svc: svc, outbox: outbox}
}

// do sends a request with an optional JSON body and bearer token.
func (e *testEnv) do(t *testing.T, method, path, token string, body any) *http.Response {
	t.Helper()
	var r io.Reader
	if body != nil {
		switch b := body.(type) {
		case string:
			r = bytes.NewBufferString(b)
		default:
			data, err := json.Marshal(b)
			if err != nil {
				t.Fatalf("marshal body: %v", err)
			}
			r = bytes.NewReader(data)
		}
	}

	req, err := http.NewRequest(method, e.srv.URL+path, r)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func (e *testEnv) signup(t *testing.T, name, email string) handler.AuthResponse {
	t.Helper()
	resp := e.do(t, http.MethodPost, "/users", "", map[string]any{
		"name":     name,
		"email":    email,
		"password": "MyPass777!",
		"age":      27,
	})
	expectStatus(t, resp, http.StatusCreated)
	var out handler.AuthResponse
	decode(t, resp, &out)
	return out
}

func expectStatus(t *testing.T, resp *http.Response, want int) {
	t.Helper()
	if resp.StatusCode != want {
		body, _ := io.ReadAll(resp.Body)
		t.Fatalf("%s %s: expected %d, got %d: %s", resp.Request.Method, resp.Request.URL.Path, want, resp.StatusCode, body)
	}
}

func decode(t *testing.T, resp *http.Response, dst any) {
	t.Helper()
	if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
		t.Fatalf("decode response: %v", err)
	}
}

func expectError(t *testing.T, resp *http.Response, status int, message string) {
	t.Helper()
	expectStatus(t, resp, status)
	var body map[string]string
	decode(t, resp, &body)
	if body["error"] != message {
		t.Fatalf("expected error %q, got %q", message, body["error"])
	}
}

func newStoppedLimiter(t *testing.T, burst float64) *service.TokenBucket {
	t.Helper()
	limiter := service.NewTokenBucket(0, burst)
	t.Cleanup(limiter.Stop)
	return limiter
}

func newServer(t *testing.T, mux *http.ServeMux) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(handler.Wrap(mux))
	t.Cleanup(srv.Close)
	return srv
}
