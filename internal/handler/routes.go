package handler

import (
	"net/http"

	"github.com/msomdec/task-manager/internal/service"
)

// Services groups what the HTTP layer needs.
type Services struct {
	Auth    *service.AuthService
	Users   *service.UserService
	Tasks   *service.TaskService
	Avatars *service.AvatarService
	// Limiter throttles the credential endpoints. Nil disables throttling.
	Limiter *service.TokenBucket
	// DB backs the health check. May be nil.
	DB Pinger
}

// RegisterRoutes sets up all HTTP routes on the given mux.
func RegisterRoutes(mux *http.ServeMux, svc Services) {
	userHandler := NewUserHandler(svc.Auth, svc.Users)
	avatarHandler := NewAvatarHandler(svc.Avatars)
	taskHandler := NewTaskHandler(svc.Tasks)
	healthHandler := NewHealthHandler(svc.DB)

	authed := func(h http.HandlerFunc) http.Handler {
		return RequireAuth(svc.Auth, h)
	}
	limited := func(h http.HandlerFunc) http.Handler {
		if svc.Limiter == nil {
			return h
		}
		return RateLimit(svc.Limiter, h)
	}

	mux.HandleFunc("GET /healthz", healthHandler.HandleHealthz)

	// Accounts.
	mux.Handle("POST /users", limited(userHandler.HandleSignup))
	mux.Handle("POST /users/login", limited(userHandler.HandleLogin))
	mux.Handle("POST /users/logout", authed(userHandler.HandleLogout))
	mux.Handle("POST /users/logout/all", authed(userHandler.HandleLogoutAll))
	mux.Handle("GET /users/me", authed(userHandler.HandleMe))
	mux.Handle("PATCH /users/me", authed(userHandler.HandleUpdateMe))
	mux.Handle("DELETE /users/me", authed(userHandler.HandleDeleteMe))

	// Avatars.
	mux.Handle("POST /users/me/avatar", authed(avatarHandler.HandleUpload))
	mux.Handle("DELETE /users/me/avatar", authed(avatarHandler.HandleDelete))
	mux.HandleFunc("GET /users/{id}/avatar", avatarHandler.HandleServe)

	// Tasks.
	mux.Handle("POST /tasks", authed(taskHandler.HandleCreate))
	mux.Handle("GET /tasks", authed(taskHandler.HandleList))
	mux.Handle("GET /tasks/{id}", authed(taskHandler.HandleGet))
	mux.Handle("PATCH /tasks/{id}", authed(taskHandler.HandleUpdate))
	mux.Handle("DELETE /tasks/{id}", authed(taskHandler.HandleDelete))
}

// Wrap applies the middleware every response goes through.
func Wrap(mux http.Handler) http.Handler {
	return Trace(SecurityHeaders(mux))
}
