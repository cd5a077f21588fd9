package handler

import (
	"errors"
	"net/http"

	"github.com/msomdec/task-manager/internal/domain"
	"github.com/msomdec/task-manager/internal/service"
)

// UserHandler serves signup, login, sessions and the caller's own profile.
type UserHandler struct {
	auth  *service.AuthService
	users *service.UserService
}

// NewUserHandler creates a new UserHandler.
func NewUserHandler(auth *service.AuthService, users *service.UserService) *UserHandler {
	return &UserHandler{auth: auth, users: users}
}

// HandleSignup creates an account and logs it in.
// POST /users
// Request:  {"name":"...","email":"...","password":"...","age":27}
// Response: 201 {"user": {...}, "token": "..."}
func (h *UserHandler) HandleSignup(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name     string `json:"name"`
		Email    string `json:"email"`
		Password string `json:"password"`
		Age      int    `json:"age"`
	}
	if err := readJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body.")
		return
	}

	user, token, err := h.auth.Signup(r.Context(), service.SignupInput{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
		Age:      req.Age,
	})
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrDuplicateEmail):
			writeError(w, http.StatusBadRequest, "An account with that email already exists.")
		case errors.Is(err, domain.ErrInvalidInput):
			writeError(w, http.StatusBadRequest, errorDetail(err))
		default:
			writeInternalError(w, "signup user", err)
		}
		return
	}

	writeJSON(w, http.StatusCreated, AuthResponse{User: toUserDTO(user), Token: token})
}

// HandleLogin issues a new token for valid credentials.
// POST /users/login
// Request:  {"email":"...","password":"..."}
// Response: {"user": {...}, "token": "..."}
func (h *UserHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := readJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body.")
		return
	}

	user, token, err := h.auth.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, domain.ErrUnauthorized) {
			writeError(w, http.StatusUnauthorized, "Unable to login")
			return
		}
		writeInternalError(w, "login user", err)
		return
	}

	writeJSON(w, http.StatusOK, AuthResponse{User: toUserDTO(user), Token: token})
}

// HandleLogout revokes the token the request was made with.
// POST /users/logout
func (h *UserHandler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	user := UserFromContext(r.Context())
	if err := h.auth.RevokeToken(r.Context(), user.ID, TokenFromContext(r.Context())); err != nil {
		writeInternalError(w, "logout", err)
		return
	}
	writeText(w, http.StatusOK, "Logout successful.")
}

// HandleLogoutAll revokes every token of the caller.
// POST /users/logout/all
func (h *UserHandler) HandleLogoutAll(w http.ResponseWriter, r *http.Request) {
	user := UserFromContext(r.Context())
	if err := h.auth.RevokeAllTokens(r.Context(), user.ID); err != nil {
		writeInternalError(w, "logout all", err)
		return
	}
	writeText(w, http.StatusOK, "Logout successful.")
}

// HandleMe returns the caller's profile.
// GET /users/me
func (h *UserHandler) HandleMe(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, toUserDTO(UserFromContext(r.Context())))
}

// HandleUpdateMe applies a partial profile update.
// PATCH /users/me
// Request: any subset of {"name","email","password","age"}
func (h *UserHandler) HandleUpdateMe(w http.ResponseWriter, r *http.Request) {
	var upd service.UserUpdate
	if err := readStrictJSON(w, r, &upd); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid updates!")
		return
	}

	user, err := h.users.Update(r.Context(), UserFromContext(r.Context()), upd)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrDuplicateEmail):
			writeError(w, http.StatusBadRequest, "An account with that email already exists.")
		case errors.Is(err, domain.ErrInvalidInput):
			writeError(w, http.StatusBadRequest, errorDetail(err))
		default:
			writeInternalError(w, "update user", err)
		}
		return
	}

	writeJSON(w, http.StatusOK, toUserDTO(user))
}

// HandleDeleteMe deletes the caller's account and everything it owns.
// DELETE /users/me
func (h *UserHandler) HandleDeleteMe(w http.ResponseWriter, r *http.Request) {
	user := UserFromContext(r.Context())
	if err := h.users.Delete(r.Context(), user); err != nil {
		writeInternalError(w, "delete user", err)
		return
	}
	writeJSON(w, http.StatusOK, toUserDTO(user))
}
