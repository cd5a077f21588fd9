package handler

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/msomdec/task-manager/internal/domain"
	"github.com/msomdec/task-manager/internal/service"
)

// multipartOverhead is the room left for multipart framing on top of the
// avatar itself.
const multipartOverhead = 64 << 10

// AvatarHandler handles profile picture upload, removal and retrieval.
type AvatarHandler struct {
	avatars *service.AvatarService
}

// NewAvatarHandler creates a new AvatarHandler.
func NewAvatarHandler(avatars *service.AvatarService) *AvatarHandler {
	return &AvatarHandler{avatars: avatars}
}

// HandleUpload stores a new avatar for the caller.
// POST /users/me/avatar (multipart, field "avatar")
func (h *AvatarHandler) HandleUpload(w http.ResponseWriter, r *http.Request) {
	user := UserFromContext(r.Context())

	r.Body = http.MaxBytesReader(w, r.Body, service.MaxAvatarSize+multipartOverhead)
	if err := r.ParseMultipartForm(service.MaxAvatarSize + multipartOverhead); err != nil {
		writeError(w, http.StatusBadRequest, service.AvatarRejectedMessage)
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("avatar")
	if err != nil {
		writeError(w, http.StatusBadRequest, "Please upload an avatar image.")
		return
	}
	defer file.Close()

	if err := service.CheckUpload(header.Filename, header.Size); err != nil {
		writeError(w, http.StatusBadRequest, errorDetail(err))
		return
	}

	data, err := io.ReadAll(file)
	if err != nil {
		writeInternalError(w, "read avatar upload", err)
		return
	}

	if err := h.avatars.Set(r.Context(), user, header.Filename, data); err != nil {
		if errors.Is(err, domain.ErrInvalidInput) {
			writeError(w, http.StatusBadRequest, errorDetail(err))
			return
		}
		writeInternalError(w, "set avatar", err)
		return
	}

	w.WriteHeader(http.StatusOK)
}

// HandleDelete removes the caller's avatar.
// DELETE /users/me/avatar
func (h *AvatarHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	if err := h.avatars.Clear(r.Context(), UserFromContext(r.Context())); err != nil {
		writeInternalError(w, "clear avatar", err)
		return
	}
	w.WriteHeader(http.StatusOK)
}

// HandleServe streams a user's avatar as PNG. No authentication required.
// GET /users/{id}/avatar
func (h *AvatarHandler) HandleServe(w http.ResponseWriter, r *http.Request) {
	data, err := h.avatars.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		slog.Error("get avatar", "error", err)
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", service.AvatarContentType)
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}
