package handler

import (
	"errors"
	"net/http"

	"github.com/msomdec/task-manager/internal/domain"
	"github.com/msomdec/task-manager/internal/service"
)

// TaskHandler serves the caller's tasks. Every lookup is scoped to the
// authenticated owner.
type TaskHandler struct {
	tasks *service.TaskService
}

// NewTaskHandler creates a new TaskHandler.
func NewTaskHandler(tasks *service.TaskService) *TaskHandler {
	return &TaskHandler{tasks: tasks}
}

// HandleCreate creates a task owned by the caller. An "owner" key in the
// body is ignored.
// POST /tasks
func (h *TaskHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Description string `json:"description"`
		Completed   bool   `json:"completed"`
	}
	if err := readJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body.")
		return
	}

	user := UserFromContext(r.Context())
	task, err := h.tasks.Create(r.Context(), user.ID, req.Description, req.Completed)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidInput) {
			writeError(w, http.StatusBadRequest, errorDetail(err))
			return
		}
		writeInternalError(w, "create task", err)
		return
	}

	writeJSON(w, http.StatusCreated, toTaskDTO(task))
}

// HandleList lists the caller's tasks.
// GET /tasks?completed=true&sortBy=createdAt_desc&limit=10&skip=20
func (h *TaskHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	query, err := service.ParseListParams(service.ListParams{
		Completed: q.Get("completed"),
		SortBy:    q.Get("sortBy"),
		Limit:     q.Get("limit"),
		Skip:      q.Get("skip"),
	})
	if err != nil {
		writeError(w, http.StatusBadRequest, errorDetail(err))
		return
	}

	user := UserFromContext(r.Context())
	tasks, err := h.tasks.List(r.Context(), user.ID, query)
	if err != nil {
		writeInternalError(w, "list tasks", err)
		return
	}

	writeJSON(w, http.StatusOK, toTaskDTOs(tasks))
}

// HandleGet returns one of the caller's tasks.
// GET /tasks/{id}
func (h *TaskHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	user := UserFromContext(r.Context())
	task, err := h.tasks.Get(r.Context(), user.ID, r.PathValue("id"))
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Task not found!")
			return
		}
		writeInternalError(w, "get task", err)
		return
	}

	writeJSON(w, http.StatusOK, toTaskDTO(task))
}

// HandleUpdate applies a partial update to one of the caller's tasks.
// PATCH /tasks/{id}
// Request: any subset of {"description","completed"}
func (h *TaskHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	var upd service.TaskUpdate
	if err := readStrictJSON(w, r, &upd); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid updates!")
		return
	}

	user := UserFromContext(r.Context())
	task, err := h.tasks.Update(r.Context(), user.ID, r.PathValue("id"), upd)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrNotFound):
			writeError(w, http.StatusBadRequest, "Unable to find task")
		case errors.Is(err, domain.ErrInvalidInput):
			writeError(w, http.StatusBadRequest, errorDetail(err))
		default:
			writeInternalError(w, "update task", err)
		}
		return
	}

	writeJSON(w, http.StatusOK, toTaskDTO(task))
}

// HandleDelete deletes one of the caller's tasks and returns it.
// DELETE /tasks/{id}
func (h *TaskHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	user := UserFromContext(r.Context())
	task, err := h.tasks.Delete(r.Context(), user.ID, r.PathValue("id"))
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			writeError(w, http.StatusBadRequest, "Task not found!")
			return
		}
		writeInternalError(w, "delete task", err)
		return
	}

	writeJSON(w, http.StatusOK, toTaskDTO(task))
}
