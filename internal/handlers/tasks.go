package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/haider984/codsy/internal/models"
)

func validTaskStatus(s string) (models.TaskStatus, bool) {
	switch status := models.TaskStatus(s); status {
	case models.TaskPending, models.TaskProcessed, models.TaskFailed, models.TaskSuccessful:
		return status, true
	default:
		return "", false
	}
}

// TasksResponse represents the task listing response.
type TasksResponse struct {
	Tasks []models.Task `json:"tasks"`
	Count int           `json:"count"`
}

// ListTasks handles GET /tasks/{platform} with an optional status filter.
func (h *Handler) ListTasks(w http.ResponseWriter, r *http.Request) {
	platform, ok := models.ParsePlatform(chi.URLParam(r, "platform"))
	if !ok {
		h.Error(w, http.StatusBadRequest, "unknown platform")
		return
	}

	status := models.TaskPending
	if raw := r.URL.Query().Get("status"); raw != "" {
		status, ok = validTaskStatus(raw)
		if !ok {
			h.Error(w, http.StatusBadRequest, "unknown status")
			return
		}
	}

	tasks, err := h.store.ListTasksByStatus(r.Context(), platform, status)
	if err != nil {
		h.Error(w, http.StatusInternalServerError, "failed to list tasks")
		return
	}
	if tasks == nil {
		tasks = []models.Task{}
	}
	h.JSON(w, http.StatusOK, TasksResponse{Tasks: tasks, Count: len(tasks)})
}

// CreateTaskRequest represents a manually delegated task.
type CreateTaskRequest struct {
	MessageID   string `json:"mid"`
	Title       string `json:"title"`
	Description string `json:"description"`
}

// CreateTask handles POST /tasks/{platform}. The task starts pending and
// is picked up by the next runner cycle.
func (h *Handler) CreateTask(w http.ResponseWriter, r *http.Request) {
	platform, ok := models.ParsePlatform(chi.URLParam(r, "platform"))
	if !ok {
		h.Error(w, http.StatusBadRequest, "unknown platform")
		return
	}

	var req CreateTaskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.MessageID == "" || req.Title == "" {
		h.Error(w, http.StatusBadRequest, "mid and title are required")
		return
	}

	msg, err := h.store.GetMessage(r.Context(), req.MessageID)
	if err != nil {
		h.Error(w, http.StatusInternalServerError, "failed to get message")
		return
	}
	if msg == nil {
		h.Error(w, http.StatusNotFound, "message not found")
		return
	}

	task := &models.Task{
		MessageID:   req.MessageID,
		Platform:    platform,
		Title:       req.Title,
		Description: req.Description,
		Status:      models.TaskPending,
	}
	if err := h.store.CreateTask(r.Context(), task); err != nil {
		h.Error(w, http.StatusInternalServerError, "failed to create task")
		return
	}
	h.JSON(w, http.StatusCreated, task)
}

// UpdateTaskRequest carries the mutable task fields. Absent fields are
// left unchanged.
type UpdateTaskRequest struct {
	Status *models.TaskStatus `json:"status"`
	Reply  *string            `json:"reply"`
}

// UpdateTask handles PUT /tasks/{platform}/{id}. Illegal status
// transitions are rejected.
func (h *Handler) UpdateTask(w http.ResponseWriter, r *http.Request) {
	platform, ok := models.ParsePlatform(chi.URLParam(r, "platform"))
	if !ok {
		h.Error(w, http.StatusBadRequest, "unknown platform")
		return
	}

	var req UpdateTaskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	task, err := h.store.GetTask(r.Context(), platform, chi.URLParam(r, "id"))
	if err != nil {
		h.Error(w, http.StatusInternalServerError, "failed to get task")
		return
	}
	if task == nil {
		h.Error(w, http.StatusNotFound, "task not found")
		return
	}

	if req.Status != nil && *req.Status != task.Status {
		to, ok := validTaskStatus(string(*req.Status))
		if !ok {
			h.Error(w, http.StatusBadRequest, "unknown status")
			return
		}
		if !task.Status.CanTransition(to) {
			h.Error(w, http.StatusConflict, "illegal status transition")
			return
		}
		task.Status = to
		if to.Terminal() && task.CompletionDate == nil {
			now := time.Now().UTC()
			task.CompletionDate = &now
		}
	}
	if req.Reply != nil {
		task.Reply = *req.Reply
	}

	if err := h.store.UpdateTask(r.Context(), task); err != nil {
		h.Error(w, http.StatusInternalServerError, "failed to update task")
		return
	}
	h.JSON(w, http.StatusOK, task)
}

// GetTask handles GET /tasks/{platform}/{id}.
func (h *Handler) GetTask(w http.ResponseWriter, r *http.Request) {
	platform, ok := models.ParsePlatform(chi.URLParam(r, "platform"))
	if !ok {
		h.Error(w, http.StatusBadRequest, "unknown platform")
		return
	}

	task, err := h.store.GetTask(r.Context(), platform, chi.URLParam(r, "id"))
	if err != nil {
		h.Error(w, http.StatusInternalServerError, "failed to get task")
		return
	}
	if task == nil {
		h.Error(w, http.StatusNotFound, "task not found")
		return
	}
	h.JSON(w, http.StatusOK, task)
}
