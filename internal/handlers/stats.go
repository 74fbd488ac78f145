package handlers

import (
	"net/http"

	"github.com/haider984/codsy/internal/models"
)

// StatsResponse summarizes pipeline state for operators.
type StatsResponse struct {
	Messages map[string]int64 `json:"messages"` // status -> count
	Tasks    map[string]int64 `json:"tasks"`    // platform/status -> count
}

var statMessageStatuses = []models.MessageStatus{
	models.StatusPending,
	models.StatusProcessed,
	models.StatusClaiming,
	models.StatusHandling,
	models.StatusSuccessful,
	models.StatusFailed,
}

var statTaskStatuses = []models.TaskStatus{
	models.TaskPending,
	models.TaskProcessed,
	models.TaskFailed,
	models.TaskSuccessful,
}

// Stats returns per-status record counts.
func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	resp := StatsResponse{
		Messages: make(map[string]int64),
		Tasks:    make(map[string]int64),
	}

	for _, status := range statMessageStatuses {
		count, err := h.store.CountMessagesByStatus(ctx, status)
		if err != nil {
			h.Error(w, http.StatusInternalServerError, "failed to count messages")
			return
		}
		resp.Messages[string(status)] = count
	}

	for _, platform := range []models.Platform{models.PlatformGit, models.PlatformJira} {
		for _, status := range statTaskStatuses {
			tasks, err := h.store.ListTasksByStatus(ctx, platform, status)
			if err != nil {
				h.Error(w, http.StatusInternalServerError, "failed to count tasks")
				return
			}
			resp.Tasks[string(platform)+"/"+string(status)] = int64(len(tasks))
		}
	}

	h.JSON(w, http.StatusOK, resp)
}
