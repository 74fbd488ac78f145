package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/haider984/codsy/internal/models"
)

// validMessageStatus guards status query parameters coming off the wire.
func validMessageStatus(s string) (models.MessageStatus, bool) {
	switch status := models.MessageStatus(s); status {
	case models.StatusPending, models.StatusProcessed, models.StatusClaiming,
		models.StatusHandling, models.StatusSuccessful, models.StatusFailed:
		return status, true
	default:
		return "", false
	}
}

// MessagesResponse represents the message listing response.
type MessagesResponse struct {
	Messages []models.Message `json:"messages"`
	Count    int              `json:"count"`
}

// ListMessages handles GET /messages with optional status or processed
// filters.
func (h *Handler) ListMessages(w http.ResponseWriter, r *http.Request) {
	var (
		messages []models.Message
		err      error
	)

	switch {
	case r.URL.Query().Get("status") != "":
		status, ok := validMessageStatus(r.URL.Query().Get("status"))
		if !ok {
			h.Error(w, http.StatusBadRequest, "unknown status")
			return
		}
		messages, err = h.store.ListMessagesByStatus(r.Context(), status)
	case r.URL.Query().Get("processed") != "":
		processed, parseErr := strconv.ParseBool(r.URL.Query().Get("processed"))
		if parseErr != nil {
			h.Error(w, http.StatusBadRequest, "processed must be a boolean")
			return
		}
		messages, err = h.store.ListMessagesByProcessed(r.Context(), processed)
	default:
		h.Error(w, http.StatusBadRequest, "status or processed filter required")
		return
	}
	if err != nil {
		h.Error(w, http.StatusInternalServerError, "failed to list messages")
		return
	}

	if messages == nil {
		messages = []models.Message{}
	}
	h.JSON(w, http.StatusOK, MessagesResponse{Messages: messages, Count: len(messages)})
}

// GetMessage handles GET /messages/{mid}.
func (h *Handler) GetMessage(w http.ResponseWriter, r *http.Request) {
	mid := chi.URLParam(r, "mid")

	msg, err := h.store.GetMessage(r.Context(), mid)
	if err != nil {
		h.Error(w, http.StatusInternalServerError, "failed to get message")
		return
	}
	if msg == nil {
		h.Error(w, http.StatusNotFound, "message not found")
		return
	}
	h.JSON(w, http.StatusOK, msg)
}

// CreateMessageRequest represents a manual message injection.
type CreateMessageRequest struct {
	Source    models.Source `json:"source"`
	Sender    string        `json:"sender"`
	Username  string        `json:"username"`
	Content   string        `json:"content"`
	MsgID     string        `json:"msg_id"`
	ChannelID string        `json:"channel_id"`
	ThreadTS  string        `json:"thread_ts"`
}

// CreateMessage handles POST /messages. Injected messages enter the
// lifecycle as pending, exactly as if a poller had ingested them.
func (h *Handler) CreateMessage(w http.ResponseWriter, r *http.Request) {
	var req CreateMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Source != models.SourceEmail && req.Source != models.SourceSlack {
		h.Error(w, http.StatusBadRequest, "source must be email or slack")
		return
	}
	if req.Sender == "" || req.Content == "" {
		h.Error(w, http.StatusBadRequest, "sender and content are required")
		return
	}

	msg := &models.Message{
		Source:    req.Source,
		Sender:    req.Sender,
		Username:  req.Username,
		Content:   req.Content,
		MsgID:     req.MsgID,
		ChannelID: req.ChannelID,
		ThreadTS:  req.ThreadTS,
		Status:    models.StatusPending,
	}
	if err := h.store.CreateMessage(r.Context(), msg); err != nil {
		h.Error(w, http.StatusInternalServerError, "failed to create message")
		return
	}
	h.JSON(w, http.StatusCreated, msg)
}

// UpdateMessageRequest carries the mutable message fields. Absent fields
// are left unchanged.
type UpdateMessageRequest struct {
	MessageType *models.MessageType   `json:"message_type"`
	Processed   *bool                 `json:"processed"`
	Status      *models.MessageStatus `json:"status"`
	Reply       *string               `json:"reply"`
}

// UpdateMessage handles PUT /messages/{mid}. Status changes go through the
// same conditional transition the workers use, so an illegal or lost
// transition is rejected rather than overwriting worker state.
func (h *Handler) UpdateMessage(w http.ResponseWriter, r *http.Request) {
	mid := chi.URLParam(r, "mid")

	var req UpdateMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	msg, err := h.store.GetMessage(r.Context(), mid)
	if err != nil {
		h.Error(w, http.StatusInternalServerError, "failed to get message")
		return
	}
	if msg == nil {
		h.Error(w, http.StatusNotFound, "message not found")
		return
	}

	if req.Status != nil && *req.Status != msg.Status {
		to, ok := validMessageStatus(string(*req.Status))
		if !ok {
			h.Error(w, http.StatusBadRequest, "unknown status")
			return
		}
		if !msg.Status.CanTransition(to) {
			h.Error(w, http.StatusConflict, "illegal status transition")
			return
		}
		won, err := h.store.TransitionMessageStatus(r.Context(), mid, msg.Status, to)
		if err != nil {
			h.Error(w, http.StatusInternalServerError, "failed to update status")
			return
		}
		if !won {
			h.Error(w, http.StatusConflict, "message changed concurrently")
			return
		}
		msg.Status = to
	}

	if req.MessageType != nil || req.Processed != nil || req.Reply != nil {
		if req.MessageType != nil {
			msg.MessageType = *req.MessageType
		}
		if req.Processed != nil {
			msg.Processed = *req.Processed
		}
		if req.Reply != nil {
			msg.Reply = *req.Reply
		}
		if err := h.store.UpdateMessage(r.Context(), msg); err != nil {
			h.Error(w, http.StatusInternalServerError, "failed to update message")
			return
		}
	}

	h.JSON(w, http.StatusOK, msg)
}

// GetMessageTasks handles GET /messages/{mid}/tasks.
func (h *Handler) GetMessageTasks(w http.ResponseWriter, r *http.Request) {
	mid := chi.URLParam(r, "mid")

	msg, err := h.store.GetMessage(r.Context(), mid)
	if err != nil {
		h.Error(w, http.StatusInternalServerError, "failed to get message")
		return
	}
	if msg == nil {
		h.Error(w, http.StatusNotFound, "message not found")
		return
	}

	tasks, err := h.store.ListTasksByMessage(r.Context(), mid)
	if err != nil {
		h.Error(w, http.StatusInternalServerError, "failed to list tasks")
		return
	}
	if tasks == nil {
		tasks = []models.Task{}
	}
	h.JSON(w, http.StatusOK, TasksResponse{Tasks: tasks, Count: len(tasks)})
}
