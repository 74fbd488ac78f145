package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/haider984/codsy/internal/store"
)

// SlackIngestor accepts pushed Slack messages into the pipeline.
type SlackIngestor interface {
	IngestSlackEvent(ctx context.Context, userID, username, text, channelID, ts string) (string, error)
}

// Pinger is a liveness check on an external dependency.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Handler contains shared dependencies for all HTTP handlers.
type Handler struct {
	store    store.DataStore
	ingestor SlackIngestor
	locks    Pinger // nil when running on the in-process lock
}

// NewHandler creates a new Handler.
func NewHandler(dataStore store.DataStore, ingestor SlackIngestor, locks Pinger) *Handler {
	return &Handler{store: dataStore, ingestor: ingestor, locks: locks}
}

// JSON sends a JSON response with the given status code.
func (h *Handler) JSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// Error sends a JSON error response with the given status code.
func (h *Handler) Error(w http.ResponseWriter, status int, message string) {
	h.JSON(w, status, map[string]string{"error": message})
}
