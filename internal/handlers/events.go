package handlers

import (
	"encoding/json"
	"net/http"
)

// slackEvent is the inner event of a Slack Events API callback.
type slackEvent struct {
	Type     string `json:"type"`
	User     string `json:"user"`
	Username string `json:"username"`
	BotID    string `json:"bot_id"`
	Text     string `json:"text"`
	Channel  string `json:"channel"`
	TS       string `json:"ts"`
	ThreadTS string `json:"thread_ts"`
}

// slackEnvelope is the outer Slack Events API payload.
type slackEnvelope struct {
	Type      string     `json:"type"`
	Challenge string     `json:"challenge"`
	Event     slackEvent `json:"event"`
}

// SlackEvents handles POST /events/slack, the Slack Events API push
// endpoint. It answers URL verification challenges and hands message
// events to the pipeline; everything else is acknowledged and dropped.
func (h *Handler) SlackEvents(w http.ResponseWriter, r *http.Request) {
	var envelope slackEnvelope
	if err := json.NewDecoder(r.Body).Decode(&envelope); err != nil {
		h.Error(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	if envelope.Type == "url_verification" {
		h.JSON(w, http.StatusOK, map[string]string{"challenge": envelope.Challenge})
		return
	}
	if envelope.Type != "event_callback" {
		w.WriteHeader(http.StatusOK)
		return
	}

	event := envelope.Event
	// Ignore non-message events and the bot's own posts, which would
	// otherwise loop through the pipeline forever.
	if event.Type != "message" || event.BotID != "" || event.User == "" {
		w.WriteHeader(http.StatusOK)
		return
	}

	threadTS := event.ThreadTS
	if threadTS == "" {
		threadTS = event.TS
	}

	mid, err := h.ingestor.IngestSlackEvent(r.Context(), event.User, event.Username, event.Text, event.Channel, threadTS)
	if err != nil {
		h.Error(w, http.StatusInternalServerError, "failed to ingest event")
		return
	}

	// Slack only needs the 200; the mid is returned for debugging.
	h.JSON(w, http.StatusOK, map[string]string{"mid": mid})
}
