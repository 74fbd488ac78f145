package channel

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/haider984/codsy/internal/models"
)

// newGraphTestAdapter wires an EmailAdapter against a fake Graph server.
func newGraphTestAdapter(t *testing.T, handler http.HandlerFunc) *EmailAdapter {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("/tenant-1/oauth2/v2.0/token", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"access_token": "test-token",
			"expires_in":   3600,
		})
	})
	mux.HandleFunc("/", handler)

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	a := NewEmailAdapter("tenant-1", "client-1", "secret", "bot@example.com")
	a.apiBase = srv.URL
	a.authBase = srv.URL
	return a
}

func TestEmailFetchUnread(t *testing.T) {
	var gotAuth string
	a := newGraphTestAdapter(t, func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		json.NewEncoder(w).Encode(map[string]any{
			"value": []map[string]any{
				{
					"id":          "AAA",
					"subject":     "Deploy request",
					"bodyPreview": "please deploy",
					"from": map[string]any{
						"emailAddress": map[string]string{
							"name":    "Alice",
							"address": "alice@example.com",
						},
					},
				},
			},
		})
	})

	raws, err := a.FetchUnread(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if gotAuth != "Bearer test-token" {
		t.Fatalf("token not attached, got %q", gotAuth)
	}
	if len(raws) != 1 {
		t.Fatalf("expected 1 message, got %d", len(raws))
	}
	raw := raws[0]
	if raw.ExternalID != "AAA" || raw.Sender != "alice@example.com" || raw.Subject != "Deploy request" {
		t.Fatalf("unexpected raw message %+v", raw)
	}
	if raw.Body != "please deploy" {
		t.Fatalf("preview not used as body: %q", raw.Body)
	}
}

func TestEmailSendReply(t *testing.T) {
	var gotPath string
	var gotBody map[string]string
	a := newGraphTestAdapter(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		json.NewDecoder(r.Body).Decode(&gotBody)
		w.WriteHeader(http.StatusAccepted)
	})

	msg := &models.Message{MsgID: "AAA"}
	if err := a.SendReply(context.Background(), msg, "here you go"); err != nil {
		t.Fatal(err)
	}
	if gotPath != "/users/bot@example.com/messages/AAA/reply" {
		t.Fatalf("unexpected path %q", gotPath)
	}
	if gotBody["comment"] != "here you go" {
		t.Fatalf("unexpected body %v", gotBody)
	}
}

func TestEmailSendReplyMissingRouting(t *testing.T) {
	a := newGraphTestAdapter(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("no request expected")
	})

	err := a.SendReply(context.Background(), &models.Message{}, "text")
	if !errors.Is(err, ErrMissingRouting) {
		t.Fatalf("expected ErrMissingRouting, got %v", err)
	}
}

func TestEmailMarkConsumed(t *testing.T) {
	var gotMethod, gotPath string
	var gotBody map[string]bool
	a := newGraphTestAdapter(t, func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotPath = r.URL.Path
		json.NewDecoder(r.Body).Decode(&gotBody)
	})

	if err := a.MarkConsumed(context.Background(), "AAA"); err != nil {
		t.Fatal(err)
	}
	if gotMethod != http.MethodPatch || gotPath != "/users/bot@example.com/messages/AAA" {
		t.Fatalf("unexpected request %s %s", gotMethod, gotPath)
	}
	if !gotBody["isRead"] {
		t.Fatalf("isRead not set: %v", gotBody)
	}
}

func TestEmailFetchUnreadBadStatus(t *testing.T) {
	a := newGraphTestAdapter(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	})

	if _, err := a.FetchUnread(context.Background()); err == nil {
		t.Fatal("expected error on 403")
	}
}

func TestSlackSendReplyMissingRouting(t *testing.T) {
	a := NewSlackAdapter("xoxb-test")

	err := a.SendReply(context.Background(), &models.Message{}, "text")
	if !errors.Is(err, ErrMissingRouting) {
		t.Fatalf("expected ErrMissingRouting, got %v", err)
	}
}

func TestSlackFetchUnreadIsEmpty(t *testing.T) {
	a := NewSlackAdapter("xoxb-test")

	raws, err := a.FetchUnread(context.Background())
	if err != nil || raws != nil {
		t.Fatalf("push-based channel must return nothing, got %v %v", raws, err)
	}
	if err := a.MarkConsumed(context.Background(), "x"); err != nil {
		t.Fatal(err)
	}
}
