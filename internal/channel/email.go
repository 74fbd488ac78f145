package channel

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/haider984/codsy/internal/models"
)

const (
	graphAPI     = "https://graph.microsoft.com/v1.0"
	graphScope   = "https://graph.microsoft.com/.default"
	tokenMargin  = 60 * time.Second
	emailTimeout = 30 * time.Second
)

// EmailAdapter reads and answers a mailbox through the Microsoft Graph
// REST API using client-credentials auth.
type EmailAdapter struct {
	tenantID     string
	clientID     string
	clientSecret string
	userEmail    string
	httpClient   *http.Client

	// Overridable in tests.
	apiBase  string
	authBase string

	mu          sync.Mutex
	token       string
	tokenExpiry time.Time
}

// NewEmailAdapter creates a Graph-backed email adapter.
func NewEmailAdapter(tenantID, clientID, clientSecret, userEmail string) *EmailAdapter {
	return &EmailAdapter{
		tenantID:     tenantID,
		clientID:     clientID,
		clientSecret: clientSecret,
		userEmail:    userEmail,
		httpClient:   &http.Client{Timeout: emailTimeout},
		apiBase:      graphAPI,
		authBase:     "https://login.microsoftonline.com",
	}
}

// Source identifies this adapter's channel.
func (a *EmailAdapter) Source() models.Source {
	return models.SourceEmail
}

// accessToken returns a cached app token, refreshing when close to expiry.
func (a *EmailAdapter) accessToken(ctx context.Context) (string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.token != "" && time.Now().Add(tokenMargin).Before(a.tokenExpiry) {
		return a.token, nil
	}

	form := url.Values{
		"client_id":     {a.clientID},
		"client_secret": {a.clientSecret},
		"scope":         {graphScope},
		"grant_type":    {"client_credentials"},
	}
	authURL := fmt.Sprintf("%s/%s/oauth2/v2.0/token", a.authBase, a.tenantID)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, authURL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("token request failed: %w", err)
	}
	defer resp.Body.Close()

	var payload struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int    `json:"expires_in"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", fmt.Errorf("token response decode failed: %w", err)
	}
	if payload.AccessToken == "" {
		return "", fmt.Errorf("token response missing access_token (status %d)", resp.StatusCode)
	}

	a.token = payload.AccessToken
	a.tokenExpiry = time.Now().Add(time.Duration(payload.ExpiresIn) * time.Second)
	return a.token, nil
}

func (a *EmailAdapter) do(ctx context.Context, method, path string, body any) (*http.Response, error) {
	token, err := a.accessToken(ctx)
	if err != nil {
		return nil, err
	}

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		reader = strings.NewReader(string(data))
	}

	req, err := http.NewRequestWithContext(ctx, method, a.apiBase+path, reader)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	return a.httpClient.Do(req)
}

// FetchUnread lists unread inbox messages.
func (a *EmailAdapter) FetchUnread(ctx context.Context) ([]RawMessage, error) {
	path := fmt.Sprintf("/users/%s/mailFolders/inbox/messages?$filter=%s",
		a.userEmail, url.QueryEscape("isRead eq false"))

	resp, err := a.do(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, fmt.Errorf("fetch unread failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch unread: unexpected status %d", resp.StatusCode)
	}

	var payload struct {
		Value []struct {
			ID      string `json:"id"`
			Subject string `json:"subject"`
			Preview string `json:"bodyPreview"`
			Body    struct {
				Content string `json:"content"`
			} `json:"body"`
			From struct {
				EmailAddress struct {
					Name    string `json:"name"`
					Address string `json:"address"`
				} `json:"emailAddress"`
			} `json:"from"`
		} `json:"value"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("fetch unread decode failed: %w", err)
	}

	messages := make([]RawMessage, 0, len(payload.Value))
	for _, m := range payload.Value {
		body := m.Preview
		if body == "" {
			body = m.Body.Content
		}
		messages = append(messages, RawMessage{
			ExternalID: m.ID,
			Sender:     m.From.EmailAddress.Address,
			Username:   m.From.EmailAddress.Name,
			Subject:    m.Subject,
			Body:       body,
		})
	}
	return messages, nil
}

// SendReply answers the original email in-thread via the Graph reply
// endpoint. Requires MsgID on the message.
func (a *EmailAdapter) SendReply(ctx context.Context, msg *models.Message, text string) error {
	if msg.MsgID == "" {
		return ErrMissingRouting
	}

	path := fmt.Sprintf("/users/%s/messages/%s/reply", a.userEmail, msg.MsgID)
	resp, err := a.do(ctx, http.MethodPost, path, map[string]string{"comment": text})
	if err != nil {
		return fmt.Errorf("reply failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusAccepted {
		return fmt.Errorf("reply: unexpected status %d", resp.StatusCode)
	}
	return nil
}

// MarkConsumed marks the email as read so it is not fetched again.
func (a *EmailAdapter) MarkConsumed(ctx context.Context, externalID string) error {
	path := fmt.Sprintf("/users/%s/messages/%s", a.userEmail, externalID)
	resp, err := a.do(ctx, http.MethodPatch, path, map[string]bool{"isRead": true})
	if err != nil {
		return fmt.Errorf("mark read failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("mark read: unexpected status %d", resp.StatusCode)
	}
	return nil
}
