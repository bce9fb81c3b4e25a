package notifications

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"
)

// ErrDisabled indicates the LINE channel has no access token configured.
var ErrDisabled = errors.New("notifications: line channel disabled")

// LineClient wraps the LINE Messaging API push endpoint.
type LineClient struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

// NewLineClient constructs a new client. An empty token yields a client
// whose pushes return ErrDisabled.
func NewLineClient(baseURL, token string) *LineClient {
	return &LineClient{
		baseURL: baseURL,
		token:   token,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// Enabled reports whether the channel is configured.
func (c *LineClient) Enabled() bool {
	return c.token != ""
}

type pushRequest struct {
	To       string        `json:"to"`
	Messages []textMessage `json:"messages"`
}

type textMessage struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// Push sends one text message to a LINE user or group ID.
func (c *LineClient) Push(ctx context.Context, to, text string) error {
	if !c.Enabled() {
		return ErrDisabled
	}
	body, err := json.Marshal(pushRequest{
		To:       to,
		Messages: []textMessage{{Type: "text", Text: text}},
	})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, fmt.Sprintf("%s/v2/bot/message/push", c.baseURL), bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	if resp.StatusCode >= 400 {
		return fmt.Errorf("line push returned status %d", resp.StatusCode)
	}
	return nil
}
