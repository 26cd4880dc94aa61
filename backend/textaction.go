package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/google/uuid"
)

// ManipulateText applies a server-side transform (rephrase, formalize,
// …) to text and returns the replacement. The caller leaves its buffer
// untouched on error.
func (c *Client) ManipulateText(ctx context.Context, text, action, style string) (string, error) {
	payload := struct {
		Text   string `json:"text"`
		Action string `json:"action"`
		Style  string `json:"style,omitempty"`
	}{Text: text, Action: action, Style: style}

	resp, err := c.postJSON(ctx, "/manipulate-text", payload)
	if err != nil {
		return "", err
	}

	var body struct {
		Text string `json:"text"`
	}
	if err := json.Unmarshal(resp.Body, &body); err != nil {
		return "", fmt.Errorf("parsing manipulate response: %w", err)
	}
	return body.Text, nil
}

// Share asks the server to send text somewhere (email, for now) and
// returns the server's confirmation message.
func (c *Client) Share(ctx context.Context, text, recipient, method string) (string, error) {
	payload := struct {
		Text      string `json:"text"`
		Recipient string `json:"recipient"`
		Method    string `json:"method"`
	}{Text: text, Recipient: recipient, Method: method}

	resp, err := c.postJSON(ctx, "/share", payload)
	if err != nil {
		return "", err
	}

	var body struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(resp.Body, &body); err != nil {
		return "", fmt.Errorf("parsing share response: %w", err)
	}
	return body.Message, nil
}

func (c *Client) postJSON(ctx context.Context, path string, payload any) (*TracedResponse, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.BaseURL+path, bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Request-Id", uuid.NewString())

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &NetworkError{Err: err}
	}
	if resp.StatusCode != http.StatusOK {
		return nil, serverError(resp)
	}
	return resp, nil
}
