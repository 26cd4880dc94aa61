// Package backend talks to the transcription/AI-editing server. The
// server is a black box reached over HTTP: audio goes up as multipart,
// a job id comes back, and job status is polled until terminal.
package backend

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"
)

const (
	DefaultTimeout      = 30 * time.Second
	DefaultRetryLimit   = 3
	DefaultRetryDelay   = 5 * time.Second
	DefaultPollInterval = 3 * time.Second
)

// NoteResult is a finished note: the server-assigned id and title plus
// the AI-edited transcript.
type NoteResult struct {
	ID    string
	Title string
	Text  string
}

// JobUpdate is one observation from a poll loop. Exactly one terminal
// update (Result or Err set) is delivered, after which the channel
// closes.
type JobUpdate struct {
	Progress string
	Result   *NoteResult
	Err      error
}

// Service is the backend surface the UI flow depends on.
type Service interface {
	Upload(ctx context.Context, audio []byte, filename string, progress func(string)) (*UploadResult, error)
	WatchJob(ctx context.Context, jobID string) <-chan JobUpdate
	ManipulateText(ctx context.Context, text, action, style string) (string, error)
	ProcessAudio(ctx context.Context, audio []byte, filename string) (*NoteResult, error)
	Share(ctx context.Context, text, recipient, method string) (string, error)
}

type Client struct {
	BaseURL      string
	RetryLimit   int
	RetryDelay   time.Duration
	PollInterval time.Duration

	http *TracedClient
}

func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		BaseURL:      strings.TrimRight(baseURL, "/"),
		RetryLimit:   DefaultRetryLimit,
		RetryDelay:   DefaultRetryDelay,
		PollInterval: DefaultPollInterval,
		http:         NewTracedClient(timeout),
	}
}

// Warm pre-opens a connection to the server.
func (c *Client) Warm() {
	c.http.Warm(c.BaseURL + "/")
}

func (c *Client) retryTimer() <-chan time.Time {
	return time.After(c.RetryDelay)
}

// serverError builds a ServerError from an HTTP error response: the
// JSON error field when the body carries one, else the status line.
func serverError(resp *TracedResponse) *ServerError {
	var body struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(resp.Body, &body); err == nil && body.Error != "" {
		return &ServerError{Status: resp.StatusCode, Message: body.Error}
	}
	return &ServerError{Status: resp.StatusCode, Message: http.StatusText(resp.StatusCode)}
}
