package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"

	"github.com/google/uuid"
)

// UploadField is the multipart field name the server expects.
const UploadField = "audio_file"

type UploadResult struct {
	JobID    string
	Attempts int
	Metrics  *NetworkMetrics
}

// Upload posts the recording and returns the job id to poll. Transport
// failures are retried up to RetryLimit attempts with RetryDelay
// between them, reporting each wait through progress ("the server may
// be waking up"). HTTP error responses are never retried.
func (c *Client) Upload(ctx context.Context, audio []byte, filename string, progress func(string)) (*UploadResult, error) {
	var lastErr error
	for attempt := 1; attempt <= c.RetryLimit; attempt++ {
		resp, err := c.postAudio(ctx, "/upload-audio", audio, filename)
		if err != nil {
			lastErr = err
			if attempt < c.RetryLimit {
				if progress != nil {
					progress(fmt.Sprintf("server waking up, retrying… (%d/%d)", attempt, c.RetryLimit))
				}
				select {
				case <-ctx.Done():
					return nil, &NetworkError{Err: ctx.Err()}
				case <-c.retryTimer():
				}
			}
			continue
		}

		if resp.StatusCode != http.StatusOK {
			return nil, serverError(resp)
		}

		var body struct {
			JobID string `json:"job_id"`
		}
		if err := json.Unmarshal(resp.Body, &body); err != nil {
			return nil, fmt.Errorf("parsing upload response: %w", err)
		}
		if body.JobID == "" {
			return nil, &ServerError{Status: resp.StatusCode, Message: "missing job_id in response"}
		}
		return &UploadResult{JobID: body.JobID, Attempts: attempt, Metrics: resp.Metrics}, nil
	}
	return nil, &NetworkError{Err: lastErr}
}

// ProcessAudio is the deprecated synchronous flow for servers without
// job support: one request that blocks until the edited text is ready.
// No retries, no job id.
func (c *Client) ProcessAudio(ctx context.Context, audio []byte, filename string) (*NoteResult, error) {
	resp, err := c.postAudio(ctx, "/process-audio", audio, filename)
	if err != nil {
		return nil, &NetworkError{Err: err}
	}
	if resp.StatusCode != http.StatusOK {
		return nil, serverError(resp)
	}

	var body struct {
		OriginalText string `json:"original_text"`
		EditedText   string `json:"edited_text"`
		Error        string `json:"error"`
	}
	if err := json.Unmarshal(resp.Body, &body); err != nil {
		return nil, fmt.Errorf("parsing process response: %w", err)
	}
	if body.Error != "" {
		return nil, &ServerError{Status: resp.StatusCode, Message: body.Error}
	}
	return &NoteResult{Text: body.EditedText}, nil
}

func (c *Client) postAudio(ctx context.Context, path string, audio []byte, filename string) (*TracedResponse, error) {
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	part, err := writer.CreateFormFile(UploadField, filename)
	if err != nil {
		return nil, err
	}
	if _, err := part.Write(audio); err != nil {
		return nil, err
	}
	writer.Close()

	req, err := http.NewRequestWithContext(ctx, "POST", c.BaseURL+path, &body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("X-Request-Id", uuid.NewString())

	return c.http.Do(req)
}
