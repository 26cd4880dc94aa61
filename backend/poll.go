package backend

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"voxpad/log"
)

type statusResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	Result  *struct {
		ID         string `json:"id"`
		Title      string `json:"title"`
		EditedText string `json:"edited_text"`
	} `json:"result"`
	Error string `json:"error"`
}

// WatchJob polls /status/{jobID} every PollInterval until a terminal
// status. The returned channel carries progress updates followed by
// exactly one terminal update (Result or Err), then closes; the loop
// itself guarantees no request is issued after a terminal observation.
// Cancelling ctx ends the loop without a terminal update; cancelling
// twice is safe.
func (c *Client) WatchJob(ctx context.Context, jobID string) <-chan JobUpdate {
	updates := make(chan JobUpdate, 8)

	go func() {
		defer close(updates)

		start := time.Now()
		polls := 0
		ticker := time.NewTicker(c.PollInterval)
		defer ticker.Stop()

		terminal := func(u JobUpdate, status string) {
			// A cancel that lands while a status request is in flight
			// must not turn into a terminal update.
			if ctx.Err() != nil {
				return
			}
			log.JobDone(jobID, status, polls, time.Since(start))
			select {
			case updates <- u:
			case <-ctx.Done():
			}
		}

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}

			polls++
			st, err := c.jobStatus(ctx, jobID)
			if err != nil {
				// A single failed status request ends the poll; the
				// Uploader's retry policy does not apply here.
				terminal(JobUpdate{Err: err}, "error")
				return
			}

			switch st.Status {
			case "pending":
				if st.Message != "" {
					select {
					case updates <- JobUpdate{Progress: st.Message}:
					case <-ctx.Done():
						return
					}
				}
			case "completed":
				if st.Result == nil {
					terminal(JobUpdate{Err: &ServerError{Message: "completed job without result"}}, "error")
					return
				}
				terminal(JobUpdate{Result: &NoteResult{
					ID:    st.Result.ID,
					Title: st.Result.Title,
					Text:  st.Result.EditedText,
				}}, "completed")
				return
			case "failed":
				msg := st.Error
				if msg == "" {
					msg = "processing failed"
				}
				terminal(JobUpdate{Err: &ServerError{Message: msg}}, "failed")
				return
			default:
				terminal(JobUpdate{Err: &ServerError{Message: fmt.Sprintf("unknown job status %q", st.Status)}}, "error")
				return
			}
		}
	}()

	return updates
}

func (c *Client) jobStatus(ctx context.Context, jobID string) (*statusResponse, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", c.BaseURL+"/status/"+jobID, nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &NetworkError{Err: err}
	}
	if resp.StatusCode != http.StatusOK {
		return nil, serverError(resp)
	}

	var st statusResponse
	if err := json.Unmarshal(resp.Body, &st); err != nil {
		return nil, fmt.Errorf("parsing status response: %w", err)
	}
	return &st, nil
}
