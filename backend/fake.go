package backend

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"
)

// Fake is an in-process Service for tests and the -fake demo mode.
type Fake struct {
	Result      NoteResult
	UploadErr   error
	JobErr      error
	PendingMsgs []string
	Delay       time.Duration // pause between poll updates

	mu      sync.Mutex
	uploads int
	watches int
}

func NewFake(text string) *Fake {
	return &Fake{Result: NoteResult{ID: "fake-1", Title: "Note", Text: text}}
}

func (f *Fake) Uploads() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.uploads
}

func (f *Fake) Watches() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.watches
}

func (f *Fake) Upload(_ context.Context, audio []byte, _ string, _ func(string)) (*UploadResult, error) {
	f.mu.Lock()
	f.uploads++
	f.mu.Unlock()
	if f.UploadErr != nil {
		return nil, f.UploadErr
	}
	if len(audio) == 0 {
		return nil, &ServerError{Status: 400, Message: "empty audio"}
	}
	return &UploadResult{JobID: "fake-job", Attempts: 1, Metrics: &NetworkMetrics{}}, nil
}

func (f *Fake) WatchJob(ctx context.Context, jobID string) <-chan JobUpdate {
	f.mu.Lock()
	f.watches++
	f.mu.Unlock()

	updates := make(chan JobUpdate, 8)
	go func() {
		defer close(updates)
		for _, msg := range f.PendingMsgs {
			if f.Delay > 0 {
				select {
				case <-ctx.Done():
					return
				case <-time.After(f.Delay):
				}
			}
			select {
			case updates <- JobUpdate{Progress: msg}:
			case <-ctx.Done():
				return
			}
		}
		var final JobUpdate
		if f.JobErr != nil {
			final = JobUpdate{Err: f.JobErr}
		} else {
			r := f.Result
			final = JobUpdate{Result: &r}
		}
		select {
		case updates <- final:
		case <-ctx.Done():
		}
	}()
	return updates
}

func (f *Fake) ManipulateText(_ context.Context, text, action, style string) (string, error) {
	if style != "" {
		return fmt.Sprintf("[%s/%s] %s", action, style, text), nil
	}
	return fmt.Sprintf("[%s] %s", action, text), nil
}

func (f *Fake) ProcessAudio(_ context.Context, audio []byte, _ string) (*NoteResult, error) {
	if len(audio) == 0 {
		return nil, &ServerError{Status: 400, Message: "empty audio"}
	}
	r := f.Result
	return &r, nil
}

func (f *Fake) Share(_ context.Context, _, recipient, method string) (string, error) {
	if method == "email" && !strings.Contains(recipient, "@") {
		return "", &ServerError{Status: 400, Message: "invalid recipient"}
	}
	return "shared via " + method, nil
}
