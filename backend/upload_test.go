package backend

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"
)

func testClient(url string) *Client {
	c := NewClient(url, 5*time.Second)
	c.RetryDelay = time.Millisecond
	c.PollInterval = 10 * time.Millisecond
	return c
}

// flakyListener closes the first n accepted connections so the client
// sees transport-level failures before the server starts answering.
type flakyListener struct {
	net.Listener
	mu       sync.Mutex
	failures int
}

func (l *flakyListener) Accept() (net.Conn, error) {
	for {
		c, err := l.Listener.Accept()
		if err != nil {
			return nil, err
		}
		l.mu.Lock()
		if l.failures > 0 {
			l.failures--
			l.mu.Unlock()
			c.Close()
			continue
		}
		l.mu.Unlock()
		return c, nil
	}
}

func uploadHandler(t *testing.T, requests *int) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		*requests++
		if r.URL.Path != "/upload-audio" {
			t.Errorf("path = %q", r.URL.Path)
		}
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Fatalf("parse multipart: %v", err)
		}
		f, hdr, err := r.FormFile(UploadField)
		if err != nil {
			t.Fatalf("missing %s field: %v", UploadField, err)
		}
		defer f.Close()
		if hdr.Filename != "recording.wav" {
			t.Errorf("filename = %q", hdr.Filename)
		}
		data, _ := io.ReadAll(f)
		if len(data) == 0 {
			t.Error("empty audio payload")
		}
		json.NewEncoder(w).Encode(map[string]string{"job_id": "abc"})
	}
}

func TestUploadSuccess(t *testing.T) {
	var requests int
	srv := httptest.NewServer(uploadHandler(t, &requests))
	defer srv.Close()

	c := testClient(srv.URL)
	res, err := c.Upload(context.Background(), []byte("RIFFdata"), "recording.wav", nil)
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}
	if res.JobID != "abc" {
		t.Errorf("JobID = %q, want abc", res.JobID)
	}
	if res.Attempts != 1 {
		t.Errorf("Attempts = %d, want 1", res.Attempts)
	}
	if requests != 1 {
		t.Errorf("requests = %d, want 1", requests)
	}
}

func TestUploadServerErrorNotRetried(t *testing.T) {
	var requests int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		w.WriteHeader(http.StatusInternalServerError)
		fmt.Fprint(w, `{"error":"disk full"}`)
	}))
	defer srv.Close()

	c := testClient(srv.URL)
	_, err := c.Upload(context.Background(), []byte("x"), "recording.wav", nil)

	var serr *ServerError
	if !errors.As(err, &serr) {
		t.Fatalf("err = %v, want ServerError", err)
	}
	if serr.Message != "disk full" {
		t.Errorf("Message = %q, want disk full", serr.Message)
	}
	if requests != 1 {
		t.Errorf("requests = %d, want 1 (no retries on HTTP errors)", requests)
	}
}

func TestUploadServerErrorPlainBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "teapot", http.StatusTeapot)
	}))
	defer srv.Close()

	c := testClient(srv.URL)
	_, err := c.Upload(context.Background(), []byte("x"), "recording.wav", nil)

	var serr *ServerError
	if !errors.As(err, &serr) {
		t.Fatalf("err = %v, want ServerError", err)
	}
	if serr.Status != http.StatusTeapot {
		t.Errorf("Status = %d", serr.Status)
	}
	// No JSON error field: message comes from the status line
	if serr.Message == "" {
		t.Error("expected fallback message")
	}
}

func TestUploadRetriesThenSucceeds(t *testing.T) {
	var requests int
	srv := httptest.NewUnstartedServer(uploadHandler(t, &requests))
	srv.Listener = &flakyListener{Listener: srv.Listener, failures: 2}
	srv.Start()
	defer srv.Close()

	var notices []string
	c := testClient(srv.URL)
	res, err := c.Upload(context.Background(), []byte("x"), "recording.wav", func(msg string) {
		notices = append(notices, msg)
	})
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}
	if res.Attempts != 3 {
		t.Errorf("Attempts = %d, want 3", res.Attempts)
	}
	if len(notices) != 2 {
		t.Errorf("progress notices = %d, want 2 (one per wait)", len(notices))
	}
}

func TestUploadExhaustsRetries(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	srv.Close() // connection refused from here on

	var notices []string
	c := testClient(srv.URL)
	_, err := c.Upload(context.Background(), []byte("x"), "recording.wav", func(msg string) {
		notices = append(notices, msg)
	})

	var nerr *NetworkError
	if !errors.As(err, &nerr) {
		t.Fatalf("err = %v, want NetworkError", err)
	}
	if len(notices) != 2 {
		t.Errorf("progress notices = %d, want 2 (RetryLimit-1 waits)", len(notices))
	}
}

func TestUploadContextCancelDuringBackoff(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	srv.Close()

	c := testClient(srv.URL)
	c.RetryDelay = time.Minute
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	start := time.Now()
	_, err := c.Upload(ctx, []byte("x"), "recording.wav", nil)
	if err == nil {
		t.Fatal("expected error")
	}
	if time.Since(start) > 5*time.Second {
		t.Error("cancel did not interrupt backoff")
	}
}

func TestProcessAudioSyncFlow(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/process-audio" {
			t.Errorf("path = %q", r.URL.Path)
		}
		json.NewEncoder(w).Encode(map[string]string{
			"original_text": "hi there",
			"edited_text":   "Hello there.",
		})
	}))
	defer srv.Close()

	c := testClient(srv.URL)
	res, err := c.ProcessAudio(context.Background(), []byte("x"), "recording.wav")
	if err != nil {
		t.Fatalf("ProcessAudio: %v", err)
	}
	if res.Text != "Hello there." {
		t.Errorf("Text = %q", res.Text)
	}
}

func TestProcessAudioErrorField(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{"error": "no speech"})
	}))
	defer srv.Close()

	c := testClient(srv.URL)
	_, err := c.ProcessAudio(context.Background(), []byte("x"), "recording.wav")

	var serr *ServerError
	if !errors.As(err, &serr) {
		t.Fatalf("err = %v, want ServerError", err)
	}
	if serr.Message != "no speech" {
		t.Errorf("Message = %q", serr.Message)
	}
}
