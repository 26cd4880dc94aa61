package backend

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestManipulateText(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/manipulate-text" {
			t.Errorf("path = %q", r.URL.Path)
		}
		var body struct {
			Text   string `json:"text"`
			Action string `json:"action"`
			Style  string `json:"style"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if body.Text != "hi" || body.Action != "formal" {
			t.Errorf("body = %+v", body)
		}
		json.NewEncoder(w).Encode(map[string]string{"text": "Hello."})
	}))
	defer srv.Close()

	c := testClient(srv.URL)
	got, err := c.ManipulateText(context.Background(), "hi", "formal", "")
	if err != nil {
		t.Fatalf("ManipulateText: %v", err)
	}
	if got != "Hello." {
		t.Errorf("got %q, want Hello.", got)
	}
}

func TestManipulateTextStyleOmittedWhenEmpty(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var raw map[string]any
		json.NewDecoder(r.Body).Decode(&raw)
		if _, ok := raw["style"]; ok {
			t.Error("empty style should be omitted from the payload")
		}
		json.NewEncoder(w).Encode(map[string]string{"text": "ok"})
	}))
	defer srv.Close()

	c := testClient(srv.URL)
	if _, err := c.ManipulateText(context.Background(), "hi", "rephrase", ""); err != nil {
		t.Fatal(err)
	}
}

func TestManipulateTextServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		json.NewEncoder(w).Encode(map[string]string{"error": "upstream down"})
	}))
	defer srv.Close()

	c := testClient(srv.URL)
	_, err := c.ManipulateText(context.Background(), "hi", "formal", "")

	var serr *ServerError
	if !errors.As(err, &serr) {
		t.Fatalf("err = %v, want ServerError", err)
	}
	if serr.Message != "upstream down" {
		t.Errorf("Message = %q", serr.Message)
	}
}

func TestManipulateTextNetworkError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	srv.Close()

	c := testClient(srv.URL)
	_, err := c.ManipulateText(context.Background(), "hi", "formal", "")

	var nerr *NetworkError
	if !errors.As(err, &nerr) {
		t.Errorf("err = %v, want NetworkError", err)
	}
}

func TestShare(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/share" {
			t.Errorf("path = %q", r.URL.Path)
		}
		var body struct {
			Text      string `json:"text"`
			Recipient string `json:"recipient"`
			Method    string `json:"method"`
		}
		json.NewDecoder(r.Body).Decode(&body)
		if body.Recipient != "a@b.cz" || body.Method != "email" {
			t.Errorf("body = %+v", body)
		}
		json.NewEncoder(w).Encode(map[string]string{"message": "sent"})
	}))
	defer srv.Close()

	c := testClient(srv.URL)
	msg, err := c.Share(context.Background(), "hello", "a@b.cz", "email")
	if err != nil {
		t.Fatalf("Share: %v", err)
	}
	if msg != "sent" {
		t.Errorf("msg = %q", msg)
	}
}

func TestRequestIDHeader(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-Request-Id") == "" {
			t.Error("missing X-Request-Id header")
		}
		json.NewEncoder(w).Encode(map[string]string{"text": "ok"})
	}))
	defer srv.Close()

	c := testClient(srv.URL)
	if _, err := c.ManipulateText(context.Background(), "hi", "formal", ""); err != nil {
		t.Fatal(err)
	}
}
