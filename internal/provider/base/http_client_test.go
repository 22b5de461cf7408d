package base

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
)

func TestPostJSONRetriesServerErrors(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	c := NewClient("test", srv.URL, 5)
	resp, err := c.PostJSON(context.Background(), "/x", map[string]string{"a": "b"}, nil)
	if err != nil {
		t.Fatalf("PostJSON: %v", err)
	}
	if !resp.IsSuccess() {
		t.Fatalf("status = %d after retries", resp.StatusCode)
	}
	if got := hits.Load(); got != 3 {
		t.Fatalf("hits = %d, want 3", got)
	}
}

func TestPostJSONDoesNotRetryClientErrors(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusUnprocessableEntity)
		w.Write([]byte(`{"message":"nope"}`))
	}))
	defer srv.Close()

	c := NewClient("test", srv.URL, 5)
	resp, err := c.PostJSON(context.Background(), "/x", map[string]string{}, nil)
	if err != nil {
		t.Fatalf("PostJSON: %v", err)
	}
	if resp.StatusCode != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if got := hits.Load(); got != 1 {
		t.Fatalf("4xx must not be retried, hits = %d", got)
	}
}

func TestExhaustedRetriesKeepLastResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"message":"gateway exploded"}`))
	}))
	defer srv.Close()

	c := NewClient("test", srv.URL, 5)
	resp, err := c.Get(context.Background(), "/x", nil)
	if err != nil {
		t.Fatalf("exhausted retries should still hand back the response: %v", err)
	}
	if resp.StatusCode != http.StatusInternalServerError {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	// The gateway's own wording must survive for the caller.
	if got := ErrorMessage("", resp); got == "" {
		t.Fatal("error message fallback should carry the body")
	}
}

func TestAuthHeader(t *testing.T) {
	h := AuthHeader("tok")
	if h["Authorization"] != "Bearer tok" {
		t.Fatalf("header = %v", h)
	}
}
