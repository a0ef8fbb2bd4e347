package connector

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"sync/atomic"
	"testing"
	"time"
)

func init() {
	baseBackoff = time.Millisecond
}

func TestDispatchSuccess(t *testing.T) {
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		w.WriteHeader(200)
		w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	conn := &Connector{
		Name:     "test",
		Endpoint: srv.URL,
		Headers:  map[string]string{"Authorization": "Bearer token123"},
	}
	result := Dispatch(context.Background(), conn, []byte(`{}`), 3)

	if result.Error != "" {
		t.Fatalf("unexpected error: %s", result.Error)
	}
	if result.StatusCode != 200 {
		t.Errorf("status = %d", result.StatusCode)
	}
	if result.Attempts != 1 {
		t.Errorf("attempts = %d, want 1", result.Attempts)
	}
	if gotAuth != "Bearer token123" {
		t.Errorf("auth header = %q", gotAuth)
	}
}

func TestDispatchRetriesServerErrors(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(503)
			return
		}
		w.WriteHeader(200)
	}))
	defer srv.Close()

	conn := &Connector{Name: "flaky", Endpoint: srv.URL}
	result := Dispatch(context.Background(), conn, []byte(`{}`), 3)

	if result.Error != "" {
		t.Fatalf("expected eventual success, got: %s", result.Error)
	}
	if result.Attempts != 3 {
		t.Errorf("attempts = %d, want 3", result.Attempts)
	}
}

func TestDispatchDoesNotRetryClientErrors(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(400)
	}))
	defer srv.Close()

	conn := &Connector{Name: "rejecting", Endpoint: srv.URL}
	result := Dispatch(context.Background(), conn, []byte(`{}`), 5)

	if result.Error == "" {
		t.Fatal("expected an error result")
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1 (4xx must not retry)", calls)
	}
	if result.StatusCode != 400 {
		t.Errorf("status = %d", result.StatusCode)
	}
}

func TestResolveHeaders(t *testing.T) {
	os.Setenv("CONNECTOR_TEST_TOKEN", "s3cret")
	defer os.Unsetenv("CONNECTOR_TEST_TOKEN")

	resolved := ResolveHeaders(map[string]string{
		"Authorization": "Bearer {{env.CONNECTOR_TEST_TOKEN}}",
		"X-Static":      "plain",
		"X-Missing":     "{{env.CONNECTOR_TEST_NOPE}}",
	})

	if resolved["Authorization"] != "Bearer s3cret" {
		t.Errorf("Authorization = %q", resolved["Authorization"])
	}
	if resolved["X-Static"] != "plain" {
		t.Errorf("X-Static = %q", resolved["X-Static"])
	}
	if resolved["X-Missing"] != "" {
		t.Errorf("X-Missing = %q", resolved["X-Missing"])
	}
}
