package httputil

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/R3E-Network/app_registry/internal/middleware"
)

func TestNewClientDefaults(t *testing.T) {
	client := NewClient(ClientConfig{BaseURL: "http://localhost:3000/"})
	if client.BaseURL() != "http://localhost:3000" {
		t.Errorf("baseURL = %s, want trailing slash trimmed", client.BaseURL())
	}
	if client.httpClient.Timeout != defaultTimeout {
		t.Errorf("timeout = %v, want %v", client.httpClient.Timeout, defaultTimeout)
	}
	if client.maxRetries != 0 {
		t.Errorf("maxRetries = %d, want 0", client.maxRetries)
	}
}

func TestClientGetForwardsQueryAndTraceID(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			t.Errorf("method = %s, want GET", r.Method)
		}
		if r.URL.Path != "/api/apps/search" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if got := r.URL.Query().Get("appOwner"); got != "osman" {
			t.Errorf("appOwner = %q", got)
		}
		if got := r.Header.Get(middleware.TraceIDHeader); got != "trace-1" {
			t.Errorf("trace id = %q", got)
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"success":true}`))
	}))
	defer server.Close()

	client := NewClient(ClientConfig{BaseURL: server.URL})
	ctx := middleware.WithTraceID(context.Background(), "trace-1")
	resp, err := client.Get(ctx, "/api/apps/search", url.Values{"appOwner": {"osman"}})
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if resp.StatusCode != http.StatusOK || string(resp.Body) != `{"success":true}` {
		t.Fatalf("resp = %d %s", resp.StatusCode, resp.Body)
	}
	if resp.Header.Get("Content-Type") != "application/json" {
		t.Fatalf("content type not preserved")
	}
}

func TestClientRetriesServerErrors(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(`ok`))
	}))
	defer server.Close()

	client := NewClient(ClientConfig{BaseURL: server.URL, MaxRetries: 2, RetryDelay: time.Millisecond})
	resp, err := client.Get(context.Background(), "/health", nil)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	if calls != 3 {
		t.Fatalf("calls = %d, want 3", calls)
	}
}

func TestClientReturnsLastServerError(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"success":false}`))
	}))
	defer server.Close()

	client := NewClient(ClientConfig{BaseURL: server.URL, MaxRetries: 1, RetryDelay: time.Millisecond})
	resp, err := client.Get(context.Background(), "/api/apps", nil)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if resp.StatusCode != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", resp.StatusCode)
	}
	if calls != 2 {
		t.Fatalf("calls = %d, want 2", calls)
	}
}

func TestClientDoesNotRetryWrites(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	client := NewClient(ClientConfig{BaseURL: server.URL, MaxRetries: 3, RetryDelay: time.Millisecond})
	resp, err := client.Do(context.Background(), http.MethodPut, "/api/apps/a", nil, []byte(`{}`))
	if err != nil {
		t.Fatalf("Do() error = %v", err)
	}
	if resp.StatusCode != http.StatusBadGateway || calls != 1 {
		t.Fatalf("status = %d calls = %d", resp.StatusCode, calls)
	}
}

func TestClientTransportFailure(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	addr := server.URL
	server.Close()

	client := NewClient(ClientConfig{BaseURL: addr, MaxRetries: 1, RetryDelay: time.Millisecond})
	if _, err := client.Get(context.Background(), "/health", nil); err == nil {
		t.Fatal("expected an error for an unreachable upstream")
	}
}

func TestReadAllStrict(t *testing.T) {
	data, err := ReadAllStrict(strings.NewReader("abc"), 3)
	if err != nil || string(data) != "abc" {
		t.Fatalf("ReadAllStrict() = %q, %v", data, err)
	}
	if _, err := ReadAllStrict(strings.NewReader("abcd"), 3); !errors.Is(err, ErrBodyTooLarge) {
		t.Fatalf("err = %v, want ErrBodyTooLarge", err)
	}
}
