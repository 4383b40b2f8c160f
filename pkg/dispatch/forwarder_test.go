package dispatch

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"
	"time"

	"switchyard-hq/switchyard/pkg/backend"
)

func newForwardReq(t *testing.T, method, path, body string) *ForwardRequest {
	t.Helper()
	r := httptest.NewRequest(method, path, nil)
	r.Header.Set("Authorization", "Bearer alice:secret123")
	r.Header.Set("Content-Type", "application/json")
	return NewForwardRequest(r, []byte(body))
}

func TestForward_Success(t *testing.T) {
	var gotPath, gotQuery, gotAuth string
	var gotBody []byte
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotQuery = r.URL.RawQuery
		gotAuth = r.Header.Get("Authorization")
		gotBody, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusOK)
	}))
	defer ts.Close()

	b := backend.New("main", ts.URL, nil, 5*time.Second)
	f := NewForwarder(3, nil)

	fr := newForwardReq(t, http.MethodPost, "/api/generate?keep=1", `{"model":"llama3"}`)
	resp, cancel, err := f.Forward(context.Background(), b, fr)
	if err != nil {
		t.Fatalf("Forward() error: %v", err)
	}
	defer cancel()
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d", resp.StatusCode)
	}
	if gotPath != "/api/generate" || gotQuery != "keep=1" {
		t.Errorf("upstream saw %q?%q", gotPath, gotQuery)
	}
	if gotAuth != "" {
		t.Errorf("Authorization leaked upstream: %q", gotAuth)
	}
	if string(gotBody) != `{"model":"llama3"}` {
		t.Errorf("upstream body = %q", gotBody)
	}
}

func TestForward_ErrorStatusIsFinal(t *testing.T) {
	var calls atomic.Int64
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, "model blew up", http.StatusInternalServerError)
	}))
	defer ts.Close()

	b := backend.New("main", ts.URL, nil, 5*time.Second)
	f := NewForwarder(3, nil)

	resp, cancel, err := f.Forward(context.Background(), b, newForwardReq(t, http.MethodPost, "/api/generate", "{}"))
	if err != nil {
		t.Fatalf("Forward() error: %v", err)
	}
	defer cancel()
	resp.Body.Close()

	if resp.StatusCode != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500 passed through", resp.StatusCode)
	}
	if n := calls.Load(); n != 1 {
		t.Errorf("upstream called %d times; error statuses must not be retried", n)
	}
}

func TestForward_RetriesTransportErrors(t *testing.T) {
	// A listener that was closed refuses connections on every attempt.
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	ts.Close()

	b := backend.New("main", ts.URL, nil, time.Second)
	f := NewForwarder(3, nil)

	_, _, err := f.Forward(context.Background(), b, newForwardReq(t, http.MethodPost, "/api/generate", "{}"))
	if err == nil {
		t.Fatal("Forward() succeeded against a dead listener")
	}
	var exhausted *AttemptsExhaustedError
	if !errors.As(err, &exhausted) {
		t.Fatalf("error type %T: %v", err, err)
	}
	if exhausted.Attempts != 3 || exhausted.Backend != "main" {
		t.Errorf("exhausted = %+v", exhausted)
	}
	if !errors.Is(err, ErrAttemptsExhausted) {
		t.Error("errors.Is(err, ErrAttemptsExhausted) = false")
	}
}

func TestForward_RetryAfterTimeoutSucceeds(t *testing.T) {
	var calls atomic.Int64
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			time.Sleep(300 * time.Millisecond)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer ts.Close()

	// Backend timeout shorter than the first handler's stall.
	b := backend.New("main", ts.URL, nil, 50*time.Millisecond)
	f := NewForwarder(3, nil)

	resp, cancel, err := f.Forward(context.Background(), b, newForwardReq(t, http.MethodPost, "/api/generate", "{}"))
	if err != nil {
		t.Fatalf("Forward() error: %v", err)
	}
	defer cancel()
	resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d", resp.StatusCode)
	}
	if n := calls.Load(); n != 2 {
		t.Errorf("upstream called %d times, want 2 (timeout then success)", n)
	}
}

func TestForward_CancelledContext(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer ts.Close()

	b := backend.New("main", ts.URL, nil, time.Second)
	f := NewForwarder(3, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, _, err := f.Forward(ctx, b, newForwardReq(t, http.MethodGet, "/api/tags", ""))
	if err == nil {
		t.Fatal("Forward() succeeded with a cancelled context")
	}
	if !errors.Is(err, context.Canceled) {
		t.Errorf("error = %v, want context.Canceled in chain", err)
	}
}

func TestNewForwardRequest_StripsHopHeaders(t *testing.T) {
	r := httptest.NewRequest(http.MethodPost, "/api/chat", nil)
	r.Header.Set("Authorization", "Bearer alice:secret123")
	r.Header.Set("Content-Length", "42")
	r.Header.Set("X-Custom", "kept")

	fr := NewForwardRequest(r, []byte("body"))
	if fr.Header.Get("Authorization") != "" {
		t.Error("Authorization survived")
	}
	if fr.Header.Get("Content-Length") != "" {
		t.Error("Content-Length survived")
	}
	if fr.Header.Get("X-Custom") != "kept" {
		t.Error("unrelated header dropped")
	}
}

func TestExtractModel(t *testing.T) {
	tests := []struct {
		name  string
		body  string
		query string
		want  string
	}{
		{"json body", `{"model":"llama3","prompt":"hi"}`, "", "llama3"},
		{"body wins over query", `{"model":"llama3"}`, "model=mistral", "llama3"},
		{"query fallback", "", "model=mistral", "mistral"},
		{"malformed body falls to query", `{"model":`, "model=mistral", "mistral"},
		{"non-string model field", `{"model":42}`, "model=mistral", "mistral"},
		{"nothing", `{"prompt":"hi"}`, "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q, err := url.ParseQuery(tt.query)
			if err != nil {
				t.Fatal(err)
			}
			if got := ExtractModel([]byte(tt.body), q); got != tt.want {
				t.Errorf("ExtractModel() = %q, want %q", got, tt.want)
			}
		})
	}
}
