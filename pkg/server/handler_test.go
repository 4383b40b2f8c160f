package server

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"switchyard-hq/switchyard/pkg/audit"
	"switchyard-hq/switchyard/pkg/auth"
	"switchyard-hq/switchyard/pkg/backend"
	"switchyard-hq/switchyard/pkg/dispatch"
	"switchyard-hq/switchyard/pkg/server/middleware"
)

func newTestHandler(t *testing.T, upstream string, users map[string]string, secured bool) (*Handler, *audit.MemoryRecorder) {
	t.Helper()
	reg, err := backend.NewRegistry([]backend.Config{
		{Name: "main", URL: upstream, Models: []string{"llama3"}, Timeout: 5 * time.Second},
	})
	if err != nil {
		t.Fatal(err)
	}
	rec := audit.NewMemoryRecorder()
	d := dispatch.New(dispatch.Options{
		Registry:    reg,
		Prober:      backend.NewProber(time.Second),
		Auditor:     rec,
		MaxAttempts: 1,
	})
	return NewHandler(auth.NewAuthenticator(users, secured), d, rec), rec
}

func TestHandler_RejectsBadCredentials(t *testing.T) {
	up := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("upstream reached by an unauthenticated request")
	}))
	defer up.Close()

	h, rec := newTestHandler(t, up.URL, map[string]string{"alice": "secret123"}, true)

	r := httptest.NewRequest(http.MethodPost, "/api/generate", strings.NewReader(`{"model":"llama3"}`))
	r.Header.Set("Authorization", "Bearer alice:wrongkey")
	r.RemoteAddr = "203.0.113.7:51234"
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)

	if w.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want 403", w.Code)
	}

	rejections := rec.ByEvent(audit.EventRejected)
	if len(rejections) != 1 {
		t.Fatalf("got %d rejection records, want 1", len(rejections))
	}
	got := rejections[0]
	if got.User != "alice:wrongkey" {
		t.Errorf("rejected identity = %q, want the raw token", got.User)
	}
	if got.Access != audit.AccessDenied || got.Server != audit.NoServer || got.QueueDepth != -1 {
		t.Errorf("rejection record = %+v", got)
	}
	if got.Error != "Authentication failed" {
		t.Errorf("rejection error = %q", got.Error)
	}
	if got.ClientIP != "203.0.113.7" {
		t.Errorf("client ip = %q", got.ClientIP)
	}
}

func TestHandler_MissingHeaderRejected(t *testing.T) {
	h, _ := newTestHandler(t, "http://127.0.0.1:1", map[string]string{"alice": "secret123"}, true)

	r := httptest.NewRequest(http.MethodGet, "/api/tags", nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)

	if w.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want 403", w.Code)
	}
}

func TestHandler_SecurityDisabledPassesThrough(t *testing.T) {
	up := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("tags"))
	}))
	defer up.Close()

	h, rec := newTestHandler(t, up.URL, nil, false)

	r := httptest.NewRequest(http.MethodGet, "/api/tags", nil)
	r.RemoteAddr = "203.0.113.7:51234"
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 with security disabled", w.Code)
	}
	done := rec.ByEvent(audit.EventDone)
	if len(done) != 1 || done[0].User != auth.AnonymousUser {
		t.Errorf("done records = %+v, want one as %q", done, auth.AnonymousUser)
	}
}

// TestHandler_EndToEnd drives a real listener through the full middleware
// chain: auth, model routing, and streamed relay.
func TestHandler_EndToEnd(t *testing.T) {
	up := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/generate" && r.URL.Path != "/" {
			t.Errorf("unexpected upstream path %q", r.URL.Path)
		}
		if r.URL.Path == "/" {
			return
		}
		if got := r.Header.Get("Authorization"); got != "" {
			t.Errorf("Authorization forwarded upstream: %q", got)
		}
		w.Header().Set("Content-Type", "application/x-ndjson")
		flusher := w.(http.Flusher)
		for _, line := range []string{`{"response":"hel"}`, `{"response":"lo","done":true}`} {
			io.WriteString(w, line+"\n")
			flusher.Flush()
		}
	}))
	defer up.Close()

	h, rec := newTestHandler(t, up.URL, map[string]string{"alice": "secret123"}, true)
	proxy := httptest.NewServer(middleware.Recovery(middleware.RequestID(middleware.Logging(h))))
	defer proxy.Close()

	req, err := http.NewRequest(http.MethodPost, proxy.URL+"/api/generate",
		strings.NewReader(`{"model":"llama3","prompt":"hi"}`))
	if err != nil {
		t.Fatal(err)
	}
	req.Header.Set("Authorization", "Bearer alice:secret123")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatal(err)
	}
	want := `{"response":"hel"}` + "\n" + `{"response":"lo","done":true}` + "\n"
	if string(body) != want {
		t.Errorf("body = %q, want %q", body, want)
	}
	if resp.Header.Get("Content-Type") != "application/x-ndjson" {
		t.Errorf("Content-Type = %q", resp.Header.Get("Content-Type"))
	}

	records := rec.ByEvent(audit.EventGenDone)
	if len(records) != 1 {
		t.Fatalf("gen_done records = %d, want 1", len(records))
	}
	if records[0].RequestID == "" {
		t.Error("audit record is missing the request id from the middleware chain")
	}
}
