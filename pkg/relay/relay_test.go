package relay

import (
	"bytes"
	"crypto/rand"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
)

func upstreamResponse(t *testing.T, handler http.HandlerFunc) *http.Response {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	resp, err := http.Get(srv.URL)
	if err != nil {
		t.Fatal(err)
	}
	return resp
}

func TestRelay_RoundTripFidelity(t *testing.T) {
	sizes := []int{0, 1, 1023, 1024, 1025, 64 * 1024}

	for _, size := range sizes {
		t.Run(fmt.Sprintf("%d_bytes", size), func(t *testing.T) {
			payload := make([]byte, size)
			if _, err := rand.Read(payload); err != nil {
				t.Fatal(err)
			}

			resp := upstreamResponse(t, func(w http.ResponseWriter, r *http.Request) {
				w.Write(payload)
			})

			rec := httptest.NewRecorder()
			written := New(DefaultChunkSize).Stream(rec, resp)

			if written != int64(size) {
				t.Errorf("Stream() wrote %d bytes, want %d", written, size)
			}
			if !bytes.Equal(rec.Body.Bytes(), payload) {
				t.Error("relayed body does not match the original bytes")
			}
		})
	}
}

func TestRelay_FiltersLengthHeaders(t *testing.T) {
	resp := upstreamResponse(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("X-Model-Server", "v0.9.1")
		w.Header().Set("Content-Length", "11")
		w.Write([]byte("hello world"))
	})

	rec := httptest.NewRecorder()
	New(0).Stream(rec, resp)

	if got := rec.Header().Get("Content-Type"); got != "application/json" {
		t.Errorf("Content-Type = %q, want forwarded verbatim", got)
	}
	if got := rec.Header().Get("X-Model-Server"); got != "v0.9.1" {
		t.Errorf("X-Model-Server = %q, want forwarded verbatim", got)
	}
	for _, name := range []string{"Content-Length", "Transfer-Encoding", "Content-Encoding"} {
		if got := rec.Header().Get(name); got != "" {
			t.Errorf("%s = %q, want dropped (relay re-chunks the body)", name, got)
		}
	}
}

func TestRelay_PreservesStatusCode(t *testing.T) {
	for _, status := range []int{200, 404, 500} {
		t.Run(fmt.Sprintf("status_%d", status), func(t *testing.T) {
			resp := upstreamResponse(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(status)
				w.Write([]byte("body"))
			})

			rec := httptest.NewRecorder()
			New(0).Stream(rec, resp)
			if rec.Code != status {
				t.Errorf("relayed status = %d, want %d", rec.Code, status)
			}
		})
	}
}

// brokenWriter simulates a client that disconnects after a few bytes.
type brokenWriter struct {
	header  http.Header
	allowed int
	written int
	flushed int
}

func (b *brokenWriter) Header() http.Header { return b.header }

func (b *brokenWriter) WriteHeader(int) {}

func (b *brokenWriter) Write(p []byte) (int, error) {
	if b.written >= b.allowed {
		return 0, fmt.Errorf("write tcp: broken pipe")
	}
	b.written += len(p)
	return len(p), nil
}

func (b *brokenWriter) Flush() { b.flushed++ }

func TestRelay_SwallowsClientDisconnect(t *testing.T) {
	resp := upstreamResponse(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write(make([]byte, 8*1024))
	})

	w := &brokenWriter{header: make(http.Header), allowed: 2048}
	written := New(1024).Stream(w, resp) // must not panic or propagate

	if written > 2048+1024 {
		t.Errorf("relay kept writing after client disconnect: %d bytes", written)
	}
	if w.flushed == 0 {
		t.Error("relay never flushed; streamed chunks would sit in buffers")
	}
}

func TestRelay_StreamingFlushesPerChunk(t *testing.T) {
	resp := upstreamResponse(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write(make([]byte, 4096))
	})

	w := &brokenWriter{header: make(http.Header), allowed: 1 << 20}
	New(1024).Stream(w, resp)

	if w.flushed < 4 {
		t.Errorf("flushed %d times for a 4KiB body with 1KiB chunks, want >= 4", w.flushed)
	}
}
