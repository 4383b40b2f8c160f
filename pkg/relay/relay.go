// Package relay copies an upstream HTTP response to the client without
// buffering the payload.
//
// Headers are forwarded minus the length and encoding headers the relay
// recomputes by re-chunking the body. The body is streamed in fixed-size
// chunks with a flush after each one, so the client receives tokens as the
// backend produces them; net/http frames each flushed write as one chunk of
// the outbound chunked transfer encoding and appends the zero-length
// terminator when the handler returns. A client that disconnects mid-stream
// is tolerated: the write error is swallowed and the response abandoned.
package relay

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"
)

// DefaultChunkSize is the body copy buffer size.
const DefaultChunkSize = 1024

// skippedHeaders are upstream headers the relay does not forward. The
// outbound body is re-chunked, so length and encoding claims from upstream
// would be wrong.
var skippedHeaders = map[string]struct{}{
	"content-length":    {},
	"transfer-encoding": {},
	"content-encoding":  {},
}

// Relay streams upstream responses to clients.
type Relay struct {
	chunkSize int
}

// New creates a relay with the given chunk size.
// A zero or negative size falls back to DefaultChunkSize.
func New(chunkSize int) *Relay {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	return &Relay{chunkSize: chunkSize}
}

// Stream writes the upstream response's status, filtered headers, and body to
// w. It returns the number of body bytes relayed.
//
// A failed write to the client (broken pipe) stops the copy silently: the
// client is gone and there is nobody to report the error to. A failed read
// from upstream also stops the copy; the status line is already on the wire
// by then, so the truncation is visible to the client as a short chunked
// body, which is the only honest signal left.
func (r *Relay) Stream(w http.ResponseWriter, resp *http.Response) int64 {
	defer resp.Body.Close()

	header := w.Header()
	for name, values := range resp.Header {
		if _, skip := skippedHeaders[strings.ToLower(name)]; skip {
			continue
		}
		for _, v := range values {
			header.Add(name, v)
		}
	}
	w.WriteHeader(resp.StatusCode)

	flusher, canFlush := w.(http.Flusher)

	var written int64
	buf := make([]byte, r.chunkSize)
	for {
		n, readErr := resp.Body.Read(buf)
		if n > 0 {
			wn, writeErr := w.Write(buf[:n])
			written += int64(wn)
			if writeErr != nil {
				// Client went away mid-stream. Abandon quietly.
				slog.Debug("client disconnected during relay", "written", written)
				return written
			}
			if canFlush {
				flusher.Flush()
			}
		}
		if readErr != nil {
			if !errors.Is(readErr, io.EOF) {
				slog.Warn("upstream read failed mid-relay",
					"written", written,
					"error", readErr,
				)
			}
			return written
		}
	}
}
