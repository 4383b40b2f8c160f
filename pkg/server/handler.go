package server

import (
	"log/slog"
	"net"
	"net/http"
	"time"

	"switchyard-hq/switchyard/pkg/audit"
	"switchyard-hq/switchyard/pkg/auth"
	"switchyard-hq/switchyard/pkg/dispatch"
	"switchyard-hq/switchyard/pkg/server/middleware"
)

// Handler is the proxy's single catch-all handler: authenticate, then
// dispatch. There are no reserved paths; anything the dispatcher does not
// model-route is mirrored to the default backend.
type Handler struct {
	authenticator *auth.Authenticator
	dispatcher    *dispatch.Dispatcher
	auditor       audit.Recorder
}

// NewHandler wires the authenticator, dispatcher, and audit sink together.
// A nil auditor falls back to a NopRecorder.
func NewHandler(authenticator *auth.Authenticator, dispatcher *dispatch.Dispatcher, auditor audit.Recorder) *Handler {
	if auditor == nil {
		auditor = audit.NopRecorder{}
	}
	return &Handler{
		authenticator: authenticator,
		dispatcher:    dispatcher,
		auditor:       auditor,
	}
}

// ServeHTTP implements http.Handler.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	identity, ok := h.authenticator.Authenticate(r.Header.Get("Authorization"))
	if !ok {
		h.reject(w, r, identity)
		return
	}
	h.dispatcher.Dispatch(w, r, identity)
}

// reject refuses the request with 403 and records the denial. identity is
// the authenticator's best-effort identity: the raw token when one was
// presented, so operators can see who is knocking.
func (h *Handler) reject(w http.ResponseWriter, r *http.Request, identity string) {
	requestID := middleware.GetRequestID(r.Context())

	slog.Warn("request rejected: authentication failed",
		"identity", identity,
		"path", r.URL.Path,
		"remote_addr", r.RemoteAddr,
		"request_id", requestID,
	)

	if err := h.auditor.Record(audit.Record{
		Timestamp:  time.Now(),
		Event:      audit.EventRejected,
		User:       identity,
		ClientIP:   clientAddr(r),
		Access:     audit.AccessDenied,
		Server:     audit.NoServer,
		QueueDepth: -1,
		Error:      "Authentication failed",
		RequestID:  requestID,
	}); err != nil {
		slog.Error("failed to write rejection record", "error", err)
	}

	w.WriteHeader(http.StatusForbidden)
}

func clientAddr(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
